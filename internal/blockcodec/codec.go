package blockcodec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Type selects the compression algorithm.
type Type uint8

const (
	// None stores blocks uncompressed.
	None Type = 0
	// LZ4 is fast block compression, good for hot data.
	LZ4 Type = 1
	// ZSTD trades speed for ratio, good for cold data.
	ZSTD Type = 2
)

func (t Type) String() string {
	switch t {
	case None:
		return "none"
	case LZ4:
		return "lz4"
	case ZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("Type(%d)", uint8(t))
	}
}

// HeaderSize is the size of the block header.
const HeaderSize = 12

var (
	// ErrCorrupt is returned for malformed blocks.
	ErrCorrupt = errors.New("blockcodec: corrupt block")
	// ErrUnknownType is returned for unsupported compression types.
	ErrUnknownType = errors.New("blockcodec: unknown compression type")
	// ErrTooLarge is returned when a block exceeds 4 GiB.
	ErrTooLarge = errors.New("blockcodec: block too large")
)

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() (*zstd.Encoder, error) {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder), nil
	}
	return zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
}

func getZstdDecoder() (*zstd.Decoder, error) {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder), nil
	}
	// Output never grows past the capacity sized from the block header.
	return zstd.NewReader(nil, zstd.WithDecodeAllCapLimit(true))
}

// Encode frames data as a block compressed with t.
func Encode(data []byte, t Type) ([]byte, error) {
	if uint64(len(data)) > math.MaxUint32 {
		return nil, ErrTooLarge
	}

	var (
		payload []byte
		err     error
	)
	switch t {
	case None:
	case LZ4:
		payload, err = compressLZ4(data)
	case ZSTD:
		payload, err = compressZSTD(data)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownType, t)
	}
	if err != nil {
		return nil, err
	}

	// Not worth it: store raw.
	if len(payload) == 0 || float64(len(payload)) > float64(len(data))*0.9 {
		t = None
		payload = data
	}

	out := make([]byte, HeaderSize+len(payload))
	out[0] = byte(t)
	binary.LittleEndian.PutUint32(out[4:], uint32(len(data)))    //nolint:gosec // checked above
	binary.LittleEndian.PutUint32(out[8:], uint32(len(payload))) //nolint:gosec // payload <= data
	copy(out[HeaderSize:], payload)
	return out, nil
}

func compressLZ4(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	dst := make([]byte, lz4.CompressBlockBound(len(data)))
	n, err := lz4.CompressBlock(data, dst, nil)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil // incompressible
	}
	return dst[:n], nil
}

func compressZSTD(data []byte) ([]byte, error) {
	enc, err := getZstdEncoder()
	if err != nil {
		return nil, err
	}
	defer zstdEncoderPool.Put(enc)
	return enc.EncodeAll(data, nil), nil
}

// Decode parses one block and returns the uncompressed bytes.
func Decode(block []byte) ([]byte, error) {
	if len(block) < HeaderSize {
		return nil, fmt.Errorf("%w: short header", ErrCorrupt)
	}
	t, rawSize, storedSize := parseHeader(block)
	if uint64(len(block)-HeaderSize) < uint64(storedSize) {
		return nil, fmt.Errorf("%w: truncated payload", ErrCorrupt)
	}
	return decodePayload(t, rawSize, block[HeaderSize:HeaderSize+int(storedSize)])
}

func parseHeader(h []byte) (Type, uint32, uint32) {
	return Type(h[0]), binary.LittleEndian.Uint32(h[4:]), binary.LittleEndian.Uint32(h[8:])
}

// Upper bounds on decompressed/compressed ratios. An LZ4 match grows by at
// most 255 bytes per input byte; the densest ZSTD block is a 4 byte RLE
// block expanding to 128 KiB.
const (
	maxRatioLZ4  = 256
	maxRatioZSTD = 1 << 15
)

// maxExpansion bounds the size a payload of stored bytes can decode to.
func maxExpansion(t Type, stored int) uint64 {
	switch t {
	case LZ4:
		return uint64(stored)*maxRatioLZ4 + 64 //nolint:gosec // stored >= 0
	case ZSTD:
		return uint64(stored) * maxRatioZSTD //nolint:gosec // stored >= 0
	default:
		return uint64(stored) //nolint:gosec // stored >= 0
	}
}

func decodePayload(t Type, rawSize uint32, payload []byte) ([]byte, error) {
	if t > ZSTD {
		return nil, fmt.Errorf("%w: %d", ErrUnknownType, t)
	}
	if uint64(rawSize) > maxExpansion(t, len(payload)) {
		return nil, fmt.Errorf("%w: %d bytes cannot decode to %d", ErrCorrupt, len(payload), rawSize)
	}

	switch t {
	case None:
		if uint32(len(payload)) != rawSize { //nolint:gosec // len <= MaxUint32 by framing
			return nil, fmt.Errorf("%w: size mismatch", ErrCorrupt)
		}
		return payload, nil

	case LZ4:
		out := make([]byte, rawSize)
		n, err := lz4.UncompressBlock(payload, out)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
		}
		if uint32(n) != rawSize { //nolint:gosec // n <= len(out)
			return nil, fmt.Errorf("%w: size mismatch", ErrCorrupt)
		}
		return out, nil

	case ZSTD:
		dec, err := getZstdDecoder()
		if err != nil {
			return nil, err
		}
		defer zstdDecoderPool.Put(dec)

		out, err := dec.DecodeAll(payload, make([]byte, 0, rawSize))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
		}
		if uint32(len(out)) != rawSize { //nolint:gosec // bounded by rawSize capacity
			return nil, fmt.Errorf("%w: size mismatch", ErrCorrupt)
		}
		return out, nil

	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownType, t)
	}
}

// WriteBlock encodes data and writes the block to w.
func WriteBlock(w io.Writer, data []byte, t Type) (int64, error) {
	block, err := Encode(data, t)
	if err != nil {
		return 0, err
	}
	n, err := w.Write(block)
	return int64(n), err
}

// ReadBlock reads one block from r. maxRaw bounds the declared sizes, and
// the payload is read as it arrives, so a corrupt header cannot make
// ReadBlock allocate more than the stream actually holds.
func ReadBlock(r io.Reader, maxRaw uint32) ([]byte, int64, error) {
	var hdr [HeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, 0, err
	}
	t, rawSize, storedSize := parseHeader(hdr[:])
	if rawSize > maxRaw || storedSize > maxRaw {
		return nil, HeaderSize, fmt.Errorf("%w: declared size %d exceeds %d", ErrCorrupt, max(rawSize, storedSize), maxRaw)
	}

	payload, err := io.ReadAll(io.LimitReader(r, int64(storedSize)))
	if err != nil {
		return nil, HeaderSize, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if uint64(len(payload)) != uint64(storedSize) {
		return nil, HeaderSize + int64(len(payload)), fmt.Errorf("%w: %w", ErrCorrupt, io.ErrUnexpectedEOF)
	}

	out, err := decodePayload(t, rawSize, payload)
	return out, HeaderSize + int64(storedSize), err
}
