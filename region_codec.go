package eop

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"reflect"
	"unsafe"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/eop/internal/blockcodec"
	"github.com/hupe1980/eop/internal/conv"
	"github.com/hupe1980/eop/resource"
)

// Snapshot layout (little endian):
//
//	[Magic "EOPR"][Version uint8][Reserved 3 bytes][ElemSize uint32][Len uint32]
//	[BitmapLen uint32][Roaring bitmap (portable format)]
//	[blockcodec block holding Len*ElemSize raw bytes]
const (
	regionMagic      = "EOPR"
	regionVersion    = 1
	regionHeaderSize = 16
)

// Encode writes the region's liveness and raw contents to w.
// Raw slots are written as zero bytes. Only pointer-free element types can
// be encoded.
// Recognized options: WithCompression, WithResourceController (IO limit),
// WithLogger.
func (r *Region[T]) Encode(ctx context.Context, w io.Writer, opts ...Option) (int64, error) {
	o := applyOptions(opts)
	name := typeName[T]()

	n, err := r.encode(ctx, resource.NewRateLimitedWriter(ctx, w, o.resources), o.compression)
	o.logger.LogSnapshot(ctx, "encode", name, n, err)
	return n, err
}

func (r *Region[T]) encode(ctx context.Context, w io.Writer, c Compression) (int64, error) {
	if hasPointers(reflect.TypeFor[T]()) {
		return 0, fmt.Errorf("%w: %s", ErrPointerfulType, typeName[T]())
	}
	if err := r.check(); err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	var zero T
	elemSize, err := conv.Uint32(int(unsafe.Sizeof(zero)))
	if err != nil {
		return 0, err
	}
	length, err := conv.Uint32(len(r.data))
	if err != nil {
		return 0, err
	}

	bm, err := r.live.MarshalBinary()
	if err != nil {
		return 0, err
	}
	bmLen, err := conv.Uint32(len(bm))
	if err != nil {
		return 0, err
	}

	hdr := make([]byte, regionHeaderSize+4)
	copy(hdr, regionMagic)
	hdr[4] = regionVersion
	binary.LittleEndian.PutUint32(hdr[8:], elemSize)
	binary.LittleEndian.PutUint32(hdr[12:], length)
	binary.LittleEndian.PutUint32(hdr[16:], bmLen)

	var total int64
	for _, part := range [][]byte{hdr, bm} {
		n, err := w.Write(part)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}

	n, err := blockcodec.WriteBlock(w, r.bytes(), blockcodec.Type(c))
	total += n
	return total, err
}

// DecodeRegion rebuilds a region written by Encode, placing it in a (or on
// the Go heap when a is nil).
// Recognized options: WithResourceController (IO limit), WithLogger.
func DecodeRegion[T any](ctx context.Context, rd io.Reader, a *Arena, opts ...Option) (*Region[T], error) {
	o := applyOptions(opts)
	name := typeName[T]()

	cr := &countingReader{r: resource.NewRateLimitedReader(ctx, rd, o.resources)}
	r, err := decodeRegion[T](ctx, cr, a)
	o.logger.LogSnapshot(ctx, "decode", name, cr.n, err)
	return r, err
}

func decodeRegion[T any](ctx context.Context, rd io.Reader, a *Arena) (*Region[T], error) {
	if hasPointers(reflect.TypeFor[T]()) {
		return nil, fmt.Errorf("%w: %s", ErrPointerfulType, typeName[T]())
	}

	hdr := make([]byte, regionHeaderSize+4)
	if _, err := io.ReadFull(rd, hdr); err != nil {
		return nil, fmt.Errorf("%w: header: %w", ErrCorruptSnapshot, err)
	}
	if string(hdr[:4]) != regionMagic {
		return nil, fmt.Errorf("%w: bad magic %q", ErrCorruptSnapshot, hdr[:4])
	}
	if hdr[4] != regionVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorruptSnapshot, hdr[4])
	}

	var zero T
	elemSize := binary.LittleEndian.Uint32(hdr[8:])
	if uint64(elemSize) != uint64(unsafe.Sizeof(zero)) {
		return nil, fmt.Errorf("%w: snapshot %d, %s %d", ErrElementSizeMismatch, elemSize, typeName[T](), unsafe.Sizeof(zero))
	}
	length := binary.LittleEndian.Uint32(hdr[12:])
	bmLen := binary.LittleEndian.Uint32(hdr[16:])

	if uint64(bmLen) > maxBitmapBytes(length) {
		return nil, fmt.Errorf("%w: bitmap of %d bytes for %d slots", ErrCorruptSnapshot, bmLen, length)
	}
	bm, err := io.ReadAll(io.LimitReader(rd, int64(bmLen)))
	if err != nil {
		return nil, fmt.Errorf("%w: bitmap: %w", ErrCorruptSnapshot, err)
	}
	if uint64(len(bm)) != uint64(bmLen) {
		return nil, fmt.Errorf("%w: bitmap: %w", ErrCorruptSnapshot, io.ErrUnexpectedEOF)
	}
	live := roaring.New()
	if err := live.UnmarshalBinary(bm); err != nil {
		return nil, fmt.Errorf("%w: bitmap: %w", ErrCorruptSnapshot, err)
	}
	if !live.IsEmpty() && live.Maximum() >= length {
		return nil, fmt.Errorf("%w: live slot %d beyond length %d", ErrCorruptSnapshot, live.Maximum(), length)
	}

	n, err := conv.Int(length)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidLength, err)
	}
	rawSize := uint64(length) * uint64(elemSize)
	if rawSize > uint64(^uint32(0)) {
		return nil, fmt.Errorf("%w: %d bytes", ErrCorruptSnapshot, rawSize)
	}

	raw, _, err := blockcodec.ReadBlock(rd, uint32(rawSize))
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: data: %w", ErrCorruptSnapshot, err)
		}
		return nil, translateError(err)
	}
	if uint64(len(raw)) != rawSize {
		return nil, fmt.Errorf("%w: data is %d bytes, want %d", ErrCorruptSnapshot, len(raw), rawSize)
	}

	r, err := NewRegion[T](ctx, a, n)
	if err != nil {
		return nil, err
	}
	copy(r.bytes(), raw)
	r.live = live
	return r, nil
}

// maxBitmapBytes bounds the portable size of a bitmap over length values:
// at most 8 KiB per 65536-value container plus headers.
func maxBitmapBytes(length uint32) uint64 {
	containers := uint64(length)/65536 + 1
	return 64 + containers*(8192+16)
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
