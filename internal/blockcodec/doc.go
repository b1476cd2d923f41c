// Package blockcodec frames byte blocks with optional LZ4 or ZSTD
// compression.
//
// Block layout (little endian):
//
//	[Type uint8][reserved 3 bytes][UncompressedSize uint32][StoredSize uint32][Data...]
//
// Blocks that do not compress below 90% of their size are stored raw with
// Type None.
//
// Decoding never allocates more than the payload can expand to, so a
// corrupt header cannot force large allocations.
package blockcodec
