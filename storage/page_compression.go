package storage

import (
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/golang/snappy"
	"github.com/pierrec/lz4/v4"
)

// CompressionType identifies the codec used for a compressed page
type CompressionType uint8

const (
	CompressionNone   CompressionType = 0
	CompressionLZ4    CompressionType = 1
	CompressionSnappy CompressionType = 2
)

// CompressedPage is a compressed page plus framing metadata
type CompressedPage struct {
	Type             CompressionType
	UncompressedSize uint16
	CompressedSize   uint16
	Data             []byte
	Checksum         uint64 // xxhash64 of the original page
}

// Compressed page frame layout:
// [0-1]:   magic (0xC0DE, little-endian)
// [2]:     compression type
// [3]:     reserved
// [4-5]:   uncompressed size
// [6-7]:   compressed size
// [8-15]:  xxhash64 of the original page
// [16+]:   compressed payload
const (
	compressedPageMagic  = 0xC0DE
	compressedHeaderSize = 16

	// minCompressionSavings is the minimum bytes a codec must save for
	// the compressed form to be stored
	minCompressionSavings = 100
)

// CompressPage compresses a full page with the requested codec. When
// the codec saves fewer than minCompressionSavings bytes the page is
// returned tagged CompressionNone with its original contents.
func CompressPage(data []byte, compressionType CompressionType) (*CompressedPage, error) {
	if len(data) != PageSize {
		return nil, fmt.Errorf("page data must be exactly %d bytes, got %d", PageSize, len(data))
	}

	checksum := xxhash.Sum64(data)

	var compressed []byte
	switch compressionType {
	case CompressionNone:
		compressed = data

	case CompressionLZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, buf, nil)
		if err != nil {
			return nil, fmt.Errorf("LZ4 compression failed: %w", err)
		}
		if n == 0 {
			// Incompressible input
			compressionType = CompressionNone
			compressed = data
		} else {
			compressed = buf[:n]
		}

	case CompressionSnappy:
		compressed = snappy.Encode(nil, data)

	default:
		return nil, fmt.Errorf("unsupported compression type: %d", compressionType)
	}

	if compressionType != CompressionNone {
		if len(data)-len(compressed) < minCompressionSavings {
			compressionType = CompressionNone
			compressed = data
		}
	}

	return &CompressedPage{
		Type:             compressionType,
		UncompressedSize: uint16(len(data)),
		CompressedSize:   uint16(len(compressed)),
		Data:             compressed,
		Checksum:         checksum,
	}, nil
}

// DecompressPage reverses CompressPage and verifies the checksum
func DecompressPage(cp *CompressedPage) ([]byte, error) {
	var decompressed []byte

	switch cp.Type {
	case CompressionNone:
		decompressed = cp.Data

	case CompressionLZ4:
		buf := make([]byte, cp.UncompressedSize)
		n, err := lz4.UncompressBlock(cp.Data, buf)
		if err != nil {
			return nil, fmt.Errorf("LZ4 decompression failed: %w", err)
		}
		decompressed = buf[:n]

	case CompressionSnappy:
		var err error
		decompressed, err = snappy.Decode(nil, cp.Data)
		if err != nil {
			return nil, fmt.Errorf("snappy decompression failed: %w", err)
		}

	default:
		return nil, fmt.Errorf("unsupported compression type: %d", cp.Type)
	}

	if len(decompressed) != int(cp.UncompressedSize) {
		return nil, fmt.Errorf("decompressed size mismatch: expected %d, got %d",
			cp.UncompressedSize, len(decompressed))
	}
	if xxhash.Sum64(decompressed) != cp.Checksum {
		return nil, fmt.Errorf("checksum mismatch after decompression")
	}
	return decompressed, nil
}

// encodeFrame serializes a compressed page into the header+payload wire
// form. Returns an error if the frame would not fit in a page slot.
func (cp *CompressedPage) encodeFrame() ([]byte, error) {
	if compressedHeaderSize+len(cp.Data) > PageSize {
		return nil, fmt.Errorf("compressed frame of %d bytes exceeds page size", compressedHeaderSize+len(cp.Data))
	}
	frame := make([]byte, PageSize)
	binary.LittleEndian.PutUint16(frame[0:2], compressedPageMagic)
	frame[2] = byte(cp.Type)
	binary.LittleEndian.PutUint16(frame[4:6], cp.UncompressedSize)
	binary.LittleEndian.PutUint16(frame[6:8], cp.CompressedSize)
	binary.LittleEndian.PutUint64(frame[8:16], cp.Checksum)
	copy(frame[compressedHeaderSize:], cp.Data)
	return frame, nil
}

// decodeFrame parses the header+payload wire form. ok is false when the
// buffer does not begin with the compressed-page magic.
func decodeFrame(frame []byte) (cp *CompressedPage, ok bool, err error) {
	if len(frame) < compressedHeaderSize {
		return nil, false, nil
	}
	if binary.LittleEndian.Uint16(frame[0:2]) != compressedPageMagic {
		return nil, false, nil
	}

	cp = &CompressedPage{
		Type:             CompressionType(frame[2]),
		UncompressedSize: binary.LittleEndian.Uint16(frame[4:6]),
		CompressedSize:   binary.LittleEndian.Uint16(frame[6:8]),
		Checksum:         binary.LittleEndian.Uint64(frame[8:16]),
	}
	if compressedHeaderSize+int(cp.CompressedSize) > len(frame) {
		return nil, false, fmt.Errorf("compressed size %d overruns frame", cp.CompressedSize)
	}
	cp.Data = frame[compressedHeaderSize : compressedHeaderSize+int(cp.CompressedSize)]
	return cp, true, nil
}
