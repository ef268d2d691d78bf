package anvil

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
)

const regionMaxOffsets = 1024
const regionSectorSize = 4096

// RegionSize is the number of chunks along each horizontal axis of a region file.
const RegionSize = 32

var ErrNoChunk = errors.New("anvil: chunk not found")
var ErrInvalidChunkLength = errors.New("anvil: invalid chunk length")
var ErrInvalidCompression = errors.New("anvil: invalid compression format")

type CompressionType byte

const (
	CompressionGzip         CompressionType = 1
	CompressionDeflate      CompressionType = 2
	CompressionUncompressed CompressionType = 3
)

// RegionReader reads chunks out of an Anvil region file. The reader is not safe for concurrent
// access; usage should be protected by a mutex if concurrent access is desired.
type RegionReader struct {
	source      io.ReadSeeker
	sectorTable []int32
	Name        string
}

// NewRegionReader creates a RegionReader. The ownership of the source is transferred to this
// reader.
func NewRegionReader(source io.ReadSeeker) (reader *RegionReader, err error) {
	reader = &RegionReader{
		source:      source,
		sectorTable: make([]int32, regionMaxOffsets),
	}

	if file, ok := source.(*os.File); ok {
		reader.Name = file.Name()
	}
	err = reader.readSectorTable()
	return
}

func (r *RegionReader) readSectorTable() (err error) {
	if _, err = r.source.Seek(0, io.SeekStart); err != nil {
		return err
	}

	rawSectorData := make([]byte, regionSectorSize)
	if _, err = io.ReadFull(r.source, rawSectorData); err != nil {
		return fmt.Errorf("could not read sector table: %w", err)
	}
	return binary.Read(bytes.NewReader(rawSectorData), binary.BigEndian, r.sectorTable)
}

// ReadChunk reads the chunk at the specified X and Z coordinates. Note that these coordinates
// are relative to the region file and are not chunk coordinates. The returned reader yields the
// decompressed NBT payload.
func (r *RegionReader) ReadChunk(x, z int) (chunk io.Reader, err error) {
	location := r.sectorTable[x+z*RegionSize]

	start := location >> 8
	if start == 0 {
		return nil, ErrNoChunk
	}

	if _, err = r.source.Seek(int64(start)*regionSectorSize, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to seek: %w", err)
	}

	var payloadInfo struct {
		Length      int32
		Compression CompressionType
	}
	if err = binary.Read(r.source, binary.BigEndian, &payloadInfo); err != nil {
		return nil, fmt.Errorf("could not read payload header: %w", err)
	}
	if payloadInfo.Length <= 1 || int(payloadInfo.Length) > int(location&0xFF)*regionSectorSize {
		return nil, ErrInvalidChunkLength
	}

	payloadData := make([]byte, payloadInfo.Length-1)
	if _, err = io.ReadFull(r.source, payloadData); err != nil {
		return nil, fmt.Errorf("could not read payload data: %w", err)
	}

	payloadReader := bytes.NewReader(payloadData)
	switch payloadInfo.Compression {
	case CompressionGzip:
		return gzip.NewReader(payloadReader)
	case CompressionDeflate:
		return zlib.NewReader(payloadReader)
	case CompressionUncompressed:
		return payloadReader, nil
	default:
		return nil, ErrInvalidCompression
	}
}

func (r *RegionReader) ChunkExists(x, z int) bool {
	return r.sectorTable[x+z*RegionSize] != 0
}

func (r *RegionReader) Close() error {
	if closer, ok := r.source.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
