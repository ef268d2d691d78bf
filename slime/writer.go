// Package slime writes dimensions in the Slime world format: a small header followed by
// zstd-compressed blocks for chunks, tile entities, entities and extra data.
package slime

import (
	"bytes"
	"encoding/binary"
	"io"
	"os"
	"sort"

	"github.com/Tnze/go-mc/nbt"
	"github.com/klauspost/compress/zstd"

	"github.com/astei/worldcopy/anvil"
	"github.com/astei/worldcopy/world"
)

const slimeHeader = 0xB10B
const slimeLatestVersion = 1

func slimeChunkKey(coord world.ChunkCoord) int64 {
	return (int64(coord.Z) * 0x7fffffff) + int64(coord.X)
}

// Write serializes every chunk of dim to writer.
func Write(writer io.Writer, dim *world.MemoryDimension) error {
	zstdWriter, err := zstd.NewWriter(io.Discard)
	if err != nil {
		return err
	}
	slimeWriter := &slimeWriter{writer: writer, dim: dim, zstdWriter: zstdWriter}
	return slimeWriter.writeWorld()
}

func WriteFile(path string, dim *world.MemoryDimension) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return
	}
	defer func() {
		if closeErr := file.Close(); err == nil {
			err = closeErr
		}
	}()
	return Write(file, dim)
}

type slimeWriter struct {
	writer     io.Writer
	dim        *world.MemoryDimension
	zstdWriter *zstd.Encoder
}

func (w *slimeWriter) writeWorld() (err error) {
	if err = w.writeHeader(); err != nil {
		return
	}
	chunks, err := w.sortedChunks()
	if err != nil {
		return
	}
	if err = w.writeChunks(chunks); err != nil {
		return
	}
	if err = w.writeTileEntities(chunks); err != nil {
		return
	}
	if err = w.writeEntities(chunks); err != nil {
		return
	}
	return w.writeExtra()
}

func (w *slimeWriter) writeHeader() (err error) {
	var header struct {
		Magic   uint16
		Version uint8
	}

	header.Magic = slimeHeader
	header.Version = slimeLatestVersion

	return binary.Write(w.writer, binary.BigEndian, header)
}

func (w *slimeWriter) sortedChunks() ([]*world.Chunk, error) {
	coords := w.dim.ChunkCoords()
	sort.SliceStable(coords, func(one, two int) bool {
		return slimeChunkKey(coords[one]) < slimeChunkKey(coords[two])
	})

	chunks := make([]*world.Chunk, 0, len(coords))
	for _, coord := range coords {
		chunk, err := w.dim.Chunk(coord, false)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, chunk)
	}
	return chunks, nil
}

func (w *slimeWriter) writeChunks(chunks []*world.Chunk) (err error) {
	var out bytes.Buffer

	if err = binary.Write(&out, binary.BigEndian, uint32(len(chunks))); err != nil {
		return
	}

	for _, chunk := range chunks {
		if err = w.writeChunkHeader(chunk, &out); err != nil {
			return
		}

		positions := chunk.SectionPositions()
		if err = binary.Write(&out, binary.BigEndian, uint32(len(positions))); err != nil {
			return
		}

		for _, y := range positions {
			if err = w.writeChunkSection(chunk.Section(y, false), &out); err != nil {
				return
			}
		}
	}

	return w.writeZstdCompressed(&out)
}

func (w *slimeWriter) writeChunkHeader(chunk *world.Chunk, out io.Writer) (err error) {
	if err = binary.Write(out, binary.BigEndian, int32(chunk.X)); err != nil {
		return
	}
	if err = binary.Write(out, binary.BigEndian, int32(chunk.Z)); err != nil {
		return
	}

	var heightMaps struct {
		HeightMap []int32 `nbt:"HeightMap"`
	}
	heightMaps.HeightMap = chunk.HeightMap
	if heightMaps.HeightMap == nil {
		heightMaps.HeightMap = []int32{}
	}
	if err = w.writeNbt(heightMaps, "Heightmaps", out); err != nil {
		return
	}

	if err = binary.Write(out, binary.BigEndian, uint32(len(chunk.Biomes))); err != nil {
		return
	}
	_, err = out.Write(chunk.Biomes)
	return
}

func (w *slimeWriter) writeChunkSection(section *world.Section, out io.Writer) (err error) {
	if err = binary.Write(out, binary.BigEndian, int8(section.Y)); err != nil {
		return
	}
	if err = writeOptionalArray(out, section.BlockLight); err != nil {
		return
	}
	if err = writeOptionalArray(out, section.SkyLight); err != nil {
		return
	}

	blocks, add, data := anvil.PackBlocks(section)
	if _, err = out.Write(blocks); err != nil {
		return
	}
	if err = writeOptionalArray(out, add); err != nil {
		return
	}
	_, err = out.Write(data)
	return
}

func writeOptionalArray(out io.Writer, arr []byte) (err error) {
	if arr == nil {
		return binary.Write(out, binary.BigEndian, false)
	}
	if err = binary.Write(out, binary.BigEndian, true); err != nil {
		return
	}
	_, err = out.Write(arr)
	return
}

func (w *slimeWriter) writeZstdCompressed(buf *bytes.Buffer) (err error) {
	uncompressedSize := buf.Len()

	var compressedOutput bytes.Buffer
	w.zstdWriter.Reset(&compressedOutput)
	if _, err = buf.WriteTo(w.zstdWriter); err != nil {
		return
	}
	if err = w.zstdWriter.Close(); err != nil {
		return
	}
	w.zstdWriter.Reset(io.Discard)

	if err = binary.Write(w.writer, binary.BigEndian, uint32(compressedOutput.Len())); err != nil {
		return
	}
	if err = binary.Write(w.writer, binary.BigEndian, uint32(uncompressedSize)); err != nil {
		return
	}
	_, err = compressedOutput.WriteTo(w.writer)
	return
}

func (w *slimeWriter) writeTileEntities(chunks []*world.Chunk) (err error) {
	tileEntities := []map[string]any{}
	for _, chunk := range chunks {
		for _, t := range chunk.TileEntities {
			tileEntities = append(tileEntities, anvil.TileEntityToNBT(t))
		}
	}

	var compound struct {
		Tiles []map[string]any `nbt:"tiles"`
	}

	compound.Tiles = tileEntities
	return w.writeCompressedNbt(compound, "tiles")
}

func (w *slimeWriter) writeEntities(chunks []*world.Chunk) (err error) {
	entities := []map[string]any{}
	for _, chunk := range chunks {
		for _, e := range chunk.Entities {
			entities = append(entities, anvil.EntityToNBT(e))
		}
	}

	var compound struct {
		Entities []map[string]any `nbt:"entities"`
	}

	compound.Entities = entities
	return w.writeCompressedNbt(compound, "entities")
}

func (w *slimeWriter) writeCompressedNbt(compound any, tagName string) (err error) {
	var buf bytes.Buffer
	if err = nbt.NewEncoder(&buf).Encode(compound, tagName); err != nil {
		return
	}
	return w.writeZstdCompressed(&buf)
}

func (w *slimeWriter) writeNbt(compound any, tagName string, out io.Writer) (err error) {
	var buf bytes.Buffer
	if err = nbt.NewEncoder(&buf).Encode(compound, tagName); err != nil {
		return
	}
	if err = binary.Write(out, binary.BigEndian, uint32(buf.Len())); err != nil {
		return
	}
	_, err = buf.WriteTo(out)
	return
}

func (w *slimeWriter) writeExtra() (err error) {
	// Write empty NBT tag compound
	empty := map[string]any{}
	return w.writeCompressedNbt(empty, "extra")
}
