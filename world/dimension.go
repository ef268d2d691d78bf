package world

import (
	"errors"
	"sort"

	"github.com/astei/worldcopy/blocktype"
)

var ErrChunkNotFound = errors.New("world: chunk not found")

// BiomeColumn addresses one world column for a bulk biome write.
type BiomeColumn struct {
	X, Z  int
	Biome byte
}

// Dimension is a chunked voxel space that can be read from and written to.
type Dimension interface {
	BlockTypes() *blocktype.Registry
	ContainsChunk(pos ChunkCoord) bool
	// Chunk returns the chunk at pos. Without create, ErrChunkNotFound is returned for chunks
	// that do not exist.
	Chunk(pos ChunkCoord, create bool) (*Chunk, error)
	AddEntity(e Entity) error
	AddTileEntity(t TileEntity) error
	SetBiomes(columns []BiomeColumn) error
}

// MemoryDimension keeps all of its chunks in memory. It is not safe for concurrent use.
type MemoryDimension struct {
	blockTypes *blocktype.Registry
	chunks     map[ChunkCoord]*Chunk
}

func NewMemoryDimension(blockTypes *blocktype.Registry) *MemoryDimension {
	return &MemoryDimension{
		blockTypes: blockTypes,
		chunks:     make(map[ChunkCoord]*Chunk),
	}
}

func (d *MemoryDimension) BlockTypes() *blocktype.Registry { return d.blockTypes }

func (d *MemoryDimension) ContainsChunk(pos ChunkCoord) bool {
	_, ok := d.chunks[pos]
	return ok
}

func (d *MemoryDimension) Chunk(pos ChunkCoord, create bool) (*Chunk, error) {
	if c, ok := d.chunks[pos]; ok {
		return c, nil
	}
	if !create {
		return nil, ErrChunkNotFound
	}
	c := NewChunk(pos)
	c.Dirty = true
	d.chunks[pos] = c
	return c, nil
}

// PutChunk stores c, replacing any chunk at the same coordinates.
func (d *MemoryDimension) PutChunk(c *Chunk) {
	if c.sections == nil {
		c.sections = make(map[int]*Section)
	}
	d.chunks[c.Coord()] = c
}

// ChunkCoords returns the coordinates of all chunks sorted by X, then Z.
func (d *MemoryDimension) ChunkCoords() []ChunkCoord {
	keys := make([]ChunkCoord, 0, len(d.chunks))
	for k := range d.chunks {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].X != keys[j].X {
			return keys[i].X < keys[j].X
		}
		return keys[i].Z < keys[j].Z
	})
	return keys
}

// AddEntity stores e in the chunk it is standing in. Entities outside loaded chunks are dropped.
func (d *MemoryDimension) AddEntity(e Entity) error {
	c, ok := d.chunks[e.BlockPos().Chunk()]
	if !ok {
		return nil
	}
	c.Entities = append(c.Entities, e)
	c.Dirty = true
	return nil
}

// AddTileEntity stores t, replacing a tile entity already at the same position.
func (d *MemoryDimension) AddTileEntity(t TileEntity) error {
	c, ok := d.chunks[t.Pos.Chunk()]
	if !ok {
		return nil
	}
	for i, existing := range c.TileEntities {
		if existing.Pos == t.Pos {
			c.TileEntities[i] = t
			c.Dirty = true
			return nil
		}
	}
	c.TileEntities = append(c.TileEntities, t)
	c.Dirty = true
	return nil
}

func (d *MemoryDimension) SetBiomes(columns []BiomeColumn) error {
	for _, col := range columns {
		c, ok := d.chunks[ChunkCoord{X: col.X >> 4, Z: col.Z >> 4}]
		if !ok {
			continue
		}
		if len(c.Biomes) != BiomeArraySize {
			c.Biomes = make([]byte, BiomeArraySize)
		}
		c.Biomes[(col.Z&15)<<4|col.X&15] = col.Biome
		c.Dirty = true
	}
	return nil
}
