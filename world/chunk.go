package world

import "sort"

// BiomeArraySize is the length of a chunk's column biome array, indexed z<<4 | x.
const BiomeArraySize = SectionSize * SectionSize

// Chunk is a 16-wide column of sections with the entities and tile entities stored in it.
type Chunk struct {
	X, Z int

	sections map[int]*Section

	Entities     []Entity
	TileEntities []TileEntity
	Biomes       []byte
	HeightMap    []int32

	// Dirty is set whenever a section or biome of the chunk is written.
	Dirty          bool
	LightPopulated bool
}

func NewChunk(coord ChunkCoord) *Chunk {
	return &Chunk{
		X:        coord.X,
		Z:        coord.Z,
		sections: make(map[int]*Section),
	}
}

func (c *Chunk) Coord() ChunkCoord {
	return ChunkCoord{X: c.X, Z: c.Z}
}

// SectionPositions returns the Y coordinates of all sections in ascending order.
func (c *Chunk) SectionPositions() []int {
	ys := make([]int, 0, len(c.sections))
	for y := range c.sections {
		ys = append(ys, y)
	}
	sort.Ints(ys)
	return ys
}

// Section returns the section at y. When create is set a missing section is added as air,
// otherwise nil is returned for it.
func (c *Chunk) Section(y int, create bool) *Section {
	if s, ok := c.sections[y]; ok {
		return s
	}
	if !create {
		return nil
	}
	s := &Section{Y: y}
	c.sections[y] = s
	return s
}

// PutSection stores s, replacing any section at the same Y.
func (c *Chunk) PutSection(s *Section) {
	c.sections[s.Y] = s
}

// Biome returns the biome of the local column x, z and whether the chunk stores biomes at all.
func (c *Chunk) Biome(x, z int) (byte, bool) {
	if len(c.Biomes) != BiomeArraySize {
		return 0, false
	}
	return c.Biomes[z<<4|x], true
}
