package anvil

import (
	"encoding/binary"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/astei/worldcopy/world"
)

type chunkRoot struct {
	DataVersion int32 `nbt:"DataVersion"`
	Level       chunkLevel
}

type chunkLevel struct {
	X int32 `nbt:"xPos"`
	Z int32 `nbt:"zPos"`

	LightPopulated byte `nbt:"LightPopulated"`

	Sections []chunkSection

	Biomes    []byte  `nbt:"Biomes"`
	HeightMap []int32 `nbt:"HeightMap"`

	Entities     []map[string]any
	TileEntities []map[string]any
}

type chunkSection struct {
	Y int8

	Blocks []byte
	Add    []byte `nbt:"Add,omitempty"`
	Data   []byte

	BlockLight []byte `nbt:"BlockLight,omitempty"`
	SkyLight   []byte `nbt:"SkyLight,omitempty"`
}

func (l *chunkLevel) toChunk() (*world.Chunk, error) {
	chunk := world.NewChunk(world.ChunkCoord{X: int(l.X), Z: int(l.Z)})
	chunk.LightPopulated = l.LightPopulated != 0
	chunk.HeightMap = l.HeightMap
	if len(l.Biomes) == world.BiomeArraySize {
		chunk.Biomes = l.Biomes
	}

	for _, raw := range l.Sections {
		section, err := raw.toSection()
		if err != nil {
			return nil, fmt.Errorf("section %d: %w", raw.Y, err)
		}
		chunk.PutSection(section)
	}

	for _, raw := range l.Entities {
		chunk.Entities = append(chunk.Entities, entityFromNBT(raw))
	}
	for _, raw := range l.TileEntities {
		chunk.TileEntities = append(chunk.TileEntities, tileEntityFromNBT(raw))
	}
	return chunk, nil
}

func (s *chunkSection) toSection() (*world.Section, error) {
	for _, arr := range []*[]byte{&s.Add, &s.BlockLight, &s.SkyLight} {
		if len(*arr) == 0 {
			*arr = nil
		}
	}
	if len(s.Blocks) != world.SectionVolume {
		return nil, fmt.Errorf("invalid blocks size %d", len(s.Blocks))
	}
	if len(s.Data) != world.NibbleArraySize {
		return nil, fmt.Errorf("invalid data size %d", len(s.Data))
	}
	if s.Add != nil && len(s.Add) != world.NibbleArraySize {
		return nil, fmt.Errorf("invalid add size %d", len(s.Add))
	}
	if s.BlockLight != nil && len(s.BlockLight) != world.NibbleArraySize {
		return nil, fmt.Errorf("invalid block light size %d", len(s.BlockLight))
	}
	if s.SkyLight != nil && len(s.SkyLight) != world.NibbleArraySize {
		return nil, fmt.Errorf("invalid sky light size %d", len(s.SkyLight))
	}

	section := &world.Section{Y: int(s.Y), BlockLight: s.BlockLight, SkyLight: s.SkyLight}
	for i := 0; i < world.SectionVolume; i++ {
		id := uint16(s.Blocks[i])
		if s.Add != nil {
			id |= uint16(world.Nibble(s.Add, i)) << 8
		}
		section.Blocks[i] = id
		section.Data[i] = world.Nibble(s.Data, i)
	}
	return section, nil
}

func sectionFromWorld(section *world.Section) chunkSection {
	blocks, add, data := PackBlocks(section)
	return chunkSection{
		Y:          int8(section.Y),
		Blocks:     blocks,
		Add:        add,
		Data:       data,
		BlockLight: section.BlockLight,
		SkyLight:   section.SkyLight,
	}
}

// PackBlocks splits the block ids and data of a section into the legacy byte, Add nibble and
// Data nibble arrays. add is nil when no id needs more than 8 bits.
func PackBlocks(section *world.Section) (blocks, add, data []byte) {
	blocks = make([]byte, world.SectionVolume)
	data = make([]byte, world.NibbleArraySize)
	for i, id := range section.Blocks {
		blocks[i] = byte(id)
		if id > 0xFF {
			if add == nil {
				add = make([]byte, world.NibbleArraySize)
			}
			world.SetNibble(add, i, uint8(id>>8))
		}
		world.SetNibble(data, i, section.Data[i])
	}
	return
}

func levelFromChunk(chunk *world.Chunk) chunkLevel {
	level := chunkLevel{
		X:            int32(chunk.X),
		Z:            int32(chunk.Z),
		Biomes:       chunk.Biomes,
		HeightMap:    chunk.HeightMap,
		Entities:     []map[string]any{},
		TileEntities: []map[string]any{},
	}
	if chunk.LightPopulated {
		level.LightPopulated = 1
	}
	for _, y := range chunk.SectionPositions() {
		level.Sections = append(level.Sections, sectionFromWorld(chunk.Section(y, false)))
	}
	for _, e := range chunk.Entities {
		level.Entities = append(level.Entities, EntityToNBT(e))
	}
	for _, t := range chunk.TileEntities {
		level.TileEntities = append(level.TileEntities, TileEntityToNBT(t))
	}
	return level
}

func entityFromNBT(raw map[string]any) world.Entity {
	e := world.Entity{Data: make(map[string]any, len(raw))}
	var most, least int64
	for key, value := range raw {
		switch key {
		case "id":
			e.ID, _ = value.(string)
		case "Pos":
			if pos, ok := vec3(value); ok {
				e.Pos = pos
			}
		case "Rotation":
			if rot, ok := floats(value); ok && len(rot) == 2 {
				e.Rotation = [2]float32{float32(rot[0]), float32(rot[1])}
			}
		case "UUIDMost":
			most, _ = value.(int64)
		case "UUIDLeast":
			least, _ = value.(int64)
		default:
			e.Data[key] = value
		}
	}
	binary.BigEndian.PutUint64(e.UUID[:8], uint64(most))
	binary.BigEndian.PutUint64(e.UUID[8:], uint64(least))
	return e
}

// EntityToNBT returns the legacy compound form of an entity.
func EntityToNBT(e world.Entity) map[string]any {
	out := make(map[string]any, len(e.Data)+5)
	for key, value := range e.Data {
		out[key] = value
	}
	out["id"] = e.ID
	out["Pos"] = []float64{e.Pos[0], e.Pos[1], e.Pos[2]}
	out["Rotation"] = []float32{e.Rotation[0], e.Rotation[1]}
	out["UUIDMost"] = int64(binary.BigEndian.Uint64(e.UUID[:8]))
	out["UUIDLeast"] = int64(binary.BigEndian.Uint64(e.UUID[8:]))
	return out
}

func tileEntityFromNBT(raw map[string]any) world.TileEntity {
	t := world.TileEntity{Data: make(map[string]any, len(raw))}
	for key, value := range raw {
		switch key {
		case "id":
			t.ID, _ = value.(string)
		case "x":
			t.Pos[0] = intValue(value)
		case "y":
			t.Pos[1] = intValue(value)
		case "z":
			t.Pos[2] = intValue(value)
		default:
			t.Data[key] = value
		}
	}
	return t
}

// TileEntityToNBT returns the legacy compound form of a tile entity.
func TileEntityToNBT(t world.TileEntity) map[string]any {
	out := make(map[string]any, len(t.Data)+4)
	for key, value := range t.Data {
		out[key] = value
	}
	out["id"] = t.ID
	out["x"] = int32(t.Pos[0])
	out["y"] = int32(t.Pos[1])
	out["z"] = int32(t.Pos[2])
	return out
}

func vec3(value any) (mgl64.Vec3, bool) {
	f, ok := floats(value)
	if !ok || len(f) != 3 {
		return mgl64.Vec3{}, false
	}
	return mgl64.Vec3{f[0], f[1], f[2]}, true
}

func floats(value any) ([]float64, bool) {
	switch v := value.(type) {
	case []float64:
		return v, true
	case []float32:
		out := make([]float64, len(v))
		for i, f := range v {
			out[i] = float64(f)
		}
		return out, true
	case []any:
		out := make([]float64, len(v))
		for i, f := range v {
			switch n := f.(type) {
			case float64:
				out[i] = n
			case float32:
				out[i] = float64(n)
			default:
				return nil, false
			}
		}
		return out, true
	}
	return nil, false
}

func intValue(value any) int {
	switch v := value.(type) {
	case int32:
		return int(v)
	case int16:
		return int(v)
	case int8:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	}
	return 0
}
