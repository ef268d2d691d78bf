package world

import (
	"maps"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
)

// Entity is a free-moving object of a chunk. Fields that are not modelled explicitly are kept
// in Data so they survive a round trip through storage.
type Entity struct {
	ID       string
	UUID     uuid.UUID
	Pos      mgl64.Vec3
	Rotation [2]float32
	Data     map[string]any
}

func (e Entity) Position() mgl64.Vec3 { return e.Pos }

// BlockPos returns the position of the block the entity is in.
func (e Entity) BlockPos() Pos {
	return Pos{int(math.Floor(e.Pos[0])), int(math.Floor(e.Pos[1])), int(math.Floor(e.Pos[2]))}
}

// CopyWithOffset returns a copy of the entity moved by offset. The copy gets a new UUID so that
// it can live next to the original. Hanging entities also carry the block they are attached to,
// which is moved as well.
func (e Entity) CopyWithOffset(offset Pos) Entity {
	c := e
	c.UUID = uuid.New()
	c.Pos = e.Pos.Add(mgl64.Vec3{float64(offset[0]), float64(offset[1]), float64(offset[2])})
	c.Data = maps.Clone(e.Data)
	for axis, key := range [3]string{"TileX", "TileY", "TileZ"} {
		if v, ok := c.Data[key].(int32); ok {
			c.Data[key] = v + int32(offset[axis])
		}
	}
	return c
}

// TileEntity is per-block metadata such as container contents or sign text.
type TileEntity struct {
	ID   string
	Pos  Pos
	Data map[string]any
}

func (t TileEntity) Position() Pos { return t.Pos }

func (t TileEntity) CopyWithOffset(offset Pos) TileEntity {
	c := t
	c.Pos = t.Pos.Add(offset)
	c.Data = maps.Clone(t.Data)
	return c
}
