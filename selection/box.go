package selection

import (
	"fmt"
	"iter"

	"github.com/astei/worldcopy/world"
)

// Selection is a region of a dimension.
type Selection interface {
	// Bounds returns the smallest box enclosing the selection.
	Bounds() BoundingBox
	// SectionMask returns the selected voxels of section (cx, cy, cz), or nil if none are.
	SectionMask(cx, cy, cz int) *Mask
	// Contains reports whether the block at x, y, z is selected.
	Contains(x, y, z int) bool
}

// BoundingBox is an axis-aligned box of blocks. Max is exclusive.
type BoundingBox struct {
	Origin world.Pos
	Size   world.Pos
}

func NewBoundingBox(origin, size world.Pos) BoundingBox {
	for i := range size {
		size[i] = max(size[i], 0)
	}
	return BoundingBox{Origin: origin, Size: size}
}

// SectionBox returns the box covering exactly section (cx, cy, cz).
func SectionBox(cx, cy, cz int) BoundingBox {
	return BoundingBox{
		Origin: world.Pos{cx << 4, cy << 4, cz << 4},
		Size:   world.Pos{world.SectionSize, world.SectionSize, world.SectionSize},
	}
}

func (b BoundingBox) Min() world.Pos { return b.Origin }

func (b BoundingBox) Max() world.Pos { return b.Origin.Add(b.Size) }

func (b BoundingBox) Volume() int { return b.Size[0] * b.Size[1] * b.Size[2] }

func (b BoundingBox) Offset(p world.Pos) BoundingBox {
	return BoundingBox{Origin: b.Origin.Add(p), Size: b.Size}
}

// Intersect returns the overlap of b and o. Boxes that do not overlap produce a zero volume.
func (b BoundingBox) Intersect(o BoundingBox) BoundingBox {
	bMax, oMax := b.Max(), o.Max()
	var origin, size world.Pos
	for i := range origin {
		origin[i] = max(b.Origin[i], o.Origin[i])
		size[i] = max(min(bMax[i], oMax[i])-origin[i], 0)
	}
	return BoundingBox{Origin: origin, Size: size}
}

// Union returns the smallest box enclosing both b and o. Empty boxes are ignored.
func (b BoundingBox) Union(o BoundingBox) BoundingBox {
	if b.Volume() == 0 {
		return o
	}
	if o.Volume() == 0 {
		return b
	}
	bMax, oMax := b.Max(), o.Max()
	var origin, size world.Pos
	for i := range origin {
		origin[i] = min(b.Origin[i], o.Origin[i])
		size[i] = max(bMax[i], oMax[i]) - origin[i]
	}
	return BoundingBox{Origin: origin, Size: size}
}

func (b BoundingBox) Contains(x, y, z int) bool {
	m := b.Max()
	return x >= b.Origin[0] && x < m[0] &&
		y >= b.Origin[1] && y < m[1] &&
		z >= b.Origin[2] && z < m[2]
}

func (b BoundingBox) Bounds() BoundingBox { return b }

// ChunkPositions yields every chunk the box overlaps, X-major then Z.
func (b BoundingBox) ChunkPositions() iter.Seq[world.ChunkCoord] {
	return func(yield func(world.ChunkCoord) bool) {
		if b.Volume() == 0 {
			return
		}
		m := b.Max()
		for cx := b.Origin[0] >> 4; cx <= (m[0]-1)>>4; cx++ {
			for cz := b.Origin[2] >> 4; cz <= (m[2]-1)>>4; cz++ {
				if !yield(world.ChunkCoord{X: cx, Z: cz}) {
					return
				}
			}
		}
	}
}

func (b BoundingBox) ChunkCount() int {
	if b.Volume() == 0 {
		return 0
	}
	m := b.Max()
	return (((m[0] - 1) >> 4) - (b.Origin[0] >> 4) + 1) * (((m[2] - 1) >> 4) - (b.Origin[2] >> 4) + 1)
}

// SectionPositions yields the section Ys the box overlaps in ascending order.
func (b BoundingBox) SectionPositions() iter.Seq[int] {
	return func(yield func(int) bool) {
		if b.Volume() == 0 {
			return
		}
		for cy := b.Origin[1] >> 4; cy <= (b.Max()[1]-1)>>4; cy++ {
			if !yield(cy) {
				return
			}
		}
	}
}

func (b BoundingBox) SectionMask(cx, cy, cz int) *Mask {
	section := SectionBox(cx, cy, cz)
	in := section.Intersect(b)
	if in.Volume() == 0 {
		return nil
	}
	m := new(Mask)
	lo := in.Origin.Sub(section.Origin)
	hi := in.Max().Sub(section.Origin)
	for y := lo[1]; y < hi[1]; y++ {
		for z := lo[2]; z < hi[2]; z++ {
			for x := lo[0]; x < hi[0]; x++ {
				m.Set(x, y, z, true)
			}
		}
	}
	return m
}

func (b BoundingBox) String() string {
	return fmt.Sprintf("BoundingBox(origin=%v, size=%v)", b.Origin, b.Size)
}
