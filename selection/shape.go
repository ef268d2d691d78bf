package selection

import "github.com/astei/worldcopy/world"

// Sphere selects the ellipsoid inscribed in a box. A block is inside when its center is.
type Sphere struct {
	Box BoundingBox
}

func NewSphere(center world.Pos, radius int) Sphere {
	r := world.Pos{radius, radius, radius}
	return Sphere{Box: NewBoundingBox(center.Sub(r), world.Pos{2*radius + 1, 2*radius + 1, 2*radius + 1})}
}

func (s Sphere) Bounds() BoundingBox { return s.Box }

func (s Sphere) Contains(x, y, z int) bool {
	if !s.Box.Contains(x, y, z) {
		return false
	}
	var d float64
	for i, v := range [3]int{x, y, z} {
		radius := float64(s.Box.Size[i]) / 2
		center := float64(s.Box.Origin[i]) + radius
		n := (float64(v) + 0.5 - center) / radius
		d += n * n
	}
	return d <= 1
}

func (s Sphere) SectionMask(cx, cy, cz int) *Mask {
	return containsMask(s, cx, cy, cz)
}

// Union selects every block selected by any of its members. Members may overlap or be disjoint.
type Union []Selection

func (u Union) Bounds() (b BoundingBox) {
	for _, s := range u {
		b = b.Union(s.Bounds())
	}
	return
}

func (u Union) Contains(x, y, z int) bool {
	for _, s := range u {
		if s.Contains(x, y, z) {
			return true
		}
	}
	return false
}

func (u Union) SectionMask(cx, cy, cz int) *Mask {
	var out *Mask
	for _, s := range u {
		m := s.SectionMask(cx, cy, cz)
		if m == nil {
			continue
		}
		if out == nil {
			out = new(Mask)
		}
		out.Or(m)
	}
	return out
}

// containsMask evaluates s.Contains for every block of a section inside the bounds of s.
func containsMask(s Selection, cx, cy, cz int) *Mask {
	section := SectionBox(cx, cy, cz)
	in := section.Intersect(s.Bounds())
	if in.Volume() == 0 {
		return nil
	}
	var m *Mask
	lo, hi := in.Min(), in.Max()
	for y := lo[1]; y < hi[1]; y++ {
		for z := lo[2]; z < hi[2]; z++ {
			for x := lo[0]; x < hi[0]; x++ {
				if !s.Contains(x, y, z) {
					continue
				}
				if m == nil {
					m = new(Mask)
				}
				m.Set(x-section.Origin[0], y-section.Origin[1], z-section.Origin[2], true)
			}
		}
	}
	return m
}
