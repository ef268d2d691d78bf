package selection

import "github.com/astei/worldcopy/world"

// Mask is one boolean per voxel of a section, in world.Index order.
type Mask [world.SectionVolume]bool

// FullMask returns a mask with every voxel set.
func FullMask() *Mask {
	m := new(Mask)
	for i := range m {
		m[i] = true
	}
	return m
}

func (m *Mask) Get(x, y, z int) bool { return m[world.Index(x, y, z)] }

func (m *Mask) Set(x, y, z int, v bool) { m[world.Index(x, y, z)] = v }

// And clears every voxel of m that is not set in o.
func (m *Mask) And(o *Mask) *Mask {
	for i := range m {
		m[i] = m[i] && o[i]
	}
	return m
}

// Or sets every voxel of m that is set in o.
func (m *Mask) Or(o *Mask) *Mask {
	for i := range m {
		m[i] = m[i] || o[i]
	}
	return m
}

func (m *Mask) Any() bool {
	for _, v := range m {
		if v {
			return true
		}
	}
	return false
}

func (m *Mask) Count() (n int) {
	for _, v := range m {
		if v {
			n++
		}
	}
	return
}

// Columns projects the mask along Y: a column is set if any voxel in it is. The result is
// indexed z<<4 | x like a chunk biome array.
func (m *Mask) Columns() (cols [world.BiomeArraySize]bool) {
	for i, v := range m {
		if v {
			cols[i&0xFF] = true
		}
	}
	return
}
