package blockcopy

import (
	"github.com/astei/worldcopy/selection"
	"github.com/astei/worldcopy/world"
)

// typeMaskFunc returns the voxels of a section whose type may be copied. A nil mask matches
// every voxel.
type typeMaskFunc func(s *world.Section) *selection.Mask

func sourceMaskFunc(blocksToCopy []uint16, idLimit int) typeMaskFunc {
	if blocksToCopy == nil {
		return func(*world.Section) *selection.Mask { return nil }
	}

	allowed := make([]bool, idLimit)
	for _, id := range blocksToCopy {
		// ids the registry cannot hold never match
		if int(id) < idLimit {
			allowed[id] = true
		}
	}
	return func(s *world.Section) *selection.Mask {
		m := new(selection.Mask)
		for i, id := range s.Blocks {
			m[i] = int(id) < idLimit && allowed[id]
		}
		return m
	}
}

// sourceMask combines the selection mask of a section with its type mask.
func sourceMask(selectionMask, typeMask *selection.Mask) *selection.Mask {
	m := *selectionMask
	if typeMask != nil {
		m.And(typeMask)
	}
	return &m
}
