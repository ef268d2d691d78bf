package blockcopy

import (
	"github.com/astei/worldcopy/selection"
	"github.com/astei/worldcopy/world"
)

// indexRange is a half-open range of local section coordinates.
type indexRange struct {
	lo, hi world.Pos
}

func (r indexRange) extent() world.Pos { return r.hi.Sub(r.lo) }

func localRange(b selection.BoundingBox, base world.Pos) indexRange {
	return indexRange{lo: b.Min().Sub(base), hi: b.Max().Sub(base)}
}

// destCell is the part of one translated source section that lands in one destination section.
type destCell struct {
	chunk world.ChunkCoord
	cy    int
	// intersect is in destination world coordinates.
	intersect selection.BoundingBox

	src, dst indexRange
}

type coordinateMapper struct {
	offset world.Pos
}

// cells splits the source section (pos, cy) moved by the copy offset into the destination
// sections it overlaps. Cells are ordered by destination chunk, X-major, then by section Y.
func (m coordinateMapper) cells(pos world.ChunkCoord, cy int) []destCell {
	sectionBox := selection.SectionBox(pos.X, cy, pos.Z)
	destBox := sectionBox.Offset(m.offset)
	back := world.Pos{}.Sub(m.offset)

	var cells []destCell
	for destPos := range destBox.ChunkPositions() {
		for destCY := range destBox.SectionPositions() {
			destSectionBox := selection.SectionBox(destPos.X, destCY, destPos.Z)
			intersect := destSectionBox.Intersect(destBox)
			if intersect.Volume() == 0 {
				continue
			}
			cells = append(cells, destCell{
				chunk:     destPos,
				cy:        destCY,
				intersect: intersect,
				src:       localRange(intersect.Offset(back), sectionBox.Origin),
				dst:       localRange(intersect, destSectionBox.Origin),
			})
		}
	}
	return cells
}
