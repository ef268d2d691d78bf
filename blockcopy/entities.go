package blockcopy

import (
	"fmt"

	"github.com/astei/worldcopy/selection"
	"github.com/astei/worldcopy/world"
)

// entityMigrator copies the entities and tile entities of a source chunk that lie inside the
// selection. Tile entities always follow their blocks; entities only when enabled.
type entityMigrator struct {
	sel      selection.Selection
	offset   world.Pos
	dest     world.Dimension
	entities bool
	stats    *Stats
}

func (m *entityMigrator) migrate(c *world.Chunk) error {
	if m.entities {
		m.stats.EntitiesSeen += len(c.Entities)
		for _, e := range c.Entities {
			p := e.BlockPos()
			if !m.sel.Contains(p[0], p[1], p[2]) {
				continue
			}
			if err := m.dest.AddEntity(e.CopyWithOffset(m.offset)); err != nil {
				return fmt.Errorf("could not add entity %s: %w", e.ID, err)
			}
			m.stats.EntitiesCopied++
		}
	}

	m.stats.TileEntitiesSeen += len(c.TileEntities)
	for _, t := range c.TileEntities {
		if !m.sel.Contains(t.Pos[0], t.Pos[1], t.Pos[2]) {
			continue
		}
		if err := m.dest.AddTileEntity(t.CopyWithOffset(m.offset)); err != nil {
			return fmt.Errorf("could not add tile entity %s at %v: %w", t.ID, t.Pos, err)
		}
		m.stats.TileEntitiesCopied++
	}
	return nil
}
