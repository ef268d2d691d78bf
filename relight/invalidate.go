// Package relight hands light recomputation for changed blocks over to the game.
package relight

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/astei/worldcopy/world"
)

type sectionKey struct {
	chunk world.ChunkCoord
	y     int
}

// Invalidator does not propagate light itself. It drops the stored light of every section that
// holds a changed block and clears LightPopulated on that chunk and its loaded neighbours, which
// makes the game recompute light for them when they are next loaded.
type Invalidator struct {
	Log *logrus.Logger
}

func (inv Invalidator) UpdateLights(dim world.Dimension, x, y, z []int32) error {
	if len(x) != len(y) || len(x) != len(z) {
		return fmt.Errorf("relight: coordinate slices differ in length (%d, %d, %d)", len(x), len(y), len(z))
	}

	sections := make(map[sectionKey]struct{})
	chunks := make(map[world.ChunkCoord]struct{})
	for i := range x {
		pos := world.Pos{int(x[i]), int(y[i]), int(z[i])}
		key := sectionKey{chunk: pos.Chunk(), y: pos[1] >> 4}
		if _, ok := sections[key]; ok {
			continue
		}
		sections[key] = struct{}{}

		c, err := dim.Chunk(key.chunk, false)
		if errors.Is(err, world.ErrChunkNotFound) {
			continue
		} else if err != nil {
			return err
		}
		if s := c.Section(key.y, false); s != nil {
			s.BlockLight, s.SkyLight = nil, nil
		}
		chunks[key.chunk] = struct{}{}
	}

	for pos := range chunks {
		for dx := -1; dx <= 1; dx++ {
			for dz := -1; dz <= 1; dz++ {
				c, err := dim.Chunk(world.ChunkCoord{X: pos.X + dx, Z: pos.Z + dz}, false)
				if errors.Is(err, world.ErrChunkNotFound) {
					continue
				} else if err != nil {
					return err
				}
				c.LightPopulated = false
				c.Dirty = true
			}
		}
	}

	log := inv.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	log.Debugf("Invalidated light of %d sections in %d chunks", len(sections), len(chunks))
	return nil
}
