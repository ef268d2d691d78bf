package blockcopy

import (
	"fmt"
	"strings"

	"github.com/elliotchance/orderedmap/v2"

	"github.com/astei/worldcopy/blocktype"
	"github.com/astei/worldcopy/world"
)

// LightingMode selects when blocks whose light attributes changed are handed to a Relighter.
type LightingMode int

const (
	// LightingNone skips light change detection.
	LightingNone LightingMode = iota
	// LightingPerWrite relights after every write into a destination section.
	LightingPerWrite
	// LightingBatched collects all changes and relights once after the copy.
	LightingBatched
)

func (m LightingMode) String() string {
	switch m {
	case LightingNone:
		return "none"
	case LightingPerWrite:
		return "section"
	case LightingBatched:
		return "all"
	default:
		return fmt.Sprintf("LightingMode(%d)", int(m))
	}
}

func ParseLightingMode(s string) (LightingMode, error) {
	switch strings.ToLower(s) {
	case "", "none", "off", "false":
		return LightingNone, nil
	case "section", "per-write", "true":
		return LightingPerWrite, nil
	case "all", "batched":
		return LightingBatched, nil
	}
	return LightingNone, fmt.Errorf("unknown lighting mode %q", s)
}

// Relighter recomputes light around the given block coordinates of a dimension. The three
// slices have equal length.
type Relighter interface {
	UpdateLights(dim world.Dimension, x, y, z []int32) error
}

type RelighterFunc func(dim world.Dimension, x, y, z []int32) error

func (f RelighterFunc) UpdateLights(dim world.Dimension, x, y, z []int32) error {
	return f(dim, x, y, z)
}

type coords struct {
	x, y, z []int32
}

func (c *coords) add(p world.Pos) {
	c.x = append(c.x, int32(p[0]))
	c.y = append(c.y, int32(p[1]))
	c.z = append(c.z, int32(p[2]))
}

func (c *coords) len() int { return len(c.x) }

// lightingDetector finds written blocks whose brightness or opacity differs from the block they
// replaced and forwards them to the relighter according to the mode.
type lightingDetector struct {
	mode      LightingMode
	dest      world.Dimension
	types     *blocktype.Registry
	relighter Relighter

	// batched changes grouped per destination chunk in the order chunks were first written
	pending *orderedmap.OrderedMap[world.ChunkCoord, *coords]

	calls int
	cells int
}

func newLightingDetector(mode LightingMode, dest world.Dimension, relighter Relighter) *lightingDetector {
	return &lightingDetector{
		mode:      mode,
		dest:      dest,
		types:     dest.BlockTypes(),
		relighter: relighter,
		pending:   orderedmap.NewOrderedMap[world.ChunkCoord, *coords](),
	}
}

func (d *lightingDetector) enabled() bool { return d.mode != LightingNone }

func (d *lightingDetector) changed(prev, next uint16) bool {
	return d.types.Brightness(prev) != d.types.Brightness(next) || d.types.Opacity(prev) != d.types.Opacity(next)
}

// record handles the changes of a single write.
func (d *lightingDetector) record(chunk world.ChunkCoord, changed *coords) error {
	if changed.len() == 0 {
		return nil
	}
	switch d.mode {
	case LightingPerWrite:
		return d.update(changed)
	case LightingBatched:
		if acc, ok := d.pending.Get(chunk); ok {
			acc.x = append(acc.x, changed.x...)
			acc.y = append(acc.y, changed.y...)
			acc.z = append(acc.z, changed.z...)
			return nil
		}
		d.pending.Set(chunk, changed)
	}
	return nil
}

// finish issues the single relight call of batched mode.
func (d *lightingDetector) finish() error {
	if d.mode != LightingBatched || d.pending.Len() == 0 {
		return nil
	}
	var all coords
	for el := d.pending.Front(); el != nil; el = el.Next() {
		all.x = append(all.x, el.Value.x...)
		all.y = append(all.y, el.Value.y...)
		all.z = append(all.z, el.Value.z...)
	}
	return d.update(&all)
}

func (d *lightingDetector) update(c *coords) error {
	d.calls++
	d.cells += c.len()
	if err := d.relighter.UpdateLights(d.dest, c.x, c.y, c.z); err != nil {
		return fmt.Errorf("could not update lights: %w", err)
	}
	return nil
}
