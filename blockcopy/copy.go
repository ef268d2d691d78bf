// Package blockcopy copies blocks, biomes, entities and tile entities from a selection of one
// dimension into another dimension at an arbitrary offset.
//
// The copy visits each source chunk of the selection, splits every selected section into the
// destination sections it lands in, converts block types between the two registries, writes the
// selected blocks and reports which written blocks need their light recomputed. Progress is
// reported once per source chunk through an iterator, and a consumer may stop the copy at any
// checkpoint by leaving the range loop.
package blockcopy

import (
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"

	"github.com/astei/worldcopy/blocktype"
	"github.com/astei/worldcopy/selection"
	"github.com/astei/worldcopy/world"
)

var (
	ErrAlreadyStarted = errors.New("blockcopy: copy already started")
	ErrNoRelighter    = errors.New("blockcopy: lighting mode requires a relighter")
)

// State is the lifecycle of a Copier.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateCompleted
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateAborted:
		return "aborted"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

type Options struct {
	// BlocksToCopy restricts the copy to these source block ids. Nil copies every block.
	BlocksToCopy []uint16
	// Entities enables copying entities. Tile entities are always copied.
	Entities bool
	// Create allows creating destination chunks. Without it, blocks that would land in missing
	// chunks are skipped.
	Create bool
	Biomes bool

	Lighting  LightingMode
	Relighter Relighter

	Log     *logrus.Logger
	Metrics *Metrics
}

// Progress is emitted after every copied source chunk.
type Progress struct {
	Done  int
	Total int
}

type Stats struct {
	Chunks        int
	BlocksWritten int

	EntitiesSeen       int
	EntitiesCopied     int
	TileEntitiesSeen   int
	TileEntitiesCopied int

	RelightCalls int
	RelightCells int

	Duration time.Duration
}

// Copier is a single copy operation. It can be iterated once.
type Copier struct {
	dest, src world.Dimension
	sel       selection.Selection
	offset    world.Pos
	opts      Options
	log       *logrus.Logger

	convert  blocktype.Converter
	typeMask typeMaskFunc
	mapper   coordinateMapper
	lighting *lightingDetector
	entities *entityMigrator

	state State
	stats Stats
}

// NewCopier prepares a copy of sel from src into dest such that the origin of the selection's
// bounds lands on destOrigin.
func NewCopier(dest, src world.Dimension, sel selection.Selection, destOrigin world.Pos, opts Options) (*Copier, error) {
	if opts.Lighting != LightingNone && opts.Relighter == nil {
		return nil, ErrNoRelighter
	}
	log := opts.Log
	if log == nil {
		log = logrus.StandardLogger()
	}

	offset := destOrigin.Sub(sel.Bounds().Origin)
	c := &Copier{
		dest:     dest,
		src:      src,
		sel:      sel,
		offset:   offset,
		opts:     opts,
		log:      log,
		convert:  blocktype.NewConverter(dest.BlockTypes(), src.BlockTypes()),
		typeMask: sourceMaskFunc(opts.BlocksToCopy, src.BlockTypes().IDLimit()),
		mapper:   coordinateMapper{offset: offset},
		lighting: newLightingDetector(opts.Lighting, dest, opts.Relighter),
	}
	c.entities = &entityMigrator{
		sel:      sel,
		offset:   offset,
		dest:     dest,
		entities: opts.Entities,
		stats:    &c.stats,
	}
	return c, nil
}

func (c *Copier) State() State { return c.state }

// Stats returns the counters collected so far.
func (c *Copier) Stats() Stats { return c.stats }

// Iter runs the copy while it is ranged over. Each step yields the progress after one source
// chunk has been copied completely. Leaving the loop early stops the copy after that chunk;
// blocks already written stay written and a batched relight is not issued. An error from a
// dimension or the relighter is yielded once and ends the copy.
func (c *Copier) Iter() iter.Seq2[Progress, error] {
	return func(yield func(Progress, error) bool) {
		if c.state != StateIdle {
			yield(Progress{}, ErrAlreadyStarted)
			return
		}
		c.state = StateRunning
		start := time.Now()

		bounds := c.sel.Bounds()
		size := bounds.Size
		c.log.Infof("Copying %s blocks from %v to %v", humanize.Comma(int64(size[0]*size[1]*size[2])), bounds, bounds.Origin.Add(c.offset))

		total := 0
		for pos := range bounds.ChunkPositions() {
			if c.src.ContainsChunk(pos) {
				total++
			}
		}

		done := 0
		for pos := range bounds.ChunkPositions() {
			if !c.src.ContainsChunk(pos) {
				continue
			}
			before := c.stats
			if err := c.copyChunk(pos); err != nil {
				c.opts.Metrics.observePartial(before, c.stats)
				c.finish(StateAborted, start)
				yield(Progress{Done: done, Total: total}, err)
				return
			}
			done++
			c.stats.Chunks = done
			c.opts.Metrics.observeChunk(before, c.stats)
			if done%20 == 0 {
				c.log.Infof("Copying: Chunk %d/%d...", done, total)
			}
			if !yield(Progress{Done: done, Total: total}, nil) {
				c.finish(StateAborted, start)
				return
			}
		}

		if c.opts.Lighting == LightingBatched {
			before := c.stats
			lightStart := time.Now()
			c.log.Infof("Updating all at once for %d chunks (%s cells)", c.lighting.pending.Len(), humanize.Comma(int64(c.pendingCells())))
			err := c.lighting.finish()
			c.syncLighting()
			c.opts.Metrics.observeRelight(before, c.stats)
			if err != nil {
				c.finish(StateAborted, start)
				yield(Progress{Done: done, Total: total}, err)
				return
			}
			c.log.Infof("Lighting complete in %0.3fs.", time.Since(lightStart).Seconds())
		}
		c.finish(StateCompleted, start)
	}
}

func (c *Copier) finish(state State, start time.Time) {
	c.state = state
	c.stats.Duration = time.Since(start)
	c.opts.Metrics.observeDuration(c.stats.Duration)

	seconds := c.stats.Duration.Seconds()
	chunks := max(c.stats.Chunks, 1)
	c.log.WithField("state", state).Infof("Duration: %0.3fs, %d chunks, %0.2fms per chunk (%0.2f chunks per second)",
		seconds, c.stats.Chunks, 1000*seconds/float64(chunks), float64(c.stats.Chunks)/max(seconds, 1e-9))
	c.log.Infof("Copied %d/%d entities and %d/%d tile entities",
		c.stats.EntitiesCopied, c.stats.EntitiesSeen, c.stats.TileEntitiesCopied, c.stats.TileEntitiesSeen)
}

func (c *Copier) syncLighting() {
	c.stats.RelightCalls = c.lighting.calls
	c.stats.RelightCells = c.lighting.cells
}

func (c *Copier) pendingCells() (n int) {
	for el := c.lighting.pending.Front(); el != nil; el = el.Next() {
		n += el.Value.len()
	}
	return
}

func (c *Copier) copyChunk(pos world.ChunkCoord) error {
	defer c.syncLighting()

	srcChunk, err := c.src.Chunk(pos, false)
	if err != nil {
		return fmt.Errorf("could not read source chunk %d,%d: %w", pos.X, pos.Z, err)
	}

	var columns *[world.BiomeArraySize]bool
	if c.opts.Biomes && len(srcChunk.Biomes) == world.BiomeArraySize {
		columns = new([world.BiomeArraySize]bool)
	}

	for _, cy := range srcChunk.SectionPositions() {
		section := srcChunk.Section(cy, false)
		if section == nil {
			continue
		}
		selectionMask := c.sel.SectionMask(pos.X, cy, pos.Z)
		if selectionMask == nil {
			continue
		}
		mask := sourceMask(selectionMask, c.typeMask(section))
		if !mask.Any() {
			continue
		}
		if columns != nil {
			for i, set := range mask.Columns() {
				columns[i] = columns[i] || set
			}
		}
		if err := c.copySection(pos, section, mask); err != nil {
			return err
		}
	}

	if columns != nil {
		if err := c.copyBiomes(srcChunk, columns); err != nil {
			return err
		}
	}
	return c.entities.migrate(srcChunk)
}

func (c *Copier) copySection(pos world.ChunkCoord, section *world.Section, mask *selection.Mask) error {
	var (
		destChunk *world.Chunk
		destPos   world.ChunkCoord
		skip      bool
	)
	for _, cell := range c.mapper.cells(pos, section.Y) {
		if !masked(mask, cell.src) {
			continue
		}
		if destChunk == nil || cell.chunk != destPos {
			destPos, destChunk, skip = cell.chunk, nil, false
			if !c.opts.Create && !c.dest.ContainsChunk(destPos) {
				skip = true
			} else {
				var err error
				if destChunk, err = c.dest.Chunk(destPos, c.opts.Create); err != nil {
					return fmt.Errorf("could not get destination chunk %d,%d: %w", destPos.X, destPos.Z, err)
				}
			}
		}
		if skip {
			continue
		}
		if err := c.copyCell(destChunk, section, mask, cell); err != nil {
			return err
		}
	}
	return nil
}

// masked reports whether any voxel of r is set in mask. Cells without one are not written, so
// they never create destination chunks or sections.
func masked(mask *selection.Mask, r indexRange) bool {
	for y := r.lo[1]; y < r.hi[1]; y++ {
		for z := r.lo[2]; z < r.hi[2]; z++ {
			for x := r.lo[0]; x < r.hi[0]; x++ {
				if mask[world.Index(x, y, z)] {
					return true
				}
			}
		}
	}
	return false
}

// copyCell writes the masked blocks of one cell into the destination section in place.
// Unmasked destination blocks keep their contents.
func (c *Copier) copyCell(destChunk *world.Chunk, src *world.Section, mask *selection.Mask, cell destCell) error {
	dst := destChunk.Section(cell.cy, true)
	ext := cell.src.extent()
	n := ext[0] * ext[1] * ext[2]

	blocks := make([]uint16, 0, n)
	data := make([]uint8, 0, n)
	for y := 0; y < ext[1]; y++ {
		for z := 0; z < ext[2]; z++ {
			for x := 0; x < ext[0]; x++ {
				i := world.Index(cell.src.lo[0]+x, cell.src.lo[1]+y, cell.src.lo[2]+z)
				blocks = append(blocks, src.Blocks[i])
				data = append(data, src.Data[i])
			}
		}
	}
	// Conversion covers the whole cell; only masked blocks are compared and written below.
	blocks, data = c.convert(blocks, data)

	var changed coords
	k, written := 0, 0
	for y := 0; y < ext[1]; y++ {
		for z := 0; z < ext[2]; z++ {
			for x := 0; x < ext[0]; x++ {
				si := world.Index(cell.src.lo[0]+x, cell.src.lo[1]+y, cell.src.lo[2]+z)
				if mask[si] {
					di := world.Index(cell.dst.lo[0]+x, cell.dst.lo[1]+y, cell.dst.lo[2]+z)
					if c.lighting.enabled() && c.lighting.changed(dst.Blocks[di], blocks[k]) {
						changed.add(cell.intersect.Origin.Add(world.Pos{x, y, z}))
					}
					dst.Blocks[di] = blocks[k]
					dst.Data[di] = data[k]
					written++
				}
				k++
			}
		}
	}
	destChunk.Dirty = true
	c.stats.BlocksWritten += written

	return c.lighting.record(cell.chunk, &changed)
}

// copyBiomes copies the biome of every source column touched by the chunk's masks to the
// translated destination column.
func (c *Copier) copyBiomes(srcChunk *world.Chunk, columns *[world.BiomeArraySize]bool) error {
	var cols []world.BiomeColumn
	for i, set := range columns {
		if !set {
			continue
		}
		x, z := i&15, i>>4
		cols = append(cols, world.BiomeColumn{
			X:     srcChunk.X<<4 + x + c.offset[0],
			Z:     srcChunk.Z<<4 + z + c.offset[2],
			Biome: srcChunk.Biomes[i],
		})
	}
	if len(cols) == 0 {
		return nil
	}
	if err := c.dest.SetBiomes(cols); err != nil {
		return fmt.Errorf("could not set biomes: %w", err)
	}
	return nil
}

// CopyBlocks runs a copy to completion.
func CopyBlocks(dest, src world.Dimension, sel selection.Selection, destOrigin world.Pos, opts Options) (Stats, error) {
	c, err := NewCopier(dest, src, sel, destOrigin, opts)
	if err != nil {
		return Stats{}, err
	}
	for _, err := range c.Iter() {
		if err != nil {
			return c.Stats(), err
		}
	}
	return c.Stats(), nil
}
