package blockcopy

import (
	"errors"
	"io"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astei/worldcopy/blocktype"
	"github.com/astei/worldcopy/selection"
	"github.com/astei/worldcopy/world"
)

func quietLog() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func setBlock(t *testing.T, dim *world.MemoryDimension, p world.Pos, id uint16, data uint8) {
	t.Helper()
	c, err := dim.Chunk(p.Chunk(), true)
	require.NoError(t, err)
	c.Section(p[1]>>4, true).SetBlock(p[0]&15, p[1]&15, p[2]&15, id, data)
}

func blockAt(dim *world.MemoryDimension, p world.Pos) (uint16, uint8) {
	c, err := dim.Chunk(p.Chunk(), false)
	if err != nil {
		return 0, 0
	}
	s := c.Section(p[1]>>4, false)
	if s == nil {
		return 0, 0
	}
	return s.Block(p[0]&15, p[1]&15, p[2]&15)
}

func fill(t *testing.T, dim *world.MemoryDimension, b selection.BoundingBox, fn func(p world.Pos) (uint16, uint8)) {
	t.Helper()
	lo, hi := b.Min(), b.Max()
	for x := lo[0]; x < hi[0]; x++ {
		for y := lo[1]; y < hi[1]; y++ {
			for z := lo[2]; z < hi[2]; z++ {
				p := world.Pos{x, y, z}
				id, data := fn(p)
				setBlock(t, dim, p, id, data)
			}
		}
	}
}

func pattern(p world.Pos) (uint16, uint8) {
	return uint16((p[0]*7+p[1]*13+p[2]*3)&0xFF) + 1, uint8(p[0]+p[1]+p[2]) & 0xF
}

func constant(id uint16) func(world.Pos) (uint16, uint8) {
	return func(world.Pos) (uint16, uint8) { return id, 0 }
}

type dimState struct {
	sections map[world.ChunkCoord]map[int]world.Section
	biomes   map[world.ChunkCoord][]byte
}

func snapshot(dim *world.MemoryDimension) dimState {
	s := dimState{
		sections: make(map[world.ChunkCoord]map[int]world.Section),
		biomes:   make(map[world.ChunkCoord][]byte),
	}
	for _, pos := range dim.ChunkCoords() {
		c, _ := dim.Chunk(pos, false)
		s.sections[pos] = make(map[int]world.Section)
		for _, y := range c.SectionPositions() {
			s.sections[pos][y] = *c.Section(y, false)
		}
		s.biomes[pos] = append([]byte(nil), c.Biomes...)
	}
	return s
}

func TestAlignedSectionCopyIsBitIdentical(t *testing.T) {
	src := world.NewMemoryDimension(blocktype.Legacy())
	dest := world.NewMemoryDimension(blocktype.Legacy())
	box := selection.SectionBox(0, 0, 0)
	fill(t, src, box, pattern)

	stats, err := CopyBlocks(dest, src, box, box.Origin, Options{Create: true, Log: quietLog()})
	require.NoError(t, err)

	srcChunk, _ := src.Chunk(world.ChunkCoord{}, false)
	destChunk, err := dest.Chunk(world.ChunkCoord{}, false)
	require.NoError(t, err)
	assert.True(t, destChunk.Dirty)
	assert.Equal(t, srcChunk.Section(0, false).Blocks, destChunk.Section(0, false).Blocks)
	assert.Equal(t, srcChunk.Section(0, false).Data, destChunk.Section(0, false).Data)
	assert.Equal(t, world.SectionVolume, stats.BlocksWritten)
	assert.Equal(t, 1, stats.Chunks)
}

func TestStraddlingSubSectionCopy(t *testing.T) {
	src := world.NewMemoryDimension(blocktype.Legacy())
	dest := world.NewMemoryDimension(blocktype.Legacy())
	box := selection.NewBoundingBox(world.Pos{2, 2, 2}, world.Pos{4, 4, 4})
	fill(t, src, selection.SectionBox(0, 0, 0), pattern)
	fill(t, dest, selection.NewBoundingBox(world.Pos{0, 0, 0}, world.Pos{32, 16, 16}), constant(1))

	stats, err := CopyBlocks(dest, src, box, world.Pos{14, 2, 2}, Options{Log: quietLog()})
	require.NoError(t, err)
	assert.Equal(t, 64, stats.BlocksWritten)

	written := map[world.ChunkCoord]int{}
	for x := 0; x < 32; x++ {
		for y := 0; y < 16; y++ {
			for z := 0; z < 16; z++ {
				p := world.Pos{x, y, z}
				id, data := blockAt(dest, p)
				sp := p.Sub(world.Pos{12, 0, 0})
				if box.Contains(sp[0], sp[1], sp[2]) {
					wantID, wantData := pattern(sp)
					assert.Equal(t, wantID, id, "%v", p)
					assert.Equal(t, wantData, data, "%v", p)
					written[p.Chunk()]++
					continue
				}
				assert.Equal(t, uint16(1), id, "%v must be untouched", p)
			}
		}
	}
	assert.Equal(t, map[world.ChunkCoord]int{{X: 0, Z: 0}: 32, {X: 1, Z: 0}: 32}, written)
}

func TestCopyOnlyInsideSelectionShape(t *testing.T) {
	src := world.NewMemoryDimension(blocktype.Legacy())
	dest := world.NewMemoryDimension(blocktype.Legacy())
	sphere := selection.NewSphere(world.Pos{10, 10, 10}, 6)
	fill(t, src, selection.NewBoundingBox(world.Pos{0, 0, 0}, world.Pos{32, 32, 32}), pattern)

	destOrigin := world.Pos{40, 3, -9}
	offset := destOrigin.Sub(sphere.Bounds().Origin)
	around := selection.NewBoundingBox(sphere.Bounds().Origin.Add(offset).Sub(world.Pos{1, 1, 1}), sphere.Bounds().Size.Add(world.Pos{2, 2, 2}))
	fill(t, dest, around, constant(7))

	_, err := CopyBlocks(dest, src, sphere, destOrigin, Options{Create: true, Log: quietLog()})
	require.NoError(t, err)

	lo, hi := around.Min(), around.Max()
	for x := lo[0]; x < hi[0]; x++ {
		for y := lo[1]; y < hi[1]; y++ {
			for z := lo[2]; z < hi[2]; z++ {
				p := world.Pos{x, y, z}
				sp := p.Sub(offset)
				id, data := blockAt(dest, p)
				if sphere.Contains(sp[0], sp[1], sp[2]) {
					wantID, wantData := pattern(sp)
					assert.Equal(t, wantID, id, "%v", p)
					assert.Equal(t, wantData, data, "%v", p)
				} else {
					assert.Equal(t, uint16(7), id, "%v", p)
					assert.Equal(t, uint8(0), data, "%v", p)
				}
			}
		}
	}
}

func TestAllowListRestrictsChanges(t *testing.T) {
	src := world.NewMemoryDimension(blocktype.Legacy())
	dest := world.NewMemoryDimension(blocktype.Legacy())
	box := selection.SectionBox(0, 0, 0)
	fill(t, src, box, func(p world.Pos) (uint16, uint8) { return uint16(4 + p[0]%3), 0 })
	offset := world.Pos{3, 0, 0}
	fill(t, dest, box.Offset(offset), constant(1))

	stats, err := CopyBlocks(dest, src, box, offset, Options{BlocksToCopy: []uint16{5, 9999}, Log: quietLog()})
	require.NoError(t, err)
	assert.Equal(t, 16*16*5, stats.BlocksWritten)

	for x := 0; x < 16; x++ {
		for y := 0; y < 16; y++ {
			for z := 0; z < 16; z++ {
				id, _ := blockAt(dest, world.Pos{x + 3, y, z})
				if x%3 == 1 {
					assert.Equal(t, uint16(5), id)
				} else {
					assert.Equal(t, uint16(1), id)
				}
			}
		}
	}
}

func TestCopyIsIdempotent(t *testing.T) {
	src := world.NewMemoryDimension(blocktype.Legacy())
	dest := world.NewMemoryDimension(blocktype.Legacy())
	fill(t, src, selection.NewBoundingBox(world.Pos{0, 0, 0}, world.Pos{32, 20, 16}), pattern)
	for _, pos := range []world.ChunkCoord{{X: 0, Z: 0}, {X: 1, Z: 0}} {
		c, _ := src.Chunk(pos, false)
		c.Biomes = make([]byte, world.BiomeArraySize)
		for i := range c.Biomes {
			c.Biomes[i] = byte(i%7 + 1)
		}
		c.TileEntities = append(c.TileEntities, world.TileEntity{ID: "Chest", Pos: world.Pos{pos.X<<4 + 4, 6, 4}})
	}
	sel := selection.NewSphere(world.Pos{15, 9, 8}, 8)
	opts := Options{Create: true, Biomes: true, Entities: true, Log: quietLog()}

	first, err := CopyBlocks(dest, src, sel, world.Pos{5, 30, -3}, opts)
	require.NoError(t, err)
	once := snapshot(dest)

	second, err := CopyBlocks(dest, src, sel, world.Pos{5, 30, -3}, opts)
	require.NoError(t, err)

	assert.Equal(t, once, snapshot(dest))
	first.Duration, second.Duration = 0, 0
	assert.Equal(t, first, second)
}

func TestBiomesCopiedToTranslatedColumns(t *testing.T) {
	src := world.NewMemoryDimension(blocktype.Legacy())
	fill(t, src, selection.SectionBox(0, 0, 0), constant(1))
	c, _ := src.Chunk(world.ChunkCoord{}, false)
	c.Biomes = make([]byte, world.BiomeArraySize)
	for i := range c.Biomes {
		c.Biomes[i] = byte(i%200 + 1)
	}

	box := selection.NewBoundingBox(world.Pos{2, 0, 3}, world.Pos{5, 1, 4})
	destOrigin := world.Pos{20, 0, -7}
	offset := destOrigin.Sub(box.Origin)

	t.Run("enabled", func(t *testing.T) {
		dest := world.NewMemoryDimension(blocktype.Legacy())
		_, err := CopyBlocks(dest, src, box, destOrigin, Options{Create: true, Biomes: true, Log: quietLog()})
		require.NoError(t, err)

		for x := 0; x < 16; x++ {
			for z := 0; z < 16; z++ {
				dx, dz := x+offset[0], z+offset[2]
				destChunk, err := dest.Chunk(world.ChunkCoord{X: dx >> 4, Z: dz >> 4}, false)
				if err != nil {
					continue
				}
				got, ok := destChunk.Biome(dx&15, dz&15)
				require.True(t, ok)
				if box.Contains(x, 0, z) {
					assert.Equal(t, c.Biomes[z<<4|x], got, "column %d,%d", x, z)
				} else {
					assert.Equal(t, byte(0), got, "column %d,%d", x, z)
				}
			}
		}
	})

	t.Run("disabled", func(t *testing.T) {
		dest := world.NewMemoryDimension(blocktype.Legacy())
		_, err := CopyBlocks(dest, src, box, destOrigin, Options{Create: true, Log: quietLog()})
		require.NoError(t, err)
		for _, pos := range dest.ChunkCoords() {
			destChunk, _ := dest.Chunk(pos, false)
			assert.Nil(t, destChunk.Biomes)
		}
	})
}

type recordingRelighter struct {
	calls int
	cells map[world.Pos]int
}

func (r *recordingRelighter) UpdateLights(_ world.Dimension, x, y, z []int32) error {
	if r.cells == nil {
		r.cells = make(map[world.Pos]int)
	}
	r.calls++
	for i := range x {
		r.cells[world.Pos{int(x[i]), int(y[i]), int(z[i])}]++
	}
	return nil
}

func TestLightingModesProduceSameCells(t *testing.T) {
	src := world.NewMemoryDimension(blocktype.Legacy())
	box := selection.NewBoundingBox(world.Pos{0, 0, 0}, world.Pos{20, 3, 4})
	fill(t, src, box, func(p world.Pos) (uint16, uint8) {
		switch p[0] % 4 {
		case 0:
			return 50, 0 // torch
		case 1:
			return 1, 0 // stone
		}
		return 0, 0
	})
	destOrigin := world.Pos{5, 14, 0}
	offset := destOrigin.Sub(box.Origin)

	run := func(mode LightingMode) (*recordingRelighter, Stats) {
		dest := world.NewMemoryDimension(blocktype.Legacy())
		fill(t, dest, box.Offset(offset), constant(1))
		r := &recordingRelighter{}
		stats, err := CopyBlocks(dest, src, box, destOrigin, Options{Lighting: mode, Relighter: r, Log: quietLog()})
		require.NoError(t, err)
		return r, stats
	}

	perWrite, perWriteStats := run(LightingPerWrite)
	batched, batchedStats := run(LightingBatched)

	want := map[world.Pos]int{}
	for x := 0; x < 20; x++ {
		if x%4 == 1 {
			continue
		}
		for y := 0; y < 3; y++ {
			for z := 0; z < 4; z++ {
				want[world.Pos{x, y, z}.Add(offset)] = 1
			}
		}
	}
	assert.Equal(t, want, perWrite.cells)
	assert.Equal(t, want, batched.cells)
	assert.Equal(t, 1, batched.calls)
	assert.Greater(t, perWrite.calls, 1)
	assert.Equal(t, len(want), batchedStats.RelightCells)
	assert.Equal(t, perWrite.calls, perWriteStats.RelightCalls)

	none, _ := run(LightingNone)
	assert.Zero(t, none.calls)
}

func TestEntityOutsideShapeNotMigrated(t *testing.T) {
	src := world.NewMemoryDimension(blocktype.Legacy())
	fill(t, src, selection.SectionBox(0, 0, 0), constant(1))
	c, _ := src.Chunk(world.ChunkCoord{}, false)
	c.Entities = []world.Entity{
		{ID: "Pig", Pos: mgl64.Vec3{8.5, 8.5, 8.5}},
		{ID: "Cow", Pos: mgl64.Vec3{3.2, 3.2, 3.2}},
		{ID: "Sheep", Pos: mgl64.Vec3{15.5, 15.5, 15.5}},
	}
	c.TileEntities = []world.TileEntity{
		{ID: "Chest", Pos: world.Pos{8, 9, 8}},
		{ID: "Furnace", Pos: world.Pos{3, 3, 3}},
	}

	sphere := selection.NewSphere(world.Pos{8, 8, 8}, 5)
	require.True(t, sphere.Bounds().Contains(3, 3, 3))
	destOrigin := world.Pos{100, 8, 100}
	offset := destOrigin.Sub(sphere.Bounds().Origin)

	t.Run("entities enabled", func(t *testing.T) {
		dest := world.NewMemoryDimension(blocktype.Legacy())
		stats, err := CopyBlocks(dest, src, sphere, destOrigin, Options{Create: true, Entities: true, Log: quietLog()})
		require.NoError(t, err)

		assert.Equal(t, 3, stats.EntitiesSeen)
		assert.Equal(t, 1, stats.EntitiesCopied)
		assert.Equal(t, 2, stats.TileEntitiesSeen)
		assert.Equal(t, 1, stats.TileEntitiesCopied)

		destChunk, err := dest.Chunk(world.Pos{105, 13, 105}.Chunk(), false)
		require.NoError(t, err)
		require.Len(t, destChunk.Entities, 1)
		assert.Equal(t, "Pig", destChunk.Entities[0].ID)
		assert.Equal(t, mgl64.Vec3{8.5, 8.5, 8.5}.Add(mgl64.Vec3{float64(offset[0]), float64(offset[1]), float64(offset[2])}), destChunk.Entities[0].Pos)
		require.Len(t, destChunk.TileEntities, 1)
		assert.Equal(t, world.Pos{8, 9, 8}.Add(offset), destChunk.TileEntities[0].Pos)
	})

	t.Run("entities disabled", func(t *testing.T) {
		dest := world.NewMemoryDimension(blocktype.Legacy())
		stats, err := CopyBlocks(dest, src, sphere, destOrigin, Options{Create: true, Log: quietLog()})
		require.NoError(t, err)
		assert.Zero(t, stats.EntitiesSeen)
		assert.Zero(t, stats.EntitiesCopied)
		assert.Equal(t, 1, stats.TileEntitiesCopied)
	})
}

func TestMissingDestinationChunksSkippedWithoutCreate(t *testing.T) {
	src := world.NewMemoryDimension(blocktype.Legacy())
	dest := world.NewMemoryDimension(blocktype.Legacy())
	box := selection.SectionBox(0, 0, 0)
	fill(t, src, box, constant(1))
	_, err := dest.Chunk(world.ChunkCoord{X: 0, Z: 0}, true)
	require.NoError(t, err)

	stats, err := CopyBlocks(dest, src, box, world.Pos{8, 0, 0}, Options{Log: quietLog()})
	require.NoError(t, err)

	assert.False(t, dest.ContainsChunk(world.ChunkCoord{X: 1, Z: 0}))
	assert.Equal(t, 8*16*16, stats.BlocksWritten)
	id, _ := blockAt(dest, world.Pos{8, 0, 0})
	assert.Equal(t, uint16(1), id)
	id, _ = blockAt(dest, world.Pos{7, 0, 0})
	assert.Equal(t, uint16(0), id)
}

func TestConvertsBetweenRegistries(t *testing.T) {
	custom, err := blocktype.NewRegistry("custom", 256, []blocktype.Type{
		{ID: 0, Name: "minecraft:air"},
		{ID: 200, Name: "minecraft:stone", Opacity: 15},
		{ID: 201, Name: "minecraft:granite", Opacity: 15},
	}, blocktype.State{})
	require.NoError(t, err)

	src := world.NewMemoryDimension(blocktype.Legacy())
	dest := world.NewMemoryDimension(custom)
	setBlock(t, src, world.Pos{0, 0, 0}, 1, 0)
	setBlock(t, src, world.Pos{1, 0, 0}, 1, 1)
	setBlock(t, src, world.Pos{2, 0, 0}, 3, 0)

	box := selection.NewBoundingBox(world.Pos{0, 0, 0}, world.Pos{3, 1, 1})
	_, err = CopyBlocks(dest, src, box, world.Pos{0, 0, 0}, Options{Create: true, Log: quietLog()})
	require.NoError(t, err)

	id, _ := blockAt(dest, world.Pos{0, 0, 0})
	assert.Equal(t, uint16(200), id)
	id, _ = blockAt(dest, world.Pos{1, 0, 0})
	assert.Equal(t, uint16(201), id)
	id, _ = blockAt(dest, world.Pos{2, 0, 0})
	assert.Equal(t, uint16(0), id, "dirt has no equivalent")
}

func TestStopEarly(t *testing.T) {
	src := world.NewMemoryDimension(blocktype.Legacy())
	dest := world.NewMemoryDimension(blocktype.Legacy())
	box := selection.NewBoundingBox(world.Pos{0, 0, 0}, world.Pos{64, 1, 1})
	// chunk 2 is left out of the source
	fill(t, src, selection.NewBoundingBox(world.Pos{0, 0, 0}, world.Pos{32, 1, 1}), constant(50))
	fill(t, src, selection.NewBoundingBox(world.Pos{48, 0, 0}, world.Pos{16, 1, 1}), constant(50))
	r := &recordingRelighter{}

	c, err := NewCopier(dest, src, box, world.Pos{0, 0, 0}, Options{Create: true, Lighting: LightingBatched, Relighter: r, Log: quietLog()})
	require.NoError(t, err)
	assert.Equal(t, StateIdle, c.State())

	var got []Progress
	for p, err := range c.Iter() {
		require.NoError(t, err)
		got = append(got, p)
		break
	}
	assert.Equal(t, []Progress{{Done: 1, Total: 3}}, got)
	assert.Equal(t, StateAborted, c.State())
	assert.Zero(t, r.calls)
	assert.True(t, dest.ContainsChunk(world.ChunkCoord{X: 0, Z: 0}))
	assert.False(t, dest.ContainsChunk(world.ChunkCoord{X: 1, Z: 0}))

	for _, err := range c.Iter() {
		assert.ErrorIs(t, err, ErrAlreadyStarted)
	}
}

func TestProgressCountsPresentChunks(t *testing.T) {
	src := world.NewMemoryDimension(blocktype.Legacy())
	dest := world.NewMemoryDimension(blocktype.Legacy())
	fill(t, src, selection.NewBoundingBox(world.Pos{0, 0, 0}, world.Pos{1, 1, 1}), constant(1))
	fill(t, src, selection.NewBoundingBox(world.Pos{40, 0, 0}, world.Pos{1, 1, 1}), constant(1))

	c, err := NewCopier(dest, src, selection.NewBoundingBox(world.Pos{0, 0, 0}, world.Pos{48, 1, 1}), world.Pos{0, 0, 0}, Options{Create: true, Log: quietLog()})
	require.NoError(t, err)

	var got []Progress
	for p, err := range c.Iter() {
		require.NoError(t, err)
		got = append(got, p)
	}
	assert.Equal(t, []Progress{{Done: 1, Total: 2}, {Done: 2, Total: 2}}, got)
	assert.Equal(t, StateCompleted, c.State())
}

type failingDimension struct {
	*world.MemoryDimension
	err error
}

func (f failingDimension) ContainsChunk(world.ChunkCoord) bool { return true }

func (f failingDimension) Chunk(world.ChunkCoord, bool) (*world.Chunk, error) {
	return nil, f.err
}

func TestCollaboratorErrorAborts(t *testing.T) {
	boom := errors.New("disk on fire")
	src := world.NewMemoryDimension(blocktype.Legacy())
	fill(t, src, selection.SectionBox(0, 0, 0), constant(1))
	dest := failingDimension{MemoryDimension: world.NewMemoryDimension(blocktype.Legacy()), err: boom}

	c, err := NewCopier(dest, src, selection.SectionBox(0, 0, 0), world.Pos{}, Options{Log: quietLog()})
	require.NoError(t, err)

	var errs []error
	for _, err := range c.Iter() {
		errs = append(errs, err)
	}
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], boom)
	assert.Equal(t, StateAborted, c.State())

	failingRelighter := RelighterFunc(func(world.Dimension, []int32, []int32, []int32) error { return boom })
	_, err = CopyBlocks(world.NewMemoryDimension(blocktype.Legacy()), src, selection.SectionBox(0, 0, 0), world.Pos{},
		Options{Create: true, Lighting: LightingPerWrite, Relighter: failingRelighter, Log: quietLog()})
	assert.ErrorIs(t, err, boom)
}

func TestLightingRequiresRelighter(t *testing.T) {
	dim := world.NewMemoryDimension(blocktype.Legacy())
	_, err := NewCopier(dim, dim, selection.SectionBox(0, 0, 0), world.Pos{}, Options{Lighting: LightingBatched})
	assert.ErrorIs(t, err, ErrNoRelighter)
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics("test", reg)

	src := world.NewMemoryDimension(blocktype.Legacy())
	dest := world.NewMemoryDimension(blocktype.Legacy())
	fill(t, src, selection.SectionBox(0, 0, 0), constant(1))
	_, err := CopyBlocks(dest, src, selection.SectionBox(0, 0, 0), world.Pos{}, Options{Create: true, Log: quietLog(), Metrics: metrics})
	require.NoError(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)
	values := map[string]float64{}
	for _, mf := range families {
		for _, m := range mf.Metric {
			if m.Counter != nil {
				values[mf.GetName()] += m.Counter.GetValue()
			}
		}
	}
	assert.Equal(t, 1.0, values["test_copy_chunks_total"])
	assert.Equal(t, float64(world.SectionVolume), values["test_copy_blocks_written_total"])
}

func TestAllowListExcludedBlocksDoNotRelight(t *testing.T) {
	src := world.NewMemoryDimension(blocktype.Legacy())
	box := selection.NewBoundingBox(world.Pos{0, 0, 0}, world.Pos{4, 1, 1})
	fill(t, src, box, func(p world.Pos) (uint16, uint8) {
		if p[0]%2 == 0 {
			return 50, 0 // torch, left out by the allow-list
		}
		return 1, 0
	})
	destOrigin := world.Pos{3, 5, 7}
	offset := destOrigin.Sub(box.Origin)

	for _, mode := range []LightingMode{LightingPerWrite, LightingBatched} {
		t.Run(mode.String(), func(t *testing.T) {
			dest := world.NewMemoryDimension(blocktype.Legacy())
			r := &recordingRelighter{}
			stats, err := CopyBlocks(dest, src, box, destOrigin, Options{
				BlocksToCopy: []uint16{1},
				Create:       true,
				Lighting:     mode,
				Relighter:    r,
				Log:          quietLog(),
			})
			require.NoError(t, err)

			want := map[world.Pos]int{
				world.Pos{1, 0, 0}.Add(offset): 1,
				world.Pos{3, 0, 0}.Add(offset): 1,
			}
			assert.Equal(t, want, r.cells)
			assert.Equal(t, 2, stats.BlocksWritten)
			id, _ := blockAt(dest, world.Pos{0, 0, 0}.Add(offset))
			assert.Equal(t, uint16(0), id)
		})
	}
}

func TestDisjointUnionCopy(t *testing.T) {
	src := world.NewMemoryDimension(blocktype.Legacy())
	fill(t, src, selection.NewBoundingBox(world.Pos{0, 0, 0}, world.Pos{32, 8, 8}), pattern)
	near, _ := src.Chunk(world.ChunkCoord{X: 0, Z: 0}, false)
	far, _ := src.Chunk(world.ChunkCoord{X: 1, Z: 0}, false)
	near.Entities = []world.Entity{
		{ID: "InBox", Pos: mgl64.Vec3{2.5, 1.5, 2.5}},
		{ID: "Between", Pos: mgl64.Vec3{12.5, 1.5, 2.5}},
	}
	near.TileEntities = []world.TileEntity{{ID: "Between", Pos: world.Pos{10, 1, 1}}}
	far.Entities = []world.Entity{{ID: "InSphere", Pos: mgl64.Vec3{22.5, 2.5, 2.5}}}

	sel := selection.Union{
		selection.NewBoundingBox(world.Pos{0, 0, 0}, world.Pos{4, 4, 4}),
		selection.NewSphere(world.Pos{22, 2, 2}, 2),
	}
	destOrigin := world.Pos{100, 16, 3}
	offset := destOrigin.Sub(sel.Bounds().Origin)

	dest := world.NewMemoryDimension(blocktype.Legacy())
	target := sel.Bounds().Offset(offset)
	fill(t, dest, target, constant(7))

	stats, err := CopyBlocks(dest, src, sel, destOrigin, Options{Create: true, Entities: true, Log: quietLog()})
	require.NoError(t, err)

	lo, hi := target.Min(), target.Max()
	for x := lo[0]; x < hi[0]; x++ {
		for y := lo[1]; y < hi[1]; y++ {
			for z := lo[2]; z < hi[2]; z++ {
				p := world.Pos{x, y, z}
				sp := p.Sub(offset)
				id, _ := blockAt(dest, p)
				if sel.Contains(sp[0], sp[1], sp[2]) {
					wantID, _ := pattern(sp)
					assert.Equal(t, wantID, id, "%v", p)
				} else {
					assert.Equal(t, uint16(7), id, "%v", p)
				}
			}
		}
	}

	assert.Equal(t, 3, stats.EntitiesSeen)
	assert.Equal(t, 2, stats.EntitiesCopied)
	assert.Equal(t, 1, stats.TileEntitiesSeen)
	assert.Zero(t, stats.TileEntitiesCopied)

	var ids []string
	for _, pos := range dest.ChunkCoords() {
		c, _ := dest.Chunk(pos, false)
		for _, e := range c.Entities {
			ids = append(ids, e.ID)
		}
		assert.Empty(t, c.TileEntities)
	}
	assert.ElementsMatch(t, []string{"InBox", "InSphere"}, ids)
}

func TestChunkErrorKeepsPartialStats(t *testing.T) {
	boom := errors.New("relight failed")
	src := world.NewMemoryDimension(blocktype.Legacy())
	fill(t, src, selection.SectionBox(0, 0, 0), constant(50))

	calls := 0
	relighter := RelighterFunc(func(world.Dimension, []int32, []int32, []int32) error {
		calls++
		if calls == 2 {
			return boom
		}
		return nil
	})
	reg := prometheus.NewRegistry()
	stats, err := CopyBlocks(world.NewMemoryDimension(blocktype.Legacy()), src, selection.SectionBox(0, 0, 0), world.Pos{8, 0, 0}, Options{
		Create:    true,
		Lighting:  LightingPerWrite,
		Relighter: relighter,
		Log:       quietLog(),
		Metrics:   NewMetrics("partial", reg),
	})
	require.ErrorIs(t, err, boom)

	assert.Zero(t, stats.Chunks)
	assert.Equal(t, world.SectionVolume, stats.BlocksWritten)
	assert.Equal(t, 2, stats.RelightCalls)
	assert.Equal(t, world.SectionVolume, stats.RelightCells)

	families, err := reg.Gather()
	require.NoError(t, err)
	values := map[string]float64{}
	for _, mf := range families {
		for _, m := range mf.Metric {
			if m.Counter != nil {
				values[mf.GetName()] += m.Counter.GetValue()
			}
		}
	}
	assert.Zero(t, values["partial_copy_chunks_total"])
	assert.Equal(t, float64(world.SectionVolume), values["partial_copy_blocks_written_total"])
	assert.Equal(t, 2.0, values["partial_copy_relight_calls_total"])
}
