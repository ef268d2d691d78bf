package blockcopy

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exports copy counters to prometheus. A nil *Metrics records nothing.
//
//   - <ns>_copy_chunks_total
//   - <ns>_copy_blocks_written_total
//   - <ns>_copy_entities_total{kind, result}
//   - <ns>_copy_relight_calls_total, <ns>_copy_relight_cells_total
//   - <ns>_copy_duration_seconds
type Metrics struct {
	chunks       prometheus.Counter
	blocks       prometheus.Counter
	entities     *prometheus.CounterVec
	relightCalls prometheus.Counter
	relightCells prometheus.Counter
	duration     prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg, or with the default
// registerer when reg is nil.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		chunks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "copy_chunks_total",
			Help:      "Source chunks fully copied.",
		}),
		blocks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "copy_blocks_written_total",
			Help:      "Blocks written into destination sections.",
		}),
		entities: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "copy_entities_total",
			Help:      "Entities and tile entities seen in source chunks and copied.",
		}, []string{"kind", "result"}),
		relightCalls: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "copy_relight_calls_total",
			Help:      "Calls made to the relighter.",
		}),
		relightCells: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "copy_relight_cells_total",
			Help:      "Block coordinates handed to the relighter.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "copy_duration_seconds",
			Help:      "Duration of copy operations.",
			Buckets:   []float64{0.01, 0.1, 0.5, 1, 5, 15, 60, 300, 1800},
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.chunks, m.blocks, m.entities, m.relightCalls, m.relightCells, m.duration)
	return m
}

// observeChunk adds the difference between two stats snapshots taken around one chunk.
func (m *Metrics) observeChunk(before, after Stats) {
	if m == nil {
		return
	}
	m.chunks.Inc()
	m.observePartial(before, after)
}

// observePartial adds everything but the chunk count. Chunks that fail part-way only report this.
func (m *Metrics) observePartial(before, after Stats) {
	if m == nil {
		return
	}
	m.blocks.Add(float64(after.BlocksWritten - before.BlocksWritten))
	m.entities.WithLabelValues("entity", "seen").Add(float64(after.EntitiesSeen - before.EntitiesSeen))
	m.entities.WithLabelValues("entity", "copied").Add(float64(after.EntitiesCopied - before.EntitiesCopied))
	m.entities.WithLabelValues("tile_entity", "seen").Add(float64(after.TileEntitiesSeen - before.TileEntitiesSeen))
	m.entities.WithLabelValues("tile_entity", "copied").Add(float64(after.TileEntitiesCopied - before.TileEntitiesCopied))
	m.observeRelight(before, after)
}

func (m *Metrics) observeRelight(before, after Stats) {
	if m == nil {
		return
	}
	m.relightCalls.Add(float64(after.RelightCalls - before.RelightCalls))
	m.relightCells.Add(float64(after.RelightCells - before.RelightCells))
}

func (m *Metrics) observeDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.duration.Observe(d.Seconds())
}
