package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/astei/worldcopy/anvil"
	"github.com/astei/worldcopy/blockcopy"
	"github.com/astei/worldcopy/blocktype"
	"github.com/astei/worldcopy/config"
	"github.com/astei/worldcopy/relight"
	"github.com/astei/worldcopy/selection"
	"github.com/astei/worldcopy/slime"
)

func copyCommand() *cli.Command {
	return &cli.Command{
		Name:  "copy",
		Usage: "copy a selection of one world into another and write the result as Slime",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "YAML job file"},
			&cli.StringFlag{Name: "source", Usage: "source world directory"},
			&cli.StringFlag{Name: "dest", Usage: "destination world directory"},
			&cli.StringFlag{Name: "out", Usage: "output Slime file"},
			&cli.StringFlag{Name: "from", Usage: "selection origin as x,y,z"},
			&cli.StringFlag{Name: "size", Usage: "selection size as x,y,z"},
			&cli.StringFlag{Name: "to", Usage: "destination origin as x,y,z"},
			&cli.StringFlag{Name: "shape", Usage: "box or sphere"},
			&cli.StringFlag{Name: "blocks", Usage: "only copy these comma separated block ids"},
			&cli.BoolFlag{Name: "entities", Usage: "copy entities"},
			&cli.BoolFlag{Name: "create", Usage: "create missing destination chunks"},
			&cli.BoolFlag{Name: "biomes", Usage: "copy biomes"},
			&cli.StringFlag{Name: "lighting", Usage: "none, section or all"},
			&cli.StringFlag{Name: "source-registry", Usage: "source block type registry file"},
			&cli.StringFlag{Name: "dest-registry", Usage: "destination block type registry file"},
			&cli.StringFlag{Name: "log-level"},
			&cli.StringFlag{Name: "metrics-addr", Usage: "serve Prometheus metrics on this address"},
		},
		Action: func(ctx *cli.Context) error {
			job, err := config.Load(ctx.String("config"))
			if err != nil {
				return err
			}
			if err = applyFlags(ctx, job); err != nil {
				return err
			}
			if err = job.Validate(); err != nil {
				return err
			}

			log, err := newLogger(job.GetLogLevel())
			if err != nil {
				return err
			}
			startMetrics(job.GetMetricsAddr(), log)

			_, err = runJob(job, log, prometheus.DefaultRegisterer)
			return err
		},
	}
}

func applyFlags(ctx *cli.Context, job *config.Job) (err error) {
	stringFlags := map[string]*string{
		"source":          &job.Source.Path,
		"dest":            &job.Dest.Path,
		"out":             &job.Output,
		"shape":           &job.Selection.Shape,
		"lighting":        &job.Lighting,
		"source-registry": &job.Source.Registry,
		"dest-registry":   &job.Dest.Registry,
		"log-level":       &job.LogLevel,
		"metrics-addr":    &job.MetricsAddr,
	}
	for name, target := range stringFlags {
		if ctx.IsSet(name) {
			*target = ctx.String(name)
		}
	}

	boolFlags := map[string]*bool{
		"entities": &job.Entities,
		"create":   &job.Create,
		"biomes":   &job.Biomes,
	}
	for name, target := range boolFlags {
		if ctx.IsSet(name) {
			*target = ctx.Bool(name)
		}
	}

	if ctx.IsSet("from") {
		if job.Selection.From, err = config.ParsePos(ctx.String("from")); err != nil {
			return
		}
	}
	if ctx.IsSet("size") {
		if job.Selection.Size, err = config.ParsePos(ctx.String("size")); err != nil {
			return
		}
	}
	if ctx.IsSet("to") {
		if job.To, err = config.ParsePos(ctx.String("to")); err != nil {
			return
		}
	}
	if ctx.IsSet("blocks") {
		if job.Blocks, err = config.ParseBlocks(ctx.String("blocks")); err != nil {
			return
		}
	}
	return nil
}

func buildSelection(cfg config.SelectionConfig) selection.Selection {
	box := selection.NewBoundingBox(cfg.From, cfg.Size)
	if cfg.Shape == "sphere" {
		return selection.Sphere{Box: box}
	}
	return box
}

func logProgress(log *logrus.Logger, progress blockcopy.Progress) {
	log.WithFields(logrus.Fields{
		"done":  progress.Done,
		"total": progress.Total,
	}).Infof("Copied chunk (%d%%)", progress.Done*100/max(progress.Total, 1))
}

// runJob loads both worlds, copies the selection and writes the destination as Slime.
func runJob(job *config.Job, log *logrus.Logger, reg prometheus.Registerer) (stats blockcopy.Stats, err error) {
	lighting, err := blockcopy.ParseLightingMode(job.Lighting)
	if err != nil {
		return
	}
	srcTypes, err := blocktype.LoadRegistry(job.Source.Registry)
	if err != nil {
		return
	}
	destTypes, err := blocktype.LoadRegistry(job.Dest.Registry)
	if err != nil {
		return
	}

	src, err := anvil.OpenWorld(job.Source.Path, srcTypes, log)
	if err != nil {
		return stats, fmt.Errorf("could not load source world: %w", err)
	}
	dest, err := anvil.OpenWorld(job.Dest.Path, destTypes, log)
	if err != nil {
		return stats, fmt.Errorf("could not load destination world: %w", err)
	}

	sel := buildSelection(job.Selection)
	copier, err := blockcopy.NewCopier(dest, src, sel, job.To, blockcopy.Options{
		BlocksToCopy: job.Blocks,
		Entities:     job.Entities,
		Create:       job.Create,
		Biomes:       job.Biomes,
		Lighting:     lighting,
		Relighter:    relight.Invalidator{Log: log},
		Log:          log,
		Metrics:      blockcopy.NewMetrics("worldcopy", reg),
	})
	if err != nil {
		return
	}

	for progress, err := range copier.Iter() {
		if err != nil {
			return copier.Stats(), err
		}
		logProgress(log, progress)
	}
	stats = copier.Stats()

	if err = slime.WriteFile(job.Output, dest); err != nil {
		return stats, fmt.Errorf("could not write %s: %w", job.Output, err)
	}
	log.Infof("Wrote %s blocks from %s chunks to %s", humanize.Comma(int64(stats.BlocksWritten)), humanize.Comma(int64(stats.Chunks)), job.Output)
	return stats, nil
}
