package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/astei/worldcopy/anvil"
	"github.com/astei/worldcopy/blocktype"
	"github.com/astei/worldcopy/slime"
)

func main() {
	app := &cli.App{
		Name:  "worldcopy",
		Usage: "copy regions between Minecraft worlds",
		Commands: []*cli.Command{
			copyCommand(),
			{
				Name:      "convert",
				Usage:     "convert an Anvil world to a Slime file",
				ArgsUsage: "DIR FILE",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "registry", Usage: "block type registry file"},
					&cli.StringFlag{Name: "log-level", Value: "info"},
				},
				Action: convert,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger(level string) (*logrus.Logger, error) {
	log := logrus.New()
	log.Formatter = &logrus.TextFormatter{ForceColors: true}
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	log.SetLevel(parsed)
	return log, nil
}

func startMetrics(addr string, log *logrus.Logger) {
	if addr == "" {
		return
	}
	go func() {
		log.Infof("Serving metrics on %s", addr)
		if err := http.ListenAndServe(addr, promhttp.Handler()); err != nil {
			log.Errorf("metrics server: %v", err)
		}
	}()
}

func convert(ctx *cli.Context) error {
	if ctx.NArg() != 2 {
		return cli.Exit("usage: worldcopy convert DIR FILE", 2)
	}
	log, err := newLogger(ctx.String("log-level"))
	if err != nil {
		return err
	}
	reg, err := blocktype.LoadRegistry(ctx.String("registry"))
	if err != nil {
		return err
	}

	dim, err := anvil.OpenWorld(ctx.Args().Get(0), reg, log)
	if err != nil {
		return err
	}
	out := ctx.Args().Get(1)
	if err = slime.WriteFile(out, dim); err != nil {
		return err
	}
	if info, err := os.Stat(out); err == nil {
		log.Infof("Wrote %s (%s)", out, humanize.Bytes(uint64(info.Size())))
	}
	return nil
}
