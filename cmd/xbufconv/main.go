// xbufconv exports a scene file once and writes the result as an xbuf Data message.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"go.uber.org/zap"

	"github.com/Faultbox/renderlink/internal/export"
	"github.com/Faultbox/renderlink/internal/logger"
	"github.com/Faultbox/renderlink/internal/scene"
)

func main() {
	fs := flag.NewFlagSet("xbufconv", flag.ExitOnError)
	assets := fs.String("a", "/tmp", "Assets root folder (packed textures are written under it)")
	output := fs.String("f", "", "Output .xbuf file")
	weld := fs.Bool("weld", false, "Merge identical vertices")
	curves := fs.Bool("curves", false, "Export animation curves instead of samples")
	debug := fs.Bool("debug", false, "Enable debug logging")
	fs.Usage = printUsage(fs)
	fs.Parse(os.Args[1:])

	if fs.NArg() != 1 || *output == "" {
		fs.Usage()
		os.Exit(1)
	}

	level := "info"
	if *debug {
		level = "debug"
	}
	if err := logger.Init(level, ""); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	opts := export.DefaultOptions()
	opts.AssetsPath = *assets
	opts.WeldVertices = *weld
	if *curves {
		opts.Animation = export.AnimationCurves
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	n, err := convert(ctx, fs.Arg(0), *output, opts)
	if err != nil {
		logger.Error("export failed", zap.String("scene", fs.Arg(0)), zap.Error(err))
		os.Exit(1)
	}
	logger.Info("export written", zap.String("file", *output), zap.Int("bytes", n))
}

func printUsage(fs *flag.FlagSet) func() {
	return func() {
		fmt.Fprintln(os.Stderr, `xbufconv - export a scene file to xbuf

Usage:
  xbufconv -f <out.xbuf> [-a <assets>] [options] <scene.yaml>

Options:`)
		fs.PrintDefaults()
	}
}

// convert runs a full export with a fresh session and writes the Data message.
func convert(ctx context.Context, in, out string, opts export.Options) (int, error) {
	sc, err := scene.LoadFile(in)
	if err != nil {
		return 0, err
	}

	s := export.NewSession(opts)
	s.SetLogger(logger.Named("export"))

	batch, err := export.Export(ctx, s, sc)
	if err != nil {
		return 0, err
	}

	data := batch.Marshal()
	if err := os.WriteFile(out, data, 0644); err != nil {
		return 0, fmt.Errorf("writing %s: %w", out, err)
	}
	return len(data), nil
}
