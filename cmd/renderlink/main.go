// Package main is the entry point for the renderlink live client.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"

	"github.com/Faultbox/renderlink/internal/bridge"
	"github.com/Faultbox/renderlink/internal/command"
	"github.com/Faultbox/renderlink/internal/config"
	"github.com/Faultbox/renderlink/internal/export"
	"github.com/Faultbox/renderlink/internal/logger"
	"github.com/Faultbox/renderlink/internal/network"
	"github.com/Faultbox/renderlink/internal/scene"
)

var (
	flagWatch      = flag.Bool("watch", false, "Re-export whenever the scene file changes")
	flagSaveConfig = flag.Bool("save-config", false, "Write the effective config to the user config directory and exit")
)

func main() {
	config.ParseFlags()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	if *flagSaveConfig {
		if err := cfg.Save(); err != nil {
			fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(filepath.Join(config.ConfigDir(), "config.yaml"))
		return
	}

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: renderlink [options] <scene.yaml>")
		flag.PrintDefaults()
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("=== renderlink ===")
	logger.Sugar.Debugf("Config: %+v", cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := newApp(cfg, flag.Arg(0))
	defer a.close()

	if err := a.run(ctx, *flagWatch); err != nil && ctx.Err() == nil {
		logger.Error("renderlink stopped", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("renderlink closed normally")
}

// app owns one renderer link and the scene file it mirrors.
type app struct {
	cfg    *config.Config
	path   string
	bridge *bridge.Bridge
	client *command.Client
	scene  *scene.Scene
	sink   bridge.PixelSink
	log    *zap.Logger
}

func newApp(cfg *config.Config, path string) *app {
	conn := network.NewConn(cfg.Remote.ConnectTimeout)
	client := command.New(conn, cfg.Remote.Host, cfg.Remote.Port)

	session := export.NewSession(cfg.Export.Options())
	session.SetLogger(logger.Named("export"))

	a := &app{
		cfg:    cfg,
		path:   path,
		bridge: bridge.New(client, session),
		client: client,
		log:    logger.Named("renderlink"),
	}
	a.sink = screenshotSink(cfg.Render.ScreenshotPath, a.log)
	return a
}

func (a *app) close() {
	if err := a.client.Close(); err != nil {
		a.log.Debug("closing renderer link", zap.Error(err))
	}
}

// run pushes the scene once and renders it, then keeps following the file
// when watch is set.
func (a *app) run(ctx context.Context, watch bool) error {
	if err := a.reload(); err != nil {
		return err
	}
	if err := a.push(ctx, true); err != nil {
		if !watch {
			return err
		}
		a.log.Warn("initial update failed, waiting for changes", zap.Error(err))
	}
	if !watch {
		return nil
	}
	return watchFile(ctx, a.path, a.log, func() {
		if err := a.reload(); err != nil {
			a.log.Warn("scene reload failed", zap.String("path", a.path), zap.Error(err))
			return
		}
		a.bridge.Listener().SceneUpdatePost(a.scene)
		if err := a.push(ctx, a.cfg.Remote.AutoRedraw); err != nil {
			a.log.Warn("update failed", zap.Error(err))
		}
	})
}

func (a *app) reload() error {
	sc, err := scene.ReloadFile(a.path, a.scene)
	if err != nil {
		return fmt.Errorf("loading scene %s: %w", a.path, err)
	}
	a.scene = sc
	return nil
}

// push sends pending changes and optionally renders from the scene camera.
func (a *app) push(ctx context.Context, draw bool) error {
	if err := a.bridge.Update(ctx, a.scene); err != nil {
		return err
	}
	a.scene.ClearUpdated()
	if !draw {
		return nil
	}
	if a.scene.Camera == nil {
		a.log.Warn("scene has no active camera, skipping render")
		return nil
	}
	w, h := a.cfg.Render.Width, a.cfg.Render.Height
	eye := bridge.EyeFromCamera(a.scene.Camera, w, h)
	return a.bridge.Draw(ctx, a.scene, eye, w, h, a.sink)
}
