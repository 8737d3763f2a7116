package main

import (
	"flag"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/gekko3d/voxcanvas"
	"github.com/gekko3d/voxcanvas/voxelrt/rt/app"

	"github.com/go-gl/glfw/v3.3/glfw"
)

func init() {
	runtime.LockOSThread()
}

func main() {
	scenePath := flag.String("scene", "", "Canvas file to open (.json, .json.gz, .json.zst, .json.sz)")
	configPath := flag.String("config", "", "TOML configuration file")
	debug := flag.Bool("debug", false, "Enable debug logging and frame timings")
	logFile := flag.String("log", "", "Write logs to this rotating file as well")
	savePath := flag.String("save", "", "Save target for Ctrl+S and on exit (defaults to -scene)")
	snapshotDir := flag.String("snapshot", "", "Directory for a PNG of the last frame")
	frames := flag.Int("frames", 0, "Render this many frames without a window and exit")
	demo := flag.Bool("demo", false, "Open a generated sample canvas instead of an empty one")
	flag.Parse()

	if err := run(*scenePath, *configPath, *debug, *logFile, *savePath, *snapshotDir, *frames, *demo); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(scenePath, configPath string, debug bool, logFile, savePath, snapshotDir string, frames int, demo bool) error {
	cfg, err := voxcanvas.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if debug {
		cfg.Log.Debug = true
	}
	if logFile != "" {
		cfg.Log.File = logFile
	}
	logger := voxcanvas.NewLogger("voxcanvas", cfg.Log)
	defer logger.Close()

	session := voxcanvas.NewSession(cfg, logger)
	switch {
	case scenePath != "":
		if err := session.LoadFile(scenePath); err != nil {
			return err
		}
	case demo:
		session.LoadDemo()
	}
	if savePath == "" {
		savePath = scenePath
	}

	if frames > 0 {
		return runHeadless(session, logger, cfg.Window, frames, snapshotDir)
	}

	if err := glfw.Init(); err != nil {
		return err
	}
	defer glfw.Terminate()

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	window, err := glfw.CreateWindow(cfg.Window.Width, cfg.Window.Height, cfg.Window.Title, nil, nil)
	if err != nil {
		return err
	}
	defer window.Destroy()

	application := app.NewApp(window, session, logger)
	application.DebugMode = cfg.Log.Debug
	application.SavePath = savePath
	if err := application.Init(); err != nil {
		return err
	}
	defer application.Release()
	application.InstallCallbacks()
	application.Run()

	if snapshotDir != "" {
		path, err := session.WriteSnapshot(snapshotDir)
		if err != nil {
			return err
		}
		logger.Infof("snapshot %s", path)
	}
	return nil
}

// runHeadless renders a fixed number of frames at the configured window size,
// advancing the clock by a nominal 60 Hz step. Without a GPU adapter the
// frames are drawn in software.
func runHeadless(session *voxcanvas.Session, logger voxcanvas.Logger, win voxcanvas.WindowConfig, frames int, snapshotDir string) error {
	if h, err := app.NewHeadless(session, logger); err != nil {
		logger.Warnf("no gpu device, rendering in software: %v", err)
	} else {
		defer h.Release()
	}

	start := time.Now()
	for i := 0; i < frames; i++ {
		session.Tick(time.Second / 60)
		if _, err := session.Render(win.Width, win.Height); err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
	}
	logger.Infof("rendered %d frames in %s, %d samples", frames, time.Since(start).Round(time.Millisecond), session.State().SampleCount)
	if snapshotDir == "" {
		return nil
	}
	path, err := session.WriteSnapshot(snapshotDir)
	if err != nil {
		return err
	}
	logger.Infof("snapshot %s", path)
	return nil
}
