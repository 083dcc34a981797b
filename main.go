package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/svanichkin/effectcam/codec"
	"github.com/svanichkin/effectcam/conf"
	"github.com/svanichkin/effectcam/device"
	"github.com/svanichkin/effectcam/effect"
	"github.com/svanichkin/effectcam/logs"
	"github.com/svanichkin/effectcam/mediactrl"
	"github.com/svanichkin/effectcam/orient"
	"github.com/svanichkin/effectcam/pipeline"
	"github.com/svanichkin/effectcam/ui"
)

var version = "dev"

const statsInterval = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "[effectcam] %v\n", err)
		os.Exit(1)
	}
}

func run() (err error) {
	opts, err := conf.ParseCLI()
	if err != nil {
		return err
	}
	if opts.ShowVersion {
		printVersion()
		return nil
	}

	logWriter, closeLog, logPath, logErr := initLogSink(opts.ConfigPath)
	if closeLog != nil {
		defer closeLog()
	}
	if logErr == nil {
		fmt.Fprintf(os.Stderr, "[effectcam] logs: %s\n", logPath)
	} else {
		fmt.Fprintf(os.Stderr, "[effectcam] log file disabled (%v)\n", logErr)
		logWriter = io.Discard
	}
	log := logs.Setup(logWriter, opts.Verbose).WithField("component", "main")
	log.WithField("version", appVersion()).Info("starting")

	appCtx, appCancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer appCancel()

	frames, source, err := openSource(appCtx, opts)
	if err != nil {
		return err
	}

	player, err := effect.NewPlayer(effect.Options{
		Width:        opts.SurfaceWidth,
		Height:       opts.SurfaceHeight,
		ResourceDirs: opts.ResourceDirs,
	})
	if err != nil {
		return err
	}
	defer player.Close()
	if err := loadInitialEffect(player, opts, log); err != nil {
		return err
	}
	mediactrl.SetEffectEnabled(!opts.NoEffect)
	defer bindCaptureSwitch(player)()

	var recorder pipeline.FrameRecorder
	if opts.RecordPath != "" {
		rec, closeRec, err := openRecorder(opts.RecordPath)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := closeRec(); cerr != nil && err == nil {
				err = cerr
			}
			log.WithFields(logrus.Fields{"path": opts.RecordPath, "frames": rec.Frames()}).Info("recording closed")
		}()
		recorder = rec
	}

	orientation := device.NewOrientation(orient.DevicePortrait)
	pipe, err := pipeline.New(pipeline.Config{
		Output:        opts.Output,
		Facing:        opts.Facing,
		Format:        opts.Format,
		SurfaceWidth:  opts.SurfaceWidth,
		SurfaceHeight: opts.SurfaceHeight,
		Mirror:        opts.Facing == orient.FacingFront,
		Recorder:      recorder,
	}, orientation, player, ui.Sink{})
	if err != nil {
		return err
	}

	ui.SetColorFilter(opts.ColorFilter)
	ui.SetMaxFPS(opts.MaxFPS)
	var rendererDone <-chan struct{}
	if device.IsInteractive() {
		rendererDone = ui.EnsureRenderer(appCtx)
	} else {
		log.Warn("not a terminal, preview disabled")
	}
	ui.SetStatusMessage(fmt.Sprintf("Waiting for %s…", source))
	ui.SetOverlaySource(func() string {
		return overlayLine(orientation.Load(), pipe.Stats(), player.Effect())
	})
	defer func() {
		if err != nil {
			ui.SetStatusMessage("Error: " + err.Error())
		} else {
			ui.SetStatusMessage("")
		}
	}()

	snapshotDir := opts.SnapshotDir
	if snapshotDir == "" {
		snapshotDir = filepath.Join(filepath.Dir(opts.ConfigPath), "snapshots")
	}
	ui.StartKeyReader(appCtx, ui.KeyHandlers{
		SetDevice: orientation.Set,
		Rotate:    func() { orientation.Rotate() },
		Snapshot:  func() { takeSnapshot(snapshotDir, log) },
		Quit:      appCancel,
	})

	unsubscribe := orientation.Subscribe(func(d orient.DeviceOrientation) {
		logs.LogV("[main] device orientation %s", d)
	})
	defer unsubscribe()

	g, gctx := errgroup.WithContext(appCtx)
	g.Go(func() error {
		defer appCancel()
		return pipe.Run(gctx, frames)
	})
	g.Go(func() error {
		logStats(gctx, pipe, player, statsInterval)
		return nil
	})
	err = g.Wait()
	if rendererDone != nil {
		<-rendererDone
	}
	st := pipe.Stats()
	log.WithFields(logrus.Fields{
		"in":        st.In,
		"presented": st.Presented,
		"bypassed":  st.Bypassed,
		"dropped":   st.Dropped,
	}).Info("stopped")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// logStats reports frame counters periodically until ctx is done.
func logStats(ctx context.Context, pipe *pipeline.Pipeline, player *effect.Player, every time.Duration) {
	tick := time.NewTicker(every)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			st := pipe.Stats()
			ps := player.Stats()
			logs.LogV("[stats] in=%d presented=%d bypassed=%d dropped=%d rendered=%d player_dropped=%d failed=%d rotation=%s paused=%t",
				st.In, st.Presented, st.Bypassed, st.Dropped, ps.Rendered, ps.Dropped, ps.Failed, st.Rotation, player.Paused())
		}
	}
}

// loadInitialEffect loads the requested effect. Without one, the default
// effect is tried when resource dirs are configured; a missing default is not
// an error.
func loadInitialEffect(player *effect.Player, opts *conf.AppOptions, log *logrus.Entry) error {
	switch {
	case opts.Effect != "":
		return player.LoadEffect(opts.Effect)
	case opts.NoEffect || len(opts.ResourceDirs) == 0:
		return nil
	}
	err := player.LoadEffect(conf.DefaultEffect)
	if errors.Is(err, effect.ErrEffectNotFound) {
		log.WithField("effect", conf.DefaultEffect).Info("default effect not installed")
		return nil
	}
	return err
}

// bindCaptureSwitch pauses the player while capture is off and drops the
// stale preview. It returns the unsubscribe function.
func bindCaptureSwitch(player *effect.Player) func() {
	apply := func(s mediactrl.State) {
		if s.CaptureEnabled {
			player.Resume()
			return
		}
		player.Pause()
		ui.ClearFrame()
	}
	unsubscribe := mediactrl.Subscribe(apply)
	apply(mediactrl.StateSnapshot())
	return unsubscribe
}

func openSource(ctx context.Context, opts *conf.AppOptions) (<-chan codec.Frame, string, error) {
	if opts.ReplayPath != "" {
		frames, err := device.StartReplayStream(ctx, opts.ReplayPath, opts.MaxFPS)
		if err != nil {
			return nil, "", fmt.Errorf("replay %s: %w", opts.ReplayPath, err)
		}
		return frames, "replay", nil
	}
	frames, err := device.StartCameraStream(ctx, device.DefaultCaptureWidth, device.DefaultCaptureHeight)
	if err != nil {
		return nil, "", fmt.Errorf("camera: %w", err)
	}
	return frames, opts.Facing.String() + " camera", nil
}

func openRecorder(path string) (*codec.Recorder, func() error, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("record: %w", err)
	}
	rec, err := codec.NewRecorder(f)
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	closeFn := func() error {
		return errors.Join(rec.Close(), f.Close())
	}
	return rec, closeFn, nil
}

func takeSnapshot(dir string, log *logrus.Entry) {
	frame, ok := ui.LatestFrame()
	if !ok {
		ui.SetStatusMessage("No frame to save yet")
		return
	}
	path, err := codec.SaveSnapshot(dir, frame, time.Now())
	if err != nil {
		log.WithError(err).Warn("snapshot failed")
		ui.SetStatusMessage("Snapshot failed: " + err.Error())
		return
	}
	log.WithField("path", path).Info("snapshot saved")
	ui.SetStatusMessage("Saved " + filepath.Base(path))
}

func overlayLine(d orient.DeviceOrientation, st pipeline.Stats, effectName string) string {
	fx := effectName
	if fx == "" {
		fx = "none"
	}
	if !mediactrl.EffectEnabled() {
		fx += " (off)"
	}
	parts := []string{
		d.String(),
		st.Rotation.String(),
		"fx " + fx,
		fmt.Sprintf("drop %d", st.Dropped),
	}
	if !mediactrl.CaptureEnabled() {
		parts = append(parts, "paused")
	}
	return strings.Join(parts, " · ")
}

func initLogSink(configPath string) (io.Writer, func() error, string, error) {
	dir := filepath.Dir(configPath)
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, "", err
	}
	logPath := filepath.Join(dir, "effectcam.log")
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, logPath, err
	}
	closeFn := func() error {
		return f.Close()
	}
	return f, closeFn, logPath, nil
}

func appVersion() string {
	v := strings.TrimSpace(version)
	if v == "" {
		v = "dev"
	}
	if v != "dev" {
		return v
	}
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return v
	}
	if ver := strings.TrimSpace(bi.Main.Version); ver != "" && ver != "(devel)" {
		return ver
	}
	if derived := vcsVersion(bi); derived != "" {
		return derived
	}
	return v
}

func vcsVersion(bi *debug.BuildInfo) string {
	revision := buildInfoSetting(bi, "vcs.revision")
	if revision == "" {
		return ""
	}
	short := revision
	if len(short) > 12 {
		short = short[:12]
	}
	dirty := ""
	if buildInfoSetting(bi, "vcs.modified") == "true" {
		dirty = "+dirty"
	}
	return short + dirty
}

func buildInfoSetting(bi *debug.BuildInfo, key string) string {
	for _, setting := range bi.Settings {
		if setting.Key == key {
			return setting.Value
		}
	}
	return ""
}

func printVersion() {
	fmt.Printf("effectcam %s\n", appVersion())
}
