package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/svanichkin/effectcam/codec"
	"github.com/svanichkin/effectcam/conf"
	"github.com/svanichkin/effectcam/effect"
	"github.com/svanichkin/effectcam/logs"
	"github.com/svanichkin/effectcam/mediactrl"
	"github.com/svanichkin/effectcam/orient"
	"github.com/svanichkin/effectcam/pipeline"
	"github.com/svanichkin/effectcam/ui"
)

func newTestPlayer(t *testing.T, dirs ...string) *effect.Player {
	t.Helper()
	p, err := effect.NewPlayer(effect.Options{Width: 4, Height: 4, ResourceDirs: dirs})
	require.NoError(t, err)
	t.Cleanup(p.Close)
	return p
}

func TestOverlayLine(t *testing.T) {
	t.Cleanup(func() {
		mediactrl.SetEffectEnabled(true)
		mediactrl.SetCaptureEnabled(true)
	})
	st := pipeline.Stats{Dropped: 3, Rotation: orient.Deg270}
	assert.Equal(t, "landscape-left · 270° · fx blur · drop 3", overlayLine(orient.DeviceLandscapeLeft, st, "blur"))

	mediactrl.SetEffectEnabled(false)
	mediactrl.SetCaptureEnabled(false)
	assert.Equal(t, "portrait · 270° · fx none (off) · drop 3 · paused", overlayLine(orient.DevicePortrait, st, ""))
}

func TestInitLogSink(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cfg")
	w, closeFn, path, err := initLogSink(filepath.Join(dir, "config.json"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "effectcam.log"), path)
	_, err = w.Write([]byte("hello\n"))
	require.NoError(t, err)
	require.NoError(t, closeFn())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(b))
}

func TestOpenRecorder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "take.ecam")
	rec, closeFn, err := openRecorder(path)
	require.NoError(t, err)
	require.NoError(t, rec.WriteFrame(codec.BlackFrame(2, 2), orient.Deg90, time.Unix(1700000000, 0)))
	require.NoError(t, closeFn())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rp, err := codec.NewReplay(f)
	require.NoError(t, err)
	defer rp.Close()
	r, err := rp.Next()
	require.NoError(t, err)
	assert.Equal(t, orient.Deg90, r.Rotation)
}

func TestAppVersionOverride(t *testing.T) {
	old := version
	t.Cleanup(func() { version = old })
	version = "v1.2.3"
	assert.Equal(t, "v1.2.3", appVersion())
	version = ""
	assert.NotEmpty(t, appVersion())
}

func TestLoadInitialEffect(t *testing.T) {
	log := logs.Component("test")
	withDefault := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(withDefault, conf.DefaultEffect), 0o755))

	p := newTestPlayer(t, withDefault)
	require.NoError(t, loadInitialEffect(p, &conf.AppOptions{ResourceDirs: []string{withDefault}}, log))
	assert.Equal(t, conf.DefaultEffect, p.Effect())

	p = newTestPlayer(t, withDefault)
	require.NoError(t, loadInitialEffect(p, &conf.AppOptions{NoEffect: true, ResourceDirs: []string{withDefault}}, log))
	assert.Empty(t, p.Effect())

	empty := t.TempDir()
	p = newTestPlayer(t, empty)
	require.NoError(t, loadInitialEffect(p, &conf.AppOptions{ResourceDirs: []string{empty}}, log))
	assert.Empty(t, p.Effect())

	p = newTestPlayer(t, empty)
	err := loadInitialEffect(p, &conf.AppOptions{Effect: "hearts", ResourceDirs: []string{empty}}, log)
	assert.ErrorIs(t, err, effect.ErrEffectNotFound)

	p = newTestPlayer(t)
	require.NoError(t, loadInitialEffect(p, &conf.AppOptions{}, log))
	assert.Empty(t, p.Effect())
}

func TestBindCaptureSwitch(t *testing.T) {
	t.Cleanup(func() {
		mediactrl.SetCaptureEnabled(true)
		mediactrl.SetEffectEnabled(true)
		ui.ClearFrame()
	})
	mediactrl.SetCaptureEnabled(true)
	p := newTestPlayer(t)
	unbind := bindCaptureSwitch(p)
	assert.False(t, p.Paused())

	ui.Sink{}.Present(codec.BlackFrame(2, 2))
	mediactrl.ToggleCapture()
	assert.True(t, p.Paused())
	_, ok := ui.LatestFrame()
	assert.False(t, ok)

	mediactrl.SetEffectEnabled(false)
	assert.True(t, p.Paused())

	mediactrl.SetCaptureEnabled(true)
	assert.False(t, p.Paused())

	unbind()
	mediactrl.SetCaptureEnabled(false)
	assert.False(t, p.Paused())
}

func TestBindCaptureSwitchAppliesCurrentState(t *testing.T) {
	t.Cleanup(func() { mediactrl.SetCaptureEnabled(true) })
	mediactrl.SetCaptureEnabled(false)
	p := newTestPlayer(t)
	defer bindCaptureSwitch(p)()
	assert.True(t, p.Paused())
}
