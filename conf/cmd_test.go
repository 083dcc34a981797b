package conf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/svanichkin/effectcam/codec"
	"github.com/svanichkin/effectcam/orient"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func missingConfig(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "none.json")
}

func TestParseArgsDefaults(t *testing.T) {
	opts, err := ParseArgs([]string{"-config", missingConfig(t)})
	require.NoError(t, err)
	assert.Equal(t, orient.OutputLandscapeRight, opts.Output)
	assert.Equal(t, orient.FacingFront, opts.Facing)
	assert.Equal(t, codec.FormatI420, opts.Format)
	assert.Equal(t, DefaultSurfaceWidth, opts.SurfaceWidth)
	assert.Equal(t, DefaultSurfaceHeight, opts.SurfaceHeight)
	assert.False(t, opts.Verbose)
	assert.True(t, filepath.IsAbs(opts.ConfigPath))
}

func TestParseArgsEveryFlag(t *testing.T) {
	snaps := t.TempDir()
	opts, err := ParseArgs([]string{
		"-v",
		"-config=" + missingConfig(t),
		"-output", "landscape-right",
		"--camera=back",
		"-format", "NV12",
		"-effect", "blur_bg",
		"-size", "480x640",
		"-record", "out.ecam",
		"-snapshots", snaps,
		"-fps=15",
		"-teal",
	})
	require.NoError(t, err)
	assert.True(t, opts.Verbose)
	assert.Equal(t, orient.OutputLandscapeRight, opts.Output)
	assert.Equal(t, orient.FacingBack, opts.Facing)
	assert.Equal(t, codec.FormatNV12, opts.Format)
	assert.Equal(t, "blur_bg", opts.Effect)
	assert.Equal(t, 480, opts.SurfaceWidth)
	assert.Equal(t, 640, opts.SurfaceHeight)
	assert.Equal(t, "out.ecam", opts.RecordPath)
	assert.Equal(t, snaps, opts.SnapshotDir)
	assert.Equal(t, 15, opts.MaxFPS)
	assert.Equal(t, "teal", opts.ColorFilter)
}

func TestParseArgsErrors(t *testing.T) {
	cfg := missingConfig(t)
	cases := map[string][]string{
		"positional":        {"-config", cfg, "extra"},
		"unknown flag":      {"-config", cfg, "-nope"},
		"missing value":     {"-config", cfg, "-output"},
		"bad output":        {"-config", cfg, "-output", "sideways"},
		"bad camera":        {"-config", cfg, "-camera", "left"},
		"bad format":        {"-config", cfg, "-format", "rgb"},
		"bad size":          {"-config", cfg, "-size", "10"},
		"odd size":          {"-config", cfg, "-size", "11x20"},
		"bad fps":           {"-config", cfg, "-fps", "fast"},
		"effect conflict":   {"-config", cfg, "-effect", "x", "-no-effect"},
		"record and replay": {"-config", cfg, "-record", "a", "-replay", "b"},
		"bad verbose":       {"-config", cfg, "-v=maybe"},
		"config twice":      {"-config", cfg, "-config", cfg + "2"},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseArgs(args)
			assert.Error(t, err)
		})
	}
}

func TestConfigFileAppliesUnderFlags(t *testing.T) {
	res := t.TempDir()
	path := writeConfig(t, `{
  "output": "landscape_left",
  "camera": "back",
  "format": "nv12",
  "effect": "hearts",
  "size": "360x640",
  "resource_dirs": ["`+filepath.ToSlash(res)+`"]
}`)

	opts, err := ParseArgs([]string{"-config", path})
	require.NoError(t, err)
	assert.Equal(t, orient.OutputLandscapeLeft, opts.Output)
	assert.Equal(t, orient.FacingBack, opts.Facing)
	assert.Equal(t, codec.FormatNV12, opts.Format)
	assert.Equal(t, "hearts", opts.Effect)
	assert.Equal(t, 360, opts.SurfaceWidth)
	assert.Equal(t, []string{res}, opts.ResourceDirs)

	opts, err = ParseArgs([]string{"-config", path, "-output", "portrait", "-effect", "stars", "-size", "100x200"})
	require.NoError(t, err)
	assert.Equal(t, orient.OutputPortrait, opts.Output)
	assert.Equal(t, orient.FacingBack, opts.Facing)
	assert.Equal(t, "stars", opts.Effect)
	assert.Equal(t, 100, opts.SurfaceWidth)
	assert.Equal(t, 200, opts.SurfaceHeight)
}

func TestConfigFileErrors(t *testing.T) {
	_, err := ParseArgs([]string{"-config", writeConfig(t, "{not json")})
	assert.Error(t, err)

	_, err = ParseArgs([]string{"-config", writeConfig(t, `{"output":"diagonal"}`)})
	assert.Error(t, err)

	opts, err := ParseArgs([]string{"-config", writeConfig(t, "")})
	require.NoError(t, err)
	assert.Equal(t, orient.OutputLandscapeRight, opts.Output)
}

func TestParseSize(t *testing.T) {
	w, h, err := ParseSize(" 720X1280 ")
	require.NoError(t, err)
	assert.Equal(t, 720, w)
	assert.Equal(t, 1280, h)

	for _, bad := range []string{"", "x", "0x10", "-2x4", "720", "axb", "100000x2"} {
		_, _, err := ParseSize(bad)
		assert.Error(t, err, bad)
	}
}

func TestResolveConfigPathProfiles(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	dir, err := defaultConfigDir()
	require.NoError(t, err)

	p, err := resolveConfigPath("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "config.json"), p)

	p, err = resolveConfigPath("studio")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "studio.json"), p)
}

func TestSplitFlagToken(t *testing.T) {
	key, value, ok := splitFlagToken("--Size=2x2")
	assert.Equal(t, "size", key)
	assert.Equal(t, "2x2", value)
	assert.True(t, ok)

	key, _, ok = splitFlagToken("-no-effect")
	assert.Equal(t, "no-effect", key)
	assert.False(t, ok)
}

func TestColorFiltersIsACopy(t *testing.T) {
	got := ColorFilters()
	require.NotEmpty(t, got)
	got[0] = "changed"
	assert.NotEqual(t, "changed", ColorFilters()[0])
}
