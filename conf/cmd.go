package conf

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/svanichkin/effectcam/codec"
	"github.com/svanichkin/effectcam/orient"
)

const (
	// DefaultEffect is loaded when resource dirs are configured and no
	// effect was asked for.
	DefaultEffect = "blur_bg"

	DefaultSurfaceWidth  = 720
	DefaultSurfaceHeight = 1280
	maxSurfaceSide       = 8192
)

var colorFilterKeys = []string{"red", "orange", "yellow", "green", "teal", "blue", "purple", "pink", "gray", "bw"}

// ColorFilters lists the accepted color filter names.
func ColorFilters() []string {
	return append([]string(nil), colorFilterKeys...)
}

var colorFilterSet = func() map[string]struct{} {
	m := make(map[string]struct{}, len(colorFilterKeys))
	for _, key := range colorFilterKeys {
		m[key] = struct{}{}
	}
	return m
}()

// AppOptions aggregates all CLI flags and configuration options required by the application.
type AppOptions struct {
	Verbose     bool
	ShowVersion bool
	ConfigPath  string

	Output orient.OutputOrientation
	Facing orient.CameraFacing
	Format codec.ImageFormat

	Effect   string
	NoEffect bool

	SurfaceWidth  int
	SurfaceHeight int

	RecordPath   string
	ReplayPath   string
	SnapshotDir  string
	ResourceDirs []string

	MaxFPS      int
	ColorFilter string
}

// FileConfig is the JSON config file layout. Empty fields keep defaults.
type FileConfig struct {
	Output       string   `json:"output,omitempty"`
	Camera       string   `json:"camera,omitempty"`
	Format       string   `json:"format,omitempty"`
	Effect       string   `json:"effect,omitempty"`
	Size         string   `json:"size,omitempty"`
	SnapshotsDir string   `json:"snapshots_dir,omitempty"`
	ResourceDirs []string `json:"resource_dirs,omitempty"`
}

// flagParseState remembers which options came from the command line so the
// config file does not override them.
type flagParseState struct {
	set map[string]bool
}

func (s *flagParseState) mark(key string) {
	if s.set == nil {
		s.set = make(map[string]bool)
	}
	s.set[key] = true
}

func (s *flagParseState) has(key string) bool {
	return s.set[key]
}

func defaultOptions() *AppOptions {
	return &AppOptions{
		Output:        orient.OutputLandscapeRight,
		Facing:        orient.FacingFront,
		Format:        codec.FormatI420,
		SurfaceWidth:  DefaultSurfaceWidth,
		SurfaceHeight: DefaultSurfaceHeight,
	}
}

// ParseCLI parses os.Args and the config file into an AppOptions structure.
func ParseCLI() (*AppOptions, error) {
	return ParseArgs(os.Args[1:])
}

// ParseArgs parses command-line arguments, resolves the config path and merges
// the config file beneath the flags. It performs only argument parsing and
// normalization.
func ParseArgs(args []string) (*AppOptions, error) {
	opts := defaultOptions()
	rawArgs := compactArgs(args)
	flagTokens, consumed := collectDashPrefixedArgs(rawArgs)
	state := &flagParseState{}
	if err := applyFlagTokens(flagTokens, opts, state); err != nil {
		return nil, err
	}
	if extra := remainingArgs(rawArgs, consumed); len(extra) > 0 {
		return nil, fmt.Errorf("unexpected positional arguments: %v", extra)
	}
	if opts.RecordPath != "" && opts.ReplayPath != "" {
		return nil, fmt.Errorf("-record and -replay cannot be combined")
	}

	resolvedCfg, err := resolveConfigPath(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("config path error: %w", err)
	}
	opts.ConfigPath = resolvedCfg

	fc, err := LoadConfigFile(resolvedCfg)
	switch {
	case err == nil:
		if err := mergeFileConfig(opts, fc, state); err != nil {
			return nil, fmt.Errorf("config %s: %w", resolvedCfg, err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, err
	}
	return opts, nil
}

// LoadConfigFile reads the JSON config at path.
func LoadConfigFile(path string) (*FileConfig, error) {
	if path == "" {
		return nil, fs.ErrNotExist
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var fc FileConfig
	if len(strings.TrimSpace(string(b))) == 0 {
		return &fc, nil
	}
	if err := json.Unmarshal(b, &fc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &fc, nil
}

func mergeFileConfig(opts *AppOptions, fc *FileConfig, state *flagParseState) error {
	if fc == nil {
		return nil
	}
	if v := strings.TrimSpace(fc.Output); v != "" && !state.has("output") {
		o, err := orient.ParseOutput(v)
		if err != nil {
			return err
		}
		opts.Output = o
	}
	if v := strings.TrimSpace(fc.Camera); v != "" && !state.has("camera") {
		f, err := orient.ParseFacing(v)
		if err != nil {
			return err
		}
		opts.Facing = f
	}
	if v := strings.TrimSpace(fc.Format); v != "" && !state.has("format") {
		f, err := codec.ParseImageFormat(v)
		if err != nil {
			return err
		}
		opts.Format = f
	}
	if v := strings.TrimSpace(fc.Effect); v != "" && !state.has("effect") {
		opts.Effect = v
	}
	if v := strings.TrimSpace(fc.Size); v != "" && !state.has("size") {
		w, h, err := ParseSize(v)
		if err != nil {
			return err
		}
		opts.SurfaceWidth, opts.SurfaceHeight = w, h
	}
	if v := strings.TrimSpace(fc.SnapshotsDir); v != "" && !state.has("snapshots") {
		resolved, err := resolvePathAllowingHome(v)
		if err != nil {
			return err
		}
		opts.SnapshotDir = resolved
	}
	for _, dir := range fc.ResourceDirs {
		dir = strings.TrimSpace(dir)
		if dir == "" {
			continue
		}
		resolved, err := resolvePathAllowingHome(dir)
		if err != nil {
			return err
		}
		opts.ResourceDirs = append(opts.ResourceDirs, resolved)
	}
	return nil
}

// ParseSize parses "WxH" with both sides positive and even.
func ParseSize(s string) (int, int, error) {
	parts := strings.SplitN(strings.ToLower(strings.TrimSpace(s)), "x", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("size %q: want WxH", s)
	}
	w, errW := strconv.Atoi(strings.TrimSpace(parts[0]))
	h, errH := strconv.Atoi(strings.TrimSpace(parts[1]))
	if errW != nil || errH != nil {
		return 0, 0, fmt.Errorf("size %q: want WxH", s)
	}
	if w <= 0 || h <= 0 || w > maxSurfaceSide || h > maxSurfaceSide {
		return 0, 0, fmt.Errorf("size %q out of range", s)
	}
	if w%2 != 0 || h%2 != 0 {
		return 0, 0, fmt.Errorf("size %q: sides must be even", s)
	}
	return w, h, nil
}

// resolveConfigPath normalizes the config file path, expanding "~" and
// converting it to an absolute path. When cfg is empty, it defaults to
// $XDG_CONFIG_HOME/effectcam/config.json or ~/.config/effectcam/config.json. If
// cfg is a bare filename without an extension (e.g. "studio"), it is treated as
// a profile name inside the default config directory ("studio.json").
func resolveConfigPath(cfg string) (string, error) {
	raw := strings.TrimSpace(cfg)

	switch {
	case raw == "":
		if dir, err := defaultConfigDir(); err == nil {
			raw = filepath.Join(dir, "config.json")
		} else {
			raw = "config.json"
		}
	case filepath.Base(raw) == raw && filepath.Ext(raw) == "":
		if dir, err := defaultConfigDir(); err == nil {
			raw = filepath.Join(dir, raw+".json")
		} else {
			raw = raw + ".json"
		}
	}
	return resolvePathAllowingHome(raw)
}

func defaultConfigDir() (string, error) {
	d, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, "effectcam"), nil
}

func resolvePathAllowingHome(path string) (string, error) {
	if strings.HasPrefix(path, "~/") {
		h, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(h, path[2:])
		}
	}
	return filepath.Abs(path)
}

func compactArgs(args []string) []string {
	if len(args) == 0 {
		return args
	}
	out := make([]string, 0, len(args))
	for _, raw := range args {
		if trimmed := strings.TrimSpace(raw); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func collectDashPrefixedArgs(args []string) ([]string, map[int]struct{}) {
	consumed := make(map[int]struct{})
	if len(args) == 0 {
		return nil, consumed
	}
	flags := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		token := args[i]
		if token == "--" {
			consumed[i] = struct{}{}
			break
		}
		if !strings.HasPrefix(token, "-") || token == "-" {
			continue
		}
		consumed[i] = struct{}{}
		keyToken := token
		if idx := strings.Index(token, "="); idx != -1 {
			keyToken = token[:idx]
		}
		key := normalizeFlagKey(keyToken)
		combined := token
		if !strings.Contains(token, "=") && flagRequiresValue(key) && i+1 < len(args) {
			next := args[i+1]
			if next != "--" && !strings.HasPrefix(next, "-") {
				consumed[i+1] = struct{}{}
				combined = fmt.Sprintf("%s=%s", token, next)
				i++
			}
		}
		flags = append(flags, combined)
	}
	return flags, consumed
}

func remainingArgs(args []string, consumed map[int]struct{}) []string {
	if len(args) == 0 {
		return nil
	}
	extra := make([]string, 0, len(args))
	for idx, token := range args {
		if _, ok := consumed[idx]; ok {
			continue
		}
		trimmed := strings.TrimSpace(token)
		if trimmed == "" {
			continue
		}
		extra = append(extra, trimmed)
	}
	return extra
}

func applyFlagTokens(tokens []string, opts *AppOptions, state *flagParseState) error {
	for _, token := range tokens {
		key, value, hasValue := splitFlagToken(token)
		if flagRequiresValue(key) && (!hasValue || strings.TrimSpace(value) == "") {
			return fmt.Errorf("-%s requires a value", key)
		}
		switch key {
		case "v", "verbose":
			boolVal := true
			if hasValue && value != "" {
				parsed, err := strconv.ParseBool(value)
				if err != nil {
					return fmt.Errorf("invalid value for -v: %q", value)
				}
				boolVal = parsed
			}
			opts.Verbose = boolVal
		case "version":
			opts.ShowVersion = true
		case "config":
			if opts.ConfigPath != "" && opts.ConfigPath != value {
				return fmt.Errorf("-config specified multiple times")
			}
			opts.ConfigPath = value
		case "output":
			o, err := orient.ParseOutput(value)
			if err != nil {
				return err
			}
			opts.Output = o
		case "camera":
			f, err := orient.ParseFacing(value)
			if err != nil {
				return err
			}
			opts.Facing = f
		case "format":
			f, err := codec.ParseImageFormat(value)
			if err != nil {
				return err
			}
			opts.Format = f
		case "effect":
			if opts.NoEffect {
				return fmt.Errorf("-effect conflicts with -no-effect")
			}
			opts.Effect = strings.TrimSpace(value)
		case "no-effect":
			if opts.Effect != "" {
				return fmt.Errorf("-effect conflicts with -no-effect")
			}
			opts.NoEffect = true
		case "size":
			w, h, err := ParseSize(value)
			if err != nil {
				return err
			}
			opts.SurfaceWidth, opts.SurfaceHeight = w, h
		case "record":
			opts.RecordPath = value
		case "replay":
			opts.ReplayPath = value
		case "snapshots":
			resolved, err := resolvePathAllowingHome(value)
			if err != nil {
				return err
			}
			opts.SnapshotDir = resolved
		case "fps":
			n, err := strconv.Atoi(value)
			if err != nil || n < 0 || n > 240 {
				return fmt.Errorf("invalid fps %q", value)
			}
			opts.MaxFPS = n
		default:
			if key == "" {
				return fmt.Errorf("unknown flag %q", token)
			}
			if _, ok := colorFilterSet[key]; ok {
				opts.ColorFilter = key
				continue
			}
			return fmt.Errorf("unknown flag %q", token)
		}
		if state != nil {
			state.mark(key)
		}
	}
	return nil
}

func splitFlagToken(token string) (string, string, bool) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return "", "", false
	}
	parts := strings.SplitN(trimmed, "=", 2)
	key := normalizeFlagKey(parts[0])
	if len(parts) == 1 {
		return key, "", false
	}
	return key, parts[1], true
}

func normalizeFlagKey(raw string) string {
	trimmed := strings.TrimSpace(raw)
	trimmed = strings.TrimLeft(trimmed, "-")
	return strings.ToLower(trimmed)
}

func flagRequiresValue(key string) bool {
	switch key {
	case "config", "output", "camera", "format", "effect", "size", "record", "replay", "snapshots", "fps":
		return true
	default:
		return false
	}
}
