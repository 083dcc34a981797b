package codec

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// SnapshotName is the file name used for a snapshot taken at t.
func SnapshotName(t time.Time) string {
	return fmt.Sprintf("snapshot-%s.%03d.webp", t.Format("20060102-150405"), t.Nanosecond()/int(time.Millisecond))
}

// SaveSnapshot writes f as WebP into dir and returns the file path. The
// directory is created when missing. A partial file is removed on failure.
func SaveSnapshot(dir string, f Frame, t time.Time) (string, error) {
	if !f.Valid() {
		return "", ErrBadFrame
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("snapshot dir: %w", err)
	}
	path := filepath.Join(dir, SnapshotName(t))
	out, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("snapshot: %w", err)
	}
	if err := EncodeWebP(out, f); err != nil {
		out.Close()
		os.Remove(path)
		return "", fmt.Errorf("encode snapshot: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("snapshot: %w", err)
	}
	return path, nil
}
