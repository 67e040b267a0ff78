package sink

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/sramlab/pufrecon/internal/render"
)

// LockName is the lock file taken in the output directory while writing.
const LockName = ".pufrecon.lock"

// FileSink writes images into Dir. Concurrent runs against the same
// directory are serialized through a lock file, and every image is written
// to a temporary file first and renamed into place.
type FileSink struct {
	Dir         string
	LockTimeout time.Duration
}

// NewFileSink returns a FileSink with a 10s lock timeout.
func NewFileSink(dir string) *FileSink {
	return &FileSink{Dir: dir, LockTimeout: 10 * time.Second}
}

// Write stores g as <Dir>/<name>.png.
func (s *FileSink) Write(ctx context.Context, name string, g *render.Grid) error {
	data, err := EncodePNG(g)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("cannot create output dir: %w", err)
	}
	unlock, err := s.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	dest := filepath.Join(s.Dir, fileName(name))
	tmp, err := os.CreateTemp(s.Dir, ".tmp-*.png")
	if err != nil {
		return fmt.Errorf("cannot create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("cannot write %s: %w", dest, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("cannot write %s: %w", dest, err)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("cannot move image into place: %w", err)
	}
	return nil
}

// Path returns where name would be written.
func (s *FileSink) Path(name string) string {
	return filepath.Join(s.Dir, fileName(name))
}

func (s *FileSink) lock(ctx context.Context) (func(), error) {
	lockPath := filepath.Join(s.Dir, LockName)
	l := flock.New(lockPath)
	deadline := time.Now().Add(s.LockTimeout)
	for {
		locked, err := l.TryLock()
		if err != nil {
			return func() {}, fmt.Errorf("cannot acquire output lock: %w", err)
		}
		if locked {
			return func() { _ = l.Unlock() }, nil
		}
		if time.Now().After(deadline) {
			return func() {}, fmt.Errorf("another run is writing to %s (lock: %s)", s.Dir, lockPath)
		}
		select {
		case <-ctx.Done():
			return func() {}, ctx.Err()
		case <-time.After(200 * time.Millisecond):
		}
	}
}
