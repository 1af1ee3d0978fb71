package dataset

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/stwalsh4118/carprice/internal/logger"
)

// ErrLoad marks a failure to read or validate the source table. Nothing
// downstream can work without it, so callers treat it as fatal.
var ErrLoad = errors.New("dataset load failed")

// Loader reads the source table the first time Load is called and hands
// back the same Dataset on every later call.
type Loader struct {
	path string
	log  *logger.Logger

	once sync.Once
	ds   *Dataset
	err  error
}

// NewLoader creates a Loader for the table at path.
func NewLoader(path string, log *logger.Logger) *Loader {
	return &Loader{path: path, log: log}
}

// Load returns the cached Dataset, reading it on first use. A failed first
// read is cached too; the file is never read twice.
func (l *Loader) Load() (*Dataset, error) {
	l.once.Do(func() {
		l.ds, l.err = LoadFile(l.path)
		if l.err != nil {
			l.log.Error("Failed to load dataset", l.err, map[string]interface{}{
				"path": l.path,
			})
			return
		}
		rows, cols := l.ds.Shape()
		l.log.Info("Dataset loaded", map[string]interface{}{
			"path": l.path,
			"rows": rows,
			"cols": cols,
		})
	})
	return l.ds, l.err
}

// LoadFile reads and normalizes the table at path.
func LoadFile(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}
	defer f.Close()

	df, err := ReadTable(f, FormatFromFilename(path))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLoad, path, err)
	}

	ds, err := New(df)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLoad, path, err)
	}
	return ds, nil
}
