// Package config holds NogDB's open-time options.
//
// NogDB is an embedded library, not a deployed service, so configuration is
// constructed explicitly by the embedder rather than read from the
// environment at process start. What's kept from that convention is the
// "collect every problem, return one error" shape of Validate.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Options configures an opened NogDB database.
type Options struct {
	// Path is the directory the database lives in. Created if it does not
	// already exist.
	Path string
	// MaxDBs bounds how many named sub-databases (tables) the environment
	// may open at once. Defaults to 1024.
	MaxDBs uint64
	// MapSize bounds the size, in bytes, the environment's memory map may
	// grow to. Defaults to 1 GiB.
	MapSize uint64
	// MaxReaders bounds the number of concurrent read-only transactions.
	// Defaults to 65536.
	MaxReaders uint
	// Logger receives NogDB's internal diagnostic events. Defaults to a
	// disabled logger — supplying one never changes behavior, only
	// observability.
	Logger zerolog.Logger
}

const (
	defaultMaxDBs     = 1024
	defaultMapSize    = 1 << 30
	defaultMaxReaders = 65536
)

// WithDefaults returns a copy of o with zero-valued fields filled in.
func (o Options) WithDefaults() Options {
	if o.MaxDBs == 0 {
		o.MaxDBs = defaultMaxDBs
	}
	if o.MapSize == 0 {
		o.MapSize = defaultMapSize
	}
	if o.MaxReaders == 0 {
		o.MaxReaders = defaultMaxReaders
	}
	return o
}

// Validate collects every problem with o and returns them as a single
// error, or nil if o is usable as-is.
func (o Options) Validate() error {
	var problems []string

	if strings.TrimSpace(o.Path) == "" {
		problems = append(problems, "path must not be empty")
	}
	if o.MaxDBs == 0 {
		problems = append(problems, "max dbs must be greater than zero (leave unset to use the default)")
	}
	if o.MapSize != 0 && o.MapSize < 64*1024 {
		problems = append(problems, "map size must be at least 64KiB")
	}

	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
}

// EnsurePath creates o.Path if it does not already exist.
func (o Options) EnsurePath() error {
	return os.MkdirAll(o.Path, 0o755)
}
