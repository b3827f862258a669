// Package runtimetune applies process-wide GOMAXPROCS/GOMEMLIMIT tuning
// and exposes defaults (worker count, arena capacity) derived from the
// host's container-aware CPU and memory limits. It is opt-in: nothing in
// this module calls it implicitly.
package runtimetune

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/KimMachineGun/automemlimit/memlimit"
	"github.com/pbnjay/memory"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/appshiftgo/memorypool/internal/obslog"
)

var (
	once    sync.Once
	logger  *obslog.Logger
	applied atomic.Bool
)

// Option configures Init.
type Option func(*options)

type options struct {
	logger *obslog.Logger
}

// WithLogger routes Init's reports of automaxprocs/automemlimit failures
// through l. automaxprocs' own informational output is discarded.
func WithLogger(l *obslog.Logger) Option { return func(o *options) { o.logger = l } }

// Init sets GOMAXPROCS from the cgroup CPU quota (via automaxprocs) and a
// GOMEMLIMIT backstop from the cgroup memory limit (via automemlimit), if
// either can be determined. It is safe to call more than once; only the
// first call has effect. Callers that never call Init get the Go
// runtime's un-tuned defaults.
func Init(opts ...Option) {
	once.Do(func() {
		o := resolveOptions(opts)
		logger = o.logger
		undoMaxProcs, err := maxprocs.Set(maxprocs.Logger(func(format string, a ...any) {}))
		if err != nil {
			obslog.BlockAllocFailed(logger, "runtimetune.maxprocs", 0, err)
		} else {
			_ = undoMaxProcs
		}
		if _, err := memlimit.SetGoMemLimitWithOpts(
			memlimit.WithRatio(0.9),
			memlimit.WithProvider(memlimit.FromCgroup),
		); err != nil {
			obslog.BlockAllocFailed(logger, "runtimetune.memlimit", 0, err)
		}
		applied.Store(true)
	})
}

// Initialized reports whether Init has run (successfully attempted tuning,
// regardless of whether either adjustment actually applied).
func Initialized() bool {
	return applied.Load()
}

func resolveOptions(opts []Option) options {
	var o options
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// DefaultWorkerCount returns GOMAXPROCS(0), the number of workers an
// eventloop.Loop should start when none is specified.
func DefaultWorkerCount() int {
	n := runtime.GOMAXPROCS(0)
	if n < 1 {
		n = 1
	}
	return n
}

// DefaultArenaCapacity returns a stack-pool default block size scaled to
// a small fraction of total host memory (via pbnjay/memory), floored at
// the 1 MiB spec default and capped to avoid a single block dominating a
// constrained container.
func DefaultArenaCapacity() int {
	const (
		specDefault = 1 << 20
		maxDefault  = 64 << 20
	)
	total := memory.TotalMemory()
	if total == 0 {
		return specDefault
	}
	scaled := int(total / 2048)
	if scaled < specDefault {
		return specDefault
	}
	if scaled > maxDefault {
		return maxDefault
	}
	return scaled
}
