package stackpool

import (
	"io"

	"github.com/appshiftgo/memorypool/internal/blk"
	"github.com/appshiftgo/memorypool/internal/obslog"
)

// NTS is the non-thread-safe variant: no synchronization. The caller must
// externally synchronize concurrent use.
type NTS struct {
	st *state
}

// Option configures a pool at construction.
type Option func(*options)

type options struct {
	maxSize int
	logger  *obslog.Logger
	name    string
}

// WithMaxSize installs a hard cap enforced as ExceedsMaxSize.
func WithMaxSize(n int) Option { return func(o *options) { o.maxSize = n } }

// WithLogger attaches a diagnostic logger. Passing nil (the default) is a
// supported quiet mode.
func WithLogger(l *obslog.Logger) Option { return func(o *options) { o.logger = l } }

// WithName sets the pool's diagnostic name, used in Dump and log lines.
func WithName(name string) Option { return func(o *options) { o.name = name } }

func resolveOptions(opts []Option) options {
	var o options
	for _, fn := range opts {
		fn(&o)
	}
	if o.name == "" {
		o.name = "stackpool"
	}
	return o
}

// NewNTS constructs a pool with the given default block size (0 selects
// DefaultBlockSize).
func NewNTS(defaultBlockSize int, opts ...Option) *NTS {
	o := resolveOptions(opts)
	return &NTS{st: newState(o.name, defaultBlockSize, o.maxSize, o.logger)}
}

func (p *NTS) Allocate(size int) (blk.Ptr, error)                  { return p.st.allocate(size) }
func (p *NTS) Reallocate(ptr blk.Ptr, newSize int) (blk.Ptr, error) { return p.st.reallocate(ptr, newSize) }
func (p *NTS) Free(ptr blk.Ptr) error                               { return p.st.free(ptr) }
func (p *NTS) StartScope()                                         { p.st.startScope() }
func (p *NTS) EndScope()                                           { p.st.endScope() }
func (p *NTS) Dump(w io.Writer)                                    { p.st.dump(w) }
