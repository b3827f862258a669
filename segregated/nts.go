package segregated

import (
	"io"

	"github.com/appshiftgo/memorypool/internal/blk"
	"github.com/appshiftgo/memorypool/internal/obslog"
)

// NTS is the non-thread-safe variant: no synchronization.
type NTS struct {
	st *state
}

// Option configures a pool at construction.
type Option func(*options)

type options struct {
	logger *obslog.Logger
	name   string
}

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
		o.name = "segregated"
	}
	return o
}

// NewNTS constructs a pool of fixed-size itemSize slots, itemsPerBlock per
// block (<=0 selects DefaultItemsPerBlock).
func NewNTS(itemSize, itemsPerBlock int, opts ...Option) *NTS {
	o := resolveOptions(opts)
	return &NTS{st: newState(o.name, itemSize, itemsPerBlock, o.logger)}
}

func (p *NTS) Allocate() (blk.Ptr, error) { return p.st.allocate() }
func (p *NTS) Free(ptr blk.Ptr) error      { return p.st.free(ptr) }
func (p *NTS) Dump(w io.Writer)            { p.st.dump(w) }
