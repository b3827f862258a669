// Package poolconfig loads TOML configuration for pools, the execution
// queue, and the event loop, so a process can tune block sizes and worker
// counts without recompiling.
package poolconfig

import (
	"io"
	"os"

	"github.com/BurntSushi/toml"
)

// StackPoolConfig configures a stackpool constructor.
type StackPoolConfig struct {
	DefaultBlockSize int    `toml:"default_block_size"`
	MaxSize          int    `toml:"max_size"`
	Name             string `toml:"name"`
}

// SegregatedPoolConfig configures a segregated constructor.
type SegregatedPoolConfig struct {
	ItemSize      int    `toml:"item_size"`
	ItemsPerBlock int    `toml:"items_per_block"`
	Name          string `toml:"name"`
}

// ExecQueueConfig configures an execqueue.Queue.
type ExecQueueConfig struct {
	Capacity int `toml:"capacity"`
}

// EventLoopConfig configures an eventloop.Loop.
type EventLoopConfig struct {
	WorkerCount     int  `toml:"worker_count"`
	MaxEventsPerPop int  `toml:"max_events_per_pop"`
	AutoTune        bool `toml:"auto_tune"`
	Queue           ExecQueueConfig `toml:"queue"`
}

// Config is the root document: zero or more named pools, plus at most one
// queue and one loop section.
type Config struct {
	StackPools      map[string]StackPoolConfig      `toml:"stack_pool"`
	SegregatedPools map[string]SegregatedPoolConfig `toml:"segregated_pool"`
	Queue           ExecQueueConfig                 `toml:"queue"`
	Loop            EventLoopConfig                 `toml:"loop"`
}

// LoadTOML reads and decodes a Config from path.
func LoadTOML(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer f.Close()
	return DecodeTOML(f)
}

// DecodeTOML decodes a Config from r.
func DecodeTOML(r io.Reader) (Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// EncodeTOML writes cfg to w, for round-tripping a dumped default config.
func EncodeTOML(w io.Writer, cfg Config) error {
	return toml.NewEncoder(w).Encode(cfg)
}
