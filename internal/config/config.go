// Package config loads the optional .apiforest.toml project file.
package config

// FileName is the config file looked up in the indexed root.
const FileName = ".apiforest.toml"

// Defaults applied when a field is left empty.
const (
	DefaultDBPath   = ".apiforest/index.db"
	DefaultMaxDepth = 1000
	DefaultLogLevel = "warn"
)

// Config is the decoded project file. Workers caps parallel analysis; 0
// means one worker per CPU.
type Config struct {
	DBPath   string `toml:"db_path"`
	MaxDepth int    `toml:"max_depth"`
	Workers  int    `toml:"workers"`
	Parallel *bool  `toml:"parallel"`
	LogLevel string `toml:"log_level"`

	Paths  Paths  `toml:"paths"`
	Report Report `toml:"report"`
}

// Paths filters the files considered for indexing. Patterns are globs over
// slash-separated paths relative to the indexed root; "**" crosses
// directories and "*" does not.
type Paths struct {
	Include []string `toml:"include"`
	Exclude []string `toml:"exclude"`
}

type Report struct {
	ScriptsDir string `toml:"scripts_dir"`
}

// UseParallel reports whether parallel indexing is enabled.
func (c *Config) UseParallel() bool {
	return c.Parallel == nil || *c.Parallel
}
