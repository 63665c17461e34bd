package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	t.Parallel()

	cfg, err := Parse("")
	require.NoError(t, err)
	assert.Equal(t, DefaultDBPath, cfg.DBPath)
	assert.Equal(t, DefaultMaxDepth, cfg.MaxDepth)
	assert.Equal(t, DefaultLogLevel, cfg.LogLevel)
	assert.Equal(t, []string{"**.py"}, cfg.Paths.Include)
	assert.True(t, cfg.UseParallel())
	assert.Zero(t, cfg.Workers)
}

func TestParse_AllFields(t *testing.T) {
	t.Parallel()

	cfg, err := Parse(`
db_path = "out/usage.db"
max_depth = 200
workers = 4
parallel = false
log_level = "debug"

[paths]
include = ["src/**.py"]
exclude = ["**/migrations/**", "**_test.py"]

[report]
scripts_dir = "reports"
`)
	require.NoError(t, err)
	assert.Equal(t, "out/usage.db", cfg.DBPath)
	assert.Equal(t, 200, cfg.MaxDepth)
	assert.Equal(t, 4, cfg.Workers)
	assert.False(t, cfg.UseParallel())
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, []string{"src/**.py"}, cfg.Paths.Include)
	assert.Len(t, cfg.Paths.Exclude, 2)
	assert.Equal(t, "reports", cfg.Report.ScriptsDir)
}

func TestParse_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data string
		want string
	}{
		{"syntax", `db_path = `, "config:"},
		{"negative depth", `max_depth = -1`, "max_depth"},
		{"negative workers", `workers = -2`, "workers"},
		{"log level", `log_level = "loud"`, "invalid log level"},
		{"pattern", "[paths]\nexclude = [\"[\"]", "bad pattern"},
		{"unknown key", `dbpath = "x"`, "unknown keys: dbpath"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.data)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestDiscover(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg, err := Discover(dir)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("workers = 2\n"), 0644))
	cfg, err = Discover(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Workers)
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	for name, want := range map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	} {
		got, err := ParseLevel(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}
}

func TestMatcher(t *testing.T) {
	t.Parallel()

	m, err := NewMatcher([]string{"**.py"}, []string{"build/**", "**/test_*.py"})
	require.NoError(t, err)

	tests := []struct {
		path string
		want bool
	}{
		{"main.py", true},
		{"pkg/sub/mod.py", true},
		{"./pkg/mod.py", true},
		{"README.md", false},
		{"build/gen.py", false},
		{"pkg/test_mod.py", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, m.Match(tt.path), tt.path)
	}

	assert.True(t, m.SkipDir("build"))
	assert.False(t, m.SkipDir("pkg"))
}

func TestMatcher_EmptyIncludeAcceptsAll(t *testing.T) {
	t.Parallel()

	m, err := NewMatcher(nil, nil)
	require.NoError(t, err)
	assert.True(t, m.Match("anything/at/all.txt"))
	assert.False(t, m.SkipDir("src"))
}
