package cli

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCacheDir(t *testing.T) {
	// Clear XDG_CACHE_HOME to test default behavior
	t.Setenv("XDG_CACHE_HOME", "")
	os.Unsetenv("XDG_CACHE_HOME")

	dir, err := cacheDir()
	if err != nil {
		t.Fatalf("cacheDir() error: %v", err)
	}

	home, _ := os.UserHomeDir()
	expected := filepath.Join(home, ".cache", appName)
	if dir != expected {
		t.Errorf("cacheDir() = %q, want %q", dir, expected)
	}
}

func TestCacheDirXDG(t *testing.T) {
	customCache := filepath.Join(t.TempDir(), "custom-cache")
	t.Setenv("XDG_CACHE_HOME", customCache)

	dir, err := cacheDir()
	if err != nil {
		t.Fatalf("cacheDir() error: %v", err)
	}

	expected := filepath.Join(customCache, appName)
	if dir != expected {
		t.Errorf("cacheDir() with XDG_CACHE_HOME = %q, want %q", dir, expected)
	}
}

func TestConfigPathXDG(t *testing.T) {
	customConfig := filepath.Join(t.TempDir(), "config-home")
	t.Setenv("XDG_CONFIG_HOME", customConfig)

	path, err := configPath()
	if err != nil {
		t.Fatalf("configPath() error: %v", err)
	}

	expected := filepath.Join(customConfig, appName, "config.toml")
	if path != expected {
		t.Errorf("configPath() = %q, want %q", path, expected)
	}
}

func TestRootCommandSubcommands(t *testing.T) {
	root := New(io.Discard, LogInfo).RootCommand()

	want := []string{"build", "query", "layout", "validate", "export", "serve", "snapshot", "cache", "completion"}
	for _, name := range want {
		found := false
		for _, sub := range root.Commands() {
			if sub.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("RootCommand() missing subcommand %q", name)
		}
	}
}

func TestRootCommandUse(t *testing.T) {
	root := New(io.Discard, LogInfo).RootCommand()
	if root.Use != appName {
		t.Errorf("root.Use = %q, want %q", root.Use, appName)
	}
	if !root.SilenceUsage {
		t.Error("root command should silence usage on errors")
	}
}

func TestSetLogLevel(t *testing.T) {
	c := New(io.Discard, LogInfo)
	c.SetLogLevel(LogDebug)
	if c.Logger.GetLevel() != LogDebug {
		t.Errorf("log level = %v, want %v", c.Logger.GetLevel(), LogDebug)
	}
}

func TestNewCacheDisabled(t *testing.T) {
	store, err := newCache(true)
	if err != nil {
		t.Fatalf("newCache(true) error: %v", err)
	}
	defer store.Close()

	// A disabled cache never stores anything
	if err := store.Set(t.Context(), "k", []byte("v"), 0); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	if _, hit, _ := store.Get(t.Context(), "k"); hit {
		t.Error("disabled cache should never hit")
	}
}

func TestSplitList(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{"", 0},
		{"a", 1},
		{"a,b,c", 3},
		{" a , b ", 2},
		{"a,,b", 2},
	}
	for _, tt := range tests {
		if got := splitList(tt.raw); len(got) != tt.want {
			t.Errorf("splitList(%q) = %v, want %d entries", tt.raw, got, tt.want)
		}
	}
}

func TestPipelineOptions(t *testing.T) {
	opts := runOpts{dir: "records", tables: "A,B", mode: "both", refresh: true}
	popts := opts.pipelineOptions()

	if popts.Dir != "records" {
		t.Errorf("Dir = %q, want %q", popts.Dir, "records")
	}
	if len(popts.Tables) != 2 {
		t.Errorf("Tables = %v, want 2 entries", popts.Tables)
	}
	if popts.Mode != "both" {
		t.Errorf("Mode = %q, want %q", popts.Mode, "both")
	}
	if !popts.Refresh {
		t.Error("Refresh not carried over")
	}
	if !strings.Contains(strings.Join(popts.Tables, ","), "B") {
		t.Errorf("Tables = %v, missing B", popts.Tables)
	}
}
