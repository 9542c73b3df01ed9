// Package config holds the process-wide settings resolved once at startup.
//
// The command reads the environment exactly once through Load and passes the
// resulting Config down. Nothing below cmd/ reads environment variables.
package config

import (
	"os"
	"path/filepath"
	"strings"
)

// Environment variable names.
const (
	EnvCache         = "MESHBATCH_CACHE"
	EnvTemplatesPath = "MESHBATCH_PIPELINE_TEMPLATES_PATH"
	EnvLogFormat     = "MESHBATCH_LOG_FORMAT"
	EnvBinPath       = "MESHBATCH_BIN_PATH"
)

// DefaultCacheDirName is the folder created under the temp dir when no cache is configured.
const DefaultCacheDirName = "MeshbatchCache"

// Config is immutable once built.
type Config struct {
	// CacheDir is the default cache folder used when --cache is not given.
	CacheDir string
	// TemplatesPath lists extra folders searched for named pipeline templates.
	TemplatesPath []string
	// LogFormat is "text" or "json".
	LogFormat string
	// BinPath lists folders searched for node executables before $PATH.
	BinPath []string
}

// Load builds a Config from getenv. A nil getenv means os.Getenv.
func Load(getenv func(string) string) Config {
	if getenv == nil {
		getenv = os.Getenv
	}
	cfg := Config{
		CacheDir:      getenv(EnvCache),
		TemplatesPath: splitList(getenv(EnvTemplatesPath)),
		LogFormat:     strings.ToLower(getenv(EnvLogFormat)),
		BinPath:       splitList(getenv(EnvBinPath)),
	}
	if cfg.CacheDir == "" {
		cfg.CacheDir = filepath.Join(os.TempDir(), DefaultCacheDirName)
	}
	if cfg.LogFormat != "json" {
		cfg.LogFormat = "text"
	}
	return cfg
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	var out []string
	for _, p := range filepath.SplitList(v) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
