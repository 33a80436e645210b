// Package testutil provides test utilities for claimer tests
package testutil

import (
	"testing"
	"time"

	"github.com/centic-tools/centic-ctl/internal/config"
)

// TestEnv holds the test environment
type TestEnv struct {
	T       *testing.T
	DataDir string
	API     *FakeAPI
	Config  *config.Config
	Paths   *config.Paths
	Clock   *FakeClock
}

// NewTestEnv creates a data directory, a fake API and a config pointing at
// it with all delays disabled.
func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()

	dataDir := t.TempDir()
	api := NewFakeAPI(t)

	cfg := config.Default()
	cfg.BaseURL = api.BaseURL()
	cfg.JitterMin = config.Duration{}
	cfg.JitterMax = config.Duration{}
	cfg.FailurePause = config.Duration{}
	cfg.RequestTimeout = config.Duration{Duration: 5 * time.Second}

	paths, err := config.ResolvePaths(dataDir, "", cfg)
	if err != nil {
		t.Fatalf("Failed to resolve paths: %v", err)
	}

	return &TestEnv{
		T:       t,
		DataDir: dataDir,
		API:     api,
		Config:  cfg,
		Paths:   paths,
		Clock:   NewFakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)),
	}
}

// WriteTokens writes tokens.txt in the data directory.
func (e *TestEnv) WriteTokens(tokens ...string) string {
	e.T.Helper()
	return WriteLines(e.T, e.DataDir, e.Config.TokensFile, tokens...)
}

// WriteProxies writes proxy.txt in the data directory.
func (e *TestEnv) WriteProxies(proxies ...string) string {
	e.T.Helper()
	return WriteLines(e.T, e.DataDir, e.Config.ProxyFile, proxies...)
}

// WriteConfig saves the environment's config as centic.toml.
func (e *TestEnv) WriteConfig() string {
	e.T.Helper()
	if err := config.Save(e.Paths.ConfigFile, e.Config); err != nil {
		e.T.Fatalf("Failed to save config: %v", err)
	}
	return e.Paths.ConfigFile
}
