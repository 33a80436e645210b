package app

import (
	"fmt"
	"math/rand"

	"github.com/centic-tools/centic-ctl/internal/api"
	"github.com/centic-tools/centic-ctl/internal/audit"
	"github.com/centic-tools/centic-ctl/internal/config"
	"github.com/centic-tools/centic-ctl/internal/logging"
	"github.com/centic-tools/centic-ctl/internal/metrics"
	"github.com/centic-tools/centic-ctl/internal/runner"
	"github.com/centic-tools/centic-ctl/internal/schedule"
)

// App holds the dependencies shared by commands
type App struct {
	// Clock drives jitter and schedule waits
	Clock schedule.Clock

	// NewFactory builds the per-proxy client factory from base options
	NewFactory func(api.Options) api.Factory

	// Rand seeds claim jitter; nil uses a time-based source
	Rand *rand.Rand
}

// Option is a function that configures the App
type Option func(*App)

// WithClock sets a custom clock
func WithClock(c schedule.Clock) Option {
	return func(a *App) {
		a.Clock = c
	}
}

// WithFactory sets a custom client factory constructor
func WithFactory(fn func(api.Options) api.Factory) Option {
	return func(a *App) {
		a.NewFactory = fn
	}
}

// WithRand sets the jitter source
func WithRand(rng *rand.Rand) Option {
	return func(a *App) {
		a.Rand = rng
	}
}

// New creates a new App with the given options.
func New(opts ...Option) *App {
	app := &App{
		Clock:      schedule.RealClock{},
		NewFactory: api.NewFactory,
	}

	for _, opt := range opts {
		opt(app)
	}

	return app
}

// ClientOptions returns the API client options for cfg.
func (a *App) ClientOptions(cfg *config.Config) api.Options {
	return api.Options{
		BaseURL:   cfg.BaseURL,
		Timeout:   cfg.RequestTimeout.Duration,
		UserAgent: cfg.UserAgent,
		Logger:    logging.Logger,
	}
}

// Factory returns the client factory for cfg.
func (a *App) Factory(cfg *config.Config) api.Factory {
	return a.NewFactory(a.ClientOptions(cfg))
}

// RunOptions are the per-invocation settings of the claim loop that do not
// come from the config file
type RunOptions struct {
	Proxies []string
	// Offset is the position of tokens[0] in the token file
	Offset  int
	Metrics *metrics.Recorder
	Once    bool
	OnPass  func(runner.PassResult)
}

// Runner builds a claim loop for tokens from cfg and paths.
func (a *App) Runner(cfg *config.Config, paths *config.Paths, tokens []string, ro RunOptions) (*runner.Runner, error) {
	sched, err := schedule.Parse(cfg.Schedule)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule: %w", err)
	}

	opts := []runner.Option{
		runner.WithProxies(ro.Proxies),
		runner.WithReferralCode(cfg.ReferralCode),
		runner.WithJitter(cfg.Jitter()),
		runner.WithFailurePause(cfg.FailurePause.Duration),
		runner.WithSchedule(sched),
		runner.WithClock(a.Clock),
		runner.WithLogger(logging.Logger),
		runner.WithOnce(ro.Once),
		runner.WithAccountOffset(ro.Offset),
	}
	if a.Rand != nil {
		opts = append(opts, runner.WithRand(a.Rand))
	}
	if ro.Metrics != nil {
		opts = append(opts, runner.WithMetrics(ro.Metrics))
	}
	if cfg.AuditLog {
		opts = append(opts, runner.WithAuditLogger(audit.NewLogger(paths.AuditDir)))
	}
	if ro.OnPass != nil {
		opts = append(opts, runner.WithPassHook(ro.OnPass))
	}

	return runner.New(tokens, a.Factory(cfg), opts...), nil
}

// Default is the default application instance
var Default = New()

// SetDefault sets the default application instance (used for testing)
func SetDefault(app *App) {
	Default = app
}

// ResetDefault resets to the default application instance
func ResetDefault() {
	Default = New()
}
