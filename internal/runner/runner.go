// Package runner drives claim passes over all accounts on a schedule.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/centic-tools/centic-ctl/internal/api"
	"github.com/centic-tools/centic-ctl/internal/audit"
	"github.com/centic-tools/centic-ctl/internal/logging"
	"github.com/centic-tools/centic-ctl/internal/metrics"
	"github.com/centic-tools/centic-ctl/internal/proxy"
	"github.com/centic-tools/centic-ctl/internal/schedule"
)

// ErrNoTokens is returned before any request when the token list is empty.
var ErrNoTokens = errors.New("no tokens to process")

// PassResult counts what happened during one pass.
type PassResult struct {
	Accounts       int
	FailedAccounts int
	Unclaimed      int
	Claimed        int
	NotFound       int
	ClaimFailed    int
}

// Runner claims tasks for every token, one account at a time.
type Runner struct {
	tokens   []string
	factory  api.Factory
	rotator  *proxy.Rotator
	referral string
	jitter   schedule.Jitter
	pause    time.Duration
	sched    cron.Schedule
	clock    schedule.Clock
	rng      *rand.Rand
	metrics  *metrics.Recorder
	auditLog *audit.Logger
	log      *slog.Logger
	once     bool
	offset   int
	onPass   func(PassResult)
}

// Option configures a Runner.
type Option func(*Runner)

// WithProxies sets the proxy lines rotated across accounts.
func WithProxies(proxies []string) Option {
	return func(r *Runner) {
		r.rotator = proxy.NewRotator(proxies)
	}
}

// WithReferralCode sets the invite code submitted for each account.
// An empty code skips the invite call.
func WithReferralCode(code string) Option {
	return func(r *Runner) {
		r.referral = code
	}
}

// WithJitter sets the random delay before each claim.
func WithJitter(j schedule.Jitter) Option {
	return func(r *Runner) {
		r.jitter = j
	}
}

// WithFailurePause sets the pause after a failed claim.
func WithFailurePause(d time.Duration) Option {
	return func(r *Runner) {
		r.pause = d
	}
}

// WithSchedule sets when passes run.
func WithSchedule(s cron.Schedule) Option {
	return func(r *Runner) {
		r.sched = s
	}
}

// WithClock replaces the wall clock.
func WithClock(c schedule.Clock) Option {
	return func(r *Runner) {
		r.clock = c
	}
}

// WithRand sets the source used for jitter.
func WithRand(rng *rand.Rand) Option {
	return func(r *Runner) {
		r.rng = rng
	}
}

// WithMetrics sets the recorder for pass and request counters.
func WithMetrics(m *metrics.Recorder) Option {
	return func(r *Runner) {
		r.metrics = m
	}
}

// WithAuditLogger sets the audit logger for recording claim events.
func WithAuditLogger(logger *audit.Logger) Option {
	return func(r *Runner) {
		r.auditLog = logger
	}
}

// WithLogger replaces the package logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) {
		r.log = l
	}
}

// WithOnce makes Run return after a single pass.
func WithOnce(once bool) Option {
	return func(r *Runner) {
		r.once = once
	}
}

// WithAccountOffset shifts account labels, so that a runner over a subset
// of tokens.txt keeps the labels of the full list.
func WithAccountOffset(n int) Option {
	return func(r *Runner) {
		r.offset = n
	}
}

// WithPassHook registers a function called after every completed pass.
func WithPassHook(fn func(PassResult)) Option {
	return func(r *Runner) {
		r.onPass = fn
	}
}

// New creates a Runner for tokens. newClient builds one API client per
// account, given the proxy picked for it.
func New(tokens []string, newClient api.Factory, opts ...Option) *Runner {
	r := &Runner{
		tokens:  append([]string(nil), tokens...),
		factory: newClient,
		rotator: proxy.NewRotator(nil),
		pause:   time.Second,
		jitter:  schedule.Jitter{Min: time.Second, Max: 3 * time.Second},
		sched:   cron.Every(time.Hour),
		clock:   schedule.RealClock{},
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.rng == nil {
		r.rng = rand.New(rand.NewSource(r.clock.Now().UnixNano()))
	}
	if r.log == nil {
		r.log = logging.Logger
	}
	return r
}

// Run processes all accounts, waits for the next scheduled tick and
// repeats. It blocks until ctx is cancelled and then returns ctx.Err().
func (r *Runner) Run(ctx context.Context) error {
	if len(r.tokens) == 0 {
		return ErrNoTokens
	}
	if !r.rotator.Enabled() {
		r.log.Warn("no proxies configured, running without proxy")
	}
	r.log.Debug("starting claim loop", "accounts", len(r.tokens), "proxies", r.rotator.Len(), "once", r.once)

	for {
		res, err := r.RunPass(ctx)
		if err != nil {
			return err
		}
		r.log.Info("pass complete",
			"accounts", res.Accounts,
			"failed_accounts", res.FailedAccounts,
			"unclaimed", res.Unclaimed,
			"claimed", res.Claimed,
			"not_found", res.NotFound,
			"claim_failed", res.ClaimFailed,
		)
		if r.onPass != nil {
			r.onPass(res)
		}
		if r.once {
			return nil
		}

		now := r.clock.Now()
		wait := schedule.Until(r.sched, now)
		r.log.Info("waiting for next pass", "wait", wait, "next", now.Add(wait).Format(time.RFC3339))
		if err := r.clock.Sleep(ctx, wait); err != nil {
			r.log.Debug("claim loop stopping")
			return err
		}
	}
}

// RunPass processes every account once. A failing account is logged and
// counted, never aborting the pass.
func (r *Runner) RunPass(ctx context.Context) (PassResult, error) {
	var res PassResult
	if len(r.tokens) == 0 {
		return res, ErrNoTokens
	}

	start := r.clock.Now()
	for i, token := range r.tokens {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		res.Accounts++
		ok := r.processAccount(ctx, fmt.Sprintf("account-%d", r.offset+i+1), token, &res)
		if !ok {
			res.FailedAccounts++
		}
		r.metrics.ObserveAccount(ok)
	}

	end := r.clock.Now()
	r.metrics.ObservePass(res.Unclaimed, end.Sub(start), end)
	return res, ctx.Err()
}

// processAccount runs referral, rank, task listing and claims for one token.
// It reports false when the account could not be processed.
func (r *Runner) processAccount(ctx context.Context, label, token string, res *PassResult) (ok bool) {
	log := logging.ForAccount(r.log, label, token)

	defer func() {
		if p := recover(); p != nil {
			log.Error("account processing panicked", "panic", p)
			r.event(audit.EventError, label, "", fmt.Sprintf("panic: %v", p))
			ok = false
		}
	}()

	proxyURL := ""
	if p, enabled := r.rotator.Next(); enabled {
		proxyURL = p
		log.Info("using proxy", "proxy", proxy.Display(p))
	}

	client, err := r.factory(proxyURL)
	if err != nil {
		log.Error("failed to create client", "proxy", proxy.Display(proxyURL), "error", err)
		r.event(audit.EventError, label, "", err.Error())
		return false
	}

	if r.referral != "" {
		err := client.ClaimReferral(ctx, token, r.referral)
		r.metrics.ObserveRequest("claim referral", err)
		if err != nil {
			log.Debug("referral not applied", "error", err)
		}
	}

	rank, err := client.FetchUserRank(ctx, token)
	r.metrics.ObserveRequest("fetch rank", err)
	if err != nil {
		log.Error("failed to fetch user rank", "error", err)
		r.event(audit.EventError, label, "", err.Error())
	} else {
		log.Info("user rank", "id", rank.ID, "rank", rank.Rank, "total_point", rank.TotalPoint)
		r.event(audit.EventRank, label, "", fmt.Sprintf("rank=%s points=%s", rank.Rank, rank.TotalPoint))
	}

	tasks, err := client.FetchTasks(ctx, token)
	r.metrics.ObserveRequest("fetch tasks", err)
	if err != nil {
		log.Error("failed to fetch tasks", "error", err)
		r.event(audit.EventError, label, "", err.Error())
		return false
	}
	if len(tasks) == 0 {
		log.Warn("no unclaimed tasks")
		return true
	}

	log.Info("found unclaimed tasks", "count", len(tasks))
	res.Unclaimed += len(tasks)

	for _, task := range tasks {
		if ctx.Err() != nil {
			break
		}
		if r.claim(ctx, client, log, label, token, task, res) {
			continue
		}
		if ctx.Err() == nil {
			_ = r.sleep(ctx, r.pause)
		}
	}

	return true
}

// claim waits a random jitter and claims task. It reports whether the claim
// succeeded.
func (r *Runner) claim(ctx context.Context, client *api.Client, log *slog.Logger, label, token string, task api.Task, res *PassResult) bool {
	if err := r.sleep(ctx, r.jitter.Pick(r.rng)); err != nil {
		return false
	}

	resp, err := client.ClaimTask(ctx, token, task)
	r.metrics.ObserveRequest("claim task", err)

	switch {
	case err == nil:
		res.Claimed++
		r.metrics.ObserveClaim(metrics.ResultClaimed)
		log.Info("task claimed", "task", task.TaskID, "point", task.Point, "response", string(resp))
		r.event(audit.EventClaim, label, task.TaskID, "point="+task.Point.String())
		return true
	case ctx.Err() != nil:
		return false
	case api.IsNotFound(err):
		res.NotFound++
		r.metrics.ObserveClaim(metrics.ResultNotFound)
		log.Warn("task no longer available", "task", task.TaskID)
		r.event(audit.EventNotFound, label, task.TaskID, "")
		return false
	default:
		res.ClaimFailed++
		r.metrics.ObserveClaim(metrics.ResultFailed)
		log.Error("failed to claim task", "task", task.TaskID, "error", err)
		r.event(audit.EventClaimFailed, label, task.TaskID, err.Error())
		return false
	}
}

func (r *Runner) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	return r.clock.Sleep(ctx, d)
}

func (r *Runner) event(t audit.EventType, account, task, details string) {
	if r.auditLog == nil {
		return
	}
	if err := r.auditLog.LogEvent(t, account, task, details); err != nil {
		r.log.Debug("failed to write audit event", "error", err)
	}
}
