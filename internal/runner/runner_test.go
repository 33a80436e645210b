package runner

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/centic-tools/centic-ctl/internal/api"
	"github.com/centic-tools/centic-ctl/internal/audit"
	"github.com/centic-tools/centic-ctl/internal/metrics"
	"github.com/centic-tools/centic-ctl/internal/schedule"
	"github.com/centic-tools/centic-ctl/internal/testutil"
)

func newAccount(tasks ...*testutil.FakeTask) *testutil.FakeAccount {
	return &testutil.FakeAccount{ID: "user-1", Rank: 7, TotalPoint: 100, Tasks: tasks}
}

func directFactory(env *testutil.TestEnv) api.Factory {
	return api.NewFactory(api.Options{BaseURL: env.API.BaseURL(), Timeout: 5 * time.Second})
}

// newTestRunner builds a runner against env's fake API with delays disabled
// and logs captured at debug level.
func newTestRunner(env *testutil.TestEnv, tokens []string, opts ...Option) (*Runner, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	base := []Option{
		WithClock(env.Clock),
		WithJitter(schedule.Jitter{}),
		WithFailurePause(0),
		WithLogger(logger),
		WithRand(rand.New(rand.NewSource(1))),
	}
	return New(tokens, directFactory(env), append(base, opts...)...), &buf
}

func TestRunner_New(t *testing.T) {
	r := New([]string{"a"}, nil)
	if r.pause != time.Second {
		t.Errorf("pause = %v, want 1s", r.pause)
	}
	if r.jitter.Min != time.Second || r.jitter.Max != 3*time.Second {
		t.Errorf("jitter = %+v, want [1s, 3s)", r.jitter)
	}
	if r.rotator.Enabled() {
		t.Error("rotator should be empty by default")
	}
	if r.referral != "" {
		t.Error("referral should default to empty")
	}
	if r.auditLog != nil || r.metrics != nil {
		t.Error("audit and metrics should default to nil")
	}
	if r.once {
		t.Error("once should default to false")
	}
}

func TestRunner_CopiesTokens(t *testing.T) {
	tokens := []string{"a", "b"}
	r := New(tokens, nil)
	tokens[0] = "changed"
	if r.tokens[0] != "a" {
		t.Error("runner should keep its own copy of the token list")
	}
}

func TestRunPass_ClaimsUnclaimedTasks(t *testing.T) {
	env := testutil.NewTestEnv(t)
	env.API.AddAccount("tok-1", newAccount(
		&testutil.FakeTask{ID: "bonus", Category: "Bonus Reward", Point: 50, Single: true},
		&testutil.FakeTask{ID: "quiz", Category: "Daily Tasks", Point: 20},
		&testutil.FakeTask{ID: "done", Category: "Daily Tasks", Point: 10, Claimed: true},
		&testutil.FakeTask{ID: "streak", Category: "Daily login", Point: 5},
	))

	r, _ := newTestRunner(env, []string{"tok-1"})
	res, err := r.RunPass(context.Background())
	if err != nil {
		t.Fatalf("RunPass failed: %v", err)
	}

	want := PassResult{Accounts: 1, Unclaimed: 3, Claimed: 3}
	if res != want {
		t.Errorf("result = %+v, want %+v", res, want)
	}

	claims := env.API.Claims()
	wantClaims := []string{"quiz", "streak", "bonus"}
	if strings.Join(claims, ",") != strings.Join(wantClaims, ",") {
		t.Errorf("claims = %v, want %v", claims, wantClaims)
	}
	if got := env.API.Account("tok-1").TotalPoint; got != 175 {
		t.Errorf("total point = %d, want 175", got)
	}
}

func TestRunPass_NoTokens(t *testing.T) {
	env := testutil.NewTestEnv(t)
	r, _ := newTestRunner(env, nil)

	if _, err := r.RunPass(context.Background()); !errors.Is(err, ErrNoTokens) {
		t.Errorf("RunPass error = %v, want ErrNoTokens", err)
	}
	if err := r.Run(context.Background()); !errors.Is(err, ErrNoTokens) {
		t.Errorf("Run error = %v, want ErrNoTokens", err)
	}
	if n := env.API.TotalCalls(); n != 0 {
		t.Errorf("made %d requests, want none", n)
	}
	if len(env.Clock.Sleeps()) != 0 {
		t.Error("should not sleep without tokens")
	}
}

func TestRunPass_NotFoundIsWarning(t *testing.T) {
	env := testutil.NewTestEnv(t)
	env.API.AddAccount("tok-1", newAccount(
		&testutil.FakeTask{ID: "gone", Category: "Social Tasks", Point: 10, Missing: true},
	))

	r, logs := newTestRunner(env, []string{"tok-1"})
	res, err := r.RunPass(context.Background())
	if err != nil {
		t.Fatalf("RunPass failed: %v", err)
	}

	if res.NotFound != 1 || res.Claimed != 0 || res.ClaimFailed != 0 {
		t.Errorf("result = %+v, want one not-found", res)
	}
	out := logs.String()
	if !strings.Contains(out, "level=WARN") || !strings.Contains(out, "task no longer available") {
		t.Errorf("expected warning for missing task, got:\n%s", out)
	}
	if strings.Contains(out, "level=ERROR") {
		t.Errorf("404 should not log at error level:\n%s", out)
	}
}

func TestRunPass_ClaimFailureIsError(t *testing.T) {
	env := testutil.NewTestEnv(t)
	env.API.AddAccount("tok-1", newAccount(
		&testutil.FakeTask{ID: "broken", Category: "Special Tasks", Point: 10, Fail: true},
		&testutil.FakeTask{ID: "fine", Category: "Special Tasks", Point: 5},
	))

	r, logs := newTestRunner(env, []string{"tok-1"})
	res, err := r.RunPass(context.Background())
	if err != nil {
		t.Fatalf("RunPass failed: %v", err)
	}

	want := PassResult{Accounts: 1, Unclaimed: 2, Claimed: 1, ClaimFailed: 1}
	if res != want {
		t.Errorf("result = %+v, want %+v", res, want)
	}
	if !strings.Contains(logs.String(), `level=ERROR msg="failed to claim task"`) {
		t.Errorf("expected claim error log, got:\n%s", logs.String())
	}
}

func TestRunPass_Delays(t *testing.T) {
	env := testutil.NewTestEnv(t)
	env.API.AddAccount("tok-1", newAccount(
		&testutil.FakeTask{ID: "a", Category: "Daily Tasks", Point: 1},
		&testutil.FakeTask{ID: "b", Category: "Daily Tasks", Point: 1, Fail: true},
		&testutil.FakeTask{ID: "c", Category: "Daily Tasks", Point: 1, Missing: true},
	))

	r, _ := newTestRunner(env, []string{"tok-1"},
		WithJitter(schedule.Jitter{Min: 2 * time.Second, Max: 2 * time.Second}),
		WithFailurePause(time.Second),
	)
	if _, err := r.RunPass(context.Background()); err != nil {
		t.Fatalf("RunPass failed: %v", err)
	}

	// jitter before every claim, pause after each failed one
	want := []time.Duration{2 * time.Second, 2 * time.Second, time.Second, 2 * time.Second, time.Second}
	got := env.Clock.Sleeps()
	if len(got) != len(want) {
		t.Fatalf("sleeps = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sleep %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestRunPass_JitterWithinRange(t *testing.T) {
	env := testutil.NewTestEnv(t)
	var tasks []*testutil.FakeTask
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		tasks = append(tasks, &testutil.FakeTask{ID: id, Category: "Daily Tasks", Point: 1})
	}
	env.API.AddAccount("tok-1", newAccount(tasks...))

	r, _ := newTestRunner(env, []string{"tok-1"},
		WithJitter(schedule.Jitter{Min: time.Second, Max: 3 * time.Second}),
	)
	if _, err := r.RunPass(context.Background()); err != nil {
		t.Fatalf("RunPass failed: %v", err)
	}

	sleeps := env.Clock.Sleeps()
	if len(sleeps) != len(tasks) {
		t.Fatalf("got %d sleeps, want %d", len(sleeps), len(tasks))
	}
	for _, d := range sleeps {
		if d < time.Second || d >= 3*time.Second {
			t.Errorf("jitter %v outside [1s, 3s)", d)
		}
	}
}

func TestRunPass_FetchFailureVersusNoTasks(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(*testutil.FakeAPI)
		wantFailed int
		wantLog    string
	}{
		{
			name: "all claimed",
			setup: func(f *testutil.FakeAPI) {
				f.AddAccount("tok-1", newAccount(&testutil.FakeTask{ID: "x", Category: "Daily Tasks", Claimed: true}))
			},
			wantFailed: 0,
			wantLog:    `level=WARN msg="no unclaimed tasks"`,
		},
		{
			name: "tasks endpoint down",
			setup: func(f *testutil.FakeAPI) {
				f.AddAccount("tok-1", newAccount())
				f.FailEndpoint("/tasks", http.StatusInternalServerError)
			},
			wantFailed: 1,
			wantLog:    `level=ERROR msg="failed to fetch tasks"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := testutil.NewTestEnv(t)
			tt.setup(env.API)

			r, logs := newTestRunner(env, []string{"tok-1"})
			res, err := r.RunPass(context.Background())
			if err != nil {
				t.Fatalf("RunPass failed: %v", err)
			}
			if res.FailedAccounts != tt.wantFailed {
				t.Errorf("failed accounts = %d, want %d", res.FailedAccounts, tt.wantFailed)
			}
			if !strings.Contains(logs.String(), tt.wantLog) {
				t.Errorf("log missing %q:\n%s", tt.wantLog, logs.String())
			}
		})
	}
}

func TestRunPass_RankFailureDoesNotFailAccount(t *testing.T) {
	env := testutil.NewTestEnv(t)
	env.API.AddAccount("tok-1", newAccount(&testutil.FakeTask{ID: "a", Category: "Daily Tasks", Point: 1}))
	env.API.FailEndpoint("/user-rank", http.StatusBadGateway)

	r, _ := newTestRunner(env, []string{"tok-1"})
	res, err := r.RunPass(context.Background())
	if err != nil {
		t.Fatalf("RunPass failed: %v", err)
	}
	if res.FailedAccounts != 0 || res.Claimed != 1 {
		t.Errorf("result = %+v, want the claim to proceed", res)
	}
}

func TestRunPass_UnknownTokenContinues(t *testing.T) {
	env := testutil.NewTestEnv(t)
	env.API.AddAccount("good", newAccount(&testutil.FakeTask{ID: "a", Category: "Daily Tasks", Point: 1}))

	r, logs := newTestRunner(env, []string{"bad", "good"})
	res, err := r.RunPass(context.Background())
	if err != nil {
		t.Fatalf("RunPass failed: %v", err)
	}
	if res.Accounts != 2 || res.FailedAccounts != 1 || res.Claimed != 1 {
		t.Errorf("result = %+v", res)
	}
	if !strings.Contains(logs.String(), "account=account-1") || !strings.Contains(logs.String(), "account=account-2") {
		t.Error("logs should label accounts by position")
	}
}

func TestRunPass_MasksTokens(t *testing.T) {
	env := testutil.NewTestEnv(t)
	token := "supersecrettoken-0123456789"
	env.API.AddAccount(token, newAccount())

	r, logs := newTestRunner(env, []string{token})
	if _, err := r.RunPass(context.Background()); err != nil {
		t.Fatalf("RunPass failed: %v", err)
	}
	if strings.Contains(logs.String(), token) {
		t.Error("logs must not contain the raw token")
	}
}

func TestRunPass_Referral(t *testing.T) {
	env := testutil.NewTestEnv(t)
	env.API.AddAccount("tok-1", newAccount())

	r, logs := newTestRunner(env, []string{"tok-1"}, WithReferralCode("invite-code"))
	for i := 0; i < 2; i++ {
		if _, err := r.RunPass(context.Background()); err != nil {
			t.Fatalf("RunPass failed: %v", err)
		}
	}

	if got := env.API.Account("tok-1").Referrals; len(got) != 1 || got[0] != "invite-code" {
		t.Errorf("referrals = %v, want [invite-code]", got)
	}
	if env.API.Calls("/invites") != 2 {
		t.Errorf("invite calls = %d, want 2", env.API.Calls("/invites"))
	}
	// The second invite is rejected and must stay quiet.
	if !strings.Contains(logs.String(), `level=DEBUG msg="referral not applied"`) {
		t.Errorf("rejected referral should log at debug:\n%s", logs.String())
	}
	if strings.Contains(logs.String(), "level=ERROR") {
		t.Errorf("rejected referral should not log errors:\n%s", logs.String())
	}
}

func TestRunPass_NoReferralCode(t *testing.T) {
	env := testutil.NewTestEnv(t)
	env.API.AddAccount("tok-1", newAccount())

	r, _ := newTestRunner(env, []string{"tok-1"})
	if _, err := r.RunPass(context.Background()); err != nil {
		t.Fatalf("RunPass failed: %v", err)
	}
	if env.API.Calls("/invites") != 0 {
		t.Error("invite endpoint should not be called without a code")
	}
}

func TestRunPass_ProxyRotation(t *testing.T) {
	env := testutil.NewTestEnv(t)
	tokens := []string{"t1", "t2", "t3"}
	for _, tok := range tokens {
		env.API.AddAccount(tok, newAccount())
	}

	var got []string
	direct := directFactory(env)
	recording := func(proxyURL string) (*api.Client, error) {
		got = append(got, proxyURL)
		return direct("")
	}

	var buf bytes.Buffer
	r := New(tokens, recording,
		WithClock(env.Clock),
		WithJitter(schedule.Jitter{}),
		WithProxies([]string{"p1:8080", "p2:8080"}),
		WithLogger(slog.New(slog.NewTextHandler(&buf, nil))),
	)

	for i := 0; i < 2; i++ {
		if _, err := r.RunPass(context.Background()); err != nil {
			t.Fatalf("pass %d failed: %v", i, err)
		}
	}

	want := []string{"p1:8080", "p2:8080", "p1:8080", "p2:8080", "p1:8080", "p2:8080"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("proxies = %v, want %v", got, want)
	}
	if !strings.Contains(buf.String(), `msg="using proxy" account=account-1`) {
		t.Errorf("expected proxy log line, got:\n%s", buf.String())
	}
}

func TestRunPass_ThroughProxy(t *testing.T) {
	env := testutil.NewTestEnv(t)
	env.API.AddAccount("tok-1", newAccount(&testutil.FakeTask{ID: "a", Category: "Daily Tasks", Point: 1}))

	// A plain forward proxy: the absolute request URL is replayed upstream.
	var proxied atomic.Int32
	fwd := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		proxied.Add(1)
		out, err := http.NewRequest(req.Method, req.URL.String(), req.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		out.Header = req.Header.Clone()
		resp, err := http.DefaultTransport.RoundTrip(out)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		defer resp.Body.Close()
		w.WriteHeader(resp.StatusCode)
		buf := new(bytes.Buffer)
		_, _ = buf.ReadFrom(resp.Body)
		_, _ = w.Write(buf.Bytes())
	}))
	defer fwd.Close()

	r, _ := newTestRunner(env, []string{"tok-1"}, WithProxies([]string{strings.TrimPrefix(fwd.URL, "http://")}))
	res, err := r.RunPass(context.Background())
	if err != nil {
		t.Fatalf("RunPass failed: %v", err)
	}
	if res.Claimed != 1 {
		t.Errorf("claimed = %d, want 1", res.Claimed)
	}
	if proxied.Load() == 0 {
		t.Error("requests should go through the proxy")
	}
}

func TestRunPass_InvalidProxyFailsAccount(t *testing.T) {
	env := testutil.NewTestEnv(t)
	env.API.AddAccount("tok-1", newAccount())

	r, logs := newTestRunner(env, []string{"tok-1"}, WithProxies([]string{"ftp://host:21"}))
	res, err := r.RunPass(context.Background())
	if err != nil {
		t.Fatalf("RunPass failed: %v", err)
	}
	if res.FailedAccounts != 1 {
		t.Errorf("failed accounts = %d, want 1", res.FailedAccounts)
	}
	if !strings.Contains(logs.String(), "failed to create client") {
		t.Error("expected client creation error")
	}
	if env.API.TotalCalls() != 0 {
		t.Error("no request should be made without a client")
	}
}

func TestRunPass_RecoversPanic(t *testing.T) {
	env := testutil.NewTestEnv(t)
	env.API.AddAccount("t2", newAccount(&testutil.FakeTask{ID: "a", Category: "Daily Tasks", Point: 1}))

	direct := directFactory(env)
	calls := 0
	factory := func(proxyURL string) (*api.Client, error) {
		calls++
		if calls == 1 {
			panic("boom")
		}
		return direct(proxyURL)
	}

	var buf bytes.Buffer
	r := New([]string{"t1", "t2"}, factory,
		WithClock(env.Clock),
		WithJitter(schedule.Jitter{}),
		WithLogger(slog.New(slog.NewTextHandler(&buf, nil))),
	)
	res, err := r.RunPass(context.Background())
	if err != nil {
		t.Fatalf("RunPass failed: %v", err)
	}
	if res.FailedAccounts != 1 || res.Claimed != 1 {
		t.Errorf("result = %+v, want the second account processed", res)
	}
	if !strings.Contains(buf.String(), "account processing panicked") {
		t.Error("panic should be logged")
	}
}

func TestRunPass_CancelledContext(t *testing.T) {
	env := testutil.NewTestEnv(t)
	env.API.AddAccount("tok-1", newAccount())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r, _ := newTestRunner(env, []string{"tok-1"})
	if _, err := r.RunPass(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
	if env.API.TotalCalls() != 0 {
		t.Error("cancelled pass should not make requests")
	}
}

func TestRun_WaitsForScheduleAndStops(t *testing.T) {
	env := testutil.NewTestEnv(t)
	env.API.AddAccount("tok-1", newAccount())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	env.Clock.OnSleep = func(n int, d time.Duration) {
		if n == 2 {
			cancel()
		}
	}

	passes := 0
	r, logs := newTestRunner(env, []string{"tok-1"}, WithPassHook(func(PassResult) { passes++ }))
	err := r.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run error = %v, want context.Canceled", err)
	}

	if passes != 2 {
		t.Errorf("passes = %d, want 2", passes)
	}
	sleeps := env.Clock.Sleeps()
	if len(sleeps) != 2 || sleeps[0] != time.Hour || sleeps[1] != time.Hour {
		t.Errorf("sleeps = %v, want two 1h waits", sleeps)
	}
	if env.API.Calls("/tasks") != 2 {
		t.Errorf("task fetches = %d, want 2", env.API.Calls("/tasks"))
	}
	if !strings.Contains(logs.String(), "no proxies configured") {
		t.Error("expected warning about running without proxy")
	}
}

func TestRun_CronSchedule(t *testing.T) {
	env := testutil.NewTestEnv(t)
	env.API.AddAccount("tok-1", newAccount())

	sched, err := schedule.Parse("*/15 * * * *")
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	env.Clock.OnSleep = func(int, time.Duration) { cancel() }

	r, _ := newTestRunner(env, []string{"tok-1"}, WithSchedule(sched))
	_ = r.Run(ctx)

	// The fake clock starts on the hour.
	if sleeps := env.Clock.Sleeps(); len(sleeps) != 1 || sleeps[0] != 15*time.Minute {
		t.Errorf("sleeps = %v, want [15m]", sleeps)
	}
}

func TestRun_Once(t *testing.T) {
	env := testutil.NewTestEnv(t)
	env.API.AddAccount("tok-1", newAccount(&testutil.FakeTask{ID: "a", Category: "Daily Tasks", Point: 1}))

	var last PassResult
	r, _ := newTestRunner(env, []string{"tok-1"},
		WithOnce(true),
		WithProxies(nil),
		WithPassHook(func(res PassResult) { last = res }),
	)
	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if last.Claimed != 1 {
		t.Errorf("claimed = %d, want 1", last.Claimed)
	}
	if len(env.Clock.Sleeps()) != 0 {
		t.Error("single pass should not wait for the schedule")
	}
}

func TestRunPass_AuditAndMetrics(t *testing.T) {
	env := testutil.NewTestEnv(t)
	env.API.AddAccount("tok-1", newAccount(
		&testutil.FakeTask{ID: "ok", Category: "Daily Tasks", Point: 3},
		&testutil.FakeTask{ID: "gone", Category: "Daily Tasks", Point: 1, Missing: true},
	))

	auditLog := audit.NewLogger(env.Paths.AuditDir)
	rec := metrics.New()

	r, _ := newTestRunner(env, []string{"tok-1"}, WithAuditLogger(auditLog), WithMetrics(rec))
	if _, err := r.RunPass(context.Background()); err != nil {
		t.Fatalf("RunPass failed: %v", err)
	}

	events, err := auditLog.Events("account-1")
	if err != nil {
		t.Fatalf("Events failed: %v", err)
	}
	var types []string
	for _, e := range events {
		types = append(types, string(e.Type))
	}
	wantTypes := []string{"rank", "claim", "not-found"}
	if strings.Join(types, ",") != strings.Join(wantTypes, ",") {
		t.Errorf("event types = %v, want %v", types, wantTypes)
	}
	if events[0].Details != "rank=7 points=100" {
		t.Errorf("rank details = %q", events[0].Details)
	}

	w := httptest.NewRecorder()
	rec.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := w.Body.String()
	for _, want := range []string{
		`centic_claims_total{result="claimed"} 1`,
		`centic_claims_total{result="not_found"} 1`,
		`centic_api_requests_total{op="fetch tasks",outcome="ok"} 1`,
		`centic_api_requests_total{op="claim task",outcome="not_found"} 1`,
		`centic_accounts_total{outcome="ok"} 1`,
		"centic_passes_total 1",
		"centic_unclaimed_tasks 2",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestRunPass_AccountOffset(t *testing.T) {
	env := testutil.NewTestEnv(t)
	env.API.AddAccount("tok-3", newAccount())

	r, logs := newTestRunner(env, []string{"tok-3"}, WithAccountOffset(2))
	if _, err := r.RunPass(context.Background()); err != nil {
		t.Fatalf("RunPass failed: %v", err)
	}
	if !strings.Contains(logs.String(), "account=account-3") {
		t.Errorf("expected account-3 label:\n%s", logs.String())
	}
}
