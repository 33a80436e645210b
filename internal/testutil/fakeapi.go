package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
)

// FakeBasePath mirrors the prefix of the real API.
const FakeBasePath = "/ctp-api/centic-points"

// FakeTask is a task served by FakeAPI.
type FakeTask struct {
	ID       string
	Category string
	Point    int
	Claimed  bool

	// Single renders the task's category as an object instead of a list.
	Single bool
	// Missing makes claims answer 404.
	Missing bool
	// Fail makes claims answer 500.
	Fail bool
}

// FakeAccount is the server-side state of one token.
type FakeAccount struct {
	ID         string
	Rank       int
	TotalPoint int
	Tasks      []*FakeTask
	Referrals  []string
}

// FakeAPI is an in-memory rewards API served over httptest.
type FakeAPI struct {
	Server *httptest.Server

	mu       sync.Mutex
	accounts map[string]*FakeAccount
	calls    map[string]int
	failures map[string]int
	claims   []string
}

// NewFakeAPI starts a fake API that is closed when the test ends.
func NewFakeAPI(t *testing.T) *FakeAPI {
	t.Helper()

	f := &FakeAPI{
		accounts: make(map[string]*FakeAccount),
		calls:    make(map[string]int),
		failures: make(map[string]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /tasks", f.handleTasks)
	mux.HandleFunc("GET /user-rank", f.handleRank)
	mux.HandleFunc("POST /invites", f.handleInvites)
	mux.HandleFunc("POST /claim-tasks", f.handleClaim)

	f.Server = httptest.NewServer(http.StripPrefix(FakeBasePath, f.count(mux)))
	t.Cleanup(f.Server.Close)
	return f
}

// BaseURL returns the URL to configure as base_url.
func (f *FakeAPI) BaseURL() string {
	return f.Server.URL + FakeBasePath
}

// AddAccount registers an account for token.
func (f *FakeAPI) AddAccount(token string, account *FakeAccount) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accounts[token] = account
}

// Account returns the state of token's account.
func (f *FakeAPI) Account(token string) *FakeAccount {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.accounts[token]
}

// FailEndpoint makes every request to path answer with status.
func (f *FakeAPI) FailEndpoint(path string, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[path] = status
}

// Calls returns the number of requests received for path.
func (f *FakeAPI) Calls(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[path]
}

// TotalCalls returns the number of requests received on any path.
func (f *FakeAPI) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.calls {
		total += n
	}
	return total
}

// Claims returns the task IDs successfully claimed, in order.
func (f *FakeAPI) Claims() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.claims))
	copy(out, f.claims)
	return out
}

func (f *FakeAPI) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.calls[r.URL.Path]++
		status := f.failures[r.URL.Path]
		f.mu.Unlock()

		if status != 0 {
			writeJSON(w, status, map[string]string{"message": http.StatusText(status)})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (f *FakeAPI) account(w http.ResponseWriter, r *http.Request) *FakeAccount {
	acc := f.accounts[r.Header.Get("x-apikey")]
	if acc == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "invalid api key"})
	}
	return acc
}

func (f *FakeAPI) handleTasks(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	acc := f.account(w, r)
	if acc == nil {
		return
	}

	catalog := map[string]any{}
	lists := map[string][]map[string]any{}
	var order []string
	for _, task := range acc.Tasks {
		entry := map[string]any{"_id": task.ID, "point": task.Point, "claimed": task.Claimed}
		if task.Single {
			catalog[task.Category] = entry
			continue
		}
		if _, ok := lists[task.Category]; !ok {
			order = append(order, task.Category)
		}
		lists[task.Category] = append(lists[task.Category], entry)
	}
	sort.Strings(order)
	for _, category := range order {
		catalog[category] = lists[category]
	}

	writeJSON(w, http.StatusOK, catalog)
}

func (f *FakeAPI) handleRank(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	acc := f.account(w, r)
	if acc == nil {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"_id":        acc.ID,
		"rank":       acc.Rank,
		"totalPoint": acc.TotalPoint,
	})
}

func (f *FakeAPI) handleInvites(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	acc := f.account(w, r)
	if acc == nil {
		return
	}
	var body struct {
		ReferralCode string `json:"referralCode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid body"})
		return
	}
	if len(acc.Referrals) > 0 {
		writeJSON(w, http.StatusConflict, map[string]string{"message": "already invited"})
		return
	}
	acc.Referrals = append(acc.Referrals, body.ReferralCode)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (f *FakeAPI) handleClaim(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	acc := f.account(w, r)
	if acc == nil {
		return
	}
	var body struct {
		TaskID string      `json:"taskId"`
		Point  json.Number `json:"point"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid body"})
		return
	}

	var task *FakeTask
	for _, candidate := range acc.Tasks {
		if candidate.ID == body.TaskID {
			task = candidate
			break
		}
	}

	switch {
	case task == nil || task.Missing:
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "task not found"})
	case task.Fail:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "internal error"})
	case task.Claimed:
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "already claimed"})
	default:
		task.Claimed = true
		acc.TotalPoint += task.Point
		f.claims = append(f.claims, task.ID)
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "taskId": task.ID, "point": task.Point})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
