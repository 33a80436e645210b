// Package testutil provides test fixtures and utilities.
//
// # Fake API
//
// FakeAPI serves the four rewards endpoints from memory over httptest:
//
//	api := testutil.NewFakeAPI(t)
//	api.AddAccount("token-1", &testutil.FakeAccount{
//	    ID: "user-1",
//	    Tasks: []*testutil.FakeTask{
//	        {ID: "daily-quiz", Category: "Daily Tasks", Point: 20},
//	        {ID: "login", Category: "Daily login", Point: 5, Single: true},
//	        {ID: "gone", Category: "Social Tasks", Missing: true},
//	    },
//	})
//
// Successful claims mark the task claimed, so a second pass sees nothing
// left to claim. Calls(path) counts requests per endpoint.
//
// # Test Environment
//
// NewTestEnv combines a temporary data directory, a FakeAPI, a config with
// zero delays and a FakeClock:
//
//	env := testutil.NewTestEnv(t)
//	env.WriteTokens("token-1", "token-2")
//	env.WriteProxies("10.0.0.1:8080")
//
// # Fixtures
//
// JSON fixtures are embedded using go:embed:
//
//	fixtures/task_catalog.json
package testutil
