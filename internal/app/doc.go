// Package app provides the application context for centic-ctl.
//
// Commands share one App that carries the dependencies tests want to
// replace: the clock the claim loop sleeps on, the API client factory and
// the jitter source.
//
// # Creating an App
//
// Use New with functional options:
//
//	// Production usage
//	a := app.New()
//
//	// Testing with a fake clock
//	a := app.New(
//	    app.WithClock(fakeClock),
//	    app.WithRand(rand.New(rand.NewSource(1))),
//	)
//
// # Building a runner
//
// Runner combines the loaded config, the resolved paths and the tokens
// into a runner.Runner:
//
//	r, err := a.Runner(cfg, paths, tokens, app.RunOptions{Proxies: proxies})
package app
