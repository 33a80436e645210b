package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/centic-tools/centic-ctl/internal/config"
	"github.com/centic-tools/centic-ctl/internal/errors"
	"github.com/centic-tools/centic-ctl/internal/lines"
)

// loadConfig reads the config file and applies command-line overrides.
// An explicit --config must exist; the default file is optional.
func loadConfig() (*config.Config, *config.Paths, error) {
	base, err := config.ResolvePaths(dataDir, configFile, nil)
	if err != nil {
		return nil, nil, errors.ConfigError("invalid config path", err)
	}

	cfg, err := config.Load(base.ConfigFile, configFile != "")
	if err != nil {
		return nil, nil, errors.ConfigError("failed to load config", err)
	}

	if runSchedule != "" {
		cfg.Schedule = runSchedule
	}
	if runMetricsAddr != "" {
		cfg.MetricsAddr = runMetricsAddr
	}
	if runNoProxy {
		cfg.ProxyFile = ""
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, errors.ConfigError("invalid configuration", err)
	}

	p, err := config.ResolvePaths(dataDir, configFile, cfg)
	if err != nil {
		return nil, nil, errors.ConfigError("invalid file path", err)
	}
	return cfg, p, nil
}

// loadTokens reads the token file, failing when it yields no tokens.
func loadTokens(p *config.Paths) ([]string, error) {
	tokens := lines.Read(p.TokensFile)
	if len(tokens) == 0 {
		return nil, errors.NoTokens(p.TokensFile)
	}
	return tokens, nil
}

// loadProxies reads the optional proxy file unless proxies are disabled.
func loadProxies(p *config.Paths) []string {
	if p.ProxyFile == "" {
		return nil
	}
	return lines.ReadOptional(p.ProxyFile)
}

// account is a token with its position-based label.
type account struct {
	Label string
	Token string
	Index int
}

func accountLabel(i int) string {
	return fmt.Sprintf("account-%d", i+1)
}

// selectAccounts returns every account, or only the one named by arg
// ("3" or "account-3").
func selectAccounts(tokens []string, args []string) ([]account, error) {
	if len(args) == 0 {
		all := make([]account, len(tokens))
		for i, tok := range tokens {
			all[i] = account{Label: accountLabel(i), Token: tok, Index: i}
		}
		return all, nil
	}

	n, err := strconv.Atoi(strings.TrimPrefix(args[0], "account-"))
	if err != nil || n < 1 || n > len(tokens) {
		return nil, errors.ValidationError(fmt.Sprintf("unknown account %q (have %d accounts)", args[0], len(tokens)))
	}
	return []account{{Label: accountLabel(n - 1), Token: tokens[n-1], Index: n - 1}}, nil
}
