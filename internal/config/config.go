package config

import (
	"fmt"
	"log"
	"os"
	"reflect"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/shopspring/decimal"

	project "github.com/arnac-io/safegift/pkg/config"
	"github.com/arnac-io/safegift/pkg/keys"
)

type Backend string

const (
	BackendEVM    Backend = "evm"
	BackendMemory Backend = "memory"
)

type Config struct {
	App struct {
		LogLevel     string `env:"LOG_LEVEL" envDefault:"INFO"`
		MetricsPort  int    `env:"METRICS_PORT" envDefault:"0"`
		SentryDSN    string `env:"SENTRY_DSN"`
		ReportFormat string `env:"REPORT_FORMAT" envDefault:"text"`
		ProjectFile  string `env:"PROJECT_FILE"`
	}
	Node struct {
		Backend     Backend       `env:"BACKEND" envDefault:"evm"`
		RPCURL      string        `env:"RPC_URL"`
		ChainID     int64         `env:"CHAIN_ID"`
		ProviderURL string        `env:"PROVIDER_URL"`
		EthURL      string        `env:"ETH_URL"`
		ForkBlock   uint64        `env:"FORK_BLOCK"`
		ForkMethod  string        `env:"FORK_METHOD" envDefault:"hardhat_reset"`
		RateLimit   uint64        `env:"RPC_RATE_LIMIT" envDefault:"0"`
		Timeout     time.Duration `env:"RPC_TIMEOUT" envDefault:"30s"`

		forkBlockSet bool
	}
	// unset account settings come from the project network
	Accounts struct {
		Mnemonic string `env:"MNEMONIC"`
		HDPath   string `env:"HD_PATH"`
		Count    int    `env:"ACCOUNTS_COUNT"`
	}
	Gift struct {
		Amount       decimal.Decimal `env:"GIFT_AMOUNT" envDefault:"100"`
		ArtifactsDir string          `env:"ARTIFACTS_DIR"`
	}
}

const (
	// MinAccounts is the deployer, two owners and two takers.
	MinAccounts = 5

	defaultRPCURL    = "http://127.0.0.1:8545"
	defaultArtifacts = "artifacts"
)

// ForkURL is the network the node is reset to, ETH_URL with PROVIDER_URL as fallback.
func (c Config) ForkURL() string {
	if c.Node.EthURL != "" {
		return c.Node.EthURL
	}
	return c.Node.ProviderURL
}

var parsers = map[reflect.Type]env.ParserFunc{
	reflect.TypeOf(Backend("")): func(v string) (interface{}, error) {
		switch b := Backend(v); b {
		case BackendEVM, BackendMemory:
			return b, nil
		}
		return nil, fmt.Errorf("unknown backend %q, want %s or %s", v, BackendEVM, BackendMemory)
	},
	reflect.TypeOf(decimal.Decimal{}): func(v string) (interface{}, error) {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return nil, err
		}
		if !d.IsPositive() {
			return nil, fmt.Errorf("amount must be positive, got %s", v)
		}
		return d, nil
	},
}

// Parse reads the configuration from environment, or from the process environment when it is nil.
func Parse(environment map[string]string) (Config, error) {
	var c Config
	var opts []env.Options
	if environment != nil {
		opts = append(opts, env.Options{Environment: environment})
	}
	if err := env.ParseWithFuncs(&c, parsers, opts...); err != nil {
		return Config{}, err
	}
	lookup := os.LookupEnv
	if environment != nil {
		lookup = func(key string) (string, bool) {
			v, ok := environment[key]
			return v, ok
		}
	}
	_, c.Node.forkBlockSet = lookup("FORK_BLOCK")
	if c.Accounts.Count != 0 && c.Accounts.Count < MinAccounts {
		return Config{}, fmt.Errorf("ACCOUNTS_COUNT must be at least %d, got %d", MinAccounts, c.Accounts.Count)
	}
	return c, nil
}

// WithNetwork fills the node, account and artifact settings the environment left unset
// from the project network. A fork block missing from both forks the latest block.
func (c Config) WithNetwork(n project.Network, paths project.Paths) (Config, error) {
	c.Node.RPCURL = firstOf(c.Node.RPCURL, n.URL, defaultRPCURL)
	if c.Node.ChainID == 0 {
		c.Node.ChainID = n.ChainID
	}
	if !c.Node.forkBlockSet {
		c.Node.ForkBlock = n.Forking.BlockNumber
	}
	c.Accounts.Mnemonic = firstOf(c.Accounts.Mnemonic, n.Accounts.Mnemonic, keys.DefaultMnemonic)
	c.Accounts.HDPath = firstOf(c.Accounts.HDPath, n.Accounts.Path, keys.DefaultPath)
	if c.Accounts.Count == 0 {
		c.Accounts.Count = n.Accounts.Count
	}
	if c.Accounts.Count == 0 {
		c.Accounts.Count = MinAccounts
	}
	if c.Accounts.Count < MinAccounts {
		return Config{}, fmt.Errorf("network accounts count must be at least %d, got %d", MinAccounts, c.Accounts.Count)
	}
	c.Gift.ArtifactsDir = firstOf(c.Gift.ArtifactsDir, paths.Artifacts, defaultArtifacts)
	return c, nil
}

func firstOf(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func Load() Config {
	c, err := Parse(nil)
	if err != nil {
		log.Panicf("[‼️  Config parsing failed] %+v\n", err)
	}
	return c
}
