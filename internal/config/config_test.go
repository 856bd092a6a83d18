package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	project "github.com/arnac-io/safegift/pkg/config"
	"github.com/arnac-io/safegift/pkg/keys"
)

func TestParse_Defaults(t *testing.T) {
	c, err := Parse(map[string]string{})
	require.Nil(t, err)
	require.Equal(t, BackendEVM, c.Node.Backend)
	require.Equal(t, "hardhat_reset", c.Node.ForkMethod)
	require.Equal(t, 30*time.Second, c.Node.Timeout)
	require.Equal(t, "100", c.Gift.Amount.String())
	require.Equal(t, "", c.ForkURL())
	// left to the project network
	require.Equal(t, "", c.Node.RPCURL)
	require.Equal(t, "", c.Accounts.Mnemonic)
	require.Zero(t, c.Accounts.Count)
}

func TestWithNetwork(t *testing.T) {
	network := project.Network{
		ChainID: 5,
		URL:     "http://node:8545",
		Forking: project.Forking{Enabled: true, BlockNumber: 123},
		Accounts: project.Accounts{
			Mnemonic: "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about",
			Path:     "m/44'/60'/1'/0",
			Count:    20,
		},
	}
	paths := project.Paths{Artifacts: "build/artifacts"}
	tests := []struct {
		name    string
		env     map[string]string
		network project.Network
		check   func(t *testing.T, c Config)
		wantErr bool
	}{
		{
			name:    "network fills unset values",
			env:     map[string]string{},
			network: network,
			check: func(t *testing.T, c Config) {
				require.Equal(t, "http://node:8545", c.Node.RPCURL)
				require.Equal(t, int64(5), c.Node.ChainID)
				require.Equal(t, uint64(123), c.Node.ForkBlock)
				require.Equal(t, network.Accounts.Mnemonic, c.Accounts.Mnemonic)
				require.Equal(t, "m/44'/60'/1'/0", c.Accounts.HDPath)
				require.Equal(t, 20, c.Accounts.Count)
				require.Equal(t, "build/artifacts", c.Gift.ArtifactsDir)
			},
		},
		{
			name: "environment wins",
			env: map[string]string{
				"RPC_URL":        "http://other:8545",
				"CHAIN_ID":       "1",
				"FORK_BLOCK":     "0",
				"ACCOUNTS_COUNT": "6",
				"ARTIFACTS_DIR":  "out",
			},
			network: network,
			check: func(t *testing.T, c Config) {
				require.Equal(t, "http://other:8545", c.Node.RPCURL)
				require.Equal(t, int64(1), c.Node.ChainID)
				require.Zero(t, c.Node.ForkBlock)
				require.Equal(t, 6, c.Accounts.Count)
				require.Equal(t, "out", c.Gift.ArtifactsDir)
			},
		},
		{
			name: "empty network uses built-in defaults",
			env:  map[string]string{},
			check: func(t *testing.T, c Config) {
				require.Equal(t, "http://127.0.0.1:8545", c.Node.RPCURL)
				require.Equal(t, keys.DefaultMnemonic, c.Accounts.Mnemonic)
				require.Equal(t, keys.DefaultPath, c.Accounts.HDPath)
				require.Equal(t, MinAccounts, c.Accounts.Count)
				require.Equal(t, "artifacts", c.Gift.ArtifactsDir)
			},
		},
		{
			name:    "too few network accounts",
			env:     map[string]string{},
			network: project.Network{Accounts: project.Accounts{Count: 2}},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Parse(tt.env)
			require.Nil(t, err)
			p := paths
			if tt.network.URL == "" {
				p = project.Paths{}
			}
			c, err = c.WithNetwork(tt.network, p)
			if tt.wantErr {
				require.NotNil(t, err)
				return
			}
			require.Nil(t, err)
			tt.check(t, c)
		})
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		check   func(t *testing.T, c Config)
		wantErr bool
	}{
		{
			name: "fork url falls back to provider",
			env:  map[string]string{"PROVIDER_URL": "https://provider"},
			check: func(t *testing.T, c Config) {
				require.Equal(t, "https://provider", c.ForkURL())
			},
		},
		{
			name: "eth url wins",
			env:  map[string]string{"PROVIDER_URL": "https://provider", "ETH_URL": "https://eth"},
			check: func(t *testing.T, c Config) {
				require.Equal(t, "https://eth", c.ForkURL())
			},
		},
		{
			name: "memory backend",
			env:  map[string]string{"BACKEND": "memory", "GIFT_AMOUNT": "0.5"},
			check: func(t *testing.T, c Config) {
				require.Equal(t, BackendMemory, c.Node.Backend)
				require.Equal(t, "0.5", c.Gift.Amount.String())
			},
		},
		{name: "unknown backend", env: map[string]string{"BACKEND": "ganache"}, wantErr: true},
		{name: "zero gift", env: map[string]string{"GIFT_AMOUNT": "0"}, wantErr: true},
		{name: "bad gift", env: map[string]string{"GIFT_AMOUNT": "lots"}, wantErr: true},
		{name: "too few accounts", env: map[string]string{"ACCOUNTS_COUNT": "3"}, wantErr: true},
		{name: "bad timeout", env: map[string]string{"RPC_TIMEOUT": "soon"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Parse(tt.env)
			if tt.wantErr {
				require.NotNil(t, err)
				return
			}
			require.Nil(t, err)
			tt.check(t, c)
		})
	}
}
