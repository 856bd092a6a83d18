package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	t.Setenv("PROVIDER_URL", "https://mainnet.example")
	p, err := LoadProject("")
	require.Nil(t, err)

	require.Len(t, p.Solidity.Compilers, 2)
	require.Equal(t, "0.8.19", p.Solidity.Compilers[0].Version)
	require.Equal(t, "0.6.5", p.Solidity.Compilers[1].Version)
	for _, c := range p.Solidity.Compilers {
		require.True(t, c.Optimizer.Enabled)
		require.Equal(t, 100, c.Optimizer.Runs)
	}

	n, err := p.Network("")
	require.Nil(t, err)
	require.Equal(t, "https://mainnet.example", n.Forking.URL)
	require.Equal(t, uint64(18127149), n.Forking.BlockNumber)
	require.Equal(t, "m/44'/60'/0'/0", n.Accounts.Path)
	require.Equal(t, "artifacts", p.Paths.Artifacts)
}

func TestLoadProject_Toml(t *testing.T) {
	t.Setenv("SAFEGIFT_TEST_FORK_URL", "https://fork.example")
	p, err := LoadProject("testdata/project.toml")
	require.Nil(t, err)
	require.Equal(t, 200, p.Solidity.Compilers[0].Optimizer.Runs)
	n, err := p.Network("anvil")
	require.Nil(t, err)
	require.Equal(t, "https://fork.example", n.Forking.URL)
	require.Equal(t, 10, n.Accounts.Count)
	require.Equal(t, "out", p.Paths.Artifacts)

	_, err = p.Network("hardhat")
	require.NotNil(t, err)
}

func TestDecode_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
		ext  string
	}{
		{name: "extension", data: "{}", ext: ".json"},
		{name: "no compilers", data: "defaultNetwork: x\nnetworks:\n  x: {}\n", ext: ".yaml"},
		{name: "missing default network", data: "solidity:\n  compilers:\n    - version: 0.8.19\n", ext: ".yml"},
		{name: "zero runs", data: "defaultNetwork: x\nnetworks:\n  x: {}\nsolidity:\n  compilers:\n    - version: 0.8.19\n      optimizer: {enabled: true}\n", ext: ".yaml"},
		{name: "broken toml", data: "solidity = [", ext: ".toml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.data), tt.ext)
			require.NotNil(t, err)
		})
	}
}
