package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultProject []byte

// Project is the static build and network setup of the harness, the counterpart of hardhat.config.
type Project struct {
	DefaultNetwork string             `yaml:"defaultNetwork" toml:"defaultNetwork"`
	Solidity       Solidity           `yaml:"solidity" toml:"solidity"`
	Networks       map[string]Network `yaml:"networks" toml:"networks"`
	Paths          Paths              `yaml:"paths" toml:"paths"`
}

type Solidity struct {
	Compilers []Compiler `yaml:"compilers" toml:"compilers"`
}

type Compiler struct {
	Version   string    `yaml:"version" toml:"version"`
	Optimizer Optimizer `yaml:"optimizer" toml:"optimizer"`
}

type Optimizer struct {
	Enabled bool `yaml:"enabled" toml:"enabled"`
	Runs    int  `yaml:"runs" toml:"runs"`
}

type Network struct {
	ChainID  int64    `yaml:"chainId" toml:"chainId"`
	URL      string   `yaml:"url" toml:"url"`
	Forking  Forking  `yaml:"forking" toml:"forking"`
	Accounts Accounts `yaml:"accounts" toml:"accounts"`
}

type Forking struct {
	Enabled     bool   `yaml:"enabled" toml:"enabled"`
	URL         string `yaml:"url" toml:"url"`
	BlockNumber uint64 `yaml:"blockNumber" toml:"blockNumber"`
}

type Accounts struct {
	Mnemonic string `yaml:"mnemonic" toml:"mnemonic"`
	Path     string `yaml:"path" toml:"path"`
	Count    int    `yaml:"count" toml:"count"`
}

type Paths struct {
	Artifacts string `yaml:"artifacts" toml:"artifacts"`
}

// Default returns the embedded project.
func Default() (Project, error) {
	return Decode(defaultProject, ".yaml")
}

// LoadProject reads a yaml or toml project file, chosen by extension. An empty path loads the default.
func LoadProject(path string) (Project, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Project{}, err
	}
	return Decode(data, filepath.Ext(path))
}

// Decode parses a project. ${VAR} references are expanded from the environment first.
func Decode(data []byte, ext string) (Project, error) {
	expanded := os.ExpandEnv(string(data))
	var p Project
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal([]byte(expanded), &p); err != nil {
			return Project{}, fmt.Errorf("yaml project: %w", err)
		}
	case ".toml":
		if _, err := toml.Decode(expanded, &p); err != nil {
			return Project{}, fmt.Errorf("toml project: %w", err)
		}
	default:
		return Project{}, fmt.Errorf("unsupported project file extension %q", ext)
	}
	if err := p.validate(); err != nil {
		return Project{}, err
	}
	return p, nil
}

func (p Project) validate() error {
	if len(p.Solidity.Compilers) == 0 {
		return fmt.Errorf("project lists no compilers")
	}
	for _, c := range p.Solidity.Compilers {
		if c.Version == "" {
			return fmt.Errorf("compiler without version")
		}
		if c.Optimizer.Enabled && c.Optimizer.Runs <= 0 {
			return fmt.Errorf("compiler %s: optimizer runs must be positive", c.Version)
		}
	}
	if _, ok := p.Networks[p.DefaultNetwork]; !ok {
		return fmt.Errorf("default network %q is not defined", p.DefaultNetwork)
	}
	return nil
}

// Network returns the named network, the default one for an empty name.
func (p Project) Network(name string) (Network, error) {
	if name == "" {
		name = p.DefaultNetwork
	}
	n, ok := p.Networks[name]
	if !ok {
		return Network{}, fmt.Errorf("network %q is not defined", name)
	}
	return n, nil
}
