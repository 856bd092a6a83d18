package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/arnac-io/safegift/internal/config"
	"github.com/arnac-io/safegift/pkg/app"
	"github.com/arnac-io/safegift/pkg/artifacts"
	"github.com/arnac-io/safegift/pkg/chain"
	"github.com/arnac-io/safegift/pkg/chain/evm"
	"github.com/arnac-io/safegift/pkg/chain/memchain"
	"github.com/arnac-io/safegift/pkg/contracts"
	pkgConfig "github.com/arnac-io/safegift/pkg/config"
	"github.com/arnac-io/safegift/pkg/keys"
)

const artifactCacheSize = 16

type env struct {
	cfg     config.Config
	project pkgConfig.Project
	network pkgConfig.Network
	ring    *keys.Keyring
	log     *zap.Logger
}

func loadEnv() (*env, error) {
	return newEnv(config.Load())
}

// newEnv resolves cfg against its project file.
func newEnv(cfg config.Config) (*env, error) {
	project, err := pkgConfig.LoadProject(cfg.App.ProjectFile)
	if err != nil {
		return nil, err
	}
	network, err := project.Network("")
	if err != nil {
		return nil, err
	}
	if cfg, err = cfg.WithNetwork(network, project.Paths); err != nil {
		return nil, err
	}
	ring, err := keys.Derive(cfg.Accounts.Mnemonic, cfg.Accounts.HDPath, cfg.Accounts.Count)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, project: project, network: network, ring: ring, log: app.Logger(cfg.App.LogLevel)}, nil
}

// forkURL prefers the environment over the project's network.
func (e *env) forkURL() string {
	if url := e.cfg.ForkURL(); url != "" {
		return url
	}
	if e.network.Forking.Enabled {
		return e.network.Forking.URL
	}
	return ""
}

func (e *env) backend(ctx context.Context) (chain.Backend, artifacts.Source, error) {
	switch e.cfg.Node.Backend {
	case config.BackendMemory:
		opts := []memchain.Option{memchain.WithAccounts(e.ring.Addresses()...), memchain.WithLogger(e.log)}
		if e.cfg.Node.ChainID != 0 {
			opts = append(opts, memchain.WithChainID(e.cfg.Node.ChainID))
		}
		return memchain.New(opts...), contracts.Builtin(), nil
	case config.BackendEVM:
		b, err := evm.NewBackend(ctx, e.cfg.Node.RPCURL, e.ring,
			evm.WithLogger(e.log),
			evm.WithRateLimit(e.cfg.Node.RateLimit),
			evm.WithTimeout(e.cfg.Node.Timeout),
			evm.WithForkMethod(e.cfg.Node.ForkMethod),
		)
		if err != nil {
			return nil, nil, err
		}
		if id, err := b.ChainID(ctx); err == nil && e.cfg.Node.ChainID != 0 && id.Int64() != e.cfg.Node.ChainID {
			e.log.Warn("node chain id differs from the configured one",
				zap.Stringer("node", id), zap.Int64("configured", e.cfg.Node.ChainID))
		}
		return b, artifacts.NewDir(e.cfg.Gift.ArtifactsDir, artifactCacheSize), nil
	}
	return nil, nil, fmt.Errorf("unknown backend %q", e.cfg.Node.Backend)
}
