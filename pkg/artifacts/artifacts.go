package artifacts

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/arnac-io/safegift/pkg/cache"
	"github.com/arnac-io/safegift/pkg/core"
)

// Artifact is a compiled contract as written by `hardhat compile`.
type Artifact struct {
	Format           string
	ContractName     string
	SourceName       string
	ABI              abi.ABI
	Bytecode         []byte
	DeployedBytecode []byte
}

// HasBytecode reports whether the artifact can be deployed to a real node.
func (a Artifact) HasBytecode() bool {
	return len(a.Bytecode) > 0
}

// Source resolves artifacts by contract name.
type Source interface {
	Artifact(name string) (Artifact, error)
}

// Parse decodes a hardhat artifact file.
func Parse(data []byte) (Artifact, error) {
	var (
		a      Artifact
		rawABI []byte
	)
	d := jx.DecodeBytes(data)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "_format":
			v, err := d.Str()
			a.Format = v
			return err
		case "contractName":
			v, err := d.Str()
			a.ContractName = v
			return err
		case "sourceName":
			v, err := d.Str()
			a.SourceName = v
			return err
		case "abi":
			raw, err := d.Raw()
			rawABI = append([]byte(nil), raw...)
			return err
		case "bytecode":
			v, err := d.Str()
			if err != nil {
				return err
			}
			if a.Bytecode, err = decodeHex(v); err != nil {
				return errors.Wrap(err, "bytecode")
			}
			return nil
		case "deployedBytecode":
			v, err := d.Str()
			if err != nil {
				return err
			}
			if a.DeployedBytecode, err = decodeHex(v); err != nil {
				return errors.Wrap(err, "deployedBytecode")
			}
			return nil
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return Artifact{}, errors.Wrap(err, "decode artifact")
	}
	if a.ContractName == "" {
		return Artifact{}, errors.New("artifact has no contractName")
	}
	if rawABI == nil {
		return Artifact{}, fmt.Errorf("artifact %s has no abi", a.ContractName)
	}
	a.ABI, err = abi.JSON(bytes.NewReader(rawABI))
	if err != nil {
		return Artifact{}, errors.Wrapf(err, "parse abi of %s", a.ContractName)
	}
	return a, nil
}

func decodeHex(s string) ([]byte, error) {
	if s == "" || s == "0x" {
		return nil, nil
	}
	if strings.Contains(s, "__") {
		return nil, errors.New("unlinked library placeholder")
	}
	return hexutil.Decode(s)
}

// Dir loads artifacts from a hardhat artifacts directory,
// where contract X lives at <dir>/**/X.json.
type Dir struct {
	root  string
	cache cache.Cache[string, Artifact]
}

func NewDir(root string, cacheSize int) *Dir {
	return &Dir{
		root:  root,
		cache: cache.NewLRUCache[string, Artifact](cacheSize, "artifacts"),
	}
}

func (d *Dir) Artifact(name string) (Artifact, error) {
	return d.cache.GetOrLoad(name, d.load)
}

func (d *Dir) load(name string) (Artifact, error) {
	path, err := d.find(name)
	if err != nil {
		return Artifact{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Artifact{}, err
	}
	a, err := Parse(data)
	if err != nil {
		return Artifact{}, errors.Wrap(err, path)
	}
	return a, nil
}

func (d *Dir) find(name string) (string, error) {
	want := name + ".json"
	var found string
	err := filepath.WalkDir(d.root, func(path string, e fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if e.IsDir() {
			// build-info holds compiler input/output, not artifacts
			if e.Name() == "build-info" {
				return filepath.SkipDir
			}
			return nil
		}
		if e.Name() == want {
			found = path
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", errors.Wrapf(err, "scan %s", d.root)
	}
	if found == "" {
		return "", fmt.Errorf("%w: artifact %s in %s", core.ErrEntityNotFound, name, d.root)
	}
	return found, nil
}

// Static is an in-memory Source.
type Static map[string]Artifact

func (s Static) Artifact(name string) (Artifact, error) {
	a, ok := s[name]
	if !ok {
		return Artifact{}, fmt.Errorf("%w: artifact %s", core.ErrEntityNotFound, name)
	}
	return a, nil
}

// Chain tries each source in order and returns the first hit.
type Chain []Source

func (c Chain) Artifact(name string) (Artifact, error) {
	var lastErr error = fmt.Errorf("%w: artifact %s", core.ErrEntityNotFound, name)
	for _, s := range c {
		a, err := s.Artifact(name)
		if err == nil {
			return a, nil
		}
		if !errors.Is(err, core.ErrEntityNotFound) {
			return Artifact{}, err
		}
		lastErr = err
	}
	return Artifact{}, lastErr
}
