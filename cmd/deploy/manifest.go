package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joefazee/optionsdesk/app/desk"
	"github.com/joefazee/optionsdesk/internal/chain"
)

// manifest is the deployment file. Desk mirrors the HTTP deploy body.
type manifest struct {
	Deployer string            `toml:"deployer"`
	Desk     desk.DeployPayload `toml:"desk"`
}

func loadManifest(path string) (*manifest, error) {
	var m manifest
	md, err := toml.DecodeFile(path, &m)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return nil, fmt.Errorf("unknown keys in %s: %s", path, strings.Join(keys, ", "))
	}
	return &m, nil
}

// request resolves the manifest into constructor arguments.
func (m *manifest) request() (*desk.DeployRequest, error) {
	deployer, err := chain.ParseAddress(m.Deployer)
	if err != nil {
		return nil, fmt.Errorf("deployer: %w", err)
	}
	if len(m.Desk.Prices) == 0 {
		return nil, errors.New("desk.prices must list one price per supported token")
	}
	return m.Desk.ToDeployRequest(deployer)
}
