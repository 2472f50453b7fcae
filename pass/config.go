// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package pass

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/stage"
)

// fileCatalog is the on-disk shape of a pass configuration file.
//
// Example:
//
//	[pass.background]
//	clear = [0.1, 0.1, 0.15, 1.0]
//
//	[pass.transparent]
//	sort = "back-to-front"
//
//	[pass.overlay]
//	load = "clear"
type fileCatalog struct {
	Pass map[string]passOverride `toml:"pass"`
}

// passOverride holds the fields a configuration file may change. Nil/empty
// fields leave the registry default untouched.
type passOverride struct {
	Clear *[4]float64 `toml:"clear"`
	Load  string      `toml:"load"`  // "clear" or "load"
	Sort  string      `toml:"sort"`  // "state", "front-to-back", "back-to-front", "key"
	Blend *bool       `toml:"blend"` // premultiplied alpha blending
}

// LoadConfig applies pass overrides from a TOML file to the registry.
//
// Overrides for unknown pass names are skipped with a warning; a malformed
// file is a configuration error and returned to the caller. LoadConfig is
// host-setup API, like Register.
func (r *Registry) LoadConfig(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("pass: read config: %w", err)
	}
	return r.ApplyConfig(string(data))
}

// ApplyConfig applies pass overrides from TOML source text.
func (r *Registry) ApplyConfig(src string) error {
	var cat fileCatalog
	if _, err := toml.Decode(src, &cat); err != nil {
		return fmt.Errorf("pass: decode config: %w", err)
	}

	for name, ov := range cat.Pass {
		bit, ok := r.byName[name]
		if !ok || !bit.IsSingle() {
			stage.Logger().Warn("pass: config for unknown pass", "name", name)
			continue
		}
		cfg := r.configs[bit]
		if err := applyOverride(&cfg, ov); err != nil {
			return fmt.Errorf("pass: config for %q: %w", name, err)
		}
		r.configs[bit] = cfg
	}
	return nil
}

// applyOverride merges one override into a pass configuration.
func applyOverride(cfg *Config, ov passOverride) error {
	if ov.Clear != nil {
		cfg.ClearColor = gputypes.Color{
			R: ov.Clear[0], G: ov.Clear[1], B: ov.Clear[2], A: ov.Clear[3],
		}
	}
	switch ov.Load {
	case "":
	case "clear":
		cfg.LoadOp = gputypes.LoadOpClear
	case "load":
		cfg.LoadOp = gputypes.LoadOpLoad
	default:
		return fmt.Errorf("invalid load op %q", ov.Load)
	}
	switch ov.Sort {
	case "":
	case "state":
		cfg.Sort = SortState
	case "front-to-back":
		cfg.Sort = SortFrontToBack
	case "back-to-front":
		cfg.Sort = SortBackToFront
	case "key":
		cfg.Sort = SortKey
	default:
		return fmt.Errorf("invalid sort order %q", ov.Sort)
	}
	if ov.Blend != nil {
		cfg.Blend = *ov.Blend
	}
	return nil
}
