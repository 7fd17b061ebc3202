// elCall: a high-performance tool for calling variants from SAM/BAM files.
// Copyright (c) 2021 imec vzw.

// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version, and Additional Terms
// (see below).

// This program is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Affero General Public License for more details.

// You should have received a copy of the GNU Affero General Public
// License and Additional Terms along with this program. If not, see
// <https://github.com/ExaScience/elprep/blob/master/LICENSE.txt>.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exascience/elcall/candidates"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	filename := filepath.Join(t.TempDir(), "elcall.yml")
	require.NoError(t, os.WriteFile(filename, []byte(contents), 0600))
	return filename
}

func TestDefault(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, candidates.DefaultPolicy(), cfg.Policy())
	assert.Equal(t, 2, cfg.MinSupport)
	assert.Equal(t, 1000, cfg.BlockSize)
	assert.False(t, cfg.IncludeSecondary)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFile(t *testing.T) {
	filename := writeConfig(t, "min-base-quality: 30\nmax-length-mnv: 5\nblock-size: 250\ninclude-secondary: true\n")

	cfg, err := Load(filename)
	require.NoError(t, err)
	assert.Equal(t, 30, cfg.MinBaseQuality)
	assert.Equal(t, 5, cfg.MaxLengthMnv)
	assert.Equal(t, 1, cfg.MaxLengthInterveningRef)
	assert.Equal(t, 250, cfg.BlockSize)
	assert.True(t, cfg.IncludeSecondary)
	assert.Equal(t, byte(30), cfg.Policy().MinBaseQuality)
}

func TestLoadEmptyFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	filename := writeConfig(t, "min-support: 4\nmax-length-intervening-ref: 2\n")
	t.Setenv("ELCALL_MIN_SUPPORT", "7")

	cfg, err := Load(filename)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.MinSupport)
	assert.Equal(t, 2, cfg.MaxLengthInterveningRef)
}

func TestLoadRelativePath(t *testing.T) {
	filename := writeConfig(t, "block-size: 250\n")
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(filepath.Dir(filename)))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := Load(filepath.Base(filename))
	require.NoError(t, err)
	assert.Equal(t, 250, cfg.BlockSize)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(writeConfig(t, "unknown-key: 1\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "min-support: many\n"))
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	t.Setenv("ELCALL_BLOCK_SIZE", "large")
	_, err = Load("")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []func(*Config){
		func(cfg *Config) { cfg.MinBaseQuality = -1 },
		func(cfg *Config) { cfg.MinBaseQuality = 256 },
		func(cfg *Config) { cfg.MinSupport = 0 },
		func(cfg *Config) { cfg.BlockSize = 0 },
		func(cfg *Config) { cfg.MaxLengthMnv = 0 },
		func(cfg *Config) { cfg.MaxLengthInterveningRef = -1 },
	}
	for i, modify := range tests {
		cfg := Default()
		modify(&cfg)
		if cfg.Validate() == nil {
			t.Errorf("invalid configuration %v accepted", i)
		}
	}
}
