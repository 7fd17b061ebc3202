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

// Package config holds the tunable parameters of a variant calling run.
//
// Parameters are taken from their defaults, then from an optional YAML
// file, then from ELCALL_* environment variables. Command line flags
// are applied last by the caller.
package config

import (
	"errors"
	"fmt"
	"io"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"github.com/exascience/elcall/candidates"
	"github.com/exascience/elcall/internal"
)

// Config is the set of parameters of a calling run.
type Config struct {
	MinBaseQuality          int  `yaml:"min-base-quality" envconfig:"ELCALL_MIN_BASE_QUALITY"`
	MaxLengthMnv            int  `yaml:"max-length-mnv" envconfig:"ELCALL_MAX_LENGTH_MNV"`
	MaxLengthInterveningRef int  `yaml:"max-length-intervening-ref" envconfig:"ELCALL_MAX_LENGTH_INTERVENING_REF"`
	MinSupport              int  `yaml:"min-support" envconfig:"ELCALL_MIN_SUPPORT"`
	BlockSize               int  `yaml:"block-size" envconfig:"ELCALL_BLOCK_SIZE"`
	IncludeSecondary        bool `yaml:"include-secondary" envconfig:"ELCALL_INCLUDE_SECONDARY"`
}

// Default returns the parameters used when nothing is configured.
func Default() Config {
	policy := candidates.DefaultPolicy()
	return Config{
		MinBaseQuality:          int(policy.MinBaseQuality),
		MaxLengthMnv:            policy.MaxLengthMnv,
		MaxLengthInterveningRef: policy.MaxLengthInterveningRef,
		MinSupport:              2,
		BlockSize:               1000,
	}
}

// Load returns the default configuration, overridden by the YAML file
// at filename if it is not empty, and then by the environment.
func Load(filename string) (cfg Config, err error) {
	cfg = Default()
	if filename != "" {
		if err = decodeFile(filename, &cfg); err != nil {
			return cfg, err
		}
	}
	if err = envconfig.Process("", &cfg); err != nil {
		return cfg, fmt.Errorf("invalid environment configuration: %w", err)
	}
	return cfg, nil
}

func decodeFile(filename string, cfg *Config) (err error) {
	f, err := internal.Open(filename)
	if err != nil {
		return err
	}
	defer internal.Close(f, &err)
	decoder := yaml.NewDecoder(f)
	decoder.SetStrict(true)
	if err = decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("invalid configuration file %v: %w", filename, err)
	}
	return nil
}

// Policy returns the candidate detection parameters.
func (cfg *Config) Policy() candidates.Policy {
	return candidates.Policy{
		MinBaseQuality:          byte(cfg.MinBaseQuality),
		MaxLengthMnv:            cfg.MaxLengthMnv,
		MaxLengthInterveningRef: cfg.MaxLengthInterveningRef,
	}
}

// Validate checks that all parameters are in range.
func (cfg *Config) Validate() error {
	if cfg.MinBaseQuality < 0 || cfg.MinBaseQuality > 255 {
		return fmt.Errorf("invalid minimum base quality %v, must be between 0 and 255", cfg.MinBaseQuality)
	}
	if cfg.MinSupport < 1 {
		return fmt.Errorf("invalid minimum support %v, must be at least 1", cfg.MinSupport)
	}
	if cfg.BlockSize < 1 {
		return fmt.Errorf("invalid block size %v, must be at least 1", cfg.BlockSize)
	}
	return cfg.Policy().Validate()
}
