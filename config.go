// Copyright (C) The Cellcount Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package cellcount

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// config holds the defaults for command line flags. Each field can be
// set with a CELLCOUNT_* environment variable, e.g.
// CELLCOUNT_SAMPLE_TYPE=WB.
type config struct {
	// DB is the normalized store sqlite file.
	DB string `default:"cellcount.db"`

	// Treatment, Condition and SampleType select the analysis cohort.
	Treatment  string `default:"miraclib"`
	Condition  string `default:"melanoma"`
	SampleType string `split_words:"true" default:"PBMC"`
}

func loadConfig() (config, error) {
	var cfg config
	err := envconfig.Process("cellcount", &cfg)
	if err != nil {
		return cfg, fmt.Errorf("failed to parse configuration from environment: %w", err)
	}
	return cfg, nil
}
