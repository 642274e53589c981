// Copyright (C) The Cellcount Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package cellcount

import (
	"io"
	"log"
	"math"

	"github.com/kshedden/statmodel/glm"
	"github.com/kshedden/statmodel/statmodel"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

var glmConfig = &glm.Config{
	Family:         glm.NewFamily(glm.BinomialFamily),
	FitMethod:      "IRLS",
	ConcurrentIRLS: 1000,
	Log:            log.New(io.Discard, "", 0),
}

// standardize rescales a to mean 0, standard deviation 1. It returns
// false if a is constant.
func standardize(a []float64) bool {
	mean, std := stat.MeanStdDev(a, nil)
	if std == 0 || math.IsNaN(std) {
		return false
	}
	for i, x := range a {
		a[i] = (x - mean) / std
	}
	return true
}

// Logistic regression likelihood-ratio test of response ~ percentage.
//
// Returns ok==false if the percentages are constant or the model
// cannot be fit.
func glmPvalue(responders, nonResponders []float64) (p float64, ok bool) {
	defer func() {
		if recover() != nil {
			// typically "matrix singular or near-singular with condition number +Inf"
			p, ok = 0, false
		}
	}()

	n := len(responders) + len(nonResponders)
	outcome := make([]statmodel.Dtype, 0, n)
	constants := make([]statmodel.Dtype, 0, n)
	percentage := make([]statmodel.Dtype, 0, n)
	for _, x := range responders {
		outcome = append(outcome, 1)
		constants = append(constants, 1)
		percentage = append(percentage, x)
	}
	for _, x := range nonResponders {
		outcome = append(outcome, 0)
		constants = append(constants, 1)
		percentage = append(percentage, x)
	}
	if !standardize(percentage) {
		return 0, false
	}

	names := []string{"outcome", "constants"}
	model, err := glm.NewGLM(statmodel.NewDataset([][]statmodel.Dtype{outcome, constants}, names), "outcome", names[1:], glmConfig)
	if err != nil {
		return 0, false
	}
	logNull := model.Fit().LogLike()

	names = append(names, "percentage")
	model, err = glm.NewGLM(statmodel.NewDataset([][]statmodel.Dtype{outcome, constants, percentage}, names), "outcome", names[1:], glmConfig)
	if err != nil {
		return 0, false
	}
	logFull := model.Fit().LogLike()

	lr := -2 * (logNull - logFull)
	if math.IsNaN(lr) {
		return 0, false
	}
	if lr < 0 {
		lr = 0
	}
	dist := distuv.ChiSquared{K: 1}
	return dist.Survival(lr), true
}
