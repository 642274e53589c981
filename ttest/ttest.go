// Copyright (C) The Cellcount Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

// Package ttest implements Welch's unequal-variance two-sample
// t-test.
package ttest

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// ErrInsufficientSample is returned when either group has fewer than
// two observations, so its variance is undefined.
var ErrInsufficientSample = errors.New("need at least 2 observations in each group")

type Result struct {
	T  float64 // t statistic; ±Inf if both groups are constant and differ
	DF float64 // Welch-Satterthwaite degrees of freedom
	P  float64 // two-sided p-value
}

// Welch compares the means of a and b without assuming equal
// variances.
//
// If both groups are constant the t statistic is undefined; then P
// is 1 when the two constants are equal and 0 otherwise.
func Welch(a, b []float64) (Result, error) {
	na, nb := float64(len(a)), float64(len(b))
	if na < 2 || nb < 2 {
		return Result{}, ErrInsufficientSample
	}
	if constant(a) && constant(b) {
		// The computed means of equal constants can differ in
		// the last bit, so compare the values themselves.
		res := Result{DF: na + nb - 2, P: 1}
		if a[0] != b[0] {
			res.T = math.Inf(1)
			if a[0] < b[0] {
				res.T = math.Inf(-1)
			}
			res.P = 0
		}
		return res, nil
	}
	meanA, varA := stat.MeanVariance(a, nil)
	meanB, varB := stat.MeanVariance(b, nil)
	sa, sb := varA/na, varB/nb
	t := (meanA - meanB) / math.Sqrt(sa+sb)
	df := (sa + sb) * (sa + sb) / (sa*sa/(na-1) + sb*sb/(nb-1))
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	p := 2 * dist.Survival(math.Abs(t))
	if p > 1 {
		p = 1
	}
	return Result{T: t, DF: df, P: p}, nil
}

func constant(x []float64) bool {
	for _, v := range x[1:] {
		if v != x[0] {
			return false
		}
	}
	return true
}
