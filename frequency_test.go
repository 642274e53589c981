// Copyright (C) The Cellcount Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package cellcount

import (
	"errors"
	"math"

	"gopkg.in/check.v1"
)

type frequencySuite struct{}

var _ = check.Suite(&frequencySuite{})

func (s *frequencySuite) TestFixture(c *check.C) {
	rel, _, err := normalize(readFixture(c))
	c.Assert(err, check.IsNil)
	freqs, err := Frequencies(rel.Samples)
	c.Assert(err, check.IsNil)
	c.Assert(freqs, check.HasLen, 9*nPopulations)
	c.Check(freqs[0], check.Equals, Frequency{
		SampleID:   "sample001",
		SubjectID:  "sbj0001",
		ProjectID:  "prj1",
		TotalCount: 1000,
		Population: "b_cell",
		Count:      100,
		Percentage: 0.1,
	})
	c.Check(freqs[4].Population, check.Equals, "monocyte")
	c.Check(freqs[5].SampleID, check.Equals, "sample002")

	sums := map[string]float64{}
	for _, f := range freqs {
		c.Check(f.Percentage >= 0 && f.Percentage <= 1, check.Equals, true)
		sums[f.SampleID] += f.Percentage
	}
	c.Check(sums, check.HasLen, 9)
	for id, sum := range sums {
		c.Check(math.Abs(sum-1) < 1e-9, check.Equals, true, check.Commentf("sample %s sums to %v", id, sum))
	}
}

func (s *frequencySuite) TestSinglePopulation(c *check.C) {
	freqs, err := Frequencies([]Sample{{ID: "s7", SubjectID: "sbj0007", ProjectID: "p1", Counts: [nPopulations]int64{10, 0, 0, 0, 0}}})
	c.Assert(err, check.IsNil)
	c.Assert(freqs, check.HasLen, nPopulations)
	c.Check(freqs[0].Percentage, check.Equals, 1.0)
	for _, f := range freqs[1:] {
		c.Check(f.Percentage, check.Equals, 0.0)
		c.Check(f.TotalCount, check.Equals, int64(10))
	}
}

func (s *frequencySuite) TestSortedBySample(c *check.C) {
	freqs, err := Frequencies([]Sample{
		{ID: "s2", Counts: [nPopulations]int64{1, 1, 1, 1, 1}},
		{ID: "s10", Counts: [nPopulations]int64{1, 2, 3, 4, 5}},
		{ID: "s1", Counts: [nPopulations]int64{5, 4, 3, 2, 1}},
	})
	c.Assert(err, check.IsNil)
	var order []string
	for i, f := range freqs {
		c.Check(f.Population, check.Equals, Populations[i%nPopulations])
		if i%nPopulations == 0 {
			order = append(order, f.SampleID)
		}
	}
	c.Check(order, check.DeepEquals, []string{"s1", "s10", "s2"})
}

func (s *frequencySuite) TestEmptySample(c *check.C) {
	_, err := Frequencies([]Sample{
		{ID: "s1", Counts: [nPopulations]int64{1, 1, 1, 1, 1}},
		{ID: "s2"},
	})
	var e *EmptySampleError
	c.Assert(errors.As(err, &e), check.Equals, true)
	c.Check(e.SampleID, check.Equals, "s2")
	c.Check(err, check.ErrorMatches, `sample "s2" has a total count of zero`)
}

func (s *frequencySuite) TestNoSamples(c *check.C) {
	freqs, err := Frequencies(nil)
	c.Check(err, check.IsNil)
	c.Check(freqs, check.HasLen, 0)
}
