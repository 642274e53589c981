// Copyright (C) The Cellcount Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package cellcount

import (
	"context"

	"gopkg.in/check.v1"
)

type storeSuite struct{}

var _ = check.Suite(&storeSuite{})

func (s *storeSuite) TestRoundTrip(c *check.C) {
	ctx := context.Background()
	rel, _, err := normalize(readFixture(c))
	c.Assert(err, check.IsNil)

	dbfile := c.MkDir() + "/cellcount.db"
	st, err := openStore(dbfile)
	c.Assert(err, check.IsNil)
	c.Assert(st.Replace(ctx, rel), check.IsNil)
	got, err := st.Relations(ctx)
	c.Assert(err, check.IsNil)
	c.Check(got, check.DeepEquals, rel)
	c.Assert(st.Close(), check.IsNil)

	// Reopen, and load the same relations again.
	st, err = openStore(dbfile)
	c.Assert(err, check.IsNil)
	defer st.Close()
	got, err = st.Relations(ctx)
	c.Assert(err, check.IsNil)
	c.Check(got.Digest(), check.Equals, rel.Digest())
	c.Assert(st.Replace(ctx, rel), check.IsNil)
	got, err = st.Relations(ctx)
	c.Assert(err, check.IsNil)
	c.Check(got, check.DeepEquals, rel)
}

func (s *storeSuite) TestReplaceDiscardsOldRows(c *check.C) {
	ctx := context.Background()
	st, err := openStore(c.MkDir() + "/cellcount.db")
	c.Assert(err, check.IsNil)
	defer st.Close()

	rel, _, err := normalize(readFixture(c))
	c.Assert(err, check.IsNil)
	c.Assert(st.Replace(ctx, rel), check.IsNil)

	small := &Relations{
		Subjects: []Subject{{ID: "sbj0042", Condition: "melanoma", Age: 30, Sex: "F", Treatment: "miraclib", Response: "no"}},
		Projects: []Project{{ID: "p9", SampleType: "WB"}},
		Samples:  []Sample{{ID: "s1", SubjectID: "sbj0042", ProjectID: "p9", Counts: [nPopulations]int64{1, 2, 3, 4, 5}}},
	}
	c.Assert(st.Replace(ctx, small), check.IsNil)
	got, err := st.Relations(ctx)
	c.Assert(err, check.IsNil)
	c.Check(got, check.DeepEquals, small)
}

func (s *storeSuite) TestConstraintViolationRollsBack(c *check.C) {
	ctx := context.Background()
	st, err := openStore(c.MkDir() + "/cellcount.db")
	c.Assert(err, check.IsNil)
	defer st.Close()

	rel, _, err := normalize(readFixture(c))
	c.Assert(err, check.IsNil)
	c.Assert(st.Replace(ctx, rel), check.IsNil)

	for _, bad := range []*Relations{
		{
			Subjects: []Subject{{ID: "sbj0001"}},
			Projects: []Project{{ID: "p1", SampleType: "PBMC"}},
			Samples:  []Sample{{ID: "s1", SubjectID: "sbj0002", ProjectID: "p1", Counts: [nPopulations]int64{1, 1, 1, 1, 1}}},
		},
		{
			Subjects: []Subject{{ID: "sbj0001"}},
			Projects: []Project{{ID: "p1", SampleType: "PBMC"}},
			Samples:  []Sample{{ID: "s1", SubjectID: "sbj0001", ProjectID: "p1", Counts: [nPopulations]int64{1, -1, 1, 1, 1}}},
		},
		{
			Subjects: []Subject{{ID: "sbj0001"}, {ID: "sbj0001"}},
		},
	} {
		err = st.Replace(ctx, bad)
		c.Check(err, check.NotNil)
		got, err := st.Relations(ctx)
		c.Assert(err, check.IsNil)
		c.Check(got.Digest(), check.Equals, rel.Digest())
	}
}

func (s *storeSuite) TestEmptyStore(c *check.C) {
	st, err := openStore(c.MkDir() + "/cellcount.db")
	c.Assert(err, check.IsNil)
	defer st.Close()
	_, err = st.Relations(context.Background())
	c.Check(err, check.ErrorMatches, `.*select subjects: .*no such table.*`)
}
