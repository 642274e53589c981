// Copyright (C) The Cellcount Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package cellcount

import (
	"io/ioutil"
	"os"
	"strings"

	"github.com/klauspost/pgzip"
	"gopkg.in/check.v1"
	"gopkg.in/guregu/null.v3"
)

type inputSuite struct{}

var _ = check.Suite(&inputSuite{})

const testHeader = "sample,subject,project,condition,age,sex,treatment,response,sample_type,time_from_treatment_start,b_cell,cd8_t_cell,cd4_t_cell,nk_cell,monocyte\n"

func (s *inputSuite) TestReadFixture(c *check.C) {
	f, err := os.Open("testdata/cell-count.csv")
	c.Assert(err, check.IsNil)
	defer f.Close()
	rows, err := readRawRows(f)
	c.Assert(err, check.IsNil)
	c.Assert(rows, check.HasLen, 9)
	c.Check(rows[0], check.DeepEquals, rawRow{
		line:       2,
		sample:     "sample001",
		subject:    "sub1",
		project:    "prj1",
		condition:  "melanoma",
		age:        57,
		sex:        "M",
		treatment:  "miraclib",
		response:   "yes",
		sampleType: "PBMC",
		time:       null.IntFrom(0),
		counts:     [nPopulations]int64{100, 200, 300, 150, 250},
	})
	c.Check(rows[8].line, check.Equals, 10)
	c.Check(rows[8].time.Valid, check.Equals, false)
	c.Check(rows[8].response, check.Equals, "")
}

func (s *inputSuite) TestColumnOrderAndExtraColumns(c *check.C) {
	rows, err := readRawRows(strings.NewReader("monocyte,nk_cell,cd4_t_cell,cd8_t_cell,b_cell,notes,time_from_treatment_start,sample_type,response,treatment,sex,age,condition,project,subject,sample\n" +
		"5,4,3,2,1,hello,7,PBMC,no,miraclib,F,40,melanoma,p1,sub7,s1\n"))
	c.Assert(err, check.IsNil)
	c.Assert(rows, check.HasLen, 1)
	c.Check(rows[0].counts, check.Equals, [nPopulations]int64{1, 2, 3, 4, 5})
	c.Check(rows[0].subject, check.Equals, "sub7")
	c.Check(rows[0].time, check.Equals, null.IntFrom(7))
}

func (s *inputSuite) TestMissingColumn(c *check.C) {
	_, err := readRawRows(strings.NewReader("sample,subject,project\ns1,sub1,p1\n"))
	c.Check(err, check.ErrorMatches, `no column named "condition" in header row .*`)
}

func (s *inputSuite) TestEmpty(c *check.C) {
	_, err := readRawRows(strings.NewReader(""))
	c.Check(err, check.ErrorMatches, `empty input.*`)
}

func (s *inputSuite) TestBadValues(c *check.C) {
	for _, trial := range []struct {
		line string
		err  string
	}{
		{"s1,sub1,p1,melanoma,old,M,miraclib,yes,PBMC,0,1,2,3,4,5\n", `line 2: error parsing age "old".*`},
		{"s1,sub1,p1,melanoma,40,M,miraclib,yes,PBMC,soon,1,2,3,4,5\n", `line 2: error parsing time_from_treatment_start "soon".*`},
		{"s1,sub1,p1,melanoma,40,M,miraclib,yes,PBMC,0,1,-2,3,4,5\n", `line 2: error parsing cd8_t_cell count for sample "s1": negative count -2`},
		{"s1,sub1,p1,melanoma,40,M,miraclib,yes,PBMC,0,1,2,3.5,4,5\n", `line 2: error parsing cd4_t_cell count .*`},
		{"s1,sub1,p1,melanoma,40,M,miraclib,yes,PBMC,0,1,2,3\n", `.*wrong number of fields`},
	} {
		_, err := readRawRows(strings.NewReader(testHeader + trial.line))
		c.Check(err, check.ErrorMatches, trial.err)
	}
}

func (s *inputSuite) TestIntegralFloatCount(c *check.C) {
	rows, err := readRawRows(strings.NewReader(testHeader + "s1,sub1,p1,melanoma,40,M,miraclib,yes,PBMC,0,12.0,2,3,4,5\n"))
	c.Assert(err, check.IsNil)
	c.Check(rows[0].counts[0], check.Equals, int64(12))
}

func (s *inputSuite) TestOpenGzip(c *check.C) {
	tmpdir := c.MkDir()
	plain, err := ioutil.ReadFile("testdata/cell-count.csv")
	c.Assert(err, check.IsNil)
	f, err := os.Create(tmpdir + "/cell-count.csv.gz")
	c.Assert(err, check.IsNil)
	gz := pgzip.NewWriter(f)
	_, err = gz.Write(plain)
	c.Assert(err, check.IsNil)
	c.Assert(gz.Close(), check.IsNil)
	c.Assert(f.Close(), check.IsNil)

	in, err := openInput(tmpdir+"/cell-count.csv.gz", nil)
	c.Assert(err, check.IsNil)
	defer in.Close()
	rows, err := readRawRows(in)
	c.Assert(err, check.IsNil)
	c.Check(rows, check.HasLen, 9)
	c.Check(in.Close(), check.IsNil)
}

func (s *inputSuite) TestOpenStdin(c *check.C) {
	in, err := openInput("-", strings.NewReader(testHeader))
	c.Assert(err, check.IsNil)
	rows, err := readRawRows(in)
	c.Check(err, check.IsNil)
	c.Check(rows, check.HasLen, 0)
}
