// Copyright (C) The Cellcount Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package cellcount

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"strconv"
	"strings"

	"github.com/klauspost/pgzip"
	"gopkg.in/guregu/null.v3"
)

// rawRow is one line of the flat input table, with numeric columns
// already parsed.
type rawRow struct {
	line       int
	sample     string
	subject    string
	project    string
	condition  string
	age        int64
	sex        string
	treatment  string
	response   string
	sampleType string
	time       null.Int
	counts     [nPopulations]int64
}

var metadataColumns = []string{
	"sample",
	"subject",
	"project",
	"condition",
	"age",
	"sex",
	"treatment",
	"response",
	"sample_type",
	"time_from_treatment_start",
}

// readRawRows parses a cell-count CSV file. Columns are located by
// name in the header row; extra columns are ignored.
func readRawRows(r io.Reader) ([]rawRow, error) {
	c := csv.NewReader(r)
	c.TrimLeadingSpace = true
	header, err := c.Read()
	if err == io.EOF {
		return nil, errors.New("empty input: no header row")
	} else if err != nil {
		return nil, err
	}
	col := map[string]int{}
	for i, name := range header {
		col[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	for _, name := range append(append([]string(nil), metadataColumns...), Populations[:]...) {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("no column named %q in header row %q", name, header)
		}
	}

	var rows []rawRow
	c.ReuseRecord = true
	for {
		rec, err := c.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, err
		}
		line, _ := c.FieldPos(0)
		get := func(name string) string { return strings.TrimSpace(rec[col[name]]) }
		row := rawRow{
			line:       line,
			sample:     get("sample"),
			subject:    get("subject"),
			project:    get("project"),
			condition:  get("condition"),
			sex:        get("sex"),
			treatment:  get("treatment"),
			response:   get("response"),
			sampleType: get("sample_type"),
		}
		row.age, err = strconv.ParseInt(get("age"), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: error parsing age %q: %w", line, get("age"), err)
		}
		if s := get("time_from_treatment_start"); s != "" {
			t, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: error parsing time_from_treatment_start %q: %w", line, s, err)
			}
			row.time = null.IntFrom(t)
		}
		for i, pop := range Populations {
			row.counts[i], err = parseCount(get(pop))
			if err != nil {
				return nil, fmt.Errorf("line %d: error parsing %s count for sample %q: %w", line, pop, row.sample, err)
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// parseCount accepts a non-negative integer, also when written with a
// zero fractional part ("12.0").
func parseCount(s string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || f != float64(int64(f)) {
			return 0, err
		}
		n = int64(f)
	}
	if n < 0 {
		return 0, fmt.Errorf("negative count %d", n)
	}
	return n, nil
}

type gzipReadCloser struct {
	*pgzip.Reader
	f io.Closer
}

func (r gzipReadCloser) Close() error {
	err := r.Reader.Close()
	if cerr := r.f.Close(); err == nil {
		err = cerr
	}
	return err
}

// openInput opens the named file for reading, transparently
// decompressing it if the name ends in ".gz". The name "-" means
// stdin.
func openInput(fnm string, stdin io.Reader) (io.ReadCloser, error) {
	if fnm == "-" {
		return ioutil.NopCloser(stdin), nil
	}
	f, err := os.Open(fnm)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(fnm, ".gz") {
		return f, nil
	}
	gz, err := pgzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", fnm, err)
	}
	return gzipReadCloser{Reader: gz, f: f}, nil
}
