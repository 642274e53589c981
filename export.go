// Copyright (C) The Cellcount Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package cellcount

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/klauspost/pgzip"
	"github.com/kshedden/gonpy"
	"gopkg.in/guregu/null.v3"
)

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

// outputFile buffers writes to a file, compressing them if the file
// name ends in ".gz". Close flushes and closes everything; it is safe
// to call more than once.
type outputFile struct {
	*bufio.Writer
	gz     *pgzip.Writer
	f      io.WriteCloser
	closed bool
}

// createOutput creates (or truncates) the named file. The name "-"
// means stdout, which is never closed.
func createOutput(fnm string, stdout io.Writer) (*outputFile, error) {
	var f io.WriteCloser
	if fnm == "-" {
		f = nopCloser{stdout}
	} else {
		var err error
		f, err = os.OpenFile(fnm, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0666)
		if err != nil {
			return nil, err
		}
	}
	out := &outputFile{f: f}
	if strings.HasSuffix(fnm, ".gz") {
		out.gz = pgzip.NewWriter(f)
		out.Writer = bufio.NewWriter(out.gz)
	} else {
		out.Writer = bufio.NewWriter(f)
	}
	return out, nil
}

func (out *outputFile) Close() error {
	if out.closed {
		return nil
	}
	out.closed = true
	err := out.Writer.Flush()
	if out.gz != nil {
		if gzerr := out.gz.Close(); err == nil {
			err = gzerr
		}
	}
	if cerr := out.f.Close(); err == nil {
		err = cerr
	}
	return err
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func formatNullFloat(f null.Float) string {
	if !f.Valid {
		return ""
	}
	return formatFloat(f.Float64)
}

func writeCSV(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	cw.Write(header)
	cw.WriteAll(rows)
	return cw.Error()
}

// writeSummary writes the frequency table: one line per (sample,
// population).
func writeSummary(w io.Writer, freqs []Frequency) error {
	rows := make([][]string, 0, len(freqs))
	for _, f := range freqs {
		rows = append(rows, []string{
			f.SampleID,
			strconv.FormatInt(f.TotalCount, 10),
			f.Population,
			strconv.FormatInt(f.Count, 10),
			formatFloat(f.Percentage),
		})
	}
	return writeCSV(w, []string{"sample", "total_count", "population", "count", "percentage"}, rows)
}

func writeSubjects(w io.Writer, subjects []Subject) error {
	rows := make([][]string, 0, len(subjects))
	for _, s := range subjects {
		rows = append(rows, []string{s.ID, s.Condition, strconv.FormatInt(s.Age, 10), s.Sex, s.Treatment, s.Response})
	}
	return writeCSV(w, []string{"subject_id", "condition", "age", "sex", "treatment", "response"}, rows)
}

func writeProjects(w io.Writer, projects []Project) error {
	rows := make([][]string, 0, len(projects))
	for _, p := range projects {
		rows = append(rows, []string{p.ID, p.SampleType})
	}
	return writeCSV(w, []string{"project_id", "sample_type"}, rows)
}

// writeCohort writes the joined, filtered rows that the comparison
// was computed from.
func writeCohort(w io.Writer, rows []CohortRow) error {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, []string{
			r.SampleID,
			r.SubjectID,
			r.ProjectID,
			r.SampleType,
			r.Subject.Response,
			r.Population,
			strconv.FormatInt(r.Count, 10),
			formatFloat(r.Percentage),
		})
	}
	return writeCSV(w, []string{"sample", "subject_id", "project_id", "sample_type", "response", "population", "count", "percentage"}, out)
}

func writeComparisons(w io.Writer, cmps []Comparison) error {
	rows := make([][]string, 0, len(cmps))
	for _, c := range cmps {
		rows = append(rows, []string{
			c.Population,
			c.Status,
			strconv.Itoa(c.Responders),
			strconv.Itoa(c.NonResponders),
			formatNullFloat(c.MeanResponders),
			formatNullFloat(c.MeanNonResponders),
			formatNullFloat(c.T),
			formatNullFloat(c.DF),
			formatNullFloat(c.PValue),
			c.Verdict,
			formatNullFloat(c.GLMPValue),
		})
	}
	return writeCSV(w, []string{
		"population", "status", "n_responders", "n_non_responders",
		"mean_responders", "mean_non_responders", "t", "df",
		"p_value", "verdict", "glm_p_value",
	}, rows)
}

// writePercentageMatrix writes a float64 numpy array with one row per
// distinct sample (in order of appearance) and one column per
// population.
func writePercentageMatrix(w io.Writer, freqs []Frequency) (rows int, err error) {
	data := make([]float64, 0, len(freqs))
	var last string
	for i, f := range freqs {
		if i%nPopulations == 0 {
			if f.Population != Populations[0] || (i > 0 && f.SampleID == last) {
				return 0, fmt.Errorf("bug: frequency rows not in sample/population order at row %d", i)
			}
			last = f.SampleID
			rows++
		}
		data = append(data, f.Percentage)
	}
	if len(data) != rows*nPopulations {
		return 0, fmt.Errorf("bug: %d frequency rows is not a multiple of %d", len(data), nPopulations)
	}
	npw, err := gonpy.NewWriter(nopCloser{w})
	if err != nil {
		return 0, err
	}
	npw.Shape = []int{rows, nPopulations}
	err = npw.WriteFloat64(data)
	return rows, err
}
