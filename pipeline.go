// Copyright (C) The Cellcount Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package cellcount

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"runtime"

	log "github.com/sirupsen/logrus"
)

// analysis holds the result tables derived from one set of
// normalized relations.
type analysis struct {
	Frequencies []Frequency
	Cohort      []CohortRow
	Comparisons []Comparison
}

func analyze(rel *Relations, filter CohortFilter) (*analysis, error) {
	freqs, err := Frequencies(rel.Samples)
	if err != nil {
		return nil, err
	}
	joined, dropped := Join(freqs, rel.Subjects, rel.Projects)
	if dropped > 0 {
		log.Warnf("join dropped %d of %d frequency rows with missing subject or project", dropped, len(freqs))
	}
	cohort := filter.Apply(joined)
	log.Infof("cohort (treatment=%q condition=%q sample_type=%q): %d samples", filter.Treatment, filter.Condition, filter.SampleType, len(cohort)/nPopulations)
	return &analysis{
		Frequencies: freqs,
		Cohort:      cohort,
		Comparisons: Compare(cohort),
	}, nil
}

type runCmd struct {
	filter CohortFilter
}

// usageError is returned by runCmd.run for bad command line
// arguments.
type usageError struct {
	error
}

func (cmd *runCmd) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	err := cmd.run(prog, args, stdin, stdout, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "%s\n", err)
		if errors.As(err, &usageError{}) {
			return 2
		}
		return 1
	}
	return 0
}

func (cmd *runCmd) run(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	flags := flag.NewFlagSet("", flag.ContinueOnError)
	flags.SetOutput(stderr)
	inputFilename := flags.String("i", "-", "input cell count csv `file` (optionally .gz)")
	dbFilename := flags.String("db", cfg.DB, "normalized store sqlite `file` (replaced)")
	outputDir := flags.String("output-dir", "./out", "output `directory`")
	threads := flags.Int("threads", runtime.GOMAXPROCS(0), "number of output files to write concurrently")
	cmd.filter.Flags(flags, cfg)
	err = flags.Parse(args)
	if err == flag.ErrHelp {
		return nil
	} else if err != nil {
		return usageError{err}
	} else if flags.NArg() > 0 {
		return usageError{fmt.Errorf("errant command line arguments after parsed flags: %v", flags.Args())}
	} else if *threads < 1 {
		return usageError{fmt.Errorf("invalid -threads=%d", *threads)}
	}
	err = os.MkdirAll(*outputDir, 0777)
	if err != nil {
		return err
	}

	ctx := context.Background()
	st, err := openStore(*dbFilename)
	if err != nil {
		return err
	}
	defer st.Close()
	_, err = loadInput(ctx, st, *inputFilename, stdin)
	if err != nil {
		return err
	}
	// Analyze what was committed to the store, so the outputs
	// always reflect its contents.
	rel, err := st.Relations(ctx)
	if err != nil {
		return err
	}
	err = st.Close()
	if err != nil {
		return err
	}
	log.Infof("store digest %x", rel.Digest())

	a, err := analyze(rel, cmd.filter)
	if err != nil {
		return err
	}

	thr := throttle{Max: *threads}
	for _, out := range []struct {
		name  string
		write func(io.Writer) error
	}{
		{"summary.csv", func(w io.Writer) error { return writeSummary(w, a.Frequencies) }},
		{"subjects.csv", func(w io.Writer) error { return writeSubjects(w, rel.Subjects) }},
		{"projects.csv", func(w io.Writer) error { return writeProjects(w, rel.Projects) }},
		{"cohort.csv", func(w io.Writer) error { return writeCohort(w, a.Cohort) }},
		{"comparison.csv", func(w io.Writer) error { return writeComparisons(w, a.Comparisons) }},
		{"percentages.npy", func(w io.Writer) error {
			_, err := writePercentageMatrix(w, a.Frequencies)
			return err
		}},
	} {
		fnm, write := *outputDir+"/"+out.name, out.write
		thr.Go(func() error {
			log.Infof("writing %s", fnm)
			return writeFile(fnm, write)
		})
	}
	err = thr.Wait()
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, *outputDir)
	return nil
}

func writeFile(fnm string, write func(io.Writer) error) error {
	out, err := createOutput(fnm, nil)
	if err != nil {
		return err
	}
	defer out.Close()
	err = write(out)
	if err != nil {
		return fmt.Errorf("write %s: %w", fnm, err)
	}
	err = out.Close()
	if err != nil {
		return fmt.Errorf("close %s: %w", fnm, err)
	}
	return nil
}
