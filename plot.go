// Copyright (C) The Cellcount Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package cellcount

import (
	_ "embed"
	"flag"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

// boxPlot renders the responder/non-responder boxplot from the
// tables written by "run".
type boxPlot struct{}

//go:embed boxplot.py
var boxplotScript string

func (cmd *boxPlot) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var err error
	defer func() {
		if err != nil {
			fmt.Fprintf(stderr, "%s\n", err)
		}
	}()
	flags := flag.NewFlagSet("", flag.ContinueOnError)
	flags.SetOutput(stderr)
	inputDir := flags.String("i", "./out", "input `directory` (output of run)")
	outputFilename := flags.String("o", "", "output `filename` (e.g., './boxplot.png')")
	python := flags.String("python", "python3", "python interpreter `program` (needs matplotlib)")
	err = flags.Parse(args)
	if err == flag.ErrHelp {
		err = nil
		return 0
	} else if err != nil {
		return 2
	} else if flags.NArg() > 0 {
		err = fmt.Errorf("errant command line arguments after parsed flags: %v", flags.Args())
		return 2
	}
	if *outputFilename == "" {
		err = fmt.Errorf("must specify -o filename.png (or try -help)")
		return 2
	}

	py := exec.Command(*python, "-", *inputDir+"/cohort.csv", *inputDir+"/comparison.csv", *outputFilename)
	py.Stdin = strings.NewReader(boxplotScript)
	py.Stdout = stdout
	py.Stderr = stderr
	err = py.Run()
	if err != nil {
		return 1
	}
	return 0
}
