// Copyright (C) The Cellcount Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package cellcount

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const subjectIDPrefix = "sbj"

var trailingDigits = regexp.MustCompile(`(\d+)$`)

// canonicalSubjectID rewrites a raw subject identifier like "sub3" as
// "sbj0003". The raw identifier must end in a number below 10000.
func canonicalSubjectID(raw string) (string, error) {
	m := trailingDigits.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return "", &MalformedIdentifierError{Kind: "subject", Raw: raw}
	}
	n, err := strconv.ParseUint(m[1], 10, 64)
	if err != nil || n > 9999 {
		return "", &MalformedIdentifierError{Kind: "subject", Raw: raw}
	}
	return fmt.Sprintf("%s%04d", subjectIDPrefix, n), nil
}
