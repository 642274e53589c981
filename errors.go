// Copyright (C) The Cellcount Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package cellcount

import (
	"fmt"
	"strings"
)

// MalformedIdentifierError is returned when an identifier in the
// input cannot be parsed or is empty.
type MalformedIdentifierError struct {
	Kind string // "subject", "project" or "sample"
	Raw  string
	Line int
}

func (e *MalformedIdentifierError) Error() string {
	msg := fmt.Sprintf("malformed %s identifier %q", e.Kind, e.Raw)
	if e.Line > 0 {
		msg = fmt.Sprintf("line %d: %s", e.Line, msg)
	}
	return msg
}

// SchemaViolationError is returned when the input breaks a key or a
// one-to-one relationship of the normalized schema.
type SchemaViolationError struct {
	Relation string
	Key      string
	Values   []string
}

func (e *SchemaViolationError) Error() string {
	switch e.Relation {
	case "project":
		return fmt.Sprintf("project %q maps to more than one sample type: %s", e.Key, strings.Join(e.Values, ", "))
	case "subject":
		return fmt.Sprintf("subject %q has conflicting attributes: %s", e.Key, strings.Join(e.Values, " vs "))
	default:
		return fmt.Sprintf("duplicate %s key %q", e.Relation, e.Key)
	}
}

// ReferentialIntegrityError describes a sample that references a
// subject or project that does not exist.
type ReferentialIntegrityError struct {
	SampleID string
	Relation string
	Key      string
}

func (e *ReferentialIntegrityError) Error() string {
	return fmt.Sprintf("sample %q references missing %s %q", e.SampleID, e.Relation, e.Key)
}

// EmptySampleError is returned when a sample's counts add up to zero,
// so its population percentages are undefined.
type EmptySampleError struct {
	SampleID string
}

func (e *EmptySampleError) Error() string {
	return fmt.Sprintf("sample %q has a total count of zero", e.SampleID)
}
