package model

import (
	"errors"
	"fmt"
)

var (
	// ErrVersionConflict is returned by version-checked updates when the stored
	// record changed since it was read.
	ErrVersionConflict    = errors.New("record was modified concurrently")
	ErrPRNotFound         = errors.New("pull request not found")
	ErrDuplicatePR        = errors.New("a PR with this link already exists")
	ErrInvalidLink        = errors.New("invalid PR link")
	ErrInvalidSLAHours    = errors.New("SLA hours must be a positive integer")
	ErrInvalidHour        = errors.New("hour must be between 0 and 23")
	ErrInvalidReviewCount = errors.New("reviews needed must not be negative")
	ErrSelfApproval       = errors.New("submitters cannot approve their own PR")
)

// RecordParseError reports a stored record field that could not be decoded.
type RecordParseError struct {
	ID    string
	Field string
	Value string
	Err   error
}

func (e *RecordParseError) Error() string {
	return fmt.Sprintf("parse %s of record %s: %v", e.Field, e.ID, e.Err)
}

func (e *RecordParseError) Unwrap() error {
	return e.Err
}
