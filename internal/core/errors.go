package core

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors returned by the import pipeline.
var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrEmptyFile         = errors.New("empty file")
	ErrNoRows            = errors.New("no data rows")
	ErrUnknownField      = errors.New("unknown field")
	ErrUnknownColumn     = errors.New("unknown column")
	ErrSessionNotFound   = errors.New("import session not found")
	ErrInvalidTransition = errors.New("invalid stage transition")
	ErrValidationFailed  = errors.New("validation failed")
)

// ParseError is returned when an uploaded file cannot be decoded.
// The session it was meant for is left untouched.
type ParseError struct {
	Format Format
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	var b strings.Builder
	b.WriteString("parse")
	if e.Format != "" {
		b.WriteString(" " + string(e.Format))
	}
	b.WriteString(": ")
	if e.Reason != "" {
		b.WriteString(e.Reason)
		if e.Err != nil {
			b.WriteString(": ")
		}
	}
	if e.Err != nil {
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// PersistenceError is returned when the bulk-create collaborator rejects an
// import. It is retryable: the session keeps its rows and mappings.
type PersistenceError struct {
	Messages []string
	Err      error
}

func (e *PersistenceError) Error() string {
	msg := "bulk create failed"
	if len(e.Messages) > 0 {
		msg += ": " + strings.Join(e.Messages, "; ")
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// MappingError describes a rejected mapping edit.
type MappingError struct {
	Column string
	Target string
	Err    error
}

func (e *MappingError) Error() string {
	if errors.Is(e.Err, ErrUnknownColumn) {
		return fmt.Sprintf("%v %q", e.Err, e.Column)
	}
	return fmt.Sprintf("%v %q for column %q", e.Err, e.Target, e.Column)
}

func (e *MappingError) Unwrap() error {
	return e.Err
}

// TransitionError describes a workflow transition that is not allowed from
// the current stage.
type TransitionError struct {
	From   Stage
	Action string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%v: cannot %s from %s stage", ErrInvalidTransition, e.Action, e.From)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}
