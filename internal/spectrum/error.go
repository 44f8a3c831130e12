package spectrum

import "fmt"

// ParseError is returned for a malformed sweep payload. It is fatal: the dataset
// is not built. Individual unparseable power readings are not parse errors.
type ParseError struct {
	Line int // 1-based line number, 0 when the error concerns the whole payload
	msg  string
	err  error
}

func NewParseError(msg string) *ParseError {
	return &ParseError{msg: msg}
}

func NewLineError(line int, err error) *ParseError {
	return &ParseError{Line: line, msg: "malformed row", err: err}
}

func WrapParseError(msg string, err error) *ParseError {
	return &ParseError{msg: msg, err: err}
}

func (e *ParseError) Error() string {
	switch {
	case e.Line > 0 && e.err != nil:
		return fmt.Sprintf("line %d: %s: %s", e.Line, e.msg, e.err)
	case e.Line > 0:
		return fmt.Sprintf("line %d: %s", e.Line, e.msg)
	case e.err != nil:
		return fmt.Sprintf("%s: %s", e.msg, e.err)
	}
	return e.msg
}

func (e *ParseError) Unwrap() error {
	return e.err
}

// FetchError is returned when a payload cannot be retrieved from its source.
// It is surfaced to the caller once and never retried.
type FetchError struct {
	Source string
	err    error
}

func NewFetchError(source string, err error) *FetchError {
	return &FetchError{Source: source, err: err}
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching %s: %s", e.Source, e.err)
}

func (e *FetchError) Unwrap() error {
	return e.err
}

// PreconditionError marks a programming-contract violation, such as rendering
// before a dataset was loaded.
type PreconditionError struct {
	msg string
}

func NewPreconditionError(msg string) *PreconditionError {
	return &PreconditionError{msg}
}

func (e *PreconditionError) Error() string {
	return "precondition failed: " + e.msg
}
