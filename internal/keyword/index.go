// Package keyword provides access to the full-text index and its term dictionary.
package keyword

import (
	"errors"
	"fmt"
)

// Term is an entry of the term dictionary. The dictionary is ordered by Field, then Text.
type Term struct {
	Field string
	Text  string
}

// TermEnum is a cursor over the term dictionary. It starts before the first term;
// Next must be called before Term. A TermEnum is used by one goroutine only.
type TermEnum interface {
	// Next advances to the next term and reports whether one exists.
	Next() (bool, error)
	// Term returns the current term.
	Term() Term
	Close() error
}

// TermSource opens term cursors.
type TermSource interface {
	// Terms returns a cursor over all terms at or after start.
	Terms(start Term) (TermEnum, error)
}

// ErrTermRead is matched by *TermReadError.
var ErrTermRead = errors.New("term dictionary read failed")

// TermReadError reports a failure reading the term dictionary for Field.
type TermReadError struct {
	Field string
	Err   error
}

func (e *TermReadError) Error() string {
	return fmt.Sprintf("could not find terms for field %q: %v", e.Field, e.Err)
}

func (e *TermReadError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrTermRead) true.
func (e *TermReadError) Is(target error) bool {
	return target == ErrTermRead
}

// FieldHasTerm reports whether the term dictionary holds at least one term for field.
// It seeks to (field, "") and checks that the first term found belongs to field exactly.
// The cursor is closed before returning; read and close failures are returned as *TermReadError.
func FieldHasTerm(src TermSource, field string) (found bool, err error) {
	terms, err := src.Terms(Term{Field: field})
	if err != nil {
		return false, &TermReadError{Field: field, Err: err}
	}
	defer func() {
		if cerr := terms.Close(); cerr != nil && err == nil {
			found, err = false, &TermReadError{Field: field, Err: cerr}
		}
	}()

	ok, err := terms.Next()
	if err != nil {
		return false, &TermReadError{Field: field, Err: err}
	}
	if !ok {
		return false, nil
	}
	return terms.Term().Field == field, nil
}
