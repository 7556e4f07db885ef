// Copyright 2024 by the Authors
// This file is part of the viewcore library.
//
// The viewcore library is free software: you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// The viewcore library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the viewcore library. If not, see <http://www.gnu.org/licenses/>.

package engine

import "fmt"

// Kind names one of the error taxonomy's stable tags (spec §7). None of
// these leak implementation-level stack or language detail to a caller.
type Kind int

const (
	_ Kind = iota
	KindAccountNotFound
	KindCodeNotFound
	KindCodeCompilation
	KindMethodNotFound
	KindPanic
	KindAbort
	KindNotImplemented
	KindTimeout
	KindTransient
)

func (k Kind) String() string {
	switch k {
	case KindAccountNotFound:
		return "accountNotFound"
	case KindCodeNotFound:
		return "codeNotFound"
	case KindCodeCompilation:
		return "codeCompilation"
	case KindMethodNotFound:
		return "methodNotFound"
	case KindPanic:
		return "panic"
	case KindAbort:
		return "abort"
	case KindNotImplemented:
		return "notImplemented"
	case KindTimeout:
		return "timeout"
	case KindTransient:
		return "transient"
	default:
		return "unknown"
	}
}

// Error is the structured error surfaced to a view call's caller. Message
// carries a human-readable payload for the Kinds that need one (panic,
// abort); Cause optionally wraps the underlying error for logging, but is
// never required for callers to distinguish a Kind — that's what Is is for.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Cause)
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Cause }

// Is lets callers write errors.Is(err, engine.ErrTimeout) and similar
// sentinels without the comparing error needing to share the same Message
// or Cause — only Kind is load-bearing for identity.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// Sentinel values for errors.Is comparisons, one per Kind, per spec §7.
var (
	ErrAccountNotFound = &Error{Kind: KindAccountNotFound}
	ErrCodeNotFound    = &Error{Kind: KindCodeNotFound}
	ErrCodeCompilation = &Error{Kind: KindCodeCompilation}
	ErrMethodNotFound  = &Error{Kind: KindMethodNotFound}
	ErrPanic           = &Error{Kind: KindPanic}
	ErrAbort           = &Error{Kind: KindAbort}
	ErrNotImplemented  = &Error{Kind: KindNotImplemented}
	ErrTimeout         = &Error{Kind: KindTimeout}
	ErrTransient       = &Error{Kind: KindTransient}
)

// newError returns an *Error of the given Kind wrapping cause, with an
// optional formatted message.
func newError(kind Kind, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Cause: cause, Message: fmt.Sprintf(format, args...)}
}
