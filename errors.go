/*
Copyright 2023 Alexander Bartolomey (github@alexanderbartolomey.de)

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package ipfix

import (
	"errors"
	"fmt"
)

// Kind classifies the taxonomy of errors the core returns. Callers branch on
// Kind via errors.Is against the Err<Kind> sentinels below, never on error
// strings.
type Kind uint8

const (
	KindUnspecified Kind = iota
	KindFormat
	KindInvalidData
	KindNotFound
	KindDenied
	KindInvalidArg
	KindInsufficientBuffer
	KindOutOfMemory
	KindDiffers
)

func (k Kind) String() string {
	switch k {
	case KindFormat:
		return "Format"
	case KindInvalidData:
		return "InvalidData"
	case KindNotFound:
		return "NotFound"
	case KindDenied:
		return "Denied"
	case KindInvalidArg:
		return "InvalidArg"
	case KindInsufficientBuffer:
		return "InsufficientBuffer"
	case KindOutOfMemory:
		return "OutOfMemory"
	case KindDiffers:
		return "Differs"
	default:
		return "Unspecified"
	}
}

// sentinel errors, targets for errors.Is/errors.As against wrapped *Errors.
var (
	ErrFormat             = errors.New("format")
	ErrInvalidData        = errors.New("invalid data")
	ErrNotFound           = errors.New("not found")
	ErrDenied             = errors.New("denied")
	ErrInvalidArg         = errors.New("invalid argument")
	ErrInsufficientBuffer = errors.New("insufficient buffer")
	ErrOutOfMemory        = errors.New("out of memory")
	ErrDiffers            = errors.New("differs")

	// kept from the teacher for call sites matching on the historical
	// sentinel names; both now wrap a Kind sentinel.
	ErrTemplateNotFound = fmt.Errorf("template %w", ErrNotFound)
	ErrUnknownFlowId    = fmt.Errorf("unknown flow id %w", ErrNotFound)
)

func TemplateNotFound(observationDomainId uint32, templateId uint16) error {
	return newErr(KindNotFound, ErrTemplateNotFound, "template %d in observation domain %d", templateId, observationDomainId)
}

func UnknownFlowId(id uint16) error {
	return newErr(KindNotFound, ErrUnknownFlowId, "flow id %d", id)
}

func sentinelFor(k Kind) error {
	switch k {
	case KindFormat:
		return ErrFormat
	case KindInvalidData:
		return ErrInvalidData
	case KindNotFound:
		return ErrNotFound
	case KindDenied:
		return ErrDenied
	case KindInvalidArg:
		return ErrInvalidArg
	case KindInsufficientBuffer:
		return ErrInsufficientBuffer
	case KindOutOfMemory:
		return ErrOutOfMemory
	case KindDiffers:
		return ErrDiffers
	default:
		return errors.New("unspecified")
	}
}

// Error is the concrete error type returned by the core. It carries a Kind,
// an optional wrapped cause, and a human-readable detail string.
type Error struct {
	Kind   Kind
	Detail string
	Cause  error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *Error) Unwrap() error {
	if e.Cause != nil {
		return e.Cause
	}
	return sentinelFor(e.Kind)
}

// newErr constructs an *Error of the given kind, optionally wrapping cause.
func newErr(k Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: k, Detail: fmt.Sprintf(format, args...), Cause: cause}
}

func errFormat(format string, args ...any) *Error        { return newErr(KindFormat, nil, format, args...) }
func errInvalidData(format string, args ...any) *Error   { return newErr(KindInvalidData, nil, format, args...) }
func errNotFound(format string, args ...any) *Error      { return newErr(KindNotFound, nil, format, args...) }
func errDenied(format string, args ...any) *Error        { return newErr(KindDenied, nil, format, args...) }
func errInvalidArg(format string, args ...any) *Error    { return newErr(KindInvalidArg, nil, format, args...) }
func errInsufficientBuffer(format string, args ...any) *Error {
	return newErr(KindInsufficientBuffer, nil, format, args...)
}
func errDiffers(format string, args ...any) *Error { return newErr(KindDiffers, nil, format, args...) }

// lastErrHolder is embedded by stateful types (TemplateManager, IEManager)
// that expose LastError() per §7's last_err() contract.
type lastErrHolder struct {
	last string
}

func (h *lastErrHolder) setLastErr(err error) {
	if err == nil {
		h.last = ""
		return
	}
	h.last = err.Error()
}

// LastError returns the most recent error's detail string, or "" if the last
// operation on the holder succeeded.
func (h *lastErrHolder) LastError() string {
	return h.last
}
