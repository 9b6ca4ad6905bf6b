package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"sort"
)

// Error taxonomy (sentinels). errors.Is against these matches any *Error of
// the same kind, regardless of message or details.
var (
	ErrValidation     = errors.New("validation error")
	ErrNotFound       = errors.New("not found")
	ErrDataSource     = errors.New("data source error")
	ErrAnalysis       = errors.New("analysis error")
	ErrConfiguration  = errors.New("configuration error")
	ErrAuthentication = errors.New("authentication error")
	ErrAuthorization  = errors.New("authorization error")
	ErrIntegration    = errors.New("integration error")
	ErrCircuitOpen    = errors.New("circuit open")
)

// ErrorKind classifies failures across the system.
type ErrorKind string

const (
	KindValidation     ErrorKind = "VALIDATION"
	KindNotFound       ErrorKind = "NOT_FOUND"
	KindDataSource     ErrorKind = "DATA_SOURCE"
	KindAnalysis       ErrorKind = "ANALYSIS"
	KindConfiguration  ErrorKind = "CONFIGURATION"
	KindAuthentication ErrorKind = "AUTHENTICATION"
	KindAuthorization  ErrorKind = "AUTHORIZATION"
	KindIntegration    ErrorKind = "INTEGRATION"
	KindCircuitOpen    ErrorKind = "CIRCUIT_OPEN"
)

var kindSentinels = map[ErrorKind]error{
	KindValidation:     ErrValidation,
	KindNotFound:       ErrNotFound,
	KindDataSource:     ErrDataSource,
	KindAnalysis:       ErrAnalysis,
	KindConfiguration:  ErrConfiguration,
	KindAuthentication: ErrAuthentication,
	KindAuthorization:  ErrAuthorization,
	KindIntegration:    ErrIntegration,
	KindCircuitOpen:    ErrCircuitOpen,
}

var kindAbbrev = map[ErrorKind]string{
	KindValidation:     "VAL",
	KindNotFound:       "NTF",
	KindDataSource:     "SRC",
	KindAnalysis:       "ANL",
	KindConfiguration:  "CFG",
	KindAuthentication: "AUT",
	KindAuthorization:  "ATZ",
	KindIntegration:    "INT",
	KindCircuitOpen:    "CIR",
}

// Error is the structured error carried across layers. Details hold
// machine-readable context (field names, status codes, remaining seconds).
type Error struct {
	Kind    ErrorKind
	Message string
	Details map[string]any
	Cause   error
}

// E builds a new Error of the given kind.
func E(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Ef builds a new Error with a formatted message.
func Ef(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds a new Error of the given kind around a cause.
func Wrap(kind ErrorKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

// WithDetail attaches a detail entry and returns the receiver for chaining.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any, 4)
	}
	e.Details[key] = value
	return e
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports taxonomy membership so errors.Is(err, domain.ErrDataSource)
// works without exposing the concrete type.
func (e *Error) Is(target error) bool {
	if s, ok := kindSentinels[e.Kind]; ok && target == s {
		return true
	}
	if t, ok := target.(*Error); ok {
		return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
	}
	return false
}

// Code derives the stable error code FPMA-<KIND>-<6 hex chars>. The hash
// covers the message and the details serialized with sorted keys, so equal
// failures produce equal codes across processes.
func (e *Error) Code() string {
	h := sha256.New()
	io.WriteString(h, e.Message)
	keys := make([]string, 0, len(e.Details))
	for k := range e.Details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(h, "|%s=%v", k, e.Details[k])
	}
	return fmt.Sprintf("FPMA-%s-%s", kindAbbrev[e.Kind], hex.EncodeToString(h.Sum(nil))[:6])
}

// Detail returns a detail value by key from the outermost *Error in the chain.
func Detail(err error, key string) (any, bool) {
	var de *Error
	if !errors.As(err, &de) || de.Details == nil {
		return nil, false
	}
	v, ok := de.Details[key]
	return v, ok
}

// KindOf returns the kind of the outermost *Error in the chain, or "" when
// the chain carries no taxonomy error.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// IsKind reports whether err belongs to the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
