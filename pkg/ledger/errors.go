package ledger

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cleaker/cleaker_sdk_go/internal/gqlapi"
)

// Kind classifies an *Error.
type Kind int

const (
	// KindTransport: the request failed at the network or HTTP layer,
	// including timeouts, cancellation and non-2xx statuses.
	KindTransport Kind = iota + 1
	// KindPayloadFormat: the body could not be parsed into the expected shape.
	KindPayloadFormat
	// KindRemote: the server executed the request and reported errors.
	KindRemote
	// KindEmptyPayload: the envelope carried neither data nor errors.
	KindEmptyPayload
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindPayloadFormat:
		return "payload_format"
	case KindRemote:
		return "remote"
	case KindEmptyPayload:
		return "empty_payload"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

var (
	// ErrTransport matches errors of KindTransport.
	ErrTransport = errors.New("ledger: transport error")
	// ErrPayloadFormat matches errors of KindPayloadFormat.
	ErrPayloadFormat = errors.New("ledger: malformed payload")
	// ErrRemote matches errors of KindRemote.
	ErrRemote = errors.New("ledger: remote error")
	// ErrEmptyPayload matches errors of KindEmptyPayload.
	ErrEmptyPayload = errors.New("ledger: empty payload")
)

func (k Kind) sentinel() error {
	switch k {
	case KindTransport:
		return ErrTransport
	case KindPayloadFormat:
		return ErrPayloadFormat
	case KindRemote:
		return ErrRemote
	case KindEmptyPayload:
		return ErrEmptyPayload
	default:
		return nil
	}
}

// Error is the single error type returned by every Client operation.
type Error struct {
	Kind Kind
	// Messages holds the server-reported messages in server order. Only set
	// for KindRemote.
	Messages []string
	// Err is the underlying cause.
	Err error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch e.Kind {
	case KindRemote:
		return fmt.Sprintf("%v(s): %s", ErrRemote, strings.Join(e.Messages, "; "))
	case KindEmptyPayload:
		return fmt.Sprintf("%v: response carried no data", ErrEmptyPayload)
	}
	prefix := "ledger: error"
	if s := e.Kind.sentinel(); s != nil {
		prefix = s.Error()
	}
	if e.Err == nil {
		return prefix
	}
	return fmt.Sprintf("%s: %v", prefix, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel of e's Kind.
func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// KindOf returns the Kind of err, or zero when err is not an *Error.
func KindOf(err error) Kind {
	var lerr *Error
	if errors.As(err, &lerr) {
		return lerr.Kind
	}
	return 0
}

// RemoteMessages returns the server messages carried by err, if any.
func RemoteMessages(err error) []string {
	var lerr *Error
	if errors.As(err, &lerr) && lerr.Kind == KindRemote {
		return lerr.Messages
	}
	return nil
}

// classify maps any failure from the transport or the envelope decoder onto
// an *Error. Anything not recognised as a decoding outcome is a transport
// failure.
func classify(err error) *Error {
	var lerr *Error
	if errors.As(err, &lerr) {
		return lerr
	}
	var list gqlapi.ErrorList
	if errors.As(err, &list) {
		return &Error{Kind: KindRemote, Messages: list.Messages(), Err: err}
	}
	if errors.Is(err, gqlapi.ErrNoData) {
		return &Error{Kind: KindEmptyPayload, Err: err}
	}
	var format *gqlapi.FormatError
	if errors.As(err, &format) {
		return &Error{Kind: KindPayloadFormat, Err: format.Err}
	}
	return &Error{Kind: KindTransport, Err: err}
}

func payloadFormatError(format string, args ...any) *Error {
	return &Error{Kind: KindPayloadFormat, Err: fmt.Errorf(format, args...)}
}
