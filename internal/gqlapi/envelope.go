// Package gqlapi implements the request body and response envelope shared by
// every call against the ledger's query endpoint.
package gqlapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Request is the wire body of a single operation.
type Request struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

// NewRequest returns a Request with a non-nil variables map so the wire body
// always carries an object.
func NewRequest(query string, variables map[string]any) Request {
	if variables == nil {
		variables = map[string]any{}
	}
	return Request{Query: query, Variables: variables}
}

// Location points into the operation text.
type Location struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// ErrorItem is a single application error reported by the server.
type ErrorItem struct {
	Message   string     `json:"message"`
	Path      []any      `json:"path,omitempty"`
	Locations []Location `json:"locations,omitempty"`
}

// Envelope is the generic response wrapper. Data stays raw until the caller
// picks the typed payload.
type Envelope struct {
	Data   json.RawMessage `json:"data"`
	Errors []ErrorItem     `json:"errors"`
}

// ErrorList carries the server-reported errors in server order.
type ErrorList []ErrorItem

func (l ErrorList) Error() string {
	return "gqlapi: remote error(s): " + strings.Join(l.Messages(), "; ")
}

// Messages returns the message of every item, preserving order and duplicates.
func (l ErrorList) Messages() []string {
	out := make([]string, len(l))
	for i, item := range l {
		out[i] = item.Message
	}
	return out
}

// ErrNoData is returned when the envelope reports no errors and no data.
var ErrNoData = errors.New("gqlapi: response carried neither data nor errors")

// FormatError reports a body that could not be parsed as an envelope, or a
// data payload that does not match the expected shape.
type FormatError struct {
	Err error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("gqlapi: malformed payload: %v", e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }

// ParseEnvelope parses body into an Envelope. Failures are *FormatError.
func ParseEnvelope(body []byte) (*Envelope, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, &FormatError{Err: errors.New("empty response body")}
	}
	var env Envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, &FormatError{Err: err}
	}
	return &env, nil
}

// Decode parses body and unmarshals its data member into out.
//
// A non-empty errors member wins over data and yields an ErrorList. A null or
// missing data member yields ErrNoData. Anything that cannot be parsed yields
// a *FormatError.
func Decode(body []byte, out any) error {
	env, err := ParseEnvelope(body)
	if err != nil {
		return err
	}
	if len(env.Errors) > 0 {
		return ErrorList(env.Errors)
	}
	data := bytes.TrimSpace(env.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return ErrNoData
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &FormatError{Err: err}
	}
	return nil
}

// Encode renders a response envelope. Used by servers that speak this
// contract, such as the in-memory ledger.
func Encode(data any, errs ...ErrorItem) ([]byte, error) {
	payload := struct {
		Data   any         `json:"data"`
		Errors []ErrorItem `json:"errors,omitempty"`
	}{Data: data, Errors: errs}
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
