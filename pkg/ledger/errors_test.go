package ledger

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleaker/cleaker_sdk_go/internal/gqlapi"
	"github.com/cleaker/cleaker_sdk_go/internal/httpx"
)

func TestClassify(t *testing.T) {
	httpErr := &httpx.HTTPError{StatusCode: 503}
	tests := []struct {
		name string
		err  error
		kind Kind
		want error
	}{
		{name: "http status", err: httpErr, kind: KindTransport, want: ErrTransport},
		{name: "wrapped http status", err: fmt.Errorf("post: %w", httpErr), kind: KindTransport, want: ErrTransport},
		{name: "plain error", err: errors.New("dial tcp: connection refused"), kind: KindTransport, want: ErrTransport},
		{name: "format", err: &gqlapi.FormatError{Err: errors.New("unexpected EOF")}, kind: KindPayloadFormat, want: ErrPayloadFormat},
		{name: "no data", err: gqlapi.ErrNoData, kind: KindEmptyPayload, want: ErrEmptyPayload},
		{name: "remote", err: gqlapi.ErrorList{{Message: "a"}, {Message: "b"}}, kind: KindRemote, want: ErrRemote},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := classify(tc.err)
			require.NotNil(t, got)
			assert.Equal(t, tc.kind, got.Kind)
			assert.ErrorIs(t, got, tc.want)
			for _, other := range []error{ErrTransport, ErrPayloadFormat, ErrRemote, ErrEmptyPayload} {
				if other != tc.want {
					assert.NotErrorIs(t, got, other)
				}
			}
		})
	}
}

func TestClassifyKeepsExistingError(t *testing.T) {
	orig := &Error{Kind: KindRemote, Messages: []string{"x"}}
	assert.Same(t, orig, classify(fmt.Errorf("wrapped: %w", orig)))
}

func TestClassifyUnwrapsHTTPError(t *testing.T) {
	got := classify(&httpx.HTTPError{StatusCode: 500, Body: []byte("boom")})
	var httpErr *httpx.HTTPError
	require.True(t, errors.As(got, &httpErr))
	assert.Equal(t, 500, httpErr.StatusCode)
	assert.Equal(t, "ledger: transport error: http error: status=500 body=boom", got.Error())
}

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, "ledger: remote error(s): invalid verb; missing key",
		(&Error{Kind: KindRemote, Messages: []string{"invalid verb", "missing key"}}).Error())
	assert.Equal(t, "ledger: empty payload: response carried no data",
		(&Error{Kind: KindEmptyPayload}).Error())
	assert.Equal(t, "ledger: malformed payload: unexpected end of JSON input",
		(&Error{Kind: KindPayloadFormat, Err: errors.New("unexpected end of JSON input")}).Error())
	assert.Equal(t, "remote", KindRemote.String())
	assert.Equal(t, "kind(9)", Kind(9).String())
}

func TestHelpersOnForeignErrors(t *testing.T) {
	plain := errors.New("plain")
	assert.Equal(t, Kind(0), KindOf(plain))
	assert.Nil(t, RemoteMessages(plain))
	assert.Nil(t, RemoteMessages(&Error{Kind: KindTransport, Err: plain}))
}
