package mock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode"

	"github.com/cleaker/cleaker_sdk_go/internal/gqlapi"
	"github.com/cleaker/cleaker_sdk_go/pkg/ledger"
)

var _ ledger.Backend = (*Mock)(nil)

// HealthText is the body served by the liveness probe.
const HealthText = "OK"

type variables struct {
	Username  string            `json:"username"`
	Filter    *ledger.GetFilter `json:"filter"`
	ContextID string            `json:"context_id"`
	Key       string            `json:"key"`
	Value     string            `json:"value"`
}

// Execute answers req with a response envelope, making *Mock a
// ledger.Backend. Rejected arguments become envelope errors; only context
// cancellation is returned as an error.
func (m *Mock) Execute(ctx context.Context, req ledger.Request) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	field := rootField(req.Query)
	if field == "" {
		field = req.Operation
	}

	var vars variables
	raw, err := json.Marshal(req.Variables)
	if err == nil {
		err = json.Unmarshal(raw, &vars)
	}
	if err != nil {
		return gqlapi.Encode(nil, gqlapi.ErrorItem{Message: fmt.Sprintf("invalid variables: %v", err)})
	}

	data, err := m.dispatch(ctx, field, vars)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return gqlapi.Encode(nil, gqlapi.ErrorItem{Message: err.Error(), Path: []any{field}})
	}
	return gqlapi.Encode(map[string]any{field: data})
}

// Health reports liveness.
func (m *Mock) Health(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return HealthText, nil
}

func (m *Mock) dispatch(ctx context.Context, field string, vars variables) (any, error) {
	switch field {
	case "listIdentities":
		return m.ListIdentities(ctx)
	case "publicInfo":
		info, err := m.PublicInfo(ctx, vars.Username)
		if err != nil || info == nil {
			return nil, err
		}
		return map[string]string{"username": info.Username, "publicKey": info.PublicKey}, nil
	case "get":
		if vars.Filter == nil {
			return nil, fmt.Errorf("%w: filter is required", ErrInvalidArgument)
		}
		return m.Get(ctx, *vars.Filter)
	}
	for _, verb := range ledger.WriteVerbs {
		if verb.Field() == field {
			return m.Record(ctx, verb, vars.ContextID, vars.Key, vars.Value)
		}
	}
	return nil, fmt.Errorf("unknown operation %q", field)
}

// rootField returns the first field selected by an operation's text.
func rootField(query string) string {
	idx := strings.IndexByte(query, '{')
	if idx < 0 {
		return ""
	}
	rest := strings.TrimLeftFunc(query[idx+1:], unicode.IsSpace)
	end := strings.IndexFunc(rest, func(r rune) bool {
		return !(r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r))
	})
	if end < 0 {
		return rest
	}
	return rest[:end]
}

// Handler serves the ledger over HTTP: POST /graphql and GET /health.
func (m *Mock) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /graphql", m.serveGraphQL)
	mux.HandleFunc("GET /health", m.serveHealth)
	return mux
}

func (m *Mock) serveGraphQL(w http.ResponseWriter, r *http.Request) {
	var req gqlapi.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	body, err := m.Execute(r.Context(), ledger.Request{Query: req.Query, Variables: req.Variables})
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusServiceUnavailable
		}
		http.Error(w, err.Error(), status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(body)
}

func (m *Mock) serveHealth(w http.ResponseWriter, r *http.Request) {
	text, err := m.Health(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(text))
}
