package ledger

import (
	"context"
	"fmt"
)

const (
	opListIdentities = "listIdentities"
	opPublicInfo     = "publicInfo"
	opGet            = "get"
)

const listIdentitiesQuery = `query {
  listIdentities { username }
}`

// publicKey is aliased in the query so the wire name differs from the
// server's public_key column; wirePublicInfo maps it back.
const publicInfoQuery = `query($username: String!) {
  publicInfo(username: $username) { username publicKey: public_key }
}`

const getQuery = `query($filter: GetFilter!) {
  get(filter: $filter) { verb key value timestamp }
}`

const recordQueryTemplate = `mutation($context_id: String!, $key: String!, $value: String!) {
  %s(context_id: $context_id, key: $key, value: $value)
}`

// RecordQuery returns the mutation text for verb.
func RecordQuery(verb Verb) string {
	return fmt.Sprintf(recordQueryTemplate, verb.Field())
}

// ListIdentities returns every registered identity in server order.
func (c *Client) ListIdentities(ctx context.Context) ([]Identity, error) {
	data, err := execute[struct {
		ListIdentities []Identity `json:"listIdentities"`
	}](ctx, c, Request{Operation: opListIdentities, Query: listIdentitiesQuery})
	if err != nil {
		return nil, err
	}
	if data.ListIdentities == nil {
		return []Identity{}, nil
	}
	return data.ListIdentities, nil
}

// PublicInfo returns the public metadata of username, or nil when the server
// reports none.
func (c *Client) PublicInfo(ctx context.Context, username string) (*PublicInfo, error) {
	data, err := execute[struct {
		PublicInfo *wirePublicInfo `json:"publicInfo"`
	}](ctx, c, Request{
		Operation: opPublicInfo,
		Query:     publicInfoQuery,
		Variables: map[string]any{"username": username},
	})
	if err != nil {
		return nil, err
	}
	if data.PublicInfo == nil {
		return nil, nil
	}
	info := data.PublicInfo.toPublicInfo()
	return &info, nil
}

// Get returns the entries matching filter in server order. No match yields
// an empty, non-nil slice.
func (c *Client) Get(ctx context.Context, filter GetFilter) ([]Entry, error) {
	data, err := execute[struct {
		Get []Entry `json:"get"`
	}](ctx, c, Request{
		Operation: opGet,
		Query:     getQuery,
		Variables: map[string]any{"filter": filter},
	})
	if err != nil {
		return nil, err
	}
	if data.Get == nil {
		return []Entry{}, nil
	}
	return data.Get, nil
}

// Record asks the ledger to record (key, value) under contextID for verb. It
// returns the server's acceptance flag; false is an opaque "not recorded"
// outcome. Argument legality is checked by the server.
func (c *Client) Record(ctx context.Context, verb Verb, contextID, key, value string) (bool, error) {
	field := verb.Field()
	data, err := execute[map[string]*bool](ctx, c, Request{
		Operation: field,
		Query:     RecordQuery(verb),
		Variables: map[string]any{
			"context_id": contextID,
			"key":        key,
			"value":      value,
		},
		Mutation: true,
	})
	if err != nil {
		return false, err
	}
	accepted, ok := data[field]
	if !ok || accepted == nil {
		return false, payloadFormatError("%s result missing from data", field)
	}
	return *accepted, nil
}

// Be records a "be" fact.
func (c *Client) Be(ctx context.Context, contextID, key, value string) (bool, error) {
	return c.Record(ctx, VerbBe, contextID, key, value)
}

// Have records a "have" fact.
func (c *Client) Have(ctx context.Context, contextID, key, value string) (bool, error) {
	return c.Record(ctx, VerbHave, contextID, key, value)
}

// DoVerb records a "do" fact.
func (c *Client) DoVerb(ctx context.Context, contextID, key, value string) (bool, error) {
	return c.Record(ctx, VerbDo, contextID, key, value)
}

// At records an "at" fact.
func (c *Client) At(ctx context.Context, contextID, key, value string) (bool, error) {
	return c.Record(ctx, VerbAt, contextID, key, value)
}

// Relate records a "relate" fact.
func (c *Client) Relate(ctx context.Context, contextID, key, value string) (bool, error) {
	return c.Record(ctx, VerbRelate, contextID, key, value)
}

// React records a "react" fact.
func (c *Client) React(ctx context.Context, contextID, key, value string) (bool, error) {
	return c.Record(ctx, VerbReact, contextID, key, value)
}

// Communicate records a "communicate" fact.
func (c *Client) Communicate(ctx context.Context, contextID, key, value string) (bool, error) {
	return c.Record(ctx, VerbCommunicate, contextID, key, value)
}
