// Package mock provides an in-memory ledger that answers the same envelope
// contract as the remote service. A *Mock can back a ledger.Client directly
// or be served over HTTP through Handler.
package mock

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cleaker/cleaker_sdk_go/internal/devseed"
	"github.com/cleaker/cleaker_sdk_go/pkg/ledger"
)

// ErrInvalidArgument is wrapped by every rejection the mock reports to
// callers as a remote error.
var ErrInvalidArgument = errors.New("invalid argument")

type identity struct {
	username  string
	publicKey string
}

type record struct {
	contextID string
	entry     ledger.Entry
	at        time.Time
	seq       int
}

type factKey struct {
	verb      ledger.Verb
	contextID string
	key       string
	value     string
}

// Mock implements an in-memory ledger.
type Mock struct {
	mu         sync.RWMutex
	identities []identity
	byName     map[string]int
	records    []record
	facts      map[factKey]struct{}
	now        func() time.Time
}

// Option configures the mock instance.
type Option func(*Mock)

// WithClock overrides the clock used to stamp new entries.
func WithClock(fn func() time.Time) Option {
	return func(m *Mock) {
		if fn != nil {
			m.now = fn
		}
	}
}

// New creates an empty ledger.
func New(opts ...Option) *Mock {
	m := &Mock{
		byName: make(map[string]int),
		facts:  make(map[factKey]struct{}),
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Seed loads identities and entries from a fixture.
func (m *Mock) Seed(seed *devseed.LedgerSeed) error {
	if seed == nil {
		return nil
	}
	for _, id := range seed.Identities {
		m.RegisterIdentity(id.Username, id.PublicKey)
	}
	for i, e := range seed.Entries {
		var at time.Time
		if e.Timestamp != "" {
			parsed, err := parseTimestamp(e.Timestamp)
			if err != nil {
				return fmt.Errorf("mock ledger: seed entry %d: %w", i, err)
			}
			at = parsed
		}
		if _, err := m.record(ledger.Verb(e.Verb), e.ContextID, e.Key, e.Value, at); err != nil {
			return fmt.Errorf("mock ledger: seed entry %d: %w", i, err)
		}
	}
	return nil
}

// RegisterIdentity adds username, or replaces its public key when present.
func (m *Mock) RegisterIdentity(username, publicKey string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if idx, ok := m.byName[username]; ok {
		m.identities[idx].publicKey = publicKey
		return
	}
	m.byName[username] = len(m.identities)
	m.identities = append(m.identities, identity{username: username, publicKey: publicKey})
}

// ListIdentities returns identities in registration order.
func (m *Mock) ListIdentities(ctx context.Context) ([]ledger.Identity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]ledger.Identity, 0, len(m.identities))
	for _, id := range m.identities {
		out = append(out, ledger.Identity{Username: id.username})
	}
	return out, nil
}

// PublicInfo returns nil for unknown identities and identities without a key.
func (m *Mock) PublicInfo(ctx context.Context, username string) (*ledger.PublicInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	idx, ok := m.byName[username]
	if !ok || m.identities[idx].publicKey == "" {
		return nil, nil
	}
	id := m.identities[idx]
	return &ledger.PublicInfo{Username: id.username, PublicKey: id.publicKey}, nil
}

// Record stores a fact. It returns false, without error, when the identical
// fact is already recorded.
func (m *Mock) Record(ctx context.Context, verb ledger.Verb, contextID, key, value string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return m.record(verb, contextID, key, value, time.Time{})
}

func (m *Mock) record(verb ledger.Verb, contextID, key, value string, at time.Time) (bool, error) {
	if !verb.Known() {
		return false, fmt.Errorf("%w: invalid verb %q", ErrInvalidArgument, verb)
	}
	if strings.TrimSpace(contextID) == "" || strings.TrimSpace(key) == "" || strings.TrimSpace(value) == "" {
		return false, fmt.Errorf("%w: context_id, key and value are required", ErrInvalidArgument)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	fk := factKey{verb: verb, contextID: contextID, key: key, value: value}
	if _, dup := m.facts[fk]; dup {
		return false, nil
	}
	if at.IsZero() {
		at = m.now().UTC()
	}
	m.facts[fk] = struct{}{}
	m.records = append(m.records, record{
		contextID: contextID,
		entry: ledger.Entry{
			Verb:      verb,
			Key:       key,
			Value:     value,
			Timestamp: at.UTC().Format(time.RFC3339Nano),
		},
		at:  at,
		seq: len(m.records),
	})
	return true, nil
}

// Get returns matching entries, newest first.
func (m *Mock) Get(ctx context.Context, filter ledger.GetFilter) ([]ledger.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if filter.Verb != ledger.VerbAll && !filter.Verb.Known() {
		return nil, fmt.Errorf("%w: invalid verb %q", ErrInvalidArgument, filter.Verb)
	}
	var since, until time.Time
	if filter.Since != nil {
		t, err := parseTimestamp(*filter.Since)
		if err != nil {
			return nil, fmt.Errorf("%w: since: %v", ErrInvalidArgument, err)
		}
		since = t
	}
	if filter.Until != nil {
		t, err := parseTimestamp(*filter.Until)
		if err != nil {
			return nil, fmt.Errorf("%w: until: %v", ErrInvalidArgument, err)
		}
		until = t
	}
	if filter.Limit != nil && *filter.Limit < 0 {
		return nil, fmt.Errorf("%w: limit must not be negative", ErrInvalidArgument)
	}
	if filter.Offset != nil && *filter.Offset < 0 {
		return nil, fmt.Errorf("%w: offset must not be negative", ErrInvalidArgument)
	}

	m.mu.RLock()
	matched := make([]record, 0, len(m.records))
	for _, r := range m.records {
		if matches(r, filter, since, until) {
			matched = append(matched, r)
		}
	}
	m.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		if !matched[i].at.Equal(matched[j].at) {
			return matched[i].at.After(matched[j].at)
		}
		return matched[i].seq > matched[j].seq
	})

	start := 0
	if filter.Offset != nil {
		start = *filter.Offset
	}
	if start > len(matched) {
		start = len(matched)
	}
	end := len(matched)
	if filter.Limit != nil && *filter.Limit < end-start {
		end = start + *filter.Limit
	}

	out := make([]ledger.Entry, 0, end-start)
	for _, r := range matched[start:end] {
		out = append(out, r.entry)
	}
	return out, nil
}

func matches(r record, f ledger.GetFilter, since, until time.Time) bool {
	if f.Verb != ledger.VerbAll && r.entry.Verb != f.Verb {
		return false
	}
	if f.Key != nil && r.entry.Key != *f.Key {
		return false
	}
	if f.Value != nil && r.entry.Value != *f.Value {
		return false
	}
	if f.ContextID != nil && r.contextID != *f.ContextID {
		return false
	}
	if !since.IsZero() && r.at.Before(since) {
		return false
	}
	if !until.IsZero() && r.at.After(until) {
		return false
	}
	return true
}

func parseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
	}
	return t.UTC(), nil
}
