package mock_test

import (
	"context"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleaker/cleaker_sdk_go/internal/devseed"
	"github.com/cleaker/cleaker_sdk_go/pkg/ledger"
	"github.com/cleaker/cleaker_sdk_go/pkg/ledger/mock"
)

// steppingClock advances one second per call.
func steppingClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	now := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}
}

func newClient(t *testing.T, opts ...mock.Option) (*ledger.Client, *mock.Mock) {
	t.Helper()
	m := mock.New(opts...)
	return ledger.NewWithBackend(m), m
}

func TestRecordAndGetThroughClient(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	client, _ := newClient(t, mock.WithClock(steppingClock(start)))
	ctx := context.Background()

	ok, err := client.Be(ctx, "alice", "color", "blue")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = client.Have(ctx, "alice", "pet", "cat")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = client.DoVerb(ctx, "bob", "run", "5k")
	require.NoError(t, err)
	assert.True(t, ok)

	entries, err := client.Get(ctx, ledger.NewFilter(ledger.VerbAll).WithContext("alice"))
	require.NoError(t, err)
	assert.Equal(t, []ledger.Entry{
		{Verb: ledger.VerbHave, Key: "pet", Value: "cat", Timestamp: "2024-01-01T00:00:02Z"},
		{Verb: ledger.VerbBe, Key: "color", Value: "blue", Timestamp: "2024-01-01T00:00:01Z"},
	}, entries)

	entries, err = client.Get(ctx, ledger.NewFilter(ledger.VerbDo))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, ledger.VerbDo, entries[0].Verb)
}

func TestDuplicateFactIsNotRecorded(t *testing.T) {
	client, _ := newClient(t)
	ctx := context.Background()

	ok, err := client.React(ctx, "alice", "post-1", "like")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = client.React(ctx, "alice", "post-1", "like")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRejectedArgumentsAreRemoteErrors(t *testing.T) {
	client, _ := newClient(t)
	ctx := context.Background()

	_, err := client.Relate(ctx, "", "friend", "bob")
	require.ErrorIs(t, err, ledger.ErrRemote)
	assert.Equal(t, []string{"invalid argument: context_id, key and value are required"}, ledger.RemoteMessages(err))

	_, err = client.Record(ctx, ledger.Verb("fly"), "alice", "k", "v")
	assert.ErrorIs(t, err, ledger.ErrRemote)

	_, err = client.Get(ctx, ledger.NewFilter("fly"))
	require.ErrorIs(t, err, ledger.ErrRemote)
	assert.Equal(t, []string{`invalid argument: invalid verb "fly"`}, ledger.RemoteMessages(err))

	_, err = client.Get(ctx, ledger.NewFilter(ledger.VerbAll).WithRange("yesterday", ""))
	assert.ErrorIs(t, err, ledger.ErrRemote)
}

func TestGetFilters(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	client, _ := newClient(t, mock.WithClock(steppingClock(start)))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := client.At(ctx, "alice", fmt.Sprintf("place-%d", i), "home")
		require.NoError(t, err)
	}
	_, err := client.Communicate(ctx, "alice", "place-0", "hello")
	require.NoError(t, err)

	keys := func(entries []ledger.Entry) []string {
		out := make([]string, len(entries))
		for i, e := range entries {
			out[i] = e.Key
		}
		return out
	}

	tests := []struct {
		name   string
		filter ledger.GetFilter
		want   []string
	}{
		{name: "verb", filter: ledger.NewFilter(ledger.VerbAt), want: []string{"place-4", "place-3", "place-2", "place-1", "place-0"}},
		{name: "key across verbs", filter: ledger.NewFilter(ledger.VerbAll).WithKey("place-0"), want: []string{"place-0", "place-0"}},
		{name: "value", filter: ledger.NewFilter(ledger.VerbAll).WithValue("hello"), want: []string{"place-0"}},
		{name: "page", filter: ledger.NewFilter(ledger.VerbAt).WithPage(2, 1), want: []string{"place-3", "place-2"}},
		{name: "offset past end", filter: ledger.NewFilter(ledger.VerbAt).WithPage(2, 10), want: []string{}},
		{name: "limit zero", filter: ledger.NewFilter(ledger.VerbAt).WithLimit(0), want: []string{}},
		{name: "huge limit with offset", filter: ledger.NewFilter(ledger.VerbAt).WithPage(math.MaxInt, 1), want: []string{"place-3", "place-2", "place-1", "place-0"}},
		{
			name:   "range",
			filter: ledger.NewFilter(ledger.VerbAt).WithRange("2024-01-01T00:00:02Z", "2024-01-01T00:00:03Z"),
			want:   []string{"place-2", "place-1"},
		},
		{name: "other context", filter: ledger.NewFilter(ledger.VerbAll).WithContext("bob"), want: []string{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			entries, err := client.Get(ctx, tc.filter)
			require.NoError(t, err)
			assert.Equal(t, tc.want, keys(entries))
		})
	}
}

func TestIdentitiesAndPublicInfo(t *testing.T) {
	client, m := newClient(t)
	ctx := context.Background()

	require.NoError(t, m.Seed(&devseed.LedgerSeed{
		Identities: []devseed.IdentitySeed{
			{Username: "zed", PublicKey: "pk-zed"},
			{Username: "alice"},
		},
		Entries: []devseed.EntrySeed{
			{Verb: "be", ContextID: "zed", Key: "mood", Value: "calm", Timestamp: "2023-05-01T10:00:00Z"},
		},
	}))

	ids, err := client.ListIdentities(ctx)
	require.NoError(t, err)
	assert.Equal(t, []ledger.Identity{{Username: "zed"}, {Username: "alice"}}, ids)

	info, err := client.PublicInfo(ctx, "zed")
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, "pk-zed", info.PublicKey)

	info, err = client.PublicInfo(ctx, "alice")
	require.NoError(t, err)
	assert.Nil(t, info)

	info, err = client.PublicInfo(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, info)

	entries, err := client.Get(ctx, ledger.NewFilter(ledger.VerbBe).WithContext("zed"))
	require.NoError(t, err)
	assert.Equal(t, []ledger.Entry{{Verb: ledger.VerbBe, Key: "mood", Value: "calm", Timestamp: "2023-05-01T10:00:00Z"}}, entries)
}

func TestSeedRejectsBadEntries(t *testing.T) {
	m := mock.New()
	err := m.Seed(&devseed.LedgerSeed{Entries: []devseed.EntrySeed{{Verb: "be", ContextID: "a", Key: "k", Value: "v", Timestamp: "later"}}})
	assert.Error(t, err)

	err = m.Seed(&devseed.LedgerSeed{Entries: []devseed.EntrySeed{{Verb: "sing", ContextID: "a", Key: "k", Value: "v"}}})
	assert.ErrorIs(t, err, mock.ErrInvalidArgument)

	assert.NoError(t, m.Seed(nil))
}

func TestCanceledContext(t *testing.T) {
	client, _ := newClient(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Be(ctx, "alice", "k", "v")
	assert.ErrorIs(t, err, ledger.ErrTransport)

	_, err = client.Health(ctx)
	assert.ErrorIs(t, err, ledger.ErrTransport)
}

func TestHealth(t *testing.T) {
	client, _ := newClient(t)
	text, err := client.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, mock.HealthText, text)
}

func TestConcurrentWrites(t *testing.T) {
	client, _ := newClient(t)
	ctx := context.Background()

	const writers = 8
	var wg sync.WaitGroup
	accepted := make(chan bool, writers*len(ledger.WriteVerbs))
	for w := 0; w < writers; w++ {
		for _, verb := range ledger.WriteVerbs {
			wg.Add(1)
			go func(verb ledger.Verb) {
				defer wg.Done()
				// Every writer records the same fact; exactly one wins per verb.
				ok, err := client.Record(ctx, verb, "alice", "k", "v")
				assert.NoError(t, err)
				accepted <- ok
			}(verb)
		}
	}
	wg.Wait()
	close(accepted)

	wins := 0
	for ok := range accepted {
		if ok {
			wins++
		}
	}
	assert.Equal(t, len(ledger.WriteVerbs), wins)

	entries, err := client.Get(ctx, ledger.NewFilter(ledger.VerbAll))
	require.NoError(t, err)
	assert.Len(t, entries, len(ledger.WriteVerbs))
}
