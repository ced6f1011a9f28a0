package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/siherrmann/diffuser/core/feature"
	"github.com/siherrmann/diffuser/core/graph"
	"github.com/siherrmann/diffuser/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

// MemoryStore is an in-memory post store for testing
type MemoryStore struct {
	mu      sync.Mutex
	posts   []model.RawPost
	failFor string
	upserts map[string]int
}

func (s *MemoryStore) Lookup(ctx context.Context, postID string) (model.RawPost, bool, error) {
	for _, raw := range s.posts {
		if gjson.GetBytes(raw, "id").String() == postID {
			return raw, true, nil
		}
	}
	return nil, false, nil
}

func (s *MemoryStore) PostsByAuthor(ctx context.Context, accountID string) ([]model.RawPost, error) {
	if accountID == s.failFor {
		return nil, errors.New("store unavailable")
	}
	var out []model.RawPost
	for _, raw := range s.posts {
		if gjson.GetBytes(raw, "author_id").String() == accountID {
			out = append(out, raw)
		}
	}
	return out, nil
}

func (s *MemoryStore) MentionsOf(ctx context.Context, accountID string) ([]model.RawPost, error) {
	var out []model.RawPost
	for _, raw := range s.posts {
		for _, m := range gjson.GetBytes(raw, "entities.mentions.#.id").Array() {
			if m.String() == accountID {
				out = append(out, raw)
			}
		}
	}
	return out, nil
}

func (s *MemoryStore) UpsertAccount(ctx context.Context, agg *model.AccountAggregate) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.upserts == nil {
		s.upserts = map[string]int{}
	}
	s.upserts[agg.AccountID]++
	return s.upserts[agg.AccountID] > 1, nil
}

// RecordingObserver records stage events for testing
type RecordingObserver struct {
	started  []Stage
	finished []Stage
	advanced map[Stage]int
}

func (o *RecordingObserver) StageStarted(stage Stage, total int) {
	o.started = append(o.started, stage)
}

func (o *RecordingObserver) Advance(stage Stage, n int) {
	if o.advanced == nil {
		o.advanced = map[Stage]int{}
	}
	o.advanced[stage] += n
}

func (o *RecordingObserver) StageFinished(stage Stage) {
	o.finished = append(o.finished, stage)
}

func alwaysPositive(text string) (model.Sentiment, error) {
	return model.SentimentPositive, nil
}

func raw(format string, args ...any) model.RawPost {
	return model.RawPost(fmt.Sprintf(format, args...))
}

func testStore() *MemoryStore {
	return &MemoryStore{posts: []model.RawPost{
		raw(`{"id": "a1", "author_id": "A", "created_at": "2021-01-01T02:00:00Z", "text": "vaccine news", "entities": {"mentions": [{"id": "B"}]}}`),
		raw(`{"id": "a2", "author_id": "A", "created_at": "2021-01-01T08:00:00Z", "text": "more news", "public_metrics": {"retweet_count": 2, "like_count": 1}}`),
		raw(`{"id": "b1", "author_id": "B", "created_at": "2021-01-02T14:00:00Z", "text": "RT", "referenced_tweets": [{"type": "retweeted", "id": "a2"}]}`),
		raw(`{"id": "b2", "author_id": "B", "created_at": "2021-01-02T20:00:00Z", "text": "hello", "entities": {"mentions": [{"id": "A"}, {"id": "C"}]}}`),
		raw(`{"id": "c1", "author_id": "C", "created_at": "2021-01-03T10:00:00Z", "text": "quote", "referenced_tweets": [{"type": "quoted", "id": "b2"}]}`),
	}}
}

func testGraph() *graph.Directed {
	g := graph.NewDirected("test")
	g.AddEdge("A", "B")
	g.AddEdge("B", "A")
	g.AddEdge("B", "C")
	g.AddEdge("A", "D")
	return g
}

func TestRun(t *testing.T) {
	ctx := context.Background()
	cfg := model.DefaultRunConfig()
	cfg.Workers = 2
	cfg.Keywords = []string{"vaccine"}

	t.Run("Run builds enriched aggregates", func(t *testing.T) {
		store := testStore()
		p := NewPipeline(store, alwaysPositive, nil)
		p.SetAccountStore(store)
		observer := &RecordingObserver{}
		p.SetObserver(observer)

		accounts, err := p.Run(ctx, testGraph(), cfg)
		require.NoError(t, err, "Expected run to not return an error")
		assert.Equal(t, []string{"A", "B", "C", "D"}, accounts.IDs())

		a, _ := accounts.Get("A")
		assert.Equal(t, 2, a.TotalPosts())
		assert.Equal(t, []string{"b2"}, a.MentionedIn.Sorted(), "Expected mention of A by B to be resolved")
		assert.Equal(t, map[string]int{"B": 1}, a.MentionedBy)
		assert.Equal(t, model.PeriodRatios{1: 0.5, 2: 0.5}, a.PeriodRatiosPosted)

		b, _ := accounts.Get("B")
		assert.Equal(t, map[string]int{"A": 1}, b.PossibleOriginalOwners, "Expected retweet owner to be resolved")
		assert.Equal(t, []string{"a1"}, b.MentionedIn.Sorted())

		c, _ := accounts.Get("C")
		assert.Equal(t, map[string]int{"B": 1}, c.PossibleOriginalOwners)
		assert.Equal(t, []string{"b2"}, c.MentionedIn.Sorted())

		d, _ := accounts.Get("D")
		assert.Equal(t, 0, d.TotalPosts(), "Expected account without posts to get an empty aggregate")

		assert.Equal(t, map[string]int{"A": 1, "B": 1, "C": 1, "D": 1}, store.upserts)
		assert.Equal(t, []Stage{StageAggregate, StageResolve, StageEnrich}, observer.started)
		assert.Equal(t, []Stage{StageAggregate, StageResolve, StageEnrich}, observer.finished)
		assert.Equal(t, 4, observer.advanced[StageAggregate])
	})

	t.Run("Run logs duplicate stored aggregates", func(t *testing.T) {
		store := testStore()
		p := NewPipeline(store, alwaysPositive, nil)
		p.SetAccountStore(store)
		before := testutil.ToFloat64(duplicateAggregatesCounter)

		_, err := p.Run(ctx, testGraph(), cfg)
		require.NoError(t, err)
		_, err = p.Run(ctx, testGraph(), cfg)
		require.NoError(t, err)
		assert.Equal(t, 4.0, testutil.ToFloat64(duplicateAggregatesCounter)-before, "Expected second run to replace all aggregates")
	})

	t.Run("Run skips failing accounts", func(t *testing.T) {
		store := testStore()
		store.failFor = "C"
		p := NewPipeline(store, alwaysPositive, nil)
		before := testutil.ToFloat64(accountsFailedCounter.WithLabelValues(string(StageAggregate)))

		accounts, err := p.Run(ctx, testGraph(), cfg)
		require.NoError(t, err, "Expected failing account to not abort the run")
		assert.False(t, accounts.Has("C"))
		assert.Equal(t, 3, accounts.Len())
		assert.Equal(t, 1.0, testutil.ToFloat64(accountsFailedCounter.WithLabelValues(string(StageAggregate)))-before)
	})

	t.Run("Run aborts on conflicting post", func(t *testing.T) {
		store := testStore()
		store.posts = append(store.posts, raw(`{"id": "x", "author_id": "D", "referenced_tweets": [{"type": "retweeted", "id": "a1"}, {"type": "quoted", "id": "a2"}]}`))
		p := NewPipeline(store, alwaysPositive, nil)

		_, err := p.Run(ctx, testGraph(), cfg)
		assert.ErrorIs(t, err, model.ErrConflictingKind)
	})

	t.Run("Run with cancelled context", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		p := NewPipeline(testStore(), alwaysPositive, nil)

		_, err := p.Run(cancelled, testGraph(), cfg)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestRows(t *testing.T) {
	ctx := context.Background()
	cfg := model.DefaultRunConfig()
	cfg.Keywords = []string{"vaccine"}

	store := testStore()
	store.failFor = "C"
	p := NewPipeline(store, alwaysPositive, nil)
	observer := &RecordingObserver{}
	p.SetObserver(observer)

	g := testGraph()
	accounts, err := p.Run(ctx, g, cfg)
	require.NoError(t, err)

	labels := map[string]int{}
	var missing []string
	for row, err := range p.Rows(accounts, g, cfg) {
		var missingErr *feature.MissingAggregateError
		if errors.As(err, &missingErr) {
			missing = append(missing, missingErr.AccountID)
			continue
		}
		require.NoError(t, err)
		require.Len(t, row.Values, len(feature.Columns()))
		labels[row.SrcID+"->"+row.DestID] = row.Label
	}

	assert.Equal(t, []string{"C"}, missing, "Expected edge to account without aggregate to be skipped")
	assert.Equal(t, map[string]int{"A->B": 1, "A->D": 0, "B->A": 0}, labels)
	assert.Equal(t, 4, observer.advanced[StageFeatures])
	assert.Contains(t, observer.finished, StageFeatures)
}
