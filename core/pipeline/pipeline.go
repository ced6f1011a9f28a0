package pipeline

import (
	"context"
	"errors"
	"iter"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/siherrmann/diffuser/core/aggregate"
	"github.com/siherrmann/diffuser/core/feature"
	"github.com/siherrmann/diffuser/core/graph"
	"github.com/siherrmann/diffuser/core/post"
	"github.com/siherrmann/diffuser/core/stats"
	"github.com/siherrmann/diffuser/helper"
	"github.com/siherrmann/diffuser/model"
	"golang.org/x/sync/errgroup"
)

// PostStore is the read-only post collaborator
type PostStore interface {
	post.Lookup
	aggregate.MentionSource
	PostsByAuthor(ctx context.Context, accountID string) ([]model.RawPost, error)
}

// AccountStore persists aggregates. Writing an existing account replaces it.
type AccountStore interface {
	UpsertAccount(ctx context.Context, agg *model.AccountAggregate) (replaced bool, err error)
}

// Pipeline runs aggregation, mention resolution and enrichment as stages
// separated by hard barriers and computes feature rows over the result.
type Pipeline struct {
	Posts       PostStore
	Classify    model.SentimentFunc
	Connections aggregate.ConnectionSource // Optional
	Accounts    AccountStore               // Optional
	Observer    Observer                   // Optional

	log *slog.Logger
}

// NewPipeline creates a new pipeline reading posts from posts
func NewPipeline(posts PostStore, classify model.SentimentFunc, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		Posts:    posts,
		Classify: classify,
		log:      logger,
	}
}

// SetConnections sets the source of follower and friend ids
func (p *Pipeline) SetConnections(connections aggregate.ConnectionSource) {
	p.Connections = connections
}

// SetAccountStore sets the store the enriched aggregates are written to
func (p *Pipeline) SetAccountStore(accounts AccountStore) {
	p.Accounts = accounts
}

// SetObserver sets the progress observer
func (p *Pipeline) SetObserver(observer Observer) {
	p.Observer = observer
}

// Parser creates the post parser of a run
func (p *Pipeline) Parser(cfg model.RunConfig) (*post.Parser, error) {
	var authors post.AuthorLookup = post.NewStoreAuthorLookup(p.Posts)
	if cfg.LookupCacheSize > 0 {
		cached, err := post.NewCachedAuthorLookup(authors, cfg.LookupCacheSize)
		if err != nil {
			return nil, err
		}
		authors = cached
	}
	return post.NewParser(authors, p.log), nil
}

// Run builds the frozen aggregate set of all nodes of g. Failing tasks are
// logged and skip their account. Conflicting post kinds and cancellation abort the run.
func (p *Pipeline) Run(ctx context.Context, g graph.Graph, cfg model.RunConfig) (*model.AccountSet, error) {
	parser, err := p.Parser(cfg)
	if err != nil {
		return nil, helper.NewError("create parser", err)
	}
	observer := &lockedObserver{next: p.Observer}
	workers := max(1, cfg.Workers)

	accounts := model.NewAccountSet()
	aggregator := aggregate.NewAggregator(p.Classify, p.Connections, p.log)
	var mu sync.Mutex

	nodes := g.Nodes()
	err = p.stage(ctx, StageAggregate, nodes, workers, observer, func(ctx context.Context, accountID string) error {
		agg, err := p.aggregateAccount(ctx, parser, aggregator, accountID)
		if err != nil {
			return err
		}

		mu.Lock()
		replaced := accounts.Put(agg)
		mu.Unlock()
		if replaced {
			duplicateAggregatesCounter.Inc()
			p.log.Info("Replaced duplicate aggregate", slog.String("account_id", accountID))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// All aggregates exist, each resolve task only writes its own account
	resolver := aggregate.NewResolver(p.Posts, p.log)
	ids := accounts.IDs()
	err = p.stage(ctx, StageResolve, ids, workers, observer, func(ctx context.Context, accountID string) error {
		agg, _ := accounts.Get(accountID)
		return resolver.Resolve(ctx, agg, accounts)
	})
	if err != nil {
		return nil, err
	}

	err = p.stage(ctx, StageEnrich, ids, workers, observer, func(ctx context.Context, accountID string) error {
		agg, _ := accounts.Get(accountID)
		stats.Enrich(agg)
		if p.Accounts == nil {
			return nil
		}
		replaced, err := p.Accounts.UpsertAccount(ctx, agg)
		if err != nil {
			return helper.NewError("upsert account", err)
		}
		if replaced {
			duplicateAggregatesCounter.Inc()
			p.log.Info("Updating stored aggregate", slog.String("account_id", accountID))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return accounts, nil
}

func (p *Pipeline) aggregateAccount(ctx context.Context, parser *post.Parser, aggregator *aggregate.Aggregator, accountID string) (*model.AccountAggregate, error) {
	raws, err := p.Posts.PostsByAuthor(ctx, accountID)
	if err != nil {
		return nil, helper.NewError("select posts by author", err)
	}

	posts := make([]*model.Post, 0, len(raws))
	for _, raw := range raws {
		parsed, err := parser.Parse(ctx, raw)
		if err != nil {
			if isFatal(err) {
				return nil, err
			}
			postsProcessedCounter.WithLabelValues("skipped").Inc()
			p.log.Warn("Skipping unparseable post", slog.String("account_id", accountID), slog.String("error", err.Error()))
			continue
		}
		postsProcessedCounter.WithLabelValues("parsed").Inc()
		posts = append(posts, parsed)
	}

	return aggregator.Aggregate(ctx, accountID, slices.Values(posts))
}

// stage runs task for every account with at most workers concurrent tasks and
// returns after all tasks finished.
func (p *Pipeline) stage(ctx context.Context, stage Stage, accountIDs []string, workers int, observer Observer, task func(context.Context, string) error) error {
	start := time.Now()
	defer func() {
		stageDuration.WithLabelValues(string(stage)).Observe(time.Since(start).Seconds())
	}()

	observer.StageStarted(stage, len(accountIDs))
	p.log.Info("Starting stage", slog.String("stage", string(stage)), slog.Int("accounts", len(accountIDs)))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for _, accountID := range accountIDs {
		if egCtx.Err() != nil {
			break
		}
		eg.Go(func() error {
			err := task(egCtx, accountID)
			observer.Advance(stage, 1)
			if err == nil {
				accountsProcessedCounter.WithLabelValues(string(stage)).Inc()
				return nil
			}
			if isFatal(err) {
				return err
			}
			accountsFailedCounter.WithLabelValues(string(stage)).Inc()
			p.log.Error("Error processing account", slog.String("stage", string(stage)), slog.String("account_id", accountID), slog.String("error", err.Error()))
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return helper.NewError(string(stage), err)
	}
	if err := ctx.Err(); err != nil {
		return helper.NewError(string(stage), err)
	}

	observer.StageFinished(stage)
	return nil
}

// Rows lazily computes the feature rows of all edges of g. Edges with a missing
// aggregate are logged and yielded with a *feature.MissingAggregateError.
func (p *Pipeline) Rows(accounts *model.AccountSet, g graph.Graph, cfg model.RunConfig) iter.Seq2[*model.FeatureRow, error] {
	engine := feature.NewEngine(cfg.Keywords, accounts)
	observer := &lockedObserver{next: p.Observer}

	total := -1
	if counter, ok := g.(interface{ EdgeCount() int }); ok {
		total = counter.EdgeCount()
	}

	return func(yield func(*model.FeatureRow, error) bool) {
		observer.StageStarted(StageFeatures, total)
		defer observer.StageFinished(StageFeatures)

		for row, err := range engine.Rows(g.Edges()) {
			observer.Advance(StageFeatures, 1)
			var missing *feature.MissingAggregateError
			if errors.As(err, &missing) {
				featureRowsCounter.WithLabelValues("missing").Inc()
				p.log.Warn("Skipping edge without aggregate", slog.String("source", missing.Edge.Source), slog.String("target", missing.Edge.Target), slog.String("account_id", missing.AccountID))
			} else {
				featureRowsCounter.WithLabelValues("computed").Inc()
			}
			if !yield(row, err) {
				return
			}
		}
	}
}

// isFatal reports whether err aborts a whole run
func isFatal(err error) bool {
	return errors.Is(err, model.ErrConflictingKind) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
