package aggregate

import (
	"context"
	"errors"
	"log/slog"
	"slices"

	"github.com/siherrmann/diffuser/core/post"
	"github.com/siherrmann/diffuser/helper"
	"github.com/siherrmann/diffuser/model"
)

// MentionSource lists the stored posts mentioning an account
type MentionSource interface {
	MentionsOf(ctx context.Context, accountID string) ([]model.RawPost, error)
}

// Nodes is the set of accounts in the graph
type Nodes interface {
	Has(accountID string) bool
}

// Resolver propagates mentions onto the aggregates of the mentioned accounts.
// It must run after all aggregates of a run exist.
type Resolver struct {
	mentions MentionSource
	parser   *post.Parser
	log      *slog.Logger
}

// NewResolver creates a resolver reading mentioning posts from mentions.
// Original owners are never resolved here, so no referenced post is read.
func NewResolver(mentions MentionSource, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		mentions: mentions,
		parser:   post.NewParser(nil, logger),
		log:      logger,
	}
}

// Resolve records every original post or reply of a graph node that mentions the
// target account in target.MentionedIn and target.MentionedBy. Only target is
// written, so calls for distinct targets can run concurrently. Each post is recorded
// at most once, repeated calls are no-ops.
func (r *Resolver) Resolve(ctx context.Context, target *model.AccountAggregate, nodes Nodes) error {
	raws, err := r.mentions.MentionsOf(ctx, target.AccountID)
	if err != nil {
		return helper.NewError("select mentioning posts", err)
	}

	for _, raw := range raws {
		if err := ctx.Err(); err != nil {
			return helper.NewError("resolve mentions", err)
		}

		mentioning, err := r.parser.Parse(ctx, raw)
		if errors.Is(err, model.ErrConflictingKind) {
			return err
		} else if err != nil {
			r.log.Warn("Skipping unparseable mentioning post", slog.String("account_id", target.AccountID), slog.String("error", err.Error()))
			continue
		}

		if mentioning.Kind == model.PostKindRetweet || mentioning.Kind == model.PostKindQuote {
			continue
		}
		if mentioning.AuthorID == target.AccountID || !nodes.Has(mentioning.AuthorID) {
			continue
		}
		if !slices.Contains(mentioning.Mentions, target.AccountID) {
			continue
		}

		if target.MentionedIn.Add(mentioning.ID) {
			target.MentionedBy[mentioning.AuthorID]++
		}
	}

	return nil
}
