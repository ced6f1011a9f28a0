package aggregate

import (
	"context"
	"iter"
	"log/slog"

	"github.com/siherrmann/diffuser/helper"
	"github.com/siherrmann/diffuser/model"
)

// ConnectionSource supplies the follower and friend ids of an account
type ConnectionSource interface {
	Connections(ctx context.Context, accountID string) (followers []string, friends []string, err error)
}

// Aggregator folds the posts of one account into an AccountAggregate.
// It holds no per-account state and can be used by concurrent tasks.
type Aggregator struct {
	classify    model.SentimentFunc
	connections ConnectionSource
	log         *slog.Logger
}

// NewAggregator creates an aggregator. classify may be nil, then every post counts
// as negative. connections may be nil, then follower and friend ids stay empty.
func NewAggregator(classify model.SentimentFunc, connections ConnectionSource, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		classify:    classify,
		connections: connections,
		log:         logger,
	}
}

// Aggregate iterates posts exactly once and returns the aggregate of the account.
// An empty sequence gives an aggregate with default fields.
func (a *Aggregator) Aggregate(ctx context.Context, accountID string, posts iter.Seq[*model.Post]) (*model.AccountAggregate, error) {
	agg := model.NewAccountAggregate(accountID)

	for post := range posts {
		if err := ctx.Err(); err != nil {
			return nil, helper.NewError("aggregate account", err)
		}
		a.add(agg, post)
	}

	if a.connections != nil {
		followers, friends, err := a.connections.Connections(ctx, accountID)
		if err != nil {
			return nil, helper.NewError("select connections", err)
		}
		agg.FollowerIDs = model.NewStringSet(followers...)
		agg.FriendIDs = model.NewStringSet(friends...)
	}

	return agg, nil
}

func (a *Aggregator) add(agg *model.AccountAggregate, post *model.Post) {
	if agg.Original.PostIDs.Has(post.ID) || agg.Retweet.PostIDs.Has(post.ID) || agg.Quote.PostIDs.Has(post.ID) {
		a.log.Debug("Skipping duplicate post", slog.String("account_id", agg.AccountID), slog.String("post_id", post.ID))
		return
	}

	if agg.FollowersCount == 0 {
		agg.FollowersCount = post.FollowersCount
	}
	if agg.FriendsCount == 0 {
		agg.FriendsCount = post.FriendsCount
	}
	if agg.Description == nil && post.Description != "" {
		description := post.Description
		agg.Description = &description
	}

	if post.OriginalOwnerID != "" && post.OriginalOwnerID != agg.AccountID {
		agg.PossibleOriginalOwners[post.OriginalOwnerID]++
	}

	bucket := agg.Bucket(post.Kind)
	bucket.PostIDs.Add(post.ID)
	if len(post.Hashtags) > 0 {
		bucket.WithHashtags++
	}
	if len(post.URLs) > 0 {
		bucket.WithURLs++
	}
	if len(post.MediaKeys) > 0 {
		bucket.WithMedia++
	}
	if post.HasMentions() {
		bucket.WithMentions++
		agg.MentionCountTotal++
	}
	if !post.CreatedAt.IsZero() {
		bucket.Timestamps = append(bucket.Timestamps, post.CreatedAt)
		if agg.MinPostTime.IsZero() || post.CreatedAt.Before(agg.MinPostTime) {
			agg.MinPostTime = post.CreatedAt
		}
		if agg.MaxPostTime.IsZero() || post.CreatedAt.After(agg.MaxPostTime) {
			agg.MaxPostTime = post.CreatedAt
		}
	}

	// Mentions of retweets and quotes belong to the re-shared content
	if post.Kind == model.PostKindOriginal || post.Kind == model.PostKindReply {
		for _, mentioned := range post.Mentions {
			agg.UsersEverMentioned.Add(mentioned)
		}
	}

	if post.FavoriteCount > 0 {
		agg.FavoriteCount++
	}
	agg.RetweetCountReceived += post.RetweetCount
	if post.RetweetCount > 0 {
		agg.RetweetedCount++
	}
	for _, keyword := range post.Keywords {
		agg.KeywordsSeen.Add(keyword)
	}

	if a.sentiment(post) == model.SentimentPositive {
		agg.PositiveSentimentCount++
	} else {
		agg.NegativeSentimentCount++
	}
}

func (a *Aggregator) sentiment(post *model.Post) model.Sentiment {
	if a.classify == nil {
		return model.SentimentNeutral
	}
	s, err := post.Sentiment(a.classify)
	if err != nil {
		a.log.Warn("Error classifying post sentiment", slog.String("post_id", post.ID), slog.String("error", err.Error()))
		return model.SentimentNeutral
	}
	return s
}
