package feature

import (
	"math"

	"github.com/siherrmann/diffuser/model"
)

// ratio divides n by d, 0 if d is 0
func ratio(n, d float64) float64 {
	if d == 0 {
		return 0
	}
	return n / d
}

func indicator(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// ActivityIndex is the volume of posts bounded by 1
func ActivityIndex(u *model.AccountAggregate) float64 {
	return math.Min(1, float64(u.TotalPosts())/ActivityCap)
}

// DirectedPostRatio is the share of posts mentioning other accounts
func DirectedPostRatio(u *model.AccountAggregate) float64 {
	return ratio(float64(u.MentionCountTotal), float64(u.TotalPosts()))
}

// MentionRate is the volume of posts mentioning u bounded by 1
func MentionRate(u *model.AccountAggregate) float64 {
	return math.Min(1, float64(len(u.MentionedIn))/MentionRateCap)
}

// TopicMatch is 1 if u used at least one of the keywords
func TopicMatch(u *model.AccountAggregate, keywords model.StringSet) float64 {
	return indicator(keywords.Intersects(u.KeywordsSeen))
}

// SocialHomogeneity is the Jaccard index of the accounts both users mentioned
func SocialHomogeneity(src, dest *model.AccountAggregate) float64 {
	union := src.UsersEverMentioned.UnionLen(dest.UsersEverMentioned)
	return ratio(float64(src.UsersEverMentioned.IntersectionLen(dest.UsersEverMentioned)), float64(union))
}

// MentioningIndicator is 1 if a ever mentioned b
func MentioningIndicator(a, b *model.AccountAggregate) float64 {
	return indicator(a.UsersEverMentioned.Has(b.AccountID))
}

// DirectedToRatio is the share of posts mentioning b that were written by a
func DirectedToRatio(a, b *model.AccountAggregate) float64 {
	return ratio(float64(b.MentionedBy[a.AccountID]), float64(len(b.MentionedIn)))
}

// FollowsIndicator is 1 if b is among the friends of a
func FollowsIndicator(a, b *model.AccountAggregate) float64 {
	return indicator(a.FriendIDs.Has(b.AccountID))
}

// RetweetedToPostsRatio is the share of posts that got retweeted
func RetweetedToPostsRatio(u *model.AccountAggregate) float64 {
	return ratio(float64(u.RetweetedCount), float64(u.TotalPosts()))
}

// PostsWithHashtagsRatio is the share of original posts with hashtags over all posts
func PostsWithHashtagsRatio(u *model.AccountAggregate) float64 {
	return ratio(float64(u.Original.WithHashtags), float64(u.TotalPosts()))
}

// RetweetsWithHashtagsRatio is the share of retweets with hashtags
func RetweetsWithHashtagsRatio(u *model.AccountAggregate) float64 {
	if u.TotalPosts() == 0 {
		return 0
	}
	return ratio(float64(u.Retweet.WithHashtags), float64(u.TotalRetweets()))
}

// RetweetRatio is the share of retweets over all posts
func RetweetRatio(u *model.AccountAggregate) float64 {
	return ratio(float64(u.TotalRetweets()), float64(u.TotalPosts()))
}

// AvgPostsPerDay is the number of posts per active day bounded by 1
func AvgPostsPerDay(u *model.AccountAggregate) float64 {
	days := max(1, u.DaysActive())
	return math.Min(1, float64(u.TotalPosts())/float64(days))
}

// MentionsExcludingRetweetsRatio is the share of original posts mentioning others over
// all posts. Quotes are not counted, like urls_per_post and media_per_post.
func MentionsExcludingRetweetsRatio(u *model.AccountAggregate) float64 {
	return ratio(float64(u.Original.WithMentions), float64(u.TotalPosts()))
}

// MentionsRatio is the share of original posts mentioning others over all posts.
// Retweets and quotes are not counted.
func MentionsRatio(u *model.AccountAggregate) float64 {
	return ratio(float64(u.Original.WithMentions), float64(u.TotalPosts()))
}

// URLsPerRetweet is the share of retweets with urls
func URLsPerRetweet(u *model.AccountAggregate) float64 {
	if u.TotalPosts() == 0 {
		return 0
	}
	return ratio(float64(u.Retweet.WithURLs), float64(u.TotalRetweets()))
}

// URLsPerPost is the share of original posts with urls over all posts
func URLsPerPost(u *model.AccountAggregate) float64 {
	return ratio(float64(u.Original.WithURLs), float64(u.TotalPosts()))
}

// MediaPerRetweet is the share of retweets with media
func MediaPerRetweet(u *model.AccountAggregate) float64 {
	if u.TotalPosts() == 0 {
		return 0
	}
	return ratio(float64(u.Retweet.WithMedia), float64(u.TotalRetweets()))
}

// MediaPerPost is the share of original posts with media over all posts
func MediaPerPost(u *model.AccountAggregate) float64 {
	return ratio(float64(u.Original.WithMedia), float64(u.TotalPosts()))
}

// HasDescription is 1 if the account has a profile description
func HasDescription(u *model.AccountAggregate) float64 {
	return indicator(u.Description != nil && *u.Description != "")
}

// FavoritedRatio is the share of posts that were liked
func FavoritedRatio(u *model.AccountAggregate) float64 {
	return ratio(float64(u.FavoriteCount), float64(u.TotalPosts()))
}

// PositiveSentimentRatio is the share of positive posts
func PositiveSentimentRatio(u *model.AccountAggregate) float64 {
	return ratio(float64(u.PositiveSentimentCount), float64(u.TotalPosts()))
}

// NegativeSentimentRatio is the share of posts not classified positive
func NegativeSentimentRatio(u *model.AccountAggregate) float64 {
	return ratio(float64(u.NegativeSentimentCount), float64(u.TotalPosts()))
}

// FollowerRatio is the followers count bounded by 1
func FollowerRatio(u *model.AccountAggregate) float64 {
	return math.Min(1, float64(u.FollowersCount)/ConnectionCap)
}

// FriendRatio is the friends count bounded by 1
func FriendRatio(u *model.AccountAggregate) float64 {
	return math.Min(1, float64(u.FriendsCount)/ConnectionCap)
}

// FollowerToFriendRatio relates the known follower and friend ids, bounded by 1
func FollowerToFriendRatio(u *model.AccountAggregate) float64 {
	return math.Min(1, ratio(float64(len(u.FollowerIDs)), float64(len(u.FriendIDs))))
}

// DiffusionLabel is 1 if src is a possible original owner of content dest shared
func DiffusionLabel(src, dest *model.AccountAggregate) int {
	if dest.PossibleOriginalOwners[src.AccountID] > 0 {
		return 1
	}
	return 0
}

// Features computes the feature row of the edge from src to dest.
// It only reads the aggregates.
func Features(src, dest *model.AccountAggregate, keywords model.StringSet) *model.FeatureRow {
	values := make([]float64, 0, len(pairFeatures)+2*len(sideFeatures))
	for _, f := range pairFeatures {
		values = append(values, f.value(src, dest))
	}
	for _, u := range []*model.AccountAggregate{src, dest} {
		for _, f := range sideFeatures {
			values = append(values, f.value(u, keywords))
		}
	}

	return &model.FeatureRow{
		SrcID:  src.AccountID,
		DestID: dest.AccountID,
		Label:  DiffusionLabel(src, dest),
		Values: values,
	}
}
