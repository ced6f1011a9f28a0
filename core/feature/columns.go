package feature

import (
	"fmt"

	"github.com/siherrmann/diffuser/model"
)

// Normalization caps, fixed by the feature definitions
const (
	// Posts per hour over a month
	ActivityCap = 30.4 * 24
	// Posts mentioning an account
	MentionRateCap = 200.0
	// Followers or friends of an account
	ConnectionCap = 707.0
)

// Column prefixes of the per-side features
const (
	SrcPrefix  = "src_"
	DestPrefix = "dest_"
)

type pairFeature struct {
	name  string
	value func(src, dest *model.AccountAggregate) float64
}

type sideFeature struct {
	name  string
	value func(u *model.AccountAggregate, keywords model.StringSet) float64
}

var pairFeatures = []pairFeature{
	{"social_homogeneity", SocialHomogeneity},
	{"src_mentions_dest", MentioningIndicator},
	{"dest_mentions_src", func(src, dest *model.AccountAggregate) float64 { return MentioningIndicator(dest, src) }},
	{"src_directed_dest_ratio", DirectedToRatio},
	{"dest_follows_src", func(src, dest *model.AccountAggregate) float64 { return FollowsIndicator(dest, src) }},
}

var sideFeatures = buildSideFeatures()

func buildSideFeatures() []sideFeature {
	features := []sideFeature{
		{"activity_index", plain(ActivityIndex)},
		{"directed_post_ratio", plain(DirectedPostRatio)},
		{"mention_rate", plain(MentionRate)},
		{"topic_match", TopicMatch},
	}
	for i := 0; i < model.AttentionBins; i++ {
		features = append(features, sideFeature{
			name:  fmt.Sprintf("A_%d", i+1),
			value: plain(func(u *model.AccountAggregate) float64 { return u.AttentionVector[i] }),
		})
	}
	features = append(features,
		sideFeature{"retweeted_to_posts_ratio", plain(RetweetedToPostsRatio)},
		sideFeature{"posts_with_hashtags_ratio", plain(PostsWithHashtagsRatio)},
		sideFeature{"retweets_with_hashtags_ratio", plain(RetweetsWithHashtagsRatio)},
		sideFeature{"retweet_ratio", plain(RetweetRatio)},
		sideFeature{"avg_posts_per_day", plain(AvgPostsPerDay)},
		sideFeature{"mentions_excluding_retweets_ratio", plain(MentionsExcludingRetweetsRatio)},
		sideFeature{"mentions_ratio", plain(MentionsRatio)},
		sideFeature{"urls_per_retweet", plain(URLsPerRetweet)},
		sideFeature{"urls_per_post", plain(URLsPerPost)},
		sideFeature{"media_per_retweet", plain(MediaPerRetweet)},
		sideFeature{"media_per_post", plain(MediaPerPost)},
		sideFeature{"has_description", plain(HasDescription)},
		sideFeature{"favorited_ratio", plain(FavoritedRatio)},
		sideFeature{"positive_sentiment_ratio", plain(PositiveSentimentRatio)},
		sideFeature{"negative_sentiment_ratio", plain(NegativeSentimentRatio)},
	)
	for _, variant := range []struct {
		prefix string
		ratios func(u *model.AccountAggregate) model.PeriodRatios
	}{
		{"period_ratio", func(u *model.AccountAggregate) model.PeriodRatios { return u.PeriodRatiosPosted }},
		{"retweeted_period_ratio", func(u *model.AccountAggregate) model.PeriodRatios { return u.PeriodRatiosRetweetedPosted }},
		{"retweet_period_ratio", func(u *model.AccountAggregate) model.PeriodRatios { return u.PeriodRatiosRetweeted }},
	} {
		for period := 1; period <= 4; period++ {
			features = append(features, sideFeature{
				name:  fmt.Sprintf("%s_%d", variant.prefix, period),
				value: plain(func(u *model.AccountAggregate) float64 { return variant.ratios(u).Get(period) }),
			})
		}
	}
	features = append(features,
		sideFeature{"follower_ratio", plain(FollowerRatio)},
		sideFeature{"friend_ratio", plain(FriendRatio)},
		sideFeature{"follower_to_friend_ratio", plain(FollowerToFriendRatio)},
	)
	return features
}

func plain(f func(u *model.AccountAggregate) float64) func(*model.AccountAggregate, model.StringSet) float64 {
	return func(u *model.AccountAggregate, _ model.StringSet) float64 {
		return f(u)
	}
}

// Columns returns the feature column names in row order: pairwise features
// followed by the source and the destination features.
func Columns() []string {
	columns := make([]string, 0, len(pairFeatures)+2*len(sideFeatures))
	for _, f := range pairFeatures {
		columns = append(columns, f.name)
	}
	for _, prefix := range []string{SrcPrefix, DestPrefix} {
		for _, f := range sideFeatures {
			columns = append(columns, prefix+f.name)
		}
	}
	return columns
}
