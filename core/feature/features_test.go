package feature

import (
	"fmt"
	"math"
	"slices"
	"testing"
	"time"

	"github.com/siherrmann/diffuser/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func column(t *testing.T, row *model.FeatureRow, name string) float64 {
	t.Helper()
	i := slices.Index(Columns(), name)
	require.GreaterOrEqual(t, i, 0, "Expected column %s to exist", name)
	return row.Values[i]
}

func activeAccount(id string) *model.AccountAggregate {
	u := model.NewAccountAggregate(id)
	start := time.Date(2021, 1, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 10; i++ {
		postID := fmt.Sprintf("%s-%d", id, i)
		created := start.Add(time.Duration(i) * 13 * time.Hour)
		bucket := &u.Original
		if i%3 == 1 {
			bucket = &u.Retweet
		} else if i%5 == 4 {
			bucket = &u.Quote
		}
		bucket.PostIDs.Add(postID)
		bucket.Timestamps = append(bucket.Timestamps, created)
		bucket.WithHashtags++
		bucket.WithURLs++
		bucket.WithMedia++
		bucket.WithMentions++
	}
	u.MentionCountTotal = 10
	u.MinPostTime = start
	u.MaxPostTime = start.Add(9 * 13 * time.Hour)
	u.FavoriteCount = 10
	u.RetweetedCount = 10
	u.PositiveSentimentCount = 6
	u.NegativeSentimentCount = 4
	u.FollowersCount = 1414
	u.FriendsCount = 100
	u.FollowerIDs = model.NewStringSet("f1", "f2", "f3")
	u.FriendIDs = model.NewStringSet("g1")
	description := "researcher"
	u.Description = &description
	return u
}

func TestColumns(t *testing.T) {
	columns := Columns()

	assert.Equal(t, len(pairFeatures)+2*len(sideFeatures), len(columns))
	assert.Equal(t, "social_homogeneity", columns[0])
	assert.Contains(t, columns, "src_A_1")
	assert.Contains(t, columns, "dest_A_6")
	assert.Contains(t, columns, "src_retweet_period_ratio_4")
	assert.Contains(t, columns, "dest_follower_to_friend_ratio")
	assert.Equal(t, columns, Columns(), "Expected stable column order")

	seen := model.NewStringSet()
	for _, c := range columns {
		assert.True(t, seen.Add(c), "Expected unique column %s", c)
	}
}

func TestFeaturesWithoutPosts(t *testing.T) {
	src := model.NewAccountAggregate("src")
	dest := model.NewAccountAggregate("dest")

	row := Features(src, dest, model.NewStringSet("vaccine"))
	require.Len(t, row.Values, len(Columns()))
	for i, v := range row.Values {
		assert.False(t, math.IsNaN(v) || math.IsInf(v, 0), "Expected finite value for %s", Columns()[i])
		assert.Equal(t, 0.0, v, "Expected 0 for %s", Columns()[i])
	}
	assert.Equal(t, 0, row.Label)
}

func TestFeaturesBounds(t *testing.T) {
	src := activeAccount("src")
	dest := activeAccount("dest")
	dest.FollowersCount = 5
	dest.FollowerIDs = model.NewStringSet("f1", "f2", "f3", "f4", "f5")
	dest.FriendIDs = model.NewStringSet()

	row := Features(src, dest, model.NewStringSet())
	for i, v := range row.Values {
		assert.GreaterOrEqual(t, v, 0.0, "Expected %s >= 0", Columns()[i])
		assert.LessOrEqual(t, v, 1.0, "Expected %s <= 1", Columns()[i])
	}

	assert.Equal(t, 1.0, column(t, row, "src_follower_ratio"), "Expected 1414 followers to be capped")
	assert.Equal(t, 1.0, column(t, row, "src_follower_to_friend_ratio"), "Expected 3 followers for 1 friend to be capped")
	assert.Equal(t, 0.0, column(t, row, "dest_follower_to_friend_ratio"), "Expected 0 without friends")
	assert.InDelta(t, 5.0/707, column(t, row, "dest_follower_ratio"), 1e-12)
	assert.InDelta(t, 10.0/(30.4*24), column(t, row, "src_activity_index"), 1e-12)
	assert.Equal(t, 1.0, column(t, row, "src_avg_posts_per_day"), "Expected 10 posts in 4 days to be capped")
	assert.InDelta(t, 0.6, column(t, row, "src_positive_sentiment_ratio"), 1e-12)
	assert.InDelta(t, 0.3, column(t, row, "src_retweet_ratio"), 1e-12)
	assert.Equal(t, 1.0, column(t, row, "src_retweets_with_hashtags_ratio"))
	assert.Equal(t, 1.0, column(t, row, "src_has_description"))
}

func TestIndividualFeatures(t *testing.T) {
	t.Run("Social homogeneity is symmetric", func(t *testing.T) {
		a := model.NewAccountAggregate("a")
		b := model.NewAccountAggregate("b")
		a.UsersEverMentioned = model.NewStringSet("x", "y", "z")
		b.UsersEverMentioned = model.NewStringSet("y", "z", "w", "v")

		assert.InDelta(t, 2.0/5, SocialHomogeneity(a, b), 1e-12)
		assert.Equal(t, SocialHomogeneity(a, b), SocialHomogeneity(b, a))
		assert.Equal(t, 0.0, SocialHomogeneity(model.NewAccountAggregate("c"), model.NewAccountAggregate("d")))
	})

	t.Run("Mentioning indicators", func(t *testing.T) {
		a := model.NewAccountAggregate("a")
		b := model.NewAccountAggregate("b")
		a.UsersEverMentioned.Add("b")

		assert.Equal(t, 1.0, MentioningIndicator(a, b))
		assert.Equal(t, 0.0, MentioningIndicator(b, a))
	})

	t.Run("Mention rate is capped", func(t *testing.T) {
		u := model.NewAccountAggregate("u")
		for i := 0; i < 100; i++ {
			u.MentionedIn.Add(fmt.Sprint(i))
		}
		assert.Equal(t, 0.5, MentionRate(u))
		for i := 100; i < 500; i++ {
			u.MentionedIn.Add(fmt.Sprint(i))
		}
		assert.Equal(t, 1.0, MentionRate(u))
	})

	t.Run("Topic match", func(t *testing.T) {
		u := model.NewAccountAggregate("u")
		u.KeywordsSeen = model.NewStringSet("mask", "lockdown")

		assert.Equal(t, 1.0, TopicMatch(u, model.NewStringSet("vaccine", "mask")))
		assert.Equal(t, 0.0, TopicMatch(u, model.NewStringSet("vaccine")))
		assert.Equal(t, 0.0, TopicMatch(u, model.NewStringSet()))
	})

	t.Run("Directed ratio and follows indicator", func(t *testing.T) {
		src := activeAccount("src")
		dest := activeAccount("dest")
		dest.MentionedIn = model.NewStringSet("p1", "p2", "p3", "p4")
		dest.MentionedBy = map[string]int{"src": 1, "other": 3}
		dest.FriendIDs = model.NewStringSet("src")

		row := Features(src, dest, model.NewStringSet())
		assert.Equal(t, 0.25, column(t, row, "src_directed_dest_ratio"))
		assert.Equal(t, 1.0, column(t, row, "dest_follows_src"))
	})

	t.Run("Post kind ratios count original posts only", func(t *testing.T) {
		u := model.NewAccountAggregate("u")
		u.Original.PostIDs.Add("o1")
		u.Quote.PostIDs.Add("q1")
		u.Quote.WithMentions++
		u.Quote.WithURLs++
		u.Quote.WithMedia++
		u.Retweet.PostIDs.Add("r1")
		u.Retweet.WithMentions++
		u.Retweet.WithURLs++
		u.Retweet.WithMedia++

		assert.Equal(t, 0.0, MentionsExcludingRetweetsRatio(u))
		assert.Equal(t, 0.0, MentionsRatio(u))
		assert.Equal(t, 0.0, URLsPerPost(u))
		assert.Equal(t, 0.0, MediaPerPost(u))

		u.Original.WithMentions++
		u.Original.WithURLs++
		u.Original.WithMedia++

		assert.InDelta(t, 1.0/3, MentionsExcludingRetweetsRatio(u), 1e-12)
		assert.InDelta(t, 1.0/3, MentionsRatio(u), 1e-12)
		assert.InDelta(t, 1.0/3, URLsPerPost(u), 1e-12)
		assert.InDelta(t, 1.0/3, MediaPerPost(u), 1e-12)
	})

	t.Run("Period ratios default to zero", func(t *testing.T) {
		u := model.NewAccountAggregate("u")
		u.PeriodRatiosPosted = model.PeriodRatios{2: 0.5, 3: 0.5}

		row := Features(u, model.NewAccountAggregate("v"), model.NewStringSet())
		assert.Equal(t, 0.0, column(t, row, "src_period_ratio_1"))
		assert.Equal(t, 0.5, column(t, row, "src_period_ratio_2"))
		assert.Equal(t, 0.5, column(t, row, "src_period_ratio_3"))
		assert.Equal(t, 0.0, column(t, row, "src_period_ratio_4"))
	})

	t.Run("Attention vector columns", func(t *testing.T) {
		u := model.NewAccountAggregate("u")
		u.AttentionVector = [model.AttentionBins]float64{0.1, 0.2, 0.3, 0.4, 0, 0}

		row := Features(model.NewAccountAggregate("v"), u, model.NewStringSet())
		assert.Equal(t, 0.1, column(t, row, "dest_A_1"))
		assert.Equal(t, 0.4, column(t, row, "dest_A_4"))
		assert.Equal(t, 0.0, column(t, row, "src_A_1"))
	})
}

func TestFeaturesIndependentOfLabel(t *testing.T) {
	base := func(owners map[string]int) (*model.AccountAggregate, *model.AccountAggregate) {
		src := activeAccount("src")
		dest := activeAccount("dest")
		dest.PossibleOriginalOwners = owners
		return src, dest
	}

	src, unlabeled := base(map[string]int{})
	_, labeled := base(map[string]int{"src": 3})
	require.Equal(t, 0, DiffusionLabel(src, unlabeled))
	require.Equal(t, 1, DiffusionLabel(src, labeled))

	without := Features(src, unlabeled, model.NewStringSet())
	with := Features(src, labeled, model.NewStringSet())
	for i, name := range Columns() {
		assert.Equal(t, without.Values[i], with.Values[i], "Expected %s to not depend on the original owners of dest", name)
	}
}

func TestDiffusionLabel(t *testing.T) {
	dest := model.NewAccountAggregate("dest")
	dest.PossibleOriginalOwners = map[string]int{"A": 1, "B": 3}

	assert.Equal(t, 1, DiffusionLabel(model.NewAccountAggregate("A"), dest))
	assert.Equal(t, 1, DiffusionLabel(model.NewAccountAggregate("B"), dest))
	assert.Equal(t, 0, DiffusionLabel(model.NewAccountAggregate("C"), dest))
}
