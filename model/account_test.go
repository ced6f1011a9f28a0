package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountAggregate(t *testing.T) {
	t.Run("Empty aggregate has defaults", func(t *testing.T) {
		a := NewAccountAggregate("u1")

		assert.Equal(t, 0, a.TotalPosts())
		assert.Equal(t, 0, a.TotalRetweets())
		assert.Equal(t, 0, a.DaysActive())
		assert.False(t, a.HasPosts())
		assert.Equal(t, 0.0, a.PeriodRatiosPosted.Get(1))
		assert.Equal(t, [AttentionBins]float64{}, a.AttentionVector)
	})

	t.Run("Replies are counted in the original bucket", func(t *testing.T) {
		a := NewAccountAggregate("u1")
		assert.Same(t, &a.Original, a.Bucket(PostKindReply))
		assert.Same(t, &a.Original, a.Bucket(PostKindOriginal))
		assert.Same(t, &a.Retweet, a.Bucket(PostKindRetweet))
		assert.Same(t, &a.Quote, a.Bucket(PostKindQuote))
	})

	t.Run("Totals and days active", func(t *testing.T) {
		a := NewAccountAggregate("u1")
		a.Original.PostIDs.Add("p1")
		a.Retweet.PostIDs.Add("p2")
		a.Quote.PostIDs.Add("p3")
		a.MinPostTime = time.Date(2020, 1, 1, 10, 0, 0, 0, time.UTC)
		a.MaxPostTime = time.Date(2020, 1, 3, 9, 0, 0, 0, time.UTC)

		assert.Equal(t, 3, a.TotalPosts())
		assert.Equal(t, 1, a.TotalRetweets())
		assert.Equal(t, 1, a.DaysActive(), "Expected whole days only")
	})

	t.Run("JSON round trip keeps sets and ratios", func(t *testing.T) {
		a := NewAccountAggregate("u1")
		a.UsersEverMentioned.Add("u2")
		a.PeriodRatiosPosted[2] = 0.5
		a.AttentionVector[3] = 0.25

		b, err := json.Marshal(a)
		require.NoError(t, err)

		var decoded AccountAggregate
		require.NoError(t, json.Unmarshal(b, &decoded))
		assert.True(t, decoded.UsersEverMentioned.Has("u2"))
		assert.Equal(t, 0.5, decoded.PeriodRatiosPosted.Get(2))
		assert.Equal(t, 0.25, decoded.AttentionVector[3])
	})
}

func TestAccountSet(t *testing.T) {
	t.Run("Put reports replacement", func(t *testing.T) {
		s := NewAccountSet()
		assert.False(t, s.Put(NewAccountAggregate("b")))
		assert.False(t, s.Put(NewAccountAggregate("a")))

		replacement := NewAccountAggregate("b")
		replacement.FollowersCount = 5
		assert.True(t, s.Put(replacement), "Expected second write to replace")

		got, ok := s.Get("b")
		require.True(t, ok)
		assert.Equal(t, 5, got.FollowersCount, "Expected last writer to win")
		assert.Equal(t, []string{"a", "b"}, s.IDs())
		assert.Equal(t, 2, s.Len())
	})
}

func TestStringSet(t *testing.T) {
	t.Run("Set operations", func(t *testing.T) {
		a := NewStringSet("x", "y", "z")
		b := NewStringSet("y", "z", "w")

		assert.Equal(t, 2, a.IntersectionLen(b))
		assert.Equal(t, 4, a.UnionLen(b))
		assert.True(t, a.Intersects(b))
		assert.False(t, a.Intersects(NewStringSet("q")))
		assert.False(t, a.Add("x"))
		assert.True(t, a.Add("v"))
	})

	t.Run("Marshals sorted", func(t *testing.T) {
		b, err := json.Marshal(NewStringSet("c", "a", "b"))
		require.NoError(t, err)
		assert.JSONEq(t, `["a","b","c"]`, string(b))
	})
}
