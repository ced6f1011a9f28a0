package model

import (
	"errors"
	"time"
)

// ErrConflictingKind is returned for a post that references another post both as
// retweeted and as quoted. It indicates broken upstream data and is not recoverable.
var ErrConflictingKind = errors.New("post is both a retweet and a quote")

// PostKind classifies a post by how it references other posts
type PostKind int

const (
	PostKindOriginal PostKind = iota
	PostKindRetweet
	PostKindQuote
	PostKindReply
)

func (k PostKind) String() string {
	switch k {
	case PostKindRetweet:
		return "retweet"
	case PostKindQuote:
		return "quote"
	case PostKindReply:
		return "reply"
	default:
		return "original"
	}
}

// Sentiment is the three-class output of a sentiment classifier
type Sentiment int

const (
	SentimentNeutral Sentiment = iota
	SentimentPositive
	SentimentNegative
)

func (s Sentiment) String() string {
	switch s {
	case SentimentPositive:
		return "positive"
	case SentimentNegative:
		return "negative"
	default:
		return "neutral"
	}
}

// SentimentFunc classifies a text
type SentimentFunc func(text string) (Sentiment, error)

// RawPost is a post record as collected, stored as a JSON document
type RawPost []byte

// Post is the normalized, read-only view of a raw post
type Post struct {
	ID              string    `json:"id"`
	AuthorID        string    `json:"author_id"`
	CreatedAt       time.Time `json:"created_at"`
	Text            string    `json:"text"`
	Mentions        []string  `json:"mentions"`
	Hashtags        []string  `json:"hashtags"`
	URLs            []string  `json:"urls"`
	MediaKeys       []string  `json:"media_keys"`
	Keywords        []string  `json:"keywords"`
	RetweetCount    uint64    `json:"retweet_count"`
	FavoriteCount   uint64    `json:"favorite_count"`
	Kind            PostKind  `json:"kind"`
	ReferencedID    string    `json:"referenced_id,omitempty"`
	OriginalOwnerID string    `json:"original_owner_id,omitempty"`

	// Author profile fields as they were when the post was collected
	FollowersCount int    `json:"followers_count"`
	FriendsCount   int    `json:"friends_count"`
	Description    string `json:"description,omitempty"`

	sentiment  Sentiment
	classified bool
}

// HasMentions reports whether the post mentions at least one other account
func (p *Post) HasMentions() bool {
	return len(p.Mentions) > 0
}

// Sentiment classifies the post text once and caches the result
func (p *Post) Sentiment(classify SentimentFunc) (Sentiment, error) {
	if p.classified {
		return p.sentiment, nil
	}
	s, err := classify(p.Text)
	if err != nil {
		return SentimentNeutral, err
	}
	p.sentiment = s
	p.classified = true
	return s, nil
}
