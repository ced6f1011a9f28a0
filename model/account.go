package model

import (
	"sort"
	"time"
)

// AttentionBins is the number of four-hour bins in an attention vector
const AttentionBins = 6

// KindBucket holds the statistics of one post kind of an account
type KindBucket struct {
	PostIDs      StringSet   `json:"post_ids"`
	WithHashtags int         `json:"with_hashtags"`
	WithURLs     int         `json:"with_urls"`
	WithMedia    int         `json:"with_media"`
	WithMentions int         `json:"with_mentions"`
	Timestamps   []time.Time `json:"timestamps"`
}

func newKindBucket() KindBucket {
	return KindBucket{
		PostIDs:    StringSet{},
		Timestamps: []time.Time{},
	}
}

// Count returns the number of posts in the bucket
func (b *KindBucket) Count() int {
	return len(b.PostIDs)
}

// PeriodRatios maps a six-hour period (1-4) to a ratio. Absent periods read as 0.
type PeriodRatios map[int]float64

// Get returns the ratio of the period or 0 if it is absent
func (r PeriodRatios) Get(period int) float64 {
	return r[period]
}

// AccountAggregate holds all statistics derived from the posts of one account
type AccountAggregate struct {
	AccountID string `json:"account_id"`

	// Per kind buckets; replies are counted as originals
	Original KindBucket `json:"original"`
	Retweet  KindBucket `json:"retweet"`
	Quote    KindBucket `json:"quote"`

	MentionCountTotal  int            `json:"mention_count_total"`
	MentionedIn        StringSet      `json:"mentioned_in"`
	MentionedBy        map[string]int `json:"mentioned_by"`
	UsersEverMentioned StringSet      `json:"users_ever_mentioned"`
	KeywordsSeen       StringSet      `json:"keywords_seen"`

	FavoriteCount          int    `json:"favorite_count"`
	RetweetCountReceived   uint64 `json:"retweet_count_received"`
	RetweetedCount         int    `json:"retweeted_count"`
	PositiveSentimentCount int    `json:"positive_sentiment_count"`
	NegativeSentimentCount int    `json:"negative_sentiment_count"`

	FollowersCount int       `json:"followers_count"`
	FriendsCount   int       `json:"friends_count"`
	FollowerIDs    StringSet `json:"follower_ids"`
	FriendIDs      StringSet `json:"friend_ids"`
	Description    *string   `json:"description,omitempty"`

	MinPostTime time.Time `json:"min_post_time"`
	MaxPostTime time.Time `json:"max_post_time"`

	// Account id -> number of posts re-sharing content owned by that account
	PossibleOriginalOwners map[string]int `json:"possible_original_owners"`

	PeriodRatiosPosted          PeriodRatios           `json:"period_ratios_posted"`
	PeriodRatiosRetweetedPosted PeriodRatios           `json:"period_ratios_retweeted_posted"`
	PeriodRatiosRetweeted       PeriodRatios           `json:"period_ratios_retweeted"`
	AttentionVector             [AttentionBins]float64 `json:"attention_vector"`
}

// NewAccountAggregate creates an empty aggregate for the account
func NewAccountAggregate(accountID string) *AccountAggregate {
	return &AccountAggregate{
		AccountID:                   accountID,
		Original:                    newKindBucket(),
		Retweet:                     newKindBucket(),
		Quote:                       newKindBucket(),
		MentionedIn:                 StringSet{},
		MentionedBy:                 map[string]int{},
		UsersEverMentioned:          StringSet{},
		KeywordsSeen:                StringSet{},
		FollowerIDs:                 StringSet{},
		FriendIDs:                   StringSet{},
		PossibleOriginalOwners:      map[string]int{},
		PeriodRatiosPosted:          PeriodRatios{},
		PeriodRatiosRetweetedPosted: PeriodRatios{},
		PeriodRatiosRetweeted:       PeriodRatios{},
	}
}

// Bucket returns the bucket a post of the given kind is counted in
func (a *AccountAggregate) Bucket(kind PostKind) *KindBucket {
	switch kind {
	case PostKindRetweet:
		return &a.Retweet
	case PostKindQuote:
		return &a.Quote
	default:
		return &a.Original
	}
}

// TotalPosts returns the number of posts over all kinds
func (a *AccountAggregate) TotalPosts() int {
	return a.Original.Count() + a.Retweet.Count() + a.Quote.Count()
}

// TotalRetweets returns the number of retweets the account posted
func (a *AccountAggregate) TotalRetweets() int {
	return a.Retweet.Count()
}

// AllTimestamps returns the creation times of all posts: originals, retweets, quotes
func (a *AccountAggregate) AllTimestamps() []time.Time {
	all := make([]time.Time, 0, len(a.Original.Timestamps)+len(a.Retweet.Timestamps)+len(a.Quote.Timestamps))
	all = append(all, a.Original.Timestamps...)
	all = append(all, a.Retweet.Timestamps...)
	all = append(all, a.Quote.Timestamps...)
	return all
}

// HasPosts reports whether at least one post was observed
func (a *AccountAggregate) HasPosts() bool {
	return !a.MinPostTime.IsZero()
}

// DaysActive returns the number of whole days between the first and last post
func (a *AccountAggregate) DaysActive() int {
	if !a.HasPosts() {
		return 0
	}
	return int(a.MaxPostTime.Sub(a.MinPostTime) / (24 * time.Hour))
}

// AccountSet maps account ids to their aggregates
type AccountSet struct {
	accounts map[string]*AccountAggregate
}

// NewAccountSet creates an empty set
func NewAccountSet() *AccountSet {
	return &AccountSet{accounts: map[string]*AccountAggregate{}}
}

// Put stores the aggregate under its account id. It reports whether an existing
// aggregate was replaced.
func (s *AccountSet) Put(a *AccountAggregate) bool {
	_, replaced := s.accounts[a.AccountID]
	s.accounts[a.AccountID] = a
	return replaced
}

// Get returns the aggregate of the account
func (s *AccountSet) Get(accountID string) (*AccountAggregate, bool) {
	a, ok := s.accounts[accountID]
	return a, ok
}

// Has reports whether the account has an aggregate
func (s *AccountSet) Has(accountID string) bool {
	_, ok := s.accounts[accountID]
	return ok
}

// Len returns the number of aggregates
func (s *AccountSet) Len() int {
	return len(s.accounts)
}

// IDs returns the account ids in ascending order
func (s *AccountSet) IDs() []string {
	ids := make([]string, 0, len(s.accounts))
	for id := range s.accounts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// AttentionMatch is an account found by attention vector similarity
type AttentionMatch struct {
	AccountID string  `json:"account_id"`
	Distance  float64 `json:"distance"`
}
