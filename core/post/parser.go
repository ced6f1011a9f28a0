package post

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/siherrmann/diffuser/helper"
	"github.com/siherrmann/diffuser/model"
	"github.com/tidwall/gjson"
)

// Reference types used in the referenced_tweets list
const (
	referenceRetweeted = "retweeted"
	referenceQuoted    = "quoted"
	referenceRepliedTo = "replied_to"
)

// Parser normalizes raw post records into model.Post values.
// Absent or malformed entities degrade to empty collections.
type Parser struct {
	authors AuthorLookup
	log     *slog.Logger
}

// NewParser creates a parser resolving referenced posts with authors.
// authors may be nil, then referenced posts are never resolvable.
func NewParser(authors AuthorLookup, logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{
		authors: authors,
		log:     logger,
	}
}

// Parse builds the normalized view of one raw post. It fails only for records that
// are no JSON object, for a failing post store and for posts referencing another post
// both as retweeted and as quoted (model.ErrConflictingKind).
func (p *Parser) Parse(ctx context.Context, raw model.RawPost) (*model.Post, error) {
	if !gjson.ValidBytes(raw) {
		return nil, helper.NewError("parse post", fmt.Errorf("record is not valid JSON"))
	}
	doc := gjson.ParseBytes(raw)
	if !doc.IsObject() {
		return nil, helper.NewError("parse post", fmt.Errorf("record is not a JSON object"))
	}

	post := &model.Post{
		ID:             firstString(doc, "id_str", "id"),
		AuthorID:       authorID(doc),
		CreatedAt:      parseTime(doc.Get("created_at")),
		Text:           firstString(doc, "full_text", "text"),
		FollowersCount: int(doc.Get("user.followers_count").Int()),
		FriendsCount:   int(doc.Get("user.friends_count").Int()),
		Description:    doc.Get("user.description").String(),
	}

	entities := object(doc.Get("entities"))
	post.Mentions = mentions(entities, post.AuthorID)
	post.Hashtags = hashtags(entities)
	post.URLs = urls(entities)
	post.MediaKeys = mediaKeys(object(doc.Get("attachments")), entities)
	post.Keywords = Keywords(post.Text)

	metrics := object(doc.Get("public_metrics"))
	if metrics.Exists() {
		post.RetweetCount = metrics.Get("retweet_count").Uint()
		post.FavoriteCount = metrics.Get("like_count").Uint()
	} else {
		post.RetweetCount = doc.Get("retweet_count").Uint()
		post.FavoriteCount = doc.Get("favorite_count").Uint()
	}

	if err := p.classify(ctx, doc, post); err != nil {
		return nil, err
	}

	return post, nil
}

// classify sets kind, referenced id and original owner. Resolution walks exactly one
// hop: the author of the referenced post, then the embedded legacy status, then the
// reply target and finally the post's own author.
func (p *Parser) classify(ctx context.Context, doc gjson.Result, post *model.Post) error {
	var retweeted, quoted, repliedTo string
	refs := doc.Get("referenced_tweets")
	if refs.IsArray() {
		for _, ref := range refs.Array() {
			if !ref.IsObject() {
				continue
			}
			switch ref.Get("type").String() {
			case referenceRetweeted:
				retweeted = ref.Get("id").String()
			case referenceQuoted:
				quoted = ref.Get("id").String()
			case referenceRepliedTo:
				repliedTo = ref.Get("id").String()
			}
		}
	}
	if retweeted != "" && quoted != "" {
		return helper.NewError(fmt.Sprintf("classify post %s", post.ID), model.ErrConflictingKind)
	}

	replyTo := firstString(doc, "in_reply_to_user_id_str", "in_reply_to_user_id")
	legacyRetweet := object(doc.Get("retweeted_status"))
	legacyQuote := object(doc.Get("quoted_status"))

	switch {
	case retweeted != "":
		post.Kind = model.PostKindRetweet
		post.ReferencedID = retweeted
	case quoted != "":
		post.Kind = model.PostKindQuote
		post.ReferencedID = quoted
	case legacyRetweet.Exists():
		post.Kind = model.PostKindRetweet
		post.ReferencedID = firstString(legacyRetweet, "id_str", "id")
	case legacyQuote.Exists():
		post.Kind = model.PostKindQuote
		post.ReferencedID = firstString(legacyQuote, "id_str", "id")
	case replyTo != "" || repliedTo != "":
		post.Kind = model.PostKindReply
		post.ReferencedID = repliedTo
	default:
		post.Kind = model.PostKindOriginal
	}

	if post.Kind == model.PostKindRetweet || post.Kind == model.PostKindQuote {
		if post.ReferencedID != "" && p.authors != nil {
			owner, found, err := p.authors.LookupAuthor(ctx, post.ReferencedID)
			if err != nil {
				return helper.NewError("resolve original owner", err)
			}
			if found {
				post.OriginalOwnerID = owner
				return nil
			}
		}
		p.log.Debug("Referenced post not resolvable", slog.String("post_id", post.ID), slog.String("referenced_id", post.ReferencedID))

		if legacyRetweet.Exists() {
			if owner := authorID(legacyRetweet); owner != "" {
				post.OriginalOwnerID = owner
				return nil
			}
		}
		if legacyQuote.Exists() {
			if owner := authorID(legacyQuote); owner != "" {
				post.OriginalOwnerID = owner
				return nil
			}
		}
	}

	if replyTo != "" {
		post.OriginalOwnerID = replyTo
		return nil
	}

	post.OriginalOwnerID = post.AuthorID
	return nil
}

func authorID(doc gjson.Result) string {
	return firstString(doc, "author_id", "user.id_str", "user.id")
}

// firstString returns the first present, non-null value of the given paths as a string
func firstString(doc gjson.Result, paths ...string) string {
	for _, path := range paths {
		r := doc.Get(path)
		if r.Exists() && r.Type != gjson.Null && r.String() != "" {
			if r.Type == gjson.Number {
				return r.Raw
			}
			return r.String()
		}
	}
	return ""
}

// object returns r as a JSON object. Objects stored as (single quoted) JSON strings are
// decoded; everything else gives an empty result.
func object(r gjson.Result) gjson.Result {
	if r.IsObject() {
		return r
	}
	if r.Type == gjson.String && r.Str != "None" {
		s := strings.ReplaceAll(r.Str, "'", "\"")
		if gjson.Valid(s) {
			if parsed := gjson.Parse(s); parsed.IsObject() {
				return parsed
			}
		}
	}
	return gjson.Result{}
}

func array(r gjson.Result) []gjson.Result {
	if !r.IsArray() {
		return nil
	}
	return r.Array()
}

func mentions(entities gjson.Result, author string) []string {
	seen := model.StringSet{}
	list := array(entities.Get("mentions"))
	if list == nil {
		list = array(entities.Get("user_mentions"))
	}
	for _, m := range list {
		var id string
		if m.IsObject() {
			id = firstString(m, "id_str", "id", "username", "screen_name")
		} else {
			id = m.String()
		}
		if id != "" && id != author {
			seen.Add(id)
		}
	}
	return seen.Sorted()
}

func hashtags(entities gjson.Result) []string {
	tags := []string{}
	for _, h := range array(entities.Get("hashtags")) {
		if h.IsObject() {
			// Both key names occur in collected data
			if tag := firstString(h, "tag", "text"); tag != "" {
				tags = append(tags, tag)
			}
		} else if h.String() != "" {
			tags = append(tags, h.String())
		}
	}
	return tags
}

func urls(entities gjson.Result) []string {
	out := []string{}
	for _, u := range array(entities.Get("urls")) {
		if u.IsObject() {
			if url := firstString(u, "expanded_url", "url"); url != "" {
				out = append(out, url)
			}
		} else if u.String() != "" {
			out = append(out, u.String())
		}
	}
	return out
}

func mediaKeys(attachments, entities gjson.Result) []string {
	keys := []string{}
	for _, k := range array(attachments.Get("media_keys")) {
		if k.String() != "" {
			keys = append(keys, k.String())
		}
	}
	if len(keys) > 0 {
		return keys
	}
	for _, m := range array(entities.Get("media")) {
		if key := firstString(m, "media_key", "id_str", "id"); key != "" {
			keys = append(keys, key)
		}
	}
	return keys
}

// parseTime parses a created_at value. Unparseable values give the zero time.
// All times are normalized to UTC.
func parseTime(r gjson.Result) time.Time {
	if r.IsObject() {
		r = r.Get("$date")
	}

	switch r.Type {
	case gjson.String:
		s := strings.TrimSpace(r.Str)
		if t, err := time.Parse(time.RubyDate, s); err == nil {
			return t.UTC()
		}
		if t, err := dateparse.ParseIn(s, time.UTC); err == nil {
			return t.UTC()
		}
	case gjson.Number:
		// Epoch milliseconds as written by document store exports
		return time.UnixMilli(r.Int()).UTC()
	}

	return time.Time{}
}

// SortByTime orders posts by creation time, ties by id
func SortByTime(posts []*model.Post) {
	sort.SliceStable(posts, func(i, j int) bool {
		if posts[i].CreatedAt.Equal(posts[j].CreatedAt) {
			return posts[i].ID < posts[j].ID
		}
		return posts[i].CreatedAt.Before(posts[j].CreatedAt)
	})
}

// Header holds the fields a post store indexes a raw post by
type Header struct {
	ID        string
	AuthorID  string
	Mentions  []string
	CreatedAt time.Time
}

// ReadHeader extracts the index fields of a raw post without classifying it
func ReadHeader(raw model.RawPost) (*Header, error) {
	if !gjson.ValidBytes(raw) {
		return nil, helper.NewError("read header", fmt.Errorf("record is not valid JSON"))
	}
	doc := gjson.ParseBytes(raw)
	if !doc.IsObject() {
		return nil, helper.NewError("read header", fmt.Errorf("record is not a JSON object"))
	}

	header := &Header{
		ID:        firstString(doc, "id_str", "id"),
		AuthorID:  authorID(doc),
		CreatedAt: parseTime(doc.Get("created_at")),
	}
	if header.ID == "" {
		return nil, helper.NewError("read header", fmt.Errorf("record has no id"))
	}
	header.Mentions = mentions(object(doc.Get("entities")), header.AuthorID)

	return header, nil
}
