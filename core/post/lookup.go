package post

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/siherrmann/diffuser/helper"
	"github.com/siherrmann/diffuser/model"
	"github.com/tidwall/gjson"
)

// Lookup finds a stored post by id. found is false if the store does not hold the post.
type Lookup interface {
	Lookup(ctx context.Context, postID string) (raw model.RawPost, found bool, err error)
}

// AuthorLookup resolves the author of a referenced post
type AuthorLookup interface {
	LookupAuthor(ctx context.Context, postID string) (authorID string, found bool, err error)
}

// StoreAuthorLookup resolves authors by reading the full post from a Lookup
type StoreAuthorLookup struct {
	store Lookup
}

// NewStoreAuthorLookup creates an AuthorLookup over the post store
func NewStoreAuthorLookup(store Lookup) *StoreAuthorLookup {
	return &StoreAuthorLookup{store: store}
}

// LookupAuthor implements AuthorLookup
func (l *StoreAuthorLookup) LookupAuthor(ctx context.Context, postID string) (string, bool, error) {
	raw, found, err := l.store.Lookup(ctx, postID)
	if err != nil {
		return "", false, helper.NewError("lookup post", err)
	}
	if !found {
		return "", false, nil
	}
	author := authorID(gjson.ParseBytes(raw))
	return author, author != "", nil
}

type cachedAuthor struct {
	authorID string
	found    bool
}

// CachedAuthorLookup caches resolved authors, including misses, in an LRU cache.
// It is safe for concurrent use.
type CachedAuthorLookup struct {
	next  AuthorLookup
	cache *lru.Cache[string, cachedAuthor]
}

// NewCachedAuthorLookup wraps next with a cache holding up to size entries
func NewCachedAuthorLookup(next AuthorLookup, size int) (*CachedAuthorLookup, error) {
	cache, err := lru.New[string, cachedAuthor](size)
	if err != nil {
		return nil, helper.NewError("create lookup cache", err)
	}
	return &CachedAuthorLookup{next: next, cache: cache}, nil
}

// LookupAuthor implements AuthorLookup
func (l *CachedAuthorLookup) LookupAuthor(ctx context.Context, postID string) (string, bool, error) {
	if c, ok := l.cache.Get(postID); ok {
		return c.authorID, c.found, nil
	}

	authorID, found, err := l.next.LookupAuthor(ctx, postID)
	if err != nil {
		return "", false, err
	}
	l.cache.Add(postID, cachedAuthor{authorID: authorID, found: found})

	return authorID, found, nil
}
