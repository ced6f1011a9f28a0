package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"time"

	"github.com/lib/pq"
	"github.com/siherrmann/diffuser/core/post"
	"github.com/siherrmann/diffuser/helper"
	"github.com/siherrmann/diffuser/model"
	loadSql "github.com/siherrmann/diffuser/sql"
)

// PostsDBHandlerFunctions defines the interface for Posts database operations.
type PostsDBHandlerFunctions interface {
	InsertPost(ctx context.Context, raw model.RawPost) (bool, error)
	InsertPosts(ctx context.Context, raws []model.RawPost) (int, error)
	Lookup(ctx context.Context, postID string) (model.RawPost, bool, error)
	PostsByAuthor(ctx context.Context, accountID string) ([]model.RawPost, error)
	MentionsOf(ctx context.Context, accountID string) ([]model.RawPost, error)
	CountPosts(ctx context.Context) (int64, error)
}

// PostsDBHandler stores raw post documents indexed by id, author and mentions
type PostsDBHandler struct {
	db *helper.Database
}

// NewPostsDBHandler creates a new posts database handler.
// It initializes the database connection and loads post-related SQL functions.
// If force is true, it will reload the SQL functions even if they already exist.
func NewPostsDBHandler(db *helper.Database, force bool) (*PostsDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	postsDbHandler := &PostsDBHandler{
		db: db,
	}

	err := loadSql.LoadPostsSql(postsDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load posts sql", err)
	}

	err = postsDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized PostsDBHandler")

	return postsDbHandler, nil
}

// CreateTable creates the 'posts' table and its indexes.
// If the table already exists, it does not create it again.
func (h *PostsDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_posts();`)
	if err != nil {
		log.Panicf("error initializing posts table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table posts")

	return nil
}

// InsertPost stores a raw post. It reports whether a post with the same id was replaced.
func (h *PostsDBHandler) InsertPost(ctx context.Context, raw model.RawPost) (bool, error) {
	return insertPost(ctx, h.db.Instance, raw)
}

// InsertPosts stores raw posts in one transaction and returns the number of replaced posts
func (h *PostsDBHandler) InsertPosts(ctx context.Context, raws []model.RawPost) (int, error) {
	tx, err := h.db.Instance.BeginTx(ctx, nil)
	if err != nil {
		return 0, helper.NewError("begin transaction", err)
	}
	defer tx.Rollback()

	replacedCount := 0
	for _, raw := range raws {
		replaced, err := insertPost(ctx, tx, raw)
		if err != nil {
			return 0, err
		}
		if replaced {
			replacedCount++
		}
	}

	err = tx.Commit()
	if err != nil {
		return 0, helper.NewError("commit", err)
	}

	h.db.Logger.Info("Inserted posts", slog.Int("count", len(raws)), slog.Int("replaced", replacedCount))

	return replacedCount, nil
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func insertPost(ctx context.Context, q queryRower, raw model.RawPost) (bool, error) {
	header, err := post.ReadHeader(raw)
	if err != nil {
		return false, helper.NewError("read post", err)
	}

	createdAt := sql.NullTime{Time: header.CreatedAt, Valid: !header.CreatedAt.IsZero()}

	var id string
	var replaced bool
	err = q.QueryRowContext(
		ctx,
		`SELECT * FROM insert_post($1, $2, $3, $4, $5)`,
		header.ID,
		header.AuthorID,
		pq.Array(header.Mentions),
		createdAt,
		[]byte(raw),
	).Scan(&id, &replaced)
	if err != nil {
		return false, helper.NewError("scan", err)
	}

	return replaced, nil
}

// Lookup returns the raw post with the id. It reports false if there is none.
func (h *PostsDBHandler) Lookup(ctx context.Context, postID string) (model.RawPost, bool, error) {
	var doc []byte
	err := h.db.Instance.QueryRowContext(ctx, `SELECT * FROM select_post($1)`, postID).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, helper.NewError("scan", err)
	}

	return model.RawPost(doc), true, nil
}

// PostsByAuthor returns all posts written by the account
func (h *PostsDBHandler) PostsByAuthor(ctx context.Context, accountID string) ([]model.RawPost, error) {
	return h.selectDocs(ctx, `SELECT * FROM select_posts_by_author($1)`, accountID)
}

// MentionsOf returns all posts mentioning the account
func (h *PostsDBHandler) MentionsOf(ctx context.Context, accountID string) ([]model.RawPost, error) {
	return h.selectDocs(ctx, `SELECT * FROM select_posts_mentioning($1)`, accountID)
}

// CountPosts returns the number of stored posts
func (h *PostsDBHandler) CountPosts(ctx context.Context) (int64, error) {
	var count int64
	err := h.db.Instance.QueryRowContext(ctx, `SELECT count_posts()`).Scan(&count)
	if err != nil {
		return 0, helper.NewError("scan", err)
	}
	return count, nil
}

func (h *PostsDBHandler) selectDocs(ctx context.Context, query string, accountID string) ([]model.RawPost, error) {
	rows, err := h.db.Instance.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var docs []model.RawPost
	for rows.Next() {
		var doc []byte
		err := rows.Scan(&doc)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}
		docs = append(docs, model.RawPost(doc))
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return docs, nil
}
