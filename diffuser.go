package diffuser

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/google/uuid"
	"github.com/siherrmann/diffuser/core/feature"
	"github.com/siherrmann/diffuser/core/graph"
	"github.com/siherrmann/diffuser/core/pipeline"
	"github.com/siherrmann/diffuser/core/sentiment"
	"github.com/siherrmann/diffuser/database"
	"github.com/siherrmann/diffuser/helper"
	"github.com/siherrmann/diffuser/model"
	loadSql "github.com/siherrmann/diffuser/sql"
)

// maxRecordSize is the longest accepted line of a JSONL post file
const maxRecordSize = 16 * 1024 * 1024

// Diffuser provides a unified interface to all database handlers and the feature pipeline
type Diffuser struct {
	DB          *helper.Database
	Posts       *database.PostsDBHandler
	Accounts    *database.AccountsDBHandler
	Graphs      *database.GraphDBHandler
	Connections *database.ConnectionsDBHandler
	Features    *database.FeaturesDBHandler
	Pipeline    *pipeline.Pipeline
	// Logging
	log *slog.Logger
}

// NewDiffuser creates a new Diffuser instance with all handlers initialized.
// Posts are classified with the lexicon sentiment until another function is set.
func NewDiffuser(config *helper.DatabaseConfiguration) (*Diffuser, error) {
	// Logger
	opts := helper.PrettyHandlerOptions{
		SlogOpts: slog.HandlerOptions{
			Level: slog.LevelInfo,
		},
	}
	logger := slog.New(helper.NewPrettyHandler(os.Stdout, opts))

	return NewDiffuserWithLogger(config, logger)
}

// NewDiffuserWithLogger creates a new Diffuser instance logging to logger
func NewDiffuserWithLogger(config *helper.DatabaseConfiguration, logger *slog.Logger) (*Diffuser, error) {
	db := helper.NewDatabase("diffuser", config, logger)
	err := loadSql.Init(db.Instance)
	if err != nil {
		return nil, helper.NewError("initialize database extensions", err)
	}

	// force=false to not reload if functions already exist
	posts, err := database.NewPostsDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create posts handler", err)
	}

	accounts, err := database.NewAccountsDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create accounts handler", err)
	}

	graphs, err := database.NewGraphDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create graph handler", err)
	}

	connections, err := database.NewConnectionsDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create connections handler", err)
	}

	features, err := database.NewFeaturesDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create features handler", err)
	}

	p := pipeline.NewPipeline(posts, sentiment.DefaultLexicon().Classify, logger)
	p.SetConnections(connections)
	p.SetAccountStore(accounts)

	return &Diffuser{
		DB:          db,
		Posts:       posts,
		Accounts:    accounts,
		Graphs:      graphs,
		Connections: connections,
		Features:    features,
		Pipeline:    p,
		log:         logger,
	}, nil
}

// Close closes the database connection
func (d *Diffuser) Close() error {
	if d.DB != nil && d.DB.Instance != nil {
		return d.DB.Close()
	}
	return nil
}

// SetSentiment sets the function classifying post texts
func (d *Diffuser) SetSentiment(classify model.SentimentFunc) {
	d.Pipeline.Classify = classify
}

// UseDefaultSentiment classifies post texts with the default text classification model.
// The model is downloaded on first use.
func (d *Diffuser) UseDefaultSentiment() error {
	classify, err := sentiment.DefaultSentiment()
	if err != nil {
		return helper.NewError("create default sentiment", err)
	}

	d.Pipeline.Classify = classify
	return nil
}

// SetObserver sets the progress observer of the pipeline
func (d *Diffuser) SetObserver(observer pipeline.Observer) {
	d.Pipeline.SetObserver(observer)
}

// ImportPosts stores raw posts and returns the number of replaced posts
func (d *Diffuser) ImportPosts(ctx context.Context, raws []model.RawPost) (int, error) {
	replaced, err := d.Posts.InsertPosts(ctx, raws)
	if err != nil {
		return 0, helper.NewError("import posts", err)
	}
	return replaced, nil
}

// ImportPostsJSONL stores the posts of a file with one JSON record per line in
// batches of batchSize. Empty lines are skipped. It returns the number of imported
// and replaced posts.
func (d *Diffuser) ImportPostsJSONL(ctx context.Context, r io.Reader, batchSize int) (int, int, error) {
	if batchSize <= 0 {
		batchSize = 1000
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxRecordSize)

	imported, replaced := 0, 0
	batch := make([]model.RawPost, 0, batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := d.ImportPosts(ctx, batch)
		if err != nil {
			return err
		}
		imported += len(batch)
		replaced += n
		batch = batch[:0]
		return nil
	}

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		batch = append(batch, model.RawPost(bytes.Clone(line)))
		if len(batch) == batchSize {
			if err := flush(); err != nil {
				return imported, replaced, err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return imported, replaced, helper.NewError("read posts", err)
	}
	if err := flush(); err != nil {
		return imported, replaced, err
	}

	d.log.Info("Imported posts", slog.Int("imported", imported), slog.Int("replaced", replaced))

	return imported, replaced, nil
}

// ImportGraph stores the nodes and edges of g under its name
func (d *Diffuser) ImportGraph(ctx context.Context, g *graph.Directed) error {
	return d.Graphs.InsertGraph(ctx, g)
}

// LoadGraph loads the stored graph with the name
func (d *Diffuser) LoadGraph(ctx context.Context, name string) (*graph.Directed, error) {
	return d.Graphs.SelectGraph(ctx, name)
}

// ImportConnections stores follower or friend ids of an account
func (d *Diffuser) ImportConnections(ctx context.Context, accountID string, connectionType model.ConnectionType, connectedIDs []string) (int, error) {
	return d.Connections.InsertConnections(ctx, accountID, connectionType, connectedIDs)
}

// BuildAggregates runs aggregation, mention resolution and enrichment for all nodes of g.
// Enriched aggregates are persisted.
func (d *Diffuser) BuildAggregates(ctx context.Context, g graph.Graph, cfg model.RunConfig) (*model.AccountSet, error) {
	return d.Pipeline.Run(ctx, g, cfg)
}

// BuildFeatures builds the aggregates of g and writes one feature row per edge into a
// new run with id cfg.RunID. Edges with a missing aggregate are skipped. It returns the
// stored run and the number of skipped edges.
func (d *Diffuser) BuildFeatures(ctx context.Context, g graph.Graph, cfg model.RunConfig, metadata model.Metadata) (*model.FeatureRun, int, error) {
	accounts, err := d.BuildAggregates(ctx, g, cfg)
	if err != nil {
		return nil, 0, helper.NewError("build aggregates", err)
	}

	return d.WriteFeatures(ctx, accounts, g, cfg, metadata)
}

// WriteFeatures writes one feature row per edge of g computed from accounts into a new run
func (d *Diffuser) WriteFeatures(ctx context.Context, accounts *model.AccountSet, g graph.Graph, cfg model.RunConfig, metadata model.Metadata) (*model.FeatureRun, int, error) {
	run := &model.FeatureRun{
		ID:       cfg.RunID,
		Columns:  feature.Columns(),
		Keywords: cfg.Keywords,
		Metadata: metadata,
	}
	if run.Keywords == nil {
		run.Keywords = []string{}
	}

	err := d.Features.InsertFeatureRun(ctx, run)
	if err != nil {
		return nil, 0, helper.NewError("insert feature run", err)
	}

	skipped := 0
	var rowErr error
	rows := func(yield func(*model.FeatureRow) bool) {
		for row, err := range d.Pipeline.Rows(accounts, g, cfg) {
			var missing *feature.MissingAggregateError
			if errors.As(err, &missing) {
				skipped++
				continue
			}
			if err != nil {
				rowErr = err
				return
			}
			if !yield(row) {
				return
			}
		}
	}

	written, err := d.Features.InsertFeatureRows(ctx, run.ID, rows)
	if err == nil && rowErr != nil {
		err = rowErr
	}
	if err != nil {
		if deleteErr := d.Features.DeleteFeatureRun(ctx, run.ID); deleteErr != nil {
			d.log.Error("Error deleting incomplete feature run", slog.String("run_id", run.ID.String()), slog.String("error", deleteErr.Error()))
		}
		return nil, skipped, helper.NewError("insert feature rows", err)
	}
	run.RowCount = written

	d.log.Info(
		"Built features",
		slog.String("run_id", run.ID.String()),
		slog.Int("rows", written),
		slog.Int("skipped", skipped),
	)

	return run, skipped, nil
}

// FeatureRuns returns all stored runs, newest first
func (d *Diffuser) FeatureRuns(ctx context.Context) ([]*model.FeatureRun, error) {
	return d.Features.SelectFeatureRuns(ctx)
}

// ExportFeatures writes the rows of a run as CSV: source id, destination id, the
// feature columns and the label.
func (d *Diffuser) ExportFeatures(ctx context.Context, runID uuid.UUID, w io.Writer) (int, error) {
	run, err := d.Features.SelectFeatureRun(ctx, runID)
	if err != nil {
		return 0, helper.NewError("select feature run", err)
	}

	rows, err := d.Features.SelectFeatureRows(ctx, runID)
	if err != nil {
		return 0, helper.NewError("select feature rows", err)
	}

	return WriteCSV(w, run.Columns, rows)
}

// WriteCSV writes feature rows with the given value columns as CSV
func WriteCSV(w io.Writer, columns []string, rows []*model.FeatureRow) (int, error) {
	writer := csv.NewWriter(w)

	header := make([]string, 0, len(columns)+3)
	header = append(header, "src_id", "dest_id")
	header = append(header, columns...)
	header = append(header, "label")
	if err := writer.Write(header); err != nil {
		return 0, helper.NewError("write header", err)
	}

	for i, row := range rows {
		if len(row.Values) != len(columns) {
			return i, helper.NewError("write row", fmt.Errorf("row %s -> %s has %d values for %d columns", row.SrcID, row.DestID, len(row.Values), len(columns)))
		}

		record := make([]string, 0, len(header))
		record = append(record, row.SrcID, row.DestID)
		for _, v := range row.Values {
			record = append(record, strconv.FormatFloat(v, 'g', -1, 64))
		}
		record = append(record, strconv.Itoa(row.Label))
		if err := writer.Write(record); err != nil {
			return i, helper.NewError("write row", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return len(rows), helper.NewError("flush", err)
	}

	return len(rows), nil
}

// SimilarAttention returns up to limit other accounts whose attention vector is closest
// to the stored one of accountID
func (d *Diffuser) SimilarAttention(ctx context.Context, accountID string, limit int) ([]*model.AttentionMatch, error) {
	account, err := d.Accounts.SelectAccount(ctx, accountID)
	if err != nil {
		return nil, helper.NewError("select account", err)
	}

	matches, err := d.Accounts.SelectAccountsByAttention(ctx, account.AttentionVector, limit+1)
	if err != nil {
		return nil, helper.NewError("select accounts by attention", err)
	}

	similar := make([]*model.AttentionMatch, 0, limit)
	for _, match := range matches {
		if match.AccountID == accountID || len(similar) == limit {
			continue
		}
		similar = append(similar, match)
	}

	return similar, nil
}
