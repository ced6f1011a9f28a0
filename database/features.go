package database

import (
	"context"
	"fmt"
	"iter"
	"log"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/siherrmann/diffuser/helper"
	"github.com/siherrmann/diffuser/model"
	loadSql "github.com/siherrmann/diffuser/sql"
)

// FeaturesDBHandlerFunctions defines the interface for Features database operations.
type FeaturesDBHandlerFunctions interface {
	InsertFeatureRun(ctx context.Context, run *model.FeatureRun) error
	InsertFeatureRows(ctx context.Context, runID uuid.UUID, rows iter.Seq[*model.FeatureRow]) (int, error)
	SelectFeatureRun(ctx context.Context, id uuid.UUID) (*model.FeatureRun, error)
	SelectFeatureRuns(ctx context.Context) ([]*model.FeatureRun, error)
	SelectFeatureRows(ctx context.Context, runID uuid.UUID) ([]*model.FeatureRow, error)
	DeleteFeatureRun(ctx context.Context, id uuid.UUID) error
}

// FeaturesDBHandler persists feature tables. A run holds the column names and
// keywords, its rows hold the values in column order.
type FeaturesDBHandler struct {
	db *helper.Database
}

// NewFeaturesDBHandler creates a new features database handler.
// If force is true, it will reload the SQL functions even if they already exist.
func NewFeaturesDBHandler(db *helper.Database, force bool) (*FeaturesDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	featuresDbHandler := &FeaturesDBHandler{
		db: db,
	}

	err := loadSql.LoadFeaturesSql(featuresDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load features sql", err)
	}

	err = featuresDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized FeaturesDBHandler")

	return featuresDbHandler, nil
}

// CreateTable creates the 'feature_runs' and 'feature_rows' tables in the database.
func (h *FeaturesDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_features();`)
	if err != nil {
		log.Panicf("error initializing features tables: %#v", err)
	}

	h.db.Logger.Info("Checked/created tables feature_runs and feature_rows")

	return nil
}

// InsertFeatureRun creates a run. A nil id is replaced by a new random id.
func (h *FeaturesDBHandler) InsertFeatureRun(ctx context.Context, run *model.FeatureRun) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}

	row := h.db.Instance.QueryRowContext(
		ctx,
		`SELECT * FROM insert_feature_run($1, $2, $3, $4)`,
		run.ID,
		pq.Array(run.Columns),
		pq.Array(run.Keywords),
		run.Metadata,
	)

	err := scanFeatureRun(row, run)
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// InsertFeatureRows copies rows into the run in one transaction and updates the row
// count of the run. It returns the number of copied rows.
func (h *FeaturesDBHandler) InsertFeatureRows(ctx context.Context, runID uuid.UUID, rows iter.Seq[*model.FeatureRow]) (int, error) {
	tx, err := h.db.Instance.BeginTx(ctx, nil)
	if err != nil {
		return 0, helper.NewError("begin transaction", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("feature_rows", "run_id", "src_id", "dest_id", "label", "vals"))
	if err != nil {
		return 0, helper.NewError("prepare copy", err)
	}

	copied := 0
	for row := range rows {
		_, err := stmt.ExecContext(ctx, runID, row.SrcID, row.DestID, row.Label, pq.Array(row.Values))
		if err != nil {
			stmt.Close()
			return 0, helper.NewError("copy row", err)
		}
		copied++
	}

	_, err = stmt.ExecContext(ctx)
	if err != nil {
		stmt.Close()
		return 0, helper.NewError("flush copy", err)
	}

	err = stmt.Close()
	if err != nil {
		return 0, helper.NewError("close copy", err)
	}

	var rowCount int
	err = tx.QueryRowContext(ctx, `SELECT update_feature_run_row_count($1)`, runID).Scan(&rowCount)
	if err != nil {
		return 0, helper.NewError("update row count", err)
	}

	err = tx.Commit()
	if err != nil {
		return 0, helper.NewError("commit", err)
	}

	h.db.Logger.Info("Inserted feature rows", slog.String("run", runID.String()), slog.Int("rows", copied))

	return copied, nil
}

// SelectFeatureRun returns the run with the id
func (h *FeaturesDBHandler) SelectFeatureRun(ctx context.Context, id uuid.UUID) (*model.FeatureRun, error) {
	run := &model.FeatureRun{}
	row := h.db.Instance.QueryRowContext(ctx, `SELECT * FROM select_feature_run($1)`, id)

	err := scanFeatureRun(row, run)
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return run, nil
}

// SelectFeatureRuns returns all runs, newest first
func (h *FeaturesDBHandler) SelectFeatureRuns(ctx context.Context) ([]*model.FeatureRun, error) {
	rows, err := h.db.Instance.QueryContext(ctx, `SELECT * FROM select_all_feature_runs()`)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var runs []*model.FeatureRun
	for rows.Next() {
		run := &model.FeatureRun{}
		err := scanFeatureRun(rows, run)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}
		runs = append(runs, run)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return runs, nil
}

// SelectFeatureRows returns the rows of the run ordered by source and destination
func (h *FeaturesDBHandler) SelectFeatureRows(ctx context.Context, runID uuid.UUID) ([]*model.FeatureRow, error) {
	rows, err := h.db.Instance.QueryContext(ctx, `SELECT * FROM select_feature_rows($1)`, runID)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var featureRows []*model.FeatureRow
	for rows.Next() {
		row := &model.FeatureRow{}
		err := rows.Scan(&row.SrcID, &row.DestID, &row.Label, pq.Array(&row.Values))
		if err != nil {
			return nil, helper.NewError("scan", err)
		}
		featureRows = append(featureRows, row)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return featureRows, nil
}

// DeleteFeatureRun removes the run and its rows
func (h *FeaturesDBHandler) DeleteFeatureRun(ctx context.Context, id uuid.UUID) error {
	_, err := h.db.Instance.ExecContext(ctx, `SELECT delete_feature_run($1)`, id)
	if err != nil {
		return helper.NewError("delete", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanFeatureRun(s scanner, run *model.FeatureRun) error {
	return s.Scan(
		&run.ID,
		pq.Array(&run.Columns),
		pq.Array(&run.Keywords),
		&run.RowCount,
		&run.Metadata,
		&run.CreatedAt,
	)
}
