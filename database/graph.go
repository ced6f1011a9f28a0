package database

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"time"

	"github.com/siherrmann/diffuser/core/graph"
	"github.com/siherrmann/diffuser/helper"
	loadSql "github.com/siherrmann/diffuser/sql"
)

// GraphDBHandlerFunctions defines the interface for Graph database operations.
type GraphDBHandlerFunctions interface {
	InsertGraph(ctx context.Context, g *graph.Directed) error
	SelectGraph(ctx context.Context, name string) (*graph.Directed, error)
	DeleteGraph(ctx context.Context, name string) error
}

// GraphDBHandler stores named directed social graphs
type GraphDBHandler struct {
	db *helper.Database
}

// NewGraphDBHandler creates a new graph database handler.
// If force is true, it will reload the SQL functions even if they already exist.
func NewGraphDBHandler(db *helper.Database, force bool) (*GraphDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	graphDbHandler := &GraphDBHandler{
		db: db,
	}

	err := loadSql.LoadGraphSql(graphDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load graph sql", err)
	}

	err = graphDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized GraphDBHandler")

	return graphDbHandler, nil
}

// CreateTable creates the 'graph_nodes' and 'graph_edges' tables in the database.
func (h *GraphDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_graph();`)
	if err != nil {
		log.Panicf("error initializing graph tables: %#v", err)
	}

	h.db.Logger.Info("Checked/created tables graph_nodes and graph_edges")

	return nil
}

// InsertGraph adds all nodes and edges of g under its name in one transaction.
// Existing nodes and edges are kept.
func (h *GraphDBHandler) InsertGraph(ctx context.Context, g *graph.Directed) error {
	if g.Name() == "" {
		return helper.NewError("graph validation", fmt.Errorf("graph has no name"))
	}

	tx, err := h.db.Instance.BeginTx(ctx, nil)
	if err != nil {
		return helper.NewError("begin transaction", err)
	}
	defer tx.Rollback()

	nodeStmt, err := tx.PrepareContext(ctx, `SELECT insert_graph_node($1, $2)`)
	if err != nil {
		return helper.NewError("prepare node insert", err)
	}
	defer nodeStmt.Close()

	for _, node := range g.Nodes() {
		_, err := nodeStmt.ExecContext(ctx, g.Name(), node)
		if err != nil {
			return helper.NewError("insert node", err)
		}
	}

	edgeStmt, err := tx.PrepareContext(ctx, `SELECT insert_graph_edge($1, $2, $3)`)
	if err != nil {
		return helper.NewError("prepare edge insert", err)
	}
	defer edgeStmt.Close()

	for edge := range g.Edges() {
		_, err := edgeStmt.ExecContext(ctx, g.Name(), edge.Source, edge.Target)
		if err != nil {
			return helper.NewError("insert edge", err)
		}
	}

	err = tx.Commit()
	if err != nil {
		return helper.NewError("commit", err)
	}

	h.db.Logger.Info(
		"Inserted graph",
		slog.String("name", g.Name()),
		slog.Int("nodes", g.NodeCount()),
		slog.Int("edges", g.EdgeCount()),
	)

	return nil
}

// SelectGraph loads the graph with the name. An unknown name gives an empty graph.
func (h *GraphDBHandler) SelectGraph(ctx context.Context, name string) (*graph.Directed, error) {
	g := graph.NewDirected(name)

	nodeRows, err := h.db.Instance.QueryContext(ctx, `SELECT * FROM select_graph_nodes($1)`, name)
	if err != nil {
		return nil, helper.NewError("query nodes", err)
	}
	defer nodeRows.Close()

	for nodeRows.Next() {
		var node string
		err := nodeRows.Scan(&node)
		if err != nil {
			return nil, helper.NewError("scan node", err)
		}
		g.AddNode(node)
	}
	err = nodeRows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	edgeRows, err := h.db.Instance.QueryContext(ctx, `SELECT * FROM select_graph_edges($1)`, name)
	if err != nil {
		return nil, helper.NewError("query edges", err)
	}
	defer edgeRows.Close()

	for edgeRows.Next() {
		var source, target string
		var createdAt time.Time
		err := edgeRows.Scan(&source, &target, &createdAt)
		if err != nil {
			return nil, helper.NewError("scan edge", err)
		}
		g.AddEdge(source, target)
	}
	err = edgeRows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return g, nil
}

// DeleteGraph removes all nodes and edges of the graph with the name
func (h *GraphDBHandler) DeleteGraph(ctx context.Context, name string) error {
	_, err := h.db.Instance.ExecContext(ctx, `SELECT delete_graph($1)`, name)
	if err != nil {
		return helper.NewError("delete", err)
	}
	return nil
}
