package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/lib/pq"
	"github.com/siherrmann/diffuser/helper"
	"github.com/siherrmann/diffuser/model"
	loadSql "github.com/siherrmann/diffuser/sql"
)

// ConnectionsDBHandlerFunctions defines the interface for Connections database operations.
type ConnectionsDBHandlerFunctions interface {
	InsertConnections(ctx context.Context, accountID string, connectionType model.ConnectionType, connectedIDs []string) (int, error)
	SelectConnections(ctx context.Context, accountID string, connectionType model.ConnectionType) ([]string, error)
	Connections(ctx context.Context, accountID string) ([]string, []string, error)
	DeleteConnections(ctx context.Context, accountID string) error
}

// ConnectionsDBHandler stores follower and friend ids of accounts
type ConnectionsDBHandler struct {
	db *helper.Database
}

// NewConnectionsDBHandler creates a new connections database handler.
// If force is true, it will reload the SQL functions even if they already exist.
func NewConnectionsDBHandler(db *helper.Database, force bool) (*ConnectionsDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	connectionsDbHandler := &ConnectionsDBHandler{
		db: db,
	}

	err := loadSql.LoadConnectionsSql(connectionsDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load connections sql", err)
	}

	err = connectionsDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized ConnectionsDBHandler")

	return connectionsDbHandler, nil
}

// CreateTable creates the 'connections' table in the database.
func (h *ConnectionsDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_connections();`)
	if err != nil {
		log.Panicf("error initializing connections table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table connections")

	return nil
}

// InsertConnections stores connections of the account and returns the number of new ones
func (h *ConnectionsDBHandler) InsertConnections(ctx context.Context, accountID string, connectionType model.ConnectionType, connectedIDs []string) (int, error) {
	if connectionType != model.ConnectionTypeFollower && connectionType != model.ConnectionTypeFriend {
		return 0, helper.NewError("connection type validation", fmt.Errorf("unknown connection type %q", connectionType))
	}

	var inserted int
	err := h.db.Instance.QueryRowContext(
		ctx,
		`SELECT insert_connections($1, $2, $3)`,
		accountID,
		pq.Array(connectedIDs),
		string(connectionType),
	).Scan(&inserted)
	if err != nil {
		return 0, helper.NewError("scan", err)
	}

	return inserted, nil
}

// SelectConnections returns the connected ids of one type in ascending order
func (h *ConnectionsDBHandler) SelectConnections(ctx context.Context, accountID string, connectionType model.ConnectionType) ([]string, error) {
	rows, err := h.db.Instance.QueryContext(ctx, `SELECT * FROM select_connections($1, $2)`, accountID, string(connectionType))
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		err := rows.Scan(&id)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}
		ids = append(ids, id)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return ids, nil
}

// Connections returns the follower and friend ids of the account
func (h *ConnectionsDBHandler) Connections(ctx context.Context, accountID string) ([]string, []string, error) {
	followers, err := h.SelectConnections(ctx, accountID, model.ConnectionTypeFollower)
	if err != nil {
		return nil, nil, err
	}

	friends, err := h.SelectConnections(ctx, accountID, model.ConnectionTypeFriend)
	if err != nil {
		return nil, nil, err
	}

	return followers, friends, nil
}

// DeleteConnections removes all connections of the account
func (h *ConnectionsDBHandler) DeleteConnections(ctx context.Context, accountID string) error {
	_, err := h.db.Instance.ExecContext(ctx, `SELECT delete_connections($1)`, accountID)
	if err != nil {
		return helper.NewError("delete", err)
	}
	return nil
}
