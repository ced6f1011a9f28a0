package database

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/pgvector/pgvector-go"
	"github.com/siherrmann/diffuser/helper"
	"github.com/siherrmann/diffuser/model"
	loadSql "github.com/siherrmann/diffuser/sql"
)

// AccountsDBHandlerFunctions defines the interface for Accounts database operations.
type AccountsDBHandlerFunctions interface {
	UpsertAccount(ctx context.Context, aggregate *model.AccountAggregate) (bool, error)
	SelectAccount(ctx context.Context, accountID string) (*model.AccountAggregate, error)
	SelectAccounts(ctx context.Context) (*model.AccountSet, error)
	SelectAccountsByAttention(ctx context.Context, attention [model.AttentionBins]float64, limit int) ([]*model.AttentionMatch, error)
	DeleteAllAccounts(ctx context.Context) error
}

// AccountsDBHandler persists account aggregates together with their attention vector
type AccountsDBHandler struct {
	db *helper.Database
}

// NewAccountsDBHandler creates a new accounts database handler.
// It initializes the database connection and loads account-related SQL functions.
// If force is true, it will reload the SQL functions even if they already exist.
func NewAccountsDBHandler(db *helper.Database, force bool) (*AccountsDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	accountsDbHandler := &AccountsDBHandler{
		db: db,
	}

	err := loadSql.LoadAccountsSql(accountsDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load accounts sql", err)
	}

	err = accountsDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized AccountsDBHandler")

	return accountsDbHandler, nil
}

// CreateTable creates the 'accounts' table in the database.
// If the table already exists, it does not create it again.
func (h *AccountsDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_accounts();`)
	if err != nil {
		log.Panicf("error initializing accounts table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table accounts")

	return nil
}

// UpsertAccount stores the aggregate. It reports whether a stored aggregate was replaced.
func (h *AccountsDBHandler) UpsertAccount(ctx context.Context, aggregate *model.AccountAggregate) (bool, error) {
	doc, err := json.Marshal(aggregate)
	if err != nil {
		return false, helper.NewError("marshal aggregate", err)
	}

	var replaced bool
	err = h.db.Instance.QueryRowContext(
		ctx,
		`SELECT * FROM upsert_account($1, $2, $3, $4)`,
		aggregate.AccountID,
		aggregate.TotalPosts(),
		attentionVector(aggregate.AttentionVector),
		doc,
	).Scan(&replaced)
	if err != nil {
		return false, helper.NewError("scan", err)
	}

	return replaced, nil
}

// SelectAccount returns the stored aggregate of the account
func (h *AccountsDBHandler) SelectAccount(ctx context.Context, accountID string) (*model.AccountAggregate, error) {
	var doc []byte
	err := h.db.Instance.QueryRowContext(ctx, `SELECT * FROM select_account($1)`, accountID).Scan(&doc)
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return unmarshalAggregate(doc)
}

// SelectAccounts returns all stored aggregates
func (h *AccountsDBHandler) SelectAccounts(ctx context.Context) (*model.AccountSet, error) {
	rows, err := h.db.Instance.QueryContext(ctx, `SELECT * FROM select_all_accounts()`)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	accounts := model.NewAccountSet()
	for rows.Next() {
		var doc []byte
		err := rows.Scan(&doc)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		aggregate, err := unmarshalAggregate(doc)
		if err != nil {
			return nil, err
		}
		accounts.Put(aggregate)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return accounts, nil
}

// SelectAccountsByAttention returns the accounts with posts whose attention vector is
// closest to attention by euclidean distance
func (h *AccountsDBHandler) SelectAccountsByAttention(ctx context.Context, attention [model.AttentionBins]float64, limit int) ([]*model.AttentionMatch, error) {
	rows, err := h.db.Instance.QueryContext(
		ctx,
		`SELECT * FROM select_accounts_by_attention($1, $2)`,
		attentionVector(attention),
		limit,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var matches []*model.AttentionMatch
	for rows.Next() {
		match := &model.AttentionMatch{}
		err := rows.Scan(&match.AccountID, &match.Distance)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}
		matches = append(matches, match)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return matches, nil
}

// DeleteAllAccounts removes all stored aggregates
func (h *AccountsDBHandler) DeleteAllAccounts(ctx context.Context) error {
	_, err := h.db.Instance.ExecContext(ctx, `SELECT delete_all_accounts()`)
	if err != nil {
		return helper.NewError("delete", err)
	}
	return nil
}

func attentionVector(attention [model.AttentionBins]float64) pgvector.Vector {
	values := make([]float32, len(attention))
	for i, v := range attention {
		values[i] = float32(v)
	}
	return pgvector.NewVector(values)
}

func unmarshalAggregate(doc []byte) (*model.AccountAggregate, error) {
	aggregate := &model.AccountAggregate{}
	err := json.Unmarshal(doc, aggregate)
	if err != nil {
		return nil, helper.NewError("unmarshal aggregate", err)
	}
	return aggregate, nil
}
