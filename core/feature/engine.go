package feature

import (
	"fmt"
	"iter"

	"github.com/siherrmann/diffuser/model"
)

// MissingAggregateError is yielded for an edge whose source or destination has no aggregate
type MissingAggregateError struct {
	AccountID string
	Edge      model.Edge
}

func (e *MissingAggregateError) Error() string {
	return fmt.Sprintf("no aggregate for account %s of edge %s -> %s", e.AccountID, e.Edge.Source, e.Edge.Target)
}

// Aggregates gives read access to frozen aggregates
type Aggregates interface {
	Get(accountID string) (*model.AccountAggregate, bool)
}

// Engine computes feature rows of graph edges over a frozen aggregate set
type Engine struct {
	keywords model.StringSet
	accounts Aggregates
}

// NewEngine creates an engine matching topics against keywords
func NewEngine(keywords []string, accounts Aggregates) *Engine {
	return &Engine{
		keywords: model.NewStringSet(keywords...),
		accounts: accounts,
	}
}

// Columns returns the column names of the rows
func (e *Engine) Columns() []string {
	return Columns()
}

// Edge computes the row of one edge
func (e *Engine) Edge(edge model.Edge) (*model.FeatureRow, error) {
	src, ok := e.accounts.Get(edge.Source)
	if !ok {
		return nil, &MissingAggregateError{AccountID: edge.Source, Edge: edge}
	}
	dest, ok := e.accounts.Get(edge.Target)
	if !ok {
		return nil, &MissingAggregateError{AccountID: edge.Target, Edge: edge}
	}
	return Features(src, dest, e.keywords), nil
}

// Rows lazily computes one row per edge. Edges with a missing aggregate yield a
// *MissingAggregateError and the sequence continues with the next edge.
func (e *Engine) Rows(edges iter.Seq[model.Edge]) iter.Seq2[*model.FeatureRow, error] {
	return func(yield func(*model.FeatureRow, error) bool) {
		for edge := range edges {
			if !yield(e.Edge(edge)) {
				return
			}
		}
	}
}
