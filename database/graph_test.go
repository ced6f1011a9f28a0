package database

import (
	"context"
	"slices"
	"testing"

	"github.com/google/uuid"
	"github.com/siherrmann/diffuser/core/graph"
	"github.com/siherrmann/diffuser/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraphNewGraphDBHandler(t *testing.T) {
	database := initDB(t)

	t.Run("Valid call NewGraphDBHandler", func(t *testing.T) {
		graphDbHandler, err := NewGraphDBHandler(database, true)
		assert.NoError(t, err)
		require.NotNil(t, graphDbHandler)
	})

	t.Run("Invalid call NewGraphDBHandler with nil database", func(t *testing.T) {
		_, err := NewGraphDBHandler(nil, false)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "database connection is nil")
	})
}

func TestGraphInsertAndSelect(t *testing.T) {
	database := initDB(t)
	ctx := context.Background()

	graphDbHandler, err := NewGraphDBHandler(database, true)
	require.NoError(t, err)

	name := uuid.NewString()
	g := graph.NewDirected(name)
	g.AddEdge("a", "b")
	g.AddEdge("b", "c")
	g.AddNode("lonely")

	t.Run("Insert graph", func(t *testing.T) {
		err := graphDbHandler.InsertGraph(ctx, g)
		assert.NoError(t, err)
	})

	t.Run("Insert graph twice keeps edges unique", func(t *testing.T) {
		err := graphDbHandler.InsertGraph(ctx, g)
		assert.NoError(t, err)
	})

	t.Run("Insert graph without name", func(t *testing.T) {
		err := graphDbHandler.InsertGraph(ctx, graph.NewDirected(""))
		assert.Error(t, err)
	})

	t.Run("Select graph", func(t *testing.T) {
		selected, err := graphDbHandler.SelectGraph(ctx, name)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "c", "lonely"}, selected.Nodes())
		assert.Equal(t, 2, selected.EdgeCount())
		assert.Equal(t, []model.Edge{{Source: "a", Target: "b"}, {Source: "b", Target: "c"}}, slices.Collect(selected.Edges()))
	})

	t.Run("Delete graph", func(t *testing.T) {
		err := graphDbHandler.DeleteGraph(ctx, name)
		assert.NoError(t, err)

		selected, err := graphDbHandler.SelectGraph(ctx, name)
		require.NoError(t, err)
		assert.Equal(t, 0, selected.NodeCount())
	})
}
