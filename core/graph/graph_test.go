package graph

import (
	"bytes"
	"slices"
	"strings"
	"testing"

	"github.com/siherrmann/diffuser/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirected(t *testing.T) {
	g := testGraph()
	g.AddEdge("A", "B")
	g.AddNode("F")

	assert.Equal(t, []string{"A", "B", "C", "D", "E", "F"}, g.Nodes())
	assert.Equal(t, 6, g.NodeCount())
	assert.Equal(t, 4, g.EdgeCount(), "Expected repeated edge to be stored once")
	assert.True(t, g.HasNode("F"))
	assert.False(t, g.Has("X"))
	assert.Equal(t, []string{"B", "D"}, g.Successors("A"))
	assert.Empty(t, g.Successors("X"))

	edges := slices.Collect(g.Edges())
	assert.Equal(t, []model.Edge{
		{Source: "A", Target: "B"},
		{Source: "A", Target: "D"},
		{Source: "B", Target: "C"},
		{Source: "E", Target: "A"},
	}, edges)
}

func TestAdjacencyList(t *testing.T) {
	t.Run("Read comma separated list", func(t *testing.T) {
		input := "# generated\n1,2,3\n2,3\n\n3\n4, 1 ,\n"

		g, err := ReadAdjacencyList(strings.NewReader(input), "topic", ',')
		require.NoError(t, err, "Expected reading to not return an error")
		assert.Equal(t, "topic", g.Name())
		assert.Equal(t, []string{"1", "2", "3", "4"}, g.Nodes())
		assert.Equal(t, 4, g.EdgeCount())
		assert.Equal(t, []string{"1"}, g.Successors("4"))
	})

	t.Run("Read whitespace separated list", func(t *testing.T) {
		g, err := ReadAdjacencyList(strings.NewReader("a b\tc\n"), "topic", 0)
		require.NoError(t, err)
		assert.Equal(t, []string{"b", "c"}, g.Successors("a"))
	})

	t.Run("Read empty node", func(t *testing.T) {
		_, err := ReadAdjacencyList(strings.NewReader(",2\n"), "topic", ',')
		assert.Error(t, err, "Expected empty node to fail")
	})

	t.Run("Write and read again", func(t *testing.T) {
		var buf bytes.Buffer
		err := WriteAdjacencyList(&buf, testGraph(), ',')
		require.NoError(t, err)
		assert.Equal(t, "A,B,D\nB,C\nC\nD\nE,A\n", buf.String())

		g, err := ReadAdjacencyList(&buf, "copy", ',')
		require.NoError(t, err)
		assert.Equal(t, slices.Collect(testGraph().Edges()), slices.Collect(g.Edges()))
	})
}
