package graph

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/siherrmann/diffuser/helper"
)

// ReadAdjacencyList reads a graph with one line per node: the node followed by its
// successors, separated by delimiter. Empty lines and lines starting with # are skipped.
// A delimiter of 0 splits on whitespace.
func ReadAdjacencyList(r io.Reader, name string, delimiter rune) (*Directed, error) {
	g := NewDirected(name)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		var fields []string
		if delimiter == 0 {
			fields = strings.Fields(line)
		} else {
			fields = strings.Split(line, string(delimiter))
		}

		source := strings.TrimSpace(fields[0])
		if source == "" {
			return nil, helper.NewError("read adjacency list", fmt.Errorf("empty node in line %q", line))
		}
		g.AddNode(source)
		for _, field := range fields[1:] {
			if target := strings.TrimSpace(field); target != "" {
				g.AddEdge(source, target)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, helper.NewError("read adjacency list", err)
	}

	return g, nil
}

// WriteAdjacencyList writes g in the format read by ReadAdjacencyList
func WriteAdjacencyList(w io.Writer, g Graph, delimiter rune) error {
	if delimiter == 0 {
		delimiter = ' '
	}
	bw := bufio.NewWriter(w)
	for _, node := range g.Nodes() {
		fields := append([]string{node}, g.Successors(node)...)
		if _, err := bw.WriteString(strings.Join(fields, string(delimiter)) + "\n"); err != nil {
			return helper.NewError("write adjacency list", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return helper.NewError("write adjacency list", err)
	}
	return nil
}
