// SPDX-License-Identifier: MPL-2.0

package luabundle

import (
	"errors"
	"slices"
	"testing"
)

func TestModuleGraph_Order(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		nodes []string
		edges [][2]string
		want  []string
	}{
		{
			name:  "empty",
			nodes: nil,
			want:  nil,
		},
		{
			name:  "independent modules keep discovery order",
			nodes: []string{"c", "a", "b"},
			want:  []string{"c", "a", "b"},
		},
		{
			name:  "chain",
			nodes: []string{"root", "a", "b"},
			edges: [][2]string{{"a", "root"}, {"b", "a"}},
			want:  []string{"b", "a", "root"},
		},
		{
			name:  "diamond",
			nodes: []string{"root", "left", "right", "shared"},
			edges: [][2]string{
				{"left", "root"}, {"right", "root"},
				{"shared", "left"}, {"shared", "right"},
			},
			want: []string{"shared", "left", "right", "root"},
		},
		{
			name:  "duplicate and self edges are ignored",
			nodes: []string{"root", "a"},
			edges: [][2]string{{"a", "root"}, {"a", "root"}, {"a", "a"}},
			want:  []string{"a", "root"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			g := newModuleGraph()
			for _, n := range tt.nodes {
				g.addNode(n)
			}
			for _, e := range tt.edges {
				g.addEdge(e[0], e[1])
			}
			got, err := g.order()
			if err != nil {
				t.Fatalf("order() error: %v", err)
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("order() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestModuleGraph_Cycle(t *testing.T) {
	t.Parallel()

	g := newModuleGraph()
	g.addNode("root")
	g.addEdge("a", "root")
	g.addEdge("b", "a")
	g.addEdge("a", "b")

	_, err := g.order()
	var cycle *cycleError
	if !errors.As(err, &cycle) {
		t.Fatalf("expected cycleError, got %v", err)
	}
	if !slices.Equal(cycle.modules, []string{"root", "a", "b"}) {
		t.Errorf("stuck modules = %v", cycle.modules)
	}
}
