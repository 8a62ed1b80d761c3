// SPDX-License-Identifier: MPL-2.0

package luabundle

import (
	"fmt"
	"strings"
)

type (
	// cycleError indicates that the require graph contains a cycle, so no
	// dependency-first order exists.
	cycleError struct {
		modules []string
	}

	// moduleGraph records "must be registered before" edges between module
	// names. An edge from A to B means B requires A.
	moduleGraph struct {
		// adjacency maps each module to the modules that require it.
		adjacency map[string][]string
		// nodes tracks modules in discovery order for deterministic output.
		nodes   []string
		nodeSet map[string]bool
	}
)

func (e *cycleError) Error() string {
	return fmt.Sprintf("require cycle among: %s", strings.Join(e.modules, ", "))
}

func newModuleGraph() *moduleGraph {
	return &moduleGraph{
		adjacency: make(map[string][]string),
		nodeSet:   make(map[string]bool),
	}
}

func (g *moduleGraph) addNode(name string) {
	if g.nodeSet[name] {
		return
	}
	g.nodeSet[name] = true
	g.nodes = append(g.nodes, name)
}

// addEdge records that dependent requires dependency. Repeated and
// self-edges are ignored.
func (g *moduleGraph) addEdge(dependency, dependent string) {
	if dependency == dependent {
		return
	}
	g.addNode(dependency)
	g.addNode(dependent)
	for _, existing := range g.adjacency[dependency] {
		if existing == dependent {
			return
		}
	}
	g.adjacency[dependency] = append(g.adjacency[dependency], dependent)
}

// order returns dependencies before their dependents using Kahn's algorithm.
// Modules at the same level keep discovery order.
func (g *moduleGraph) order() ([]string, error) {
	if len(g.nodes) == 0 {
		return nil, nil
	}

	inDegree := make(map[string]int, len(g.nodes))
	for _, node := range g.nodes {
		inDegree[node] = 0
	}
	for _, node := range g.nodes {
		for _, dependent := range g.adjacency[node] {
			inDegree[dependent]++
		}
	}

	queue := make([]string, 0, len(g.nodes))
	for _, node := range g.nodes {
		if inDegree[node] == 0 {
			queue = append(queue, node)
		}
	}

	result := make([]string, 0, len(g.nodes))
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		result = append(result, node)

		for _, dependent := range g.adjacency[node] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				queue = append(queue, dependent)
			}
		}
	}

	if len(result) != len(g.nodes) {
		var stuck []string
		for _, node := range g.nodes {
			if inDegree[node] > 0 {
				stuck = append(stuck, node)
			}
		}
		return nil, &cycleError{modules: stuck}
	}

	return result, nil
}
