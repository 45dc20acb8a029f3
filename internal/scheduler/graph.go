package scheduler

import "fmt"

// graph is the directed dependency graph the planner builds over task names.
// Construction is single-threaded during setup, so no locking is needed.
type graph struct {
	// nodes stores all nodes keyed by their unique ID.
	nodes map[string]*node
	// order preserves insertion order so planning stays deterministic.
	order []string
}

// node represents a single vertex in the graph.
type node struct {
	// id is the unique identifier for the node.
	id string
	// deps holds the set of nodes this node depends on (predecessors).
	deps map[string]*node
	// dependents holds the set of nodes that depend on this node (successors).
	dependents map[string]*node
}

func newGraph() *graph {
	return &graph{nodes: make(map[string]*node)}
}

// addNode adds a new node with the given ID. Duplicate IDs are a
// configuration fault: two tasks sharing a name cannot be told apart.
func (g *graph) addNode(id string) error {
	if _, ok := g.nodes[id]; ok {
		return fmt.Errorf("duplicate task name: %q", id)
	}
	g.nodes[id] = &node{
		id:         id,
		deps:       make(map[string]*node),
		dependents: make(map[string]*node),
	}
	g.order = append(g.order, id)
	return nil
}

// addEdge creates a directed edge from the `fromID` node to the `toID` node,
// meaning `toID` depends on `fromID`. Adding the same edge twice is a no-op.
func (g *graph) addEdge(fromID, toID string) error {
	if fromID == toID {
		return fmt.Errorf("self-referential edge not allowed: %s -> %s", fromID, fromID)
	}

	fromNode, ok := g.nodes[fromID]
	if !ok {
		return fmt.Errorf("source node not found: %s", fromID)
	}
	toNode, ok := g.nodes[toID]
	if !ok {
		return fmt.Errorf("destination node not found: %s", toID)
	}

	toNode.deps[fromID] = fromNode
	fromNode.dependents[toID] = toNode
	return nil
}

// detectCycles checks the graph for any cycles. It returns a non-nil error
// if a cycle is found, naming the first node involved in the detected cycle.
func (g *graph) detectCycles() error {
	// Classic depth-first search with three sets of nodes:
	// permanent: fully visited and known not to be part of a cycle.
	// temporary: currently on the recursion stack.
	// unvisited: everything else.
	permanent := make(map[string]bool)
	temporary := make(map[string]bool)

	var visit func(n *node) error
	visit = func(n *node) error {
		if permanent[n.id] {
			return nil
		}
		if temporary[n.id] {
			// A node already on the recursion stack means a cycle.
			return fmt.Errorf("cycle detected involving task %q", n.id)
		}

		temporary[n.id] = true
		for _, dependent := range n.dependents {
			if err := visit(dependent); err != nil {
				return err
			}
		}
		delete(temporary, n.id)
		permanent[n.id] = true
		return nil
	}

	for _, id := range g.order {
		if !permanent[id] {
			if err := visit(g.nodes[id]); err != nil {
				return err
			}
		}
	}
	return nil
}

// levels groups the nodes into dependency levels: every node's predecessors
// live in strictly earlier levels, and nodes within one level have no
// ordering constraint between them. Must only be called on an acyclic graph.
func (g *graph) levels() [][]string {
	indegree := make(map[string]int, len(g.nodes))
	for id, n := range g.nodes {
		indegree[id] = len(n.deps)
	}

	var out [][]string
	emitted := make(map[string]bool, len(g.nodes))
	for len(emitted) < len(g.nodes) {
		var level []string
		for _, id := range g.order {
			if !emitted[id] && indegree[id] == 0 {
				level = append(level, id)
			}
		}
		if len(level) == 0 {
			// Unreachable after detectCycles has passed.
			panic("scheduler: no ready tasks in acyclic graph")
		}
		for _, id := range level {
			emitted[id] = true
			for _, dependent := range g.nodes[id].dependents {
				indegree[dependent.id]--
			}
		}
		out = append(out, level)
	}
	return out
}
