// Package graph provides a dependency graph for subtask scheduling.
package graph

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/gammazero/toposort"

	"github.com/kestrelworks/hive/pkg/models"
)

// ErrCycleDetected indicates a circular dependency was found in the subtask graph.
var ErrCycleDetected = errors.New("circular dependency detected")

// DependencyGraph represents a directed acyclic graph of subtask dependencies.
// Subtasks are nodes, and edges represent "blocked by" relationships.
// The graph tracks completion; subtask status fields belong to the scheduler.
type DependencyGraph struct {
	mu sync.RWMutex
	// nodes maps subtask ID to the subtask itself.
	nodes map[string]*models.Subtask
	// edges maps subtask ID to IDs of subtasks it depends on.
	edges map[string][]string
	// completed tracks which subtasks have been marked complete.
	completed map[string]bool
	// resolved tracks subtasks removed from consideration without
	// completing, such as blocked dependents of a failed node.
	resolved map[string]bool
	// debugLog is an optional logging function.
	debugLog func(format string, args ...interface{})
}

// New creates a new empty dependency graph.
func New() *DependencyGraph {
	return &DependencyGraph{
		nodes:     make(map[string]*models.Subtask),
		edges:     make(map[string][]string),
		completed: make(map[string]bool),
		resolved:  make(map[string]bool),
		debugLog:  func(format string, args ...interface{}) {}, // no-op by default
	}
}

// SetDebugLog sets the debug logging function.
func (g *DependencyGraph) SetDebugLog(fn func(format string, args ...interface{})) {
	if fn != nil {
		g.debugLog = fn
	}
}

// Build constructs the dependency graph from a slice of subtasks.
// Returns an error if a cycle is detected or dependencies reference unknown subtasks.
func (g *DependencyGraph) Build(subtasks []*models.Subtask) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.debugLog("[graph.Build] building graph from %d subtasks", len(subtasks))

	// First pass: register all subtasks as nodes.
	for _, st := range subtasks {
		if _, exists := g.nodes[st.ID]; exists {
			return fmt.Errorf("duplicate subtask id %s", st.ID)
		}
		g.nodes[st.ID] = st
		g.edges[st.ID] = nil
	}

	// Second pass: build edges from DependsOn fields.
	for _, st := range subtasks {
		for _, depID := range st.DependsOn {
			if _, exists := g.nodes[depID]; !exists {
				return fmt.Errorf("subtask %s depends on unknown subtask %s", st.ID, depID)
			}
			g.edges[st.ID] = append(g.edges[st.ID], depID)
		}
	}

	if _, err := g.sortLocked(); err != nil {
		return err
	}

	g.debugLog("[graph.Build] graph built successfully with %d nodes", len(g.nodes))
	return nil
}

// TopologicalSort returns subtask IDs in an order where all dependencies
// come before the subtasks that depend on them.
// Returns an error if the graph contains a cycle.
func (g *DependencyGraph) TopologicalSort() ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.sortLocked()
}

// sortLocked runs toposort over the edge set. Assumes the lock is held.
func (g *DependencyGraph) sortLocked() ([]string, error) {
	var edges []toposort.Edge
	for id := range g.nodes {
		deps := g.edges[id]
		if len(deps) == 0 {
			// Edge from nil keeps isolated nodes in the sort result.
			edges = append(edges, toposort.Edge{nil, id})
			continue
		}
		for _, depID := range deps {
			edges = append(edges, toposort.Edge{depID, id})
		}
	}

	sorted, err := toposort.Toposort(edges)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCycleDetected, err)
	}

	order := make([]string, 0, len(sorted))
	for _, id := range sorted {
		if id != nil {
			order = append(order, id.(string))
		}
	}
	return order, nil
}

// Ready returns subtasks whose dependencies are all complete and that are not
// themselves complete or resolved, in ascending creation order.
func (g *DependencyGraph) Ready() []*models.Subtask {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var ready []*models.Subtask
	for id, st := range g.nodes {
		if g.completed[id] || g.resolved[id] {
			continue
		}

		allDepsComplete := true
		for _, depID := range g.edges[id] {
			if !g.completed[depID] {
				allDepsComplete = false
				break
			}
		}
		if allDepsComplete {
			ready = append(ready, st)
		}
	}

	sort.Slice(ready, func(i, j int) bool {
		return ready[i].Index < ready[j].Index
	})

	g.debugLog("[graph.Ready] %d of %d subtasks ready", len(ready), len(g.nodes))
	return ready
}

// MarkComplete marks a subtask as completed in the graph.
// This affects subsequent calls to Ready.
func (g *DependencyGraph) MarkComplete(subtaskID string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.debugLog("[graph.MarkComplete] marking subtask %s as complete", subtaskID)
	g.completed[subtaskID] = true
}

// MarkResolved removes a subtask from scheduling consideration without
// satisfying its dependents. Used for failed and blocked subtasks.
func (g *DependencyGraph) MarkResolved(subtaskID string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.debugLog("[graph.MarkResolved] marking subtask %s as resolved", subtaskID)
	g.resolved[subtaskID] = true
}

// Get returns the subtask for a given ID, or nil if not found.
func (g *DependencyGraph) Get(subtaskID string) *models.Subtask {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.nodes[subtaskID]
}

// Size returns the number of subtasks in the graph.
func (g *DependencyGraph) Size() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// Dependencies returns the IDs of subtasks that the given subtask depends on.
func (g *DependencyGraph) Dependencies(subtaskID string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.edges[subtaskID]
}

// Dependents returns the IDs of subtasks that directly depend on the given subtask.
func (g *DependencyGraph) Dependents(subtaskID string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.dependentsLocked(subtaskID)
}

func (g *DependencyGraph) dependentsLocked(subtaskID string) []string {
	var dependents []string
	for id, deps := range g.edges {
		for _, depID := range deps {
			if depID == subtaskID {
				dependents = append(dependents, id)
				break
			}
		}
	}
	return dependents
}

// TransitiveDependents returns the IDs of all subtasks that depend on the
// given subtask directly or through intermediate dependencies.
func (g *DependencyGraph) TransitiveDependents(subtaskID string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	seen := make(map[string]bool)
	queue := g.dependentsLocked(subtaskID)
	var result []string
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if seen[id] {
			continue
		}
		seen[id] = true
		result = append(result, id)
		queue = append(queue, g.dependentsLocked(id)...)
	}
	return result
}

// Done reports whether every subtask has been completed or resolved.
func (g *DependencyGraph) Done() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	for id := range g.nodes {
		if !g.completed[id] && !g.resolved[id] {
			return false
		}
	}
	return true
}

// CompletedIDs returns the IDs of all subtasks marked as completed.
func (g *DependencyGraph) CompletedIDs() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var ids []string
	for id, done := range g.completed {
		if done {
			ids = append(ids, id)
		}
	}
	return ids
}
