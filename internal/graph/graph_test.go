package graph

import (
	"errors"
	"testing"

	"github.com/kestrelworks/hive/pkg/models"
)

func makeSubtasks(specs []struct {
	id   string
	deps []string
}) []*models.Subtask {
	subtasks := make([]*models.Subtask, len(specs))
	for i, s := range specs {
		subtasks[i] = &models.Subtask{
			ID:        s.id,
			Index:     i,
			DependsOn: s.deps,
			Status:    models.SubtaskStatusPending,
		}
	}
	return subtasks
}

func TestBuild_LinearChain(t *testing.T) {
	g := New()
	err := g.Build(makeSubtasks([]struct {
		id   string
		deps []string
	}{
		{"a", nil},
		{"b", []string{"a"}},
		{"c", []string{"b"}},
	}))
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if g.Size() != 3 {
		t.Errorf("Size() = %d, want 3", g.Size())
	}
}

func TestBuild_CycleDetected(t *testing.T) {
	g := New()
	err := g.Build(makeSubtasks([]struct {
		id   string
		deps []string
	}{
		{"a", []string{"c"}},
		{"b", []string{"a"}},
		{"c", []string{"b"}},
	}))
	if err == nil {
		t.Fatal("Build() expected cycle error, got nil")
	}
	if !errors.Is(err, ErrCycleDetected) {
		t.Errorf("Build() error = %v, want ErrCycleDetected", err)
	}
}

func TestBuild_SelfCycle(t *testing.T) {
	g := New()
	err := g.Build(makeSubtasks([]struct {
		id   string
		deps []string
	}{
		{"a", []string{"a"}},
	}))
	if !errors.Is(err, ErrCycleDetected) {
		t.Errorf("Build() error = %v, want ErrCycleDetected", err)
	}
}

func TestBuild_UnknownDependency(t *testing.T) {
	g := New()
	err := g.Build(makeSubtasks([]struct {
		id   string
		deps []string
	}{
		{"a", []string{"ghost"}},
	}))
	if err == nil {
		t.Fatal("Build() expected unknown dependency error, got nil")
	}
}

func TestBuild_DuplicateID(t *testing.T) {
	g := New()
	err := g.Build(makeSubtasks([]struct {
		id   string
		deps []string
	}{
		{"a", nil},
		{"a", nil},
	}))
	if err == nil {
		t.Fatal("Build() expected duplicate id error, got nil")
	}
}

func TestReady_DiamondGraph(t *testing.T) {
	// a -> b, a -> c, {b,c} -> d
	g := New()
	if err := g.Build(makeSubtasks([]struct {
		id   string
		deps []string
	}{
		{"a", nil},
		{"b", []string{"a"}},
		{"c", []string{"a"}},
		{"d", []string{"b", "c"}},
	})); err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	ready := readyIDs(g)
	if len(ready) != 1 || ready[0] != "a" {
		t.Fatalf("initial Ready() = %v, want [a]", ready)
	}

	g.MarkComplete("a")
	ready = readyIDs(g)
	if len(ready) != 2 || ready[0] != "b" || ready[1] != "c" {
		t.Fatalf("Ready() after a = %v, want [b c]", ready)
	}

	g.MarkComplete("b")
	ready = readyIDs(g)
	if len(ready) != 1 || ready[0] != "c" {
		t.Fatalf("Ready() after a,b = %v, want [c]", ready)
	}

	g.MarkComplete("c")
	ready = readyIDs(g)
	if len(ready) != 1 || ready[0] != "d" {
		t.Fatalf("Ready() after a,b,c = %v, want [d]", ready)
	}

	g.MarkComplete("d")
	if got := readyIDs(g); len(got) != 0 {
		t.Errorf("Ready() after all = %v, want empty", got)
	}
	if !g.Done() {
		t.Error("Done() = false after completing all subtasks")
	}
}

func TestReady_CreationOrder(t *testing.T) {
	g := New()
	subtasks := makeSubtasks([]struct {
		id   string
		deps []string
	}{
		{"z", nil},
		{"m", nil},
		{"a", nil},
	})
	if err := g.Build(subtasks); err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	ready := readyIDs(g)
	want := []string{"z", "m", "a"}
	if len(ready) != len(want) {
		t.Fatalf("Ready() = %v, want %v", ready, want)
	}
	for i := range want {
		if ready[i] != want[i] {
			t.Errorf("Ready()[%d] = %q, want %q", i, ready[i], want[i])
		}
	}
}

func TestMarkResolved_ExcludesFromReady(t *testing.T) {
	g := New()
	if err := g.Build(makeSubtasks([]struct {
		id   string
		deps []string
	}{
		{"a", nil},
		{"b", []string{"a"}},
	})); err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	g.MarkResolved("a")
	if got := readyIDs(g); len(got) != 0 {
		t.Errorf("Ready() after resolving a = %v, want empty", got)
	}
	// b's dependency never completed, so b stays unreachable but the
	// graph is not done until it is resolved too.
	if g.Done() {
		t.Error("Done() = true with unresolved dependent")
	}
	g.MarkResolved("b")
	if !g.Done() {
		t.Error("Done() = false after resolving all subtasks")
	}
}

func TestTransitiveDependents(t *testing.T) {
	g := New()
	if err := g.Build(makeSubtasks([]struct {
		id   string
		deps []string
	}{
		{"a", nil},
		{"b", []string{"a"}},
		{"c", []string{"b"}},
		{"d", []string{"c"}},
		{"e", nil},
	})); err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	deps := g.TransitiveDependents("a")
	if len(deps) != 3 {
		t.Fatalf("TransitiveDependents(a) = %v, want 3 entries", deps)
	}
	found := make(map[string]bool)
	for _, id := range deps {
		found[id] = true
	}
	for _, id := range []string{"b", "c", "d"} {
		if !found[id] {
			t.Errorf("TransitiveDependents(a) missing %q", id)
		}
	}
	if found["e"] {
		t.Error("TransitiveDependents(a) includes unrelated subtask e")
	}
}

func TestTopologicalSort_DependenciesFirst(t *testing.T) {
	g := New()
	if err := g.Build(makeSubtasks([]struct {
		id   string
		deps []string
	}{
		{"a", nil},
		{"b", []string{"a"}},
		{"c", []string{"a", "b"}},
	})); err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	order, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("TopologicalSort() error = %v", err)
	}
	pos := make(map[string]int)
	for i, id := range order {
		pos[id] = i
	}
	if pos["a"] > pos["b"] || pos["b"] > pos["c"] {
		t.Errorf("TopologicalSort() = %v, dependencies out of order", order)
	}
}

func readyIDs(g *DependencyGraph) []string {
	var ids []string
	for _, st := range g.Ready() {
		ids = append(ids, st.ID)
	}
	return ids
}
