package pipeline

import (
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Graph is the mutable collection of work categories and their successor
// links. Mutations are serialized by an internal mutex to preserve the
// cycle-freedom invariant; readers take an immutable Snapshot and traverse
// it without locking.
type Graph struct {
	mu         sync.RWMutex
	categories []Category // ordered by Order, authoritative representation
	index      map[string]int
}

// NewGraph returns an empty Graph.
func NewGraph() *Graph {
	return &Graph{index: make(map[string]int)}
}

// NewGraphFrom builds a Graph from an existing category list, e.g. one
// loaded from a store. The slice is copied; input order is kept and Order
// fields are normalized to match it.
func NewGraphFrom(categories []Category) *Graph {
	g := NewGraph()
	g.categories = make([]Category, len(categories))
	copy(g.categories, categories)
	for i := range g.categories {
		g.categories[i].Order = i
		g.index[g.categories[i].ID] = i
	}
	return g
}

// AddCategory appends a new category at the end of the current ordering.
func (g *Graph) AddCategory(name string) (Category, error) {
	if strings.TrimSpace(name) == "" {
		return Category{}, &ValidationError{Reason: "category name must not be empty"}
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	c := Category{
		ID:    uuid.NewString(),
		Name:  name,
		Order: len(g.categories),
	}
	g.index[c.ID] = len(g.categories)
	g.categories = append(g.categories, c)
	return c, nil
}

// Rename changes a category's display name. Schedules keep the name they
// snapshotted at creation time; renames never propagate into jobs.
func (g *Graph) Rename(id, name string) error {
	if strings.TrimSpace(name) == "" {
		return &ValidationError{Reason: "category name must not be empty"}
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	i, ok := g.index[id]
	if !ok {
		return &NotFoundError{Kind: "category", ID: id}
	}
	g.categories[i].Name = name
	return nil
}

// SetNext sets or clears (nextID == "") the successor link of a category.
// The full forward walk from nextID is simulated before committing: if it
// can reach id, the edit is rejected with CycleError. This catches long
// cycles through unrelated chains, not just direct two-node loops.
func (g *Graph) SetNext(id, nextID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	i, ok := g.index[id]
	if !ok {
		return &NotFoundError{Kind: "category", ID: id}
	}
	if nextID == "" {
		g.categories[i].NextID = ""
		return nil
	}
	if _, ok := g.index[nextID]; !ok {
		return &NotFoundError{Kind: "category", ID: nextID}
	}
	if id == nextID {
		return &CycleError{CategoryID: id, NextID: nextID}
	}

	// Walk forward from the proposed target. Reaching id means the new
	// edge closes a cycle.
	seen := map[string]bool{}
	cur := nextID
	for cur != "" && !seen[cur] {
		if cur == id {
			return &CycleError{CategoryID: id, NextID: nextID}
		}
		seen[cur] = true
		j, ok := g.index[cur]
		if !ok {
			break
		}
		cur = g.categories[j].NextID
	}

	g.categories[i].NextID = nextID
	return nil
}

// Remove deletes a category and clears any successor link pointing at it,
// so no dangling references remain. When inUse is non-nil and reports true
// for the id, the deletion is rejected with InUseError — the usage policy
// belongs to the caller, the graph only honors the answer.
func (g *Graph) Remove(id string, inUse func(categoryID string) bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	i, ok := g.index[id]
	if !ok {
		return &NotFoundError{Kind: "category", ID: id}
	}
	if inUse != nil && inUse(id) {
		return &InUseError{CategoryID: id}
	}

	g.categories = append(g.categories[:i], g.categories[i+1:]...)
	for j := range g.categories {
		if g.categories[j].NextID == id {
			g.categories[j].NextID = ""
		}
		g.categories[j].Order = j
	}
	g.rebuildIndex()
	return nil
}

// Reorder replaces the ordering with newOrderedIDs, which must be exactly
// the current id set — no drops, no additions, no duplicates.
func (g *Graph) Reorder(newOrderedIDs []string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(newOrderedIDs) != len(g.categories) {
		return &ValidationError{Reason: "reorder id set does not match current categories"}
	}
	seen := make(map[string]bool, len(newOrderedIDs))
	for _, id := range newOrderedIDs {
		if _, ok := g.index[id]; !ok || seen[id] {
			return &ValidationError{Reason: "reorder id set does not match current categories"}
		}
		seen[id] = true
	}

	reordered := make([]Category, 0, len(g.categories))
	for i, id := range newOrderedIDs {
		c := g.categories[g.index[id]]
		c.Order = i
		reordered = append(reordered, c)
	}
	g.categories = reordered
	g.rebuildIndex()
	return nil
}

// Get returns a copy of the category with the given id.
func (g *Graph) Get(id string) (Category, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	i, ok := g.index[id]
	if !ok {
		return Category{}, &NotFoundError{Kind: "category", ID: id}
	}
	return g.categories[i], nil
}

// Snapshot returns an immutable view of the graph for lock-free traversal.
func (g *Graph) Snapshot() Snapshot {
	g.mu.RLock()
	defer g.mu.RUnlock()

	cats := make([]Category, len(g.categories))
	copy(cats, g.categories)
	idx := make(map[string]int, len(g.index))
	for k, v := range g.index {
		idx[k] = v
	}
	return Snapshot{categories: cats, index: idx}
}

// PathFrom walks successor links starting at id. See Snapshot.PathFrom.
func (g *Graph) PathFrom(id string) ([]Category, error) {
	return g.Snapshot().PathFrom(id)
}

// StartingCategories returns the pipeline entry points. See
// Snapshot.StartingCategories.
func (g *Graph) StartingCategories() []Category {
	return g.Snapshot().StartingCategories()
}

func (g *Graph) rebuildIndex() {
	g.index = make(map[string]int, len(g.categories))
	for i, c := range g.categories {
		g.index[c.ID] = i
	}
}

// Snapshot is a point-in-time, read-only copy of a Graph. It is the form
// in which category data is threaded into planners and engines — never as
// ambient shared state.
type Snapshot struct {
	categories []Category
	index      map[string]int
}

// Categories returns all categories in display order.
func (s Snapshot) Categories() []Category {
	out := make([]Category, len(s.categories))
	copy(out, s.categories)
	return out
}

// Get returns the category with the given id.
func (s Snapshot) Get(id string) (Category, bool) {
	i, ok := s.index[id]
	if !ok {
		return Category{}, false
	}
	return s.categories[i], true
}

// Len returns the number of categories in the snapshot.
func (s Snapshot) Len() int {
	return len(s.categories)
}

// PathFrom walks successor links starting at id and returns the ordered
// chain. The walk stops at an empty link, an unknown id, or on revisiting
// an id already seen — the partial path up to (excluding) the repeat is
// returned, so traversal terminates even over corrupt stored data.
func (s Snapshot) PathFrom(id string) ([]Category, error) {
	if _, ok := s.index[id]; !ok {
		return nil, &NotFoundError{Kind: "category", ID: id}
	}

	var path []Category
	seen := map[string]bool{}
	cur := id
	for cur != "" && !seen[cur] {
		i, ok := s.index[cur]
		if !ok {
			break // dangling link in stored data; stop at last known category
		}
		seen[cur] = true
		path = append(path, s.categories[i])
		cur = s.categories[i].NextID
	}
	return path, nil
}

// StartingCategories returns every category that is not the target of any
// other category's successor link, i.e. the chain entry points. If none
// qualify (empty or fully cyclic stored data) the full set is returned so
// callers always have something to start from.
func (s Snapshot) StartingCategories() []Category {
	targeted := map[string]bool{}
	for _, c := range s.categories {
		if c.NextID != "" {
			targeted[c.NextID] = true
		}
	}

	var starts []Category
	for _, c := range s.categories {
		if !targeted[c.ID] {
			starts = append(starts, c)
		}
	}
	if len(starts) == 0 {
		return s.Categories()
	}
	return starts
}

// Chains returns every independent chain in the snapshot, each resolved
// start-to-end, ordered by the starting category's position.
func (s Snapshot) Chains() [][]Category {
	starts := s.StartingCategories()
	sort.SliceStable(starts, func(i, j int) bool { return starts[i].Order < starts[j].Order })

	chains := make([][]Category, 0, len(starts))
	for _, st := range starts {
		path, err := s.PathFrom(st.ID)
		if err != nil {
			continue
		}
		chains = append(chains, path)
	}
	return chains
}
