package pipeline

import (
	"container/heap"
	"sort"

	"github.com/jsphweid/scoredex/model"
)

// graph is a validated set of extractors in execution order.
type graph struct {
	order []Extractor
}

// newGraph rejects empty, duplicate and unknown feature keys, self-loops and
// cycles. The execution order is topological and otherwise follows
// declaration order.
func newGraph(extractors []Extractor) (*graph, error) {
	if len(extractors) == 0 {
		return nil, invalidf("no extractors")
	}

	index := make(map[model.FeatureKey]int, len(extractors))
	for i, ex := range extractors {
		key := ex.Key()
		if key == "" {
			return nil, invalidf("extractor %d has no feature key", i)
		}
		if _, dup := index[key]; dup {
			return nil, invalidf("duplicate extractor for %q", key)
		}
		index[key] = i
	}

	outgoing := make([][]int, len(extractors))
	indeg := make([]int, len(extractors))
	for i, ex := range extractors {
		seen := make(map[int]bool)
		for _, dep := range ex.DependsOn() {
			if dep == ex.Key() {
				return nil, invalidf("self-loop: %q depends on itself", dep)
			}
			j, ok := index[dep]
			if !ok {
				return nil, invalidf("%q depends on unknown feature %q", ex.Key(), dep)
			}
			if seen[j] {
				continue
			}
			seen[j] = true
			outgoing[j] = append(outgoing[j], i)
			indeg[i]++
		}
	}
	for i := range outgoing {
		sort.Ints(outgoing[i])
	}

	order := topoOrder(outgoing, indeg)
	if len(order) != len(extractors) {
		return nil, cycleError(findCycle(extractors, outgoing))
	}

	g := &graph{order: make([]Extractor, len(order))}
	for i, idx := range order {
		g.order[i] = extractors[idx]
	}
	return g, nil
}

type intMinHeap []int

func (h intMinHeap) Len() int           { return len(h) }
func (h intMinHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h intMinHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *intMinHeap) Push(x any)        { *h = append(*h, x.(int)) }
func (h *intMinHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// Kahn's algorithm with the ready set ordered by declaration index.
func topoOrder(outgoing [][]int, indegree []int) []int {
	indeg := append([]int(nil), indegree...)
	ready := &intMinHeap{}
	for i, d := range indeg {
		if d == 0 {
			heap.Push(ready, i)
		}
	}

	out := make([]int, 0, len(indeg))
	for ready.Len() > 0 {
		n := heap.Pop(ready).(int)
		out = append(out, n)
		for _, m := range outgoing[n] {
			indeg[m]--
			if indeg[m] == 0 {
				heap.Push(ready, m)
			}
		}
	}
	return out
}

// findCycle returns one cycle as feature keys, first key repeated at the end.
func findCycle(extractors []Extractor, outgoing [][]int) []string {
	const (
		white = iota
		gray
		black
	)
	color := make([]int, len(extractors))
	parent := make([]int, len(extractors))
	for i := range parent {
		parent[i] = -1
	}

	var cycle []int
	var dfs func(u int) bool
	dfs = func(u int) bool {
		color[u] = gray
		for _, v := range outgoing[u] {
			switch color[v] {
			case white:
				parent[v] = u
				if dfs(v) {
					return true
				}
			case gray:
				cycle = append(cycle, v)
				for cur := u; cur != -1 && cur != v; cur = parent[cur] {
					cycle = append(cycle, cur)
				}
				cycle = append(cycle, v)
				return true
			}
		}
		color[u] = black
		return false
	}
	for i := range extractors {
		if color[i] == white && dfs(i) {
			break
		}
	}

	out := make([]string, 0, len(cycle))
	for i := len(cycle) - 1; i >= 0; i-- {
		out = append(out, string(extractors[cycle[i]].Key()))
	}
	return out
}
