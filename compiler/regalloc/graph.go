package regalloc

import (
	"nikand.dev/go/heap"
	"tlog.app/go/tlog/tlwire"

	"github.com/slowlang/jmmc/compiler/df"
	"github.com/slowlang/jmmc/compiler/set"
)

type (
	// Graph is an undirected interference graph over variable names.
	Graph struct {
		nodes []node
		index map[string]int
	}

	node struct {
		name string
		key  int // discovery key, lower is colored first
		adj  set.Bitmap
	}

	// Range is the live interval of a variable.
	Range struct {
		Name string
		df.Interval
	}

	queue struct {
		heap.Heap[int]
	}
)

func NewGraph() *Graph {
	return &Graph{index: make(map[string]int)}
}

// Add inserts a node if it's not there yet and returns its index.
// Nodes are colored in key order, ties broken by insertion order.
func (g *Graph) Add(name string, key int) int {
	if i, ok := g.index[name]; ok {
		return i
	}

	i := len(g.nodes)

	g.nodes = append(g.nodes, node{name: name, key: key, adj: set.MakeBitmap(0)})
	g.index[name] = i

	return i
}

// Connect adds an edge in both directions.
func (g *Graph) Connect(a, b string) {
	i, ok := g.index[a]
	j, ok2 := g.index[b]

	if !ok || !ok2 || i == j {
		return
	}

	g.nodes[i].adj.Set(j)
	g.nodes[j].adj.Set(i)
}

func (g *Graph) Interfere(a, b string) bool {
	i, ok := g.index[a]
	j, ok2 := g.index[b]

	if !ok || !ok2 {
		return false
	}

	return g.nodes[i].adj.IsSet(j)
}

func (g *Graph) Len() int { return len(g.nodes) }

func (g *Graph) Nodes() []string {
	r := make([]string, len(g.nodes))

	for i, n := range g.nodes {
		r[i] = n.name
	}

	return r
}

func (g *Graph) Neighbors(name string) []string {
	i, ok := g.index[name]
	if !ok {
		return nil
	}

	var r []string

	g.nodes[i].adj.Range(func(j int) bool {
		r = append(r, g.nodes[j].name)
		return true
	})

	return r
}

// Edges lists every edge once, lower index first.
func (g *Graph) Edges() (r [][2]string) {
	for i, n := range g.nodes {
		n.adj.Range(func(j int) bool {
			if j > i {
				r = append(r, [2]string{n.name, g.nodes[j].name})
			}

			return true
		})
	}

	return r
}

// FromRanges connects every pair of variables with overlapping ranges.
func FromRanges(rs []Range) *Graph {
	g := NewGraph()

	for _, r := range rs {
		g.Add(r.Name, r.Start)
	}

	for i, a := range rs {
		for _, b := range rs[i+1:] {
			if a.Overlaps(b.Interval) {
				g.Connect(a.Name, b.Name)
			}
		}
	}

	return g
}

// FromLiveSets connects variables live at the same point.
// A definition interferes with everything live after it.
// Only vars become nodes.
func FromLiveSets(l *df.Liveness, vars []string) *Graph {
	g := NewGraph()

	keep := set.MakeBitmap(len(l.Vars()))

	for _, v := range vars {
		j, ok := l.Index(v)
		if !ok {
			continue
		}

		keep.Set(j)
	}

	clique := func(s set.Bitmap) {
		ns := s.Slice()

		for i, a := range ns {
			for _, b := range ns[i+1:] {
				g.Connect(l.Vars()[a], l.Vars()[b])
			}
		}
	}

	for i := 0; i < l.Len(); i++ {
		for _, s := range []set.Bitmap{l.Def(i), l.Out(i), l.In(i)} {
			s.Range(func(j int) bool {
				if keep.IsSet(j) {
					g.Add(l.Vars()[j], i)
				}

				return true
			})
		}
	}

	for i := 0; i < l.Len(); i++ {
		out := l.Out(i)
		out.Or(l.Def(i))
		out.And(keep)

		in := l.In(i)
		in.And(keep)

		clique(out)
		clique(in)
	}

	return g
}

// Color assigns each node the smallest color not used by its colored neighbors.
// Nodes are processed in discovery order.
func Color(g *Graph) map[string]int {
	r := make(map[string]int, len(g.nodes))
	color := make([]int, len(g.nodes))

	for i := range color {
		color[i] = -1
	}

	q := queue{Heap: heap.Heap[int]{Less: func(d []int, i, j int) bool {
		a, b := g.nodes[d[i]], g.nodes[d[j]]

		if a.key != b.key {
			return a.key < b.key
		}

		return d[i] < d[j]
	}}}

	for i := range g.nodes {
		q.Push(i)
	}

	for q.Len() != 0 {
		i := q.Pop()

		used := set.MakeBitmap(len(g.nodes))

		g.nodes[i].adj.Range(func(j int) bool {
			if c := color[j]; c >= 0 {
				used.Set(c)
			}

			return true
		})

		c := 0
		for used.IsSet(c) {
			c++
		}

		color[i] = c
		r[g.nodes[i].name] = c
	}

	return r
}

func (g *Graph) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder

	b = e.AppendMap(b, len(g.nodes))

	for _, n := range g.nodes {
		b = e.AppendString(b, n.name)
		b = n.adj.TlogAppend(b)
	}

	return b
}
