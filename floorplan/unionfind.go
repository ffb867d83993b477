package floorplan

// unionFind is a disjoint-set over provisional component labels. The
// canonical representative of each class is the minimum label it
// contains, which keeps second-pass relabeling deterministic.
type unionFind struct {
	parent []int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{parent: make([]int, n)}
	for i := range uf.parent {
		uf.parent[i] = i
	}
	return uf
}

// grow extends the set so that label n is valid.
func (uf *unionFind) grow(n int) {
	for len(uf.parent) <= n {
		uf.parent = append(uf.parent, len(uf.parent))
	}
}

// find returns the canonical label with path compression.
func (uf *unionFind) find(x int) int {
	root := x
	for uf.parent[root] != root {
		root = uf.parent[root]
	}
	for uf.parent[x] != root {
		uf.parent[x], x = root, uf.parent[x]
	}
	return root
}

// union merges the classes of a and b. The smaller root wins so the
// canonical label is always the minimum of the class.
func (uf *unionFind) union(a, b int) {
	ra, rb := uf.find(a), uf.find(b)
	if ra == rb {
		return
	}
	if ra < rb {
		uf.parent[rb] = ra
	} else {
		uf.parent[ra] = rb
	}
}
