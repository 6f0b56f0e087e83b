package cluster

import (
	"fmt"
	"sort"

	"github.com/cespare/xxhash/v2"
)

// DefaultVirtualPoints is the number of ring positions per node. More points
// smooth out the key distribution at the cost of a larger ring.
const DefaultVirtualPoints = 150

type ringPoint struct {
	hash uint64
	node int
}

// ring is an immutable consistent-hash ring over a set of named nodes.
// A node's virtual points are derived from its name, so adding or removing
// one node only remaps the keys that hashed to that node.
type ring struct {
	nodes  []string
	points []ringPoint
}

func buildRing(nodes []string, virtualPoints int) *ring {
	r := &ring{
		nodes:  nodes,
		points: make([]ringPoint, 0, len(nodes)*virtualPoints),
	}
	for i, name := range nodes {
		for v := 0; v < virtualPoints; v++ {
			h := xxhash.Sum64String(fmt.Sprintf("%s:%d", name, v))
			r.points = append(r.points, ringPoint{hash: h, node: i})
		}
	}
	sort.Slice(r.points, func(i, j int) bool {
		return r.points[i].hash < r.points[j].hash
	})
	return r
}

// primary returns the index of the node owning key.
func (r *ring) primary(key string) int {
	h := xxhash.Sum64String(key)
	i := sort.Search(len(r.points), func(i int) bool {
		return r.points[i].hash >= h
	})
	// Past the last point wraps to the first.
	return r.points[i%len(r.points)].node
}

// replicas returns the indices of the nodes holding key: the primary
// followed by the next nodes in declaration order, counting distinct
// nodes and capped at the cluster size.
func (r *ring) replicas(key string, count int) []int {
	n := len(r.nodes)
	if count > n {
		count = n
	}
	primary := r.primary(key)
	out := make([]int, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, (primary+i)%n)
	}
	return out
}
