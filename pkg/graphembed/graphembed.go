// Package graphembed trains structural embedding lookups from graph
// topology: a biased random-walk sampler over the adjacency (neighborhood
// co-occurrence) and a multi-hop proximity factorization. Both need the
// whole graph as context, so they produce precomputed lookups indexed by
// entity URI rather than per-entity vectors.
package graphembed

import (
	"context"
	"math/rand"
	"sort"

	"github.com/c360/semdedup/errors"
	"github.com/c360/semdedup/graph"
	"github.com/c360/semdedup/pkg/embedding"
)

// Adjacency is an undirected view of the URI-to-URI edges of one or more
// named graphs. Literal objects do not contribute edges; blank nodes do, so
// entities connected through intermediate nodes stay structurally close.
type Adjacency struct {
	nodes     []string
	index     map[string]int
	neighbors [][]int
}

// BuildAdjacency collects the undirected URI-reference edges of the given
// graphs from a Source. Node order is ascending by URI for determinism.
func BuildAdjacency(ctx context.Context, src graph.Source, graphIDs ...string) (*Adjacency, error) {
	type edge struct{ from, to string }
	var edges []edge
	nodeSet := make(map[string]bool)

	for _, graphID := range graphIDs {
		subjects, err := src.Subjects(ctx, graphID)
		if err != nil {
			return nil, errors.WrapTransient(err, "Adjacency", "Build", "list subjects")
		}

		// Blank node subjects are not returned by Subjects but can appear
		// as objects; walk them through a frontier so their edges count.
		frontier := subjects
		visited := make(map[string]bool)
		for len(frontier) > 0 {
			var next []string
			for _, subject := range frontier {
				if visited[subject] {
					continue
				}
				visited[subject] = true

				pairs, err := src.PredicateObjects(ctx, graphID, subject)
				if err != nil {
					return nil, errors.WrapTransient(err, "Adjacency", "Build", "load neighborhood")
				}
				for _, po := range pairs {
					if !po.Object.IsIRI {
						continue
					}
					nodeSet[subject] = true
					nodeSet[po.Object.Value] = true
					edges = append(edges, edge{from: subject, to: po.Object.Value})
					if !visited[po.Object.Value] {
						next = append(next, po.Object.Value)
					}
				}
			}
			frontier = next
		}
	}

	nodes := make([]string, 0, len(nodeSet))
	for n := range nodeSet {
		nodes = append(nodes, n)
	}
	sort.Strings(nodes)

	index := make(map[string]int, len(nodes))
	for i, n := range nodes {
		index[n] = i
	}

	adj := &Adjacency{
		nodes:     nodes,
		index:     index,
		neighbors: make([][]int, len(nodes)),
	}
	for _, e := range edges {
		fi, ti := index[e.from], index[e.to]
		adj.neighbors[fi] = append(adj.neighbors[fi], ti)
		adj.neighbors[ti] = append(adj.neighbors[ti], fi)
	}
	for i := range adj.neighbors {
		sort.Ints(adj.neighbors[i])
	}
	return adj, nil
}

// Nodes returns the node URIs in index order.
func (a *Adjacency) Nodes() []string {
	return a.nodes
}

// WalkConfig configures the random-walk trainer.
type WalkConfig struct {
	// Dimensions is the output vector width (default 384).
	Dimensions int

	// WalkLength is the number of steps per walk (default 10).
	WalkLength int

	// NumWalks is the number of walks started per node (default 100).
	NumWalks int

	// Window is the co-occurrence context width (default 5).
	Window int

	// Seed feeds the walk sampler. Fixed seed + fixed graph = identical
	// lookup, which the determinism contract of a run depends on.
	Seed int64
}

// DefaultWalkConfig returns the standard random-walk configuration.
func DefaultWalkConfig() WalkConfig {
	return WalkConfig{
		Dimensions: 384,
		WalkLength: 10,
		NumWalks:   100,
		Window:     5,
		Seed:       69,
	}
}

// TrainRandomWalk builds a structural lookup by sampling random walks and
// accumulating windowed co-occurrence counts into feature-hashed vectors.
// Nodes co-occurring on walks end up with similar vectors, approximating
// the neighborhood-co-occurrence objective of skip-gram walk embedders.
func TrainRandomWalk(ctx context.Context, adj *Adjacency, cfg WalkConfig) (*embedding.MemoryLookup, error) {
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = 384
	}
	if cfg.WalkLength <= 0 {
		cfg.WalkLength = 10
	}
	if cfg.NumWalks <= 0 {
		cfg.NumWalks = 100
	}
	if cfg.Window <= 0 {
		cfg.Window = 5
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	vectors := make([][]float32, len(adj.nodes))
	for i := range vectors {
		vectors[i] = make([]float32, cfg.Dimensions)
	}

	walk := make([]int, 0, cfg.WalkLength)
	for start := range adj.nodes {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		for w := 0; w < cfg.NumWalks; w++ {
			walk = walk[:0]
			current := start
			walk = append(walk, current)
			for len(walk) < cfg.WalkLength {
				next := adj.neighbors[current]
				if len(next) == 0 {
					break
				}
				current = next[rng.Intn(len(next))]
				walk = append(walk, current)
			}

			for i, center := range walk {
				lo := i - cfg.Window
				if lo < 0 {
					lo = 0
				}
				hi := i + cfg.Window
				if hi >= len(walk) {
					hi = len(walk) - 1
				}
				for j := lo; j <= hi; j++ {
					if j == i {
						continue
					}
					dist := j - i
					if dist < 0 {
						dist = -dist
					}
					slot := hashSlot(adj.nodes[walk[j]], cfg.Dimensions)
					vectors[center][slot] += float32(1.0 / float64(dist))
				}
			}
		}
	}

	lookup := embedding.NewMemoryLookup()
	for i, uri := range adj.nodes {
		if err := lookup.Set(uri, embedding.Normalize(vectors[i])); err != nil {
			return nil, err
		}
	}
	return lookup, nil
}

// ProximityConfig configures the multi-hop proximity trainer.
type ProximityConfig struct {
	// Dimensions is the output vector width (default 384).
	Dimensions int

	// Order is the number of hops aggregated (default 3).
	Order int

	// PruneBelow drops propagated mass below this value to keep rows
	// sparse on large graphs (default 1e-4).
	PruneBelow float64
}

// DefaultProximityConfig returns the standard proximity configuration.
func DefaultProximityConfig() ProximityConfig {
	return ProximityConfig{Dimensions: 384, Order: 3, PruneBelow: 1e-4}
}

// TrainProximity builds a structural lookup from averaged multi-hop
// transition probabilities, the implicit-matrix-factorization view of
// neighborhood similarity. Fully deterministic: no sampling involved.
func TrainProximity(ctx context.Context, adj *Adjacency, cfg ProximityConfig) (*embedding.MemoryLookup, error) {
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = 384
	}
	if cfg.Order <= 0 {
		cfg.Order = 3
	}
	if cfg.PruneBelow <= 0 {
		cfg.PruneBelow = 1e-4
	}

	lookup := embedding.NewMemoryLookup()
	for i, uri := range adj.nodes {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		// Propagate unit mass from node i for Order hops, averaging the
		// per-hop distributions.
		accum := make(map[int]float64)
		current := map[int]float64{i: 1.0}
		for hop := 0; hop < cfg.Order; hop++ {
			next := make(map[int]float64)
			for node, mass := range current {
				nbrs := adj.neighbors[node]
				if len(nbrs) == 0 {
					continue
				}
				share := mass / float64(len(nbrs))
				if share < cfg.PruneBelow {
					continue
				}
				for _, nbr := range nbrs {
					next[nbr] += share
				}
			}
			for node, mass := range next {
				accum[node] += mass / float64(cfg.Order)
			}
			current = next
		}

		vec := make([]float32, cfg.Dimensions)
		for node, mass := range accum {
			vec[hashSlot(adj.nodes[node], cfg.Dimensions)] += float32(mass)
		}
		if err := lookup.Set(uri, embedding.Normalize(vec)); err != nil {
			return nil, err
		}
	}
	return lookup, nil
}

// hashSlot maps a node URI to a vector slot (feature hashing, FNV-1a).
func hashSlot(uri string, dimensions int) int {
	const (
		offset32 = 2166136261
		prime32  = 16777619
	)
	h := uint32(offset32)
	for i := 0; i < len(uri); i++ {
		h ^= uint32(uri[i])
		h *= prime32
	}
	return int(h % uint32(dimensions))
}
