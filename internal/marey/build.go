package marey

import (
	"math"
	"sort"

	"github.com/mini-rodalies-3d/thetrains/internal/network"
	"github.com/mini-rodalies-3d/thetrains/internal/schedule"
)

// DefaultLineGap separates consecutive lines on a header built from the network
const DefaultLineGap = 1

// BuildHeader derives a header from the network when no precomputed one is
// available. Each line is walked depth-first from its first terminal, in id
// order; a station's ordinate is the last assigned ordinate plus the length
// of the segment that reached it, so ordinates never decrease along any
// branch. Lines are laid out one after another, gap apart.
func BuildHeader(net *network.Network, gap float64) *Header {
	ordinates := make(map[string]float64)
	cursor := 0.0
	started := false

	for _, line := range net.Lines() {
		adj := adjacency(net.SegmentsForLine(line))
		nodes := make([]string, 0, len(adj))
		for id := range adj {
			nodes = append(nodes, id)
		}
		sort.Strings(nodes)

		visited := make(map[string]bool, len(nodes))
		for {
			start := pickStart(nodes, adj, visited)
			if start == "" {
				break
			}
			if started {
				cursor += gap
			}
			started = true

			last := cursor
			ordinates[schedule.HeaderKey(start, line)] = last
			visited[start] = true

			var visit func(u string)
			visit = func(u string) {
				for _, v := range adj[u] {
					if visited[v] {
						continue
					}
					visited[v] = true
					last += distance(net, u, v)
					ordinates[schedule.HeaderKey(v, line)] = last
					visit(v)
				}
			}
			visit(start)
			cursor = last
		}
	}

	return newHeader(ordinates)
}

func adjacency(segments []network.Segment) map[string][]string {
	adj := make(map[string][]string)
	for _, seg := range segments {
		adj[seg.SourceID] = append(adj[seg.SourceID], seg.TargetID)
		adj[seg.TargetID] = append(adj[seg.TargetID], seg.SourceID)
	}
	for id, neighbors := range adj {
		sort.Strings(neighbors)
		uniq := neighbors[:0]
		for i, n := range neighbors {
			if n == id || (i > 0 && n == neighbors[i-1]) {
				continue
			}
			uniq = append(uniq, n)
		}
		adj[id] = uniq
	}
	return adj
}

// pickStart prefers an unvisited terminal (degree 1), falling back to any
// unvisited station for loops
func pickStart(nodes []string, adj map[string][]string, visited map[string]bool) string {
	fallback := ""
	for _, id := range nodes {
		if visited[id] {
			continue
		}
		if len(adj[id]) <= 1 {
			return id
		}
		if fallback == "" {
			fallback = id
		}
	}
	return fallback
}

func distance(net *network.Network, a, b string) float64 {
	pa, errA := net.Position(a)
	pb, errB := net.Position(b)
	if errA != nil || errB != nil {
		return 0
	}
	return math.Hypot(pb.X-pa.X, pb.Y-pa.Y)
}
