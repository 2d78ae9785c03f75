package analytics

import (
	"context"
	"math"
	"sort"

	"github.com/khaller93/es-middleware-sub003/pgraph"
)

// PageRankConfig holds configuration for PageRank computation
type PageRankConfig struct {
	// Iterations is the maximum number of iterations (default: 20)
	Iterations int `json:"iterations" yaml:"iterations"`

	// DampingFactor is the probability of continuing the random walk (default: 0.85)
	DampingFactor float64 `json:"damping" yaml:"damping"`

	// Tolerance is the convergence threshold (default: 1e-6)
	Tolerance float64 `json:"tolerance" yaml:"tolerance"`

	// TopN is the number of top-ranked vertices to return in Ranked (0 = all)
	TopN int `json:"top_n" yaml:"top_n"`
}

// DefaultPageRankConfig returns the standard PageRank configuration
func DefaultPageRankConfig() PageRankConfig {
	return PageRankConfig{
		Iterations:    20,
		DampingFactor: 0.85,
		Tolerance:     1e-6,
	}
}

// PageRankResult holds the results of PageRank computation
type PageRankResult struct {
	// Scores maps vertex ID to PageRank score
	Scores map[string]float64

	// Ranked contains vertex IDs sorted by PageRank score (descending)
	Ranked []string

	// Iterations is the actual number of iterations run
	Iterations int

	// Converged indicates whether the algorithm converged before max iterations
	Converged bool
}

// ComputePageRank computes PageRank scores for every vertex of g. Edges
// are followed in their direction; parallel edges with different labels
// count once.
func ComputePageRank(ctx context.Context, g pgraph.Store, config PageRankConfig) (*PageRankResult, error) {
	nodeIDs := g.VertexIDs()
	n := len(nodeIDs)
	if n == 0 {
		return &PageRankResult{
			Scores:    make(map[string]float64),
			Ranked:    []string{},
			Converged: true,
		}, nil
	}

	nodeIndex := make(map[string]int, n)
	for i, id := range nodeIDs {
		nodeIndex[id] = i
	}

	// inLinks[i] = nodes that link to i
	inLinks := make([][]int, n)
	outLinkCount := make([]int, n)
	for i, fromID := range nodeIDs {
		seen := make(map[int]struct{})
		for _, e := range g.Edges(fromID, pgraph.Outgoing) {
			toIdx, ok := nodeIndex[e.To]
			if !ok {
				continue
			}
			if _, dup := seen[toIdx]; dup {
				continue
			}
			seen[toIdx] = struct{}{}
			inLinks[toIdx] = append(inLinks[toIdx], i)
			outLinkCount[i]++
		}
	}

	scores := make([]float64, n)
	initialScore := 1.0 / float64(n)
	for i := range scores {
		scores[i] = initialScore
	}

	d := config.DampingFactor
	newScores := make([]float64, n)
	converged := false
	iterations := 0

	for iterations = 0; iterations < config.Iterations; iterations++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		// Mass of dangling vertices is spread evenly.
		dangling := 0.0
		for i, c := range outLinkCount {
			if c == 0 {
				dangling += scores[i]
			}
		}
		base := (1.0-d)/float64(n) + d*dangling/float64(n)

		for i := range newScores {
			sum := 0.0
			for _, j := range inLinks[i] {
				sum += scores[j] / float64(outLinkCount[j])
			}
			newScores[i] = base + d*sum
		}

		maxDiff := 0.0
		for i := range scores {
			if diff := math.Abs(newScores[i] - scores[i]); diff > maxDiff {
				maxDiff = diff
			}
		}
		scores, newScores = newScores, scores

		if maxDiff < config.Tolerance {
			converged = true
			iterations++
			break
		}
	}

	scoreMap := make(map[string]float64, n)
	sum := 0.0
	for i, id := range nodeIDs {
		scoreMap[id] = scores[i]
		sum += scores[i]
	}
	if sum > 0 {
		for id := range scoreMap {
			scoreMap[id] /= sum
		}
	}

	ranked := make([]string, n)
	copy(ranked, nodeIDs)
	sort.Slice(ranked, func(i, j int) bool {
		si, sj := scoreMap[ranked[i]], scoreMap[ranked[j]]
		if si != sj {
			return si > sj
		}
		// Tie-break by ID for determinism
		return ranked[i] < ranked[j]
	})
	if config.TopN > 0 && config.TopN < n {
		ranked = ranked[:config.TopN]
	}

	return &PageRankResult{
		Scores:     scoreMap,
		Ranked:     ranked,
		Iterations: iterations,
		Converged:  converged,
	}, nil
}
