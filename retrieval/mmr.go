package retrieval

import (
	"github.com/fabfab/mini-rag/vectorstore"
)

const mmrLambda = 0.5

// maximalMarginalRelevance narrows a broad candidate pool to k entries that
// balance similarity to the query against diversity among themselves. Naive
// top-k similarity tends to return near-duplicate chunks from the same
// paragraph; penalising redundancy keeps distinct evidence in the pool.
func maximalMarginalRelevance(query []float32, candidates []vectorstore.Match, k int) []vectorstore.Match {
	if k <= 0 || len(candidates) == 0 {
		return nil
	}
	if k >= len(candidates) {
		k = len(candidates)
	}

	querySim := make([]float64, len(candidates))
	for i, candidate := range candidates {
		querySim[i] = vectorstore.Cosine(query, candidate.Embedding)
	}

	selected := make([]vectorstore.Match, 0, k)
	selectedIdx := make([]int, 0, k)
	used := make([]bool, len(candidates))

	for len(selected) < k {
		best := -1
		bestScore := 0.0

		for i := range candidates {
			if used[i] {
				continue
			}

			redundancy := 0.0
			for _, j := range selectedIdx {
				if sim := vectorstore.Cosine(candidates[i].Embedding, candidates[j].Embedding); sim > redundancy {
					redundancy = sim
				}
			}

			score := mmrLambda*querySim[i] - (1-mmrLambda)*redundancy
			if best == -1 || score > bestScore {
				best = i
				bestScore = score
			}
		}

		if best == -1 {
			break
		}
		used[best] = true
		selectedIdx = append(selectedIdx, best)
		selected = append(selected, candidates[best])
	}

	return selected
}
