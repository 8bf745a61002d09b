package rag

import (
	"log/slog"
	"math"
	"sort"
)

// DefaultTopK is the number of ranked results returned when the caller
// passes k <= 0.
const DefaultTopK = 5

// LinearRanker implements Ranker with a brute-force scan: cosine
// similarity against every candidate, then an in-process sort. There is
// no index — candidate sets are bounded by practical document-store
// sizes, and the full scan keeps scoring exact and deterministic.
type LinearRanker struct {
	// log records skipped candidates. If nil, slog.Default is used.
	log *slog.Logger
}

// NewLinearRanker constructs a LinearRanker with the given logger.
func NewLinearRanker(log *slog.Logger) *LinearRanker {
	if log == nil {
		log = slog.Default()
	}
	return &LinearRanker{log: log}
}

// Rank scores every candidate against query and returns at most k
// results in descending score order. Ties keep first-seen input order
// so repeated calls over an identical candidate set are identical.
// Candidates whose embedding length differs from the query vector are
// skipped and counted — a single malformed record must never abort the
// whole pass.
func (r *LinearRanker) Rank(query []float32, candidates []Chunk, k int) []Scored {
	if k <= 0 {
		k = DefaultTopK
	}

	scored := make([]Scored, 0, len(candidates))
	skipped := 0
	for _, c := range candidates {
		score, ok := cosineSimilarity(query, c.Embedding)
		if !ok {
			skipped++
			continue
		}
		scored = append(scored, Scored{Chunk: c, Score: score})
	}

	if skipped > 0 {
		r.log.Warn("ranker: skipped candidates with mismatched embedding dimensions",
			slog.Int("skipped", skipped),
			slog.Int("query_dimensions", len(query)),
		)
	}

	// Stable sort preserves input order among equal scores.
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if len(scored) > k {
		scored = scored[:k]
	}
	return scored
}

// cosineSimilarity returns dot(a, b) / (‖a‖·‖b‖) in [-1, 1].
// The second return value is false when the vectors have different
// lengths. A zero-magnitude vector has no defined angle; it scores -1
// (never selected) rather than propagating NaN into the sort.
func cosineSimilarity(a, b []float32) (float64, bool) {
	if len(a) != len(b) {
		return 0, false
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return -1, true
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), true
}
