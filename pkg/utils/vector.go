package utils

import (
	"container/heap"
	"math"
	"sort"

	"github.com/viterin/vek/vek32"
)

// CosineSimilarity calculates the cosine similarity between two vectors.
// Returns 0 if the vectors have different lengths, are empty, or either has
// zero magnitude.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	normA := math.Sqrt(float64(vek32.Dot(a, a)))
	normB := math.Sqrt(float64(vek32.Dot(b, b)))
	if normA == 0 || normB == 0 {
		return 0
	}
	return float64(vek32.Dot(a, b)) / (normA * normB)
}

// ScoredItem is an item with a score for top-K selection.
type ScoredItem[T any] struct {
	Item  T
	Score float64
}

// minHeap keeps the smallest of the current top K at the root.
type minHeap[T any] []ScoredItem[T]

func (h minHeap[T]) Len() int           { return len(h) }
func (h minHeap[T]) Less(i, j int) bool { return h[i].Score < h[j].Score }
func (h minHeap[T]) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *minHeap[T]) Push(x any) {
	*h = append(*h, x.(ScoredItem[T]))
}

func (h *minHeap[T]) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// TopKByScore returns the K items with the highest scores in descending
// order. Items scoring below threshold are skipped.
func TopKByScore[T any](items []ScoredItem[T], k int, threshold float64) []ScoredItem[T] {
	if k <= 0 || len(items) == 0 {
		return nil
	}

	h := make(minHeap[T], 0, k)
	for _, item := range items {
		if item.Score < threshold {
			continue
		}
		if h.Len() < k {
			heap.Push(&h, item)
		} else if item.Score > h[0].Score {
			heap.Pop(&h)
			heap.Push(&h, item)
		}
	}

	result := []ScoredItem[T](h)
	sort.SliceStable(result, func(i, j int) bool { return result[i].Score > result[j].Score })
	return result
}
