// Package queue implements URL priority scoring and the multi-level
// exploration queue used by the discovery engine.
package queue

import "container/heap"

// Item is a queued URL with its priority level and crawl provenance.
type Item struct {
	URL       string
	Level     int
	Depth     int
	ParentURL string

	seq int // insertion order, keeps pops FIFO within a level
}

// Stats is a snapshot of queue state for logging.
type Stats struct {
	Remaining   int         `json:"remaining"`
	TotalSeen   int         `json:"total_seen"`
	LevelCounts map[int]int `json:"level_counts"`
}

// MultiLevelQueue is a four-level priority queue over URLs. Level 0 pops
// first; within a level, insertion order is preserved. Every URL is
// accepted at most once, at whatever level it was first pushed.
type MultiLevelQueue struct {
	heap        itemHeap
	seen        map[string]bool
	maxDepth    int
	nextSeq     int
	levelCounts map[int]int
}

// DefaultMaxDepth caps internal-link crawling from the entry URL.
const DefaultMaxDepth = 3

// New creates a queue with the given depth cap; maxDepth <= 0 selects
// DefaultMaxDepth.
func New(maxDepth int) *MultiLevelQueue {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &MultiLevelQueue{
		seen:        make(map[string]bool),
		maxDepth:    maxDepth,
		levelCounts: map[int]int{0: 0, 1: 0, 2: 0, 3: 0},
	}
}

// Push adds a URL at the given level unless it was already seen or exceeds
// the depth cap. Levels outside 0-3 are clamped. Reports whether the URL
// was added.
func (q *MultiLevelQueue) Push(url string, level, depth int, parentURL string) bool {
	if q.seen[url] {
		return false
	}
	if depth > q.maxDepth {
		return false
	}

	if level < 0 {
		level = 0
	} else if level > 3 {
		level = 3
	}

	q.seen[url] = true
	q.nextSeq++
	heap.Push(&q.heap, &Item{
		URL:       url,
		Level:     level,
		Depth:     depth,
		ParentURL: parentURL,
		seq:       q.nextSeq,
	})
	q.levelCounts[level]++
	return true
}

// Pop removes and returns the highest-priority item, or nil when empty.
func (q *MultiLevelQueue) Pop() *Item {
	if q.heap.Len() == 0 {
		return nil
	}
	return heap.Pop(&q.heap).(*Item)
}

// IsEmpty reports whether no items remain.
func (q *MultiLevelQueue) IsEmpty() bool {
	return q.heap.Len() == 0
}

// MarkSeen records a URL as seen without queueing it.
func (q *MultiLevelQueue) MarkSeen(url string) {
	q.seen[url] = true
}

// IsSeen reports whether a URL has been pushed or marked before.
func (q *MultiLevelQueue) IsSeen(url string) bool {
	return q.seen[url]
}

// Size returns the number of items remaining.
func (q *MultiLevelQueue) Size() int {
	return q.heap.Len()
}

// TotalSeen returns the count of unique URLs ever seen.
func (q *MultiLevelQueue) TotalSeen() int {
	return len(q.seen)
}

// Stats returns a snapshot for logging.
func (q *MultiLevelQueue) Stats() Stats {
	counts := make(map[int]int, len(q.levelCounts))
	for k, v := range q.levelCounts {
		counts[k] = v
	}
	return Stats{
		Remaining:   q.Size(),
		TotalSeen:   q.TotalSeen(),
		LevelCounts: counts,
	}
}

// itemHeap orders by level, then insertion sequence.
type itemHeap []*Item

func (h itemHeap) Len() int { return len(h) }

func (h itemHeap) Less(i, j int) bool {
	if h[i].Level != h[j].Level {
		return h[i].Level < h[j].Level
	}
	return h[i].seq < h[j].seq
}

func (h itemHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *itemHeap) Push(x any) { *h = append(*h, x.(*Item)) }

func (h *itemHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return it
}
