package scheduler

import (
	"time"

	"github.com/casewire/casewire/pkg/graph"
)

// task is one queued unit of work: a source fired for a case.
// Ordered by priority ascending, then sequence ascending, so tasks within a
// priority tier run in stable FIFO order.
type task struct {
	priority   Priority
	seq        uint64
	source     *Source
	event      graph.Event
	enqueuedAt time.Time
}

// taskQueue is a min-heap over (priority, seq). Implements heap.Interface.
type taskQueue []*task

func (q taskQueue) Len() int { return len(q) }

func (q taskQueue) Less(i, j int) bool {
	if q[i].priority != q[j].priority {
		return q[i].priority < q[j].priority
	}
	return q[i].seq < q[j].seq
}

func (q taskQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *taskQueue) Push(x any) { *q = append(*q, x.(*task)) }

func (q *taskQueue) Pop() any {
	old := *q
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return t
}
