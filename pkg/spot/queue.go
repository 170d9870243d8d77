package spot

import (
	"sync"
)

// Queue is the outbound FIFO of accepted sightings, filled by the Spotter
// and drained by the notifier. Unbounded; snapshot size bounds it in
// practice. Single producer, single consumer.
type Queue struct {
	mtx   sync.Mutex
	items []*Sighting
}

func NewQueue() *Queue {
	return &Queue{}
}

func (q *Queue) Push(s *Sighting) {
	q.mtx.Lock()
	defer q.mtx.Unlock()
	q.items = append(q.items, s)
}

// Pop removes and returns the oldest sighting. Non-blocking; the second
// return is false when the queue is empty.
func (q *Queue) Pop() (*Sighting, bool) {
	q.mtx.Lock()
	defer q.mtx.Unlock()
	if len(q.items) == 0 {
		return nil, false
	}
	s := q.items[0]
	q.items = q.items[1:]
	return s, true
}

func (q *Queue) Len() int {
	q.mtx.Lock()
	defer q.mtx.Unlock()
	return len(q.items)
}
