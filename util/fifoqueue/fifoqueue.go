package fifoqueue

import (
	"sync"

	"github.com/gammazero/deque"
)

// FIFOQueue implements variable size synchronized FIFO queue. Writers never block
type FIFOQueue[T any] struct {
	d       *deque.Deque[T]
	mutex   sync.Mutex
	cond    *sync.Cond
	closing bool
	closed  bool
}

func New[T any]() *FIFOQueue[T] {
	ret := &FIFOQueue[T]{
		d: new(deque.Deque[T]),
	}
	ret.cond = sync.NewCond(&ret.mutex)
	return ret
}

// Write pushes element. Returns false if the queue is closing and the element was not accepted
func (q *FIFOQueue[T]) Write(elem T) bool {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	if q.closing {
		return false
	}
	q.d.PushBack(elem)
	q.cond.Signal()
	return true
}

// CloseNow closes FIFOQueue immediately. The elements in the buffer are not read anymore
func (q *FIFOQueue[T]) CloseNow() {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	q.closing = true
	q.closed = true
	q.cond.Broadcast()
}

// Close closes FIFOQueue deferred until all elements are read
func (q *FIFOQueue[T]) Close() {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	q.closing = true
	q.cond.Broadcast()
}

func (q *FIFOQueue[T]) read() (T, bool) {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	for q.d.Len() == 0 && !q.closing {
		q.cond.Wait()
	}
	if q.closed || q.d.Len() == 0 {
		var nilT T
		return nilT, false
	}
	return q.d.PopFront(), true
}

// Consume reads all elements of the queue until it is closed
func (q *FIFOQueue[T]) Consume(fun func(elem T)) {
	for {
		e, ok := q.read()
		if !ok {
			break
		}
		fun(e)
	}
}

// Len returns number of elements in the queue. Non-deterministic
func (q *FIFOQueue[T]) Len() int {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	return q.d.Len()
}
