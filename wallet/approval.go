package wallet

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/lunfardo314/easystate/ledger"
	"github.com/lunfardo314/easystate/util/fifoqueue"
	"github.com/lunfardo314/easystate/util/waitingroom"
)

var (
	ErrApprovalExpired = errors.New("approval request expired")
	ErrQueueClosed     = errors.New("approval queue is closed")
)

// ApprovalRequest is the transaction waiting for the decision of the user
type ApprovalRequest struct {
	Tx    *ledger.Transaction
	reply chan error
	once  sync.Once
}

func newApprovalRequest(tx *ledger.Transaction) *ApprovalRequest {
	return &ApprovalRequest{
		Tx:    tx,
		reply: make(chan error, 1),
	}
}

// respond delivers the first decision only
func (r *ApprovalRequest) respond(err error) {
	r.once.Do(func() {
		r.reply <- err
	})
}

func (r *ApprovalRequest) Approve() {
	r.respond(nil)
}

func (r *ApprovalRequest) Reject(reason string) {
	r.respond(errors.New(reason))
}

// ApprovalQueue passes signing requests to the user one by one, in the order they arrive.
// Requests not decided within the expiry period are rejected
type ApprovalQueue struct {
	queue  *fifoqueue.FIFOQueue[*ApprovalRequest]
	room   *waitingroom.WaitingRoom
	expiry time.Duration
}

const expiryPollingPeriod = 10 * time.Millisecond

// NewApprovalQueue creates the queue. Zero expiry means requests wait until decided or cancelled
func NewApprovalQueue(expiry time.Duration) *ApprovalQueue {
	ret := &ApprovalQueue{
		queue:  fifoqueue.New[*ApprovalRequest](),
		expiry: expiry,
	}
	if expiry > 0 {
		ret.room = waitingroom.Create(expiryPollingPeriod)
	}
	return ret
}

// Approver is to be plugged into the KeyPair
func (q *ApprovalQueue) Approver() Approver {
	return func(ctx context.Context, tx *ledger.Transaction) error {
		req := newApprovalRequest(tx)
		if !q.queue.Write(req) {
			return ErrQueueClosed
		}
		if q.room != nil && !q.room.IsStopped() {
			q.room.CallDelayed(q.expiry, func() {
				req.respond(ErrApprovalExpired)
			})
		}
		select {
		case err := <-req.reply:
			return err
		case <-ctx.Done():
			req.respond(ctx.Err())
			return ctx.Err()
		}
	}
}

// Consume hands requests to the decision function until the queue is closed
func (q *ApprovalQueue) Consume(decide func(req *ApprovalRequest)) {
	q.queue.Consume(decide)
}

// Pending is number of requests not yet handed to the decision function
func (q *ApprovalQueue) Pending() int {
	return q.queue.Len()
}

func (q *ApprovalQueue) Close() {
	q.queue.Close()
	if q.room != nil {
		q.room.Stop()
	}
}
