package waitingroom

import (
	"sync"
	"time"

	"github.com/lunfardo314/unitrie/common"
	"go.uber.org/atomic"
)

// WaitingRoom calls functions not earlier than the deadline, with the precision of the polling period
type WaitingRoom struct {
	mutex   sync.Mutex
	d       map[time.Time][]func()
	period  time.Duration
	stopped atomic.Bool
}

var defaultPollingPeriod = 1 * time.Second

func Create(pollEvery ...time.Duration) *WaitingRoom {
	ret := &WaitingRoom{
		d:      make(map[time.Time][]func()),
		period: defaultPollingPeriod,
	}
	if len(pollEvery) > 0 && pollEvery[0] > 0 {
		ret.period = pollEvery[0]
	}

	go ret.polling()
	return ret
}

func (d *WaitingRoom) due(nowis time.Time) []func() {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	ret := make([]func(), 0)
	for t, l := range d.d {
		if t.After(nowis) {
			continue
		}
		ret = append(ret, l...)
		delete(d.d, t)
	}
	return ret
}

func (d *WaitingRoom) polling() {
	for {
		time.Sleep(d.period)

		if d.stopped.Load() {
			return
		}
		for _, fun := range d.due(time.Now()) {
			fun()
		}
	}
}

// Stop stops polling. Functions still waiting are never called
func (d *WaitingRoom) Stop() {
	d.stopped.Store(true)
}

func (d *WaitingRoom) IsStopped() bool {
	return d.stopped.Load()
}

func (d *WaitingRoom) WaitUntil(t time.Time, fun func()) {
	common.Assert(!d.stopped.Load(), "WaitingRoom already stopped")

	d.mutex.Lock()
	defer d.mutex.Unlock()

	d.d[t] = append(d.d[t], fun)
}

func (d *WaitingRoom) CallDelayed(t time.Duration, fun func()) {
	d.WaitUntil(time.Now().Add(t), fun)
}

// Len is number of functions waiting
func (d *WaitingRoom) Len() int {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	ret := 0
	for _, l := range d.d {
		ret += len(l)
	}
	return ret
}
