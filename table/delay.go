/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package table

import "time"

// AfterFunc schedules f after d and returns a function that cancels it, in
// the manner of time.AfterFunc.
type AfterFunc func(d time.Duration, f func()) (stop func() bool)

func timeAfterFunc(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}

// Delay is a single cancellable delayed task. Scheduling a new task cancels
// the pending one. Continuations are handed to post, so they run on the same
// queue as every other event of the table; a continuation that was cancelled
// after its timer fired is dropped when it reaches the front of the queue.
type Delay struct {
	after AfterFunc
	post  func(func())

	gen  uint64
	stop func() bool
}

func NewDelay(after AfterFunc, post func(func())) *Delay {
	if after == nil {
		after = timeAfterFunc
	}

	return &Delay{after: after, post: post}
}

func (d *Delay) Schedule(dur time.Duration, fn func()) {
	d.Cancel()

	gen := d.gen
	d.stop = d.after(dur, func() {
		d.post(func() {
			if gen != d.gen {
				return
			}
			d.stop = nil

			fn()
		})
	})
}

func (d *Delay) Pending() bool {
	return d.stop != nil
}

func (d *Delay) Cancel() {
	if d.stop != nil {
		d.stop()
		d.stop = nil
	}
	d.gen++
}
