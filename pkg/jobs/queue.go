// Package jobs queues per-frame work for widgets.
//
// A Queue holds at most one job per (handle, kind) until it is drained.
// Requests are expected to arrive in small numbers per frame, so
// deduplication is a linear scan over the pending jobs.
//
// A Queue belongs to the goroutine that runs frames and is not safe for
// concurrent use.
package jobs

import (
	"fmt"
	"slices"

	"github.com/go-drift/reflow/pkg/entity"
)

// Kind identifies the work a job asks for.
type Kind uint8

const (
	Layout Kind = iota
	Paint
	Reconcile
	Unregister
	Animation
)

func (k Kind) String() string {
	switch k {
	case Layout:
		return "layout"
	case Paint:
		return "paint"
	case Reconcile:
		return "reconcile"
	case Unregister:
		return "unregister"
	case Animation:
		return "animation"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Companion is the follow-up job an animation step requires.
type Companion uint8

const (
	CompanionNone Companion = iota
	CompanionPaint
	CompanionLayout
)

func (c Companion) String() string {
	switch c {
	case CompanionNone:
		return "none"
	case CompanionPaint:
		return "paint"
	case CompanionLayout:
		return "layout"
	default:
		return fmt.Sprintf("companion(%d)", uint8(c))
	}
}

// Kind returns the job kind the companion inserts and whether there is one.
func (c Companion) Kind() (Kind, bool) {
	switch c {
	case CompanionPaint:
		return Paint, true
	case CompanionLayout:
		return Layout, true
	default:
		return 0, false
	}
}

// Job is a unit of frame work for one entity.
type Job struct {
	Handle entity.Handle
	Kind   Kind
}

func (j Job) String() string {
	return j.Kind.String() + " " + j.Handle.String()
}

// FrameRequester is notified on every request.
type FrameRequester interface {
	RequestFrame()
}

// Queue is a deduplicated list of pending jobs.
type Queue struct {
	jobs      []Job
	requester FrameRequester
}

// New creates a queue that notifies requester on every request. A nil
// requester is allowed.
func New(requester FrameRequester) *Queue {
	return &Queue{requester: requester}
}

// Grow reserves room for n more jobs without reallocating.
func (q *Queue) Grow(n int) {
	if n > 0 {
		q.jobs = slices.Grow(q.jobs, n)
	}
}

// Request schedules kind for h unless the same job is already pending.
func (q *Queue) Request(h entity.Handle, kind Kind) {
	q.insert(Job{Handle: h, Kind: kind})
	q.requestFrame()
}

// RequestAnimation schedules an animation step for h together with its
// companion job, if any.
func (q *Queue) RequestAnimation(h entity.Handle, companion Companion) {
	q.insert(Job{Handle: h, Kind: Animation})
	if kind, ok := companion.Kind(); ok {
		q.insert(Job{Handle: h, Kind: kind})
	}
	q.requestFrame()
}

func (q *Queue) insert(j Job) {
	if slices.Contains(q.jobs, j) {
		return
	}
	q.jobs = append(q.jobs, j)
}

func (q *Queue) requestFrame() {
	if q.requester != nil {
		q.requester.RequestFrame()
	}
}

// Contains reports whether kind is pending for h.
func (q *Queue) Contains(h entity.Handle, kind Kind) bool {
	return slices.Contains(q.jobs, Job{Handle: h, Kind: kind})
}

// Len returns the number of pending jobs.
func (q *Queue) Len() int {
	return len(q.jobs)
}

// Drain removes and returns every pending job in request order.
func (q *Queue) Drain() []Job {
	out := q.jobs
	q.jobs = nil
	return out
}

// DrainNonAnimation removes and returns every pending job except animation
// steps, which stay queued for the frame's animation pass.
func (q *Queue) DrainNonAnimation() []Job {
	var out []Job
	kept := q.jobs[:0]
	for _, j := range q.jobs {
		if j.Kind == Animation {
			kept = append(kept, j)
			continue
		}
		out = append(out, j)
	}
	clear(q.jobs[len(kept):])
	q.jobs = kept
	return out
}
