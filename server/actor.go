package server

import (
	"github.com/texelmux/texelmux/session"
)

// actor owns the authoritative *session.Session for one running
// server. Every read or mutation is a closure submitted over
// requests; the actor goroutine drains that channel one at a time,
// so commands are serialized by construction. This reproduces
// spec.md §5's ordering guarantee ("a Command fully completes... before
// the next frame is decoded for that client") without a manual poll
// loop, per SPEC_FULL.md §5.
type actor struct {
	sess     *session.Session
	requests chan func(*session.Session)
	done     chan struct{}
}

func newActor(sess *session.Session) *actor {
	return &actor{
		sess:     sess,
		requests: make(chan func(*session.Session), 64),
		done:     make(chan struct{}),
	}
}

func (a *actor) run() {
	for {
		select {
		case req := <-a.requests:
			req(a.sess)
		case <-a.done:
			return
		}
	}
}

// submit runs fn against the session on the actor goroutine and blocks
// until it completes.
func (a *actor) submit(fn func(*session.Session)) {
	done := make(chan struct{})
	a.requests <- func(s *session.Session) {
		fn(s)
		close(done)
	}
	<-done
}

func (a *actor) stop() {
	close(a.done)
}
