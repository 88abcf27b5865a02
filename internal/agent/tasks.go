package agent

import (
	"context"
	"errors"
	"sync"
)

// errTaskCancelled is the cancellation cause of a fallback task whose reply is no longer wanted.
var errTaskCancelled = errors.New("fallback task cancelled")

type task struct {
	requestID string
	userID    string
	cancel    context.CancelCauseFunc
}

// taskRegistry tracks in-flight fallback searches by request id so they can be
// cancelled when the user's state changes underneath them.
type taskRegistry struct {
	mu    sync.Mutex
	tasks map[*task]struct{}
}

func newTaskRegistry() *taskRegistry {
	return &taskRegistry{tasks: make(map[*task]struct{})}
}

// start registers a task and returns its context and a release func that
// must be called when the task finishes.
func (r *taskRegistry) start(ctx context.Context, requestID, userID string) (context.Context, func()) {
	ctx, cancel := context.WithCancelCause(ctx)
	t := &task{requestID: requestID, userID: userID, cancel: cancel}

	r.mu.Lock()
	r.tasks[t] = struct{}{}
	r.mu.Unlock()
	fallbacksInFlight.Inc()

	return ctx, func() {
		r.mu.Lock()
		delete(r.tasks, t)
		r.mu.Unlock()
		fallbacksInFlight.Dec()
		cancel(nil)
	}
}

func (r *taskRegistry) cancelWhere(match func(*task) bool) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for t := range r.tasks {
		if match(t) {
			t.cancel(errTaskCancelled)
			n++
		}
	}
	return n
}

// cancelRequest cancels userID's task for requestID. Request ids are chosen by
// clients, so they are only unique per user.
func (r *taskRegistry) cancelRequest(userID, requestID string) int {
	return r.cancelWhere(func(t *task) bool { return t.userID == userID && t.requestID == requestID })
}

func (r *taskRegistry) cancelUser(userID string) int {
	return r.cancelWhere(func(t *task) bool { return t.userID == userID })
}

func (r *taskRegistry) inFlight() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tasks)
}

// cancelled reports whether ctx was cancelled through the registry.
func cancelled(ctx context.Context) bool {
	return errors.Is(context.Cause(ctx), errTaskCancelled)
}
