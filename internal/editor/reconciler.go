package editor

// Reconciler keeps the rendered view in step with the document. While it is
// stopped, renders are queued instead of run; Flush replays a single render
// for the whole backlog.
type Reconciler struct {
	render  func()
	stopped bool
	pending int
}

func newReconciler(render func()) *Reconciler {
	return &Reconciler{render: render}
}

// Stop suspends rendering.
func (r *Reconciler) Stop() {
	r.stopped = true
}

// Start resumes rendering. Queued renders stay queued until Flush.
func (r *Reconciler) Start() {
	r.stopped = false
}

// Running reports whether renders happen immediately.
func (r *Reconciler) Running() bool {
	return !r.stopped
}

// Pending returns the number of renders queued while stopped.
func (r *Reconciler) Pending() int {
	return r.pending
}

// Notify records a document change.
func (r *Reconciler) Notify() {
	if r.stopped {
		r.pending++
		return
	}
	r.render()
}

// Flush runs one render if any were queued and the reconciler is running.
func (r *Reconciler) Flush() {
	if r.stopped || r.pending == 0 {
		return
	}
	r.pending = 0
	r.render()
}
