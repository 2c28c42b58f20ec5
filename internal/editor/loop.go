package editor

// Loop is a cooperative FIFO of deferred tasks. Tasks run one at a time on
// the goroutine that calls Drain; a task may defer further tasks, which run
// after everything queued before them.
type Loop struct {
	tasks []func()
}

// Defer queues fn to run on a later turn.
func (l *Loop) Defer(fn func()) {
	if fn == nil {
		return
	}
	l.tasks = append(l.tasks, fn)
}

// Pending returns the number of queued tasks.
func (l *Loop) Pending() int {
	return len(l.tasks)
}

// Step runs the oldest queued task. It reports false when the queue is empty.
func (l *Loop) Step() bool {
	if len(l.tasks) == 0 {
		return false
	}
	fn := l.tasks[0]
	l.tasks[0] = nil
	l.tasks = l.tasks[1:]
	fn()
	return true
}

// Drain runs tasks until the queue is empty and returns how many ran.
func (l *Loop) Drain() int {
	ran := 0
	for l.Step() {
		ran++
	}
	return ran
}
