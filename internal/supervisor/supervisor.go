package supervisor

import (
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
)

// Policy is the last-resort handler for panics in long-lived goroutines.
// The process cannot be trusted after one, so it logs and exits; the
// service manager restarts it.
type Policy struct {
	Exit func(code int)
}

func New() *Policy {
	return &Policy{Exit: os.Exit}
}

// Go runs fn in a new goroutine under Recover.
func (p *Policy) Go(name string, fn func()) {
	go func() {
		defer p.Recover(name)
		fn()
	}()
}

// Recover must be deferred directly.
func (p *Policy) Recover(name string) {
	panicObj := recover()
	if panicObj == nil {
		return
	}

	var err error
	switch v := panicObj.(type) {
	case error:
		err = v
	case string:
		err = fmt.Errorf("panic: %s", v)
	default:
		err = fmt.Errorf("panic: %v", v)
	}

	slog.Error("Unrecoverable panic, exiting",
		"goroutine", name,
		"error", err,
		"errType", fmt.Sprintf("%T", panicObj),
		"stack", string(debug.Stack()))

	exit := p.Exit
	if exit == nil {
		exit = os.Exit
	}
	exit(1)
}
