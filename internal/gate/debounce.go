package gate

import "time"

// Debouncer suppresses a repeated identical token arriving within the
// window. A different token always passes and resets the tracking state.
// Two independent instances exist in the pipeline: the gate's (500ms) and
// the dispatcher's (300ms); their windows are distinct on purpose.
type Debouncer struct {
	window    time.Duration
	now       func() time.Time
	lastToken string
	lastTime  time.Time
}

// NewDebouncer creates a debouncer. now may be nil for wall-clock time.
func NewDebouncer(window time.Duration, now func() time.Time) *Debouncer {
	if now == nil {
		now = time.Now
	}
	return &Debouncer{window: window, now: now}
}

// Pass reports whether token should go through, updating state when it
// does. The check and the update are a single step: no suspension point
// sits between them.
func (d *Debouncer) Pass(token string) bool {
	t := d.now()
	if token == d.lastToken && t.Sub(d.lastTime) < d.window {
		return false
	}
	d.lastToken = token
	d.lastTime = t
	return true
}
