package gate

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattjoyce/lectern/internal/command"
	"github.com/mattjoyce/lectern/internal/events"
)

type recordingDispatcher struct {
	tokens []string
}

func (r *recordingDispatcher) Dispatch(token command.Token, _ []byte) {
	r.tokens = append(r.tokens, token)
}

type recordingRequests struct {
	summarizes int
	lookups    []string
}

func (r *recordingRequests) HandleSummarizeRequest() { r.summarizes++ }

func (r *recordingRequests) HandleLookupRequest(word string) {
	r.lookups = append(r.lookups, word)
}

func newTestGate(clock *fakeClock) (*Gate, *recordingDispatcher, *events.Hub) {
	disp := &recordingDispatcher{}
	hub := events.NewHub(50)
	g := New(Config{
		LockWindow: 1000 * time.Millisecond,
		Debounce:   500 * time.Millisecond,
		Now:        clock.now,
	}, command.DefaultMapping(), disp, hub)
	return g, disp, hub
}

func directiveTypes(hub *events.Hub) []string {
	var out []string
	for _, d := range hub.SnapshotSince(0) {
		out = append(out, d.Type)
	}
	return out
}

func TestRecognitionDispatchesMappedToken(t *testing.T) {
	clock := newFakeClock()
	g, disp, hub := newTestGate(clock)

	g.HandleFrame(`{"type":"gesture_recognized","gesture":"right","confidence":0.93}`)

	require.Equal(t, []string{command.TokenSlideNext}, disp.tokens)
	assert.Contains(t, directiveTypes(hub), events.GestureRecognized)
}

func TestLockDropsTrailingRawCode(t *testing.T) {
	clock := newFakeClock()
	g, disp, _ := newTestGate(clock)

	g.HandleFrame(`{"type":"gesture_recognized","gesture":"right"}`)
	require.Len(t, disp.tokens, 1)

	// The classifier's trailing raw-code message arrives right behind the
	// recognition and must be swallowed by the lock.
	clock.advance(50 * time.Millisecond)
	g.HandleFrame(`{"code":"4"}`)
	assert.Len(t, disp.tokens, 1)

	clock.advance(100 * time.Millisecond)
	g.HandleFrame("4")
	assert.Len(t, disp.tokens, 1, "bare token inside the lock window must be dropped")
}

func TestLockExpires(t *testing.T) {
	clock := newFakeClock()
	g, disp, _ := newTestGate(clock)

	g.HandleFrame(`{"type":"gesture_recognized","gesture":"right"}`)
	require.Len(t, disp.tokens, 1)

	clock.advance(1100 * time.Millisecond)
	g.HandleFrame(`{"code":"7"}`)
	assert.Equal(t, []string{command.TokenSlideNext, command.TokenDrawing}, disp.tokens)
}

func TestUnmappedRecognitionStillArmsLock(t *testing.T) {
	clock := newFakeClock()
	g, disp, hub := newTestGate(clock)

	g.HandleFrame(`{"type":"gesture_recognized","gesture":"wave"}`)
	assert.Empty(t, disp.tokens)
	assert.Contains(t, directiveTypes(hub), events.GestureRecognized,
		"the UI hears about every recognition, mapped or not")

	clock.advance(200 * time.Millisecond)
	g.HandleFrame("4")
	assert.Empty(t, disp.tokens, "lock arms even when the gesture has no mapping")
}

func TestRecognitionExemptFromLock(t *testing.T) {
	clock := newFakeClock()
	g, disp, _ := newTestGate(clock)

	g.HandleFrame(`{"type":"gesture_recognized","gesture":"right"}`)
	clock.advance(600 * time.Millisecond)
	// Still inside the 1s lock, but recognitions bypass it. The gate
	// debounce window (500ms) has passed for the repeated token.
	g.HandleFrame(`{"type":"gesture_recognized","gesture":"right"}`)

	assert.Equal(t, []string{command.TokenSlideNext, command.TokenSlideNext}, disp.tokens)
}

func TestRecognitionDebounced(t *testing.T) {
	clock := newFakeClock()
	g, disp, _ := newTestGate(clock)

	g.HandleFrame(`{"type":"gesture_recognized","gesture":"left"}`)
	clock.advance(200 * time.Millisecond)
	g.HandleFrame(`{"type":"gesture_recognized","gesture":"left"}`)

	assert.Equal(t, []string{command.TokenSlidePrev}, disp.tokens,
		"duplicate recognition inside the debounce window must not dispatch")
}

func TestStageFramesPublishDirectives(t *testing.T) {
	clock := newFakeClock()
	g, _, hub := newTestGate(clock)

	g.HandleFrame(`{"type":"stage1_detected","duration_ms":1200}`)
	g.HandleFrame(`{"type":"hold_extended","remaining_ms":400}`)
	g.HandleFrame(`{"type":"stage2_cancelled"}`)

	types := directiveTypes(hub)
	assert.Equal(t, []string{events.GestureDetecting, events.GestureHold, events.GestureCancelled}, types)
}

func TestBareTokenForwarding(t *testing.T) {
	clock := newFakeClock()
	g, disp, _ := newTestGate(clock)

	g.HandleFrame("  s  ")
	assert.Equal(t, []string{command.TokenDebugStatus}, disp.tokens)
}

func TestNumericCodeField(t *testing.T) {
	clock := newFakeClock()
	g, disp, _ := newTestGate(clock)

	g.HandleFrame(`{"code":3}`)
	assert.Equal(t, []string{command.TokenSlidePrev}, disp.tokens)
}

func TestRequestRouting(t *testing.T) {
	clock := newFakeClock()
	disp := &recordingDispatcher{}
	reqs := &recordingRequests{}
	hub := events.NewHub(10)
	g := New(Config{Requests: reqs, Now: clock.now}, command.DefaultMapping(), disp, hub)

	g.HandleFrame(`{"type":"summarize_request"}`)
	g.HandleFrame(`{"type":"lookup_request","word":"ephemeral"}`)

	assert.Equal(t, 1, reqs.summarizes)
	assert.Equal(t, []string{"ephemeral"}, reqs.lookups)
	assert.Empty(t, disp.tokens)
}

func TestIgnoredFrames(t *testing.T) {
	clock := newFakeClock()
	g, disp, _ := newTestGate(clock)

	g.HandleFrame("")
	g.HandleFrame(`{"type":"unknown_frame"}`)

	assert.Empty(t, disp.tokens)
}

func TestUnparseableFrameForwardsAsRawToken(t *testing.T) {
	clock := newFakeClock()
	g, disp, _ := newTestGate(clock)

	// Truncated JSON fails the parse and travels the bare-token path; the
	// dispatcher's closed command table is what drops garbage like this.
	g.HandleFrame(`{"type":"gesture_recognized"`)

	assert.Equal(t, []string{`{"type":"gesture_recognized"`}, disp.tokens)
}

func TestConcurrentFrames(t *testing.T) {
	g, disp, _ := newTestGate(newFakeClock())

	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func(n int) {
			defer func() { done <- struct{}{} }()
			g.HandleFrame(fmt.Sprintf(`{"type":"gesture_recognized","gesture":"g%d"}`, n))
		}(i)
	}
	for i := 0; i < 8; i++ {
		<-done
	}

	// Unmapped gestures; the point is that concurrent frames race safely.
	assert.Empty(t, disp.tokens)
}
