package fleet

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mattjoyce/lectern/internal/config"
)

// Pending-call queues are keyed by worker kind.
const (
	workerSummarizerKey = config.WorkerSummarizer
	workerDictionaryKey = config.WorkerDictionary
)

// Conversation is one utterance in the session transcript sent to the
// summarizer.
type Conversation struct {
	Speaker   string `json:"speaker"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp,omitempty"`
}

// Definition is the dictionary worker's reply. A failed or timed-out
// lookup is still a Definition with Error set, not a Go error: the UI
// renders both the same way.
type Definition struct {
	Word        string   `json:"word"`
	Definitions []string `json:"definitions,omitempty"`
	Error       string   `json:"error,omitempty"`
}

// Summarize writes a correlated summarize request and waits for the next
// summary reply. Replies are matched FIFO: the worker answers requests in
// order. Rejects with an error on timeout, context cancellation, or worker
// exit.
func (m *Manager) Summarize(ctx context.Context, conversations []Conversation) (string, error) {
	timeout := m.requestTimeout(config.WorkerSummarizer, 60*time.Second)

	call := m.enqueuePending(workerSummarizerKey)
	req := map[string]any{
		"type":          "summarize",
		"request_id":    call.id,
		"conversations": conversations,
	}
	if err := m.SendWorker(config.WorkerSummarizer, req); err != nil {
		m.removePending(workerSummarizerKey, call)
		return "", err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-call.ch:
		if res.err != nil {
			return "", res.err
		}
		var msg struct {
			Summary string `json:"summary"`
		}
		if err := json.Unmarshal(res.payload, &msg); err != nil {
			return "", fmt.Errorf("malformed summary reply: %w", err)
		}
		return msg.Summary, nil
	case <-timer.C:
		m.removePending(workerSummarizerKey, call)
		return "", fmt.Errorf("summarize timed out after %s", timeout)
	case <-ctx.Done():
		m.removePending(workerSummarizerKey, call)
		return "", ctx.Err()
	}
}

// Lookup writes a correlated dictionary lookup and waits for the next
// definition reply. Unlike Summarize, a timeout resolves with a Definition
// carrying Error="Timeout" instead of rejecting; callers always get a
// renderable result.
func (m *Manager) Lookup(ctx context.Context, word string) (Definition, error) {
	timeout := m.requestTimeout(config.WorkerDictionary, 10*time.Second)

	call := m.enqueuePending(workerDictionaryKey)
	req := map[string]any{
		"type":       "lookup",
		"request_id": call.id,
		"word":       word,
	}
	if err := m.SendWorker(config.WorkerDictionary, req); err != nil {
		m.removePending(workerDictionaryKey, call)
		return Definition{}, err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-call.ch:
		if res.err != nil {
			return Definition{}, res.err
		}
		var def Definition
		if err := json.Unmarshal(res.payload, &def); err != nil {
			return Definition{}, fmt.Errorf("malformed definition reply: %w", err)
		}
		if def.Word == "" {
			def.Word = word
		}
		return def, nil
	case <-timer.C:
		m.removePending(workerDictionaryKey, call)
		return Definition{Word: word, Error: "Timeout"}, nil
	case <-ctx.Done():
		m.removePending(workerDictionaryKey, call)
		return Definition{}, ctx.Err()
	}
}

func (m *Manager) requestTimeout(kind string, fallback time.Duration) time.Duration {
	if wc, ok := m.cfg.Workers[kind]; ok && wc.RequestTimeout > 0 {
		return wc.RequestTimeout
	}
	return fallback
}

// enqueuePending appends a new pending call to kind's FIFO queue.
func (m *Manager) enqueuePending(kind string) *pendingCall {
	call := &pendingCall{
		id: uuid.NewString(),
		ch: make(chan callResult, 1),
	}
	m.mu.Lock()
	m.pending[kind] = append(m.pending[kind], call)
	m.mu.Unlock()
	return call
}

// resolveOldest pops the oldest pending call for kind and delivers the
// payload. Returns false when nothing was waiting.
func (m *Manager) resolveOldest(kind string, payload json.RawMessage) bool {
	m.mu.Lock()
	queue := m.pending[kind]
	if len(queue) == 0 {
		m.mu.Unlock()
		return false
	}
	call := queue[0]
	m.pending[kind] = queue[1:]
	m.mu.Unlock()

	call.ch <- callResult{payload: payload}
	return true
}

// removePending drops a specific call (timeout or cancellation path).
func (m *Manager) removePending(kind string, target *pendingCall) {
	m.mu.Lock()
	queue := m.pending[kind]
	for i, call := range queue {
		if call == target {
			m.pending[kind] = append(queue[:i:i], queue[i+1:]...)
			break
		}
	}
	m.mu.Unlock()
}

// failPending rejects every in-flight call for kind. Invoked from the
// handle's exit callback.
func (m *Manager) failPending(kind string, err error) {
	m.mu.Lock()
	queue := m.pending[kind]
	m.pending[kind] = nil
	m.mu.Unlock()

	for _, call := range queue {
		call.ch <- callResult{err: err}
	}
	if len(queue) > 0 {
		m.logger.Warn("rejected in-flight requests", "kind", kind, "count", len(queue), "error", err)
	}
}
