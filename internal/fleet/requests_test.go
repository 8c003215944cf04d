package fleet

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattjoyce/lectern/internal/config"
	"github.com/mattjoyce/lectern/internal/events"
	"github.com/mattjoyce/lectern/internal/session"
)

type fakeSource struct {
	transcripts []session.Transcript
	err         error
}

func (f *fakeSource) Transcripts(context.Context) ([]session.Transcript, error) {
	return f.transcripts, f.err
}

// awaitDirective blocks until the hub delivers a directive of the wanted
// type, skipping unrelated ones.
func awaitDirective(t *testing.T, ch <-chan events.Directive, wantType string) events.Directive {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case d := <-ch:
			if d.Type == wantType {
				return d
			}
		case <-deadline:
			t.Fatalf("no %s directive before timeout", wantType)
		}
	}
}

func TestSummarizeRequestPublishesResult(t *testing.T) {
	base := t.TempDir()
	workers := map[string]config.WorkerConf{
		config.WorkerSummarizer: shWorker(t, base, "summarizer", `
while read line; do echo '{"type":"summary","summary":"three key points"}'; done
`),
	}
	hub := events.NewHub(10)
	m := New(&config.Config{Workers: workers}, base, hub, nil, nil)
	t.Cleanup(m.StopAll)

	m.StartWorker(config.WorkerSummarizer)
	waitFor(t, 2*time.Second, func() bool { return m.IsWorkerRunning(config.WorkerSummarizer) })

	source := &fakeSource{transcripts: []session.Transcript{
		{Speaker: "presenter", Text: "hello", Timestamp: "2026-03-01T10:00:00Z"},
	}}
	r := NewResponder(m, source, hub)

	ch, cancel := hub.Subscribe()
	defer cancel()

	r.HandleSummarizeRequest()

	d := awaitDirective(t, ch, events.SummaryResult)
	var payload map[string]any
	require.NoError(t, json.Unmarshal(d.Data, &payload))
	assert.Equal(t, "three key points", payload["summary"])
}

func TestSummarizeRequestSourceError(t *testing.T) {
	hub := events.NewHub(10)
	m := New(&config.Config{Workers: map[string]config.WorkerConf{}}, t.TempDir(), hub, nil, nil)
	t.Cleanup(m.StopAll)

	r := NewResponder(m, &fakeSource{err: errors.New("db closed")}, hub)

	ch, cancel := hub.Subscribe()
	defer cancel()

	r.HandleSummarizeRequest()

	d := awaitDirective(t, ch, events.SummaryResult)
	var payload map[string]any
	require.NoError(t, json.Unmarshal(d.Data, &payload))
	assert.Equal(t, "db closed", payload["error"])
}

func TestSummarizeRequestWorkerUnavailable(t *testing.T) {
	hub := events.NewHub(10)
	m := New(&config.Config{Workers: map[string]config.WorkerConf{}}, t.TempDir(), hub, nil, nil)
	t.Cleanup(m.StopAll)

	// No source and no summarizer: the request still answers, with an error.
	r := NewResponder(m, nil, hub)

	ch, cancel := hub.Subscribe()
	defer cancel()

	r.HandleSummarizeRequest()

	d := awaitDirective(t, ch, events.SummaryResult)
	var payload map[string]any
	require.NoError(t, json.Unmarshal(d.Data, &payload))
	assert.NotEmpty(t, payload["error"])
}

func TestLookupRequestPublishesDefinition(t *testing.T) {
	base := t.TempDir()
	workers := map[string]config.WorkerConf{
		config.WorkerDictionary: shWorker(t, base, "dictionary", `
while read line; do echo '{"type":"definition","word":"latency","definitions":["delay before transfer begins"]}'; done
`),
	}
	hub := events.NewHub(10)
	m := New(&config.Config{Workers: workers}, base, hub, nil, nil)
	t.Cleanup(m.StopAll)

	m.StartWorker(config.WorkerDictionary)
	waitFor(t, 2*time.Second, func() bool { return m.IsWorkerRunning(config.WorkerDictionary) })

	r := NewResponder(m, nil, hub)

	ch, cancel := hub.Subscribe()
	defer cancel()

	r.HandleLookupRequest("latency")

	d := awaitDirective(t, ch, events.WordDefinition)
	var def Definition
	require.NoError(t, json.Unmarshal(d.Data, &def))
	assert.Equal(t, "latency", def.Word)
	require.Len(t, def.Definitions, 1)
	assert.Equal(t, "delay before transfer begins", def.Definitions[0])
}

func TestLookupRequestEmptyWordIgnored(t *testing.T) {
	hub := events.NewHub(10)
	m := New(&config.Config{Workers: map[string]config.WorkerConf{}}, t.TempDir(), hub, nil, nil)
	t.Cleanup(m.StopAll)

	r := NewResponder(m, nil, hub)

	ch, cancel := hub.Subscribe()
	defer cancel()

	r.HandleLookupRequest("")

	select {
	case d := <-ch:
		t.Fatalf("unexpected directive %s", d.Type)
	case <-time.After(100 * time.Millisecond):
	}
}
