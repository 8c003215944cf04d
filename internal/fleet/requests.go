package fleet

import (
	"context"
	"log/slog"

	"github.com/mattjoyce/lectern/internal/events"
	"github.com/mattjoyce/lectern/internal/log"
	"github.com/mattjoyce/lectern/internal/session"
)

// TranscriptSource provides the session's archived utterances for
// summarization. The session store implements it.
type TranscriptSource interface {
	Transcripts(ctx context.Context) ([]session.Transcript, error)
}

// Responder serves client-originated summarize and lookup requests. The
// gate hands requests over; results come back to the clients as UI
// directives on the hub. Each request runs on its own goroutine so the
// frame path never waits on a worker.
type Responder struct {
	fleet  *Manager
	source TranscriptSource
	ui     *events.Hub
	logger *slog.Logger
}

// NewResponder builds a responder. source may be nil, in which case
// summarize requests answer with an empty transcript.
func NewResponder(fleet *Manager, source TranscriptSource, ui *events.Hub) *Responder {
	return &Responder{
		fleet:  fleet,
		source: source,
		ui:     ui,
		logger: log.WithComponent("responder"),
	}
}

// HandleSummarizeRequest pulls the session transcript and asks the
// summarizer for a summary of it.
func (r *Responder) HandleSummarizeRequest() {
	go func() {
		ctx := context.Background()

		var conversations []Conversation
		if r.source != nil {
			transcripts, err := r.source.Transcripts(ctx)
			if err != nil {
				r.logger.Error("failed to load session transcript", "error", err)
				r.ui.Publish(events.SummaryResult, map[string]any{"error": err.Error()})
				return
			}
			for _, t := range transcripts {
				conversations = append(conversations, Conversation{
					Speaker:   t.Speaker,
					Text:      t.Text,
					Timestamp: t.Timestamp,
				})
			}
		}

		summary, err := r.fleet.Summarize(ctx, conversations)
		if err != nil {
			r.logger.Warn("summarize failed", "error", err)
			r.ui.Publish(events.SummaryResult, map[string]any{"error": err.Error()})
			return
		}
		r.ui.Publish(events.SummaryResult, map[string]any{"summary": summary})
	}()
}

// HandleLookupRequest asks the dictionary worker for a definition. The
// dictionary contract folds timeouts into the Definition payload, so the
// UI always gets a wordDefinition directive.
func (r *Responder) HandleLookupRequest(word string) {
	if word == "" {
		return
	}
	go func() {
		def, err := r.fleet.Lookup(context.Background(), word)
		if err != nil {
			r.logger.Warn("lookup failed", "word", word, "error", err)
			r.ui.Publish(events.WordDefinition, Definition{Word: word, Error: err.Error()})
			return
		}
		r.ui.Publish(events.WordDefinition, def)
	}()
}
