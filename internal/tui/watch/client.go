package watch

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"
)

// --- Message types ---

// directive is one decoded UI directive from the daemon broadcast.
type directive struct {
	Type string
	At   time.Time
	Data map[string]any
}

type directiveMsg directive

type healthMsg struct {
	Status string `json:"status"`
}

type tickMsg time.Time

type errMsg error

type wsDisconnectedMsg struct{}
type reconnectMsg struct{}

// connHolder shares the live WebSocket connection between the read-loop
// command and the status-request key handler.
type connHolder struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (h *connHolder) set(c *websocket.Conn) {
	h.mu.Lock()
	h.conn = c
	h.mu.Unlock()
}

func (h *connHolder) write(text string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conn == nil {
		return nil
	}
	_ = h.conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
	return h.conn.WriteMessage(websocket.TextMessage, []byte(text))
}

// --- Commands ---

// subscribeToDirectives dials the daemon's WebSocket ingress and feeds
// decoded directives into the provided channel. Returns wsDisconnectedMsg
// when the connection drops.
func subscribeToDirectives(wsURL string, holder *connHolder, ch chan<- directive) tea.Cmd {
	return func() tea.Msg {
		dialer := websocket.Dialer{HandshakeTimeout: 3 * time.Second}
		conn, _, err := dialer.Dial(wsURL, nil)
		if err != nil {
			return wsDisconnectedMsg{}
		}
		holder.set(conn)
		defer func() {
			holder.set(nil)
			_ = conn.Close()
		}()

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return wsDisconnectedMsg{}
			}

			payload := make(map[string]any)
			if err := json.Unmarshal(data, &payload); err != nil {
				continue
			}
			typ, _ := payload["type"].(string)
			if typ == "" {
				continue
			}
			delete(payload, "type")

			ch <- directive{Type: typ, At: time.Now(), Data: payload}
		}
	}
}

// receiveNextDirective waits for the next directive from the channel.
func receiveNextDirective(ch <-chan directive) tea.Cmd {
	return func() tea.Msg {
		return directiveMsg(<-ch)
	}
}

// fetchHealth queries the daemon's /healthz endpoint.
func fetchHealth(httpURL string) tea.Msg {
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(httpURL + "/healthz")
	if err != nil {
		return errMsg(err)
	}
	defer resp.Body.Close()

	var h healthMsg
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
		return errMsg(err)
	}
	return h
}

// requestStatus asks the daemon for a status snapshot. The reply arrives
// as a showNotice directive on the broadcast stream.
func requestStatus(holder *connHolder) tea.Cmd {
	return func() tea.Msg {
		if err := holder.write("s"); err != nil {
			return errMsg(err)
		}
		return nil
	}
}
