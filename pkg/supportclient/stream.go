package supportclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Frame types sent by the server.
const (
	FrameHello            = "hello"
	FrameMessage          = "message"
	FrameAck              = "ack"
	FrameAIMeta           = "ai_meta"
	FrameHandoffRequested = "handoff_requested"
	FrameThreadUpdated    = "thread_updated"
	FrameError            = "error"
)

type Frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Message decodes the payload of a message frame.
func (f Frame) Message() (Message, error) {
	var env messageEnvelope
	if err := json.Unmarshal(f.Data, &env); err != nil {
		return Message{}, err
	}
	return env.Message, nil
}

// Thread decodes the payload of hello, handoff_requested and thread_updated frames.
func (f Frame) Thread() (Thread, error) {
	var env threadEnvelope
	if err := json.Unmarshal(f.Data, &env); err != nil {
		return Thread{}, err
	}
	return env.Thread, nil
}

// Stream is a thread's WebSocket channel. Delivery is best effort; the
// message log stays authoritative.
type Stream struct {
	conn *websocket.Conn
	wmu  sync.Mutex
}

// OpenThreadStream connects to a thread's socket. With afterSeq set the server
// first replays every message after it.
func (c *Client) OpenThreadStream(ctx context.Context, threadID uuid.UUID, afterSeq *int64) (*Stream, error) {
	return c.openStream(ctx, "/api/chat/threads/"+threadID.String()+"/ws", afterSeq)
}

// OpenQueueStream connects to the admin queue socket.
func (c *Client) OpenQueueStream(ctx context.Context) (*Stream, error) {
	return c.openStream(ctx, "/api/admin/chat/ws", nil)
}

func (c *Client) openStream(ctx context.Context, path string, afterSeq *int64) (*Stream, error) {
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return nil, fmt.Errorf("supportclient: stream url: %w", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	q := u.Query()
	if afterSeq != nil {
		q.Set("after_seq", strconv.FormatInt(*afterSeq, 10))
	}
	u.RawQuery = q.Encode()

	header := http.Header{}
	if c.token != "" {
		header.Set("Authorization", "Bearer "+c.token)
	}
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), header)
	if err != nil {
		if resp != nil {
			var env errorEnvelope
			_ = json.NewDecoder(resp.Body).Decode(&env)
			_ = resp.Body.Close()
			return nil, statusError(resp.StatusCode, &env, resp.Status)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &TransientNetworkError{Err: err}
	}
	return &Stream{conn: conn}, nil
}

// Read blocks for the next frame.
func (s *Stream) Read() (Frame, error) {
	var f Frame
	if err := s.conn.ReadJSON(&f); err != nil {
		return Frame{}, err
	}
	return f, nil
}

// Send posts a message over the socket; the server answers with an ack frame.
func (s *Stream) Send(text, clientID string) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	return s.conn.WriteJSON(map[string]string{"type": FrameMessage, "text": text, "client_id": clientID})
}

func (s *Stream) Close() error {
	s.wmu.Lock()
	_ = s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	s.wmu.Unlock()
	return s.conn.Close()
}
