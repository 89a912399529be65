package realtime

import (
	"encoding/json"

	"github.com/google/uuid"
)

type FrameType string

const (
	FrameHello            FrameType = "hello"
	FrameMessage          FrameType = "message"
	FrameAck              FrameType = "ack"
	FrameAIMeta           FrameType = "ai_meta"
	FrameHandoffRequested FrameType = "handoff_requested"
	FrameThreadUpdated    FrameType = "thread_updated"
	FrameError            FrameType = "error"
)

// AdminRoom receives queue-level frames for every thread.
const AdminRoom = "admin"

func ThreadRoom(threadID uuid.UUID) string { return "thread:" + threadID.String() }

// Frame is a server to client message.
type Frame struct {
	Type FrameType `json:"type"`
	Data any       `json:"data,omitempty"`
}

// Envelope routes a frame to a room; it is what travels over the bus.
type Envelope struct {
	Room  string `json:"room"`
	Frame Frame  `json:"frame"`
}

// ClientFrame is the only frame a client may send: {"type":"message","text":"...","client_id":"..."}.
type ClientFrame struct {
	Type     FrameType `json:"type"`
	Text     string    `json:"text"`
	ClientID string    `json:"client_id"`
}

type AckData struct {
	ClientID  string    `json:"client_id,omitempty"`
	MessageID uuid.UUID `json:"message_id"`
	Seq       int64     `json:"seq"`
}

type AIMetaData struct {
	ThreadID  uuid.UUID `json:"thread_id"`
	MessageID uuid.UUID `json:"message_id"`
	Provider  string    `json:"provider"`
	Model     string    `json:"model,omitempty"`
}

type ErrorData struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

func ErrorFrame(code string, err error) Frame {
	msg := code
	if err != nil {
		msg = err.Error()
	}
	return Frame{Type: FrameError, Data: ErrorData{Code: code, Error: msg}}
}

func (f Frame) Encode() ([]byte, error) {
	return json.Marshal(f)
}
