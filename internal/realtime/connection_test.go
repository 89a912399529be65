package realtime

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/yungbote/supportchat-backend/internal/pkg/logger"
)

func TestConnectionRoundTrip(t *testing.T) {
	defer goleak.VerifyNone(t)

	upgrader := websocket.Upgrader{}
	serverDone := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer close(serverDone)
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn := NewConnection(ws, uuid.New(), "user", logger.NewNop())
		conn.Start()
		_ = conn.SendFrame(Frame{Type: FrameHello})
		_ = conn.ReadLoop(func(f ClientFrame) {
			if f.Type != FrameMessage {
				_ = conn.SendFrame(ErrorFrame("unsupported_frame", nil))
				return
			}
			_ = conn.SendFrame(Frame{Type: FrameAck, Data: AckData{ClientID: f.ClientID, Seq: 1}})
		})
		conn.Close(websocket.CloseNormalClosure, "bye")
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	var hello Frame
	require.NoError(t, client.ReadJSON(&hello))
	assert.Equal(t, FrameHello, hello.Type)

	require.NoError(t, client.WriteJSON(ClientFrame{Type: FrameMessage, Text: "hi", ClientID: "c-1"}))
	var ack Frame
	require.NoError(t, client.ReadJSON(&ack))
	assert.Equal(t, FrameAck, ack.Type)
	data, ok := ack.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "c-1", data["client_id"])

	require.NoError(t, client.WriteMessage(websocket.TextMessage, []byte("{not json")))
	var bad Frame
	require.NoError(t, client.ReadJSON(&bad))
	assert.Equal(t, FrameError, bad.Type)

	_ = client.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	_ = client.Close()

	select {
	case <-serverDone:
	case <-time.After(2 * time.Second):
		t.Fatalf("server handler did not exit")
	}
}
