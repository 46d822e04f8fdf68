// ABOUTME: Tests for the Matrix transport adapter
// ABOUTME: Covers addressing, inbound event filtering, and readiness transitions

package matrix

import (
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"github.com/pedronas2222/wa-nasohub-bot/internal/transport"
)

type recordingHandler struct {
	mu       sync.Mutex
	messages []transport.InboundMessage
	ready    int
}

func (h *recordingHandler) HandlePairing(payload string) {}
func (h *recordingHandler) HandleAuthenticated()         {}

func (h *recordingHandler) HandleReady() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ready++
}

func (h *recordingHandler) HandleDisconnected(reason string) {}

func (h *recordingHandler) HandleMessage(msg transport.InboundMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, msg)
}

func newTestTransport(t *testing.T, handler transport.Handler) *Transport {
	t.Helper()
	tr, err := New(Config{
		Homeserver:  "https://example.org",
		UserID:      "@nasohub:example.org",
		AccessToken: "test-token",
	}, handler, slog.Default())
	require.NoError(t, err)
	return tr
}

func textEvent(sender id.UserID, room id.RoomID, body string) *event.Event {
	return &event.Event{
		Sender: sender,
		RoomID: room,
		ID:     id.EventID("$evt1"),
		Content: event.Content{
			Parsed: &event.MessageEventContent{
				MsgType: event.MsgText,
				Body:    body,
			},
		},
	}
}

func TestAddressFromNumber_UsesServerName(t *testing.T) {
	tr := newTestTransport(t, &recordingHandler{})
	assert.Equal(t, "@5511999999999:example.org", tr.AddressFromNumber("5511999999999"))
}

func TestAddressFromNumber_ExplicitServerName(t *testing.T) {
	tr, err := New(Config{
		Homeserver:  "https://example.org",
		UserID:      "@nasohub:example.org",
		AccessToken: "test-token",
		ServerName:  "chat.example.org",
	}, &recordingHandler{}, slog.Default())
	require.NoError(t, err)

	assert.Equal(t, "@55119:chat.example.org", tr.AddressFromNumber("55119"))
}

func TestHandleMessageEvent_ForwardsInboundText(t *testing.T) {
	handler := &recordingHandler{}
	tr := newTestTransport(t, handler)

	tr.handleMessageEvent(t.Context(), textEvent("@maria:example.org", "!room:example.org", "oi"))

	require.Len(t, handler.messages, 1)
	assert.Equal(t, "@maria:example.org", handler.messages[0].SenderID)
	assert.Equal(t, "oi", handler.messages[0].Body)
	assert.Equal(t, "$evt1", handler.messages[0].MessageID)
}

func TestHandleMessageEvent_IgnoresOwnMessages(t *testing.T) {
	handler := &recordingHandler{}
	tr := newTestTransport(t, handler)

	tr.handleMessageEvent(t.Context(), textEvent("@nasohub:example.org", "!room:example.org", "echo"))

	assert.Empty(t, handler.messages)
}

func TestHandleMessageEvent_IgnoresNonText(t *testing.T) {
	handler := &recordingHandler{}
	tr := newTestTransport(t, handler)

	evt := textEvent("@maria:example.org", "!room:example.org", "photo.jpg")
	evt.Content.Parsed.(*event.MessageEventContent).MsgType = event.MsgImage
	tr.handleMessageEvent(t.Context(), evt)

	assert.Empty(t, handler.messages)
}

func TestHandleMessageEvent_RemembersRoomForReplies(t *testing.T) {
	handler := &recordingHandler{}
	tr := newTestTransport(t, handler)

	tr.handleMessageEvent(t.Context(), textEvent("@maria:example.org", "!room:example.org", "oi"))

	tr.mu.Lock()
	defer tr.mu.Unlock()
	assert.Equal(t, id.RoomID("!room:example.org"), tr.rooms[id.UserID("@maria:example.org")])
}

func TestHandleSync_MarksReadyOnce(t *testing.T) {
	handler := &recordingHandler{}
	tr := newTestTransport(t, handler)

	assert.False(t, tr.Ready())

	tr.handleSync(t.Context(), nil, "")
	tr.handleSync(t.Context(), nil, "s1")

	assert.True(t, tr.Ready())
	handler.mu.Lock()
	defer handler.mu.Unlock()
	assert.Equal(t, 1, handler.ready)
}
