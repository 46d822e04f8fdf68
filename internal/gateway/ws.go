// ABOUTME: WebSocket endpoint for dashboard subscribers
// ABOUTME: Pushes relay events and accepts history queries and manual sends

package gateway

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/coder/websocket"

	"github.com/pedronas2222/wa-nasohub-bot/internal/relay"
	"github.com/pedronas2222/wa-nasohub-bot/internal/transport"
)

// Subscriber-initiated event names.
const (
	eventGetMessages = "getMessages"
	eventSendMessage = "sendMessage"
	eventSendFile    = "sendFile"
)

// Server-initiated event names not covered by the relay bus.
const (
	eventChats    = "chats"
	eventMessages = "messages"
)

// wsFrame is one inbound frame from a subscriber.
type wsFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// sendMessagePayload is the data for a sendMessage frame.
type sendMessagePayload struct {
	To      string `json:"to"`
	Message string `json:"message"`
}

// sendFilePayload is the data for a sendFile frame. File carries a
// data-URI-style payload: everything after the first comma is base64.
type sendFilePayload struct {
	To       string `json:"to"`
	File     string `json:"file"`
	FileName string `json:"fileName"`
	FileType string `json:"fileType"`
}

// handleSubscriber handles GET /ws requests.
// Each connection gets the current chat list immediately, then a live feed
// of relay events. Inbound frames let the subscriber query history and send
// messages or files through the transport.
func (g *Gateway) handleSubscriber(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		g.logger.Error("websocket accept failed", "error", err)
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "session ended")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	g.logger.Info("subscriber connected", "remote", r.RemoteAddr)

	// Snapshot first so the subscriber starts from the full chat list.
	if err := writeEvent(ctx, conn, relay.Event{Name: eventChats, Data: g.store.ListChats()}); err != nil {
		g.logger.Debug("failed to send chat snapshot", "error", err)
		return
	}

	events, _ := g.bus.Subscribe(ctx)

	go func() {
		defer cancel()
		for evt := range events {
			if err := writeEvent(ctx, conn, evt); err != nil {
				g.logger.Debug("subscriber write failed", "error", err)
				return
			}
		}
	}()

	g.readLoop(ctx, conn)
	g.logger.Info("subscriber disconnected", "remote", r.RemoteAddr)
}

// readLoop processes inbound frames until the connection drops.
func (g *Gateway) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == -1 && !errors.Is(err, context.Canceled) {
				g.logger.Debug("subscriber read failed", "error", err)
			}
			return
		}

		var frame wsFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			g.logger.Debug("malformed subscriber frame", "error", err)
			continue
		}

		switch frame.Event {
		case eventGetMessages:
			g.handleGetMessages(ctx, conn, frame.Data)
		case eventSendMessage:
			g.handleSubscriberSend(ctx, frame.Data)
		case eventSendFile:
			g.handleSubscriberSendFile(ctx, frame.Data)
		default:
			g.logger.Debug("unknown subscriber event", "event", frame.Event)
		}
	}
}

// handleGetMessages replies with the requested chat's ordered history.
func (g *Gateway) handleGetMessages(ctx context.Context, conn *websocket.Conn, data json.RawMessage) {
	var chatID string
	if err := json.Unmarshal(data, &chatID); err != nil {
		g.logger.Debug("malformed getMessages payload", "error", err)
		return
	}

	evt := relay.Event{Name: eventMessages, Data: g.store.History(chatID)}
	if err := writeEvent(ctx, conn, evt); err != nil {
		g.logger.Debug("failed to send history", "chat", chatID, "error", err)
	}
}

// handleSubscriberSend delegates a manual text send to the transport.
// Best-effort: failures are logged, not reported back.
func (g *Gateway) handleSubscriberSend(ctx context.Context, data json.RawMessage) {
	var payload sendMessagePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		g.logger.Debug("malformed sendMessage payload", "error", err)
		return
	}

	if err := g.transport.SendText(ctx, payload.To, payload.Message); err != nil {
		g.logger.Error("erro ao enviar mensagem", "chat", payload.To, "error", err)
		return
	}
	g.logger.Info("mensagem enviada", "chat", payload.To)
}

// handleSubscriberSendFile decodes the data-URI payload and delegates a
// file send to the transport. Best-effort like handleSubscriberSend.
func (g *Gateway) handleSubscriberSendFile(ctx context.Context, data json.RawMessage) {
	var payload sendFilePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		g.logger.Debug("malformed sendFile payload", "error", err)
		return
	}

	content, err := decodeDataURI(payload.File)
	if err != nil {
		g.logger.Error("erro ao decodificar arquivo", "chat", payload.To, "error", err)
		return
	}

	file := transport.File{
		Name:     payload.FileName,
		MimeType: payload.FileType,
		Data:     content,
	}
	if err := g.transport.SendFile(ctx, payload.To, file); err != nil {
		g.logger.Error("erro ao enviar arquivo", "chat", payload.To, "error", err)
		return
	}
	g.logger.Info("arquivo enviado", "chat", payload.To)
}

// decodeDataURI extracts and decodes the base64 content after the first
// comma of a data-URI-style payload.
func decodeDataURI(s string) ([]byte, error) {
	_, encoded, found := strings.Cut(s, ",")
	if !found {
		return nil, errors.New("missing data-URI separator")
	}
	return base64.StdEncoding.DecodeString(encoded)
}

// writeEvent marshals and writes one event frame to the connection.
func writeEvent(ctx context.Context, conn *websocket.Conn, evt relay.Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, data)
}
