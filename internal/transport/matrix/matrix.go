// ABOUTME: Matrix implementation of the transport contract
// ABOUTME: Maps remote users to direct rooms and feeds inbound text to the handler

package matrix

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"github.com/pedronas2222/wa-nasohub-bot/internal/transport"
)

// networkTimeout bounds individual Matrix API calls.
const networkTimeout = 10 * time.Second

// sendTimeout is longer since message and media sends can be large.
const sendTimeout = 30 * time.Second

// Config holds the Matrix session credentials.
type Config struct {
	Homeserver  string
	UserID      string
	AccessToken string
	// ServerName is the domain used when deriving user addresses from
	// bare phone numbers. Defaults to the homeserver's domain part of
	// UserID when empty.
	ServerName string
}

// Transport is a Matrix-backed chat transport. A remote user is addressed
// by their Matrix user ID; each user gets one direct room, created lazily
// on first outbound send and remembered from inbound traffic.
type Transport struct {
	client  *mautrix.Client
	handler transport.Handler
	logger  *slog.Logger

	userID     id.UserID
	serverName string

	ready atomic.Bool

	mu    sync.Mutex
	rooms map[id.UserID]id.RoomID // direct room per remote user
}

// New creates the transport. The handler receives lifecycle and message
// events once Start is running.
func New(cfg Config, handler transport.Handler, logger *slog.Logger) (*Transport, error) {
	client, err := mautrix.NewClient(cfg.Homeserver, id.UserID(cfg.UserID), cfg.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("creating matrix client: %w", err)
	}

	serverName := cfg.ServerName
	if serverName == "" {
		serverName = id.UserID(cfg.UserID).Homeserver()
	}

	return &Transport{
		client:     client,
		handler:    handler,
		logger:     logger.With("component", "matrix"),
		userID:     id.UserID(cfg.UserID),
		serverName: serverName,
		rooms:      make(map[id.UserID]id.RoomID),
	}, nil
}

// Start runs the sync loop until ctx is cancelled. It blocks.
func (t *Transport) Start(ctx context.Context) error {
	t.logger.Info("starting matrix transport",
		"homeserver", t.client.HomeserverURL.String(),
		"user_id", t.userID.String(),
	)

	syncer, ok := t.client.Syncer.(*mautrix.DefaultSyncer)
	if !ok {
		return fmt.Errorf("unexpected syncer type: %T", t.client.Syncer)
	}
	syncer.OnEventType(event.EventMessage, t.handleMessageEvent)
	syncer.OnSync(t.handleSync)

	t.handler.HandleAuthenticated()

	syncErr := make(chan error, 1)
	go func() {
		syncErr <- t.client.SyncWithContext(ctx)
	}()

	select {
	case <-ctx.Done():
		t.logger.Info("shutting down matrix transport")
		t.ready.Store(false)
		return nil
	case err := <-syncErr:
		t.ready.Store(false)
		if err != nil && !errors.Is(err, context.Canceled) {
			t.handler.HandleDisconnected(err.Error())
			return fmt.Errorf("matrix sync failed: %w", err)
		}
		return nil
	}
}

// Ready reports whether the first sync completed.
func (t *Transport) Ready() bool {
	return t.ready.Load()
}

// handleSync marks the session ready after the first successful sync.
func (t *Transport) handleSync(ctx context.Context, resp *mautrix.RespSync, since string) bool {
	if t.ready.CompareAndSwap(false, true) {
		t.logger.Info("matrix session established")
		t.handler.HandleReady()
	}
	return true
}

// handleMessageEvent feeds inbound text messages to the handler.
func (t *Transport) handleMessageEvent(ctx context.Context, evt *event.Event) {
	// Ignore our own messages
	if evt.Sender == t.userID {
		return
	}

	content, ok := evt.Content.Parsed.(*event.MessageEventContent)
	if !ok {
		return
	}
	if content.MsgType != event.MsgText {
		return
	}

	// Remember the room so outbound replies reuse it.
	t.mu.Lock()
	t.rooms[evt.Sender] = evt.RoomID
	t.mu.Unlock()

	t.handler.HandleMessage(transport.InboundMessage{
		SenderID:  evt.Sender.String(),
		MessageID: evt.ID.String(),
		Body:      content.Body,
	})
}

// SendText delivers a text message to the user's direct room.
func (t *Transport) SendText(ctx context.Context, chatID, text string) error {
	roomID, err := t.roomFor(ctx, id.UserID(chatID))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	if _, err := t.client.SendText(ctx, roomID, text); err != nil {
		return fmt.Errorf("sending to %s: %w", chatID, err)
	}
	return nil
}

// SendFile uploads the attachment and posts it to the user's direct room.
func (t *Transport) SendFile(ctx context.Context, chatID string, file transport.File) error {
	roomID, err := t.roomFor(ctx, id.UserID(chatID))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	upload, err := t.client.UploadBytes(ctx, file.Data, file.MimeType)
	if err != nil {
		return fmt.Errorf("uploading %s: %w", file.Name, err)
	}

	content := event.MessageEventContent{
		MsgType: event.MsgFile,
		Body:    file.Name,
		URL:     upload.ContentURI.CUString(),
		Info: &event.FileInfo{
			MimeType: file.MimeType,
			Size:     len(file.Data),
		},
	}
	if strings.HasPrefix(file.MimeType, "image/") {
		content.MsgType = event.MsgImage
	}

	if _, err := t.client.SendMessageEvent(ctx, roomID, event.EventMessage, &content); err != nil {
		return fmt.Errorf("sending file to %s: %w", chatID, err)
	}
	return nil
}

// Contact looks up the remote user's profile.
func (t *Transport) Contact(ctx context.Context, userID string) (transport.Contact, error) {
	ctx, cancel := context.WithTimeout(ctx, networkTimeout)
	defer cancel()

	profile, err := t.client.GetProfile(ctx, id.UserID(userID))
	if err != nil {
		return transport.Contact{}, fmt.Errorf("profile lookup for %s: %w", userID, err)
	}
	return transport.Contact{
		DisplayName: profile.DisplayName,
		AvatarURL:   profile.AvatarURL.String(),
	}, nil
}

// IsRegistered reports whether the address resolves to a known user.
func (t *Transport) IsRegistered(ctx context.Context, chatID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, networkTimeout)
	defer cancel()

	_, err := t.client.GetProfile(ctx, id.UserID(chatID))
	if err != nil {
		if errors.Is(err, mautrix.MNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("checking %s: %w", chatID, err)
	}
	return true, nil
}

// AddressFromNumber builds a user ID from a bare phone number.
func (t *Transport) AddressFromNumber(digits string) string {
	return fmt.Sprintf("@%s:%s", digits, t.serverName)
}

// roomFor returns the direct room for a user, creating one on first use.
func (t *Transport) roomFor(ctx context.Context, userID id.UserID) (id.RoomID, error) {
	t.mu.Lock()
	roomID, ok := t.rooms[userID]
	t.mu.Unlock()
	if ok {
		return roomID, nil
	}

	ctx, cancel := context.WithTimeout(ctx, networkTimeout)
	defer cancel()

	resp, err := t.client.CreateRoom(ctx, &mautrix.ReqCreateRoom{
		Invite:   []id.UserID{userID},
		IsDirect: true,
		Preset:   "trusted_private_chat",
	})
	if err != nil {
		return "", fmt.Errorf("creating direct room with %s: %w", userID, err)
	}

	t.mu.Lock()
	t.rooms[userID] = resp.RoomID
	t.mu.Unlock()

	t.logger.Info("created direct room", "user", userID.String(), "room", resp.RoomID.String())
	return resp.RoomID, nil
}
