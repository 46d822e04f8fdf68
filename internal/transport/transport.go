// ABOUTME: Transport abstraction between the gateway and the external chat network
// ABOUTME: Defines the outbound send surface and the inbound event handler contract

package transport

import "context"

// InboundMessage is a message received from the chat network, normalized
// before it enters the ingest pipeline.
type InboundMessage struct {
	// SenderID identifies the remote user; it doubles as the chat ID.
	SenderID string
	// MessageID is the transport's delivery ID, used for dedupe. May be
	// empty when the transport does not assign one.
	MessageID string
	Body      string
}

// Contact is the profile the transport knows for a remote user.
type Contact struct {
	DisplayName string
	AvatarURL   string
}

// File is an outbound attachment.
type File struct {
	Name     string
	MimeType string
	Data     []byte
}

// Handler receives lifecycle and message events from a running transport.
// Implementations must not block: transports call these from their receive
// loop and slow handlers stall delivery.
type Handler interface {
	// HandlePairing is invoked when the transport needs out-of-band
	// pairing to authenticate, carrying the pairing payload (a QR code
	// string or login URL depending on the network).
	HandlePairing(payload string)

	// HandleAuthenticated is invoked once credentials are accepted.
	HandleAuthenticated()

	// HandleReady is invoked when the session is fully established and
	// sends will succeed.
	HandleReady()

	// HandleDisconnected is invoked when the session drops, with the
	// transport's reason string.
	HandleDisconnected(reason string)

	// HandleMessage is invoked for every inbound message from a remote
	// user. Messages originated by the gateway itself are filtered out
	// by the transport before this is called.
	HandleMessage(msg InboundMessage)
}

// Transport is a connection to an external chat network.
type Transport interface {
	// Start connects and runs the receive loop until ctx is cancelled.
	// It blocks; run it in its own goroutine.
	Start(ctx context.Context) error

	// Ready reports whether the session is established.
	Ready() bool

	// SendText delivers a text message to a chat.
	SendText(ctx context.Context, chatID, text string) error

	// SendFile delivers a file attachment to a chat.
	SendFile(ctx context.Context, chatID string, file File) error

	// Contact looks up the profile for a remote user. Implementations
	// return a zero Contact and an error when the lookup fails; callers
	// fall back to a default display name.
	Contact(ctx context.Context, userID string) (Contact, error)

	// IsRegistered reports whether an address is reachable on the
	// network. Used to validate dispatch targets before sending.
	IsRegistered(ctx context.Context, chatID string) (bool, error)

	// AddressFromNumber converts a bare phone number (digits only) into
	// the network's chat address form.
	AddressFromNumber(digits string) string
}
