// ABOUTME: Inbound message pipeline from the transport to the dialogue engine
// ABOUTME: Serializes per-user processing and emits ledger events to the bus

package relay

import (
	"context"
	"log/slog"
	"sync"

	"github.com/pedronas2222/wa-nasohub-bot/internal/dedupe"
	"github.com/pedronas2222/wa-nasohub-bot/internal/flow"
	"github.com/pedronas2222/wa-nasohub-bot/internal/store"
	"github.com/pedronas2222/wa-nasohub-bot/internal/transport"
)

// userQueueSize is the per-user inbound buffer. A user flooding messages
// faster than the pipeline drains them gets backpressure on the transport
// receive path rather than unbounded memory growth.
const userQueueSize = 32

// defaultDisplayName is used when the transport cannot resolve a profile.
const defaultDisplayName = "Desconhecido"

// Sender is the outbound half of the transport needed by the pipeline.
type Sender interface {
	SendText(ctx context.Context, chatID, text string) error
	Contact(ctx context.Context, userID string) (transport.Contact, error)
}

// Pipeline receives transport events, drives the dialogue engine, records
// everything in the ledger, and publishes to the bus. Messages from the
// same user are processed strictly in arrival order; different users
// proceed in parallel.
type Pipeline struct {
	sender   Sender
	sessions *flow.Sessions
	ledger   store.Store
	bus      *Bus
	seen     *dedupe.Cache
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	queues map[string]chan transport.InboundMessage
	wg     sync.WaitGroup
}

// NewPipeline creates the pipeline. The sender is wired separately via
// SetSender since the transport is constructed with the pipeline as its
// handler.
func NewPipeline(sessions *flow.Sessions, ledger store.Store, bus *Bus, seen *dedupe.Cache, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pipeline{
		sessions: sessions,
		ledger:   ledger,
		bus:      bus,
		seen:     seen,
		logger:   logger.With("component", "pipeline"),
		ctx:      ctx,
		cancel:   cancel,
		queues:   make(map[string]chan transport.InboundMessage),
	}
}

// SetSender wires the outbound transport. Must be called before the
// transport starts delivering messages.
func (p *Pipeline) SetSender(s Sender) {
	p.sender = s
}

// HandlePairing logs the pairing payload so an operator can complete
// authentication out of band.
func (p *Pipeline) HandlePairing(payload string) {
	p.logger.Info("pairing required", "payload", payload)
}

// HandleAuthenticated logs successful authentication.
func (p *Pipeline) HandleAuthenticated() {
	p.logger.Info("transport authenticated")
}

// HandleReady logs session establishment.
func (p *Pipeline) HandleReady() {
	p.logger.Info("transport ready")
}

// HandleDisconnected logs the session drop. Queued messages stay queued;
// replies to them will fail at send time and be logged.
func (p *Pipeline) HandleDisconnected(reason string) {
	p.logger.Warn("transport disconnected", "reason", reason)
}

// HandleMessage enqueues an inbound message on its user's queue, spawning
// the user's worker on first sight. Redelivered messages are dropped.
func (p *Pipeline) HandleMessage(msg transport.InboundMessage) {
	if p.seen.Seen(msg.MessageID) {
		p.logger.Debug("dropping redelivered message", "message_id", msg.MessageID)
		return
	}

	p.mu.Lock()
	queue, ok := p.queues[msg.SenderID]
	if !ok {
		queue = make(chan transport.InboundMessage, userQueueSize)
		p.queues[msg.SenderID] = queue
		p.wg.Add(1)
		go p.userWorker(msg.SenderID, queue)
	}
	p.mu.Unlock()

	select {
	case queue <- msg:
	case <-p.ctx.Done():
	}
}

// Close stops the pipeline and waits for all user workers to exit.
// Queued but unprocessed messages are dropped.
func (p *Pipeline) Close() {
	p.cancel()
	p.wg.Wait()
}

// userWorker drains one user's queue in FIFO order.
func (p *Pipeline) userWorker(userID string, queue chan transport.InboundMessage) {
	defer p.wg.Done()
	for {
		select {
		case msg := <-queue:
			p.process(msg)
		case <-p.ctx.Done():
			return
		}
	}
}

// process runs one inbound message through the dialogue engine.
func (p *Pipeline) process(msg transport.InboundMessage) {
	chatID := msg.SenderID

	// Register the chat on first sighting. Profile lookup is best-effort:
	// a failed lookup still registers the chat under a placeholder name.
	displayName := defaultDisplayName
	avatarURL := ""
	if contact, err := p.sender.Contact(p.ctx, chatID); err == nil {
		if contact.DisplayName != "" {
			displayName = contact.DisplayName
		}
		avatarURL = contact.AvatarURL
	} else {
		p.logger.Warn("contact lookup failed", "chat", chatID, "error", err)
	}

	chat, created := p.ledger.RegisterChatIfNew(chatID, displayName, avatarURL)
	if created {
		p.logger.Info("new chat registered", "chat", chatID, "name", chat.DisplayName)
		p.bus.Publish(Event{Name: EventNewChat, Data: chat})
	}

	// Record and relay the user's message before computing replies, so
	// subscribers always see the question before the answer.
	userMsg := p.ledger.AppendMessage(chatID, msg.Body, store.OriginUser)
	p.bus.Publish(Event{Name: EventMessage, Data: userMsg})

	session := p.sessions.Get(chatID)
	result := flow.Transition(session, msg.Body)
	p.sessions.Put(chatID, result.Session)

	if result.Report != nil {
		p.ledger.SaveReport(store.SupportReport{
			ChatID:      chatID,
			Name:        result.Report.Name,
			Description: result.Report.Description,
		})
		p.logger.Info("problema relatado",
			"chat", chatID,
			"name", result.Report.Name,
			"description", result.Report.Description,
		)
	}

	for _, reply := range result.Replies {
		if err := p.sender.SendText(p.ctx, chatID, reply); err != nil {
			p.logger.Error("reply send failed", "chat", chatID, "error", err)
			continue
		}
		botMsg := p.ledger.AppendMessage(chatID, reply, store.OriginBot)
		p.bus.Publish(Event{Name: EventMessage, Data: botMsg})
	}
}
