// ABOUTME: Tests for the inbound message pipeline
// ABOUTME: Drives conversations through a fake transport and checks ledger and bus output

package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pedronas2222/wa-nasohub-bot/internal/dedupe"
	"github.com/pedronas2222/wa-nasohub-bot/internal/flow"
	"github.com/pedronas2222/wa-nasohub-bot/internal/store"
	"github.com/pedronas2222/wa-nasohub-bot/internal/transport"
)

type fakeSender struct {
	mu         sync.Mutex
	sent       []string
	contact    transport.Contact
	contactErr error
	sendErr    error
}

func (f *fakeSender) SendText(ctx context.Context, chatID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, text)
	return nil
}

func (f *fakeSender) Contact(ctx context.Context, userID string) (transport.Contact, error) {
	return f.contact, f.contactErr
}

func (f *fakeSender) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func newTestPipeline(t *testing.T, sender *fakeSender) (*Pipeline, store.Store, *Bus) {
	t.Helper()
	ledger := store.NewMemoryStore()
	bus := NewBus(nil)
	t.Cleanup(bus.Close)
	seen := dedupe.New(time.Minute, 1000)
	t.Cleanup(seen.Close)
	p := NewPipeline(flow.NewSessions(), ledger, bus, seen, slog.Default())
	p.SetSender(sender)
	t.Cleanup(p.Close)
	return p, ledger, bus
}

func TestPipeline_FirstMessageRegistersChatAndAsksName(t *testing.T) {
	sender := &fakeSender{contact: transport.Contact{DisplayName: "Maria", AvatarURL: "mxc://x/y"}}
	p, ledger, bus := newTestPipeline(t, sender)

	events, _ := bus.Subscribe(t.Context())

	p.HandleMessage(transport.InboundMessage{SenderID: "55119", MessageID: "m1", Body: "oi"})

	require.Eventually(t, func() bool {
		return len(ledger.History("55119")) == 2
	}, time.Second, 10*time.Millisecond)

	chats := ledger.ListChats()
	require.Len(t, chats, 1)
	assert.Equal(t, "Maria", chats[0].DisplayName)
	assert.Equal(t, "mxc://x/y", chats[0].AvatarURL)

	history := ledger.History("55119")
	assert.Equal(t, store.OriginUser, history[0].Origin)
	assert.Equal(t, "oi", history[0].Body)
	assert.Equal(t, store.OriginBot, history[1].Origin)
	assert.Equal(t, "Olá! Qual é o seu nome?", history[1].Body)

	// Event order: newChat, then the user message, then the reply.
	names := make([]string, 0, 3)
	for range 3 {
		select {
		case evt := <-events:
			names = append(names, evt.Name)
		case <-time.After(time.Second):
			t.Fatal("timeout waiting for events")
		}
	}
	assert.Equal(t, []string{EventNewChat, EventMessage, EventMessage}, names)
}

func TestPipeline_RedeliveredMessageDropped(t *testing.T) {
	sender := &fakeSender{contact: transport.Contact{DisplayName: "Maria"}}
	p, ledger, _ := newTestPipeline(t, sender)

	p.HandleMessage(transport.InboundMessage{SenderID: "55119", MessageID: "m1", Body: "oi"})
	p.HandleMessage(transport.InboundMessage{SenderID: "55119", MessageID: "m1", Body: "oi"})

	require.Eventually(t, func() bool {
		return len(ledger.History("55119")) >= 2
	}, time.Second, 10*time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	assert.Len(t, ledger.History("55119"), 2)
}

func TestPipeline_ContactLookupFailureUsesPlaceholder(t *testing.T) {
	sender := &fakeSender{contactErr: errors.New("profile unavailable")}
	p, ledger, _ := newTestPipeline(t, sender)

	p.HandleMessage(transport.InboundMessage{SenderID: "55119", MessageID: "m1", Body: "oi"})

	require.Eventually(t, func() bool {
		return len(ledger.ListChats()) == 1
	}, time.Second, 10*time.Millisecond)

	assert.Equal(t, defaultDisplayName, ledger.ListChats()[0].DisplayName)
}

func TestPipeline_SupportConversationSavesReport(t *testing.T) {
	sender := &fakeSender{contact: transport.Contact{DisplayName: "Maria"}}
	p, ledger, _ := newTestPipeline(t, sender)

	script := []string{"oi", "Maria", "1", "a impressora não liga"}
	for i, body := range script {
		p.HandleMessage(transport.InboundMessage{
			SenderID:  "55119",
			MessageID: fmt.Sprintf("m%d", i),
			Body:      body,
		})
	}

	require.Eventually(t, func() bool {
		return len(ledger.ListReports()) == 1
	}, time.Second, 10*time.Millisecond)

	report := ledger.ListReports()[0]
	assert.Equal(t, "Maria", report.Name)
	assert.Equal(t, "a impressora não liga", report.Description)
	assert.Equal(t, "55119", report.ChatID)
}

func TestPipeline_SendFailureSkipsBotRecord(t *testing.T) {
	sender := &fakeSender{sendErr: errors.New("transport down")}
	p, ledger, _ := newTestPipeline(t, sender)

	p.HandleMessage(transport.InboundMessage{SenderID: "55119", MessageID: "m1", Body: "oi"})

	require.Eventually(t, func() bool {
		return len(ledger.History("55119")) == 1
	}, time.Second, 10*time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	history := ledger.History("55119")
	require.Len(t, history, 1)
	assert.Equal(t, store.OriginUser, history[0].Origin)
}

func TestPipeline_MessagesFromOneUserProcessInOrder(t *testing.T) {
	sender := &fakeSender{contact: transport.Contact{DisplayName: "Maria"}}
	p, ledger, _ := newTestPipeline(t, sender)

	const n = 20
	for i := range n {
		p.HandleMessage(transport.InboundMessage{
			SenderID:  "55119",
			MessageID: fmt.Sprintf("m%d", i),
			Body:      fmt.Sprintf("mensagem %d", i),
		})
	}

	require.Eventually(t, func() bool {
		count := 0
		for _, rec := range ledger.History("55119") {
			if rec.Origin == store.OriginUser {
				count++
			}
		}
		return count == n
	}, 2*time.Second, 10*time.Millisecond)

	i := 0
	for _, rec := range ledger.History("55119") {
		if rec.Origin != store.OriginUser {
			continue
		}
		assert.Equal(t, fmt.Sprintf("mensagem %d", i), rec.Body)
		i++
	}
}

func TestPipeline_UsersProcessIndependently(t *testing.T) {
	sender := &fakeSender{contact: transport.Contact{DisplayName: "Alguém"}}
	p, ledger, _ := newTestPipeline(t, sender)

	p.HandleMessage(transport.InboundMessage{SenderID: "55110", MessageID: "a1", Body: "oi"})
	p.HandleMessage(transport.InboundMessage{SenderID: "55111", MessageID: "b1", Body: "olá"})

	require.Eventually(t, func() bool {
		return len(ledger.ListChats()) == 2
	}, time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		return sender.sentCount() == 2
	}, time.Second, 10*time.Millisecond)
}
