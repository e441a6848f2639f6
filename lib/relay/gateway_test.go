// Copyright 2026 The PM Relay Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pmrelay/pmrelay/lib/clock"
	"github.com/pmrelay/pmrelay/lib/ledger"
	"github.com/pmrelay/pmrelay/messaging"
)

const (
	adminAddress = "admin@example.com"
	botAddress   = "relay-bot@webex.bot"
)

// sentMessage is what fakeGateway records for each send. Attachment
// content is read eagerly so tests can compare it.
type sentMessage struct {
	to             string
	text           string
	attachmentName string
	attachmentData string
}

type fakeGateway struct {
	mu       sync.Mutex
	inbound  map[string]*messaging.Message
	sent     []sentMessage
	sendErr  error
	fetchErr error
	fetches  int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{inbound: make(map[string]*messaging.Message)}
}

// addInbound registers a message GetMessage can return and returns
// its id.
func (g *fakeGateway) addInbound(sender, text string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := fmt.Sprintf("msg-%d", len(g.inbound)+1)
	g.inbound[id] = &messaging.Message{ID: id, PersonEmail: sender, Text: text}
	return id
}

func (g *fakeGateway) GetMessage(_ context.Context, messageID string) (*messaging.Message, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.fetches++
	if g.fetchErr != nil {
		return nil, g.fetchErr
	}
	message, ok := g.inbound[messageID]
	if !ok {
		return nil, &messaging.APIError{StatusCode: 404, Message: "message not found"}
	}
	return message, nil
}

func (g *fakeGateway) SendMessage(_ context.Context, message messaging.OutgoingMessage) (*messaging.Message, error) {
	record := sentMessage{to: message.ToPersonEmail, text: message.Text}
	if message.Attachment != nil {
		data, err := io.ReadAll(message.Attachment.Content)
		if err != nil {
			return nil, err
		}
		record.attachmentName = message.Attachment.Name
		record.attachmentData = string(data)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.sent = append(g.sent, record)
	if g.sendErr != nil {
		return nil, g.sendErr
	}
	return &messaging.Message{ID: fmt.Sprintf("out-%d", len(g.sent)), PersonEmail: botAddress}, nil
}

func (g *fakeGateway) messages() []sentMessage {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]sentMessage(nil), g.sent...)
}

type fixture struct {
	dispatcher *Dispatcher
	gateway    *fakeGateway
	ledger     *ledger.Store
	clock      *clock.FakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store, err := ledger.Open(ledger.Config{Path: ":memory:"})
	if err != nil {
		t.Fatalf("ledger.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	gateway := newFakeGateway()
	fakeClock := clock.Fake(time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC))

	dispatcher, err := New(Config{
		Gateway:      gateway,
		Ledger:       store,
		AdminAddress: adminAddress,
		SelfAddress:  botAddress,
		Clock:        fakeClock,
		Location:     time.UTC,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	return &fixture{
		dispatcher: dispatcher,
		gateway:    gateway,
		ledger:     store,
		clock:      fakeClock,
	}
}

// addPending stores a pending request for address directly.
func (f *fixture) addPending(t *testing.T, address string) {
	t.Helper()
	err := f.ledger.PutPending(context.Background(), ledger.PendingRequest{
		Address:     address,
		Latitude:    37.5,
		Longitude:   127.0,
		SubmittedAt: f.clock.Now(),
	})
	if err != nil {
		t.Fatalf("PutPending(%s): %v", address, err)
	}
}

func (f *fixture) pendingCount(t *testing.T) int {
	t.Helper()
	count, err := f.ledger.CountPending(context.Background())
	if err != nil {
		t.Fatalf("CountPending: %v", err)
	}
	return count
}

func (f *fixture) total(t *testing.T, address string) int64 {
	t.Helper()
	balance, err := f.ledger.Balance(context.Background(), address)
	if err != nil {
		t.Fatalf("Balance(%s): %v", address, err)
	}
	return balance.Total
}

func photo(content string) *messaging.Attachment {
	return &messaging.Attachment{
		Name:        "photo.jpg",
		ContentType: "image/jpeg",
		Content:     strings.NewReader(content),
	}
}

// requireSent fails unless the gateway sent exactly the given
// recipients in order, each text containing the matching fragment.
func requireSent(t *testing.T, sent []sentMessage, want ...[2]string) {
	t.Helper()
	if len(sent) != len(want) {
		t.Fatalf("sent %d messages, want %d: %+v", len(sent), len(want), sent)
	}
	for index, expected := range want {
		if sent[index].to != expected[0] {
			t.Errorf("message %d to %q, want %q", index, sent[index].to, expected[0])
		}
		if !strings.Contains(sent[index].text, expected[1]) {
			t.Errorf("message %d text %q does not contain %q", index, sent[index].text, expected[1])
		}
	}
}
