// Copyright 2026 The PM Relay Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pmrelay/pmrelay/cmd/pmrelay/cli"
	"github.com/pmrelay/pmrelay/lib/clock"
	"github.com/pmrelay/pmrelay/lib/eventstore"
	"github.com/pmrelay/pmrelay/lib/ledger"
	"github.com/pmrelay/pmrelay/lib/testutil"
	"github.com/pmrelay/pmrelay/messaging"
)

// harness runs commands against a config in a temporary directory.
type harness struct {
	t          *testing.T
	configPath string
	ledgerPath string
	stdout     *bytes.Buffer
	env        *environment
}

func newHarness(t *testing.T, webexURL string) *harness {
	t.Helper()
	root := t.TempDir()
	tokenPath := testutil.WriteFile(t, "token", "bot-token\n")
	ledgerPath := filepath.Join(root, "ledger.db")
	configPath := testutil.WriteFile(t, "pmrelay.yaml", fmt.Sprintf(`
environment: development
webex:
  base_url: %q
  token_file: %q
admin:
  email: admin@example.com
storage:
  root: %q
  events_file: %q
  ledger_db: %q
digest:
  schedule: "0 9 * * *"
  timezone: UTC
`, webexURL+"/v1", tokenPath, root, filepath.Join(root, "events.json"), ledgerPath))

	stdout := &bytes.Buffer{}
	return &harness{
		t:          t,
		configPath: configPath,
		ledgerPath: ledgerPath,
		stdout:     stdout,
		env: &environment{
			ctx:    context.Background(),
			stdout: stdout,
			clock:  clock.Fake(time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)),
			logger: slog.New(slog.DiscardHandler),
		},
	}
}

// run executes the pmrelay arguments with --config appended and
// returns stdout.
func (h *harness) run(args ...string) (string, error) {
	h.t.Helper()
	h.stdout.Reset()
	args = append(args, "--config", h.configPath)
	err := root(h.env).Execute(args)
	return h.stdout.String(), err
}

func (h *harness) mustRun(args ...string) string {
	h.t.Helper()
	output, err := h.run(args...)
	if err != nil {
		h.t.Fatalf("pmrelay %s: %v", strings.Join(args, " "), err)
	}
	return output
}

func (h *harness) openLedger() *ledger.Store {
	h.t.Helper()
	store, err := ledger.Open(ledger.Config{Path: h.ledgerPath})
	if err != nil {
		h.t.Fatalf("ledger.Open: %v", err)
	}
	return store
}

// fakeWebex records messages sent through the REST API.
type fakeWebex struct {
	mu   sync.Mutex
	sent []messaging.OutgoingMessage
	fail map[string]bool
}

func newFakeWebex(t *testing.T) (*fakeWebex, *httptest.Server) {
	webex := &fakeWebex{fail: make(map[string]bool)}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/people/me", func(writer http.ResponseWriter, request *http.Request) {
		if request.Header.Get("Authorization") != "Bearer bot-token" {
			writer.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(writer).Encode(messaging.Person{
			ID:          "bot",
			Emails:      []string{"relay@webex.bot"},
			DisplayName: "PM Relay",
		})
	})
	mux.HandleFunc("POST /v1/messages", func(writer http.ResponseWriter, request *http.Request) {
		var message messaging.OutgoingMessage
		if err := json.NewDecoder(request.Body).Decode(&message); err != nil {
			writer.WriteHeader(http.StatusBadRequest)
			return
		}
		webex.mu.Lock()
		defer webex.mu.Unlock()
		if webex.fail[message.ToPersonEmail] {
			writer.WriteHeader(http.StatusBadGateway)
			return
		}
		webex.sent = append(webex.sent, message)
		json.NewEncoder(writer).Encode(messaging.Message{ID: testutil.UniqueID("msg"), Text: message.Text})
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return webex, server
}

func (w *fakeWebex) messages() []messaging.OutgoingMessage {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]messaging.OutgoingMessage(nil), w.sent...)
}

func TestEventsAddAndList(t *testing.T) {
	h := newHarness(t, "http://unused.invalid")

	output := h.mustRun("events", "add", "--email", "alice@example.com", "--date", "2026-10-18", "--event", "Pickup at gate 3")
	if !strings.Contains(output, "event saved") {
		t.Errorf("add output = %q", output)
	}
	h.mustRun("events", "add", "--email", "bob@example.com", "--date", "2026-10-19", "--event", "Battery swap")

	output = h.mustRun("events", "list")
	for _, want := range []string{"DATE", "alice@example.com", "Pickup at gate 3", "bob@example.com"} {
		if !strings.Contains(output, want) {
			t.Errorf("list output missing %q:\n%s", want, output)
		}
	}

	output = h.mustRun("events", "list", "--date", "2026-10-19", "--json")
	var events []eventstore.Event
	if err := json.Unmarshal([]byte(output), &events); err != nil {
		t.Fatalf("decoding --json output: %v\n%s", err, output)
	}
	if len(events) != 1 || events[0].Email != "bob@example.com" {
		t.Errorf("events on 2026-10-19 = %+v", events)
	}

	output = h.mustRun("events", "list", "--date", "2026-12-25", "--json")
	if strings.TrimSpace(output) != "[]" {
		t.Errorf("empty --json output = %q, want []", output)
	}
}

func TestEventsAddValidation(t *testing.T) {
	h := newHarness(t, "http://unused.invalid")

	_, err := h.run("events", "add", "--email", "alice@example.com", "--date", "2026-10-18")
	var missing *eventstore.MissingFieldError
	if !errors.As(err, &missing) || missing.Field != "event" {
		t.Errorf("add without --event = %v, want missing event", err)
	}

	if _, err := h.run("events", "list", "--date", "18/10/2026"); err == nil {
		t.Error("list accepted a malformed --date")
	}
}

func TestDigestRun(t *testing.T) {
	webex, server := newFakeWebex(t)
	h := newHarness(t, server.URL)
	h.mustRun("events", "add", "--email", "alice@example.com", "--date", "2026-10-18", "--event", "Pickup at gate 3")
	h.mustRun("events", "add", "--email", "bob@example.com", "--date", "2026-10-19", "--event", "Battery swap")

	output := h.mustRun("digest", "run")
	if !strings.Contains(output, "2026-10-18: 1 events, 1 sent, 0 failed") {
		t.Errorf("digest output = %q", output)
	}
	sent := webex.messages()
	if len(sent) != 1 || sent[0].ToPersonEmail != "alice@example.com" || sent[0].Text != "Today's schedule: Pickup at gate 3" {
		t.Errorf("sent = %+v", sent)
	}

	output = h.mustRun("digest", "run", "--date", "2026-10-19")
	if !strings.Contains(output, "2026-10-19: 1 events, 1 sent") {
		t.Errorf("digest --date output = %q", output)
	}
}

func TestDigestRunReportsFailures(t *testing.T) {
	webex, server := newFakeWebex(t)
	webex.fail["alice@example.com"] = true
	h := newHarness(t, server.URL)
	h.mustRun("events", "add", "--email", "alice@example.com", "--date", "2026-10-18", "--event", "Pickup")
	h.mustRun("events", "add", "--email", "carol@example.com", "--date", "2026-10-18", "--event", "Inspection")

	output, err := h.run("digest", "run")
	var exit *cli.ExitError
	if !errors.As(err, &exit) || exit.Code != 1 {
		t.Fatalf("digest run = %v, want exit code 1", err)
	}
	if !strings.Contains(output, "2 events, 1 sent, 1 failed") {
		t.Errorf("digest output = %q", output)
	}
	if sent := webex.messages(); len(sent) != 1 || sent[0].ToPersonEmail != "carol@example.com" {
		t.Errorf("sent = %+v", sent)
	}
}

func TestLedgerBalance(t *testing.T) {
	h := newHarness(t, "http://unused.invalid")

	output := h.mustRun("ledger", "balance", "alice@example.com")
	if strings.TrimSpace(output) != "alice@example.com: 0 coins" {
		t.Errorf("empty balance output = %q", output)
	}

	store := h.openLedger()
	awarded := time.Date(2026, 10, 17, 14, 0, 0, 0, time.UTC)
	if err := store.Credit(context.Background(), "alice@example.com", 100, awarded); err != nil {
		t.Fatalf("Credit: %v", err)
	}
	if err := store.Credit(context.Background(), "alice@example.com", 100, awarded.Add(time.Hour)); err != nil {
		t.Fatalf("Credit: %v", err)
	}
	store.Close()

	output = h.mustRun("ledger", "balance", "alice@example.com")
	for _, want := range []string{"alice@example.com: 200 coins", "2026-10-17 14:00:00 UTC", "2026-10-17 15:00:00 UTC"} {
		if !strings.Contains(output, want) {
			t.Errorf("balance output missing %q:\n%s", want, output)
		}
	}

	output = h.mustRun("ledger", "balance", "alice@example.com", "--json")
	var decoded balanceOutput
	if err := json.Unmarshal([]byte(output), &decoded); err != nil {
		t.Fatalf("decoding --json output: %v", err)
	}
	if decoded.Total != 200 || len(decoded.History) != 2 || !decoded.History[0].AwardedAt.Equal(awarded) {
		t.Errorf("balance JSON = %+v", decoded)
	}

	if _, err := h.run("ledger", "balance"); err == nil {
		t.Error("balance without an address succeeded")
	}
}

func TestLedgerPending(t *testing.T) {
	h := newHarness(t, "http://unused.invalid")

	output := h.mustRun("ledger", "pending")
	if strings.TrimSpace(output) != "no pending requests" {
		t.Errorf("empty pending output = %q", output)
	}

	store := h.openLedger()
	submitted := time.Date(2026, 10, 18, 8, 30, 0, 0, time.UTC)
	for index, address := range []string{"bob@example.com", "alice@example.com"} {
		err := store.PutPending(context.Background(), ledger.PendingRequest{
			Address:     address,
			Latitude:    37.56650,
			Longitude:   126.97800,
			Message:     "moved to the rack",
			SubmittedAt: submitted.Add(time.Duration(index) * time.Minute),
			ReportID:    "report-" + address,
		})
		if err != nil {
			t.Fatalf("PutPending: %v", err)
		}
	}
	store.Close()

	output = h.mustRun("ledger", "pending")
	bobIndex := strings.Index(output, "bob@example.com")
	aliceIndex := strings.Index(output, "alice@example.com")
	if bobIndex < 0 || aliceIndex < 0 || bobIndex > aliceIndex {
		t.Errorf("pending list not oldest first:\n%s", output)
	}
	if !strings.Contains(output, "37.56650, 126.97800") {
		t.Errorf("pending list missing location:\n%s", output)
	}

	output = h.mustRun("ledger", "pending", "alice@example.com", "--json")
	var decoded []pendingOutput
	if err := json.Unmarshal([]byte(output), &decoded); err != nil {
		t.Fatalf("decoding --json output: %v", err)
	}
	if len(decoded) != 1 || decoded[0].ReportID != "report-alice@example.com" {
		t.Errorf("pending JSON = %+v", decoded)
	}

	output = h.mustRun("ledger", "pending", "alice@example.com", "--raw")
	if !strings.Contains(output, `"report_id": "report-alice@example.com"`) {
		t.Errorf("raw output = %q", output)
	}

	output, err := h.run("ledger", "pending", "carol@example.com")
	var exit *cli.ExitError
	if !errors.As(err, &exit) || exit.Code != 1 {
		t.Errorf("pending for unknown address = %v, want exit code 1", err)
	}
	if !strings.Contains(output, "no pending request for carol@example.com") {
		t.Errorf("unknown address output = %q", output)
	}

	if _, err := h.run("ledger", "pending", "--raw"); err == nil {
		t.Error("--raw without an address succeeded")
	}
}

func TestWebexWhoAmI(t *testing.T) {
	_, server := newFakeWebex(t)
	h := newHarness(t, server.URL)

	output := h.mustRun("webex", "whoami")
	if strings.TrimSpace(output) != "relay@webex.bot (PM Relay)" {
		t.Errorf("whoami output = %q", output)
	}
}

func TestMissingConfig(t *testing.T) {
	t.Setenv("PMRELAY_CONFIG", "")
	env := &environment{
		ctx:    context.Background(),
		stdout: &bytes.Buffer{},
		clock:  clock.Real(),
		logger: slog.New(slog.DiscardHandler),
	}
	err := root(env).Execute([]string{"events", "list"})
	if err == nil || !strings.Contains(err.Error(), "PMRELAY_CONFIG") {
		t.Errorf("events list without config = %v", err)
	}
}

func TestVersion(t *testing.T) {
	h := newHarness(t, "http://unused.invalid")
	h.stdout.Reset()
	if err := root(h.env).Execute([]string{"version"}); err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(h.stdout.String(), "pmrelay ") {
		t.Errorf("version output = %q", h.stdout.String())
	}
}
