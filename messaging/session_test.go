// Copyright 2026 The PM Relay Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"context"
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// newTestSession creates a Client and Session pointing at a test server.
func newTestSession(t *testing.T, handler http.Handler) (*Client, *Session) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(ClientConfig{BaseURL: server.URL + "/v1"})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	session, err := client.SessionFromToken("test-token")
	if err != nil {
		t.Fatalf("SessionFromToken failed: %v", err)
	}
	t.Cleanup(func() { session.Close() })
	return client, session
}

func TestWhoAmI(t *testing.T) {
	_, session := newTestSession(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assertAuth(t, request, "test-token")
		if request.URL.Path != "/v1/people/me" {
			t.Errorf("unexpected path: %s", request.URL.Path)
		}
		if !strings.HasPrefix(request.Header.Get("User-Agent"), "pmrelay/") {
			t.Errorf("User-Agent = %q", request.Header.Get("User-Agent"))
		}
		writeJSON(writer, Person{ID: "bot-1", Emails: []string{"relay@webex.bot"}, DisplayName: "PM Relay", Type: "bot"})
	}))

	person, err := session.WhoAmI(context.Background())
	if err != nil {
		t.Fatalf("WhoAmI failed: %v", err)
	}
	if person.PrimaryEmail() != "relay@webex.bot" {
		t.Errorf("PrimaryEmail = %q", person.PrimaryEmail())
	}
	if person.DisplayName != "PM Relay" {
		t.Errorf("DisplayName = %q", person.DisplayName)
	}
}

func TestGetMessage(t *testing.T) {
	created := time.Date(2026, 10, 18, 0, 5, 0, 0, time.UTC)
	_, session := newTestSession(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assertAuth(t, request, "test-token")
		if request.Method != http.MethodGet {
			t.Errorf("method = %s, want GET", request.Method)
		}
		if request.URL.EscapedPath() != "/v1/messages/Y2lzY29zcGFyazovL3VzL01FU1NBR0UvMQ" {
			t.Errorf("unexpected path: %s", request.URL.EscapedPath())
		}
		writeJSON(writer, Message{
			ID:          "Y2lzY29zcGFyazovL3VzL01FU1NBR0UvMQ",
			PersonEmail: "admin@example.com",
			Text:        "approve alice@example.com",
			Created:     created,
		})
	}))

	message, err := session.GetMessage(context.Background(), "Y2lzY29zcGFyazovL3VzL01FU1NBR0UvMQ")
	if err != nil {
		t.Fatalf("GetMessage failed: %v", err)
	}
	if message.PersonEmail != "admin@example.com" || message.Text != "approve alice@example.com" {
		t.Errorf("unexpected message: %+v", message)
	}
	if !message.Created.Equal(created) {
		t.Errorf("Created = %v, want %v", message.Created, created)
	}
}

func TestGetMessageRequiresID(t *testing.T) {
	_, session := newTestSession(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		t.Error("no request expected")
	}))
	if _, err := session.GetMessage(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty id")
	}
}

func TestSendMessageJSON(t *testing.T) {
	_, session := newTestSession(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assertAuth(t, request, "test-token")
		if request.Method != http.MethodPost || request.URL.Path != "/v1/messages" {
			t.Errorf("unexpected request: %s %s", request.Method, request.URL.Path)
		}
		if contentType := request.Header.Get("Content-Type"); contentType != "application/json" {
			t.Errorf("Content-Type = %q", contentType)
		}
		var body map[string]any
		if err := json.NewDecoder(request.Body).Decode(&body); err != nil {
			t.Fatalf("decoding body: %v", err)
		}
		if body["toPersonEmail"] != "alice@example.com" || body["text"] != "Today's schedule: dentist" {
			t.Errorf("unexpected body: %v", body)
		}
		if len(body) != 2 {
			t.Errorf("body has extra keys: %v", body)
		}
		writeJSON(writer, Message{ID: "sent-1"})
	}))

	sent, err := session.SendMessage(context.Background(), OutgoingMessage{
		ToPersonEmail: "alice@example.com",
		Text:          "Today's schedule: dentist",
	})
	if err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	if sent.ID != "sent-1" {
		t.Errorf("ID = %q, want sent-1", sent.ID)
	}
}

func TestSendMessageWithAttachment(t *testing.T) {
	photo := []byte("\x89PNG fake image bytes")
	_, session := newTestSession(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assertAuth(t, request, "test-token")
		mediaType, params, err := mime.ParseMediaType(request.Header.Get("Content-Type"))
		if err != nil || mediaType != "multipart/form-data" {
			t.Fatalf("Content-Type = %q (%v)", request.Header.Get("Content-Type"), err)
		}

		reader := multipart.NewReader(request.Body, params["boundary"])
		parts := map[string]string{}
		var fileName, fileType string
		for {
			part, err := reader.NextPart()
			if err == io.EOF {
				break
			}
			if err != nil {
				t.Fatalf("NextPart: %v", err)
			}
			data, _ := io.ReadAll(part)
			parts[part.FormName()] = string(data)
			if part.FormName() == "files" {
				fileName = part.FileName()
				fileType = part.Header.Get("Content-Type")
			}
		}

		if parts["toPersonEmail"] != "admin@example.com" {
			t.Errorf("toPersonEmail = %q", parts["toPersonEmail"])
		}
		if !strings.Contains(parts["text"], "relocation") {
			t.Errorf("text = %q", parts["text"])
		}
		if parts["files"] != string(photo) {
			t.Errorf("file content mismatch")
		}
		if fileName != "scooter.png" || fileType != "image/png" {
			t.Errorf("file = %q (%q)", fileName, fileType)
		}
		writeJSON(writer, Message{ID: "sent-2", Files: []string{"https://webexapis.com/v1/contents/1"}})
	}))

	sent, err := session.SendMessage(context.Background(), OutgoingMessage{
		ToPersonEmail: "admin@example.com",
		Text:          "New relocation report",
		Attachment: &Attachment{
			Name:        "scooter.png",
			ContentType: "image/png",
			Content:     strings.NewReader(string(photo)),
		},
	})
	if err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	if len(sent.Files) != 1 {
		t.Errorf("Files = %v", sent.Files)
	}
}

func TestSendMessageValidation(t *testing.T) {
	_, session := newTestSession(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		t.Error("no request expected")
	}))

	tests := []struct {
		name    string
		message OutgoingMessage
	}{
		{"missing recipient", OutgoingMessage{Text: "hello"}},
		{"empty body", OutgoingMessage{ToPersonEmail: "alice@example.com"}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if _, err := session.SendMessage(context.Background(), test.message); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestSendMessageAPIError(t *testing.T) {
	_, session := newTestSession(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(http.StatusTooManyRequests)
		writer.Write([]byte(`{"message":"Too many requests","trackingId":"RL_1"}`))
	}))

	_, err := session.SendMessage(context.Background(), OutgoingMessage{ToPersonEmail: "alice@example.com", Text: "hi"})
	if !IsStatus(err, http.StatusTooManyRequests) {
		t.Fatalf("expected 429 APIError, got %v", err)
	}
	if !strings.Contains(err.Error(), "alice@example.com") {
		t.Errorf("error %q should name the recipient", err)
	}
}

func TestWebhookEventDecoding(t *testing.T) {
	payload := `{
		"id": "hook-1",
		"name": "pmrelay",
		"resource": "messages",
		"event": "created",
		"actorId": "person-1",
		"data": {"id": "msg-1", "roomId": "room-1", "personEmail": "admin@example.com"}
	}`
	var event WebhookEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if event.Resource != "messages" || event.Event != "created" {
		t.Errorf("unexpected envelope: %+v", event)
	}
	if event.Data.ID != "msg-1" || event.Data.PersonEmail != "admin@example.com" {
		t.Errorf("unexpected data: %+v", event.Data)
	}
}

func assertAuth(t *testing.T, request *http.Request, expectedToken string) {
	t.Helper()
	auth := request.Header.Get("Authorization")
	expected := "Bearer " + expectedToken
	if auth != expected {
		t.Errorf("unexpected auth header: got %q, want %q", auth, expected)
	}
}

func writeJSON(writer http.ResponseWriter, value any) {
	writer.Header().Set("Content-Type", "application/json")
	json.NewEncoder(writer).Encode(value)
}
