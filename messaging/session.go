// Copyright 2026 The PM Relay Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/pmrelay/pmrelay/lib/secret"
)

// Session is an authenticated Webex session for one bot token.
// Safe for concurrent use. Close releases the token memory.
type Session struct {
	client      *Client
	accessToken *secret.Buffer
}

// Close zeroes and releases the access token. Idempotent.
func (s *Session) Close() error {
	if s.accessToken != nil {
		return s.accessToken.Close()
	}
	return nil
}

// WhoAmI returns the person the token belongs to.
func (s *Session) WhoAmI(ctx context.Context) (*Person, error) {
	body, err := s.client.doRequest(ctx, http.MethodGet, "/people/me", s.accessToken, nil)
	if err != nil {
		return nil, fmt.Errorf("messaging: whoami failed: %w", err)
	}

	var person Person
	if err := json.Unmarshal(body, &person); err != nil {
		return nil, fmt.Errorf("messaging: failed to parse people/me response: %w", err)
	}
	return &person, nil
}

// GetMessage fetches one message by id. Webhook notifications never
// include message text, so this is how an inbound command is read.
func (s *Session) GetMessage(ctx context.Context, messageID string) (*Message, error) {
	if messageID == "" {
		return nil, fmt.Errorf("messaging: message id is required")
	}

	body, err := s.client.doRequest(ctx, http.MethodGet, "/messages/"+url.PathEscape(messageID), s.accessToken, nil)
	if err != nil {
		return nil, fmt.Errorf("messaging: get message %s: %w", messageID, err)
	}

	var message Message
	if err := json.Unmarshal(body, &message); err != nil {
		return nil, fmt.Errorf("messaging: failed to parse message %s: %w", messageID, err)
	}
	return &message, nil
}

// SendMessage posts a direct message. With an Attachment the request
// is multipart/form-data carrying the file in the "files" field;
// otherwise it is JSON.
func (s *Session) SendMessage(ctx context.Context, message OutgoingMessage) (*Message, error) {
	if message.ToPersonEmail == "" {
		return nil, fmt.Errorf("messaging: recipient email is required")
	}
	if message.Text == "" && message.Attachment == nil {
		return nil, fmt.Errorf("messaging: message to %s has neither text nor attachment", message.ToPersonEmail)
	}

	var (
		body []byte
		err  error
	)
	if message.Attachment != nil {
		fields := [][2]string{{"toPersonEmail", message.ToPersonEmail}}
		if message.Text != "" {
			fields = append(fields, [2]string{"text", message.Text})
		}
		body, err = s.client.doMultipart(ctx, "/messages", s.accessToken, fields, "files", message.Attachment)
	} else {
		body, err = s.client.doRequest(ctx, http.MethodPost, "/messages", s.accessToken, message)
	}
	if err != nil {
		return nil, fmt.Errorf("messaging: send to %s: %w", message.ToPersonEmail, err)
	}

	var sent Message
	if err := json.Unmarshal(body, &sent); err != nil {
		return nil, fmt.Errorf("messaging: failed to parse send response: %w", err)
	}

	s.client.logger.Debug("webex message sent",
		"message_id", sent.ID,
		"to", message.ToPersonEmail,
		"attachment", message.Attachment != nil,
	)
	return &sent, nil
}
