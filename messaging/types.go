// Copyright 2026 The PM Relay Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"io"
	"time"
)

// Message is a Webex message resource.
type Message struct {
	ID          string    `json:"id"`
	RoomID      string    `json:"roomId,omitempty"`
	RoomType    string    `json:"roomType,omitempty"`
	PersonID    string    `json:"personId,omitempty"`
	PersonEmail string    `json:"personEmail"`
	Text        string    `json:"text"`
	Files       []string  `json:"files,omitempty"`
	Created     time.Time `json:"created"`
}

// OutgoingMessage is a direct message to one person.
type OutgoingMessage struct {
	// ToPersonEmail is the recipient. Required.
	ToPersonEmail string `json:"toPersonEmail"`

	// Text is the plain-text body.
	Text string `json:"text,omitempty"`

	// Attachment is an optional file sent with the message. Webex
	// accepts one file per message.
	Attachment *Attachment `json:"-"`
}

// Attachment is a file uploaded alongside a message. Content is read
// once while the request is sent.
type Attachment struct {
	Name        string
	ContentType string
	Content     io.Reader
}

// Person is a Webex person resource.
type Person struct {
	ID          string   `json:"id"`
	Emails      []string `json:"emails"`
	DisplayName string   `json:"displayName"`
	Type        string   `json:"type,omitempty"`
}

// PrimaryEmail returns the first address, or "" when none is listed.
func (p *Person) PrimaryEmail() string {
	if len(p.Emails) == 0 {
		return ""
	}
	return p.Emails[0]
}

// WebhookEvent is the body Webex POSTs to a webhook target.
type WebhookEvent struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Resource string      `json:"resource"`
	Event    string      `json:"event"`
	ActorID  string      `json:"actorId,omitempty"`
	Data     WebhookData `json:"data"`
}

// WebhookData is the resource summary in a webhook notification. For
// messages it carries the id and sender but never the text.
type WebhookData struct {
	ID          string `json:"id"`
	RoomID      string `json:"roomId,omitempty"`
	PersonID    string `json:"personId,omitempty"`
	PersonEmail string `json:"personEmail,omitempty"`
}
