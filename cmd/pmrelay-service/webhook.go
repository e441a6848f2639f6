// Copyright 2026 The PM Relay Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"crypto/sha1"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/pmrelay/pmrelay/lib/clock"
	"github.com/pmrelay/pmrelay/lib/service"
	"github.com/pmrelay/pmrelay/messaging"
)

// maxWebhookBodySize bounds a webhook notification. Webex sends a
// small JSON envelope without the message text.
const maxWebhookBodySize = 1 << 20

// deduplicationWindow is how long message ids are remembered. Webex
// retries failed deliveries within minutes.
const deduplicationWindow = time.Hour

// signatureHeader carries the hex HMAC-SHA1 of the body.
const signatureHeader = "X-Spark-Signature"

// inboundDispatcher is the part of relay.Dispatcher the webhook uses.
type inboundDispatcher interface {
	HandleInboundMessage(ctx context.Context, messageID string) error
}

// WebhookHandler receives Webex "messages created" notifications,
// verifies them, drops duplicates and the bot's own messages, and
// hands the message id to the dispatcher.
type WebhookHandler struct {
	// secret verifies X-Spark-Signature. Nil disables verification.
	secret      []byte
	selfAddress string
	dispatcher  inboundDispatcher
	clock       clock.Clock
	logger      *slog.Logger

	mu         sync.Mutex
	deliveries map[string]time.Time
}

// NewWebhookHandler returns a handler. Panics if dispatcher, clock or
// logger is nil.
func NewWebhookHandler(secret []byte, selfAddress string, dispatcher inboundDispatcher, clk clock.Clock, logger *slog.Logger) *WebhookHandler {
	if dispatcher == nil {
		panic("WebhookHandler: dispatcher is required")
	}
	if clk == nil {
		panic("WebhookHandler: clock is required")
	}
	if logger == nil {
		panic("WebhookHandler: logger is required")
	}
	return &WebhookHandler{
		secret:      secret,
		selfAddress: selfAddress,
		dispatcher:  dispatcher,
		clock:       clk,
		logger:      logger,
		deliveries:  make(map[string]time.Time),
	}
}

// ServeHTTP handles one notification.
func (h *WebhookHandler) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	if request.Method != http.MethodPost {
		http.Error(writer, "", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(request.Body, maxWebhookBodySize))
	if err != nil {
		h.logger.Error("webhook: failed to read body", "error", err)
		http.Error(writer, "", http.StatusInternalServerError)
		return
	}
	if len(body) == 0 {
		http.Error(writer, "", http.StatusBadRequest)
		return
	}

	if h.secret != nil {
		signature := request.Header.Get(signatureHeader)
		if err := service.VerifyWebhookHMAC(sha1.New, h.secret, body, signature); err != nil {
			h.logger.Warn("webhook: HMAC verification failed",
				"error", err,
				"remote_addr", request.RemoteAddr,
			)
			http.Error(writer, "", http.StatusUnauthorized)
			return
		}
	}

	var event messaging.WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		h.logger.Warn("webhook: malformed notification", "error", err)
		http.Error(writer, "", http.StatusBadRequest)
		return
	}

	if event.Resource != "messages" || event.Event != "created" {
		h.logger.Debug("webhook: ignoring notification",
			"resource", event.Resource,
			"event", event.Event,
		)
		writer.WriteHeader(http.StatusOK)
		return
	}

	messageID := event.Data.ID
	if messageID == "" {
		h.logger.Warn("webhook: notification without message id", "webhook_id", event.ID)
		http.Error(writer, "", http.StatusBadRequest)
		return
	}

	if h.selfAddress != "" && event.Data.PersonEmail == h.selfAddress {
		writer.WriteHeader(http.StatusOK)
		return
	}

	if h.isDuplicate(messageID) {
		h.logger.Debug("webhook: duplicate delivery, ignoring", "message_id", messageID)
		writer.WriteHeader(http.StatusOK)
		return
	}

	h.logger.Info("webhook received",
		"message_id", messageID,
		"sender", event.Data.PersonEmail,
	)

	if err := h.dispatcher.HandleInboundMessage(request.Context(), messageID); err != nil {
		h.logger.Error("webhook: dispatch failed",
			"message_id", messageID,
			"error", err,
		)
		// Let a retried delivery through.
		h.forget(messageID)
		http.Error(writer, "", http.StatusInternalServerError)
		return
	}

	writer.WriteHeader(http.StatusOK)
}

// isDuplicate checks and records a message id. Expired entries are
// pruned on every call.
func (h *WebhookHandler) isDuplicate(messageID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.clock.Now()
	for id, receivedAt := range h.deliveries {
		if now.Sub(receivedAt) > deduplicationWindow {
			delete(h.deliveries, id)
		}
	}

	if _, exists := h.deliveries[messageID]; exists {
		return true
	}
	h.deliveries[messageID] = now
	return false
}

func (h *WebhookHandler) forget(messageID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.deliveries, messageID)
}
