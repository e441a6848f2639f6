// Copyright 2026 The PM Relay Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/pmrelay/pmrelay/lib/clock"
	"github.com/pmrelay/pmrelay/lib/config"
	"github.com/pmrelay/pmrelay/lib/digest"
	"github.com/pmrelay/pmrelay/lib/eventstore"
	"github.com/pmrelay/pmrelay/lib/ledger"
	"github.com/pmrelay/pmrelay/lib/relay"
	"github.com/pmrelay/pmrelay/lib/secret"
	"github.com/pmrelay/pmrelay/messaging"
)

// relayService holds the wired components of one running service.
type relayService struct {
	session       *messaging.Session
	webhookSecret *secret.Buffer
	ledger        *ledger.Store
	events        *eventstore.Store
	dispatcher    *relay.Dispatcher
	digest        *digest.Scheduler
	handler       http.Handler
	logger        *slog.Logger
}

// newRelayService opens storage, authenticates to Webex and wires the
// HTTP handler. The caller must Close the result.
func newRelayService(ctx context.Context, cfg *config.Config, clk clock.Clock, logger *slog.Logger) (_ *relayService, err error) {
	s := &relayService{logger: logger}
	defer func() {
		if err != nil {
			s.Close()
		}
	}()

	if err := cfg.EnsurePaths(); err != nil {
		return nil, err
	}

	token, err := secret.ReadFromPath(cfg.Webex.TokenFile)
	if err != nil {
		return nil, fmt.Errorf("reading webex token from %s: %w", cfg.Webex.TokenFile, err)
	}
	client, err := messaging.NewClient(messaging.ClientConfig{
		BaseURL: cfg.Webex.BaseURL,
		Logger:  logger,
	})
	if err != nil {
		token.Close()
		return nil, err
	}
	s.session, err = client.SessionFromBuffer(token)
	if err != nil {
		token.Close()
		return nil, err
	}

	var webhookSecret []byte
	if cfg.Webex.WebhookSecretFile != "" {
		s.webhookSecret, err = secret.ReadFromPath(cfg.Webex.WebhookSecretFile)
		if err != nil {
			return nil, fmt.Errorf("reading webhook secret from %s: %w", cfg.Webex.WebhookSecretFile, err)
		}
		webhookSecret = s.webhookSecret.Bytes()
	} else {
		logger.Warn("webhook signature verification disabled", "environment", cfg.Environment)
	}

	// The bot's own address keeps its replies from being dispatched.
	// Startup continues without it; replies are then classified as
	// ordinary messages and ignored.
	var selfAddress string
	if me, err := s.session.WhoAmI(ctx); err != nil {
		logger.Warn("could not resolve bot identity", "error", err)
	} else {
		selfAddress = me.PrimaryEmail()
		logger.Info("webex identity resolved", "bot", selfAddress)
	}

	s.ledger, err = ledger.Open(ledger.Config{
		Path:   cfg.Storage.LedgerDB,
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}

	s.events, err = eventstore.Open(cfg.Storage.EventsFile, logger)
	if err != nil {
		return nil, err
	}

	location, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	s.dispatcher, err = relay.New(relay.Config{
		Gateway:        s.session,
		Ledger:         s.ledger,
		AdminAddress:   cfg.Admin.Email,
		SelfAddress:    selfAddress,
		AwardAmount:    cfg.Reward.Amount,
		Unit:           cfg.Reward.Unit,
		ApproveKeyword: cfg.Commands.ApproveKeyword,
		RejectKeyword:  cfg.Commands.RejectKeyword,
		RewardQuery:    cfg.Commands.RewardQuery,
		Clock:          clk,
		Location:       location,
		Logger:         logger,
	})
	if err != nil {
		return nil, err
	}

	schedule, err := cfg.DigestSchedule()
	if err != nil {
		return nil, err
	}
	s.digest, err = digest.New(digest.Config{
		Events:   s.events,
		Sender:   s.session,
		Schedule: schedule,
		Clock:    clk,
		Logger:   logger,
	})
	if err != nil {
		return nil, err
	}

	intake := &intakeHandlers{
		reports:        s.dispatcher,
		events:         s.events,
		maxUploadBytes: cfg.Server.MaxUploadBytes,
		logger:         logger,
	}
	webhook := NewWebhookHandler(webhookSecret, selfAddress, s.dispatcher, clk, logger)
	s.handler = newRouter(intake, webhook)
	return s, nil
}

// Close releases storage and secrets. Safe on a partially built
// service.
func (s *relayService) Close() error {
	var errs []error
	if s.ledger != nil {
		errs = append(errs, s.ledger.Close())
	}
	if s.session != nil {
		errs = append(errs, s.session.Close())
	}
	if s.webhookSecret != nil {
		errs = append(errs, s.webhookSecret.Close())
	}
	return errors.Join(errs...)
}
