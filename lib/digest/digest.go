// Copyright 2026 The PM Relay Authors
// SPDX-License-Identifier: Apache-2.0

// Package digest sends each user a reminder for the calendar events
// that fall on the current day.
//
// A [Scheduler] sleeps until the next firing of a cron schedule, then
// sends one message per matching event. "Today" is the calendar day
// of the firing time in the schedule's location, so a 09:00 KST
// schedule matches events dated in KST regardless of the host zone.
// A failed send is logged and the remaining events are still sent.
package digest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pmrelay/pmrelay/lib/clock"
	"github.com/pmrelay/pmrelay/lib/cron"
	"github.com/pmrelay/pmrelay/lib/eventstore"
	"github.com/pmrelay/pmrelay/messaging"
)

// Sender delivers one message. *messaging.Session implements it.
type Sender interface {
	SendMessage(ctx context.Context, message messaging.OutgoingMessage) (*messaging.Message, error)
}

// Config holds the scheduler's collaborators.
type Config struct {
	// Events is read on every run. Required.
	Events *eventstore.Store

	// Sender delivers reminders. Required.
	Sender Sender

	// Schedule decides when runs happen and which zone "today" is
	// evaluated in.
	Schedule cron.Schedule

	// Clock drives the wait between runs. Nil means clock.Real().
	Clock clock.Clock

	// Logger receives per-run summaries and send failures. Nil
	// discards them.
	Logger *slog.Logger
}

// Scheduler runs the daily digest.
type Scheduler struct {
	events   *eventstore.Store
	sender   Sender
	schedule cron.Schedule
	clock    clock.Clock
	logger   *slog.Logger
}

// Result summarizes one run.
type Result struct {
	Day     string
	Matched int
	Sent    int
	Failed  int
}

// New returns a Scheduler for config.
func New(config Config) (*Scheduler, error) {
	if config.Events == nil {
		return nil, fmt.Errorf("digest: Events is required")
	}
	if config.Sender == nil {
		return nil, fmt.Errorf("digest: Sender is required")
	}

	scheduler := &Scheduler{
		events:   config.Events,
		sender:   config.Sender,
		schedule: config.Schedule,
		clock:    config.Clock,
		logger:   config.Logger,
	}
	if scheduler.clock == nil {
		scheduler.clock = clock.Real()
	}
	if scheduler.logger == nil {
		scheduler.logger = slog.New(slog.DiscardHandler)
	}
	return scheduler, nil
}

// Today returns the current calendar day in the schedule's location.
func (s *Scheduler) Today() string {
	return s.clock.Now().In(s.schedule.Location()).Format(eventstore.DateLayout)
}

// Run fires the digest at every schedule match until ctx is done.
// Returns ctx.Err() on cancellation, or an error if the schedule never
// matches.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		now := s.clock.Now()
		next, err := s.schedule.Next(now)
		if err != nil {
			return fmt.Errorf("digest: %w", err)
		}

		s.logger.Info("next digest scheduled", "at", next)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.clock.After(next.Sub(now)):
		}

		day := next.In(s.schedule.Location()).Format(eventstore.DateLayout)
		if _, err := s.RunOnce(ctx, day); err != nil {
			s.logger.Error("digest run failed", "day", day, "error", err)
		}
	}
}

// RunOnce sends reminders for every event dated day. An error means
// the event store could not be read; send failures are counted in the
// Result instead.
func (s *Scheduler) RunOnce(ctx context.Context, day string) (Result, error) {
	result := Result{Day: day}

	events, err := s.events.OnDate(day)
	if err != nil {
		return result, fmt.Errorf("digest: loading events for %s: %w", day, err)
	}
	result.Matched = len(events)

	for _, event := range events {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}

		_, err := s.sender.SendMessage(ctx, messaging.OutgoingMessage{
			ToPersonEmail: event.Email,
			Text:          Reminder(event),
		})
		if err != nil {
			result.Failed++
			s.logger.Error("digest reminder failed",
				"email", event.Email,
				"day", day,
				"error", err,
			)
			continue
		}
		result.Sent++
	}

	s.logger.Info("digest run complete",
		"day", day,
		"matched", result.Matched,
		"sent", result.Sent,
		"failed", result.Failed,
	)
	return result, nil
}

// Reminder is the text sent for one event.
func Reminder(event eventstore.Event) string {
	return "Today's schedule: " + event.Event
}
