// Copyright 2026 The PM Relay Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source.
//
// Components that stamp records or wait on schedules hold a Clock
// instead of calling time.Now or time.After directly:
//
//	dispatcher := relay.NewDispatcher(relay.Config{Clock: clock.Real(), ...})
//
// Tests use Fake, which only moves when Advance is called:
//
//	c := clock.Fake(time.Date(2026, 10, 18, 8, 59, 0, 0, time.UTC))
//	go scheduler.Run(ctx)
//	c.WaitForTimers(1)       // scheduler is now blocked on After
//	c.Advance(time.Minute)   // fire the 09:00 run deterministically
//
// WaitForTimers closes the race between a goroutine registering its
// wait and the test advancing past it.
package clock
