// Copyright 2026 The PM Relay Authors
// SPDX-License-Identifier: Apache-2.0

// Package cron evaluates the 5-field cron expressions used for the
// daily digest schedule.
//
//	minute hour day-of-month month day-of-week
//	0      9    *            *     *
//
// A field is a comma list of terms; a term is "*", a value, or a range
// "a-b", each optionally followed by "/step". Months accept jan-dec
// and days of week accept sun-sat, case-insensitively. Day of week 7
// is Sunday, as is 0. The shortcuts @yearly, @monthly, @weekly, @daily
// (or @midnight) and @hourly are accepted. A time must satisfy both
// day fields.
//
// Expressions are wall-clock times in a time.Location; see
// [ParseInLocation].
package cron
