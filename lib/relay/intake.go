// Copyright 2026 The PM Relay Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pmrelay/pmrelay/lib/ledger"
	"github.com/pmrelay/pmrelay/messaging"
)

// Report is a PM return or relocation report as submitted. Coordinates
// are the raw form values; Submit* parses and range-checks them.
type Report struct {
	Address   string
	Latitude  string
	Longitude string

	// Message is the optional note on a relocation report. Ignored for
	// returns.
	Message string

	// Photo is forwarded to the administrator and not stored.
	// Required.
	Photo *messaging.Attachment
}

// Receipt acknowledges an accepted report.
type Receipt struct {
	ReportID    string    `json:"report_id"`
	SubmittedAt time.Time `json:"submitted_at"`
}

type coordinates struct {
	latitude  float64
	longitude float64
}

func (c coordinates) String() string {
	return fmt.Sprintf("%.5f, %.5f", c.latitude, c.longitude)
}

// validate checks the required fields and parses the coordinates.
func (r Report) validate() (coordinates, error) {
	if strings.TrimSpace(r.Address) == "" {
		return coordinates{}, &ValidationError{Field: "email"}
	}
	latitude, err := parseCoordinate("latitude", r.Latitude, 90)
	if err != nil {
		return coordinates{}, err
	}
	longitude, err := parseCoordinate("longitude", r.Longitude, 180)
	if err != nil {
		return coordinates{}, err
	}
	if r.Photo == nil || r.Photo.Content == nil {
		return coordinates{}, &ValidationError{Field: "photo"}
	}
	return coordinates{latitude: latitude, longitude: longitude}, nil
}

func parseCoordinate(field, raw string, limit float64) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, &ValidationError{Field: field}
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, &ValidationError{Field: field, Reason: "not a number"}
	}
	if value < -limit || value > limit {
		return 0, &ValidationError{Field: field, Reason: fmt.Sprintf("out of range [-%g, %g]", limit, limit)}
	}
	return value, nil
}

// SubmitReturn forwards a PM return report to the administrator.
// Invalid reports return a *ValidationError and send nothing.
func (d *Dispatcher) SubmitReturn(ctx context.Context, report Report) (Receipt, error) {
	location, err := report.validate()
	if err != nil {
		return Receipt{}, err
	}
	receipt := d.newReceipt()
	address := strings.TrimSpace(report.Address)

	d.logger.Info("return report received",
		"report_id", receipt.ReportID,
		"address", address,
	)

	d.send(ctx, messaging.OutgoingMessage{
		ToPersonEmail: d.adminAddress,
		Text: fmt.Sprintf("PM return report from %s\nLocation: %s\nReport: %s",
			address, location, receipt.ReportID),
		Attachment: report.Photo,
	})
	return receipt, nil
}

// SubmitRelocation records a pending request for the reporter and
// forwards the report to the administrator. A later report from the
// same address replaces the earlier one.
func (d *Dispatcher) SubmitRelocation(ctx context.Context, report Report) (Receipt, error) {
	location, err := report.validate()
	if err != nil {
		return Receipt{}, err
	}
	receipt := d.newReceipt()
	address := strings.TrimSpace(report.Address)
	note := strings.TrimSpace(report.Message)

	err = d.ledger.PutPending(ctx, ledger.PendingRequest{
		Address:     address,
		Latitude:    location.latitude,
		Longitude:   location.longitude,
		Message:     note,
		SubmittedAt: receipt.SubmittedAt,
		ReportID:    receipt.ReportID,
	})
	if err != nil {
		return Receipt{}, fmt.Errorf("relay: recording relocation from %s: %w", address, err)
	}

	d.logger.Info("relocation report received",
		"report_id", receipt.ReportID,
		"address", address,
	)

	var text strings.Builder
	fmt.Fprintf(&text, "PM relocation report from %s\nLocation: %s\n", address, location)
	if note != "" {
		fmt.Fprintf(&text, "Message: %s\n", note)
	}
	fmt.Fprintf(&text, "Reply \"%s %s\" or \"%s %s\".",
		d.approveKeyword, address, d.rejectKeyword, address)

	d.send(ctx, messaging.OutgoingMessage{
		ToPersonEmail: d.adminAddress,
		Text:          text.String(),
		Attachment:    report.Photo,
	})
	return receipt, nil
}

func (d *Dispatcher) newReceipt() Receipt {
	return Receipt{
		ReportID:    uuid.NewString(),
		SubmittedAt: d.clock.Now().UTC(),
	}
}
