// Copyright 2026 The PM Relay Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pmrelay/pmrelay/lib/clock"
	"github.com/pmrelay/pmrelay/lib/ledger"
	"github.com/pmrelay/pmrelay/messaging"
)

// Gateway is the messaging capability the dispatcher needs.
// *messaging.Session implements it.
type Gateway interface {
	SendMessage(ctx context.Context, message messaging.OutgoingMessage) (*messaging.Message, error)
	GetMessage(ctx context.Context, messageID string) (*messaging.Message, error)
}

// Default command vocabulary and award.
const (
	DefaultApproveKeyword = "approve"
	DefaultRejectKeyword  = "reject"
	DefaultRewardQuery    = "!reward"
	DefaultAwardAmount    = 100
	DefaultUnit           = "coins"
)

// ErrMissingMessageID is returned by HandleInboundMessage for an
// empty id.
var ErrMissingMessageID = errors.New("relay: inbound message id is missing")

// Config holds the dispatcher's collaborators and vocabulary.
type Config struct {
	// Gateway sends and fetches messages. Required.
	Gateway Gateway

	// Ledger stores pending requests and rewards. Required.
	Ledger *ledger.Store

	// AdminAddress is the only sender allowed to approve or reject,
	// and the recipient of report notifications. Required.
	AdminAddress string

	// SelfAddress is the bot's own address. Messages from it are
	// ignored so the bot's replies never re-enter the dispatcher.
	SelfAddress string

	// AwardAmount is credited per approval. Zero means
	// DefaultAwardAmount.
	AwardAmount int64

	// Unit names the reward currency in replies. Empty means
	// DefaultUnit.
	Unit string

	// ApproveKeyword, RejectKeyword and RewardQuery override the
	// command vocabulary. Empty means the defaults.
	ApproveKeyword string
	RejectKeyword  string
	RewardQuery    string

	// Clock stamps awards and reports. Nil means clock.Real().
	Clock clock.Clock

	// Location formats award times in replies. Nil means time.Local.
	Location *time.Location

	// Logger receives dispatch decisions and gateway failures. Nil
	// discards them.
	Logger *slog.Logger
}

// Dispatcher applies inbound commands and report intake to the
// ledgers. Safe for concurrent use.
type Dispatcher struct {
	gateway  Gateway
	ledger   *ledger.Store
	clock    clock.Clock
	location *time.Location
	logger   *slog.Logger

	adminAddress   string
	selfAddress    string
	awardAmount    int64
	unit           string
	approveKeyword string
	rejectKeyword  string
	rewardQuery    string
}

// New validates config and returns a Dispatcher.
func New(config Config) (*Dispatcher, error) {
	if config.Gateway == nil {
		return nil, fmt.Errorf("relay: Gateway is required")
	}
	if config.Ledger == nil {
		return nil, fmt.Errorf("relay: Ledger is required")
	}
	if config.AdminAddress == "" {
		return nil, fmt.Errorf("relay: AdminAddress is required")
	}
	if config.AwardAmount < 0 {
		return nil, fmt.Errorf("relay: AwardAmount must be positive, got %d", config.AwardAmount)
	}

	dispatcher := &Dispatcher{
		gateway:        config.Gateway,
		ledger:         config.Ledger,
		clock:          config.Clock,
		location:       config.Location,
		logger:         config.Logger,
		adminAddress:   config.AdminAddress,
		selfAddress:    config.SelfAddress,
		awardAmount:    config.AwardAmount,
		unit:           config.Unit,
		approveKeyword: config.ApproveKeyword,
		rejectKeyword:  config.RejectKeyword,
		rewardQuery:    config.RewardQuery,
	}
	if dispatcher.clock == nil {
		dispatcher.clock = clock.Real()
	}
	if dispatcher.location == nil {
		dispatcher.location = time.Local
	}
	if dispatcher.logger == nil {
		dispatcher.logger = slog.New(slog.DiscardHandler)
	}
	if dispatcher.awardAmount == 0 {
		dispatcher.awardAmount = DefaultAwardAmount
	}
	if dispatcher.unit == "" {
		dispatcher.unit = DefaultUnit
	}
	if dispatcher.approveKeyword == "" {
		dispatcher.approveKeyword = DefaultApproveKeyword
	}
	if dispatcher.rejectKeyword == "" {
		dispatcher.rejectKeyword = DefaultRejectKeyword
	}
	if dispatcher.rewardQuery == "" {
		dispatcher.rewardQuery = DefaultRewardQuery
	}
	return dispatcher, nil
}

// command is the classification of one inbound text.
type command int

const (
	commandNone command = iota
	commandRewardQuery
	commandApprove
	commandReject
)

func (c command) String() string {
	switch c {
	case commandRewardQuery:
		return "reward-query"
	case commandApprove:
		return "approve"
	case commandReject:
		return "reject"
	default:
		return "none"
	}
}

// classify matches text case-sensitively. First match wins.
func (d *Dispatcher) classify(sender, text string) command {
	switch {
	case text == d.rewardQuery:
		return commandRewardQuery
	case strings.HasPrefix(text, d.approveKeyword) && sender == d.adminAddress:
		return commandApprove
	case strings.HasPrefix(text, d.rejectKeyword) && sender == d.adminAddress:
		return commandReject
	default:
		return commandNone
	}
}

// HandleInboundMessage fetches the message with the given id and
// dispatches it. An empty id or a failed fetch aborts before any
// ledger is read.
func (d *Dispatcher) HandleInboundMessage(ctx context.Context, messageID string) error {
	if messageID == "" {
		return ErrMissingMessageID
	}

	message, err := d.gateway.GetMessage(ctx, messageID)
	if err != nil {
		return fmt.Errorf("relay: fetching message %s: %w", messageID, err)
	}

	if d.selfAddress != "" && message.PersonEmail == d.selfAddress {
		d.logger.Debug("ignoring own message", "message_id", messageID)
		return nil
	}

	return d.Dispatch(ctx, message.PersonEmail, strings.TrimSpace(message.Text))
}

// Dispatch classifies text from sender and runs the command. Gateway
// failures are logged, not returned; a returned error means the
// ledger could not be read or written.
func (d *Dispatcher) Dispatch(ctx context.Context, sender, text string) error {
	cmd := d.classify(sender, text)
	d.logger.Debug("inbound message classified",
		"sender", sender,
		"command", cmd.String(),
	)

	switch cmd {
	case commandRewardQuery:
		return d.replyBalance(ctx, sender)
	case commandApprove:
		return d.resolve(ctx, cmd, text)
	case commandReject:
		return d.resolve(ctx, cmd, text)
	default:
		return nil
	}
}

// resolve runs approve or reject against the target named in text.
func (d *Dispatcher) resolve(ctx context.Context, cmd command, text string) error {
	target, err := d.resolveTarget(ctx, text)
	switch {
	case errors.Is(err, errNoTarget):
		d.notify(ctx, d.adminAddress, "No pending request to process.")
		return nil
	case errors.Is(err, errAmbiguousTarget):
		d.notify(ctx, d.adminAddress, "Multiple pending requests exist; specify the target address.")
		return nil
	case err != nil:
		return err
	}

	if cmd == commandApprove {
		return d.approve(ctx, target)
	}
	return d.reject(ctx, target)
}

// resolveTarget returns the second word of text, or the address of
// the only pending request.
func (d *Dispatcher) resolveTarget(ctx context.Context, text string) (string, error) {
	if fields := strings.Fields(text); len(fields) >= 2 {
		return fields[1], nil
	}

	address, ok, err := d.ledger.SingleAddress(ctx)
	if err != nil {
		return "", fmt.Errorf("relay: resolving target: %w", err)
	}
	if ok {
		return address, nil
	}

	count, err := d.ledger.CountPending(ctx)
	if err != nil {
		return "", fmt.Errorf("relay: resolving target: %w", err)
	}
	if count == 0 {
		return "", errNoTarget
	}
	return "", errAmbiguousTarget
}

func (d *Dispatcher) approve(ctx context.Context, target string) error {
	_, balance, err := d.ledger.Approve(ctx, target, d.awardAmount, d.clock.Now())
	if errors.Is(err, ledger.ErrNoPending) {
		d.notify(ctx, d.adminAddress, fmt.Sprintf("No pending request for %s.", target))
		return nil
	}
	if err != nil {
		return fmt.Errorf("relay: approving %s: %w", target, err)
	}

	d.notify(ctx, target, fmt.Sprintf(
		"Your relocation report was approved and %d %s were credited. Your balance is now %d %s.",
		d.awardAmount, d.unit, balance.Total, d.unit))
	d.notify(ctx, d.adminAddress, fmt.Sprintf("Approved the request from %s.", target))
	return nil
}

func (d *Dispatcher) reject(ctx context.Context, target string) error {
	_, err := d.ledger.Reject(ctx, target)
	if errors.Is(err, ledger.ErrNoPending) {
		d.notify(ctx, d.adminAddress, fmt.Sprintf("No pending request for %s.", target))
		return nil
	}
	if err != nil {
		return fmt.Errorf("relay: rejecting %s: %w", target, err)
	}

	d.notify(ctx, target,
		"Your relocation report was rejected. Please relocate the device again and submit a new report.")
	d.notify(ctx, d.adminAddress, fmt.Sprintf("Rejected the request from %s.", target))
	return nil
}

func (d *Dispatcher) replyBalance(ctx context.Context, sender string) error {
	balance, err := d.ledger.Balance(ctx, sender)
	if err != nil {
		return fmt.Errorf("relay: reading balance for %s: %w", sender, err)
	}
	d.notify(ctx, sender, d.formatBalance(balance))
	return nil
}

// formatBalance renders the total followed by a numbered history.
func (d *Dispatcher) formatBalance(balance ledger.Balance) string {
	var builder strings.Builder
	fmt.Fprintf(&builder, "Reward balance: %d %s", balance.Total, d.unit)
	if len(balance.History) == 0 {
		builder.WriteString("\nNo rewards yet.")
		return builder.String()
	}
	for index, award := range balance.History {
		fmt.Fprintf(&builder, "\n%d. %s +%d %s",
			index+1,
			award.AwardedAt.In(d.location).Format("2006-01-02 15:04"),
			award.Amount, d.unit)
	}
	return builder.String()
}

// notify sends text to address and logs a failure. It never returns
// an error: outbound delivery does not affect ledger state.
func (d *Dispatcher) notify(ctx context.Context, address, text string) {
	d.send(ctx, messaging.OutgoingMessage{ToPersonEmail: address, Text: text})
}

func (d *Dispatcher) send(ctx context.Context, message messaging.OutgoingMessage) {
	sent, err := d.gateway.SendMessage(ctx, message)
	if err != nil {
		d.logger.Error("outbound message failed",
			"to", message.ToPersonEmail,
			"error", err,
		)
		return
	}
	d.logger.Debug("outbound message sent",
		"to", message.ToPersonEmail,
		"message_id", sent.ID,
	)
}
