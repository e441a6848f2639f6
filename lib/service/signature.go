// Copyright 2026 The PM Relay Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"crypto/hmac"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"strings"
)

// ErrSignatureMismatch means a webhook signature did not match the
// body.
var ErrSignatureMismatch = errors.New("webhook signature mismatch")

// VerifyWebhookHMAC checks signature, the hex HMAC of body under
// secret, computed with newHash. A leading "<algorithm>=" label is
// ignored. Webex sends HMAC-SHA1 in X-Spark-Signature.
//
// Errors never contain the expected digest.
func VerifyWebhookHMAC(newHash func() hash.Hash, secret, body []byte, signature string) error {
	switch {
	case len(secret) == 0:
		return errors.New("webhook signature: no secret configured")
	case len(body) == 0:
		return errors.New("webhook signature: empty body")
	case signature == "":
		return errors.New("webhook signature: header missing")
	}

	if _, digest, found := strings.Cut(signature, "="); found {
		signature = digest
	}
	received, err := hex.DecodeString(signature)
	if err != nil {
		return fmt.Errorf("webhook signature: not hex: %w", err)
	}

	mac := hmac.New(newHash, secret)
	mac.Write(body)
	if !hmac.Equal(mac.Sum(nil), received) {
		return ErrSignatureMismatch
	}
	return nil
}
