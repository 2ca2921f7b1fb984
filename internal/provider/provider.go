// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package provider defines the machine-translation provider interface and
// its implementations.
package provider

import (
	"context"
	"errors"
	"fmt"
)

// Request is a batch translation request. Texts are translated independently
// and the response preserves order and length.
type Request struct {
	Texts      []string
	SourceLang string // empty means auto-detect
	TargetLang string
}

// Provider is the interface for machine-translation backends.
type Provider interface {
	// Translate returns one translation per input text, in order.
	Translate(ctx context.Context, req Request) ([]string, error)
}

// Error indicates a provider failure. Retryable distinguishes transient
// conditions (timeouts, rate limits) from permanent ones (auth, quota): a
// transient error is retried within the batch, a permanent one fails the
// whole task.
type Error struct {
	Message   string
	Cause     error
	Retryable bool
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("provider error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("provider error: %s", e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// IsRetryable reports whether err is a transient provider failure.
// Context errors and non-provider errors are not retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var providerErr *Error
	if errors.As(err, &providerErr) {
		return providerErr.Retryable
	}

	return false
}

// IsPermanent reports whether err is a permanent provider failure, the kind
// that would fail identically for every remaining entry of a task.
func IsPermanent(err error) bool {
	if err == nil {
		return false
	}

	var providerErr *Error
	if errors.As(err, &providerErr) {
		return !providerErr.Retryable
	}

	return false
}

// CountMismatchError indicates the provider returned a different number of
// translations than requested.
type CountMismatchError struct {
	Expected int
	Got      int
}

func (e *CountMismatchError) Error() string {
	return fmt.Sprintf("provider returned %d translations, expected %d", e.Got, e.Expected)
}

// MalformedResponseError indicates the provider replied with output the
// client could not parse. Like a count mismatch it is neither retryable nor
// permanent: the batch is skipped and its entries stay eligible for a
// future task.
type MalformedResponseError struct {
	Detail string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed provider response: %s", e.Detail)
}
