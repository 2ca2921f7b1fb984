// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package provider

import (
	"context"
	"fmt"
	"sync"
)

// MockProvider is a scriptable provider for tests. By default it translates
// text as "[lang] text"; individual calls can be made to fail by queueing
// errors.
type MockProvider struct {
	mu           sync.Mutex
	Translations map[string]string // optional fixed translations by source text
	errs         []error           // consumed one per call, nil entries succeed
	callCount    int
	requests     []Request
}

// NewMockProvider creates a new mock provider.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		Translations: make(map[string]string),
	}
}

// FailNext queues errors to be returned by the next calls, in order.
// A nil entry makes that call succeed.
func (m *MockProvider) FailNext(errs ...error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs = append(m.errs, errs...)
}

// Translate returns scripted or synthesized translations.
func (m *MockProvider) Translate(_ context.Context, req Request) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.callCount++
	m.requests = append(m.requests, req)

	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		if err != nil {
			return nil, err
		}
	}

	results := make([]string, len(req.Texts))
	for i, text := range req.Texts {
		if translation, ok := m.Translations[text]; ok {
			results[i] = translation
		} else {
			results[i] = fmt.Sprintf("[%s] %s", req.TargetLang, text)
		}
	}
	return results, nil
}

// CallCount returns the number of Translate calls so far.
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Requests returns a copy of all requests received.
func (m *MockProvider) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Request(nil), m.requests...)
}

// Verify MockProvider implements Provider
var _ Provider = (*MockProvider)(nil)
