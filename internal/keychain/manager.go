// Copyright (c) 2025 SQLPilot
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package keychain provides centralized, thread-safe keychain operations for
// sqlpilot. This module manages all interactions with the OS keychain/credential
// store, providing a unified interface for storing and retrieving sensitive data:
// the database DSN and the model-provider API key.
//
// The package supports macOS Keychain, Windows Credential Manager, and the
// Secret Service / file backends on Linux, with thread-safe operations and an
// environment-variable fallback so headless environments keep working.
package keychain

import (
	"errors"
	"os"
	"sync"

	"github.com/99designs/keyring"
)

// Global keychain manager instance
var (
	globalManager *Manager
	globalError   error
	mu            sync.Mutex
)

// Manager provides centralized, thread-safe operations for the OS keychain.
type Manager struct {
	mu   sync.RWMutex
	ring keyring.Keyring
}

// ServiceName identifies our keychain/credential store namespace.
const ServiceName = "sqlpilot"

// Keys used for storing secrets in the OS keychain.
const (
	KeyDBDSN  = "db_dsn"
	KeyAPIKey = "model_api_key"
)

// Environment variables consulted when the keychain holds no value.
const (
	EnvDBDSN  = "SQLPILOT_DSN"
	EnvAPIKey = "SQLPILOT_API_KEY"
)

// NewManager creates a new keychain manager with the OS keyring initialized.
func NewManager() (*Manager, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName:              ServiceName,
		PassPrefix:               ServiceName,
		WinCredPrefix:            ServiceName,
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, err
	}
	return &Manager{ring: ring}, nil
}

// GetManager returns the global keychain manager instance.
// If not initialized, it will be created on first call.
// If initialization fails, it will retry on subsequent calls.
func GetManager() (*Manager, error) {
	mu.Lock()
	defer mu.Unlock()

	if globalManager != nil {
		return globalManager, nil
	}

	globalManager, globalError = NewManager()
	if globalError != nil {
		return nil, globalError
	}
	return globalManager, nil
}

// Set stores a secret under key. This method is thread-safe.
func (m *Manager) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ring.Set(keyring.Item{Key: key, Data: []byte(value)})
}

// Get retrieves a secret by key. This method is thread-safe.
func (m *Manager) Get(key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	it, err := m.ring.Get(key)
	if err != nil {
		return "", err
	}
	if len(it.Data) == 0 {
		return "", errors.New("empty keychain entry")
	}
	return string(it.Data), nil
}

// Delete removes a secret by key. Missing keys are not an error.
func (m *Manager) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	err := m.ring.Remove(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return nil
	}
	return err
}

// Errors returned when no credential can be resolved. The guidance names the
// subcommand that stores the missing credential.
var (
	ErrNoDSN    = errors.New("no database DSN configured; run 'sqlpilot connect' or set " + EnvDBDSN)
	ErrNoAPIKey = errors.New("no model API key configured; run 'sqlpilot login' or set " + EnvAPIKey)
)

// ResolveDSN returns the stored database DSN, falling back to SQLPILOT_DSN.
func ResolveDSN() (string, error) {
	if m, err := GetManager(); err == nil {
		if v, err := m.Get(KeyDBDSN); err == nil && v != "" {
			return v, nil
		}
	}
	if v := os.Getenv(EnvDBDSN); v != "" {
		return v, nil
	}
	return "", ErrNoDSN
}

// ResolveAPIKey returns the stored model API key, falling back to environment
// variables (SQLPILOT_API_KEY, then OPENAI_API_KEY for compatibility).
func ResolveAPIKey() (string, error) {
	if m, err := GetManager(); err == nil {
		if v, err := m.Get(KeyAPIKey); err == nil && v != "" {
			return v, nil
		}
	}
	if v := os.Getenv(EnvAPIKey); v != "" {
		return v, nil
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		return v, nil
	}
	return "", ErrNoAPIKey
}
