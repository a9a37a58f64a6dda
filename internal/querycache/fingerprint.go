// Copyright (c) 2025 SQLPilot
// Licensed under the MIT License. See LICENSE file in the project root for details.

package querycache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"sqlpilot/cli/internal/dialect"
)

// Fingerprint is the fixed-length cache key: SHA-256 over the normalized SQL
// text, the target dialect, and any bound parameter values. Normalization is
// the caller's responsibility (the executor normalizes before fingerprinting);
// the cache treats the key as opaque.
type Fingerprint [sha256.Size]byte

// String returns the hex form, used to identify pending requests externally.
func (f Fingerprint) String() string { return hex.EncodeToString(f[:]) }

// ComputeFingerprint derives the cache key for a normalized statement.
func ComputeFingerprint(d dialect.Dialect, normalizedSQL string, params ...any) Fingerprint {
	h := sha256.New()
	h.Write([]byte(d))
	h.Write([]byte{0})
	h.Write([]byte(normalizedSQL))
	for _, p := range params {
		h.Write([]byte{0})
		fmt.Fprintf(h, "%v", p)
	}
	var f Fingerprint
	copy(f[:], h.Sum(nil))
	return f
}
