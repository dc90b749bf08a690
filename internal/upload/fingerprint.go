// Stox Gateway - API Gateway for Image and Commerce Backends
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stox-gateway

package upload

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// Fingerprint identifies an upload request: BLAKE2b-256 over the owner,
// the content type and the bytes, NUL separated.
func Fingerprint(ownerID, contentType string, data []byte) string {
	h, _ := blake2b.New256(nil) // only fails for keys longer than 64 bytes
	h.Write([]byte(ownerID))
	h.Write([]byte{0})
	h.Write([]byte(contentType))
	h.Write([]byte{0})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}
