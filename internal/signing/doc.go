// Package signing derives time-limited, tamper-proof CDN URLs for private
// media objects from a shared HMAC secret.
//
// References prefixed with "private:" are signed; anything else is already a
// public URL and bypasses the signer entirely. The secret is validated at
// construction so a missing secret stops the worker at startup instead of
// failing every job.
package signing
