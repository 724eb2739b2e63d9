// Package webhook delivers async execution results to caller-supplied URLs.
//
// # Delivery Model
//
// - One POST per completed execution, JSON body, no retry
// - Optional HMAC-SHA256 signature over the exact body bytes
// - Non-2xx responses and transport errors are reported to the caller
//
// # Signing
//
// When a secret is configured the notifier adds a header (default
// X-Tfboot-Signature-256) in the "sha256=<hex>" form. Receivers can check it
// with Verify, which also accepts a bare hex digest.
package webhook
