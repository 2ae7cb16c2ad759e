// Package webhook implements the relay's inbound HTTP endpoint with
// HMAC-SHA1 signature verification.
//
// Taiga pushes one POST per project event to /<network>/<channel>. The
// handler verifies the X-TAIGA-WEBHOOK-SIGNATURE header against the
// channel's shared secret, normalizes the payload into an event, fans it out
// to every joined channel subscribed to the event's project, renders each
// channel's template and hands the text to the messenger.
//
// # Security model
//
//   - HMAC-SHA1 signatures verified with crypto/subtle (constant-time)
//   - Per-channel secrets and opt-out via the settings store
//     (secret-key, verify-signature; verification defaults to on)
//   - Body size limits enforced before any payload work
//   - Request logging records a BLAKE3 digest of the body, never the body
//
// # Request flow
//
//  1. POST arrives at /<network>/<channel>
//  2. Network must match this process, channel must be currently joined
//  3. Signature verified (403 on missing or invalid signature)
//  4. Payload parsed; test payloads, unknown types and incomplete envelopes
//     are accepted and dropped, invalid JSON is rejected
//  5. Event routed to matching channels, rendered and dispatched; a failure
//     for one channel never aborts the others
//  6. 200 "OK" returned once every dispatch has been attempted
//
// # Responses
//
// Always exactly one plain-text response per request: 200 "OK" on success or
// silent ignore, 403 with a fixed diagnostic on security and parse
// rejections, 404 for an unknown network/channel, 413 for oversized bodies.
// Invalid JSON keeps its historical 403 status for wire compatibility.
package webhook
