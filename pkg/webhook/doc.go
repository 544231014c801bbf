// Package webhook provides HMAC payload authentication and retry backoff
// strategies shared by the inbound event gateway and the outbound delivery
// adapters.
//
// Inbound: the billing provider signs every event payload; the gateway
// verifies the signature before any state is touched. Outbound: the SMS and
// push adapters sign the envelopes they POST to downstream providers with
// the same scheme, so receivers can authenticate us symmetrically.
//
// Signature format: HMAC-SHA256(secret, timestamp + "." + payload), carried
// in the X-Signature / X-Signature-Timestamp headers. Binding the timestamp
// into the digest prevents replay of captured payloads.
package webhook
