// Package privacy implements the two anonymization steps applied to every
// browsing event before it is stored: PII redaction of free text and keyed
// one-way hashing of identifiers.
//
// Redaction runs a fixed, ordered table of regular expressions (see
// patterns.go). Each match is replaced by a bracketed placeholder such as
// [EMAIL_REDACTED]; placeholders never match a later pass, so redaction is
// idempotent.
//
// Pseudonymization is HMAC-SHA256 with a secret supplied by configuration.
// The same input and secret always produce the same 64 character hex digest,
// which lets events about the same URL be grouped without storing the URL.
package privacy
