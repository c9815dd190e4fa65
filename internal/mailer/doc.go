// Package mailer delivers assessment summaries by email.
//
// Delivery goes through a Sender: SMTP when email is enabled in config.toml,
// otherwise a disabled sender that refuses every message. Service validates
// the request, applies the per-address rate limit, and composes the message;
// only successful deliveries count against the limit.
package mailer
