// Package subscription implements channel-based dispatch of inbound envelopes.
//
// Subscriptions are local: they control which callbacks fire for frames the
// transport already delivers. Telling the server which feeds to stream is a
// separate concern handled by the wire subscribe/unsubscribe convention.
package subscription
