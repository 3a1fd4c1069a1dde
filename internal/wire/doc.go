// Package wire defines the envelope format shared by client and server.
//
// Every frame is one Envelope serialized as JSON text. The type field routes
// the payload: "ping"/"pong" are reserved for heartbeat, and
// "subscribe"/"unsubscribe" carry feed-selection requests for the server.
// Everything else is application data dispatched by channel name.
package wire
