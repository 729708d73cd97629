// Package flash defines the one-shot outcome message shown on the page a
// mutation redirects to.
package flash

import "encoding/gob"

// Kinds of flash message.
const (
	KindSuccess = "success"
	KindError   = "error"
)

// Message is stored in the session and consumed by the next page load.
type Message struct {
	Kind string
	Text string
}

func init() {
	// Session values are gob encoded by securecookie.
	gob.Register(Message{})
}

// Success builds a success message.
func Success(text string) Message {
	return Message{Kind: KindSuccess, Text: text}
}

// Error builds an error message.
func Error(text string) Message {
	return Message{Kind: KindError, Text: text}
}

// IsError reports whether m is an error message.
func (m Message) IsError() bool {
	return m.Kind == KindError
}
