package chat

import "context"

// EchoReply is the canned answer used when no model is configured.
const EchoReply = "I am Esuvi, your AI assistant. How can I help you today?"

// Echo answers every message with EchoReply.
type Echo struct{}

// Complete implements Completer.
func (Echo) Complete(ctx context.Context, _ Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return EchoReply, nil
}
