// Package domain contains core concepts of the chat system.
// This file defines Message events and related rules.
// Messages are immutable and validated by the domain.
package domain

import (
	"fmt"
	"strings"
	"time"

	apperrors "chat-server/errors"
	"github.com/google/uuid"
)

// SystemSender identifies room-generated notices (joins, leaves).
const SystemSender = "SYSTEM"

// Message represents an immutable chat event, public or private.
// An empty To means the message is a room broadcast.
type Message struct {
	ID      uuid.UUID
	From    string
	To      string
	Text    string
	At      time.Time
	Private bool
}

// NewMessage builds a Message and stamps it with the current UTC time.
// A blank sender is a contract violation from the caller, never a
// client-facing condition: command handlers only pass validated input.
func NewMessage(from, to, text string, private bool) (Message, error) {
	if strings.TrimSpace(from) == "" {
		return Message{}, apperrors.ErrBlankSender
	}
	return Message{
		ID:      uuid.New(),
		From:    from,
		To:      to,
		Text:    text,
		At:      time.Now().UTC(),
		Private: private,
	}, nil
}

// NewSystemMessage builds a room-generated notice. It is broadcast and
// recorded in history like any public message.
func NewSystemMessage(text string) Message {
	msg, _ := NewMessage(SystemSender, "", text, false)
	return msg
}

// DisplayString renders the single protocol line shown to clients.
func (m Message) DisplayString() string {
	ts := m.At.Format(time.RFC3339)
	if m.Private {
		return fmt.Sprintf("[%s] (private) %s -> %s: %s", ts, m.From, m.To, m.Text)
	}
	return fmt.Sprintf("[%s] %s: %s", ts, m.From, m.Text)
}
