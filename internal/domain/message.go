package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxMessageLength is the longest accepted body, in characters.
const MaxMessageLength = 4000

// Message is an immutable entry of a conversation log. Seq is assigned by the
// store and is the only ordering key; CreatedAt is for display.
type Message struct {
	ID             string
	Seq            int64
	ConversationID string
	SenderID       string
	Body           string
	CreatedAt      time.Time
}

// NormalizeBody trims the body and checks its length.
func NormalizeBody(body string) (string, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return "", ErrEmptyMessage
	}
	if utf8.RuneCountInString(body) > MaxMessageLength {
		return "", fmt.Errorf("%w: message is longer than %d characters", ErrInvalidInput, MaxMessageLength)
	}
	return body, nil
}

// MessageFilter selects a window of a conversation log.
// AfterSeq 0 starts from the beginning, Limit 0 returns everything.
type MessageFilter struct {
	AfterSeq int64
	Limit    int
}
