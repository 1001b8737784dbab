package handler

import (
	"strings"
	"unicode/utf8"

	"dbtcheck/internal/chat"
	dErrors "dbtcheck/pkg/domain-errors"
)

const (
	maxMessageRunes = 2000
	maxHistoryTurns = 50
	maxConversation = 64
)

// SendRequest is the body of POST /chat.
type SendRequest struct {
	ConversationID string      `json:"conversation_id"`
	Profile        string      `json:"profile"`
	Message        string      `json:"message"`
	History        []chat.Turn `json:"history"`

	profile chat.Profile
}

// Validate trims the message and resolves the profile.
func (r *SendRequest) Validate() error {
	r.Message = strings.TrimSpace(r.Message)
	r.ConversationID = strings.TrimSpace(r.ConversationID)
	if r.Message == "" {
		return dErrors.New(dErrors.CodeValidation, "message is required")
	}
	if utf8.RuneCountInString(r.Message) > maxMessageRunes {
		return dErrors.New(dErrors.CodeValidation, "message is too long")
	}
	if len(r.ConversationID) > maxConversation {
		return dErrors.New(dErrors.CodeValidation, "conversation_id is too long")
	}
	if len(r.History) > maxHistoryTurns {
		return dErrors.New(dErrors.CodeValidation, "history is too long")
	}
	for _, t := range r.History {
		if t.Role != chat.RoleUser && t.Role != chat.RoleAssistant {
			return dErrors.New(dErrors.CodeValidation, "history role must be user or assistant")
		}
		if utf8.RuneCountInString(t.Text) > maxMessageRunes {
			return dErrors.New(dErrors.CodeValidation, "history message is too long")
		}
	}
	p, err := chat.ProfileByName(r.Profile)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "profile must be widget or assistant")
	}
	r.profile = p
	return nil
}

// SendResponse carries the reply. OK is false when Reply is an error notice
// meant to be shown as a bot message.
type SendResponse struct {
	Reply    string `json:"reply"`
	OK       bool   `json:"ok"`
	Profile  string `json:"profile"`
	Category string `json:"category,omitempty"`
}
