package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/vulcano-studio/vulcano-backend/internal/apperr"
)

var ErrMessageNotFound = fmt.Errorf("message %w", apperr.ErrNotFound)

const MaxSubjectLen = 200

// Message is a directed note between two users, optionally about a project.
// Once read it stays read and ReadAt never changes.
type Message struct {
	ID                uuid.UUID  `json:"id"`
	SenderID          uuid.UUID  `json:"sender_id"`
	SenderUsername    string     `json:"sender_username"`
	RecipientID       uuid.UUID  `json:"recipient_id"`
	RecipientUsername string     `json:"recipient_username"`
	ProjectID         *uuid.UUID `json:"project_id"`
	ProjectTitle      string     `json:"project_title,omitempty"`
	Subject           string     `json:"subject"`
	Body              string     `json:"body"`
	IsRead            bool       `json:"is_read"`
	ReadAt            *time.Time `json:"read_at"`
	CreatedAt         time.Time  `json:"created_at"`
}

func (m Message) Parties() (sender, recipient uuid.UUID) {
	return m.SenderID, m.RecipientID
}

// SendInput is the compose payload.
type SendInput struct {
	RecipientID uuid.UUID  `json:"recipient"`
	ProjectID   *uuid.UUID `json:"project"`
	Subject     string     `json:"subject"`
	Body        string     `json:"body"`
}

// Normalize trims the payload and records every field problem in v.
func (in SendInput) Normalize(v *apperr.ValidationError, sender uuid.UUID) SendInput {
	in.Subject = strings.TrimSpace(in.Subject)
	in.Body = strings.TrimSpace(in.Body)
	if in.ProjectID != nil && *in.ProjectID == uuid.Nil {
		in.ProjectID = nil
	}

	switch {
	case in.RecipientID == uuid.Nil:
		v.Add("recipient", "required")
	case in.RecipientID == sender:
		v.Add("recipient", "you cannot send a message to yourself")
	}
	switch {
	case in.Subject == "":
		v.Add("subject", "required")
	case utf8.RuneCountInString(in.Subject) > MaxSubjectLen:
		v.Add("subject", "at most 200 characters")
	}
	if in.Body == "" {
		v.Add("body", "required")
	}
	return in
}

// Inbox filters.
const (
	FilterAll    = "all"
	FilterUnread = "unread"
	FilterRead   = "read"
	FilterSent   = "sent"
)

func CleanFilter(f string) string {
	switch f {
	case FilterUnread, FilterRead, FilterSent:
		return f
	}
	return FilterAll
}

type InboxQuery struct {
	UserID uuid.UUID
	Filter string
	Limit  int
	Offset int
}
