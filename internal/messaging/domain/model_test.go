package domain

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/vulcano-studio/vulcano-backend/internal/apperr"
)

func TestSendInput_Normalize(t *testing.T) {
	me := uuid.New()

	v := apperr.NewValidation()
	SendInput{RecipientID: me, Subject: strings.Repeat("s", 201)}.Normalize(v, me)
	assert.Equal(t, []string{"you cannot send a message to yourself"}, v.Fields["recipient"])
	assert.True(t, v.Has("subject"))
	assert.True(t, v.Has("body"))

	v = apperr.NewValidation()
	nilProject := uuid.Nil
	in := SendInput{RecipientID: uuid.New(), ProjectID: &nilProject, Subject: "  Hola ", Body: " ok "}.Normalize(v, me)
	assert.True(t, v.Empty())
	assert.Equal(t, "Hola", in.Subject)
	assert.Nil(t, in.ProjectID)
}

func TestCleanFilter(t *testing.T) {
	assert.Equal(t, FilterUnread, CleanFilter("unread"))
	assert.Equal(t, FilterAll, CleanFilter(""))
	assert.Equal(t, FilterAll, CleanFilter("spam"))
}

func TestParties(t *testing.T) {
	s, r := uuid.New(), uuid.New()
	gotS, gotR := Message{SenderID: s, RecipientID: r}.Parties()
	assert.Equal(t, s, gotS)
	assert.Equal(t, r, gotR)
}
