package announcement

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/educonnect/backend/core"
)

type Announcement struct {
	ID        string    `json:"id"`
	ClassID   string    `json:"class_id"`
	SenderID  string    `json:"sender_id"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

// NewAnnouncement contains information needed to post a new Announcement.
type NewAnnouncement struct {
	Message string `json:"message" validate:"required"`
}

func (na *NewAnnouncement) Validate(validate *validator.Validate) error {
	na.Message = core.CleanString(na.Message)
	return validate.Struct(na)
}
