package notification

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/secmun/podium/core"
)

// DefaultTopic receives organization-wide announcements; every client app
// subscribes to it on start.
const DefaultTopic = "announcements"

// Notification is a persisted copy of a push announcement, kept so late
// joiners can read what they missed.
type Notification struct {
	ID     string    `json:"id"`
	Title  string    `json:"title"`
	Body   string    `json:"body"`
	Topic  string    `json:"topic"`
	SentBy string    `json:"sent_by"`
	SentAt time.Time `json:"sent_at"` // UTC
}

type NewAnnouncement struct {
	Title string `json:"title" validate:"required,max=120"`
	Body  string `json:"body" validate:"required"`
	Topic string `json:"topic"`
}

func (na *NewAnnouncement) Validate(validate *validator.Validate) error {
	na.Title = core.CleanString(na.Title)
	na.Body = core.CleanString(na.Body)
	na.Topic = core.CleanString(na.Topic, true /* lower */)
	return validate.Struct(na)
}
