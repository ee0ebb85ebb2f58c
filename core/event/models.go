package event

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/secmun/podium/core"
)

// Registration statuses
const (
	RegistrationPending  = "pending"
	RegistrationApproved = "approved"
	RegistrationRejected = "rejected"
)

// Event is a conference or activity members can register for.
type Event struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Description      string    `json:"description"`
	Venue            string    `json:"venue"`
	StartsAt         time.Time `json:"starts_at"`
	EndsAt           time.Time `json:"ends_at"`
	RegistrationOpen bool      `json:"registration_open"`
	CreatedBy        string    `json:"created_by"`
	CreatedAt        time.Time `json:"created_at"` // UTC
	UpdatedAt        time.Time `json:"updated_at"` // UTC
}

// Registration is a member's delegate application for an event; at most one
// per (event, member). Committee and country are assigned by the secretariat
// after the fact.
type Registration struct {
	ID        string    `json:"id"`
	EventID   string    `json:"event_id"`
	MemberID  string    `json:"member_id"`
	Committee string    `json:"committee,omitempty"`
	Country   string    `json:"country,omitempty"`
	Status    string    `json:"status"`
	DecidedBy *string   `json:"decided_by"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// Payloads

type NewEvent struct {
	Name             string    `json:"name" validate:"required"`
	Description      string    `json:"description"`
	Venue            string    `json:"venue"`
	StartsAt         time.Time `json:"starts_at" validate:"required"`
	EndsAt           time.Time `json:"ends_at" validate:"required,gtfield=StartsAt"`
	RegistrationOpen *bool     `json:"registration_open"`
}

func (ne *NewEvent) Validate(validate *validator.Validate) error {
	ne.Name = core.CleanString(ne.Name)
	ne.Description = core.CleanString(ne.Description)
	ne.Venue = core.CleanString(ne.Venue)
	return validate.Struct(ne)
}

type UpdateEvent struct {
	Name             string     `json:"name"`
	Description      *string    `json:"description"`
	Venue            *string    `json:"venue"`
	StartsAt         *time.Time `json:"starts_at"`
	EndsAt           *time.Time `json:"ends_at"`
	RegistrationOpen *bool      `json:"registration_open"`
}

func (ue *UpdateEvent) Validate(validate *validator.Validate) error {
	ue.Name = core.CleanString(ue.Name)
	return validate.Struct(ue)
}

// Assignment sets a delegate's committee and country.
type Assignment struct {
	Committee string `json:"committee" validate:"required"`
	Country   string `json:"country" validate:"required"`
}

func (a *Assignment) Validate(validate *validator.Validate) error {
	a.Committee = core.CleanString(a.Committee)
	a.Country = core.CleanString(a.Country)
	return validate.Struct(a)
}

// Decision approves or rejects a pending registration.
type Decision struct {
	Status string `json:"status" validate:"required,oneof=approved rejected"`
}

func (d *Decision) Validate(validate *validator.Validate) error {
	d.Status = core.CleanString(d.Status, true /* lower */)
	return validate.Struct(d)
}
