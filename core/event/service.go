package event

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/secmun/podium/core"
	"github.com/secmun/podium/core/member"
)

var (
	ErrNotFound             = errors.New("event not found")
	ErrRegistrationNotFound = errors.New("registration not found")
	ErrRegistrationExists   = errors.New("member already registered for this event")
	ErrRegistrationClosed   = errors.New("registration is closed for this event")
	errAlreadyDecided       = errors.New("registration has already been decided")
	errTimeOrder            = errors.New("must be after starts_at")
)

type Repository interface {
	CreateEvent(ctx context.Context, evt Event) error
	GetEventByID(ctx context.Context, id string) (Event, error)
	QueryEvents(ctx context.Context) ([]Event, error)
	UpdateEvent(ctx context.Context, evt Event) error
	DeleteEvent(ctx context.Context, id string) error

	// CreateRegistration returns ErrRegistrationExists when the member
	// already holds a registration for the event.
	CreateRegistration(ctx context.Context, reg Registration) error
	GetRegistrationByID(ctx context.Context, id string) (Registration, error)
	QueryRegistrationsByEvent(ctx context.Context, eventID string) ([]Registration, error)
	QueryRegistrationsByMember(ctx context.Context, memberID string) ([]Registration, error)
	UpdateRegistration(ctx context.Context, reg Registration) error
}

type Service interface {
	Create(ctx context.Context, ne NewEvent, creator member.Member) (Event, error)
	Query(ctx context.Context) ([]Event, error)
	Get(ctx context.Context, id string) (Event, error)
	Update(ctx context.Context, id string, ue UpdateEvent) (Event, error)
	Delete(ctx context.Context, id string) error

	Register(ctx context.Context, eventID string, mbr member.Member) (Registration, error)
	Registrations(ctx context.Context, eventID string) ([]Registration, error)
	MyRegistrations(ctx context.Context, mbr member.Member) ([]Registration, error)
	Assign(ctx context.Context, regID string, asg Assignment) (Registration, error)
	Decide(ctx context.Context, regID string, dec Decision, decider member.Member) (Registration, error)
}

type service struct {
	repo    Repository
	pushSvc core.PushService
	logger  core.Logger
	conf    *core.Config
}

var _ Service = (*service)(nil)

func NewService(repo Repository, pushSvc core.PushService, logger core.Logger, conf *core.Config) *service {
	return &service{
		repo:    repo,
		pushSvc: pushSvc,
		logger:  logger,
		conf:    conf,
	}
}

func (svc *service) Create(ctx context.Context, ne NewEvent, creator member.Member) (Event, error) {
	now := time.Now().UTC()
	evt := Event{
		ID:          uuid.New().String(),
		Name:        ne.Name,
		Description: ne.Description,
		Venue:       ne.Venue,
		StartsAt:    ne.StartsAt,
		EndsAt:      ne.EndsAt,
		CreatedBy:   creator.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if ne.RegistrationOpen != nil {
		evt.RegistrationOpen = *ne.RegistrationOpen
	}

	if err := svc.repo.CreateEvent(ctx, evt); err != nil {
		return Event{}, errors.Wrap(err, "creating event")
	}
	return evt, nil
}

func (svc *service) Query(ctx context.Context) ([]Event, error) {
	return svc.repo.QueryEvents(ctx)
}

func (svc *service) Get(ctx context.Context, id string) (Event, error) {
	return svc.repo.GetEventByID(ctx, id)
}

func (svc *service) Update(ctx context.Context, id string, ue UpdateEvent) (Event, error) {
	evt, err := svc.repo.GetEventByID(ctx, id)
	if err != nil {
		return Event{}, err
	}

	if ue.Name != "" {
		evt.Name = ue.Name
	}
	if ue.Description != nil {
		evt.Description = *ue.Description
	}
	if ue.Venue != nil {
		evt.Venue = *ue.Venue
	}
	if ue.StartsAt != nil {
		evt.StartsAt = *ue.StartsAt
	}
	if ue.EndsAt != nil {
		evt.EndsAt = *ue.EndsAt
	}
	if ue.RegistrationOpen != nil {
		evt.RegistrationOpen = *ue.RegistrationOpen
	}
	if !evt.EndsAt.After(evt.StartsAt) {
		return Event{}, core.NewValidationError(errTimeOrder,
			core.FieldError{Field: "ends_at", Error: errTimeOrder.Error()})
	}
	evt.UpdatedAt = time.Now().UTC()

	if err := svc.repo.UpdateEvent(ctx, evt); err != nil {
		return Event{}, errors.Wrap(err, "updating event")
	}
	return evt, nil
}

func (svc *service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteEvent(ctx, id)
}

func (svc *service) Register(ctx context.Context, eventID string, mbr member.Member) (Registration, error) {
	evt, err := svc.repo.GetEventByID(ctx, eventID)
	if err != nil {
		return Registration{}, err
	}
	if !evt.RegistrationOpen {
		return Registration{}, ErrRegistrationClosed
	}

	now := time.Now().UTC()
	reg := Registration{
		ID:        uuid.New().String(),
		EventID:   evt.ID,
		MemberID:  mbr.ID,
		Status:    RegistrationPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := svc.repo.CreateRegistration(ctx, reg); err != nil {
		return Registration{}, err
	}
	return reg, nil
}

func (svc *service) Registrations(ctx context.Context, eventID string) ([]Registration, error) {
	if _, err := svc.repo.GetEventByID(ctx, eventID); err != nil {
		return nil, err
	}
	return svc.repo.QueryRegistrationsByEvent(ctx, eventID)
}

func (svc *service) MyRegistrations(ctx context.Context, mbr member.Member) ([]Registration, error) {
	return svc.repo.QueryRegistrationsByMember(ctx, mbr.ID)
}

func (svc *service) Assign(ctx context.Context, regID string, asg Assignment) (Registration, error) {
	reg, err := svc.repo.GetRegistrationByID(ctx, regID)
	if err != nil {
		return Registration{}, err
	}

	reg.Committee = asg.Committee
	reg.Country = asg.Country
	reg.UpdatedAt = time.Now().UTC()

	if err := svc.repo.UpdateRegistration(ctx, reg); err != nil {
		return Registration{}, errors.Wrap(err, "assigning delegate")
	}
	return reg, nil
}

func (svc *service) Decide(ctx context.Context, regID string, dec Decision, decider member.Member) (Registration, error) {
	reg, evt, err := svc.decide(ctx, regID, dec, decider)
	if err != nil {
		return Registration{}, err
	}
	go svc.notifyDecision(evt, reg)
	return reg, nil
}

func (svc *service) decide(ctx context.Context, regID string, dec Decision, decider member.Member) (Registration, Event, error) {
	reg, err := svc.repo.GetRegistrationByID(ctx, regID)
	if err != nil {
		return Registration{}, Event{}, err
	}
	if reg.Status != RegistrationPending {
		return Registration{}, Event{}, core.NewValidationError(errAlreadyDecided,
			core.FieldError{Field: "status", Error: errAlreadyDecided.Error()})
	}

	reg.Status = dec.Status
	reg.DecidedBy = &decider.ID
	reg.UpdatedAt = time.Now().UTC()

	if err := svc.repo.UpdateRegistration(ctx, reg); err != nil {
		return Registration{}, Event{}, errors.Wrap(err, "deciding registration")
	}
	evt, err := svc.repo.GetEventByID(ctx, reg.EventID)
	if err != nil {
		return Registration{}, Event{}, err
	}
	return reg, evt, nil
}

func (svc *service) notifyDecision(evt Event, reg Registration) {
	msg := &core.PushMessage{
		Title: evt.Name,
		Topic: "member-" + reg.MemberID,
		Data:  map[string]string{"event_id": evt.ID, "registration_id": reg.ID, "status": reg.Status},
	}
	switch reg.Status {
	case RegistrationApproved:
		msg.Body = "Your delegate application was approved."
	default:
		msg.Body = "Your delegate application was not retained."
	}
	svc.pushSvc.SendMessages(msg)
}
