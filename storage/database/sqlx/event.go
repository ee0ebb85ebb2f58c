package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/secmun/podium/core/event"
)

// unique_violation
const pqErrDuplicate = "23505"

type eventRow struct {
	ID               string    `db:"id"`
	Name             string    `db:"name"`
	Description      string    `db:"description"`
	Venue            string    `db:"venue"`
	StartsAt         time.Time `db:"starts_at"`
	EndsAt           time.Time `db:"ends_at"`
	RegistrationOpen bool      `db:"registration_open"`
	CreatedBy        string    `db:"created_by"`
	CreatedAt        time.Time `db:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"`
}

func (r eventRow) toModel() event.Event {
	evt := event.Event(r)
	evt.StartsAt = evt.StartsAt.UTC()
	evt.EndsAt = evt.EndsAt.UTC()
	evt.CreatedAt = evt.CreatedAt.UTC()
	evt.UpdatedAt = evt.UpdatedAt.UTC()
	return evt
}

type registrationRow struct {
	ID        string         `db:"id"`
	EventID   string         `db:"event_id"`
	MemberID  string         `db:"member_id"`
	Committee string         `db:"committee"`
	Country   string         `db:"country"`
	Status    string         `db:"status"`
	DecidedBy sql.NullString `db:"decided_by"`
	CreatedAt time.Time      `db:"created_at"`
	UpdatedAt time.Time      `db:"updated_at"`
}

func (r registrationRow) toModel() event.Registration {
	reg := event.Registration{
		ID:        r.ID,
		EventID:   r.EventID,
		MemberID:  r.MemberID,
		Committee: r.Committee,
		Country:   r.Country,
		Status:    r.Status,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
	if r.DecidedBy.Valid {
		reg.DecidedBy = &r.DecidedBy.String
	}
	return reg
}

func registrationToRow(reg event.Registration) registrationRow {
	row := registrationRow{
		ID:        reg.ID,
		EventID:   reg.EventID,
		MemberID:  reg.MemberID,
		Committee: reg.Committee,
		Country:   reg.Country,
		Status:    reg.Status,
		CreatedAt: reg.CreatedAt,
		UpdatedAt: reg.UpdatedAt,
	}
	if reg.DecidedBy != nil {
		row.DecidedBy = sql.NullString{String: *reg.DecidedBy, Valid: true}
	}
	return row
}

const (
	eventColumns = `id, name, description, venue, starts_at, ends_at,
registration_open, created_by, created_at, updated_at`

	registrationColumns = `id, event_id, member_id, committee, country, status,
decided_by, created_at, updated_at`
)

type eventRepository struct {
	db *sqlx.DB
}

var _ event.Repository = (*eventRepository)(nil) // interface compliance check

func NewEventRepository(db *sqlx.DB) *eventRepository {
	return &eventRepository{db: db}
}

func (repo *eventRepository) CreateEvent(ctx context.Context, evt event.Event) error {
	q := `INSERT INTO event (` + eventColumns + `) VALUES (
:id, :name, :description, :venue, :starts_at, :ends_at,
:registration_open, :created_by, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, eventRow(evt)); err != nil {
		return errors.Wrap(err, "inserting event")
	}
	return nil
}

func (repo *eventRepository) GetEventByID(ctx context.Context, id string) (event.Event, error) {
	var row eventRow
	q := `SELECT ` + eventColumns + ` FROM event WHERE id = $1`
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		if err == sql.ErrNoRows {
			return event.Event{}, event.ErrNotFound
		}
		return event.Event{}, errors.Wrap(err, "getting event")
	}
	return row.toModel(), nil
}

func (repo *eventRepository) QueryEvents(ctx context.Context) ([]event.Event, error) {
	var rows []eventRow
	q := `SELECT ` + eventColumns + ` FROM event ORDER BY starts_at DESC`
	if err := repo.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, errors.Wrap(err, "querying events")
	}
	events := make([]event.Event, 0, len(rows))
	for _, row := range rows {
		events = append(events, row.toModel())
	}
	return events, nil
}

func (repo *eventRepository) UpdateEvent(ctx context.Context, evt event.Event) error {
	q := `UPDATE event SET
name = :name, description = :description, venue = :venue,
starts_at = :starts_at, ends_at = :ends_at,
registration_open = :registration_open, updated_at = :updated_at
WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, eventRow(evt))
	if err != nil {
		return errors.Wrap(err, "updating event")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return event.ErrNotFound
	}
	return nil
}

func (repo *eventRepository) DeleteEvent(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM event WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting event")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return event.ErrNotFound
	}
	return nil
}

func (repo *eventRepository) CreateRegistration(ctx context.Context, reg event.Registration) error {
	q := `INSERT INTO registration (` + registrationColumns + `) VALUES (
:id, :event_id, :member_id, :committee, :country, :status,
:decided_by, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, registrationToRow(reg)); err != nil {
		if pqErr, ok := errors.Cause(err).(*pq.Error); ok && string(pqErr.Code) == pqErrDuplicate {
			return event.ErrRegistrationExists
		}
		return errors.Wrap(err, "inserting registration")
	}
	return nil
}

func (repo *eventRepository) GetRegistrationByID(ctx context.Context, id string) (event.Registration, error) {
	var row registrationRow
	q := `SELECT ` + registrationColumns + ` FROM registration WHERE id = $1`
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		if err == sql.ErrNoRows {
			return event.Registration{}, event.ErrRegistrationNotFound
		}
		return event.Registration{}, errors.Wrap(err, "getting registration")
	}
	return row.toModel(), nil
}

func (repo *eventRepository) queryRegistrations(ctx context.Context, cond string, arg interface{}) ([]event.Registration, error) {
	var rows []registrationRow
	q := `SELECT ` + registrationColumns + ` FROM registration WHERE ` + cond + ` ORDER BY created_at`
	if err := repo.db.SelectContext(ctx, &rows, q, arg); err != nil {
		return nil, errors.Wrap(err, "querying registrations")
	}
	regs := make([]event.Registration, 0, len(rows))
	for _, row := range rows {
		regs = append(regs, row.toModel())
	}
	return regs, nil
}

func (repo *eventRepository) QueryRegistrationsByEvent(ctx context.Context, eventID string) ([]event.Registration, error) {
	return repo.queryRegistrations(ctx, "event_id = $1", eventID)
}

func (repo *eventRepository) QueryRegistrationsByMember(ctx context.Context, memberID string) ([]event.Registration, error) {
	return repo.queryRegistrations(ctx, "member_id = $1", memberID)
}

func (repo *eventRepository) UpdateRegistration(ctx context.Context, reg event.Registration) error {
	q := `UPDATE registration SET
committee = :committee, country = :country, status = :status,
decided_by = :decided_by, updated_at = :updated_at
WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, registrationToRow(reg))
	if err != nil {
		return errors.Wrap(err, "updating registration")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return event.ErrRegistrationNotFound
	}
	return nil
}
