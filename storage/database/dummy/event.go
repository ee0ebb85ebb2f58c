package dummydb

import (
	"context"
	"sort"

	"github.com/secmun/podium/core/event"
)

type eventRepository struct {
	events        *eventTable
	registrations *registrationTable
}

var _ event.Repository = (*eventRepository)(nil) // interface compliance check

func NewEventRepository(db *DB) *eventRepository {
	return &eventRepository{events: db.event, registrations: db.registration}
}

func (repo *eventRepository) CreateEvent(ctx context.Context, evt event.Event) error {
	repo.events.Lock()
	defer repo.events.Unlock()
	if evt.ID == "" {
		return errEmptyID
	}
	repo.events.table[evt.ID] = &evt
	return nil
}

func (repo *eventRepository) GetEventByID(ctx context.Context, id string) (event.Event, error) {
	repo.events.RLock()
	defer repo.events.RUnlock()

	if evt, ok := repo.events.table[id]; ok {
		return *evt, nil
	}
	return event.Event{}, event.ErrNotFound
}

func (repo *eventRepository) QueryEvents(ctx context.Context) ([]event.Event, error) {
	repo.events.RLock()
	defer repo.events.RUnlock()

	events := make([]event.Event, 0, len(repo.events.table))
	for _, evt := range repo.events.table {
		events = append(events, *evt)
	}
	sort.Slice(events, func(i, j int) bool { return events[i].StartsAt.After(events[j].StartsAt) })
	return events, nil
}

func (repo *eventRepository) UpdateEvent(ctx context.Context, evt event.Event) error {
	repo.events.Lock()
	defer repo.events.Unlock()

	if _, ok := repo.events.table[evt.ID]; !ok {
		return event.ErrNotFound
	}
	repo.events.table[evt.ID] = &evt
	return nil
}

func (repo *eventRepository) DeleteEvent(ctx context.Context, id string) error {
	repo.events.Lock()
	defer repo.events.Unlock()

	if _, ok := repo.events.table[id]; !ok {
		return event.ErrNotFound
	}
	delete(repo.events.table, id)
	return nil
}

func (repo *eventRepository) CreateRegistration(ctx context.Context, reg event.Registration) error {
	repo.registrations.Lock()
	defer repo.registrations.Unlock()
	if reg.ID == "" {
		return errEmptyID
	}

	for _, existing := range repo.registrations.table {
		if existing.EventID == reg.EventID && existing.MemberID == reg.MemberID {
			return event.ErrRegistrationExists
		}
	}
	repo.registrations.table[reg.ID] = &reg
	return nil
}

func (repo *eventRepository) GetRegistrationByID(ctx context.Context, id string) (event.Registration, error) {
	repo.registrations.RLock()
	defer repo.registrations.RUnlock()

	if reg, ok := repo.registrations.table[id]; ok {
		return *reg, nil
	}
	return event.Registration{}, event.ErrRegistrationNotFound
}

func (repo *eventRepository) queryRegistrations(match func(event.Registration) bool) []event.Registration {
	var regs []event.Registration
	for _, reg := range repo.registrations.table {
		if match(*reg) {
			regs = append(regs, *reg)
		}
	}
	sort.Slice(regs, func(i, j int) bool { return regs[i].CreatedAt.Before(regs[j].CreatedAt) })
	return regs
}

func (repo *eventRepository) QueryRegistrationsByEvent(ctx context.Context, eventID string) ([]event.Registration, error) {
	repo.registrations.RLock()
	defer repo.registrations.RUnlock()

	return repo.queryRegistrations(func(r event.Registration) bool { return r.EventID == eventID }), nil
}

func (repo *eventRepository) QueryRegistrationsByMember(ctx context.Context, memberID string) ([]event.Registration, error) {
	repo.registrations.RLock()
	defer repo.registrations.RUnlock()

	return repo.queryRegistrations(func(r event.Registration) bool { return r.MemberID == memberID }), nil
}

func (repo *eventRepository) UpdateRegistration(ctx context.Context, reg event.Registration) error {
	repo.registrations.Lock()
	defer repo.registrations.Unlock()

	if _, ok := repo.registrations.table[reg.ID]; !ok {
		return event.ErrRegistrationNotFound
	}
	repo.registrations.table[reg.ID] = &reg
	return nil
}
