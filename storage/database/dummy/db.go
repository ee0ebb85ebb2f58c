package dummydb

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/secmun/podium/core/attendance"
	"github.com/secmun/podium/core/event"
	"github.com/secmun/podium/core/finance"
	"github.com/secmun/podium/core/member"
	"github.com/secmun/podium/core/notification"
)

type (
	DB struct {
		member       *memberTable
		classGroup   *classGroupTable
		entry        *entryTable
		session      *sessionTable
		record       *recordTable
		event        *eventTable
		registration *registrationTable
		transaction  *transactionTable
		notification *notificationTable
	}

	memberTable struct {
		sync.RWMutex
		table map[string]*member.Member
	}
	classGroupTable struct {
		sync.RWMutex
		table map[string]*member.ClassGroup
	}
	entryTable struct {
		sync.RWMutex
		table map[string]*attendance.ScheduleEntry
	}
	sessionTable struct {
		sync.RWMutex
		table map[string]*attendance.Session
	}
	recordTable struct {
		sync.RWMutex
		table map[string]*attendance.Record
	}
	eventTable struct {
		sync.RWMutex
		table map[string]*event.Event
	}
	registrationTable struct {
		sync.RWMutex
		table map[string]*event.Registration
	}
	transactionTable struct {
		sync.RWMutex
		table map[string]*finance.Transaction
	}
	notificationTable struct {
		sync.RWMutex
		table map[string]*notification.Notification
	}
)

// errEmptyID rejects inserts without a primary key; Postgres would (uuid
// columns do not accept ""), so the callers must assign IDs themselves.
var errEmptyID = errors.New("dummydb: empty id")

func Open() (*DB, error) {
	db := &DB{
		member:       &memberTable{table: make(map[string]*member.Member)},
		classGroup:   &classGroupTable{table: make(map[string]*member.ClassGroup)},
		entry:        &entryTable{table: make(map[string]*attendance.ScheduleEntry)},
		session:      &sessionTable{table: make(map[string]*attendance.Session)},
		record:       &recordTable{table: make(map[string]*attendance.Record)},
		event:        &eventTable{table: make(map[string]*event.Event)},
		registration: &registrationTable{table: make(map[string]*event.Registration)},
		transaction:  &transactionTable{table: make(map[string]*finance.Transaction)},
		notification: &notificationTable{table: make(map[string]*notification.Notification)},
	}
	return db, nil
}
