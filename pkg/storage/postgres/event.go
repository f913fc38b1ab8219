package postgres

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/fitlab/doorman/pkg/model"
	"github.com/fitlab/doorman/pkg/storage"
)

func newEventStore(db *sqlx.DB) *eventStore {
	return &eventStore{
		db: db,
	}
}

type eventStore struct {
	db *sqlx.DB
}

type sqlDataEvent struct {
	ID         int32          `db:"id"`
	DeviceID   int32          `db:"acs_device_id"`
	Event      string         `db:"event"`
	TS         sql.NullInt64  `db:"ts"`
	Reader     sql.NullInt32  `db:"reader"`
	UID        sql.NullString `db:"uid"`
	Reason     sql.NullString `db:"reason"`
	Topic      string         `db:"topic"`
	Payload    []byte         `db:"payload"`
	RawPayload sql.NullString `db:"raw_payload"`
	ReceivedAt time.Time      `db:"received_at"`
	CreatedAt  time.Time      `db:"created_at"`
	UpdatedAt  time.Time      `db:"updated_at"`
}

var sqlParamsEvent = []string{
	"id",
	"acs_device_id",
	"event",
	"ts",
	"reader",
	"uid",
	"reason",
	"topic",
	"payload",
	"raw_payload",
	"received_at",
	"created_at",
	"updated_at",
}

func (d *sqlDataEvent) Scan(m *model.Event) error {
	var createdAt, updatedAt = m.CreatedAt, m.UpdatedAt

	if m.CreatedAt.IsZero() {
		createdAt = time.Now().Round(time.Second).UTC()
	}

	if m.UpdatedAt.IsZero() {
		updatedAt = time.Now().Round(time.Second).UTC()
	}

	var payload []byte
	if m.Payload != nil {
		out, err := json.Marshal(m.Payload)
		if err != nil {
			return err
		}
		payload = out
	}

	var reader sql.NullInt32
	if m.Reader != nil {
		reader = sql.NullInt32{Int32: int32(*m.Reader), Valid: true}
	}

	d.ID = m.ID
	d.DeviceID = m.DeviceID
	d.Event = m.Event
	d.TS = toNullInt64(m.TS)
	d.Reader = reader
	d.UID = toNullString(m.UID)
	d.Reason = toNullString(m.Reason)
	d.Topic = m.Topic
	d.Payload = payload
	d.RawPayload = toNullString(m.RawPayload)
	d.ReceivedAt = m.ReceivedAt
	d.CreatedAt = createdAt
	d.UpdatedAt = updatedAt

	return nil
}

func (d *sqlDataEvent) Model() (*model.Event, error) {
	var payload map[string]interface{}
	if len(d.Payload) > 0 {
		if err := json.Unmarshal(d.Payload, &payload); err != nil {
			return nil, err
		}
	}

	var reader *int
	if d.Reader.Valid {
		out := int(d.Reader.Int32)
		reader = &out
	}

	m := &model.Event{
		ID:         d.ID,
		DeviceID:   d.DeviceID,
		Event:      d.Event,
		TS:         fromNullInt64(d.TS),
		Reader:     reader,
		UID:        d.UID.String,
		Reason:     d.Reason.String,
		Topic:      d.Topic,
		Payload:    payload,
		RawPayload: d.RawPayload.String,
		ReceivedAt: d.ReceivedAt,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}

	return m, nil
}

func (s *eventStore) FetchAll() (map[int32]model.Event, error) {
	rows := make([]sqlDataEvent, 0)
	models := make(map[int32]model.Event)

	query := "SELECT * FROM acs_events ORDER BY id"
	if err := s.db.Select(&rows, query); err != nil {
		return nil, errors.Wrap(err, "failed to fetch all events")
	}

	for _, d := range rows {
		m, err := d.Model()
		if err != nil {
			return nil, errors.Wrap(err, "failed to convert SQL data to event model")
		}

		models[d.ID] = *m
	}

	return models, nil
}

func (s *eventStore) FindByID(id int32) (*model.Event, error) {
	d := sqlDataEvent{}
	query := "SELECT * FROM acs_events WHERE id=$1"
	if err := s.db.Get(&d, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, storage.ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to find event")
	}

	return d.Model()
}

func (s *eventStore) FetchByDeviceID(deviceID int32) ([]model.Event, error) {
	rows := make([]sqlDataEvent, 0)
	models := make([]model.Event, 0)

	query := "SELECT * FROM acs_events WHERE acs_device_id=$1 ORDER BY id"
	if err := s.db.Select(&rows, query, deviceID); err != nil {
		return nil, errors.Wrap(err, "failed to fetch events of device")
	}

	for _, d := range rows {
		m, err := d.Model()
		if err != nil {
			return nil, errors.Wrap(err, "failed to convert SQL data to event model")
		}

		models = append(models, *m)
	}

	return models, nil
}

func (s *eventStore) Create(m *model.Event) error {
	if m.ReceivedAt.IsZero() {
		m.ReceivedAt = time.Now().Round(time.Second).UTC()
	}

	d := sqlDataEvent{}
	if err := d.Scan(m); err != nil {
		return errors.Wrap(err, "failed to convert event model to SQL data")
	}

	// Remove the id column because it's of SQL type serial
	sqlParamsWithoutID := make([]string, 0)
	for _, s := range sqlParamsEvent {
		if s != "id" {
			sqlParamsWithoutID = append(sqlParamsWithoutID, s)
		}
	}

	query := fmt.Sprintf(
		"INSERT INTO acs_events (%s) VALUES (%s) RETURNING id",
		strings.Join(sqlParamsWithoutID, ", "),
		":"+strings.Join(sqlParamsWithoutID, ", :"),
	)
	rows, err := s.db.NamedQuery(query, d)
	if err != nil {
		return errors.Wrap(err, "failed to create event")
	}
	if rows.Next() {
		rows.Scan(&m.ID)
	}

	return nil
}
