package postgres

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/fitlab/doorman/pkg/model"
	"github.com/fitlab/doorman/pkg/storage"
)

func newCommandStore(db *sqlx.DB) *commandStore {
	return &commandStore{
		db: db,
	}
}

type commandStore struct {
	db *sqlx.DB
}

type sqlDataCommand struct {
	ID        int32          `db:"id"`
	DeviceID  int32          `db:"acs_device_id"`
	Topic     string         `db:"topic"`
	MsgID     string         `db:"msg_id"`
	Payload   []byte         `db:"payload"`
	Status    string         `db:"status"`
	Retries   int            `db:"retries"`
	SentAt    sql.NullTime   `db:"sent_at"`
	AckAt     sql.NullTime   `db:"ack_at"`
	AckOK     sql.NullBool   `db:"ack_ok"`
	AckReason sql.NullString `db:"ack_reason"`
	CreatedAt time.Time      `db:"created_at"`
	UpdatedAt time.Time      `db:"updated_at"`
}

var sqlParamsCommand = []string{
	"id",
	"acs_device_id",
	"topic",
	"msg_id",
	"payload",
	"status",
	"retries",
	"sent_at",
	"ack_at",
	"ack_ok",
	"ack_reason",
	"created_at",
	"updated_at",
}

func (d *sqlDataCommand) Scan(m *model.Command) error {
	var createdAt, updatedAt = m.CreatedAt, m.UpdatedAt

	if m.CreatedAt.IsZero() {
		createdAt = time.Now().Round(time.Second).UTC()
	}

	if m.UpdatedAt.IsZero() {
		updatedAt = time.Now().Round(time.Second).UTC()
	}

	payload, err := json.Marshal(m.Payload)
	if err != nil {
		return err
	}

	d.ID = m.ID
	d.DeviceID = m.DeviceID
	d.Topic = m.Topic
	d.MsgID = m.MsgID
	d.Payload = payload
	d.Status = m.Status
	d.Retries = m.Retries
	d.SentAt = toNullTime(m.SentAt)
	d.AckAt = toNullTime(m.AckAt)
	d.AckOK = toNullBool(m.AckOK)
	d.AckReason = toNullString(m.AckReason)
	d.CreatedAt = createdAt
	d.UpdatedAt = updatedAt

	return nil
}

func (d *sqlDataCommand) Model() (*model.Command, error) {
	payload := make(map[string]interface{})
	if len(d.Payload) > 0 {
		if err := json.Unmarshal(d.Payload, &payload); err != nil {
			return nil, err
		}
	}

	m := &model.Command{
		ID:        d.ID,
		DeviceID:  d.DeviceID,
		Topic:     d.Topic,
		MsgID:     d.MsgID,
		Payload:   payload,
		Status:    d.Status,
		Retries:   d.Retries,
		SentAt:    fromNullTime(d.SentAt),
		AckAt:     fromNullTime(d.AckAt),
		AckOK:     fromNullBool(d.AckOK),
		AckReason: d.AckReason.String,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}

	return m, nil
}

func (s *commandStore) FetchAll() (map[int32]model.Command, error) {
	rows := make([]sqlDataCommand, 0)
	models := make(map[int32]model.Command)

	query := "SELECT * FROM acs_commands ORDER BY id"
	if err := s.db.Select(&rows, query); err != nil {
		return nil, errors.Wrap(err, "failed to fetch all commands")
	}

	for _, d := range rows {
		m, err := d.Model()
		if err != nil {
			return nil, errors.Wrap(err, "failed to convert SQL data to command model")
		}

		models[d.ID] = *m
	}

	return models, nil
}

func (s *commandStore) FindByID(id int32) (*model.Command, error) {
	d := sqlDataCommand{}
	query := "SELECT * FROM acs_commands WHERE id=$1"
	if err := s.db.Get(&d, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, storage.ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to find command")
	}

	return d.Model()
}

func (s *commandStore) FetchByDeviceID(deviceID int32) ([]model.Command, error) {
	rows := make([]sqlDataCommand, 0)
	models := make([]model.Command, 0)

	query := "SELECT * FROM acs_commands WHERE acs_device_id=$1 ORDER BY id"
	if err := s.db.Select(&rows, query, deviceID); err != nil {
		return nil, errors.Wrap(err, "failed to fetch commands of device")
	}

	for _, d := range rows {
		m, err := d.Model()
		if err != nil {
			return nil, errors.Wrap(err, "failed to convert SQL data to command model")
		}

		models = append(models, *m)
	}

	return models, nil
}

func (s *commandStore) FindByDeviceAndMsgID(deviceID int32, msgID string) (*model.Command, error) {
	d := sqlDataCommand{}
	query := `SELECT * FROM acs_commands WHERE acs_device_id=$1 AND msg_id=$2
		ORDER BY created_at DESC, id DESC LIMIT 1`
	if err := s.db.Get(&d, query, deviceID, msgID); err != nil {
		if err == sql.ErrNoRows {
			return nil, storage.ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to find command by msg id")
	}

	return d.Model()
}

func (s *commandStore) Create(m *model.Command) error {
	if m.Status == "" {
		m.Status = model.CommandStatusQueued
	}

	d := sqlDataCommand{}
	if err := d.Scan(m); err != nil {
		return errors.Wrap(err, "failed to convert command model to SQL data")
	}

	// Remove the id column because it's of SQL type serial
	sqlParamsWithoutID := make([]string, 0)
	for _, s := range sqlParamsCommand {
		if s != "id" {
			sqlParamsWithoutID = append(sqlParamsWithoutID, s)
		}
	}

	query := fmt.Sprintf(
		"INSERT INTO acs_commands (%s) VALUES (%s) RETURNING id",
		strings.Join(sqlParamsWithoutID, ", "),
		":"+strings.Join(sqlParamsWithoutID, ", :"),
	)
	rows, err := s.db.NamedQuery(query, d)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return storage.ErrNotUnique
		}
		return errors.Wrap(err, "failed to create command")
	}
	if rows.Next() {
		rows.Scan(&m.ID)
	}

	return nil
}

func (s *commandStore) Update(m *model.Command) error {
	d := sqlDataCommand{}
	if err := d.Scan(m); err != nil {
		return errors.Wrap(err, "failed to convert command model to SQL data")
	}
	d.UpdatedAt = time.Now().Round(time.Second).UTC()

	assignments := make([]string, 0)
	for _, p := range sqlParamsCommand {
		if p != "id" && p != "created_at" {
			assignments = append(assignments, fmt.Sprintf("%s=:%s", p, p))
		}
	}

	query := fmt.Sprintf(
		"UPDATE acs_commands SET %s WHERE id=:id",
		strings.Join(assignments, ", "),
	)
	if _, err := s.db.NamedExec(query, d); err != nil {
		return errors.Wrap(err, "failed to update command")
	}
	m.UpdatedAt = d.UpdatedAt

	return nil
}
