package postgres

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/fitlab/doorman/pkg/model"
	"github.com/fitlab/doorman/pkg/storage"
)

func newTokenStore(db *sqlx.DB) *tokenStore {
	return &tokenStore{
		db: db,
	}
}

type tokenStore struct {
	db *sqlx.DB
}

type sqlDataToken struct {
	ID            int32         `db:"id"`
	DeviceID      int32         `db:"acs_device_id"`
	ClientID      sql.NullInt32 `db:"client_id"`
	BookingID     sql.NullInt32 `db:"booking_id"`
	UID           string        `db:"uid"`
	ValidFrom     int64         `db:"valid_from"`
	ValidTo       int64         `db:"valid_to"`
	DayStartS     int           `db:"day_start_s"`
	DayEndS       int           `db:"day_end_s"`
	RemainingUses int           `db:"remaining_uses"`
	Version       int           `db:"version"`
	CreatedAt     time.Time     `db:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at"`
}

var sqlParamsToken = []string{
	"id",
	"acs_device_id",
	"client_id",
	"booking_id",
	"uid",
	"valid_from",
	"valid_to",
	"day_start_s",
	"day_end_s",
	"remaining_uses",
	"version",
	"created_at",
	"updated_at",
}

func (d *sqlDataToken) Scan(m *model.Token) error {
	var createdAt, updatedAt = m.CreatedAt, m.UpdatedAt

	if m.CreatedAt.IsZero() {
		createdAt = time.Now().Round(time.Second).UTC()
	}

	if m.UpdatedAt.IsZero() {
		updatedAt = time.Now().Round(time.Second).UTC()
	}

	d.ID = m.ID
	d.DeviceID = m.DeviceID
	d.ClientID = toNullInt32(m.ClientID)
	d.BookingID = toNullInt32(m.BookingID)
	d.UID = m.UID
	d.ValidFrom = m.ValidFrom
	d.ValidTo = m.ValidTo
	d.DayStartS = m.DayStartS
	d.DayEndS = m.DayEndS
	d.RemainingUses = m.RemainingUses
	d.Version = m.Version
	d.CreatedAt = createdAt
	d.UpdatedAt = updatedAt

	return nil
}

func (d *sqlDataToken) Model() (*model.Token, error) {
	m := &model.Token{
		ID:            d.ID,
		DeviceID:      d.DeviceID,
		ClientID:      fromNullInt32(d.ClientID),
		BookingID:     fromNullInt32(d.BookingID),
		UID:           d.UID,
		ValidFrom:     d.ValidFrom,
		ValidTo:       d.ValidTo,
		DayStartS:     d.DayStartS,
		DayEndS:       d.DayEndS,
		RemainingUses: d.RemainingUses,
		Version:       d.Version,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}

	return m, nil
}

func (s *tokenStore) FetchAll() (map[int32]model.Token, error) {
	rows := make([]sqlDataToken, 0)
	models := make(map[int32]model.Token)

	query := "SELECT * FROM acs_tokens ORDER BY id"
	if err := s.db.Select(&rows, query); err != nil {
		return nil, errors.Wrap(err, "failed to fetch all tokens")
	}

	for _, d := range rows {
		m, err := d.Model()
		if err != nil {
			return nil, errors.Wrap(err, "failed to convert SQL data to token model")
		}

		models[d.ID] = *m
	}

	return models, nil
}

func (s *tokenStore) FindByID(id int32) (*model.Token, error) {
	d := sqlDataToken{}
	query := "SELECT * FROM acs_tokens WHERE id=$1"
	if err := s.db.Get(&d, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, storage.ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to find token")
	}

	return d.Model()
}

func (s *tokenStore) FetchByDeviceID(deviceID int32) ([]model.Token, error) {
	rows := make([]sqlDataToken, 0)
	models := make([]model.Token, 0)

	query := "SELECT * FROM acs_tokens WHERE acs_device_id=$1 ORDER BY id"
	if err := s.db.Select(&rows, query, deviceID); err != nil {
		return nil, errors.Wrap(err, "failed to fetch tokens of device")
	}

	for _, d := range rows {
		m, err := d.Model()
		if err != nil {
			return nil, errors.Wrap(err, "failed to convert SQL data to token model")
		}

		models = append(models, *m)
	}

	return models, nil
}

func (s *tokenStore) Create(m *model.Token) error {
	if m.Version == 0 {
		m.Version = 1
	}

	d := sqlDataToken{}
	if err := d.Scan(m); err != nil {
		return errors.Wrap(err, "failed to convert token model to SQL data")
	}

	// Remove the id column because it's of SQL type serial
	sqlParamsWithoutID := make([]string, 0)
	for _, s := range sqlParamsToken {
		if s != "id" {
			sqlParamsWithoutID = append(sqlParamsWithoutID, s)
		}
	}

	query := fmt.Sprintf(
		"INSERT INTO acs_tokens (%s) VALUES (%s) RETURNING id",
		strings.Join(sqlParamsWithoutID, ", "),
		":"+strings.Join(sqlParamsWithoutID, ", :"),
	)
	rows, err := s.db.NamedQuery(query, d)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return storage.ErrNotUnique
		}
		return errors.Wrap(err, "failed to create token")
	}
	if rows.Next() {
		rows.Scan(&m.ID)
	}

	return nil
}

func (s *tokenStore) Update(m *model.Token) error {
	d := sqlDataToken{}
	if err := d.Scan(m); err != nil {
		return errors.Wrap(err, "failed to convert token model to SQL data")
	}
	d.UpdatedAt = time.Now().Round(time.Second).UTC()

	assignments := make([]string, 0)
	for _, p := range sqlParamsToken {
		if p != "id" && p != "created_at" {
			assignments = append(assignments, fmt.Sprintf("%s=:%s", p, p))
		}
	}

	query := fmt.Sprintf(
		"UPDATE acs_tokens SET %s WHERE id=:id",
		strings.Join(assignments, ", "),
	)
	if _, err := s.db.NamedExec(query, d); err != nil {
		return errors.Wrap(err, "failed to update token")
	}
	m.UpdatedAt = d.UpdatedAt

	return nil
}

func (s *tokenStore) Delete(id int32) error {
	query := "DELETE FROM acs_tokens WHERE id=$1"
	_, err := s.db.Exec(query, id)
	if err != nil {
		return errors.Wrap(err, "failed to delete token")
	}

	return nil
}
