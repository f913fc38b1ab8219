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

func newDeviceStore(db *sqlx.DB) *deviceStore {
	return &deviceStore{
		db: db,
	}
}

type deviceStore struct {
	db *sqlx.DB
}

type sqlDataDevice struct {
	ID                int32          `db:"id"`
	DeviceID          string         `db:"device_id"`
	Name              sql.NullString `db:"name"`
	LocationID        sql.NullInt32  `db:"location_id"`
	Status            string         `db:"status"`
	LastSeenAt        sql.NullTime   `db:"last_seen_at"`
	LastHeartbeatAt   sql.NullTime   `db:"last_heartbeat_at"`
	LastTimeOK        sql.NullBool   `db:"last_time_ok"`
	LastNetStatus     sql.NullString `db:"last_net_status"`
	ResyncInProgress  bool           `db:"resync_in_progress"`
	ResyncRequestedAt sql.NullTime   `db:"resync_requested_at"`
	ResyncStartedAt   sql.NullTime   `db:"resync_started_at"`
	ResyncCompletedAt sql.NullTime   `db:"resync_completed_at"`
	ResyncFailedAt    sql.NullTime   `db:"resync_failed_at"`
	ResyncError       sql.NullString `db:"resync_error"`
	CreatedAt         time.Time      `db:"created_at"`
	UpdatedAt         time.Time      `db:"updated_at"`
}

var sqlParamsDevice = []string{
	"id",
	"device_id",
	"name",
	"location_id",
	"status",
	"last_seen_at",
	"last_heartbeat_at",
	"last_time_ok",
	"last_net_status",
	"resync_in_progress",
	"resync_requested_at",
	"resync_started_at",
	"resync_completed_at",
	"resync_failed_at",
	"resync_error",
	"created_at",
	"updated_at",
}

func (d *sqlDataDevice) Scan(m *model.Device) error {
	var createdAt, updatedAt = m.CreatedAt, m.UpdatedAt

	if m.CreatedAt.IsZero() {
		createdAt = time.Now().Round(time.Second).UTC()
	}

	if m.UpdatedAt.IsZero() {
		updatedAt = time.Now().Round(time.Second).UTC()
	}

	d.ID = m.ID
	d.DeviceID = m.DeviceID
	d.Name = toNullString(m.Name)
	d.LocationID = toNullInt32(m.LocationID)
	d.Status = m.Status
	d.LastSeenAt = toNullTime(m.LastSeenAt)
	d.LastHeartbeatAt = toNullTime(m.LastHeartbeat)
	d.LastTimeOK = toNullBool(m.LastTimeOK)
	d.LastNetStatus = toNullString(m.LastNetStatus)
	d.ResyncInProgress = m.ResyncInProgress
	d.ResyncRequestedAt = toNullTime(m.ResyncRequestedAt)
	d.ResyncStartedAt = toNullTime(m.ResyncStartedAt)
	d.ResyncCompletedAt = toNullTime(m.ResyncCompletedAt)
	d.ResyncFailedAt = toNullTime(m.ResyncFailedAt)
	d.ResyncError = toNullString(m.ResyncError)
	d.CreatedAt = createdAt
	d.UpdatedAt = updatedAt

	return nil
}

func (d *sqlDataDevice) Model() (*model.Device, error) {
	m := &model.Device{
		ID:                d.ID,
		DeviceID:          d.DeviceID,
		Name:              d.Name.String,
		LocationID:        fromNullInt32(d.LocationID),
		Status:            d.Status,
		LastSeenAt:        fromNullTime(d.LastSeenAt),
		LastHeartbeat:     fromNullTime(d.LastHeartbeatAt),
		LastTimeOK:        fromNullBool(d.LastTimeOK),
		LastNetStatus:     d.LastNetStatus.String,
		ResyncInProgress:  d.ResyncInProgress,
		ResyncRequestedAt: fromNullTime(d.ResyncRequestedAt),
		ResyncStartedAt:   fromNullTime(d.ResyncStartedAt),
		ResyncCompletedAt: fromNullTime(d.ResyncCompletedAt),
		ResyncFailedAt:    fromNullTime(d.ResyncFailedAt),
		ResyncError:       d.ResyncError.String,
		CreatedAt:         d.CreatedAt,
		UpdatedAt:         d.UpdatedAt,
	}

	return m, nil
}

func (s *deviceStore) FetchAll() (map[int32]model.Device, error) {
	rows := make([]sqlDataDevice, 0)
	models := make(map[int32]model.Device)

	query := "SELECT * FROM acs_devices ORDER BY id"
	if err := s.db.Select(&rows, query); err != nil {
		return nil, errors.Wrap(err, "failed to fetch all devices")
	}

	for _, d := range rows {
		m, err := d.Model()
		if err != nil {
			return nil, errors.Wrap(err, "failed to convert SQL data to device model")
		}

		models[d.ID] = *m
	}

	return models, nil
}

func (s *deviceStore) FindByID(id int32) (*model.Device, error) {
	d := sqlDataDevice{}
	query := "SELECT * FROM acs_devices WHERE id=$1"
	if err := s.db.Get(&d, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, storage.ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to find device")
	}

	return d.Model()
}

func (s *deviceStore) FindByDeviceID(deviceID string) (*model.Device, error) {
	d := sqlDataDevice{}
	query := "SELECT * FROM acs_devices WHERE device_id=$1"
	if err := s.db.Get(&d, query, deviceID); err != nil {
		if err == sql.ErrNoRows {
			return nil, storage.ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to find device")
	}

	return d.Model()
}

func (s *deviceStore) Create(m *model.Device) error {
	if m.Status == "" {
		m.Status = model.DeviceStatusUnknown
	}

	d := sqlDataDevice{}
	if err := d.Scan(m); err != nil {
		return errors.Wrap(err, "failed to convert device model to SQL data")
	}

	// Remove the id column because it's of SQL type serial
	sqlParamsWithoutID := make([]string, 0)
	for _, s := range sqlParamsDevice {
		if s != "id" {
			sqlParamsWithoutID = append(sqlParamsWithoutID, s)
		}
	}

	query := fmt.Sprintf(
		"INSERT INTO acs_devices (%s) VALUES (%s) RETURNING id",
		strings.Join(sqlParamsWithoutID, ", "),
		":"+strings.Join(sqlParamsWithoutID, ", :"),
	)
	rows, err := s.db.NamedQuery(query, d)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return storage.ErrNotUnique
		}
		return errors.Wrap(err, "failed to create device")
	}
	if rows.Next() {
		rows.Scan(&m.ID)
	}

	return nil
}

func (s *deviceStore) Update(m *model.Device) error {
	d := sqlDataDevice{}
	if err := d.Scan(m); err != nil {
		return errors.Wrap(err, "failed to convert device model to SQL data")
	}
	d.UpdatedAt = time.Now().Round(time.Second).UTC()

	assignments := make([]string, 0)
	for _, p := range sqlParamsDevice {
		if p != "id" && p != "created_at" {
			assignments = append(assignments, fmt.Sprintf("%s=:%s", p, p))
		}
	}

	query := fmt.Sprintf(
		"UPDATE acs_devices SET %s WHERE id=:id",
		strings.Join(assignments, ", "),
	)
	if _, err := s.db.NamedExec(query, d); err != nil {
		return errors.Wrap(err, "failed to update device")
	}
	m.UpdatedAt = d.UpdatedAt

	return nil
}

func (s *deviceStore) BeginResync(id int32, requestedAt time.Time) (bool, error) {
	now := time.Now().Round(time.Second).UTC()
	query := `UPDATE acs_devices
		SET resync_in_progress=TRUE, resync_requested_at=$2, resync_started_at=$3,
			resync_error=NULL, updated_at=$3
		WHERE id=$1 AND resync_in_progress=FALSE`
	res, err := s.db.Exec(query, id, requestedAt, now)
	if err != nil {
		return false, errors.Wrap(err, "failed to begin resync")
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "failed to begin resync")
	}

	return n == 1, nil
}
