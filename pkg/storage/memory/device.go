package memory

import (
	"sync"
	"time"

	"github.com/fitlab/doorman/pkg/model"
	"github.com/fitlab/doorman/pkg/storage"
)

type deviceStore struct {
	store  map[int32]model.Device
	nextID int32
	sync.RWMutex
}

func newDeviceStore() *deviceStore {
	return &deviceStore{
		store:  make(map[int32]model.Device),
		nextID: 1,
	}
}

func (s *deviceStore) FetchAll() (models map[int32]model.Device, err error) {
	s.RLock()
	defer s.RUnlock()
	models = make(map[int32]model.Device, len(s.store))

	for id, m := range s.store {
		models[id] = m
	}

	return models, nil
}

func (s *deviceStore) FindByID(id int32) (*model.Device, error) {
	s.RLock()
	defer s.RUnlock()
	if m, ok := s.store[id]; ok {
		return &m, nil
	}

	return nil, storage.ErrNotFound
}

func (s *deviceStore) FindByDeviceID(deviceID string) (*model.Device, error) {
	s.RLock()
	defer s.RUnlock()

	for _, m := range s.store {
		if m.DeviceID == deviceID {
			return &m, nil
		}
	}

	return nil, storage.ErrNotFound
}

func (s *deviceStore) Create(m *model.Device) error {
	s.Lock()
	defer s.Unlock()

	for _, existing := range s.store {
		if existing.DeviceID == m.DeviceID {
			return storage.ErrNotUnique
		}
	}

	if m.Status == "" {
		m.Status = model.DeviceStatusUnknown
	}

	m.ID = s.getNextID()
	m.CreatedAt = time.Now().Round(time.Second).UTC()
	m.UpdatedAt = time.Now().Round(time.Second).UTC()

	s.store[m.ID] = *m

	return nil
}

func (s *deviceStore) Update(m *model.Device) error {
	s.Lock()
	defer s.Unlock()

	if _, ok := s.store[m.ID]; !ok {
		return storage.ErrNotFound
	}

	m.UpdatedAt = time.Now().Round(time.Second).UTC()
	s.store[m.ID] = *m

	return nil
}

func (s *deviceStore) BeginResync(id int32, requestedAt time.Time) (bool, error) {
	s.Lock()
	defer s.Unlock()

	m, ok := s.store[id]
	if !ok {
		return false, storage.ErrNotFound
	}
	if m.ResyncInProgress {
		return false, nil
	}

	now := time.Now().Round(time.Second).UTC()
	m.ResyncInProgress = true
	m.ResyncRequestedAt = &requestedAt
	m.ResyncStartedAt = &now
	m.ResyncError = ""
	m.UpdatedAt = now
	s.store[id] = m

	return true, nil
}

func (s *deviceStore) getNextID() int32 {
	id := s.nextID
	s.nextID++
	return id
}
