package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/fitlab/doorman/pkg/model"
	"github.com/fitlab/doorman/pkg/storage"
)

type commandStore struct {
	store  map[int32]model.Command
	nextID int32
	sync.RWMutex
}

func newCommandStore() *commandStore {
	return &commandStore{
		store:  make(map[int32]model.Command),
		nextID: 1,
	}
}

func (s *commandStore) FetchAll() (models map[int32]model.Command, err error) {
	s.RLock()
	defer s.RUnlock()
	models = make(map[int32]model.Command, len(s.store))

	for id, m := range s.store {
		models[id] = m
	}

	return models, nil
}

func (s *commandStore) FindByID(id int32) (*model.Command, error) {
	s.RLock()
	defer s.RUnlock()
	if m, ok := s.store[id]; ok {
		return &m, nil
	}

	return nil, storage.ErrNotFound
}

func (s *commandStore) FetchByDeviceID(deviceID int32) ([]model.Command, error) {
	s.RLock()
	defer s.RUnlock()

	models := make([]model.Command, 0)
	for _, m := range s.store {
		if m.DeviceID == deviceID {
			models = append(models, m)
		}
	}

	sort.Slice(models, func(i, j int) bool {
		return models[i].ID < models[j].ID
	})

	return models, nil
}

func (s *commandStore) FindByDeviceAndMsgID(deviceID int32, msgID string) (*model.Command, error) {
	s.RLock()
	defer s.RUnlock()

	var found *model.Command
	for id := range s.store {
		m := s.store[id]
		if m.DeviceID != deviceID || m.MsgID != msgID {
			continue
		}
		// Newest first
		if found == nil || m.CreatedAt.After(found.CreatedAt) ||
			(m.CreatedAt.Equal(found.CreatedAt) && m.ID > found.ID) {
			found = &m
		}
	}

	if found == nil {
		return nil, storage.ErrNotFound
	}

	return found, nil
}

func (s *commandStore) Create(m *model.Command) error {
	s.Lock()
	defer s.Unlock()

	for _, existing := range s.store {
		if existing.DeviceID == m.DeviceID && existing.MsgID == m.MsgID {
			return storage.ErrNotUnique
		}
	}

	if m.Status == "" {
		m.Status = model.CommandStatusQueued
	}

	m.ID = s.getNextID()
	m.CreatedAt = time.Now().Round(time.Second).UTC()
	m.UpdatedAt = time.Now().Round(time.Second).UTC()

	s.store[m.ID] = *m

	return nil
}

func (s *commandStore) Update(m *model.Command) error {
	s.Lock()
	defer s.Unlock()

	if _, ok := s.store[m.ID]; !ok {
		return storage.ErrNotFound
	}

	m.UpdatedAt = time.Now().Round(time.Second).UTC()
	s.store[m.ID] = *m

	return nil
}

func (s *commandStore) getNextID() int32 {
	id := s.nextID
	s.nextID++
	return id
}
