package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/fitlab/doorman/pkg/model"
	"github.com/fitlab/doorman/pkg/storage"
)

type tokenStore struct {
	store  map[int32]model.Token
	nextID int32
	sync.RWMutex
}

func newTokenStore() *tokenStore {
	return &tokenStore{
		store:  make(map[int32]model.Token),
		nextID: 1,
	}
}

func (s *tokenStore) FetchAll() (models map[int32]model.Token, err error) {
	s.RLock()
	defer s.RUnlock()
	models = make(map[int32]model.Token, len(s.store))

	for id, m := range s.store {
		models[id] = m
	}

	return models, nil
}

func (s *tokenStore) FindByID(id int32) (*model.Token, error) {
	s.RLock()
	defer s.RUnlock()
	if m, ok := s.store[id]; ok {
		return &m, nil
	}

	return nil, storage.ErrNotFound
}

func (s *tokenStore) FetchByDeviceID(deviceID int32) ([]model.Token, error) {
	s.RLock()
	defer s.RUnlock()

	models := make([]model.Token, 0)
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

func (s *tokenStore) Create(m *model.Token) error {
	s.Lock()
	defer s.Unlock()

	for _, existing := range s.store {
		if existing.DeviceID == m.DeviceID && existing.UID == m.UID {
			return storage.ErrNotUnique
		}
	}

	if m.Version == 0 {
		m.Version = 1
	}

	m.ID = s.getNextID()
	m.CreatedAt = time.Now().Round(time.Second).UTC()
	m.UpdatedAt = time.Now().Round(time.Second).UTC()

	s.store[m.ID] = *m

	return nil
}

func (s *tokenStore) Update(m *model.Token) error {
	s.Lock()
	defer s.Unlock()

	if _, ok := s.store[m.ID]; !ok {
		return storage.ErrNotFound
	}

	m.UpdatedAt = time.Now().Round(time.Second).UTC()
	s.store[m.ID] = *m

	return nil
}

func (s *tokenStore) Delete(id int32) error {
	s.Lock()
	defer s.Unlock()

	_, ok := s.store[id]
	if !ok {
		return storage.ErrNotFound
	}

	delete(s.store, id)

	return nil
}

func (s *tokenStore) getNextID() int32 {
	id := s.nextID
	s.nextID++
	return id
}
