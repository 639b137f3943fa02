package storage

import (
	"context"
	"sync"

	"github.com/trixelnet/contributor/pkg/errors"
	"github.com/trixelnet/contributor/sensor"
)

type inMemoryReadings struct {
	sync.Mutex

	data map[string]sensor.Reading
}

func NewInMemoryReadings() ReadingStore {
	return &inMemoryReadings{
		data: make(map[string]sensor.Reading),
	}
}

func (s *inMemoryReadings) Put(_ context.Context, reading sensor.Reading) error {
	if reading.EntityID == "" {
		return errors.ErrEmptyKey
	}

	s.Lock()
	defer s.Unlock()

	s.data[reading.EntityID] = reading

	return nil
}

func (s *inMemoryReadings) Get(_ context.Context, entityID string) (sensor.Reading, error) {
	if entityID == "" {
		return sensor.Reading{}, errors.ErrEmptyKey
	}

	s.Lock()
	defer s.Unlock()

	if r, ok := s.data[entityID]; ok {
		return r, nil
	}

	return sensor.Reading{}, errors.ErrNotFound
}

func (s *inMemoryReadings) List(_ context.Context) ([]sensor.Reading, error) {
	s.Lock()
	defer s.Unlock()

	readings := make([]sensor.Reading, 0, len(s.data))
	for _, r := range s.data {
		readings = append(readings, r)
	}

	return readings, nil
}

type inMemoryIdentity struct {
	sync.Mutex

	identity *StationIdentity
}

// NewInMemoryIdentity is an identity store without persistence, used in
// tests and for stations that must re-register on every start.
func NewInMemoryIdentity() IdentityStore {
	return &inMemoryIdentity{}
}

func (s *inMemoryIdentity) Load(_ context.Context) (StationIdentity, error) {
	s.Lock()
	defer s.Unlock()

	if s.identity == nil {
		return StationIdentity{}, errors.ErrNotFound
	}

	return *s.identity, nil
}

func (s *inMemoryIdentity) Save(_ context.Context, identity StationIdentity) error {
	s.Lock()
	defer s.Unlock()

	s.identity = &identity

	return nil
}

func (s *inMemoryIdentity) Clear(_ context.Context) error {
	s.Lock()
	defer s.Unlock()

	s.identity = nil

	return nil
}
