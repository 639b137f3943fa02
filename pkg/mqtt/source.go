package mqtt

import (
	"context"
	goerrors "errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/trixelnet/contributor/pkg/errors"
	"github.com/trixelnet/contributor/pkg/storage"
	"github.com/trixelnet/contributor/sensor"
)

// StateSource mirrors Home Assistant statestream topics into a reading
// store so a contribution cycle can read the latest entity states without
// waiting on the broker.
type StateSource struct {
	pubsub PubSub
	store  storage.ReadingStore
	prefix string
	logger *slog.Logger
	now    func() time.Time
}

func NewStateSource(pubsub PubSub, store storage.ReadingStore, prefix string, logger *slog.Logger) *StateSource {
	return &StateSource{
		pubsub: pubsub,
		store:  store,
		prefix: strings.TrimSuffix(prefix, "/"),
		logger: logger,
		now:    time.Now,
	}
}

// Track subscribes to the statestream topics of the given entities.
// The statestream publishes the state and each attribute on its own
// retained topic below <prefix>/<domain>/<object_id>/.
func (s *StateSource) Track(ctx context.Context, entityIDs []string) error {
	for _, entityID := range entityIDs {
		domain, objectID, err := splitEntityID(entityID)
		if err != nil {
			return err
		}

		topic := fmt.Sprintf("%s/%s/%s/#", s.prefix, domain, objectID)
		if err := s.pubsub.Subscribe(ctx, topic, s.handleMessage); err != nil {
			return fmt.Errorf("failed to subscribe to statestream for %s: %w", entityID, err)
		}
	}

	return nil
}

// Readings returns the latest cached reading for each requested entity.
// Entities the statestream has not reported yet are returned with an
// unavailable state so they are excluded from the batch, not treated as
// an error.
func (s *StateSource) Readings(ctx context.Context, entityIDs []string) ([]sensor.Reading, error) {
	readings := make([]sensor.Reading, 0, len(entityIDs))
	for _, entityID := range entityIDs {
		r, err := s.store.Get(ctx, entityID)
		if err != nil {
			if goerrors.Is(err, errors.ErrNotFound) {
				readings = append(readings, sensor.Reading{
					EntityID: entityID,
					State:    sensor.StateUnavailable,
				})

				continue
			}

			return nil, err
		}
		readings = append(readings, r)
	}

	return readings, nil
}

func (s *StateSource) handleMessage(topic string, payload []byte) error {
	rel := strings.TrimPrefix(topic, s.prefix+"/")
	parts := strings.Split(rel, "/")
	if len(parts) != 3 {
		return fmt.Errorf("unexpected statestream topic %q", topic)
	}
	domain, objectID, key := parts[0], parts[1], parts[2]
	entityID := domain + "." + objectID

	ctx := context.Background()

	reading, err := s.store.Get(ctx, entityID)
	if err != nil {
		if !goerrors.Is(err, errors.ErrNotFound) {
			return err
		}
		reading = sensor.Reading{EntityID: entityID}
	}

	value := attributeValue(payload)
	switch key {
	case "state":
		reading.State = value
		reading.LastReported = s.now().UTC()
	case "device_class":
		reading.DeviceClass = sensor.DeviceClass(value)
	case "unit_of_measurement":
		reading.Unit = value
	case "last_updated", "last_reported":
		if ts, err := time.Parse(time.RFC3339, value); err == nil {
			reading.LastReported = ts.UTC()
		}
	default:
		// other attributes are not needed for contribution
		return nil
	}

	return s.store.Put(ctx, reading)
}

// attributeValue strips the JSON string quoting the statestream applies
// to attribute payloads. State payloads are bare strings.
func attributeValue(payload []byte) string {
	v := string(payload)
	if unquoted, err := strconv.Unquote(v); err == nil {
		return unquoted
	}

	return v
}

func splitEntityID(entityID string) (string, string, error) {
	domain, objectID, ok := strings.Cut(entityID, ".")
	if !ok || domain == "" || objectID == "" {
		return "", "", fmt.Errorf("%w: entity id %q", errors.ErrInvalidData, entityID)
	}

	return domain, objectID, nil
}
