package mqtt_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/trixelnet/contributor/pkg/errors"
	"github.com/trixelnet/contributor/pkg/mqtt"
	"github.com/trixelnet/contributor/pkg/mqtt/mocks"
	"github.com/trixelnet/contributor/pkg/storage"
	"github.com/trixelnet/contributor/sensor"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newSource(t *testing.T, entityIDs ...string) (*mqtt.StateSource, mqtt.Handler) {
	t.Helper()

	var handler mqtt.Handler
	pubsub := new(mocks.MockPubSub)
	pubsub.On("Subscribe", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			handler = args.Get(2).(mqtt.Handler)
		}).
		Return(nil)

	source := mqtt.NewStateSource(pubsub, storage.NewInMemoryReadings(), "homeassistant", testLogger())
	require.NoError(t, source.Track(context.Background(), entityIDs))
	require.NotNil(t, handler)

	return source, handler
}

func TestTrackSubscribesPerEntity(t *testing.T) {
	pubsub := new(mocks.MockPubSub)
	pubsub.On("Subscribe", mock.Anything, "homeassistant/sensor/out_temp/#", mock.Anything).Return(nil).Once()
	pubsub.On("Subscribe", mock.Anything, "homeassistant/sensor/out_hum/#", mock.Anything).Return(nil).Once()

	source := mqtt.NewStateSource(pubsub, storage.NewInMemoryReadings(), "homeassistant", testLogger())

	require.NoError(t, source.Track(context.Background(), []string{"sensor.out_temp", "sensor.out_hum"}))
	pubsub.AssertExpectations(t)
}

func TestTrackRejectsMalformedEntityID(t *testing.T) {
	pubsub := new(mocks.MockPubSub)
	source := mqtt.NewStateSource(pubsub, storage.NewInMemoryReadings(), "homeassistant", testLogger())

	err := source.Track(context.Background(), []string{"not-an-entity-id"})
	assert.ErrorIs(t, err, errors.ErrInvalidData)
}

func TestStatestreamMessagesBuildReading(t *testing.T) {
	source, handler := newSource(t, "sensor.out_temp")

	require.NoError(t, handler("homeassistant/sensor/out_temp/device_class", []byte(`"temperature"`)))
	require.NoError(t, handler("homeassistant/sensor/out_temp/unit_of_measurement", []byte(`"°C"`)))
	require.NoError(t, handler("homeassistant/sensor/out_temp/state", []byte("21.5")))
	require.NoError(t, handler("homeassistant/sensor/out_temp/last_reported", []byte(`"2026-08-29T10:15:00+00:00"`)))

	readings, err := source.Readings(context.Background(), []string{"sensor.out_temp"})
	require.NoError(t, err)
	require.Len(t, readings, 1)

	r := readings[0]
	assert.Equal(t, "sensor.out_temp", r.EntityID)
	assert.Equal(t, "21.5", r.State)
	assert.Equal(t, sensor.DeviceClassTemperature, r.DeviceClass)
	assert.Equal(t, sensor.UnitCelsius, r.Unit)
	assert.Equal(t, "2026-08-29T10:15:00Z", r.LastReported.Format("2006-01-02T15:04:05Z07:00"))
}

func TestStateUpdateRefreshesLastReported(t *testing.T) {
	source, handler := newSource(t, "sensor.out_temp")

	require.NoError(t, handler("homeassistant/sensor/out_temp/state", []byte("20.0")))

	readings, err := source.Readings(context.Background(), []string{"sensor.out_temp"})
	require.NoError(t, err)
	require.Len(t, readings, 1)
	assert.False(t, readings[0].LastReported.IsZero(), "a state update must stamp the reading")
}

func TestUnknownAttributeIgnored(t *testing.T) {
	source, handler := newSource(t, "sensor.out_temp")

	require.NoError(t, handler("homeassistant/sensor/out_temp/state", []byte("20.0")))
	require.NoError(t, handler("homeassistant/sensor/out_temp/icon", []byte(`"mdi:thermometer"`)))

	readings, err := source.Readings(context.Background(), []string{"sensor.out_temp"})
	require.NoError(t, err)
	assert.Equal(t, "20.0", readings[0].State)
}

func TestMalformedTopicRejected(t *testing.T) {
	_, handler := newSource(t, "sensor.out_temp")

	assert.Error(t, handler("homeassistant/sensor/state", []byte("20.0")))
}

func TestReadingsForUntrackedEntity(t *testing.T) {
	source, _ := newSource(t, "sensor.out_temp")

	readings, err := source.Readings(context.Background(), []string{"sensor.out_temp", "sensor.never_seen"})
	require.NoError(t, err)
	require.Len(t, readings, 2)
	assert.Equal(t, sensor.StateUnavailable, readings[0].State)
	assert.Equal(t, sensor.StateUnavailable, readings[1].State)
}
