package contributor_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	contributor "github.com/trixelnet/contributor"
	"github.com/trixelnet/contributor/pkg/errors"
	"github.com/trixelnet/contributor/sensor"
)

const validConfig = `
[station]
name = "balcony-station"
trixel_lookup_service_host = "tls.example.org"
tls_use_https = true
tms_use_https = true
k_requirement = 3
max_trixel_depth = 12
start_depth = 8

[home]
latitude = 48.137154
longitude = 11.576124

[mqtt]
broker_url = "tcp://localhost:1883"
username = "ha"
password = "secret"

[sensors]
outdoor_temperature_sensors = ["sensor.balcony_temp"]
outdoor_relative_humidity_sensors = ["sensor.balcony_hum"]
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	return path
}

func TestLoadConfig(t *testing.T) {
	cfg, err := contributor.LoadConfig(writeConfig(t, validConfig))
	require.NoError(t, err)

	assert.Equal(t, "balcony-station", cfg.Station.Name)
	assert.Equal(t, "tls.example.org", cfg.Station.TLSHost)
	assert.True(t, cfg.Station.TLSUseHTTPS)
	assert.Equal(t, 3, cfg.Station.KRequirement)
	assert.Equal(t, 12, cfg.Station.MaxTrixelDepth)
	assert.Equal(t, 8, cfg.Station.StartDepth)
	assert.InDelta(t, 48.137154, cfg.Home.Latitude, 1e-9)
	assert.Equal(t, "tcp://localhost:1883", cfg.MQTT.BrokerURL)
	assert.Equal(t, []string{"sensor.balcony_temp"}, cfg.Sensors.OutdoorTemperature)

	// defaults fill the omitted fields
	assert.Equal(t, contributor.DefaultPublishIntervalSeconds, cfg.Station.PublishIntervalSeconds)
	assert.Equal(t, contributor.DefaultTopicPrefix, cfg.MQTT.TopicPrefix)
	assert.Equal(t, contributor.DefaultIdentityPath, cfg.Station.IdentityPath)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := contributor.LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestLoadConfigInvalidTOML(t *testing.T) {
	_, err := contributor.LoadConfig(writeConfig(t, "not [valid toml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() contributor.Config {
		return contributor.Config{
			Station: contributor.StationConfig{
				TLSHost:        "tls.example.org",
				KRequirement:   3,
				MaxTrixelDepth: 12,
				StartDepth:     8,
			},
			Home: contributor.HomeConfig{Latitude: 48.137154, Longitude: 11.576124},
			MQTT: contributor.MQTTConfig{BrokerURL: "tcp://localhost:1883"},
		}
	}

	tests := []struct {
		name          string
		mutate        func(*contributor.Config)
		expectedError error
	}{
		{
			name:   "valid",
			mutate: func(*contributor.Config) {},
		},
		{
			name:          "missing lookup host",
			mutate:        func(c *contributor.Config) { c.Station.TLSHost = "" },
			expectedError: assert.AnError,
		},
		{
			name:          "k below one",
			mutate:        func(c *contributor.Config) { c.Station.KRequirement = 0 },
			expectedError: assert.AnError,
		},
		{
			name:          "max depth beyond supported",
			mutate:        func(c *contributor.Config) { c.Station.MaxTrixelDepth = 30 },
			expectedError: errors.ErrInvalidDepth,
		},
		{
			name:          "start depth beyond max",
			mutate:        func(c *contributor.Config) { c.Station.StartDepth = 13 },
			expectedError: errors.ErrInvalidDepth,
		},
		{
			name: "unset home location",
			mutate: func(c *contributor.Config) {
				c.Home.Latitude = 0
				c.Home.Longitude = 0
			},
			expectedError: errors.ErrNoHome,
		},
		{
			name: "onboarding default home rejected",
			mutate: func(c *contributor.Config) {
				c.Home.Latitude = contributor.DefaultHomeLatitude
				c.Home.Longitude = contributor.DefaultHomeLongitude
			},
			expectedError: errors.ErrNoHome,
		},
		{
			name:          "latitude out of range",
			mutate:        func(c *contributor.Config) { c.Home.Latitude = 91 },
			expectedError: errors.ErrInvalidData,
		},
		{
			name:          "missing broker url",
			mutate:        func(c *contributor.Config) { c.MQTT.BrokerURL = "" },
			expectedError: assert.AnError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)

			err := cfg.Validate()
			switch {
			case tt.expectedError == nil:
				assert.NoError(t, err)
			case tt.expectedError == assert.AnError:
				assert.Error(t, err)
			default:
				assert.ErrorIs(t, err, tt.expectedError)
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg, err := contributor.LoadConfig(writeConfig(t, validConfig))
	require.NoError(t, err)
	require.NoError(t, cfg.Save(path))

	reloaded, err := contributor.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, reloaded)
}

func TestSelections(t *testing.T) {
	cfg, err := contributor.LoadConfig(writeConfig(t, validConfig))
	require.NoError(t, err)

	selections := cfg.Selections()
	assert.Equal(t, []string{"sensor.balcony_temp"}, selections[sensor.AmbientTemperature])
	assert.Equal(t, []string{"sensor.balcony_hum"}, selections[sensor.RelativeHumidity])

	assert.ElementsMatch(t, []string{"sensor.balcony_temp", "sensor.balcony_hum"}, cfg.Entities())
	assert.Equal(t, []sensor.MeasurementType{sensor.AmbientTemperature, sensor.RelativeHumidity}, cfg.Types())
}
