// Package contributor carries the station configuration shared by the
// daemon and the CLI.
package contributor

import (
	"fmt"
	"net/url"
	"os"

	"github.com/pelletier/go-toml"

	"github.com/trixelnet/contributor/pkg/errors"
	"github.com/trixelnet/contributor/sensor"
	"github.com/trixelnet/contributor/trixel"
)

// Home Assistant ships this onboarding default location; a station still
// pointing at it has no real home configured.
const (
	DefaultHomeLatitude  = 52.3731339
	DefaultHomeLongitude = 4.8903147
)

const (
	DefaultPublishIntervalSeconds = 60
	DefaultTopicPrefix            = "homeassistant"
	DefaultIdentityPath           = "station_identity.json"
)

type Config struct {
	Station StationConfig `toml:"station"`
	Home    HomeConfig    `toml:"home"`
	MQTT    MQTTConfig    `toml:"mqtt"`
	Sensors SensorsConfig `toml:"sensors"`
}

type StationConfig struct {
	Name                   string `toml:"name"`
	TLSHost                string `toml:"trixel_lookup_service_host"`
	TLSUseHTTPS            bool   `toml:"tls_use_https"`
	TMSUseHTTPS            bool   `toml:"tms_use_https"`
	PublishIntervalSeconds int    `toml:"publish_interval_seconds"`
	KRequirement           int    `toml:"k_requirement"`
	MaxTrixelDepth         int    `toml:"max_trixel_depth"`
	StartDepth             int    `toml:"start_depth"`
	IdentityPath           string `toml:"identity_path"`
}

type HomeConfig struct {
	Latitude  float64 `toml:"latitude"`
	Longitude float64 `toml:"longitude"`
}

type MQTTConfig struct {
	BrokerURL   string `toml:"broker_url"`
	Username    string `toml:"username"`
	Password    string `toml:"password"`
	TopicPrefix string `toml:"topic_prefix"`
	QoS         uint8  `toml:"qos"`
}

type SensorsConfig struct {
	OutdoorTemperature      []string `toml:"outdoor_temperature_sensors"`
	OutdoorRelativeHumidity []string `toml:"outdoor_relative_humidity_sensors"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	tree, err := toml.Load(string(data))
	if err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	var cfg Config
	if err := tree.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// Save writes the configuration back to disk; used by provisioning.
func (c *Config) Save(path string) error {
	data, err := toml.Marshal(*c)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

func (c *Config) applyDefaults() {
	if c.Station.PublishIntervalSeconds <= 0 {
		c.Station.PublishIntervalSeconds = DefaultPublishIntervalSeconds
	}
	if c.Station.IdentityPath == "" {
		c.Station.IdentityPath = DefaultIdentityPath
	}
	if c.MQTT.TopicPrefix == "" {
		c.MQTT.TopicPrefix = DefaultTopicPrefix
	}
}

func (c *Config) Validate() error {
	if c.Station.TLSHost == "" {
		return fmt.Errorf("trixel_lookup_service_host is required")
	}
	if c.Station.KRequirement < 1 {
		return fmt.Errorf("k_requirement must be at least 1, got %d", c.Station.KRequirement)
	}
	if c.Station.MaxTrixelDepth < 0 || c.Station.MaxTrixelDepth > trixel.MaxSupportedDepth {
		return fmt.Errorf("%w: max_trixel_depth %d", errors.ErrInvalidDepth, c.Station.MaxTrixelDepth)
	}
	if c.Station.StartDepth < 0 || c.Station.StartDepth > c.Station.MaxTrixelDepth {
		return fmt.Errorf("%w: start_depth %d", errors.ErrInvalidDepth, c.Station.StartDepth)
	}
	if err := c.Home.Validate(); err != nil {
		return err
	}
	if c.MQTT.BrokerURL == "" {
		return fmt.Errorf("mqtt broker_url is required")
	}
	if _, err := url.Parse(c.MQTT.BrokerURL); err != nil {
		return fmt.Errorf("mqtt broker_url is not a valid URL: %w", err)
	}

	return nil
}

// Validate rejects a missing home location as well as the untouched
// onboarding default, which would otherwise contribute a bogus location.
func (h HomeConfig) Validate() error {
	if h.Latitude == 0 && h.Longitude == 0 {
		return errors.ErrNoHome
	}
	if h.Latitude == DefaultHomeLatitude && h.Longitude == DefaultHomeLongitude {
		return errors.ErrNoHome
	}
	if h.Latitude < -90 || h.Latitude > 90 || h.Longitude < -180 || h.Longitude > 180 {
		return fmt.Errorf("%w: latitude %f, longitude %f out of range", errors.ErrInvalidData, h.Latitude, h.Longitude)
	}

	return nil
}

// Selections maps each measurement type to the entities feeding it.
func (c *Config) Selections() map[sensor.MeasurementType][]string {
	return map[sensor.MeasurementType][]string{
		sensor.AmbientTemperature: c.Sensors.OutdoorTemperature,
		sensor.RelativeHumidity:   c.Sensors.OutdoorRelativeHumidity,
	}
}

// Entities lists all configured sensor entities.
func (c *Config) Entities() []string {
	var entities []string
	entities = append(entities, c.Sensors.OutdoorTemperature...)
	entities = append(entities, c.Sensors.OutdoorRelativeHumidity...)

	return entities
}

// Types lists the measurement types with at least one configured entity.
func (c *Config) Types() []sensor.MeasurementType {
	var types []sensor.MeasurementType
	for _, mt := range sensor.Types() {
		if len(c.Selections()[mt]) > 0 {
			types = append(types, mt)
		}
	}

	return types
}
