package cli

import (
	"errors"
	"strconv"
	"strings"

	"github.com/0x6flab/namegenerator"
	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/trixelnet/contributor"
	"github.com/trixelnet/contributor/trixel"
)

var namegen = namegenerator.NewGenerator()

// NewProvisionCmd interactively writes a station configuration file.
func NewProvisionCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Provision station configuration",
		Long:  `Interactively create the station configuration file: lookup service, privacy settings, home location, MQTT broker and sensor selections.`,
		Run: func(cmd *cobra.Command, _ []string) {
			var (
				name        = namegen.Generate()
				tlsHost     string
				tlsHTTPS    = true
				tmsHTTPS    = true
				latitude    string
				longitude   string
				k           = "3"
				maxDepth    = "8"
				interval    = strconv.Itoa(contributor.DefaultPublishIntervalSeconds)
				brokerURL   = "tcp://localhost:1883"
				temperature string
				humidity    string
			)

			form := huh.NewForm(
				huh.NewGroup(
					huh.NewInput().Title("Station name").Value(&name),
					huh.NewInput().Title("Trixel lookup service host").Value(&tlsHost).
						Validate(requireValue("lookup service host")),
					huh.NewConfirm().Title("Use HTTPS for the lookup service?").Value(&tlsHTTPS),
					huh.NewConfirm().Title("Use HTTPS for the measurement service?").Value(&tmsHTTPS),
				),
				huh.NewGroup(
					huh.NewInput().Title("Home latitude").Value(&latitude).Validate(requireFloat),
					huh.NewInput().Title("Home longitude").Value(&longitude).Validate(requireFloat),
					huh.NewInput().Title("K-anonymity requirement").Value(&k).Validate(requireIntAtLeast(1)),
					huh.NewInput().Title("Maximum trixel depth").Value(&maxDepth).
						Validate(requireIntInRange(0, trixel.MaxSupportedDepth)),
					huh.NewInput().Title("Publish interval (seconds)").Value(&interval).Validate(requireIntAtLeast(1)),
				),
				huh.NewGroup(
					huh.NewInput().Title("MQTT broker URL").Value(&brokerURL).Validate(requireValue("broker URL")),
					huh.NewInput().Title("Outdoor temperature entities (comma separated)").Value(&temperature),
					huh.NewInput().Title("Outdoor humidity entities (comma separated)").Value(&humidity),
				),
			)

			if err := form.Run(); err != nil {
				logErrorCmd(*cmd, err)

				return
			}

			lat, _ := strconv.ParseFloat(latitude, 64)
			lon, _ := strconv.ParseFloat(longitude, 64)
			kReq, _ := strconv.Atoi(k)
			depth, _ := strconv.Atoi(maxDepth)
			seconds, _ := strconv.Atoi(interval)

			cfg := contributor.Config{
				Station: contributor.StationConfig{
					Name:                   name,
					TLSHost:                tlsHost,
					TLSUseHTTPS:            tlsHTTPS,
					TMSUseHTTPS:            tmsHTTPS,
					PublishIntervalSeconds: seconds,
					KRequirement:           kReq,
					MaxTrixelDepth:         depth,
					IdentityPath:           contributor.DefaultIdentityPath,
				},
				Home: contributor.HomeConfig{
					Latitude:  lat,
					Longitude: lon,
				},
				MQTT: contributor.MQTTConfig{
					BrokerURL:   brokerURL,
					TopicPrefix: contributor.DefaultTopicPrefix,
				},
				Sensors: contributor.SensorsConfig{
					OutdoorTemperature:      splitEntities(temperature),
					OutdoorRelativeHumidity: splitEntities(humidity),
				},
			}

			if err := cfg.Validate(); err != nil {
				logErrorCmd(*cmd, err)

				return
			}

			if err := cfg.Save(output); err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logSuccessCmd(*cmd, "Successfully wrote station configuration to "+output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "config.toml", "Path of the configuration file to write")

	return cmd
}

func splitEntities(value string) []string {
	var entities []string
	for _, e := range strings.Split(value, ",") {
		if e = strings.TrimSpace(e); e != "" {
			entities = append(entities, e)
		}
	}

	return entities
}

func requireValue(name string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return errors.New(name + " is required")
		}

		return nil
	}
}

func requireFloat(s string) error {
	if _, err := strconv.ParseFloat(s, 64); err != nil {
		return errors.New("must be a number")
	}

	return nil
}

func requireIntAtLeast(minimum int) func(string) error {
	return func(s string) error {
		v, err := strconv.Atoi(s)
		if err != nil || v < minimum {
			return errors.New("must be an integer >= " + strconv.Itoa(minimum))
		}

		return nil
	}
}

func requireIntInRange(minimum, maximum int) func(string) error {
	return func(s string) error {
		v, err := strconv.Atoi(s)
		if err != nil || v < minimum || v > maximum {
			return errors.New("must be an integer in [" + strconv.Itoa(minimum) + ", " + strconv.Itoa(maximum) + "]")
		}

		return nil
	}
}
