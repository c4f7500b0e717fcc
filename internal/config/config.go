// Package config loads the sensor hub's YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/sensor-hub/internal/console"
	"github.com/sweeney/sensor-hub/internal/gpio"
	"github.com/sweeney/sensor-hub/internal/hub"
	"github.com/sweeney/sensor-hub/internal/mqtt"
	"github.com/sweeney/sensor-hub/internal/wifi"
)

// Config is the complete hub and collector configuration.
type Config struct {
	Console   ConsoleConfig   `yaml:"console"`
	WiFi      WiFiConfig      `yaml:"wifi"`
	GPIO      GPIOConfig      `yaml:"gpio"`
	Cycle     CycleConfig     `yaml:"cycle"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	HTTP      HTTPConfig      `yaml:"http"`
	Collector CollectorConfig `yaml:"collector"`
}

// ConsoleConfig is the serial console UART.
type ConsoleConfig struct {
	Port string `yaml:"port"`
	Baud int    `yaml:"baud"`
}

// WiFiConfig is the ESP8266 modem and its upstream peer.
// An empty Port disables the uplink.
type WiFiConfig struct {
	Port       string `yaml:"port"`
	Baud       int    `yaml:"baud"`
	SSID       string `yaml:"ssid"`
	Passphrase string `yaml:"passphrase"`
	Host       string `yaml:"host"`
	RemotePort int    `yaml:"remote_port"`
}

// GPIOConfig names the chip and line offsets of the sensors.
type GPIOConfig struct {
	Chip           string        `yaml:"chip"`
	PIR            int           `yaml:"pir"`
	Trigger        int           `yaml:"trigger"`
	Echo           int           `yaml:"echo"`
	DHT            int           `yaml:"dht"`
	MotionDebounce time.Duration `yaml:"motion_debounce"`
}

// CycleConfig tunes the reporting cycle.
type CycleConfig struct {
	Period          time.Duration `yaml:"period"`
	DistanceDivisor uint32        `yaml:"distance_divisor"`
}

// MQTTConfig enables the report mirror when Broker is set.
type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Topic    string `yaml:"topic"`
	System   string `yaml:"system_topic"`
}

// HTTPConfig enables the status page when Addr is set.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// CollectorConfig configures cmd/report-collector.
type CollectorConfig struct {
	Listen string `yaml:"listen"`
	Broker string `yaml:"broker"`
	Topic  string `yaml:"topic"`
}

// Default returns a configuration matching the reference wiring.
func Default() *Config {
	return &Config{
		Console: ConsoleConfig{
			Port: "/dev/ttyS0",
			Baud: console.DefaultBaudRate,
		},
		WiFi: WiFiConfig{
			Baud:       wifi.DefaultBaudRate,
			RemotePort: 5000,
		},
		GPIO: GPIOConfig{
			Chip:           gpio.DefaultChip,
			PIR:            gpio.DefaultPinPIR,
			Trigger:        gpio.DefaultPinTrigger,
			Echo:           gpio.DefaultPinEcho,
			DHT:            gpio.DefaultPinDHT,
			MotionDebounce: 50 * time.Millisecond,
		},
		Cycle: CycleConfig{
			Period:          hub.DefaultPeriod,
			DistanceDivisor: hub.DefaultDistanceDivisor,
		},
		MQTT: MQTTConfig{
			ClientID: "sensor-hub",
			Topic:    mqtt.TopicReport,
			System:   mqtt.TopicSystem,
		},
		HTTP: HTTPConfig{
			Addr: ":80",
		},
		Collector: CollectorConfig{
			Listen: ":23",
			Topic:  "sensorhub/measurement",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults; missing fields are filled from the defaults.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func (c *Config) ensureDefaults() {
	def := Default()

	if c.Console.Port == "" {
		c.Console.Port = def.Console.Port
	}
	if c.Console.Baud == 0 {
		c.Console.Baud = def.Console.Baud
	}

	if c.WiFi.Baud == 0 {
		c.WiFi.Baud = def.WiFi.Baud
	}
	if c.WiFi.RemotePort == 0 {
		c.WiFi.RemotePort = def.WiFi.RemotePort
	}

	if c.GPIO.Chip == "" {
		c.GPIO.Chip = def.GPIO.Chip
	}

	if c.Cycle.Period == 0 {
		c.Cycle.Period = def.Cycle.Period
	}
	if c.Cycle.DistanceDivisor == 0 {
		c.Cycle.DistanceDivisor = def.Cycle.DistanceDivisor
	}

	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = def.MQTT.ClientID
	}
	if c.MQTT.Topic == "" {
		c.MQTT.Topic = def.MQTT.Topic
	}
	if c.MQTT.System == "" {
		c.MQTT.System = def.MQTT.System
	}

	if c.Collector.Listen == "" {
		c.Collector.Listen = def.Collector.Listen
	}
	if c.Collector.Topic == "" {
		c.Collector.Topic = def.Collector.Topic
	}
}

// Validate reports every inconsistent setting.
func (c *Config) Validate() error {
	var errs []error

	if c.Cycle.Period < 0 {
		errs = append(errs, fmt.Errorf("cycle.period must not be negative, got %v", c.Cycle.Period))
	}
	if c.GPIO.MotionDebounce < 0 {
		errs = append(errs, fmt.Errorf("gpio.motion_debounce must not be negative, got %v", c.GPIO.MotionDebounce))
	}

	pins := map[string]int{
		"gpio.pir":     c.GPIO.PIR,
		"gpio.trigger": c.GPIO.Trigger,
		"gpio.echo":    c.GPIO.Echo,
		"gpio.dht":     c.GPIO.DHT,
	}
	seen := make(map[int]string)
	for _, name := range []string{"gpio.pir", "gpio.trigger", "gpio.echo", "gpio.dht"} {
		pin := pins[name]
		if pin < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative, got %d", name, pin))
			continue
		}
		if other, ok := seen[pin]; ok {
			errs = append(errs, fmt.Errorf("%s and %s share line %d", other, name, pin))
			continue
		}
		seen[pin] = name
	}

	if c.WiFi.Port != "" {
		if c.WiFi.SSID == "" {
			errs = append(errs, errors.New("wifi.ssid is required when wifi.port is set"))
		}
		if c.WiFi.Host == "" {
			errs = append(errs, errors.New("wifi.host is required when wifi.port is set"))
		}
		if c.WiFi.RemotePort < 1 || c.WiFi.RemotePort > 65535 {
			errs = append(errs, fmt.Errorf("wifi.remote_port out of range: %d", c.WiFi.RemotePort))
		}
	}

	return errors.Join(errs...)
}
