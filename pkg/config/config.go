package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Pump control modes
const (
	ModeHTTP = "http"
	ModeMQTT = "mqtt"
	ModeBoth = "both"
	ModeNone = "none"
)

type Config struct {
	// HTTP server
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8000"`

	// ML Model Configuration
	ModelPath    string   `env:"MODEL_PATH" envDefault:"FiksModel_RandomForest_Evabenir.json"`
	FeatureOrder []string `env:"FEATURE_ORDER" envDefault:"Humidity,Rainfall,Sunlight,Soil_Moisture" envSeparator:","`

	// Pump control forwarding
	PumpControlMode string  `env:"PUMP_CONTROL_MODE" envDefault:"http"`
	ESP32ControlURL string  `env:"ESP32_CONTROL_URL" envDefault:"http://192.168.4.1/pump"`
	ESP32Timeout    float64 `env:"ESP32_TIMEOUT" envDefault:"3"` // seconds

	// MQTT Configuration
	MQTTHost     string  `env:"MQTT_HOST"`
	MQTTPort     int     `env:"MQTT_PORT" envDefault:"1883"`
	MQTTTopic    string  `env:"MQTT_TOPIC" envDefault:"smart_irrigation/pump/control"`
	MQTTUsername string  `env:"MQTT_USERNAME"`
	MQTTPassword string  `env:"MQTT_PASSWORD"`
	MQTTTimeout  float64 `env:"MQTT_TIMEOUT" envDefault:"5"` // seconds

	// Security
	ControlAPIKey string `env:"CONTROL_API_KEY"`

	// ClickHouse prediction log (disabled when the address is empty)
	ClickHouseAddr string `env:"CLICKHOUSE_ADDR"`
	ClickHouseDB   string `env:"CLICKHOUSE_DB" envDefault:"irrigation"`
	ClickHouseUser string `env:"CLICKHOUSE_USER" envDefault:"default"`
	ClickHousePass string `env:"CLICKHOUSE_PASS"`
}

// Load reads .env (if present) and the environment
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	return Parse()
}

// Parse reads the process environment only
func Parse() (*Config, error) {
	return ParseEnvironment(nil)
}

// ParseEnvironment reads configuration from the given variables;
// nil means the process environment
func ParseEnvironment(environ map[string]string) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Environment: environ}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) normalize() error {
	mode := strings.ToLower(strings.TrimSpace(c.PumpControlMode))
	switch mode {
	case ModeHTTP, ModeMQTT, ModeBoth, ModeNone:
	case "bus":
		mode = ModeMQTT
	default:
		return fmt.Errorf("PUMP_CONTROL_MODE must be one of http | mqtt | both | none, got %q", c.PumpControlMode)
	}
	c.PumpControlMode = mode

	if c.ESP32Timeout <= 0 {
		log.Printf("Warning: ESP32_TIMEOUT must be positive, using default 3s")
		c.ESP32Timeout = 3
	}
	if c.MQTTTimeout <= 0 {
		log.Printf("Warning: MQTT_TIMEOUT must be positive, using default 5s")
		c.MQTTTimeout = 5
	}
	return nil
}

// UsesHTTP reports whether commands are forwarded over HTTP
func (c *Config) UsesHTTP() bool {
	return c.PumpControlMode == ModeHTTP || c.PumpControlMode == ModeBoth
}

// UsesMQTT reports whether commands are published over MQTT
func (c *Config) UsesMQTT() bool {
	return c.PumpControlMode == ModeMQTT || c.PumpControlMode == ModeBoth
}

// HTTPTimeout returns the ESP32 HTTP timeout
func (c *Config) HTTPTimeout() time.Duration {
	return seconds(c.ESP32Timeout)
}

// PublishTimeout returns the MQTT connect/publish timeout
func (c *Config) PublishTimeout() time.Duration {
	return seconds(c.MQTTTimeout)
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
