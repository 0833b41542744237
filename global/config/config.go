package config

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration decodes yaml "10s" style strings; bare numbers are seconds.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		v, err := time.ParseDuration(s)
		if err != nil {
			return err
		}
		*d = Duration(v)
		return nil
	}
	var n int64
	if err := value.Decode(&n); err != nil {
		return err
	}
	*d = Duration(time.Duration(n) * time.Second)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the client-wide configuration. Zero values fall back to the
// defaults below, so a Config literal with just GatewayURL and Token works.
type Config struct {
	GatewayURL string `yaml:"gateway_url"`
	APIBaseURL string `yaml:"api_base_url"`
	Token      string `yaml:"token"`

	// Identify connection properties.
	OS      string `yaml:"os"`
	Browser string `yaml:"browser"`
	Device  string `yaml:"device"`

	// HandshakeTimeout bounds dial + Hello.
	HandshakeTimeout Duration `yaml:"handshake_timeout"`
	// ReplyTimeout bounds waiting for READY / RESUMED after a send.
	ReplyTimeout Duration `yaml:"reply_timeout"`
	// ReconnectMaxInterval caps the exponential reconnect backoff.
	ReconnectMaxInterval Duration `yaml:"reconnect_max_interval"`
	// BusQueueSize is the per-event-type delivery queue depth.
	BusQueueSize int `yaml:"bus_queue_size"`

	LogLevel string `yaml:"log_level"`
}

func Default() Config {
	return Config{
		GatewayURL:           "ws://127.0.0.1:8080/ws",
		APIBaseURL:           "http://127.0.0.1:8080/api",
		OS:                   "Linux",
		Browser:              "PClient",
		HandshakeTimeout:     Duration(10 * time.Second),
		ReplyTimeout:         Duration(5 * time.Second),
		ReconnectMaxInterval: Duration(60 * time.Second),
		BusQueueSize:         1024,
		LogLevel:             "info",
	}
}

// Load reads a yaml file over the defaults, then applies env overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	cfg.applyEnv()
	cfg.norm()
	return cfg, nil
}

// 环境变量：
// PCLIENT_GATEWAY_URL / PCLIENT_API_BASE_URL / PCLIENT_TOKEN / PCLIENT_LOG_LEVEL
func (c *Config) applyEnv() {
	c.GatewayURL = getEnv("PCLIENT_GATEWAY_URL", c.GatewayURL)
	c.APIBaseURL = getEnv("PCLIENT_API_BASE_URL", c.APIBaseURL)
	c.Token = getEnv("PCLIENT_TOKEN", c.Token)
	c.LogLevel = getEnv("PCLIENT_LOG_LEVEL", c.LogLevel)
	c.BusQueueSize = getEnvInt("PCLIENT_BUS_QUEUE_SIZE", c.BusQueueSize)
}

func (c *Config) norm() {
	def := Default()
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = def.HandshakeTimeout
	}
	if c.ReplyTimeout <= 0 {
		c.ReplyTimeout = def.ReplyTimeout
	}
	if c.ReconnectMaxInterval <= 0 {
		c.ReconnectMaxInterval = def.ReconnectMaxInterval
	}
	if c.BusQueueSize <= 0 {
		c.BusQueueSize = def.BusQueueSize
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}
