// Package config loads application-wide configuration from file, environment
// and defaults, in that order of increasing precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

// Config holds application-wide configuration
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Broker  BrokerConfig  `mapstructure:"broker"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

type ServerConfig struct {
	ListenAddr string `mapstructure:"listenAddr"`
}

// BrokerConfig selects and configures the upstream broker. Kind is "mqtt"
// (default) or "nats".
type BrokerConfig struct {
	Kind string     `mapstructure:"kind"`
	MQTT MQTTConfig `mapstructure:"mqtt"`
	NATS NATSConfig `mapstructure:"nats"`
}

type MQTTConfig struct {
	Scheme            string        `mapstructure:"scheme"`
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	Username          string        `mapstructure:"username"`
	Password          string        `mapstructure:"password"`
	ClientID          string        `mapstructure:"clientID"`
	Topics            string        `mapstructure:"topics"` // comma-separated subscribe patterns
	QoS               int           `mapstructure:"qos"`
	ConnectTimeout    time.Duration `mapstructure:"connectTimeout"`
	ReconnectInterval time.Duration `mapstructure:"reconnectInterval"`
}

type NATSConfig struct {
	URL           string        `mapstructure:"url"`
	Username      string        `mapstructure:"username"`
	Password      string        `mapstructure:"password"`
	Subjects      string        `mapstructure:"subjects"` // comma-separated
	ReconnectWait time.Duration `mapstructure:"reconnectWait"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// SubscribeTopics splits the comma-separated topic list.
func (c MQTTConfig) SubscribeTopics() []string {
	return splitList(c.Topics)
}

// SubscribeSubjects splits the comma-separated subject list.
func (c NATSConfig) SubscribeSubjects() []string {
	return splitList(c.Subjects)
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Load reads config from file or environment
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("iotdash")
		v.SetConfigType("yaml")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config"))
		}
		v.AddConfigPath(".")
	}

	v.SetDefault("server.listenAddr", ":8080")
	v.SetDefault("broker.kind", "mqtt")
	v.SetDefault("broker.mqtt.scheme", "tcp")
	v.SetDefault("broker.mqtt.host", "127.0.0.1")
	v.SetDefault("broker.mqtt.port", 1883)
	v.SetDefault("broker.mqtt.topics", "#")
	v.SetDefault("broker.mqtt.qos", 0)
	v.SetDefault("broker.mqtt.connectTimeout", 10*time.Second)
	v.SetDefault("broker.mqtt.reconnectInterval", 5*time.Second)
	v.SetDefault("broker.nats.url", "nats://127.0.0.1:4222")
	v.SetDefault("metrics.addr", ":9100")

	v.AutomaticEnv()
	v.SetEnvPrefix("IOTDASH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	} else {
		fmt.Println("Using config file:", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	return &cfg, nil
}
