// Package config centralises process configuration, loaded with viper from
// defaults, an optional config file, and BRIDGE_-prefixed environment
// variables.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// BrokerConfig is the order-broker process's configuration.
type BrokerConfig struct {
	ListenAddress      string
	DatabasePath       string
	APIKey             string
	MaxOrderAge        time.Duration
	CleanupInterval    time.Duration
	LeaseDuration      time.Duration
	ReaperInterval     time.Duration
	MaxRetries         int
	InitialRetryDelay  time.Duration
	MaxRetryDelay      time.Duration
	RateLimitEnabled   bool
	RateLimitPerMinute int
	RateLimitWhitelist []string
	MaxPayloadDepth    int
}

// ProducerConfig is the outbox process's configuration.
type ProducerConfig struct {
	BridgeURL               string
	APIKey                  string
	MaxQueueSize            int
	MaxFileSizeMB           int
	RetainedBackups         int
	SendTimeout             time.Duration
	RetryInterval           time.Duration
	CircuitFailureThreshold int
	CircuitCooldown         time.Duration
	OutboxLogPath           string
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.SetEnvPrefix("BRIDGE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	return v
}

// LoadBroker reads broker configuration, applying documented defaults.
func LoadBroker() (BrokerConfig, error) {
	v := newViper()
	v.SetDefault("listen_address", "0.0.0.0:5000")
	v.SetDefault("database_path", "bridge.db")
	v.SetDefault("api_key", "")
	v.SetDefault("max_order_age", time.Hour)
	v.SetDefault("cleanup_interval", 10*time.Minute)
	v.SetDefault("lease_duration", 5*time.Minute)
	v.SetDefault("reaper_interval", 30*time.Second)
	v.SetDefault("max_retries", 3)
	v.SetDefault("initial_retry_delay", 10*time.Second)
	v.SetDefault("max_retry_delay", 5*time.Minute)
	v.SetDefault("rate_limit_enabled", false)
	v.SetDefault("rate_limit_per_minute", 60)
	v.SetDefault("rate_limit_whitelist", []string{})
	v.SetDefault("max_payload_depth", 32)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return BrokerConfig{}, err
		}
	}

	return BrokerConfig{
		ListenAddress:      v.GetString("listen_address"),
		DatabasePath:       v.GetString("database_path"),
		APIKey:             v.GetString("api_key"),
		MaxOrderAge:        v.GetDuration("max_order_age"),
		CleanupInterval:    v.GetDuration("cleanup_interval"),
		LeaseDuration:      v.GetDuration("lease_duration"),
		ReaperInterval:     v.GetDuration("reaper_interval"),
		MaxRetries:         v.GetInt("max_retries"),
		InitialRetryDelay:  v.GetDuration("initial_retry_delay"),
		MaxRetryDelay:      v.GetDuration("max_retry_delay"),
		RateLimitEnabled:   v.GetBool("rate_limit_enabled"),
		RateLimitPerMinute: v.GetInt("rate_limit_per_minute"),
		RateLimitWhitelist: v.GetStringSlice("rate_limit_whitelist"),
		MaxPayloadDepth:    v.GetInt("max_payload_depth"),
	}, nil
}

// LoadProducer reads producer configuration, applying documented defaults.
func LoadProducer() (ProducerConfig, error) {
	v := newViper()
	v.SetDefault("bridge_url", "http://127.0.0.1:5000")
	v.SetDefault("api_key", "")
	v.SetDefault("max_queue_size", 10000)
	v.SetDefault("max_file_size_mb", 100)
	v.SetDefault("retained_backups", 10)
	v.SetDefault("send_timeout", 5*time.Second)
	v.SetDefault("retry_interval", 60*time.Second)
	v.SetDefault("circuit_failure_threshold", 10)
	v.SetDefault("circuit_cooldown", 5*time.Minute)
	v.SetDefault("outbox_log_path", "outbox.log")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return ProducerConfig{}, err
		}
	}

	return ProducerConfig{
		BridgeURL:               v.GetString("bridge_url"),
		APIKey:                  v.GetString("api_key"),
		MaxQueueSize:            v.GetInt("max_queue_size"),
		MaxFileSizeMB:           v.GetInt("max_file_size_mb"),
		RetainedBackups:         v.GetInt("retained_backups"),
		SendTimeout:             v.GetDuration("send_timeout"),
		RetryInterval:           v.GetDuration("retry_interval"),
		CircuitFailureThreshold: v.GetInt("circuit_failure_threshold"),
		CircuitCooldown:         v.GetDuration("circuit_cooldown"),
		OutboxLogPath:           v.GetString("outbox_log_path"),
	}, nil
}
