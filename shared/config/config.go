// Package config loads runtime settings from an optional yaml file and
// the environment. Environment variables override file values.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	HTTPAddr string `mapstructure:"http_addr"`

	DBConn   string `mapstructure:"db_conn"`
	RedisURL string `mapstructure:"redis_url"`

	Signing struct {
		KeyPath          string `mapstructure:"key_path"`
		CertPath         string `mapstructure:"cert_path"`
		Algorithm        string `mapstructure:"algorithm"`
		UnsignedFallback bool   `mapstructure:"unsigned_fallback"`
	} `mapstructure:"signing"`

	CAP struct {
		WMOOID        string        `mapstructure:"wmo_oid"`
		Sender        string        `mapstructure:"sender"`
		WebURL        string        `mapstructure:"web_url"`
		StylesheetURL string        `mapstructure:"stylesheet_url"`
		CacheTTL      time.Duration `mapstructure:"cache_ttl"`
	} `mapstructure:"cap"`

	Webhook struct {
		Timeout     time.Duration `mapstructure:"timeout"`
		MaxAttempts int           `mapstructure:"max_attempts"`
	} `mapstructure:"webhook"`

	Multimedia struct {
		RendererURL    string `mapstructure:"renderer_url"`
		S3Bucket       string `mapstructure:"s3_bucket"`
		CircleSegments int    `mapstructure:"circle_segments"`
	} `mapstructure:"multimedia"`

	AWS struct {
		Region      string `mapstructure:"region"`
		SNSTopicArn string `mapstructure:"sns_topic_arn"`
	} `mapstructure:"aws"`

	Branding struct {
		OrgName       string `mapstructure:"org_name"`
		SenderContact string `mapstructure:"sender_contact"`
		AlertsURL     string `mapstructure:"alerts_url"`
	} `mapstructure:"branding"`

	Worker struct {
		Concurrency int `mapstructure:"concurrency"`
	} `mapstructure:"worker"`
}

// configKeys lists every known key. Each one is bound to its
// CAPWIRE_SECTION_KEY environment variable; without an explicit binding
// viper only surfaces env values for keys it has already seen in a file
// or a default, so env-only deployments would silently lose the rest.
var configKeys = []string{
	"http_addr",
	"db_conn",
	"redis_url",
	"signing.key_path",
	"signing.cert_path",
	"signing.algorithm",
	"signing.unsigned_fallback",
	"cap.wmo_oid",
	"cap.sender",
	"cap.web_url",
	"cap.stylesheet_url",
	"cap.cache_ttl",
	"webhook.timeout",
	"webhook.max_attempts",
	"multimedia.renderer_url",
	"multimedia.s3_bucket",
	"multimedia.circle_segments",
	"aws.region",
	"aws.sns_topic_arn",
	"branding.org_name",
	"branding.sender_contact",
	"branding.alerts_url",
	"worker.concurrency",
}

// Load reads config.yaml from path when present, then applies environment
// overrides of the form CAPWIRE_SECTION_KEY.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if path != "" {
		v.AddConfigPath(path)
	}
	v.AddConfigPath(".")
	v.SetEnvPrefix("capwire")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range configKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("binding %s: %w", key, err)
		}
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if cfg.DBConn == "" {
		return nil, fmt.Errorf("db_conn is required")
	}
	if cfg.CAP.Sender == "" {
		return nil, fmt.Errorf("cap.sender is required")
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("redis_url", "redis://localhost:6379/0")
	v.SetDefault("signing.algorithm", "rsa-sha256")
	v.SetDefault("cap.cache_ttl", 72*time.Hour)
	v.SetDefault("webhook.timeout", 10*time.Second)
	v.SetDefault("webhook.max_attempts", 4)
	v.SetDefault("multimedia.circle_segments", 32)
	v.SetDefault("aws.region", "us-east-1")
	v.SetDefault("worker.concurrency", 4)
}
