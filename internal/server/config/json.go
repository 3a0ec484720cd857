package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/gophdrive/internal/flagx"
	"github.com/dmitrijs2005/gophdrive/internal/timex"
)

// JsonConfig is the on-disk shape of Config. Durations are strings such as
// "15m" or integer nanoseconds. Absent keys keep their current value.
type JsonConfig struct {
	ServiceID        string         `json:"service_id"`
	Backend          string         `json:"backend"`
	BadgerDir        string         `json:"badger_dir"`
	RedisAddr        string         `json:"redis_addr"`
	RedisPassword    string         `json:"redis_password"`
	RedisDB          *int           `json:"redis_db"`
	DatabaseDSN      string         `json:"database_dsn"`
	S3AccessKey      string         `json:"s3_access_key"`
	S3SecretKey      string         `json:"s3_secret_key"`
	S3Bucket         string         `json:"s3_bucket"`
	S3Region         string         `json:"s3_region"`
	S3BaseEndpoint   string         `json:"s3_base_endpoint"`
	BucketPrefix     string         `json:"bucket_prefix"`
	BucketAttempts   int            `json:"bucket_attempts"`
	SecretKey        string         `json:"secret_key"`
	SignedURLBase    string         `json:"signed_url_base"`
	SignedURLTTL     timex.Duration `json:"signed_url_ttl"`
	MaxEmbeddedSize  int64          `json:"max_embedded_size"`
	SessionTTL       timex.Duration `json:"session_ttl"`
	ReaperInterval   timex.Duration `json:"reaper_interval"`
	LogFormat        string         `json:"log_format"`
	MetricsNamespace string         `json:"metrics_namespace"`
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// parseJson overlays the file named by -c/-config in args onto config.
// Nothing happens when no file is given. An unreadable file or invalid
// JSON panics.
func parseJson(config *Config, args []string) {
	jsonConfigFile := flagx.JsonConfigFlags(args)
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.ServiceID, c.ServiceID)
	setString(&config.Backend, c.Backend)
	setString(&config.BadgerDir, c.BadgerDir)
	setString(&config.RedisAddr, c.RedisAddr)
	setString(&config.RedisPassword, c.RedisPassword)
	if c.RedisDB != nil {
		config.RedisDB = *c.RedisDB
	}
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.S3AccessKey, c.S3AccessKey)
	setString(&config.S3SecretKey, c.S3SecretKey)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.BucketPrefix, c.BucketPrefix)
	if c.BucketAttempts > 0 {
		config.BucketAttempts = c.BucketAttempts
	}
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.SignedURLBase, c.SignedURLBase)
	if c.SignedURLTTL.Duration > 0 {
		config.SignedURLTTL = c.SignedURLTTL.Duration
	}
	if c.MaxEmbeddedSize > 0 {
		config.MaxEmbeddedSize = c.MaxEmbeddedSize
	}
	if c.SessionTTL.Duration > 0 {
		config.SessionTTL = c.SessionTTL.Duration
	}
	if c.ReaperInterval.Duration > 0 {
		config.ReaperInterval = c.ReaperInterval.Duration
	}
	setString(&config.LogFormat, c.LogFormat)
	setString(&config.MetricsNamespace, c.MetricsNamespace)
}
