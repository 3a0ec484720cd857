package config

import (
	"flag"

	"github.com/dmitrijs2005/gophdrive/internal/flagx"
)

// parseFlags populates Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-i string     service id
//	-k string     backend (memory, badger, redis, postgres, s3)
//	-f string     badger data directory
//	-r string     redis address
//	-d string     PostgreSQL DSN
//	-u string     S3 access key
//	-p string     S3 secret key
//	-b string     S3 bucket (empty provisions a fresh one)
//	-g string     S3 region
//	-e string     S3 base endpoint
//	-s string     HMAC secret key
//	-t duration   signed URL lifetime
//	-m int        max embedded payload size, bytes
//	-x duration   transfer session TTL
//	-w duration   session reaper interval
//	-l string     log format (json, text, zap)
func parseFlags(config *Config, args []string) {
	args = flagx.FilterArgs(args, []string{
		"-i", "-k", "-f", "-r", "-d", "-u", "-p", "-b", "-g", "-e", "-s", "-t", "-m", "-x", "-w", "-l",
	})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.ServiceID, "i", config.ServiceID, "service id")
	fs.StringVar(&config.Backend, "k", config.Backend, "object store backend")
	fs.StringVar(&config.BadgerDir, "f", config.BadgerDir, "badger data directory")
	fs.StringVar(&config.RedisAddr, "r", config.RedisAddr, "redis address")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.S3AccessKey, "u", config.S3AccessKey, "S3 access key")
	fs.StringVar(&config.S3SecretKey, "p", config.S3SecretKey, "S3 secret key")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.DurationVar(&config.SignedURLTTL, "t", config.SignedURLTTL, "signed URL lifetime")
	fs.Int64Var(&config.MaxEmbeddedSize, "m", config.MaxEmbeddedSize, "max embedded payload size")
	fs.DurationVar(&config.SessionTTL, "x", config.SessionTTL, "transfer session TTL")
	fs.DurationVar(&config.ReaperInterval, "w", config.ReaperInterval, "session reaper interval")
	fs.StringVar(&config.LogFormat, "l", config.LogFormat, "log format")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
