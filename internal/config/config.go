// Package config loads the host's startup configuration (§6, §4.6): a YAML
// file holding the features.dev_mode flag and the logging.level/
// logging.file keys. Unknown keys are ignored so the file can grow without
// breaking older binaries.
package config

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Config is the parsed form of the startup YAML file.
type Config struct {
	Features FeaturesConfig `yaml:"features"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type FeaturesConfig struct {
	DevMode        bool   `yaml:"dev_mode"`
	ConfigS3Bucket string `yaml:"config_s3_bucket"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Default returns the documented defaults, used whenever the config file is
// absent or a field is omitted.
func Default() Config {
	return Config{
		Features: FeaturesConfig{DevMode: false},
		Logging:  LoggingConfig{Level: "info", File: ""},
	}
}

// Load reads and parses path from fs. A missing file is not an error: it
// yields Default(). A present-but-unparsable file is an error — config
// loading fails fast per the teacher's startup-contract convention
// (nholding-cso-book/main.go).
func Load(fs afero.Fs, path string) (Config, error) {
	cfg := Default()

	f, err := fs.Open(path)
	if err != nil {
		if afero.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("opening config file %s: %w", path, err)
	}
	defer f.Close()

	return cfg, decodeInto(&cfg, f)
}

// LoadWithS3Override behaves like Load, but first checks
// features.config_s3_bucket in a locally-present config file (if any) and,
// when set, fetches object key from that bucket and parses it instead of
// (or in addition to, as an override layer on top of) the local file. AWS
// and parse errors in this optional path are discarded, not returned, and
// never fail startup — the local file (or defaults) remain authoritative on
// any S3 failure.
func LoadWithS3Override(ctx context.Context, fs afero.Fs, path, key string) (Config, error) {
	cfg, err := Load(fs, path)
	if err != nil {
		return cfg, err
	}
	if cfg.Features.ConfigS3Bucket == "" {
		return cfg, nil
	}

	body, err := fetchS3Object(ctx, cfg.Features.ConfigS3Bucket, key)
	if err != nil {
		// Non-fatal: keep the locally loaded configuration.
		return cfg, nil
	}
	defer body.Close()

	out := cfg
	if err := decodeInto(&out, body); err != nil {
		return cfg, nil
	}
	return out, nil
}

func fetchS3Object(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg)
	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("fetching s3://%s/%s: %w", bucket, key, err)
	}
	return out.Body, nil
}

func decodeInto(cfg *Config, r io.Reader) error {
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return fmt.Errorf("parsing config: %w", err)
	}
	return nil
}

