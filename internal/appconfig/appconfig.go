package appconfig

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/template"
	"time"

	"gopkg.in/yaml.v2"
)

// Config holds all configuration details
type Config struct {
	Host         string             `yaml:"host"`
	BasePath     string             `yaml:"basePath"`
	Database     DatabaseConfig     `yaml:"database"`
	Pulsar       PulsarConfig       `yaml:"pulsar"`
	AWS          AWSConfig          `yaml:"aws"`
	Directory    DirectoryConfig    `yaml:"directory"`
	Connectivity ConnectivityConfig `yaml:"connectivity"`
	CORS         CORSConfig         `yaml:"cors"`
}

// DatabaseConfig defines the database connection details. Driver is either
// "postgres" or "memory".
type DatabaseConfig struct {
	Driver   string        `yaml:"driver"`
	Source   string        `yaml:"source"`
	SecretID string        `yaml:"secretId"`
	Tunnel   *TunnelConfig `yaml:"tunnel"`
}

// TunnelConfig describes an optional SSH bastion in front of the database.
type TunnelConfig struct {
	User           string `yaml:"user"`
	Host           string `yaml:"host"`
	Port           string `yaml:"port"`
	RemoteHost     string `yaml:"remoteHost"`
	RemotePort     string `yaml:"remotePort"`
	LocalPort      string `yaml:"localPort"`
	PrivateKeyPath string `yaml:"privateKeyPath"`
}

// PulsarConfig defines the messaging system connection details. An empty URL
// keeps change events in process.
type PulsarConfig struct {
	URL          string `yaml:"url"`
	Topic        string `yaml:"topic"`
	// Subscription prefixes the per-process subscription of each follower.
	Subscription string `yaml:"subscription"`
}

type S3Config struct {
	Bucket  string `yaml:"bucket"`
	RoleArn string `yaml:"roleArn"`
}

type AWSConfig struct {
	Region  string   `yaml:"region"`
	S3      S3Config `yaml:"s3"`
	CDNBase string   `yaml:"cdnBase"`
}

type DirectoryConfig struct {
	// Compensate undoes already created rows when a multi record write fails.
	Compensate bool `yaml:"compensate"`
	ListLimit  int  `yaml:"listLimit"`
}

type ConnectivityConfig struct {
	Interval time.Duration `yaml:"interval"`
}

type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowedOrigins"`
}

// LoadConfig loads and parses the configuration from a given file path. The
// file is rendered as a template over the environment before YAML decoding.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config file path is required")
	}

	tmpl, err := template.ParseFiles(path)
	if err != nil {
		return nil, fmt.Errorf("error parsing config file template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, loadEnvVars()); err != nil {
		return nil, fmt.Errorf("error executing config file template: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(buf.Bytes(), &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config YAML: %w", err)
	}
	config.applyDefaults()

	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Database.Driver == "" {
		c.Database.Driver = "postgres"
	}
	if c.Pulsar.Topic == "" {
		c.Pulsar.Topic = "directory-changes"
	}
	if c.Pulsar.Subscription == "" {
		c.Pulsar.Subscription = "directory-services"
	}
	if c.Directory.ListLimit <= 0 {
		c.Directory.ListLimit = 1000
	}
	if c.Connectivity.Interval <= 0 {
		c.Connectivity.Interval = 10 * time.Second
	}
	if len(c.CORS.AllowedOrigins) == 0 {
		c.CORS.AllowedOrigins = []string{"*"}
	}
}

// loadEnvVars loads environment variables into a map
func loadEnvVars() map[string]string {
	envVars := make(map[string]string)
	for _, env := range os.Environ() {
		kv := strings.SplitN(env, "=", 2)
		if len(kv) == 2 {
			envVars[kv[0]] = kv[1]
		}
	}
	return envVars
}
