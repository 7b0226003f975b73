// Package config loads bvsync settings from the environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const envPrefix = "BLACKVUE"

// MaxLastDays bounds the date window accepted on the command line
const MaxLastDays = 50

// Config holds every setting of a run. Command line flags take precedence over it.
type Config struct {
	CameraAddress   string        `envconfig:"CAMERA_ADDRESS" validate:"required,ip|hostname_port"`
	DestDir         string        `envconfig:"DEST_DIR" validate:"required,dir"`
	TempDir         string        `envconfig:"TEMP_DIR"`
	LastDays        int           `envconfig:"LAST_DAYS" validate:"omitempty,min=1,max=50"`
	DateFolders     bool          `envconfig:"DATE_FOLDERS"`
	NoVideo         bool          `envconfig:"NO_VIDEO"`
	ListTimeout     time.Duration `envconfig:"LIST_TIMEOUT" default:"10s"`
	DownloadTimeout time.Duration `envconfig:"DOWNLOAD_TIMEOUT" default:"30m"`
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"INFO"`
	MetricsFile     string        `envconfig:"METRICS_FILE"`
	ServeAPIKey     string        `envconfig:"SERVE_API_KEY"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load reads .env from the working directory when present, then the BLACKVUE_* environment
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	return &cfg, nil
}

// Validate checks the settings needed to synchronize a camera
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return fmt.Errorf("invalid configuration: %s", describe(verrs[0]))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// ValidateCamera checks only the camera address, for commands that do not write files
func (c *Config) ValidateCamera() error {
	if err := validate.Var(c.CameraAddress, "required,ip|hostname_port"); err != nil {
		return errors.New("invalid configuration: camera address must be an IP address or host:port")
	}
	return nil
}

// ValidateDestination checks only the destination directory
func (c *Config) ValidateDestination() error {
	if err := validate.Var(c.DestDir, "required,dir"); err != nil {
		return fmt.Errorf("invalid configuration: destination %q must be an existing directory", c.DestDir)
	}
	return nil
}

func describe(fe validator.FieldError) string {
	switch fe.Field() {
	case "CameraAddress":
		return "camera address must be an IP address or host:port"
	case "DestDir":
		return fmt.Sprintf("destination %q must be an existing directory", fe.Value())
	case "LastDays":
		return fmt.Sprintf("last days must be between 1 and %d", MaxLastDays)
	default:
		return fmt.Sprintf("%s failed on %s", fe.Field(), fe.Tag())
	}
}
