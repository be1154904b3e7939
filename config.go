package smtptester

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

type AppConfig struct {
	Mode           string
	ApiPort        string
	LogLevel       string
	MetricsEnabled bool
	// CorsOrigins is the allow-list of origins permitted to call the API
	// with credentials. Requests without an Origin header are not affected.
	CorsOrigins []string
	SmtpConfig  SmtpConfig
}

type SmtpConfig struct {
	Timeout       time.Duration
	AuthMechanism string
	HeloName      string
}

var config AppConfig

// InitConfig loads envfile, fills the process-wide configuration and builds
// the Logger. It exits the process when the configuration is unusable.
func InitConfig(envfile string) {
	cfg, err := LoadConfig(envfile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %s\n", err)
		os.Exit(1)
	}
	config = cfg
	Logger = initLogger(cfg)
}

func GetConfig() AppConfig {
	return config
}

// LoadConfig reads envfile (a missing file is not an error) and builds an
// AppConfig from the environment.
func LoadConfig(envfile string) (AppConfig, error) {
	if envfile != "" {
		if err := godotenv.Load(envfile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return AppConfig{}, fmt.Errorf("error loading %s file: %w", envfile, err)
		}
	}

	mode := GetEnv("RUN_MODE", "prod")
	if mode != "dev" && mode != "prod" {
		return AppConfig{}, fmt.Errorf("RUN_MODE must be dev or prod, got %q", mode)
	}

	timeout, err := getIntEnvOrDefault("SMTP_TIMEOUT_SECONDS", 15)
	if err != nil {
		return AppConfig{}, err
	}
	if timeout <= 0 {
		return AppConfig{}, fmt.Errorf("SMTP_TIMEOUT_SECONDS must be positive")
	}

	mechanism := strings.ToUpper(GetEnv("SMTP_AUTH_MECHANISM", "AUTODISCOVER"))
	switch mechanism {
	case "AUTODISCOVER", "PLAIN", "LOGIN", "CRAM-MD5":
	default:
		return AppConfig{}, fmt.Errorf("SMTP_AUTH_MECHANISM %q is not supported", mechanism)
	}

	metricsEnabled, err := getBoolEnvOrDefault("METRICS_ENABLED", true)
	if err != nil {
		return AppConfig{}, err
	}

	defaultLevel := "info"
	if mode == "dev" {
		defaultLevel = "debug"
	}

	return AppConfig{
		Mode:           mode,
		ApiPort:        GetEnv("API_PORT", ":3000"),
		LogLevel:       GetEnv("LOG_LEVEL", defaultLevel),
		MetricsEnabled: metricsEnabled,
		CorsOrigins:    getListEnv("CORS_ORIGINS"),
		SmtpConfig: SmtpConfig{
			Timeout:       time.Duration(timeout) * time.Second,
			AuthMechanism: mechanism,
			HeloName:      GetEnv("SMTP_HELO_NAME", ""),
		},
	}, nil
}

func GetEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getIntEnvOrDefault(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", key)
	}
	return value, nil
}

func getBoolEnvOrDefault(key string, defaultValue bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean", key)
	}
	return value, nil
}

// getListEnv splits a comma separated variable, dropping blank entries.
func getListEnv(key string) []string {
	var values []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			values = append(values, part)
		}
	}
	return values
}

func initLogger(cfg AppConfig) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: "15:04:05",
		NoColor:    cfg.Mode != "dev",
		FormatLevel: func(i interface{}) string {
			return strings.ToUpper(fmt.Sprintf("| %-6s|", i))
		},
		FormatMessage: func(i interface{}) string {
			return fmt.Sprintf("  %s  ", i)
		},
		FormatFieldName: func(i interface{}) string {
			return fmt.Sprintf("%s=", i)
		},
		FormatFieldValue: func(i interface{}) string {
			return fmt.Sprintf("%s", i)
		},
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}

	return zerolog.New(output).Level(level).With().Timestamp().Caller().Logger()
}
