package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type AudioConfig struct {
	Device     string `yaml:"device"`
	SampleRate int    `yaml:"sample_rate"`
	BlockSize  int    `yaml:"block_size"`
	Channels   int    `yaml:"channels"`
}

type ModelConfig struct {
	Name        string `yaml:"name"`
	Path        string `yaml:"path"`
	CacheDir    string `yaml:"cache_dir"`
	DownloadURL string `yaml:"download_url"`
}

type RecognizerConfig struct {
	Backend         string  `yaml:"backend"`
	Command         string  `yaml:"command"`
	Words           bool    `yaml:"words"`
	MaxAlternatives int     `yaml:"max_alternatives"`
	SilenceGapMS    int     `yaml:"silence_gap_ms"`
	SilenceLevel    float64 `yaml:"silence_level"`
}

type SessionConfig struct {
	RecordPath    string  `yaml:"record_path"`
	MinConfidence float64 `yaml:"min_confidence"`
}

type BusConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Embedded       bool     `yaml:"embedded"`
	Port           int      `yaml:"port"`
	Servers        []string `yaml:"servers"`
	Username       string   `yaml:"username"`
	Password       string   `yaml:"password"`
	Token          string   `yaml:"token"`
	TLSInsecure    bool     `yaml:"tls_insecure"`
	ConnectTimeout int      `yaml:"connect_timeout_ms"`
	SubjectPrefix  string   `yaml:"subject_prefix"`
}

type HistoryConfig struct {
	Path          string `yaml:"path"`
	RetentionMode string `yaml:"retention_mode"`
	RetentionDays int    `yaml:"retention_days"`
	MaxSessions   int    `yaml:"max_sessions"`
	VacuumOnStart bool   `yaml:"vacuum_on_start"`
}

type TelemetryConfig struct {
	LogLevel       string `yaml:"log_level"`
	OTLPEndpoint   string `yaml:"otlp_endpoint"`
	OTLPInsecure   bool   `yaml:"otlp_insecure"`
	PrometheusBind string `yaml:"prometheus_bind"`
}

type Config struct {
	AppName     string           `yaml:"app_name"`
	Environment string           `yaml:"environment"`
	Audio       AudioConfig      `yaml:"audio"`
	Model       ModelConfig      `yaml:"model"`
	Recognizer  RecognizerConfig `yaml:"recognizer"`
	Session     SessionConfig    `yaml:"session"`
	Bus         BusConfig        `yaml:"bus"`
	History     HistoryConfig    `yaml:"history"`
	Telemetry   TelemetryConfig  `yaml:"telemetry"`
}

func Default() Config {
	return Config{
		AppName:     "vosk-cli",
		Environment: "development",
		Audio: AudioConfig{
			SampleRate: 0, // resolved from the input device
			BlockSize:  8000,
			Channels:   1,
		},
		Model: ModelConfig{
			Name:        "en-us",
			DownloadURL: "https://alphacephei.com/vosk/models",
		},
		Recognizer: RecognizerConfig{
			Backend:      "vosk",
			SilenceGapMS: 900,
			SilenceLevel: 0.015,
		},
		Bus: BusConfig{
			Enabled:        false,
			Embedded:       false,
			Port:           4222,
			Servers:        []string{"nats://localhost:4222"},
			ConnectTimeout: 2000,
			SubjectPrefix:  "transcript",
		},
		History: HistoryConfig{
			Path:          "./data/transcripts.db",
			RetentionMode: "ephemeral",
			RetentionDays: 30,
			MaxSessions:   10000,
		},
		Telemetry: TelemetryConfig{
			LogLevel:     "info",
			OTLPInsecure: true,
		},
	}
}

func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, fmt.Errorf("config file not found: %w", err)
			}
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// DefaultCacheDir resolves the model cache directory when none is configured.
func DefaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "vosk-cli")
	}
	return "./cache"
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.AppName, "VOSK_APP_NAME")
	overrideString(&cfg.Environment, "VOSK_ENVIRONMENT")
	overrideString(&cfg.Audio.Device, "VOSK_AUDIO_DEVICE")
	overrideInt(&cfg.Audio.SampleRate, "VOSK_AUDIO_SAMPLE_RATE")
	overrideInt(&cfg.Audio.BlockSize, "VOSK_AUDIO_BLOCK_SIZE")
	overrideInt(&cfg.Audio.Channels, "VOSK_AUDIO_CHANNELS")
	overrideString(&cfg.Model.Name, "VOSK_MODEL_NAME")
	overrideString(&cfg.Model.Path, "VOSK_MODEL_PATH")
	overrideString(&cfg.Model.CacheDir, "VOSK_MODEL_CACHE_DIR")
	overrideString(&cfg.Model.DownloadURL, "VOSK_MODEL_DOWNLOAD_URL")
	overrideString(&cfg.Recognizer.Backend, "VOSK_RECOGNIZER_BACKEND")
	overrideString(&cfg.Recognizer.Command, "VOSK_RECOGNIZER_COMMAND")
	overrideBool(&cfg.Recognizer.Words, "VOSK_RECOGNIZER_WORDS")
	overrideInt(&cfg.Recognizer.MaxAlternatives, "VOSK_RECOGNIZER_MAX_ALTERNATIVES")
	overrideInt(&cfg.Recognizer.SilenceGapMS, "VOSK_RECOGNIZER_SILENCE_GAP_MS")
	overrideString(&cfg.Session.RecordPath, "VOSK_SESSION_RECORD_PATH")
	overrideFloat(&cfg.Session.MinConfidence, "VOSK_SESSION_MIN_CONFIDENCE")
	overrideBool(&cfg.Bus.Enabled, "VOSK_BUS_ENABLED")
	overrideBool(&cfg.Bus.Embedded, "VOSK_BUS_EMBEDDED")
	overrideInt(&cfg.Bus.Port, "VOSK_BUS_PORT")
	overrideStringSlice(&cfg.Bus.Servers, "VOSK_BUS_SERVERS")
	overrideString(&cfg.Bus.Username, "VOSK_BUS_USERNAME")
	overrideString(&cfg.Bus.Password, "VOSK_BUS_PASSWORD")
	overrideString(&cfg.Bus.Token, "VOSK_BUS_TOKEN")
	overrideBool(&cfg.Bus.TLSInsecure, "VOSK_BUS_TLS_INSECURE")
	overrideInt(&cfg.Bus.ConnectTimeout, "VOSK_BUS_CONNECT_TIMEOUT_MS")
	overrideString(&cfg.Bus.SubjectPrefix, "VOSK_BUS_SUBJECT_PREFIX")
	overrideString(&cfg.History.Path, "VOSK_HISTORY_PATH")
	overrideString(&cfg.History.RetentionMode, "VOSK_HISTORY_RETENTION_MODE")
	overrideInt(&cfg.History.RetentionDays, "VOSK_HISTORY_RETENTION_DAYS")
	overrideInt(&cfg.History.MaxSessions, "VOSK_HISTORY_MAX_SESSIONS")
	overrideBool(&cfg.History.VacuumOnStart, "VOSK_HISTORY_VACUUM_ON_START")
	overrideString(&cfg.Telemetry.LogLevel, "VOSK_TELEMETRY_LOG_LEVEL")
	overrideString(&cfg.Telemetry.OTLPEndpoint, "VOSK_TELEMETRY_OTLP_ENDPOINT")
	overrideBool(&cfg.Telemetry.OTLPInsecure, "VOSK_TELEMETRY_OTLP_INSECURE")
	overrideString(&cfg.Telemetry.PrometheusBind, "VOSK_TELEMETRY_PROMETHEUS_BIND")
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = value
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func overrideBool(target *bool, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*target = parsed
		}
	}
}

func overrideFloat(target *float64, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			*target = parsed
		}
	}
}

func overrideStringSlice(target *[]string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		parts := strings.Split(value, ",")
		var trimmed []string
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				trimmed = append(trimmed, s)
			}
		}
		if len(trimmed) > 0 {
			*target = trimmed
		}
	}
}

func validate(cfg Config) error {
	if cfg.AppName == "" {
		return errors.New("app_name must not be empty")
	}
	if cfg.Audio.SampleRate < 0 {
		return errors.New("audio.sample_rate must be >= 0")
	}
	if cfg.Audio.BlockSize <= 0 {
		return errors.New("audio.block_size must be positive")
	}
	if cfg.Audio.Channels != 1 {
		return errors.New("audio.channels must be 1 (mono capture only)")
	}
	if cfg.Model.Name == "" && cfg.Model.Path == "" {
		return errors.New("model.name or model.path must be set")
	}
	if cfg.Model.DownloadURL == "" {
		return errors.New("model.download_url must not be empty")
	}
	switch cfg.Recognizer.Backend {
	case "vosk", "exec", "mock":
	default:
		return errors.New("recognizer.backend must be one of vosk|exec|mock")
	}
	if cfg.Recognizer.Backend == "exec" && cfg.Recognizer.Command == "" {
		return errors.New("recognizer.command must be set when backend=exec")
	}
	if cfg.Recognizer.MaxAlternatives < 0 {
		return errors.New("recognizer.max_alternatives must be >= 0")
	}
	if cfg.Recognizer.SilenceGapMS < 0 {
		return errors.New("recognizer.silence_gap_ms must be >= 0")
	}
	if cfg.Session.MinConfidence < 0 || cfg.Session.MinConfidence > 1 {
		return errors.New("session.min_confidence must be within [0,1]")
	}
	if cfg.Bus.Enabled {
		if cfg.Bus.Embedded {
			if cfg.Bus.Port <= 0 || cfg.Bus.Port > 65535 {
				return errors.New("bus.port must be between 1 and 65535 when embedded mode is enabled")
			}
		} else if len(cfg.Bus.Servers) == 0 {
			return errors.New("bus.servers must not be empty when embedded mode is disabled")
		}
		if cfg.Bus.SubjectPrefix == "" {
			return errors.New("bus.subject_prefix must not be empty")
		}
	}
	if cfg.History.Path == "" {
		return errors.New("history.path must not be empty")
	}
	switch cfg.History.RetentionMode {
	case "ephemeral", "session", "persistent":
		// ok
	default:
		return errors.New("history.retention_mode must be one of ephemeral|session|persistent")
	}
	if cfg.History.RetentionDays < 0 {
		return errors.New("history.retention_days must be >= 0")
	}
	return nil
}
