package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Server        ServerConfig
	CourtListener CourtListenerConfig
	Report        ReportConfig
	Resolve       ResolveConfig
	Authority     AuthorityConfig
	Storage       StorageConfig
	History       HistoryConfig
	Log           LogConfig
}

type ServerConfig struct {
	Port int
}

type CourtListenerConfig struct {
	BaseURL  string
	APIToken string
}

type ReportConfig struct {
	BaseURL string
	// AnalysisIDKeys is the comma-separated alias list checked, in order,
	// for the stage-1 analysis identifier.
	AnalysisIDKeys string
}

type ResolveConfig struct {
	DefaultLimit int
}

type AuthorityConfig struct {
	// TablePath optionally extends the embedded court authority table.
	TablePath string
}

type StorageConfig struct {
	DataDir string
}

type HistoryConfig struct {
	RetentionDays int
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	dataDir := defaultDataDir()
	return Config{
		Server: ServerConfig{
			Port: 4100,
		},
		CourtListener: CourtListenerConfig{
			BaseURL: "https://www.courtlistener.com",
		},
		Report: ReportConfig{
			BaseURL:        "http://127.0.0.1:8787",
			AnalysisIDKeys: "analysisId,id,runId,uuid,analysis_id",
		},
		Resolve: ResolveConfig{
			DefaultLimit: 10,
		},
		Storage: StorageConfig{
			DataDir: dataDir,
		},
		History: HistoryConfig{
			RetentionDays: 30,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the platform-native backend, a local
// .env file, environment variables, and the platform secret store.
//
// On macOS the backend is UserDefaults (domain: com.courtlens.app) and
// secrets fall back to macOS Keychain. On Linux the backend is a JSON
// file at $XDG_CONFIG_HOME/courtlens/config.json and secrets live in
// $XDG_DATA_HOME/courtlens/secrets.json.
//
// Environment variables (COURTLENS_*) override backend values on all
// platforms.
func Load() (Config, error) {
	// A .env in the working directory feeds the env overrides; its
	// absence is not an error.
	_ = godotenv.Load()
	return loadWith(newPlatformBackend(), keychainReader{})
}

// keychain abstracts secret-store access for testing.
type keychain interface {
	Get(service, account string) (string, error)
}

func loadWith(b ConfigBackend, kc keychain) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	// Try the platform secret store for the upstream token if still empty.
	if cfg.CourtListener.APIToken == "" {
		if tok, err := kc.Get(secretService, secretAccountCourtListener); err == nil && tok != "" {
			cfg.CourtListener.APIToken = tok
		}
	}

	if cfg.CourtListener.APIToken == "" {
		msg := "missing required config: CourtListener API token. " +
			"Set it via environment variable COURTLENS_COURTLISTENER_API_TOKEN" +
			apiKeyHint()
		return Config{}, fmt.Errorf("%s", msg)
	}

	return cfg, nil
}

// AnalysisIDKeyList splits the configured alias list, dropping empty
// entries.
func (c ReportConfig) AnalysisIDKeyList() []string {
	var keys []string
	for _, k := range strings.Split(c.AnalysisIDKeys, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

// keychainReader reads from the platform secret store.
type keychainReader struct{}

func (keychainReader) Get(service, account string) (string, error) {
	out, err := keychainGet(service, account)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
