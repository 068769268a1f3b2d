package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "COURTLENS_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "courtlistener.base_url", typ: kString, env: "COURTLENS_COURTLISTENER_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.CourtListener.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.CourtListener.BaseURL },
	},
	{
		key: "courtlistener.api_token", typ: kString, env: "COURTLENS_COURTLISTENER_API_TOKEN",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.CourtListener.APIToken = v.(string) },
		extract: func(cfg Config) any { return cfg.CourtListener.APIToken },
	},
	{
		key: "report.base_url", typ: kString, env: "COURTLENS_REPORT_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Report.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Report.BaseURL },
	},
	{
		key: "report.analysis_id_keys", typ: kString, env: "COURTLENS_REPORT_ANALYSIS_ID_KEYS",
		apply:   func(cfg *Config, v any) { cfg.Report.AnalysisIDKeys = v.(string) },
		extract: func(cfg Config) any { return cfg.Report.AnalysisIDKeys },
	},
	{
		key: "resolve.default_limit", typ: kInt, env: "COURTLENS_RESOLVE_DEFAULT_LIMIT",
		apply:   func(cfg *Config, v any) { cfg.Resolve.DefaultLimit = v.(int) },
		extract: func(cfg Config) any { return cfg.Resolve.DefaultLimit },
	},
	{
		key: "authority.table_path", typ: kString, env: "COURTLENS_AUTHORITY_TABLE_PATH",
		apply:   func(cfg *Config, v any) { cfg.Authority.TablePath = v.(string) },
		extract: func(cfg Config) any { return cfg.Authority.TablePath },
	},
	{
		key: "storage.data_dir", typ: kString, env: "COURTLENS_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "history.retention_days", typ: kInt, env: "COURTLENS_HISTORY_RETENTION_DAYS",
		apply:   func(cfg *Config, v any) { cfg.History.RetentionDays = v.(int) },
		extract: func(cfg Config) any { return cfg.History.RetentionDays },
	},
	{
		key: "log.level", typ: kString, env: "COURTLENS_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}
