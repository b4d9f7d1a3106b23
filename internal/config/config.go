// Package config loads application configuration from config.yaml and the
// environment, and wires the global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Analysis AnalysisConfig `yaml:"analysis" mapstructure:"analysis"`
	Grid     GridConfig     `yaml:"grid" mapstructure:"grid"`
	WorldPop WorldPopConfig `yaml:"worldpop" mapstructure:"worldpop"`
	Fetch    FetchConfig    `yaml:"fetch" mapstructure:"fetch"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// AnalysisConfig configures the coverage analysis pass. Band thresholds
// are fixed properties of the analysis, not configuration.
type AnalysisConfig struct {
	HighPovertyCutoff float64 `yaml:"high_poverty_cutoff" mapstructure:"high_poverty_cutoff"`
	Workers           int     `yaml:"workers" mapstructure:"workers"`
}

// GridConfig configures synthetic population grid generation.
type GridConfig struct {
	CellDeg   float64 `yaml:"cell_deg" mapstructure:"cell_deg"`
	BasePop   float64 `yaml:"base_pop" mapstructure:"base_pop"`
	PeakPop   float64 `yaml:"peak_pop" mapstructure:"peak_pop"`
	DecayRate float64 `yaml:"decay_rate" mapstructure:"decay_rate"`
	TopCities int     `yaml:"top_cities" mapstructure:"top_cities"`
}

// WorldPopConfig configures the WorldPop raster downloader.
type WorldPopConfig struct {
	URL     string `yaml:"url" mapstructure:"url"`
	FTPURL  string `yaml:"ftp_url" mapstructure:"ftp_url"`
	OutDir  string `yaml:"out_dir" mapstructure:"out_dir"`
	Chunks  int    `yaml:"chunks" mapstructure:"chunks"`
	ChunkMB int    `yaml:"chunk_mb" mapstructure:"chunk_mb"`
}

// FetchConfig configures outbound HTTP behavior.
type FetchConfig struct {
	UserAgent   string `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int    `yaml:"max_retries" mapstructure:"max_retries"`
}

// ServerConfig configures the results API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("AQCOVER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "aqcover.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("analysis.high_poverty_cutoff", 0.5)
	v.SetDefault("analysis.workers", 8)
	v.SetDefault("grid.cell_deg", 0.1)
	v.SetDefault("grid.base_pop", 1000)
	v.SetDefault("grid.peak_pop", 50000)
	v.SetDefault("grid.decay_rate", 5.0)
	v.SetDefault("grid.top_cities", 20)
	v.SetDefault("worldpop.url", "https://data.worldpop.org/GIS/Population/Global_2000_2020_1km_UNadj/2020/IND/ind_ppp_2020_1km_Aggregated_UNadj.tif")
	v.SetDefault("worldpop.out_dir", "data/worldpop")
	v.SetDefault("worldpop.chunks", 16)
	v.SetDefault("worldpop.chunk_mb", 8)
	v.SetDefault("fetch.user_agent", "aqcover/1.0")
	v.SetDefault("fetch.timeout_secs", 600)
	v.SetDefault("fetch.max_retries", 4)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Analysis.HighPovertyCutoff < 0 || c.Analysis.HighPovertyCutoff > 1 {
		return eris.Errorf("config: high_poverty_cutoff must be in [0,1], got %.2f", c.Analysis.HighPovertyCutoff)
	}
	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		return eris.Errorf("config: unknown store driver %q", c.Store.Driver)
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
