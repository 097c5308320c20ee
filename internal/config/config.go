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
	Data    DataConfig    `yaml:"data" mapstructure:"data"`
	Out     OutConfig     `yaml:"out" mapstructure:"out"`
	Clean   CleanConfig   `yaml:"clean" mapstructure:"clean"`
	Geo     GeoConfig     `yaml:"geo" mapstructure:"geo"`
	Geocode GeocodeConfig `yaml:"geocode" mapstructure:"geocode"`
	Design  DesignConfig  `yaml:"design" mapstructure:"design"`
	Models  []ModelConfig `yaml:"models" mapstructure:"models"`
	Report  ReportConfig  `yaml:"report" mapstructure:"report"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// DataConfig locates the raw export and the YAML specification files.
type DataConfig struct {
	Raw             string `yaml:"raw" mapstructure:"raw"`
	Encoding        string `yaml:"encoding" mapstructure:"encoding"`
	Sheet           string `yaml:"sheet" mapstructure:"sheet"`
	Specs           string `yaml:"specs" mapstructure:"specs"`
	Recoding        string `yaml:"recoding" mapstructure:"recoding"`
	PlotSpecs       string `yaml:"plot_specs" mapstructure:"plot_specs"`
	ReferencePoints string `yaml:"reference_points" mapstructure:"reference_points"`
}

// OutConfig configures where artifacts are written.
type OutConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// CleanConfig configures the derived indicators computed during cleaning.
type CleanConfig struct {
	Rounds          int             `yaml:"rounds" mapstructure:"rounds"`
	MetadataRows    int             `yaml:"metadata_rows" mapstructure:"metadata_rows"`
	TrustColumns    []string        `yaml:"trust_columns" mapstructure:"trust_columns"`
	TrustThreshold  float64         `yaml:"trust_threshold" mapstructure:"trust_threshold"`
	IncomeColumn    string          `yaml:"income_column" mapstructure:"income_column"`
	IncomeThreshold float64         `yaml:"income_threshold" mapstructure:"income_threshold"`
	IncomeFallback  float64         `yaml:"income_fallback" mapstructure:"income_fallback"`
	Awareness       []AwarenessItem `yaml:"awareness" mapstructure:"awareness"`
	LocationFilter  string          `yaml:"location_filter" mapstructure:"location_filter"`
	Covariates      []string        `yaml:"covariates" mapstructure:"covariates"`
}

// AwarenessItem is one factual-knowledge question and its correct answer.
type AwarenessItem struct {
	Column  string `yaml:"column" mapstructure:"column"`
	Correct string `yaml:"correct" mapstructure:"correct"`
}

// GeoConfig configures the optional distance-based indicators.
type GeoConfig struct {
	Enabled    bool                 `yaml:"enabled" mapstructure:"enabled"`
	Latitude   string               `yaml:"latitude" mapstructure:"latitude"`
	Longitude  string               `yaml:"longitude" mapstructure:"longitude"`
	Indicators []ProximityIndicator `yaml:"indicators" mapstructure:"indicators"`
}

// ProximityIndicator flags respondents within ThresholdKM of any reference
// point of the given category.
type ProximityIndicator struct {
	Name        string  `yaml:"name" mapstructure:"name"`
	Category    string  `yaml:"category" mapstructure:"category"`
	ThresholdKM float64 `yaml:"threshold_km" mapstructure:"threshold_km"`
}

// GeocodeConfig configures the reverse geocoder.
type GeocodeConfig struct {
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	UserAgent   string  `yaml:"user_agent" mapstructure:"user_agent"`
	RateLimit   float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	MaxAttempts int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	Column      string  `yaml:"column" mapstructure:"column"`
}

// DesignConfig configures regression matrices.
type DesignConfig struct {
	Attributes      []string          `yaml:"attributes" mapstructure:"attributes"`
	References      map[string]string `yaml:"references" mapstructure:"references"`
	DistrictColumn  string            `yaml:"district_column" mapstructure:"district_column"`
	DistrictDefault string            `yaml:"district_reference" mapstructure:"district_reference"`
}

// ModelConfig names one regression specification.
type ModelConfig struct {
	Name       string `yaml:"name" mapstructure:"name"`
	Label      string `yaml:"label" mapstructure:"label"`
	Covariates string `yaml:"covariates" mapstructure:"covariates"`
	Outcome    string `yaml:"outcome" mapstructure:"outcome"`
}

// ReportConfig configures tables and figures.
type ReportConfig struct {
	Decimal string  `yaml:"decimal" mapstructure:"decimal"`
	AMCE    string  `yaml:"amce_model" mapstructure:"amce_model"`
	Width   float64 `yaml:"width_inches" mapstructure:"width_inches"`
	Height  float64 `yaml:"height_inches" mapstructure:"height_inches"`
	Figures bool    `yaml:"figures" mapstructure:"figures"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// DefaultModels mirrors the six specifications reported in the paper.
func DefaultModels() []ModelConfig {
	return []ModelConfig{
		{Name: "model1", Label: "Model 1", Covariates: "base", Outcome: "support"},
		{Name: "model1c", Label: "Model 1C", Covariates: "with_covariates", Outcome: "support"},
		{Name: "model2", Label: "Model 2", Covariates: "with_trust", Outcome: "support"},
		{Name: "model2c", Label: "Model 2C", Covariates: "with_trust_covariates", Outcome: "support"},
		{Name: "model3", Label: "Model 3", Covariates: "with_coal_region", Outcome: "support"},
		{Name: "model3c", Label: "Model 3C", Covariates: "with_coal_region_covariates", Outcome: "support"},
	}
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("CONJOINT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("data.raw", "data/raw_data.csv")
	v.SetDefault("data.encoding", "windows-1252")
	v.SetDefault("data.specs", "specs/specs.yaml")
	v.SetDefault("data.recoding", "specs/renaming_replacing.yaml")
	v.SetDefault("data.plot_specs", "specs/plot_specs.yaml")
	v.SetDefault("data.reference_points", "specs/reference_points.geojson")
	v.SetDefault("out.dir", "out")
	v.SetDefault("clean.rounds", 6)
	v.SetDefault("clean.metadata_rows", 2)
	v.SetDefault("clean.trust_columns", []string{"trust_in_governement_1", "trust_in_governement_2", "trust_in_governement_3"})
	v.SetDefault("clean.trust_threshold", 4.0)
	v.SetDefault("clean.income_column", "income")
	v.SetDefault("clean.income_threshold", 4.0)
	v.SetDefault("clean.income_fallback", 1.0)
	v.SetDefault("clean.location_filter", "locationFilter")
	v.SetDefault("clean.covariates", []string{"treatment_status", "trust_in_governement_1", "trust_in_governement_2", "trust_in_governement_3", "trust_average", "trust_ID", "coal_region"})
	v.SetDefault("geo.enabled", false)
	v.SetDefault("geo.latitude", "LocationLatitude")
	v.SetDefault("geo.longitude", "LocationLongitude")
	v.SetDefault("geocode.base_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("geocode.user_agent", "conjoint-cli")
	v.SetDefault("geocode.rate_limit", 1.0)
	v.SetDefault("geocode.max_attempts", 5)
	v.SetDefault("geocode.timeout_secs", 10)
	v.SetDefault("geocode.column", "state")
	v.SetDefault("design.attributes", []string{"att_1", "att_2", "att_3", "att_4", "att_5"})
	v.SetDefault("design.district_column", "district")
	v.SetDefault("report.decimal", ",")
	v.SetDefault("report.amce_model", "model3c")
	v.SetDefault("report.width_inches", 10.0)
	v.SetDefault("report.height_inches", 6.0)
	v.SetDefault("report.figures", true)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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

	if len(cfg.Models) == 0 {
		cfg.Models = DefaultModels()
	}
	if len(cfg.Geo.Indicators) == 0 {
		cfg.Geo.Indicators = []ProximityIndicator{
			{Name: "coal_prox", Category: "coal", ThresholdKM: 50},
			{Name: "coal_region_100km", Category: "coal", ThresholdKM: 100},
			{Name: "urban", Category: "city", ThresholdKM: 15},
		}
	}

	return &cfg, nil
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
