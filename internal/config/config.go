package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"

	"github.com/couchcryptid/rainfall-verification/internal/domain"
)

// DateLayout is the calendar-date format used by DATE_START, DATE_END and the -start/-end flags.
const DateLayout = "20060102"

// Config holds all pipeline settings, populated from environment variables.
type Config struct {
	DateStart time.Time
	DateEnd   time.Time
	BaseHour  int

	StepStart    int
	StepFinal    int
	StepDisc     int
	Accumulation int

	Thresholds []float64
	Systems    []domain.ForecastSystem

	Repetitions     int
	Seed            uint64
	ConfidenceLevel float64
	Workers         int

	DataRoot   string
	FCDir      string
	OBSDir     string
	CountsDir  string
	SummaryDir string
	PlotDir    string

	FieldCacheSize int
	CatalogPath    string

	KafkaEnabled      bool
	KafkaBrokers      []string
	KafkaSummaryTopic string

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
}

// Load reads an optional .env file from the working directory, then reads
// configuration from environment variables, applying defaults where unset.
// Variables already set in the environment take precedence over .env.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return fromEnv()
}

func fromEnv() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DataRoot:          sharedcfg.EnvOrDefault("DATA_ROOT", "."),
		FCDir:             sharedcfg.EnvOrDefault("FC_DIR", "Data/Raw/FC"),
		OBSDir:            sharedcfg.EnvOrDefault("OBS_DIR", "Data/Raw/OBS"),
		CountsDir:         sharedcfg.EnvOrDefault("COUNTS_DIR", "Data/Compute/01_Count_EM_OBS_Exceeding_VRT"),
		SummaryDir:        sharedcfg.EnvOrDefault("SUMMARY_DIR", "Data/Compute/03_BSrel_AROCt_AROCz_BS"),
		PlotDir:           sharedcfg.EnvOrDefault("PLOT_DIR", "Data/Plot"),
		CatalogPath:       sharedcfg.EnvOrDefault("CATALOG_PATH", ""),
		KafkaEnabled:      sharedcfg.EnvOrDefault("KAFKA_ENABLED", "false") == "true",
		KafkaBrokers:      sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSummaryTopic: sharedcfg.EnvOrDefault("KAFKA_SUMMARY_TOPIC", "rainfall-verification-summaries"),
		HTTPAddr:          sharedcfg.EnvOrDefault("HTTP_ADDR", ""),
		LogLevel:          sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:         sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:   shutdownTimeout,
	}

	if cfg.DateStart, err = parseDate("DATE_START", "20211201"); err != nil {
		return nil, err
	}
	if cfg.DateEnd, err = parseDate("DATE_END", "20221130"); err != nil {
		return nil, err
	}

	ints := []struct {
		name string
		def  int
		min  int
		dst  *int
	}{
		{"BASE_HOUR", 0, 0, &cfg.BaseHour},
		{"STEP_START", 12, 0, &cfg.StepStart},
		{"STEP_FINAL", 246, 0, &cfg.StepFinal},
		{"STEP_DISC", 6, 1, &cfg.StepDisc},
		{"ACCUMULATION", 12, 1, &cfg.Accumulation},
		{"BOOTSTRAP_REPETITIONS", 1000, 0, &cfg.Repetitions},
		{"WORKERS", runtime.NumCPU(), 1, &cfg.Workers},
		{"FIELD_CACHE_SIZE", 64, 1, &cfg.FieldCacheSize},
	}
	for _, v := range ints {
		if *v.dst, err = parseInt(v.name, v.def, v.min); err != nil {
			return nil, err
		}
	}

	seed := sharedcfg.EnvOrDefault("BOOTSTRAP_SEED", "1")
	if cfg.Seed, err = strconv.ParseUint(seed, 10, 64); err != nil {
		return nil, domain.NewConfigError("BOOTSTRAP_SEED", "%q is not an unsigned integer", seed)
	}

	level := sharedcfg.EnvOrDefault("CONFIDENCE_LEVEL", "95")
	if cfg.ConfidenceLevel, err = strconv.ParseFloat(level, 64); err != nil {
		return nil, domain.NewConfigError("CONFIDENCE_LEVEL", "%q is not a number", level)
	}

	if err := cfg.SetThresholds(sharedcfg.EnvOrDefault("THRESHOLDS", "0.2,10,25,50")); err != nil {
		return nil, err
	}
	if err := cfg.SetSystems(sharedcfg.EnvOrDefault("SYSTEMS",
		"ENS:51:cumulative,ecPoint_MultipleWT:99:accumulated,ecPoint_SingleWT:99:accumulated")); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.DateEnd.Before(c.DateStart) {
		return domain.NewConfigError("DATE_END", "%s is before DATE_START %s",
			c.DateEnd.Format(DateLayout), c.DateStart.Format(DateLayout))
	}
	if c.BaseHour > 23 {
		return domain.NewConfigError("BASE_HOUR", "%d is not an hour of the day", c.BaseHour)
	}
	if len(c.LeadTimes()) == 0 {
		return domain.NewConfigError("STEP_FINAL", "no lead times between %d and %d", c.StepStart, c.StepFinal)
	}
	if c.StepStart < c.Accumulation {
		return domain.NewConfigError("STEP_START", "%d is shorter than the %d h accumulation window", c.StepStart, c.Accumulation)
	}
	if c.ConfidenceLevel <= 0 || c.ConfidenceLevel >= 100 {
		return domain.NewConfigError("CONFIDENCE_LEVEL", "%v outside (0,100)", c.ConfidenceLevel)
	}
	if c.KafkaEnabled && len(c.KafkaBrokers) == 0 {
		return domain.NewConfigError("KAFKA_BROKERS", "required when KAFKA_ENABLED is true")
	}
	if c.KafkaEnabled && c.KafkaSummaryTopic == "" {
		return domain.NewConfigError("KAFKA_SUMMARY_TOPIC", "required when KAFKA_ENABLED is true")
	}
	return nil
}

// SetThresholds replaces the threshold list from a comma-separated string.
func (c *Config) SetThresholds(csv string) error {
	thr, err := domain.ParseThresholds(csv)
	if err != nil {
		return &domain.ConfigError{Setting: "THRESHOLDS", Err: err}
	}
	c.Thresholds = thr
	return nil
}

// SetSystems replaces the system list from a comma-separated list of name:members:kind.
func (c *Config) SetSystems(csv string) error {
	var systems []domain.ForecastSystem
	seen := make(map[string]bool)
	for _, s := range strings.Split(csv, ",") {
		if strings.TrimSpace(s) == "" {
			continue
		}
		sys, err := domain.ParseForecastSystem(s)
		if err != nil {
			return &domain.ConfigError{Setting: "SYSTEMS", Err: err}
		}
		if seen[sys.Name] {
			return domain.NewConfigError("SYSTEMS", "duplicate system %q", sys.Name)
		}
		seen[sys.Name] = true
		systems = append(systems, sys)
	}
	if len(systems) == 0 {
		return domain.NewConfigError("SYSTEMS", "no forecast systems in %q", csv)
	}
	c.Systems = systems
	return nil
}

// LeadTimes returns the configured lead-time axis.
func (c *Config) LeadTimes() []int {
	return domain.LeadTimes(c.StepStart, c.StepFinal, c.StepDisc)
}

// BaseTimes returns the configured base times, one per day.
func (c *Config) BaseTimes() []time.Time {
	return domain.BaseTimes(c.DateStart, c.DateEnd, c.BaseHour)
}

// Path resolves a configured directory against DATA_ROOT.
func (c *Config) Path(dir string) string {
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(c.DataRoot, dir)
}

func parseDate(name, def string) (time.Time, error) {
	s := sharedcfg.EnvOrDefault(name, def)
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, domain.NewConfigError(name, "%q is not a YYYYMMDD date", s)
	}
	return d, nil
}

func parseInt(name string, def, minimum int) (int, error) {
	s := sharedcfg.EnvOrDefault(name, strconv.Itoa(def))
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, domain.NewConfigError(name, "%q is not an integer", s)
	}
	if n < minimum {
		return 0, domain.NewConfigError(name, "%d is below the minimum %d", n, minimum)
	}
	return n, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
