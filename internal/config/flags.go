package config

import (
	"flag"
	"time"

	"github.com/couchcryptid/rainfall-verification/internal/domain"
)

// Overrides narrows the configured axes from command-line flags so that a
// long period can be split across processes.
type Overrides struct {
	Start      string
	End        string
	Systems    string
	Thresholds string
}

// Register binds the override flags on fs.
func (o *Overrides) Register(fs *flag.FlagSet) {
	fs.StringVar(&o.Start, "start", "", "first base date (YYYYMMDD), overrides DATE_START")
	fs.StringVar(&o.End, "end", "", "last base date (YYYYMMDD), overrides DATE_END")
	fs.StringVar(&o.Systems, "systems", "", "comma-separated system names to keep from SYSTEMS")
	fs.StringVar(&o.Thresholds, "thresholds", "", "comma-separated thresholds, overrides THRESHOLDS")
}

// Apply narrows cfg and revalidates it.
func (o Overrides) Apply(cfg *Config) error {
	if o.Start != "" {
		d, err := time.Parse(DateLayout, o.Start)
		if err != nil {
			return domain.NewConfigError("-start", "%q is not a YYYYMMDD date", o.Start)
		}
		cfg.DateStart = d
	}
	if o.End != "" {
		d, err := time.Parse(DateLayout, o.End)
		if err != nil {
			return domain.NewConfigError("-end", "%q is not a YYYYMMDD date", o.End)
		}
		cfg.DateEnd = d
	}
	if o.Thresholds != "" {
		if err := cfg.SetThresholds(o.Thresholds); err != nil {
			return err
		}
	}
	if o.Systems != "" {
		if err := o.keepSystems(cfg); err != nil {
			return err
		}
	}
	return cfg.Validate()
}

func (o Overrides) keepSystems(cfg *Config) error {
	byName := make(map[string]domain.ForecastSystem, len(cfg.Systems))
	for _, s := range cfg.Systems {
		byName[s.Name] = s
	}
	var kept []domain.ForecastSystem
	for _, name := range splitList(o.Systems) {
		s, ok := byName[name]
		if !ok {
			return domain.NewConfigError("-systems", "system %q is not configured in SYSTEMS", name)
		}
		kept = append(kept, s)
	}
	if len(kept) == 0 {
		return domain.NewConfigError("-systems", "no systems in %q", o.Systems)
	}
	cfg.Systems = kept
	return nil
}
