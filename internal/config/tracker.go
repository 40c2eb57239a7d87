package config

import "fmt"

// TrackerConfig holds tracker service configuration.
type TrackerConfig struct {
	HorizonYearsAhead int `env:"CADENCE_HORIZON_YEARS_AHEAD" default:"1"`
	MaxWindowYears    int `env:"CADENCE_MAX_WINDOW_YEARS" default:"50"`
}

// Validate validates tracker configuration.
func (c *TrackerConfig) Validate() error {
	if c.HorizonYearsAhead < 0 {
		return fmt.Errorf("CADENCE_HORIZON_YEARS_AHEAD must be >= 0, got %d", c.HorizonYearsAhead)
	}
	if c.MaxWindowYears < 1 {
		return fmt.Errorf("CADENCE_MAX_WINDOW_YEARS must be >= 1, got %d", c.MaxWindowYears)
	}
	if c.HorizonYearsAhead >= c.MaxWindowYears {
		return fmt.Errorf("CADENCE_HORIZON_YEARS_AHEAD (%d) must be < CADENCE_MAX_WINDOW_YEARS (%d)", c.HorizonYearsAhead, c.MaxWindowYears)
	}
	return nil
}
