// internal/workers/eligibility/config.go
package eligibility

import "time"

type Config struct {
	// ApproveThreshold is the minimum score that pre-approves an application.
	ApproveThreshold int
	MinimumAge       int
	Timeout          time.Duration
	Clock            func() time.Time
}

func LoadConfig() *Config {
	return &Config{
		ApproveThreshold: 50,
		MinimumAge:       18,
		Timeout:          10 * time.Second,
		Clock:            time.Now,
	}
}
