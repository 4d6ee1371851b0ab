package config

type SecurityConfig interface {
	GetEnableRateLimiting() bool
	GetRateLimitPerMinute() int
}

type Security struct {
	RateLimitEnabled bool `env:"RATE_LIMIT_ENABLED" envDefault:"false"`
	RateLimitRPM     int  `env:"RATE_LIMIT_RPM" envDefault:"10"`
}

var _ SecurityConfig = Security{}

func (s Security) GetEnableRateLimiting() bool {
	return s.RateLimitEnabled
}

// GetRateLimitPerMinute is the per client IP budget for the OTP endpoints.
func (s Security) GetRateLimitPerMinute() int {
	if s.RateLimitRPM <= 0 {
		return 10
	}
	return s.RateLimitRPM
}
