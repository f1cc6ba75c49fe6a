package internal

// Option adjusts how Run assembles the reconciliation service.
type Option func(*application)

type application struct {
	config *Config
}

// WithConfig supplies the loaded service configuration. Run fails
// without one.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}
