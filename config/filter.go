package config

type FilterConfiguration struct {
	Ignore []string `koanf:"ignore"`
}
