package config

type Config struct {
	EnvConfig *EnvConfig
}

func NewConfig() *Config {
	return &Config{
		EnvConfig: LoadEnvConfig(),
	}
}

func (c *Config) IsProduction() bool {
	return c.EnvConfig.Environment.Mode == "production"
}
