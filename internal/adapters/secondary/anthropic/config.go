package anthropic

type Config struct {
	BaseURL    string `envconfig:"BASE_URL" default:"https://api.anthropic.com"`
	ApiKey     string `envconfig:"API_KEY"`
	ApiVersion string `envconfig:"VERSION" default:"2023-06-01"`
	Model      string `envconfig:"MODEL" default:"claude-3-5-sonnet-latest"`
	MaxTokens  int    `envconfig:"MAX_TOKENS" default:"2048"`
	SkipSSL    string `envconfig:"SKIP_SSL"` // Railway требует строки вместо bool
}

func (c *Config) ShouldSkipSSL() bool {
	return c.SkipSSL == "true" || c.SkipSSL == "1" || c.SkipSSL == "True"
}
