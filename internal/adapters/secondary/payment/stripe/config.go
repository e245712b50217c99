package stripe

type Config struct {
	BaseURL       string `envconfig:"BASE_URL" default:"https://api.stripe.com"`
	SecretKey     string `envconfig:"SECRET_KEY"`
	WebhookSecret string `envconfig:"WEBHOOK_SECRET"`
}
