package config

import (
	"log"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	Env               string `mapstructure:"ENV"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`

	// Redis configuration.
	RedisAddr      string `mapstructure:"REDIS_ADDR"`
	RedisPassword  string `mapstructure:"REDIS_PASSWORD"`
	RedisSessionDB int    `mapstructure:"REDIS_SESSION_DB"`
	RedisQueueDB   int    `mapstructure:"REDIS_QUEUE_DB"`

	// Session lifetime in minutes.
	SessionTTLMinutes int `mapstructure:"SESSION_TTL_MINUTES"`

	// Google Maps API key for geocoding.
	GoogleAPIKey string `mapstructure:"GOOGLE_API_KEY"`

	// Stripe secret key for checkout session creation.
	StripeKey string `mapstructure:"STRIPE_KEY"`

	// External collaborators.
	PricingAPIURL      string `mapstructure:"PRICING_API_URL"`
	BookingAPIURL      string `mapstructure:"BOOKING_API_URL"`
	EmailWebhookURL    string `mapstructure:"EMAIL_WEBHOOK_URL"`
	EmailWebhookSecret string `mapstructure:"EMAIL_WEBHOOK_SECRET"`

	// Checkout redirect targets.
	CheckoutSuccessURL string `mapstructure:"CHECKOUT_SUCCESS_URL"`
	CheckoutCancelURL  string `mapstructure:"CHECKOUT_CANCEL_URL"`
}

var AppConfig Config

func LoadConfig() {
	// Look for a config file named "config.yaml" in the current and "config" directory.
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	// Automatically use environment variables where available.
	viper.AutomaticEnv()

	// Set default values.
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("MAX_REQUESTS_PER_MIN", 100)
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_SESSION_DB", 0)
	viper.SetDefault("REDIS_QUEUE_DB", 1)
	viper.SetDefault("SESSION_TTL_MINUTES", 30)
	viper.SetDefault("GOOGLE_API_KEY", "")
	viper.SetDefault("STRIPE_KEY", "")
	viper.SetDefault("PRICING_API_URL", "http://localhost:9090/api/quote")
	viper.SetDefault("BOOKING_API_URL", "http://localhost:9090/api/bookings")
	viper.SetDefault("EMAIL_WEBHOOK_URL", "")
	viper.SetDefault("EMAIL_WEBHOOK_SECRET", "")
	viper.SetDefault("CHECKOUT_SUCCESS_URL", "http://localhost:3000/booking/confirmed")
	viper.SetDefault("CHECKOUT_CANCEL_URL", "http://localhost:3000/booking/payment")

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}
