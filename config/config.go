package config

import (
	"os"
	"strconv"
	"strings"

	_ "github.com/joho/godotenv/autoload"
)

// Config holds all environment-driven settings. It is loaded once in main
// and passed down; nothing else reads the environment.
type Config struct {
	Port      string
	JWTSecret string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	RedisHost     string
	RedisPort     string
	RedisPassword string

	KafkaBroker string
	KafkaTopic  string

	MollieAPIKey              string
	MollieAPIURL              string
	MollieDescriptionTemplate string
	MollieRedirectURLTemplate string
	MollieBaseURL             string
	MolliePaymentMethod       string
}

func Load() Config {
	return Config{
		Port:      getEnv("PORT", "8080"),
		JWTSecret: getEnv("JWT_SECRET", "your-secret-key-change-in-production"),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "shopdb"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		KafkaBroker: getEnv("KAFKA_BROKER", "localhost:9092"),
		KafkaTopic:  getEnv("KAFKA_TOPIC", "order_events"),

		MollieAPIKey:              getEnv("MOLLIE_API_KEY", ""),
		MollieAPIURL:              getEnv("MOLLIE_API_URL", "https://api.mollie.com/v2"),
		MollieDescriptionTemplate: getEnv("MOLLIE_DESCRIPTION_TEMPLATE", "Order #{order_id}"),
		MollieRedirectURLTemplate: getEnv("MOLLIE_REDIRECT_URL_TEMPLATE", "http://localhost:8080/orders/{order_id}"),
		MollieBaseURL:             getEnv("MOLLIE_BASE_URL", "http://localhost:8080"),
		MolliePaymentMethod:       getEnv("MOLLIE_PAYMENT_METHOD", ""),
	}
}

// Description renders the description template for an order id.
func (c Config) Description(orderID int) string {
	return expand(c.MollieDescriptionTemplate, orderID)
}

// RedirectURL renders the redirect URL template for an order id.
func (c Config) RedirectURL(orderID int) string {
	return expand(c.MollieRedirectURLTemplate, orderID)
}

// WebhookURL is the public URL the payment provider posts status updates to.
func (c Config) WebhookURL() string {
	return strings.TrimSuffix(c.MollieBaseURL, "/") + "/payments/webhook"
}

func expand(template string, orderID int) string {
	return strings.ReplaceAll(template, "{order_id}", strconv.Itoa(orderID))
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
