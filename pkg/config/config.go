package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	ServiceName string

	ServerPort int

	DatabaseURL string
	LogLevel    string

	JWTAccessSecret []byte

	KafkaBrokers []string
	OrderTopic   string

	RedisAddr string

	StripeSecretKey   string
	RazorpayKeyID     string
	RazorpayKeySecret string
	Currency          string
	DeliveryCharge    string

	PromotionSweepInterval time.Duration
	TrendingInterval       time.Duration
	ReconcileInterval      time.Duration
	AbandonedOrderTimeout  time.Duration
}

func Load() Config {
	return Config{
		ServiceName: EnvDefault("SERVICE_NAME", "storefront"),

		ServerPort: EnvIntDefault("SERVER_PORT", 8080),

		DatabaseURL: os.Getenv("DATABASE_URL"),
		LogLevel:    EnvDefault("LOG_LEVEL", "info"),

		JWTAccessSecret: []byte(os.Getenv("JWT_SECRET")),

		KafkaBrokers: CSV(os.Getenv("KAFKA_BROKERS")),
		OrderTopic:   EnvDefault("ORDER_TOPIC", "order_events"),

		RedisAddr: os.Getenv("REDIS_ADDR"),

		StripeSecretKey:   os.Getenv("STRIPE_SECRET_KEY"),
		RazorpayKeyID:     os.Getenv("RAZORPAY_KEY_ID"),
		RazorpayKeySecret: os.Getenv("RAZORPAY_KEY_SECRET"),
		Currency:          EnvDefault("CURRENCY", "inr"),
		DeliveryCharge:    EnvDefault("DELIVERY_CHARGE", "10"),

		PromotionSweepInterval: EnvDurationDefault("PROMOTION_SWEEP_INTERVAL", time.Hour),
		TrendingInterval:       EnvDurationDefault("TRENDING_INTERVAL", time.Minute),
		ReconcileInterval:      EnvDurationDefault("RECONCILE_INTERVAL", 5*time.Minute),
		AbandonedOrderTimeout:  EnvDurationDefault("ABANDONED_ORDER_TIMEOUT", 30*time.Minute),
	}
}

func CSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func EnvDefault(key, def string) string {
	if os.Getenv(key) != "" {
		return os.Getenv(key)
	}
	return def
}

func EnvIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// EnvDurationDefault parses values such as "90s" or "1h"; invalid or non-positive values fall back to def.
func EnvDurationDefault(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
