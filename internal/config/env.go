package config

import (
	"os"
	"strings"
)

type Env struct {
	AppAddr string
	GinMode string

	DBDSN string

	JWTSecret string

	SMSKey    string
	SMSURL    string
	SMSSender string

	ShortenerURL    string
	ShortenerKey    string
	ShortenerDomain string

	GatewayURL    string
	GatewayKey    string
	GatewaySecret string
}

func LoadEnv() Env {
	return Env{
		AppAddr: getEnv("APP_ADDR", ":8080"),
		GinMode: strings.TrimSpace(os.Getenv("GIN_MODE")),

		DBDSN: getEnv("DB_DSN",
			"root:@tcp(127.0.0.1:3306)/billing?parseTime=true&loc=Local&charset=utf8mb4&timeout=5s&readTimeout=30s&writeTimeout=30s"),

		JWTSecret: getEnv("JWT_SECRET", "super-secret-key-change-me"),

		SMSKey:    strings.TrimSpace(os.Getenv("SMS_AUTH_KEY")),
		SMSURL:    getEnv("SMS_URL", "https://api.msg91.com/api/v2/sendsms"),
		SMSSender: getEnv("SMS_SENDER", "PAYNUD"),

		ShortenerURL:    strings.TrimSpace(os.Getenv("SHORTENER_URL")),
		ShortenerKey:    strings.TrimSpace(os.Getenv("SHORTENER_KEY")),
		ShortenerDomain: getEnv("SHORTENER_DOMAIN", "http://localhost:8000"),

		GatewayURL:    getEnv("GATEWAY_URL", "https://api.razorpay.com/v1"),
		GatewayKey:    strings.TrimSpace(os.Getenv("GATEWAY_KEY")),
		GatewaySecret: strings.TrimSpace(os.Getenv("GATEWAY_SECRET")),
	}
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
