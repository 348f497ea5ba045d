package config

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Config carries everything handlers need: the connected Mongo client plus
// the secrets for the payment gateway, the SMS provider and admin auth. It is
// built once in main and passed by reference into every handler factory.
type Config struct {
	Port        string
	MongoURI    string
	DBName      string
	MongoClient *mongo.Client

	PaystackSecretKey string
	PaystackPublicKey string
	PaystackBaseURL   string
	CallbackURL       string

	KairosAPIKey    string
	KairosAPISecret string
	SMSSender       string
	SMSBaseURL      string

	JWTSecret      string
	AllowedOrigins []string
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:     getenv("PORT", "8080"),
		MongoURI: os.Getenv("MONGO_URI"),
		DBName:   getenv("DB_NAME", "xtocast"),

		PaystackSecretKey: os.Getenv("PAYSTACK_SECRET_KEY"),
		PaystackPublicKey: os.Getenv("PAYSTACK_PUBLIC_KEY"),
		PaystackBaseURL:   os.Getenv("PAYSTACK_BASE_URL"),
		CallbackURL:       os.Getenv("PAYMENT_CALLBACK_URL"),

		KairosAPIKey:    os.Getenv("KAIROS_API_KEY"),
		KairosAPISecret: os.Getenv("KAIROS_API_SECRET"),
		SMSSender:       os.Getenv("SMS_SENDER"),
		SMSBaseURL:      os.Getenv("SMS_BASE_URL"),

		JWTSecret: os.Getenv("JWT_SECRET"),
	}

	if cfg.MongoURI == "" {
		return nil, errors.New("MONGO_URI is required")
	}
	if cfg.PaystackSecretKey == "" {
		return nil, errors.New("PAYSTACK_SECRET_KEY is required")
	}

	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		cfg.AllowedOrigins = strings.Split(origins, ",")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}
	cfg.MongoClient = client

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
