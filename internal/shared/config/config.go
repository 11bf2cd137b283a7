package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL      string
	WhatsAppStoreURL string
	Port             string
	Env              string

	// Completion gateway
	GroqAPIKeys   []string
	LlamaModel    string
	FallbackModel string

	// SLA deadlines for records created by tool actions
	OrderSLAMinutes   int
	HandoffSLAMinutes int
}

func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ .env file not found, using system environment variables")
	}

	cfg := &Config{
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		WhatsAppStoreURL:  os.Getenv("WHATSAPP_STORE_URL"),
		Port:              os.Getenv("PORT"),
		Env:               os.Getenv("ENV"),
		GroqAPIKeys:       splitKeys(os.Getenv("GROQ_API_KEYS")),
		LlamaModel:        os.Getenv("LLAMA_MODEL"),
		FallbackModel:     os.Getenv("LLAMA_FALLBACK_MODEL"),
		OrderSLAMinutes:   envInt("ORDER_SLA_MINUTES", 120),
		HandoffSLAMinutes: envInt("HANDOFF_SLA_MINUTES", 60),
	}

	// Default values
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.Env == "" {
		cfg.Env = "development"
	}
	if cfg.LlamaModel == "" {
		cfg.LlamaModel = "llama-3.3-70b-versatile"
	}
	if cfg.FallbackModel == "" {
		cfg.FallbackModel = "llama-3.1-8b-instant"
	}
	if cfg.WhatsAppStoreURL == "" {
		// Default to main database if not specified
		cfg.WhatsAppStoreURL = cfg.DatabaseURL
	}

	return cfg
}

// splitKeys parses a comma-separated credential list, keeping order.
func splitKeys(raw string) []string {
	var keys []string
	for _, k := range strings.Split(raw, ",") {
		k = strings.TrimSpace(k)
		if k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

func envInt(name string, def int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return def
	}
	return v
}
