// Package config loads the panel's settings from .env files and the process
// environment.
package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Backend selects where documents and images are kept.
const (
	BackendFirebase = "firebase"
	BackendSQLite   = "sqlite"
)

// Firebase holds the named connection parameters of the Firebase project.
type Firebase struct {
	APIKey            string
	AuthDomain        string
	ProjectID         string
	StorageBucket     string
	MessagingSenderID string
	AppID             string

	// Service account credentials, checked in this order.
	ServiceAccountJSON   string
	ServiceAccountBase64 string
	ServiceAccount       string
}

// HasServiceAccount reports whether any admin credentials were supplied.
func (f Firebase) HasServiceAccount() bool {
	return f.ServiceAccountJSON != "" || f.ServiceAccountBase64 != "" || f.ServiceAccount != ""
}

// Config is the full runtime configuration.
type Config struct {
	Env              string
	Port             string
	Backend          string
	SQLitePath       string
	PublicBaseURL    string
	EncryptionKey    string
	DevPassword      string
	AMQPURL          string
	AllowedOrigins   []string
	DraftTTL         time.Duration
	SessionTTL       time.Duration
	TrustedProxyHops int
	Firebase         Firebase
}

// IsDevelopment mirrors the environment checks used across the server.
func (c *Config) IsDevelopment() bool {
	return IsDevelopmentEnv(c.Env)
}

// IsDevelopmentEnv reports whether env names a development environment.
// Any other value, including typos of production, is treated as deployed.
func IsDevelopmentEnv(env string) bool {
	env = strings.ToLower(strings.TrimSpace(env))
	return env == "" || env == "development" || env == "dev"
}

// Load reads .env (current then parent directory) and the environment.
// Missing or placeholder Firebase values are logged, never fatal.
func Load() *Config {
	for _, path := range []string{".env", "../.env"} {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err != nil {
				log.Printf("Warning: could not load %s: %v", path, err)
			} else {
				log.Printf("Loaded environment from %s", path)
			}
			break
		}
	}

	cfg := &Config{
		Env:              os.Getenv("ENV"),
		Port:             getEnvOrDefault("PORT", "8080"),
		Backend:          strings.ToLower(os.Getenv("BACKEND")),
		SQLitePath:       getEnvOrDefault("SQLITE_PATH", "./tregorent.db"),
		PublicBaseURL:    strings.TrimRight(os.Getenv("PUBLIC_BASE_URL"), "/"),
		EncryptionKey:    os.Getenv("ENCRYPTION_KEY"),
		DevPassword:      os.Getenv("DEV_PASSWORD"),
		AMQPURL:          os.Getenv("AMQP_URL"),
		DraftTTL:         getDurationOrDefault("DRAFT_TTL", 2*time.Hour),
		SessionTTL:       getDurationOrDefault("SESSION_TTL", 5*24*time.Hour),
		TrustedProxyHops: getIntOrDefault("TRUSTED_PROXY_HOPS", 0),
		Firebase: Firebase{
			APIKey:               os.Getenv("FIREBASE_API_KEY"),
			AuthDomain:           os.Getenv("FIREBASE_AUTH_DOMAIN"),
			ProjectID:            os.Getenv("FIREBASE_PROJECT_ID"),
			StorageBucket:        os.Getenv("FIREBASE_STORAGE_BUCKET"),
			MessagingSenderID:    os.Getenv("FIREBASE_MESSAGING_SENDER_ID"),
			AppID:                os.Getenv("FIREBASE_APP_ID"),
			ServiceAccountJSON:   os.Getenv("FIREBASE_SERVICE_ACCOUNT_JSON"),
			ServiceAccountBase64: os.Getenv("FIREBASE_SERVICE_ACCOUNT_BASE64"),
			ServiceAccount:       os.Getenv("FIREBASE_SERVICE_ACCOUNT"),
		},
	}

	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		cfg.AllowedOrigins = strings.Split(origins, ",")
	}
	if cfg.PublicBaseURL == "" {
		cfg.PublicBaseURL = "http://localhost:" + cfg.Port
	}
	if cfg.Backend == "" {
		if cfg.Firebase.HasServiceAccount() {
			cfg.Backend = BackendFirebase
		} else {
			cfg.Backend = BackendSQLite
		}
	}

	if cfg.Backend == BackendFirebase {
		for _, key := range cfg.MissingFirebaseVars() {
			log.Printf("Warning: Firebase setting %s is missing or still a placeholder", key)
		}
		if len(cfg.Firebase.APIKey) > 0 && len(cfg.Firebase.APIKey) < 20 {
			log.Println("Warning: FIREBASE_API_KEY looks too short to be valid")
		}
	}

	return cfg
}

// MissingFirebaseVars lists the required Firebase keys that are empty or
// still hold template placeholders.
func (c *Config) MissingFirebaseVars() []string {
	required := []struct {
		key   string
		value string
	}{
		{"FIREBASE_API_KEY", c.Firebase.APIKey},
		{"FIREBASE_AUTH_DOMAIN", c.Firebase.AuthDomain},
		{"FIREBASE_PROJECT_ID", c.Firebase.ProjectID},
		{"FIREBASE_STORAGE_BUCKET", c.Firebase.StorageBucket},
		{"FIREBASE_MESSAGING_SENDER_ID", c.Firebase.MessagingSenderID},
		{"FIREBASE_APP_ID", c.Firebase.AppID},
	}

	var missing []string
	for _, r := range required {
		if IsPlaceholder(r.value) {
			missing = append(missing, r.key)
		}
	}
	return missing
}

// IsPlaceholder reports whether v is empty or an unedited template value.
func IsPlaceholder(v string) bool {
	v = strings.TrimSpace(v)
	return v == "" || strings.Contains(v, "your_") || strings.Contains(v, "_here")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		log.Printf("Warning: invalid duration %s=%q, using %v", key, raw, defaultValue)
		return defaultValue
	}
	return d
}

func getIntOrDefault(key string, defaultValue int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		log.Printf("Warning: invalid number %s=%q, using %d", key, raw, defaultValue)
		return defaultValue
	}
	return n
}
