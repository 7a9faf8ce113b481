package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Config holds the complete application configuration, loadable from
// environment variables (NAMMOS_ prefix), flags, or YAML config files.
type Config struct {
	Addr         string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL  string `usage:"PostgreSQL connection URL (NAMMOS_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	ImageBaseURL string `default:"" usage:"Base URL for product images (e.g. https://cdn.example.com/images)" flag:"image-base-url"`
	APIKeyPepper string `usage:"HMAC pepper for API key hashing (NAMMOS_API_KEY_PEPPER)" flag:"api-key-pepper"`
	DeliveryFee  string `default:"5.00" usage:"Flat delivery fee in reais" flag:"delivery-fee"`
	Users        UsersConfig
	Pix          PixConfig
	Tracking     TrackingConfig
	RateLimit    RateLimitConfig
	CORS         CORSConfig
	Graceful     GracefulConfig
}

// UsersConfig selects the customer account backend.
type UsersConfig struct {
	// Backend is "postgres" or "firestore".
	Backend          string `default:"postgres" usage:"User repository backend (postgres|firestore)"`
	FirestoreProject string `default:"" usage:"GCP project ID for the firestore backend" flag:"firestore-project"`
}

// PixConfig controls the Pix charge lifecycle and BR Code identity fields.
type PixConfig struct {
	Merchant      string        `default:"Nammos Burgers" usage:"Merchant name for BR Code payloads"`
	City          string        `default:"Sao Paulo" usage:"Merchant city for BR Code payloads"`
	TTL           time.Duration `default:"10m" usage:"How long a charge stays payable" flag:"pix-ttl"`
	RedirectDelay time.Duration `default:"2500ms" usage:"Delay between payment and redirect to tracking" flag:"pix-redirect-delay"`
}

// TrackingConfig controls the demo auto-advance driver.
type TrackingConfig struct {
	// AutoAdvance steps fresh orders forward on a timer (up to, never
	// including, delivered). Zero disables it; real deployments advance via
	// the ops API instead.
	AutoAdvance time.Duration `default:"0" usage:"Demo tracking auto-advance interval (0 disables)" flag:"tracking-auto-advance"`
}

// RateLimitConfig controls the per-client sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config files,
// and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "NAMMOS",
		Files:     []string{"config.yaml", "/etc/nammos/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if cfg.DatabaseURL == "" {
		return nil, errors.New("database URL is required: set NAMMOS_DATABASE_URL or DATABASE_URL")
	}
	if cfg.Users.Backend == "firestore" && cfg.Users.FirestoreProject == "" {
		return nil, errors.New("firestore backend requires NAMMOS_USERS_FIRESTORE_PROJECT")
	}

	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's NAMMOS_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}
