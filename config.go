package inkpost

import (
	"strconv"
	"strings"

	"github.com/eringen/inkpost/objectstore"
	"github.com/eringen/inkpost/store"
)

// Config holds all configuration for the API server.
type Config struct {
	Addr      string // Listen address (default ":4000")
	PublicURL string // URL the API is reachable at (default "http://localhost:4000")
	SiteURL   string // URL of the presentation site, used in feed links (default "http://localhost:3000")
	SiteName  string // Feed title (default "Blog")

	DatabaseURL   string // mongodb://, postgres:// or a SQLite path (default "data/inkpost.db")
	MongoDatabase string // Mongo database name (default "inkpost")

	Secret       string // Required: token signing secret
	BcryptCost   int    // Password hashing cost (default 10)
	CookieSecure bool   // Set true for HTTPS

	CORSOrigins []string // Allowed browser origins (default http://localhost:3000)

	Storage   string // "local" or "s3" (default "local")
	UploadDir string // Local storage directory (default "uploads")
	S3        objectstore.S3Config

	MaxUploadBytes int64 // Multipart upload cap (default 10MB)
	ImageMaxWidth  int   // Downscale wider images; negative disables (default 1200)

	LogLevel string // debug, info, warn, error (default "info")
}

func (c *Config) setDefaults() {
	if c.Addr == "" {
		c.Addr = ":4000"
	}
	if c.PublicURL == "" {
		c.PublicURL = "http://localhost:4000"
	}
	if c.SiteURL == "" {
		c.SiteURL = "http://localhost:3000"
	}
	if c.SiteName == "" {
		c.SiteName = "Blog"
	}
	if c.DatabaseURL == "" {
		c.DatabaseURL = "data/inkpost.db"
	}
	if c.MongoDatabase == "" {
		c.MongoDatabase = "inkpost"
	}
	if c.BcryptCost == 0 {
		c.BcryptCost = 10
	}
	if len(c.CORSOrigins) == 0 {
		c.CORSOrigins = []string{c.SiteURL}
	}
	if c.Storage == "" {
		c.Storage = "local"
	}
	if c.UploadDir == "" {
		c.UploadDir = "uploads"
	}
	if c.S3.Region == "" {
		c.S3.Region = "ap-southeast-1"
	}
	if c.S3.Bucket == "" {
		c.S3.Bucket = "mernblog"
	}
	if c.ImageMaxWidth == 0 {
		c.ImageMaxWidth = 1200
	}
	if c.MaxUploadBytes == 0 {
		c.MaxUploadBytes = 10 << 20
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// ConfigFromEnv reads the configuration from environment variables. Unset
// values are left empty so setDefaults can fill them in.
func ConfigFromEnv() Config {
	return Config{
		Addr:           EnvOr("INKPOST_ADDR", ""),
		PublicURL:      EnvOr("PUBLIC_URL", ""),
		SiteURL:        EnvOr("SITE_URL", ""),
		SiteName:       EnvOr("SITE_NAME", ""),
		DatabaseURL:    EnvOr("DATABASE_URL", ""),
		MongoDatabase:  EnvOr("MONGO_DATABASE", ""),
		Secret:         EnvOr("SECRET", ""),
		BcryptCost:     envInt("SALT", 0),
		CookieSecure:   envBool("COOKIE_SECURE"),
		CORSOrigins:    FilterEmpty(strings.Split(EnvOr("CORS_ORIGINS", ""), ",")),
		Storage:        EnvOr("STORAGE", ""),
		UploadDir:      EnvOr("UPLOAD_DIR", ""),
		MaxUploadBytes: int64(envInt("MAX_UPLOAD_BYTES", 0)),
		ImageMaxWidth:  envInt("IMAGE_MAX_WIDTH", 0),
		LogLevel:       EnvOr("LOG_LEVEL", ""),
		S3: objectstore.S3Config{
			Region:    EnvOr("AWS_REGION", ""),
			Bucket:    EnvOr("S3_BUCKET", ""),
			Endpoint:  EnvOr("S3_ENDPOINT", ""),
			PublicURL: EnvOr("S3_PUBLIC_URL", ""),
		},
	}
}

func envInt(key string, fallback int) int {
	v, err := strconv.Atoi(EnvOr(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

func envBool(key string) bool {
	v, _ := strconv.ParseBool(EnvOr(key, "false"))
	return v
}

// Option configures additional App behavior.
type Option func(*App)

// WithStore uses s instead of opening Config.DatabaseURL.
func WithStore(s store.Store) Option {
	return func(a *App) {
		a.Store = s
	}
}

// WithUploader uses u instead of the uploader selected by Config.Storage.
func WithUploader(u objectstore.Uploader) Option {
	return func(a *App) {
		a.Uploader = u
	}
}
