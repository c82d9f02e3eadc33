package config

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds every setting the server reads from the environment.
type Config struct {
	Port   string `env:"PORT" envDefault:"8080"`
	AppEnv string `env:"APP_ENV" envDefault:"production"`

	MongoURI    string `env:"MONGO_URI" envDefault:"mongodb://localhost:27017/"`
	MongoDB     string `env:"MONGO_DB" envDefault:"dreamsoul"`
	StoreDriver string `env:"STORE_DRIVER" envDefault:"mongo"`

	JWTSecret    string        `env:"JWT_SECRET"`
	JWTTTL       time.Duration `env:"JWT_TTL" envDefault:"168h"`
	CookieSecure bool          `env:"COOKIE_SECURE" envDefault:"false"`

	BlobProvider        string `env:"BLOB_PROVIDER" envDefault:"cloudinary"`
	CloudinaryURL       string `env:"CLOUDINARY_URL"`
	CloudinaryCloudName string `env:"CLOUDINARY_CLOUD_NAME"`
	CloudinaryAPIKey    string `env:"CLOUDINARY_API_KEY"`
	CloudinaryAPISecret string `env:"CLOUDINARY_API_SECRET"`
	AWSRegion           string `env:"AWS_REGION" envDefault:"ap-south-1"`
	AWSBucketName       string `env:"AWS_BUCKET_NAME"`
	AWSPublicBaseURL    string `env:"AWS_PUBLIC_BASE_URL"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	SendGridAPIKey string `env:"SENDGRID_API_KEY"`
	MailFrom       string `env:"MAIL_FROM" envDefault:"no-reply@dreamsoul.app"`

	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL  string `env:"GOOGLE_REDIRECT_URL" envDefault:"http://localhost:8080/auth/google/callback"`
	// EnableClientGoogleLogin keeps POST /auth/google, which trusts the
	// email posted by the client. Disable it to allow only the verified
	// callback flow.
	EnableClientGoogleLogin bool `env:"ENABLE_CLIENT_GOOGLE_LOGIN" envDefault:"true"`
	FrontendURL        string `env:"FRONTEND_URL" envDefault:"http://localhost:5173"`
	CORSOrigin         string `env:"CORS_ORIGIN" envDefault:"http://localhost:5173"`

	AuthRateLimit float64 `env:"AUTH_RATE_LIMIT" envDefault:"5"`
	AuthRateBurst int     `env:"AUTH_RATE_BURST" envDefault:"10"`
}

// Development reports whether the server runs with development defaults.
func (c *Config) Development() bool {
	return c.AppEnv == "development"
}

// GoogleEnabled reports whether the server-side Google OAuth flow is configured.
func (c *Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

// LoadConfig loads environment variables from .env file
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using default values or system environment variables")
	}

	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ParseEnv fills target from the process environment.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Validate rejects combinations the server cannot start with.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is not set")
	}
	if c.JWTTTL <= 0 {
		return errors.New("JWT_TTL must be positive")
	}
	if c.CORSOrigin == "*" {
		return errors.New(`CORS_ORIGIN must name the frontend origin; "*" cannot be used with cookie credentials`)
	}
	switch c.StoreDriver {
	case "mongo", "memory":
	default:
		return fmt.Errorf("STORE_DRIVER must be mongo or memory, got %q", c.StoreDriver)
	}
	switch c.BlobProvider {
	case "cloudinary":
		if c.CloudinaryURL == "" && (c.CloudinaryCloudName == "" || c.CloudinaryAPIKey == "" || c.CloudinaryAPISecret == "") {
			return errors.New("cloudinary requires CLOUDINARY_URL or CLOUDINARY_CLOUD_NAME/API_KEY/API_SECRET")
		}
	case "s3":
		if c.AWSBucketName == "" {
			return errors.New("AWS_BUCKET_NAME is not set")
		}
	case "memory":
	default:
		return fmt.Errorf("BLOB_PROVIDER must be cloudinary, s3 or memory, got %q", c.BlobProvider)
	}
	return nil
}
