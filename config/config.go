package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration for the server.
type Config struct {
	AppEnv        string
	Port          string
	MongoURI      string
	MongoDatabase string
	JWTSecret     string
	TokenTTL      time.Duration

	VAPIDPublicKey  string
	VAPIDPrivateKey string
	VAPIDSubscriber string

	CloudinaryURL string
	UploadFolder  string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string

	CORSOrigins []string

	// RequireMembershipToPost gates post creation on community membership.
	// Off by default: the platform historically allowed non-members to post.
	RequireMembershipToPost bool

	// SweepInterval is how often the attachment-deletion sweeper runs.
	SweepInterval time.Duration
}

// HTTPAddress returns the address the HTTP server listens on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}

// Load reads configuration from environment variables and an optional
// .env file. JWT_SECRET and MONGODB_URI are required.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("YAPPER")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Unprefixed names the deploy environment already uses.
	for _, key := range []string{
		"PORT", "MONGODB_URI", "JWT_SECRET", "CLOUDINARY_URL",
		"VAPID_PUBLIC_KEY", "VAPID_PRIVATE_KEY",
		"GOOGLE_CLIENT_ID", "GOOGLE_CLIENT_SECRET", "GOOGLE_REDIRECT_URL",
	} {
		_ = v.BindEnv(strings.ToLower(strings.ReplaceAll(key, "_", ".")), key)
	}

	v.SetDefault("app.env", "development")
	v.SetDefault("port", "8080")
	v.SetDefault("mongodb.database", "yapper")
	v.SetDefault("token.ttl", "24h")
	v.SetDefault("upload.folder", "yapper")
	v.SetDefault("vapid.subscriber", "mailto:admin@yapperapp.xyz")
	v.SetDefault("cors.origins", "http://localhost:3000")
	v.SetDefault("require.membership.to.post", false)
	v.SetDefault("sweep.interval", "10m")

	tokenTTL, err := time.ParseDuration(v.GetString("token.ttl"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid token ttl: %w", err)
	}
	sweep, err := time.ParseDuration(v.GetString("sweep.interval"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid sweep interval: %w", err)
	}

	cfg := Config{
		AppEnv:                  v.GetString("app.env"),
		Port:                    v.GetString("port"),
		MongoURI:                v.GetString("mongodb.uri"),
		MongoDatabase:           v.GetString("mongodb.database"),
		JWTSecret:               v.GetString("jwt.secret"),
		TokenTTL:                tokenTTL,
		VAPIDPublicKey:          v.GetString("vapid.public.key"),
		VAPIDPrivateKey:         v.GetString("vapid.private.key"),
		VAPIDSubscriber:         v.GetString("vapid.subscriber"),
		CloudinaryURL:           v.GetString("cloudinary.url"),
		UploadFolder:            v.GetString("upload.folder"),
		GoogleClientID:          v.GetString("google.client.id"),
		GoogleClientSecret:      v.GetString("google.client.secret"),
		GoogleRedirectURL:       v.GetString("google.redirect.url"),
		CORSOrigins:             splitOrigins(v.GetString("cors.origins")),
		RequireMembershipToPost: v.GetBool("require.membership.to.post"),
		SweepInterval:           sweep,
	}

	if cfg.MongoURI == "" {
		return Config{}, fmt.Errorf("MONGODB_URI must be set")
	}
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET must be set")
	}

	return cfg, nil
}

func splitOrigins(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
