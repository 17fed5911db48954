package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

// Client configures the exam client library and examctl.
type Client struct {
	APIBaseURL  string
	APITimeout  time.Duration
	SessionFile string
	UploadMax   int64
	ResultDelay time.Duration
	Locale      string
	UserAgent   string
}

// Server configures the reference backend.
type Server struct {
	Mode     Mode
	HTTPAddr string

	DBDriver string
	DBDSN    string

	BlobBasePath string
	UploadMax    int64

	AuthSecret string
	TokenTTL   time.Duration

	EnableLocalAuth bool
	AdminUser       string
	AdminPassHash   string // bcrypt

	CORSOrigins []string
}

type Config struct {
	Client Client
	Server Server
}

// LoadDotEnv loads the given .env files, or ./.env when none are named.
// Variables already set in the environment win. Missing files are skipped.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

func FromEnv() Config {
	mode := Mode(os.Getenv("MODE"))
	if mode == "" {
		mode = ModeOffline
	}
	defOrigins := "http://localhost:3000,http://localhost:5173"
	if mode == ModeOnline {
		defOrigins = "https://exams.mindengage.ai"
	}
	return Config{
		Client: Client{
			APIBaseURL:  strings.TrimSuffix(envOr("API_BASE_URL", "http://localhost:8080"), "/"),
			APITimeout:  envDuration("API_TIMEOUT", 30*time.Second),
			SessionFile: envOr("SESSION_FILE", "./.examctl/session.json"),
			UploadMax:   envInt64("UPLOAD_MAX_BYTES", 10<<20),
			ResultDelay: envDuration("RESULT_DISPLAY_DELAY", 3*time.Second),
			Locale:      envOr("LOCALE", "en"),
			UserAgent:   envOr("USER_AGENT", "examctl"),
		},
		Server: Server{
			Mode:            mode,
			HTTPAddr:        envOr("HTTP_ADDR", ":8080"),
			DBDriver:        envOr("DB_DRIVER", "sqlite"),
			DBDSN:           envOr("DB_DSN", ""),
			BlobBasePath:    envOr("BLOB_BASE_PATH", "./data"),
			UploadMax:       envInt64("UPLOAD_MAX_BYTES", 10<<20),
			AuthSecret:      envOr("AUTH_HMAC_SECRET", "supersecret-dev-key"),
			TokenTTL:        envDuration("TOKEN_TTL", 8*time.Hour),
			EnableLocalAuth: envBool("ENABLE_LOCAL_AUTH", true),
			AdminUser:       envOr("ADMIN_USER", "admin"),
			AdminPassHash:   envOr("ADMIN_PASS_HASH", "$2y$12$pyZAiWaTfVtM7UElIRStvOC3gNbnp70nmQU4eYopLGBfCJr1DOvji"),
			CORSOrigins:     csvOr("CORS_ORIGINS", defOrigins),
		},
	}
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func envBool(k string, def bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return def
	}
}

func envInt64(k string, def int64) int64 {
	n, err := strconv.ParseInt(os.Getenv(k), 10, 64)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

// envDuration accepts Go durations ("45s") or plain seconds ("45").
func envDuration(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	return def
}

func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
