package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Load reads the .env file specified by FACTLEARN_ENV (or .env by default),
// then loads the corresponding .secret file if it exists.
// All config is flat env vars read via os.Getenv after loading.
func Load() error {
	envFile := os.Getenv("FACTLEARN_ENV")
	if envFile == "" {
		envFile = ".env"
	}

	// Load main env file (ignore error if file doesn't exist)
	_ = godotenv.Load(envFile)

	// Load secret sidecar if it exists
	_ = godotenv.Load(envFile + ".secret")

	return nil
}

func ServerPort() int {
	port, err := strconv.Atoi(os.Getenv("SERVER_PORT"))
	if err != nil {
		return 8080
	}
	return port
}

func ServerAddr() string {
	return fmt.Sprintf(":%d", ServerPort())
}

// LogLevel returns the log level (debug, info, warn, error).
// Defaults to "info" if not set.
func LogLevel() string {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		return "info"
	}
	return level
}

// StoreBackend returns where documents are kept: file or postgres.
func StoreBackend() string {
	b := os.Getenv("STORE_BACKEND")
	if b == "" {
		return "file"
	}
	return b
}

func DataDir() string {
	d := os.Getenv("DATA_DIR")
	if d == "" {
		return "data"
	}
	return d
}

func DatabaseURL() string {
	return os.Getenv("DATABASE_URL")
}

// EvidenceProvider returns the configured evidence provider.
// Defaults to "xai" if not set.
// Valid values: xai, openai, mock
func EvidenceProvider() string {
	p := os.Getenv("EVIDENCE_PROVIDER")
	if p == "" {
		return "xai"
	}
	return p
}

// EvidenceAPIKey returns the API key for the configured evidence provider.
func EvidenceAPIKey() string {
	switch EvidenceProvider() {
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	case "mock":
		return ""
	default:
		return os.Getenv("XAI_API_KEY")
	}
}

// EvidenceModel overrides the provider's default model when set.
func EvidenceModel() string {
	return os.Getenv("EVIDENCE_MODEL")
}

// EvidenceRPS paces calls to the evidence provider. Defaults to 1.
func EvidenceRPS() float64 {
	rps, err := strconv.ParseFloat(os.Getenv("EVIDENCE_RPS"), 64)
	if err != nil || rps <= 0 {
		return 1
	}
	return rps
}

// VerifyThreshold is the minimum provider confidence for a fact to be verified.
// Defaults to 0.7; values are clamped to [0,1].
func VerifyThreshold() float64 {
	return floatInUnit("VERIFY_THRESHOLD", 0.7)
}

// VerifyTimeout bounds each evidence provider call. Defaults to 60s.
func VerifyTimeout() time.Duration {
	return duration("VERIFY_TIMEOUT", 60*time.Second)
}

func VerifyConcurrency() int {
	n, err := strconv.Atoi(os.Getenv("VERIFY_CONCURRENCY"))
	if err != nil || n <= 0 {
		return 4
	}
	return n
}

// VerifyInterval is the scheduled batch interval. Defaults to 1h; 0 disables the scheduler.
func VerifyInterval() time.Duration {
	return duration("VERIFY_INTERVAL", time.Hour)
}

// PendingMinConfidence excludes weaker pending facts from batch runs. Defaults to 0.5.
func PendingMinConfidence() float64 {
	return floatInUnit("PENDING_MIN_CONFIDENCE", 0.5)
}

// DetectTimeout bounds one correction detection call. Defaults to 2s.
func DetectTimeout() time.Duration {
	return duration("DETECT_TIMEOUT", 2*time.Second)
}

func RedisAddr() string {
	return os.Getenv("REDIS_ADDR")
}

func RedisPassword() string {
	return os.Getenv("REDIS_PASSWORD")
}

func RedisDB() int {
	db, err := strconv.Atoi(os.Getenv("REDIS_DB"))
	if err != nil {
		return 0
	}
	return db
}

// KafkaBrokers returns the comma-separated KAFKA_BROKERS list; empty disables Kafka.
func KafkaBrokers() []string {
	var brokers []string
	for _, b := range strings.Split(os.Getenv("KAFKA_BROKERS"), ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

func KafkaTopic() string {
	t := os.Getenv("KAFKA_TOPIC")
	if t == "" {
		return "fact-corrections"
	}
	return t
}

// OpsAPIKey is the bearer key for the ops API. Empty disables auth.
func OpsAPIKey() string {
	return os.Getenv("OPS_API_KEY")
}

// RateLimitRPS returns requests per second limit.
// Defaults to 100 if not set.
func RateLimitRPS() float64 {
	rps, err := strconv.ParseFloat(os.Getenv("RATE_LIMIT_RPS"), 64)
	if err != nil || rps <= 0 {
		return 100
	}
	return rps
}

// RateLimitBurst returns the burst size for rate limiting.
// Defaults to 20 if not set.
func RateLimitBurst() int {
	burst, err := strconv.Atoi(os.Getenv("RATE_LIMIT_BURST"))
	if err != nil || burst <= 0 {
		return 20
	}
	return burst
}

func duration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if v == "0" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return def
	}
	return d
}

func floatInUnit(key string, def float64) float64 {
	f, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil || f != f {
		return def
	}
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}
