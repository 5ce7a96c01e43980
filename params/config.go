package params

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Coordinator struct {
	Addr string
	// CAFile enables TLS when set; otherwise the connection is plaintext.
	CAFile      string
	DialTimeout time.Duration
	RPCTimeout  time.Duration
}

type Poll struct {
	Interval    time.Duration
	MaxAttempts int
}

type API struct {
	Addr           string
	AllowedOrigins []string
}

// Relay is one entry of the relay policy returned to pages.
type Relay struct {
	URL   string
	Read  bool
	Write bool
}

type Config struct {
	Coordinator Coordinator
	Poll        Poll
	API         API
	Relays      []Relay
	// JournalDir holds the pebble journal. Empty keeps the journal in memory.
	JournalDir string
	LogFile    string
	LogLevel   string
}

func Default() Config {
	return Config{
		Coordinator: Coordinator{
			Addr:        "localhost:1337",
			DialTimeout: 5 * time.Second,
			RPCTimeout:  10 * time.Second,
		},
		Poll: Poll{
			Interval:    time.Second,
			MaxAttempts: 60, // 60s upper bound for a signature
		},
		API: API{
			Addr:           "127.0.0.1:8090",
			AllowedOrigins: []string{"*"},
		},
		Relays: []Relay{
			{URL: "wss://relay.damus.io", Read: true, Write: true},
		},
		LogLevel: "info",
	}
}

// LoadFromEnv loads configuration from .env file (if exists) and environment variables
// Priority: ENV > .env file > defaults
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	// Try to load .env file (optional - won't fail if not exists)
	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load() // loads .env from current directory
	}

	cfg.Coordinator.Addr = getEnv("COORDINATOR_ADDR", cfg.Coordinator.Addr)
	cfg.Coordinator.CAFile = getEnv("COORDINATOR_CA_FILE", cfg.Coordinator.CAFile)
	cfg.Coordinator.DialTimeout = getEnvMillis("COORDINATOR_DIAL_TIMEOUT_MS", cfg.Coordinator.DialTimeout)
	cfg.Coordinator.RPCTimeout = getEnvMillis("COORDINATOR_RPC_TIMEOUT_MS", cfg.Coordinator.RPCTimeout)

	cfg.Poll.Interval = getEnvMillis("POLL_INTERVAL_MS", cfg.Poll.Interval)
	if v := os.Getenv("POLL_MAX_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Poll.MaxAttempts = n
		}
	}

	cfg.API.Addr = getEnv("API_ADDR", cfg.API.Addr)
	if origins := os.Getenv("API_ALLOWED_ORIGINS"); origins != "" {
		cfg.API.AllowedOrigins = splitList(origins)
	}

	// Relays from comma-separated list
	// Example: "wss://relay.damus.io,wss://nos.lol|r"
	if relays := os.Getenv("NOSTR_RELAYS"); relays != "" {
		cfg.Relays = ParseRelays(relays)
	}

	cfg.JournalDir = getEnv("JOURNAL_DIR", cfg.JournalDir)
	cfg.LogFile = getEnv("LOG_FILE", cfg.LogFile)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)

	return cfg
}

// ParseRelays parses "url[|policy],..." where policy is r, w or rw.
// A missing or unrecognized policy means read and write.
func ParseRelays(s string) []Relay {
	var out []Relay
	for _, item := range splitList(s) {
		url, policy, _ := strings.Cut(item, "|")
		r := Relay{URL: strings.TrimSpace(url), Read: true, Write: true}
		switch strings.TrimSpace(policy) {
		case "r":
			r.Write = false
		case "w":
			r.Read = false
		}
		if r.URL != "" {
			out = append(out, r)
		}
	}
	return out
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// getEnv returns environment variable value or default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvMillis(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return defaultValue
}
