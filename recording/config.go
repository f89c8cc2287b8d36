package recording

import (
	"fmt"
	"net/url"
	"strconv"
)

// RecorderConfig selects and configures a Recorder backend.
type RecorderConfig struct {
	// Type is "sqlite" or "clickhouse". An empty type means sqlite.
	Type string

	// Path is the SQLite file path, without the .sqlite3 extension. An
	// empty path picks a unique run-scoped name.
	Path string

	// ConnStr is a clickhouse:// connection string, for example
	// "clickhouse://localhost:9000/kairos?username=default&password=secret".
	// When set, it takes precedence over the individual fields below.
	ConnStr string

	Host     string
	Port     int
	Database string
	Username string
	Password string

	// BatchSize is the number of buffered rows that triggers a flush.
	// Zero selects the backend default.
	BatchSize int
}

// NewRecorderWithConfig creates the Recorder the config describes.
func NewRecorderWithConfig(cfg RecorderConfig) Recorder {
	switch cfg.Type {
	case "", "sqlite":
		return New(cfg.Path)

	case "clickhouse":
		if cfg.ConnStr != "" {
			parsed, err := parseClickHouseConnStr(cfg.ConnStr)
			if err != nil {
				panic(err)
			}

			parsed.BatchSize = cfg.BatchSize
			cfg = parsed
		}

		return NewClickHouseRecorder(
			cfg.Host,
			cfg.Port,
			cfg.Database,
			cfg.Username,
			cfg.Password,
			cfg.BatchSize,
		)

	default:
		panic(fmt.Sprintf("unknown recorder type %q", cfg.Type))
	}
}

func parseClickHouseConnStr(connStr string) (RecorderConfig, error) {
	u, err := url.Parse(connStr)
	if err != nil {
		return RecorderConfig{}, fmt.Errorf("invalid connection string: %w", err)
	}

	if u.Scheme != "clickhouse" {
		return RecorderConfig{},
			fmt.Errorf("connection string scheme must be clickhouse, got %q",
				u.Scheme)
	}

	cfg := RecorderConfig{
		Type:     "clickhouse",
		Host:     u.Hostname(),
		Database: "default",
		Username: "default",
	}

	cfg.Port = 9000
	if p := u.Port(); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return RecorderConfig{}, fmt.Errorf("invalid port %q", p)
		}
		cfg.Port = port
	}

	if len(u.Path) > 1 {
		cfg.Database = u.Path[1:]
	}

	query := u.Query()
	if v := query.Get("username"); v != "" {
		cfg.Username = v
	}
	cfg.Password = query.Get("password")

	return cfg, nil
}
