package store

import (
	"fmt"
	"strings"

	logx "taskscheduler/pkg/logx"
)

// Config configures the TaskStore backend.
//
// Type values:
//   - "" or "memory": dependency-free in-memory backend.
//   - "sqlite": durable SQLite-backed backend (requires building with -tags sqlite).
//   - "redis": named here as a future backend; no wire client is vendored in
//     this repo, so it is rejected at Open time rather than faked.
type Config struct {
	Enabled bool
	Type    string
	URL     string
	// BusyTimeoutMS is the sqlite busy_timeout pragma, in milliseconds.
	BusyTimeoutMS int
}

// Open dispatches on cfg.Type. If cfg.Enabled is false, it returns the
// in-memory backend regardless of cfg.Type.
func Open(cfg Config, log logx.Logger) (Store, error) {
	if !cfg.Enabled {
		return NewMemory(), nil
	}

	typ := strings.ToLower(strings.TrimSpace(cfg.Type))
	if log.IsZero() {
		log = logx.Nop()
	}

	switch typ {
	case "", "memory":
		return NewMemory(), nil
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	case "redis":
		return nil, fmt.Errorf("store: storageType %q is not supported by this build (no redis client wired)", typ)
	default:
		return nil, fmt.Errorf("store: unknown storageType %q", typ)
	}
}
