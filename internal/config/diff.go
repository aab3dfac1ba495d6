package config

import (
	"sort"
	"strings"

	logx "taskscheduler/pkg/logx"
)

// SummarizeConfigChange returns a compact list of changed sections and safe
// structured attrs for logging (storage credentials are never included).
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 4)
	attrs := make([]logx.Field, 0, 12)

	if oldCfg.Logging.Level != newCfg.Logging.Level ||
		oldCfg.Logging.Console != newCfg.Logging.Console ||
		oldCfg.Logging.File.Enabled != newCfg.Logging.File.Enabled ||
		strings.TrimSpace(oldCfg.Logging.File.Path) != strings.TrimSpace(newCfg.Logging.File.Path) {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.console", newCfg.Logging.Console),
			logx.Bool("logging.file_enabled", newCfg.Logging.File.Enabled),
		)
	}

	if oldCfg.Pool.Size != newCfg.Pool.Size {
		changed = append(changed, "pool")
		attrs = append(attrs, logx.Int("pool.size", newCfg.Pool.Size))
	}

	if oldCfg.Storage.Enabled != newCfg.Storage.Enabled ||
		oldCfg.Storage.Type != newCfg.Storage.Type ||
		strings.TrimSpace(oldCfg.Storage.Source.URL) != strings.TrimSpace(newCfg.Storage.Source.URL) {
		changed = append(changed, "storage")
		attrs = append(attrs,
			logx.Bool("storage.enabled", newCfg.Storage.Enabled),
			logx.String("storage.type", newCfg.Storage.Type),
			logx.Bool("storage.url_set", strings.TrimSpace(newCfg.Storage.Source.URL) != ""),
		)
	}

	if oldCfg.AwaitTerminationSeconds != newCfg.AwaitTerminationSeconds {
		changed = append(changed, "await_termination_seconds")
		attrs = append(attrs, logx.Int("await_termination_seconds", newCfg.AwaitTerminationSeconds))
	}

	sort.Strings(changed)
	return changed, attrs
}
