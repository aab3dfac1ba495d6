//go:build !sqlite
// +build !sqlite

package store

import (
	"errors"

	logx "taskscheduler/pkg/logx"
)

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	_ = cfg
	_ = log
	return nil, errors.New("store: sqlite backend not built: build with -tags sqlite (and a sqlite driver dependency)")
}
