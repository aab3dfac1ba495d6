//go:build sqlite
// +build sqlite

package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	logx "taskscheduler/pkg/logx"

	_ "modernc.org/sqlite"
)

//go:embed migrations.sql
var migrationsFS embed.FS

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	if cfg.URL == "" {
		return nil, errors.New("store: sqlite data source url is required")
	}

	db, err := sql.Open("sqlite", cfg.URL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeoutMS > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeoutMS))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	st := &sqliteStore{db: db, log: log}
	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) PutHandler(ctx context.Context, h TaskHandler) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO task_handler(key, bean_name, bean_class_name, method_name) VALUES(?,?,?,?)
		 ON CONFLICT(key) DO UPDATE SET bean_name=excluded.bean_name, bean_class_name=excluded.bean_class_name, method_name=excluded.method_name`,
		h.Key, h.BeanName, h.BeanClassName, h.MethodName,
	)
	return err
}

func (s *sqliteStore) PutExec(ctx context.Context, e ExecDetail) error {
	return s.upsertExec(ctx, e)
}

func (s *sqliteStore) upsertExec(ctx context.Context, e ExecDetail) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO exec_detail(key, desc, cron_expr, task_handler_key, init_time, end_time, last_exec_time, exec_count, max_exec_count, state, error_msg)
		 VALUES(?,?,?,?,?,?,?,?,?,?,?)
		 ON CONFLICT(key) DO UPDATE SET
		   desc=excluded.desc, cron_expr=excluded.cron_expr, task_handler_key=excluded.task_handler_key,
		   end_time=excluded.end_time, last_exec_time=excluded.last_exec_time,
		   exec_count=excluded.exec_count, max_exec_count=excluded.max_exec_count,
		   state=excluded.state, error_msg=excluded.error_msg`,
		e.Key, e.Desc, e.CronExpr, e.TaskHandlerKey,
		formatTimePtr(e.InitTime), formatTimePtr(e.EndTime), formatTimePtr(e.LastExecTime),
		e.ExecCount, e.MaxExecCount, int(e.State), nullStr(e.ErrorMsg),
	)
	return err
}

func (s *sqliteStore) GetHandler(ctx context.Context, key string) (TaskHandler, error) {
	var h TaskHandler
	err := s.db.QueryRowContext(ctx,
		`SELECT key, bean_name, bean_class_name, method_name FROM task_handler WHERE key = ?`, key,
	).Scan(&h.Key, &h.BeanName, &h.BeanClassName, &h.MethodName)
	if errors.Is(err, sql.ErrNoRows) {
		return TaskHandler{}, ErrNotFound
	}
	return h, err
}

func (s *sqliteStore) GetExec(ctx context.Context, key string) (ExecDetail, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT key, desc, cron_expr, task_handler_key, init_time, end_time, last_exec_time, exec_count, max_exec_count, state, error_msg
		 FROM exec_detail WHERE key = ?`, key,
	)
	e, err := scanExec(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ExecDetail{}, ErrNotFound
	}
	return e, err
}

func (s *sqliteStore) ListHandlers(ctx context.Context) ([]TaskHandler, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, bean_name, bean_class_name, method_name FROM task_handler`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []TaskHandler
	for rows.Next() {
		var h TaskHandler
		if err := rows.Scan(&h.Key, &h.BeanName, &h.BeanClassName, &h.MethodName); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (s *sqliteStore) ListExecs(ctx context.Context) ([]ExecDetail, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, desc, cron_expr, task_handler_key, init_time, end_time, last_exec_time, exec_count, max_exec_count, state, error_msg FROM exec_detail`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ExecDetail
	for rows.Next() {
		e, err := scanExec(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *sqliteStore) UpdateExec(ctx context.Context, e ExecDetail) error {
	return s.upsertExec(ctx, e)
}

func (s *sqliteStore) UpdateState(ctx context.Context, key string, state State) error {
	res, err := s.db.ExecContext(ctx, `UPDATE exec_detail SET state = ? WHERE key = ?`, int(state), key)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (s *sqliteStore) UpdateStateToError(ctx context.Context, key string, errMsg string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE exec_detail SET state = ?, error_msg = ? WHERE key = ?`, int(StateError), errMsg, key)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (s *sqliteStore) IncrementExecCount(ctx context.Context, key string, lastExecTime time.Time) (ExecDetail, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ExecDetail{}, err
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx,
		`SELECT key, desc, cron_expr, task_handler_key, init_time, end_time, last_exec_time, exec_count, max_exec_count, state, error_msg
		 FROM exec_detail WHERE key = ?`, key,
	)
	e, err := scanExec(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ExecDetail{}, ErrNotFound
	}
	if err != nil {
		return ExecDetail{}, err
	}

	e.ExecCount++
	e.LastExecTime = lastExecTime

	if _, err := tx.ExecContext(ctx,
		`UPDATE exec_detail SET exec_count = ?, last_exec_time = ? WHERE key = ?`,
		e.ExecCount, formatTimePtr(e.LastExecTime), key,
	); err != nil {
		return ExecDetail{}, err
	}
	if err := tx.Commit(); err != nil {
		return ExecDetail{}, err
	}
	return e, nil
}

func (s *sqliteStore) DeleteExec(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM exec_detail WHERE key = ?`, key)
	return err
}

func (s *sqliteStore) Recover(ctx context.Context) ([]ExecDetail, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, desc, cron_expr, task_handler_key, init_time, end_time, last_exec_time, exec_count, max_exec_count, state, error_msg
		 FROM exec_detail WHERE state != ?`, int(StateError),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ExecDetail
	for rows.Next() {
		e, err := scanExec(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExec(row rowScanner) (ExecDetail, error) {
	var e ExecDetail
	var state int
	var initTime, endTime, lastExecTime, errMsg sql.NullString
	err := row.Scan(&e.Key, &e.Desc, &e.CronExpr, &e.TaskHandlerKey, &initTime, &endTime, &lastExecTime,
		&e.ExecCount, &e.MaxExecCount, &state, &errMsg)
	if err != nil {
		return ExecDetail{}, err
	}
	e.State = State(state)
	e.ErrorMsg = errMsg.String
	e.InitTime = parseTimePtr(initTime)
	e.EndTime = parseTimePtr(endTime)
	e.LastExecTime = parseTimePtr(lastExecTime)
	return e, nil
}

func formatTimePtr(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.Format(time.RFC3339Nano)
}

func parseTimePtr(v sql.NullString) time.Time {
	if !v.Valid || v.String == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, v.String)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullStr(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func checkRowsAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
