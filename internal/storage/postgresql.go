// Package storage реализует журнал сервиса на PostgreSQL: пользователей,
// записи баллов, периоды членства, заказы, карты, приглашения и упражнения.
//
// Методы выполняются в транзакции, если она лежит в контексте (см. WithinTx),
// иначе напрямую через пул соединений.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	// Регистрация драйвера pgx для использования с database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"
)

var (
	// ErrNotFound — запись не найдена.
	ErrNotFound = errors.New("storage: not found")
	// ErrDuplicate — нарушено ограничение уникальности.
	ErrDuplicate = errors.New("storage: duplicate")
)

// Storage инкапсулирует соединение с базой данных PostgreSQL.
type Storage struct {
	DB *sql.DB
}

// New создаёт подключение к PostgreSQL и проверяет его.
func New(storageConnectionString string) (*Storage, error) {
	const op = "storage.New"

	db, err := sql.Open("pgx", storageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{
		DB: db,
	}, nil
}

// CheckDatabaseReady проверяет, что миграции применены.
func CheckDatabaseReady(storage *Storage) error {
	var exists bool
	err := storage.DB.QueryRow(`SELECT EXISTS (
        SELECT FROM information_schema.tables
        WHERE table_name = 'points_records'
    )`).Scan(&exists)
	if err != nil {
		return fmt.Errorf("storage.CheckDatabaseReady: %w", err)
	}
	if !exists {
		return errors.New("storage.CheckDatabaseReady: required table points_records missing")
	}
	return nil
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type txKey struct{}

type txState struct {
	tx    *sql.Tx
	hooks []func()
}

func (s *Storage) q(ctx context.Context) querier {
	if st, ok := ctx.Value(txKey{}).(*txState); ok {
		return st.tx
	}
	return s.DB
}

// WithinTx выполняет fn в транзакции READ COMMITTED. Если в ctx уже есть
// транзакция, fn выполняется в ней, и фиксацию делает внешний вызов.
// Ошибка или паника в fn откатывает транзакцию.
func (s *Storage) WithinTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	const op = "storage.WithinTx"
	if _, ok := ctx.Value(txKey{}).(*txState); ok {
		return fn(ctx)
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tx, err := s.DB.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("%s: begin: %w", op, err)
	}
	st := &txState{tx: tx}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{}, st)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return fmt.Errorf("%s: rollback: %v: %w", op, rbErr, err)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit: %w", op, err)
	}
	for _, hook := range st.hooks {
		hook()
	}
	return nil
}

// AfterCommit откладывает fn до фиксации внешней транзакции.
// Без транзакции в ctx fn вызывается сразу.
func (s *Storage) AfterCommit(ctx context.Context, fn func()) {
	if st, ok := ctx.Value(txKey{}).(*txState); ok {
		st.hooks = append(st.hooks, fn)
		return
	}
	fn()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
