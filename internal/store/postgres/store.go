package postgres

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/gofer/internal/domain"
)

//go:embed schema/*.sql
var schemaFS embed.FS

type Store struct {
	pool  *pgxpool.Pool
	tasks *TaskRepo
	users *UserRepo
}

func New(ctx context.Context, dsn string, maxConns int32) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: parse config: %w", err)
	}

	cfg.MaxConns = maxConns

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: connect: %w", err)
	}

	err = pool.Ping(ctx)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres.New: ping: %w", err)
	}

	return &Store{
		pool:  pool,
		tasks: NewTaskRepo(pool),
		users: NewUserRepo(pool),
	}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres.Ping: %w", err)
	}
	return nil
}

func (s *Store) Tasks() domain.TaskRepository { return s.tasks }
func (s *Store) Users() domain.UserRepository { return s.users }

// Migrate applies the embedded schema files in lexical order. Every
// statement is idempotent, so running it against a current database is a
// no-op.
func (s *Store) Migrate(ctx context.Context) ([]string, error) {
	files, err := SchemaFiles()
	if err != nil {
		return nil, fmt.Errorf("postgres.Migrate: %w", err)
	}

	for _, name := range files {
		body, err := schemaFS.ReadFile("schema/" + name)
		if err != nil {
			return nil, fmt.Errorf("postgres.Migrate: read %s: %w", name, err)
		}
		if _, err := s.pool.Exec(ctx, string(body)); err != nil {
			return nil, fmt.Errorf("postgres.Migrate: apply %s: %w", name, err)
		}
	}

	return files, nil
}

// SchemaFiles lists the embedded migration files in the order they apply.
func SchemaFiles() ([]string, error) {
	entries, err := fs.ReadDir(schemaFS, "schema")
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
