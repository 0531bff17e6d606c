// Package memory persists the bot's published posts so prompts can
// reference recent output and avoid repetition.
package memory

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

const schema = `
	CREATE TABLE IF NOT EXISTS posts (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		tweet_id   TEXT NOT NULL,
		text       TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_posts_created ON posts(created_at);
`

// Post is one published tweet on record.
type Post struct {
	TweetID   string
	Text      string
	CreatedAt time.Time
}

// Store is a SQLite-backed record of published posts.
type Store struct {
	pool *sqlitex.Pool
	log  *slog.Logger
}

// Config configures a Store.
type Config struct {
	// Path is the SQLite database path. ":memory:" keeps the store
	// in-process, useful for tests.
	Path string

	// PoolSize bounds concurrent connections. Defaults to 4. An
	// in-memory store needs PoolSize 1 so every caller sees the same
	// database.
	PoolSize int

	Logger *slog.Logger
}

// Open opens the store and applies the schema.
func Open(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("memory store: Path is required")
	}
	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = 4
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	pool, err := sqlitex.NewPool(cfg.Path, sqlitex.PoolOptions{
		PoolSize: poolSize,
	})
	if err != nil {
		return nil, fmt.Errorf("memory store: open %s: %w", cfg.Path, err)
	}

	store := &Store{pool: pool, log: log}
	if err := store.applySchema(context.Background()); err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	return s.pool.Close()
}

func (s *Store) applySchema(ctx context.Context) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("memory store: apply schema: %w", err)
	}
	defer s.pool.Put(conn)

	if err := sqlitex.ExecuteScript(conn, schema, nil); err != nil {
		return fmt.Errorf("memory store: apply schema: %w", err)
	}
	return nil
}

// Record stores a published tweet.
func (s *Store) Record(ctx context.Context, tweetID, text string) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("memory store: record: %w", err)
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn,
		"INSERT INTO posts (tweet_id, text, created_at) VALUES (?, ?, ?)",
		&sqlitex.ExecOptions{
			Args: []any{tweetID, text, time.Now().Unix()},
		})
	if err != nil {
		return fmt.Errorf("memory store: record tweet %s: %w", tweetID, err)
	}

	s.log.Debug("recorded post", slog.String("tweet_id", tweetID))
	return nil
}

// Recent returns up to n posts, newest first.
func (s *Store) Recent(ctx context.Context, n int) ([]Post, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("memory store: recent: %w", err)
	}
	defer s.pool.Put(conn)

	var posts []Post
	err = sqlitex.Execute(conn,
		"SELECT tweet_id, text, created_at FROM posts ORDER BY created_at DESC, id DESC LIMIT ?",
		&sqlitex.ExecOptions{
			Args: []any{n},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				posts = append(posts, Post{
					TweetID:   stmt.ColumnText(0),
					Text:      stmt.ColumnText(1),
					CreatedAt: time.Unix(stmt.ColumnInt64(2), 0),
				})
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("memory store: recent: %w", err)
	}
	return posts, nil
}
