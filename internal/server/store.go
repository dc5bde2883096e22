package server

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sakif/code-capsule/internal/repository"
	"github.com/sakif/code-capsule/internal/repository/memory"
	mongoRepo "github.com/sakif/code-capsule/internal/repository/mongo"
	"github.com/sakif/code-capsule/internal/repository/postgres"
	sqliteRepo "github.com/sakif/code-capsule/internal/repository/sqlite"
)

// Store is an opened snippet store. Ping is nil for stores with nothing to ping.
type Store struct {
	Repo  repository.SnippetRepository
	Ping  func(ctx context.Context) error
	Close func() error
	Kind  string
}

// OpenStore picks a backend from the scheme of storeURL:
//
//	sqlite:<path>           embedded SQLite file (":memory:" for a private in-memory db)
//	postgres://, postgresql:// PostgreSQL via pgx
//	mongodb://, mongodb+srv:// MongoDB, collection "codes" in mongoDatabase
//	memory:                 process-local map, lost on exit
func OpenStore(ctx context.Context, storeURL, mongoDatabase string) (*Store, error) {
	switch {
	case storeURL == "memory:" || storeURL == "memory":
		return &Store{
			Repo:  memory.New(),
			Close: func() error { return nil },
			Kind:  "memory",
		}, nil

	case strings.HasPrefix(storeURL, "sqlite:"):
		path := strings.TrimPrefix(storeURL, "sqlite:")
		if path == "" {
			return nil, fmt.Errorf("store: sqlite url %q has no path", storeURL)
		}
		if path != sqliteRepo.MemoryPath {
			// Like `mkdir -p`: the data directory may not exist on first run.
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return nil, fmt.Errorf("store: creating database directory: %w", err)
			}
		}
		db, err := sqliteRepo.New(path)
		if err != nil {
			return nil, err
		}
		return &Store{Repo: db, Ping: db.Ping, Close: db.Close, Kind: "sqlite"}, nil

	case strings.HasPrefix(storeURL, "postgres://"), strings.HasPrefix(storeURL, "postgresql://"):
		pg, err := postgres.New(ctx, storeURL)
		if err != nil {
			return nil, err
		}
		return &Store{Repo: pg, Ping: pg.Ping, Close: pg.Close, Kind: "postgres"}, nil

	case strings.HasPrefix(storeURL, "mongodb://"), strings.HasPrefix(storeURL, "mongodb+srv://"):
		mg, err := mongoRepo.New(ctx, storeURL, mongoDatabase)
		if err != nil {
			return nil, err
		}
		return &Store{Repo: mg, Ping: mg.Ping, Close: mg.Close, Kind: "mongo"}, nil
	}

	return nil, fmt.Errorf("store: unsupported store url %q", storeURL)
}

// pinger adapts Store.Ping to handler.Pinger.
type pinger func(ctx context.Context) error

func (p pinger) Ping(ctx context.Context) error { return p(ctx) }
