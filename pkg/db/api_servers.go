package db

import (
	"context"
	"database/sql"
	"errors"
	"net"
	"strconv"
	"time"
)

var ErrAPIServerNotFound = errors.New("api server config not found")

// APIServer is the REST listen address of a profile.
type APIServer struct {
	ID        int64
	ProfileID int64
	Host      string
	Port      int
	CreatedAt time.Time
}

// Address returns host:port.
func (a *APIServer) Address() string {
	return net.JoinHostPort(a.Host, strconv.Itoa(a.Port))
}

// APIServerStore reads and writes the listen address per profile.
type APIServerStore interface {
	Get(ctx context.Context, profileID int64) (*APIServer, error)
	Save(ctx context.Context, a *APIServer) error
}

// APIServers returns an APIServerStore for this database.
func (db *DB) APIServers() APIServerStore {
	return &apiServerStore{db: db}
}

type apiServerStore struct {
	db *DB
}

func (s *apiServerStore) Get(ctx context.Context, profileID int64) (*APIServer, error) {
	a := &APIServer{}
	var createdAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, profile_id, host, port, created_at
		FROM api_servers WHERE profile_id = ?
	`, profileID).Scan(&a.ID, &a.ProfileID, &a.Host, &a.Port, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAPIServerNotFound
	}
	if err != nil {
		return nil, err
	}
	a.CreatedAt, _ = time.Parse(time.DateTime, createdAt)
	return a, nil
}

// Save inserts the address or replaces the existing one for the profile.
func (s *apiServerStore) Save(ctx context.Context, a *APIServer) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO api_servers (profile_id, host, port) VALUES (?, ?, ?)
		ON CONFLICT(profile_id) DO UPDATE SET host = excluded.host, port = excluded.port
		RETURNING id
	`, a.ProfileID, a.Host, a.Port).Scan(&a.ID)
	return err
}
