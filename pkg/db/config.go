package db

import (
	"context"
	"errors"
	"fmt"
)

var ErrNoActiveProfile = errors.New("no active profile found")

// DefaultAPIAddress is used when the active profile has no api_servers row.
const DefaultAPIAddress = "0.0.0.0:8080"

// Settings is the runtime configuration stored for the active profile.
type Settings struct {
	Profile   *Profile
	APIServer *APIServer
}

// APIAddress returns the REST listen address.
func (s *Settings) APIAddress() string {
	if s.APIServer == nil {
		return DefaultAPIAddress
	}
	return s.APIServer.Address()
}

// Timezone returns the profile timezone.
func (s *Settings) Timezone() string {
	if s.Profile == nil {
		return "UTC"
	}
	return s.Profile.Timezone
}

// ActiveSettings loads the settings of the active profile.
func (db *DB) ActiveSettings(ctx context.Context) (*Settings, error) {
	profile, err := db.Profiles().GetActive(ctx)
	if err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			return nil, ErrNoActiveProfile
		}
		return nil, fmt.Errorf("failed to get active profile: %w", err)
	}

	apiServer, err := db.APIServers().Get(ctx, profile.ID)
	if err != nil && !errors.Is(err, ErrAPIServerNotFound) {
		return nil, fmt.Errorf("failed to get API server config: %w", err)
	}

	return &Settings{Profile: profile, APIServer: apiServer}, nil
}
