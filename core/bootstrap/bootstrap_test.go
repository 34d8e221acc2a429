package bootstrap

import (
	"errors"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/m3rciful/inquirybot/core/config"
	coredatabase "github.com/m3rciful/inquirybot/core/database"
)

func TestRunOrder(t *testing.T) {
	var calls []string
	res, err := Run(Options{
		Config:     &coreconfig.Config{},
		LoggerInit: func(*coreconfig.Config) error { calls = append(calls, "logger"); return nil },
		Migrate:    func(coredatabase.Config) error { calls = append(calls, "migrate"); return nil },
		Connect: func(coredatabase.Config) (*sqlx.DB, error) {
			calls = append(calls, "connect")
			return nil, nil
		},
	})
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, []string{"logger", "migrate", "connect"}, calls)
}

func TestRunStopsOnMigrationFailure(t *testing.T) {
	connected := false
	_, err := Run(Options{
		Config:     &coreconfig.Config{},
		LoggerInit: func(*coreconfig.Config) error { return nil },
		Migrate:    func(coredatabase.Config) error { return errors.New("dirty") },
		Connect: func(coredatabase.Config) (*sqlx.DB, error) {
			connected = true
			return nil, nil
		},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "migrations failed")
	assert.False(t, connected)
}

func TestRunRequiresConfig(t *testing.T) {
	_, err := Run(Options{})
	assert.Error(t, err)
}
