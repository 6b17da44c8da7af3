package database

import (
	"testing"
	"time"

	"storefront/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDatabaseConfig() config.DatabaseConfig {
	return config.DatabaseConfig{
		Host:             "db.internal",
		Port:             5432,
		User:             "shop",
		Password:         "secret",
		Database:         "storefront",
		MaxConnections:   20,
		MinConnections:   2,
		MaxConnLifetime:  120,
		StatementTimeout: 15 * time.Second,
	}
}

func TestNewPoolConfig(t *testing.T) {
	tests := []struct {
		name             string
		timeout          time.Duration
		expectedTimeout  string
		expectTimeoutSet bool
	}{
		{name: "Statement timeout in milliseconds", timeout: 15 * time.Second, expectedTimeout: "15000", expectTimeoutSet: true},
		{name: "Sub-second timeout", timeout: 250 * time.Millisecond, expectedTimeout: "250", expectTimeoutSet: true},
		{name: "Zero disables the timeout", timeout: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testDatabaseConfig()
			cfg.StatementTimeout = tt.timeout

			pc, err := newPoolConfig(cfg)
			require.NoError(t, err)

			assert.Equal(t, int32(20), pc.MaxConns)
			assert.Equal(t, int32(2), pc.MinConns)
			assert.Equal(t, 2*time.Minute, pc.MaxConnLifetime)
			assert.Equal(t, "db.internal", pc.ConnConfig.Host)
			assert.Equal(t, "storefront", pc.ConnConfig.RuntimeParams["application_name"])

			got, ok := pc.ConnConfig.RuntimeParams["statement_timeout"]
			assert.Equal(t, tt.expectTimeoutSet, ok)
			assert.Equal(t, tt.expectedTimeout, got)
		})
	}
}
