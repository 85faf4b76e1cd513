package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const memoryJWTConfig = `
server:
  host: 127.0.0.1
  port: 50051
storage:
  type: memory
auth:
  mode: jwt
  jwt_secret: 0123456789abcdef0123456789abcdef
`

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte(memoryJWTConfig))
	require.NoError(t, err)

	assert.Equal(t, 50052, cfg.HTTP.Port)
	assert.Equal(t, 5, cfg.Ledger.MaxAttempts)
	assert.Equal(t, "reject", cfg.Ledger.MissingWalletPolicy)
	assert.Equal(t, "0 0 3 * * *", cfg.Scheduler.ReconcileWallets)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, "127.0.0.1:50051", cfg.GetServerAddress())
	assert.Equal(t, "127.0.0.1:50052", cfg.GetHTTPAddress())
}

func TestParse_EnvOverrides(t *testing.T) {
	t.Setenv("LEDGER_MISSING_WALLET_POLICY", "zero_balance")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Parse([]byte(memoryJWTConfig))
	require.NoError(t, err)

	assert.Equal(t, "zero_balance", cfg.Ledger.MissingWalletPolicy)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Server:  ServerConfig{Port: 50051},
			Storage: StorageConfig{Type: StorageMemory},
			Auth:    AuthConfig{Mode: AuthJWT, JWTSecret: "0123456789abcdef0123456789abcdef"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"Valid", func(c *Config) {}, ""},
		{"Bad Port", func(c *Config) { c.Server.Port = 70000 }, "invalid server port"},
		{"Unknown Storage", func(c *Config) { c.Storage.Type = "s3" }, "unsupported storage type"},
		{"Firestore Needs Project", func(c *Config) { c.Storage.Type = StorageFirestore }, "firebase project id"},
		{"Postgres Needs Host", func(c *Config) { c.Storage.Type = StoragePostgres }, "database host"},
		{"Short Secret", func(c *Config) { c.Auth.JWTSecret = "short" }, "at least 32"},
		{"Firebase Auth Needs Project", func(c *Config) { c.Auth.Mode = AuthFirebase }, "firebase project id"},
		{"Unknown Policy", func(c *Config) { c.Ledger.MissingWalletPolicy = "create" }, "missing wallet policy"},
		{"Negative Attempts", func(c *Config) { c.Ledger.MaxAttempts = -1 }, "max attempts"},
		{"SendGrid Needs Recipients", func(c *Config) {
			c.SendGrid.APIKey = "SG.x"
			c.SendGrid.FromEmail = "ledger@example.com"
		}, "alert email"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_PostgresDefaults(t *testing.T) {
	c := &Config{
		Server:   ServerConfig{Port: 50051},
		Storage:  StorageConfig{Type: StoragePostgres},
		Database: DatabaseConfig{Host: "db", User: "ledger", Password: "pw", Database: "harvest"},
		Auth:     AuthConfig{Mode: AuthJWT, JWTSecret: "0123456789abcdef0123456789abcdef"},
	}
	require.NoError(t, c.Validate())
	assert.Equal(t, "postgres://ledger:pw@db:5432/harvest?sslmode=disable", c.GetDatabaseConnectionString())
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(memoryJWTConfig), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, StorageMemory, cfg.Storage.Type)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestGetSecurityLevel(t *testing.T) {
	assert.Equal(t, SecurityPublic, GetSecurityLevel("/harvest.wallet.v1.HarvestWallet/Health"))
	assert.Equal(t, SecurityAccess, GetSecurityLevel("/harvest.wallet.v1.HarvestWallet/PayPickerFromWallet"))
	assert.Equal(t, SecurityAccess, GetSecurityLevel("/unknown.Service/Method"))
}
