package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("MONGO_URL", "mongodb://localhost:27017")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3001, cfg.Server.Port)
	assert.Equal(t, "mongodb", cfg.Store.Kind())
	assert.Equal(t, time.Hour, cfg.Auth.TokenTTL)
	assert.False(t, cfg.Auth.Required)
	assert.Equal(t, 1, cfg.Inventory.PairingFactor)
	assert.False(t, cfg.Kafka.Enabled())
}

func TestLoad_RequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("MONGO_URL", "mongodb://localhost:27017")

	_, err := Load()
	require.Error(t, err)
}

func TestLoad_MongoRequiresURL(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("STORE_TYPE", "mongodb")
	t.Setenv("MONGO_URL", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MONGO_URL")
}

func TestLoad_RejectsBadPairingFactor(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("STORE_TYPE", "sqlite")
	t.Setenv("KIT_PAIRING_FACTOR", "0")

	_, err := Load()
	require.Error(t, err)
}

func TestStoreConfig_DSN(t *testing.T) {
	s := StoreConfig{Type: "PostgreSQL", Host: "db", Name: "kits", User: "u", Password: "p", SSLMode: "disable"}
	assert.Equal(t, "postgres", s.Kind())
	assert.Equal(t, "postgres://u:p@db:5432/kits?sslmode=disable", s.PostgresDSN())
	assert.Equal(t, "u:p@tcp(db:3306)/kits?parseTime=true&multiStatements=true&clientFoundRows=true", s.MySQLDSN())
}

func TestKafkaConfig_Enabled(t *testing.T) {
	k := KafkaConfig{Brokers: []string{" "}}
	assert.False(t, k.Enabled())
	k.Brokers = []string{"localhost:9092"}
	assert.True(t, k.Enabled())
}
