package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/oddsfeed/go-uofsdk/apierror"
	"github.com/oddsfeed/go-uofsdk/config"
	"github.com/oddsfeed/go-uofsdk/producer"
	"github.com/stretchr/testify/require"
)

const configYAML = `
access_token: secret
api_host: api.example.com
use_ssl: false
node_id: 7
languages: [en, de]
exception_handling_strategy: throw
producers:
  - id: 1
    name: LO
    scopes: live
    stateful_recovery_window_minutes: 60
  - id: 3
    name: Ctrl
    scopes: prematch|virtual
    max_inactivity_seconds: 45
    disabled: true
http:
  critical_timeout: 20s
cache:
  capacity: 5000
export_store:
  type: redis
  redis_addr: localhost:6379
  ttl: 1h
state_store:
  driver: sqlite
  dsn: state.db
`

func writeFile(t *testing.T, name, content string) string {
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	path := writeFile(t, "config.yaml", configYAML)
	cfg, err := config.Load(path, writeFile(t, "empty.env", ""))
	require.NoError(t, err)

	require.Equal(t, "secret", cfg.AccessToken)
	require.Equal(t, "http://api.example.com/v1", cfg.APIBaseURL())
	require.Equal(t, 7, cfg.NodeID)
	require.Equal(t, []string{"en", "de"}, cfg.Languages)
	require.Equal(t, apierror.Throw, cfg.Strategy())
	require.Equal(t, 20*time.Second, cfg.HTTP.CriticalTimeout)
	require.Equal(t, 5*time.Second, cfg.HTTP.NonCriticalTimeout)
	require.Equal(t, 5000, cfg.Cache.Capacity)
	require.Equal(t, 200, cfg.Cache.PoolSize)
	require.Equal(t, time.Hour, cfg.ExportStore.TTL)
	require.Equal(t, "sqlite", cfg.StateStore.Driver)

	producers := cfg.ProducerConfigs()
	require.Len(t, producers, 2)
	require.Equal(t, time.Hour, producers[0].RecoveryWindow)
	require.Equal(t, producer.DefaultMaxInactivity, producers[0].MaxInactivity)
	require.True(t, producers[0].Available)
	require.Equal(t, []producer.Scope{producer.Prematch, producer.Virtual}, producers[1].Scopes)
	require.Equal(t, 45*time.Second, producers[1].MaxInactivity)
	require.True(t, producers[1].Disabled)
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeFile(t, "config.yaml", configYAML)
	t.Setenv("UOF_NODE_ID", "9")
	t.Setenv("UOF_CACHE_CAPACITY", "10")
	envFile := writeFile(t, ".env", "UOF_HTTP_RETRY_MAX=1\nUOF_NODE_ID=100\n")
	t.Cleanup(func() { os.Unsetenv("UOF_HTTP_RETRY_MAX") })

	cfg, err := config.Load(path, envFile)
	require.NoError(t, err)
	// Variables already set win over the env file.
	require.Equal(t, 9, cfg.NodeID)
	require.Equal(t, 10, cfg.Cache.Capacity)
	require.Equal(t, 1, cfg.HTTP.RetryMax)
}

func TestLoadEnvOnly(t *testing.T) {
	t.Setenv("UOF_ACCESS_TOKEN", "token")
	cfg, err := config.Load("", writeFile(t, "empty.env", ""))
	require.NoError(t, err)
	require.Equal(t, "https://"+config.DefaultAPIHost+"/v1", cfg.APIBaseURL())
	require.Equal(t, []string{"en"}, cfg.Languages)
	require.Equal(t, apierror.Catch, cfg.Strategy())
	require.Len(t, cfg.ProducerConfigs(), len(config.DefaultProducers))
}

func TestLoadErrors(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"), writeFile(t, "empty.env", ""))
	require.Error(t, err)

	_, err = config.Load("", filepath.Join(t.TempDir(), "missing.env"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := config.Default()
	require.ErrorContains(t, cfg.Validate(), "access token")

	cfg.AccessToken = "token"
	require.NoError(t, cfg.Validate())

	cfg.Languages = nil
	cfg.ExceptionHandlingStrategy = "ignore"
	cfg.HTTP.CriticalTimeout = 0
	cfg.Producers = append(cfg.Producers, config.Producer{ID: 1, Name: "dup"})
	cfg.ExportStore.Type = "redis"
	cfg.StateStore.Driver = "mysql"
	err := cfg.Validate()
	for _, want := range []string{"language", "strategy", "timeouts", "duplicate producer 1", "redis", "mysql"} {
		require.ErrorContains(t, err, want)
	}
}
