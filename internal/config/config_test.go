package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "marketplace-api", cfg.ServiceName)
	assert.Equal(t, ":8190", cfg.Addr())
	assert.Equal(t, BrokerMemory, cfg.LiveFeedBroker)
	assert.Equal(t, StorageLocal, cfg.StorageBackend)
	assert.Equal(t, NotificationBestEffort, cfg.NotificationMode)
	assert.False(t, cfg.IsProduction())
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{
			name: "auth without issuer",
			env:  map[string]string{"AUTH_ENABLED": "true", "AUTH_JWKS_URL": "http://idp/jwks"},
			want: "AUTH_ISSUER",
		},
		{
			name: "redis broker without url",
			env:  map[string]string{"LIVE_FEED_BROKER": "redis"},
			want: "REDIS_URL",
		},
		{
			name: "unknown broker",
			env:  map[string]string{"LIVE_FEED_BROKER": "kafka"},
			want: "LIVE_FEED_BROKER",
		},
		{
			name: "s3 without bucket",
			env:  map[string]string{"STORAGE_BACKEND": "s3"},
			want: "S3_BUCKET",
		},
		{
			name: "unknown notification mode",
			env:  map[string]string{"NOTIFICATION_MODE": "sms"},
			want: "NOTIFICATION_MODE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadNormalizesWorkerSettings(t *testing.T) {
	t.Setenv("NOTIFICATION_WORKERS", "0")
	t.Setenv("NOTIFICATION_MAX_ATTEMPTS", "-3")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.NotificationWorkers)
	assert.Equal(t, 1, cfg.NotificationMaxAttempts)
}
