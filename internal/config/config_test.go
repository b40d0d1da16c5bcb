package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
		errMsg  string
	}{
		{
			name: "valid config",
			config: Config{
				Pool: PoolConfig{
					Name:       "Test Pool",
					Fee:        1.0,
					FeeAddress: "tos1testaddress",
				},
				Vault: VaultConfig{
					ResultChannelCapacity: 100,
				},
			},
			wantErr: false,
		},
		{
			name: "missing fee address",
			config: Config{
				Pool: PoolConfig{
					Name: "Test Pool",
					Fee:  1.0,
				},
				Vault: VaultConfig{ResultChannelCapacity: 100},
			},
			wantErr: true,
			errMsg:  "pool.fee_address is required",
		},
		{
			name: "invalid fee - negative",
			config: Config{
				Pool: PoolConfig{
					Name:       "Test Pool",
					Fee:        -1.0,
					FeeAddress: "tos1test",
				},
				Vault: VaultConfig{ResultChannelCapacity: 100},
			},
			wantErr: true,
			errMsg:  "pool.fee must be between 0 and 100",
		},
		{
			name: "invalid fee - over 100",
			config: Config{
				Pool: PoolConfig{
					Name:       "Test Pool",
					Fee:        101.0,
					FeeAddress: "tos1test",
				},
				Vault: VaultConfig{ResultChannelCapacity: 100},
			},
			wantErr: true,
			errMsg:  "pool.fee must be between 0 and 100",
		},
		{
			name: "ratio tolerance bounds inverted",
			config: Config{
				Pool: PoolConfig{
					Name:       "Test Pool",
					Fee:        1.0,
					FeeAddress: "tos1test",
				},
				Vault: VaultConfig{
					ResultChannelCapacity: 100,
					RatioSumToleranceLow:  1_010_000,
					RatioSumToleranceHigh: 990_000,
				},
			},
			wantErr: true,
			errMsg:  "vault.ratio_sum_tolerance_low must be <= ratio_sum_tolerance_high",
		},
		{
			name: "zero result channel capacity",
			config: Config{
				Pool: PoolConfig{
					Name:       "Test Pool",
					Fee:        1.0,
					FeeAddress: "tos1test",
				},
				Vault: VaultConfig{ResultChannelCapacity: 0},
			},
			wantErr: true,
			errMsg:  "vault.result_channel_capacity must be > 0",
		},
		{
			name: "admin enabled without password",
			config: Config{
				Pool: PoolConfig{
					Name:       "Test Pool",
					Fee:        1.0,
					FeeAddress: "tos1test",
				},
				Vault: VaultConfig{ResultChannelCapacity: 100},
				API:   APIConfig{AdminEnabled: true},
			},
			wantErr: true,
			errMsg:  "api.admin_password is required when admin is enabled",
		},
		{
			name: "newrelic enabled without license key",
			config: Config{
				Pool: PoolConfig{
					Name:       "Test Pool",
					Fee:        1.0,
					FeeAddress: "tos1test",
				},
				Vault:    VaultConfig{ResultChannelCapacity: 100},
				NewRelic: NewRelicConfig{Enabled: true},
			},
			wantErr: true,
			errMsg:  "newrelic.license_key is required when newrelic is enabled",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				if err == nil {
					t.Error("Expected error but got nil")
				} else if tt.errMsg != "" && err.Error() != tt.errMsg {
					t.Errorf("Error = %q, want %q", err.Error(), tt.errMsg)
				}
			} else {
				if err != nil {
					t.Errorf("Unexpected error: %v", err)
				}
			}
		})
	}
}

func TestConfigStructs(t *testing.T) {
	pool := PoolConfig{
		Name:       "Test Pool",
		Fee:        1.5,
		FeeAddress: "tos1test",
	}
	if pool.Name != "Test Pool" {
		t.Errorf("PoolConfig.Name = %s, want Test Pool", pool.Name)
	}
	if pool.Fee != 1.5 {
		t.Errorf("PoolConfig.Fee = %f, want 1.5", pool.Fee)
	}

	redis := RedisConfig{
		URL:      "localhost:6379",
		Password: "secret",
		DB:       1,
	}
	if redis.DB != 1 {
		t.Errorf("RedisConfig.DB = %d, want 1", redis.DB)
	}

	validation := ValidationConfig{
		HashrateWindow:      10 * time.Minute,
		HashrateLargeWindow: 3 * time.Hour,
	}
	if validation.HashrateWindow != 10*time.Minute {
		t.Errorf("ValidationConfig.HashrateWindow = %v, want 10m", validation.HashrateWindow)
	}

	vault := VaultConfig{
		TickInterval:           60 * time.Second,
		ResultChannelCapacity:  100,
		RatioSumToleranceLow:   990_000,
		RatioSumToleranceHigh:  1_010_000,
		PostExpiryGrace:        720 * time.Hour,
		MaxDistributionRetries: 3,
		RetryBackoff:           5 * time.Minute,
	}
	if vault.MaxDistributionRetries != 3 {
		t.Errorf("VaultConfig.MaxDistributionRetries = %d, want 3", vault.MaxDistributionRetries)
	}

	api := APIConfig{
		Enabled:       true,
		Bind:          "0.0.0.0:8080",
		StatsCache:    10 * time.Second,
		CORSOrigins:   []string{"*"},
		AdminEnabled:  true,
		AdminPassword: "admin123",
	}
	if !api.AdminEnabled {
		t.Error("APIConfig.AdminEnabled should be true")
	}

	notify := NotifyConfig{
		Enabled:      true,
		DiscordURL:   "https://discord.com/api/webhooks/...",
		TelegramBot:  "bot_token",
		TelegramChat: "chat_id",
		PoolURL:      "https://pool.example.com",
	}
	if !notify.Enabled {
		t.Error("NotifyConfig.Enabled should be true")
	}

	log := LogConfig{
		Level:  "debug",
		Format: "json",
		File:   "/var/log/pool.log",
	}
	if log.Level != "debug" {
		t.Errorf("LogConfig.Level = %s, want debug", log.Level)
	}

	profiling := ProfilingConfig{
		Enabled: true,
		Bind:    "127.0.0.1:6060",
	}
	if !profiling.Enabled {
		t.Error("ProfilingConfig.Enabled should be true")
	}

	newrelic := NewRelicConfig{
		Enabled:    true,
		AppName:    "TOS Pool",
		LicenseKey: "license_key_here",
	}
	if newrelic.AppName != "TOS Pool" {
		t.Errorf("NewRelicConfig.AppName = %s, want TOS Pool", newrelic.AppName)
	}
}

func TestLoadWithTempConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
pool:
  name: "Test Pool"
  fee: 1.0
  fee_address: "tos1testaddress"

vault:
  tick_interval: 30s
  max_distribution_retries: 5

api:
  bind: "0.0.0.0:9090"
`

	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write temp config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Pool.Name != "Test Pool" {
		t.Errorf("Pool.Name = %s, want Test Pool", cfg.Pool.Name)
	}

	if cfg.Pool.Fee != 1.0 {
		t.Errorf("Pool.Fee = %f, want 1.0", cfg.Pool.Fee)
	}

	if cfg.Vault.TickInterval != 30*time.Second {
		t.Errorf("Vault.TickInterval = %v, want 30s", cfg.Vault.TickInterval)
	}

	if cfg.Vault.MaxDistributionRetries != 5 {
		t.Errorf("Vault.MaxDistributionRetries = %d, want 5", cfg.Vault.MaxDistributionRetries)
	}

	if cfg.API.Bind != "0.0.0.0:9090" {
		t.Errorf("API.Bind = %s, want 0.0.0.0:9090", cfg.API.Bind)
	}
}

func TestLoadInvalidConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	// Missing required fee_address
	configContent := `
pool:
  name: "Test Pool"
  fee: 1.0
`

	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write temp config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() should return error for invalid config")
	}
}

func TestLoadNonexistentConfig(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() should return error for non-existent config")
	}
}
