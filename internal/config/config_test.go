package config

import (
	"os"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func validConfig() *Config {
	return &Config{
		Env:             "development",
		Port:            "8375",
		SessionSecret:   "secure-secret-at-least-32-chars-long",
		SessionTTLHours: 168,
		DBDriver:        "postgres",
		DBPassword:      "secure-password",
		DBSSLMode:       "require",
		MailDriver:      "log",
		StorageDriver:   "local",
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(c *Config)
		expectError bool
	}{
		{"valid development config", func(c *Config) {}, false},
		{"missing port", func(c *Config) { c.Port = "" }, true},
		{"missing secret", func(c *Config) { c.SessionSecret = "" }, true},
		{"zero session ttl", func(c *Config) { c.SessionTTLHours = 0 }, true},
		{"unknown db driver", func(c *Config) { c.DBDriver = "mysql" }, true},
		{"sqlite driver", func(c *Config) { c.DBDriver = "sqlite" }, false},
		{"smtp without host", func(c *Config) { c.MailDriver = "smtp" }, true},
		{"smtp with host", func(c *Config) { c.MailDriver = "smtp"; c.SMTPHost = "smtp.example.com" }, false},
		{"unknown mail driver", func(c *Config) { c.MailDriver = "carrier-pigeon" }, true},
		{"s3 without bucket", func(c *Config) { c.StorageDriver = "s3" }, true},
		{"s3 with bucket", func(c *Config) { c.StorageDriver = "s3"; c.S3Bucket = "recipes" }, false},
		{"production default secret", func(c *Config) { c.Env = "production"; c.SessionSecret = defaultSessionSecret }, true},
		{"production short secret", func(c *Config) { c.Env = "prod"; c.SessionSecret = "short" }, true},
		{"production weak db password", func(c *Config) { c.Env = "production"; c.DBPassword = "password" }, true},
		{"production sqlite ignores db password", func(c *Config) { c.Env = "production"; c.DBDriver = "sqlite"; c.DBPassword = "" }, false},
		{"production strong config", func(c *Config) { c.Env = "production"; c.CookieSecure = true }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)

			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadConfig_Normalization(t *testing.T) {
	defer os.Unsetenv("APP_ENV")
	defer os.Unsetenv("DB_SSLMODE")
	defer os.Unsetenv("STORAGE_DRIVER")
	defer viper.Reset()

	os.Setenv("APP_ENV", "development")
	os.Setenv("DB_SSLMODE", "  DISABLE  ")
	os.Setenv("STORAGE_DRIVER", " Local ")

	c, err := LoadConfig()
	assert.NoError(t, err)
	assert.Equal(t, "disable", c.DBSSLMode)
	assert.Equal(t, "local", c.StorageDriver)
	assert.Equal(t, 168, c.SessionTTLHours)
}

func TestLoadConfig_MissingProfile(t *testing.T) {
	defer os.Unsetenv("APP_ENV")
	defer viper.Reset()

	os.Setenv("APP_ENV", "staging-that-does-not-exist")

	_, err := LoadConfig()
	assert.Error(t, err)
}
