package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config keys.
const (
	keyServer   = "server"
	keyToken    = "token"
	keyAPIKey   = "api_key"
	keyPageSize = "page_size"
	keyLogLevel = "log.level"
)

func setDefaults() {
	viper.SetDefault(keyServer, "http://localhost:8080")
	viper.SetDefault(keyPageSize, 20)
	viper.SetDefault(keyLogLevel, "warn")
}

// initConfig reads ~/.snipctl.yaml (or path), then .env files, then
// SNIPCTL_* environment variables. Later sources win.
func initConfig(path string) error {
	for _, envFile := range []string{".env", ".env.local"} {
		// Missing .env files are fine.
		_ = godotenv.Load(envFile)
	}

	setDefaults()

	if path != "" {
		viper.SetConfigFile(path)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")
		viper.SetConfigName(".snipctl")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("SNIPCTL")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	return nil
}

// writeToken stores token in the config file in use, creating
// ~/.snipctl.yaml if there is none.
func writeToken(token string) (string, error) {
	viper.Set(keyToken, token)
	if f := viper.ConfigFileUsed(); f != "" {
		return f, viper.WriteConfig()
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locate home directory: %w", err)
	}
	f := filepath.Join(home, ".snipctl.yaml")
	return f, viper.WriteConfigAs(f)
}
