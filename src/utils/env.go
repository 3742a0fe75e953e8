package utils

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

const ENV_FILENAME = ".env"

// InitEnvironmentVariables loads a local .env file when one exists. In
// production the environment is expected to be set externally.
func InitEnvironmentVariables() error {
	if os.Getenv("GO_ENV") == "production" {
		log.Info("Running in production environment")
		return nil
	}

	if _, err := os.Stat(ENV_FILENAME); os.IsNotExist(err) {
		return nil
	}

	if err := godotenv.Load(ENV_FILENAME); err != nil {
		return fmt.Errorf("failed to load %s file: %v", ENV_FILENAME, err)
	}

	return nil
}

func GetEnv(name string) (string, error) {
	value := os.Getenv(name)
	if value == "" {
		return "", fmt.Errorf("%s environment variable not set", name)
	}

	return value, nil
}
