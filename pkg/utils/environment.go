package utils

import (
	"errors"
	"io/fs"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// LoadConfig loads the .env file found in path into the process environment
// and makes every variable reachable through viper.
func LoadConfig(path string) {
	envFile := filepath.Join(path, ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logrus.Warnf("[CONFIG] Failed to load %s: %v", envFile, err)
	}

	viper.AutomaticEnv()
	viper.SetConfigFile(envFile)
	viper.SetConfigType("env")
	if err := viper.ReadInConfig(); err != nil {
		logrus.Debugf("[CONFIG] No env file read by viper: %v", err)
	}
}
