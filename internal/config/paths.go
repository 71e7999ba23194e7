package config

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	appDirName     = ".ragdash"
	dataDirEnvName = "RAGDASH_HOME"
)

// DataDir returns the base data directory for ragdash. RAGDASH_HOME
// overrides the default of ~/.ragdash.
func DataDir() (string, error) {
	if dir := strings.TrimSpace(os.Getenv(dataDirEnvName)); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, appDirName), nil
}

// ConfigPath returns the path to the TOML settings file.
func ConfigPath() (string, error) {
	return dataPath("config.toml")
}

// StatePath returns the path to the bbolt database holding UI selection
// state.
func StatePath() (string, error) {
	return dataPath("state.db")
}

// LogPath returns the path the terminal UI logs to.
func LogPath() (string, error) {
	return dataPath("ui.log")
}

func dataPath(name string) (string, error) {
	dataDir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, name), nil
}
