package config

import (
	"os"
	"path/filepath"
)

const appDirName = ".pilot"

// DataDir returns the base data directory for pilot.
func DataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, appDirName), nil
}

// DBPath returns the path of the bbolt conversation database.
func DBPath() (string, error) {
	dataDir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "pilot.db"), nil
}

// ConversationsPath returns the path of the conversation metadata index
// used by the file storage backend.
func ConversationsPath() (string, error) {
	dataDir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "conversations.json"), nil
}

// MessagesDir returns the directory holding one message log file per
// conversation for the file storage backend.
func MessagesDir() (string, error) {
	dataDir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "messages"), nil
}

// SettingsPath returns the path of the TOML settings file.
func SettingsPath() (string, error) {
	dataDir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "pilot.toml"), nil
}

// StreamLogPath returns the path of the optional stream debug log.
func StreamLogPath() (string, error) {
	dataDir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "stream.log"), nil
}
