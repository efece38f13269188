package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// defaultPromptDir is the subdirectory within the user's home directory.
const defaultPromptDir = ".config/citypulse/prompts"

// LoadPromptContent resolves a prompt template override. An empty configuredPath returns
// fallback. An absolute path is read directly; a relative one is looked up under
// ~/.config/citypulse/prompts/ and falls back when that file does not exist.
func LoadPromptContent(configuredPath, fallback string) (string, error) {
	if configuredPath == "" {
		return fallback, nil
	}

	finalPath := configuredPath
	if !filepath.IsAbs(configuredPath) {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get user home directory: %w", err)
		}
		finalPath = filepath.Join(homeDir, defaultPromptDir, configuredPath)
	}

	promptBytes, err := os.ReadFile(finalPath)
	if err != nil {
		if os.IsNotExist(err) && !filepath.IsAbs(configuredPath) {
			return fallback, nil
		}
		return "", fmt.Errorf("failed to read prompt file '%s': %w", finalPath, err)
	}
	return string(promptBytes), nil
}
