// Package types содержит ключи контекста и состояние CLI, общие для команд.
package types

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"nutrilog/internal/app/client/config"
)

type contextKey string

// ClientAppKey - ключ, под которым собранное приложение лежит в контексте
// команды.
const ClientAppKey contextKey = "client-app"

// State - состояние CLI между запусками: кто вошел последним.
type State struct {
	UserID    string    `json:"user_id"`
	Login     string    `json:"login"`
	LastLogin time.Time `json:"last_login"`
}

func statePath(cfg *config.Config) string {
	return filepath.Join(cfg.ConfigDir, "state.json")
}

// LoadState читает состояние CLI с диска. Отсутствие файла - пустое состояние.
func LoadState(cfg *config.Config) (*State, error) {
	data, err := os.ReadFile(statePath(cfg))
	if err != nil {
		return &State{}, err
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return &State{}, err
	}
	return &state, nil
}

// SaveState сохраняет состояние CLI.
func SaveState(cfg *config.Config, state *State) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(statePath(cfg), data, 0600)
}

// ClearState удаляет состояние CLI (выход из аккаунта).
func ClearState(cfg *config.Config) error {
	if err := os.Remove(statePath(cfg)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
