package cmd

import (
	"nutrilog/cmd/client/cmd/auth"
	"nutrilog/cmd/client/cmd/diary"
	"nutrilog/cmd/client/cmd/preset"
	"nutrilog/cmd/client/cmd/settings"
	"nutrilog/cmd/client/cmd/sync"
)

func init() {
	rootCmd.AddCommand(auth.AuthCmd)
	rootCmd.AddCommand(diary.DiaryCmd)
	rootCmd.AddCommand(preset.PresetCmd)
	rootCmd.AddCommand(settings.SettingsCmd)
	rootCmd.AddCommand(sync.SyncCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(foodCmd)
}
