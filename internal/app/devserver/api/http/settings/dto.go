package settings

import "nutrilog/internal/domain/remote"

type updateInput struct {
	Body remote.UpdateSettingsRequest
}

type settingsOutput struct {
	Body remote.SettingsResponse
}
