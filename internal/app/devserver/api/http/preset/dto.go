package preset

import "nutrilog/internal/domain/remote"

type createInput struct {
	Body remote.CreatePresetRequest
}

type createOutput struct {
	Body remote.PresetResponse
}

type deleteInput struct {
	ID string `path:"id"`
}
