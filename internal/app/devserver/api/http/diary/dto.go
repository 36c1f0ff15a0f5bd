package diary

import "nutrilog/internal/domain/remote"

type createInput struct {
	Body remote.CreateEntryRequest
}

type createOutput struct {
	Body remote.EntryResponse
}

type deleteInput struct {
	ID string `path:"id"`
}

type todayOutput struct {
	Body []remote.EntryResponse
}
