package auth

import "nutrilog/internal/domain/remote"

type loginInput struct {
	Body remote.LoginRequest
}

type loginOutput struct {
	Body remote.LoginResponse
}
