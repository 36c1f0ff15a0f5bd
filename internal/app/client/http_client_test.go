package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"golang.org/x/exp/slog"

	"nutrilog/internal/app/client/config"
	"nutrilog/internal/domain/remote"
)

type staticTokens string

func (s staticTokens) Token(context.Context) (string, error) {
	return string(s), nil
}

func newTestAPIClient(t *testing.T, handler http.Handler) *apiClient {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := &config.Config{ServerAddress: strings.TrimPrefix(srv.URL, "http://")}
	return NewAPIClient(cfg, staticTokens("test-token"), slog.Default())
}

func TestRequestHeaders(t *testing.T) {
	var gotAuth, gotOrigin string
	client := newTestAPIClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotOrigin = r.Header.Get(remote.SyncOriginHeader)
		w.Write([]byte(`{"id":"srv-1"}`))
	}))

	if _, err := client.CreateEntry(context.Background(), remote.CreateEntryRequest{FoodID: "f"}); err != nil {
		t.Fatal(err)
	}
	if gotAuth != "Bearer test-token" {
		t.Errorf("неверный заголовок авторизации: %q", gotAuth)
	}
	if gotOrigin != "1" {
		t.Errorf("заголовок происхождения не выставлен: %q", gotOrigin)
	}
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, remote.ErrUnauthorized},
		{http.StatusForbidden, remote.ErrUnauthorized},
		{http.StatusNotFound, remote.ErrNotFound},
		{http.StatusConflict, remote.ErrDuplicateName},
	}

	for _, tc := range tests {
		client := newTestAPIClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(tc.status)
			w.Write([]byte(`{"error":"детали"}`))
		}))

		err := client.DeleteEntry(context.Background(), "id-1")
		if !errors.Is(err, tc.want) {
			t.Errorf("статус %d: ожидалась %v, получено %v", tc.status, tc.want, err)
		}
	}
}

func TestGenericServerError(t *testing.T) {
	client := newTestAPIClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	err := client.DeleteEntry(context.Background(), "id-1")
	if err == nil {
		t.Fatal("ожидалась ошибка")
	}
	if errors.Is(err, remote.ErrUnauthorized) || errors.Is(err, remote.ErrNotFound) {
		t.Errorf("500 не должен мапиться в доменные ошибки: %v", err)
	}
}

func TestHealth(t *testing.T) {
	client := newTestAPIClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/health" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(`{"status":"OK"}`))
	}))

	if err := client.Health(context.Background()); err != nil {
		t.Errorf("health должен проходить: %v", err)
	}
}
