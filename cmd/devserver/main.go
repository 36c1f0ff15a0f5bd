package main

import (
	"net/http"

	"golang.org/x/exp/slog"

	"nutrilog/internal/app/devserver/api"
	"nutrilog/internal/app/devserver/config"
	"nutrilog/internal/app/devserver/store"
	"nutrilog/internal/utils/logger"
)

func main() {
	conf := config.MustLoad()
	log := logger.New(conf.Env)

	mux := api.New(store.New(), log)

	log.Info("devserver запущен", slog.String("address", conf.RunAddress))
	if err := http.ListenAndServe(conf.RunAddress, mux); err != nil {
		log.Error("сервер остановлен", slog.String("error", err.Error()))
	}
}
