package client

import "errors"

// Таксономия ошибок локального хранилища и синхронизации. Вызывающие
// различают виды через errors.Is.
var (
	// ErrStorageUnavailable - хранилище неработоспособно: квота, приватный
	// режим, битый файл. Операция не повторяется автоматически; текст
	// пригоден для показа пользователю.
	ErrStorageUnavailable = errors.New("локальное хранилище недоступно: освободите место на устройстве или выйдите из приватного режима")

	// ErrStorageBlocked - базу держит другое подключение. Кооперативное
	// ожидание ограничено по времени, после чего ошибка всплывает.
	ErrStorageBlocked = errors.New("локальное хранилище занято другим подключением")

	// ErrNotFound - записи нет в локальном хранилище.
	ErrNotFound = errors.New("запись не найдена")

	// ErrDuplicatePreset - заготовка с таким именем у пользователя уже есть.
	ErrDuplicatePreset = errors.New("заготовка с таким именем уже существует")

	// ErrSyncAuthFailed - проход синхронизации прерван из-за недействительной
	// сессии. Работа возобновится после обновления токена.
	ErrSyncAuthFailed = errors.New("синхронизация прервана: сессия недействительна")

	// ErrAlreadySyncing - проход синхронизации уже идет; повторный вызов
	// ничего не делает.
	ErrAlreadySyncing = errors.New("синхронизация уже выполняется")

	// ErrOffline - устройство считает себя оффлайн; синхронизация пропущена.
	ErrOffline = errors.New("устройство оффлайн")
)
