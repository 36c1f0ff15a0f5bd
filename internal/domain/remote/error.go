package remote

import "errors"

var (
	// ErrUnauthorized - сервер отверг токен. Такие ошибки получают короткий
	// потолок повторов и прерывают текущий проход синхронизации.
	ErrUnauthorized = errors.New("сервер отверг токен авторизации")

	// ErrNotFound - записи нет на сервере. Для удаления трактуется как успех.
	ErrNotFound = errors.New("запись не найдена на сервере")

	// ErrDuplicateName - заготовка с таким именем уже существует на сервере.
	ErrDuplicateName = errors.New("заготовка с таким именем уже существует")
)
