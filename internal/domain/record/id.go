// Package record содержит общие для всех видов записей идентификаторы.
package record

import (
	"strings"

	"github.com/google/uuid"
)

// LocalIDPrefix помечает идентификатор, выданный локально до подтверждения
// сервером. После успешной синхронизации он заменяется серверным id везде,
// где на него ссылаются.
const LocalIDPrefix = "local-"

// NewLocalID выдает временный локальный идентификатор.
func NewLocalID() string {
	return LocalIDPrefix + uuid.NewString()
}

// IsLocalID проверяет, локальный ли идентификатор (еще не подтвержден сервером).
func IsLocalID(id string) bool {
	return strings.HasPrefix(id, LocalIDPrefix)
}

// NewCorrelationID выдает стабильный идентификатор корреляции. Он присваивается
// записи один раз при локальном создании и не меняется при замене временного id
// на серверный: по нему локальная запись сопоставляется с серверной.
func NewCorrelationID() string {
	return uuid.NewString()
}
