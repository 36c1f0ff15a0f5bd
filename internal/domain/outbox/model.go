// Package outbox описывает очередь отложенных мутаций.
package outbox

import (
	"encoding/json"
	"time"
)

// Operation - вид мутации.
type Operation string

const (
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// EntityType - вид синхронизируемой сущности.
type EntityType string

const (
	EntityEntry    EntityType = "entry"
	EntityPreset   EntityType = "preset"
	EntitySettings EntityType = "settings"
)

// Entry - элемент очереди. Создается строго вместе с локальной мутацией
// (ровно один элемент на несинхронизированную мутацию) и удаляется только
// после подтверждения сервером либо после исчерпания повторов.
// Очередь обрабатывается в порядке создания (FIFO), без переупорядочивания.
type Entry struct {
	ID         int64           `json:"id"`
	UserID     string          `json:"user_id"`
	Entity     EntityType      `json:"entity_type"`
	Op         Operation       `json:"operation"`
	RecordID   string          `json:"record_id"`
	Payload    json.RawMessage `json:"payload"`
	CreatedAt  time.Time       `json:"created_at"`
	RetryCount int             `json:"retry_count"`
	LastError  string          `json:"last_error,omitempty"`
}
