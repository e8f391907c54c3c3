//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"chat-server/domain"
)

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// MessageSender is the serialized write side of one client connection.
// Both the session's own command loop and asynchronous room deliveries
// write through it, one line at a time.
type MessageSender interface {
	Send(line string) error
	Close() error
}

// IRoomRegistry is the single source of truth mapping room identifiers
// to Room instances, safe under concurrent first access.
type IRoomRegistry interface {
	GetOrCreate(roomID string) *domain.Room
	Get(roomID string) (*domain.Room, bool)
	Count() int
}

// ConnTracker exposes the number of live client connections.
type ConnTracker interface {
	ActiveConnections() int
}
