// storage задаёт контракт долговременного key-value хранилища клиента
// (аналог localStorage браузера). В нём живёт пара токенов сессии.
package storage

import (
	"context"
	"errors"
)

var (
	// ErrNotFound — ключ отсутствует.
	ErrNotFound = errors.New("not found")
	// ErrCorrupted — содержимое хранилища не удалось прочитать/расшифровать.
	ErrCorrupted = errors.New("storage corrupted")
)

// Store — долговременное key-value хранилище строк.
type Store interface {
	// Get возвращает значение ключа или ErrNotFound.
	Get(ctx context.Context, key string) (string, error)
	// Set сохраняет значение ключа.
	Set(ctx context.Context, key, value string) error
	// Delete удаляет ключи; отсутствующие ключи не являются ошибкой.
	Delete(ctx context.Context, keys ...string) error
	// Close освобождает ресурсы.
	Close() error
}

//go:generate mockgen -destination=../../mocks/mock_storage.go -package=mocks github.com/pribylovaa/go-social-client/internal/storage Store
