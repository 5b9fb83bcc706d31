package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/pribylovaa/go-social-client/internal/storage"
)

// Фиксированные имена записей пары токенов в долговременном хранилище.
const (
	AccessKey  = "access_token"
	RefreshKey = "refresh_token"
)

// Tokens — доступ к паре токенов в storage.Store.
type Tokens struct {
	store storage.Store
}

func NewTokens(store storage.Store) *Tokens {
	return &Tokens{store: store}
}

// Load читает обе записи; отсутствующая запись — пустая строка.
func (t *Tokens) Load(ctx context.Context) (access, refresh string, err error) {
	const op = "session.Tokens.Load"

	access, err = t.get(ctx, AccessKey)
	if err != nil {
		return "", "", fmt.Errorf("%s: %w", op, err)
	}

	refresh, err = t.get(ctx, RefreshKey)
	if err != nil {
		return "", "", fmt.Errorf("%s: %w", op, err)
	}

	return access, refresh, nil
}

// SetTokens сохраняет обе записи.
func (t *Tokens) SetTokens(ctx context.Context, access, refresh string) error {
	const op = "session.Tokens.SetTokens"

	if err := t.store.Set(ctx, AccessKey, access); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := t.store.Set(ctx, RefreshKey, refresh); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// SetAccess сохраняет только access-токен.
func (t *Tokens) SetAccess(ctx context.Context, access string) error {
	const op = "session.Tokens.SetAccess"

	if err := t.store.Set(ctx, AccessKey, access); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Clear удаляет обе записи вместе.
func (t *Tokens) Clear(ctx context.Context) error {
	const op = "session.Tokens.Clear"

	if err := t.store.Delete(ctx, AccessKey, RefreshKey); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (t *Tokens) get(ctx context.Context, key string) (string, error) {
	v, err := t.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", nil
		}
		return "", err
	}

	return v, nil
}
