// Package kvstore provides the durable key-value capability the permission
// tracker is built on. Values are scoped per key; there is no cross-key
// transaction guarantee.
package kvstore

import "context"

// Store is an async string-keyed store for string, bool, and int64 values.
// Getters report "absent" through the bool return rather than an error, so
// callers can default missing keys without error inspection.
type Store interface {
	GetString(ctx context.Context, key string) (string, bool, error)
	SetString(ctx context.Context, key, value string) error
	GetBool(ctx context.Context, key string) (bool, bool, error)
	SetBool(ctx context.Context, key string, value bool) error
	GetInt64(ctx context.Context, key string) (int64, bool, error)
	SetInt64(ctx context.Context, key string, value int64) error
	Delete(ctx context.Context, keys ...string) error
}

// Namespaced returns a view of base where every key is prefixed, so multiple
// trackers can share one physical store without colliding.
func Namespaced(base Store, prefix string) Store {
	if prefix == "" {
		return base
	}
	return &namespacedStore{base: base, prefix: prefix}
}

type namespacedStore struct {
	base   Store
	prefix string
}

func (s *namespacedStore) key(key string) string {
	return s.prefix + key
}

func (s *namespacedStore) GetString(ctx context.Context, key string) (string, bool, error) {
	return s.base.GetString(ctx, s.key(key))
}

func (s *namespacedStore) SetString(ctx context.Context, key, value string) error {
	return s.base.SetString(ctx, s.key(key), value)
}

func (s *namespacedStore) GetBool(ctx context.Context, key string) (bool, bool, error) {
	return s.base.GetBool(ctx, s.key(key))
}

func (s *namespacedStore) SetBool(ctx context.Context, key string, value bool) error {
	return s.base.SetBool(ctx, s.key(key), value)
}

func (s *namespacedStore) GetInt64(ctx context.Context, key string) (int64, bool, error) {
	return s.base.GetInt64(ctx, s.key(key))
}

func (s *namespacedStore) SetInt64(ctx context.Context, key string, value int64) error {
	return s.base.SetInt64(ctx, s.key(key), value)
}

func (s *namespacedStore) Delete(ctx context.Context, keys ...string) error {
	prefixed := make([]string, 0, len(keys))
	for _, key := range keys {
		prefixed = append(prefixed, s.key(key))
	}
	return s.base.Delete(ctx, prefixed...)
}
