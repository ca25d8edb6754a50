package storage

// Cache is a keyed store of live values, e.g. operator sessions.
type Cache[V any] interface {
	Set(key string, value V)
	Get(key string) (V, bool)
	Delete(key string) bool
	Len() int
	Close() error
}
