package storage

import "errors"

// ErrKeyNotFound is returned by Get when no value is stored under the key.
var ErrKeyNotFound = errors.New("key not found")

// LocalStore is the device-local persistent key-value storage consumed by the
// identity and cart layers: plain string get/set/remove, no transactions, no
// expiry. Keys are namespaced per identity by the callers.
type LocalStore interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
}
