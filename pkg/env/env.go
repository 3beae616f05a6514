// Package env holds small helpers for reading process environment values.
package env

import "os"

// Get returns the environment value for key, or fallback when unset/empty.
func Get(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
