// Package env reads raw environment variables for the few knobs needed
// before the envconfig-backed configuration is loaded, such as the log
// output format.
package env

import "os"

// Get returns the variable's value, or the fallback when unset or empty.
func Get(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
