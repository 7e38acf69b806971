package instance

import "os"

// GetID identifies this process in logs and lock ownership. It prefers
// GAMEHUB_INSTANCE_ID, then the host name.
func GetID() string {
	if id := os.Getenv("GAMEHUB_INSTANCE_ID"); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "local"
}
