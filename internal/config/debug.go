package config

import "os"

func IsDebug() bool {
	return os.Getenv("BREEZE_DEBUG") == "1"
}

// GetRuntimePath resolves the runtime directory before the full config is
// parsed, so the .env file inside it can be loaded first.
func GetRuntimePath() string {
	if p := os.Getenv("BREEZE_RUNTIME_PATH"); p != "" {
		return p
	}
	return ".breeze"
}
