package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Load reads a .env file if one is present. Missing files are fine; real
// environments set variables directly.
func Load() {
	_ = godotenv.Load()
}

// GetEnv returns the value of the environment variable or the fallback.
func GetEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// PlatformLocation resolves the platform time zone used for the weekly
// withdrawal window. Defaults to Asia/Kolkata.
func PlatformLocation() *time.Location {
	name := GetEnv("PLATFORM_TZ", "Asia/Kolkata")
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.FixedZone("IST", 5*3600+1800)
	}
	return loc
}
