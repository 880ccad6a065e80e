package env

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Load environment variables from the given file if it exists.
// Variables already present in the process environment win.
func LoadEnv(file string) {
	if _, err := os.Stat(file); err != nil {
		log.Printf("Env file %s not found, relying on process environment", file)
		return
	}

	if err := godotenv.Load(file); err != nil {
		log.Printf("Failed to load env file %s: %v", file, err)
	}
}

func GetString(key, fallback string) string {
	val, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}

	return val
}

func GetInt(key string, fallback int) int {
	val, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}

	valAsInt, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}

	return valAsInt
}

func GetBool(key string, fallback bool) bool {
	val, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}

	boolVal, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}

	return boolVal
}
