package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port                 int
	DBDSN                string
	JWTSecret            string
	UploadDir            string
	DevLog               bool
	WSInsecureSkipVerify bool
}

func Load() Config {
	port := 8084
	if v := os.Getenv("APP_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			port = p
		}
	}

	uploadDir := os.Getenv("UPLOAD_DIR")
	if uploadDir == "" {
		uploadDir = "uploads"
	}

	return Config{
		Port:                 port,
		DBDSN:                os.Getenv("DB_DSN"),
		JWTSecret:            os.Getenv("JWT_SECRET"),
		UploadDir:            uploadDir,
		DevLog:               os.Getenv("DEV_LOG") == "true",
		WSInsecureSkipVerify: os.Getenv("WS_INSECURE_SKIP_VERIFY") == "true",
	}
}
