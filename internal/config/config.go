package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	Port      string
	APIURL    string // backend base URL the typed client talks to
	UploadURL string // local multipart upload endpoint
	MediaDir  string
	UploadDir string
	TokenFile string
	LogFile   string
	DBDSN     string // sqlite DSN for the built-in dev backend
	MockAPI   bool   // mount the dev backend under /api
}

func Load() Config {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	port := getenv("PORT", "3000")
	cfg := Config{
		Port:      port,
		APIURL:    getenv("API_URL", "http://localhost:"+port+"/api"),
		UploadURL: getenv("UPLOAD_URL", "http://localhost:"+port+"/api/upload"),
		MediaDir:  getenv("MEDIA_DIR", "./web/media"),
		UploadDir: getenv("UPLOAD_DIR", "./web/media/uploads"),
		TokenFile: getenv("TOKEN_FILE", "./.admin_token"),
		LogFile:   getenv("LOG_FILE", ""),
		DBDSN:     getenv("DB_DSN", "alphaphones.db"),
		MockAPI:   getenv("MOCK_BACKEND", "1") != "0",
	}
	log.Printf("[config] PORT=%s API_URL=%s MOCK_BACKEND=%v DB_DSN=%s MEDIA_DIR=%s",
		cfg.Port, cfg.APIURL, cfg.MockAPI, cfg.DBDSN, cfg.MediaDir)
	return cfg
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
