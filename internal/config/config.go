// Package config handles platform configuration
package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	HTTPAddr       string
	GeminiAPIKey   string
	GeminiModel    string
	SampleInterval time.Duration // cadence of the capture/analysis tick
	JPEGQuality    int           // 1-100, low favors payload size over fidelity
	MaxFrameWidth  int           // frames wider than this are downscaled
	SettingsDir    string        // empty means os.UserConfigDir
}

func Load() *Config {
	return &Config{
		HTTPAddr:       getEnv("HTTP_ADDR", ":8000"),
		GeminiAPIKey:   getEnv("GEMINI_API_KEY", ""),
		GeminiModel:    getEnv("GEMINI_MODEL", "gemini-3-flash-preview"),
		SampleInterval: time.Duration(getEnvFloat("SAMPLE_INTERVAL_SECONDS", 5.0) * float64(time.Second)),
		JPEGQuality:    getEnvInt("JPEG_QUALITY", 60),
		MaxFrameWidth:  getEnvInt("MAX_FRAME_WIDTH", 1280),
		SettingsDir:    getEnv("SETTINGS_DIR", ""),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
