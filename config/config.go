package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultAirbnbURL = "https://www.airbnb.com/s/Ger%C3%AAs--Portugal/homes?refinement_paths%5B%5D=%2Fhomes" +
		"&date_picker_type=calendar&checkin={checkin}&checkout={checkout}&price_filter_num_nights=1" +
		"&room_types%5B%5D=Entire%20home%2Fapt&place_id=ChIJXTwMUMIYJQ0RMAqBT8DrAAo"
	defaultBookingURL = "https://www.booking.com/searchresults.en-gb.html?ss=Geres&lang=en-gb" +
		"&dest_id=900040488&dest_type=city&checkin={checkin}&checkout={checkout}" +
		"&group_adults=2&no_rooms=1&group_children=0"
)

// Scrape modes.
const (
	ModeSequential = "sequential"
	ModeConcurrent = "concurrent"
)

// Storage backends.
const (
	BackendMongo    = "mongo"
	BackendPostgres = "postgres"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	GeminiAPIKey     string
	GeminiModel      string
	VisionMaxRetries int

	StorageBackend string
	MongoURI       string
	MongoDatabase  string

	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	ScreenshotsDir     string
	ScreenshotAttempts int
	JSONOutputDir      string
	CSVOutputPath      string

	Headless  bool
	ChromeBin string

	Mode       string
	StartDate  string
	EndDate    string
	AirbnbURL  string
	BookingURL string
	DatePause  time.Duration

	LogLevel string
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		GeminiAPIKey:     getEnv("GEMINI_API_KEY", ""),
		GeminiModel:      getEnv("GEMINI_MODEL", "gemini-2.0-flash-exp"),
		VisionMaxRetries: getEnvInt("VISION_MAX_RETRIES", 3),

		StorageBackend: strings.ToLower(getEnv("STORAGE_BACKEND", BackendMongo)),
		MongoURI:       getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDatabase:  getEnv("MONGODB_DATABASE", "oliveiras"),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "scraper"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "scraper123"),
		PostgresDB:       getEnv("POSTGRES_DB", "rental_db"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		ScreenshotsDir:     getEnv("SCREENSHOTS_DIR", "data/screenshots"),
		ScreenshotAttempts: getEnvInt("SCREENSHOT_ATTEMPTS", 3),
		JSONOutputDir:      getEnv("JSON_OUTPUT_DIR", "json_listings"),
		CSVOutputPath:      getEnv("CSV_OUTPUT_PATH", "./output/listings.csv"),

		Headless:  getEnvBool("HEADLESS", false),
		ChromeBin: getEnv("CHROME_BIN", ""),

		Mode:       strings.ToLower(getEnv("SCRAPE_MODE", ModeConcurrent)),
		StartDate:  getEnv("START_DATE", "2025-03-05"),
		EndDate:    getEnv("END_DATE", "2025-03-07"),
		AirbnbURL:  getEnv("AIRBNB_URL", defaultAirbnbURL),
		BookingURL: getEnv("BOOKING_URL", defaultBookingURL),
		DatePause:  time.Duration(getEnvInt("DATE_PAUSE_MS", 10000)) * time.Millisecond,

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}
