package config

import (
	"os"      // For environment variables
	"strconv" // For string to int conversion
	"time"    // For lock TTL durations

	"github.com/joho/godotenv" // For loading .env files
)

// Config holds the application configuration
type Config struct {
	AppPort    string        // Application port
	DBDriver   string        // Database driver: mysql or sqlite
	DBUser     string        // Database user
	DBPassword string        // Database password
	DBHost     string        // Database host
	DBPort     string        // Database port
	DBName     string        // Database name
	DBPath     string        // SQLite database file
	JWTSecret  string        // JWT secret key
	RedisAddr  string        // Redis server address, empty disables Redis
	RedisPass  string        // Redis password
	RedisDB    int           // Redis database number
	LockTTL    time.Duration // Lease of per-record Redis locks
	LogLevel   string        // Logrus level name
	IsProd     bool          // Is production environment
	AdminUser  string        // Superadmin seeded by cmd/migrate
	AdminPass  string        // Password of the seeded superadmin
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	_ = godotenv.Load() // Load .env file if present
	redisDB, _ := strconv.Atoi(os.Getenv("REDIS_DB"))
	lockTTL, err := time.ParseDuration(getEnv("LOCK_TTL", "10s"))
	if err != nil {
		lockTTL = 10 * time.Second // Fall back to the default lease
	}
	return &Config{
		AppPort:    getEnv("APP_PORT", "8080"),       // Application port
		DBDriver:   getEnv("DB_DRIVER", "mysql"),     // Database driver
		DBUser:     os.Getenv("DB_USER"),             // Database user
		DBPassword: os.Getenv("DB_PASSWORD"),         // Database password
		DBHost:     os.Getenv("DB_HOST"),             // Database host
		DBPort:     os.Getenv("DB_PORT"),             // Database port
		DBName:     os.Getenv("DB_NAME"),             // Database name
		DBPath:     getEnv("DB_PATH", "fin_flow.db"), // SQLite database file
		JWTSecret:  os.Getenv("JWT_SECRET"),          // JWT secret key
		RedisAddr:  os.Getenv("REDIS_ADDR"),          // Redis server address
		RedisPass:  os.Getenv("REDIS_PASS"),          // Redis password
		RedisDB:    redisDB,                          // Redis database number
		LockTTL:    lockTTL,                          // Redis lock lease
		LogLevel:   getEnv("LOG_LEVEL", "info"),      // Log level
		IsProd:     os.Getenv("IS_PROD") == "true",   // Is production environment
		AdminUser:  os.Getenv("SUPERADMIN_USERNAME"), // Seeded superadmin
		AdminPass:  os.Getenv("SUPERADMIN_PASSWORD"), // Seeded superadmin password
	}
}

// MySQLDSN builds the Data Source Name for the MySQL driver
func (c *Config) MySQLDSN() string {
	return c.DBUser + ":" + c.DBPassword + "@tcp(" + c.DBHost + ":" + c.DBPort + ")/" + c.DBName + "?parseTime=true"
}

// getEnv returns the variable or fallback when it is unset
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
