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
	StoreDriverPostgres = "postgres"
	StoreDriverMongo    = "mongo"
)

type Config struct {
	ServerPort string

	StoreDriver  string
	StoreTimeout time.Duration

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	MongoURI      string
	MongoDatabase string

	RedisURL    string
	WorkerCount int

	JWTSecret string

	AccessTokenMaxAge  int
	RefreshTokenMaxAge int

	DislikeThreshold  int
	PostIDAttempts    int
	AllowWalletHeader bool
	RestrictToState   bool
	ModeratorWallets  []string

	PinEndpoint        string
	PinRegion          string
	PinAccessKeyID     string
	PinSecretAccessKey string
	PinBucket          string
	IPFSGatewayURL     string
}

func LoadConfig() (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found or error loading it, relying on environment variables")
	}

	storeDriver := strings.ToLower(os.Getenv("STORE_DRIVER"))
	if storeDriver == "" {
		storeDriver = StoreDriverPostgres
	}

	storeTimeoutMs, err := strconv.Atoi(os.Getenv("STORE_TIMEOUT_MS"))
	if err != nil || storeTimeoutMs <= 0 {
		storeTimeoutMs = 5000
	}

	accessTokenMaxAge, err := strconv.Atoi(os.Getenv("ACCESS_TOKEN_MAX_AGE"))
	if err != nil || accessTokenMaxAge <= 0 {
		accessTokenMaxAge = 900
	}

	refreshTokenMaxAge, err := strconv.Atoi(os.Getenv("REFRESH_TOKEN_MAX_AGE"))
	if err != nil || refreshTokenMaxAge <= 0 {
		refreshTokenMaxAge = 2592000
	}

	// 0 is meaningful here: it turns moderation off.
	dislikeThreshold, err := strconv.Atoi(os.Getenv("DISLIKE_THRESHOLD"))
	if err != nil || dislikeThreshold < 0 {
		dislikeThreshold = 10
	}

	postIDAttempts, err := strconv.Atoi(os.Getenv("POST_ID_ATTEMPTS"))
	if err != nil || postIDAttempts <= 0 {
		postIDAttempts = 3
	}

	workerCount, err := strconv.Atoi(os.Getenv("WORKER_COUNT"))
	if err != nil || workerCount <= 0 {
		workerCount = 2
	}

	serverPort := os.Getenv("SERVER_PORT")
	if serverPort == "" {
		serverPort = "8080"
	}

	sslMode := os.Getenv("DB_SSLMODE")
	if sslMode == "" {
		sslMode = "require"
	}

	mongoDatabase := os.Getenv("MONGO_DATABASE")
	if mongoDatabase == "" {
		mongoDatabase = "ghostpic"
	}

	pinRegion := os.Getenv("PIN_REGION")
	if pinRegion == "" {
		pinRegion = "us-east-1"
	}

	gateway := os.Getenv("IPFS_GATEWAY_URL")
	if gateway == "" {
		gateway = "https://ipfs.io"
	}

	return &Config{
		ServerPort: serverPort,

		StoreDriver:  storeDriver,
		StoreTimeout: time.Duration(storeTimeoutMs) * time.Millisecond,

		DBHost:     os.Getenv("DB_HOST"),
		DBPort:     os.Getenv("DB_PORT"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),
		DBSSLMode:  sslMode,

		MongoURI:      os.Getenv("MONGO_URI"),
		MongoDatabase: mongoDatabase,

		RedisURL:    os.Getenv("REDIS_URL"),
		WorkerCount: workerCount,

		JWTSecret: os.Getenv("JWT_SECRET"),

		AccessTokenMaxAge:  accessTokenMaxAge,
		RefreshTokenMaxAge: refreshTokenMaxAge,

		DislikeThreshold:  dislikeThreshold,
		PostIDAttempts:    postIDAttempts,
		AllowWalletHeader: parseBool(os.Getenv("ALLOW_WALLET_HEADER")),
		RestrictToState:   parseBool(os.Getenv("RESTRICT_TO_STATE")),
		ModeratorWallets:  splitList(os.Getenv("MODERATOR_WALLETS")),

		PinEndpoint:        os.Getenv("PIN_ENDPOINT"),
		PinRegion:          pinRegion,
		PinAccessKeyID:     os.Getenv("PIN_ACCESS_KEY_ID"),
		PinSecretAccessKey: os.Getenv("PIN_SECRET_ACCESS_KEY"),
		PinBucket:          os.Getenv("PIN_BUCKET"),
		IPFSGatewayURL:     strings.TrimSuffix(gateway, "/"),
	}, nil
}

// PinningEnabled reports whether server-side image pinning is configured.
func (c *Config) PinningEnabled() bool {
	return c.PinEndpoint != "" && c.PinAccessKeyID != "" && c.PinSecretAccessKey != "" && c.PinBucket != ""
}

func parseBool(v string) bool {
	b, err := strconv.ParseBool(v)
	return err == nil && b
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
