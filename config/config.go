package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	LogLevel      string `env:"LOG_LEVEL"`
	Telegram      Telegram
	Storage       Storage
	Postgres      Postgres
	Redis         Redis
	API           API
	Cache         Cache
	Jobs          Jobs
	GoogleDrive   GoogleDrive
	TopCoinsLimit int `env:"TOP_COINS_LIMIT" envDefault:"10"`
}

type Telegram struct {
	Token            string        `env:"TELEGRAM_TOKEN"`
	UpdTimeout       time.Duration `env:"TELEGRAM_UPD_TIMEOUT"`
	FileLimitInBytes int           `env:"TELEGRAM_FILE_LIMIT_IN_BYTES"`
}

// Storage selects the persistence backend: "file" or "postgres".
type Storage struct {
	Driver         string `env:"STORAGE_DRIVER" envDefault:"file"`
	PortfoliosFile string `env:"PORTFOLIOS_FILE" envDefault:"user_portfolios.json"`
	WatchlistsFile string `env:"WATCHLISTS_FILE" envDefault:"user_favorites.json"`
}

type Postgres struct {
	Host            string `env:"PG_HOST" envDefault:"localhost"`
	Port            int    `env:"PG_PORT" envDefault:"5432"`
	DbName          string `env:"PG_DB_NAME" envDefault:"crypto_tracker"`
	Password        string `env:"PG_PASSWORD" envDefault:""`
	User            string `env:"PG_USER" envDefault:"postgres"`
	MaxOpenConns    int    `env:"PG_MAX_OPEN_CONNS" envDefault:"10"`
	ConnMaxLifetime int    `env:"PG_CONN_MAX_LIFETIME" envDefault:"300"`
	MaxIdleConns    int    `env:"PG_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxIdleTime int    `env:"PG_CONN_MAX_IDLE_TIME" envDefault:"60"`
	MigrationDir    string `env:"PG_MIGRATION_DIR" envDefault:"migrations"`
}

type Redis struct {
	Host     string `env:"REDIS_HOST"`
	Port     int    `env:"REDIS_PORT"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB"`
}

type API struct {
	Debug     bool          `env:"API_DEBUG"`
	Timeout   time.Duration `env:"API_TIMEOUT"`
	CoinGecko CoinGecko
}

type CoinGecko struct {
	Url string `env:"COINGECKO_API_URL" envDefault:"https://api.coingecko.com/api/v3"`
}

type Cache struct {
	PricesExpiration  time.Duration `env:"CACHE_PRICES_EXPIRATION"`
	MarketsExpiration time.Duration `env:"CACHE_MARKETS_EXPIRATION"`
}

type Jobs struct {
	RefreshMarketsInterval time.Duration `env:"REFRESH_MARKETS_JOB_INTERVAL"`
	DriveCleanupInterval   time.Duration `env:"DRIVE_CLEANUP_JOB_INTERVAL"`
}

type GoogleDrive struct {
	CredentialsFile string        `env:"GOOGLE_DRIVE_CREDENTIALS_FILE"`
	FileTTL         time.Duration `env:"GOOGLE_DRIVE_FILE_TTL"`
}

func MustLoad() *Config {
	_ = godotenv.Load(".env")

	cfg := &Config{}

	opts := env.Options{RequiredIfNoDef: true}

	if err := env.ParseWithOptions(cfg, opts); err != nil {
		log.Fatalf("parse config error: %s", err)
	}

	return cfg
}
