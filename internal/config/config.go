package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AccountsPath    string
	WatchAccounts   bool
	Network         string
	StorageDriver   string
	StoragePath     string
	MongoURI        string
	MongoDatabase   string
	RefreshInterval time.Duration
	RefreshOffset   time.Duration
	TronGridAPIKey  string
	TRC20Balances   bool
	LogPath         string
}

// Account is one wallet key entry of the accounts file.
type Account struct {
	PrivateKey string   `json:"pk"`
	Passphrase string   `json:"passphrase,omitempty"`
	Indexes    []uint32 `json:"indexes,omitempty"`
	Active     bool     `json:"active,omitempty"`
}

func Load() Config {
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found, using default values")
	}

	intervalSec := parseIntWithDefault(os.Getenv("REFRESH_INTERVAL_SECONDS"), 300)
	if intervalSec == 0 {
		intervalSec = 300
	}
	offsetSec := parseIntWithDefault(os.Getenv("REFRESH_OFFSET_SECONDS"), 10)

	storagePath := strings.TrimSpace(os.Getenv("STORAGE_PATH"))
	driver := strings.ToLower(strings.TrimSpace(os.Getenv("STORAGE_DRIVER")))
	if driver == "" {
		driver = "sqlite"
	}
	if storagePath == "" {
		storagePath = "data/tron-assets.db"
		if driver == "badger" {
			storagePath = "data/badger"
		}
	}

	return Config{
		AccountsPath:    stringWithDefault(os.Getenv("ACCOUNTS_PATH"), "configs/accounts.json"),
		WatchAccounts:   parseBoolWithDefault(os.Getenv("WATCH_ACCOUNTS"), true),
		Network:         stringWithDefault(os.Getenv("NETWORK"), DefaultNetwork),
		StorageDriver:   driver,
		StoragePath:     storagePath,
		MongoURI:        strings.TrimSpace(os.Getenv("MONGO_URI")),
		MongoDatabase:   stringWithDefault(os.Getenv("MONGO_DATABASE"), "tron_assets"),
		RefreshInterval: time.Duration(intervalSec) * time.Second,
		RefreshOffset:   time.Duration(offsetSec) * time.Second,
		TronGridAPIKey:  strings.TrimSpace(os.Getenv("TRONGRID_API_KEY")),
		TRC20Balances:   parseBoolWithDefault(os.Getenv("TRC20_BALANCES"), false),
		LogPath:         stringWithDefault(os.Getenv("LOG_PATH"), "logs/app.log"),
	}
}

func parseIntWithDefault(value string, defaultVal int) int {
	value = strings.TrimSpace(value)
	if value == "" {
		return defaultVal
	}
	if v, err := strconv.Atoi(value); err == nil && v >= 0 {
		return v
	}
	return defaultVal
}

func parseBoolWithDefault(value string, defaultVal bool) bool {
	value = strings.TrimSpace(value)
	if value == "" {
		return defaultVal
	}
	if v, err := strconv.ParseBool(value); err == nil {
		return v
	}
	return defaultVal
}

func stringWithDefault(value, defaultVal string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return defaultVal
}

func (c Config) Validate() error {
	if _, ok := LookupNetwork(c.Network); !ok {
		return fmt.Errorf("unknown NETWORK %q", c.Network)
	}
	switch c.StorageDriver {
	case "sqlite", "badger", "memory":
	case "mongo":
		if c.MongoURI == "" {
			return errors.New("MONGO_URI required when STORAGE_DRIVER=mongo")
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}
	if c.RefreshInterval <= 0 {
		return errors.New("REFRESH_INTERVAL_SECONDS must be positive")
	}
	return nil
}

func (c Config) LoadAccounts() ([]Account, error) {
	b, err := os.ReadFile(c.AccountsPath)
	if err != nil {
		return nil, err
	}
	return ParseAccounts(b)
}

// ParseAccounts accepts either a JSON array of secrets or a JSON array of Account objects.
func ParseAccounts(b []byte) ([]Account, error) {
	var rawAccounts []string
	if err := json.Unmarshal(b, &rawAccounts); err == nil {
		accounts := make([]Account, 0, len(rawAccounts))
		for idx, entry := range rawAccounts {
			pk := strings.TrimSpace(entry)
			if pk == "" {
				return nil, fmt.Errorf("invalid account input: empty private key at index %d", idx)
			}
			accounts = append(accounts, Account{PrivateKey: pk})
		}
		return accounts, nil
	}

	var accounts []Account
	if err := json.Unmarshal(b, &accounts); err != nil {
		return nil, fmt.Errorf("failed to unmarshal accounts: %w", err)
	}
	for idx, a := range accounts {
		if strings.TrimSpace(a.PrivateKey) == "" {
			return nil, fmt.Errorf("invalid account input: empty private key at index %d", idx)
		}
	}

	return accounts, nil
}
