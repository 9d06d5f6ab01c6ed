package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

type Config struct {
	ListenAddress string `toml:"ListenAddress"`
	DataDir       string `toml:"DataDir"`
	Environment   string `toml:"Environment"`
	Token         string `toml:"Token"`
	PriceMinor    uint64 `toml:"PriceMinor"`
	OwnerAddress  string `toml:"OwnerAddress"`
	VaultAddress  string `toml:"VaultAddress"`
}

// Load loads the configuration from the given path, writing a commented
// default file on first run.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.ListenAddress) == "" {
		cfg.ListenAddress = ":9464"
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./solvend-data"
	}
	if strings.TrimSpace(cfg.Token) == "" {
		cfg.Token = "USDT"
	}
	if cfg.PriceMinor == 0 {
		cfg.PriceMinor = 1_000_000
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the address fields decode to 20-byte identities when set.
func (c *Config) Validate() error {
	for name, value := range map[string]string{
		"OwnerAddress": c.OwnerAddress,
		"VaultAddress": c.VaultAddress,
	} {
		if strings.TrimSpace(value) == "" {
			continue
		}
		if _, err := ParseAddress(value); err != nil {
			return fmt.Errorf("config: %s: %w", name, err)
		}
	}
	return nil
}

// ParseAddress decodes a 40-char hex identity.
func ParseAddress(value string) ([20]byte, error) {
	var addr [20]byte
	raw, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(value), "0x"))
	if err != nil {
		return addr, err
	}
	if len(raw) != len(addr) {
		return addr, fmt.Errorf("expected %d bytes, got %d", len(addr), len(raw))
	}
	copy(addr[:], raw)
	return addr, nil
}

func createDefault(path string) (*Config, error) {
	cfg := &Config{
		ListenAddress: ":9464",
		DataDir:       "./solvend-data",
		Environment:   "dev",
		Token:         "USDT",
		PriceMinor:    1_000_000,
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
