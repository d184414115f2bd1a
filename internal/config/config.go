// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/rovshanmuradov/sui-lending/internal/amount"
	"github.com/rovshanmuradov/sui-lending/internal/risk"
)

type Config struct {
	RPCList      []string  `mapstructure:"rpc_list"`
	RPCRateLimit float64   `mapstructure:"rpc_rate_limit"`
	RPCTimeoutMs int       `mapstructure:"rpc_timeout_ms"`
	Retries      int       `mapstructure:"retries"`
	Wallet       string    `mapstructure:"wallet_address"`
	SignerURL    string    `mapstructure:"signer_url"`
	DebugLogging bool      `mapstructure:"debug_logging"`
	LogFile      string    `mapstructure:"log_file"`
	MetricsAddr  string    `mapstructure:"metrics_addr"`
	Contracts    Contracts `mapstructure:"contracts"`
	Protocol     Protocol  `mapstructure:"protocol"`
	Polling      Polling   `mapstructure:"polling"`
	Storage      Storage   `mapstructure:"storage"`
}

// Contracts содержит адреса объектов протокола в сети
type Contracts struct {
	PackageID              string `mapstructure:"package_id"`
	LendingPool            string `mapstructure:"lending_pool"`
	LendingPoolWithStaking string `mapstructure:"lending_pool_with_staking"`
	PriceOracle            string `mapstructure:"price_oracle"`
	StablecoinTreasury     string `mapstructure:"stablecoin_treasury"`
	StakingManager         string `mapstructure:"staking_manager"`
	ShortPositionManager   string `mapstructure:"short_position_manager"`
	SUSDCoinType           string `mapstructure:"susd_coin_type"`
}

// Protocol holds business policy; amounts are decimal strings in display units.
type Protocol struct {
	MaxLTVPercent               int64  `mapstructure:"max_ltv_percent"`
	LiquidationThresholdPercent int64  `mapstructure:"liquidation_threshold_percent"`
	MinDepositSUI               string `mapstructure:"min_deposit_sui"`
	MinBorrowSUSD               string `mapstructure:"min_borrow_susd"`
	MinRepaySUSD                string `mapstructure:"min_repay_susd"`
	MinWithdrawSUI              string `mapstructure:"min_withdraw_sui"`
	GasReserveSUI               string `mapstructure:"gas_reserve_sui"`
	PricePrecision              int64  `mapstructure:"price_precision"`
	FallbackPriceUSD            string `mapstructure:"fallback_price_usd"`
	DefaultGasMist              uint64 `mapstructure:"default_gas_mist"`
}

type Polling struct {
	PositionMs int `mapstructure:"position_ms"`
	PriceMs    int `mapstructure:"price_ms"`
	StatsMs    int `mapstructure:"stats_ms"`
	BalanceMs  int `mapstructure:"balance_ms"`
}

type Storage struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// Policy is Protocol with every value parsed.
type Policy struct {
	Risk           risk.Params
	MinDeposit     amount.TokenAmount
	MinBorrow      amount.TokenAmount
	MinRepay       amount.TokenAmount
	MinWithdraw    amount.TokenAmount
	GasReserve     amount.TokenAmount
	PricePrecision decimal.Decimal
	FallbackPrice  decimal.Decimal
	DefaultGas     amount.TokenAmount
}

const (
	DefaultRPCRateLimit   = 20
	DefaultRPCTimeoutMs   = 10000
	DefaultRetries        = 3
	DefaultPositionMs     = 5000
	DefaultPriceMs        = 10000
	DefaultStatsMs        = 15000
	DefaultBalanceMs      = 5000
	DefaultPricePrecision = 10000
	DefaultGasMist        = 10000000

	envPrefix = "SUI_LENDING"
)

func LoadConfig(path string) (*Config, error) {
	// .env рядом с конфигом подхватываем до чтения переменных окружения
	envFile := filepath.Join(filepath.Dir(path), ".env")
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	v := viper.New()
	v.SetConfigFile(path)

	defaults := map[string]interface{}{
		"rpc_rate_limit":                         DefaultRPCRateLimit,
		"rpc_timeout_ms":                         DefaultRPCTimeoutMs,
		"retries":                                DefaultRetries,
		"log_file":                               "lending.log",
		"protocol.max_ltv_percent":               50,
		"protocol.liquidation_threshold_percent": 75,
		"protocol.min_deposit_sui":               "0.001",
		"protocol.min_borrow_susd":               "1",
		"protocol.min_repay_susd":                "0.01",
		"protocol.min_withdraw_sui":              "0.001",
		"protocol.gas_reserve_sui":               "0.01",
		"protocol.price_precision":               DefaultPricePrecision,
		"protocol.fallback_price_usd":            "0.5",
		"protocol.default_gas_mist":              DefaultGasMist,
		"polling.position_ms":                    DefaultPositionMs,
		"polling.price_ms":                       DefaultPriceMs,
		"polling.stats_ms":                       DefaultStatsMs,
		"polling.balance_ms":                     DefaultBalanceMs,
		"storage.driver":                         "sqlite",
		"storage.dsn":                            "lending.db",
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := loadEnvironmentVariables(v, &cfg); err != nil {
		return nil, err
	}

	if cfg.Contracts.SUSDCoinType == "" && cfg.Contracts.PackageID != "" {
		cfg.Contracts.SUSDCoinType = cfg.Contracts.PackageID + "::stablecoin::STABLECOIN"
	}

	return &cfg, validateConfig(&cfg)
}

func validateConfig(cfg *Config) error {
	if len(cfg.RPCList) == 0 {
		return errors.New("rpc_list is empty")
	}
	for _, rpcURL := range cfg.RPCList {
		if err := validateURLWithCache(rpcURL, "http"); err != nil {
			return fmt.Errorf("invalid RPC URL %q: %w", rpcURL, err)
		}
	}
	if cfg.SignerURL != "" {
		if err := validateURLWithCache(cfg.SignerURL, "http"); err != nil {
			return fmt.Errorf("invalid signer_url %q: %w", cfg.SignerURL, err)
		}
		if cfg.Wallet == "" {
			return errors.New("signer_url requires wallet_address")
		}
	}
	if err := validateNumericParams(cfg); err != nil {
		return err
	}
	if cfg.Contracts.PackageID == "" {
		return errors.New("contracts.package_id is required")
	}
	if cfg.Storage.Driver != "sqlite" && cfg.Storage.Driver != "postgres" {
		return fmt.Errorf("unsupported storage driver %q", cfg.Storage.Driver)
	}
	if _, err := cfg.Policy(); err != nil {
		return err
	}
	return nil
}

func validateNumericParams(cfg *Config) error {
	if cfg.RPCRateLimit <= 0 {
		return errors.New("invalid rpc_rate_limit")
	}
	if cfg.RPCTimeoutMs <= 0 {
		return errors.New("invalid rpc_timeout_ms")
	}
	if cfg.Retries < 0 {
		return errors.New("invalid retries count")
	}
	p := cfg.Polling
	if p.PositionMs <= 0 || p.PriceMs <= 0 || p.StatsMs <= 0 || p.BalanceMs <= 0 {
		return errors.New("polling intervals must be positive")
	}
	if cfg.Protocol.PricePrecision <= 0 {
		return errors.New("invalid protocol.price_precision")
	}
	return nil
}

var urlCache sync.Map

func validateURLWithCache(rawURL string, protocol string) error {
	if _, ok := urlCache.Load(rawURL); ok {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, protocol) || parsed.Host == "" {
		return errors.New("invalid URL protocol")
	}
	urlCache.Store(rawURL, parsed)
	return nil
}

func loadEnvironmentVariables(v *viper.Viper, cfg *Config) error {
	v.AutomaticEnv()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if envRPCList := v.GetString("RPC_LIST"); envRPCList != "" {
		var cleanRPCs []string
		for _, rpc := range strings.Split(envRPCList, ",") {
			if clean := strings.TrimSpace(rpc); clean != "" {
				cleanRPCs = append(cleanRPCs, clean)
			}
		}
		if len(cleanRPCs) > 0 {
			cfg.RPCList = cleanRPCs
		}
	}

	if wallet := v.GetString("WALLET_ADDRESS"); wallet != "" {
		cfg.Wallet = wallet
	}
	if signer := v.GetString("SIGNER_URL"); signer != "" {
		cfg.SignerURL = signer
	}

	// адреса контрактов переопределяются переменными окружения
	overrides := map[string]*string{
		"PACKAGE_ID":                &cfg.Contracts.PackageID,
		"LENDING_POOL":              &cfg.Contracts.LendingPool,
		"LENDING_POOL_WITH_STAKING": &cfg.Contracts.LendingPoolWithStaking,
		"PRICE_ORACLE":              &cfg.Contracts.PriceOracle,
		"STABLECOIN_TREASURY":       &cfg.Contracts.StablecoinTreasury,
		"STAKING_MANAGER":           &cfg.Contracts.StakingManager,
		"SHORT_POSITION_MANAGER":    &cfg.Contracts.ShortPositionManager,
		"SUSD_COIN_TYPE":            &cfg.Contracts.SUSDCoinType,
	}
	for key, target := range overrides {
		if value := v.GetString(key); value != "" {
			*target = value
		}
	}
	return nil
}

// Policy parses protocol policy values into exact amounts.
func (c *Config) Policy() (Policy, error) {
	p := c.Protocol
	params := risk.ParamsFromPercent(p.MaxLTVPercent, p.LiquidationThresholdPercent)
	if err := params.Validate(); err != nil {
		return Policy{}, fmt.Errorf("invalid protocol risk params: %w", err)
	}

	parse := func(name, value string, token amount.Token) (amount.TokenAmount, error) {
		a, err := token.Parse(value)
		if err != nil {
			return amount.TokenAmount{}, fmt.Errorf("protocol.%s: %w", name, err)
		}
		return a, nil
	}

	var (
		policy = Policy{Risk: params, PricePrecision: decimal.NewFromInt(p.PricePrecision)}
		err    error
	)
	if policy.MinDeposit, err = parse("min_deposit_sui", p.MinDepositSUI, amount.SUI); err != nil {
		return Policy{}, err
	}
	if policy.MinBorrow, err = parse("min_borrow_susd", p.MinBorrowSUSD, amount.SUSD); err != nil {
		return Policy{}, err
	}
	if policy.MinRepay, err = parse("min_repay_susd", p.MinRepaySUSD, amount.SUSD); err != nil {
		return Policy{}, err
	}
	if policy.MinWithdraw, err = parse("min_withdraw_sui", p.MinWithdrawSUI, amount.SUI); err != nil {
		return Policy{}, err
	}
	if policy.GasReserve, err = parse("gas_reserve_sui", p.GasReserveSUI, amount.SUI); err != nil {
		return Policy{}, err
	}

	fallback, err := decimal.NewFromString(p.FallbackPriceUSD)
	if err != nil || fallback.IsNegative() {
		return Policy{}, fmt.Errorf("protocol.fallback_price_usd: invalid price %q", p.FallbackPriceUSD)
	}
	policy.FallbackPrice = fallback
	policy.DefaultGas = amount.FromUint64(p.DefaultGasMist, amount.SUI.Decimals)

	return policy, nil
}

// RPCTimeout returns the per-request timeout.
func (c *Config) RPCTimeout() time.Duration {
	return time.Duration(c.RPCTimeoutMs) * time.Millisecond
}

// Intervals returns polling periods as durations.
func (p Polling) Intervals() (position, price, stats, balance time.Duration) {
	ms := func(v int) time.Duration { return time.Duration(v) * time.Millisecond }
	return ms(p.PositionMs), ms(p.PriceMs), ms(p.StatsMs), ms(p.BalanceMs)
}
