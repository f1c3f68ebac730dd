// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Mainnet deployment addresses used as defaults.
const (
	MainnetFeedRegistry  = "0x47Fb2585D2C56Fe188D0E6ec628a38b74fCeeeDf"
	MainnetUniswapV3     = "0x1F98431c8aD98523631AE4a59f267346ea31F984"
	MainnetUniswapV2     = "0x5C69bEe701ef814a2B6a3EDD4B1652CB9cc5aA6f"
	MainnetSushiswap     = "0xC0AEe478e3658e2610c5F7A4A2E1777cE9e4f2Ac"
	MainnetWETH          = "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"
	MainnetWBTC          = "0x2260FAC5E5542a773Aa44fBCfeDf7C193bc2C599"
	MainnetUSDC          = "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"
	MainnetUSDT          = "0xdAC17F958D2ee523a2206206994597C13D831ec7"
	MainnetDAI           = "0x6B175474E89094C44Da98b954EedeAC495271d0F"
	DenominationETH      = "0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE"
	DenominationBTC      = "0xbBbBBBBbbBBBbbbBbbBbbbbBBbBbbbbBbBbbBBbB"
	DenominationUSD      = "0x0000000000000000000000000000000000000348"
	maxInclusionMask     = 31
	bufferFractionScale  = 18
	defaultClPoolFeeTier = 3000
)

// ValidFeeTiers are the concentrated-liquidity fee tiers a pool can be deployed at.
var ValidFeeTiers = []uint32{100, 500, 3000, 10000}

// Config holds all application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Ethereum  EthereumConfig  `mapstructure:"ethereum"`
	Oracle    OracleConfig    `mapstructure:"oracle"`
	Watch     WatchConfig     `mapstructure:"watch"`
	API       APIConfig       `mapstructure:"api"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
	LogFile     string `mapstructure:"log_file"`
	TUIMode     bool   `mapstructure:"-"` // Set at runtime, not from config file
}

// EthereumConfig holds Ethereum node configuration.
type EthereumConfig struct {
	WebSocketURL   string        `mapstructure:"websocket_url"`
	HTTPURL        string        `mapstructure:"http_url"`
	ChainID        uint64        `mapstructure:"chain_id"`
	MaxReconnects  int           `mapstructure:"max_reconnects"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff"`
	PollInterval   time.Duration `mapstructure:"poll_interval"`
	CallTimeout    time.Duration `mapstructure:"call_timeout"`
	RateLimitRPS   float64       `mapstructure:"rate_limit_rps"`
	RateLimitBurst int           `mapstructure:"rate_limit_burst"`
}

// ConstantProductConfig names one constant-product deployment.
type ConstantProductConfig struct {
	Name    string `mapstructure:"name"`
	Factory string `mapstructure:"factory"`
}

// FactoryHex returns the factory address as common.Address.
func (c ConstantProductConfig) FactoryHex() common.Address {
	return common.HexToAddress(c.Factory)
}

// OracleConfig holds the immutable deployment settings of the price engine.
type OracleConfig struct {
	FeedRegistry   string                `mapstructure:"feed_registry"`
	CLFactory      string                `mapstructure:"cl_factory"`
	CLPoolFee      uint32                `mapstructure:"cl_pool_fee"`
	CLFeeTiers     []uint32              `mapstructure:"cl_fee_tiers"`
	CLOracle       string                `mapstructure:"cl_oracle"`
	CPA            ConstantProductConfig `mapstructure:"cp_a"`
	CPB            ConstantProductConfig `mapstructure:"cp_b"`
	WETH           string                `mapstructure:"weth"`
	USDEquivalents []string              `mapstructure:"usd_equivalents"`
	FeedAliases    map[string]string     `mapstructure:"feed_aliases"`
	FeedMaxAge     time.Duration         `mapstructure:"feed_max_age"`
	StrictSources  bool                  `mapstructure:"strict_sources"`
}

// FeedRegistryHex returns the feed registry address as common.Address.
func (c *OracleConfig) FeedRegistryHex() common.Address {
	return common.HexToAddress(c.FeedRegistry)
}

// CLFactoryHex returns the concentrated-liquidity factory address.
func (c *OracleConfig) CLFactoryHex() common.Address {
	return common.HexToAddress(c.CLFactory)
}

// CLOracleHex returns the concentrated-liquidity oracle address (zero if unset).
func (c *OracleConfig) CLOracleHex() common.Address {
	if c.CLOracle == "" {
		return common.Address{}
	}
	return common.HexToAddress(c.CLOracle)
}

// WETHHex returns the native base asset address.
func (c *OracleConfig) WETHHex() common.Address {
	return common.HexToAddress(c.WETH)
}

// USDEquivalentsHex returns the USD-equivalent stable tokens in configured order.
func (c *OracleConfig) USDEquivalentsHex() []common.Address {
	out := make([]common.Address, 0, len(c.USDEquivalents))
	for _, s := range c.USDEquivalents {
		out = append(out, common.HexToAddress(s))
	}
	return out
}

// FeedAliasesHex returns the token -> registry denomination aliases.
func (c *OracleConfig) FeedAliasesHex() map[common.Address]common.Address {
	out := make(map[common.Address]common.Address, len(c.FeedAliases))
	for token, denom := range c.FeedAliases {
		out[common.HexToAddress(token)] = common.HexToAddress(denom)
	}
	return out
}

// WatchConfig drives the per-block combined quote watcher.
type WatchConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Pairs   []string `mapstructure:"pairs"` // "IN/OUT:AMOUNT", tokens by symbol or address
	Buffer  string   `mapstructure:"buffer"`
	Window  uint32   `mapstructure:"window"`
	Mask    uint     `mapstructure:"mask"`
}

// BufferFraction returns the buffer as a fraction of 1.0 scaled by 1e18.
func (c *WatchConfig) BufferFraction() (*big.Int, error) {
	return ParseBufferFraction(c.Buffer)
}

// APIConfig holds the HTTP query surface settings.
type APIConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Address      string        `mapstructure:"address"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	Exporter       string `mapstructure:"exporter"` // zipkin, otlp-grpc, otlp-http, console
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	OTLPHeaders    string `mapstructure:"otlp_headers"`
	PrometheusPort int    `mapstructure:"prometheus_port"`

	// SampleRatio is the share of root traces kept, in [0, 1].
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables
	v.SetEnvPrefix("MPO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindEnvVars(v)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, use env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	// App
	v.BindEnv("app.name", "MPO_APP_NAME", "SERVICE_NAME")
	v.BindEnv("app.environment", "MPO_ENVIRONMENT", "ENVIRONMENT")
	v.BindEnv("app.log_level", "MPO_LOG_LEVEL", "LOG_LEVEL")
	v.BindEnv("app.log_file", "MPO_LOG_FILE")

	// Ethereum
	v.BindEnv("ethereum.websocket_url", "MPO_ETH_WS_URL", "ETH_WS_URL")
	v.BindEnv("ethereum.http_url", "MPO_ETH_HTTP_URL", "ETH_HTTP_URL")
	v.BindEnv("ethereum.chain_id", "MPO_ETH_CHAIN_ID", "ETH_CHAIN_ID")

	// Oracle
	v.BindEnv("oracle.feed_registry", "MPO_FEED_REGISTRY")
	v.BindEnv("oracle.cl_factory", "MPO_CL_FACTORY")
	v.BindEnv("oracle.cl_pool_fee", "MPO_CL_POOL_FEE")
	v.BindEnv("oracle.cl_oracle", "MPO_CL_ORACLE")
	v.BindEnv("oracle.weth", "MPO_WETH")
	v.BindEnv("oracle.strict_sources", "MPO_STRICT_SOURCES")

	// Watch
	v.BindEnv("watch.enabled", "MPO_WATCH_ENABLED")
	v.BindEnv("watch.mask", "MPO_WATCH_MASK")
	v.BindEnv("watch.window", "MPO_WATCH_WINDOW")
	v.BindEnv("watch.buffer", "MPO_WATCH_BUFFER")

	// API
	v.BindEnv("api.address", "MPO_API_ADDRESS")

	// Telemetry
	v.BindEnv("telemetry.enabled", "MPO_OTEL_ENABLED", "OTEL_ENABLED")
	v.BindEnv("telemetry.service_name", "MPO_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	v.BindEnv("telemetry.otlp_endpoint", "MPO_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
	v.BindEnv("telemetry.exporter", "MPO_OTEL_EXPORTER")
	v.BindEnv("telemetry.sample_ratio", "MPO_OTEL_SAMPLE_RATIO", "OTEL_TRACES_SAMPLER_ARG")
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "multiprice-oracle")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	// Ethereum defaults
	v.SetDefault("ethereum.chain_id", 1)
	v.SetDefault("ethereum.max_reconnects", 0) // infinite
	v.SetDefault("ethereum.initial_backoff", "1s")
	v.SetDefault("ethereum.max_backoff", "30s")
	v.SetDefault("ethereum.poll_interval", "12s")
	v.SetDefault("ethereum.call_timeout", "10s")
	v.SetDefault("ethereum.rate_limit_rps", 25)
	v.SetDefault("ethereum.rate_limit_burst", 50)

	// Oracle mainnet defaults
	v.SetDefault("oracle.feed_registry", MainnetFeedRegistry)
	v.SetDefault("oracle.cl_factory", MainnetUniswapV3)
	v.SetDefault("oracle.cl_pool_fee", defaultClPoolFeeTier)
	v.SetDefault("oracle.cl_fee_tiers", []uint32{500, 3000, 10000})
	v.SetDefault("oracle.cp_a.name", "uniswap-v2")
	v.SetDefault("oracle.cp_a.factory", MainnetUniswapV2)
	v.SetDefault("oracle.cp_b.name", "sushiswap")
	v.SetDefault("oracle.cp_b.factory", MainnetSushiswap)
	v.SetDefault("oracle.weth", MainnetWETH)
	v.SetDefault("oracle.usd_equivalents", []string{MainnetUSDC, MainnetUSDT, MainnetDAI})
	v.SetDefault("oracle.feed_aliases", map[string]string{
		MainnetWETH: DenominationETH,
		MainnetWBTC: DenominationBTC,
	})
	v.SetDefault("oracle.feed_max_age", "0s")
	v.SetDefault("oracle.strict_sources", true)

	// Watch defaults
	v.SetDefault("watch.enabled", true)
	v.SetDefault("watch.pairs", []string{"WETH/USDC:1", "USDC/WETH:10000", "WBTC/USDC:1"})
	v.SetDefault("watch.buffer", "0.01")
	v.SetDefault("watch.window", 1800)
	v.SetDefault("watch.mask", maxInclusionMask)

	// API defaults
	v.SetDefault("api.enabled", true)
	v.SetDefault("api.address", ":8080")
	v.SetDefault("api.read_timeout", "15s")
	v.SetDefault("api.write_timeout", "30s")

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "multiprice-oracle")
	v.SetDefault("telemetry.exporter", "otlp-grpc")
	v.SetDefault("telemetry.prometheus_port", 9090)
	v.SetDefault("telemetry.sample_ratio", 1.0)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Ethereum.HTTPURL == "" {
		return fmt.Errorf("ethereum.http_url is required")
	}
	if err := c.Oracle.Validate(); err != nil {
		return err
	}
	if c.Watch.Mask > maxInclusionMask {
		return fmt.Errorf("watch.mask must be within 0..%d, got %d", maxInclusionMask, c.Watch.Mask)
	}
	if c.Watch.Mask&0b10 != 0 && c.Watch.Window == 0 {
		return fmt.Errorf("watch.window must be positive when the twap source is enabled")
	}
	if _, err := c.Watch.BufferFraction(); err != nil {
		return fmt.Errorf("watch.buffer: %w", err)
	}
	if c.Watch.Enabled && len(c.Watch.Pairs) == 0 {
		return fmt.Errorf("watch.pairs cannot be empty when the watcher is enabled")
	}
	if r := c.Telemetry.SampleRatio; r < 0 || r > 1 {
		return fmt.Errorf("telemetry.sample_ratio must be within [0, 1], got %g", r)
	}
	return nil
}

// Validate checks every address and the fee tier selection.
func (c *OracleConfig) Validate() error {
	addrs := map[string]string{
		"oracle.feed_registry": c.FeedRegistry,
		"oracle.cl_factory":    c.CLFactory,
		"oracle.cp_a.factory":  c.CPA.Factory,
		"oracle.cp_b.factory":  c.CPB.Factory,
		"oracle.weth":          c.WETH,
	}
	for key, val := range addrs {
		if !common.IsHexAddress(val) {
			return fmt.Errorf("invalid %s: %q", key, val)
		}
	}
	if c.CLOracle != "" && !common.IsHexAddress(c.CLOracle) {
		return fmt.Errorf("invalid oracle.cl_oracle: %q", c.CLOracle)
	}
	for _, s := range c.USDEquivalents {
		if !common.IsHexAddress(s) {
			return fmt.Errorf("invalid oracle.usd_equivalents entry: %q", s)
		}
	}
	for token, denom := range c.FeedAliases {
		if !common.IsHexAddress(token) || !common.IsHexAddress(denom) {
			return fmt.Errorf("invalid oracle.feed_aliases entry: %s -> %s", token, denom)
		}
	}
	if !isValidFeeTier(c.CLPoolFee) {
		return fmt.Errorf("invalid oracle.cl_pool_fee: %d", c.CLPoolFee)
	}
	for _, fee := range c.CLFeeTiers {
		if !isValidFeeTier(fee) {
			return fmt.Errorf("invalid oracle.cl_fee_tiers entry: %d", fee)
		}
	}
	if c.CPA.Factory == c.CPB.Factory {
		return fmt.Errorf("oracle.cp_a and oracle.cp_b must use different factories")
	}
	if c.FeedMaxAge < 0 {
		return fmt.Errorf("oracle.feed_max_age cannot be negative")
	}
	return nil
}

// ParseBufferFraction converts a decimal fraction such as "0.01" into its
// 1e18-scaled integer form. Values outside [0, 1] are rejected.
func ParseBufferFraction(s string) (*big.Int, error) {
	if s == "" {
		return big.NewInt(0), nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid buffer %q: %w", s, err)
	}
	if d.IsNegative() || d.GreaterThan(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("buffer %q must be within [0, 1]", s)
	}
	scaled := d.Shift(bufferFractionScale)
	if !scaled.Equal(scaled.Truncate(0)) {
		return nil, fmt.Errorf("buffer %q has more than %d fractional digits", s, bufferFractionScale)
	}
	return scaled.BigInt(), nil
}

func isValidFeeTier(fee uint32) bool {
	for _, t := range ValidFeeTiers {
		if t == fee {
			return true
		}
	}
	return false
}
