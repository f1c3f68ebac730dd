package asset

import "github.com/ethereum/go-ethereum/common"

// Chain IDs
const (
	ChainIDEthereum = 1
	ChainIDSepolia  = 11155111
	ChainIDArbitrum = 42161
	ChainIDOptimism = 10
	ChainIDBase     = 8453
)

// Well-known token addresses on Ethereum Mainnet
var (
	// Stablecoins
	AddrUSDC = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	AddrUSDT = common.HexToAddress("0xdAC17F958D2ee523a2206206994597C13D831ec7")
	AddrDAI  = common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F")

	// Wrapped
	AddrWETH = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	AddrWBTC = common.HexToAddress("0x2260FAC5E5542a773Aa44fBCfeDf7C193bc2C599")

	// Long tail
	AddrSNX     = common.HexToAddress("0xC011a73ee8576Fb46F5E1c5751cA3B9Fe0af2a6F")
	AddrYFI     = common.HexToAddress("0x0bc529c00C6401aEF6D220BE8C6Ea1667F6Ad93e")
	AddrLINK    = common.HexToAddress("0x514910771AF9Ca656af840dff83E8264EcF986CA")
	AddrONEINCH = common.HexToAddress("0x111111111117dC0aa78b770fA6A738034120C302")
)

// Well-known Assets (pre-created instances)
var (
	USDC    = NewWithName(AddrUSDC, "USDC", "USD Coin", 6)
	USDT    = NewWithName(AddrUSDT, "USDT", "Tether USD", 6)
	DAI     = NewWithName(AddrDAI, "DAI", "Dai Stablecoin", 18)
	WETH    = NewWithName(AddrWETH, "WETH", "Wrapped Ether", 18)
	WBTC    = NewWithName(AddrWBTC, "WBTC", "Wrapped Bitcoin", 8)
	SNX     = NewWithName(AddrSNX, "SNX", "Synthetix Network Token", 18)
	YFI     = NewWithName(AddrYFI, "YFI", "yearn.finance", 18)
	LINK    = NewWithName(AddrLINK, "LINK", "ChainLink Token", 18)
	ONEINCH = NewWithName(AddrONEINCH, "1INCH", "1INCH Token", 18)
)

// DefaultRegistry returns a registry pre-populated with well-known mainnet tokens.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, a := range []*Asset{USDC, USDT, DAI, WETH, WBTC, SNX, YFI, LINK, ONEINCH} {
		r.Register(a)
	}
	return r
}
