package app

import (
	"context"
	"io"
	"math/big"
	"sync"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/multiprice-oracle/business/oracle/domain"
	"github.com/fd1az/multiprice-oracle/internal/apperror"
	"github.com/fd1az/multiprice-oracle/internal/config"
	"github.com/fd1az/multiprice-oracle/internal/logger"
)

var (
	usdc = common.HexToAddress(config.MainnetUSDC)
	usdt = common.HexToAddress(config.MainnetUSDT)
	dai  = common.HexToAddress(config.MainnetDAI)
	weth = common.HexToAddress(config.MainnetWETH)
	wbtc = common.HexToAddress(config.MainnetWBTC)
	snx  = common.HexToAddress("0xC011a73ee8576Fb46F5E1c5751cA3B9Fe0af2a6F")
	yfi  = common.HexToAddress("0x0bc529c00C6401aEF6D220BE8C6Ea1667F6Ad93e")

	uniV2  = common.HexToAddress(config.MainnetUniswapV2)
	sushi  = common.HexToAddress(config.MainnetSushiswap)
	uniV3  = common.HexToAddress(config.MainnetUniswapV3)
	feedRg = common.HexToAddress(config.MainnetFeedRegistry)

	poolUSDCWETH = common.HexToAddress("0x8ad599c3A0ff1De082011EFDDc58f1908eb6e6D8")
	poolWBTCWETH = common.HexToAddress("0x4585FE77225b41b697C938B018E2Ac67Ac5a20c0")
	poolSNXWETH  = common.HexToAddress("0xEDe8dd046586d22625Ae7fF2708F879eF7bdb8CF")

	pairV2USDCWETH  = common.HexToAddress("0xB4e16d0168e52d35CaCD2c6185b44281Ec28C9Dc")
	pairV2WBTCUSDC  = common.HexToAddress("0x004375Dff511095CC5A197A54140a24eFEF3A416")
	pairSLPUSDCWETH = common.HexToAddress("0x397FF1542f962076d0BFE58eA045FfA2d347ACa0")
	pairSLPWBTCWETH = common.HexToAddress("0xCEfF51756c56CeFFCA006cD410B03FFC46dd3a58")
)

const snapshotTime = 1_700_000_000

func bi(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("bad big int " + s)
	}
	return v
}

func units(n int64, decimals int) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
}

type pairKey struct{ a, b common.Address }

func sortedKey(a, b common.Address) pairKey {
	if b.Cmp(a) < 0 {
		a, b = b, a
	}
	return pairKey{a, b}
}

type clPoolState struct {
	slot0        domain.Slot0
	observations map[uint16]domain.Observation
	meanTick     int64
}

// fakeChain serves every read port from in-memory mainnet-shaped state.
type fakeChain struct {
	mu sync.Mutex

	snapshot domain.Snapshot
	decimals map[common.Address]uint8
	feeds    map[pairKey]domain.FeedAnswer

	clPools map[pairKey]map[uint32]common.Address
	clState map[common.Address]*clPoolState

	cpPairs  map[common.Address]map[pairKey]common.Address
	reserves map[common.Address]domain.Reserves

	decimalsCalls atomic.Int32
	snapshotCalls atomic.Int32
	getPairErr    error
}

func newFakeChain() *fakeChain {
	c := &fakeChain{
		snapshot: domain.Snapshot{Number: big.NewInt(15_000_000), Time: snapshotTime},
		decimals: map[common.Address]uint8{
			usdc: 6, usdt: 6, dai: 18, weth: 18, wbtc: 8, snx: 18, yfi: 18,
		},
		feeds:    make(map[pairKey]domain.FeedAnswer),
		clPools:  make(map[pairKey]map[uint32]common.Address),
		clState:  make(map[common.Address]*clPoolState),
		cpPairs:  make(map[common.Address]map[pairKey]common.Address),
		reserves: make(map[common.Address]domain.Reserves),
	}

	// Registry: ETH/USD 2850, BTC/USD 40250, SNX/USD 3.
	c.feeds[pairKey{DenominationETH, DenominationUSD}] = domain.FeedAnswer{Answer: units(2850, 8), Decimals: 8, UpdatedAt: snapshotTime - 60}
	c.feeds[pairKey{DenominationBTC, DenominationUSD}] = domain.FeedAnswer{Answer: units(40250, 8), Decimals: 8, UpdatedAt: snapshotTime - 60}
	c.feeds[pairKey{snx, DenominationUSD}] = domain.FeedAnswer{Answer: units(3, 8), Decimals: 8, UpdatedAt: snapshotTime - 60}

	// Concentrated liquidity: USDC/WETH at the canonical tier, WBTC/WETH only
	// at 500, SNX/WETH with ten minutes of history.
	c.addCLPool(usdc, weth, 3000, poolUSDCWETH, bi("1485382997291293573771133091140693"), 196783, 5, 100, 86_400)
	c.addCLPool(wbtc, weth, 500, poolWBTCWETH, bi("29750148649872692488224426089879831"), 256733, 40, 50, 86_400)
	c.addCLPool(snx, weth, 3000, poolSNXWETH, bi("2567285886331324574172843585"), -68594, 2, 10, 600)

	// cp-a: USDC/WETH at 2840 and a direct WBTC/USDC pair at 40000.
	c.addPair(uniV2, usdc, weth, pairV2USDCWETH, units(28_400_000, 6), units(10_000, 18))
	c.addPair(uniV2, wbtc, usdc, pairV2WBTCUSDC, units(100, 8), units(4_000_000, 6))

	// cp-b: USDC/WETH at 2842 and WBTC/WETH at 14.08.
	c.addPair(sushi, usdc, weth, pairSLPUSDCWETH, units(28_420_000, 6), units(10_000, 18))
	c.addPair(sushi, wbtc, weth, pairSLPWBTCWETH, units(500, 8), units(7040, 18))

	return c
}

// addCLPool registers a pool whose oldest observation is history seconds old.
func (c *fakeChain) addCLPool(a, b common.Address, fee uint32, pool common.Address, sqrtP *big.Int, meanTick int64, idx, card uint16, history uint32) {
	k := sortedKey(a, b)
	if c.clPools[k] == nil {
		c.clPools[k] = make(map[uint32]common.Address)
	}
	c.clPools[k][fee] = pool

	obs := map[uint16]domain.Observation{
		0:   {BlockTimestamp: snapshotTime - history, TickCumulative: big.NewInt(0), Initialized: true},
		idx: {BlockTimestamp: snapshotTime - 12, TickCumulative: big.NewInt(0), Initialized: true},
	}
	if history >= 86_400 {
		// Buffer has wrapped: the slot after idx holds the oldest entry.
		obs[(idx+1)%card] = domain.Observation{BlockTimestamp: snapshotTime - history, TickCumulative: big.NewInt(0), Initialized: true}
		obs[0] = domain.Observation{BlockTimestamp: snapshotTime - 3600, TickCumulative: big.NewInt(0), Initialized: true}
	}

	c.clState[pool] = &clPoolState{
		slot0: domain.Slot0{
			SqrtPriceX96:           sqrtP,
			Tick:                   int32(meanTick),
			ObservationIndex:       idx,
			ObservationCardinality: card,
		},
		observations: obs,
		meanTick:     meanTick,
	}
}

func (c *fakeChain) addPair(factory, a, b, pair common.Address, reserveA, reserveB *big.Int) {
	if c.cpPairs[factory] == nil {
		c.cpPairs[factory] = make(map[pairKey]common.Address)
	}
	c.cpPairs[factory][sortedKey(a, b)] = pair
	if b.Cmp(a) < 0 {
		reserveA, reserveB = reserveB, reserveA
	}
	c.reserves[pair] = domain.Reserves{Reserve0: reserveA, Reserve1: reserveB}
}

func (c *fakeChain) Snapshot(context.Context) (domain.Snapshot, error) {
	c.snapshotCalls.Add(1)
	return domain.Snapshot{Number: new(big.Int).Set(c.snapshot.Number), Time: c.snapshot.Time}, nil
}

func (c *fakeChain) Decimals(_ context.Context, _ domain.Snapshot, token common.Address) (uint8, error) {
	c.decimalsCalls.Add(1)
	d, ok := c.decimals[token]
	if !ok {
		return 0, apperror.New(apperror.CodeContractCallFailed, apperror.WithContext("decimals() reverted"))
	}
	return d, nil
}

func (c *fakeChain) LatestAnswer(_ context.Context, _ domain.Snapshot, base, quote common.Address) (domain.FeedAnswer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ans, ok := c.feeds[pairKey{base, quote}]
	if !ok {
		return domain.FeedAnswer{}, domain.SourceUnavailable(apperror.MsgRateNotAvailable, "Feed not found")
	}
	return ans, nil
}

func (c *fakeChain) GetPool(_ context.Context, _ domain.Snapshot, a, b common.Address, fee uint32) (common.Address, error) {
	return c.clPools[sortedKey(a, b)][fee], nil
}

func (c *fakeChain) Slot0(_ context.Context, _ domain.Snapshot, pool common.Address) (domain.Slot0, error) {
	st, ok := c.clState[pool]
	if !ok {
		return domain.Slot0{}, apperror.New(apperror.CodeContractCallFailed)
	}
	return st.slot0, nil
}

func (c *fakeChain) Observation(_ context.Context, _ domain.Snapshot, pool common.Address, index uint16) (domain.Observation, error) {
	return c.clState[pool].observations[index], nil
}

func (c *fakeChain) Observe(_ context.Context, _ domain.Snapshot, pool common.Address, secondsAgos []uint32) ([]*big.Int, error) {
	st := c.clState[pool]
	base := big.NewInt(st.meanTick * 1_000_000)
	out := make([]*big.Int, len(secondsAgos))
	for i, ago := range secondsAgos {
		back := new(big.Int).Mul(big.NewInt(st.meanTick), big.NewInt(int64(ago)))
		out[i] = new(big.Int).Sub(base, back)
	}
	return out, nil
}

func (c *fakeChain) GetPair(_ context.Context, _ domain.Snapshot, factory, a, b common.Address) (common.Address, error) {
	if c.getPairErr != nil {
		return common.Address{}, c.getPairErr
	}
	return c.cpPairs[factory][sortedKey(a, b)], nil
}

func (c *fakeChain) Reserves(_ context.Context, _ domain.Snapshot, pair common.Address) (domain.Reserves, error) {
	return c.reserves[pair], nil
}

func testOracleConfig() *config.OracleConfig {
	return &config.OracleConfig{
		FeedRegistry: config.MainnetFeedRegistry,
		CLFactory:    config.MainnetUniswapV3,
		CLPoolFee:    3000,
		CLFeeTiers:   []uint32{500, 3000, 10000},
		CPA:          config.ConstantProductConfig{Name: "uniswap-v2", Factory: config.MainnetUniswapV2},
		CPB:          config.ConstantProductConfig{Name: "sushiswap", Factory: config.MainnetSushiswap},
		WETH:         config.MainnetWETH,
		USDEquivalents: []string{
			config.MainnetUSDC, config.MainnetUSDT, config.MainnetDAI,
		},
		FeedAliases: map[string]string{
			config.MainnetWETH: config.DenominationETH,
			config.MainnetWBTC: config.DenominationBTC,
		},
		StrictSources: true,
	}
}

func newTestEngine(chain *fakeChain, mutate ...func(*config.OracleConfig)) *Engine {
	cfg := testOracleConfig()
	for _, m := range mutate {
		m(cfg)
	}
	e, err := NewEngine(NewSettings(cfg), Deps{
		Snapshots: chain,
		Tokens:    chain,
		Feeds:     chain,
		CLPools:   chain,
		CPPairs:   chain,
	}, logger.New(io.Discard, logger.LevelError, "test", nil))
	if err != nil {
		panic(err)
	}
	return e
}
