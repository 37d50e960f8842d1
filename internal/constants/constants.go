package constants

import "time"

// Program addresses
const (
	RaydiumAMMv4Program = "675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8"
	MetadataProgram     = "metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s"
	TokenProgram        = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	NativeMint          = "So11111111111111111111111111111111111111112"
)

// NativeDecimals is the decimals of SOL and wrapped SOL
const NativeDecimals uint8 = 9

// PoolCreationMarker is the log fragment emitted by Raydium's initialize2 instruction
const PoolCreationMarker = "initialize2"

// Pool init account positions (initialize2)
const (
	PoolInitAMMIndex      = 4
	PoolInitCoinMintIndex = 8
	PoolInitPcMintIndex   = 9
	PoolInitMinAccounts   = 10
)

// Swap account positions for the 18-account swapBaseIn layout.
// The 17-account variant omits the target orders account and shifts each by one.
const (
	SwapUserSourceIndex      = 15
	SwapUserDestinationIndex = 16
	SwapUserOwnerIndex       = 17
	SwapFullAccountCount     = 18
	SwapShortAccountCount    = 17
)

// SettlementInnerIndex is the position of the settlement transfer inside the
// inner instruction group of a swap
const SettlementInnerIndex = 1

// Redis keys
const (
	RedisKeyRecentPools = "pools:recent"
	RedisKeyRecentSwaps = "swaps:recent"
	RedisKeyTokenPrefix = "token:"
)

// Redis Pub/Sub channels
const (
	PubSubChannelPools      = "pools:live"
	PubSubChannelSwaps      = "swaps:live"
	PubSubChannelPoolByMint = "pools:mint:%s"
)

// Runtime switches for the report sinks, all on unless stored otherwise
const (
	SwitchSinkCache  = "sink.cache"
	SwitchSinkPubSub = "sink.pubsub"
	SwitchSinkStore  = "sink.store"
)

// Limits
const (
	MaxRecentReports   = 100
	SignatureBatchSize = 10
	StreamBufferSize   = 64
)

// Rate limiting
const (
	DelayBetweenTxFetch = 500 * time.Millisecond
)

// SolscanTxURL formats a transaction explorer link
const SolscanTxURL = "https://solscan.io/tx/%s"
