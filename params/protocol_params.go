package params

import "github.com/ethereum/go-ethereum/common"

// ProtocolVersion is the cross-chain account protocol version string bound
// into every domain separator. Changing it invalidates all previously
// signed payload hashes.
const ProtocolVersion = "1"

// XA system addresses: fixed, well-known addresses used by the protocol.
var (
	// SystemActionAddress is the sentinel To-address for system action transactions.
	// Transactions sent to this address carry a JSON-encoded SysAction in tx.Data
	// and are executed outside the EVM by the state processor.
	SystemActionAddress = common.HexToAddress("0x0000000000000000000000000000000058414331") // "XAC1"

	// AccountRegistryAddress owns the chain-type registry storage and is the
	// deployer address mixed into deterministic account derivation.
	AccountRegistryAddress = common.HexToAddress("0x0000000000000000000000000000000058414332") // "XAC2"

	// VerifyOracleAddress is the canonical address the verification oracle
	// contract is mounted at when the native backend is used in-process.
	VerifyOracleAddress = common.HexToAddress("0x0000000000000000000000000000000058414333") // "XAC3"
)

// Size limits for identity fields. Identities are stored chunked in account
// storage, so unbounded fields would translate into unbounded state writes.
const (
	MaxChainTagLen = 64  // chain namespace and chain id strings
	MaxOwnerKeyLen = 128 // raw owner public key bytes
)

// SysActionGas is the fixed gas cost charged for any system action transaction,
// on top of the intrinsic gas.
const SysActionGas uint64 = 100_000

// Gas schedule for payload execution and account deployment.
const (
	PayloadBaseGas        uint64 = 3_000  // flat cost of an authorized payload execution
	PayloadDataZeroGas    uint64 = 4      // per zero byte of payload call data
	PayloadDataNonZeroGas uint64 = 16     // per non-zero byte of payload call data
	PayloadVerifyGas      uint64 = 30_000 // flat cost of one oracle verification call
	CallValueTransferGas  uint64 = 9_000  // surcharge for value-carrying sub-calls
	AccountDeployGas      uint64 = 60_000 // flat cost of deploying one account
)
