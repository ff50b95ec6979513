package params

// Gas schedule constants. Names and values follow the Yellow Paper /
// EIP numbering the teacher's own gas tables (core/vm/gas_table.go,
// core/vm/operations_acl.go) reference in comments.
const (
	TxGas                 uint64 = 21000 // per-transaction base cost, no data
	TxGasContractCreation uint64 = 53000 // per-transaction base cost when creating a contract
	TxDataZeroGas         uint64 = 4     // per zero data byte
	TxDataNonZeroGasFrontier uint64 = 68
	TxDataNonZeroGasEIP2028 uint64 = 16 // per non-zero data byte, EIP-2028

	// EIP-7623: calldata floor price, a minimum intrinsic gas charge
	// independent of the execution gas actually consumed.
	TxTotalCostFloorPerTokenEIP7623 uint64 = 10

	TxAccessListAddressGas    uint64 = 2400 // EIP-2930 per address in access list
	TxAccessListStorageKeyGas uint64 = 1900 // EIP-2930 per storage key in access list

	// EIP-7702 authorization list.
	PerEmptyAccountCost uint64 = 25000
	PerAuthBaseCost     uint64 = 12500

	CallValueTransferGas uint64 = 9000  // paid when a call carries nonzero value
	CallNewAccountGas    uint64 = 25000 // paid when a call touches a previously nonexistent account
	CallStipend          uint64 = 2300  // stipend forwarded to the callee when value is transferred

	SstoreSentryGasEIP2200 uint64 = 2300
	SstoreSetGasEIP2200    uint64 = 20000
	SstoreResetGasEIP2200  uint64 = 5000
	// SstoreClearsScheduleRefundEIP2200 is the pre-EIP-3529 refund for
	// clearing a storage slot back to zero.
	SstoreClearsScheduleRefundEIP2200 uint64 = 15000
	SstoreClearsScheduleRefundEIP3529 uint64 = 4800

	ColdAccountAccessCostEIP2929 uint64 = 2600
	ColdSloadCostEIP2929         uint64 = 2100
	WarmStorageReadCostEIP2929   uint64 = 100

	SelfdestructRefundGas uint64 = 24000 // pre-EIP-3529 refund, retained for historical forks only

	LogGas      uint64 = 375
	LogTopicGas uint64 = 375
	LogDataGas  uint64 = 8

	Keccak256Gas     uint64 = 30
	Keccak256WordGas uint64 = 6

	MemoryGas      uint64 = 3
	QuadCoeffDiv   uint64 = 512
	CopyGas        uint64 = 3

	CreateDataGas    uint64 = 200 // per byte of deployed code, post-execution
	InitCodeWordGas  uint64 = 2   // EIP-3860, per 32-byte word of init code
	Create2Gas       uint64 = 32000
	CreateGas        uint64 = 32000

	JumpdestGas uint64 = 1
	ExpGas      uint64 = 10
	ExpByteEIP158 uint64 = 50

	MaxCodeSize     = 24576 // EIP-170
	MaxInitCodeSize = 2 * MaxCodeSize // EIP-3860

	// RefundQuotientEIP3529 caps total refunds at gas_used/5 post-London.
	RefundQuotientEIP3529 uint64 = 5
	RefundQuotient        uint64 = 2 // pre-London

	CallGas63Over64thDivisor uint64 = 64 // EIP-150: 1/64th retained by the caller

	// EIP-2935 historical block hashes.
	HistoryServeWindow uint64 = 8191

	// EIP-4844 blob gas.
	BlobTxBlobGasPerBlob uint64 = 131072
	BlobTxMinBlobGasprice uint64 = 1
	// BlobBaseFeeUpdateFraction controls how fast the blob base fee moves
	// in the fake-exponential excess-blob-gas formula (EIP-4844).
	BlobBaseFeeUpdateFraction uint64 = 3338477

	// MaxStackSize is the maximum depth of the EVM operand stack.
	MaxStackSize = 1024

	// MaxCallDepth is the maximum nested call-frame depth (EIP-150 era limit,
	// now mostly superseded by the 63/64 gas rule but still enforced).
	MaxCallDepth = 1024
)

// Precompiled contract addresses, 0x01 through the BLS12-381 family added
// in Prague and the secp256r1 verifier added in Osaka.
const (
	PrecompileEcrecover        = 0x01
	PrecompileSha256           = 0x02
	PrecompileRipemd160        = 0x03
	PrecompileIdentity         = 0x04
	PrecompileModExp           = 0x05
	PrecompileBn256Add         = 0x06
	PrecompileBn256ScalarMul   = 0x07
	PrecompileBn256Pairing     = 0x08
	PrecompileBlake2F          = 0x09
	PrecompileKZGPointEvaluation = 0x0A

	PrecompileBLS12381G1Add      = 0x0B
	PrecompileBLS12381G1MultiExp = 0x0C
	PrecompileBLS12381G2Add      = 0x0D
	PrecompileBLS12381G2MultiExp = 0x0E
	PrecompileBLS12381Pairing    = 0x0F
	PrecompileBLS12381MapG1      = 0x10
	PrecompileBLS12381MapG2      = 0x11

	PrecompileP256Verify = 0x100
)

// System contract addresses invoked as synthetic transactions by the
// block executor (§4.7), not reachable via ordinary message calls.
const (
	BeaconRootsAddress        = "0x000F3df6D732807Ef1319fB7B8bB8522d0Beac02"
	HistoryStorageAddress     = "0x0000F90827F1C53a10cb7A02335B175320002935"
	WithdrawalRequestAddress  = "0x00000961Ef480Eb55e80D19ad83579A64c007002"
	ConsolidationRequestAddress = "0x0000BBdDc7CE488642fb579F8B00f3a590007251"

	// SystemAddress is the synthetic caller used for system-contract
	// invocations (EIP-4788/7002/7251/2935): never has nonce/balance
	// checks applied and is never charged gas.
	SystemAddress = "0xfffffffffffffffffffffffffffffffffffffffe"
)
