package domain

const (
	// ZeroAddress is the ethereum zero address, returned by contracts for missing owners
	ZeroAddress = "0x0000000000000000000000000000000000000000"

	// SharedOwner marks a token held by a locker with several owners
	SharedOwner = "shared"

	// DefaultIPFSGateway is used when no gateway is configured
	DefaultIPFSGateway = "https://ipfs.io"

	// CheckpointKey is the key_value_store key that holds the last synced block
	CheckpointKey = "last_block_number"
)
