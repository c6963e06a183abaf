package types

// Version is the canonical project version.
// The CLI and the emitted event contract share this version.
const Version = "0.3.0"

// ContractVersion is the version of the emitted event contract.
const ContractVersion = Version
