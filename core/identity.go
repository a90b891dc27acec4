package core

import "time"

// ProviderID identifies the wallet sign-in method in account link records.
const ProviderID = "siwe"

// User is a durable identity resolved from one or more wallet addresses.
type User struct {
	ID              string    // Unique user identifier
	Name            string    // Display name (client-supplied, ENS, or address fallback)
	Email           string    // Real caller-supplied address or synthesized from the wallet
	Image           string    // Avatar URL, may be empty
	VerifiedAddress string    // Checksummed address the personhood attestation refers to
	PersonVerified  bool      // Whether the personhood oracle attests this user
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// WalletAddress links a chain-scoped signing address to a user.
// The (Address, ChainID) pair is unique across all records and a record
// is never reassigned to a different user.
type WalletAddress struct {
	ID        string
	UserID    string
	Address   string // EIP-55 checksummed
	ChainID   string // Namespaced, e.g. "eip155:1"
	IsPrimary bool   // True only for the first address created for a user
	CreatedAt time.Time
}

// Account marks that a user authenticated via the wallet sign-in method
// with a specific address/chain combination.
type Account struct {
	ID         string
	UserID     string
	ProviderID string
	AccountID  string // "<checksummed>:<namespaced chain id>"
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Profile carries optional client-supplied identity hints for sign-in.
type Profile struct {
	Username string
	Avatar   string
}
