package genesis

import "github.com/imamik/solk8s/internal/util/labels"

// Role is the part a node plays in the cluster.
type Role string

const (
	RoleBootstrap Role = labels.RoleBootstrap
	RoleValidator Role = labels.RoleValidator
)

// Identity is the key material and genesis allocation of one node.
type Identity struct {
	Name  string
	Role  Role
	Index int

	Identity Keypair
	Vote     Keypair
	Stake    Keypair

	FundLamports  uint64
	StakeLamports uint64
}

// Bundle is the output of one genesis build. Every node of the cluster is
// started from the same bundle.
type Bundle struct {
	// ArtifactID is the hex sha256 of Archive.
	ArtifactID   string
	GenesisHash  string
	ShredVersion uint16

	// Capitalization and GenesisAccounts are the totals solana-genesis
	// reported for the ledger it wrote.
	Capitalization  uint64
	GenesisAccounts int

	// Archive is the genesis.tar.bz2 produced by solana-genesis.
	Archive []byte

	Faucet Keypair

	// Identities holds the bootstrap identity first, then the validators in
	// index order.
	Identities []Identity
}

// Bootstrap returns the bootstrap identity.
func (b *Bundle) Bootstrap() *Identity {
	for i := range b.Identities {
		if b.Identities[i].Role == RoleBootstrap {
			return &b.Identities[i]
		}
	}
	return nil
}

// Validators returns the regular validator identities in index order.
func (b *Bundle) Validators() []Identity {
	var out []Identity
	for _, id := range b.Identities {
		if id.Role == RoleValidator {
			out = append(out, id)
		}
	}
	return out
}

// TotalStakeLamports sums the stake of every identity.
func (b *Bundle) TotalStakeLamports() uint64 {
	var total uint64
	for _, id := range b.Identities {
		total += id.StakeLamports
	}
	return total
}
