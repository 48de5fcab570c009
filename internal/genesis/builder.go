package genesis

import (
	"bufio"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/imamik/solk8s/internal/config"
	"github.com/imamik/solk8s/internal/util/naming"
)

// Default tool names, resolved through PATH.
const (
	DefaultKeygenTool  = "solana-keygen"
	DefaultGenesisTool = "solana-genesis"
)

const (
	// ArchiveName is the genesis archive written into the ledger directory.
	ArchiveName = "genesis.tar.bz2"

	accountsFileName = "validator-accounts.yml"
	faucetFileName   = "faucet.json"
)

// accountKinds are the keypairs generated per node, in generation order.
var accountKinds = []string{"identity", "vote-account", "stake-account"}

// Builder produces a genesis bundle in a dedicated work directory.
type Builder struct {
	workDir     string
	runner      Runner
	keygenTool  string
	genesisTool string
}

// Option configures a Builder.
type Option func(*Builder)

// WithKeygenTool overrides the solana-keygen binary.
func WithKeygenTool(name string) Option {
	return func(b *Builder) { b.keygenTool = name }
}

// WithGenesisTool overrides the solana-genesis binary.
func WithGenesisTool(name string) Option {
	return func(b *Builder) { b.genesisTool = name }
}

// NewBuilder creates a Builder. workDir is removed and recreated on every
// build. A nil runner uses ExecRunner.
func NewBuilder(workDir string, runner Runner, opts ...Option) *Builder {
	if runner == nil {
		runner = ExecRunner{}
	}
	b := &Builder{
		workDir:     workDir,
		runner:      runner,
		keygenTool:  DefaultKeygenTool,
		genesisTool: DefaultGenesisTool,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// LedgerDir is where solana-genesis writes the bootstrap ledger.
func (b *Builder) LedgerDir() string {
	return filepath.Join(b.workDir, naming.BootstrapNode)
}

// Build generates all keypairs, runs solana-genesis once and returns the
// resulting bundle.
func (b *Builder) Build(ctx context.Context, spec *config.ClusterSpec) (*Bundle, error) {
	logger := log.FromContext(ctx).WithValues("workDir", b.workDir)

	if err := os.RemoveAll(b.workDir); err != nil {
		return nil, wrap("prepare", fmt.Errorf("failed to reset work dir: %w", err))
	}
	if err := os.MkdirAll(b.LedgerDir(), 0o700); err != nil {
		return nil, wrap("prepare", fmt.Errorf("failed to create work dir: %w", err))
	}

	logger.Info("generating keypairs", "validators", spec.ValidatorCount)
	faucet, err := b.keygen(ctx, filepath.Join(b.workDir, faucetFileName))
	if err != nil {
		return nil, wrap("keygen", fmt.Errorf("faucet: %w", err))
	}

	identities := make([]Identity, 0, spec.NodeCount())
	bootstrap, err := b.generateIdentity(ctx, naming.BootstrapNode, RoleBootstrap, 0, func(kind string) string {
		return filepath.Join(b.LedgerDir(), kind+".json")
	})
	if err != nil {
		return nil, err
	}
	bootstrap.FundLamports = spec.Genesis.BootstrapValidatorLamports
	bootstrap.StakeLamports = spec.Genesis.BootstrapValidatorStakeLamports
	identities = append(identities, bootstrap)

	for i := range spec.ValidatorCount {
		id, err := b.generateIdentity(ctx, naming.ValidatorNode(i), RoleValidator, i, func(kind string) string {
			return filepath.Join(b.workDir, fmt.Sprintf("validator-%s-%d.json", kind, i))
		})
		if err != nil {
			return nil, err
		}
		id.FundLamports = spec.Genesis.ValidatorLamports
		id.StakeLamports = spec.Genesis.ValidatorStakeLamports
		identities = append(identities, id)
	}

	accountsFile := ""
	if spec.ValidatorCount > 0 {
		accountsFile = filepath.Join(b.workDir, accountsFileName)
		if err := writeValidatorAccounts(accountsFile, identities[1:]); err != nil {
			return nil, wrap("accounts", err)
		}
	}

	args := b.genesisArgs(spec, faucet, bootstrap, accountsFile)
	logger.Info("creating genesis", "tool", b.genesisTool)
	logger.V(1).Info("genesis args", "args", args)

	stdout, err := b.runner.Run(ctx, b.genesisTool, args...)
	if err != nil {
		return nil, wrap("create", err)
	}

	summary, err := parseGenesisOutput(stdout)
	if err != nil {
		return nil, wrap("parse", err)
	}

	archive, err := os.ReadFile(filepath.Join(b.LedgerDir(), ArchiveName))
	if err != nil {
		return nil, wrap("archive", fmt.Errorf("failed to read genesis archive: %w", err))
	}
	if len(archive) == 0 {
		return nil, wrap("archive", fmt.Errorf("genesis archive %s is empty", ArchiveName))
	}

	sum := sha256.Sum256(archive)
	bundle := &Bundle{
		ArtifactID:      hex.EncodeToString(sum[:]),
		GenesisHash:     summary.hash,
		ShredVersion:    summary.shredVersion,
		Capitalization:  summary.capitalization,
		GenesisAccounts: summary.accounts,
		Archive:         archive,
		Faucet:          faucet,
		Identities:      identities,
	}

	if err := checkBundle(spec, bundle); err != nil {
		return nil, wrap("verify", err)
	}

	logger.Info("genesis created", "genesisHash", summary.hash, "shredVersion", summary.shredVersion, "artifactID", bundle.ArtifactID)
	return bundle, nil
}

func (b *Builder) generateIdentity(ctx context.Context, name string, role Role, index int, path func(kind string) string) (Identity, error) {
	id := Identity{Name: name, Role: role, Index: index}
	for _, kind := range accountKinds {
		kp, err := b.keygen(ctx, path(kind))
		if err != nil {
			return Identity{}, wrap("keygen", fmt.Errorf("%s %s: %w", name, kind, err))
		}
		switch kind {
		case "identity":
			id.Identity = kp
		case "vote-account":
			id.Vote = kp
		case "stake-account":
			id.Stake = kp
		}
	}
	return id, nil
}

func (b *Builder) keygen(ctx context.Context, path string) (Keypair, error) {
	if _, err := b.runner.Run(ctx, b.keygenTool, "new", "--no-bip39-passphrase", "--silent", "--force", "-o", path); err != nil {
		return Keypair{}, err
	}
	return ReadKeypair(path)
}

// genesisArgs returns the solana-genesis arguments. The bootstrap identity,
// vote and stake files must follow --bootstrap-validator in that order.
func (b *Builder) genesisArgs(spec *config.ClusterSpec, faucet Keypair, bootstrap Identity, accountsFile string) []string {
	g := spec.Genesis
	args := []string{
		"--bootstrap-validator-stake-lamports", strconv.FormatUint(g.BootstrapValidatorStakeLamports, 10),
		"--bootstrap-validator-lamports", strconv.FormatUint(g.BootstrapValidatorLamports, 10),
		"--hashes-per-tick", g.HashesPerTick,
		"--max-genesis-archive-unpacked-size", strconv.FormatUint(g.MaxGenesisArchiveUnpackedSize, 10),
	}
	if g.EnableWarmupEpochs {
		args = append(args, "--enable-warmup-epochs")
	}
	args = append(args,
		"--faucet-lamports", strconv.FormatUint(g.FaucetLamports, 10),
		"--faucet-pubkey", faucet.Path,
		"--cluster-type", g.ClusterType,
		"--ledger", b.LedgerDir(),
		"--bootstrap-validator", bootstrap.Identity.Path, bootstrap.Vote.Path, bootstrap.Stake.Path,
	)
	if g.SlotsPerEpoch != nil {
		args = append(args, "--slots-per-epoch", strconv.FormatUint(*g.SlotsPerEpoch, 10))
	}
	if g.TargetLamportsPerSignature != nil {
		args = append(args, "--target-lamports-per-signature", strconv.FormatUint(*g.TargetLamportsPerSignature, 10))
	}
	if accountsFile != "" {
		args = append(args, "--validator-accounts-file", accountsFile)
	}
	return args
}

// genesisSummary is what solana-genesis reports after writing the ledger.
type genesisSummary struct {
	hash           string
	shredVersion   uint16
	capitalization uint64
	accounts       int
}

// parseGenesisOutput reads the summary solana-genesis prints on success.
func parseGenesisOutput(stdout []byte) (genesisSummary, error) {
	var sum genesisSummary
	var shred, capitalization string
	scanner := bufio.NewScanner(bytes.NewReader(stdout))
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), ":")
		if !ok {
			continue
		}
		switch strings.TrimSpace(key) {
		case "Genesis hash":
			sum.hash = strings.TrimSpace(value)
		case "Shred version":
			shred = strings.TrimSpace(value)
		case "Capitalization":
			capitalization = strings.TrimSpace(value)
		}
	}
	if err := scanner.Err(); err != nil {
		return genesisSummary{}, fmt.Errorf("failed to read genesis output: %w", err)
	}

	if sum.hash == "" {
		return genesisSummary{}, fmt.Errorf("genesis hash not found in solana-genesis output")
	}
	if shred == "" {
		return genesisSummary{}, fmt.Errorf("shred version not found in solana-genesis output")
	}
	version, err := strconv.ParseUint(shred, 10, 16)
	if err != nil {
		return genesisSummary{}, fmt.Errorf("invalid shred version %q: %w", shred, err)
	}
	sum.shredVersion = uint16(version)

	if capitalization == "" {
		return genesisSummary{}, fmt.Errorf("capitalization not found in solana-genesis output")
	}
	if sum.capitalization, sum.accounts, err = parseCapitalization(capitalization); err != nil {
		return genesisSummary{}, err
	}
	return sum, nil
}

// parseCapitalization parses "<sol> SOL in <n> accounts".
func parseCapitalization(value string) (uint64, int, error) {
	var sol, accounts string
	if _, err := fmt.Sscanf(value, "%s SOL in %s accounts", &sol, &accounts); err != nil {
		return 0, 0, fmt.Errorf("invalid capitalization %q: %w", value, err)
	}
	lamports, err := solToLamports(sol)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid capitalization %q: %w", value, err)
	}
	n, err := strconv.Atoi(accounts)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid capitalization %q: %w", value, err)
	}
	return lamports, n, nil
}

// solToLamports converts a decimal SOL amount without going through float64.
// Digits past lamport precision are dropped.
func solToLamports(s string) (uint64, error) {
	whole, frac, _ := strings.Cut(s, ".")
	w, err := strconv.ParseUint(whole, 10, 64)
	if err != nil {
		return 0, err
	}
	if len(frac) > 9 {
		frac = frac[:9]
	}
	frac += strings.Repeat("0", 9-len(frac))
	f, err := strconv.ParseUint(frac, 10, 64)
	if err != nil {
		return 0, err
	}
	if w > (math.MaxUint64-f)/config.LamportsPerSOL {
		return 0, fmt.Errorf("%s SOL overflows lamports", s)
	}
	return w*config.LamportsPerSOL + f, nil
}

// overheadLamportsPerNode bounds what a development genesis holds beyond the
// configured supply: rent-exempt vote reserves, feature and native program
// accounts.
const overheadLamportsPerNode = config.LamportsPerSOL

func checkBundle(spec *config.ClusterSpec, bundle *Bundle) error {
	if got, want := len(bundle.Identities), spec.NodeCount(); got != want {
		return fmt.Errorf("expected %d identities, got %d", want, got)
	}

	bootstraps := 0
	seen := make(map[string]string, 3*len(bundle.Identities)+1)
	seen[bundle.Faucet.Pubkey] = "faucet"
	for _, id := range bundle.Identities {
		if id.Role == RoleBootstrap {
			bootstraps++
		}
		for _, kp := range []Keypair{id.Identity, id.Vote, id.Stake} {
			if owner, dup := seen[kp.Pubkey]; dup {
				return fmt.Errorf("pubkey %s of %s already used by %s", kp.Pubkey, id.Name, owner)
			}
			seen[kp.Pubkey] = id.Name
		}
	}
	if bootstraps != 1 {
		return fmt.Errorf("expected exactly one bootstrap identity, got %d", bootstraps)
	}
	if bundle.Identities[0].Role != RoleBootstrap {
		return fmt.Errorf("bootstrap identity must come first")
	}

	// faucet plus identity, vote and stake account per node
	if want := len(seen); bundle.GenesisAccounts < want {
		return fmt.Errorf("genesis holds %d accounts, expected at least %d", bundle.GenesisAccounts, want)
	}

	// The summary prints capitalization as a float, so allow its rounding.
	supply := spec.GenesisSupplyLamports()
	slack := bundle.Capitalization>>50 + 1
	if bundle.Capitalization+slack < supply {
		return fmt.Errorf("genesis capitalization %d lamports is %d short of the configured supply %d with stake %d",
			bundle.Capitalization, supply-bundle.Capitalization, supply, bundle.TotalStakeLamports())
	}
	// Other cluster types mint extra accounts of their own.
	if spec.Genesis.ClusterType == config.ClusterTypeDevelopment {
		limit := supply + uint64(len(bundle.Identities)+1)*overheadLamportsPerNode + slack
		if bundle.Capitalization > limit {
			return fmt.Errorf("genesis capitalization %d lamports exceeds the configured supply %d by %d",
				bundle.Capitalization, supply, bundle.Capitalization-supply)
		}
	}
	return nil
}
