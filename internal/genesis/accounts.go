package genesis

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// validatorAccountsFile is the layout solana-genesis expects for
// --validator-accounts-file.
type validatorAccountsFile struct {
	ValidatorAccounts []validatorAccount `yaml:"validator_accounts"`
}

type validatorAccount struct {
	BalanceLamports uint64 `yaml:"balance_lamports"`
	StakeLamports   uint64 `yaml:"stake_lamports"`
	IdentityAccount string `yaml:"identity_account"`
	VoteAccount     string `yaml:"vote_account"`
	StakeAccount    string `yaml:"stake_account"`
}

func writeValidatorAccounts(path string, validators []Identity) error {
	file := validatorAccountsFile{ValidatorAccounts: make([]validatorAccount, 0, len(validators))}
	for _, v := range validators {
		file.ValidatorAccounts = append(file.ValidatorAccounts, validatorAccount{
			BalanceLamports: v.FundLamports,
			StakeLamports:   v.StakeLamports,
			IdentityAccount: v.Identity.Pubkey,
			VoteAccount:     v.Vote.Pubkey,
			StakeAccount:    v.Stake.Pubkey,
		})
	}

	data, err := yaml.Marshal(file)
	if err != nil {
		return fmt.Errorf("failed to encode validator accounts: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write validator accounts: %w", err)
	}
	return nil
}
