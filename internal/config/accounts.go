package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/cloud-cost-manager/cloudcost-go/internal/domain"
)

// accountsFileEntry is one static credential pair in the accounts file.
type accountsFileEntry struct {
	AccessKeyID     string `json:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key"`
}

// assumeRoleEntry is one role spec in the assume-roles file.
type assumeRoleEntry struct {
	AccountRef string  `json:"account_ref"`
	RoleARN    string  `json:"role_arn"`
	ExternalID *string `json:"external_id"`
}

// LoadAccounts builds the ordered account list from the configured
// source. The assume-roles file wins over the accounts file, which wins
// over shared-config profiles; with nothing configured the "default"
// profile is the single account.
func LoadAccounts(cfg Config) ([]domain.AccountConfig, error) {
	switch {
	case cfg.AssumeRolesFile != "":
		return loadAssumeRoles(cfg.AssumeRolesFile, cfg.BaseProfile)
	case cfg.AccountsFile != "":
		return loadStaticAccounts(cfg.AccountsFile)
	default:
		profiles := cfg.Profiles
		if len(profiles) == 0 {
			profiles = []string{"default"}
		}
		accounts := make([]domain.AccountConfig, 0, len(profiles))
		for _, p := range profiles {
			accounts = append(accounts, domain.AccountConfig{Ref: p, Profile: p})
		}
		return validated(accounts)
	}
}

func loadAssumeRoles(path, baseProfile string) ([]domain.AccountConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read assume-roles file: %w", err)
	}
	var entries []assumeRoleEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("config: parse assume-roles file: %w", err)
	}

	accounts := make([]domain.AccountConfig, 0, len(entries))
	for _, e := range entries {
		spec := &domain.AssumeRoleSpec{
			RoleARN:     e.RoleARN,
			BaseProfile: baseProfile,
		}
		if e.ExternalID != nil {
			spec.ExternalID = *e.ExternalID
		}
		accounts = append(accounts, domain.AccountConfig{Ref: e.AccountRef, AssumeRole: spec})
	}
	return validated(accounts)
}

func loadStaticAccounts(path string) ([]domain.AccountConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read accounts file: %w", err)
	}
	var entries []accountsFileEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("config: parse accounts file: %w", err)
	}

	accounts := make([]domain.AccountConfig, 0, len(entries))
	for i, e := range entries {
		accounts = append(accounts, domain.AccountConfig{
			Ref: fmt.Sprintf("credential-%d", i+1),
			StaticKeys: &domain.StaticKeys{
				AccessKeyID:     e.AccessKeyID,
				SecretAccessKey: e.SecretAccessKey,
			},
		})
	}
	return validated(accounts)
}

// validated checks each entry and that refs are unique within the run.
func validated(accounts []domain.AccountConfig) ([]domain.AccountConfig, error) {
	seen := make(map[string]bool, len(accounts))
	for _, a := range accounts {
		if err := a.Validate(); err != nil {
			return nil, err
		}
		if seen[a.Ref] {
			return nil, fmt.Errorf("config: duplicate account_ref %q", a.Ref)
		}
		seen[a.Ref] = true
	}
	return accounts, nil
}
