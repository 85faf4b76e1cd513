package service

import (
	"strings"

	"harvest-wallet-backend/internal/domain"
)

const keySeparator = "_"

// ResolveWalletID returns the document id of the wallet for a
// (company, project, crop type) triple. A non-empty explicit id wins, which
// lets callers address wallets created under another key scheme.
func ResolveWalletID(companyID, projectID, cropType, explicit string) (string, error) {
	if explicit != "" {
		if err := checkIDPart("walletId", explicit); err != nil {
			return "", err
		}
		return explicit, nil
	}

	parts := []struct{ name, value string }{
		{"companyId", companyID},
		{"projectId", projectID},
		{"cropType", cropType},
	}
	for _, p := range parts {
		if p.value == "" {
			return "", domain.InvalidArgument("%s is required", p.name)
		}
		if err := checkIDPart(p.name, p.value); err != nil {
			return "", err
		}
	}
	return strings.Join([]string{companyID, projectID, cropType}, keySeparator), nil
}

// UsageID is the document id of the usage record for a wallet and collection.
func UsageID(walletID, collectionID string) string {
	return walletID + keySeparator + collectionID
}

func idempotencyID(walletID, key string) string {
	return walletID + keySeparator + key
}

// Ids become document path segments, so a slash would address a different
// document.
func checkIDPart(name, value string) error {
	if strings.Contains(value, "/") {
		return domain.InvalidArgument("%s must not contain '/'", name)
	}
	return nil
}
