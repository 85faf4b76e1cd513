// config/security_config.go
package config

type SecurityLevel int

const (
	SecurityPublic SecurityLevel = iota // No authentication
	SecurityAccess                      // Verified caller identity required
)

const walletServicePrefix = "/harvest.wallet.v1.HarvestWallet/"

// EndpointSecurityConfig maps methods to their required security level
var EndpointSecurityConfig = map[string]SecurityLevel{
	// HarvestWallet - Public
	walletServicePrefix + "Health": SecurityPublic,

	// HarvestWallet - Access Protected
	walletServicePrefix + "AddHarvestWalletCash":      SecurityAccess,
	walletServicePrefix + "PayPickerFromWallet":       SecurityAccess,
	walletServicePrefix + "PayPickersFromWalletBatch": SecurityAccess,
	walletServicePrefix + "GetWalletSummary":          SecurityAccess,

	// gRPC health protocol
	"/grpc.health.v1.Health/Check": SecurityPublic,
	"/grpc.health.v1.Health/Watch": SecurityPublic,
}

// GetSecurityLevel returns the security level for a given method
func GetSecurityLevel(method string) SecurityLevel {
	if level, exists := EndpointSecurityConfig[method]; exists {
		return level
	}
	// Default to highest security for unknown endpoints
	return SecurityAccess
}
