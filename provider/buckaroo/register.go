package buckaroo

import "github.com/mstgnz/gobuckaroo/provider"

// Register Buckaroo provider with the gateway registry
func init() {
	provider.Register(providerName, NewProvider)
}
