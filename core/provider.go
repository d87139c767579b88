package core

import "strconv"

// ProviderMetadata is shown by the wallet when a relay session is proposed
type ProviderMetadata struct {
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description" yaml:"description"`
	URL         string   `json:"url" yaml:"url"`
	Icons       []string `json:"icons,omitempty" yaml:"icons,omitempty"`
}

// RelayRemoteConfig is the payload of the named remote configuration
type RelayRemoteConfig struct {
	ProjectID string `json:"projectId" yaml:"project_id"`
}

// ProviderConfig holds the parameters of one relay connection attempt
type ProviderConfig struct {
	ProjectID      string
	Chain          uint64   // Required primary chain
	OptionalChains []uint64 // Chains the wallet may additionally use
	Metadata       ProviderMetadata
}

// AllowsChain reports whether id is the primary or one of the optional chains
func (c ProviderConfig) AllowsChain(id uint64) bool {
	if id == c.Chain {
		return true
	}
	for _, opt := range c.OptionalChains {
		if opt == id {
			return true
		}
	}
	return false
}

// CAIP2 returns the chains in CAIP-2 notation, primary first
func (c ProviderConfig) CAIP2() []string {
	out := make([]string, 0, len(c.OptionalChains)+1)
	out = append(out, "eip155:"+strconv.FormatUint(c.Chain, 10))
	for _, id := range c.OptionalChains {
		out = append(out, "eip155:"+strconv.FormatUint(id, 10))
	}
	return out
}
