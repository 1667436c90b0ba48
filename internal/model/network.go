// Package model defines domain entities for the application.
package model

import "strings"

// Network identifies one of the supported EVM networks.
type Network string

const (
	NetworkEthereum Network = "ethereum"
	NetworkPolygon  Network = "polygon"
	NetworkOptimism Network = "optimism"
	NetworkArbitrum Network = "arbitrum"
	NetworkBase     Network = "base"
)

// AllNetworks returns every supported network in canonical order.
func AllNetworks() []Network {
	return []Network{
		NetworkEthereum,
		NetworkPolygon,
		NetworkOptimism,
		NetworkArbitrum,
		NetworkBase,
	}
}

// ParseNetwork converts a tag string into a Network.
// Returns false if the tag is not one of the supported networks.
func ParseNetwork(tag string) (Network, bool) {
	n := Network(strings.ToLower(strings.TrimSpace(tag)))
	if n.IsValid() {
		return n, true
	}
	return "", false
}

// IsValid checks membership in the closed network set.
func (n Network) IsValid() bool {
	switch n {
	case NetworkEthereum, NetworkPolygon, NetworkOptimism, NetworkArbitrum, NetworkBase:
		return true
	}
	return false
}

// Tag returns the canonical lowercase tag for the network.
func (n Network) Tag() string {
	return string(n)
}
