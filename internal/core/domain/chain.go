package domain

import (
	"crypto/md5"
	"encoding/hex"
)

// ChainName identifies a supported blockchain implementation.
type ChainName string

const (
	ChainNameEthereum ChainName = "ETHEREUM"
	ChainNameFlow     ChainName = "FLOW"
)

// ChainInfo describes one chain instance (a chain pointed at a specific
// network endpoint). Its ID is derived from the name and endpoint so the
// same chain on a different network yields a distinct cursor row.
type ChainInfo struct {
	ID         string    `json:"id"`
	Name       ChainName `json:"name"`
	NetworkURL string    `json:"networkURL"`
}

// NewChainInfo derives a ChainInfo for the given chain and endpoint.
// Re-deriving from the same inputs always yields the same ID, which is
// what makes it usable as an idempotency key for cursor rows.
func NewChainInfo(name ChainName, networkURL string) ChainInfo {
	h := md5.New()
	h.Write([]byte(name))
	h.Write([]byte(networkURL))
	return ChainInfo{
		ID:         hex.EncodeToString(h.Sum(nil)),
		Name:       name,
		NetworkURL: networkURL,
	}
}
