// Package chain is the boundary between the pipeline and chain-specific
// RPC clients.
package chain

import (
	"context"

	"github.com/chris-de-leon-archive/block-feed-prototype-sub001/internal/core/domain"
)

// Adapter is the capability set the pipeline needs from a blockchain.
// One implementation exists per supported chain; the variant is selected
// from configuration at process startup.
type Adapter interface {
	// LatestBlockHeight returns the current head height of the chain.
	LatestBlockHeight(ctx context.Context) (uint64, error)

	// BlockAtHeight fetches the block at the given height.
	BlockAtHeight(ctx context.Context, height uint64) (domain.Block, error)

	// Info returns the chain identity. Info().ID is derived from the
	// chain name and network endpoint.
	Info() domain.ChainInfo

	// Close releases the underlying RPC connection.
	Close() error
}
