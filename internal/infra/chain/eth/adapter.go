// Package eth adapts an Ethereum JSON-RPC endpoint to the pipeline's
// chain capability set.
package eth

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/chris-de-leon-archive/block-feed-prototype-sub001/internal/core/domain"
)

// Adapter fetches blocks from an Ethereum node.
type Adapter struct {
	client *ethclient.Client
	info   domain.ChainInfo
}

// NewAdapter dials the node at networkURL.
func NewAdapter(ctx context.Context, networkURL string) (*Adapter, error) {
	client, err := ethclient.DialContext(ctx, networkURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial ethereum node: %w", err)
	}
	return &Adapter{
		client: client,
		info:   domain.NewChainInfo(domain.ChainNameEthereum, networkURL),
	}, nil
}

// LatestBlockHeight returns the chain head height.
func (a *Adapter) LatestBlockHeight(ctx context.Context) (uint64, error) {
	height, err := a.client.BlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get latest block number: %w", err)
	}
	return height, nil
}

// BlockAtHeight fetches and JSON-encodes the block at the given height.
func (a *Adapter) BlockAtHeight(ctx context.Context, height uint64) (domain.Block, error) {
	block, err := a.client.BlockByNumber(ctx, new(big.Int).SetUint64(height))
	if err != nil {
		return domain.Block{}, fmt.Errorf("failed to get block %d: %w", height, err)
	}

	header := block.Header()
	payload, err := json.Marshal(map[string]any{
		"hash":         block.Hash().String(),
		"parentHash":   block.ParentHash().String(),
		"number":       block.NumberU64(),
		"time":         block.Time(),
		"coinbase":     block.Coinbase().String(),
		"difficulty":   block.Difficulty().String(),
		"gasLimit":     block.GasLimit(),
		"gasUsed":      block.GasUsed(),
		"root":         block.Root().String(),
		"receiptHash":  block.ReceiptHash().String(),
		"extra":        block.Extra(),
		"header":       header,
		"transactions": block.Transactions(),
	})
	if err != nil {
		return domain.Block{}, fmt.Errorf("failed to encode block %d: %w", height, err)
	}

	return domain.Block{Height: height, Payload: payload}, nil
}

// Info returns the chain identity.
func (a *Adapter) Info() domain.ChainInfo {
	return a.info
}

// Close releases the RPC connection.
func (a *Adapter) Close() error {
	a.client.Close()
	return nil
}
