// Package flow adapts a Flow access node to the pipeline's chain
// capability set.
package flow

import (
	"context"
	"encoding/json"
	"fmt"

	flowsdk "github.com/onflow/flow-go-sdk"
	"github.com/onflow/flow-go-sdk/access"
	"github.com/onflow/flow-go-sdk/access/grpc"

	"github.com/chris-de-leon-archive/block-feed-prototype-sub001/internal/core/domain"
)

// Adapter fetches blocks from a Flow access node over gRPC.
type Adapter struct {
	client access.Client
	info   domain.ChainInfo
}

// NewAdapter connects to the access node at networkURL.
func NewAdapter(networkURL string) (*Adapter, error) {
	client, err := grpc.NewClient(networkURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial flow access node: %w", err)
	}
	return &Adapter{
		client: client,
		info:   domain.NewChainInfo(domain.ChainNameFlow, networkURL),
	}, nil
}

// LatestBlockHeight returns the height of the latest sealed block.
func (a *Adapter) LatestBlockHeight(ctx context.Context) (uint64, error) {
	block, err := a.client.GetLatestBlock(ctx, true)
	if err != nil {
		return 0, fmt.Errorf("failed to get latest sealed block: %w", err)
	}
	return block.Height, nil
}

// BlockAtHeight fetches and JSON-encodes the block at the given height.
func (a *Adapter) BlockAtHeight(ctx context.Context, height uint64) (domain.Block, error) {
	block, err := a.client.GetBlockByHeight(ctx, height)
	if err != nil {
		return domain.Block{}, fmt.Errorf("failed to get block %d: %w", height, err)
	}

	payload, err := json.Marshal(mapifyBlock(block))
	if err != nil {
		return domain.Block{}, fmt.Errorf("failed to encode block %d: %w", height, err)
	}

	return domain.Block{Height: height, Payload: payload}, nil
}

// Info returns the chain identity.
func (a *Adapter) Info() domain.ChainInfo {
	return a.info
}

// Close releases the gRPC connection.
func (a *Adapter) Close() error {
	return a.client.Close()
}

func mapifyBlock(block *flowsdk.Block) map[string]any {
	collections := make([]string, 0, len(block.CollectionGuarantees))
	for _, guarantee := range block.CollectionGuarantees {
		collections = append(collections, guarantee.CollectionID.String())
	}

	seals := make([]map[string]any, 0, len(block.Seals))
	for _, seal := range block.Seals {
		seals = append(seals, map[string]any{
			"blockId":            seal.BlockID.String(),
			"executionReceiptId": seal.ExecutionReceiptID.String(),
		})
	}

	return map[string]any{
		"id":                   block.ID.String(),
		"parentId":             block.ParentID.String(),
		"height":               block.Height,
		"timestamp":            block.Timestamp,
		"collectionGuarantees": collections,
		"blockSeals":           seals,
	}
}
