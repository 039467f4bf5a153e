package chain

import (
	"context"
	"fmt"

	"github.com/chris-de-leon-archive/block-feed-prototype-sub001/internal/core/domain"
	"github.com/chris-de-leon-archive/block-feed-prototype-sub001/internal/infra/chain/eth"
	"github.com/chris-de-leon-archive/block-feed-prototype-sub001/internal/infra/chain/flow"
)

var constructors = map[domain.ChainName]func(ctx context.Context, networkURL string) (Adapter, error){
	domain.ChainNameEthereum: func(ctx context.Context, networkURL string) (Adapter, error) {
		return eth.NewAdapter(ctx, networkURL)
	},
	domain.ChainNameFlow: func(ctx context.Context, networkURL string) (Adapter, error) {
		return flow.NewAdapter(networkURL)
	},
}

// Resolve builds the adapter for the configured chain. An unknown chain
// name is a configuration error and callers are expected to treat it as
// fatal at startup.
func Resolve(ctx context.Context, name domain.ChainName, networkURL string) (Adapter, error) {
	construct, ok := constructors[name]
	if !ok {
		return nil, fmt.Errorf("no adapter exists for chain %q", name)
	}
	return construct(ctx, networkURL)
}
