package chain

import (
	"context"
	"testing"

	"github.com/chris-de-leon-archive/block-feed-prototype-sub001/internal/core/domain"
)

func TestResolveUnknownChain(t *testing.T) {
	if _, err := Resolve(context.Background(), domain.ChainName("SOLANA"), "http://localhost"); err == nil {
		t.Error("expected error for unsupported chain")
	}
}
