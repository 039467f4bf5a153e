package domain

import "encoding/json"

// Block is a chain-specific block payload. The pipeline never inspects it
// beyond the height it was fetched at; it is treated as an immutable value
// once the fetcher has produced it.
type Block struct {
	Height  uint64          `json:"height"`
	Payload json.RawMessage `json:"payload"`
}

// BlockCursor is the persisted current height for one chain instance.
// There is exactly one row per ChainInfo.ID; it is created at bootstrap
// and conceptually advanced by the fetcher (the "next height" travels in
// the job payload rather than through a read-modify-write on this row).
type BlockCursor struct {
	ID         string `db:"id"`
	Blockchain string `db:"blockchain"`
	NetworkURL string `db:"network_url"`
	Height     uint64 `db:"height"`
}
