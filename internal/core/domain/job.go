package domain

// Pagination selects a deterministic slice of the active-subscriber set.
// The divider computes the windows; the consumer re-resolves the same
// window at consume time.
type Pagination struct {
	Limit  int64 `json:"limit"`
	Offset int64 `json:"offset"`
}

// FetchJob is the payload of a block-fetcher job: the height to fetch.
type FetchJob struct {
	Height uint64 `json:"height"`
}

// DivideJob carries a freshly fetched block to the divider.
type DivideJob struct {
	Chain ChainInfo `json:"chain"`
	Block Block     `json:"block"`
}

// ConsumeJob is one bounded batch of the subscriber population for a
// single block and delivery method.
type ConsumeJob struct {
	Method     DeliveryMethod `json:"method"`
	Chain      ChainInfo      `json:"chain"`
	Block      Block          `json:"block"`
	Pagination Pagination     `json:"pagination"`
}

// DeliveryJob is the unit handed to a webhook or mailer worker. It carries
// enough context to be logged without a second database lookup.
type DeliveryJob struct {
	Subscription Subscription    `json:"subscription"`
	Details      DeliveryDetails `json:"details"`
	Chain        ChainInfo       `json:"chain"`
	Block        Block           `json:"block"`
}
