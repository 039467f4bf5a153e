// Package pipeline groups the block distribution stages. Each stage is
// its own subpackage and process: fetcher polls the chain, divider splits
// the subscriber population into batches, consumer fans batches out into
// per-subscriber delivery jobs, delivery sends them, and logger persists
// the outcomes. Stages communicate only through the queue substrate.
package pipeline
