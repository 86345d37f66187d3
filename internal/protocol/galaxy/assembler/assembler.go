// Package assembler groups a connection's valid blocks into per-event
// chunks, each beginning with an ACCOUNT_ID block except for any blocks
// that arrive before the first ACCOUNT_ID, which form a chunk of their own.
package assembler

import "github.com/mvndaai/galaxy-sia/internal/protocol/galaxy/frame"

// Chunks sweeps blocks left-to-right and starts a new chunk on every
// ACCOUNT_ID block that follows other blocks; an ACCOUNT_ID at the very
// start opens the initial chunk. Callers
// must exclude END_OF_DATA from blocks before calling Chunks; it never
// belongs to a chunk. Running Chunks twice over the same input yields
// identical output since it only reads blocks, never mutates it.
func Chunks(blocks []frame.Block) [][]frame.Block {
	var chunks [][]frame.Block
	var current []frame.Block

	for _, b := range blocks {
		if b.Command == frame.CommandAccountID && len(current) > 0 {
			chunks = append(chunks, current)
			current = []frame.Block{b}
			continue
		}
		current = append(current, b)
	}
	if len(current) > 0 {
		chunks = append(chunks, current)
	}
	return chunks
}
