package scanner

import "time"

// progress measures throughput over windows of a fixed number of transactions.
type progress struct {
	every        uint64
	txs          uint64
	windowStart  time.Time
	windowTxs    uint64
	windowBlocks uint64
}

func newProgress(now time.Time, every uint64) *progress {
	return &progress{every: every, windowStart: now}
}

// txDone counts a transaction and reports whether a progress window is complete.
func (p *progress) txDone() bool {
	p.txs++
	p.windowTxs++
	return p.every > 0 && p.txs%p.every == 0
}

func (p *progress) blockDone() {
	p.windowBlocks++
}

// rates returns transactions and blocks per second since the window started and opens a new window.
func (p *progress) rates(now time.Time) (float64, float64) {
	elapsed := now.Sub(p.windowStart).Seconds()
	var txRate, blockRate float64
	if elapsed > 0 {
		txRate = float64(p.windowTxs) / elapsed
		blockRate = float64(p.windowBlocks) / elapsed
	}
	p.windowStart = now
	p.windowTxs = 0
	p.windowBlocks = 0
	return txRate, blockRate
}
