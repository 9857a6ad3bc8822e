package seam

import "time"

// commitStats holds per-applier commit counters. Timing is only logged when
// debug mode is on.
type commitStats struct {
	commits int
	skipped int
	failed  int
	params  int
}

// debugLog writes one line per committed transaction.
func (a *TransactionApplier) debugLog(tx Transaction, took time.Duration) {
	a.log.Debug("surface commit",
		"seq", tx.Seq,
		"params", len(tx.Params),
		"took", took,
		"commits", a.stats.commits,
		"skipped", a.stats.skipped,
		"failed", a.stats.failed,
	)
}

// debugMaxParams is the record count above which a transaction is reported
// as unusually large.
const debugMaxParams = 32

func (a *TransactionApplier) debugCheckSize(tx Transaction) {
	if len(tx.Params) > debugMaxParams {
		a.log.Warn("large surface transaction", "seq", tx.Seq, "params", len(tx.Params), "threshold", debugMaxParams)
	}
}
