package seam

import (
	"log/slog"
	"time"
)

type paramFlags uint8

const (
	flagMatrix paramFlags = 1 << iota
	flagAlpha
	flagCrop
	flagCornerRadius
	flagShadowRadius
)

// SurfaceParams is an immutable update for one leash. Each field is only
// applied when it was set on the builder.
type SurfaceParams struct {
	Leash Leash

	flags        paramFlags
	matrix       Matrix
	alpha        float64
	crop         Rect
	cornerRadius float64
	shadowRadius float64
}

// Matrix returns the transform and whether it was set.
func (p SurfaceParams) Matrix() (Matrix, bool) { return p.matrix, p.flags&flagMatrix != 0 }

// Alpha returns the alpha and whether it was set.
func (p SurfaceParams) Alpha() (float64, bool) { return p.alpha, p.flags&flagAlpha != 0 }

// WindowCrop returns the crop rectangle and whether it was set.
func (p SurfaceParams) WindowCrop() (Rect, bool) { return p.crop, p.flags&flagCrop != 0 }

// CornerRadius returns the corner radius and whether it was set.
func (p SurfaceParams) CornerRadius() (float64, bool) {
	return p.cornerRadius, p.flags&flagCornerRadius != 0
}

// ShadowRadius returns the shadow radius and whether it was set.
func (p SurfaceParams) ShadowRadius() (float64, bool) {
	return p.shadowRadius, p.flags&flagShadowRadius != 0
}

// SurfaceParamsBuilder accumulates fields for one SurfaceParams.
type SurfaceParamsBuilder struct {
	p SurfaceParams
}

// NewSurfaceParams starts a builder for leash.
func NewSurfaceParams(leash Leash) *SurfaceParamsBuilder {
	return &SurfaceParamsBuilder{p: SurfaceParams{Leash: leash}}
}

// WithMatrix sets the surface transform.
func (b *SurfaceParamsBuilder) WithMatrix(m Matrix) *SurfaceParamsBuilder {
	b.p.matrix = m
	b.p.flags |= flagMatrix
	return b
}

// WithAlpha sets the surface alpha.
func (b *SurfaceParamsBuilder) WithAlpha(a float64) *SurfaceParamsBuilder {
	b.p.alpha = a
	b.p.flags |= flagAlpha
	return b
}

// WithWindowCrop sets the crop, in surface-local coordinates.
func (b *SurfaceParamsBuilder) WithWindowCrop(r Rect) *SurfaceParamsBuilder {
	b.p.crop = r
	b.p.flags |= flagCrop
	return b
}

// WithCornerRadius sets the corner radius.
func (b *SurfaceParamsBuilder) WithCornerRadius(r float64) *SurfaceParamsBuilder {
	b.p.cornerRadius = r
	b.p.flags |= flagCornerRadius
	return b
}

// WithShadowRadius sets the shadow radius.
func (b *SurfaceParamsBuilder) WithShadowRadius(r float64) *SurfaceParamsBuilder {
	b.p.shadowRadius = r
	b.p.flags |= flagShadowRadius
	return b
}

// Build returns the finished record. The builder may be reused afterwards
// without affecting it.
func (b *SurfaceParamsBuilder) Build() SurfaceParams { return b.p }

// Transaction is the set of surface updates for one frame. A compositor
// applies all of them or none.
type Transaction struct {
	Seq    uint64
	Params []SurfaceParams
}

// Compositor is the rendering layer that owns the real surfaces.
type Compositor interface {
	// Apply commits every record of tx atomically.
	Apply(tx Transaction) error
}

// TransactionApplier turns per-frame parameter lists into transactions.
// Before each commit it re-runs its release checks; if any reports the
// surfaces are gone the frame is dropped.
type TransactionApplier struct {
	compositor Compositor
	checks     []func() bool
	seq        uint64

	log     *slog.Logger
	metrics *Metrics
	debug   bool
	stats   commitStats
}

// NewTransactionApplier creates an applier bound to c.
func NewTransactionApplier(c Compositor) *TransactionApplier {
	return &TransactionApplier{compositor: c, log: slog.Default()}
}

// AddReleaseCheck registers alive, consulted before every commit.
func (a *TransactionApplier) AddReleaseCheck(alive func() bool) {
	a.checks = append(a.checks, alive)
}

// ScheduleApply commits params as one transaction and reports whether the
// compositor accepted it. The params slice is copied.
func (a *TransactionApplier) ScheduleApply(params ...SurfaceParams) bool {
	for _, alive := range a.checks {
		if !alive() {
			a.stats.skipped++
			a.metrics.skippedCommit()
			return false
		}
	}
	if len(params) == 0 {
		return true
	}
	a.seq++
	tx := Transaction{Seq: a.seq, Params: append([]SurfaceParams(nil), params...)}

	var start time.Time
	if a.debug {
		a.debugCheckSize(tx)
		start = time.Now()
	}
	err := a.compositor.Apply(tx)
	if err != nil {
		a.stats.failed++
		a.log.Warn("surface transaction rejected", "seq", tx.Seq, "params", len(tx.Params), "error", err)
		return false
	}
	a.stats.commits++
	a.stats.params += len(tx.Params)
	a.metrics.commit(len(tx.Params))
	if a.debug {
		a.debugLog(tx, time.Since(start))
	}
	return true
}

// Stats returns counters for this applier.
func (a *TransactionApplier) Stats() (commits, skipped, failed int) {
	return a.stats.commits, a.stats.skipped, a.stats.failed
}
