// Package oracle adapts the host's raw per-market probability feed into the
// core's validated ProbabilityFeed, applying the spread-halt, staleness,
// and confidence-floor rules before any price is ever handed to an AMM or
// the position manager. Grounded on nhbchain's native/common guard pattern
// for the "reject until a condition clears" shape, generalized from a
// boolean pause flag to the three-way Active/HaltedSpread/Stale status.
package oracle

import (
	ferrors "flashbets/core/errors"
	"flashbets/fixedpoint"
)

// Status is the adapter's verdict on a feed's usability.
type Status int

const (
	StatusActive Status = iota
	StatusHaltedSpread
	StatusStale
)

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusHaltedSpread:
		return "halted_spread"
	case StatusStale:
		return "stale"
	default:
		return "unknown"
	}
}

// RawUpdate is the host-supplied per-market feed sample.
type RawUpdate struct {
	YesPrice      fixedpoint.FP64
	NoPrice       fixedpoint.FP64
	LastUpdateSlot uint64
	Confidence    fixedpoint.FP64 // in [0,1]
}

// Config holds the three validation thresholds, sourced from the engine's
// configuration aggregate (ORACLE_MAX_AGE_SLOTS, ORACLE_CONFIDENCE_FLOOR,
// SPREAD_HALT_BPS).
type Config struct {
	MaxAgeSlots      uint64
	ConfidenceFloor  fixedpoint.FP64
	SpreadHaltBps    uint32 // 1000 == 10%
}

// Feed is the validated, queryable state the rest of the engine reads.
type Feed struct {
	cfg Config

	yes, no          fixedpoint.FP64
	lastUpdateSlot   uint64
	confidence       fixedpoint.FP64
	status           Status
	lastConfidentMid fixedpoint.FP64
	haveConfidentMid bool
}

// NewFeed constructs an empty feed awaiting its first update.
func NewFeed(cfg Config) *Feed {
	return &Feed{cfg: cfg, status: StatusStale}
}

// Apply ingests a new raw sample and recomputes status. A spread or
// staleness problem moves the feed to HaltedSpread/Stale rather than
// failing the call, since those are persistent states the rest of the
// engine must keep observing; a confidence-floor failure instead rejects
// the sample outright and leaves the prior status untouched, since low
// confidence says nothing about the previous sample's validity.
func (f *Feed) Apply(update RawUpdate, currentSlot uint64) error {
	if update.Confidence.LessThan(f.cfg.ConfidenceFloor) {
		return ferrors.Oracle(ferrors.ErrInsufficientConfidence)
	}

	sum, err := update.YesPrice.Add(update.NoPrice)
	if err != nil {
		return err
	}
	one := fixedpoint.One64()
	var spread fixedpoint.FP64
	if sum.GreaterThan(one) {
		spread, err = sum.Sub(one)
	} else {
		spread, err = one.Sub(sum)
	}
	if err != nil {
		return err
	}

	haltThreshold, err := bpsToFP64(f.cfg.SpreadHaltBps)
	if err != nil {
		return err
	}

	f.yes = update.YesPrice
	f.no = update.NoPrice
	f.lastUpdateSlot = update.LastUpdateSlot
	f.confidence = update.Confidence

	switch {
	case spread.GreaterThan(haltThreshold):
		f.status = StatusHaltedSpread
	case currentSlot > update.LastUpdateSlot && currentSlot-update.LastUpdateSlot > f.cfg.MaxAgeSlots:
		f.status = StatusStale
	default:
		f.status = StatusActive
		mid, err := update.YesPrice.Add(update.NoPrice)
		if err != nil {
			return err
		}
		mid, err = mid.Div(fixedpoint.FP64FromUint64(2))
		if err != nil {
			return err
		}
		f.lastConfidentMid = mid
		f.haveConfidentMid = true
	}
	return nil
}

func bpsToFP64(bps uint32) (fixedpoint.FP64, error) {
	n, err := fixedpoint.FP64FromFloat64(float64(bps) / 10000.0)
	if err != nil {
		return fixedpoint.FP64{}, err
	}
	return n, nil
}

// Status reports the feed's current verdict.
func (f *Feed) Status() Status { return f.status }

// Mid returns the fresh mid price, or OracleUnavailable if the feed is
// halted or stale. This is the only accessor AMMs and the position manager
// are allowed to call for a price.
func (f *Feed) Mid() (fixedpoint.FP64, error) {
	if f.status != StatusActive {
		return fixedpoint.FP64{}, ferrors.Oracle(statusCause(f.status))
	}
	mid, err := f.yes.Add(f.no)
	if err != nil {
		return fixedpoint.FP64{}, err
	}
	return mid.Div(fixedpoint.FP64FromUint64(2))
}

// LastConfidentMid returns the most recent mid observed while Active, for
// host-level fallback policies (e.g. resolving a close at the last good
// price when the feed has since gone Stale). It never fails validation
// itself; the caller decides whether using a stale mid is acceptable.
func (f *Feed) LastConfidentMid() (fixedpoint.FP64, bool) {
	return f.lastConfidentMid, f.haveConfidentMid
}

func statusCause(s Status) error {
	switch s {
	case StatusHaltedSpread:
		return ferrors.ErrHaltedSpread
	case StatusStale:
		return ferrors.ErrStale
	default:
		return ferrors.ErrOracleUnavailable
	}
}
