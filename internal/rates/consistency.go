package rates

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/holiman/uint256"

	"rateScope/internal/model"
)

// ErrConsistencyMismatch means the locally derived rate disagrees with the reference.
var ErrConsistencyMismatch = errors.New("offchain rate mismatch")

// ReferenceSource supplies the authoritative per-second rate for an asset as
// of time at. The rate depends on at whenever utilization is outside the
// target band.
type ReferenceSource interface {
	ReferenceRate(ctx context.Context, ref model.AssetRef, utilization *uint256.Int, lastUpdated uint64, lastFullUtilizationRate *uint256.Int, at time.Time) (*uint256.Int, error)
}

// CheckMode selects how strictly the reference rate must match.
type CheckMode string

const (
	// CheckDisplay compares both rates after formatting as two-decimal percentages.
	CheckDisplay CheckMode = "display"
	// CheckExact requires the integer rates to be equal.
	CheckExact CheckMode = "exact"
	// CheckOff skips the reference lookup entirely.
	CheckOff CheckMode = "off"
)

// ParseCheckMode parses a mode name; the empty string selects CheckDisplay.
func ParseCheckMode(input string) (CheckMode, error) {
	switch mode := CheckMode(strings.ToLower(strings.TrimSpace(input))); mode {
	case "":
		return CheckDisplay, nil
	case CheckDisplay, CheckExact, CheckOff:
		return mode, nil
	default:
		return "", fmt.Errorf("unknown consistency mode %q", input)
	}
}

// ConsistencyMismatchError describes a divergence between the two rates.
type ConsistencyMismatchError struct {
	Ref       model.AssetRef
	Mode      CheckMode
	Offchain  string
	Reference string
}

func (e *ConsistencyMismatchError) Error() string {
	return fmt.Sprintf("%s for %s (%s): offchain %s != reference %s", ErrConsistencyMismatch, e.Ref, e.Mode, e.Offchain, e.Reference)
}

func (e *ConsistencyMismatchError) Unwrap() error {
	return ErrConsistencyMismatch
}

// Checker compares an offchain rate with a reference rate.
type Checker struct {
	Mode CheckMode
}

// Enabled reports whether a reference rate is needed.
func (c Checker) Enabled() bool {
	return c.Mode != CheckOff
}

// Check returns a *ConsistencyMismatchError when the rates diverge under the configured mode.
func (c Checker) Check(ref model.AssetRef, offchain, reference *uint256.Int) error {
	switch c.Mode {
	case CheckOff:
		return nil
	case CheckExact:
		if offchain.Eq(reference) {
			return nil
		}
		return &ConsistencyMismatchError{Ref: ref, Mode: c.Mode, Offchain: offchain.Dec(), Reference: reference.Dec()}
	default:
		got := FormatPercent(toFloat(offchain) / toFloat(scale))
		want := FormatPercent(toFloat(reference) / toFloat(scale))
		if got == want {
			return nil
		}
		return &ConsistencyMismatchError{Ref: ref, Mode: CheckDisplay, Offchain: got, Reference: want}
	}
}
