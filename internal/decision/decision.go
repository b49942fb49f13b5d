// Package decision implements the threshold policy that turns a transaction's
// pre-computed risk and trust scores into one of three outcomes, plus the
// distribution comparison the simulator uses to show how a threshold change
// would shift those outcomes across a dataset.
//
// The classifier is a pure function over (risk score, trust score, thresholds)
// with no validation and no I/O. Threshold ordering is deliberately not
// checked: whether review belongs below block is a policy question for the
// caller, and inverted thresholds still evaluate mechanically.
package decision

import (
	"fmt"
	"strings"
)

// Decision is one of the three mutually exclusive outcomes for a transaction.
type Decision string

const (
	Allow  Decision = "ALLOW"
	Review Decision = "REVIEW"
	Block  Decision = "BLOCK"
)

// Categories lists the three outcomes in severity order. Distribution maps
// always carry all of them, even at zero.
var Categories = []Decision{Allow, Review, Block}

// Default thresholds, matching the scoring pipeline's shipped policy.
const (
	DefaultBlockThreshold  = 0.90
	DefaultReviewThreshold = 0.60
	DefaultTrustOverride   = 70.0
)

// Thresholds is one simulation run's policy. Block and Review apply to the
// risk score in [0,1], TrustOverride to the trust score in [0,100]. A fresh
// value is supplied per run; nothing here is persisted.
type Thresholds struct {
	Block         float64 `json:"blockThreshold"`
	Review        float64 `json:"reviewThreshold"`
	TrustOverride float64 `json:"trustOverride"`
}

// DefaultThresholds returns the shipped policy.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Block:         DefaultBlockThreshold,
		Review:        DefaultReviewThreshold,
		TrustOverride: DefaultTrustOverride,
	}
}

// ParseDecision maps an upstream decision string onto an outcome. Unknown
// values are an error so that malformed input fails at the ingestion
// boundary, never inside the classifier.
func ParseDecision(s string) (Decision, error) {
	switch d := Decision(strings.ToUpper(strings.TrimSpace(s))); d {
	case Allow, Review, Block:
		return d, nil
	default:
		return "", fmt.Errorf("decision: unrecognized value %q", s)
	}
}
