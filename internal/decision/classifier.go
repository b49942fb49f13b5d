package decision

// Classify evaluates the threshold cascade for a single transaction.
// The order is load-bearing:
//
//  1. riskScore >= t.Block          -> BLOCK
//  2. else riskScore >= t.Review    -> REVIEW
//  3. else                          -> ALLOW
//  4. trustScore >= t.TrustOverride and riskScore < t.Block -> ALLOW
//
// The override reverses a REVIEW but never a BLOCK. All boundaries are
// inclusive. Inputs outside their documented ranges are not clamped, and
// threshold ordering is not validated; the comparisons run exactly as
// written.
func Classify(riskScore, trustScore float64, t Thresholds) Decision {
	d := Allow
	if riskScore >= t.Block {
		d = Block
	} else if riskScore >= t.Review {
		d = Review
	}
	if trustScore >= t.TrustOverride && riskScore < t.Block {
		d = Allow
	}
	return d
}
