// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package gateway

import (
	"math"
	"time"
)

// Policy is a stateless backoff schedule: the delay before retry n (0-based)
// is Base * Factor^n, capped at Max. It carries no state so it can be tested
// independently of any network code and shared across call sites.
type Policy struct {
	Base   time.Duration
	Factor float64
	Max    time.Duration
}

// DefaultPolicy matches the gateway defaults: 500ms base, doubling, 5s cap.
var DefaultPolicy = Policy{Base: 500 * time.Millisecond, Factor: 2.0, Max: 5 * time.Second}

// Delay returns the wait before retry attempt n (0-based). Delays are
// non-decreasing in n and never exceed Max.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	base := p.Base
	if base <= 0 {
		base = DefaultPolicy.Base
	}
	factor := p.Factor
	if factor < 1 {
		factor = DefaultPolicy.Factor
	}
	max := p.Max
	if max <= 0 {
		max = DefaultPolicy.Max
	}

	d := time.Duration(float64(base) * math.Pow(factor, float64(attempt)))
	if d > max || d <= 0 { // d <= 0 guards float overflow
		return max
	}
	return d
}
