package dex

import (
	"strings"
)

// ErrorClass categorizes why a source produced no usable quote. Classified
// once at the quote-client boundary; callers only ever see the class and a
// reason string.
type ErrorClass int

const (
	ErrNone ErrorClass = iota
	// ErrNoRoute means the pool or route does not exist for this source.
	ErrNoRoute
	// ErrInsufficientLiquidity means the call reverted on liquidity constraints.
	ErrInsufficientLiquidity
	// ErrZeroOutput means the call returned a valid but zero/negligible amount.
	ErrZeroOutput
	// ErrTransientLock means a concentrated quoter hit short-lived reentrancy
	// lock contention. The only class eligible for retry.
	ErrTransientLock
	// ErrUnknown preserves the raw message for diagnostics.
	ErrUnknown
)

func (c ErrorClass) String() string {
	switch c {
	case ErrNone:
		return "none"
	case ErrNoRoute:
		return "pool or route does not exist"
	case ErrInsufficientLiquidity:
		return "insufficient liquidity"
	case ErrZeroOutput:
		return "zero or invalid output"
	case ErrTransientLock:
		return "transient lock contention"
	default:
		return "unknown error"
	}
}

// Retryable reports whether a failure class may be retried.
func (c ErrorClass) Retryable() bool {
	return c == ErrTransientLock
}

// Classify maps a call error to an ErrorClass. Revert strings are venue
// conventions: V2 routers revert with INSUFFICIENT_* constants, concentrated
// quoters with LOK/locked on reentrancy contention. Lock classification only
// applies to concentrated sources; a V2 router never holds a quoter lock.
func Classify(err error, kind ProtocolKind) ErrorClass {
	if err == nil {
		return ErrNone
	}

	msg := strings.ToLower(err.Error())

	if kind == Concentrated {
		if strings.Contains(msg, "lok") || strings.Contains(msg, "locked") || strings.Contains(msg, "reentrancy") {
			return ErrTransientLock
		}
	}

	switch {
	case strings.Contains(msg, "insufficient_liquidity"),
		strings.Contains(msg, "insufficient liquidity"),
		strings.Contains(msg, "insufficient_output_amount"),
		strings.Contains(msg, "insufficient_input_amount"):
		return ErrInsufficientLiquidity
	case strings.Contains(msg, "no route"),
		strings.Contains(msg, "pair does not exist"),
		strings.Contains(msg, "pool does not exist"),
		strings.Contains(msg, "invalid pair"),
		// A bare revert on getAmountsOut/quoteExactInputSingle is what a
		// missing pool looks like from the outside.
		msg == "execution reverted",
		strings.HasSuffix(msg, "execution reverted"):
		return ErrNoRoute
	default:
		return ErrUnknown
	}
}

// ExclusionMessage renders the reason string surfaced to operators. Unknown
// errors keep the raw message so transient RPC issues stay distinguishable
// from genuine liquidity problems.
func ExclusionMessage(class ErrorClass, err error) string {
	if class == ErrUnknown && err != nil {
		return "unknown error: " + err.Error()
	}
	return class.String()
}
