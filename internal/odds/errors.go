package odds

import "errors"

// Engine error kinds. All of them are local to the unit they name: the
// caller drops that unit and keeps processing its siblings.
var (
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")
	ErrMalformedQuote        = errors.New("malformed quote")
	ErrNoPrimaryLine         = errors.New("no primary line")
	ErrStalePrimaryLine      = errors.New("stale primary line")
	ErrIncompleteTwoSided    = errors.New("incomplete two-sided market")
	ErrMalformedCell         = errors.New("malformed cell")
)

// Reason maps an engine error to the tag used in batch summaries.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInsufficientLiquidity):
		return "insufficient_liquidity"
	case errors.Is(err, ErrMalformedQuote):
		return "malformed_quote"
	case errors.Is(err, ErrNoPrimaryLine):
		return "no_primary_line"
	case errors.Is(err, ErrStalePrimaryLine):
		return "stale_primary_line"
	case errors.Is(err, ErrIncompleteTwoSided):
		return "incomplete_two_sided"
	case errors.Is(err, ErrMalformedCell):
		return "malformed_cell"
	default:
		return "error"
	}
}
