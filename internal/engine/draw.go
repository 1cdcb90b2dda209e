package engine

import "github.com/DoyleJ11/loto-backend/internal/apperr"

// PoolSize is the number of distinct numbers a session can draw.
const PoolSize = MaxNumber - MinNumber + 1

// Remaining returns the numbers of the pool not present in drawn, ascending.
func Remaining(drawn []int) []int {
	seen := DrawnSet(drawn)
	out := make([]int, 0, PoolSize-len(seen))
	for n := MinNumber; n <= MaxNumber; n++ {
		if _, ok := seen[n]; !ok {
			out = append(out, n)
		}
	}
	return out
}

// NextNumber selects the next number uniformly from the numbers not yet drawn and
// returns it with its 1-based draw order. drawn is the session's history.
func NextNumber(src Source, drawn []int) (number, order int, err error) {
	if len(drawn) >= PoolSize {
		return 0, 0, apperr.ErrAllDrawn
	}
	remaining := Remaining(drawn)
	if len(remaining) == 0 {
		return 0, 0, apperr.ErrAllDrawn
	}
	return remaining[src.IntN(len(remaining))], len(drawn) + 1, nil
}
