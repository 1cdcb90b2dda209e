package engine

import "github.com/DoyleJ11/loto-backend/internal/apperr"

type Verdict struct {
	Valid   bool
	Numbers []int // filled numbers of the claimed row
	Missing []int // numbers of the row not drawn yet
}

func DrawnSet(drawn []int) map[int]struct{} {
	set := make(map[int]struct{}, len(drawn))
	for _, n := range drawn {
		set[n] = struct{}{}
	}
	return set
}

func ValidRow(row int) bool { return row >= 0 && row < Rows }

// CheckRow decides a claim: valid iff every filled number in row is in drawn. A row
// with no filled cells is trivially valid.
func CheckRow(g Grid, row int, drawn map[int]struct{}) (Verdict, error) {
	if !ValidRow(row) {
		return Verdict{}, apperr.ErrInvalidRow
	}
	v := Verdict{Numbers: g.Row(row)}
	for _, n := range v.Numbers {
		if _, ok := drawn[n]; !ok {
			v.Missing = append(v.Missing, n)
		}
	}
	v.Valid = len(v.Missing) == 0
	return v, nil
}
