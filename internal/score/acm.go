package score

import (
	"fmt"
	"strconv"
	"strings"
)

const KindACM = "acm"

func init() {
	Register(KindACM, parseACM)
}

// ACMScore ranks by problems solved, then by lower penalty
type ACMScore struct {
	Solved         int64
	PenaltyMinutes int64
}

func NewACM(solved, penaltyMinutes int64) ACMScore {
	return ACMScore{Solved: solved, PenaltyMinutes: penaltyMinutes}
}

func parseACM(payload string) (Value, error) {
	solved, penalty, ok := strings.Cut(payload, ":")
	if !ok {
		return nil, fmt.Errorf("parse acm score %q: missing penalty", payload)
	}

	s, err := strconv.ParseInt(solved, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse acm solved count: %w", err)
	}
	p, err := strconv.ParseInt(penalty, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse acm penalty: %w", err)
	}
	if s < 0 || p < 0 {
		return nil, fmt.Errorf("negative acm score %q", payload)
	}

	return ACMScore{Solved: s, PenaltyMinutes: p}, nil
}

func (s ACMScore) Kind() string {
	return KindACM
}

func (s ACMScore) String() string {
	return fmt.Sprintf("%s:%010d:%010d", KindACM, s.Solved, s.PenaltyMinutes)
}

func (s ACMScore) Add(other Value) (Value, error) {
	o, ok := other.(ACMScore)
	if !ok {
		return nil, mismatch(s, other)
	}
	return ACMScore{
		Solved:         s.Solved + o.Solved,
		PenaltyMinutes: s.PenaltyMinutes + o.PenaltyMinutes,
	}, nil
}

func (s ACMScore) Compare(other Value) (int, error) {
	o, ok := other.(ACMScore)
	if !ok {
		return 0, mismatch(s, other)
	}

	switch {
	case s.Solved != o.Solved:
		if s.Solved < o.Solved {
			return -1, nil
		}
		return 1, nil
	case s.PenaltyMinutes > o.PenaltyMinutes:
		return -1, nil
	case s.PenaltyMinutes < o.PenaltyMinutes:
		return 1, nil
	default:
		return 0, nil
	}
}
