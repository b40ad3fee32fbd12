package score

import (
	"fmt"
	"math"
	"strconv"
)

const KindInteger = "int"

func init() {
	Register(KindInteger, parseInteger)
}

// IntegerScore is a plain integer number of points
type IntegerScore int64

func NewInteger(points int64) IntegerScore {
	return IntegerScore(points)
}

func parseInteger(payload string) (Value, error) {
	n, err := strconv.ParseInt(payload, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse integer score: %w", err)
	}
	return IntegerScore(n), nil
}

func (s IntegerScore) Kind() string {
	return KindInteger
}

// Zero padded so that lexical order of non-negative scores matches numeric order
func (s IntegerScore) String() string {
	return fmt.Sprintf("%s:%019d", KindInteger, int64(s))
}

func (s IntegerScore) Add(other Value) (Value, error) {
	o, ok := other.(IntegerScore)
	if !ok {
		return nil, mismatch(s, other)
	}
	return s + o, nil
}

func (s IntegerScore) Compare(other Value) (int, error) {
	o, ok := other.(IntegerScore)
	if !ok {
		return 0, mismatch(s, other)
	}

	switch {
	case s < o:
		return -1, nil
	case s > o:
		return 1, nil
	default:
		return 0, nil
	}
}

// Weighted scales the score, rounding half away from zero
func (s IntegerScore) Weighted(weight float64) IntegerScore {
	return IntegerScore(math.Round(float64(s) * weight))
}
