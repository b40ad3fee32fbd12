package score

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"sync"
)

var ErrInvalidScoreValue = errors.New("invalid score value")

// Value is an ordered, summable score. Implementations must only be combined
// with values of the same kind.
type Value interface {
	Add(other Value) (Value, error)
	// Negative when the receiver is worse than other
	Compare(other Value) (int, error)
	// Serialized form, prefixed with the kind
	String() string
	Kind() string
}

type parseFunc func(payload string) (Value, error)

var (
	kindsMu sync.RWMutex
	kinds   = map[string]parseFunc{}
)

// Register makes a score kind available to Parse. Registering the same kind
// twice panics.
func Register(kind string, parse func(payload string) (Value, error)) {
	kindsMu.Lock()
	defer kindsMu.Unlock()

	if _, ok := kinds[kind]; ok {
		panic(fmt.Sprintf("score kind %q already registered", kind))
	}
	kinds[kind] = parse
}

func Parse(s string) (Value, error) {
	kind, payload, ok := strings.Cut(s, ":")
	if !ok {
		return nil, fmt.Errorf("%w: missing kind in %q", ErrInvalidScoreValue, s)
	}

	kindsMu.RLock()
	parse, ok := kinds[kind]
	kindsMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidScoreValue, kind)
	}

	v, err := parse(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidScoreValue, err)
	}
	return v, nil
}

// Sum adds every non-nil value. Returns nil when nothing contributes.
func Sum(values ...Value) (Value, error) {
	var total Value
	for _, v := range values {
		if v == nil {
			continue
		}
		if total == nil {
			total = v
			continue
		}

		var err error
		total, err = total.Add(v)
		if err != nil {
			return nil, err
		}
	}
	return total, nil
}

// Max returns the best non-nil value, or nil when there is none
func Max(values ...Value) (Value, error) {
	var best Value
	for _, v := range values {
		if v == nil {
			continue
		}
		if best == nil {
			best = v
			continue
		}

		c, err := v.Compare(best)
		if err != nil {
			return nil, err
		}
		if c > 0 {
			best = v
		}
	}
	return best, nil
}

func mismatch(a, b Value) error {
	other := "nil"
	if b != nil {
		other = b.Kind()
	}
	return fmt.Errorf("%w: cannot combine %s with %s", ErrInvalidScoreValue, a.Kind(), other)
}

// Field stores a nullable Value in a text column
type Field struct {
	Score Value
}

func NewField(v Value) Field {
	return Field{Score: v}
}

func (f Field) Valid() bool {
	return f.Score != nil
}

// Scan implements sql.Scanner
func (f *Field) Scan(src any) error {
	switch s := src.(type) {
	case nil:
		f.Score = nil
		return nil
	case string:
		return f.parse(s)
	case []byte:
		return f.parse(string(s))
	default:
		return fmt.Errorf("%w: cannot scan %T", ErrInvalidScoreValue, src)
	}
}

func (f *Field) parse(s string) error {
	if s == "" {
		f.Score = nil
		return nil
	}

	v, err := Parse(s)
	if err != nil {
		return err
	}
	f.Score = v
	return nil
}

// Value implements driver.Valuer
func (f Field) Value() (driver.Value, error) {
	if f.Score == nil {
		return nil, nil
	}
	return f.Score.String(), nil
}

func (f Field) String() string {
	if f.Score == nil {
		return ""
	}
	return f.Score.String()
}
