// Package focus orders rounds by how interesting they are to a viewer right now.
package focus

import (
	"cmp"
	"slices"
	"time"

	"github.com/j4b6ski/oioioi/internal/roundclock"
)

const (
	imminence         = 10 * time.Minute
	focusAfterStart   = time.Minute
	inactiveImminence = 6 * time.Hour
	focusAfterEnd     = time.Hour
)

// Key is compared lexicographically, field by field
type Key struct {
	ToEvent         time.Duration
	NotActive       bool
	ToEventInactive time.Duration
	InFuture        bool
	FromStart       time.Duration
}

func KeyOf(t roundclock.Times, now time.Time) Key {
	start := t.Start
	end := t.EffectiveEnd()
	state := t.StateOf(now)

	toEvent := imminence
	if !now.Before(start) && !now.After(start.Add(focusAfterStart)) {
		toEvent = now.Sub(start)
	}
	switch state {
	case roundclock.Future:
		toEvent = min(toEvent, start.Sub(now))
	case roundclock.Active:
		if end != nil {
			toEvent = min(toEvent, end.Sub(now))
		}
	}

	toEventInactive := inactiveImminence
	if end != nil && !now.Before(*end) && !now.After(end.Add(focusAfterEnd)) {
		toEventInactive = now.Sub(*end)
	}
	if state == roundclock.Future {
		toEventInactive = min(toEventInactive, start.Sub(now))
	}

	fromStart := start.Sub(now)
	if fromStart < 0 {
		fromStart = -fromStart
	}

	return Key{
		ToEvent:         toEvent,
		NotActive:       state != roundclock.Active,
		ToEventInactive: toEventInactive,
		InFuture:        now.Before(start),
		FromStart:       fromStart,
	}
}

func compareBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	default:
		return 1
	}
}

func (k Key) Compare(o Key) int {
	if c := cmp.Compare(k.ToEvent, o.ToEvent); c != 0 {
		return c
	}
	if c := compareBool(k.NotActive, o.NotActive); c != 0 {
		return c
	}
	if c := cmp.Compare(k.ToEventInactive, o.ToEventInactive); c != 0 {
		return c
	}
	if c := compareBool(k.InFuture, o.InFuture); c != 0 {
		return c
	}
	return cmp.Compare(k.FromStart, o.FromStart)
}

// Order returns a stably sorted copy of items, most interesting first
func Order[T any](items []T, timesOf func(T) roundclock.Times, now time.Time) []T {
	type keyed struct {
		item T
		key  Key
	}

	ks := make([]keyed, len(items))
	for i, item := range items {
		ks[i] = keyed{item: item, key: KeyOf(timesOf(item), now)}
	}
	slices.SortStableFunc(ks, func(a, b keyed) int {
		return a.key.Compare(b.key)
	})

	sorted := make([]T, len(items))
	for i, k := range ks {
		sorted[i] = k.item
	}
	return sorted
}
