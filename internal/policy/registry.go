package policy

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"
)

var (
	ErrUnknownPolicy   = errors.New("unknown policy")
	ErrUnknownMixin    = errors.New("unknown mixin")
	ErrMixinConflict   = errors.New("mixin conflict")
	ErrDuplicatePolicy = errors.New("duplicate policy")
)

// Definition describes a named rule-set. Behaviors left nil fall back to the
// default rule-set.
type Definition struct {
	Name         string
	Registration string
	Base         RuleSet
	Mixins       []string
}

// RegistrationDefinition governs who may enter a contest
type RegistrationDefinition struct {
	Name         string
	Participants ParticipantPolicy
	Mixins       []string
}

type Mixin struct {
	Name     string
	Provides []Behavior
	// Mixins this one is applied after and may override
	Supersedes []string
	Apply      func(RuleSet) RuleSet
}

type Registry struct {
	mu            sync.RWMutex
	registrations map[string]RegistrationDefinition
	mixins        map[string]Mixin
	definitions   map[string]Definition
	composed      map[string]RuleSet
}

func NewRegistry() *Registry {
	return &Registry{
		registrations: map[string]RegistrationDefinition{},
		mixins:        map[string]Mixin{},
		definitions:   map[string]Definition{},
		composed:      map[string]RuleSet{},
	}
}

func (r *Registry) RegisterMixin(m Mixin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if m.Name == "" || m.Apply == nil {
		return fmt.Errorf("mixin %q: name and apply are required", m.Name)
	}
	if _, ok := r.mixins[m.Name]; ok {
		return fmt.Errorf("%w: mixin %q", ErrDuplicatePolicy, m.Name)
	}
	r.mixins[m.Name] = m
	return nil
}

func (r *Registry) RegisterRegistration(d RegistrationDefinition) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if d.Name == "" || d.Participants == nil {
		return fmt.Errorf("registration %q: name and participants are required", d.Name)
	}
	if _, ok := r.registrations[d.Name]; ok {
		return fmt.Errorf("%w: registration %q", ErrDuplicatePolicy, d.Name)
	}
	for _, name := range d.Mixins {
		if _, ok := r.mixins[name]; !ok {
			return fmt.Errorf("registration %q: %w %q", d.Name, ErrUnknownMixin, name)
		}
	}
	r.registrations[d.Name] = d
	return nil
}

// Register validates and composes a rule-set. Every configuration problem is
// reported here rather than when the rule-set is used.
func (r *Registry) Register(d Definition) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if d.Name == "" {
		return errors.New("rule-set name is required")
	}
	if _, ok := r.definitions[d.Name]; ok {
		return fmt.Errorf("%w: rule-set %q", ErrDuplicatePolicy, d.Name)
	}

	reg, ok := r.registrations[d.Registration]
	if !ok {
		return fmt.Errorf("rule-set %q registration %q: %w", d.Name, d.Registration, ErrUnknownPolicy)
	}

	order, err := r.mixinOrder(slices.Concat(d.Mixins, reg.Mixins))
	if err != nil {
		return fmt.Errorf("rule-set %q: %w", d.Name, err)
	}

	rs := withDefaults(d.Base)
	rs.Name = d.Name
	rs.Participants = reg.Participants
	for _, m := range order {
		rs = m.Apply(rs)
		rs.Name = d.Name
	}

	r.definitions[d.Name] = d
	r.composed[d.Name] = rs
	return nil
}

func (r *Registry) Resolve(name string) (RuleSet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rs, ok := r.composed[name]
	if !ok {
		return RuleSet{}, fmt.Errorf("%w: %q", ErrUnknownPolicy, name)
	}
	return rs, nil
}

func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.composed[name]
	return ok
}

// Names lists registered rule-sets in lexical order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.composed))
	for name := range r.composed {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MixinsOf returns the mixins applied to a rule-set, in application order
func (r *Registry) MixinsOf(name string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.definitions[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, name)
	}
	order, err := r.mixinOrder(slices.Concat(d.Mixins, r.registrations[d.Registration].Mixins))
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(order))
	for _, m := range order {
		names = append(names, m.Name)
	}
	return names, nil
}

// mixinOrder dedupes the declared mixins, checks them for conflicts and sorts
// them so that superseded mixins come first. Ties keep declaration order.
// Callers must hold the lock.
func (r *Registry) mixinOrder(declared []string) ([]Mixin, error) {
	var mixins []Mixin
	index := map[string]int{}
	for _, name := range declared {
		if _, seen := index[name]; seen {
			continue
		}
		m, ok := r.mixins[name]
		if !ok {
			return nil, fmt.Errorf("%w %q", ErrUnknownMixin, name)
		}
		index[name] = len(mixins)
		mixins = append(mixins, m)
	}

	// after[i] holds the mixins that must be applied before mixin i
	after := make([][]int, len(mixins))
	for i, m := range mixins {
		for _, s := range m.Supersedes {
			if j, ok := index[s]; ok {
				after[i] = append(after[i], j)
			}
		}
	}

	order, err := topoSort(after)
	if err != nil {
		return nil, err
	}

	reach := reachability(after)
	for i := range mixins {
		for j := i + 1; j < len(mixins); j++ {
			if reach[i][j] || reach[j][i] {
				continue
			}
			for _, b := range mixins[i].Provides {
				if slices.Contains(mixins[j].Provides, b) {
					return nil, fmt.Errorf(
						"%w: %q and %q both provide %q",
						ErrMixinConflict,
						mixins[i].Name,
						mixins[j].Name,
						b,
					)
				}
			}
		}
	}

	sorted := make([]Mixin, 0, len(order))
	for _, i := range order {
		sorted = append(sorted, mixins[i])
	}
	return sorted, nil
}

// topoSort repeatedly picks the first node in declaration order whose
// predecessors are all placed
func topoSort(after [][]int) ([]int, error) {
	placed := make([]bool, len(after))
	order := make([]int, 0, len(after))
	for len(order) < len(after) {
		progress := false
		for i := range after {
			if placed[i] {
				continue
			}
			ready := true
			for _, j := range after[i] {
				if !placed[j] {
					ready = false
					break
				}
			}
			if ready {
				placed[i] = true
				order = append(order, i)
				progress = true
				break
			}
		}
		if !progress {
			return nil, fmt.Errorf("%w: supersedes cycle", ErrMixinConflict)
		}
	}
	return order, nil
}

// reach[i][j] means mixin i is applied after mixin j, directly or transitively
func reachability(after [][]int) [][]bool {
	reach := make([][]bool, len(after))
	for i := range after {
		reach[i] = make([]bool, len(after))
		stack := slices.Clone(after[i])
		for len(stack) > 0 {
			j := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if reach[i][j] {
				continue
			}
			reach[i][j] = true
			stack = append(stack, after[j]...)
		}
	}
	return reach
}
