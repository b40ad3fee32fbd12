package policy

import "fmt"

const (
	RegistrationPublic           = "public"
	RegistrationParticipantsOnly = "participants-only"

	RuleSetDefault          = "default"
	RuleSetPastRoundsHidden = "past-rounds-hidden"
	RuleSetSeparateResults  = "separate-results"
	RuleSetACM              = "acm"
	RuleSetBestOf           = "best-of"
)

func builtinRegistrations() []RegistrationDefinition {
	return []RegistrationDefinition{
		{Name: RegistrationPublic, Participants: openParticipants{}},
		{Name: RegistrationParticipantsOnly, Participants: registeredParticipants{}},
	}
}

func builtinDefinitions() []Definition {
	return []Definition{
		{Name: RuleSetDefault, Registration: RegistrationPublic},
		{
			Name:         RuleSetPastRoundsHidden,
			Registration: RegistrationParticipantsOnly,
			Mixins:       []string{MixinPreparationWindow},
		},
		{
			Name:         RuleSetSeparateResults,
			Registration: RegistrationPublic,
			Mixins:       []string{MixinSeparatePublicResults},
		},
		{
			Name:         RuleSetACM,
			Registration: RegistrationParticipantsOnly,
			Base:         RuleSet{Scoring: acmScoring{}},
			Mixins:       []string{MixinPreparationWindow},
		},
		{
			Name:         RuleSetBestOf,
			Registration: RegistrationPublic,
			Mixins:       []string{MixinBestSubmission, MixinWeightedScores},
		},
	}
}

// RegisterBuiltins adds every bundled registration, mixin and rule-set
func RegisterBuiltins(r *Registry) error {
	for _, m := range builtinMixins() {
		if err := r.RegisterMixin(m); err != nil {
			return fmt.Errorf("failed to register builtin mixin: %w", err)
		}
	}
	for _, d := range builtinRegistrations() {
		if err := r.RegisterRegistration(d); err != nil {
			return fmt.Errorf("failed to register builtin registration: %w", err)
		}
	}
	for _, d := range builtinDefinitions() {
		if err := r.Register(d); err != nil {
			return fmt.Errorf("failed to register builtin rule-set: %w", err)
		}
	}
	return nil
}

// Builtin returns a registry holding only the bundled policies
func Builtin() *Registry {
	r := NewRegistry()
	if err := RegisterBuiltins(r); err != nil {
		panic(err)
	}
	return r
}
