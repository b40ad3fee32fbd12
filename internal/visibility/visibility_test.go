package visibility_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/j4b6ski/oioioi/internal/policy"
	"github.com/j4b6ski/oioioi/internal/roundclock"
	"github.com/j4b6ski/oioioi/internal/types"
	"github.com/j4b6ski/oioioi/internal/visibility"
)

var t0 = time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T {
	return &v
}

func round(start time.Time, end *time.Time) policy.Round {
	return policy.Round{
		ID:    uuid.New(),
		Times: roundclock.New(roundclock.Dates{Start: start, End: end}, 0, false),
	}
}

func decider(t *testing.T, name string, mixins ...string) visibility.Decider {
	t.Helper()

	r := policy.Builtin()
	if len(mixins) > 0 {
		require.NoError(t, r.Register(policy.Definition{
			Name:         name,
			Registration: policy.RegistrationPublic,
			Mixins:       mixins,
		}))
	}
	rs, err := r.Resolve(name)
	require.NoError(t, err)
	return visibility.New(rs)
}

func viewer(role types.Role) policy.Viewer {
	v := policy.Viewer{Role: role}
	if role != types.RoleAnonymous {
		v.ID = ptr(uuid.New())
	}
	return v
}

func TestAdminSeesEveryRound(t *testing.T) {
	a := round(t0.Add(-2*time.Hour), ptr(t0))
	b := round(t0.Add(40*time.Minute), ptr(t0.Add(3*time.Hour)))
	c := round(t0.Add(10*24*time.Hour), nil)

	for _, d := range []visibility.Decider{
		decider(t, policy.RuleSetDefault),
		decider(t, policy.RuleSetPastRoundsHidden),
		decider(t, "prep", policy.MixinPreparationWindow),
	} {
		for m := -180; m <= 300; m += 5 {
			ctx := policy.Context{
				Viewer: viewer(types.RoleAdmin),
				Now:    t0.Add(time.Duration(m) * time.Minute),
				Rounds: []policy.Round{a, b, c},
			}
			for _, r := range ctx.Rounds {
				assert.True(t, d.CanSeeRound(ctx, r))
			}
		}
	}
}

func TestPreparationWindow(t *testing.T) {
	// A ends at t0, B starts 40 minutes later so the window is the last 20 minutes
	a := round(t0.Add(-2*time.Hour), ptr(t0))
	t1 := t0.Add(40 * time.Minute)
	b := round(t1, ptr(t1.Add(2*time.Hour)))

	d := decider(t, "prep", policy.MixinPreparationWindow)
	ctx := func(now time.Time) policy.Context {
		return policy.Context{Viewer: viewer(types.RoleParticipant), Now: now, Rounds: []policy.Round{a, b}}
	}

	inside := ctx(t1.Add(-15 * time.Minute))
	assert.False(t, d.CanSeeRound(inside, a))
	assert.False(t, d.CanSeeRound(inside, b))

	before := ctx(t1.Add(-25 * time.Minute))
	assert.True(t, d.CanSeeRound(before, a))
	assert.False(t, d.CanSeeRound(before, b))

	edge := ctx(t1.Add(-20 * time.Minute))
	assert.True(t, d.CanSeeRound(edge, a), "window is open at its start")

	running := ctx(t1.Add(10 * time.Minute))
	assert.False(t, d.CanSeeRound(running, a), "only active rounds while one is active")
	assert.True(t, d.CanSeeRound(running, b))

	plain := decider(t, policy.RuleSetDefault)
	assert.True(t, plain.CanSeeRound(inside, a))
}

func TestPreparationWindowCappedAt30Minutes(t *testing.T) {
	a := round(t0.Add(-2*time.Hour), ptr(t0))
	t1 := t0.Add(5 * time.Hour)
	b := round(t1, nil)

	d := decider(t, "prep", policy.MixinPreparationWindow)
	at := func(before time.Duration) policy.Context {
		return policy.Context{Viewer: viewer(types.RoleParticipant), Now: t1.Add(-before), Rounds: []policy.Round{a, b}}
	}

	assert.True(t, d.CanSeeRound(at(31*time.Minute), a))
	assert.False(t, d.CanSeeRound(at(29*time.Minute), a))
}

func TestPreparationWindowWithoutBreak(t *testing.T) {
	// Only a future round, no past one to measure the break from
	b := round(t0.Add(10*time.Minute), nil)
	d := decider(t, "prep", policy.MixinPreparationWindow)
	ctx := policy.Context{Viewer: viewer(types.RoleParticipant), Now: t0, Rounds: []policy.Round{b}}
	assert.False(t, d.CanSeeRound(ctx, b))

	ctx.Now = t0.Add(10 * time.Minute)
	assert.True(t, d.CanSeeRound(ctx, b))
}

func TestPastRoundsHidden(t *testing.T) {
	// A ends at t0, B starts three hours later so the window is the last 30 minutes
	a := round(t0.Add(-2*time.Hour), ptr(t0))
	t1 := t0.Add(3 * time.Hour)
	b := round(t1, ptr(t1.Add(2*time.Hour)))
	d := decider(t, policy.RuleSetPastRoundsHidden)

	ctx := policy.Context{
		Viewer: policy.Viewer{ID: ptr(uuid.New()), Role: types.RoleParticipant, Participant: true},
		Now:    t0.Add(-time.Hour),
		Rounds: []policy.Round{a, b},
	}
	assert.True(t, d.CanSeeRound(ctx, a))
	assert.False(t, d.CanSeeRound(ctx, b))

	for _, m := range []int{30, 90, 140} {
		ctx.Now = t0.Add(time.Duration(m) * time.Minute)
		assert.True(t, d.CanSeeRound(ctx, a), "past round visible %d minutes into the break", m)
		assert.False(t, d.CanSeeRound(ctx, b))
	}

	ctx.Now = t1.Add(-10 * time.Minute)
	assert.False(t, d.CanSeeRound(ctx, a), "hidden while preparing the next round")
	assert.False(t, d.CanSeeRound(ctx, b))

	ctx.Now = t1.Add(time.Hour)
	assert.False(t, d.CanSeeRound(ctx, a), "only active rounds while one is active")
	assert.True(t, d.CanSeeRound(ctx, b))

	ctx.Now = t1.Add(5 * time.Hour)
	assert.True(t, d.CanSeeRound(ctx, a))
	assert.True(t, d.CanSeeRound(ctx, b))
}

func TestPreparationWindowBackToBack(t *testing.T) {
	// B starts the moment A ends, the window has no length
	a := round(t0.Add(-2*time.Hour), ptr(t0))
	b := round(t0, ptr(t0.Add(2*time.Hour)))
	d := decider(t, "prep", policy.MixinPreparationWindow)
	ctx := func(now time.Time) policy.Context {
		return policy.Context{Viewer: viewer(types.RoleParticipant), Now: now, Rounds: []policy.Round{a, b}}
	}

	before := ctx(t0.Add(-time.Minute))
	assert.True(t, d.CanSeeRound(before, a))
	assert.False(t, d.CanSeeRound(before, b))

	at := ctx(t0)
	assert.True(t, d.CanSeeRound(at, a), "both rounds are active at the shared instant")
	assert.True(t, d.CanSeeRound(at, b))

	after := ctx(t0.Add(time.Minute))
	assert.False(t, d.CanSeeRound(after, a))
	assert.True(t, d.CanSeeRound(after, b))

	// with B over too, nothing is ever suppressed around the shared instant
	over := ctx(t0.Add(3 * time.Hour))
	assert.True(t, d.CanSeeRound(over, a))
	assert.True(t, d.CanSeeRound(over, b))
}

func TestCanSeeProblem(t *testing.T) {
	a := round(t0, ptr(t0.Add(time.Hour)))
	d := decider(t, policy.RuleSetDefault)
	ctx := policy.Context{Viewer: viewer(types.RoleParticipant), Now: t0.Add(-time.Minute), Rounds: []policy.Round{a}}

	p := visibility.Problem{ID: uuid.New(), RoundID: &a.ID}
	library := visibility.Problem{ID: uuid.New()}

	assert.False(t, d.CanSeeProblem(ctx, p))
	assert.False(t, d.CanSeeProblem(ctx, library))

	ctx.Now = t0
	assert.True(t, d.CanSeeProblem(ctx, p))
	assert.False(t, d.CanSeeProblem(ctx, library))
	assert.Len(t, d.VisibleProblems(ctx, []visibility.Problem{p, library}), 1)

	ctx.Viewer = viewer(types.RoleAdmin)
	ctx.Now = t0.Add(-time.Hour)
	assert.True(t, d.CanSeeProblem(ctx, library))
}

func TestCanSeeStatement(t *testing.T) {
	a := round(t0, nil)
	p := visibility.Problem{ID: uuid.New(), RoundID: &a.ID}
	ctx := policy.Context{Viewer: viewer(types.RoleParticipant), Now: t0, Rounds: []policy.Round{a}}

	d := decider(t, policy.RuleSetDefault)
	hidden := decider(t, "hidden", policy.MixinStatementsHidden)

	tests := []struct {
		override types.StatementVisibility
		decider  visibility.Decider
		want     bool
	}{
		{types.StatementVisibilityYes, hidden, true},
		{types.StatementVisibilityNo, d, false},
		{types.StatementVisibilityAuto, d, true},
		{"", d, true},
		{types.StatementVisibilityAuto, hidden, false},
	}

	for _, tt := range tests {
		ctx.StatementVisibility = tt.override
		assert.Equal(t, tt.want, tt.decider.CanSeeStatement(ctx, p), tt.override)
	}

	ctx.Viewer = viewer(types.RoleAdmin)
	ctx.StatementVisibility = types.StatementVisibilityNo
	assert.True(t, d.CanSeeStatement(ctx, p))
}

func TestCanSubmit(t *testing.T) {
	active := round(t0, ptr(t0.Add(time.Hour)))
	late := round(t0.Add(-3*time.Hour), ptr(t0.Add(-2*time.Hour)))
	late.Times.CanSubmitAfterEnd = true
	over := round(t0.Add(-3*time.Hour), ptr(t0.Add(-2*time.Hour)))
	future := round(t0.Add(time.Hour), nil)

	rounds := []policy.Round{active, late, over, future}
	problem := func(r policy.Round) visibility.Problem {
		return visibility.Problem{ID: uuid.New(), RoundID: &r.ID}
	}

	d := decider(t, policy.RuleSetDefault)
	ctx := policy.Context{Viewer: viewer(types.RoleParticipant), Now: t0.Add(time.Minute), Rounds: rounds}

	assert.True(t, d.CanSubmit(ctx, problem(active)))
	assert.True(t, d.CanSubmit(ctx, problem(late)))
	assert.False(t, d.CanSubmit(ctx, problem(over)))
	assert.False(t, d.CanSubmit(ctx, problem(future)))
	assert.False(t, d.CanSubmit(ctx, visibility.Problem{ID: uuid.New()}))

	anon := ctx
	anon.Viewer = viewer(types.RoleAnonymous)
	assert.False(t, d.CanSubmit(anon, problem(active)))

	admin := ctx
	admin.Viewer = viewer(types.RoleAdmin)
	assert.True(t, d.CanSubmit(admin, problem(future)))
	assert.False(t, d.CanSubmit(admin, visibility.Problem{ID: uuid.New()}))

	closed := decider(t, policy.RuleSetACM)
	assert.False(t, closed.CanSubmit(ctx, problem(active)), "not registered")
	ctx.Viewer.Participant = true
	assert.True(t, closed.CanSubmit(ctx, problem(active)))
}

func TestResultsVisibleTo(t *testing.T) {
	d0 := t0
	r := policy.Round{
		ID: uuid.New(),
		Times: roundclock.New(roundclock.Dates{
			Start:       d0,
			End:         ptr(d0.Add(2 * time.Hour)),
			ResultsDate: ptr(d0.Add(3 * time.Hour)),
		}, 0, false),
	}
	userID := uuid.New()
	s := visibility.Submission{ID: uuid.New(), UserID: &userID, RoundID: &r.ID, Date: d0.Add(time.Hour)}

	dec := decider(t, policy.RuleSetDefault)
	ctx := policy.Context{
		Viewer: policy.Viewer{ID: &userID, Role: types.RoleParticipant},
		Now:    d0.Add(150 * time.Minute),
		Rounds: []policy.Round{r},
	}
	assert.False(t, dec.ResultsVisibleTo(ctx, s))

	ctx.Now = d0.Add(181 * time.Minute)
	assert.True(t, dec.ResultsVisibleTo(ctx, s))

	ctx.Now = d0.Add(150 * time.Minute)
	ctx.Viewer = viewer(types.RoleObserver)
	assert.True(t, dec.ResultsVisibleTo(ctx, s))
}

func TestFilterVisibleReports(t *testing.T) {
	r := policy.Round{
		ID: uuid.New(),
		Times: roundclock.New(roundclock.Dates{
			Start:       t0,
			End:         ptr(t0.Add(time.Hour)),
			ResultsDate: ptr(t0.Add(2 * time.Hour)),
		}, 0, false),
	}
	userID := uuid.New()
	s := visibility.Submission{ID: uuid.New(), UserID: &userID, RoundID: &r.ID, Date: t0}
	reports := []visibility.Report{
		{ID: uuid.New(), Kind: types.ReportKindNormal, Status: types.ReportStatusSuperseded},
		{ID: uuid.New(), Kind: types.ReportKindNormal, Status: types.ReportStatusActive},
		{ID: uuid.New(), Kind: types.ReportKindInitial, Status: types.ReportStatusActive},
		{ID: uuid.New(), Kind: types.ReportKindFailure, Status: types.ReportStatusInactive},
	}

	d := decider(t, policy.RuleSetDefault)
	ctx := policy.Context{
		Viewer: policy.Viewer{ID: &userID, Role: types.RoleParticipant},
		Now:    t0.Add(30 * time.Minute),
		Rounds: []policy.Round{r},
	}
	assert.Empty(t, d.FilterVisibleReports(ctx, s, reports))

	ctx.Now = t0.Add(3 * time.Hour)
	assert.Equal(t, []visibility.Report{reports[1]}, d.FilterVisibleReports(ctx, s, reports))

	ctx.Now = t0.Add(30 * time.Minute)
	ctx.Viewer = viewer(types.RoleAdmin)
	assert.Equal(t, reports, d.FilterVisibleReports(ctx, s, reports))
}

func TestCanSeeSubmission(t *testing.T) {
	r := round(t0, nil)
	owner := uuid.New()
	s := visibility.Submission{
		ID:        uuid.New(),
		UserID:    &owner,
		RoundID:   &r.ID,
		Date:      t0.Add(time.Minute),
		Kind:      types.SubmissionKindNormal,
		ProblemID: uuid.New(),
	}

	d := decider(t, policy.RuleSetDefault)
	ctx := policy.Context{
		Viewer: policy.Viewer{ID: &owner, Role: types.RoleParticipant},
		Now:    t0.Add(time.Hour),
		Rounds: []policy.Round{r},
	}
	assert.True(t, d.CanSeeSubmission(ctx, s))

	hidden := s
	hidden.Kind = types.SubmissionKindIgnoredHidden
	assert.False(t, d.CanSeeSubmission(ctx, hidden))

	other := ctx
	other.Viewer = viewer(types.RoleParticipant)
	assert.False(t, d.CanSeeSubmission(other, s))

	early := ctx
	early.Now = t0
	assert.False(t, d.CanSeeSubmission(early, s))

	admin := ctx
	admin.Viewer = viewer(types.RoleAdmin)
	assert.True(t, d.CanSeeSubmission(admin, hidden))
}
