package aggregate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	sloggorm "github.com/imdatngo/slog-gorm/v2"
	"github.com/sethvargo/go-retry"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/mock/gomock"
	gormpg "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/j4b6ski/oioioi/cmd/server/internal/migrations"
	"github.com/j4b6ski/oioioi/cmd/server/internal/models"
	"github.com/j4b6ski/oioioi/internal/judging"
	mockjudging "github.com/j4b6ski/oioioi/internal/judging/mock"
	"github.com/j4b6ski/oioioi/internal/policy"
	"github.com/j4b6ski/oioioi/internal/roundclock"
	"github.com/j4b6ski/oioioi/internal/score"
	"github.com/j4b6ski/oioioi/internal/types"
	"github.com/j4b6ski/oioioi/internal/visibility"
)

type AggregatorTestSuite struct {
	suite.Suite

	pgContainer *postgres.PostgresContainer
	db          *gorm.DB
	judge       *mockjudging.MockBackend
	aggregator  *Aggregator

	day time.Time
}

func (s *AggregatorTestSuite) SetupSuite() {
	s.day = time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

	ct, err := postgres.Run(s.T().Context(),
		"postgres:16.4-alpine",
		postgres.WithDatabase("contestengine"),
		postgres.WithUsername("contestengine"),
		postgres.WithPassword("contestengine"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Second)),
	)
	s.Require().NoError(err)
	s.pgContainer = ct

	connStr, err := s.pgContainer.ConnectionString(s.T().Context())
	s.Require().NoError(err)

	db, err := gorm.Open(gormpg.Open(connStr), &gorm.Config{
		Logger:         sloggorm.New(),
		TranslateError: true,
	})
	s.Require().NoError(err)
	s.db = db

	s.Require().NoError(migrations.Up(s.T().Context(), s.db))
}

func (s *AggregatorTestSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.judge = mockjudging.NewMockBackend(ctrl)

	a, err := New(s.db, policy.Builtin(), s.judge,
		WithBackoff(func() retry.Backoff {
			b := retry.NewFibonacci(time.Millisecond * 10)
			b = retry.WithMaxRetries(3, b)
			return b
		}),
		WithLockTimeout(2*time.Second),
		WithConcurrency(2),
	)
	s.Require().NoError(err)
	s.aggregator = a
}

func (s *AggregatorTestSuite) TearDownSuite() {
	s.Require().NoError(testcontainers.TerminateContainer(s.pgContainer))
}

func TestAggregatorTestSuite(t *testing.T) {
	suite.Run(t, new(AggregatorTestSuite))
}

func (s *AggregatorTestSuite) createUser() *models.User {
	u := &models.User{Name: "u-" + uuid.NewString(), Token: "x", Active: models.NewNullFromData(true)}
	s.Require().NoError(s.db.Create(u).Error)
	return u
}

func (s *AggregatorTestSuite) createContest(policyName string) *models.Contest {
	c := &models.Contest{
		Name:            "c-" + uuid.NewString(),
		PolicyName:      policyName,
		JudgingPriority: 10,
		JudgingWeight:   1,
	}
	s.Require().NoError(s.db.Create(c).Error)
	return c
}

func (s *AggregatorTestSuite) createRound(contest *models.Contest, trial bool) *models.Round {
	r := &models.Round{
		ContestID:   contest.ID,
		Name:        "r-" + uuid.NewString(),
		StartDate:   s.day,
		EndDate:     models.NewNullFromData(s.day.Add(2 * time.Hour)),
		ResultsDate: models.NewNullFromData(s.day.Add(3 * time.Hour)),
		IsTrial:     trial,
	}
	s.Require().NoError(s.db.Create(r).Error)
	return r
}

func (s *AggregatorTestSuite) createProblem(contest *models.Contest, round *models.Round) *models.ProblemInstance {
	pi := &models.ProblemInstance{
		ContestID:   contest.ID,
		ShortName:   "p-" + uuid.NewString(),
		ScoreWeight: 1,
	}
	if round != nil {
		pi.RoundID = models.NewNullFromData(round.ID)
	}
	s.Require().NoError(s.db.Create(pi).Error)
	return pi
}

func (s *AggregatorTestSuite) createSubmission(
	pi *models.ProblemInstance,
	user *models.User,
	status types.SubmissionStatus,
	value score.Value,
) *models.Submission {
	sub := &models.Submission{
		ProblemInstanceID: pi.ID,
		UserID:            models.NewNullFromData(user.ID),
		Date:              s.day.Add(time.Hour),
		Kind:              types.SubmissionKindNormal,
		Status:            status,
		Score:             score.NewField(value),
	}
	s.Require().NoError(s.db.Create(sub).Error)
	return sub
}

func (s *AggregatorTestSuite) createReport(
	sub *models.Submission,
	kind types.ReportKind,
	status types.SubmissionStatus,
	value score.Value,
	at time.Time,
) *models.SubmissionReport {
	report := &models.SubmissionReport{
		SubmissionID: sub.ID,
		Kind:         kind,
		Status:       types.ReportStatusInactive,
		Model:        models.Model{CreatedAt: at, UpdatedAt: at},
	}
	s.Require().NoError(s.db.Create(report).Error)

	if kind == types.ReportKindNormal {
		s.Require().NoError(s.db.Create(&models.ScoreReport{
			SubmissionReportID: report.ID,
			Status:             status,
			Score:              score.NewField(value),
		}).Error)
	}
	return report
}

func (s *AggregatorTestSuite) problemResult(user *models.User, pi *models.ProblemInstance) *models.ResultForProblem {
	var rows []models.ResultForProblem
	s.Require().NoError(s.db.
		Where("user_id = ? AND problem_instance_id = ?", user.ID, pi.ID).
		Find(&rows).Error)
	if len(rows) == 0 {
		return nil
	}
	return &rows[0]
}

func (s *AggregatorTestSuite) roundResult(user *models.User, round *models.Round) models.ResultForRound {
	var row models.ResultForRound
	s.Require().NoError(s.db.Where("user_id = ? AND round_id = ?", user.ID, round.ID).Take(&row).Error)
	return row
}

func (s *AggregatorTestSuite) contestResult(user *models.User, contest *models.Contest) models.ResultForContest {
	var row models.ResultForContest
	s.Require().NoError(s.db.Where("user_id = ? AND contest_id = ?", user.ID, contest.ID).Take(&row).Error)
	return row
}

func (s *AggregatorTestSuite) reload(sub *models.Submission) *models.Submission {
	got, err := models.ByID[models.Submission](s.T().Context(), s.db, sub.ID)
	s.Require().NoError(err)
	return got
}

func (s *AggregatorTestSuite) Test_JudgedSubmission_EndToEnd() {
	ctx := s.T().Context()
	user := s.createUser()
	contest := s.createContest("default")
	round := s.createRound(contest, false)
	pi := s.createProblem(contest, round)

	sub := s.createSubmission(pi, user, types.SubmissionStatusPending, nil)
	report := s.createReport(sub, types.ReportKindNormal, types.SubmissionStatusOK,
		score.IntegerScore(7), s.day.Add(65*time.Minute))

	s.Require().NoError(s.aggregator.HandleSubmissionJudged(ctx, sub.ID, report.ID))

	got := s.reload(sub)
	s.Equal(types.SubmissionStatusOK, got.Status)
	s.Equal(score.IntegerScore(7), got.Score.Score)

	pr := s.problemResult(user, pi)
	s.Require().NotNil(pr)
	s.Equal(score.IntegerScore(7), pr.Score.Score)
	s.Equal(models.NewNullFromData(report.ID), pr.SubmissionReportID)
	s.Equal(score.IntegerScore(7), s.roundResult(user, round).Score.Score)
	s.Equal(score.IntegerScore(7), s.contestResult(user, contest).Score.Score)

	rules, err := policy.Builtin().Resolve(contest.PolicyName)
	s.Require().NoError(err)
	decider := visibility.New(rules)

	viewer := user.ID
	pc := policy.Context{
		ContestID: contest.ID,
		Viewer:    policy.Viewer{ID: &viewer, Role: types.RoleParticipant},
		Rounds: []policy.Round{{
			ID:    round.ID,
			Times: roundclock.New(round.Dates(), 0, false),
		}},
	}
	vs := visibility.Submission{
		ID:        sub.ID,
		UserID:    &viewer,
		RoundID:   &round.ID,
		Date:      sub.Date,
		Kind:      sub.Kind,
		ProblemID: pi.ID,
	}

	pc.Now = s.day.Add(150 * time.Minute)
	s.False(decider.ResultsVisibleTo(pc, vs))

	pc.Now = s.day.Add(181 * time.Minute)
	s.True(decider.ResultsVisibleTo(pc, vs))
}

func (s *AggregatorTestSuite) Test_RecomputeResults_Idempotent() {
	ctx := s.T().Context()
	user := s.createUser()
	contest := s.createContest("default")
	round := s.createRound(contest, false)
	pi := s.createProblem(contest, round)
	s.createSubmission(pi, user, types.SubmissionStatusOK, score.IntegerScore(4))

	s.Require().NoError(s.aggregator.RecomputeResults(ctx, user.ID, pi.ID))
	firstProblem := s.problemResult(user, pi)
	firstRound := s.roundResult(user, round)
	firstContest := s.contestResult(user, contest)

	s.Require().NoError(s.aggregator.RecomputeResults(ctx, user.ID, pi.ID))
	s.Equal(firstProblem, s.problemResult(user, pi))
	s.Equal(firstRound, s.roundResult(user, round))
	s.Equal(firstContest, s.contestResult(user, contest))
}

func (s *AggregatorTestSuite) Test_JudgedDeliveredTwice() {
	ctx := s.T().Context()
	user := s.createUser()
	contest := s.createContest("default")
	round := s.createRound(contest, false)
	pi := s.createProblem(contest, round)

	sub := s.createSubmission(pi, user, types.SubmissionStatusPending, nil)
	report := s.createReport(sub, types.ReportKindNormal, types.SubmissionStatusWrongAnswer,
		score.IntegerScore(2), s.day.Add(time.Hour))

	s.Require().NoError(s.aggregator.HandleSubmissionJudged(ctx, sub.ID, report.ID))
	first := s.reload(sub)
	firstRound := s.roundResult(user, round)

	s.Require().NoError(s.aggregator.HandleSubmissionJudged(ctx, sub.ID, report.ID))
	s.Equal(first, s.reload(sub))
	s.Equal(firstRound, s.roundResult(user, round))
}

func (s *AggregatorTestSuite) Test_RoundSumSkipsMissingScores() {
	ctx := s.T().Context()
	user := s.createUser()
	contest := s.createContest("default")
	round := s.createRound(contest, false)
	p1 := s.createProblem(contest, round)
	p2 := s.createProblem(contest, round)
	p3 := s.createProblem(contest, round)

	s.createSubmission(p1, user, types.SubmissionStatusOK, score.IntegerScore(3))
	s.createSubmission(p2, user, types.SubmissionStatusCompilationError, nil)
	s.createSubmission(p3, user, types.SubmissionStatusOK, score.IntegerScore(5))

	for _, pi := range []*models.ProblemInstance{p1, p2, p3} {
		s.Require().NoError(s.aggregator.RecomputeResults(ctx, user.ID, pi.ID))
	}

	s.Nil(s.problemResult(user, p2))
	s.Equal(score.IntegerScore(8), s.roundResult(user, round).Score.Score)
	s.Equal(score.IntegerScore(8), s.contestResult(user, contest).Score.Score)
}

func (s *AggregatorTestSuite) Test_TrialRoundsExcludedFromContest() {
	ctx := s.T().Context()
	user := s.createUser()
	contest := s.createContest("default")
	trial := s.createRound(contest, true)
	scored := s.createRound(contest, false)
	trialProblem := s.createProblem(contest, trial)
	scoredProblem := s.createProblem(contest, scored)

	s.createSubmission(trialProblem, user, types.SubmissionStatusOK, score.IntegerScore(100))
	s.createSubmission(scoredProblem, user, types.SubmissionStatusOK, score.IntegerScore(6))

	s.Require().NoError(s.aggregator.RecomputeResults(ctx, user.ID, trialProblem.ID))
	s.Require().NoError(s.aggregator.RecomputeResults(ctx, user.ID, scoredProblem.ID))

	s.Equal(score.IntegerScore(100), s.roundResult(user, trial).Score.Score)
	s.Equal(score.IntegerScore(6), s.roundResult(user, scored).Score.Score)
	s.Equal(score.IntegerScore(6), s.contestResult(user, contest).Score.Score)
}

func (s *AggregatorTestSuite) Test_NewestReportWins() {
	ctx := s.T().Context()
	user := s.createUser()
	contest := s.createContest("default")
	round := s.createRound(contest, false)
	pi := s.createProblem(contest, round)

	sub := s.createSubmission(pi, user, types.SubmissionStatusPending, nil)
	older := s.createReport(sub, types.ReportKindNormal, types.SubmissionStatusWrongAnswer,
		score.IntegerScore(1), s.day.Add(time.Hour))
	s.Require().NoError(s.aggregator.HandleSubmissionJudged(ctx, sub.ID, older.ID))

	newer := s.createReport(sub, types.ReportKindNormal, types.SubmissionStatusOK,
		score.IntegerScore(9), s.day.Add(2*time.Hour))
	s.Require().NoError(s.aggregator.HandleSubmissionJudged(ctx, sub.ID, newer.ID))
	// a late duplicate of the first delivery changes nothing
	s.Require().NoError(s.aggregator.HandleSubmissionJudged(ctx, sub.ID, older.ID))

	reports, err := models.ReportsOf(ctx, s.db, sub.ID)
	s.Require().NoError(err)
	s.Require().Len(reports, 2)
	s.Equal(newer.ID, reports[0].ID)
	s.Equal(types.ReportStatusActive, reports[0].Status)
	s.Equal(types.ReportStatusSuperseded, reports[1].Status)

	s.Equal(score.IntegerScore(9), s.reload(sub).Score.Score)
	s.Equal(score.IntegerScore(9), s.roundResult(user, round).Score.Score)
}

func (s *AggregatorTestSuite) Test_FailureReportIsSystemError() {
	ctx := s.T().Context()
	user := s.createUser()
	contest := s.createContest("default")
	round := s.createRound(contest, false)
	pi := s.createProblem(contest, round)

	sub := s.createSubmission(pi, user, types.SubmissionStatusPending, nil)
	report := s.createReport(sub, types.ReportKindFailure, "", nil, s.day.Add(time.Hour))

	s.Require().NoError(s.aggregator.HandleSubmissionJudged(ctx, sub.ID, report.ID))
	s.Equal(types.SubmissionStatusSystemError, s.reload(sub).Status)
	s.Nil(s.problemResult(user, pi))
}

func (s *AggregatorTestSuite) Test_HandleSubmissionJudged_UnknownReport() {
	user := s.createUser()
	contest := s.createContest("default")
	pi := s.createProblem(contest, s.createRound(contest, false))
	sub := s.createSubmission(pi, user, types.SubmissionStatusPending, nil)

	err := s.aggregator.HandleSubmissionJudged(s.T().Context(), sub.ID, uuid.New())
	s.Require().ErrorIs(err, ErrReportNotFound)

	err = s.aggregator.HandleSubmissionJudged(s.T().Context(), uuid.New(), uuid.New())
	s.Require().ErrorIs(err, ErrSubmissionNotFound)
}

func (s *AggregatorTestSuite) Test_InvalidScoreLeavesResultUnchanged() {
	ctx := s.T().Context()
	user := s.createUser()
	contest := s.createContest("default")
	round := s.createRound(contest, false)
	pi := s.createProblem(contest, round)

	sub := s.createSubmission(pi, user, types.SubmissionStatusOK, score.IntegerScore(3))
	s.Require().NoError(s.aggregator.RecomputeResults(ctx, user.ID, pi.ID))
	before := s.problemResult(user, pi)
	s.Require().NotNil(before)

	s.Require().NoError(s.db.Exec("UPDATE submission SET score = 'bogus:1' WHERE id = ?", sub.ID).Error)

	err := s.aggregator.RecomputeResults(ctx, user.ID, pi.ID)
	s.Require().ErrorIs(err, score.ErrInvalidScoreValue)
	s.Equal(before, s.problemResult(user, pi))
}

func (s *AggregatorTestSuite) Test_Rejudge_FullAlwaysAllowed() {
	ctx := s.T().Context()
	actor := s.createUser()
	user := s.createUser()
	contest := s.createContest("default")
	pi := s.createProblem(contest, s.createRound(contest, false))

	unjudged := s.createSubmission(pi, user, types.SubmissionStatusPending, nil)
	s.Require().NoError(s.db.Model(unjudged).Update("needs_rejudge", true).Error)

	s.judge.EXPECT().Judge(gomock.Any(), judging.Request{
		SubmissionID: unjudged.ID,
		ContestID:    contest.ID,
		ExtraArgs: types.JudgeExtraArgs{
			TestsToJudge: []string{"1a", "2b"},
			RejudgeType:  types.RejudgeScopeFull,
		},
		IsRejudge:       true,
		JudgingPriority: contest.JudgingPriority,
		JudgingWeight:   contest.JudgingWeight,
		Source:          unjudged.Source,
	}).Return(nil)

	rejudged, err := s.aggregator.Rejudge(ctx, actor.ID, contest.ID,
		[]uuid.UUID{unjudged.ID}, types.RejudgeScopeFull, []string{"1a", "2b"})
	s.Require().NoError(err)
	s.Equal([]uuid.UUID{unjudged.ID}, rejudged)

	got := s.reload(unjudged)
	s.Equal(types.SubmissionStatusPending, got.Status)
	s.False(got.NeedsRejudge)
}

func (s *AggregatorTestSuite) Test_Rejudge_RefusedWithoutActiveReports() {
	ctx := s.T().Context()
	actor := s.createUser()
	user := s.createUser()
	contest := s.createContest("default")
	pi := s.createProblem(contest, s.createRound(contest, false))

	judged := s.createSubmission(pi, user, types.SubmissionStatusPending, nil)
	report := s.createReport(judged, types.ReportKindNormal, types.SubmissionStatusOK,
		score.IntegerScore(1), s.day.Add(time.Hour))
	s.Require().NoError(s.aggregator.HandleSubmissionJudged(ctx, judged.ID, report.ID))

	unjudged := s.createSubmission(pi, user, types.SubmissionStatusPending, nil)

	for _, scope := range []types.RejudgeScope{types.RejudgeScopeNew, types.RejudgeScopeJudged} {
		_, err := s.aggregator.Rejudge(ctx, actor.ID, contest.ID,
			[]uuid.UUID{judged.ID, unjudged.ID}, scope, nil)
		s.Require().ErrorIs(err, ErrRejudgeRefused)

		var refused *RejudgeRefusedError
		s.Require().True(errors.As(err, &refused))
		s.Equal([]uuid.UUID{unjudged.ID}, refused.Missing)
		s.Contains(refused.Error(), unjudged.ID.String())
	}

	s.judge.EXPECT().Judge(gomock.Any(), gomock.Any()).Return(nil)
	rejudged, err := s.aggregator.Rejudge(ctx, actor.ID, contest.ID,
		[]uuid.UUID{judged.ID}, types.RejudgeScopeNew, nil)
	s.Require().NoError(err)
	s.Equal([]uuid.UUID{judged.ID}, rejudged)
}

func (s *AggregatorTestSuite) Test_Rejudge_JudgedScopeSingleProblem() {
	ctx := s.T().Context()
	actor := s.createUser()
	user := s.createUser()
	contest := s.createContest("default")
	round := s.createRound(contest, false)

	var ids []uuid.UUID
	for range 2 {
		pi := s.createProblem(contest, round)
		sub := s.createSubmission(pi, user, types.SubmissionStatusPending, nil)
		report := s.createReport(sub, types.ReportKindNormal, types.SubmissionStatusOK,
			score.IntegerScore(1), s.day.Add(time.Hour))
		s.Require().NoError(s.aggregator.HandleSubmissionJudged(ctx, sub.ID, report.ID))
		ids = append(ids, sub.ID)
	}

	_, err := s.aggregator.Rejudge(ctx, actor.ID, contest.ID, ids, types.RejudgeScopeJudged, []string{"1"})
	s.Require().ErrorIs(err, ErrRejudgeRefused)
}

func (s *AggregatorTestSuite) Test_Rejudge_UnknownSubmission() {
	actor := s.createUser()
	contest := s.createContest("default")

	_, err := s.aggregator.Rejudge(s.T().Context(), actor.ID, contest.ID,
		[]uuid.UUID{uuid.New()}, types.RejudgeScopeFull, nil)
	s.Require().ErrorIs(err, ErrSubmissionNotFound)
}

func (s *AggregatorTestSuite) Test_ChangeSubmissionKind() {
	ctx := s.T().Context()
	actor := s.createUser()
	user := s.createUser()
	contest := s.createContest("default")
	round := s.createRound(contest, false)
	pi := s.createProblem(contest, round)

	sub := s.createSubmission(pi, user, types.SubmissionStatusOK, score.IntegerScore(5))
	s.Require().NoError(s.aggregator.RecomputeResults(ctx, user.ID, pi.ID))
	s.Equal(score.IntegerScore(5), s.roundResult(user, round).Score.Score)

	s.Require().NoError(s.aggregator.ChangeSubmissionKind(ctx, actor.ID, sub.ID, types.SubmissionKindIgnored))
	s.Nil(s.problemResult(user, pi))
	s.False(s.roundResult(user, round).Score.Valid())

	err := s.aggregator.ChangeSubmissionKind(ctx, actor.ID, sub.ID, types.SubmissionKindSuspected)
	s.Require().ErrorIs(err, ErrInvalidKindTransition)

	s.Require().NoError(s.aggregator.ChangeSubmissionKind(ctx, actor.ID, sub.ID, types.SubmissionKindNormal))
	s.Equal(score.IntegerScore(5), s.roundResult(user, round).Score.Score)
}

func (s *AggregatorTestSuite) Test_ChangeSubmissionKind_LeavingSuspectedJudges() {
	ctx := s.T().Context()
	actor := s.createUser()
	user := s.createUser()
	contest := s.createContest("default")
	pi := s.createProblem(contest, s.createRound(contest, false))

	sub := s.createSubmission(pi, user, types.SubmissionStatusPending, nil)
	s.Require().NoError(s.db.Model(sub).Update("kind", types.SubmissionKindSuspected).Error)

	s.judge.EXPECT().Judge(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, req judging.Request) error {
			s.Equal(sub.ID, req.SubmissionID)
			s.False(req.IsRejudge)
			return nil
		})

	s.Require().NoError(s.aggregator.ChangeSubmissionKind(ctx, actor.ID, sub.ID, types.SubmissionKindNormal))

	got := s.reload(sub)
	s.Equal(types.SubmissionKindNormal, got.Kind)
	s.Equal(1, got.AutoRejudges)
}

func (s *AggregatorTestSuite) Test_SetNeedsRejudge() {
	ctx := s.T().Context()
	actor := s.createUser()
	user := s.createUser()
	contest := s.createContest("default")
	pi := s.createProblem(contest, s.createRound(contest, false))
	a := s.createSubmission(pi, user, types.SubmissionStatusOK, score.IntegerScore(1))
	b := s.createSubmission(pi, user, types.SubmissionStatusOK, score.IntegerScore(2))

	s.Require().NoError(s.aggregator.SetNeedsRejudge(ctx, actor.ID, contest.ID, []uuid.UUID{a.ID, b.ID}, true))
	s.True(s.reload(a).NeedsRejudge)
	s.True(s.reload(b).NeedsRejudge)

	s.Require().NoError(s.aggregator.SetNeedsRejudge(ctx, actor.ID, contest.ID, []uuid.UUID{a.ID}, false))
	s.False(s.reload(a).NeedsRejudge)
	s.True(s.reload(b).NeedsRejudge)

	other := s.createContest("default")
	err := s.aggregator.SetNeedsRejudge(ctx, actor.ID, other.ID, []uuid.UUID{a.ID}, true)
	s.Require().ErrorIs(err, ErrSubmissionNotFound)
}

func (s *AggregatorTestSuite) Test_RecomputeContest() {
	ctx := s.T().Context()
	contest := s.createContest("default")
	round := s.createRound(contest, false)
	p1 := s.createProblem(contest, round)
	p2 := s.createProblem(contest, round)

	alice := s.createUser()
	bob := s.createUser()
	s.createSubmission(p1, alice, types.SubmissionStatusOK, score.IntegerScore(1))
	s.createSubmission(p1, alice, types.SubmissionStatusOK, score.IntegerScore(2))
	s.createSubmission(p2, alice, types.SubmissionStatusOK, score.IntegerScore(3))
	s.createSubmission(p2, bob, types.SubmissionStatusOK, score.IntegerScore(4))

	pairs, err := s.aggregator.RecomputeContest(ctx, contest.ID)
	s.Require().NoError(err)
	s.Equal(3, pairs)

	s.Equal(score.IntegerScore(5), s.contestResult(alice, contest).Score.Score)
	s.Equal(score.IntegerScore(4), s.contestResult(bob, contest).Score.Score)
}

func (s *AggregatorTestSuite) Test_ACMContest() {
	ctx := s.T().Context()
	user := s.createUser()
	contest := s.createContest("acm")
	round := s.createRound(contest, false)
	pi := s.createProblem(contest, round)

	wrong := s.createSubmission(pi, user, types.SubmissionStatusWrongAnswer, nil)
	s.Require().NoError(s.db.Model(wrong).Update("date", s.day.Add(10*time.Minute)).Error)
	ok := s.createSubmission(pi, user, types.SubmissionStatusOK, nil)
	s.Require().NoError(s.db.Model(ok).Update("date", s.day.Add(30*time.Minute)).Error)

	s.Require().NoError(s.aggregator.RecomputeResults(ctx, user.ID, pi.ID))

	s.Equal(score.ACMScore{Solved: 1, PenaltyMinutes: 50}, s.contestResult(user, contest).Score.Score)
}
