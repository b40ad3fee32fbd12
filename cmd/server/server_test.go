package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/azure/azurite"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/j4b6ski/oioioi/cmd/server/internal/aggregate"
	"github.com/j4b6ski/oioioi/cmd/server/internal/contests"
	"github.com/j4b6ski/oioioi/cmd/server/internal/jobs"
	"github.com/j4b6ski/oioioi/cmd/server/internal/middleware"
	"github.com/j4b6ski/oioioi/cmd/server/internal/migrations"
	"github.com/j4b6ski/oioioi/cmd/server/internal/models"
	"github.com/j4b6ski/oioioi/cmd/server/internal/routes"
	"github.com/j4b6ski/oioioi/cmd/server/internal/routes/admin"
	routesjudging "github.com/j4b6ski/oioioi/cmd/server/internal/routes/judging"
	routesv1 "github.com/j4b6ski/oioioi/cmd/server/internal/routes/v1"
	"github.com/j4b6ski/oioioi/internal/blobstore"
	"github.com/j4b6ski/oioioi/internal/config"
	"github.com/j4b6ski/oioioi/internal/hash"
	"github.com/j4b6ski/oioioi/internal/judging"
	"github.com/j4b6ski/oioioi/internal/logger"
	"github.com/j4b6ski/oioioi/internal/otel"
	"github.com/j4b6ski/oioioi/internal/policy"
	"github.com/j4b6ski/oioioi/internal/queue"
	"github.com/j4b6ski/oioioi/internal/score"
	"github.com/j4b6ski/oioioi/internal/types"
)

const (
	authToken = "i am a very secure password"
	source    = "int main() { return 0; }"
)

var (
	userAdmin    = config.User{ID: uuid.NewString(), Name: "contest admin", Token: authToken, Active: ptr(true)}
	userAlice    = config.User{ID: uuid.NewString(), Name: "alice", Token: authToken, Active: ptr(true)}
	userBob      = config.User{ID: uuid.NewString(), Name: "bob", Token: authToken, Active: ptr(true)}
	userInactive = config.User{ID: uuid.NewString(), Name: "gone", Token: authToken, Active: ptr(false)}
	userJudge    = config.User{
		ID: uuid.NewString(), Name: "judging backend", Token: authToken, Active: ptr(true), Superuser: true,
	}
)

func ptr[T any](v T) *T {
	return &v
}

type clientAuth struct {
	id    string
	token string
}

func as(u config.User) *clientAuth {
	return &clientAuth{id: u.ID, token: authToken}
}

// Collects whatever the judging backend was asked to do
type captureHandler struct {
	msgs chan []byte
}

func (h *captureHandler) Handle(_ context.Context, message []byte) error {
	h.msgs <- message
	return nil
}

type ServerTestSuite struct {
	suite.Suite

	azurite      *azurite.Container
	postgres     *postgres.PostgresContainer
	db           *gorm.DB
	otelShutdown func(context.Context) error
	server       *httptest.Server

	sources    *blobstore.AzureStore
	requests   *queue.AzureQueuer
	judged     *queue.AzureQueuer
	aggregator *aggregate.Aggregator

	// authoritative request time
	now time.Time
}

func (s *ServerTestSuite) queueURL() string {
	queueURLRaw, err := s.azurite.QueueServiceURL(s.T().Context())
	s.Require().NoError(err, "failed to get azure queue url")

	return fmt.Sprintf("%s/%s", queueURLRaw, azurite.AccountName)
}

func (s *ServerTestSuite) newQueuer(name string) *queue.AzureQueuer {
	qr, err := queue.NewAzureQueuer(azurite.AccountName, azurite.AccountKey, s.queueURL(), name)
	s.Require().NoError(err, "failed to construct queuer")
	s.Require().NoError(qr.EnsureExists(s.T().Context()), "failed to create queue")
	return qr.WithRedeliveryDelay(time.Second)
}

func (s *ServerTestSuite) SetupSuite() {
	logger.InitSlog(slog.LevelDebug)

	azuriteContainer, err := azurite.Run(
		s.T().Context(),
		"mcr.microsoft.com/azure-storage/azurite:latest",
		azurite.WithInMemoryPersistence(256),
	)
	s.Require().NoError(err, "failed to make azurite container")
	s.azurite = azuriteContainer

	postgresContainer, err := postgres.Run(
		s.T().Context(),
		"postgres:16.4-alpine",
		postgres.WithDatabase("contestengine"),
		postgres.WithUsername("contestengine"),
		postgres.WithPassword("contestengine"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Second)),
	)
	s.Require().NoError(err, "failed to start postgres container")
	s.postgres = postgresContainer

	dsn, err := s.postgres.ConnectionString(s.T().Context())
	s.Require().NoError(err, "failed to get connection string to container")

	db, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{TranslateError: true})
	s.Require().NoError(err, "failed to connect to the database")
	s.db = db

	err = migrations.Up(s.T().Context(), db)
	s.Require().NoError(err, "failed to run up migrations")

	err = models.LoadUsersFromConfig(
		s.T().Context(),
		db,
		[]config.User{userAdmin, userAlice, userBob, userInactive, userJudge},
	)
	s.Require().NoError(err, "failed to seed users")

	shutdownOTel, err := otel.SetupOTelSDK(s.T().Context(), false, "server-test")
	s.Require().NoError(err, "could not setup otel")
	s.otelShutdown = shutdownOTel

	s.requests = s.newQueuer("judge-requests")
	s.judged = s.newQueuer("judged")

	blobURL, err := s.azurite.BlobServiceURL(s.T().Context())
	s.Require().NoError(err, "failed to get azure blob url")
	s.sources, err = blobstore.NewAzureStore(
		azurite.AccountName,
		azurite.AccountKey,
		fmt.Sprintf("%s/%s", blobURL, azurite.AccountName),
		"sources",
	)
	s.Require().NoError(err, "failed to construct source store")
	s.Require().NoError(s.sources.EnsureExists(s.T().Context()))
}

func (s *ServerTestSuite) SetupTest() {
	s.now = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

	cfg := &config.Config{
		Aggregation: &config.AggregationConfig{
			Backoff:              10 * time.Millisecond,
			MaxRetries:           3,
			RecomputeConcurrency: 2,
		},
		Postgres: &config.PostgresConfig{LockTimeout: time.Second},
	}

	judge := judging.NewSourceBackend(judging.NewQueueBackend(s.requests), s.sources, time.Hour)
	policies := policy.Builtin()

	aggregator, err := aggregate.New(s.db, policies, judge, aggregate.OptionsFromConfig(cfg)...)
	s.Require().NoError(err, "failed to construct aggregator")
	s.aggregator = aggregator

	service := contests.NewService(s.db, policies, judge)
	middlewareHandler := middleware.Handler{DB: s.db}
	v1Handler := routesv1.NewHandler(service, cfg)
	adminHandler := admin.NewHandler(service, aggregator)
	judgingHandler := routesjudging.NewHandler(aggregator)

	e, err := routes.BuildEcho(logger.Logger, func() time.Time { return s.now })
	s.Require().NoError(err, "failed to construct router")

	v1Handler.AddRoutes(e, &middlewareHandler)
	adminHandler.AddRoutes(e, &middlewareHandler)
	judgingHandler.AddRoutes(e, &middlewareHandler)

	s.server = httptest.NewServer(e)
}

func (s *ServerTestSuite) TearDownTest() {
	s.server.Close()
}

func (s *ServerTestSuite) TearDownSuite() {
	s.Require().NoError(testcontainers.TerminateContainer(s.azurite))
	s.Require().NoError(testcontainers.TerminateContainer(s.postgres))
	s.Require().NoError(s.otelShutdown(s.T().Context()))
}

func TestServerTestSuite(t *testing.T) {
	suite.Run(t, new(ServerTestSuite))
}

type resp struct {
	body string
	code int
}

func doRequest(t *testing.T, req *http.Request) (*resp, error) {
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err, "failed to send http request")
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	require.NoError(t, err, "failed to read body")

	return &resp{body: string(body), code: res.StatusCode}, nil
}

func (s *ServerTestSuite) request(method, path string, auth *clientAuth, body any) *resp {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = strings.NewReader(string(raw))
	}

	req, err := http.NewRequestWithContext(s.T().Context(), method, s.server.URL+path, reader)
	s.Require().NoError(err, "failed to build request")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth != nil {
		req.SetBasicAuth(auth.id, auth.token)
	}

	r, err := doRequest(s.T(), req)
	s.Require().NoError(err)
	return r
}

func notPermittedBodyTester(t *testing.T, body string) {
	assert.JSONEq(t, `{"message":"not permitted"}`, body, "denials never say why")
}

// contest with one running round and one problem. The admin user administers it.
type fixture struct {
	contest *models.Contest
	round   *models.Round
	problem *models.ProblemInstance
}

func (s *ServerTestSuite) seedContest(policyName string) fixture {
	contest := &models.Contest{
		Name:            "c-" + uuid.NewString(),
		PolicyName:      policyName,
		JudgingPriority: 10,
		JudgingWeight:   1,
	}
	s.Require().NoError(s.db.Create(contest).Error)

	s.Require().NoError(s.db.Create(&models.ContestPermission{
		ContestID:  contest.ID,
		UserID:     uuid.MustParse(userAdmin.ID),
		Permission: types.RoleAdmin,
	}).Error)

	round := &models.Round{
		ContestID:   contest.ID,
		Name:        "round 1",
		StartDate:   s.now.Add(-time.Hour),
		EndDate:     models.NewNullFromData(s.now.Add(time.Hour)),
		ResultsDate: models.NewNullFromData(s.now.Add(2 * time.Hour)),
	}
	s.Require().NoError(s.db.Create(round).Error)

	problem := &models.ProblemInstance{
		ContestID:        contest.ID,
		RoundID:          models.NewNullFromData(round.ID),
		ShortName:        "sum",
		SubmissionsLimit: 2,
		ScoreWeight:      1,
	}
	s.Require().NoError(s.db.Create(problem).Error)

	return fixture{contest: contest, round: round, problem: problem}
}

// Takes the next judge request off the queue
func (s *ServerTestSuite) nextJudgeRequest() types.JudgeRequestMsg {
	h := &captureHandler{msgs: make(chan []byte, 1)}
	ctx, cancel := context.WithTimeout(s.T().Context(), 30*time.Second)
	defer cancel()

	s.Require().NoError(s.requests.Dequeue(ctx, 10*time.Second, h))

	var msg types.JudgeRequestMsg
	s.Require().NoError(json.Unmarshal(<-h.msgs, &msg))
	return msg
}

// What the judging backend writes before announcing completion
func (s *ServerTestSuite) writeReport(submissionID uuid.UUID, points int64) *models.SubmissionReport {
	report := &models.SubmissionReport{
		SubmissionID: submissionID,
		Kind:         types.ReportKindNormal,
		Status:       types.ReportStatusInactive,
	}
	s.Require().NoError(s.db.Create(report).Error)
	s.Require().NoError(s.db.Create(&models.ScoreReport{
		SubmissionReportID: report.ID,
		Status:             types.SubmissionStatusOK,
		Score:              score.NewField(score.NewInteger(points)),
	}).Error)
	return report
}

func (s *ServerTestSuite) submit(f fixture, auth *clientAuth) *resp {
	return s.request(
		http.MethodPost,
		fmt.Sprintf("/v1/contest/%s/problem/%s/submit/", f.contest.ID, f.problem.ID),
		auth,
		types.SubmitRequest{Source: source},
	)
}

func (s *ServerTestSuite) problemScore(userID string, f fixture) *string {
	var row models.ResultForProblem
	result := s.db.
		Where("user_id = ? AND problem_instance_id = ?", userID, f.problem.ID).
		Limit(1).
		Find(&row)
	s.Require().NoError(result.Error)
	if result.RowsAffected == 0 || !row.Score.Valid() {
		return nil
	}
	v := row.Score.String()
	return &v
}

func (s *ServerTestSuite) Test_Health() {
	r := s.request(http.MethodGet, "/health/", nil, nil)
	s.Equal(http.StatusOK, r.code)
}

func (s *ServerTestSuite) Test_Rounds() {
	f := s.seedContest(policy.RuleSetDefault)
	path := fmt.Sprintf("/v1/contest/%s/rounds/", f.contest.ID)

	tests := []struct {
		name           string
		auth           *clientAuth
		expectedStatus int
		bodyTester     func(t *testing.T, body string)
	}{
		{
			name:           "Anonymous",
			expectedStatus: http.StatusOK,
			bodyTester: func(t *testing.T, body string) {
				var rounds []types.Round
				require.NoError(t, json.Unmarshal([]byte(body), &rounds))
				require.Len(t, rounds, 1)
				assert.Equal(t, f.round.ID.String(), rounds[0].ID)
				assert.False(t, rounds[0].Submittable, "anonymous viewers cannot submit")
			},
		},
		{
			name:           "Participant",
			auth:           as(userAlice),
			expectedStatus: http.StatusOK,
			bodyTester: func(t *testing.T, body string) {
				var rounds []types.Round
				require.NoError(t, json.Unmarshal([]byte(body), &rounds))
				require.Len(t, rounds, 1)
				assert.True(t, rounds[0].Submittable)
				assert.False(t, rounds[0].ResultsVisible)
			},
		},
		{
			name:           "WrongToken",
			auth:           &clientAuth{id: userAlice.ID, token: "nope"},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "InactiveUser",
			auth:           as(userInactive),
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "NonUUIDUser",
			auth:           &clientAuth{id: "foobar", token: authToken},
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			r := s.request(http.MethodGet, path, tt.auth, nil)
			s.Equal(tt.expectedStatus, r.code, r.body)
			if tt.bodyTester != nil {
				tt.bodyTester(s.T(), r.body)
			}
		})
	}

	s.Run("UnknownContest", func() {
		r := s.request(http.MethodGet, fmt.Sprintf("/v1/contest/%s/rounds/", uuid.New()), nil, nil)
		s.Equal(http.StatusNotFound, r.code, r.body)
	})

	s.Run("MalformedContest", func() {
		r := s.request(http.MethodGet, "/v1/contest/foobar/rounds/", nil, nil)
		s.Equal(http.StatusNotFound, r.code, r.body)
	})
}

func (s *ServerTestSuite) Test_ParticipantsOnly() {
	f := s.seedContest(policy.RuleSetPastRoundsHidden)

	r := s.request(http.MethodGet, fmt.Sprintf("/v1/contest/%s/problems/", f.contest.ID), as(userBob), nil)
	s.Equal(http.StatusForbidden, r.code)
	notPermittedBodyTester(s.T(), r.body)

	r = s.request(http.MethodGet, fmt.Sprintf("/v1/contest/%s/problems/", f.contest.ID), as(userAdmin), nil)
	s.Equal(http.StatusOK, r.code, r.body)
}

func (s *ServerTestSuite) Test_SubmitRequiresAuth() {
	f := s.seedContest(policy.RuleSetDefault)

	r := s.submit(f, nil)
	s.Equal(http.StatusUnauthorized, r.code)
}

func (s *ServerTestSuite) Test_SubmitValidation() {
	f := s.seedContest(policy.RuleSetDefault)

	r := s.request(
		http.MethodPost,
		fmt.Sprintf("/v1/contest/%s/problem/%s/submit/", f.contest.ID, f.problem.ID),
		as(userAlice),
		types.SubmitRequest{},
	)
	s.Equal(http.StatusBadRequest, r.code)
	s.Contains(r.body, "validation error")
}

// Submission goes out to judging, the verdict comes back over http and
// lands in the results once the round's results are public.
func (s *ServerTestSuite) Test_SubmitJudgeAndScore() {
	f := s.seedContest(policy.RuleSetDefault)

	r := s.submit(f, as(userAlice))
	s.Require().Equal(http.StatusOK, r.code, r.body)

	var submitted types.SubmitResponse
	s.Require().NoError(json.Unmarshal([]byte(r.body), &submitted))
	s.Equal(types.SubmissionKindNormal, submitted.Kind)

	judgeRequest := s.nextJudgeRequest()
	s.Equal(submitted.SubmissionID, judgeRequest.SubmissionID)
	s.Equal(f.contest.ID.String(), judgeRequest.ContestID)
	s.False(judgeRequest.IsRejudge)
	s.Equal(hash.Buffer([]byte(source)), judgeRequest.SourceSHA256)
	s.NotEmpty(judgeRequest.SourceURL)

	submissionID := uuid.MustParse(submitted.SubmissionID)
	report := s.writeReport(submissionID, 42)

	judged := types.SubmissionJudgedMsg{SubmissionID: submitted.SubmissionID, ReportID: report.ID.String()}

	r = s.request(http.MethodPost, "/judging/judged/", as(userAlice), judged)
	s.Equal(http.StatusForbidden, r.code, "only the judging backend reports verdicts")

	for range 2 {
		r = s.request(http.MethodPost, "/judging/judged/", as(userJudge), judged)
		s.Require().Equal(http.StatusNoContent, r.code, r.body)
	}

	got := s.problemScore(userAlice.ID, f)
	s.Require().NotNil(got)
	s.Equal(score.NewInteger(42).String(), *got)

	reportsPath := fmt.Sprintf("/v1/submission/%s/reports/", submissionID)

	r = s.request(http.MethodGet, reportsPath, as(userBob), nil)
	s.Equal(http.StatusForbidden, r.code, "other users cannot see the submission")
	notPermittedBodyTester(s.T(), r.body)

	r = s.request(http.MethodGet, reportsPath, as(userAlice), nil)
	s.Require().Equal(http.StatusOK, r.code, r.body)
	var reports []types.Report
	s.Require().NoError(json.Unmarshal([]byte(r.body), &reports))
	s.Empty(reports, "reports stay hidden until results are published")

	s.now = s.now.Add(3 * time.Hour)

	r = s.request(http.MethodGet, reportsPath, as(userAlice), nil)
	s.Require().Equal(http.StatusOK, r.code, r.body)
	s.Require().NoError(json.Unmarshal([]byte(r.body), &reports))
	s.Require().Len(reports, 1)
	s.Equal(report.ID.String(), reports[0].ID)
}

func (s *ServerTestSuite) Test_SubmissionsLimit() {
	f := s.seedContest(policy.RuleSetDefault)

	for range 2 {
		r := s.submit(f, as(userBob))
		s.Require().Equal(http.StatusOK, r.code, r.body)
		s.nextJudgeRequest()
	}

	r := s.submit(f, as(userBob))
	s.Equal(http.StatusConflict, r.code)
	s.Contains(r.body, "submissions limit exceeded")

	// admins are unlimited and their submissions are ignored
	r = s.submit(f, as(userAdmin))
	s.Require().Equal(http.StatusOK, r.code, r.body)
	s.nextJudgeRequest()

	var submitted types.SubmitResponse
	s.Require().NoError(json.Unmarshal([]byte(r.body), &submitted))
	s.Equal(types.SubmissionKindIgnored, submitted.Kind)
}

func (s *ServerTestSuite) Test_JudgedOverQueue() {
	f := s.seedContest(policy.RuleSetDefault)

	r := s.submit(f, as(userBob))
	s.Require().Equal(http.StatusOK, r.code, r.body)
	s.nextJudgeRequest()

	var submitted types.SubmitResponse
	s.Require().NoError(json.Unmarshal([]byte(r.body), &submitted))
	report := s.writeReport(uuid.MustParse(submitted.SubmissionID), 7)

	s.Require().NoError(s.judged.Enqueue(s.T().Context(), types.SubmissionJudgedMsg{
		SubmissionID: submitted.SubmissionID,
		ReportID:     report.ID.String(),
	}))

	ctx, cancel := context.WithCancel(s.T().Context())
	done := make(chan struct{})
	go func() {
		defer close(done)
		jobs.MonitorJudgedQueue(ctx, s.judged, jobs.NewJudgedMsgHandler(s.aggregator), 10*time.Second)
	}()
	defer func() {
		cancel()
		<-done
	}()

	s.Eventually(func() bool {
		got := s.problemScore(userBob.ID, f)
		return got != nil && *got == score.NewInteger(7).String()
	}, 30*time.Second, 100*time.Millisecond)
}

func (s *ServerTestSuite) Test_AdminRejudge() {
	f := s.seedContest(policy.RuleSetDefault)

	r := s.submit(f, as(userAlice))
	s.Require().Equal(http.StatusOK, r.code, r.body)
	s.nextJudgeRequest()

	var submitted types.SubmitResponse
	s.Require().NoError(json.Unmarshal([]byte(r.body), &submitted))

	path := fmt.Sprintf("/admin/contest/%s/rejudge/", f.contest.ID)

	s.Run("NotAdmin", func() {
		r := s.request(http.MethodPost, path, as(userAlice), types.RejudgeRequest{
			Scope:         types.RejudgeScopeFull,
			SubmissionIDs: []string{submitted.SubmissionID},
		})
		s.Equal(http.StatusForbidden, r.code)
		notPermittedBodyTester(s.T(), r.body)
	})

	s.Run("Anonymous", func() {
		r := s.request(http.MethodPost, path, nil, types.RejudgeRequest{
			Scope:         types.RejudgeScopeFull,
			SubmissionIDs: []string{submitted.SubmissionID},
		})
		s.Equal(http.StatusUnauthorized, r.code)
	})

	s.Run("NewScopeRefused", func() {
		r := s.request(http.MethodPost, path, as(userAdmin), types.RejudgeRequest{
			Scope:         types.RejudgeScopeNew,
			SubmissionIDs: []string{submitted.SubmissionID},
		})
		s.Equal(http.StatusConflict, r.code)

		var body types.Error
		s.Require().NoError(json.Unmarshal([]byte(r.body), &body))
		s.Require().NotNil(body.Fields)
		s.Contains(*body.Fields, submitted.SubmissionID)
	})

	s.Run("Full", func() {
		r := s.request(http.MethodPost, path, as(userAdmin), types.RejudgeRequest{
			Scope:         types.RejudgeScopeFull,
			SubmissionIDs: []string{submitted.SubmissionID},
			Tests:         []string{"1a"},
		})
		s.Require().Equal(http.StatusOK, r.code, r.body)

		var body types.RejudgeResponse
		s.Require().NoError(json.Unmarshal([]byte(r.body), &body))
		s.Equal([]string{submitted.SubmissionID}, body.Rejudged)

		judgeRequest := s.nextJudgeRequest()
		s.True(judgeRequest.IsRejudge)
		s.Equal(types.RejudgeScopeFull, judgeRequest.ExtraArgs.RejudgeType)
		s.Equal([]string{"1a"}, judgeRequest.ExtraArgs.TestsToJudge)
	})
}

func (s *ServerTestSuite) Test_AdminChangeKind() {
	f := s.seedContest(policy.RuleSetDefault)

	r := s.submit(f, as(userAlice))
	s.Require().Equal(http.StatusOK, r.code, r.body)
	s.nextJudgeRequest()

	var submitted types.SubmitResponse
	s.Require().NoError(json.Unmarshal([]byte(r.body), &submitted))
	path := fmt.Sprintf("/admin/submission/%s/kind/", submitted.SubmissionID)

	r = s.request(http.MethodPut, path, as(userAlice), types.ChangeKindRequest{Kind: types.SubmissionKindIgnored})
	s.Equal(http.StatusForbidden, r.code)

	r = s.request(http.MethodPut, path, as(userAdmin), types.ChangeKindRequest{Kind: types.SubmissionKindIgnored})
	s.Require().Equal(http.StatusNoContent, r.code, r.body)

	sub, err := models.ByID[models.Submission](s.T().Context(), s.db, uuid.MustParse(submitted.SubmissionID))
	s.Require().NoError(err)
	s.Equal(types.SubmissionKindIgnored, sub.Kind)

	r = s.request(
		http.MethodPut,
		fmt.Sprintf("/admin/submission/%s/kind/", uuid.New()),
		as(userAdmin),
		types.ChangeKindRequest{Kind: types.SubmissionKindIgnored},
	)
	s.Equal(http.StatusNotFound, r.code)
}

func (s *ServerTestSuite) Test_AdminTimeExtension() {
	f := s.seedContest(policy.RuleSetDefault)
	path := fmt.Sprintf("/admin/round/%s/extension/", f.round.ID)

	r := s.request(http.MethodPut, path, as(userAdmin), types.TimeExtensionRequest{
		UserID:       userAlice.ID,
		ExtraMinutes: 90,
	})
	s.Require().Equal(http.StatusNoContent, r.code, r.body)

	// past the round end but inside alice's extension
	s.now = s.now.Add(90 * time.Minute)

	r = s.request(http.MethodGet, fmt.Sprintf("/v1/contest/%s/rounds/", f.contest.ID), as(userAlice), nil)
	s.Require().Equal(http.StatusOK, r.code, r.body)
	var rounds []types.Round
	s.Require().NoError(json.Unmarshal([]byte(r.body), &rounds))
	s.Require().Len(rounds, 1)
	s.True(rounds[0].Submittable)

	r = s.request(http.MethodGet, fmt.Sprintf("/v1/contest/%s/rounds/", f.contest.ID), as(userBob), nil)
	s.Require().Equal(http.StatusOK, r.code, r.body)
	s.Require().NoError(json.Unmarshal([]byte(r.body), &rounds))
	s.Require().Len(rounds, 1)
	s.False(rounds[0].Submittable)

	r = s.request(http.MethodPut, path, as(userBob), types.TimeExtensionRequest{
		UserID:       userBob.ID,
		ExtraMinutes: 90,
	})
	s.Equal(http.StatusForbidden, r.code)
}

func (s *ServerTestSuite) Test_AdminRecompute() {
	f := s.seedContest(policy.RuleSetDefault)

	r := s.submit(f, as(userAlice))
	s.Require().Equal(http.StatusOK, r.code, r.body)
	s.nextJudgeRequest()

	var submitted types.SubmitResponse
	s.Require().NoError(json.Unmarshal([]byte(r.body), &submitted))
	report := s.writeReport(uuid.MustParse(submitted.SubmissionID), 3)
	s.Require().NoError(s.aggregator.HandleSubmissionJudged(
		s.T().Context(),
		uuid.MustParse(submitted.SubmissionID),
		report.ID,
	))

	r = s.request(http.MethodPost, fmt.Sprintf("/admin/contest/%s/recompute/", f.contest.ID), as(userAdmin), nil)
	s.Require().Equal(http.StatusOK, r.code, r.body)

	var body types.RecomputeResponse
	s.Require().NoError(json.Unmarshal([]byte(r.body), &body))
	s.Equal(1, body.Pairs)
}
