package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/fiteval/internal/api/middleware"
	"github.com/mcoot/fiteval/internal/dependencies/mocks"
	"github.com/mcoot/fiteval/internal/model"
	"github.com/mcoot/fiteval/internal/services/auth"
	"github.com/mcoot/fiteval/internal/services/evaluation"
	"github.com/mcoot/fiteval/internal/services/upload"
	"github.com/mcoot/fiteval/internal/storage/memory"
	"github.com/mcoot/fiteval/internal/testutil"
)

type fakeReceiver struct {
	asset *model.UploadedAsset
	err   error
	calls int
}

func (f *fakeReceiver) Receive(http.ResponseWriter, *http.Request) (*model.UploadedAsset, error) {
	f.calls++
	return f.asset, f.err
}

type fakeEvaluator struct {
	result model.EvaluationResult
	err    error
	got    *model.UploadedAsset
}

func (f *fakeEvaluator) Evaluate(_ context.Context, asset *model.UploadedAsset) (model.EvaluationResult, error) {
	f.got = asset
	return f.result, f.err
}

type UploadHandlerSuite struct {
	suite.Suite
	receiver  *fakeReceiver
	evaluator *fakeEvaluator
	handler   http.Handler
	token     string
}

func TestUploadHandlerSuite(t *testing.T) {
	suite.Run(t, new(UploadHandlerSuite))
}

func (s *UploadHandlerSuite) SetupTest() {
	store := memory.New()
	cfg := auth.DefaultConfig()
	cfg.BcryptCost = bcrypt.MinCost
	authService := auth.New(store, store, mocks.NewMockClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)), mocks.NewMockRandom(), testutil.NopLogger(), cfg)

	ctx := context.Background()
	s.Require().NoError(authService.Signup(ctx, "alice", "secret123"))
	session, err := authService.Login(ctx, "alice", "secret123")
	s.Require().NoError(err)
	s.token = session.Token

	s.receiver = &fakeReceiver{asset: &model.UploadedAsset{Path: "/tmp/x.mp4", TestType: "squats"}}
	s.evaluator = &fakeEvaluator{result: model.EvaluationResult{"terminal": "ok"}}

	h := NewUploadHandler(s.receiver, s.evaluator, testutil.NopLogger())
	s.handler = middleware.Auth(authService, "")(http.HandlerFunc(h.Upload))
}

func (s *UploadHandlerSuite) serve() *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/upload", nil)
	req.Header.Set("Authorization", "Bearer "+s.token)
	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)
	return rr
}

func (s *UploadHandlerSuite) TestSuccess() {
	rr := s.serve()
	s.Equal(http.StatusOK, rr.Code)
	s.JSONEq(`{"terminal":"ok"}`, rr.Body.String())
	s.Equal("squats", s.evaluator.got.TestType)
}

func (s *UploadHandlerSuite) TestReceiveErrorSkipsEvaluation() {
	s.receiver.err = upload.ErrUnsupportedMediaType
	s.receiver.asset = nil

	rr := s.serve()
	s.Equal(http.StatusUnsupportedMediaType, rr.Code)
	s.Nil(s.evaluator.got)
}

func (s *UploadHandlerSuite) TestEvaluatorErrors() {
	tests := []struct {
		name   string
		err    error
		status int
		body   string
	}{
		{
			name:   "non-zero exit",
			err:    &evaluation.InvocationError{Kind: evaluation.NonZeroExit, Details: "boom", Err: errors.New("exit status 1")},
			status: http.StatusInternalServerError,
			body:   `{"error":"Python script failed","details":"boom"}`,
		},
		{
			name:   "timeout",
			err:    &evaluation.InvocationError{Kind: evaluation.Timeout, Details: "slow", Err: context.DeadlineExceeded},
			status: http.StatusGatewayTimeout,
			body:   `{"error":"Evaluation timed out","details":"slow"}`,
		},
		{
			name:   "slot wait canceled",
			err:    context.Canceled,
			status: http.StatusServiceUnavailable,
			body:   `{"error":"Evaluation capacity unavailable"}`,
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.evaluator.err = tt.err
			rr := s.serve()
			s.Equal(tt.status, rr.Code)
			s.JSONEq(tt.body, rr.Body.String())
		})
	}
}

func (s *UploadHandlerSuite) TestWithoutSession() {
	req := httptest.NewRequest(http.MethodPost, "/upload", nil)
	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)

	s.Equal(http.StatusUnauthorized, rr.Code)
	s.Zero(s.receiver.calls)
}
