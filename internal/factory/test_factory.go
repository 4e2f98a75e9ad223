package factory

import (
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/fiteval/internal/dependencies/mocks"
	"github.com/mcoot/fiteval/internal/services/auth"
	"github.com/mcoot/fiteval/internal/services/evaluation"
	"github.com/mcoot/fiteval/internal/services/upload"
	"github.com/mcoot/fiteval/internal/storage/memory"
	"github.com/mcoot/fiteval/internal/testutil"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom

	// UploadDir is where received assets are written
	UploadDir string
}

// NewTestApp creates an App configured for testing with mocked dependencies,
// in-memory stores, a temporary upload directory and the given evaluator command
func NewTestApp(t testing.TB, command string, args ...string) *TestApp {
	t.Helper()

	evalCfg := evaluation.DefaultConfig()
	evalCfg.Command = command
	evalCfg.Args = args
	evalCfg.Timeout = 10 * time.Second
	evalCfg.WaitDelay = time.Second

	return NewTestAppWithEvaluator(t, evalCfg)
}

// NewTestAppWithEvaluator is NewTestApp with full control over the evaluator settings
func NewTestAppWithEvaluator(t testing.TB, evalCfg evaluation.Config) *TestApp {
	t.Helper()

	store := memory.New()
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()

	authCfg := auth.DefaultConfig()
	authCfg.BcryptCost = bcrypt.MinCost

	uploadCfg := upload.DefaultConfig()
	uploadCfg.Dir = t.TempDir()

	app, err := newWithDependencies(store, store, mockClock, mockRandom, authCfg, uploadCfg, evalCfg, testutil.NopLogger())
	if err != nil {
		t.Fatalf("create test app: %v", err)
	}

	return &TestApp{
		App:        app,
		MockClock:  mockClock,
		MockRandom: mockRandom,
		UploadDir:  uploadCfg.Dir,
	}
}
