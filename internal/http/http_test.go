package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sealbox/sealbox/internal/config"
	"github.com/sealbox/sealbox/internal/crypto"
	"github.com/sealbox/sealbox/internal/hash"
	"github.com/sealbox/sealbox/internal/http/dto"
	"github.com/sealbox/sealbox/internal/metrics"
	"github.com/sealbox/sealbox/internal/record"
	"github.com/sealbox/sealbox/internal/rotation"
	"github.com/sealbox/sealbox/internal/secret/backend"
	secretDomain "github.com/sealbox/sealbox/internal/secret/domain"
	"github.com/sealbox/sealbox/internal/secret/service"
	"github.com/sealbox/sealbox/internal/testutil"
	"github.com/sealbox/sealbox/internal/token"
)

// TestMain sets Gin to test mode for all tests in this package.
func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() *config.Config {
	return &config.Config{
		ServerHost:       "localhost",
		ServerPort:       8080,
		MetricsNamespace: "test_app",
	}
}

// testServer wires a full server over in-memory backends.
type testServer struct {
	server      *Server
	coordinator *rotation.Coordinator
	encryption  *service.Service
	signing     *service.Service
}

func newTestServer(t *testing.T, cfg *config.Config) *testServer {
	t.Helper()
	logger := discardLogger()

	encryption := service.New(
		secretDomain.SlotEncryption,
		false,
		secretDomain.AESGCM,
		testutil.NewMemoryBackend(),
		backend.NewCache(),
		logger,
	)
	signing := service.New(
		secretDomain.SlotSigning,
		false,
		secretDomain.HMACSHA256,
		testutil.NewMemoryBackend(),
		backend.NewCache(),
		logger,
	)
	hashing := service.New(
		secretDomain.SlotHash,
		true,
		secretDomain.HMACSHA256,
		testutil.NewMemoryBackend(),
		backend.NewCache(),
		logger,
	)

	coordinator := rotation.NewCoordinator(metrics.NewNoOpRotationMetrics(), logger)
	coordinator.RegisterRotator(encryption)
	coordinator.RegisterRotator(signing)
	coordinator.RegisterRotator(hashing)

	notes := record.NewStore[json.RawMessage](
		"secure_notes",
		testutil.NewMemoryRecordRepository(),
		crypto.NewEnvelopeCipher(secretDomain.AESGCM),
		encryption,
		logger,
	)
	coordinator.RegisterSweeper(notes)

	signer := token.NewSigner(signing, "sealbox", time.Hour)
	hasher := hash.NewHasher(hashing)

	server := NewServer(
		cfg,
		nil,
		NewRotationHandler(coordinator, logger),
		NewTokenHandler(signer, logger),
		NewHashHandler(hasher, logger),
		NewRecordHandler([]*record.Store[json.RawMessage]{notes}, logger),
		nil,
		logger,
	)

	return &testServer{
		server:      server,
		coordinator: coordinator,
		encryption:  encryption,
		signing:     signing,
	}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	request := httptest.NewRequest(method, path, reader)
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}

	recorder := httptest.NewRecorder()
	ts.server.GetHandler().ServeHTTP(recorder, request)
	return recorder
}

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer(t, testConfig())

	recorder := ts.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, recorder.Code)

	var response map[string]string
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	assert.Equal(t, "healthy", response["status"])
}

func TestReadinessEndpoint_NilDB(t *testing.T) {
	ts := newTestServer(t, testConfig())

	recorder := ts.do(t, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, recorder.Code)

	var response map[string]any
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	assert.Equal(t, "not_ready", response["status"])

	components, ok := response["components"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "error", components["database"])
}

func TestRotationEndpoints(t *testing.T) {
	ts := newTestServer(t, testConfig())
	ctx := context.Background()

	before, err := ts.encryption.GetCurrent(ctx)
	require.NoError(t, err)

	recorder := ts.do(t, http.MethodPost, "/admin/rotation", nil)
	assert.Equal(t, http.StatusAccepted, recorder.Code)

	var triggered dto.TriggerRotationResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &triggered))
	assert.Equal(t, "rotation_started", triggered.Status)

	// The trigger returns before the rotation finishes.
	assert.Eventually(t, func() bool {
		current, err := ts.encryption.GetCurrent(ctx)
		return err == nil && current.ID != before.ID
	}, 2*time.Second, 10*time.Millisecond)

	assert.Eventually(t, func() bool {
		status, err := ts.coordinator.Status(ctx)
		return err == nil && !status.InFlight && status.LastRun != nil
	}, 2*time.Second, 10*time.Millisecond)

	recorder = ts.do(t, http.MethodGet, "/admin/rotation", nil)
	assert.Equal(t, http.StatusOK, recorder.Code)

	var status dto.RotationStatusResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &status))
	assert.False(t, status.InFlight)
	require.NotNil(t, status.LastRun)
	assert.Len(t, status.Slots, 3)
}

func TestRotationTriggerConflict(t *testing.T) {
	ts := newTestServer(t, testConfig())

	blocker := &slowRotator{started: make(chan struct{}), release: make(chan struct{})}
	ts.coordinator.RegisterRotator(blocker)

	recorder := ts.do(t, http.MethodPost, "/admin/rotation", nil)
	require.Equal(t, http.StatusAccepted, recorder.Code)
	<-blocker.started

	recorder = ts.do(t, http.MethodPost, "/admin/rotation", nil)
	assert.Equal(t, http.StatusConflict, recorder.Code)

	close(blocker.release)
}

// slowRotator parks inside Rotate until released.
type slowRotator struct {
	started chan struct{}
	release chan struct{}
}

func (s *slowRotator) Slot() string { return "slow" }

func (s *slowRotator) Fixed() bool { return false }

func (s *slowRotator) Rotate(context.Context) (*secretDomain.Secret, error) {
	if s.started != nil {
		close(s.started)
		s.started = nil
	}
	<-s.release
	return secretDomain.NewSecret("slow", "dmFsdWU=", ""), nil
}

func (s *slowRotator) GetCurrent(context.Context) (*secretDomain.Secret, error) {
	return secretDomain.NewSecret("slow", "dmFsdWU=", ""), nil
}

func TestTokenEndpoints(t *testing.T) {
	ts := newTestServer(t, testConfig())

	t.Run("issues and verifies a token", func(t *testing.T) {
		recorder := ts.do(t, http.MethodPost, "/admin/tokens", dto.IssueTokenRequest{Subject: "user-42"})
		require.Equal(t, http.StatusCreated, recorder.Code)

		var issued dto.IssueTokenResponse
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &issued))
		require.NotEmpty(t, issued.Token)

		recorder = ts.do(t, http.MethodPost, "/admin/tokens/verify", dto.VerifyTokenRequest{Token: issued.Token})
		require.Equal(t, http.StatusOK, recorder.Code)

		var verified dto.VerifyTokenResponse
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &verified))
		assert.Equal(t, "user-42", verified.Subject)
		assert.Equal(t, "sealbox", verified.Issuer)
	})

	t.Run("tokens survive signing rotation", func(t *testing.T) {
		recorder := ts.do(t, http.MethodPost, "/admin/tokens", dto.IssueTokenRequest{Subject: "user-42"})
		require.Equal(t, http.StatusCreated, recorder.Code)

		var issued dto.IssueTokenResponse
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &issued))

		_, err := ts.signing.Rotate(context.Background())
		require.NoError(t, err)

		recorder = ts.do(t, http.MethodPost, "/admin/tokens/verify", dto.VerifyTokenRequest{Token: issued.Token})
		assert.Equal(t, http.StatusOK, recorder.Code)
	})

	t.Run("rejects a blank subject", func(t *testing.T) {
		recorder := ts.do(t, http.MethodPost, "/admin/tokens", map[string]string{"subject": ""})
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})

	t.Run("rejects malformed json", func(t *testing.T) {
		request := httptest.NewRequest(http.MethodPost, "/admin/tokens", bytes.NewReader([]byte("{not json")))
		request.Header.Set("Content-Type", "application/json")
		recorder := httptest.NewRecorder()
		ts.server.GetHandler().ServeHTTP(recorder, request)
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})

	t.Run("rejects an invalid token", func(t *testing.T) {
		recorder := ts.do(t, http.MethodPost, "/admin/tokens/verify", dto.VerifyTokenRequest{Token: "not-a-token"})
		assert.Equal(t, http.StatusUnprocessableEntity, recorder.Code)
	})
}

func TestHashEndpoint(t *testing.T) {
	ts := newTestServer(t, testConfig())

	recorder := ts.do(t, http.MethodPost, "/admin/hashes", dto.HashRequest{Value: "jane@example.com"})
	require.Equal(t, http.StatusOK, recorder.Code)

	var first dto.HashResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &first))
	assert.Len(t, first.Digest, 64)

	// Deterministic across calls.
	recorder = ts.do(t, http.MethodPost, "/admin/hashes", dto.HashRequest{Value: "jane@example.com"})
	require.Equal(t, http.StatusOK, recorder.Code)

	var second dto.HashResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &second))
	assert.Equal(t, first.Digest, second.Digest)
}

func TestRecordEndpoints(t *testing.T) {
	ts := newTestServer(t, testConfig())
	payload := json.RawMessage(`{"title":"wifi","body":"hunter2"}`)

	t.Run("saves and fetches a record", func(t *testing.T) {
		recorder := ts.do(t, http.MethodPost, "/admin/records/secure_notes", dto.SaveRecordRequest{Payload: payload})
		require.Equal(t, http.StatusCreated, recorder.Code)

		var saved dto.RecordResponse
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &saved))
		require.NotEmpty(t, saved.ID)
		assert.JSONEq(t, string(payload), string(saved.Payload))

		recorder = ts.do(t, http.MethodGet, "/admin/records/secure_notes/"+saved.ID, nil)
		require.Equal(t, http.StatusOK, recorder.Code)

		var fetched dto.RecordResponse
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &fetched))
		assert.Equal(t, saved.ID, fetched.ID)
		assert.JSONEq(t, string(payload), string(fetched.Payload))
	})

	t.Run("lists the collection", func(t *testing.T) {
		recorder := ts.do(t, http.MethodGet, "/admin/records/secure_notes", nil)
		require.Equal(t, http.StatusOK, recorder.Code)

		var listed dto.RecordListResponse
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &listed))
		assert.NotEmpty(t, listed.Records)
	})

	t.Run("unknown record is not found", func(t *testing.T) {
		recorder := ts.do(t, http.MethodGet, "/admin/records/secure_notes/missing", nil)
		assert.Equal(t, http.StatusNotFound, recorder.Code)
	})

	t.Run("unknown collection is not found", func(t *testing.T) {
		recorder := ts.do(t, http.MethodGet, "/admin/records/credit_cards", nil)
		assert.Equal(t, http.StatusNotFound, recorder.Code)
	})

	t.Run("rejects an empty payload", func(t *testing.T) {
		recorder := ts.do(t, http.MethodPost, "/admin/records/secure_notes", map[string]any{})
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})
}

func TestRotationTriggerRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimitEnabled = true
	cfg.RateLimitRequestsPerSec = 0.001
	cfg.RateLimitBurst = 1

	ts := newTestServer(t, cfg)

	blocker := &slowRotator{release: make(chan struct{})}
	defer close(blocker.release)
	ts.coordinator.RegisterRotator(blocker)

	recorder := ts.do(t, http.MethodPost, "/admin/rotation", nil)
	require.Equal(t, http.StatusAccepted, recorder.Code)

	recorder = ts.do(t, http.MethodPost, "/admin/rotation", nil)
	assert.Equal(t, http.StatusTooManyRequests, recorder.Code)
}

func TestCustomLoggerMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(CustomLoggerMiddleware(discardLogger()))
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "test"})
	})

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/test", nil))
	assert.Equal(t, http.StatusOK, recorder.Code)
}

func TestMetricsServer(t *testing.T) {
	provider, err := metrics.NewProvider("test_app")
	require.NoError(t, err)

	server := NewMetricsServer("localhost", 8081, discardLogger(), provider)

	recorder := httptest.NewRecorder()
	server.GetHandler().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, recorder.Code)
}
