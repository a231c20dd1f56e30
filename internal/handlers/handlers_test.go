package handlers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eudguide/internal/biometric"
	"eudguide/internal/logger"
	"eudguide/internal/models"
	"eudguide/internal/security"
	"eudguide/internal/service"
)

type memorySaver struct {
	mu    sync.Mutex
	saves int
}

func (m *memorySaver) SaveSnapshot(ctx context.Context, state *models.AppState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	return nil
}

type testServer struct {
	t         *testing.T
	handler   http.Handler
	family    *service.FamilyService
	verdict   biometric.Result
	oracleErr error
}

// gateView mirrors GateStatus without the polymorphic action payload
type gateView struct {
	ID      string               `json:"id"`
	State   service.GateState    `json:"state"`
	RetryAt *time.Time           `json:"retry_at"`
	Outcome *service.GateOutcome `json:"outcome"`
}

type errorView struct {
	Error  string `json:"error"`
	Fields []struct {
		Field   string `json:"field"`
		Message string `json:"message"`
	} `json:"fields"`
	Gate *gateView `json:"gate"`
}

var guardianFace = base64.StdEncoding.EncodeToString([]byte("guardian-face-jpeg"))

func newTestServer(t *testing.T, limiter *security.RateLimiter) *testServer {
	t.Helper()
	log := logger.NewNop()
	ts := &testServer{t: t, verdict: biometric.Result{Match: true, Confidence: 0.9}}

	ts.family = service.NewFamilyService(nil, &memorySaver{}, log)
	oracle := biometric.OracleFunc(func(ctx context.Context, reference, probe biometric.Image) (biometric.Result, error) {
		return ts.verdict, ts.oracleErr
	})
	verify := service.NewVerificationService(ts.family, oracle, service.DefaultGatePolicy(), time.Minute, log)
	tokens, err := security.NewDashboardTokens("test-secret", time.Minute)
	require.NoError(t, err)

	ts.handler = NewRouter(Services{
		Family:  ts.family,
		Verify:  verify,
		Reports: service.NewReportService(ts.family, log),
		Tokens:  tokens,
		Limiter: limiter,
	}, log)
	return ts
}

func (ts *testServer) do(method, path string, body interface{}, header ...string) *httptest.ResponseRecorder {
	ts.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(ts.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

// onboard creates one profile, completes onboarding and returns the profile ID
func (ts *testServer) onboard() string {
	ts.t.Helper()
	rec := ts.do(http.MethodPost, "/api/profiles", map[string]string{
		"name": "Asha", "standard": "5th", "school": "Hillview Primary",
	})
	require.Equal(ts.t, http.StatusCreated, rec.Code, rec.Body.String())
	p := decode[models.Profile](ts.t, rec)

	rec = ts.do(http.MethodPost, "/api/onboarding/complete", map[string]string{
		"pin": "4821", "face_image": "data:image/jpeg;base64," + guardianFace, "mime_type": "image/jpeg",
	})
	require.Equal(ts.t, http.StatusOK, rec.Code, rec.Body.String())
	return p.ID
}

func (ts *testServer) beginCredit(profileID string) gateView {
	ts.t.Helper()
	rec := ts.do(http.MethodPost, "/api/gates", map[string]interface{}{
		"action": "credit_session", "profile_id": profileID, "subject": "Mathematics", "duration_minutes": 25,
	})
	require.Equal(ts.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[gateView](ts.t, rec)
}

func TestStaticLists(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(http.MethodGet, "/api/subjects", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	subjects := decode[map[string][]string](t, rec)
	assert.Len(t, subjects["subjects"], len(models.Subjects))

	rec = ts.do(http.MethodGet, "/api/levels", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"Ruby"`)

	rec = ts.do(http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateProfile(t *testing.T) {
	tests := []struct {
		name       string
		body       interface{}
		wantStatus int
		wantField  string
	}{
		{"valid", map[string]string{"name": "Ravi", "standard": "3rd", "school": "Oak Lane"}, http.StatusCreated, ""},
		{"blank name", map[string]string{"name": "  ", "standard": "3rd", "school": "Oak Lane"}, http.StatusBadRequest, "name"},
		{"unknown field", map[string]string{"name": "Ravi", "grade": "3"}, http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, nil)
			rec := ts.do(http.MethodPost, "/api/profiles", tt.body)
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.wantField != "" {
				resp := decode[errorView](t, rec)
				require.NotEmpty(t, resp.Fields)
				assert.Equal(t, tt.wantField, resp.Fields[0].Field)
			}
		})
	}
}

func TestCreateProfileCapacity(t *testing.T) {
	ts := newTestServer(t, nil)
	for i := 0; i < models.MaxProfiles; i++ {
		rec := ts.do(http.MethodPost, "/api/profiles", map[string]string{"name": "Kid", "standard": "1st", "school": "Elm"})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := ts.do(http.MethodPost, "/api/profiles", map[string]string{"name": "Kid", "standard": "1st", "school": "Elm"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(http.MethodGet, "/api/profiles", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[struct {
		Children []profileResponse `json:"children"`
	}](t, rec)
	assert.Len(t, list.Children, models.MaxProfiles)
}

func TestGateRequiresOnboarding(t *testing.T) {
	ts := newTestServer(t, nil)
	rec := ts.do(http.MethodPost, "/api/profiles", map[string]string{"name": "Asha", "standard": "5th", "school": "Hillview"})
	p := decode[models.Profile](t, rec)

	rec = ts.do(http.MethodPost, "/api/gates", map[string]interface{}{
		"action": "credit_session", "profile_id": p.ID, "subject": "Science", "duration_minutes": 10,
	})
	assert.Equal(t, http.StatusPreconditionFailed, rec.Code)
}

func TestGateCreditsSessionAfterBothFactors(t *testing.T) {
	ts := newTestServer(t, nil)
	profileID := ts.onboard()
	gate := ts.beginCredit(profileID)
	assert.Equal(t, service.GateAwaitingPin, gate.State)

	rec := ts.do(http.MethodPost, "/api/gates/"+gate.ID+"/pin", map[string]string{"pin": "1111"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	resp := decode[errorView](t, rec)
	require.NotNil(t, resp.Gate)
	assert.Equal(t, service.GateAwaitingPin, resp.Gate.State)

	rec = ts.do(http.MethodPost, "/api/gates/"+gate.ID+"/pin", map[string]string{"pin": "4821"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, service.GateAwaitingBiometric, decode[gateView](t, rec).State)

	rec = ts.do(http.MethodPost, "/api/gates/"+gate.ID+"/biometric", map[string]string{"image": guardianFace, "mime_type": "image/jpeg"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	final := decode[gateView](t, rec)
	assert.Equal(t, service.GateCompleted, final.State)
	require.NotNil(t, final.Outcome)
	require.NotNil(t, final.Outcome.Credit)
	assert.Equal(t, models.XPPerSession, final.Outcome.Credit.XP)

	rec = ts.do(http.MethodGet, "/api/profiles/"+profileID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	p := decode[profileResponse](t, rec)
	assert.Equal(t, models.XPPerSession, p.XP)
	assert.Equal(t, 25, p.Stats.TotalMinutes)
}

func TestGateBiometricRejection(t *testing.T) {
	ts := newTestServer(t, nil)
	profileID := ts.onboard()
	ts.verdict = biometric.Result{Match: true, Confidence: 0.4}
	gate := ts.beginCredit(profileID)

	rec := ts.do(http.MethodPost, "/api/gates/"+gate.ID+"/pin", map[string]string{"pin": "4821"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(http.MethodPost, "/api/gates/"+gate.ID+"/biometric", map[string]string{"image": guardianFace})
	require.Equal(t, http.StatusForbidden, rec.Code)
	resp := decode[errorView](t, rec)
	require.NotNil(t, resp.Gate)
	assert.Equal(t, service.GateAwaitingBiometric, resp.Gate.State)
	assert.NotNil(t, resp.Gate.RetryAt)

	rec = ts.do(http.MethodPost, "/api/gates/"+gate.ID+"/biometric", map[string]string{"image": guardianFace})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	p, err := ts.family.Profile(profileID)
	require.NoError(t, err)
	assert.Zero(t, p.XP)
}

func TestGateOracleFaultAborts(t *testing.T) {
	ts := newTestServer(t, nil)
	profileID := ts.onboard()
	ts.oracleErr = biometric.ErrOracleUnavailable
	gate := ts.beginCredit(profileID)

	ts.do(http.MethodPost, "/api/gates/"+gate.ID+"/pin", map[string]string{"pin": "4821"})
	rec := ts.do(http.MethodPost, "/api/gates/"+gate.ID+"/biometric", map[string]string{"image": guardianFace})
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	resp := decode[errorView](t, rec)
	require.NotNil(t, resp.Gate)
	assert.Equal(t, service.GateAborted, resp.Gate.State)

	rec = ts.do(http.MethodGet, "/api/gates/pending", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestGateBusyAndCancel(t *testing.T) {
	ts := newTestServer(t, nil)
	profileID := ts.onboard()
	gate := ts.beginCredit(profileID)

	rec := ts.do(http.MethodPost, "/api/gates", map[string]interface{}{"action": "switch_active", "profile_id": profileID})
	require.Equal(t, http.StatusConflict, rec.Code)
	resp := decode[errorView](t, rec)
	require.NotNil(t, resp.Gate)
	assert.Equal(t, gate.ID, resp.Gate.ID)

	rec = ts.do(http.MethodGet, "/api/gates/pending", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(http.MethodPost, "/api/gates/"+gate.ID+"/cancel", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, service.GateAborted, decode[gateView](t, rec).State)

	rec = ts.do(http.MethodPost, "/api/gates/"+gate.ID+"/pin", map[string]string{"pin": "4821"})
	assert.Equal(t, http.StatusGone, rec.Code)

	rec = ts.do(http.MethodGet, "/api/gates/unknown", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGateUnknownAction(t *testing.T) {
	ts := newTestServer(t, nil)
	profileID := ts.onboard()

	rec := ts.do(http.MethodPost, "/api/gates", map[string]interface{}{"action": "delete_profile", "profile_id": profileID})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBiometricRateLimited(t *testing.T) {
	ts := newTestServer(t, security.NewRateLimiter(1, time.Minute))
	profileID := ts.onboard()
	gate := ts.beginCredit(profileID)

	ts.do(http.MethodPost, "/api/gates/"+gate.ID+"/pin", map[string]string{"pin": "4821"})
	ts.verdict = biometric.Result{Match: false, Confidence: 0.1}
	rec := ts.do(http.MethodPost, "/api/gates/"+gate.ID+"/biometric", map[string]string{"image": guardianFace})
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(http.MethodPost, "/api/gates/"+gate.ID+"/biometric", map[string]string{"image": guardianFace})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
}

func TestParentDashboard(t *testing.T) {
	ts := newTestServer(t, nil)
	profileID := ts.onboard()

	rec := ts.do(http.MethodGet, "/api/parent/dashboard", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(http.MethodPost, "/api/parent/unlock", map[string]string{"pin": "0000"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(http.MethodPost, "/api/parent/unlock", map[string]string{"pin": "4821"})
	require.Equal(t, http.StatusOK, rec.Code)
	unlocked := decode[unlockResponse](t, rec)
	require.NotEmpty(t, unlocked.Token)
	require.NotEmpty(t, rec.Result().Cookies())

	rec = ts.do(http.MethodPost, "/api/profiles/"+profileID+"/recordings", map[string]string{"subject": "History", "audio_url": "blob:rec-1"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = ts.do(http.MethodGet, "/api/parent/dashboard", nil, "Authorization", "Bearer "+unlocked.Token)
	require.Equal(t, http.StatusOK, rec.Code)
	dash := decode[dashboardResponse](t, rec)
	require.Len(t, dash.Children, 1)
	assert.Equal(t, profileID, dash.ActiveProfileID)
	assert.Len(t, dash.Children[0].Recordings, 1)

	rec = ts.do(http.MethodGet, "/api/parent/report.xlsx", nil, "Authorization", "Bearer "+unlocked.Token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".xlsx")
	assert.NotZero(t, rec.Body.Len())

	rec = ts.do(http.MethodGet, "/api/parent/dashboard", nil, "Authorization", "Bearer not-a-token")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestOnboardingRejectsBadImage(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.do(http.MethodPost, "/api/profiles", map[string]string{"name": "Asha", "standard": "5th", "school": "Hillview"})

	rec := ts.do(http.MethodPost, "/api/onboarding/complete", map[string]string{"pin": "4821", "face_image": "%%%"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(http.MethodPost, "/api/onboarding/complete", map[string]string{"pin": "12", "face_image": guardianFace})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(http.MethodGet, "/api/status", nil)
	assert.False(t, decode[statusResponse](t, rec).Onboarded)
}
