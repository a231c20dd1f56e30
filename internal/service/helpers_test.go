package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"eudguide/internal/biometric"
	"eudguide/internal/logger"
	"eudguide/internal/models"
)

var errDiskFull = errors.New("disk full")

type fakeSaver struct {
	mu    sync.Mutex
	calls int
	err   error
	last  *models.AppState
}

func (f *fakeSaver) SaveSnapshot(ctx context.Context, state *models.AppState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return f.err
	}
	f.last = state.Clone()
	return nil
}

func (f *fakeSaver) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeSaver) Fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 17, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// scriptedOracle returns queued verdicts in order and records every call
type scriptedOracle struct {
	mu       sync.Mutex
	verdicts []biometric.Result
	err      error
	calls    int
}

func (o *scriptedOracle) Compare(ctx context.Context, reference, probe biometric.Image) (biometric.Result, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls++
	if o.err != nil {
		return biometric.Result{}, o.err
	}
	if len(o.verdicts) == 0 {
		return biometric.Result{}, errors.New("no verdict scripted")
	}
	r := o.verdicts[0]
	o.verdicts = o.verdicts[1:]
	return r, nil
}

func (o *scriptedOracle) Calls() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.calls
}

var (
	guardianFace = []byte("guardian-face")
	cameraFrame  = biometric.Image{Data: []byte("camera-frame"), MIMEType: "image/jpeg"}
)

// householdWithAsha is an onboarded household whose only child sits just below Silver
func householdWithAsha() *models.AppState {
	st := models.NewAppState()
	st.Profiles = []models.Profile{{
		ID:           "asha",
		Name:         "Asha",
		Standard:     "5",
		School:       "Green Valley",
		XP:           980,
		Rank:         models.RankBronze,
		Sessions:     []models.StudySession{},
		Recordings:   []models.VoiceRecording{},
		Certificates: []models.Rank{},
	}}
	st.ActiveProfileID = "asha"
	st.Guardian = models.GuardianCredential{
		PIN:                "4821",
		FaceImage:          guardianFace,
		FaceMIMEType:       "image/jpeg",
		FaceRegistered:     true,
		OnboardingComplete: true,
	}
	return st
}

type harness struct {
	store  *FamilyService
	saver  *fakeSaver
	clock  *fakeClock
	oracle *scriptedOracle
	verify *VerificationService
}

func newHarness(initial *models.AppState) *harness {
	h := &harness{
		saver:  &fakeSaver{},
		clock:  newFakeClock(),
		oracle: &scriptedOracle{},
	}
	log := logger.NewNop()
	h.store = NewFamilyService(initial, h.saver, log)
	h.store.now = h.clock.Now
	h.verify = NewVerificationService(h.store, h.oracle, DefaultGatePolicy(), time.Millisecond, log)
	h.verify.now = h.clock.Now
	return h
}

func (h *harness) script(verdicts ...biometric.Result) {
	h.oracle.mu.Lock()
	defer h.oracle.mu.Unlock()
	h.oracle.verdicts = append(h.oracle.verdicts, verdicts...)
}
