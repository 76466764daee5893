package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"breathemate/models"
)

var (
	ErrSessionActive   = errors.New("a session is already in progress for this profile")
	ErrNoActiveSession = errors.New("no active session")
	ErrBadPhase        = errors.New("operation not valid in the current phase")
	ErrCaptureFailed   = errors.New("capture produced no audio")
)

// RawSample is the captured audio payload. The engine never inspects it;
// it is handed to the scorer as-is.
type RawSample []byte

// SessionEvents are host callbacks fired as the state machine moves.
// Nil callbacks are skipped.
type SessionEvents struct {
	OnPhaseChanged       func(models.Phase)
	OnIterationCompleted func(models.IterationResult)
	OnSessionCompleted   func(models.SessionRecord, *models.Analytics)
}

type EngineConfig struct {
	MaxIterations int
	// Location decides calendar-day and week boundaries for streaks and
	// weekly rollups.
	Location *time.Location
}

func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		MaxIterations: 3,
		Location:      time.Local,
	}
}

// SessionManager enforces one live session per profile, owns the loaded
// analytics for each active profile, and folds completed sessions into
// them.
type SessionManager struct {
	mu        sync.Mutex
	cfg       EngineConfig
	scorer    Scorer
	store     AnalyticsStore
	now       func() time.Time
	seed      func() int64
	active    map[string]*SessionController
	analytics map[string]*models.Analytics
	dirty     map[string]bool // absorbed but not yet saved
}

func NewSessionManager(cfg EngineConfig, scorer Scorer, store AnalyticsStore) *SessionManager {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = 3
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &SessionManager{
		cfg:       cfg,
		scorer:    scorer,
		store:     store,
		now:       time.Now,
		seed:      func() int64 { return time.Now().UnixNano() },
		active:    map[string]*SessionController{},
		analytics: map[string]*models.Analytics{},
		dirty:     map[string]bool{},
	}
}

// ActivateProfile loads the profile's analytics once; later calls return
// the cached copy so an unsaved absorb is never thrown away.
func (m *SessionManager) ActivateProfile(ctx context.Context, profileID string) (*models.Analytics, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.analytics[profileID]; ok {
		return a.Clone(), nil
	}
	a, err := m.store.Load(ctx, profileID)
	if err != nil {
		return nil, err
	}
	m.analytics[profileID] = a
	return a.Clone(), nil
}

// Start begins a new session for the profile, moving idle -> prompt.
// Fails while another session for the same profile is still live.
func (m *SessionManager) Start(ctx context.Context, profileID string, mode models.SessionMode, category models.Category, events SessionEvents) (*SessionController, error) {
	if _, err := m.ActivateProfile(ctx, profileID); err != nil {
		return nil, fmt.Errorf("activate profile: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.active[profileID]; ok && !existing.Done() {
		return nil, ErrSessionActive
	}

	sc := &SessionController{
		manager: m,
		events:  events,
		rng:     rand.New(rand.NewSource(m.seed())),
		session: &models.Session{
			ID:         uuid.NewString(),
			ProfileID:  profileID,
			Mode:       mode,
			Phase:      models.PhaseIdle,
			Category:   category,
			Iterations: []models.IterationResult{},
			StartedAt:  m.now(),
		},
	}
	m.active[profileID] = sc
	sc.toPrompt()
	return sc, nil
}

// Controller looks up the live controller for a session id.
func (m *SessionManager) Controller(profileID, sessionID string) (*SessionController, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sc, ok := m.active[profileID]
	if !ok || sc.Done() || sc.session.ID != sessionID {
		return nil, ErrNoActiveSession
	}
	return sc, nil
}

// Analytics returns the current in-memory aggregate for the profile,
// loading it on first use.
func (m *SessionManager) Analytics(ctx context.Context, profileID string) (*models.Analytics, error) {
	return m.ActivateProfile(ctx, profileID)
}

// absorb folds a finished session into the profile's analytics and
// persists. On a save failure the in-memory update survives, marked
// dirty, and rides along with the next successful save.
func (m *SessionManager) absorb(ctx context.Context, session *models.Session) (models.SessionRecord, *models.Analytics, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.analytics[session.ProfileID]
	if !ok {
		current = models.NewAnalytics(session.ProfileID)
	}
	updated, record, err := Absorb(current, session, m.now(), m.cfg.Location)
	if err != nil {
		return models.SessionRecord{}, nil, err
	}
	m.analytics[session.ProfileID] = updated

	if err := m.store.Save(ctx, session.ProfileID, updated); err != nil {
		m.dirty[session.ProfileID] = true
		return record, updated.Clone(), fmt.Errorf("save analytics: %w", err)
	}
	delete(m.dirty, session.ProfileID)
	return record, updated.Clone(), nil
}

// Flush retries a pending save for the profile, if any.
func (m *SessionManager) Flush(ctx context.Context, profileID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.dirty[profileID] {
		return nil
	}
	if err := m.store.Save(ctx, profileID, m.analytics[profileID]); err != nil {
		return err
	}
	delete(m.dirty, profileID)
	return nil
}

func (m *SessionManager) release(profileID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.active, profileID)
}

// SessionController drives one session through its phases. Every
// suspension point (settle delay, capture, continue decision) resumes
// through a method call from the host; the engine never polls.
type SessionController struct {
	mu      sync.Mutex
	manager *SessionManager
	events  SessionEvents
	rng     *rand.Rand
	session *models.Session
	prompt  string
	done    atomic.Bool
}

// Session returns a snapshot of the session state.
func (sc *SessionController) Session() models.Session {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	snap := *sc.session
	snap.Iterations = append([]models.IterationResult{}, sc.session.Iterations...)
	return snap
}

// Prompt returns the reading prompt for the current iteration.
func (sc *SessionController) Prompt() string {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.prompt
}

// Done reports whether the session reached its terminal state. Safe to
// call from the manager without taking the controller lock.
func (sc *SessionController) Done() bool {
	return sc.done.Load()
}

func (sc *SessionController) setPhase(p models.Phase) {
	sc.session.Phase = p
	if sc.events.OnPhaseChanged != nil {
		sc.events.OnPhaseChanged(p)
	}
}

// toPrompt issues the next prompt. Called with no lock held only from
// Start; internal callers hold sc.mu.
func (sc *SessionController) toPrompt() {
	sc.prompt = PromptFor(sc.session.Category, sc.rng)
	sc.setPhase(models.PhasePrompt)
}

// BeginRecording moves prompt -> recording once the host's settle
// interval has elapsed. Recording can never begin before a prompt was
// issued.
func (sc *SessionController) BeginRecording() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.session.Phase != models.PhasePrompt {
		return ErrBadPhase
	}
	sc.setPhase(models.PhaseRecording)
	return nil
}

// CompleteRecording receives the captured audio, scores it, and either
// offers the continue decision or completes the session. A capture,
// scorer, or invariant failure aborts only the current iteration: prior
// iterations still complete the session and reach analytics.
func (sc *SessionController) CompleteRecording(ctx context.Context, raw RawSample) (models.IterationResult, bool, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.session.Phase != models.PhaseRecording {
		return models.IterationResult{}, false, ErrBadPhase
	}
	sc.setPhase(models.PhaseAnalyzing)

	if len(raw) == 0 {
		return models.IterationResult{}, false, sc.failIteration(ctx, ErrCaptureFailed)
	}

	iteration := len(sc.session.Iterations) + 1
	if iteration > sc.manager.cfg.MaxIterations {
		return models.IterationResult{}, false, sc.failIteration(ctx, fmt.Errorf("iteration %d exceeds limit %d", iteration, sc.manager.cfg.MaxIterations))
	}

	result, err := sc.manager.scorer.Score(iteration, sc.session.Category, sc.session.LastIteration())
	if err != nil {
		return models.IterationResult{}, false, sc.failIteration(ctx, fmt.Errorf("scorer: %w", err))
	}
	if err := ValidateIteration(result, iteration); err != nil {
		return models.IterationResult{}, false, sc.failIteration(ctx, fmt.Errorf("rejected iteration: %w", err))
	}

	sc.session.Iterations = append(sc.session.Iterations, result)
	if sc.events.OnIterationCompleted != nil {
		sc.events.OnIterationCompleted(result)
	}

	if sc.session.Mode == models.ModeIterative && len(sc.session.Iterations) < sc.manager.cfg.MaxIterations {
		sc.setPhase(models.PhaseAwaitingDecision)
		return result, true, nil
	}
	return result, false, sc.complete(ctx)
}

// Decide resolves the continue/complete decision point. Continuing asks
// the selector for the next category and issues a fresh prompt.
func (sc *SessionController) Decide(ctx context.Context, keepGoing bool) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.session.Phase != models.PhaseAwaitingDecision {
		return ErrBadPhase
	}
	if !keepGoing {
		return sc.complete(ctx)
	}
	sc.session.Category = SelectNextCategory(sc.session.Category, sc.session.LastIteration())
	sc.toPrompt()
	return nil
}

// Cancel discards the session outright. Analytics are never touched.
func (sc *SessionController) Cancel() {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.done.Load() {
		return
	}
	sc.done.Store(true)
	sc.setPhase(models.PhaseComplete)
	sc.manager.release(sc.session.ProfileID)
}

// failIteration handles a mid-iteration failure: the session completes
// with whatever iterations already exist, and the cause is returned to
// the host alongside any absorption error.
func (sc *SessionController) failIteration(ctx context.Context, cause error) error {
	if err := sc.complete(ctx); err != nil && !errors.Is(err, ErrEmptySession) {
		return errors.Join(cause, err)
	}
	return cause
}

// complete is terminal. With at least one iteration the session is
// absorbed and persisted; with none it simply disappears.
func (sc *SessionController) complete(ctx context.Context) error {
	sc.done.Store(true)
	sc.setPhase(models.PhaseComplete)
	sc.manager.release(sc.session.ProfileID)

	if len(sc.session.Iterations) == 0 {
		return nil
	}
	record, analytics, err := sc.manager.absorb(ctx, sc.session)
	if err != nil && analytics == nil {
		return err
	}
	if sc.events.OnSessionCompleted != nil {
		sc.events.OnSessionCompleted(record, analytics)
	}
	return err
}
