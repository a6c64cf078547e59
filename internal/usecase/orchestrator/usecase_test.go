package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signup-agent/internal/application/port/output"
	"signup-agent/internal/domain/entity"
	"signup-agent/internal/infrastructure/bus/memory"
	"signup-agent/internal/usecase/mailpoll"
)

// --- fakes -----------------------------------------------------------------

type nopLogger struct{}

func (nopLogger) Debug(string, ...any)                          {}
func (nopLogger) Info(string, ...any)                           {}
func (nopLogger) Warn(string, ...any)                           {}
func (nopLogger) Error(string, ...any)                          {}
func (l nopLogger) WithField(string, any) output.LoggerPort     { return l }
func (l nopLogger) WithFields(map[string]any) output.LoggerPort { return l }
func (nopLogger) Close() error                                  { return nil }

type fakeSession struct{ id string }

func (s *fakeSession) ID() string          { return s.id }
func (s *fakeSession) LiveViewURL() string { return "https://live.example/" + s.id }

// fakeBrowser scripts PerformSignup per platform and records every call.
type fakeBrowser struct {
	mu            sync.Mutex
	outcomes      map[string]entity.SignupOutcome
	signupErr     map[string]error
	createErr     error
	nextID        int
	created       []string
	closed        []string
	injectedOTPs  []string
	navigated     []string
	callLog       []string
	onSignup      func(platform string)
	open          map[string]bool
	captchaOnPage bool
	captchaErr    error
}

func newFakeBrowser() *fakeBrowser {
	return &fakeBrowser{
		outcomes:  make(map[string]entity.SignupOutcome),
		signupErr: make(map[string]error),
		open:      make(map[string]bool),
	}
}

func (b *fakeBrowser) CreateSession(ctx context.Context) (output.BrowserSession, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.createErr != nil {
		return nil, b.createErr
	}
	b.nextID++
	id := fmt.Sprintf("sess-%d", b.nextID)
	b.created = append(b.created, id)
	b.open[id] = true
	return &fakeSession{id: id}, nil
}

func (b *fakeBrowser) ConnectSession(ctx context.Context, id string) (output.BrowserSession, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.open[id] {
		return nil, fmt.Errorf("session %s is gone", id)
	}
	return &fakeSession{id: id}, nil
}

func (b *fakeBrowser) PerformSignup(ctx context.Context, s output.BrowserSession, spec entity.PlatformSpec, email, password string) (entity.SignupOutcome, error) {
	if b.onSignup != nil {
		b.onSignup(spec.Name)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.callLog = append(b.callLog, "signup:"+spec.Name)
	if err := b.signupErr[spec.Name]; err != nil {
		return "", err
	}
	if outcome, ok := b.outcomes[spec.Name]; ok {
		return outcome, nil
	}
	return entity.SignupOutcomeCompleted, nil
}

func (b *fakeBrowser) CheckCaptcha(ctx context.Context, s output.BrowserSession) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.callLog = append(b.callLog, "checkCaptcha:"+s.ID())
	return b.captchaOnPage, b.captchaErr
}

func (b *fakeBrowser) InjectOTP(ctx context.Context, s output.BrowserSession, code string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.injectedOTPs = append(b.injectedOTPs, code)
	b.callLog = append(b.callLog, "inject:"+code)
	return nil
}

func (b *fakeBrowser) Navigate(ctx context.Context, s output.BrowserSession, url string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.navigated = append(b.navigated, url)
	b.callLog = append(b.callLog, "navigate:"+url)
	return nil
}

func (b *fakeBrowser) Screenshot(ctx context.Context, s output.BrowserSession) (*entity.Screenshot, error) {
	return &entity.Screenshot{Data: []byte{0xff, 0xd8}, Format: "jpeg"}, nil
}

func (b *fakeBrowser) CloseSession(s output.BrowserSession) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = append(b.closed, s.ID())
	b.open[s.ID()] = false
}

// fakeTaskStore keeps rows in memory and records the status history per
// key so tests can assert monotonicity.
type fakeTaskStore struct {
	mu      sync.Mutex
	rows    map[string]*entity.SetupTask
	history map[string][]entity.TaskStatus
}

func newFakeTaskStore() *fakeTaskStore {
	return &fakeTaskStore{
		rows:    make(map[string]*entity.SetupTask),
		history: make(map[string][]entity.TaskStatus),
	}
}

func key(agentID, platform string) string { return agentID + "|" + platform }

func (s *fakeTaskStore) seed(agentID string, platforms ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range platforms {
		s.rows[key(agentID, p)] = &entity.SetupTask{
			ID:       "task-" + p,
			AgentID:  agentID,
			Platform: p,
			Status:   entity.TaskStatusPending,
		}
	}
}

func (s *fakeTaskStore) Get(ctx context.Context, agentID, platform string) (*entity.SetupTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[key(agentID, platform)]
	if !ok {
		return nil, output.ErrTaskNotFound
	}
	copied := *row
	return &copied, nil
}

func (s *fakeTaskStore) ListByAgent(ctx context.Context, agentID string) ([]entity.SetupTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var tasks []entity.SetupTask
	for _, row := range s.rows {
		if row.AgentID == agentID {
			tasks = append(tasks, *row)
		}
	}
	return tasks, nil
}

func (s *fakeTaskStore) Create(ctx context.Context, task *entity.SetupTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[key(task.AgentID, task.Platform)] = task
	return nil
}

func (s *fakeTaskStore) UpdateStatus(ctx context.Context, agentID, platform string, status entity.TaskStatus, fields output.TaskFields) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[key(agentID, platform)]
	if !ok {
		return output.ErrTaskNotFound
	}
	row.Status = status
	if fields.BrowserSessionID != nil {
		row.BrowserSessionID = *fields.BrowserSessionID
	}
	if fields.ErrorMessage != nil {
		row.ErrorMessage = *fields.ErrorMessage
	}
	if fields.Metadata != nil {
		row.Metadata = *fields.Metadata
	}
	row.UpdatedAt = time.Now()
	s.history[key(agentID, platform)] = append(s.history[key(agentID, platform)], status)
	return nil
}

func (s *fakeTaskStore) statusOf(agentID, platform string) entity.TaskStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows[key(agentID, platform)].Status
}

func (s *fakeTaskStore) errorOf(agentID, platform string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows[key(agentID, platform)].ErrorMessage
}

type fakeCredStore struct {
	mu    sync.Mutex
	creds map[string]*entity.Credential
}

func newFakeCredStore(agentID string, platforms ...string) *fakeCredStore {
	s := &fakeCredStore{creds: make(map[string]*entity.Credential)}
	for _, p := range platforms {
		s.creds[key(agentID, p)] = &entity.Credential{
			AgentID: agentID, Platform: p,
			Email: "agent@inbox.example", Password: "s3cret!",
		}
	}
	return s
}

func (s *fakeCredStore) Get(ctx context.Context, agentID, platform string) (*entity.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cred, ok := s.creds[key(agentID, platform)]
	if !ok {
		return nil, output.ErrCredentialNotFound
	}
	return cred, nil
}

type scriptedPoller struct {
	mu      sync.Mutex
	results map[string]*entity.VerificationResult
	errs    map[string]error
	calls   []string
}

func (p *scriptedPoller) WaitForVerification(ctx context.Context, mailboxID, platform string, maxAttempts int) (*entity.VerificationResult, error) {
	p.mu.Lock()
	p.calls = append(p.calls, platform)
	p.mu.Unlock()
	if err := p.errs[platform]; err != nil {
		return nil, err
	}
	if r := p.results[platform]; r != nil {
		return r, nil
	}
	return nil, &mailpoll.VerificationTimeoutError{Platform: platform, Attempts: maxAttempts}
}

type scriptedAdvisor struct {
	mu         sync.Mutex
	suggestion *entity.RecoverySuggestion
	err        error
	calls      int
}

func (a *scriptedAdvisor) Recover(ctx context.Context, spec entity.PlatformSpec, errorContext string) (*entity.RecoverySuggestion, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	if a.err != nil {
		return nil, a.err
	}
	if a.suggestion != nil {
		return a.suggestion, nil
	}
	return &entity.RecoverySuggestion{Action: "wait", Reasoning: "Provider is slow, retry later."}, nil
}

type eventRecorder struct {
	mu     sync.Mutex
	events []entity.StatusEvent
}

func (r *eventRecorder) record(e entity.StatusEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *eventRecorder) statuses(platform string) []entity.TaskStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.TaskStatus
	for _, e := range r.events {
		if e.Platform == platform {
			out = append(out, e.Status)
		}
	}
	return out
}

func (r *eventRecorder) find(platform string, status entity.TaskStatus) *entity.StatusEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.events {
		if r.events[i].Platform == platform && r.events[i].Status == status {
			return &r.events[i]
		}
	}
	return nil
}

// --- fixture ---------------------------------------------------------------

type fixture struct {
	uc      *UseCase
	browser *fakeBrowser
	tasks   *fakeTaskStore
	creds   *fakeCredStore
	poller  *scriptedPoller
	advisor *scriptedAdvisor
	events  *eventRecorder
}

const (
	agentID   = "agent-7"
	mailboxID = "mb-7"
	email     = "agent@inbox.example"
)

func newFixture(t *testing.T, specs ...entity.PlatformSpec) *fixture {
	t.Helper()
	if len(specs) == 0 {
		specs = []entity.PlatformSpec{{Name: "vercel", SignupURL: "https://vercel.com/signup"}}
	}

	browser := newFakeBrowser()
	tasks := newFakeTaskStore()
	poller := &scriptedPoller{
		results: make(map[string]*entity.VerificationResult),
		errs:    make(map[string]error),
	}
	advisor := &scriptedAdvisor{}
	events := &eventRecorder{}
	bus := memory.New()
	bus.Subscribe(events.record)

	platforms := make([]string, 0, len(specs))
	for _, s := range specs {
		platforms = append(platforms, s.Name)
	}
	tasks.seed(agentID, platforms...)
	creds := newFakeCredStore(agentID, platforms...)

	uc := New(
		Config{Platforms: specs, MaxPollAttempts: 3, SettleDelay: time.Millisecond},
		browser, poller, advisor, tasks, creds, bus, nopLogger{},
	)

	return &fixture{uc: uc, browser: browser, tasks: tasks, creds: creds, poller: poller, advisor: advisor, events: events}
}

// --- tests -----------------------------------------------------------------

func TestRunTask_CompletesWithOTP(t *testing.T) {
	f := newFixture(t)
	f.poller.results["vercel"] = &entity.VerificationResult{Type: entity.VerificationOTP, Value: "482913"}

	f.uc.RunTask(context.Background(), agentID, "vercel", email, mailboxID)

	assert.Equal(t, entity.TaskStatusCompleted, f.tasks.statusOf(agentID, "vercel"))
	assert.Equal(t, []string{"482913"}, f.browser.injectedOTPs)
	assert.Equal(t, []entity.TaskStatus{
		entity.TaskStatusInProgress,
		entity.TaskStatusInProgress, // session ready
		entity.TaskStatusAwaitingVerification,
		entity.TaskStatusCompleted,
	}, f.events.statuses("vercel"))
	assert.Equal(t, []string{"sess-1"}, f.browser.closed, "session must be released")
}

func TestRunTask_EndToEndWithRealPoller(t *testing.T) {
	// Mailbox yields the code on the third listing, wired through the
	// real poller.
	f := newFixture(t)

	mailbox := &pollingMailbox{codeOnAttempt: 3}
	f.uc.poller = mailpoll.New(mailbox, nopLogger{}).WithDelay(0)

	f.uc.RunTask(context.Background(), agentID, "vercel", email, mailboxID)

	assert.Equal(t, entity.TaskStatusCompleted, f.tasks.statusOf(agentID, "vercel"))
	assert.Equal(t, 3, mailbox.listCalls)
	assert.Equal(t, []string{"614208"}, f.browser.injectedOTPs)
}

type pollingMailbox struct {
	mu            sync.Mutex
	listCalls     int
	codeOnAttempt int
}

func (m *pollingMailbox) ListMessages(ctx context.Context, mailboxID string) ([]entity.MailMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	if m.listCalls < m.codeOnAttempt {
		return nil, nil
	}
	return []entity.MailMessage{{ID: "m1", From: "noreply@vercel.com", Subject: "Verify your email"}}, nil
}

func (m *pollingMailbox) GetMessage(ctx context.Context, mailboxID, id string) (*entity.MailBody, error) {
	return &entity.MailBody{Text: "Your verification code is 614208"}, nil
}

func TestRunTask_LinkTakesPrecedence_OTPInjectedFirst(t *testing.T) {
	f := newFixture(t)
	f.poller.results["vercel"] = &entity.VerificationResult{
		Type:  entity.VerificationLink,
		Value: "https://vercel.com/confirm?t=abc",
		OTP:   "482913",
	}

	f.uc.RunTask(context.Background(), agentID, "vercel", email, mailboxID)

	assert.Equal(t, entity.TaskStatusCompleted, f.tasks.statusOf(agentID, "vercel"))
	require.Len(t, f.browser.callLog, 3)
	assert.Equal(t, "signup:vercel", f.browser.callLog[0])
	assert.Equal(t, "inject:482913", f.browser.callLog[1])
	assert.Equal(t, "navigate:https://vercel.com/confirm?t=abc", f.browser.callLog[2])
}

func TestRunTask_CaptchaLeavesSessionOpen(t *testing.T) {
	f := newFixture(t)
	f.browser.outcomes["vercel"] = entity.SignupOutcomeCaptcha

	f.uc.RunTask(context.Background(), agentID, "vercel", email, mailboxID)

	assert.Equal(t, entity.TaskStatusNeedsHuman, f.tasks.statusOf(agentID, "vercel"))
	assert.Empty(t, f.browser.closed, "needs_human must keep the session open for the operator")

	event := f.events.find("vercel", entity.TaskStatusNeedsHuman)
	require.NotNil(t, event)
	assert.Equal(t, "sess-1", event.BrowserSessionID)
	assert.Equal(t, "https://live.example/sess-1", event.LiveViewURL)
	assert.Zero(t, f.advisor.calls, "captcha is not an error")
}

func TestRunTask_VerificationTimeoutFailsWithPlatformAndAttempts(t *testing.T) {
	f := newFixture(t)
	// poller scripted to time out by default

	f.uc.RunTask(context.Background(), agentID, "vercel", email, mailboxID)

	assert.Equal(t, entity.TaskStatusFailed, f.tasks.statusOf(agentID, "vercel"))
	errMsg := f.tasks.errorOf(agentID, "vercel")
	assert.Contains(t, errMsg, "vercel")
	assert.Contains(t, errMsg, "3 attempts")
	assert.Equal(t, 1, f.advisor.calls, "timeout routes through recovery")
	assert.Equal(t, []string{"sess-1"}, f.browser.closed)
}

func TestRunTask_RecoveryRationalePublishedBeforeFailed(t *testing.T) {
	f := newFixture(t)
	f.browser.signupErr["vercel"] = errors.New("element not found: #signup-button")
	f.advisor.suggestion = &entity.RecoverySuggestion{
		Action: "click", Selector: "#join", Reasoning: "The signup button was renamed to Join.",
	}

	f.uc.RunTask(context.Background(), agentID, "vercel", email, mailboxID)

	statuses := f.events.statuses("vercel")
	require.GreaterOrEqual(t, len(statuses), 2)
	assert.Equal(t, entity.TaskStatusInProgress, statuses[len(statuses)-2], "rationale is an informational in_progress event")
	assert.Equal(t, entity.TaskStatusFailed, statuses[len(statuses)-1])

	event := f.events.find("vercel", entity.TaskStatusFailed)
	require.NotNil(t, event)
	assert.Contains(t, event.Message, "element not found", "advisor must not mask the original error")
	assert.Contains(t, f.tasks.errorOf(agentID, "vercel"), "element not found")
}

func TestRunTask_AdvisorFailureSwallowed(t *testing.T) {
	f := newFixture(t)
	f.browser.signupErr["vercel"] = errors.New("page crashed")
	f.advisor.err = errors.New("model unavailable")

	f.uc.RunTask(context.Background(), agentID, "vercel", email, mailboxID)

	assert.Equal(t, entity.TaskStatusFailed, f.tasks.statusOf(agentID, "vercel"))
	assert.Contains(t, f.tasks.errorOf(agentID, "vercel"), "page crashed")
}

func TestRunTask_MissingCredentialSkipsBrowser(t *testing.T) {
	f := newFixture(t)
	f.creds.creds = map[string]*entity.Credential{}

	f.uc.RunTask(context.Background(), agentID, "vercel", email, mailboxID)

	assert.Equal(t, entity.TaskStatusFailed, f.tasks.statusOf(agentID, "vercel"))
	assert.Equal(t, "credential not found", f.tasks.errorOf(agentID, "vercel"))
	assert.Empty(t, f.browser.created, "no browser call without a credential")
	assert.Zero(t, f.advisor.calls)
}

func TestRunTask_SessionCreationFailureFailsWithoutRecovery(t *testing.T) {
	f := newFixture(t)
	f.browser.createErr = errors.New("provider unavailable")

	f.uc.RunTask(context.Background(), agentID, "vercel", email, mailboxID)

	assert.Equal(t, entity.TaskStatusFailed, f.tasks.statusOf(agentID, "vercel"))
	assert.Contains(t, f.tasks.errorOf(agentID, "vercel"), "provider unavailable")
	assert.Zero(t, f.advisor.calls, "no page to screenshot, no recovery attempt")
}

func TestRunTask_CompletedTaskIsNoOp(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.tasks.UpdateStatus(context.Background(), agentID, "vercel",
		entity.TaskStatusInProgress, output.TaskFields{}))
	require.NoError(t, f.tasks.UpdateStatus(context.Background(), agentID, "vercel",
		entity.TaskStatusCompleted, output.TaskFields{}))

	f.uc.RunTask(context.Background(), agentID, "vercel", email, mailboxID)

	assert.Empty(t, f.browser.created)
	assert.Empty(t, f.events.statuses("vercel"))
	assert.Equal(t, entity.TaskStatusCompleted, f.tasks.statusOf(agentID, "vercel"))
}

func TestRunTask_StatusHistoryIsMonotonic(t *testing.T) {
	f := newFixture(t)
	f.poller.results["vercel"] = &entity.VerificationResult{Type: entity.VerificationOTP, Value: "1234"}

	f.uc.RunTask(context.Background(), agentID, "vercel", email, mailboxID)

	history := f.tasks.history[key(agentID, "vercel")]
	require.NotEmpty(t, history)
	prev := entity.TaskStatusPending
	for _, status := range history {
		if status != prev {
			assert.True(t, prev.CanTransition(status), "illegal transition %s -> %s", prev, status)
		}
		prev = status
	}
}

func TestRunForAgent_PartitionsByCaptchaLikelihood(t *testing.T) {
	specs := []entity.PlatformSpec{
		{Name: "vercel"},
		{Name: "netlify"},
		{Name: "railway"},
		{Name: "sentry", CaptchaLikely: true},
		{Name: "posthog", CaptchaLikely: true},
	}
	f := newFixture(t, specs...)
	for _, s := range specs {
		f.poller.results[s.Name] = &entity.VerificationResult{Type: entity.VerificationOTP, Value: "1234"}
	}

	var mu sync.Mutex
	started := make(chan struct{})
	parallelEntered := 0
	active := 0
	maxParallelActive := 0
	maxSequentialActive := 0
	var sequentialOrder []string

	f.browser.onSignup = func(platform string) {
		captchaLikely := platform == "sentry" || platform == "posthog"

		mu.Lock()
		if captchaLikely {
			active++
			if active > maxSequentialActive {
				maxSequentialActive = active
			}
			sequentialOrder = append(sequentialOrder, platform)
			mu.Unlock()
			time.Sleep(10 * time.Millisecond)
			mu.Lock()
			active--
			mu.Unlock()
			return
		}

		parallelEntered++
		if parallelEntered == 3 {
			close(started)
		}
		if parallelEntered > maxParallelActive {
			maxParallelActive = parallelEntered
		}
		mu.Unlock()

		// Hold until all three parallel signups have entered, proving
		// their execution windows overlap.
		select {
		case <-started:
		case <-time.After(2 * time.Second):
			t.Error("parallel tasks never overlapped")
		}
	}

	require.NoError(t, f.uc.RunForAgent(context.Background(), agentID, email, mailboxID))

	assert.Equal(t, 3, maxParallelActive, "all captcha-unlikely tasks should run concurrently")
	assert.LessOrEqual(t, maxSequentialActive, 1, "captcha-likely tasks must not overlap")
	assert.Equal(t, []string{"sentry", "posthog"}, sequentialOrder, "sequential subset keeps configured order")

	for _, s := range specs {
		assert.Equal(t, entity.TaskStatusCompleted, f.tasks.statusOf(agentID, s.Name))
	}
}

func TestRunForAgent_OneFailureDoesNotBlockOthers(t *testing.T) {
	specs := []entity.PlatformSpec{
		{Name: "vercel"},
		{Name: "netlify"},
		{Name: "sentry", CaptchaLikely: true},
	}
	f := newFixture(t, specs...)
	f.browser.signupErr["vercel"] = errors.New("boom")
	f.poller.results["netlify"] = &entity.VerificationResult{Type: entity.VerificationOTP, Value: "1234"}
	f.poller.results["sentry"] = &entity.VerificationResult{Type: entity.VerificationOTP, Value: "5678"}

	require.NoError(t, f.uc.RunForAgent(context.Background(), agentID, email, mailboxID))

	assert.Equal(t, entity.TaskStatusFailed, f.tasks.statusOf(agentID, "vercel"))
	assert.Equal(t, entity.TaskStatusCompleted, f.tasks.statusOf(agentID, "netlify"))
	assert.Equal(t, entity.TaskStatusCompleted, f.tasks.statusOf(agentID, "sentry"))
}

func TestRunForAgent_NoPlatforms(t *testing.T) {
	f := newFixture(t)
	f.uc.platforms = nil

	err := f.uc.RunForAgent(context.Background(), agentID, email, mailboxID)
	require.Error(t, err)
}

func TestResumeTask_ContinuesFromNeedsHuman(t *testing.T) {
	f := newFixture(t)
	f.browser.outcomes["vercel"] = entity.SignupOutcomeCaptcha

	f.uc.RunTask(context.Background(), agentID, "vercel", email, mailboxID)
	require.Equal(t, entity.TaskStatusNeedsHuman, f.tasks.statusOf(agentID, "vercel"))

	// Operator solved the challenge on the live page.
	f.poller.results["vercel"] = &entity.VerificationResult{Type: entity.VerificationOTP, Value: "9999"}

	require.NoError(t, f.uc.ResumeTask(context.Background(), agentID, "vercel", mailboxID))

	assert.Equal(t, entity.TaskStatusCompleted, f.tasks.statusOf(agentID, "vercel"))
	assert.Equal(t, []string{"sess-1"}, f.browser.closed, "session released after resume completes")

	// The signup flow must not re-run; resume rejoins at verification.
	signups := 0
	for _, call := range f.browser.callLog {
		if call == "signup:vercel" {
			signups++
		}
	}
	assert.Equal(t, 1, signups)
}

func TestResumeTask_CaptchaStillPresentParksAgain(t *testing.T) {
	f := newFixture(t)
	f.browser.outcomes["vercel"] = entity.SignupOutcomeCaptcha
	f.uc.RunTask(context.Background(), agentID, "vercel", email, mailboxID)

	f.browser.captchaOnPage = true

	require.NoError(t, f.uc.ResumeTask(context.Background(), agentID, "vercel", mailboxID))

	assert.Equal(t, entity.TaskStatusNeedsHuman, f.tasks.statusOf(agentID, "vercel"))
	assert.Empty(t, f.browser.closed, "session must stay open for the operator")
}

func TestResumeTask_RejectsWrongStatus(t *testing.T) {
	f := newFixture(t)

	err := f.uc.ResumeTask(context.Background(), agentID, "vercel", mailboxID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pending")
}

func TestResumeTask_SessionGoneFailsTask(t *testing.T) {
	f := newFixture(t)
	f.browser.outcomes["vercel"] = entity.SignupOutcomeCaptcha
	f.uc.RunTask(context.Background(), agentID, "vercel", email, mailboxID)

	// Simulate the remote provider reaping the idle session.
	f.browser.mu.Lock()
	f.browser.open["sess-1"] = false
	f.browser.mu.Unlock()

	err := f.uc.ResumeTask(context.Background(), agentID, "vercel", mailboxID)
	require.Error(t, err)
	assert.Equal(t, entity.TaskStatusFailed, f.tasks.statusOf(agentID, "vercel"))
}
