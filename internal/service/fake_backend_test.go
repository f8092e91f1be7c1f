package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"doctor-portal/common/caselogic"
	"doctor-portal/internal/apiclient"
	"doctor-portal/internal/models"
	"doctor-portal/internal/repository"
	"doctor-portal/internal/session"
)

// fakeBackend 内存后端，仅用于单元测试
type fakeBackend struct {
	mu sync.Mutex

	cases      map[string]models.Case
	pending    []models.Case
	mine       []models.Case
	history    []models.Case
	historyPgs int
	claimErr   error
	// raceOwner 非空时模拟并发认领：另一位医生先认领成功，本次认领返回 claimErr
	raceOwner  string
	submitErr  error
	messages   []models.ChatMessage
	unread     models.UnreadCounts
	unreadErr  error
	stats      models.DoctorDashboardStats
	metricsErr error

	claims      int
	submitted   []models.SubmitDiagnosisRequest
	sent        []models.SendMessageRequest
	marked      []string
	unreadCalls int
}

func newFakeBackend(cases ...models.Case) *fakeBackend {
	f := &fakeBackend{cases: make(map[string]models.Case)}
	for _, c := range cases {
		f.cases[c.ID] = c
	}
	return f
}

func (f *fakeBackend) page(data []models.Case, page, pageSize int) models.Paginated[models.Case] {
	return models.Paginated[models.Case]{Data: data, Total: len(data), Page: page, PageSize: pageSize, TotalPages: 1}
}

func (f *fakeBackend) PendingCases(ctx context.Context, cred apiclient.Credentials, page, pageSize int) (models.Paginated[models.Case], error) {
	return f.page(f.pending, page, pageSize), nil
}

func (f *fakeBackend) MyCases(ctx context.Context, cred apiclient.Credentials, params models.CaseListParams) (models.Paginated[models.Case], error) {
	return f.page(f.mine, params.Page, params.PageSize), nil
}

func (f *fakeBackend) CompletedCases(ctx context.Context, cred apiclient.Credentials, page, pageSize int) (models.Paginated[models.Case], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pages := f.historyPgs
	if pages == 0 {
		pages = 1
	}
	if page > pages {
		return models.Paginated[models.Case]{Page: page, PageSize: pageSize, TotalPages: pages}, nil
	}
	return models.Paginated[models.Case]{Data: f.history, Total: len(f.history) * pages, Page: page, PageSize: pageSize, TotalPages: pages}, nil
}

func (f *fakeBackend) GetCase(ctx context.Context, cred apiclient.Credentials, caseID string) (models.Case, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.cases[caseID]
	if !ok {
		return models.Case{}, fmt.Errorf("get case %s: %w", caseID, apiclient.ErrNotFound)
	}
	return c, nil
}

func (f *fakeBackend) ClaimCase(ctx context.Context, cred apiclient.Credentials, caseID string) (models.Case, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.claims++
	if f.raceOwner != "" {
		c := f.cases[caseID]
		c.DoctorID = f.raceOwner
		c.Status = caselogic.StatusInReview
		f.cases[caseID] = c
	}
	if f.claimErr != nil {
		return models.Case{}, f.claimErr
	}
	c := f.cases[caseID]
	c.DoctorID = "doc-1"
	c.Status = caselogic.StatusInReview
	f.cases[caseID] = c
	return c, nil
}

func (f *fakeBackend) SubmitDiagnosis(ctx context.Context, cred apiclient.Credentials, req models.SubmitDiagnosisRequest) (models.Case, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = append(f.submitted, req)
	if f.submitErr != nil {
		return models.Case{}, f.submitErr
	}
	c := f.cases[req.CaseID]
	c.Diagnosis = req.Diagnosis
	if c.DiagnosisSubmittedAt == nil {
		c.DiagnosisSubmittedAt = models.TimestampPtr(time.Now())
	}
	f.cases[req.CaseID] = c
	return c, nil
}

func (f *fakeBackend) DashboardStats(ctx context.Context, cred apiclient.Credentials) (models.DoctorDashboardStats, error) {
	return f.stats, nil
}

func (f *fakeBackend) SLAMetrics(ctx context.Context, cred apiclient.Credentials) (models.SLAMetrics, error) {
	if f.metricsErr != nil {
		return models.SLAMetrics{}, f.metricsErr
	}
	return models.SLAMetrics{TotalCases: 10, WithinSLA: 8}, nil
}

func (f *fakeBackend) Messages(ctx context.Context, cred apiclient.Credentials, caseID string, limit int) (models.ChatMessagesResponse, error) {
	return models.ChatMessagesResponse{CaseID: caseID, Messages: f.messages}, nil
}

func (f *fakeBackend) SendMessage(ctx context.Context, cred apiclient.Credentials, req models.SendMessageRequest) (models.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, req)
	return models.ChatMessage{ID: "m-new", CaseID: req.CaseID, SenderID: "doc-1", Message: req.Message}, nil
}

func (f *fakeBackend) MarkRead(ctx context.Context, cred apiclient.Credentials, caseID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.marked = append(f.marked, caseID)
	return nil
}

func (f *fakeBackend) UnreadCounts(ctx context.Context, cred apiclient.Credentials) (models.UnreadCounts, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unreadCalls++
	return f.unread, f.unreadErr
}

func (f *fakeBackend) unreadCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.unreadCalls
}

// fakeAudit 记录审计事件
type fakeAudit struct {
	mu     sync.Mutex
	events []repository.AuditEvent
}

func (a *fakeAudit) Record(ctx context.Context, e *repository.AuditEvent) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, *e)
	return nil
}

// fakeResolver 会话解析
type fakeResolver struct {
	mu       sync.Mutex
	sessions map[string]*session.Session
}

func newFakeResolver(sessions ...*session.Session) *fakeResolver {
	r := &fakeResolver{sessions: make(map[string]*session.Session)}
	for _, s := range sessions {
		r.sessions[s.ID] = s
	}
	return r
}

func (r *fakeResolver) Resolve(ctx context.Context, id string) (*session.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, session.ErrNotFound
	}
	return s, nil
}

func (r *fakeResolver) remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

func testSession() *session.Session {
	return &session.Session{
		ID:               "s-1",
		DoctorID:         "doc-1",
		Token:            "tok",
		BackendSessionID: "b-1",
		ExpiresAt:        time.Now().Add(time.Hour),
	}
}
