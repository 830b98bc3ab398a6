package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ticketops/ticket-notifier/internal/domain"
)

type fakeTicketRepo struct {
	mu      sync.Mutex
	tickets []domain.Ticket
	marked  map[string]time.Time
	listErr error
	markErr error
}

func newFakeTicketRepo(tickets ...domain.Ticket) *fakeTicketRepo {
	return &fakeTicketRepo{tickets: tickets, marked: make(map[string]time.Time)}
}

func (f *fakeTicketRepo) List(ctx context.Context) ([]domain.Ticket, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]domain.Ticket{}, f.tickets...), nil
}

func (f *fakeTicketRepo) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	for i := range f.tickets {
		if f.tickets[i].ID == id {
			return &f.tickets[i], nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeTicketRepo) MarkWarningSent(ctx context.Context, id string, at time.Time) (bool, error) {
	if f.markErr != nil {
		return false, f.markErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.marked[id]; ok {
		return false, nil
	}
	f.marked[id] = at
	return true, nil
}

type fakeSLAConfigRepo struct {
	cfg *domain.SLAConfig
	err error
}

func (f *fakeSLAConfigRepo) Load(ctx context.Context) (*domain.SLAConfig, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.cfg == nil {
		return &domain.SLAConfig{}, nil
	}
	return f.cfg, nil
}

type fakeDepartmentRepo struct {
	departments map[string]*domain.Department
}

func (f *fakeDepartmentRepo) GetByID(ctx context.Context, id string) (*domain.Department, error) {
	if dept, ok := f.departments[id]; ok {
		return dept, nil
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeDepartmentRepo) ListActive(ctx context.Context) ([]domain.Department, error) {
	var out []domain.Department
	for _, dept := range f.departments {
		out = append(out, *dept)
	}
	return out, nil
}

type fakeUserRepo struct {
	users map[string]string // id -> email
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if email, ok := f.users[id]; ok {
		return &domain.User{ID: id, Email: email}, nil
	}
	return nil, pgx.ErrNoRows
}

type fakeResolver struct {
	id    string
	err   error
	calls int
}

func (f *fakeResolver) Resolve(ctx context.Context, senderAddress string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.id, nil
}

type sentMail struct {
	SenderID string
	Subject  string
	HTMLBody string
	To       []string
	CC       []string
}

type fakeSender struct {
	mu      sync.Mutex
	sent    []sentMail
	errs    map[string]error // subject substring -> error
	sendErr error
}

func (f *fakeSender) SendMail(ctx context.Context, senderID, subject, htmlBody string, to, cc []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	for substr, err := range f.errs {
		if substr != "" && strings.Contains(subject, substr) {
			return err
		}
	}
	f.sent = append(f.sent, sentMail{SenderID: senderID, Subject: subject, HTMLBody: htmlBody, To: to, CC: cc})
	return nil
}
