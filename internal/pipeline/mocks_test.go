package pipeline

import (
	"context"

	"github.com/paulgarghe23/zepp-sleep-llm-analysis/internal/domain"
)

type mockAuthenticator struct {
	cred  domain.Credential
	err   error
	calls int
}

func (m *mockAuthenticator) Login(ctx context.Context, email, password string) (domain.Credential, error) {
	m.calls++
	if m.err != nil {
		return domain.Credential{}, m.err
	}
	return m.cred, nil
}

type mockFetcher struct {
	records []domain.SleepRecord
	err     error
	calls   int
	gotCred domain.Credential
	gotFrom string
	gotTo   string
}

func (m *mockFetcher) BandData(ctx context.Context, cred domain.Credential, from, to string) ([]domain.SleepRecord, error) {
	m.calls++
	m.gotCred = cred
	m.gotFrom = from
	m.gotTo = to
	if m.err != nil {
		return nil, m.err
	}
	return m.records, nil
}

type mockNarrator struct {
	narrative string
	err       error
	calls     int
	gotLabel  string
}

func (m *mockNarrator) WeeklyReport(ctx context.Context, records []domain.SleepRecord, windowLabel string) (string, error) {
	m.calls++
	m.gotLabel = windowLabel
	if m.err != nil {
		return "", m.err
	}
	return m.narrative, nil
}

type mockSender struct {
	err            error
	calls          int
	gotSubject     string
	gotBody        string
	gotAttachments []string
}

func (m *mockSender) Send(subject, body string, attachments []string) error {
	m.calls++
	m.gotSubject = subject
	m.gotBody = body
	m.gotAttachments = attachments
	return m.err
}
