// Package export filters requests and delivers them as a spreadsheet, either
// as a download or as an email attachment. Files written for email are
// removed by a delayed cleanup job once the message is sent.
package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/garnizeh/taxi/internal/report"
	"github.com/garnizeh/taxi/pkg/models"
)

var ErrInvalidFilter = errors.New("filtro inválido")

// Filters narrows the exported requests. Empty fields match everything and
// Status "all" matches any status. Dates are inclusive YYYY-MM-DD bounds.
type Filters struct {
	Status   string `json:"status"`
	DateFrom string `json:"dateFrom"`
	DateTo   string `json:"dateTo"`
}

func (f Filters) Validate() error {
	if f.Status != "" && f.Status != "all" && !models.RequestStatus(f.Status).Valid() {
		return fmt.Errorf("%w: status %q", ErrInvalidFilter, f.Status)
	}
	from, err := parseBound("dateFrom", f.DateFrom)
	if err != nil {
		return err
	}
	to, err := parseBound("dateTo", f.DateTo)
	if err != nil {
		return err
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return fmt.Errorf("%w: dateTo antes de dateFrom", ErrInvalidFilter)
	}
	return nil
}

func parseBound(name, v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation(models.DateLayout, v, models.Location)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s %q", ErrInvalidFilter, name, v)
	}
	return t, nil
}

// Apply returns the requests matching f, keeping their order. f must have
// passed Validate. Requests whose date does not parse never match a date
// bound.
func (f Filters) Apply(reqs []models.Request) []models.Request {
	from, _ := parseBound("dateFrom", f.DateFrom)
	to, _ := parseBound("dateTo", f.DateTo)

	out := make([]models.Request, 0, len(reqs))
	for _, r := range reqs {
		if f.Status != "" && f.Status != "all" && string(r.Status) != f.Status {
			continue
		}
		if !from.IsZero() || !to.IsZero() {
			d, err := time.ParseInLocation(models.DateLayout, r.Date, models.Location)
			if err != nil {
				continue
			}
			if (!from.IsZero() && d.Before(from)) || (!to.IsZero() && d.After(to)) {
				continue
			}
		}
		out = append(out, r)
	}
	return out
}

type RequestLister interface {
	ListRequests(ctx context.Context) ([]models.Request, error)
}

type ReportSender interface {
	SendReport(ctx context.Context, to, path string) (string, error)
}

// Scheduler queues delayed background jobs.
type Scheduler interface {
	EnqueueAt(ctx context.Context, typ string, payload any, at time.Time, priority int, maxAttempts int) (int64, error)
}

type Service struct {
	requests     RequestLister
	builder      *report.Builder
	sender       ReportSender
	scheduler    Scheduler
	cleanupDelay time.Duration
	clock        func() time.Time
	logger       *slog.Logger
}

type Option func(*Service)

func WithCleanupDelay(d time.Duration) Option {
	return func(s *Service) { s.cleanupDelay = d }
}

func WithClock(clock func() time.Time) Option {
	return func(s *Service) { s.clock = clock }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func NewService(requests RequestLister, builder *report.Builder, sender ReportSender, scheduler Scheduler, opts ...Option) *Service {
	s := &Service{
		requests:     requests,
		builder:      builder,
		sender:       sender,
		scheduler:    scheduler,
		cleanupDelay: 5 * time.Second,
		clock:        time.Now,
		logger:       slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Filename is the download name for a report generated at now.
func Filename(now time.Time) string {
	return fmt.Sprintf("solicitacoes_taxi_%s.xlsx", now.In(models.Location).Format(models.DateLayout))
}

func (s *Service) filtered(ctx context.Context, f Filters) ([]models.Request, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	reqs, err := s.requests.ListRequests(ctx)
	if err != nil {
		return nil, err
	}
	return f.Apply(reqs), nil
}

type Download struct {
	Filename string
	Data     []byte
	Count    int
}

// Download renders the filtered requests in memory.
func (s *Service) Download(ctx context.Context, f Filters) (*Download, error) {
	reqs, err := s.filtered(ctx, f)
	if err != nil {
		return nil, err
	}
	data, err := s.builder.Bytes(reqs)
	if err != nil {
		return nil, err
	}
	return &Download{Filename: Filename(s.clock()), Data: data, Count: len(reqs)}, nil
}

type EmailResult struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	RecordsCount int    `json:"recordsCount"`
	MessageID    string `json:"messageId"`
}

// EmailReport writes the filtered requests to a file, mails it to the given
// address and schedules the file for removal after the cleanup delay. The
// file is removed right away if sending fails.
func (s *Service) EmailReport(ctx context.Context, to string, f Filters) (*EmailResult, error) {
	reqs, err := s.filtered(ctx, f)
	if err != nil {
		return nil, err
	}

	now := s.clock()
	name := fmt.Sprintf("solicitacoes_taxi_%s_%s.xlsx", now.In(models.Location).Format(models.DateLayout), uuid.NewString()[:8])
	path, err := s.builder.WriteFile(reqs, name)
	if err != nil {
		return nil, err
	}

	id, err := s.sender.SendReport(ctx, to, path)
	if err != nil {
		s.remove(path)
		return nil, err
	}

	s.scheduleCleanup(ctx, path, now.Add(s.cleanupDelay))

	return &EmailResult{
		Success:      true,
		Message:      fmt.Sprintf("Relatório enviado com sucesso para %s", to),
		RecordsCount: len(reqs),
		MessageID:    id,
	}, nil
}

func (s *Service) scheduleCleanup(ctx context.Context, path string, at time.Time) {
	if s.scheduler == nil {
		s.remove(path)
		return
	}
	if _, err := s.scheduler.EnqueueAt(ctx, CleanupJobType, CleanupPayload{Path: path}, at, 50, 3); err != nil {
		s.logger.Error("schedule export cleanup, removing now", "path", path, "err", err)
		s.remove(path)
	}
}

func (s *Service) remove(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("remove export file", "path", path, "err", err)
	}
}
