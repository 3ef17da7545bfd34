// Package mailer sends report emails over SMTP.
//
// Without credentials the Mailer is disabled and every send fails with
// ErrNotConfigured before any connection is attempted. An authentication
// failure rebuilds the dialer once and retries the send once.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/textproto"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/gomail.v2"

	"github.com/garnizeh/taxi/internal/config"
	"github.com/garnizeh/taxi/pkg/models"
)

const (
	gmailHost   = "smtp.gmail.com"
	defaultPort = 587
	defaultFrom = "sistema@taxi.com"

	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	appPasswordHint = "Para Gmail, você precisa usar uma SENHA DE APLICATIVO, não sua senha normal. Veja: https://support.google.com/accounts/answer/185833"
)

var (
	ErrNotConfigured = errors.New("email não configurado: defina EMAIL_USER e EMAIL_PASS")
	ErrAuthFailed    = errors.New("erro de autenticação de email. " + appPasswordHint)
)

// Dialer is the part of *gomail.Dialer the Mailer uses.
type Dialer interface {
	Dial() (gomail.SendCloser, error)
	DialAndSend(m ...*gomail.Message) error
}

// DialerFactory builds a Dialer for the resolved server settings.
type DialerFactory func(s Server) Dialer

// Server is the SMTP endpoint and account a Mailer talks to.
type Server struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	password string
}

func gomailDialer(s Server) Dialer {
	return gomail.NewDialer(s.Host, s.Port, s.User, s.password)
}

type Mailer struct {
	server     Server
	from       string
	enabled    bool
	newDialer  DialerFactory
	clock      func() time.Time
	logger     *slog.Logger
	mu         sync.Mutex
	dialer     Dialer
	messageDom string
}

type Option func(*Mailer)

// WithDialerFactory replaces how dialers are built.
func WithDialerFactory(f DialerFactory) Option {
	return func(m *Mailer) { m.newDialer = f }
}

func WithClock(clock func() time.Time) Option {
	return func(m *Mailer) { m.clock = clock }
}

func WithLogger(logger *slog.Logger) Option {
	return func(m *Mailer) { m.logger = logger }
}

// New builds a Mailer from cfg. Missing user or password yields a disabled
// Mailer; no dialer is created for it.
func New(cfg config.MailConfig, opts ...Option) *Mailer {
	m := &Mailer{
		server:    ResolveServer(cfg),
		from:      cfg.From,
		enabled:   cfg.User != "" && cfg.Password != "",
		newDialer: gomailDialer,
		clock:     time.Now,
		logger:    slog.Default(),
	}
	for _, o := range opts {
		o(m)
	}

	if m.from == "" {
		m.from = cfg.User
	}
	if m.from == "" {
		m.from = defaultFrom
	}
	m.messageDom = m.server.Host
	if m.messageDom == "" {
		m.messageDom = "taxi.local"
	}

	if !m.enabled {
		m.logger.Warn("email not configured, sending is disabled")
		return m
	}
	m.dialer = m.newDialer(m.server)
	return m
}

// ResolveServer picks the SMTP server for cfg. Gmail accounts always use the
// Gmail server; other accounts use the configured host.
func ResolveServer(cfg config.MailConfig) Server {
	s := Server{Host: cfg.Host, Port: cfg.Port, User: cfg.User, password: cfg.Password}
	if strings.Contains(strings.ToLower(cfg.User), "@gmail.com") || s.Host == "" {
		s.Host = gmailHost
	}
	if s.Port == 0 {
		s.Port = defaultPort
	}
	return s
}

func (m *Mailer) Enabled() bool { return m.enabled }

func (m *Mailer) Server() Server { return m.server }

func (m *Mailer) currentDialer() Dialer {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dialer
}

// rebuild replaces the dialer, the equivalent of reconnecting from scratch.
func (m *Mailer) rebuild() Dialer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dialer = m.newDialer(m.server)
	return m.dialer
}

// IsAuthError reports whether err is an SMTP authentication failure.
func IsAuthError(err error) bool {
	var tpErr *textproto.Error
	if errors.As(err, &tpErr) {
		switch tpErr.Code {
		case 530, 534, 535:
			return true
		}
	}
	return false
}

func (m *Mailer) newMessage(to, subject, body string) (*gomail.Message, string) {
	id := fmt.Sprintf("<%s@%s>", uuid.NewString(), m.messageDom)

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetHeader("Message-ID", id)
	msg.SetDateHeader("Date", m.clock())
	msg.SetBody("text/html", body)
	return msg, id
}

// send delivers msg, retrying once with a fresh dialer on auth failure.
func (m *Mailer) send(ctx context.Context, msg *gomail.Message) error {
	if !m.enabled {
		return ErrNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	err := m.currentDialer().DialAndSend(msg)
	if err == nil {
		return nil
	}
	if !IsAuthError(err) {
		return fmt.Errorf("send email: %w", err)
	}

	m.logger.Warn("smtp authentication failed, rebuilding dialer", "host", m.server.Host, "err", err)
	if err := ctx.Err(); err != nil {
		return err
	}
	if retryErr := m.rebuild().DialAndSend(msg); retryErr != nil {
		m.logger.Error("smtp retry failed", "host", m.server.Host, "err", retryErr)
		return fmt.Errorf("%w: %w", ErrAuthFailed, retryErr)
	}
	m.logger.Info("email sent on second attempt")
	return nil
}

// SendReport emails the spreadsheet at path to the given address and returns
// the Message-ID of the sent message.
func (m *Mailer) SendReport(ctx context.Context, to, path string) (string, error) {
	now := m.clock().In(models.Location)
	subject := "Relatório de Solicitações de Táxi - " + now.Format("02/01/2006")

	body, err := renderBody(reportTemplate, now)
	if err != nil {
		return "", err
	}

	msg, id := m.newMessage(to, subject, body)
	msg.Attach(path,
		gomail.Rename(filepath.Base(path)),
		gomail.SetHeader(map[string][]string{"Content-Type": {xlsxContentType}}),
	)

	if err := m.send(ctx, msg); err != nil {
		return "", err
	}
	m.logger.Info("report email sent", "to", to, "message_id", id, "attachment", filepath.Base(path))
	return id, nil
}

// SendTest sends a short message confirming the configuration works.
func (m *Mailer) SendTest(ctx context.Context, to string) (string, error) {
	now := m.clock().In(models.Location)
	body, err := renderBody(testTemplate, now)
	if err != nil {
		return "", err
	}

	msg, id := m.newMessage(to, "Teste - Sistema de Solicitação de Táxi", body)
	if err := m.send(ctx, msg); err != nil {
		return "", err
	}
	m.logger.Info("test email sent", "to", to, "message_id", id)
	return id, nil
}

// VerifyResult describes whether the configured server accepts the
// credentials.
type VerifyResult struct {
	Success    bool    `json:"success"`
	Message    string  `json:"message"`
	Error      string  `json:"error,omitempty"`
	Suggestion string  `json:"suggestion,omitempty"`
	Config     *Server `json:"config,omitempty"`
}

// Verify connects and authenticates without sending anything.
func (m *Mailer) Verify(ctx context.Context) VerifyResult {
	if !m.enabled {
		return VerifyResult{
			Message:    "Email não configurado",
			Error:      "Variáveis EMAIL_USER e EMAIL_PASS não encontradas no arquivo .env",
			Suggestion: "Configure as variáveis de ambiente EMAIL_USER e EMAIL_PASS",
		}
	}
	if err := ctx.Err(); err != nil {
		return VerifyResult{Message: "Erro na configuração de email", Error: err.Error()}
	}

	sc, err := m.currentDialer().Dial()
	if err != nil {
		suggestion := "Verifique as configurações SMTP"
		if IsAuthError(err) {
			suggestion = appPasswordHint
		}
		m.logger.Warn("smtp verify failed", "host", m.server.Host, "err", err)
		return VerifyResult{Message: "Erro na configuração de email", Error: err.Error(), Suggestion: suggestion}
	}
	if err := sc.Close(); err != nil {
		m.logger.Debug("smtp close after verify", "err", err)
	}

	server := m.server
	return VerifyResult{Success: true, Message: "Configuração de email válida", Config: &server}
}
