package email

import (
	"bytes"
	"context"
	"html/template"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	TemplateWelcome            = "welcome"
	TemplateRedemptionDecision = "redemption_decision"
	TemplateMaturityReady      = "maturity_ready"
)

// queued is an email waiting in the send queue
type queued struct {
	To           string
	ToName       string
	Subject      string
	TemplateName string
	Data         interface{}
}

// Service renders templates and delivers them asynchronously.
type Service struct {
	transport    Transport
	templates    map[string]*template.Template
	baseTemplate *template.Template
	queue        chan *queued
	wg           sync.WaitGroup

	mu     sync.Mutex // guards closed and sends on queue
	closed bool
}

// NewService creates the email service and starts its worker.
func NewService(transport Transport) *Service {
	s := &Service{
		transport:    transport,
		templates:    make(map[string]*template.Template),
		baseTemplate: template.Must(template.New("base").Parse(BaseTemplate)),
		queue:        make(chan *queued, 100),
	}

	for name, content := range map[string]string{
		TemplateWelcome:            WelcomeTemplate,
		TemplateRedemptionDecision: RedemptionDecisionTemplate,
		TemplateMaturityReady:      MaturityReadyTemplate,
	} {
		s.templates[name] = template.Must(template.New(name).Parse(content))
	}

	s.wg.Add(1)
	go s.worker()

	return s
}

func (s *Service) worker() {
	defer s.wg.Done()

	for email := range s.queue {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		if err := s.send(ctx, email); err != nil {
			log.Error().Err(err).
				Str("to", email.To).
				Str("template", email.TemplateName).
				Msg("Failed to send email")
		}
		cancel()
	}
}

// Render produces the full HTML body for a template.
func (s *Service) Render(templateName string, data interface{}) (string, error) {
	tmpl, ok := s.templates[templateName]
	if !ok {
		return "", ErrUnknownTemplate
	}

	var content bytes.Buffer
	if err := tmpl.Execute(&content, data); err != nil {
		return "", err
	}

	var html bytes.Buffer
	if err := s.baseTemplate.Execute(&html, map[string]interface{}{
		"Content": template.HTML(content.String()),
	}); err != nil {
		return "", err
	}
	return html.String(), nil
}

func (s *Service) send(ctx context.Context, email *queued) error {
	html, err := s.Render(email.TemplateName, email.Data)
	if err != nil {
		return err
	}
	return s.transport.Deliver(ctx, &Message{
		To:          email.To,
		ToName:      email.ToName,
		Subject:     email.Subject,
		HTMLContent: html,
	})
}

// Queue adds an email to the async send queue. A full queue, or a closed
// service, drops the email.
func (s *Service) Queue(to, toName, templateName, subject string, data interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		log.Warn().Str("to", to).Str("template", templateName).Msg("Email service closed, dropping email")
		return
	}
	select {
	case s.queue <- &queued{To: to, ToName: toName, Subject: subject, TemplateName: templateName, Data: data}:
	default:
		log.Warn().Str("to", to).Str("template", templateName).Msg("Email queue full, dropping email")
	}
}

// SendSync sends an email synchronously (blocking)
func (s *Service) SendSync(ctx context.Context, to, toName, templateName, subject string, data interface{}) error {
	return s.send(ctx, &queued{To: to, ToName: toName, Subject: subject, TemplateName: templateName, Data: data})
}

// Close drains the queue and stops the worker.
func (s *Service) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.queue)
	s.mu.Unlock()

	s.wg.Wait()
}

// SendWelcome sends login credentials to a newly enrolled user.
func (s *Service) SendWelcome(to, name, schemeName, tempPassword, loginURL string) {
	s.Queue(to, name, TemplateWelcome, "Welcome to your gold savings scheme", map[string]string{
		"Name":         name,
		"Email":        to,
		"SchemeName":   schemeName,
		"TempPassword": tempPassword,
		"LoginURL":     loginURL,
	})
}

// SendRedemptionDecision notifies a user that an admin decided their request.
func (s *Service) SendRedemptionDecision(to, name, requestType, status, remarks string) {
	s.Queue(to, name, TemplateRedemptionDecision, "Your redemption request was "+status, map[string]string{
		"Name":    name,
		"Type":    requestType,
		"Status":  status,
		"Remarks": remarks,
	})
}

// SendMaturityReady tells a user their scheme matured and a payout request is pending.
func (s *Service) SendMaturityReady(to, name, schemeName, totalGold string) {
	s.Queue(to, name, TemplateMaturityReady, "Your scheme has matured", map[string]string{
		"Name":       name,
		"SchemeName": schemeName,
		"TotalGold":  totalGold,
	})
}
