package email

import (
	"bytes"
	"context"
	"html/template"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Sender delivers templated emails. Delivery is best effort: callers must not
// treat a send failure as a reason to roll back state.
type Sender interface {
	SendTemplate(ctx context.Context, to, toName, templateName, subject string, data interface{}) error
	Enqueue(to, toName, templateName, subject string, data interface{})
}

// Service handles email sending with templates and an async queue
type Service struct {
	client    *SendGridClient
	templates map[string]*template.Template
	queue     chan *queuedEmail
	wg        sync.WaitGroup
}

type queuedEmail struct {
	To           string
	ToName       string
	Subject      string
	TemplateName string
	Data         interface{}
}

// NewService creates email service
func NewService(config SendGridConfig) *Service {
	s := &Service{
		client:    NewSendGridClient(config),
		templates: make(map[string]*template.Template),
		queue:     make(chan *queuedEmail, 100),
	}

	s.loadTemplates()

	s.wg.Add(1)
	go s.worker()

	return s
}

func (s *Service) loadTemplates() {
	templates := map[string]string{
		"welcome":         WelcomeTemplate,
		"order_submitted": OrderSubmittedTemplate,
		"order_approved":  OrderApprovedTemplate,
	}

	for name, content := range templates {
		tmpl, err := template.New(name).Parse(content)
		if err != nil {
			log.Error().Err(err).Str("template", name).Msg("Failed to parse email template")
			continue
		}
		s.templates[name] = tmpl
	}
}

// SendTemplate renders a template and sends it synchronously
func (s *Service) SendTemplate(ctx context.Context, to, toName, templateName, subject string, data interface{}) error {
	tmpl, ok := s.templates[templateName]
	if !ok {
		log.Error().Str("template", templateName).Msg("Unknown email template")
		return nil
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return err
	}

	return s.client.Send(ctx, &Message{
		To:          to,
		ToName:      toName,
		Subject:     subject,
		HTMLContent: buf.String(),
	})
}

// Enqueue queues an email for async delivery. Drops the message when the
// queue is full rather than blocking the request path.
func (s *Service) Enqueue(to, toName, templateName, subject string, data interface{}) {
	select {
	case s.queue <- &queuedEmail{To: to, ToName: toName, Subject: subject, TemplateName: templateName, Data: data}:
	default:
		log.Warn().Str("to", to).Str("template", templateName).Msg("Email queue full, dropping message")
	}
}

func (s *Service) worker() {
	defer s.wg.Done()
	for msg := range s.queue {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		if err := s.SendTemplate(ctx, msg.To, msg.ToName, msg.TemplateName, msg.Subject, msg.Data); err != nil {
			log.Error().Err(err).Str("to", msg.To).Str("template", msg.TemplateName).Msg("Failed to send email")
		}
		cancel()
	}
}

// Close drains the queue and stops the worker
func (s *Service) Close() {
	close(s.queue)
	s.wg.Wait()
}
