package notify

import (
	"fmt"
	"strings"
	"text/template"
)

// Template names.
const (
	TemplateSaleApproved        = "sale_approved"
	TemplateSaleRejected        = "sale_rejected"
	TemplateTenantWelcome       = "tenant_welcome"
	TemplateEmployeeWelcome     = "employee_welcome"
	TemplateSecondFactorEnabled = "second_factor_enabled"
)

type messageTemplate struct {
	subject *template.Template
	body    *template.Template
}

var templates = map[string]messageTemplate{
	TemplateSaleApproved: mustTemplate(TemplateSaleApproved,
		"Sale {{.transactionId}} approved",
		"Your sale {{.transactionId}} of {{.totalPrice}} was approved. Commission: {{.commission}}.{{with .notes}} Notes: {{.}}{{end}}"),
	TemplateSaleRejected: mustTemplate(TemplateSaleRejected,
		"Sale {{.transactionId}} rejected",
		"Your sale {{.transactionId}} of {{.totalPrice}} was rejected.{{with .notes}} Notes: {{.}}{{end}}"),
	TemplateTenantWelcome: mustTemplate(TemplateTenantWelcome,
		"Welcome to SalonHub",
		"Hello {{.name}}, your business {{.tenant}} is registered. Sign in at {{.subdomain}} with {{.email}}."),
	TemplateEmployeeWelcome: mustTemplate(TemplateEmployeeWelcome,
		"Welcome to the team",
		"Hi {{.name}}, you have been added to the team as {{.position}}."),
	TemplateSecondFactorEnabled: mustTemplate(TemplateSecondFactorEnabled,
		"Two-factor authentication enabled",
		"Two-factor authentication is now required when signing in as {{.email}}."),
}

func mustTemplate(name, subject, body string) messageTemplate {
	return messageTemplate{
		subject: template.Must(template.New(name + ".subject").Option("missingkey=zero").Parse(subject)),
		body:    template.Must(template.New(name + ".body").Option("missingkey=zero").Parse(body)),
	}
}

// Rendered is a message ready for a sender.
type Rendered struct {
	ID        string
	Channel   Channel
	Recipient string
	Subject   string
	Body      string
	Template  string
	TenantID  *int64
}

// Render expands the message template.
func Render(m Message) (Rendered, error) {
	tpl, ok := templates[m.Template]
	if !ok {
		return Rendered{}, fmt.Errorf("unknown template %q", m.Template)
	}
	data := m.Payload
	if data == nil {
		data = map[string]any{}
	}
	var subject, body strings.Builder
	if err := tpl.subject.Execute(&subject, data); err != nil {
		return Rendered{}, fmt.Errorf("render %s subject: %w", m.Template, err)
	}
	if err := tpl.body.Execute(&body, data); err != nil {
		return Rendered{}, fmt.Errorf("render %s body: %w", m.Template, err)
	}
	return Rendered{
		ID:        m.ID,
		Channel:   m.Channel,
		Recipient: m.Recipient,
		Subject:   subject.String(),
		Body:      body.String(),
		Template:  m.Template,
		TenantID:  m.TenantID,
	}, nil
}
