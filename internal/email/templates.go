package email

import (
	"errors"
	"fmt"
	"strings"
	"text/template"
)

const (
	TemplateOrderConfirmation = "order_confirmation"
	TemplateOrderCancellation = "order_cancellation"
)

type Item struct {
	SKU      string `json:"sku"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// OrderData is what the order templates can reference.
type OrderData struct {
	OrderNumber string `json:"orderNumber"`
	Total       string `json:"total"`
	Items       []Item `json:"items"`
	Reason      string `json:"reason,omitempty"`
}

type message struct {
	subject *template.Template
	body    *template.Template
}

var sources = map[string][2]string{
	TemplateOrderConfirmation: {
		`Order Confirmation: {{.OrderNumber}}`,
		`Thanks for your order {{.OrderNumber}}.

{{range .Items}}- {{.Quantity}} x {{.Name}} ({{.SKU}})
{{end}}
Total: ${{.Total}}
`,
	},
	TemplateOrderCancellation: {
		`Order Cancelled: {{.OrderNumber}}`,
		`Your order {{.OrderNumber}} has been cancelled.
{{if .Reason}}
Reason: {{.Reason}}
{{end}}
Any payment of ${{.Total}} will be refunded.
`,
	},
}

// Renderer turns a template name and order data into subject and body.
type Renderer struct {
	messages map[string]message
}

func NewRenderer() (*Renderer, error) {
	r := &Renderer{messages: make(map[string]message, len(sources))}
	for name, src := range sources {
		subject, err := template.New(name + ".subject").Option("missingkey=error").Parse(src[0])
		if err != nil {
			return nil, fmt.Errorf("parse %s subject: %w", name, err)
		}
		body, err := template.New(name + ".body").Option("missingkey=error").Parse(src[1])
		if err != nil {
			return nil, fmt.Errorf("parse %s body: %w", name, err)
		}
		r.messages[name] = message{subject: subject, body: body}
	}
	return r, nil
}

var ErrUnknownTemplate = errors.New("unknown template")

func (r *Renderer) Render(name string, data OrderData) (subject, body string, err error) {
	m, ok := r.messages[name]
	if !ok {
		return "", "", fmt.Errorf("%w: %q", ErrUnknownTemplate, name)
	}

	var sb strings.Builder
	if err := m.subject.Execute(&sb, data); err != nil {
		return "", "", fmt.Errorf("render %s subject: %w", name, err)
	}
	subject = sb.String()

	sb.Reset()
	if err := m.body.Execute(&sb, data); err != nil {
		return "", "", fmt.Errorf("render %s body: %w", name, err)
	}
	return subject, sb.String(), nil
}
