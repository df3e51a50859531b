package renewal

import (
	"fmt"
	"html"
	"strconv"
	"time"

	"github.com/osteele/liquid"

	"github.com/ignite/lgl-sync/internal/domain"
)

// Template is a liquid subject/body pair for one reminder interval.
type Template struct {
	Subject string
	Body    string
}

// DefaultTemplates is the built-in reminder copy.
var DefaultTemplates = map[int]Template{
	30: {
		Subject: "Your membership renews in 30 days",
		Body:    "<p>Hi {{ first_name }},</p><p>Your membership renews on {{ renewal_date }}. <a href=\"{{ renew_url }}\">Renew now</a> to keep your benefits.</p>",
	},
	14: {
		Subject: "Two weeks until your membership renews",
		Body:    "<p>Hi {{ first_name }},</p><p>Your membership renews in {{ days_until }} days, on {{ renewal_date }}. <a href=\"{{ renew_url }}\">Renew here</a>.</p>",
	},
	7: {
		Subject: "One week left on your membership",
		Body:    "<p>Hi {{ first_name }},</p><p>Your membership renews on {{ renewal_date }}. <a href=\"{{ renew_url }}\">Renew today</a>.</p>",
	},
	0: {
		Subject: "Your membership renews today",
		Body:    "<p>Hi {{ first_name }},</p><p>Your membership is due for renewal today. <a href=\"{{ renew_url }}\">Renew now</a>.</p>",
	},
	-7: {
		Subject: "Your membership has lapsed",
		Body:    "<p>Hi {{ first_name }},</p><p>Your membership expired {{ days_overdue }} days ago, on {{ renewal_date }}. <a href=\"{{ renew_url }}\">Renew</a> to restore your benefits.</p>",
	},
	-30: {
		Subject: "Final notice: your membership is inactive",
		Body:    "<p>Hi {{ first_name }},</p><p>We haven't received your renewal and your membership is now inactive. You can <a href=\"{{ renew_url }}\">rejoin at any time</a>.</p>",
	},
}

// ParseTemplateOverrides converts string-keyed template overrides, as found
// in configuration, into interval-keyed templates.
func ParseTemplateOverrides(in map[string]Template) (map[int]Template, error) {
	out := make(map[int]Template, len(in))
	for key, tpl := range in {
		days, err := strconv.Atoi(key)
		if err != nil || !IsInterval(days) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownInterval, key)
		}
		out[days] = tpl
	}
	return out, nil
}

type compiled struct {
	subject *liquid.Template
	body    *liquid.Template
}

// Composer renders reminder emails.
type Composer struct {
	fromName  string
	fromEmail string
	renewURL  string
	templates map[int]compiled
}

// NewComposer compiles DefaultTemplates with overrides applied. A blank
// override field keeps the default for that field.
func NewComposer(fromName, fromEmail, renewURL string, overrides map[int]Template) (*Composer, error) {
	engine := liquid.NewEngine()
	c := &Composer{
		fromName:  fromName,
		fromEmail: fromEmail,
		renewURL:  renewURL,
		templates: make(map[int]compiled, len(Intervals)),
	}
	for _, interval := range Intervals {
		tpl := DefaultTemplates[interval]
		if o, ok := overrides[interval]; ok {
			if o.Subject != "" {
				tpl.Subject = o.Subject
			}
			if o.Body != "" {
				tpl.Body = o.Body
			}
		}
		subject, err := engine.ParseString(tpl.Subject)
		if err != nil {
			return nil, fmt.Errorf("parse subject for interval %d: %w", interval, err)
		}
		body, err := engine.ParseString(tpl.Body)
		if err != nil {
			return nil, fmt.Errorf("parse body for interval %d: %w", interval, err)
		}
		c.templates[interval] = compiled{subject: subject, body: body}
	}
	return c, nil
}

// Compose renders the reminder for interval.
func (c *Composer) Compose(state domain.MemberRenewalState, interval int, now time.Time) (domain.EmailMessage, error) {
	tpl, ok := c.templates[interval]
	if !ok {
		return domain.EmailMessage{}, fmt.Errorf("%w: %d", ErrUnknownInterval, interval)
	}
	if state.RenewalDate == nil {
		return domain.EmailMessage{}, ErrMissingRenewalDate
	}

	days := DaysUntil(*state.RenewalDate, now)
	overdue := 0
	if days < 0 {
		overdue = -days
	}
	bindings := map[string]interface{}{
		"first_name":   firstName(state.Name),
		"name":         state.Name,
		"email":        state.Email,
		"renewal_date": state.RenewalDate.UTC().Format("January 2, 2006"),
		"days_until":   days,
		"days_overdue": overdue,
		"interval":     interval,
		"renew_url":    c.renewURL,
	}

	subject, err := tpl.subject.RenderString(bindings)
	if err != nil {
		return domain.EmailMessage{}, fmt.Errorf("render subject: %w", err)
	}
	body, err := tpl.body.RenderString(htmlBindings(bindings))
	if err != nil {
		return domain.EmailMessage{}, fmt.Errorf("render body: %w", err)
	}

	return domain.EmailMessage{
		To:        state.Email,
		FromName:  c.fromName,
		FromEmail: c.fromEmail,
		Subject:   subject,
		HTMLBody:  body,
		Headers: map[string]string{
			"X-LGL-Renewal-Interval": strconv.Itoa(interval),
		},
	}, nil
}

// htmlBindings escapes the string values for the HTML body. liquid does not
// escape output on its own and names come from store customers.
func htmlBindings(in map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		if str, ok := v.(string); ok {
			v = html.EscapeString(str)
		}
		out[k] = v
	}
	return out
}

func firstName(name string) string {
	for i, r := range name {
		if r == ' ' {
			return name[:i]
		}
	}
	if name == "" {
		return "there"
	}
	return name
}
