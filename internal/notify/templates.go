package notify

import (
	"bytes"
	"fmt"
	"text/template"
)

type emailTemplate struct {
	subject *template.Template
	body    *template.Template
}

func mustTemplate(kind Kind, subject, body string) emailTemplate {
	return emailTemplate{
		subject: template.Must(template.New(string(kind) + "_subject").Option("missingkey=zero").Parse(subject)),
		body:    template.Must(template.New(string(kind) + "_body").Option("missingkey=zero").Parse(body)),
	}
}

var templates = map[Kind]emailTemplate{
	KindProposalReceived: mustTemplate(KindProposalReceived,
		`We received your proposal for "{{.slot_name}}"`,
		`Hi {{.recipient_name}},

Your proposal of {{.price}} for "{{.slot_name}}" was sent to the page owner.
We will let you know as soon as they respond.
`),
	KindProposalAccepted: mustTemplate(KindProposalAccepted,
		`Your proposal for "{{.slot_name}}" was accepted`,
		`Hi {{.recipient_name}},

Good news: your proposal of {{.price}} for "{{.slot_name}}" was accepted.
Your campaign runs until {{.expires_at}}.

Complete the payment here: {{.payment_link}}
Edit your ad creative here: {{.edit_link}}
`),
	KindProposalRejected: mustTemplate(KindProposalRejected,
		`Your proposal for "{{.slot_name}}" was declined`,
		`Hi {{.recipient_name}},

Your proposal for "{{.slot_name}}" was declined.
Reason: {{.reason}}
`),
	KindAccessCode: mustTemplate(KindAccessCode,
		`Your access code: {{.code}}`,
		`Use this code to manage your proposal: {{.code}}

It expires in {{.expires_in}}. If you did not request it, you can ignore this email.
`),
	KindCampaignExpired: mustTemplate(KindCampaignExpired,
		`Campaign on "{{.slot_name}}" has ended`,
		`The campaign on "{{.slot_name}}" ended on {{.expires_at}}.
The slot is available for new proposals again.
`),
}

// Render produces the subject and body of a message
func Render(msg Message) (string, string, error) {
	tpl, ok := templates[msg.Kind]
	if !ok {
		return "", "", fmt.Errorf("unknown notification kind %q", msg.Kind)
	}

	var subject, body bytes.Buffer
	if err := tpl.subject.Execute(&subject, msg.Data); err != nil {
		return "", "", fmt.Errorf("failed to render subject: %w", err)
	}
	if err := tpl.body.Execute(&body, msg.Data); err != nil {
		return "", "", fmt.Errorf("failed to render body: %w", err)
	}
	return subject.String(), body.String(), nil
}
