package notify

import (
	"context"
)

// Kind names an email template
type Kind string

const (
	KindProposalReceived Kind = "proposal_received"
	KindProposalAccepted Kind = "proposal_accepted"
	KindProposalRejected Kind = "proposal_rejected"
	KindAccessCode       Kind = "access_code"
	KindCampaignExpired  Kind = "campaign_expired"
)

// Message is an outbound notification emitted after a committed state change
type Message struct {
	Kind Kind              `json:"kind"`
	To   string            `json:"to"`
	Data map[string]string `json:"data"`
}

// Dispatcher hands messages to asynchronous delivery. Dispatch must not block
// on delivery and never reports failure to the caller.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg Message)
}

// Mailer delivers a rendered email
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}
