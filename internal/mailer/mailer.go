package mailer

import "embed"

const (
	FROM_NAME = "CertGate"
	MAX_RETRY = 3
	// Sent to the recipient after a successful self-service redemption
	CERTIFICATE_READY_TEMPLATE = "certificate_ready.tmpl"
)

//go:embed "templates"
var FS embed.FS

type Client interface {
	Send(templateFile, toUsername, toEmail string, data any) (int, error)
}
