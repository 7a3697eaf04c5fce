package notify

import (
	"bytes"
	"context"
	"fmt"
	"net/smtp"
	"time"

	"github.com/google/uuid"
)

// emailDispatcher submits a message over SMTP. This is the transport
// boundary spec.md §1 names as out of scope ("SMTP... transport
// wrappers"), so it stays on the standard library net/smtp rather than
// reaching for a templating/mailer dependency the teacher never used
// either.
type emailDispatcher struct {
	cfg  Config
	auth smtp.Auth
}

func newEmailDispatcher(cfg Config) *emailDispatcher {
	var auth smtp.Auth
	if cfg.SMTPUser != "" {
		auth = smtp.PlainAuth("", cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPHost)
	}
	return &emailDispatcher{cfg: cfg, auth: auth}
}

func (d *emailDispatcher) Dispatch(ctx context.Context, req Request) error {
	to, _ := req.Channel.Config["to"].(string)
	if to == "" {
		return fmt.Errorf("email channel %s: missing config.to", req.Channel.ChannelID)
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s\r\n", d.cfg.SMTPFrom)
	fmt.Fprintf(&buf, "To: %s\r\n", to)
	fmt.Fprintf(&buf, "Subject: [%s] %s\r\n", req.Alert.Severity, req.Alert.Title)
	fmt.Fprintf(&buf, "Date: %s\r\n", time.Now().UTC().Format(time.RFC1123Z))
	fmt.Fprintf(&buf, "Message-ID: <%s@alertfabric>\r\n", uuid.NewString())
	buf.WriteString("\r\n")
	buf.WriteString(req.Alert.Message)

	addr := fmt.Sprintf("%s:%d", d.cfg.SMTPHost, d.cfg.SMTPPort)
	if err := smtp.SendMail(addr, d.auth, d.cfg.SMTPFrom, []string{to}, buf.Bytes()); err != nil {
		return fmt.Errorf("smtp send failed: %w", err)
	}
	return nil
}
