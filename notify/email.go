package notify

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"github.com/Pawankshetri11/payoutclickmain-sub001/referral"
)

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Mailer sends user notices over SMTP.
type Mailer struct {
	addr     string
	auth     smtp.Auth
	from     string
	sendMail sendMailFunc
}

func NewMailer(host string, port int, user, password, from string) *Mailer {
	var auth smtp.Auth
	if user != "" {
		auth = smtp.PlainAuth("", user, password, host)
	}
	return &Mailer{
		addr:     net.JoinHostPort(host, strconv.Itoa(port)),
		auth:     auth,
		from:     from,
		sendMail: smtp.SendMail,
	}
}

func (m *Mailer) Name() string { return "email" }

// headerSafe strips line breaks so a value cannot add headers.
func headerSafe(s string) string {
	return strings.NewReplacer("\r", "", "\n", "").Replace(s)
}

func buildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", headerSafe(from))
	fmt.Fprintf(&b, "To: %s\r\n", headerSafe(to))
	fmt.Fprintf(&b, "Subject: %s\r\n", headerSafe(subject))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(body)
	b.WriteString("\r\n")
	return []byte(b.String())
}

// Send ignores ctx: net/smtp has no context support.
func (m *Mailer) Send(_ context.Context, n referral.Notification) error {
	if n.Email == "" {
		return fmt.Errorf("notification %s has no recipient", n.Kind)
	}
	msg := buildMessage(m.from, n.Email, n.Subject, n.Text)
	return m.sendMail(m.addr, m.auth, m.from, []string{n.Email}, msg)
}
