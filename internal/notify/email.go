package notify

import (
	"bufio"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/evrokas/route-tracker/internal/config"
)

const smtpTimeout = 30 * time.Second

// EmailChannel sends mail either over a raw SMTP session or, when no
// SMTP method is configured, through the local submission agent.
type EmailChannel struct {
	cfg config.EmailConfig

	// addr overrides host:port resolution in tests.
	addr string
}

// NewEmailChannel builds the email channel from config.
func NewEmailChannel(cfg config.EmailConfig) *EmailChannel {
	return &EmailChannel{cfg: cfg}
}

func (e *EmailChannel) Name() string { return "email" }

// Send delivers one message to all configured recipients. A connect
// failure is a hard error; a rejected message is a soft FAIL.
func (e *EmailChannel) Send(subject, body string) (bool, error) {
	if !e.cfg.Enabled || len(e.cfg.Recipients) == 0 {
		return false, nil
	}
	if e.cfg.Method == "smtp" {
		return e.sendSMTP(subject, body)
	}
	return e.sendLocal(subject, body)
}

// sendSMTP speaks the SMTP protocol over a raw socket: banner, EHLO,
// optional STARTTLS upgrade, EHLO again, AUTH LOGIN, MAIL FROM, one
// RCPT TO per recipient, DATA, QUIT. Success iff the DATA reply starts
// with '2'.
func (e *EmailChannel) sendSMTP(subject, body string) (bool, error) {
	addr := e.addr
	if addr == "" {
		addr = fmt.Sprintf("%s:%d", e.cfg.SMTPHost, e.cfg.SMTPPort)
	}

	var conn net.Conn
	var err error
	if e.cfg.SMTPEncryption == "ssl" {
		dialer := &net.Dialer{Timeout: smtpTimeout}
		conn, err = tls.DialWithDialer(dialer, "tcp", addr, &tls.Config{ServerName: e.cfg.SMTPHost})
	} else {
		conn, err = net.DialTimeout("tcp", addr, smtpTimeout)
	}
	if err != nil {
		return false, fmt.Errorf("smtp connect failed: %w", err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(smtpTimeout))

	r := bufio.NewReader(conn)
	if _, err := readReply(r); err != nil { // banner
		return false, fmt.Errorf("smtp banner read failed: %w", err)
	}

	cmd := func(line string) (string, error) {
		if _, err := fmt.Fprintf(conn, "%s\r\n", line); err != nil {
			return "", err
		}
		return readReply(r)
	}

	if _, err := cmd("EHLO localhost"); err != nil {
		return false, fmt.Errorf("smtp EHLO failed: %w", err)
	}

	if e.cfg.SMTPEncryption == "tls" {
		if _, err := cmd("STARTTLS"); err != nil {
			return false, fmt.Errorf("smtp STARTTLS failed: %w", err)
		}
		tlsConn := tls.Client(conn, &tls.Config{ServerName: e.cfg.SMTPHost})
		if err := tlsConn.Handshake(); err != nil {
			return false, fmt.Errorf("smtp TLS handshake failed: %w", err)
		}
		conn = tlsConn
		r = bufio.NewReader(conn)
		if _, err := cmd("EHLO localhost"); err != nil {
			return false, fmt.Errorf("smtp EHLO after STARTTLS failed: %w", err)
		}
	}

	if e.cfg.SMTPUsername != "" {
		steps := []string{
			"AUTH LOGIN",
			base64.StdEncoding.EncodeToString([]byte(e.cfg.SMTPUsername)),
			base64.StdEncoding.EncodeToString([]byte(e.cfg.SMTPPassword)),
		}
		for _, s := range steps {
			if _, err := cmd(s); err != nil {
				return false, fmt.Errorf("smtp auth failed: %w", err)
			}
		}
	}

	from := e.cfg.FromAddress
	if from == "" {
		from = e.cfg.SMTPUsername
	}

	if _, err := cmd(fmt.Sprintf("MAIL FROM:<%s>", from)); err != nil {
		return false, fmt.Errorf("smtp MAIL FROM failed: %w", err)
	}
	for _, rcpt := range e.cfg.Recipients {
		if _, err := cmd(fmt.Sprintf("RCPT TO:<%s>", rcpt)); err != nil {
			return false, fmt.Errorf("smtp RCPT TO failed: %w", err)
		}
	}
	if _, err := cmd("DATA"); err != nil {
		return false, fmt.Errorf("smtp DATA failed: %w", err)
	}

	msg := e.buildMessage(from, subject, body)
	reply, err := cmd(msg + "\r\n.")
	if err != nil {
		return false, fmt.Errorf("smtp message send failed: %w", err)
	}

	cmd("QUIT") // best effort

	return strings.HasPrefix(strings.TrimSpace(reply), "2"), nil
}

// buildMessage assembles the MIME message: B-encoded headers for the
// non-ASCII subject and sender name, base64-encoded body.
func (e *EmailChannel) buildMessage(from, subject, body string) string {
	fromName := e.cfg.FromName
	if fromName == "" {
		fromName = "Route Tracker"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	fmt.Fprintf(&b, "From: =?UTF-8?B?%s?= <%s>\r\n",
		base64.StdEncoding.EncodeToString([]byte(fromName)), from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(e.cfg.Recipients, ", "))
	fmt.Fprintf(&b, "Subject: =?UTF-8?B?%s?=\r\n",
		base64.StdEncoding.EncodeToString([]byte(subject)))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("Content-Transfer-Encoding: base64\r\n")
	b.WriteString("\r\n")
	b.WriteString(chunkBase64(body, 76))
	return b.String()
}

// sendLocal falls back to the machine's own mail submission port.
func (e *EmailChannel) sendLocal(subject, body string) (bool, error) {
	from := e.cfg.FromAddress
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nDate: %s\r\n\r\n%s",
		from, strings.Join(e.cfg.Recipients, ", "), subject,
		time.Now().Format(time.RFC1123Z), body)

	addr := e.addr
	if addr == "" {
		addr = "localhost:25"
	}
	if err := smtp.SendMail(addr, nil, from, e.cfg.Recipients, []byte(msg)); err != nil {
		return false, fmt.Errorf("local mail submission failed: %w", err)
	}
	return true, nil
}

// readReply consumes one SMTP reply, following "250-..." continuation
// lines to the final one.
func readReply(r *bufio.Reader) (string, error) {
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return "", err
		}
		if len(line) < 4 || line[3] != '-' {
			return strings.TrimRight(line, "\r\n"), nil
		}
	}
}

// chunkBase64 base64-encodes s and splits the result into lines of the
// given width, per RFC 2045.
func chunkBase64(s string, width int) string {
	enc := base64.StdEncoding.EncodeToString([]byte(s))
	var b strings.Builder
	for len(enc) > width {
		b.WriteString(enc[:width])
		b.WriteString("\r\n")
		enc = enc[width:]
	}
	b.WriteString(enc)
	b.WriteString("\r\n")
	return b.String()
}
