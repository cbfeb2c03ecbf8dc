package mail

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net"
	netmail "net/mail"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"birthday_notifier/internal/domain/birthday"
	domainMail "birthday_notifier/internal/domain/mail"
)

func manyNames(n int) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("Colleague Number %02d", i)
	}
	return names
}

func TestBuildMIMEMessage(t *testing.T) {
	msg := birthday.Compose(manyNames(40))
	msg.To = "alice@x.com"

	raw, err := buildMIMEMessage("team@example.com", msg, time.Date(2024, 3, 5, 9, 30, 0, 0, time.UTC))
	require.NoError(t, err)

	header, body, found := strings.Cut(string(raw), "\r\n\r\n")
	require.True(t, found)
	for i, line := range strings.Split(header, "\r\n") {
		assert.LessOrEqual(t, len(line), 998, "header line %d too long", i)
	}
	for i, line := range strings.Split(body, "\r\n") {
		assert.LessOrEqual(t, len(line), 78, "body line %d too long", i)
	}
	assert.Contains(t, body, "Content-Transfer-Encoding: quoted-printable")
	for _, c := range raw {
		require.Less(t, c, byte(0x80), "message must be 7-bit")
	}

	parsed, err := netmail.ReadMessage(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, "alice@x.com", parsed.Header.Get("To"))

	subject, err := new(mime.WordDecoder).DecodeHeader(parsed.Header.Get("Subject"))
	require.NoError(t, err)
	assert.Equal(t, msg.Subject, subject)

	mediaType, params, err := mime.ParseMediaType(parsed.Header.Get("Content-Type"))
	require.NoError(t, err)
	assert.Equal(t, "multipart/alternative", mediaType)

	mr := multipart.NewReader(parsed.Body, params["boundary"])
	var bodies []string
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		b, err := io.ReadAll(p)
		require.NoError(t, err)
		bodies = append(bodies, strings.ReplaceAll(string(b), "\r\n", "\n"))
	}
	require.Len(t, bodies, 2)
	assert.Equal(t, msg.TextBody, bodies[0])
	assert.Equal(t, strings.ReplaceAll(msg.HTMLBody, "\r\n", "\n"), bodies[1])
}

type smtpSession struct {
	mu    sync.Mutex
	from  string
	rcpts []string
	data  []byte
}

// startSMTPServer serves one scripted SMTP session per connection. Addresses
// in reject get a permanent RCPT failure.
func startSMTPServer(t *testing.T, reject map[string]bool) (string, int, *smtpSession) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	sess := &smtpSession{}
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go serveSMTP(conn, sess, reject)
		}
	}()

	addr := ln.Addr().(*net.TCPAddr)
	return addr.IP.String(), addr.Port, sess
}

func serveSMTP(conn net.Conn, sess *smtpSession, reject map[string]bool) {
	defer conn.Close()
	tp := textproto.NewConn(conn)
	_ = tp.PrintfLine("220 localhost ESMTP ready")
	for {
		line, err := tp.ReadLine()
		if err != nil {
			return
		}
		verb := strings.ToUpper(strings.SplitN(line, " ", 2)[0])
		switch verb {
		case "EHLO":
			_ = tp.PrintfLine("250-localhost")
			_ = tp.PrintfLine("250 8BITMIME")
		case "MAIL":
			sess.mu.Lock()
			sess.from = addressOf(line)
			sess.mu.Unlock()
			_ = tp.PrintfLine("250 OK")
		case "RCPT":
			rcpt := addressOf(line)
			if reject[rcpt] {
				_ = tp.PrintfLine("550 5.1.1 no such user")
				continue
			}
			sess.mu.Lock()
			sess.rcpts = append(sess.rcpts, rcpt)
			sess.mu.Unlock()
			_ = tp.PrintfLine("250 OK")
		case "DATA":
			_ = tp.PrintfLine("354 end with .")
			data, err := tp.ReadDotBytes()
			if err != nil {
				return
			}
			sess.mu.Lock()
			sess.data = data
			sess.mu.Unlock()
			_ = tp.PrintfLine("250 queued")
		case "QUIT":
			_ = tp.PrintfLine("221 bye")
			return
		default:
			_ = tp.PrintfLine("250 OK")
		}
	}
}

func addressOf(line string) string {
	start, end := strings.Index(line, "<"), strings.Index(line, ">")
	if start < 0 || end < start {
		return ""
	}
	return line[start+1 : end]
}

func TestSMTP_Send(t *testing.T) {
	host, port, sess := startSMTPServer(t, nil)
	s := NewSMTP(host, port, "", "", "team@example.com")

	msg := birthday.Compose([]string{"Bob", "Carol"})
	msg.To = "alice@x.com"

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Send(ctx, msg))

	sess.mu.Lock()
	defer sess.mu.Unlock()
	assert.Equal(t, "team@example.com", sess.from)
	assert.Equal(t, []string{"alice@x.com"}, sess.rcpts)

	parsed, err := netmail.ReadMessage(bytes.NewReader(sess.data))
	require.NoError(t, err)
	assert.Equal(t, "alice@x.com", parsed.Header.Get("To"))
	assert.Contains(t, parsed.Header.Get("Content-Type"), "multipart/alternative")
}

func TestSMTP_SendRecipientRejected(t *testing.T) {
	host, port, _ := startSMTPServer(t, map[string]bool{"ghost@x.com": true})
	s := NewSMTP(host, port, "", "", "team@example.com")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := s.Send(ctx, domainMail.Message{To: "ghost@x.com", Subject: "s", TextBody: "b"})
	assert.ErrorIs(t, err, ErrRecipientRejected)
}

func TestSMTP_SendDialFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	s := NewSMTP("127.0.0.1", port, "", "", "team@example.com")
	err = s.Send(context.Background(), domainMail.Message{To: "a@x.com", Subject: "s", TextBody: "b"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrRecipientRejected)
}
