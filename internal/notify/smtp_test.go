package notify

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"mime/quotedprintable"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/guardpost/apiserver/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func configFor(transport string) config.MailConfig {
	return config.MailConfig{Transport: transport}
}

// fakeSMTP accepts one session and records the envelope and data.
type fakeSMTP struct {
	listener net.Listener
	commands chan []string
	data     chan string
}

func startFakeSMTP(t *testing.T) *fakeSMTP {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	f := &fakeSMTP{listener: ln, commands: make(chan []string, 1), data: make(chan string, 1)}
	go f.serve()
	return f
}

func (f *fakeSMTP) serve() {
	conn, err := f.listener.Accept()
	if err != nil {
		return
	}
	defer conn.Close()

	r := bufio.NewReader(conn)
	reply := func(line string) { _, _ = conn.Write([]byte(line + "\r\n")) }
	reply("220 fake ESMTP")

	var commands []string
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimRight(line, "\r\n")
		commands = append(commands, line)
		verb := strings.ToUpper(strings.SplitN(line, " ", 2)[0])
		switch verb {
		case "EHLO":
			reply("250-fake")
			reply("250 8BITMIME")
		case "MAIL", "RCPT":
			reply("250 OK")
		case "DATA":
			reply("354 send data")
			var body strings.Builder
			for {
				dl, err := r.ReadString('\n')
				if err != nil {
					return
				}
				if dl == ".\r\n" {
					break
				}
				body.WriteString(strings.TrimPrefix(dl, "."))
			}
			f.data <- body.String()
			reply("250 queued")
		case "QUIT":
			reply("221 bye")
			f.commands <- commands
			return
		default:
			reply("250 OK")
		}
	}
}

func fakeTransport(t *testing.T, server *fakeSMTP) *SMTPTransport {
	t.Helper()
	host, port, err := net.SplitHostPort(server.listener.Addr().String())
	require.NoError(t, err)
	portNum, err := strconv.Atoi(port)
	require.NoError(t, err)

	transport, err := NewSMTPTransport(config.MailConfig{
		Host:    host,
		Port:    portNum,
		From:    "Guardpost <ops@guardpost.test>",
		Timeout: 5 * time.Second,
	})
	require.NoError(t, err)
	return transport
}

func TestSMTPTransportSend(t *testing.T) {
	server := startFakeSMTP(t)
	transport := fakeTransport(t, server)

	id, err := transport.Send(context.Background(), Email{
		To:      []string{"alice@example.com", "bob@example.com"},
		Subject: "Incident",
		HTML:    "<p>hello</p>",
	})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(id, "@guardpost.test>"))

	data := <-server.data
	assert.Contains(t, data, "Subject: Incident\r\n")
	assert.Contains(t, data, "Message-ID: "+id)
	assert.Contains(t, data, "<p>hello</p>")

	commands := <-server.commands
	assert.Contains(t, commands, "RCPT TO:<alice@example.com>")
	assert.Contains(t, commands, "RCPT TO:<bob@example.com>")
	var mailFrom string
	for _, c := range commands {
		if strings.HasPrefix(c, "MAIL FROM:") {
			mailFrom = c
		}
	}
	assert.True(t, strings.HasPrefix(mailFrom, "MAIL FROM:<ops@guardpost.test>"))
}

func TestSMTPTransportKeepsLinesWithinLimit(t *testing.T) {
	server := startFakeSMTP(t)
	transport := fakeTransport(t, server)

	description := strings.Repeat("Véhicule suspect près du portail 3 ", 90)
	require.Greater(t, len(description), 3000)
	subject, html, err := Render(EventIncidentCreated, Payload{
		"title":       "Vehicle loitering",
		"severity":    "high",
		"description": description,
	})
	require.NoError(t, err)

	_, err = transport.Send(context.Background(), Email{To: []string{"ops@example.com"}, Subject: subject, HTML: html})
	require.NoError(t, err)

	data := <-server.data
	for _, line := range strings.Split(data, "\r\n") {
		assert.LessOrEqual(t, len(line), 998)
	}
	assert.Contains(t, data, "Content-Transfer-Encoding: quoted-printable")

	_, encoded, found := strings.Cut(data, "\r\n\r\n")
	require.True(t, found)
	decoded, err := io.ReadAll(quotedprintable.NewReader(strings.NewReader(encoded)))
	require.NoError(t, err)
	assert.Contains(t, string(decoded), description)
}

func TestSMTPTransportRequiresRecipients(t *testing.T) {
	transport, err := NewSMTPTransport(config.MailConfig{Host: "localhost", From: "ops@guardpost.test"})
	require.NoError(t, err)

	_, err = transport.Send(context.Background(), Email{Subject: "x"})
	assert.Error(t, err)
}

func TestNewSMTPTransportValidates(t *testing.T) {
	_, err := NewSMTPTransport(config.MailConfig{From: "ops@guardpost.test"})
	assert.ErrorContains(t, err, "host")

	_, err = NewSMTPTransport(config.MailConfig{Host: "mail.example.com", From: "not an address"})
	assert.ErrorContains(t, err, "from address")

	transport, err := NewSMTPTransport(config.MailConfig{Host: "mail.example.com", From: "ops@guardpost.test"})
	require.NoError(t, err)
	assert.Equal(t, "mail.example.com:587", transport.addr)
	assert.Equal(t, "guardpost.test", transport.domain)
}

func TestBuildMessageStripsHeaderInjection(t *testing.T) {
	msg, err := buildMessage("ops@guardpost.test", Email{
		To:      []string{"a@example.com"},
		Subject: "hi\r\nBcc: evil@example.com",
		HTML:    "<p>x</p>",
	}, "id@guardpost.test", time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = msg.WriteTo(&buf)
	require.NoError(t, err)
	raw := buf.String()

	assert.NotContains(t, raw, "\r\nBcc:")
	assert.Contains(t, raw, "Date: Fri, 02 Jan 2026 03:04:05 +0000\r\n")
	assert.Contains(t, raw, "Message-ID: <id@guardpost.test>")
	assert.Contains(t, raw, "<p>x</p>")
}
