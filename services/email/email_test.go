package emailsvc

import (
	"encoding/json"
	"net/mail"
	"testing"

	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/kikundi/core"
)

func testConf() *core.Config {
	return &core.Config{AppName: "Kikundi"}
}

func TestConsoleServiceMock_SendMessages(t *testing.T) {
	svc := NewConsoleServiceMock(testConf())

	svc.SendMessages(
		&core.EmailMessage{
			To:      []mail.Address{{Name: "Ada", Address: "ada@example.com"}},
			Subject: "Your group: Team 1",
			BodyStr: "Hello Ada,\n\nYou are in Team 1.",
		},
		&core.EmailMessage{Subject: "no recipient", BodyStr: "lost"},
		&core.EmailMessage{To: []mail.Address{{Address: "bob@example.com"}}, Subject: "no content"},
	)

	sent := svc.SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "Your group: Team 1", sent[0].Subject)
	assert.Equal(t, "Hello Ada,\n\nYou are in Team 1.", sent[0].TextContent)
	assert.Contains(t, sent[0].HTMLContent, "<p>You are in Team 1.</p>")

	svc.Reset()
	assert.Empty(t, svc.SentMessages())
}

func TestConsoleService_format(t *testing.T) {
	svc := NewConsoleServiceMock(testConf())
	msg := core.EmailMessage{
		To:      []mail.Address{{Address: "ada@example.com"}},
		Subject: "Hi",
		BodyStr: "Body",
	}
	require.NoError(t, msg.Render())

	body, err := svc.format(msg)
	require.NoError(t, err)
	assert.Contains(t, body, "Subject: [Kikundi] Hi\r\n")
	assert.Contains(t, body, "To: <ada@example.com>\r\n")
	assert.Contains(t, body, "text/html")
	assert.NotContains(t, body, "CC:")
}

func TestSendgridService_prepare(t *testing.T) {
	svc := NewSendgridService(nopLogger{}, testConf())
	msg := core.EmailMessage{
		To:          []mail.Address{{Name: "Ada", Address: "ada@example.com"}},
		Cc:          []mail.Address{{Address: "teacher@example.com"}},
		Subject:     "Hi",
		TextContent: "Body",
	}

	m := svc.prepare(msg)
	require.Len(t, m.Personalizations, 1)
	p := m.Personalizations[0]
	assert.Equal(t, "[Kikundi] Hi", p.Subject)
	require.Len(t, p.To, 1)
	assert.Equal(t, "ada@example.com", p.To[0].Address)
	require.Len(t, p.CC, 1)
	require.Len(t, m.Content, 1)
	assert.Equal(t, "text/plain", m.Content[0].Type)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(sgmail.GetRequestBody(m), &payload))
	assert.Contains(t, payload, "personalizations")
}
