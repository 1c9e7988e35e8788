package outbound

import (
	"context"
	"fmt"
	"net/smtp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teamflow/internal/config"
	"teamflow/internal/logger"
)

func TestEmailSender_BuildsMessage(t *testing.T) {
	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte
	var gotAuth smtp.Auth

	sender := NewEmailSender(config.EmailConfig{
		SMTPHost: "mail.example.com",
		SMTPPort: 587,
		From:     "automation@example.com",
		Username: "user",
		Password: "secret",
	}, logger.NopLogger())
	sender.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotAuth, gotFrom, gotTo, gotMsg = addr, a, from, to, msg
		return nil
	}

	require.NoError(t, sender.Send(context.Background(), "dev@example.com", "Overdue", "Task t1 is overdue."))

	assert.Equal(t, "mail.example.com:587", gotAddr)
	assert.Equal(t, "automation@example.com", gotFrom)
	assert.Equal(t, []string{"dev@example.com"}, gotTo)
	assert.NotNil(t, gotAuth)
	assert.Contains(t, string(gotMsg), "Subject: Overdue\r\n")
	assert.Contains(t, string(gotMsg), "To: dev@example.com\r\n")
	assert.Contains(t, string(gotMsg), "\r\n\r\nTask t1 is overdue.")
}

func TestEmailSender_NoAuthWithoutUsername(t *testing.T) {
	var gotAuth smtp.Auth
	sender := NewEmailSender(config.EmailConfig{SMTPHost: "mail.example.com", SMTPPort: 25}, logger.NopLogger())
	sender.send = func(_ string, a smtp.Auth, _ string, _ []string, _ []byte) error {
		gotAuth = a
		return nil
	}

	require.NoError(t, sender.Send(context.Background(), "dev@example.com", "s", "b"))
	assert.Nil(t, gotAuth)
}

func TestEmailSender_LogsWhenUnconfigured(t *testing.T) {
	sender := NewEmailSender(config.EmailConfig{}, logger.NopLogger())
	sender.send = func(string, smtp.Auth, string, []string, []byte) error {
		t.Fatal("send must not be called without an SMTP host")
		return nil
	}

	assert.NoError(t, sender.Send(context.Background(), "dev@example.com", "s", "b"))
}

func TestEmailSender_WrapsSendFailure(t *testing.T) {
	sender := NewEmailSender(config.EmailConfig{SMTPHost: "mail.example.com", SMTPPort: 25}, logger.NopLogger())
	sender.send = func(string, smtp.Auth, string, []string, []byte) error {
		return fmt.Errorf("connection refused")
	}

	err := sender.Send(context.Background(), "dev@example.com", "s", "b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to send email")
}
