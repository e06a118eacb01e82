package alert

import (
	"errors"
	"net/smtp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/mangagraph/pkg/config"
)

func TestNew(t *testing.T) {
	assert.IsType(t, &NoOpAlerter{}, New(config.AlertConfig{}))
	assert.IsType(t, &NoOpAlerter{}, New(config.AlertConfig{Enabled: true}))
	assert.IsType(t, &EmailAlerter{}, New(config.AlertConfig{Enabled: true, SMTPHost: "smtp.example.com", To: []string{"ops@example.com"}}))
}

func TestEmailAlerter(t *testing.T) {
	cfg := config.AlertConfig{
		Enabled:  true,
		SMTPHost: "smtp.example.com",
		SMTPPort: 587,
		From:     "mangagraph@example.com",
		To:       []string{"ops@example.com", "oncall@example.com"},
	}
	a := NewEmailAlerter(cfg)

	var gotAddr string
	var gotMsg []byte
	a.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr = addr
		gotMsg = msg
		assert.Equal(t, cfg.From, from)
		assert.Equal(t, cfg.To, to)
		return nil
	}

	require.NoError(t, a.Alert("breaker open", "graph store is failing"))
	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Contains(t, string(gotMsg), "Subject: breaker open\r\n")
	assert.Contains(t, string(gotMsg), "To: ops@example.com,oncall@example.com\r\n")

	a.send = func(string, smtp.Auth, string, []string, []byte) error { return errors.New("refused") }
	assert.ErrorContains(t, a.Alert("s", "m"), "failed to send alert email")

	a.cfg.Enabled = false
	assert.NoError(t, a.Alert("s", "m"))
}
