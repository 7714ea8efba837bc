package worker_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/eoivo/embala-fest-sub001/internal/worker"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentMail struct {
	to, subject, body string
	attachments       []string
}

type fakeSender struct {
	sent []sentMail
	err  error
}

func (f *fakeSender) Send(to, subject, body string, attachments ...string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{to: to, subject: subject, body: body, attachments: attachments})
	return nil
}

func payload(t *testing.T, p worker.EmailJobPayload) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(p)
	require.NoError(t, err)
	return raw
}

func TestEmailWorker_SendsWithAttachments(t *testing.T) {
	sender := &fakeSender{}
	w := worker.NewEmailWorker(sender)

	err := w.Process(context.Background(), payload(t, worker.EmailJobPayload{
		ToEmail:     "admin@embalafest.com",
		Subject:     "closed",
		Body:        "summary",
		Attachments: []string{"/tmp/register_1.pdf"},
	}))
	require.NoError(t, err)

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "admin@embalafest.com", sender.sent[0].to)
	assert.Equal(t, []string{"/tmp/register_1.pdf"}, sender.sent[0].attachments)
}

func TestEmailWorker_DropsUnusablePayloads(t *testing.T) {
	sender := &fakeSender{}
	w := worker.NewEmailWorker(sender)

	assert.NoError(t, w.Process(context.Background(), json.RawMessage(`{not json`)))
	assert.NoError(t, w.Process(context.Background(), payload(t, worker.EmailJobPayload{Subject: "no recipient"})))
	assert.Empty(t, sender.sent)
}

func TestEmailWorker_SendFailureIsRetryable(t *testing.T) {
	sender := &fakeSender{err: errors.New("smtp: 421 try later")}
	w := worker.NewEmailWorker(sender)

	err := w.Process(context.Background(), payload(t, worker.EmailJobPayload{ToEmail: "admin@embalafest.com"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "admin@embalafest.com")
}
