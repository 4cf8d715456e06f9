package logger

import (
	"RagDesk/backend/go/internal/config"
	"RagDesk/backend/go/internal/models"
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithFieldsDoNotMutateReceiver(t *testing.T) {
	var buf bytes.Buffer
	base := logrus.New()
	base.SetOutput(&buf)
	base.SetFormatter(&logrus.JSONFormatter{})
	l := &Logger{entry: logrus.NewEntry(base)}

	_ = l.WithField("task_id", "abc").WithRequest(models.RequestInfo{Method: "GET"})
	l.Info("plain")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "plain", line["msg"])
	assert.NotContains(t, line, "task_id")
	assert.NotContains(t, line, "request_info")
}

func TestCaptureWithoutHub(t *testing.T) {
	var buf bytes.Buffer
	base := logrus.New()
	base.SetOutput(&buf)
	base.SetFormatter(&logrus.JSONFormatter{})
	l := &Logger{entry: logrus.NewEntry(base)}

	l.Capture(nil, errors.New("boom"), "runner failed", map[string]interface{}{"task_id": "t1"})
	assert.Contains(t, buf.String(), "boom")
	assert.Contains(t, buf.String(), "runner failed")

	buf.Reset()
	l.Capture(nil, nil, "ignored", nil)
	assert.Empty(t, buf.String())
}

func TestInitSentryDisabled(t *testing.T) {
	hub, err := InitSentry(config.SentryConfig{}, "0.1.0", "test")
	assert.Nil(t, hub)
	assert.ErrorIs(t, err, ErrSentryDisabled)
}
