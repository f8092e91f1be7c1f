package consumer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	mqttcommon "doctor-portal/common/mqtt"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSubscriber struct {
	mu           sync.Mutex
	topic        string
	handler      mqttcommon.MessageHandler
	unsubscribed []string
	subErr       error
}

func (f *fakeSubscriber) Subscribe(topic string, handler mqttcommon.MessageHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.topic = topic
	f.handler = handler
	return f.subErr
}

func (f *fakeSubscriber) subscribed() mqttcommon.MessageHandler {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.handler
}

func (f *fakeSubscriber) Unsubscribe(topics ...string) error {
	f.unsubscribed = append(f.unsubscribed, topics...)
	return nil
}

type fakeRefresher struct {
	doctors []string
}

func (f *fakeRefresher) RefreshDoctor(doctorID string) int {
	f.doctors = append(f.doctors, doctorID)
	return 1
}

func TestCaseEventConsumer_RefreshesDoctor(t *testing.T) {
	sub := &fakeSubscriber{}
	ref := &fakeRefresher{}
	c := NewCaseEventConsumer(sub, ref, "", zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()

	require.Eventually(t, func() bool { return sub.subscribed() != nil }, time.Second, time.Millisecond)
	assert.Equal(t, DefaultCaseEventTopic, sub.topic)

	require.NoError(t, sub.handler("doctor/doc-1/cases", []byte(`{"caseId":"c-1","event":"message"}`)))
	require.NoError(t, sub.handler("doctor/doc-2/cases", nil))
	assert.Equal(t, []string{"doc-1", "doc-2"}, ref.doctors)

	cancel()
	require.NoError(t, <-done)
	c.Stop()
	assert.Equal(t, []string{DefaultCaseEventTopic}, sub.unsubscribed)
}

func TestCaseEventConsumer_InvalidMessages(t *testing.T) {
	ref := &fakeRefresher{}
	c := NewCaseEventConsumer(&fakeSubscriber{}, ref, "doctor/+/cases", zap.NewNop())

	assert.Error(t, c.handleMessage("doctor//cases", nil))
	assert.Error(t, c.handleMessage("cases", nil))
	assert.Error(t, c.handleMessage("doctor/doc-1/cases", []byte("{not json")))
	assert.Empty(t, ref.doctors)
}

func TestCaseEventConsumer_SubscribeError(t *testing.T) {
	c := NewCaseEventConsumer(&fakeSubscriber{subErr: errors.New("not connected")}, &fakeRefresher{}, "", zap.NewNop())
	assert.Error(t, c.Start(context.Background()))
}
