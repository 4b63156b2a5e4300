package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/odds-tracker/internal/logger"
	"github.com/yourusername/odds-tracker/internal/models"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

type published struct {
	channel string
	payload []byte
}

type fakePublisher struct {
	sent []published
	err  error
}

func (p *fakePublisher) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	if p.err != nil {
		return redis.NewIntResult(0, p.err)
	}
	p.sent = append(p.sent, published{channel: channel, payload: message.([]byte)})
	return redis.NewIntResult(1, nil)
}

func (p *fakePublisher) Close() error { return nil }

type failingNotifier struct{ calls int }

func (f *failingNotifier) Name() string { return "failing" }
func (f *failingNotifier) Notify(ctx context.Context, changes []models.OddsChange) error {
	f.calls++
	return errors.New("unreachable")
}
func (f *failingNotifier) Close() error { return nil }

func sampleChanges() []models.OddsChange {
	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	return []models.OddsChange{
		{RunnerID: 1, Name: "Alpha", Event: "01-06-2024 14:30 Ascot", Previous: models.MustParseOdds("3.0"), Current: models.MustParseOdds("2.8"), At: at},
		{RunnerID: 2, Name: "Bravo", Event: "01-06-2024 15:05 Ascot", Previous: models.MustParseOdds("5.0"), Current: models.NoOdds(), At: at},
	}
}

func TestKafkaNotifier(t *testing.T) {
	w := &fakeWriter{}
	n := NewKafkaNotifierWithWriter(w, "odds-changes", logger.Discard())

	require.NoError(t, n.Notify(context.Background(), sampleChanges()))
	require.Len(t, w.msgs, 2)
	assert.Equal(t, "01-06-2024 14:30 Ascot", string(w.msgs[0].Key))

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(w.msgs[1].Value, &decoded))
	assert.Equal(t, "Bravo", decoded["name"])
	assert.Nil(t, decoded["current"])
	assert.Equal(t, 5.0, decoded["previous"])

	require.NoError(t, n.Close())
	assert.True(t, w.closed)
}

func TestKafkaNotifierError(t *testing.T) {
	n := NewKafkaNotifierWithWriter(&fakeWriter{err: errors.New("broker down")}, "odds-changes", logger.Discard())
	err := n.Notify(context.Background(), sampleChanges())
	assert.ErrorContains(t, err, "broker down")
}

func TestRedisNotifier(t *testing.T) {
	p := &fakePublisher{}
	n := NewRedisNotifierWithClient(p, "odds-changes", logger.Discard())

	require.NoError(t, n.Notify(context.Background(), sampleChanges()))
	require.Len(t, p.sent, 2)
	assert.Equal(t, "odds-changes", p.sent[0].channel)
	assert.Contains(t, string(p.sent[0].payload), `"runner_id":1`)

	p.err = errors.New("connection reset")
	assert.Error(t, n.Notify(context.Background(), sampleChanges()))
}

func TestLogNotifier(t *testing.T) {
	buf := &bytes.Buffer{}
	log := logrus.New()
	log.SetOutput(buf)

	n := NewLogNotifier(logger.NewOddsLogger(log))
	require.NoError(t, n.Notify(context.Background(), sampleChanges()))
	assert.Contains(t, buf.String(), "Alpha")
	assert.Contains(t, buf.String(), "Bravo")
}

func TestMultiContinuesPastFailures(t *testing.T) {
	failing := &failingNotifier{}
	w := &fakeWriter{}
	m := NewMulti(failing, NewKafkaNotifierWithWriter(w, "odds-changes", logger.Discard()))

	err := m.Notify(context.Background(), sampleChanges())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failing")
	assert.Len(t, w.msgs, 2, "later notifiers still receive changes")

	// nothing to deliver is not an error and reaches no notifier
	require.NoError(t, m.Notify(context.Background(), nil))
	assert.Equal(t, 1, failing.calls)

	assert.NoError(t, m.Close())
}
