package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"MarketScreener/internal/model"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func decode(t *testing.T, msg kafka.Message) ScanEvent {
	t.Helper()
	var e ScanEvent
	require.NoError(t, json.Unmarshal(msg.Value, &e))
	return e
}

func TestDeliver_Completed(t *testing.T) {
	w := &fakeWriter{}
	p := NewProducerWithWriter(w, "screener.scans")
	finished := time.Date(2024, 5, 3, 21, 0, 0, 0, time.UTC)

	res := model.ScanResult{
		Status:     model.ScanCompleted,
		Scanned:    3,
		FinishedAt: finished,
		Report: &model.ScreenReport{
			Records: []model.ScreenRecord{
				{Symbol: "INTC", Status: model.Oversold, Indicators: model.IndicatorSet{RSI: 22.5}},
				{Symbol: "AAPL", Status: model.Neutral},
				{Symbol: "NVDA", Status: model.Overbought, Indicators: model.IndicatorSet{RSI: 81}},
			},
			Summary: model.Summary{Oversold: 1, Neutral: 1, Overbought: 1, Total: 3},
		},
	}
	require.NoError(t, p.Deliver(context.Background(), res))
	require.Len(t, w.msgs, 3)

	head := decode(t, w.msgs[0])
	assert.Equal(t, "scan", string(w.msgs[0].Key))
	assert.Equal(t, EventScanCompleted, head.EventType)
	require.NotNil(t, head.Summary)
	assert.Equal(t, 3, head.Summary.Total)
	assert.True(t, finished.Equal(head.Timestamp))

	flagged := decode(t, w.msgs[1])
	assert.Equal(t, "INTC", string(w.msgs[1].Key))
	assert.Equal(t, EventTickerFlagged, flagged.EventType)
	require.NotNil(t, flagged.Record)
	assert.Equal(t, 22.5, flagged.Record.Indicators.RSI)
	assert.Equal(t, "NVDA", decode(t, w.msgs[2]).Symbol)
}

func TestDeliver_EmptyAndFailed(t *testing.T) {
	w := &fakeWriter{}
	p := NewProducerWithWriter(w, "t")

	require.NoError(t, p.Deliver(context.Background(), model.ScanResult{Status: model.ScanEmpty, Scanned: 10}))
	require.NoError(t, p.Deliver(context.Background(), model.ScanResult{Status: model.ScanFailed, Error: "boom"}))
	require.Len(t, w.msgs, 2)

	assert.Equal(t, EventScanEmpty, decode(t, w.msgs[0]).EventType)
	failed := decode(t, w.msgs[1])
	assert.Equal(t, EventScanFailed, failed.EventType)
	assert.Equal(t, "boom", failed.Error)
	assert.Nil(t, failed.Summary)
}

func TestDeliver_WriteError(t *testing.T) {
	p := NewProducerWithWriter(&fakeWriter{err: errors.New("broker down")}, "t")
	err := p.Deliver(context.Background(), model.ScanResult{Status: model.ScanEmpty})
	assert.ErrorContains(t, err, "broker down")
}

func TestClose(t *testing.T) {
	w := &fakeWriter{}
	require.NoError(t, NewProducerWithWriter(w, "t").Close())
	assert.True(t, w.closed)
}

func TestProducer_Live(t *testing.T) {
	brokers := os.Getenv("KAFKA_BROKERS")
	if brokers == "" {
		t.Skip("KAFKA_BROKERS not set")
	}
	p := NewProducer(strings.Split(brokers, ","), "screener-test")
	defer p.Close()

	w := p.writer.(*kafka.Writer)
	w.AllowAutoTopicCreation = true

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	assert.NoError(t, p.Deliver(ctx, model.ScanResult{Status: model.ScanEmpty, FinishedAt: time.Now()}))
}
