package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPublisher struct {
	err      error
	subjects []string
}

func (s *stubPublisher) Publish(_ context.Context, subject string, _ interface{}) error {
	s.subjects = append(s.subjects, subject)
	return s.err
}

func TestInstrumentedPublisherCountsOutcomes(t *testing.T) {
	m := NewMetricsManager("garala-test")

	ok := InstrumentPublisher(&stubPublisher{}, m)
	require.NoError(t, ok.Publish(context.Background(), "garala.message.sent", nil))
	require.NoError(t, ok.Publish(context.Background(), "garala.message.sent", nil))

	failing := InstrumentPublisher(&stubPublisher{err: errors.New("nats down")}, m)
	assert.Error(t, failing.Publish(context.Background(), "garala.review.created", nil))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.DomainEventsTotal.WithLabelValues("garala.message.sent", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DomainEventsTotal.WithLabelValues("garala.review.created", "error")))
}

func TestLiveSubjectsShareOneSeries(t *testing.T) {
	m := NewMetricsManager("garala-test")
	p := InstrumentPublisher(&stubPublisher{}, m)
	for i := 0; i < 50; i++ {
		require.NoError(t, p.Publish(context.Background(), fmt.Sprintf("garala.conversations.c%d.messages", i), nil))
	}

	assert.Equal(t, 1, testutil.CollectAndCount(m.DomainEventsTotal))
	assert.Equal(t, 50.0, testutil.ToFloat64(m.DomainEventsTotal.WithLabelValues("garala.conversations.*.messages", "ok")))
	assert.Equal(t, "garala.message.sent", subjectLabel("garala.message.sent"))
}

func TestObserveRequest(t *testing.T) {
	m := NewMetricsManager("garala-test")
	m.ObserveRequest(http.MethodGet, "/api/listings", http.StatusOK, 0.02)
	m.ObserveRequest(http.MethodGet, "/api/listings", http.StatusNoContent, 0.01)
	m.ObserveRequest(http.MethodGet, "/api/listings", http.StatusNotFound, 0.01)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/api/listings", "2xx")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/api/listings", "4xx")))
}

func TestMetricsServerExposesRegistry(t *testing.T) {
	m := NewMetricsManager("garala-test")
	m.LiveFeedConnections.Inc()

	srv := NewMetricsServer("0", m.Registry)
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "garala_test_live_feed_connections 1")
}
