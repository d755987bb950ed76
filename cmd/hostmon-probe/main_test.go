package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"hostmon/pkg/client"
)

// ProbeTestSuite tests the polling loop
type ProbeTestSuite struct {
	suite.Suite
	hits  atomic.Int32
	agent *httptest.Server
}

// SetupTest runs before each test
func (s *ProbeTestSuite) SetupTest() {
	s.hits.Store(0)
	s.agent = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if s.hits.Add(1)%2 == 0 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"cpu":{"load":{"average":12.5,"per_core":[10,15]}},"memory":{"perc_used":25}}`))
	}))
}

// TearDownTest runs after each test
func (s *ProbeTestSuite) TearDownTest() {
	s.agent.Close()
}

// TestPollCountsFailures tests that every sample is attempted and failures are counted
func (s *ProbeTestSuite) TestPollCountsFailures() {
	agent, err := client.New(s.agent.URL, client.Options{RetryMax: -1})
	s.Require().NoError(err)

	failures := poll(context.Background(), agent, time.Millisecond, 4)

	s.Equal(2, failures)
	s.Equal(int32(4), s.hits.Load())
}

// TestPollStopsOnCancel tests that an unbounded poll ends with its context
func (s *ProbeTestSuite) TestPollStopsOnCancel() {
	agent, err := client.New(s.agent.URL, client.Options{RetryMax: -1})
	s.Require().NoError(err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan int, 1)
	go func() {
		done <- poll(ctx, agent, 5*time.Millisecond, 0)
	}()

	select {
	case <-done:
		s.Positive(s.hits.Load())
	case <-time.After(5 * time.Second):
		s.Fail("poll did not stop after cancellation")
	}
}

// TestProbeSuite runs the probe test suite
func TestProbeSuite(t *testing.T) {
	suite.Run(t, new(ProbeTestSuite))
}
