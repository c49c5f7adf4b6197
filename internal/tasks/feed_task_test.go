package tasks

import (
	"context"
	"errors"
	"testing"
	"time"

	"outside/internal/aidx"
	"outside/internal/feed"
	"outside/internal/models"
	"outside/internal/sink"
	"outside/internal/tracker"

	"github.com/facebookgo/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubSource returns canned bytes, an error, or blocks until the context ends
type stubSource struct {
	body  []byte
	err   error
	block bool
	calls int
}

func (s *stubSource) Fetch(ctx context.Context) ([]byte, error) {
	s.calls++
	if s.block {
		<-ctx.Done()
		return nil, &feed.FetchError{Source: "stub", Err: ctx.Err()}
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.body, nil
}

// stubDecoder returns a fixed snapshot
type stubDecoder struct {
	snap *Snapshot
	err  error
}

func (d *stubDecoder) Decode(body []byte, fetchedAt time.Time) (*Snapshot, error) {
	return d.snap, d.err
}

func testLeg(id string, relevant time.Time, inbound bool) models.Leg {
	return models.Leg{
		ID:          id,
		Carrier:     "AA",
		Number:      "1",
		Origin:      models.AirportRef{Code: "BOS"},
		Destination: models.AirportRef{Code: "PHL"},
		Scheduled:   relevant,
		Inbound:     inbound,
	}
}

func newTestTask(t *testing.T, source feed.Source, decoder Decoder) (*FeedTask, *sink.Queue, chan *models.PollReport) {
	t.Helper()
	out := sink.New()
	reports := make(chan *models.PollReport, 10)
	tr := tracker.New(tracker.Config{Name: "aidx", RequireInbound: true, Clock: clock.NewMock()}, out)

	task := NewFeedTask(FeedTaskConfig{
		Name:          "aidx",
		Source:        source,
		Decoder:       decoder,
		Tracker:       tr,
		Sink:          out,
		Reports:       reports,
		Interval:      5 * time.Minute,
		FetchTimeout:  50 * time.Millisecond,
		LoadedMessage: "Air client loaded",
	})
	return task, out, reports
}

func TestFeedTask_Run(t *testing.T) {
	snapTime := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	decoder := &stubDecoder{snap: &Snapshot{
		Meta: models.SnapshotMeta{FetchedAt: snapTime, TransactionID: "txn-1"},
		Legs: []models.Leg{
			testLeg("future", snapTime.Add(30*time.Minute), true),
			testLeg("past", snapTime.Add(-5*time.Minute), true),
			testLeg("outbound", snapTime.Add(time.Hour), false),
		},
		Skipped: []error{&models.MalformedFeedError{LegID: "bad", Field: "id"}},
	}}

	task, out, reports := newTestTask(t, &stubSource{body: []byte("doc")}, decoder)
	assert.Equal(t, "aidx", task.Name())
	assert.Equal(t, 5*time.Minute, task.Interval())

	require.NoError(t, task.Run(context.Background()))

	var report *models.PollReport
	select {
	case report = <-reports:
	default:
		t.Fatal("no poll report sent")
	}
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, "aidx", report.Feed)
	assert.Equal(t, "txn-1", report.TransactionID)
	assert.Equal(t, 3, report.Records)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 1, report.Scheduled)
	assert.Equal(t, 2, report.Finalized)
	assert.False(t, report.Failed())

	// Loaded message is pushed once
	require.NoError(t, task.Run(context.Background()))
	assert.Equal(t, 1, out.Len())
	msg, err := out.Pop(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Air client loaded", msg)

	status := task.Status()
	assert.Equal(t, int64(2), status.Polls)
	assert.Equal(t, int64(0), status.Failures)
	require.NotNil(t, status.LastReport)
	assert.Equal(t, 1, status.Tracker.Pending)
	assert.Equal(t, 2, status.Tracker.Finalized)
}

func TestFeedTask_LoadedMessageBeforeDueTimers(t *testing.T) {
	// Snapshot time is long past, so a leg due at the snapshot time fires at once
	snapTime := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	decoder := &stubDecoder{snap: &Snapshot{
		Meta: models.SnapshotMeta{FetchedAt: snapTime},
		Legs: []models.Leg{
			testLeg("due-1", snapTime, true),
			testLeg("due-2", snapTime, true),
		},
	}}

	out := sink.New()
	tr := tracker.New(tracker.Config{
		Name:           "aidx",
		RequireInbound: true,
		Clock:          clock.New(),
		Format:         func(l *models.Leg) string { return l.ID },
	}, out)
	defer tr.Stop()

	task := NewFeedTask(FeedTaskConfig{
		Name:          "aidx",
		Source:        &stubSource{body: []byte("doc")},
		Decoder:       decoder,
		Tracker:       tr,
		Sink:          out,
		Interval:      5 * time.Minute,
		FetchTimeout:  time.Second,
		LoadedMessage: "Air client loaded",
	})
	require.NoError(t, task.Run(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	var got []string
	for i := 0; i < 3; i++ {
		msg, err := out.Pop(ctx)
		require.NoError(t, err)
		got = append(got, msg)
	}
	assert.Equal(t, "Air client loaded", got[0])
	assert.ElementsMatch(t, []string{"due-1", "due-2"}, got[1:])
}

func TestFeedTask_FetchErrorSkipsPoll(t *testing.T) {
	source := &stubSource{err: &feed.FetchError{Source: "http://feed", StatusCode: 503}}
	decoder := &stubDecoder{snap: &Snapshot{}}
	task, out, reports := newTestTask(t, source, decoder)

	err := task.Run(context.Background())
	require.Error(t, err)

	var fetchErr *feed.FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, 503, fetchErr.StatusCode)

	report := <-reports
	assert.True(t, report.Failed())
	assert.Equal(t, 0, out.Len())

	status := task.Status()
	assert.Equal(t, int64(1), status.Failures)
	assert.Equal(t, 0, status.Tracker.Pending)
}

func TestFeedTask_MalformedDocumentSkipsPoll(t *testing.T) {
	decoder := &stubDecoder{err: &models.MalformedFeedError{Field: "TimeStamp"}}
	task, _, _ := newTestTask(t, &stubSource{body: []byte("<bad")}, decoder)

	err := task.Run(context.Background())
	var malformed *models.MalformedFeedError
	require.True(t, errors.As(err, &malformed))
	assert.Equal(t, int64(1), task.Status().Failures)
}

func TestFeedTask_FetchTimeout(t *testing.T) {
	task, _, _ := newTestTask(t, &stubSource{block: true}, &stubDecoder{})

	start := time.Now()
	err := task.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestFeedTask_FullReportChannelDoesNotBlock(t *testing.T) {
	out := sink.New()
	tr := tracker.New(tracker.Config{Name: "live", Clock: clock.NewMock()}, out)
	reports := make(chan *models.PollReport)

	task := NewFeedTask(FeedTaskConfig{
		Name:         "live",
		Source:       &stubSource{body: []byte("x")},
		Decoder:      &stubDecoder{snap: &Snapshot{}},
		Tracker:      tr,
		Sink:         out,
		Reports:      reports,
		Interval:     8 * time.Second,
		FetchTimeout: time.Second,
	})

	done := make(chan error, 1)
	go func() { done <- task.Run(context.Background()) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run blocked on report channel")
	}
	// No loaded message configured
	assert.Equal(t, 0, out.Len())
}

const aidxDoc = `<?xml version="1.0" encoding="UTF-8"?>
<IATA_AIDX_FlightLegRS xmlns="http://www.iata.org/IATA/2007/00" xmlns:ai="http://www.airit.com/aidx"
    TimeStamp="2024-05-01T12:00:00Z" TransactionIdentifier="txn-7">
  <FlightLeg>
    <LegIdentifier>
      <Airline>AA</Airline>
      <FlightNumber>1234</FlightNumber>
      <DepartureAirport>BOS</DepartureAirport>
      <ArrivalAirport>PHL</ArrivalAirport>
      <OriginDate>2024-05-01</OriginDate>
      <ai:InternalId>leg-1</ai:InternalId>
    </LegIdentifier>
    <LegData>
      <PublicStatus>ON</PublicStatus>
      <ai:InternalStatus>SCH</ai:InternalStatus>
      <OperationTime OperationQualifier="ONB" TimeType="SCT">2024-05-01T12:30:00Z</OperationTime>
      <ai:AirportInfo>
        <ai:Airport code="BOS"><ai:AirportName>Boston</ai:AirportName></ai:Airport>
      </ai:AirportInfo>
    </LegData>
  </FlightLeg>
</IATA_AIDX_FlightLegRS>`

func TestAIDXDecoder(t *testing.T) {
	decoder := &AIDXDecoder{Parser: aidx.NewParser("PHL", time.UTC)}

	snap, err := decoder.Decode([]byte(aidxDoc), time.Now())
	require.NoError(t, err)

	assert.Equal(t, "txn-7", snap.Meta.TransactionID)
	assert.True(t, snap.Meta.FetchedAt.Equal(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)))
	require.Len(t, snap.Legs, 1)
	assert.Equal(t, "leg-1", snap.Legs[0].ID)
	assert.True(t, snap.Legs[0].Inbound)
	assert.Equal(t, "Boston", snap.Legs[0].Origin.Name)

	_, err = decoder.Decode([]byte("not xml"), time.Now())
	assert.Error(t, err)
}

func TestLiveDecoder_Malformed(t *testing.T) {
	decoder := &LiveDecoder{Home: "PHL"}

	_, err := decoder.Decode([]byte{0x00, 0x00}, time.Now())
	var malformed *models.MalformedFeedError
	assert.True(t, errors.As(err, &malformed))
}

func TestLiveDecoder_Empty(t *testing.T) {
	decoder := &LiveDecoder{Home: "PHL"}
	seen := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	// A data frame with an empty message: no flights in view
	snap, err := decoder.Decode([]byte{0x00, 0x00, 0x00, 0x00, 0x00}, seen)
	require.NoError(t, err)
	assert.Empty(t, snap.Legs)
	assert.Equal(t, seen, snap.Meta.FetchedAt)
	assert.NotEmpty(t, snap.Meta.TransactionID)
}
