package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/smokyabdulrahman/prayer-companion/internal/clock"
	"github.com/smokyabdulrahman/prayer-companion/internal/prayer"
)

var asr = prayer.NextPrayer{Name: prayer.Asr, Time: time.Date(2026, 3, 1, 15, 45, 0, 0, time.UTC)}

func TestNewDescriptor(t *testing.T) {
	d := NewDescriptor(asr, 15*time.Minute, "15:04")
	if _, err := uuid.Parse(d.ID); err != nil {
		t.Errorf("ID %q is not a uuid: %v", d.ID, err)
	}
	if d.Prayer != prayer.Asr || !d.Time.Equal(asr.Time) {
		t.Errorf("descriptor = %+v", d)
	}
	if want := asr.Time.Add(-15 * time.Minute); !d.NotifyAt.Equal(want) {
		t.Errorf("NotifyAt = %v, want %v", d.NotifyAt, want)
	}
	if d.Title != "Time for Asr" {
		t.Errorf("Title = %q", d.Title)
	}
	if d.Body != "Asr prayer in 15 minutes (15:45)" {
		t.Errorf("Body = %q", d.Body)
	}

	d = NewDescriptor(asr, 0, "3:04 PM")
	if d.Body != "Asr prayer at 3:45 PM" || !d.NotifyAt.Equal(asr.Time) {
		t.Errorf("no-lead descriptor = %+v", d)
	}
	if other := NewDescriptor(asr, 0, "15:04"); other.ID == d.ID {
		t.Error("descriptor IDs should be unique")
	}
}

// ---------------------------------------------------------------------------
// MQTT
// ---------------------------------------------------------------------------

type fakeToken struct {
	done chan struct{}
	err  error
}

func doneToken(err error) *fakeToken {
	t := &fakeToken{done: make(chan struct{}), err: err}
	close(t.done)
	return t
}

func (t *fakeToken) Wait() bool                     { <-t.done; return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{}          { return t.done }
func (t *fakeToken) Error() error                   { return t.err }

type published struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

type fakeClient struct {
	mqtt.Client
	token        mqtt.Token
	sent         []published
	disconnected bool
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.sent = append(c.sent, published{topic, qos, retained, payload.([]byte)})
	return c.token
}

func (c *fakeClient) Disconnect(uint) { c.disconnected = true }

func TestMQTTPublisher_Publish(t *testing.T) {
	client := &fakeClient{token: doneToken(nil)}
	p := NewMQTTPublisher(client, "prayer/next")

	d := NewDescriptor(asr, 0, "15:04")
	if err := p.Publish(context.Background(), d); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(client.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(client.sent))
	}
	msg := client.sent[0]
	if msg.topic != "prayer/next" || !msg.retained || msg.qos != 1 {
		t.Errorf("message = %+v", msg)
	}

	var got Descriptor
	if err := json.Unmarshal(msg.payload, &got); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if got.ID != d.ID || got.Prayer != prayer.Asr || !got.Time.Equal(asr.Time) {
		t.Errorf("payload = %+v", got)
	}

	p.Close()
	if !client.disconnected {
		t.Error("Close should disconnect the client")
	}
}

func TestMQTTPublisher_Errors(t *testing.T) {
	brokerErr := errors.New("not connected")
	p := NewMQTTPublisher(&fakeClient{token: doneToken(brokerErr)}, "t")
	if err := p.Publish(context.Background(), NewDescriptor(asr, 0, "15:04")); !errors.Is(err, brokerErr) {
		t.Errorf("err = %v, want wrapped broker error", err)
	}

	pending := &fakeToken{done: make(chan struct{})}
	p = NewMQTTPublisher(&fakeClient{token: pending}, "t")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.Publish(ctx, NewDescriptor(asr, 0, "15:04")); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

// ---------------------------------------------------------------------------
// Announcer
// ---------------------------------------------------------------------------

type recorder struct {
	mu    sync.Mutex
	fail  int
	calls int
	out   chan Descriptor
}

func (r *recorder) Publish(_ context.Context, d Descriptor) error {
	r.mu.Lock()
	r.calls++
	fail := r.calls <= r.fail
	r.mu.Unlock()
	if fail {
		return errors.New("broker down")
	}
	r.out <- d
	return nil
}

func exampleTimings(t *testing.T) prayer.DailyTimings {
	t.Helper()
	timings, err := prayer.NewDailyTimings(map[prayer.Name]string{
		prayer.Fajr: "05:00", prayer.Sunrise: "06:15", prayer.Dhuhr: "12:30",
		prayer.Asr: "15:45", prayer.Maghrib: "18:20", prayer.Isha: "19:40",
	})
	if err != nil {
		t.Fatal(err)
	}
	return timings
}

func waitTickers(t *testing.T, clk *clock.Fake, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for clk.Tickers() != n {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %d tickers, have %d", n, clk.Tickers())
		}
		time.Sleep(time.Millisecond)
	}
}

func nextDescriptor(t *testing.T, ch <-chan Descriptor) Descriptor {
	t.Helper()
	select {
	case d := <-ch:
		return d
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for descriptor")
		return Descriptor{}
	}
}

func startAnnouncer(t *testing.T, a *Announcer) (stop func() error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- a.Run(ctx) }()
	return func() error {
		cancel()
		return <-errc
	}
}

func TestAnnouncer_PublishesEachTarget(t *testing.T) {
	clk := clock.NewFake(time.Date(2026, 3, 1, 15, 44, 58, 0, time.UTC))
	timings := exampleTimings(t)
	rec := &recorder{out: make(chan Descriptor, 4)}

	stop := startAnnouncer(t, &Announcer{
		Clock:     clk,
		Timings:   func(context.Context, time.Time) (prayer.DailyTimings, error) { return timings, nil },
		Publisher: rec,
		Log:       zerolog.Nop(),
	})

	if d := nextDescriptor(t, rec.out); d.Prayer != prayer.Asr {
		t.Fatalf("first announcement = %s, want Asr", d.Prayer)
	}
	waitTickers(t, clk, 1)

	// Reaching Asr exactly counts as passed.
	clk.Advance(2 * time.Second)
	if d := nextDescriptor(t, rec.out); d.Prayer != prayer.Maghrib {
		t.Fatalf("second announcement = %s, want Maghrib", d.Prayer)
	}

	if err := stop(); !errors.Is(err, context.Canceled) {
		t.Errorf("Run returned %v, want context.Canceled", err)
	}
	if clk.Tickers() != 0 {
		t.Errorf("ticker leaked: %d running", clk.Tickers())
	}
}

func TestAnnouncer_RetriesFailedLookup(t *testing.T) {
	clk := clock.NewFake(time.Date(2026, 3, 1, 13, 0, 0, 0, time.UTC))
	timings := exampleTimings(t)
	rec := &recorder{out: make(chan Descriptor, 4)}

	var mu sync.Mutex
	lookups := 0
	stop := startAnnouncer(t, &Announcer{
		Clock: clk,
		Timings: func(context.Context, time.Time) (prayer.DailyTimings, error) {
			mu.Lock()
			defer mu.Unlock()
			lookups++
			if lookups == 1 {
				return nil, errors.New("offline")
			}
			return timings, nil
		},
		Publisher: rec,
		Retry:     30 * time.Second,
		Log:       zerolog.Nop(),
	})
	defer stop()

	waitTickers(t, clk, 1)
	clk.Advance(30 * time.Second)
	if d := nextDescriptor(t, rec.out); d.Prayer != prayer.Asr {
		t.Fatalf("announcement = %s, want Asr", d.Prayer)
	}
	mu.Lock()
	defer mu.Unlock()
	if lookups != 2 {
		t.Errorf("lookups = %d, want 2", lookups)
	}
}

func TestAnnouncer_RetriesFailedPublish(t *testing.T) {
	clk := clock.NewFake(time.Date(2026, 3, 1, 13, 0, 0, 0, time.UTC))
	timings := exampleTimings(t)
	rec := &recorder{fail: 1, out: make(chan Descriptor, 4)}

	stop := startAnnouncer(t, &Announcer{
		Clock:     clk,
		Timings:   func(context.Context, time.Time) (prayer.DailyTimings, error) { return timings, nil },
		Publisher: rec,
		Retry:     10 * time.Second,
		Log:       zerolog.Nop(),
	})
	defer stop()

	waitTickers(t, clk, 1)
	clk.Advance(10 * time.Second)
	if d := nextDescriptor(t, rec.out); d.Prayer != prayer.Asr {
		t.Fatalf("announcement = %s, want Asr", d.Prayer)
	}
}
