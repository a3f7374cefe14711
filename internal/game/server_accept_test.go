package game

import (
	"errors"
	"net"
	"testing"
	"time"
)

type temporaryNetError struct{ msg string }

func (e temporaryNetError) Error() string   { return e.msg }
func (e temporaryNetError) Timeout() bool   { return false }
func (e temporaryNetError) Temporary() bool { return true }

// scriptedListener hands out one queued result per Accept and reports
// net.ErrClosed once the queue is empty.
type scriptedListener struct {
	results []error
}

func (l *scriptedListener) Accept() (net.Conn, error) {
	if len(l.results) == 0 {
		return nil, net.ErrClosed
	}
	err := l.results[0]
	l.results = l.results[1:]
	if err != nil {
		return nil, err
	}
	return newScriptedConn(nil), nil
}

func (l *scriptedListener) Close() error   { return nil }
func (l *scriptedListener) Addr() net.Addr { return fakeAddr("scripted") }

func TestAcceptConnectionsBackoff(t *testing.T) {
	temp := temporaryNetError{msg: "temporary failure"}
	permanent := errors.New("boom")

	cases := []struct {
		name    string
		results []error
		want    error
		handled int
		sleeps  []time.Duration
	}{
		{
			name:    "retries temporary errors",
			results: []error{temp, nil},
			want:    net.ErrClosed,
			handled: 1,
			sleeps:  []time.Duration{acceptBackoffStart},
		},
		{
			name:    "doubles up to the cap",
			results: []error{temp, temp, temp, temp, temp, temp},
			want:    net.ErrClosed,
			sleeps: []time.Duration{
				acceptBackoffStart, 2 * acceptBackoffStart, 4 * acceptBackoffStart,
				8 * acceptBackoffStart, 16 * acceptBackoffStart, acceptBackoffMax,
			},
		},
		{
			name:    "resets after a connection",
			results: []error{temp, temp, nil, temp},
			want:    net.ErrClosed,
			handled: 1,
			sleeps:  []time.Duration{acceptBackoffStart, 2 * acceptBackoffStart, acceptBackoffStart},
		},
		{
			name:    "returns permanent errors",
			results: []error{permanent, nil},
			want:    permanent,
		},
	}

	t.Cleanup(func() { acceptSleep = time.Sleep })
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var sleeps []time.Duration
			acceptSleep = func(d time.Duration) { sleeps = append(sleeps, d) }

			handled := 0
			err := acceptConnections(&scriptedListener{results: tc.results}, func(net.Conn) { handled++ })
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
			if handled != tc.handled {
				t.Fatalf("handled %d connections, want %d", handled, tc.handled)
			}
			if len(sleeps) != len(tc.sleeps) {
				t.Fatalf("sleeps = %v, want %v", sleeps, tc.sleeps)
			}
			for i := range sleeps {
				if sleeps[i] != tc.sleeps[i] {
					t.Fatalf("sleeps = %v, want %v", sleeps, tc.sleeps)
				}
			}
		})
	}
}
