package notify

import (
	"errors"
	"testing"
	"time"

	"blurcam/video"
	"blurcam/video/process"
)

type chanListener struct {
	c   chan *Notification
	err error
}

func (l *chanListener) Notify(n *Notification) error {
	l.c <- n
	return l.err
}

func detectionAt(ts time.Time, seq uint64) video.Detection {
	return video.Detection{
		Session: "session",
		Seq:     seq,
		Time:    ts,
		Region:  process.Region{X: 1, Y: 2, Width: 30, Height: 40},
	}
}

func expectNotification(t *testing.T, l *chanListener) *Notification {
	t.Helper()
	select {
	case n := <-l.c:
		return n
	case <-time.After(time.Second):
		t.Fatal("expected a notification")
	}
	return nil
}

func expectNone(t *testing.T, l *chanListener) {
	t.Helper()
	select {
	case n := <-l.c:
		t.Fatalf("unexpected notification %+v", n)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestNotifierCooldown(t *testing.T) {
	l := &chanListener{c: make(chan *Notification, 4)}
	n := &Notifier{Listeners: []NotifyListener{l}, HoursStart: 0, HoursEnd: 24, Cooldown: time.Minute}
	t0 := time.Date(2026, 10, 14, 15, 4, 0, 0, time.Local)

	n.MotionDetected(detectionAt(t0, 1))
	got := expectNotification(t, l)
	if got.TimeString != "3:04 PM" || got.Seq != 1 || got.Region.Width != 30 {
		t.Errorf("notification = %+v", got)
	}

	n.MotionDetected(detectionAt(t0.Add(30*time.Second), 2))
	expectNone(t, l)

	n.MotionDetected(detectionAt(t0.Add(2*time.Minute), 3))
	if got := expectNotification(t, l); got.Seq != 3 {
		t.Errorf("Seq = %d, want 3", got.Seq)
	}
}

func TestNotifierQuietHours(t *testing.T) {
	l := &chanListener{c: make(chan *Notification, 4)}
	n := &Notifier{Listeners: []NotifyListener{l}, HoursStart: 6, HoursEnd: 20}

	n.MotionDetected(detectionAt(time.Date(2026, 10, 14, 3, 0, 0, 0, time.Local), 1))
	expectNone(t, l)
	n.MotionDetected(detectionAt(time.Date(2026, 10, 14, 6, 0, 0, 0, time.Local), 2))
	expectNotification(t, l)
	n.MotionDetected(detectionAt(time.Date(2026, 10, 14, 20, 30, 0, 0, time.Local), 3))
	expectNone(t, l)
}

func TestNotifierListenerErrorIsLogged(t *testing.T) {
	l := &chanListener{c: make(chan *Notification, 1), err: errors.New("push service down")}
	n := &Notifier{Listeners: []NotifyListener{l}, HoursEnd: 24}
	n.MotionDetected(detectionAt(time.Now(), 1))
	expectNotification(t, l)
}
