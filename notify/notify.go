package notify

import (
	"sync"
	"time"

	"github.com/davecgh/go-spew/spew"
	log "github.com/sirupsen/logrus"

	"blurcam/video"
	"blurcam/video/process"
)

// Notification is sent to all NotifyListeners registered with Notifier.
type Notification struct {
	TimeString string
	Session    string
	Seq        uint64
	Region     process.Region
}

type NotifyListener interface {
	Notify(n *Notification) error
}

// Notifier turns motion detections into notifications, at most one per
// Cooldown and only within the notification hours.
type Notifier struct {
	Listeners []NotifyListener

	HoursStart, HoursEnd int
	Cooldown             time.Duration

	last time.Time
	l    sync.Mutex
}

// MotionDetected implements video.Listener.
func (n *Notifier) MotionDetected(d video.Detection) {
	n.l.Lock()
	defer n.l.Unlock()

	ts := d.Time
	if !n.last.IsZero() && ts.Sub(n.last) < n.Cooldown {
		// Already notified about this bout of motion.
		return
	}
	n.last = ts

	if ts.Hour() < n.HoursStart || ts.Hour() >= n.HoursEnd {
		log.Infof("Would send notification, but currently in quiet hours.")
		return
	}

	notification := &Notification{
		TimeString: ts.Format("3:04 PM"),
		Session:    d.Session,
		Seq:        d.Seq,
		Region:     d.Region,
	}
	log.Infof("Sending notification: %v", spew.Sdump(notification))
	for _, l := range n.Listeners {
		go func(l NotifyListener) {
			if err := l.Notify(notification); err != nil {
				log.Errorf("Failed to send notification: %v", err)
			}
		}(l)
	}
}
