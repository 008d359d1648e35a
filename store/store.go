// Package store persists motion detections to MySQL through gorm.
package store

import (
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"blurcam/video"
)

// DetectionRecord is one annotated motion region.
type DetectionRecord struct {
	gorm.Model

	Session    string `gorm:"size:36;index"`
	Seq        uint64
	DetectedAt time.Time `gorm:"index"`

	X, Y          int
	Width, Height int
}

// Open connects to MySQL, e.g. "user:pass@tcp(127.0.0.1:3306)/blurcam?parseTime=true".
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}
	return db, nil
}

// DetectionLog writes detections in the background so the annotation stage
// never waits on the database.
type DetectionLog struct {
	db *gorm.DB

	c       chan *DetectionRecord
	close   chan chan bool
	written int
	dropped int64
}

func NewDetectionLog(db *gorm.DB) (*DetectionLog, error) {
	if err := db.AutoMigrate(&DetectionRecord{}); err != nil {
		return nil, errors.Wrap(err, "failed to migrate detection records")
	}
	return newDetectionLog(db), nil
}

func newDetectionLog(db *gorm.DB) *DetectionLog {
	l := &DetectionLog{
		db:    db,
		c:     make(chan *DetectionRecord, 256),
		close: make(chan chan bool),
	}
	go l.loop()
	return l
}

func (l *DetectionLog) loop() {
	for {
		select {
		case r := <-l.c:
			l.write(r)
		case cc := <-l.close:
			// Flush what is already queued.
			for len(l.c) > 0 {
				l.write(<-l.c)
			}
			log.Infof("Detection log closed, %d records written, %d dropped", l.written, atomic.LoadInt64(&l.dropped))
			cc <- true
			return
		}
	}
}

func (l *DetectionLog) write(r *DetectionRecord) {
	if err := l.db.Create(r).Error; err != nil {
		log.Errorf("Failed to store detection for frame %d: %v", r.Seq, err)
		return
	}
	l.written++
}

// MotionDetected implements video.Listener.
func (l *DetectionLog) MotionDetected(d video.Detection) {
	r := &DetectionRecord{
		Session:    d.Session,
		Seq:        d.Seq,
		DetectedAt: d.Time,
		X:          d.Region.X,
		Y:          d.Region.Y,
		Width:      d.Region.Width,
		Height:     d.Region.Height,
	}
	select {
	case l.c <- r:
	default:
		atomic.AddInt64(&l.dropped, 1)
		log.Warnf("Detection log backlog full, dropping detection for frame %d", d.Seq)
	}
}

// Recent returns the newest detections first.
func (l *DetectionLog) Recent(limit int) ([]DetectionRecord, error) {
	var rs []DetectionRecord
	err := l.db.Order("detected_at desc").Limit(limit).Find(&rs).Error
	return rs, err
}

func (l *DetectionLog) Close() {
	c := make(chan bool)
	l.close <- c
	<-c
}
