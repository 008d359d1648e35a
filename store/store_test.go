package store

import (
	"os"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"blurcam/video"
	"blurcam/video/process"
)

// dryRunDB builds statements without ever connecting to a server.
func dryRunDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(mysql.New(mysql.Config{
		DSN:                       "blurcam:blurcam@tcp(127.0.0.1:1)/blurcam?parseTime=true",
		SkipInitializeWithVersion: true,
	}), &gorm.Config{DryRun: true, DisableAutomaticPing: true})
	if err != nil {
		t.Fatalf("gorm.Open: %v", err)
	}
	return db
}

func testDetection(seq uint64) video.Detection {
	return video.Detection{
		Session: "7d3f5a0e-9d43-4b8f-8f57-3c2c8f0f4b11",
		Seq:     seq,
		Time:    time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC),
		Region:  process.Region{X: 98, Y: 98, Width: 34, Height: 34},
	}
}

func TestDetectionRecordInsert(t *testing.T) {
	db := dryRunDB(t)
	r := &DetectionRecord{Session: "s", Seq: 4, X: 1, Y: 2, Width: 3, Height: 4}
	stmt := db.Session(&gorm.Session{DryRun: true}).Create(r).Statement
	sql := stmt.SQL.String()
	if !strings.HasPrefix(sql, "INSERT INTO `detection_records`") {
		t.Errorf("SQL = %v", sql)
	}
	for _, col := range []string{"`session`", "`seq`", "`detected_at`", "`width`", "`height`"} {
		if !strings.Contains(sql, col) {
			t.Errorf("SQL %v missing column %v", sql, col)
		}
	}
}

func TestDetectionLogWritesInBackground(t *testing.T) {
	l := newDetectionLog(dryRunDB(t))
	for i := 0; i < 10; i++ {
		l.MotionDetected(testDetection(uint64(i)))
	}
	l.Close()
	if l.written != 10 {
		t.Errorf("written = %d, want 10", l.written)
	}
}

// Runs against a real server when BLURCAM_TEST_MYSQL_DSN is set.
func TestDetectionLogMySQL(t *testing.T) {
	dsn := os.Getenv("BLURCAM_TEST_MYSQL_DSN")
	if dsn == "" {
		t.Skip("BLURCAM_TEST_MYSQL_DSN not set")
	}
	db, err := Open(dsn)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	l, err := NewDetectionLog(db)
	if err != nil {
		t.Fatalf("NewDetectionLog: %v", err)
	}
	d := testDetection(99)
	d.Session = "mysql-test"
	l.MotionDetected(d)
	l.Close()

	var r DetectionRecord
	if err := db.Where("session = ?", "mysql-test").Last(&r).Error; err != nil {
		t.Fatalf("query: %v", err)
	}
	if r.Seq != 99 || r.Width != 34 {
		t.Errorf("record = %+v", r)
	}
	recent, err := l.Recent(5)
	if err != nil || len(recent) == 0 {
		t.Errorf("Recent = %v, %v", recent, err)
	}
	db.Unscoped().Where("session = ?", "mysql-test").Delete(&DetectionRecord{})
}
