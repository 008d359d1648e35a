package serve

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"blurcam/video"
)

const (
	// Time allowed to write message to the client
	writeWait  = 10 * time.Second
	pingPeriod = 10 * time.Second

	// Detections queued per client before they are dropped.
	clientBacklog = 32
)

// DetectionMessage is the JSON pushed to websocket clients for each region.
type DetectionMessage struct {
	Session   string
	Seq       uint64
	Timestamp int64

	X, Y, Width, Height int
}

func toMessage(d video.Detection) *DetectionMessage {
	return &DetectionMessage{
		Session:   d.Session,
		Seq:       d.Seq,
		Timestamp: d.Time.UnixNano() / int64(time.Millisecond),
		X:         d.Region.X,
		Y:         d.Region.Y,
		Width:     d.Region.Width,
		Height:    d.Region.Height,
	}
}

// DetectionFeed streams detections to websocket clients.
type DetectionFeed struct {
	upgrader websocket.Upgrader
	cs       map[chan *DetectionMessage]bool
	addc     chan chan *DetectionMessage
	delc     chan chan *DetectionMessage
	notify   chan *DetectionMessage
	countc   chan chan int
}

func NewDetectionFeed() *DetectionFeed {
	m := &DetectionFeed{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		cs:     make(map[chan *DetectionMessage]bool),
		addc:   make(chan chan *DetectionMessage),
		delc:   make(chan chan *DetectionMessage),
		notify: make(chan *DetectionMessage, clientBacklog),
		countc: make(chan chan int),
	}
	go func() {
		for {
			select {
			case c := <-m.addc:
				m.cs[c] = true
			case c := <-m.delc:
				delete(m.cs, c)
			case c := <-m.countc:
				c <- len(m.cs)
			case d := <-m.notify:
				for k := range m.cs {
					select {
					case k <- d:
					default:
						// Slow client; it will miss this detection.
					}
				}
			}
		}
	}()
	return m
}

// MotionDetected implements video.Listener. It never blocks the pipeline.
func (m *DetectionFeed) MotionDetected(d video.Detection) {
	select {
	case m.notify <- toMessage(d):
	default:
		log.Warnf("Detection feed backlog full, dropping frame %d", d.Seq)
	}
}

// Clients returns the number of connected websocket clients.
func (m *DetectionFeed) Clients() int {
	c := make(chan int)
	m.countc <- c
	return <-c
}

func (m *DetectionFeed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		if _, ok := err.(websocket.HandshakeError); !ok {
			log.WithField("addr", r.RemoteAddr).Errorf("Websocket handshake failed for detection feed: %v", err)
		}
		return
	}
	go m.serve(ws)
}

func (m *DetectionFeed) serve(ws *websocket.Conn) {
	clog := log.WithField("addr", ws.RemoteAddr())
	clog.Info("connected to detection feed")
	defer func() {
		ws.Close()
		clog.Info("disconnected from detection feed")
	}()
	pingTicker := time.NewTicker(pingPeriod)
	defer pingTicker.Stop()

	notifyc := make(chan *DetectionMessage, clientBacklog)
	m.addc <- notifyc
	defer func() { m.delc <- notifyc }()

	// Even though we don't care about incoming messages, we need to read from
	// the socket in order to process control messages.
	closed := make(chan bool)
	go func() {
		defer close(closed)
		for {
			if _, _, err := ws.NextReader(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case d := <-notifyc:
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteJSON(d); err != nil {
				return
			}
		case <-pingTicker.C:
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.PingMessage, []byte{}); err != nil {
				return
			}
		}
	}
}
