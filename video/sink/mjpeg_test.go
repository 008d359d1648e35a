package sink

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestMJPEGServerErrors(t *testing.T) {
	s := NewMJPEGServer()
	srv := httptest.NewServer(s)
	defer srv.Close()

	tests := []struct {
		name  string
		query string
		want  int
	}{
		{"missing name", "", http.StatusBadRequest},
		{"unknown stream", "?name=nope", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Get(srv.URL + tt.query)
			if err != nil {
				t.Fatal(err)
			}
			resp.Body.Close()
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}
}

func TestMJPEGStreamDeliversFrames(t *testing.T) {
	s := NewMJPEGServer()
	stream := s.NewStream("default")
	defer stream.Close()
	srv := httptest.NewServer(s)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, "GET", srv.URL+"?name=default", nil)

	stop := make(chan bool)
	defer close(stop)
	go func() {
		f := grayFrame(1, time.Now(), 200)
		defer f.Close()
		for {
			select {
			case <-stop:
				return
			case <-time.After(10 * time.Millisecond):
				stream.Put(f)
			}
		}
	}()

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "multipart/x-mixed-replace") {
		t.Errorf("Content-Type = %v", ct)
	}

	r := bufio.NewReader(resp.Body)
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("reading stream: %v", err)
		}
		if strings.HasPrefix(line, "Content-Type: image/jpeg") {
			return
		}
	}
}
