// Package serve hosts the web frontend: the MJPEG stream, the live detection
// feed, web push endpoints and metrics.
package serve

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"blurcam/notify"
	"blurcam/video/sink"
)

type Options struct {
	Port     int
	MJPEG    *sink.MJPEGServer
	Feed     *DetectionFeed
	WebPush  *notify.WebPush
	Registry *prometheus.Registry
}

// NewHandler builds the routes for every configured component.
func NewHandler(opts Options) http.Handler {
	mux := http.NewServeMux()
	if opts.MJPEG != nil {
		mux.Handle("/mjpeg", opts.MJPEG)
	}
	if opts.Feed != nil {
		mux.Handle("/events", opts.Feed)
	}
	if opts.WebPush != nil {
		opts.WebPush.RegisterHandlers(mux)
	}
	if opts.Registry != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(opts.Registry, promhttp.HandlerOpts{}))
	}
	mux.Handle("/", NewFrontendServer())
	return handlers.CombinedLoggingHandler(log.StandardLogger().WriterLevel(log.DebugLevel), mux)
}

// Run serves until the context is done.
func Run(ctx context.Context, opts Options) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", opts.Port),
		Handler: NewHandler(opts),
	}
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			// Streaming clients never go idle on their own.
			srv.Close()
		}
	}()
	log.Infof("Hosting web frontend on port %d", opts.Port)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}
