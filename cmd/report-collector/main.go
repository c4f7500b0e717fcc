// Command report-collector accepts sensor hub connections over TCP,
// validates every report line and forwards the valid measurements to MQTT.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sweeney/sensor-hub/internal/collector"
	"github.com/sweeney/sensor-hub/internal/config"
	"github.com/sweeney/sensor-hub/internal/logger"
	"github.com/sweeney/sensor-hub/internal/mqtt"
)

func main() {
	configPath := flag.String("config", "/etc/sensor-hub.yaml", "YAML configuration file")
	logLevel := flag.Int("log", int(logger.LevelInfo), "Log level (0 none, 1 error, 2 warn, 3 info, 4 debug)")
	listen := flag.String("listen", "", "Listen address (overrides collector.listen)")

	flag.Parse()

	l := newLogger(os.Stderr, logger.Level(*logLevel))

	cfg, err := config.Load(*configPath)
	if err != nil {
		l.Fatalf("config: %v", err)
	}
	if *listen != "" {
		cfg.Collector.Listen = *listen
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	if err := run(cfg.Collector, l, sigCh); err != nil {
		l.Fatalf("fatal: %v", err)
	}
}

func newLogger(w io.Writer, level logger.Level) *logger.Logger {
	flags := log.LstdFlags
	if os.Getenv("INVOCATION_ID") != "" {
		flags = 0
	}
	return logger.New(log.New(w, "", flags), level)
}

func run(cfg config.CollectorConfig, l *logger.Logger, sig <-chan os.Signal) error {
	var fwd collector.Forwarder
	if cfg.Broker != "" {
		// No system topic: the collector must not publish a will on the
		// hub's lifecycle topic.
		publisher, err := mqtt.NewRealPublisher(cfg.Broker, "report-collector", mqtt.Topics{}, mqtt.ConnectTimeout, l)
		if err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
		defer publisher.Close()
		fwd = publisher
	} else {
		l.Infof("no broker configured, measurements are only logged")
	}

	c := collector.New(fwd, cfg.Topic, l)
	srv := collector.NewServer(c.Handle, l)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe(cfg.Listen) }()

	select {
	case err := <-errCh:
		return err
	case s := <-sig:
		l.Infof("received %v, shutting down", s)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := srv.Shutdown(ctx)
	<-errCh

	st := c.Stats()
	l.Infof("processed %d valid, %d invalid, %d forwarded", st.Valid, st.Invalid, st.Forwarded)
	return err
}
