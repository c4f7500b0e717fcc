// Command sensor-hub samples the distance, climate and motion sensors every
// period and reports over WiFi and the serial console.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sweeney/sensor-hub/internal/config"
	"github.com/sweeney/sensor-hub/internal/console"
	"github.com/sweeney/sensor-hub/internal/gpio"
	"github.com/sweeney/sensor-hub/internal/hub"
	"github.com/sweeney/sensor-hub/internal/logger"
	"github.com/sweeney/sensor-hub/internal/mqtt"
	"github.com/sweeney/sensor-hub/internal/status"
	"github.com/sweeney/sensor-hub/internal/web"
	"github.com/sweeney/sensor-hub/internal/wifi"
)

// StartBanner is written to the console before the first cycle.
const StartBanner = "Starting sensor measurements...\n"

func main() {
	configPath := flag.String("config", "/etc/sensor-hub.yaml", "YAML configuration file")
	logLevel := flag.Int("log", int(logger.LevelInfo), "Log level (0 none, 1 error, 2 warn, 3 info, 4 debug)")
	once := flag.Bool("once", false, "Run a single reporting cycle and exit")

	flag.Parse()

	l := newLogger(os.Stderr, logger.Level(*logLevel))

	cfg, err := config.Load(*configPath)
	if err != nil {
		l.Fatalf("config: %v", err)
	}
	if err := run(cfg, *once, l); err != nil {
		l.Fatalf("fatal: %v", err)
	}
}

// newLogger drops the timestamp when running under systemd, which adds its own.
func newLogger(w io.Writer, level logger.Level) *logger.Logger {
	flags := log.LstdFlags
	if os.Getenv("INVOCATION_ID") != "" {
		flags = 0
	}
	return logger.New(log.New(w, "", flags), level)
}

func run(cfg *config.Config, once bool, l *logger.Logger) error {
	devs, err := openDevices(cfg, l)
	if err != nil {
		return err
	}
	defer devs.Close()

	tracker := status.NewTracker(time.Now(), statusConfig(cfg))
	if devs.network != nil {
		tracker.SetNetwork(&status.NetworkInfo{
			Type:   "wifi",
			Status: "connected",
			SSID:   cfg.WiFi.SSID,
			Peer:   fmt.Sprintf("%s:%d", cfg.WiFi.Host, cfg.WiFi.RemotePort),
		})
	}

	a := &app{
		cfg:     cfg,
		devices: devs,
		tracker: tracker,
		log:     l,
		now:     time.Now,
	}

	if cfg.MQTT.Broker != "" {
		topics := mqtt.Topics{Report: cfg.MQTT.Topic, System: cfg.MQTT.System}
		publisher, err := mqtt.NewRealPublisher(cfg.MQTT.Broker, cfg.MQTT.ClientID, topics, mqtt.ConnectTimeout, l)
		if err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
		defer publisher.Close()
		a.publisher = publisher
		a.mqttStatus = publisher
	}

	if cfg.HTTP.Addr != "" {
		srv := web.New(cfg.HTTP.Addr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				l.Errorf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		l.Infof("http status server listening on %s", cfg.HTTP.Addr)
	}

	if once {
		a.waiter = noWait{}
		return a.runOnce(context.Background())
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	return a.run(context.Background(), sigCh)
}

func statusConfig(cfg *config.Config) status.Config {
	return status.Config{
		PeriodMs:        cfg.Cycle.Period.Milliseconds(),
		DistanceDivisor: cfg.Cycle.DistanceDivisor,
		ConsolePort:     cfg.Console.Port,
		Broker:          cfg.MQTT.Broker,
		HTTPAddr:        cfg.HTTP.Addr,
	}
}

// consoleDevice is the serial console as the hub drives it.
type consoleDevice interface {
	hub.Console
	Start(handler func(b byte)) error
}

// devices are the opened hardware collaborators.
type devices struct {
	console  consoleDevice
	motion   gpio.MotionSource
	distance hub.DistanceSensor
	climate  hub.ClimateSensor
	network  hub.Transmitter // nil when the WiFi uplink is disabled
	closers  []io.Closer
}

// Close releases the devices in reverse order of opening.
func (d *devices) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i].Close()
	}
}

func openDevices(cfg *config.Config, l *logger.Logger) (_ *devices, err error) {
	d := &devices{}
	defer func() {
		if err != nil {
			d.Close()
		}
	}()

	con, err := console.Open(cfg.Console.Port, cfg.Console.Baud, l)
	if err != nil {
		return nil, fmt.Errorf("init console: %w", err)
	}
	d.console = con
	d.closers = append(d.closers, con)

	pir := gpio.NewPIR(cfg.GPIO.Chip, cfg.GPIO.PIR, cfg.GPIO.MotionDebounce)
	d.motion = pir
	d.closers = append(d.closers, pir)

	ranger, err := gpio.NewHCSR04(cfg.GPIO.Chip, cfg.GPIO.Trigger, cfg.GPIO.Echo)
	if err != nil {
		return nil, fmt.Errorf("init distance sensor: %w", err)
	}
	d.distance = ranger
	d.closers = append(d.closers, ranger)

	d.climate = gpio.NewDHT11(cfg.GPIO.Chip, cfg.GPIO.DHT)

	if cfg.WiFi.Port == "" {
		l.Infof("wifi uplink disabled")
		return d, nil
	}

	modem, err := wifi.Open(cfg.WiFi.Port, cfg.WiFi.Baud, l.WithTag("wifi"))
	if err != nil {
		return nil, fmt.Errorf("init wifi: %w", err)
	}
	d.closers = append(d.closers, modem)

	if err := modem.Init(); err != nil {
		return nil, fmt.Errorf("init wifi: %w", err)
	}
	if err := modem.JoinAP(cfg.WiFi.SSID, cfg.WiFi.Passphrase); err != nil {
		return nil, fmt.Errorf("wifi: %w", err)
	}
	onReceive := func(p []byte) {
		l.Infof("peer sent %d bytes: %q", len(p), p)
	}
	if err := modem.CreateTCPConnection(cfg.WiFi.Host, cfg.WiFi.RemotePort, onReceive); err != nil {
		return nil, fmt.Errorf("wifi: connect %s:%d: %w", cfg.WiFi.Host, cfg.WiFi.RemotePort, err)
	}
	l.Infof("wifi connected to %s:%d via %q", cfg.WiFi.Host, cfg.WiFi.RemotePort, cfg.WiFi.SSID)
	d.network = modem
	return d, nil
}

// app wires the devices into the reporting cycle.
type app struct {
	cfg        *config.Config
	devices    *devices
	tracker    *status.Tracker
	publisher  mqtt.Publisher        // nil when MQTT is disabled
	mqttStatus mqtt.ConnectionStatus // nil when MQTT is disabled
	log        *logger.Logger
	waiter     hub.Waiter
	now        func() time.Time
}

// start hooks up the console and motion handlers and builds the cycle.
func (a *app) start() (*hub.Cycle, error) {
	con := a.devices.console
	lines := hub.NewLineAssembler(con)
	latch := hub.NewMotionLatch(con)

	if err := con.Start(lines.Receive); err != nil {
		return nil, fmt.Errorf("start console: %w", err)
	}
	err := a.devices.motion.Start(func() {
		latch.OnMotion()
		a.tracker.RecordMotion()
	})
	if err != nil {
		return nil, fmt.Errorf("start motion sensor: %w", err)
	}

	network := a.devices.network
	if network == nil {
		network = hub.Transmitters(nil)
	}

	cycle, err := hub.NewCycle(hub.CycleConfig{
		Period:          a.cfg.Cycle.Period,
		DistanceDivisor: a.cfg.Cycle.DistanceDivisor,
	}, hub.Deps{
		Distance: a.devices.distance,
		Climate:  a.devices.climate,
		Display:  a.tracker,
		Network:  network,
		Console:  con,
		Motion:   latch,
		Lines:    lines,
		Waiter:   a.waiter,
		Now:      a.now,
		Observer: a.observe,
		OnLine:   a.tracker.RecordLine,
	}, a.log.WithTag("cycle"))
	if err != nil {
		return nil, err
	}

	a.publishSystem("STARTUP", "")
	if _, err := con.WriteString(StartBanner); err != nil {
		a.log.Warnf("console write: %v", err)
	}
	return cycle, nil
}

// run loops until a signal arrives or ctx ends, then publishes SHUTDOWN.
func (a *app) run(ctx context.Context, sig <-chan os.Signal) error {
	cycle, err := a.start()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	reason := make(chan string, 1)
	go func() {
		select {
		case s := <-sig:
			a.log.Infof("received %v, shutting down", s)
			reason <- signalName(s)
			cancel()
		case <-ctx.Done():
		}
	}()

	err = cycle.Run(ctx)

	var why string
	select {
	case why = <-reason:
	default:
	}
	a.publishSystem("SHUTDOWN", why)
	return err
}

// runOnce performs a single cycle.
func (a *app) runOnce(ctx context.Context) error {
	cycle, err := a.start()
	if err != nil {
		return err
	}
	_, err = cycle.RunOnce(ctx)
	a.publishSystem("SHUTDOWN", "once")
	return err
}

// observe mirrors each report to the tracker and MQTT. Publish failures
// never affect the cycle.
func (a *app) observe(r hub.Report) {
	a.tracker.RecordReport(r)
	if a.mqttStatus != nil {
		a.tracker.SetMQTTConnected(a.mqttStatus.IsConnected())
	}
	if a.publisher == nil {
		return
	}
	if err := a.publisher.PublishReport(r); err != nil {
		a.log.Debugf("publish report: %v", err)
	}
}

func (a *app) publishSystem(event, reason string) {
	if a.publisher == nil {
		return
	}
	if a.mqttStatus != nil {
		a.tracker.SetMQTTConnected(a.mqttStatus.IsConnected())
	}
	snap := a.tracker.Snapshot()
	ev := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      event,
		Reason:     reason,
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, event, reason),
	}
	if err := a.publisher.PublishSystem(ev); err != nil {
		a.log.Warnf("failed to publish %s event: %v", event, err)
		return
	}
	a.log.Infof("published %s event", event)
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	default:
		return "UNKNOWN"
	}
}

// noWait ends a cycle without waiting; used by -once.
type noWait struct{}

func (noWait) Wait(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}
