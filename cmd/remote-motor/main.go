// Command remote-motor drives a DC motor from a BT13 Bluetooth remote and
// publishes every speed change to MQTT.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/sweeney/remote-motor/internal/config"
	"github.com/sweeney/remote-motor/internal/indicator"
	"github.com/sweeney/remote-motor/internal/logic"
	"github.com/sweeney/remote-motor/internal/motor"
	"github.com/sweeney/remote-motor/internal/mqtt"
	"github.com/sweeney/remote-motor/internal/remote"
	"github.com/sweeney/remote-motor/internal/status"
	"github.com/sweeney/remote-motor/internal/web"
)

const (
	scanTick          = time.Second
	ledTick           = 10 * time.Millisecond
	printStateTimeout = 10 * time.Second
)

func main() {
	cfg, err := config.Load(os.Args[0], os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}

	logger, err := newLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatalw("fatal", "error", err)
	}
}

func newLogger(debug bool) (*zap.SugaredLogger, error) {
	var (
		l   *zap.Logger
		err error
	)
	if debug {
		l, err = zap.NewDevelopment()
	} else {
		l, err = zap.NewProduction()
	}
	if err != nil {
		return nil, errors.Wrap(err, "init logger")
	}
	return l.Sugar(), nil
}

func newSource(cfg config.Config, logger *zap.SugaredLogger) remote.Source {
	if cfg.Source == config.SourceSerial {
		return remote.NewSerialSource(cfg.Device, cfg.Baud, logger)
	}
	return remote.NewEvdevSource(cfg.Device, cfg.DeviceMatch, logger)
}

func run(cfg config.Config, logger *zap.SugaredLogger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := newSource(cfg, logger)
	if cfg.PrintState {
		octx, ocancel := context.WithTimeout(ctx, printStateTimeout)
		defer ocancel()
		return printState(octx, src, os.Stdout)
	}

	actuator, err := motor.NewRealActuator(cfg.Chip, cfg.PinPWM, cfg.PinDir, cfg.PWMFreq)
	if err != nil {
		return errors.Wrap(err, "init motor")
	}
	defer actuator.Close()

	var wg sync.WaitGroup
	var ind indicator.Indicator = indicator.Nop{}
	if cfg.PinLED != 0 {
		line, err := indicator.OpenLine(cfg.Chip, cfg.PinLED)
		if err != nil {
			return errors.Wrap(err, "init indicator")
		}
		defer line.Close()

		blinker := indicator.NewBlinker(line, logger)
		ledTicker := time.NewTicker(ledTick)
		defer ledTicker.Stop()
		wg.Add(1)
		go func() {
			defer wg.Done()
			blinker.Run(ctx, ledTicker.C, time.Now)
		}()
		ind = blinker
	}
	// Background goroutines stop before the LED line is closed.
	defer func() {
		cancel()
		wg.Wait()
	}()

	publisher, err := mqtt.NewRealPublisher(cfg.Broker, logger)
	if err != nil {
		return errors.Wrap(err, "init mqtt")
	}
	defer publisher.Close()

	start := time.Now()
	ctl := logic.NewController(cfg.Logic(), start)
	tracker := status.NewTracker(start, statusConfig(cfg, resolveWSBroker(cfg.WSBroker, cfg.Broker, logger)))
	tracker.Update(ctl.Snapshot(start))
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	snap := tracker.Snapshot()
	startup := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startup); err != nil {
		logger.Warnw("publish startup event failed", "error", err)
	}

	if cfg.HTTP != "" {
		srv := web.New(cfg.HTTP, tracker, logger)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Errorw("http server error", "error", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		logger.Infow("http status server listening", "addr", cfg.HTTP)
	}

	queue := remote.NewQueue(cfg.QueueSize)
	scanTicker := time.NewTicker(scanTick)
	defer scanTicker.Stop()
	policy := remote.NewScanPolicy(cfg.RestartDelay, cfg.RescanInterval)
	wg.Add(1)
	go func() {
		defer wg.Done()
		err := remote.Supervise(ctx, src, queue, policy, scanTicker.C, time.Now, logger)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Errorw("remote supervisor stopped", "error", err)
		}
	}()

	logger.Infow("started",
		"source", src.Name(),
		"poll", cfg.Poll,
		"release_timeout", cfg.ReleaseTimeout,
		"stop_timeout", cfg.StopTimeout,
		"max_level", cfg.MaxLevel,
		"broker", cfg.Broker,
		"heartbeat", cfg.Heartbeat,
	)

	ticker := time.NewTicker(cfg.Poll)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	l := &loop{
		ctl:        ctl,
		queue:      queue,
		actuator:   actuator,
		indicator:  ind,
		publisher:  publisher,
		mqttStatus: publisher,
		tracker:    tracker,
		heartbeat:  cfg.Heartbeat,
		logger:     logger,
	}
	return runLoop(l, time.Now, ticker.C, sigCh)
}

func printState(ctx context.Context, src remote.Source, w io.Writer) error {
	if err := src.Open(ctx); err != nil {
		src.Close()
		return errors.Wrap(err, "open input")
	}
	defer src.Close()
	fmt.Fprintf(w, "input: %s\n", src.Name())
	return nil
}

func statusConfig(cfg config.Config, wsBroker string) status.Config {
	return status.Config{
		PollMs:           cfg.Poll.Milliseconds(),
		ReleaseTimeoutMs: cfg.ReleaseTimeout.Milliseconds(),
		StopTimeoutMs:    cfg.StopTimeout.Milliseconds(),
		MaxLevel:         cfg.MaxLevel,
		StopOnDisconnect: cfg.StopOnDisconnect,
		Source:           cfg.Source,
		Device:           cfg.Device,
		HeartbeatMs:      cfg.Heartbeat.Milliseconds(),
		Broker:           cfg.Broker,
		HTTPAddr:         cfg.HTTP,
		WSBroker:         wsBroker,
	}
}

// loop is the state owned by the run loop goroutine. Nothing else touches
// ctl.
type loop struct {
	ctl        *logic.Controller
	queue      *remote.Queue
	actuator   motor.Actuator
	indicator  indicator.Indicator
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus
	tracker    *status.Tracker
	heartbeat  time.Duration
	logger     *zap.SugaredLogger
}

func runLoop(l *loop, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	for {
		select {
		case s := <-sig:
			l.shutdown(s, now())
			return nil
		case e := <-l.queue.C():
			l.handle(e, now())
		case <-tick:
			l.poll(now())
		}
	}
}

func (l *loop) handle(e remote.Event, now time.Time) {
	var events []logic.Event
	switch e.Kind {
	case remote.Report:
		events = l.ctl.HandleReport(e.Report, now)
	case remote.Connected:
		events = l.ctl.Connected(now)
	case remote.Disconnected:
		events = l.ctl.Disconnected(now)
	}
	l.dispatch(events, now)
	l.refresh(now)
}

func (l *loop) poll(now time.Time) {
	l.dispatch(l.ctl.Poll(now), now)
	l.refresh(now)

	hb := l.ctl.CheckHeartbeat(now, l.heartbeat)
	if hb == nil {
		return
	}
	if net := readNetworkInfo(); net != nil {
		l.tracker.SetNetwork(net)
	}
	snap := l.tracker.Snapshot()
	l.logger.Infow("heartbeat",
		"uptime", hb.Uptime,
		"short_increment", hb.Counts.ShortIncrement,
		"short_decrement", hb.Counts.ShortDecrement,
		"long_start", hb.Counts.LongStart,
		"stop", hb.Counts.Stop,
		"watchdog_stop", hb.Counts.WatchdogStop,
		"input_dropped", snap.InputDropped,
		"mqtt_buffered", snap.MQTTBuffered,
		"mqtt_dropped", snap.MQTTDropped,
	)
	event := mqtt.SystemEvent{
		Timestamp:  hb.Timestamp,
		Event:      "HEARTBEAT",
		RawPayload: status.FormatStatusEvent(snap, "HEARTBEAT", ""),
	}
	if err := l.publisher.PublishSystem(event); err != nil {
		l.logger.Warnw("publish heartbeat failed", "error", err)
	}
}

// dispatch logs, actuates, shows and publishes each event in order.
func (l *loop) dispatch(events []logic.Event, now time.Time) {
	for _, e := range events {
		l.logEvent(e)
		if e.Type.Actuates() {
			if err := motor.Apply(l.actuator, e.Output); err != nil {
				l.logger.Errorw("set motor failed", "event", e.Type, "error", err)
			}
		}
		l.indicator.Show(e, l.ctl.IsConnected(), now)
		if err := l.publisher.Publish(e); err != nil {
			l.logger.Warnw("publish failed", "event", e.Type, "error", err)
		}
	}
}

func (l *loop) logEvent(e logic.Event) {
	switch e.Type {
	case logic.EventUnknownInput:
		l.logger.Debugw("unrecognised usage code", "usage", fmt.Sprintf("0x%04X", e.Usage))
	case logic.EventMalformedInput:
		l.logger.Debugw("malformed input report")
	case logic.EventWatchdogStop, logic.EventDisconnectStop:
		l.logger.Warnw("motor stopped", "event", e.Type, "changed", e.Changed)
	case logic.EventConnected, logic.EventDisconnected:
		l.logger.Infow("remote link", "event", e.Type)
	default:
		l.logger.Infow("event",
			"type", e.Type,
			"level", e.State.Level,
			"duty", e.Output.Duty,
			"direction", e.Output.Direction,
			"long_press", e.State.LongPressActive,
			"changed", e.Changed,
		)
	}
}

func (l *loop) refresh(now time.Time) {
	l.tracker.Update(l.ctl.Snapshot(now))
	l.tracker.SetInputDropped(l.queue.Dropped())
	if l.mqttStatus != nil {
		l.tracker.SetMQTTConnected(l.mqttStatus.IsConnected())
		l.tracker.SetMQTTBuffer(l.mqttStatus.Buffered(), l.mqttStatus.Dropped())
	}
}

func (l *loop) shutdown(s os.Signal, now time.Time) {
	name := signalName(s)
	l.logger.Infow("shutting down", "signal", name)

	if err := l.actuator.SetMotor(0, logic.Backward); err != nil {
		l.logger.Errorw("stop motor failed", "error", err)
	}

	l.refresh(now)
	event := mqtt.SystemEvent{
		Timestamp:  now,
		Event:      "SHUTDOWN",
		Reason:     name,
		Retained:   true,
		RawPayload: status.FormatStatusEvent(l.tracker.Snapshot(), "SHUTDOWN", name),
	}
	if err := l.publisher.PublishSystem(event); err != nil {
		l.logger.Warnw("publish shutdown event failed", "error", err)
	}
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}

// resolveWSBroker converts the --ws-broker value into a concrete URL.
// "=broker" derives ws://host:9001 from the TCP broker address; "off" disables.
func resolveWSBroker(ws, broker string, logger *zap.SugaredLogger) string {
	if ws == "off" {
		return ""
	}
	if ws != "=broker" {
		return ws
	}
	u, err := url.Parse(broker)
	if err != nil {
		logger.Warnw("cannot derive websocket broker", "broker", broker, "error", err)
		return ""
	}
	u.Scheme = "ws"
	u.Host = u.Hostname() + ":9001"
	return u.String()
}
