// Command hotspot-projector turns visitor presses on exhibit hotspots into
// projected activation animations and publishes the lifecycle to MQTT.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/sweeney/hotspot-projector/internal/camera"
	"github.com/sweeney/hotspot-projector/internal/config"
	"github.com/sweeney/hotspot-projector/internal/gpio"
	"github.com/sweeney/hotspot-projector/internal/history"
	"github.com/sweeney/hotspot-projector/internal/hotspot"
	"github.com/sweeney/hotspot-projector/internal/mqtt"
	"github.com/sweeney/hotspot-projector/internal/projection"
	"github.com/sweeney/hotspot-projector/internal/status"
	"github.com/sweeney/hotspot-projector/internal/telemetry"
	"github.com/sweeney/hotspot-projector/internal/web"
)

const serviceName = "hotspot-projector"

// statusInterval is how often the run loop refreshes MQTT state and checks
// whether a heartbeat is due.
const statusInterval = time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}

	flag.DurationVar(&cfg.ActivationTime, "activation", cfg.ActivationTime, "Press-and-hold time before a hotspot activates")
	flag.DurationVar(&cfg.DeactivationTime, "deactivation", cfg.DeactivationTime, "Release time before an active hotspot returns to idle")
	flag.DurationVar(&cfg.ForcefulDeactivationTime, "forceful", cfg.ForcefulDeactivationTime, "Animation time for instant active/idle transitions")
	flag.BoolVar(&cfg.Preempt, "preempt", cfg.Preempt, "Pressing another hotspot replaces the active one")
	flag.StringVar(&cfg.Layout, "layout", cfg.Layout, "Hotspot layout JSON file")
	flag.StringVar(&cfg.Broker, "broker", cfg.Broker, "MQTT broker address")
	flag.StringVar(&cfg.HTTPAddr, "http", cfg.HTTPAddr, "HTTP status address (empty to disable)")
	flag.StringVar(&cfg.HistoryDB, "history", cfg.HistoryDB, "sqlite history database path (empty to disable)")
	flag.DurationVar(&cfg.Heartbeat, "heartbeat", cfg.Heartbeat, "Heartbeat interval (0 to disable)")
	flag.StringVar(&cfg.GPIOChip, "gpio-chip", cfg.GPIOChip, "GPIO chip name")
	flag.StringVar(&cfg.GPIOPins, "gpio-pins", cfg.GPIOPins, `GPIO offset to hotspot id map, e.g. "26:0,16:1" (empty to disable)`)
	flag.DurationVar(&cfg.GPIODebounce, "gpio-debounce", cfg.GPIODebounce, "GPIO debounce period")
	flag.IntVar(&cfg.Camera, "camera", cfg.Camera, "Camera device index (-1 to disable)")
	flag.DurationVar(&cfg.CameraHold, "camera-hold", cfg.CameraHold, "How long a pointer must stay in or out of a hotspot")
	flag.StringVar(&cfg.OTelEndpoint, "otel-endpoint", cfg.OTelEndpoint, "OTLP/HTTP trace endpoint (empty to disable)")
	printState := flag.Bool("print-state", false, "Print pressed GPIO hotspots and exit")

	flag.Parse()

	if err := run(cfg, *printState); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(cfg config.Env, printState bool) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	layout, err := config.LoadLayout(cfg.Layout)
	if err != nil {
		return fmt.Errorf("load layout: %w", err)
	}

	var pins gpio.Pins
	if cfg.GPIOPins != "" {
		if pins, err = gpio.ParsePins(cfg.GPIOPins); err != nil {
			return fmt.Errorf("parse gpio pins: %w", err)
		}
	}

	handler := hotspot.NewHandler(cfg.Hotspot(), nil, layout.IDs())
	defer handler.Dispose()

	if printState {
		if pins == nil {
			return fmt.Errorf("print-state needs -gpio-pins")
		}
		src, err := gpio.NewRealSource(cfg.GPIOChip, pins, cfg.GPIODebounce, handler)
		if err != nil {
			return fmt.Errorf("init gpio: %w", err)
		}
		defer src.Close()
		return printPressed(src)
	}

	var sources []string
	if pins != nil {
		sources = append(sources, "gpio")
	}
	sources = append(sources, "mqtt")
	if cfg.Camera >= 0 {
		sources = append(sources, "camera")
	}

	session := uuid.NewString()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.OTelEndpoint, serviceName)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer shutdownTracing(context.Background())

	// Initialize MQTT
	publisher, err := mqtt.NewRealPublisher(cfg.Broker, serviceName+"-"+session[:8], session)
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer publisher.Close()

	// Listeners subscribe before any input source can deliver a press.
	display := projection.NewDisplay(layout, handler.Config(), handler)
	defer display.Dispose()

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), session, status.Config{
		ActivationMs:           cfg.ActivationTime.Milliseconds(),
		DeactivationMs:         cfg.DeactivationTime.Milliseconds(),
		ForcefulDeactivationMs: cfg.ForcefulDeactivationTime.Milliseconds(),
		Preempt:                cfg.Preempt,
		HeartbeatMs:            cfg.Heartbeat.Milliseconds(),
		Broker:                 cfg.Broker,
		HTTPAddr:               cfg.HTTPAddr,
		Layout:                 cfg.Layout,
		Sources:                sources,
	})
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}
	tracker.SetDisplay(display.Snapshot())
	display.Watch(tracker.SetDisplay)
	listeners := []hotspot.Listener{tracker}

	events := mqtt.NewEventListener(publisher, session, time.Now, mqtt.DefaultQueueSize)
	defer events.Close()
	listeners = append(listeners, events)

	var hist web.History
	if cfg.HistoryDB != "" {
		store, err := history.Open(ctx, cfg.HistoryDB)
		if err != nil {
			return fmt.Errorf("open history: %w", err)
		}
		defer store.Close()

		rec := history.NewRecorder(store, session, time.Now)
		defer rec.Close()
		listeners = append(listeners, rec)
		hist = store
	}

	if cfg.OTelEndpoint != "" {
		tracer := telemetry.NewTracer(nil, session)
		defer tracer.Close()
		listeners = append(listeners, tracer)
	}

	inputs := []input{func() (func(), error) {
		publisher.SubscribeSignals(handler, display)
		return func() {}, nil
	}}
	if cfg.Camera >= 0 {
		inputs = append(inputs, func() (func(), error) {
			src, err := camera.NewMarkerSource(cfg.Camera, nil)
			if err != nil {
				return nil, fmt.Errorf("init camera: %w", err)
			}
			camCtx, stopCamera := context.WithCancel(ctx)
			done := make(chan struct{})
			pointer := camera.NewTracker(layout, cfg.CameraHold, handler)
			go func() {
				defer close(done)
				if err := camera.Run(camCtx, src, pointer, time.Now); err != nil {
					log.Printf("camera: %v", err)
				}
			}()
			return func() {
				stopCamera()
				<-done
				src.Close()
			}, nil
		})
	}
	if pins != nil {
		inputs = append(inputs, func() (func(), error) {
			src, err := gpio.NewRealSource(cfg.GPIOChip, pins, cfg.GPIODebounce, handler)
			if err != nil {
				return nil, fmt.Errorf("init gpio: %w", err)
			}
			return func() { src.Close() }, nil
		})
	}

	stopInputs, err := startInputs(handler, listeners, inputs)
	if err != nil {
		return err
	}
	defer stopInputs()

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	} else {
		log.Printf("published startup event")
	}

	// Start HTTP status server
	if cfg.HTTPAddr != "" {
		srv := web.New(cfg.HTTPAddr, tracker, display, hist)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.HTTPAddr)
	}

	log.Printf("started: session=%s hotspots=%d sources=%v activation=%v deactivation=%v preempt=%v broker=%s heartbeat=%v",
		session, len(layout.Hotspots), sources, cfg.ActivationTime, cfg.DeactivationTime, cfg.Preempt, cfg.Broker, cfg.Heartbeat)

	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(publisher, publisher, tracker, cfg.Heartbeat, time.Now, ticker.C, sigCh)
}

// input starts one press source and returns its stop function.
type input func() (stop func(), err error)

// startInputs subscribes listeners to handler, then starts inputs in order, so
// the first press reaches every listener. If an input fails, the ones already
// started are stopped. The returned stop runs in reverse start order.
func startInputs(handler *hotspot.Handler, listeners []hotspot.Listener, inputs []input) (stop func(), err error) {
	for _, l := range listeners {
		handler.Subscribe(l)
	}

	var stops []func()
	stop = func() {
		for i := len(stops) - 1; i >= 0; i-- {
			stops[i]()
		}
	}
	for _, in := range inputs {
		s, err := in()
		if err != nil {
			stop()
			return nil, err
		}
		stops = append(stops, s)
	}
	return stop, nil
}

func runLoop(publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, heartbeat time.Duration, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	lastHeartbeat := now()

	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			event := mqtt.SystemEvent{
				Timestamp: now(),
				Event:     "SHUTDOWN",
				Reason:    signalName,
				Retained:  true,
			}
			if tracker != nil {
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
				snap := tracker.Snapshot()
				event.RawPayload = status.FormatStatusEvent(snap, "SHUTDOWN", signalName)
			}
			if err := publisher.PublishSystem(event); err != nil {
				log.Printf("failed to publish shutdown event: %v", err)
			} else {
				log.Printf("published shutdown event")
			}
			return nil

		case <-tick:
			t := now()
			if tracker != nil && mqttStatus != nil {
				tracker.SetMQTTConnected(mqttStatus.IsConnected())
			}

			if heartbeat <= 0 || t.Sub(lastHeartbeat) < heartbeat {
				continue
			}
			lastHeartbeat = t

			hbEvent := mqtt.SystemEvent{
				Timestamp: t,
				Event:     "HEARTBEAT",
			}
			if tracker != nil {
				// Refresh network info for heartbeat
				if net := readNetworkInfo(); net != nil {
					tracker.SetNetwork(net)
				}
				snap := tracker.Snapshot()
				log.Printf("heartbeat: uptime=%v current=%d activations=%d",
					snap.Uptime().Truncate(time.Second), snap.Current, totalActivations(snap))
				hbEvent.RawPayload = status.FormatStatusEvent(snap, "HEARTBEAT", "")
			}
			if err := publisher.PublishSystem(hbEvent); err != nil {
				log.Printf("heartbeat publish error: %v", err)
			}
		}
	}
}

func totalActivations(snap status.Snapshot) int {
	n := 0
	for _, c := range snap.Counts {
		n += c.Activations
	}
	return n
}

// printPressed writes one line per mapped hotspot, in id order.
func printPressed(src gpio.Source) error {
	pressed, err := src.Pressed()
	if err != nil {
		return fmt.Errorf("read gpio: %w", err)
	}
	ids := make([]int, 0, len(pressed))
	for id := range pressed {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		fmt.Printf("hotspot %d: %s\n", id, pressedString(pressed[id]))
	}
	return nil
}

func pressedString(pressed bool) string {
	if pressed {
		return "PRESSED"
	}
	return "RELEASED"
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
