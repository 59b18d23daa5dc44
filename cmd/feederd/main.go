// Command feederd runs the pet feeder: it polls the weight and container
// sensors, dispenses scheduled feedings, and synchronizes the schedule and
// telemetry with the remote store, staying operable while offline.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/afero"

	"github.com/inbarayasoo/smart-dog-feeder/internal/clock"
	"github.com/inbarayasoo/smart-dog-feeder/internal/distance"
	"github.com/inbarayasoo/smart-dog-feeder/internal/feeder"
	"github.com/inbarayasoo/smart-dog-feeder/internal/localstore"
	"github.com/inbarayasoo/smart-dog-feeder/internal/motor"
	"github.com/inbarayasoo/smart-dog-feeder/internal/pixels"
	"github.com/inbarayasoo/smart-dog-feeder/internal/remote"
	"github.com/inbarayasoo/smart-dog-feeder/internal/scale"
	"github.com/inbarayasoo/smart-dog-feeder/internal/status"
	"github.com/inbarayasoo/smart-dog-feeder/internal/web"
)

// Credential env var names (flags would leak secrets into process lists).
const (
	envRTDBEmail    = "FEEDER_RTDB_EMAIL"
	envRTDBPassword = "FEEDER_RTDB_PASSWORD"
	envRTDBAPIKey   = "FEEDER_RTDB_API_KEY"
)

func main() {
	poll := flag.Duration("poll", time.Second, "Sensor polling interval (must be <= 30s to catch feeding minutes)")
	fetch := flag.Duration("fetch", 15*time.Second, "Remote schedule fetch interval")
	flush := flag.Duration("flush", 30*time.Second, "Telemetry queue flush interval")
	heartbeat := flag.Duration("heartbeat", 15*time.Minute, "Heartbeat log interval (0 to disable)")
	backend := flag.String("backend", "rtdb", `Remote store backend ("rtdb" or "mqtt")`)
	dbURL := flag.String("db-url", "", "Firebase Realtime Database URL (rtdb backend)")
	broker := flag.String("broker", "tcp://192.168.1.200:1883", "MQTT broker address (mqtt backend)")
	deviceID := flag.String("device-id", "PET_FEEDER_001", "Device identifier")
	dataDir := flag.String("data-dir", "/var/lib/feederd", "Durable state directory")
	iface := flag.String("iface", "wlan0", "Network interface for the link-up check (empty to skip)")
	pinStep := flag.Int("pin-step", motor.DefaultPinStep, "BCM pin number for motor STEP")
	pinDir := flag.Int("pin-dir", motor.DefaultPinDir, "BCM pin number for motor DIR")
	pinDout := flag.Int("pin-dout", scale.DefaultPinDout, "BCM pin number for HX711 DOUT")
	pinSck := flag.Int("pin-sck", scale.DefaultPinSck, "BCM pin number for HX711 SCK")
	pinEmptyLED := flag.Int("pin-led-empty", pixels.DefaultPinEmptyLED, "BCM pin number for the container-empty LED")
	pinWifiLED := flag.Int("pin-led-wifi", pixels.DefaultPinWifiLED, "BCM pin number for the network LED")
	calibration := flag.Float64("calibration", scale.DefaultCalibration, "Load cell calibration factor")
	emptyMM := flag.Int("empty-threshold", distance.DefaultEmptyThresholdMM, "Container-empty distance threshold (mm)")
	printState := flag.Bool("print-state", false, "Print current sensor state and exit")
	httpAddr := flag.String("http", ":80", "HTTP status address (empty to disable)")

	flag.Parse()

	if err := run(runConfig{
		poll:        *poll,
		fetch:       *fetch,
		flush:       *flush,
		heartbeat:   *heartbeat,
		backend:     *backend,
		dbURL:       *dbURL,
		broker:      *broker,
		deviceID:    *deviceID,
		dataDir:     *dataDir,
		iface:       *iface,
		pinStep:     *pinStep,
		pinDir:      *pinDir,
		pinDout:     *pinDout,
		pinSck:      *pinSck,
		pinEmptyLED: *pinEmptyLED,
		pinWifiLED:  *pinWifiLED,
		calibration: *calibration,
		emptyMM:     *emptyMM,
		printState:  *printState,
		httpAddr:    *httpAddr,
	}); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

type runConfig struct {
	poll        time.Duration
	fetch       time.Duration
	flush       time.Duration
	heartbeat   time.Duration
	backend     string
	dbURL       string
	broker      string
	deviceID    string
	dataDir     string
	iface       string
	pinStep     int
	pinDir      int
	pinDout     int
	pinSck      int
	pinEmptyLED int
	pinWifiLED  int
	calibration float64
	emptyMM     int
	printState  bool
	httpAddr    string
}

func run(cfg runConfig) error {
	// Initialize hardware
	sc, err := scale.NewHX711(cfg.pinDout, cfg.pinSck, cfg.calibration)
	if err != nil {
		return fmt.Errorf("init scale: %w", err)
	}
	defer sc.Close()

	mot, err := motor.NewStepper(cfg.pinStep, cfg.pinDir)
	if err != nil {
		return fmt.Errorf("init motor: %w", err)
	}
	defer mot.Close()

	// No driver exists yet for the I2C level sensor; with no measurement
	// available the container-empty logic stays inert.
	ranger := &distance.FakeRanger{NoMeasurement: true}
	defer ranger.Close()

	// Print state mode
	if cfg.printState {
		weight, err := sc.CurrentWeight()
		if err != nil {
			return fmt.Errorf("read scale: %w", err)
		}
		mm, ok := ranger.CurrentDistance()
		emptyState := "UNKNOWN"
		if ok {
			emptyState = "NO"
			if distance.Empty(mm, cfg.emptyMM) {
				emptyState = "YES"
			}
		}
		fmt.Printf("weight: %.1fg, container empty: %s\n", weight, emptyState)
		return nil
	}

	linkUp := linkUpCheck(cfg.iface)

	// Initialize remote store
	var rs remote.Store
	target := ""
	switch cfg.backend {
	case "rtdb":
		if cfg.dbURL == "" {
			return fmt.Errorf("rtdb backend requires -db-url")
		}
		rs = remote.NewRTDBStore(remote.RTDBConfig{
			DatabaseURL: cfg.dbURL,
			APIKey:      os.Getenv(envRTDBAPIKey),
			Email:       os.Getenv(envRTDBEmail),
			Password:    os.Getenv(envRTDBPassword),
			LinkUp:      linkUp,
		})
		target = cfg.dbURL
	case "mqtt":
		mq, err := remote.NewMQTTStore(cfg.broker, cfg.deviceID)
		if err != nil {
			return fmt.Errorf("init mqtt store: %w", err)
		}
		rs = mq
		target = cfg.broker
	default:
		return fmt.Errorf("unknown backend %q", cfg.backend)
	}
	defer rs.Close()

	// Initialize durable local store
	clk := clock.System{}
	local, err := localstore.NewStore(afero.NewOsFs(), cfg.dataDir, clk)
	if err != nil {
		return fmt.Errorf("init local store: %w", err)
	}

	startTime := time.Now()
	engine := feeder.NewEngine(rs, local, clk, feeder.Config{
		FetchInterval:      cfg.fetch,
		CacheParseInterval: 5 * time.Second,
		FlushInterval:      cfg.flush,
	}, startTime)

	dispenser := feeder.NewDispenser(mot)

	// Indicator LEDs are best effort: the feeder still feeds without them.
	var blinker *pixels.Blinker
	if strip, err := pixels.NewLEDStrip(cfg.pinEmptyLED, cfg.pinWifiLED); err != nil {
		log.Printf("init leds: %v (continuing without indicators)", err)
	} else {
		defer strip.Close()
		blinker = pixels.NewBlinker(strip, pixels.DefaultBlinkInterval)
	}

	tracker := status.NewTracker(startTime, status.Config{
		PollMs:   cfg.poll.Milliseconds(),
		FetchMs:  cfg.fetch.Milliseconds(),
		FlushMs:  cfg.flush.Milliseconds(),
		Backend:  cfg.backend,
		Target:   target,
		DeviceID: cfg.deviceID,
		DataDir:  cfg.dataDir,
		HTTPAddr: cfg.httpAddr,
	})

	// Start HTTP status server
	if cfg.httpAddr != "" {
		srv := web.New(cfg.httpAddr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.httpAddr)
	}

	log.Printf("started: poll=%v fetch=%v flush=%v backend=%s device=%s", cfg.poll, cfg.fetch, cfg.flush, cfg.backend, cfg.deviceID)

	ticker := time.NewTicker(cfg.poll)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(loopDeps{
		scale:     sc,
		ranger:    ranger,
		emptyMM:   cfg.emptyMM,
		engine:    engine,
		dispenser: dispenser,
		blinker:   blinker,
		tracker:   tracker,
		clock:     clk,
		heartbeat: cfg.heartbeat,
	}, time.Now, ticker.C, sigCh)
}

// loopDeps bundles everything runLoop needs, so tests can wire fakes.
type loopDeps struct {
	scale     scale.Scale
	ranger    distance.Ranger
	emptyMM   int
	engine    *feeder.Engine
	dispenser *feeder.Dispenser
	blinker   *pixels.Blinker
	tracker   *status.Tracker
	clock     clock.Clock
	heartbeat time.Duration
}

func runLoop(deps loopDeps, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	var (
		containerEmpty bool
		haveEmptyState bool
		lastWeight     float64
		lastHeartbeat  = now()
	)

	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			return nil

		case <-tick:
			t := now()

			weight, err := deps.scale.CurrentWeight()
			if err != nil {
				log.Printf("scale read error: %v", err)
				weight = lastWeight
			}
			lastWeight = weight

			// Container-empty edges are pushed to the remote store;
			// the engine retries a rejected edge until it lands.
			if mm, ok := deps.ranger.CurrentDistance(); ok {
				empty := distance.Empty(mm, deps.emptyMM)
				if !haveEmptyState || empty != containerEmpty {
					containerEmpty = empty
					haveEmptyState = true
					log.Printf("container empty: %v (distance %dmm)", empty, mm)
					deps.engine.PublishContainerEmpty(empty)
				}
			}

			deps.engine.Tick(t)

			if deps.dispenser.Busy() {
				if res, done := deps.dispenser.Tick(t, weight); done {
					deps.engine.RecordFeeding(res.Feeding, res.PrevWeight, res.CurrentWeight)
					deps.tracker.SetLastFeeding(status.Feeding{
						Time:        t,
						MealName:    res.Feeding.MealName,
						AmountGrams: res.Feeding.AmountGrams,
						GramsServed: res.CurrentWeight - res.PrevWeight,
					})
				}
			} else if feeding, due := deps.engine.DueFeeding(t); due {
				log.Printf("feeding due: %s %02d:%02d %dg", feeding.MealName, feeding.Hour, feeding.Minute, feeding.AmountGrams)
				if err := deps.dispenser.Start(t, feeding, weight); err != nil {
					log.Printf("dispense start error: %v", err)
					// The slot already fired; record the attempt so it
					// is not lost.
					deps.engine.RecordFeeding(feeding, weight, weight)
				}
			}

			online := deps.engine.Online()
			if deps.blinker != nil {
				if err := deps.blinker.Update(t, pixels.Decide(containerEmpty, online)); err != nil {
					log.Printf("led update error: %v", err)
				}
			}

			_, clockValid := deps.clock.Now()
			deps.tracker.Update(containerEmpty, online, clockValid, deps.dispenser.Busy(), weight, deps.engine.QueueLen(), deps.engine.Counters())

			if deps.heartbeat > 0 && t.Sub(lastHeartbeat) >= deps.heartbeat {
				lastHeartbeat = t
				snap := deps.tracker.Snapshot()
				log.Printf("heartbeat: %s", status.FormatStatusEvent(snap, "HEARTBEAT"))
			}
		}
	}
}

// linkUpCheck returns a connectivity hint for the given interface, read from
// sysfs. It checks link state only; push failures past a live link are
// handled by the telemetry queue.
func linkUpCheck(iface string) func() bool {
	if iface == "" {
		return nil
	}
	path := "/sys/class/net/" + iface + "/operstate"
	return func() bool {
		data, err := os.ReadFile(path)
		if err != nil {
			return false
		}
		return strings.TrimSpace(string(data)) == "up"
	}
}
