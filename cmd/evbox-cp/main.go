// Command evbox-cp impersonates the ChargePoint controller role of an EVBox
// HomeLine charger over its internal RS-485 bus, so the charger can operate
// without its vendor backend.
package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/geekabit/evbox-chargepoint/pkg/chargepoint"
	"github.com/geekabit/evbox-chargepoint/pkg/clock"
	"github.com/geekabit/evbox-chargepoint/pkg/link"
	"github.com/geekabit/evbox-chargepoint/pkg/telemetry"
)

var (
	serialDevice = flag.String("serial", "/dev/ttyUSB0", "RS-485 serial device path")
	monitor      = flag.Bool("monitor", false, "Monitor bus traffic only; never send")
	captureFile  = flag.String("capture", "", "Append captured bus traffic to this file")
	replayFile   = flag.String("replay", "", "Replay captured traffic from this file instead of the live bus")
	allowedCards = flag.String("allowed-cards", "", "Comma-separated list of allowed 14-character card identifiers")
	redisAddr    = flag.String("redis-addr", "", "Redis server address for telemetry (disabled if empty)")
	redisPass    = flag.String("redis-pass", "", "Redis password")
	redisDB      = flag.Int("redis-db", 0, "Redis database number")
)

func main() {
	flag.Parse()
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)

	cards := make(map[string]bool)
	for _, c := range strings.Split(*allowedCards, ",") {
		c = strings.TrimSpace(c)
		if c != "" {
			cards[c] = true
		}
	}

	var observer link.Observer
	if *redisAddr != "" {
		pub, err := telemetry.New(*redisAddr, *redisPass, *redisDB)
		if err != nil {
			log.Fatalf("telemetry: %v", err)
		}
		defer pub.Close()
		observer = telemetry.Observer{Publisher: pub}
		log.Printf("publishing telemetry to redis at %s", *redisAddr)
	}

	var capture *link.CaptureWriter
	if *captureFile != "" {
		c, err := link.OpenCapture(*captureFile)
		if err != nil {
			log.Fatalf("capture: %v", err)
		}
		defer c.Close()
		capture = c
		log.Printf("capturing bus traffic to %s", *captureFile)
	}

	actor := chargepoint.New(chargepoint.Config{AllowedCards: cards, Clock: clock.New()})

	if *replayFile != "" {
		replay(actor, *replayFile, observer)
		return
	}

	runLive(actor, capture, observer)
}

func replay(actor *chargepoint.Actor, path string, observer link.Observer) {
	chunks, err := link.ReadCapture(path)
	if err != nil {
		log.Fatalf("replay: %v", err)
	}
	loop := link.NewLoop(nil, actor, nil, observer, true)
	log.Printf("replaying %d captured chunks from %s", len(chunks), path)
	for _, chunk := range chunks {
		loop.Feed(chunk)
	}
}

func runLive(actor *chargepoint.Actor, capture *link.CaptureWriter, observer link.Observer) {
	port, err := link.OpenSerial(*serialDevice)
	if err != nil {
		log.Fatalf("serial: %v", err)
	}
	defer port.Close()
	log.Printf("reading from serial port %s", *serialDevice)
	if *monitor {
		log.Printf("monitor mode: no packets will be sent")
	}

	loop := link.NewLoop(port, actor, capture, observer, *monitor)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-done:
				return
			default:
			}
			if _, err := loop.RunOnce(); err != nil {
				log.Printf("link: read error: %v", err)
			}
		}
	}()

	<-stop
	close(done)
	log.Printf("shutting down")
}
