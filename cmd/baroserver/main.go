package main

import (
	"flag"
	"time"

	log "github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"barowatch"
)

func main() {
	listen := flag.String("listen", ":8080", "HTTP listen address")
	busName := flag.String("bus", "", "I2C bus name (empty selects the first available)")
	addr := flag.Uint("addr", barowatch.DefaultAddr, "sensor I2C address")
	dbPath := flag.String("db", "samples.db", "SQLite database path")
	interval := flag.Duration("interval", 2*time.Second, "sample interval")
	flag.Parse()

	if _, err := host.Init(); err != nil {
		log.Fatalf("Failed to initialize host: %v", err)
	}

	bus, err := i2creg.Open(*busName)
	if err != nil {
		log.Fatalf("Failed to open I2C bus: %v", err)
	}
	defer bus.Close()

	sensor, err := barowatch.New(bus, &barowatch.Opts{Addr: uint16(*addr)})
	if err != nil {
		log.Fatalf("Failed to initialize MS5803: %v", err)
	}

	recorder, err := barowatch.NewRecorder(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open recorder database: %v", err)
	}
	defer recorder.Close()

	server := barowatch.NewServer(sensor, recorder, *interval)
	log.Fatal(server.Start(*listen))
}
