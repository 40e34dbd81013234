package main

import (
	"flag"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"barowatch"
)

func main() {
	busName := flag.String("bus", "", "I2C bus name (empty selects the first available)")
	addr := flag.Uint("addr", barowatch.DefaultAddr, "sensor I2C address")
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

	sensor, err := barowatch.New(bus, &barowatch.Opts{
		Addr:           uint16(*addr),
		TemperatureOSR: barowatch.OSR4096,
		PressureOSR:    barowatch.OSR4096,
	})
	if err != nil {
		log.Fatalf("Failed to initialize MS5803: %v", err)
	}

	cw := barowatch.NewCSVWriter(os.Stdout)
	defer cw.Close()

	samples := make(chan barowatch.Sample)
	go func() {
		for {
			temp, press, err := sensor.ReadTemperaturePressure()
			if err != nil {
				log.Warnf("Error reading sensor: %v", err)
				time.Sleep(*interval)
				continue
			}
			samples <- barowatch.Sample{
				Timestamp:   time.Now().UnixMilli(),
				Temperature: temp,
				Pressure:    press,
			}
			time.Sleep(*interval)
		}
	}()

	if err := cw.Start(samples); err != nil {
		log.Fatalf("CSV output failed: %v", err)
	}
}
