package barowatch

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
)

const (
	// DefaultAddr is the MS5803 I2C address with the CSB pin pulled high.
	DefaultAddr = 0x76
	// AltAddr is the address with CSB pulled low.
	AltAddr = 0x77

	// Commands
	cmdReset   = 0x1E
	cmdPROM    = 0xA0 // PROM word n lives at cmdPROM + 2n
	cmdConvert = 0x40
	cmdADCRead = 0x00

	// Conversion modes, OR'd into cmdConvert
	convPressure    = 0x00
	convTemperature = 0x10

	// Reload time after reset per the datasheet (2.8 ms)
	resetDelay = 3 * time.Millisecond
)

var (
	ErrNotInitialized = errors.New("ms5803: not initialized")
	ErrPROMCRC        = errors.New("ms5803: PROM checksum mismatch")
)

// OSR selects the oversampling ratio for a single ADC conversion. Higher
// ratios give better resolution but need a longer conversion time.
type OSR byte

const (
	OSR256  OSR = 0x00
	OSR512  OSR = 0x02
	OSR1024 OSR = 0x04
	OSR2048 OSR = 0x06
	OSR4096 OSR = 0x08
)

// conversionTime returns how long the ADC needs after a convert command.
func (o OSR) conversionTime() time.Duration {
	switch o {
	case OSR512:
		return 2 * time.Millisecond
	case OSR1024:
		return 3 * time.Millisecond
	case OSR2048:
		return 5 * time.Millisecond
	case OSR4096:
		return 10 * time.Millisecond
	default:
		return 1 * time.Millisecond
	}
}

// Opts holds the device address and per-measurement oversampling ratios.
// The zero value of each OSR field selects OSR256.
type Opts struct {
	Addr           uint16
	TemperatureOSR OSR
	PressureOSR    OSR
}

// DefaultOpts is the recommended default configuration.
var DefaultOpts = Opts{Addr: DefaultAddr}

type calibration struct {
	c1 uint16 // pressure sensitivity (SENS_T1)
	c2 uint16 // pressure offset (OFF_T1)
	c3 uint16 // temperature coefficient of pressure sensitivity (TCS)
	c4 uint16 // temperature coefficient of pressure offset (TCO)
	c5 uint16 // reference temperature (T_REF)
	c6 uint16 // temperature coefficient of the temperature (TEMPSENS)
}

// MS5803 drives a TE Connectivity MS5803-14BA pressure/temperature sensor
// over I2C. The driver assumes exclusive use of the device during each call;
// callers sharing one across goroutines must serialize access themselves.
type MS5803 struct {
	dev         i2c.Dev
	opts        Opts
	cal         calibration
	initialized bool
}

// New resets the sensor on the given bus, reads and verifies the factory
// calibration PROM and returns a ready-to-use driver. The bus handle stays
// owned by the caller. A nil opts selects DefaultOpts.
func New(bus i2c.Bus, opts *Opts) (*MS5803, error) {
	o := DefaultOpts
	if opts != nil {
		o = *opts
	}
	if o.Addr == 0 {
		o.Addr = DefaultAddr
	}

	d := &MS5803{
		dev:  i2c.Dev{Bus: bus, Addr: o.Addr},
		opts: o,
	}

	if err := d.dev.Tx([]byte{cmdReset}, nil); err != nil {
		return nil, fmt.Errorf("ms5803: reset: %w", err)
	}
	time.Sleep(resetDelay)

	if err := d.readCalibration(); err != nil {
		return nil, err
	}
	d.initialized = true
	return d, nil
}

// readCalibration reads the eight PROM words and checks the CRC-4 stored in
// the low nibble of the last word. Calibration is only accepted whole; any
// failed read leaves the driver unusable.
func (d *MS5803) readCalibration() error {
	var words [8]uint16
	buf := make([]byte, 2)
	for i := range words {
		if err := d.dev.Tx([]byte{cmdPROM + byte(2*i)}, buf); err != nil {
			return fmt.Errorf("ms5803: read PROM word %d: %w", i, err)
		}
		words[i] = binary.BigEndian.Uint16(buf)
	}

	if promCRC4(words) != uint8(words[7]&0x0F) {
		return ErrPROMCRC
	}

	d.cal = calibration{
		c1: words[1],
		c2: words[2],
		c3: words[3],
		c4: words[4],
		c5: words[5],
		c6: words[6],
	}
	return nil
}

// promCRC4 implements the CRC-4 from TE application note AN520. The check
// covers all eight words with the CRC nibble of the last word zeroed.
func promCRC4(words [8]uint16) uint8 {
	words[7] &= 0xFF00
	var rem uint16
	for cnt := 0; cnt < 16; cnt++ {
		if cnt%2 == 1 {
			rem ^= words[cnt>>1] & 0x00FF
		} else {
			rem ^= words[cnt>>1] >> 8
		}
		for bit := 0; bit < 8; bit++ {
			if rem&0x8000 != 0 {
				rem = (rem << 1) ^ 0x3000
			} else {
				rem <<= 1
			}
		}
	}
	return uint8((rem >> 12) & 0x0F)
}

// ReadRawTemperature triggers a temperature conversion at the configured
// oversampling ratio and returns the 24-bit ADC value.
func (d *MS5803) ReadRawTemperature() (uint32, error) {
	return d.rawSample(convTemperature, d.opts.TemperatureOSR)
}

// ReadRawPressure triggers a pressure conversion at the configured
// oversampling ratio and returns the 24-bit ADC value.
func (d *MS5803) ReadRawPressure() (uint32, error) {
	return d.rawSample(convPressure, d.opts.PressureOSR)
}

func (d *MS5803) rawSample(mode byte, osr OSR) (uint32, error) {
	if !d.initialized {
		return 0, ErrNotInitialized
	}

	if err := d.dev.Tx([]byte{cmdConvert | mode | byte(osr)}, nil); err != nil {
		return 0, fmt.Errorf("ms5803: start conversion: %w", err)
	}

	// The ADC must not be read before the conversion finishes or the result
	// is corrupted.
	time.Sleep(osr.conversionTime())

	buf := make([]byte, 3)
	if err := d.dev.Tx([]byte{cmdADCRead}, buf); err != nil {
		return 0, fmt.Errorf("ms5803: read ADC: %w", err)
	}
	return uint32(buf[0])<<16 | uint32(buf[1])<<8 | uint32(buf[2]), nil
}

// Compensate applies the datasheet's second-order temperature compensation to
// a raw temperature/pressure pair. It returns the temperature in centidegrees
// Celsius (2015 = 20.15 °C) and the pressure in tenths of a millibar
// (10005 = 1000.5 mbar). Pure given the calibration constants: the same raw
// pair always yields the same result.
func (d *MS5803) Compensate(rawTemp, rawPress uint32) (int32, int32, error) {
	if !d.initialized {
		return 0, 0, ErrNotInitialized
	}

	dT := int64(rawTemp) - int64(d.cal.c5)<<8
	temp := ((dT * int64(d.cal.c6)) >> 23) + 2000

	// Second-order correction terms.
	var t2, off2, sens2 int64
	if temp < 2000 {
		t2 = 3 * ((dT * dT) >> 33)
		off2 = (3 * (temp - 2000) * (temp - 2000)) >> 1
		sens2 = (5 * (temp - 2000) * (temp - 2000)) >> 3
		if temp < -1500 {
			off2 += 7 * (temp + 1500) * (temp + 1500)
			sens2 += ((temp + 1500) * (temp + 1500)) << 2
		}
	} else {
		t2 = (7 * dT * dT) >> 37
		off2 = ((temp - 2000) * (temp - 2000)) >> 4
	}

	off := int64(d.cal.c2)<<16 + ((int64(d.cal.c4) * dT) >> 7)
	sens := int64(d.cal.c1)<<15 + ((int64(d.cal.c3) * dT) >> 8)

	temp -= t2
	off -= off2
	sens -= sens2

	press := (((sens * int64(rawPress)) >> 21) - off) >> 15

	return int32(temp), int32(press), nil
}

// ReadTemperaturePressure runs one temperature and one pressure conversion
// and returns the compensated values in degrees Celsius and millibar.
func (d *MS5803) ReadTemperaturePressure() (float64, float64, error) {
	rawTemp, err := d.ReadRawTemperature()
	if err != nil {
		return 0, 0, err
	}
	rawPress, err := d.ReadRawPressure()
	if err != nil {
		return 0, 0, err
	}
	temp, press, err := d.Compensate(rawTemp, rawPress)
	if err != nil {
		return 0, 0, err
	}
	return Celsius(temp), Millibar(press), nil
}

// Sense reads the sensor once and fills e with SI values.
func (d *MS5803) Sense(e *physic.Env) error {
	rawTemp, err := d.ReadRawTemperature()
	if err != nil {
		return err
	}
	rawPress, err := d.ReadRawPressure()
	if err != nil {
		return err
	}
	temp, press, err := d.Compensate(rawTemp, rawPress)
	if err != nil {
		return err
	}
	e.Temperature = physic.ZeroCelsius + physic.Temperature(temp)*10*physic.MilliCelsius
	// One count is 0.1 mbar = 10 Pa.
	e.Pressure = physic.Pressure(press) * 10 * physic.Pascal
	return nil
}
