package barowatch

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

type CSVWriter struct {
	writer *csv.Writer
}

func NewCSVWriter(w io.Writer) *CSVWriter {
	return &CSVWriter{
		writer: csv.NewWriter(w),
	}
}

// Start writes the header and then every sample from the channel until it is
// closed.
func (cw *CSVWriter) Start(samples <-chan Sample) error {
	if err := cw.writer.Write([]string{"timestamp_ms", "temperature_c", "pressure_mbar"}); err != nil {
		return fmt.Errorf("error writing CSV header: %v", err)
	}

	for sample := range samples {
		if err := cw.WriteSample(sample); err != nil {
			return err
		}
	}

	return nil
}

func (cw *CSVWriter) Close() {
	cw.writer.Flush()
}

func (cw *CSVWriter) WriteSample(s Sample) error {
	if err := cw.writer.Write([]string{
		strconv.FormatInt(s.Timestamp, 10),
		strconv.FormatFloat(s.Temperature, 'f', 2, 64),
		strconv.FormatFloat(s.Pressure, 'f', 1, 64),
	}); err != nil {
		return fmt.Errorf("error writing CSV: %v", err)
	}
	cw.writer.Flush()
	return nil
}
