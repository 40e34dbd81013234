package barowatch

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

// Sample is one calibrated reading from the sensor.
type Sample struct {
	Timestamp   int64   `json:"timestamp"`   // Unix milliseconds
	Temperature float64 `json:"temperature"` // degrees Celsius
	Pressure    float64 `json:"pressure"`    // millibar
}

// Recorder persists samples to a SQLite database.
type Recorder struct {
	db *sql.DB
}

func NewRecorder(path string) (*Recorder, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS samples (
			timestamp INTEGER PRIMARY KEY,
			temperature REAL,
			pressure REAL
		)
	`)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Recorder{db: db}, nil
}

func (r *Recorder) Close() error {
	return r.db.Close()
}

// Add stores one sample. Samples sharing a timestamp are rejected by the
// primary key; the caller controls the sampling interval.
func (r *Recorder) Add(s Sample) error {
	_, err := r.db.Exec(`
		INSERT INTO samples (timestamp, temperature, pressure)
		VALUES (?, ?, ?)`,
		s.Timestamp,
		s.Temperature,
		s.Pressure,
	)
	return err
}

// History returns the samples recorded between start and end inclusive, in
// chronological order.
func (r *Recorder) History(start, end int64) ([]Sample, error) {
	rows, err := r.db.Query(`
		SELECT timestamp, temperature, pressure
		FROM samples
		WHERE timestamp BETWEEN ? AND ?
		ORDER BY timestamp ASC
	`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Sample
	for rows.Next() {
		var s Sample
		if err := rows.Scan(&s.Timestamp, &s.Temperature, &s.Pressure); err != nil {
			return nil, err
		}
		results = append(results, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
