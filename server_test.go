package barowatch

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type fakeSensor struct {
	temp  float64
	press float64
	err   error
}

func (f *fakeSensor) ReadTemperaturePressure() (float64, float64, error) {
	return f.temp, f.press, f.err
}

func TestHandleStatus(t *testing.T) {
	s := NewServer(&fakeSensor{}, nil, time.Second)

	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status code = %d, want 200", rec.Code)
	}
	var resp struct {
		Status     string  `json:"status"`
		LastSample *Sample `json:"last_sample"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if resp.Status != StatusOK {
		t.Errorf("status = %q, want %q", resp.Status, StatusOK)
	}
	if resp.LastSample != nil {
		t.Errorf("last_sample = %+v before any poll, want absent", resp.LastSample)
	}
}

func TestHandleHistory(t *testing.T) {
	r := setupRecorder(t)
	for _, s := range []Sample{
		{Timestamp: 1000, Temperature: 20.1, Pressure: 1000.5},
		{Timestamp: 2000, Temperature: 20.2, Pressure: 1000.4},
		{Timestamp: 9000, Temperature: 20.3, Pressure: 1000.3},
	} {
		if err := r.Add(s); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}

	s := NewServer(&fakeSensor{}, r, time.Second)

	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/history?start=0&end=5000", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status code = %d, want 200", rec.Code)
	}
	var got []Sample
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("history returned %d samples, want 2", len(got))
	}
}

func TestHandleHistoryBadParams(t *testing.T) {
	s := NewServer(&fakeSensor{}, setupRecorder(t), time.Second)

	for _, target := range []string{"/history", "/history?start=abc&end=10", "/history?start=0"} {
		rec := httptest.NewRecorder()
		s.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status code = %d, want 400", target, rec.Code)
		}
	}
}

func TestPollLoopRecordsSamples(t *testing.T) {
	r := setupRecorder(t)
	s := NewServer(&fakeSensor{temp: 20.15, press: 1000.5}, r, 25*time.Millisecond)

	go s.pollSensor()
	go s.broadcastMessages()

	deadline := time.Now().Add(2 * time.Second)
	for {
		got, err := r.History(0, time.Now().UnixMilli())
		if err != nil {
			t.Fatalf("History: %v", err)
		}
		if len(got) >= 2 {
			if got[0].Temperature != 20.15 || got[0].Pressure != 1000.5 {
				t.Errorf("recorded sample = %+v, want temp 20.15 press 1000.5", got[0])
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("recorded %d samples before deadline, want at least 2", len(got))
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestPollLoopBroadcastsErrors(t *testing.T) {
	sensor := &fakeSensor{err: errors.New("bus gone")}
	s := NewServer(sensor, nil, 10*time.Millisecond)

	go s.pollSensor()

	select {
	case msg := <-s.status:
		if msg.Status != StatusError || msg.Error == "" {
			t.Errorf("status message = %+v, want error status with message", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no status message after sensor failure")
	}
}
