package barowatch

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// PressureReader is the sensor surface the server needs: one combined
// temperature (degrees C) and pressure (mbar) read per poll.
type PressureReader interface {
	ReadTemperaturePressure() (float64, float64, error)
}

// StatusMessage reports sensor health to WebSocket clients alongside samples.
type StatusMessage struct {
	Type   string `json:"type"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Server polls a pressure sensor at a fixed interval, broadcasts each sample
// over WebSocket and records it to SQLite.
type Server struct {
	wsServer *WebSocketServer
	recorder *Recorder
	sensor   PressureReader
	interval time.Duration

	samples chan Sample
	status  chan StatusMessage

	lastMux    sync.Mutex
	lastSample Sample
	haveSample bool
}

func NewServer(sensor PressureReader, recorder *Recorder, interval time.Duration) *Server {
	return &Server{
		wsServer: NewWebSocketServer(),
		recorder: recorder,
		sensor:   sensor,
		interval: interval,
		samples:  make(chan Sample),
		status:   make(chan StatusMessage),
	}
}

// Routes returns the server's HTTP handler.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/", http.FileServer(http.Dir("static")))
	mux.HandleFunc("/ws", s.wsServer.HandleWS)
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/history", s.handleHistory)
	return mux
}

// Start runs the poll loop and serves HTTP on addr. It blocks until the HTTP
// server fails.
func (s *Server) Start(addr string) error {
	go s.pollSensor()
	go s.broadcastMessages()

	log.Infof("Starting web server on %s", addr)
	return http.ListenAndServe(addr, s.Routes())
}

func (s *Server) pollSensor() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for range ticker.C {
		temp, press, err := s.sensor.ReadTemperaturePressure()
		if err != nil {
			log.Warnf("Sensor read failed: %v", err)
			s.status <- StatusMessage{Type: "status", Status: StatusError, Error: err.Error()}
			continue
		}
		s.samples <- Sample{
			Timestamp:   time.Now().UnixMilli(),
			Temperature: temp,
			Pressure:    press,
		}
	}
}

func (s *Server) broadcastMessages() {
	for {
		select {
		case sample := <-s.samples:
			s.lastMux.Lock()
			s.lastSample = sample
			s.haveSample = true
			s.lastMux.Unlock()
			s.wsServer.Broadcast(sample)
			if s.recorder != nil {
				if err := s.recorder.Add(sample); err != nil {
					log.Warnf("Error recording sample: %v", err)
				}
			}
		case status := <-s.status:
			s.wsServer.Broadcast(status)
		}
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := struct {
		Status     string  `json:"status"`
		LastSample *Sample `json:"last_sample,omitempty"`
	}{Status: StatusOK}
	s.lastMux.Lock()
	if s.haveSample {
		last := s.lastSample
		resp.LastSample = &last
	}
	s.lastMux.Unlock()
	json.NewEncoder(w).Encode(resp)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.recorder == nil {
		http.Error(w, "recording disabled", http.StatusNotFound)
		return
	}

	start, err := strconv.ParseInt(r.URL.Query().Get("start"), 10, 64)
	if err != nil {
		http.Error(w, "invalid start", http.StatusBadRequest)
		return
	}
	end, err := strconv.ParseInt(r.URL.Query().Get("end"), 10, 64)
	if err != nil {
		http.Error(w, "invalid end", http.StatusBadRequest)
		return
	}

	samples, err := s.recorder.History(start, end)
	if err != nil {
		log.Warnf("History query failed: %v", err)
		http.Error(w, "query failed", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(samples)
}
