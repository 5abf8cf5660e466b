// An in-memory stand-in for the punch store API, used when exercising the
// agent without Postgres or AWS. POST /offline toggles a simulated outage so
// the offline fallback and sync paths can be driven by hand.
package main

import (
	"encoding/json"
	"log"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

type punch struct {
	ID         int64     `json:"id"`
	EmployeeID int64     `json:"employeeId"`
	Type       string    `json:"type"`
	Timestamp  time.Time `json:"timestamp"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Note       string    `json:"note,omitempty"`
}

type store struct {
	mu      sync.Mutex
	punches []punch
	nextID  int64
	offline bool
}

func (s *store) submit(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.offline {
		http.Error(w, "simulated outage", http.StatusServiceUnavailable)
		return
	}

	var p punch
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "bad request"})
		return
	}

	s.nextID++
	p.ID = s.nextID
	s.punches = append(s.punches, p)
	log.Printf("Stored punch %d for employee %d (%s)", p.ID, p.EmployeeID, p.Type)

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{"id": p.ID, "message": "Time entry added successfully"})
}

func (s *store) list(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.offline {
		http.Error(w, "simulated outage", http.StatusServiceUnavailable)
		return
	}

	employeeID, _ := strconv.ParseInt(strings.TrimPrefix(r.URL.Path, "/api/punches/"), 10, 64)

	var out []punch
	for _, p := range s.punches {
		if p.EmployeeID == employeeID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if out == nil {
		out = []punch{}
	}
	json.NewEncoder(w).Encode(out)
}

func (s *store) toggleOffline(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offline = !s.offline
	log.Printf("Offline mode: %v", s.offline)
	json.NewEncoder(w).Encode(map[string]bool{"offline": s.offline})
}

func main() {
	s := &store{}
	http.HandleFunc("/api/punch", s.submit)
	http.HandleFunc("/api/punches/", s.list)
	http.HandleFunc("/offline", s.toggleOffline)
	log.Println("Punch store mock starting on port 8081...")
	log.Fatal(http.ListenAndServe(":8081", nil))
}
