// Package alerts derives operator alerts from unresolved incident state.
package alerts

import (
	"errors"
	"fmt"
	"time"
)

type Category string

const (
	CategoryCriticalIncident Category = "critical_incident"
	CategoryCamera           Category = "camera_alert"
	CategorySystem           Category = "system_alert"
)

type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

var ErrInvalidSeverity = errors.New("invalid severity. Supported values: critical, high, medium, low")

// Rank orders severities; unknown values rank 0.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	}
	return 0
}

// ParseSeverity accepts "" (no filter) or one of the four severities.
func ParseSeverity(s string) (Severity, error) {
	sev := Severity(s)
	if s == "" || sev.Rank() > 0 {
		return sev, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidSeverity, s)
}

// Action is a suggested follow-up. The synthesizer never executes it.
type Action struct {
	Label  string         `json:"label"`
	Action string         `json:"action"`
	Data   map[string]any `json:"data"`
}

type Alert struct {
	ID        string         `json:"id"`
	Category  Category       `json:"type"`
	Severity  Severity       `json:"severity"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data"`
	Actions   []Action       `json:"actions"`
}

type Summary struct {
	Total    int `json:"total"`
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
}

type Feed struct {
	Alerts      []Alert   `json:"alerts"`
	Summary     Summary   `json:"summary"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// Thresholds drive the camera density and backlog rules.
type Thresholds struct {
	CameraWindow       time.Duration `yaml:"camera_window"`
	CameraMinIncidents int           `yaml:"camera_min_incidents"`
	Backlog            int           `yaml:"backlog"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		CameraWindow:       2 * time.Hour,
		CameraMinIncidents: 3,
		Backlog:            20,
	}
}

const DefaultLimit = 50
