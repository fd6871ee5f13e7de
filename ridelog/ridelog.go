// Package ridelog is a small REST service that keeps a record of gear changes and shifter errors
// during a ride
package ridelog

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/calvinmclean/babyapi"

	"github.com/calvinmclean/gearshift"
)

const (
	Name     = "Shifts"
	BasePath = "/shifts"
)

// Shift is one recorded status event from the shifter
type Shift struct {
	babyapi.DefaultResource

	Type    gearshift.MessageType `json:"type"`
	Gear    *int                  `json:"gear,omitempty"`
	Message string                `json:"message,omitempty"`
	Time    time.Time             `json:"time"`
}

// NewShift creates a Shift from a status message. Only gear-changed messages have a Gear
func NewShift(m gearshift.Message, now time.Time) *Shift {
	s := &Shift{
		Type: m.Type,
		Time: now,
	}

	g, err := m.Gear()
	if err == nil {
		s.Gear = &g
	} else {
		s.Message = m.Payload
	}

	return s
}

func (s *Shift) Bind(r *http.Request) error {
	err := s.DefaultResource.Bind(r)
	if err != nil {
		return err
	}

	switch r.Method {
	case http.MethodPost, http.MethodPut:
	default:
		return nil
	}

	if !s.Type.Valid() {
		return fmt.Errorf("invalid type %q", s.Type)
	}
	if s.Type == gearshift.MessageGearChanged && s.Gear == nil {
		return errors.New("missing gear")
	}
	if s.Time.IsZero() {
		s.Time = time.Now()
	}

	return nil
}

func (s *Shift) String() string {
	if s.Gear != nil {
		return fmt.Sprintf("%s %s gear=%d", s.Time.Format(time.TimeOnly), s.Type, *s.Gear)
	}
	return fmt.Sprintf("%s %s %s", s.Time.Format(time.TimeOnly), s.Type, s.Message)
}

// NewAPI creates the ride log API. It uses babyapi's default in-memory storage
func NewAPI() *babyapi.API[*Shift] {
	return babyapi.NewAPI(Name, BasePath, func() *Shift { return &Shift{} })
}
