package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type VehicleKind string

const (
	VehicleKindCamper  VehicleKind = "camper"
	VehicleKindTrailer VehicleKind = "trailer"
)

var trailerTokens = []string{"przyczepa", "trailer"}

// KindOf classifies a free-text vehicle class name. Anything that is not
// recognisably a trailer is treated as a camper.
func KindOf(className string) VehicleKind {
	lower := strings.ToLower(className)
	for _, token := range trailerTokens {
		if strings.Contains(lower, token) {
			return VehicleKindTrailer
		}
	}
	return VehicleKindCamper
}

type Vehicle struct {
	ID                   uuid.UUID
	Model                string
	Class                string
	VIN                  string
	Registration         string
	Premium              bool
	InspectionValidUntil *time.Time
	InsuranceValidUntil  *time.Time
}

// VehicleSnapshot is an immutable copy of a vehicle taken when a contract is created.
type VehicleSnapshot struct {
	VehicleID            uuid.UUID  `json:"vehicle_id"`
	Model                string     `json:"model"`
	Class                string     `json:"class"`
	VIN                  string     `json:"vin"`
	Registration         string     `json:"registration"`
	Premium              bool       `json:"premium"`
	InspectionValidUntil *time.Time `json:"inspection_valid_until,omitempty"`
	InsuranceValidUntil  *time.Time `json:"insurance_valid_until,omitempty"`
}

func (v Vehicle) Snapshot() VehicleSnapshot {
	return VehicleSnapshot{
		VehicleID:            v.ID,
		Model:                v.Model,
		Class:                v.Class,
		VIN:                  v.VIN,
		Registration:         v.Registration,
		Premium:              v.Premium,
		InspectionValidUntil: copyTime(v.InspectionValidUntil),
		InsuranceValidUntil:  copyTime(v.InsuranceValidUntil),
	}
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
