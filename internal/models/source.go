package models

import "inspector.onebusaway.org/internal/registry"

// SourceEntry is a registry source as exposed over HTTP.
type SourceEntry struct {
	Name                string `json:"name"`
	VehiclePositionsURL string `json:"vehiclePositionsUrl"`
	TripUpdatesURL      string `json:"tripUpdatesUrl"`
}

func NewSourceEntry(name string, src registry.Source) SourceEntry {
	return SourceEntry{
		Name:                name,
		VehiclePositionsURL: src.VehiclePositionsURL,
		TripUpdatesURL:      src.TripUpdatesURL,
	}
}

// SourceDefinition is the body of PUT /api/sources/{name}. At least one URL
// is required.
type SourceDefinition struct {
	VehiclePositionsURL string `json:"vehiclePositionsUrl" validate:"required_without=TripUpdatesURL,omitempty,url"`
	TripUpdatesURL      string `json:"tripUpdatesUrl" validate:"required_without=VehiclePositionsURL,omitempty,url"`
}

func (d SourceDefinition) Source() registry.Source {
	return registry.Source{
		VehiclePositionsURL: d.VehiclePositionsURL,
		TripUpdatesURL:      d.TripUpdatesURL,
	}
}
