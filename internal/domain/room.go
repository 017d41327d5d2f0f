package domain

import "time"

type RoomBasicInfo struct {
	Name     string `json:"name"`
	Type     string `json:"type"` // standard|deluxe|suite|...
	Capacity int    `json:"capacity"`
	SizeSqm  int    `json:"sizeSqm"`
	Beds     string `json:"beds"` // "1 king", "2 twin"
}

// AmenityOverride is an explicit room-level exception to inheritance.
// Overrides always win over both inherited and specific entries; see
// EffectiveAmenities.
type AmenityOverride struct {
	Action    string `json:"action"` // add|remove|modify
	AmenityID string `json:"amenityId"`
	Value     string `json:"value,omitempty"` // replacement id for modify
	Reason    string `json:"reason,omitempty"`
}

const (
	OverrideAdd    = "add"
	OverrideRemove = "remove"
	OverrideModify = "modify"
)

type RoomAmenities struct {
	Inherited []string          `json:"inherited"` // recomputed from the parent hotel, never edited directly
	Specific  []string          `json:"specific"`
	Overrides []AmenityOverride `json:"overrides"`
}

type RoomPricing struct {
	NightlyRate float64 `json:"nightlyRate"`
	Currency    string  `json:"currency"`
}

// RoomAvailability mirrors the policy-derived fields room-level
// consumers read without loading the hotel.
type RoomAvailability struct {
	CheckInFrom   string `json:"checkInFrom"`
	CheckOutUntil string `json:"checkOutUntil"`
	MinNights     int    `json:"minNights"`
}

type RoomAggregate struct {
	ID           int64            `json:"id"`
	HotelID      int64            `json:"hotelId"`
	BasicInfo    RoomBasicInfo    `json:"basicInfo"`
	Description  string           `json:"description"`
	Amenities    RoomAmenities    `json:"amenities"`
	Images       []ProcessedImage `json:"images"`
	Layout       string           `json:"layout,omitempty"`
	Pricing      RoomPricing      `json:"pricing"`
	Availability RoomAvailability `json:"availability"`
	Quality      QualityMetrics   `json:"quality"`
	UpdatedAt    time.Time        `json:"updatedAt"`
}

// ApplyInheritance rewrites the room's inherited amenity set and
// policy-derived availability mirrors from the parent hotel. Called for
// every child room inside the transaction that changed the hotel.
func (r *RoomAggregate) ApplyInheritance(h *HotelAggregate) {
	r.Amenities.Inherited = h.InheritableAmenities()
	if h.Policies.CheckInTime != "" {
		r.Availability.CheckInFrom = h.Policies.CheckInTime
	}
	if h.Policies.CheckOutTime != "" {
		r.Availability.CheckOutUntil = h.Policies.CheckOutTime
	}
}

// EffectiveAmenities resolves the room's final amenity set:
// inherited ∪ specific, then overrides applied in order. Overrides win
// over both sources: remove drops the id wherever it came from, modify
// replaces it with Value, add inserts it.
func (r *RoomAggregate) EffectiveAmenities() []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(id string) {
		if id == "" {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	for _, a := range r.Amenities.Inherited {
		add(a)
	}
	for _, a := range r.Amenities.Specific {
		add(a)
	}
	remove := func(id string) {
		if _, ok := seen[id]; !ok {
			return
		}
		delete(seen, id)
		for i, v := range out {
			if v == id {
				out = append(out[:i], out[i+1:]...)
				break
			}
		}
	}
	for _, ov := range r.Amenities.Overrides {
		switch ov.Action {
		case OverrideAdd:
			add(ov.AmenityID)
		case OverrideRemove:
			remove(ov.AmenityID)
		case OverrideModify:
			remove(ov.AmenityID)
			add(ov.Value)
		}
	}
	return out
}
