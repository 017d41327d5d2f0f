package app

import (
	"encoding/json"
	"fmt"
	"strings"

	"hotel_onboarding/internal/domain"
)

/********** step payloads (closed union, one variant per known step) **********/

type BasicInfoStep struct {
	Name         string `json:"name"`
	PropertyType string `json:"propertyType"`
	Address      string `json:"address"`
	City         string `json:"city"`
	Country      string `json:"country"`
	ContactEmail string `json:"contactEmail"`
	ContactPhone string `json:"contactPhone"`
}

type LocationStep struct {
	Attractions    []string `json:"attractions"`
	Transportation string   `json:"transportation"`
	Accessibility  string   `json:"accessibility"`
	Neighborhood   string   `json:"neighborhood"`
}

type AmenitiesStep struct {
	// bucket name -> amenity ids
	Buckets map[string][]string `json:"buckets"`
}

type ImagesStep struct {
	Images []domain.ProcessedImage `json:"images"`
}

type DescriptionStep struct {
	Content string `json:"content"`
	Format  string `json:"format"`
}

type RoomDraft struct {
	Name        string             `json:"name"`
	Type        string             `json:"type"`
	Capacity    int                `json:"capacity"`
	SizeSqm     int                `json:"sizeSqm"`
	Beds        string             `json:"beds"`
	Description string             `json:"description"`
	Amenities   []string           `json:"amenities"`
	Pricing     domain.RoomPricing `json:"pricing"`
}

type RoomsStep struct {
	Rooms []RoomDraft `json:"rooms"`
}

type PoliciesStep struct {
	CheckInTime      string   `json:"checkInTime"`
	CheckOutTime     string   `json:"checkOutTime"`
	Cancellation     string   `json:"cancellation"`
	BookingTerms     string   `json:"bookingTerms"`
	PetPolicy        string   `json:"petPolicy"`
	SmokingPolicy    string   `json:"smokingPolicy"`
	BusinessFeatures []string `json:"businessFeatures"`
}

// UnknownStep carries raw structured data for step ids this version does
// not know about. Stored as-is, accepted by validation, ignored by the
// commit mapping.
type UnknownStep struct {
	StepID string
	Raw    json.RawMessage
}

// DecodeStep parses a raw payload into its typed variant. Unknown step
// ids fall back to UnknownStep without error.
func DecodeStep(stepID string, raw json.RawMessage) (any, error) {
	var (
		v   any
		err error
	)
	switch stepID {
	case domain.StepBasicInfo:
		p := BasicInfoStep{}
		err = json.Unmarshal(raw, &p)
		v = p
	case domain.StepLocation:
		p := LocationStep{}
		err = json.Unmarshal(raw, &p)
		v = p
	case domain.StepAmenities:
		p := AmenitiesStep{}
		err = json.Unmarshal(raw, &p)
		v = p
	case domain.StepImages:
		p := ImagesStep{}
		err = json.Unmarshal(raw, &p)
		v = p
	case domain.StepDescription:
		p := DescriptionStep{}
		err = json.Unmarshal(raw, &p)
		v = p
	case domain.StepRooms:
		p := RoomsStep{}
		err = json.Unmarshal(raw, &p)
		v = p
	case domain.StepPolicies:
		p := PoliciesStep{}
		err = json.Unmarshal(raw, &p)
		v = p
	default:
		if !json.Valid(raw) {
			return nil, fmt.Errorf("step %q: invalid JSON", stepID)
		}
		return UnknownStep{StepID: stepID, Raw: append(json.RawMessage(nil), raw...)}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("step %q: %w", stepID, err)
	}
	return v, nil
}

/********** normalization **********/

// NormalizeStep deduplicates list-valued fields by identity key (image
// id, room name, amenity id), drops entries with empty identities, and
// leaves free text untouched. Repeated submission of the same logical
// update is therefore idempotent: the stored draft never accumulates
// duplicates. Returns the canonical JSON to store.
func NormalizeStep(step any) (json.RawMessage, error) {
	switch p := step.(type) {
	case ImagesStep:
		p.Images = dedupeImages(p.Images)
		return json.Marshal(p)
	case RoomsStep:
		p.Rooms = dedupeRooms(p.Rooms)
		return json.Marshal(p)
	case AmenitiesStep:
		for b, ids := range p.Buckets {
			p.Buckets[b] = dedupeStrings(ids)
		}
		return json.Marshal(p)
	case LocationStep:
		p.Attractions = dedupeStrings(p.Attractions)
		return json.Marshal(p)
	case PoliciesStep:
		p.BusinessFeatures = dedupeStrings(p.BusinessFeatures)
		return json.Marshal(p)
	case UnknownStep:
		return p.Raw, nil
	default:
		return json.Marshal(p)
	}
}

func dedupeImages(in []domain.ProcessedImage) []domain.ProcessedImage {
	seen := make(map[string]int) // id -> index, last write wins
	out := make([]domain.ProcessedImage, 0, len(in))
	for _, img := range in {
		id := strings.TrimSpace(img.ID)
		if id == "" {
			continue
		}
		if i, ok := seen[id]; ok {
			out[i] = img
			continue
		}
		seen[id] = len(out)
		out = append(out, img)
	}
	return out
}

func dedupeRooms(in []RoomDraft) []RoomDraft {
	seen := make(map[string]int)
	out := make([]RoomDraft, 0, len(in))
	for _, r := range in {
		name := strings.TrimSpace(r.Name)
		if name == "" {
			continue
		}
		r.Amenities = dedupeStrings(r.Amenities)
		if i, ok := seen[name]; ok {
			out[i] = r
			continue
		}
		seen[name] = len(out)
		out = append(out, r)
	}
	return out
}

func dedupeStrings(in []string) []string {
	if in == nil {
		return nil
	}
	seen := make(map[string]struct{})
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
