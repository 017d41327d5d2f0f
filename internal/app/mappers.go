package app

import (
	"encoding/json"

	"hotel_onboarding/internal/domain"
)

/********** draft -> typed steps **********/

// draftSteps holds every known step decoded from a session draft. Steps
// the draft lacks stay zero-valued; unknown step ids ride along in the
// session but have no commit mapping.
type draftSteps struct {
	BasicInfo   BasicInfoStep
	Location    LocationStep
	Amenities   AmenitiesStep
	Images      ImagesStep
	Description DescriptionStep
	Rooms       RoomsStep
	Policies    PoliciesStep
}

func decodeDraft(draft map[string]json.RawMessage) (draftSteps, error) {
	var d draftSteps
	for _, stepID := range domain.StepOrder {
		raw, ok := draft[stepID]
		if !ok {
			continue
		}
		v, err := DecodeStep(stepID, raw)
		if err != nil {
			return draftSteps{}, err
		}
		switch p := v.(type) {
		case BasicInfoStep:
			d.BasicInfo = p
		case LocationStep:
			d.Location = p
		case AmenitiesStep:
			d.Amenities = p
		case ImagesStep:
			d.Images = p
		case DescriptionStep:
			d.Description = p
		case RoomsStep:
			d.Rooms = p
		case PoliciesStep:
			d.Policies = p
		}
	}
	return d, nil
}

/********** derived description fields **********/

const wordsPerMinute = 200

func enrichDescription(p DescriptionStep) domain.RichDescription {
	wc := wordCount(p.Content)
	reading := 0
	if wc > 0 {
		reading = (wc + wordsPerMinute - 1) / wordsPerMinute
	}
	format := p.Format
	if format == "" {
		format = "plain"
	}
	return domain.RichDescription{
		Content:        p.Content,
		Format:         format,
		WordCount:      wc,
		ReadingTimeMin: reading,
	}
}

/********** draft -> scoring snapshot **********/

func contentFromDraft(d draftSteps) HotelContent {
	return HotelContent{
		Images:      d.Images.Images,
		Amenities:   d.Amenities.Buckets,
		Description: enrichDescription(d.Description),
		Location: domain.LocationDetails{
			Attractions:    d.Location.Attractions,
			Transportation: d.Location.Transportation,
			Accessibility:  d.Location.Accessibility,
			Neighborhood:   d.Location.Neighborhood,
		},
		Policies:  policiesFromStep(d.Policies),
		RoomCount: len(d.Rooms.Rooms),
	}
}

// ContentFromAggregate builds the same snapshot from a committed
// aggregate, for live score previews. Must agree with contentFromDraft
// for equivalent data so the preview and the committed score match.
func ContentFromAggregate(h domain.HotelAggregate, roomCount int) HotelContent {
	var images []domain.ProcessedImage
	for _, bucket := range []string{domain.ImageExterior, domain.ImageLobby, domain.ImageRooms, "dining", "amenities", "other"} {
		images = append(images, h.Images[bucket]...)
	}
	return HotelContent{
		Images:      images,
		Amenities:   h.Amenities,
		Description: h.Description,
		Location:    h.Location,
		Policies:    h.Policies,
		RoomCount:   roomCount,
	}
}

func policiesFromStep(p PoliciesStep) domain.HotelPolicies {
	return domain.HotelPolicies{
		CheckInTime:   p.CheckInTime,
		CheckOutTime:  p.CheckOutTime,
		Cancellation:  p.Cancellation,
		BookingTerms:  p.BookingTerms,
		PetPolicy:     p.PetPolicy,
		SmokingPolicy: p.SmokingPolicy,
	}
}

/********** draft -> aggregate **********/

// applyDraft projects the decoded draft onto an existing aggregate.
// Only steps present in the draft overwrite their slice of the record.
func applyDraft(h *domain.HotelAggregate, d draftSteps, draft map[string]json.RawMessage) {
	if _, ok := draft[domain.StepBasicInfo]; ok {
		h.BasicInfo = domain.HotelBasicInfo{
			Name:         d.BasicInfo.Name,
			PropertyType: d.BasicInfo.PropertyType,
			Address:      d.BasicInfo.Address,
			City:         d.BasicInfo.City,
			Country:      d.BasicInfo.Country,
			ContactEmail: d.BasicInfo.ContactEmail,
			ContactPhone: d.BasicInfo.ContactPhone,
		}
	}
	if _, ok := draft[domain.StepLocation]; ok {
		h.Location = domain.LocationDetails{
			Attractions:    d.Location.Attractions,
			Transportation: d.Location.Transportation,
			Accessibility:  d.Location.Accessibility,
			Neighborhood:   d.Location.Neighborhood,
		}
	}
	if _, ok := draft[domain.StepAmenities]; ok {
		h.Amenities = d.Amenities.Buckets
	}
	if _, ok := draft[domain.StepImages]; ok {
		h.Images = bucketImages(d.Images.Images)
	}
	if _, ok := draft[domain.StepDescription]; ok {
		h.Description = enrichDescription(d.Description)
	}
	if _, ok := draft[domain.StepPolicies]; ok {
		h.Policies = policiesFromStep(d.Policies)
		h.BusinessFeatures = d.Policies.BusinessFeatures
	}
}

func bucketImages(images []domain.ProcessedImage) map[string][]domain.ProcessedImage {
	out := make(map[string][]domain.ProcessedImage)
	for _, img := range images {
		cat := img.Category
		// Unrecognized categories collapse into "other" so the stored
		// buckets stay the fixed set ContentFromAggregate reads back.
		if _, ok := knownImageCategories[cat]; !ok {
			cat = "other"
		}
		out[cat] = append(out[cat], img)
	}
	return out
}

// roomFromDraft builds a new room aggregate from a wizard room entry.
// Inheritance fields are filled by ApplyInheritance afterwards.
func roomFromDraft(hotelID int64, rd RoomDraft) domain.RoomAggregate {
	return domain.RoomAggregate{
		HotelID: hotelID,
		BasicInfo: domain.RoomBasicInfo{
			Name:     rd.Name,
			Type:     rd.Type,
			Capacity: rd.Capacity,
			SizeSqm:  rd.SizeSqm,
			Beds:     rd.Beds,
		},
		Description: rd.Description,
		Amenities:   domain.RoomAmenities{Specific: rd.Amenities},
		Pricing:     rd.Pricing,
	}
}

/********** legacy -> aggregate **********/

// legacyImageQuality is the default sub-score for migrated images; they
// predate the quality pipeline.
const legacyImageQuality = 40

func hotelFromLegacy(l domain.LegacyHotel) domain.HotelAggregate {
	images := make([]domain.ProcessedImage, 0, len(l.ImageURLs))
	for _, u := range l.ImageURLs {
		images = append(images, domain.ProcessedImage{
			ID:           u,
			Category:     domain.ImageExterior,
			QualityScore: legacyImageQuality,
		})
	}
	legacyID := l.ID
	return domain.HotelAggregate{
		OwnerID: l.OwnerID,
		BasicInfo: domain.HotelBasicInfo{
			Name:         l.Name,
			Address:      l.Address,
			City:         l.City,
			Country:      l.Country,
			ContactEmail: l.Email,
			ContactPhone: l.Phone,
		},
		Amenities:        map[string][]string{domain.BucketPropertyWide: dedupeStrings(l.Amenities)},
		Images:           map[string][]domain.ProcessedImage{domain.ImageExterior: images},
		OnboardingStatus: domain.OnboardingNotStarted,
		LegacyID:         &legacyID,
	}
}

func roomFromLegacy(hotelID int64, lr domain.LegacyRoom) domain.RoomAggregate {
	return domain.RoomAggregate{
		HotelID: hotelID,
		BasicInfo: domain.RoomBasicInfo{
			Name:     lr.Name,
			Type:     lr.Type,
			Capacity: lr.Capacity,
		},
		Pricing: domain.RoomPricing{NightlyRate: lr.Price, Currency: lr.Currency},
	}
}
