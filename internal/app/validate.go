package app

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"

	"hotel_onboarding/internal/domain"
)

/********** step validators (pure; rule violations are results, not errors) **********/

var (
	emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	timeRe  = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)
)

var knownImageCategories = map[string]struct{}{
	domain.ImageExterior: {}, domain.ImageLobby: {}, domain.ImageRooms: {},
	"dining": {}, "amenities": {}, "other": {},
}

var knownBuckets = func() map[string]struct{} {
	m := make(map[string]struct{}, len(domain.AmenityBuckets))
	for _, b := range domain.AmenityBuckets {
		m[b] = struct{}{}
	}
	return m
}()

// ValidateStep dispatches to the matching step validator. Unknown step
// ids are accepted with no rules (logged, not an error).
func ValidateStep(stepID string, step any) domain.ValidationResult {
	var r result
	switch p := step.(type) {
	case BasicInfoStep:
		validateBasicInfo(p, &r)
	case LocationStep:
		validateLocation(p, &r)
	case AmenitiesStep:
		validateAmenities(p, &r)
	case ImagesStep:
		validateImages(p, &r)
	case DescriptionStep:
		validateDescription(p, &r)
	case RoomsStep:
		validateRooms(p, &r)
	case PoliciesStep:
		validatePolicies(p, &r)
	case UnknownStep:
		log.Debug().Str("step", p.StepID).Msg("no validator for step; accepting")
	default:
		log.Debug().Str("step", stepID).Msg("no validator for step; accepting")
	}
	return r.done()
}

type result struct {
	errs  []string
	warns []string
}

func (r *result) errf(format string, a ...any)  { r.errs = append(r.errs, fmt.Sprintf(format, a...)) }
func (r *result) warnf(format string, a ...any) { r.warns = append(r.warns, fmt.Sprintf(format, a...)) }

func (r *result) done() domain.ValidationResult {
	return domain.ValidationResult{
		IsValid:  len(r.errs) == 0,
		Errors:   r.errs,
		Warnings: r.warns,
	}
}

func validateBasicInfo(p BasicInfoStep, r *result) {
	if strings.TrimSpace(p.Name) == "" {
		r.errf("name is required")
	}
	if strings.TrimSpace(p.PropertyType) == "" {
		r.errf("propertyType is required")
	}
	if strings.TrimSpace(p.Address) == "" {
		r.warnf("address is empty; listings without an address rank poorly")
	}
	if p.ContactEmail != "" && !emailRe.MatchString(p.ContactEmail) {
		r.errf("contactEmail %q is not a valid email address", p.ContactEmail)
	}
}

func validateLocation(p LocationStep, r *result) {
	if len(p.Attractions) == 0 {
		r.warnf("no nearby attractions listed")
	}
	if strings.TrimSpace(p.Transportation) == "" {
		r.warnf("transportation info is empty")
	}
	if strings.TrimSpace(p.Neighborhood) == "" {
		r.warnf("neighborhood description is empty")
	}
}

func validateAmenities(p AmenitiesStep, r *result) {
	nonEmpty := 0
	for b, ids := range p.Buckets {
		if _, ok := knownBuckets[b]; !ok {
			r.warnf("unknown amenity bucket %q", b)
		}
		if len(ids) > 0 {
			nonEmpty++
		}
	}
	if nonEmpty == 0 {
		r.warnf("no amenities selected in any bucket")
	}
}

func validateImages(p ImagesStep, r *result) {
	for _, img := range p.Images {
		if img.QualityScore < 0 || img.QualityScore > 100 {
			r.errf("image %q has quality score %d outside 0-100", img.ID, img.QualityScore)
		}
		if img.Category != "" {
			if _, ok := knownImageCategories[img.Category]; !ok {
				r.warnf("image %q has unknown category %q", img.ID, img.Category)
			}
		}
	}
	if len(p.Images) == 0 {
		r.warnf("no images uploaded")
	} else if len(p.Images) < 5 {
		r.warnf("only %d images; at least 5 recommended", len(p.Images))
	}
}

func validateDescription(p DescriptionStep, r *result) {
	content := strings.TrimSpace(p.Content)
	if content == "" {
		r.errf("description content is required")
		return
	}
	if wc := wordCount(content); wc < 100 {
		r.warnf("description has %d words; 100+ scores better", wc)
	}
	if p.Format != "" && p.Format != "plain" && p.Format != "markdown" {
		r.errf("format must be plain or markdown, got %q", p.Format)
	}
}

func validateRooms(p RoomsStep, r *result) {
	if len(p.Rooms) == 0 {
		r.warnf("no rooms defined")
		return
	}
	for _, room := range p.Rooms {
		if strings.TrimSpace(room.Name) == "" {
			r.errf("room with empty name")
			continue
		}
		if room.Capacity <= 0 {
			r.errf("room %q needs a capacity greater than zero", room.Name)
		}
		if room.Pricing.NightlyRate < 0 {
			r.errf("room %q has a negative nightly rate", room.Name)
		}
	}
}

func validatePolicies(p PoliciesStep, r *result) {
	if p.CheckInTime != "" && !timeRe.MatchString(p.CheckInTime) {
		r.errf("checkInTime %q must be HH:MM", p.CheckInTime)
	}
	if p.CheckOutTime != "" && !timeRe.MatchString(p.CheckOutTime) {
		r.errf("checkOutTime %q must be HH:MM", p.CheckOutTime)
	}
	if (p.CheckInTime == "") != (p.CheckOutTime == "") {
		r.warnf("set both check-in and check-out times, not just one")
	}
	if strings.TrimSpace(p.Cancellation) == "" {
		r.warnf("cancellation policy is empty")
	}
	if strings.TrimSpace(p.PetPolicy) == "" || strings.TrimSpace(p.SmokingPolicy) == "" {
		r.warnf("pet and smoking policies should both be stated")
	}
}

func wordCount(s string) int { return len(strings.Fields(s)) }
