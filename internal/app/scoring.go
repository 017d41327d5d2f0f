package app

import (
	"math"
	"sort"
	"strings"

	"hotel_onboarding/internal/domain"
)

// HotelContent is the scoring engine's input: a flattened view of
// everything the hotel currently has. Built from a draft at commit time
// and from the aggregate for live previews; both paths must produce the
// same snapshot for the same data so the two scores agree.
type HotelContent struct {
	Images      []domain.ProcessedImage `json:"images"`
	Amenities   map[string][]string     `json:"amenities"`
	Description domain.RichDescription  `json:"description"`
	Location    domain.LocationDetails  `json:"location"`
	Policies    domain.HotelPolicies    `json:"policies"`
	RoomCount   int                     `json:"roomCount"`
}

// Weights: image quality 40%, content completeness 40%, policy clarity 20%.
const (
	weightImages  = 0.4
	weightContent = 0.4
	weightPolicy  = 0.2
)

// Score computes the weighted quality metrics for the given content.
// Pure and deterministic: identical input yields identical output. The
// caller stamps ScoredAt at commit time.
func Score(c HotelContent) domain.QualityMetrics {
	img := int(math.Round(scoreImages(c.Images)))
	content := int(math.Round(scoreContent(c)))
	policy := int(math.Round(scorePolicies(c.Policies)))
	overall := int(math.Round(weightImages*float64(img) + weightContent*float64(content) + weightPolicy*float64(policy)))
	return domain.QualityMetrics{
		OverallScore: overall,
		Breakdown: domain.ScoreBreakdown{
			ImageQuality:        img,
			ContentCompleteness: content,
			PolicyClarity:       policy,
		},
	}
}

// scoreImages: up to 30 from volume (5/image), up to 40 from the
// high-quality fraction (sub-score >= 80), up to 20 from category
// coverage over {exterior, lobby, rooms}, up to 10 from professional
// shots (sub-score >= 85 and >= 1920x1080, 2 each). Zero images scores
// zero outright.
func scoreImages(images []domain.ProcessedImage) float64 {
	if len(images) == 0 {
		return 0
	}
	volume := math.Min(30, float64(len(images))*5)

	highQuality := 0
	professional := 0
	cats := make(map[string]struct{})
	for _, img := range images {
		if img.QualityScore >= 80 {
			highQuality++
		}
		if img.QualityScore >= 85 &&
			img.Metadata.Dimensions.Width >= 1920 && img.Metadata.Dimensions.Height >= 1080 {
			professional++
		}
		cats[img.Category] = struct{}{}
	}
	quality := float64(highQuality) / float64(len(images)) * 40

	covered := 0
	for _, c := range []string{domain.ImageExterior, domain.ImageLobby, domain.ImageRooms} {
		if _, ok := cats[c]; ok {
			covered++
		}
	}
	coverage := float64(covered) / 3 * 20

	pro := math.Min(10, float64(professional)*2)

	return math.Min(100, volume+quality+coverage+pro)
}

// scoreContent: equal-weight average of description quality, amenity
// completeness, location detail, and room information.
func scoreContent(c HotelContent) float64 {
	return (scoreDescription(c.Description) +
		scoreAmenityCompleteness(c.Amenities) +
		scoreLocationDetail(c.Location) +
		scoreRoomInfo(c.RoomCount)) / 4
}

var (
	locationSignals   = []string{"located", "location", "near", "minutes", "walk", "district", "downtown", "center", "centre"}
	amenitySignals    = []string{"pool", "spa", "gym", "fitness", "wifi", "breakfast", "restaurant", "bar", "parking", "terrace"}
	uniquenessSignals = []string{"unique", "boutique", "historic", "award", "signature", "exclusive", "panoramic", "rooftop"}
)

func scoreDescription(d domain.RichDescription) float64 {
	var pts float64
	if d.WordCount >= 100 {
		pts += 40
	}
	text := strings.ToLower(d.Content)
	if containsAny(text, locationSignals) {
		pts += 15
	}
	if containsAny(text, amenitySignals) {
		pts += 15
	}
	if containsAny(text, uniquenessSignals) {
		pts += 15
	}
	if d.ReadingTimeMin > 0 {
		pts += 15
	}
	return math.Min(100, pts)
}

func containsAny(text string, signals []string) bool {
	for _, s := range signals {
		if strings.Contains(text, s) {
			return true
		}
	}
	return false
}

func scoreAmenityCompleteness(buckets map[string][]string) float64 {
	nonEmpty := 0
	for _, b := range domain.AmenityBuckets {
		if len(buckets[b]) > 0 {
			nonEmpty++
		}
	}
	return float64(nonEmpty) / float64(len(domain.AmenityBuckets)) * 100
}

func scoreLocationDetail(l domain.LocationDetails) float64 {
	var pts float64
	if len(l.Attractions) > 0 {
		pts += 25
	}
	if strings.TrimSpace(l.Transportation) != "" {
		pts += 25
	}
	if strings.TrimSpace(l.Accessibility) != "" {
		pts += 25
	}
	if strings.TrimSpace(l.Neighborhood) != "" {
		pts += 25
	}
	return pts
}

func scoreRoomInfo(count int) float64 {
	switch {
	case count <= 0:
		return 0
	case count == 1:
		return 40
	case count <= 4:
		return 60
	case count <= 9:
		return 80
	default:
		return 100
	}
}

// scorePolicies: four binary checks, each worth 100, averaged.
func scorePolicies(p domain.HotelPolicies) float64 {
	var sum float64
	if strings.TrimSpace(p.Cancellation) != "" {
		sum += 100
	}
	if strings.TrimSpace(p.CheckInTime) != "" && strings.TrimSpace(p.CheckOutTime) != "" {
		sum += 100
	}
	if strings.TrimSpace(p.BookingTerms) != "" {
		sum += 100
	}
	if strings.TrimSpace(p.PetPolicy) != "" && strings.TrimSpace(p.SmokingPolicy) != "" {
		sum += 100
	}
	return sum / 4
}

/********** diagnostics **********/

type MissingInformation struct {
	Category string   `json:"category"` // Images | Content | Policies | Business Features
	Items    []string `json:"items"`
	Priority string   `json:"priority"` // high | medium | low
}

const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// IdentifyMissingInformation lists concrete gaps per category. Purely
// diagnostic; never feeds back into the score.
func IdentifyMissingInformation(c HotelContent) []MissingInformation {
	var out []MissingInformation

	var imgItems []string
	required := false
	if len(c.Images) == 0 {
		imgItems = append(imgItems, "at least one photo")
		required = true
	} else if len(c.Images) < 5 {
		imgItems = append(imgItems, "at least 5 photos")
	}
	have := make(map[string]struct{})
	for _, img := range c.Images {
		have[img.Category] = struct{}{}
	}
	for _, cat := range []string{domain.ImageExterior, domain.ImageLobby, domain.ImageRooms} {
		if _, ok := have[cat]; !ok {
			imgItems = append(imgItems, cat+" photos")
		}
	}
	if len(imgItems) > 0 {
		out = append(out, MissingInformation{Category: "Images", Items: imgItems, Priority: priorityFor(imgItems, required)})
	}

	var contentItems []string
	required = false
	if c.Description.WordCount < 100 {
		contentItems = append(contentItems, "description of 100+ words")
		if c.Description.WordCount == 0 {
			required = true
		}
	}
	for _, b := range domain.AmenityBuckets {
		if len(c.Amenities[b]) == 0 {
			contentItems = append(contentItems, b+" amenities")
		}
	}
	if len(c.Location.Attractions) == 0 {
		contentItems = append(contentItems, "nearby attractions")
	}
	if strings.TrimSpace(c.Location.Transportation) == "" {
		contentItems = append(contentItems, "transportation info")
	}
	if c.RoomCount == 0 {
		contentItems = append(contentItems, "room details")
		required = true
	}
	if len(contentItems) > 0 {
		out = append(out, MissingInformation{Category: "Content", Items: contentItems, Priority: priorityFor(contentItems, required)})
	}

	var policyItems []string
	if strings.TrimSpace(c.Policies.Cancellation) == "" {
		policyItems = append(policyItems, "cancellation policy")
	}
	if strings.TrimSpace(c.Policies.CheckInTime) == "" || strings.TrimSpace(c.Policies.CheckOutTime) == "" {
		policyItems = append(policyItems, "check-in and check-out times")
	}
	if strings.TrimSpace(c.Policies.BookingTerms) == "" {
		policyItems = append(policyItems, "booking terms")
	}
	if strings.TrimSpace(c.Policies.PetPolicy) == "" || strings.TrimSpace(c.Policies.SmokingPolicy) == "" {
		policyItems = append(policyItems, "pet and smoking policies")
	}
	if len(policyItems) > 0 {
		out = append(out, MissingInformation{Category: "Policies", Items: policyItems, Priority: priorityFor(policyItems, false)})
	}

	if len(c.Amenities[domain.BucketBusiness]) == 0 {
		items := []string{"business amenities (meeting rooms, workspaces)"}
		out = append(out, MissingInformation{Category: "Business Features", Items: items, Priority: PriorityLow})
	}

	return out
}

func priorityFor(items []string, required bool) string {
	if required || len(items) >= 3 {
		return PriorityHigh
	}
	if len(items) == 2 {
		return PriorityMedium
	}
	return PriorityLow
}

/********** recommendations **********/

type Recommendation struct {
	Priority        string `json:"priority"`
	Area            string `json:"area"`
	Message         string `json:"message"`
	EstimatedImpact int    `json:"estimatedImpact"` // points of overall score
}

// GenerateRecommendations turns metrics and missing-information
// diagnostics into a prioritized action list. Deterministic: sorted
// high > medium > low, ties keep insertion order.
func GenerateRecommendations(m domain.QualityMetrics, missing []MissingInformation) []Recommendation {
	var recs []Recommendation

	if m.Breakdown.ImageQuality < 70 {
		recs = append(recs, Recommendation{
			Priority:        PriorityHigh,
			Area:            "images",
			Message:         "Add more high-resolution photos covering exterior, lobby, and rooms",
			EstimatedImpact: impactOf(weightImages, m.Breakdown.ImageQuality),
		})
	}
	if m.Breakdown.ContentCompleteness < 70 {
		recs = append(recs, Recommendation{
			Priority:        PriorityHigh,
			Area:            "content",
			Message:         "Expand the description and fill in amenity, location, and room details",
			EstimatedImpact: impactOf(weightContent, m.Breakdown.ContentCompleteness),
		})
	}
	if m.Breakdown.PolicyClarity < 70 {
		recs = append(recs, Recommendation{
			Priority:        PriorityMedium,
			Area:            "policies",
			Message:         "State cancellation terms, check-in/out times, and house rules clearly",
			EstimatedImpact: impactOf(weightPolicy, m.Breakdown.PolicyClarity),
		})
	}

	for _, mi := range missing {
		if mi.Priority != PriorityHigh {
			continue
		}
		recs = append(recs, Recommendation{
			Priority:        PriorityHigh,
			Area:            strings.ToLower(mi.Category),
			Message:         "Provide missing " + strings.ToLower(mi.Category) + ": " + strings.Join(mi.Items, ", "),
			EstimatedImpact: 5,
		})
	}

	switch {
	case m.OverallScore >= 90:
		recs = append(recs, Recommendation{
			Priority: PriorityLow, Area: "polish",
			Message: "Listing is in great shape; review seasonal photos and refresh the description quarterly",
		})
	case m.OverallScore >= 70:
		recs = append(recs, Recommendation{
			Priority: PriorityMedium, Area: "focus",
			Message: "Focus on the lowest-scoring area above to cross the 90-point threshold",
		})
	}
	recs = append(recs, Recommendation{
		Priority: PriorityLow, Area: "photography",
		Message: "Shoot in landscape at 1920x1080 or higher with natural daylight",
	})

	sort.SliceStable(recs, func(i, j int) bool {
		return priorityRank(recs[i].Priority) > priorityRank(recs[j].Priority)
	})
	return recs
}

func impactOf(weight float64, current int) int {
	return int(math.Round(weight * float64(100-current)))
}

func priorityRank(p string) int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}
