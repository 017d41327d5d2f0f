package domain

import "time"

type OnboardingStatus string

const (
	OnboardingNotStarted OnboardingStatus = "NOT_STARTED"
	OnboardingInProgress OnboardingStatus = "IN_PROGRESS"
	OnboardingCompleted  OnboardingStatus = "COMPLETED"
)

// Canonical amenity bucket names. The first four are inheritable: rooms
// derive their inherited amenity set from them.
const (
	BucketPropertyWide = "propertyWide"
	BucketWellness     = "wellness"
	BucketDining       = "dining"
	BucketBusiness     = "business"
)

var AmenityBuckets = []string{BucketPropertyWide, BucketWellness, BucketDining, BucketBusiness}

// InheritableBuckets lists the hotel buckets whose union becomes each
// room's inherited amenity set.
var InheritableBuckets = []string{BucketPropertyWide, BucketWellness, BucketDining, BucketBusiness}

// Canonical image bucket names used for category coverage scoring.
const (
	ImageExterior = "exterior"
	ImageLobby    = "lobby"
	ImageRooms    = "rooms"
)

// ProcessedImage is produced by the (out-of-scope) image pipeline and
// consumed here as a value.
type ProcessedImage struct {
	ID           string        `json:"id"`
	Category     string        `json:"category"`
	QualityScore int           `json:"qualityScore"` // 0-100
	Metadata     ImageMetadata `json:"metadata"`
}

type ImageMetadata struct {
	Dimensions Dimensions `json:"dimensions"`
	Format     string     `json:"format,omitempty"`
	SizeBytes  int64      `json:"sizeBytes,omitempty"`
}

type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type HotelBasicInfo struct {
	Name         string `json:"name"`
	PropertyType string `json:"propertyType"`
	Address      string `json:"address"`
	City         string `json:"city"`
	Country      string `json:"country"`
	ContactEmail string `json:"contactEmail"`
	ContactPhone string `json:"contactPhone"`
}

type RichDescription struct {
	Content        string `json:"content"`
	Format         string `json:"format"` // plain|markdown
	WordCount      int    `json:"wordCount"`
	ReadingTimeMin int    `json:"readingTimeMin"`
}

type LocationDetails struct {
	Attractions    []string `json:"attractions"`
	Transportation string   `json:"transportation"`
	Accessibility  string   `json:"accessibility"`
	Neighborhood   string   `json:"neighborhood"`
}

type HotelPolicies struct {
	CheckInTime   string `json:"checkInTime"`  // "15:00"
	CheckOutTime  string `json:"checkOutTime"` // "11:00"
	Cancellation  string `json:"cancellation"`
	BookingTerms  string `json:"bookingTerms"`
	PetPolicy     string `json:"petPolicy"`
	SmokingPolicy string `json:"smokingPolicy"`
}

type ScoreBreakdown struct {
	ImageQuality        int `json:"imageQuality"`
	ContentCompleteness int `json:"contentCompleteness"`
	PolicyClarity       int `json:"policyClarity"`
}

type QualityMetrics struct {
	OverallScore int            `json:"overallScore"` // 0-100
	Breakdown    ScoreBreakdown `json:"breakdown"`
	ScoredAt     time.Time      `json:"scoredAt"` // stamped at commit, not by the scorer
}

// HotelAggregate is the canonical post-commit hotel record read by
// search, booking, and analytics.
type HotelAggregate struct {
	ID               int64                       `json:"id"`
	OwnerID          int64                       `json:"ownerId"`
	BasicInfo        HotelBasicInfo              `json:"basicInfo"`
	Description      RichDescription             `json:"description"`
	Location         LocationDetails             `json:"location"`
	Amenities        map[string][]string         `json:"amenities"` // bucket -> amenity ids
	Images           map[string][]ProcessedImage `json:"images"`    // bucket -> images
	Policies         HotelPolicies               `json:"policies"`
	BusinessFeatures []string                    `json:"businessFeatures"`
	Quality          QualityMetrics              `json:"quality"`
	OnboardingStatus OnboardingStatus            `json:"onboardingStatus"`
	LegacyID         *int64                      `json:"legacyId,omitempty"`
	UpdatedAt        time.Time                   `json:"updatedAt"`
}

// InheritableAmenities returns the union of the hotel's inheritable
// buckets, deduplicated, in bucket-then-insertion order. Rooms copy this
// into their inherited set inside the same transaction as any hotel
// amenity change.
func (h *HotelAggregate) InheritableAmenities() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, b := range InheritableBuckets {
		for _, a := range h.Amenities[b] {
			if _, ok := seen[a]; ok {
				continue
			}
			seen[a] = struct{}{}
			out = append(out, a)
		}
	}
	return out
}

// LegacyHotel is the pre-onboarding record shape consumed by migration.
type LegacyHotel struct {
	ID        int64        `json:"id"`
	OwnerID   int64        `json:"ownerId"`
	Name      string       `json:"name"`
	Address   string       `json:"address"`
	City      string       `json:"city"`
	Country   string       `json:"country"`
	Email     string       `json:"email"`
	Phone     string       `json:"phone"`
	Amenities []string     `json:"amenities"` // flat, uncategorized
	ImageURLs []string     `json:"imageUrls"` // predate the quality pipeline
	Rooms     []LegacyRoom `json:"rooms"`
}

type LegacyRoom struct {
	Name     string  `json:"name"`
	Type     string  `json:"type"`
	Capacity int     `json:"capacity"`
	Price    float64 `json:"price"`
	Currency string  `json:"currency"`
}
