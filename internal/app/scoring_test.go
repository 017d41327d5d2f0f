package app_test

import (
	"encoding/json"
	"fmt"
	"testing"

	"hotel_onboarding/internal/app"
	"hotel_onboarding/internal/domain"
)

func img(id, category string, quality, w, h int) domain.ProcessedImage {
	return domain.ProcessedImage{
		ID: id, Category: category, QualityScore: quality,
		Metadata: domain.ImageMetadata{Dimensions: domain.Dimensions{Width: w, Height: h}},
	}
}

func fullContent() app.HotelContent {
	return app.HotelContent{
		Images: []domain.ProcessedImage{
			img("1", domain.ImageExterior, 90, 3840, 2160),
			img("2", domain.ImageExterior, 85, 1920, 1080),
			img("3", domain.ImageRooms, 82, 1920, 1080),
			img("4", domain.ImageRooms, 60, 800, 600),
			img("5", domain.ImageRooms, 55, 800, 600),
			img("6", domain.ImageRooms, 50, 800, 600),
		},
		Amenities: map[string][]string{
			domain.BucketPropertyWide: {"wifi", "parking"},
			domain.BucketWellness:     {"pool"},
			domain.BucketDining:       {"restaurant"},
			domain.BucketBusiness:     {"meeting_room"},
		},
		Description: domain.RichDescription{
			Content:        "A boutique hotel located downtown with a rooftop pool and spa.",
			WordCount:      120,
			ReadingTimeMin: 1,
		},
		Location: domain.LocationDetails{
			Attractions:    []string{"museum"},
			Transportation: "metro two blocks away",
			Accessibility:  "step-free entrance",
			Neighborhood:   "old town",
		},
		Policies: domain.HotelPolicies{
			CheckInTime: "15:00", CheckOutTime: "11:00",
			Cancellation: "free until 24h", BookingTerms: "card required",
			PetPolicy: "no pets", SmokingPolicy: "non-smoking",
		},
		RoomCount: 3,
	}
}

func TestScore_WeightedExample(t *testing.T) {
	m := app.Score(fullContent())

	// images: 30 volume + 20 high-quality fraction + 13.33 coverage
	// (no professional shots: 2 and 3 meet resolution but pro needs 85+,
	// image 3 is 82) -> 2 and 1 qualify, pro = min(10, 2*2) = 4
	// recompute: 1 (90, 4k) and 2 (85, fhd) are professional -> +4
	if m.Breakdown.ImageQuality != 67 {
		t.Fatalf("image quality: got %d want 67", m.Breakdown.ImageQuality)
	}
	if m.Breakdown.ContentCompleteness != 90 {
		t.Fatalf("content completeness: got %d want 90", m.Breakdown.ContentCompleteness)
	}
	if m.Breakdown.PolicyClarity != 100 {
		t.Fatalf("policy clarity: got %d want 100", m.Breakdown.PolicyClarity)
	}
	// round(0.4*67 + 0.4*90 + 0.2*100) = round(82.8)
	if m.OverallScore != 83 {
		t.Fatalf("overall: got %d want 83", m.OverallScore)
	}
}

func TestScore_NoProfessionalShots(t *testing.T) {
	c := fullContent()
	for i := range c.Images {
		c.Images[i].Metadata.Dimensions = domain.Dimensions{Width: 800, Height: 600}
	}
	m := app.Score(c)

	// 30 + 20 + 13.33 + 0 = 63.33 -> 63
	if m.Breakdown.ImageQuality != 63 {
		t.Fatalf("image quality: got %d want 63", m.Breakdown.ImageQuality)
	}
	// round(0.4*63 + 0.4*90 + 0.2*100) = round(81.2)
	if m.OverallScore != 81 {
		t.Fatalf("overall: got %d want 81", m.OverallScore)
	}
}

func TestScore_ZeroImagesZeroComponent(t *testing.T) {
	c := fullContent()
	c.Images = nil
	m := app.Score(c)
	if m.Breakdown.ImageQuality != 0 {
		t.Fatalf("image quality must be 0 with no images, got %d", m.Breakdown.ImageQuality)
	}
}

func TestScore_EmptyContentIsZero(t *testing.T) {
	m := app.Score(app.HotelContent{})
	if m.OverallScore != 0 {
		t.Fatalf("empty content: got %d want 0", m.OverallScore)
	}
}

func TestScore_ComponentsCapped(t *testing.T) {
	c := fullContent()
	// 25 professional 4k images in all categories
	c.Images = nil
	for i := 0; i < 25; i++ {
		cat := domain.ImageExterior
		switch i % 3 {
		case 1:
			cat = domain.ImageLobby
		case 2:
			cat = domain.ImageRooms
		}
		c.Images = append(c.Images, img(fmt.Sprintf("i%d", i), cat, 95, 3840, 2160))
	}
	c.RoomCount = 20
	m := app.Score(c)
	if m.Breakdown.ImageQuality != 100 {
		t.Fatalf("image quality must cap at 100, got %d", m.Breakdown.ImageQuality)
	}
	if m.OverallScore < 0 || m.OverallScore > 100 {
		t.Fatalf("overall out of range: %d", m.OverallScore)
	}
}

func TestScore_RoomCountTiers(t *testing.T) {
	cases := []struct {
		count int
		want  int // content sub-score with everything else empty: roomInfo/4
	}{
		{0, 0}, {1, 10}, {3, 15}, {4, 15}, {5, 20}, {9, 20}, {10, 25}, {50, 25},
	}
	for _, tc := range cases {
		m := app.Score(app.HotelContent{RoomCount: tc.count})
		if m.Breakdown.ContentCompleteness != tc.want {
			t.Errorf("rooms=%d: content got %d want %d", tc.count, m.Breakdown.ContentCompleteness, tc.want)
		}
	}
}

func TestScore_Deterministic(t *testing.T) {
	c := fullContent()
	a, _ := json.Marshal(app.Score(c))
	b, _ := json.Marshal(app.Score(c))
	if string(a) != string(b) {
		t.Fatalf("score must be byte-identical for identical input:\n%s\n%s", a, b)
	}
	if ts := app.Score(c).ScoredAt; !ts.IsZero() {
		t.Fatalf("Score must not stamp ScoredAt, got %v", ts)
	}
}

func TestIdentifyMissingInformation_EmptyHotel(t *testing.T) {
	missing := app.IdentifyMissingInformation(app.HotelContent{})

	byCat := map[string]app.MissingInformation{}
	for _, m := range missing {
		byCat[m.Category] = m
	}
	imgs, ok := byCat["Images"]
	if !ok || imgs.Priority != app.PriorityHigh {
		t.Fatalf("expected high-priority Images gap, got %+v", imgs)
	}
	content, ok := byCat["Content"]
	if !ok || content.Priority != app.PriorityHigh {
		t.Fatalf("expected high-priority Content gap, got %+v", content)
	}
	if _, ok := byCat["Policies"]; !ok {
		t.Fatalf("expected Policies gap")
	}
	if biz, ok := byCat["Business Features"]; !ok || biz.Priority != app.PriorityLow {
		t.Fatalf("expected low-priority Business Features gap, got %+v", biz)
	}
}

func TestIdentifyMissingInformation_CompleteHotel(t *testing.T) {
	c := fullContent()
	c.Images = append(c.Images, img("7", domain.ImageLobby, 70, 0, 0))
	if missing := app.IdentifyMissingInformation(c); len(missing) != 0 {
		t.Fatalf("complete hotel must report no gaps, got %+v", missing)
	}
}

func TestGenerateRecommendations_PriorityOrder(t *testing.T) {
	c := app.HotelContent{RoomCount: 1}
	m := app.Score(c)
	recs := app.GenerateRecommendations(m, app.IdentifyMissingInformation(c))
	if len(recs) == 0 {
		t.Fatalf("weak hotel must get recommendations")
	}
	rank := map[string]int{app.PriorityHigh: 2, app.PriorityMedium: 1, app.PriorityLow: 0}
	for i := 1; i < len(recs); i++ {
		if rank[recs[i].Priority] > rank[recs[i-1].Priority] {
			t.Fatalf("recommendations out of order at %d: %s after %s", i, recs[i].Priority, recs[i-1].Priority)
		}
	}
	for _, r := range recs {
		if r.Priority == app.PriorityHigh && r.EstimatedImpact <= 0 {
			t.Errorf("high-priority recommendation %q has no estimated impact", r.Area)
		}
	}
}

func TestGenerateRecommendations_StrongHotelFewActions(t *testing.T) {
	c := fullContent()
	c.Images = append(c.Images, img("7", domain.ImageLobby, 70, 0, 0))
	m := app.Score(c)
	recs := app.GenerateRecommendations(m, app.IdentifyMissingInformation(c))
	for _, r := range recs {
		if r.Priority == app.PriorityHigh {
			t.Fatalf("strong hotel must not get high-priority actions, got %+v", r)
		}
	}
}
