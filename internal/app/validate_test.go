package app_test

import (
	"encoding/json"
	"strings"
	"testing"

	"hotel_onboarding/internal/app"
	"hotel_onboarding/internal/domain"
)

func validate(t *testing.T, stepID, payload string) domain.ValidationResult {
	t.Helper()
	step, err := app.DecodeStep(stepID, json.RawMessage(payload))
	if err != nil {
		t.Fatalf("DecodeStep: %v", err)
	}
	return app.ValidateStep(stepID, step)
}

func TestValidateBasicInfo(t *testing.T) {
	res := validate(t, domain.StepBasicInfo, `{"propertyType":"hotel","contactEmail":"not-an-email"}`)
	if res.IsValid {
		t.Fatalf("expected invalid")
	}
	if len(res.Errors) != 2 {
		t.Fatalf("expected name + email errors, got %v", res.Errors)
	}

	res = validate(t, domain.StepBasicInfo, `{"name":"Harbor View","propertyType":"hotel","contactEmail":"x@y.example"}`)
	if !res.IsValid {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
	// empty address is advisory only
	if len(res.Warnings) == 0 {
		t.Fatalf("expected address warning")
	}
}

func TestValidatePolicies_TimeFormat(t *testing.T) {
	res := validate(t, domain.StepPolicies, `{"checkInTime":"25:00","checkOutTime":"11:00"}`)
	if res.IsValid {
		t.Fatalf("expected invalid for 25:00")
	}

	res = validate(t, domain.StepPolicies, `{"checkInTime":"15:00"}`)
	if !res.IsValid {
		t.Fatalf("lone check-in time is a warning, not an error: %v", res.Errors)
	}
	joined := strings.Join(res.Warnings, "\n")
	if !strings.Contains(joined, "check-in and check-out") {
		t.Fatalf("expected pairing warning, got %v", res.Warnings)
	}
}

func TestValidateImages(t *testing.T) {
	res := validate(t, domain.StepImages, `{"images":[
		{"id":"a","category":"submarine","qualityScore":150}]}`)
	if res.IsValid {
		t.Fatalf("out-of-range quality must be an error")
	}
	joined := strings.Join(res.Warnings, "\n")
	if !strings.Contains(joined, "submarine") {
		t.Fatalf("unknown category must warn, got %v", res.Warnings)
	}
}

func TestValidateRooms(t *testing.T) {
	res := validate(t, domain.StepRooms, `{"rooms":[
		{"name":"Deluxe King","capacity":0},
		{"name":"","capacity":2}]}`)
	if res.IsValid {
		t.Fatalf("expected errors")
	}
	if len(res.Errors) != 2 {
		t.Fatalf("expected capacity + empty-name errors, got %v", res.Errors)
	}
}

func TestValidateDescription(t *testing.T) {
	res := validate(t, domain.StepDescription, `{"content":"Short.","format":"plain"}`)
	if !res.IsValid {
		t.Fatalf("short description warns, not errors: %v", res.Errors)
	}
	if len(res.Warnings) == 0 {
		t.Fatalf("expected word-count warning")
	}

	res = validate(t, domain.StepDescription, `{"content":"x","format":"docx"}`)
	if res.IsValid {
		t.Fatalf("unsupported format must be an error")
	}
}

func TestValidateStepPayload_DecodeFailureIsResult(t *testing.T) {
	h := newHarness(t)
	res := h.svc.ValidateStepPayload(domain.StepImages, json.RawMessage(`{"images":"nope"}`))
	if res.IsValid {
		t.Fatalf("malformed payload must be reported invalid")
	}
	if len(res.Errors) == 0 {
		t.Fatalf("expected decode error in result")
	}
}
