package types

import (
	"encoding/json"
	"testing"
)

func TestFlexListSingleObjectOrArray(t *testing.T) {
	type edge struct {
		From string `json:"from"`
	}

	var single FlexList[edge]
	if err := json.Unmarshal([]byte(`{"from":"a"}`), &single); err != nil {
		t.Fatalf("Failed to unmarshal single object: %v", err)
	}
	if len(single.Slice()) != 1 || single[0].From != "a" {
		t.Errorf("Expected one element, got %v", single)
	}

	var many FlexList[edge]
	if err := json.Unmarshal([]byte(`[{"from":"a"},{"from":"b"}]`), &many); err != nil {
		t.Fatalf("Failed to unmarshal array: %v", err)
	}
	if len(many.Slice()) != 2 {
		t.Errorf("Expected two elements, got %v", many)
	}

	var empty FlexList[edge]
	if err := json.Unmarshal([]byte(`null`), &empty); err != nil {
		t.Fatalf("Failed to unmarshal null: %v", err)
	}
	if len(empty.Slice()) != 0 {
		t.Errorf("Expected empty list from null, got %v", empty)
	}
}

func TestFlexUint64NumberOrString(t *testing.T) {
	var fromNumber FlexUint64
	if err := json.Unmarshal([]byte(`7`), &fromNumber); err != nil {
		t.Fatalf("Failed to unmarshal number: %v", err)
	}
	if fromNumber.Uint64() != 7 {
		t.Errorf("Expected 7, got %d", fromNumber.Uint64())
	}

	var fromString FlexUint64
	if err := json.Unmarshal([]byte(`"42"`), &fromString); err != nil {
		t.Fatalf("Failed to unmarshal string: %v", err)
	}
	if fromString.Uint64() != 42 {
		t.Errorf("Expected 42, got %d", fromString.Uint64())
	}

	var bad FlexUint64
	if err := json.Unmarshal([]byte(`"not a number"`), &bad); err == nil {
		t.Error("Expected error for non-numeric string")
	}
}
