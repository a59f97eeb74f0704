package purchasecode

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestGenerate_Format(t *testing.T) {
	g := NewGenerator(1000)

	for i := 0; i < 100; i++ {
		code, err := g.Generate()
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
		if !Valid(code) {
			t.Errorf("code %q does not match pattern", code)
		}
		for _, c := range "01ILO" {
			if strings.ContainsRune(code[8:], c) {
				t.Errorf("code %q contains ambiguous character %q", code, c)
			}
		}
	}
}

func TestGenerate_NoDuplicates(t *testing.T) {
	g := NewGenerator(20000)
	seen := make(map[string]struct{}, 10000)

	for i := 0; i < 10000; i++ {
		code, err := g.Generate()
		if err != nil {
			t.Fatalf("Generate failed at %d: %v", i, err)
		}
		if _, dup := seen[code]; dup {
			t.Fatalf("duplicate code generated: %s", code)
		}
		seen[code] = struct{}{}
	}
}

func TestGenerate_YearSegment(t *testing.T) {
	g := NewGenerator(10)
	g.now = func() time.Time {
		return time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC)
	}

	code, err := g.Generate()
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if !strings.HasPrefix(code, "FG-2026-") {
		t.Errorf("expected FG-2026- prefix, got %s", code)
	}
}

func TestMarkIssued_AvoidsKnownCodes(t *testing.T) {
	g := NewGenerator(10)
	g.MarkIssued("FG-2026-ABCDEF")

	for i := 0; i < 1000; i++ {
		code, err := g.Generate()
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
		if code == "FG-2026-ABCDEF" {
			t.Fatal("generator reissued a marked code")
		}
	}
}

func TestQRPayload_Contract(t *testing.T) {
	p := NewQRPayload("FG-2026-ABC234", "Tahanan Farm", "Red Rice", 300, time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC))

	encoded, err := p.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal([]byte(encoded), &decoded); err != nil {
		t.Fatalf("payload is not valid JSON: %v", err)
	}

	if decoded["type"] != "FARM2GO_PURCHASE" {
		t.Errorf("expected type FARM2GO_PURCHASE, got %v", decoded["type"])
	}
	if decoded["code"] != "FG-2026-ABC234" {
		t.Errorf("unexpected code %v", decoded["code"])
	}
	if decoded["verified"] != true {
		t.Errorf("expected verified true, got %v", decoded["verified"])
	}
	if decoded["date"] != "2026-06-01" {
		t.Errorf("unexpected date %v", decoded["date"])
	}
}
