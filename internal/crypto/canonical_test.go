package crypto

import "testing"

// test that cannonical rejects invalid json

func TestCanonicalizeJSON(t *testing.T) {
	// invalid json
	jsonData := []byte(`{"test": "value"`)
	_, err := CanonicalizeJSON(jsonData)
	if err == nil {
		t.Fatalf("CanonicalizeJSON() expected error, got nil")
	}
	t.Logf("CanonicalizeJSON() correctly rejected invalid JSON: %v", err)
}

// whitespace and escaping differences must canonicalize to the same bytes,
// otherwise the stored claims hash would depend on serialization details
func TestCanonicalizeJSON_Stable(t *testing.T) {
	a := []byte(`{"name": "Rex",  "id": "p-1"}`)
	b := []byte("{\"id\":\"p-1\",\"name\":\"Rex\"}")

	canonA, err := CanonicalizeJSON(a)
	if err != nil {
		t.Fatalf("CanonicalizeJSON() returned error: %v", err)
	}
	canonB, err := CanonicalizeJSON(b)
	if err != nil {
		t.Fatalf("CanonicalizeJSON() returned error: %v", err)
	}

	if string(canonA) != string(canonB) {
		t.Errorf("canonical forms differ: %s vs %s", canonA, canonB)
	}
}
