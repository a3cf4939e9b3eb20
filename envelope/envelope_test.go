package envelope

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestSignAndVerifyRoundTrip(t *testing.T) {
	dir := t.TempDir()
	kp, err := LoadOrGenerateKey(filepath.Join(dir, "key"))
	if err != nil {
		t.Fatalf("LoadOrGenerateKey: %v", err)
	}

	fp := Fingerprint{
		SchemaVersion: 1,
		RanAt:         "2026-01-15T00:00:00Z",
		CliVersion:    "ledgerrecon/test",
		Request:       Request{URL: "https://example.com/api", From: "2026-01-01", To: "2026-01-31", PagesFetched: 1},
		Mapping:       MappingRef{Path: "mapping.json", Blake3: "deadbeef"},
		Output:        OutputRef{RowCount: 3, CsvBlake3: "cafef00d"},
	}

	env, err := Sign(fp, kp)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if env.AlgorithmName != "ed25519" {
		t.Fatalf("expected ed25519, got %q", env.AlgorithmName)
	}

	got, err := Verify(env)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if got.Request.URL != fp.Request.URL || got.Output.RowCount != fp.Output.RowCount {
		t.Fatalf("round-tripped fingerprint mismatch: %+v", got)
	}
}

func TestVerifyRejectsTamperedPayload(t *testing.T) {
	kp, err := LoadOrGenerateKey(filepath.Join(t.TempDir(), "key"))
	if err != nil {
		t.Fatalf("LoadOrGenerateKey: %v", err)
	}
	env, err := Sign(Fingerprint{SchemaVersion: 1, Output: OutputRef{RowCount: 1}}, kp)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	env.Payload = []byte(strings.Replace(string(env.Payload), `"rowCount":1`, `"rowCount":999`, 1))

	if _, err := Verify(env); err == nil {
		t.Fatalf("expected verification to fail on tampered payload")
	}
}

func TestLoadOrGenerateKeyPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "key")

	kp1, err := LoadOrGenerateKey(path)
	if err != nil {
		t.Fatalf("first LoadOrGenerateKey: %v", err)
	}
	kp2, err := LoadOrGenerateKey(path)
	if err != nil {
		t.Fatalf("second LoadOrGenerateKey: %v", err)
	}
	if string(kp1.Public) != string(kp2.Public) {
		t.Fatalf("expected the same key to be reloaded from disk")
	}
}

func TestHashReaderBlake3Deterministic(t *testing.T) {
	h1, err := HashReaderBlake3(strings.NewReader("hello world"))
	if err != nil {
		t.Fatalf("HashReaderBlake3: %v", err)
	}
	h2, err := HashReaderBlake3(strings.NewReader("hello world"))
	if err != nil {
		t.Fatalf("HashReaderBlake3: %v", err)
	}
	if h1 != h2 {
		t.Fatalf("expected deterministic hash, got %q vs %q", h1, h2)
	}
	h3, _ := HashReaderBlake3(strings.NewReader("hello worlD"))
	if h1 == h3 {
		t.Fatalf("expected different input to hash differently")
	}
}
