// Package envelope implements the signed fingerprint envelope
// (external interface §6.5): a JSON payload naming a data-extraction
// run, hashed with BLAKE3 and signed with a persisted Ed25519 key pair.
package envelope

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"lukechampine.com/blake3"

	"github.com/rawblock/ledgerrecon/recoerr"
)

// Request describes the fetch that produced the envelope.
type Request struct {
	URL         string `json:"url"`
	AuthMethod  string `json:"authMethod"`
	From        string `json:"from"`
	To          string `json:"to"`
	PagesFetched int   `json:"pagesFetched"`
}

// MappingRef names the mapping file used and its content hash.
type MappingRef struct {
	Path   string `json:"path"`
	Blake3 string `json:"blake3"`
}

// OutputRef describes the extracted data.
type OutputRef struct {
	RowCount  int    `json:"rowCount"`
	CsvBlake3 string `json:"csvBlake3,omitempty"`
}

// Fingerprint is the unsigned payload described by spec.md §6.5.
type Fingerprint struct {
	SchemaVersion int        `json:"schemaVersion"`
	RanAt         string     `json:"ranAt"`
	CliVersion    string     `json:"cliVersion"`
	Request       Request    `json:"request"`
	Mapping       MappingRef `json:"mapping"`
	Output        OutputRef  `json:"output"`
}

// Envelope is the signed wrapper around a Fingerprint payload.
type Envelope struct {
	Payload       json.RawMessage `json:"payload"`
	Signature     string          `json:"signature"`
	PublicKey     string          `json:"publicKey"`
	AlgorithmName string          `json:"algorithmName"`
}

const algorithmName = "ed25519"

// HashFileBlake3 returns the hex-encoded BLAKE3 digest of a file's
// contents, used for both the mapping-file and CSV-output hashes.
func HashFileBlake3(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", recoerr.Wrap(recoerr.Io, "cannot open file for hashing", err)
	}
	defer f.Close()
	return HashReaderBlake3(f)
}

// HashReaderBlake3 returns the hex-encoded BLAKE3 digest of r's bytes.
func HashReaderBlake3(r io.Reader) (string, error) {
	h := blake3.New(32, nil)
	if _, err := io.Copy(h, r); err != nil {
		return "", recoerr.Wrap(recoerr.Io, "cannot hash contents", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// KeyPair is a persisted Ed25519 signing key.
type KeyPair struct {
	Private ed25519.PrivateKey
	Public  ed25519.PublicKey
}

// LoadOrGenerateKey reads a 64-byte raw Ed25519 private key from path,
// or generates and persists a fresh one if the file does not exist.
func LoadOrGenerateKey(path string) (*KeyPair, error) {
	if path == "" {
		path = defaultKeyPath()
	}

	if raw, err := os.ReadFile(path); err == nil {
		if len(raw) != ed25519.PrivateKeySize {
			return nil, recoerr.New(recoerr.Internal, "signing key file has the wrong size")
		}
		priv := ed25519.PrivateKey(raw)
		return &KeyPair{Private: priv, Public: priv.Public().(ed25519.PublicKey)}, nil
	} else if !os.IsNotExist(err) {
		return nil, recoerr.Wrap(recoerr.Io, "cannot read signing key", err)
	}

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, recoerr.Wrap(recoerr.Internal, "cannot generate signing key", err)
	}
	if err := os.WriteFile(path, priv, 0600); err != nil {
		return nil, recoerr.Wrap(recoerr.Io, "cannot persist signing key", err)
	}
	return &KeyPair{Private: priv, Public: pub}, nil
}

func defaultKeyPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return dir + "/ledgerrecon-signing-key"
}

// Sign serializes fp, signs it with kp, and returns the envelope.
func Sign(fp Fingerprint, kp *KeyPair) (*Envelope, error) {
	payload, err := json.Marshal(fp)
	if err != nil {
		return nil, recoerr.Wrap(recoerr.Internal, "cannot serialize fingerprint", err)
	}
	sig := ed25519.Sign(kp.Private, payload)
	return &Envelope{
		Payload:       payload,
		Signature:     hex.EncodeToString(sig),
		PublicKey:     hex.EncodeToString(kp.Public),
		AlgorithmName: algorithmName,
	}, nil
}

// Verify checks an envelope's signature against its embedded public
// key and returns the decoded Fingerprint payload on success.
func Verify(env *Envelope) (*Fingerprint, error) {
	if env.AlgorithmName != algorithmName {
		return nil, recoerr.New(recoerr.Validation, fmt.Sprintf("unsupported signature algorithm %q", env.AlgorithmName))
	}
	pub, err := hex.DecodeString(env.PublicKey)
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return nil, recoerr.New(recoerr.Validation, "malformed public key in envelope")
	}
	sig, err := hex.DecodeString(env.Signature)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return nil, recoerr.New(recoerr.Validation, "malformed signature in envelope")
	}
	if !ed25519.Verify(ed25519.PublicKey(pub), env.Payload, sig) {
		return nil, recoerr.New(recoerr.Validation, "signature verification failed")
	}

	var fp Fingerprint
	if err := json.Unmarshal(env.Payload, &fp); err != nil {
		return nil, recoerr.Wrap(recoerr.Parse, "cannot decode fingerprint payload", err)
	}
	return &fp, nil
}
