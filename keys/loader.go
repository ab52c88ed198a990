// Package keys provides signing key storage for the CLI.
//
// # Key File Format
//
// Keys are stored in ~/.config/certsign/keys/ with two files per key:
//
//	<key-name>.public  - JSON public point, {"x":"..","y":".."}
//	<key-name>.private - Format: "scalar:curve" where scalar is the decimal private key
//
// # Loading Keys
//
//	store, err := keys.DefaultStore()
//	if err != nil {
//		log.Fatal(err)
//	}
//	kp, err := store.Load("issuer")
//	if err != nil {
//		log.Fatal(err)
//	}
//
// # Key Formats
//
// The private key format in .private file is "scalar:curve" where:
//   - scalar: decimal private key in [1, n-1]
//   - curve: curve name (currently only "certsign-29" is supported)
package keys

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/digisign/certsign/crypto"
	"github.com/digisign/certsign/curve"
	"github.com/digisign/certsign/signer"
)

const (
	publicSuffix  = ".public"
	privateSuffix = ".private"
)

// ErrInvalidName is returned for key names that are empty or contain a path.
var ErrInvalidName = errors.New("invalid key name")

// Store reads and writes key pairs in a directory.
type Store struct {
	Dir   string
	Curve *curve.Curve
}

// DefaultDir returns ~/.config/certsign/keys.
func DefaultDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "certsign", "keys"), nil
}

// DefaultStore returns a Store for DefaultDir.
func DefaultStore() (*Store, error) {
	dir, err := DefaultDir()
	if err != nil {
		return nil, err
	}
	return NewStore(dir), nil
}

// NewStore returns a Store for dir using the certificate curve.
func NewStore(dir string) *Store {
	return &Store{Dir: dir, Curve: curve.Certificate()}
}

func checkName(name string) error {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// Save writes kp under name, replacing any existing key.
func (s *Store) Save(name string, kp signer.KeyPair) error {
	if err := checkName(name); err != nil {
		return err
	}

	priv, err := crypto.ParsePrivateKey(s.Curve, kp.PrivateKey)
	if err != nil {
		return fmt.Errorf("failed to parse private key: %w", err)
	}
	pub, err := crypto.ParsePublicKey(s.Curve, kp.PublicKey)
	if err != nil {
		return fmt.Errorf("failed to parse public key: %w", err)
	}
	if !pub.Point.Equal(priv.Point) {
		return signer.ErrKeyMismatch
	}

	if err := os.MkdirAll(s.Dir, 0700); err != nil {
		return fmt.Errorf("failed to create key directory: %w", err)
	}

	privateContent := crypto.FormatPrivateKey(priv) + ":" + s.Curve.Name() + "\n"
	if err := os.WriteFile(filepath.Join(s.Dir, name+privateSuffix), []byte(privateContent), 0600); err != nil {
		return fmt.Errorf("failed to write private key file: %w", err)
	}

	publicContent := crypto.FormatPublicKey(&priv.PublicKey) + "\n"
	if err := os.WriteFile(filepath.Join(s.Dir, name+publicSuffix), []byte(publicContent), 0644); err != nil {
		return fmt.Errorf("failed to write public key file: %w", err)
	}
	return nil
}

// Load reads the key pair stored under name and checks that both halves
// match.
func (s *Store) Load(name string) (signer.KeyPair, error) {
	if err := checkName(name); err != nil {
		return signer.KeyPair{}, err
	}

	// Load public key
	publicKeyBytes, err := os.ReadFile(filepath.Join(s.Dir, name+publicSuffix))
	if err != nil {
		return signer.KeyPair{}, fmt.Errorf("failed to read public key file: %w", err)
	}
	pub, err := crypto.ParsePublicKey(s.Curve, strings.TrimSpace(string(publicKeyBytes)))
	if err != nil {
		return signer.KeyPair{}, fmt.Errorf("failed to parse public key: %w", err)
	}

	// Load private key
	privateKeyBytes, err := os.ReadFile(filepath.Join(s.Dir, name+privateSuffix))
	if err != nil {
		return signer.KeyPair{}, fmt.Errorf("failed to read private key file: %w", err)
	}

	// Parse private key format: "scalar:curve"
	privateKeyContent := strings.TrimSpace(string(privateKeyBytes))
	parts := strings.Split(privateKeyContent, ":")
	if len(parts) != 2 {
		return signer.KeyPair{}, errors.New("invalid private key format, expected 'scalar:curve'")
	}
	if parts[1] != s.Curve.Name() {
		return signer.KeyPair{}, fmt.Errorf("unsupported curve: %s, only %s is supported", parts[1], s.Curve.Name())
	}

	priv, err := crypto.ParsePrivateKey(s.Curve, parts[0])
	if err != nil {
		return signer.KeyPair{}, fmt.Errorf("failed to parse private key: %w", err)
	}

	// Calculated public point must match the stored one
	if !pub.Point.Equal(priv.Point) {
		return signer.KeyPair{}, fmt.Errorf("key %q: %w", name, signer.ErrKeyMismatch)
	}

	return signer.KeyPair{
		PrivateKey: crypto.FormatPrivateKey(priv),
		PublicKey:  crypto.FormatPublicKey(pub),
	}, nil
}

// List returns the names of stored private keys in sorted order.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read key directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), privateSuffix) {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), privateSuffix))
	}
	sort.Strings(names)
	return names, nil
}
