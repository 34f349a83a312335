package keys

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// KeyStore keeps chunk owner keys on the local filesystem.
//
// EXPERIMENTAL: this storage surface is not part of the stable API.
//
// Features:
// - Supports Ed25519 keys only
// - One hex-encoded seed file per owner: <Directory>/<identifier>/owner.key
// - No external dependencies
type KeyStore struct {
	Directory string
}

func GetDefaultDirectory() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".xdao", "chunkstore", "keys"), nil
}

func CreateKeyStore(directory string) (*KeyStore, error) {
	if directory == "" {
		var err error
		directory, err = GetDefaultDirectory()
		if err != nil {
			return nil, err
		}
	}
	return &KeyStore{Directory: directory}, nil
}

func (ks *KeyStore) keyFilePath(identifier string) string {
	return filepath.Join(ks.Directory, identifier, "owner.key")
}

func CheckKeyName(identifier string) error {
	if identifier == "" {
		return errors.New("identifier cannot be empty")
	}
	for _, char := range identifier {
		if (char >= 'a' && char <= 'z') || (char >= 'A' && char <= 'Z') || (char >= '0' && char <= '9') || char == '-' || char == '_' {
			continue
		}
		return fmt.Errorf("invalid character %q in identifier", char)
	}
	return nil
}

func ParseSeedHex(seedHex string) ([]byte, error) {
	seedHex = strings.TrimSpace(seedHex)
	seedHex = strings.TrimPrefix(seedHex, "0x")
	data, err := hex.DecodeString(seedHex)
	if err != nil {
		return nil, err
	}
	if len(data) != ed25519.SeedSize {
		return nil, fmt.Errorf("expected seed length of %d bytes, got %d", ed25519.SeedSize, len(data))
	}
	return data, nil
}

func (ks *KeyStore) saveSeedToFile(filePath string, seed []byte, overwrite bool) error {
	if len(seed) != ed25519.SeedSize {
		return fmt.Errorf("expected seed length of %d bytes", ed25519.SeedSize)
	}
	if err := os.MkdirAll(filepath.Dir(filePath), 0o700); err != nil {
		return err
	}
	flags := os.O_WRONLY | os.O_CREATE
	if overwrite {
		flags |= os.O_TRUNC
	} else {
		flags |= os.O_EXCL
	}
	file, err := os.OpenFile(filePath, flags, 0o600)
	if err != nil {
		return err
	}
	defer file.Close()
	if _, err := file.WriteString(hex.EncodeToString(seed) + "\n"); err != nil {
		return err
	}
	return file.Close()
}

func (ks *KeyStore) loadSeedFromFile(filePath string) ([]byte, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	return ParseSeedHex(strings.TrimSpace(string(data)))
}

// CreateKey stores seed under identifier and returns the owner public key.
func (ks *KeyStore) CreateKey(identifier string, seed []byte, overwrite bool) (ed25519.PublicKey, string, error) {
	if err := CheckKeyName(identifier); err != nil {
		return nil, "", err
	}
	filePath := ks.keyFilePath(identifier)
	if err := ks.saveSeedToFile(filePath, seed, overwrite); err != nil {
		return nil, "", err
	}
	priv := ed25519.NewKeyFromSeed(seed)
	return priv.Public().(ed25519.PublicKey), filePath, nil
}

// Signer loads the key stored under identifier.
func (ks *KeyStore) Signer(identifier, hashAlg string) (Signer, error) {
	if err := CheckKeyName(identifier); err != nil {
		return nil, err
	}
	seed, err := ks.loadSeedFromFile(ks.keyFilePath(identifier))
	if err != nil {
		return nil, err
	}
	return NewEd25519Signer(ed25519.NewKeyFromSeed(seed), hashAlg)
}

// ListKeys returns the stored identifiers, sorted.
func (ks *KeyStore) ListKeys() ([]string, error) {
	entries, err := os.ReadDir(ks.Directory)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var identifiers []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, err := os.Stat(ks.keyFilePath(entry.Name())); err == nil {
			identifiers = append(identifiers, entry.Name())
		}
	}
	sort.Strings(identifiers)
	return identifiers, nil
}
