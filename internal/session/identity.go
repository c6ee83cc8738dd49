package session

import (
	"errors"
	"fmt"
	"io/fs"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Identity is the soft presence identity of the local editor. It is not an
// authentication mechanism: nothing stops two editors picking the same name.
type Identity struct {
	ID   string `yaml:"editor_id"`
	Name string `yaml:"editor_name"`
}

var editorSurnames = []string{"鈴木", "田中", "佐藤", "高橋", "渡辺"}

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// NewIdentity generates a random identity: "editor_" plus nine base-36
// characters, and a surname with a 0–99 suffix.
func NewIdentity() Identity {
	var id strings.Builder
	id.WriteString("editor_")
	for range 9 {
		id.WriteByte(base36[rand.IntN(len(base36))])
	}
	name := editorSurnames[rand.IntN(len(editorSurnames))] + " " + strconv.Itoa(rand.IntN(100))
	return Identity{ID: id.String(), Name: name}
}

// LoadIdentity reads the identity cached at path, generating and caching a
// new one on first use. A cache file missing either field is regenerated
// for that field only.
func LoadIdentity(path string) (Identity, error) {
	var cached Identity
	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(b, &cached); err != nil {
			return Identity{}, fmt.Errorf("session.LoadIdentity: parse %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return Identity{}, fmt.Errorf("session.LoadIdentity: %w", err)
	}

	if cached.ID != "" && cached.Name != "" {
		return cached, nil
	}
	fresh := NewIdentity()
	if cached.ID == "" {
		cached.ID = fresh.ID
	}
	if cached.Name == "" {
		cached.Name = fresh.Name
	}
	if err := saveIdentity(path, cached); err != nil {
		return Identity{}, err
	}
	return cached, nil
}

func saveIdentity(path string, id Identity) error {
	b, err := yaml.Marshal(id)
	if err != nil {
		return fmt.Errorf("session.saveIdentity: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("session.saveIdentity: %w", err)
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("session.saveIdentity: %w", err)
	}
	return nil
}

// DefaultIdentityPath is the cache location under the user config dir.
func DefaultIdentityPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("session.DefaultIdentityPath: %w", err)
	}
	return filepath.Join(dir, "travel-karte", "identity.yaml"), nil
}
