package daemon

import (
	"crypto/rand"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
)

// LoadOrCreateToken returns the bearer token stored at tokenPath, creating
// a fresh one (mode 0600) when the file is missing or empty.
func LoadOrCreateToken(tokenPath string) (string, error) {
	data, err := os.ReadFile(tokenPath)
	switch {
	case err == nil:
		if token := strings.TrimSpace(string(data)); token != "" {
			_ = os.Chmod(tokenPath, 0o600)
			return token, nil
		}
	case !os.IsNotExist(err):
		return "", err
	}

	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	token := hex.EncodeToString(buf)
	if err := os.MkdirAll(filepath.Dir(tokenPath), 0o700); err != nil {
		return "", err
	}
	if err := os.WriteFile(tokenPath, []byte(token+"\n"), 0o600); err != nil {
		return "", err
	}
	return token, nil
}
