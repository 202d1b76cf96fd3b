package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alphabot-ai/forum/internal/auth"
	"github.com/alphabot-ai/forum/internal/client"
)

const defaultServerURL = "http://localhost:3000"

// session is what the client commands remember between runs.
type session struct {
	BaseURL  string `json:"base_url"`
	Username string `json:"username"`
	Token    string `json:"token"`
}

var errNoSession = errors.New("not logged in - run 'forum register' or 'forum login'")

func sessionPath() (string, error) {
	if dir := os.Getenv("FORUM_HOME"); dir != "" {
		return filepath.Join(dir, "session.json"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".forum", "session.json"), nil
}

func loadSession() (session, error) {
	path, err := sessionPath()
	if err != nil {
		return session{}, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return session{}, errNoSession
	}
	if err != nil {
		return session{}, err
	}
	var s session
	if err := json.Unmarshal(data, &s); err != nil {
		return session{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return s, nil
}

func saveSession(s session) error {
	path, err := sessionPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, _ := json.MarshalIndent(s, "", "  ")
	return os.WriteFile(path, data, 0o600)
}

// baseURL picks --url, then the saved session, then the local default.
func baseURL() string {
	if serverURL != "" {
		return strings.TrimSuffix(serverURL, "/")
	}
	if s, err := loadSession(); err == nil && s.BaseURL != "" {
		return s.BaseURL
	}
	return defaultServerURL
}

// anonymousClient carries the saved token when one exists so reads report
// is_voted for the logged in user.
func anonymousClient() *client.Client {
	c := client.New(baseURL())
	if s, err := loadSession(); err == nil {
		c.Token = s.Token
	}
	return c
}

func authenticatedClient() (*client.Client, error) {
	s, err := loadSession()
	if err != nil {
		return nil, err
	}
	if s.Token == "" {
		return nil, errNoSession
	}
	if exp, err := auth.ExpiresAt(s.Token); err == nil && !time.Now().Before(exp) {
		return nil, errors.New("session expired - run 'forum login'")
	}
	c := client.New(baseURL())
	c.Token = s.Token
	return c, nil
}
