// Package config manages client configuration: named login profiles stored
// on disk and runtime settings shared across the CLI and SDK.
//
// Profile file location:
//   - Windows: %USERPROFILE%\.config\onscale\profiles
//   - Unix: ~/.config/onscale/profiles
//
// INI format:
//
//	[onscale]
//	default_profile = prod
//
//	[profile.prod]
//	portal = prod
//	user_name = user@example.com
//	token = <bearer-token>
//	account_id = 0954e70b-237a-4cdb-a267-b5da0f67dd70
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/ini.v1"
)

const (
	rootSection       = "onscale"
	profilePrefix     = "profile."
	defaultProfileKey = "default_profile"
)

var (
	ErrNoProfiles      = errors.New("no profiles configured")
	ErrProfileNotFound = errors.New("profile not found")
	ErrMissingPortal   = errors.New("portal is required")
	ErrMissingToken    = errors.New("token is required")
)

// Profile is one saved login.
type Profile struct {
	Alias     string `ini:"-"`
	Portal    string `ini:"portal"`
	UserName  string `ini:"user_name"`
	Token     string `ini:"token"`
	AccountID string `ini:"account_id"`
}

// Validate checks that a profile carries enough to reach the portal.
func (p *Profile) Validate() error {
	if p.Portal == "" {
		return ErrMissingPortal
	}
	if p.Token == "" {
		return ErrMissingToken
	}
	return nil
}

// Settings holds runtime behavior shared across commands.
type Settings struct {
	// QuietMode suppresses progress bars and informational output.
	QuietMode bool

	// DebugOutput logs every API request at debug level.
	DebugOutput bool

	// Proxy configuration applied to all outbound HTTP.
	ProxyMode     string // "", "no-proxy", "system", "basic", "ntlm"
	ProxyHost     string
	ProxyPort     int
	ProxyUser     string
	ProxyPassword string
	NoProxy       string
}

// DefaultProfilePath returns the path of the profile store.
func DefaultProfilePath() (string, error) {
	var configDir string
	if runtime.GOOS == "windows" {
		userProfile := os.Getenv("USERPROFILE")
		if userProfile == "" {
			return "", errors.New("USERPROFILE environment variable not set")
		}
		configDir = filepath.Join(userProfile, ".config", "onscale")
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, ".config", "onscale")
	}
	return filepath.Join(configDir, "profiles"), nil
}

// Store is the on-disk profile collection.
type Store struct {
	path string
	file *ini.File
}

// LoadStore reads the profile store at path, creating an empty store if the
// file does not exist.
func LoadStore(path string) (*Store, error) {
	file, err := ini.LooseLoad(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile store %s: %w", path, err)
	}
	return &Store{path: path, file: file}, nil
}

// LoadDefaultStore reads the profile store from its default location.
func LoadDefaultStore() (*Store, error) {
	path, err := DefaultProfilePath()
	if err != nil {
		return nil, err
	}
	return LoadStore(path)
}

// Profile returns the named profile, or the default profile when alias is
// empty.
func (s *Store) Profile(alias string) (*Profile, error) {
	if alias == "" {
		alias = s.file.Section(rootSection).Key(defaultProfileKey).String()
		if alias == "" {
			return nil, ErrNoProfiles
		}
	}

	name := profilePrefix + alias
	if !s.file.HasSection(name) {
		return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, alias)
	}

	profile := &Profile{Alias: alias}
	if err := s.file.Section(name).MapTo(profile); err != nil {
		return nil, fmt.Errorf("failed to parse profile %s: %w", alias, err)
	}
	return profile, nil
}

// Aliases returns the aliases of all saved profiles.
func (s *Store) Aliases() []string {
	var aliases []string
	for _, section := range s.file.Sections() {
		name := section.Name()
		if len(name) > len(profilePrefix) && name[:len(profilePrefix)] == profilePrefix {
			aliases = append(aliases, name[len(profilePrefix):])
		}
	}
	return aliases
}

// DefaultAlias returns the alias of the default profile, empty if unset.
func (s *Store) DefaultAlias() string {
	return s.file.Section(rootSection).Key(defaultProfileKey).String()
}

// SetProfile saves a profile under its alias. The first profile saved
// becomes the default.
func (s *Store) SetProfile(profile *Profile) error {
	if profile.Alias == "" {
		return errors.New("profile alias is required")
	}
	if err := profile.Validate(); err != nil {
		return err
	}

	section := s.file.Section(profilePrefix + profile.Alias)
	if err := section.ReflectFrom(profile); err != nil {
		return fmt.Errorf("failed to serialize profile %s: %w", profile.Alias, err)
	}

	if s.DefaultAlias() == "" {
		s.SetDefaultAlias(profile.Alias)
	}
	return nil
}

// SetDefaultAlias marks a profile as the default login.
func (s *Store) SetDefaultAlias(alias string) {
	s.file.Section(rootSection).Key(defaultProfileKey).SetValue(alias)
}

// DeleteProfile removes a profile. Deleting the default profile clears the
// default.
func (s *Store) DeleteProfile(alias string) error {
	name := profilePrefix + alias
	if !s.file.HasSection(name) {
		return fmt.Errorf("%w: %s", ErrProfileNotFound, alias)
	}
	s.file.DeleteSection(name)
	if s.DefaultAlias() == alias {
		s.file.Section(rootSection).DeleteKey(defaultProfileKey)
	}
	return nil
}

// Save writes the store back to disk with owner-only permissions: profiles
// carry bearer tokens.
func (s *Store) Save() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := s.file.SaveTo(s.path); err != nil {
		return fmt.Errorf("failed to save profile store %s: %w", s.path, err)
	}
	return os.Chmod(s.path, 0o600)
}
