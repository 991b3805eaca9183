// Package profile stores the single-user training profile that shapes
// plan generation.
package profile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ProfileFile is the filename under the data directory.
const ProfileFile = "profile.json"

// timeNow is a package-level variable for testability.
var timeNow = time.Now

// Profile describes the lifter the coach plans for. Optional fields
// are left out of prompts when empty.
type Profile struct {
	UserID          string   `json:"user_id"`
	Name            string   `json:"name,omitempty"`
	Sex             string   `json:"sex,omitempty"`
	DateOfBirth     string   `json:"date_of_birth,omitempty"` // YYYY-MM-DD
	Bio             string   `json:"bio,omitempty"`
	Goal            string   `json:"goal"`
	ExperienceLevel string   `json:"experience_level"`
	DaysPerWeek     int      `json:"days_per_week"`
	FocusAreas      []string `json:"focus_areas,omitempty"`
	Equipment       []string `json:"equipment,omitempty"`
}

// Age derives whole years from DateOfBirth. Returns 0 when the date is
// unset or unparseable.
func (p Profile) Age() int {
	if p.DateOfBirth == "" {
		return 0
	}
	dob, err := time.Parse("2006-01-02", p.DateOfBirth)
	if err != nil {
		return 0
	}
	now := timeNow().UTC()
	age := now.Year() - dob.Year()
	anniversary := time.Date(now.Year(), dob.Month(), dob.Day(), 0, 0, 0, 0, time.UTC)
	if now.Before(anniversary) {
		age--
	}
	if age < 0 {
		return 0
	}
	return age
}

// Default returns the starter profile used before the user has said
// anything about themselves.
func Default() Profile {
	return Profile{
		UserID:          "default",
		Goal:            "General Strength",
		ExperienceLevel: "beginner",
		DaysPerWeek:     3,
	}
}

// Store persists the profile as a JSON file.
type Store struct {
	path string
}

// NewStore creates a store writing to the given file path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load reads the profile. A missing file yields the default profile,
// not an error.
func (s *Store) Load() (Profile, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return Profile{}, fmt.Errorf("reading profile: %w", err)
	}

	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return Profile{}, fmt.Errorf("parsing %s: %w", filepath.Base(s.path), err)
	}
	if p.UserID == "" {
		p.UserID = "default"
	}
	return p, nil
}

// Save writes the profile atomically: a temp file in the target
// directory, then a rename over the old one.
func (s *Store) Save(p Profile) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling profile: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating profile directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "profile-*.json")
	if err != nil {
		return fmt.Errorf("creating temp profile: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("writing profile: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("closing temp profile: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replacing profile: %w", err)
	}
	return nil
}
