// Package browser reads bookmarks out of Chromium-family browser profiles and
// Netscape bookmark HTML exports. It only ever reads.
package browser

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Root containers a bookmark can live under.
const (
	RootBookmarkBar = "bookmark_bar"
	RootOther       = "other"
	RootSynced      = "synced"
	RootFile        = "file"
)

// Profile file formats.
const (
	FormatChrome = "chrome"
	FormatHTML   = "html"
)

// Bookmark is one entry read from a browser profile or export file.
type Bookmark struct {
	URL        string    `json:"url"`
	Title      string    `json:"title"`
	FolderPath []string  `json:"folder_path"`
	Profile    string    `json:"profile"`
	Browser    string    `json:"browser"`
	Root       string    `json:"root"`
	AddedAt    time.Time `json:"added_at,omitzero"`
}

// Folder returns the folder path joined with "/".
func (b Bookmark) Folder() string {
	return strings.Join(b.FolderPath, "/")
}

// Profile is one bookmark source: a browser profile's Bookmarks file or an
// export file named explicitly.
type Profile struct {
	Browser string `json:"browser"`
	Name    string `json:"name"`
	Dir     string `json:"dir"`
	Path    string `json:"path"`
	Format  string `json:"format"`
}

// Warning reports a profile that could not be read. The rest of the
// aggregation still succeeds.
type Warning struct {
	Profile string
	Path    string
	Err     error
}

func (w Warning) Error() string {
	return fmt.Sprintf("%s (%s): %v", w.Profile, w.Path, w.Err)
}

func (w Warning) Unwrap() error {
	return w.Err
}

// Result is the outcome of an aggregation.
type Result struct {
	Bookmarks []Bookmark
	Profiles  []Profile
	Warnings  []Warning
}

// Location is a browser user-data directory holding one subdirectory per profile.
type Location struct {
	Browser string
	Dir     string
}

type userDataDirs struct {
	browser string
	darwin  []string
	windows []string
	linux   []string
}

var knownBrowsers = []userDataDirs{
	{
		browser: "Chrome",
		darwin:  []string{"Google", "Chrome"},
		windows: []string{"Google", "Chrome", "User Data"},
		linux:   []string{"google-chrome"},
	},
	{
		browser: "Chromium",
		darwin:  []string{"Chromium"},
		windows: []string{"Chromium", "User Data"},
		linux:   []string{"chromium"},
	},
	{
		browser: "Brave",
		darwin:  []string{"BraveSoftware", "Brave-Browser"},
		windows: []string{"BraveSoftware", "Brave-Browser", "User Data"},
		linux:   []string{"BraveSoftware", "Brave-Browser"},
	},
	{
		browser: "Edge",
		darwin:  []string{"Microsoft Edge"},
		windows: []string{"Microsoft", "Edge", "User Data"},
		linux:   []string{"microsoft-edge"},
	},
}

// DefaultLocations lists the user-data directories of the supported browsers
// for goos. getenv is consulted for LOCALAPPDATA on Windows.
func DefaultLocations(goos, home string, getenv func(string) string) []Location {
	var base string
	switch goos {
	case "darwin":
		base = filepath.Join(home, "Library", "Application Support")
	case "windows":
		base = getenv("LOCALAPPDATA")
		if base == "" {
			base = filepath.Join(home, "AppData", "Local")
		}
	default:
		base = filepath.Join(home, ".config")
	}

	locations := make([]Location, 0, len(knownBrowsers))
	for _, kb := range knownBrowsers {
		var parts []string
		switch goos {
		case "darwin":
			parts = kb.darwin
		case "windows":
			parts = kb.windows
		default:
			parts = kb.linux
		}
		locations = append(locations, Location{
			Browser: kb.browser,
			Dir:     filepath.Join(append([]string{base}, parts...)...),
		})
	}
	return locations
}

// LocationsFromDirs turns configured user-data directories into Locations
// named after the directory.
func LocationsFromDirs(dirs []string) []Location {
	locations := make([]Location, 0, len(dirs))
	for _, dir := range dirs {
		locations = append(locations, Location{Browser: filepath.Base(dir), Dir: dir})
	}
	return locations
}

// Discover finds every profile Bookmarks file under locations, in location
// order and then by profile directory name. Browsers that are not installed
// contribute nothing.
func Discover(locations []Location) []Profile {
	var profiles []Profile
	for _, loc := range locations {
		matches, err := filepath.Glob(filepath.Join(loc.Dir, "*", "Bookmarks"))
		if err != nil || len(matches) == 0 {
			continue
		}

		names := profileNames(loc.Dir)
		for _, path := range matches {
			info, err := os.Stat(path)
			if err != nil || info.IsDir() {
				continue
			}
			dir := filepath.Base(filepath.Dir(path))
			name := names[dir]
			if name == "" {
				name = dir
			}
			profiles = append(profiles, Profile{
				Browser: loc.Browser,
				Name:    name,
				Dir:     dir,
				Path:    path,
				Format:  FormatChrome,
			})
		}
	}
	return profiles
}

// FileProfile describes an explicitly named bookmark file. Files ending in
// .html or .htm are read as Netscape exports, anything else as Chromium JSON.
func FileProfile(path string) Profile {
	format := FormatChrome
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		format = FormatHTML
	}
	return Profile{
		Browser: "file",
		Name:    filepath.Base(path),
		Dir:     filepath.Dir(path),
		Path:    path,
		Format:  format,
	}
}

type localState struct {
	Profile struct {
		InfoCache map[string]struct {
			Name string `json:"name"`
		} `json:"info_cache"`
	} `json:"profile"`
}

// profileNames reads display names from the browser's Local State file.
// A missing or unreadable file yields no names.
func profileNames(dir string) map[string]string {
	data, err := os.ReadFile(filepath.Join(dir, "Local State"))
	if err != nil {
		return nil
	}
	var state localState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil
	}
	names := make(map[string]string, len(state.Profile.InfoCache))
	for dir, info := range state.Profile.InfoCache {
		names[dir] = info.Name
	}
	return names
}

// ReadProfile parses the bookmark file behind p.
func ReadProfile(p Profile) ([]Bookmark, error) {
	f, err := os.Open(p.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch p.Format {
	case FormatHTML:
		return ParseNetscapeHTML(f, p)
	case FormatChrome, "":
		return ParseChrome(f, p)
	default:
		return nil, errors.New("unknown bookmark file format " + p.Format)
	}
}
