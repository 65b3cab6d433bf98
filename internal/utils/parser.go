package utils

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// ErrNoEpisode means no episode number could be extracted from a title.
// Episode number is the join key against the show watermark, so this is
// fatal for the item.
var ErrNoEpisode = errors.New("no episode number in title")

// ErrBatchRelease means the title is a multi-episode batch. Batches are
// rejected on the auto-download path: there is no single matching episode.
var ErrBatchRelease = errors.New("multi-episode batch release")

// UnknownGroup is reported when a title carries no release group prefix
const UnknownGroup = "unknown"

// ParsedRelease is the metadata extracted from a release title
type ParsedRelease struct {
	Show       string
	Season     int // 0 when the title has no season marker
	Episode    int
	Resolution string // e.g. "1080p", empty when absent
	Group      string
	Extras     []string
}

var (
	reGroup      = regexp.MustCompile(`^\[([^\]]+)\]`)
	reResolution = regexp.MustCompile(`(?i)(\d{3,4})p\b`)
	reBracketTag = regexp.MustCompile(`\[([^\]]+)\]`)

	reBatchWord  = regexp.MustCompile(`(?i)\bbatch\b`)
	reBatchRange = regexp.MustCompile(`\b\d{1,4}\s*~\s*\d{1,4}\b|\b\d{1,4}-\d{1,4}\b`)

	// Episode patterns, most specific first. The optional leading bracket is
	// the release group; the lazy middle capture is the show name guess.
	reEpSeasonTag  = regexp.MustCompile(`^(?:\[[^\]]+\]\s*)?(.+?)\s+S(\d{1,2})\s*-\s*(\d{1,4})\b`)
	reEpOrdinal    = regexp.MustCompile(`^(?:\[[^\]]+\]\s*)?(.+?)\s+(\d{1,2})(?:st|nd|rd|th)\s+Season\s*-\s*(\d{1,4})\b`)
	reEpSeasonWord = regexp.MustCompile(`^(?:\[[^\]]+\]\s*)?(.+?)\s+Season\s+(\d{1,2})\s*-\s*(\d{1,4})\b`)
	reEpPlain      = regexp.MustCompile(`^(?:\[[^\]]+\]\s*)?(.+?)\s*-\s*(\d{1,4})\b`)

	reSeasonSuffix = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\s+(?:2nd|3rd|[4-9]th)\s+Season\s*$`),
		regexp.MustCompile(`(?i)\s+Season\s+\d+\s*$`),
		regexp.MustCompile(`(?i)\s+S\d+\s*$`),
		regexp.MustCompile(`(?i)\s+Part\s+\d+\s*$`),
		regexp.MustCompile(`\s+(?:II|III|IV|V|VI|VII|VIII|IX|X)\s*$`),
	}
)

// ParseRelease extracts show name, season, episode, resolution and release
// group from a free-text release title. Only a missing episode number is
// fatal; resolution and extras default to empty.
func ParseRelease(title string) (*ParsedRelease, error) {
	if reBatchWord.MatchString(title) || reBatchRange.MatchString(title) {
		return nil, fmt.Errorf("%w: %s", ErrBatchRelease, title)
	}

	parsed := &ParsedRelease{
		Group:      DetectGroup(title),
		Resolution: detectResolution(title),
		Extras:     detectExtras(title),
	}

	if m := reEpSeasonTag.FindStringSubmatch(title); m != nil {
		parsed.Show = strings.TrimSpace(m[1])
		parsed.Season, _ = strconv.Atoi(m[2])
		parsed.Episode, _ = strconv.Atoi(m[3])
		return parsed, nil
	}
	if m := reEpOrdinal.FindStringSubmatch(title); m != nil {
		parsed.Show = strings.TrimSpace(m[1])
		parsed.Season, _ = strconv.Atoi(m[2])
		parsed.Episode, _ = strconv.Atoi(m[3])
		return parsed, nil
	}
	if m := reEpSeasonWord.FindStringSubmatch(title); m != nil {
		parsed.Show = strings.TrimSpace(m[1])
		parsed.Season, _ = strconv.Atoi(m[2])
		parsed.Episode, _ = strconv.Atoi(m[3])
		return parsed, nil
	}
	if m := reEpPlain.FindStringSubmatch(title); m != nil {
		parsed.Show = strings.TrimSpace(m[1])
		parsed.Episode, _ = strconv.Atoi(m[2])
		return parsed, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrNoEpisode, title)
}

// DetectGroup extracts the release group from a leading bracket tag,
// e.g. "[Erai-raws] ..." -> "Erai-raws". Returns UnknownGroup when absent.
func DetectGroup(title string) string {
	if m := reGroup.FindStringSubmatch(title); m != nil {
		group := strings.TrimSpace(m[1])
		if group != "" {
			return group
		}
	}
	return UnknownGroup
}

func detectResolution(title string) string {
	if m := reResolution.FindStringSubmatch(title); m != nil {
		return m[1] + "p"
	}
	return ""
}

// detectExtras collects bracket tags beyond the leading group tag,
// e.g. "[Multiple Subtitle]" or a trailing CRC
func detectExtras(title string) []string {
	tags := reBracketTag.FindAllStringSubmatchIndex(title, -1)
	var extras []string
	for _, loc := range tags {
		if loc[0] == 0 {
			continue // leading group tag
		}
		extras = append(extras, title[loc[2]:loc[3]])
	}
	return extras
}

// ResolutionHeight converts a resolution tag like "1080p" to its height.
// Unknown or empty resolutions rank as 0.
func ResolutionHeight(resolution string) int {
	s := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(resolution)), "p")
	height, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return height
}

// NormalizeSearchTitle strips season suffixes that feed search does not use:
// nyaa and subsplease name shows "Show S2", not "Show 2nd Season".
func NormalizeSearchTitle(title string) string {
	result := title
	for _, re := range reSeasonSuffix {
		result = re.ReplaceAllString(result, "")
	}
	return strings.TrimSpace(result)
}

// MagnetURL builds a magnet link from an info hash and display name
func MagnetURL(infoHash, title string) string {
	return fmt.Sprintf("magnet:?xt=urn:btih:%s&dn=%s", infoHash, url.QueryEscape(title))
}
