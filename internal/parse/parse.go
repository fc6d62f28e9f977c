// Package parse holds pure text heuristics used to turn noisy release
// titles and provider fields into comparable candidate attributes. The
// functions here are deliberately free of network and aggregation
// concerns so scoring logic can be tested in isolation.
package parse

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/cehbz/torrentname"
	"github.com/dustin/go-humanize"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	infoHashBtihRegex = regexp.MustCompile(`(?i)btih:([a-f0-9]{40})`)
	infoHashHexRegex  = regexp.MustCompile(`(?i)\b([a-f0-9]{40})\b`)
	seasonEpisodeAlt  = regexp.MustCompile(`(?i)\b(\d{1,2})x(\d{2})\b`)
	seedersTextRegex  = regexp.MustCompile(`(?i)(?:👤|seed(?:er)?s?[:\s]+)\s*(\d+)`)
	sizeTextRegex     = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(TB|GB|MB|KB)`)
	nonAlnumRegex     = regexp.MustCompile(`[^a-z0-9]+`)
	trackerParamRegex = regexp.MustCompile(`(?i)[?&]tr=`)
)

// Extensions a standard browser media element plays without transcoding.
var webFriendlyExts = map[string]bool{
	".mp4":  true,
	".m4v":  true,
	".webm": true,
}

// Containers that are known not to play in a browser at all.
var incompatibleExts = map[string]bool{
	".avi":  true,
	".wmv":  true,
	".flv":  true,
	".iso":  true,
	".ts":   true,
	".m2ts": true,
}

var videoExts = map[string]bool{
	".mp4": true, ".mkv": true, ".avi": true, ".mov": true, ".wmv": true,
	".flv": true, ".webm": true, ".m4v": true, ".mpg": true, ".mpeg": true,
	".ts": true, ".m2ts": true,
}

// ResolutionBucket maps free-text resolution hints in a title to one of
// the buckets 480/720/1080/1440/2160. Returns 0 when nothing matched.
func ResolutionBucket(title string) int {
	t := strings.ToLower(title)
	switch {
	case strings.Contains(t, "2160p") || strings.Contains(t, "4k") || strings.Contains(t, "uhd"):
		return 2160
	case strings.Contains(t, "1440p") || strings.Contains(t, "2k"):
		return 1440
	case strings.Contains(t, "1080p") || strings.Contains(t, "fullhd") || strings.Contains(t, "fhd"):
		return 1080
	case strings.Contains(t, "720p"):
		return 720
	case strings.Contains(t, "480p") || strings.Contains(t, "dvdrip"):
		return 480
	default:
		return 0
	}
}

// SizeToBytes parses a provider-reported size: either raw bytes as a
// decimal string or a human-readable figure like "1.4 GB".
func SizeToBytes(s string) int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n < 0 {
			return 0
		}
		return n
	}
	if v, err := humanize.ParseBytes(s); err == nil {
		return int64(v)
	}
	return 0
}

// SizeFromText scans free text (typically an addon stream title) for a
// figure like "2.34 GB" and converts it to bytes.
func SizeFromText(s string) int64 {
	m := sizeTextRegex.FindStringSubmatch(s)
	if len(m) != 3 {
		return 0
	}
	v, err := humanize.ParseBytes(m[1] + " " + m[2])
	if err != nil {
		return 0
	}
	return int64(v)
}

// SeedersFromText scans free text for a seeder count, as published by
// addon-style providers inside their stream titles.
func SeedersFromText(s string) int {
	m := seedersTextRegex.FindStringSubmatch(s)
	if len(m) != 2 {
		return 0
	}
	n, _ := strconv.Atoi(m[1])
	return n
}

// ExtractInfoHash pulls a 40-hex info hash out of whichever field
// carries it: a magnet xt parameter, a GUID, or a bare URL path.
func ExtractInfoHash(s string) string {
	if s == "" {
		return ""
	}
	if m := infoHashBtihRegex.FindStringSubmatch(s); len(m) == 2 {
		return strings.ToLower(m[1])
	}
	if m := infoHashHexRegex.FindStringSubmatch(s); len(m) == 2 {
		return strings.ToLower(m[1])
	}
	return ""
}

// TrackerCount counts tracker parameters in a magnet URI.
func TrackerCount(magnet string) int {
	return len(trackerParamRegex.FindAllStringIndex(magnet, -1))
}

// FileExtension returns the lowercased extension of a file name when it
// looks like a video file, empty otherwise.
func FileExtension(name string) string {
	ext := strings.ToLower(filepath.Ext(strings.TrimSpace(name)))
	if videoExts[ext] {
		return ext
	}
	return ""
}

// IsWebFriendly reports whether the extension plays natively in a
// browser media element.
func IsWebFriendly(ext string) bool {
	return webFriendlyExts[strings.ToLower(ext)]
}

// IsLikelyIncompatible reports whether the extension is known not to
// play in a browser without transcoding.
func IsLikelyIncompatible(ext string) bool {
	return incompatibleExts[strings.ToLower(ext)]
}

// ParseSeasonEpisode extracts a season/episode marker from a release
// title. ok is false when the title carries no marker at all.
func ParseSeasonEpisode(title string) (season, episode int, ok bool) {
	if parsed := torrentname.Parse(title); parsed != nil && parsed.Season > 0 {
		return parsed.Season, parsed.Episode, true
	}
	if m := seasonEpisodeAlt.FindStringSubmatch(title); len(m) == 3 {
		s, _ := strconv.Atoi(m[1])
		e, _ := strconv.Atoi(m[2])
		return s, e, true
	}
	return 0, 0, false
}

// TitleConfidence returns the parser's confidence that the title is a
// well-formed release name, as reported by the title parser.
func TitleConfidence(title string) float64 {
	parsed := torrentname.Parse(title)
	if parsed == nil {
		return 0
	}
	return float64(parsed.Confidence)
}

// NormalizeTitle lowercases, strips diacritics and collapses all
// non-alphanumeric runs to single spaces, for case- and
// diacritic-insensitive comparison.
func NormalizeTitle(title string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, title)
	if err != nil {
		stripped = title
	}
	stripped = strings.ToLower(stripped)
	stripped = nonAlnumRegex.ReplaceAllString(stripped, " ")
	return strings.TrimSpace(stripped)
}
