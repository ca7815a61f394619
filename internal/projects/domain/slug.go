package domain

import (
	"crypto/rand"
	"encoding/hex"
	"regexp"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const MaxSlugLen = 250

var (
	slugStrip  = regexp.MustCompile(`[^a-z0-9\s-]`)
	slugDashes = regexp.MustCompile(`[\s-]+`)
	slugValid  = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
)

// Slugify folds accents, lower-cases and joins words with dashes:
// "Casa Moderna en Córdoba" -> "casa-moderna-en-cordoba".
func Slugify(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	folded = strings.ToLower(folded)
	folded = slugStrip.ReplaceAllString(folded, "")
	folded = slugDashes.ReplaceAllString(strings.TrimSpace(folded), "-")
	return strings.Trim(folded, "-")
}

func ValidSlug(s string) bool {
	return len(s) <= MaxSlugLen && slugValid.MatchString(s)
}

// DeriveSlug builds "<slugified title>-YYYYMMDD-HHMMSS".
func DeriveSlug(title string, now time.Time) string {
	base := Slugify(title)
	if base == "" {
		base = "project"
	}
	stamp := now.Format("20060102-150405")
	if max := MaxSlugLen - len(stamp) - 1 - 9; len(base) > max {
		base = strings.Trim(base[:max], "-")
	}
	return base + "-" + stamp
}

// WithRandomSuffix appends an 8-hex-digit random suffix, used after a
// slug collision.
func WithRandomSuffix(slug string) string {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		// fallback (should be rare)
		return slug + "-" + time.Now().Format("150405.000000000")[7:]
	}
	return slug + "-" + hex.EncodeToString(b)
}
