package catalog

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/githubixx/mythrecordings-go/internal/domain"
)

// DefaultStripChars are trimmed from both ends of group key values.
const DefaultStripChars = " \t\r\n.,:;-_\"'"

// AccessorOptions configures field extraction.
type AccessorOptions struct {
	TitleSplitting  bool
	Splitters       []string
	Exemptions      []*regexp.Regexp
	CategoryAliases AliasTable
	StripChars      string
}

// Accessor extracts logical fields from recordings, applying title/subtitle
// splitting and alias canonicalization. It is immutable and safe for
// concurrent use.
type Accessor struct {
	opts         AccessorOptions
	titleAliases AliasTable
}

// NewAccessor creates an accessor.
func NewAccessor(opts AccessorOptions) *Accessor {
	return &Accessor{opts: opts}
}

// WithTitleAliases returns a copy of a that also canonicalizes titles through t.
func (a *Accessor) WithTitleAliases(t AliasTable) *Accessor {
	c := *a
	c.titleAliases = t
	return &c
}

// TitleAndSubtitle returns the display title and subtitle of rec. When the
// recording has no subtitle, the title is split at the first splitter that
// yields exactly two non-empty parts, unless the title matches an exemption.
// titleErr reports a missing Title; subtitleErr reports that the record has
// neither a SubTitle nor a splittable title.
func (a *Accessor) TitleAndSubtitle(rec domain.RawRecording) (title, subtitle string, titleErr, subtitleErr error) {
	title, titleErr = rec.Lookup(domain.FieldTitle)
	subtitle, subtitleErr = rec.Lookup(domain.FieldSubTitle)
	subtitle = strings.TrimSpace(subtitle)

	if titleErr == nil && subtitle == "" && a.opts.TitleSplitting && !a.exempt(title) {
		if t, s, ok := a.split(title); ok {
			title, subtitle, subtitleErr = t, s, nil
		}
	}
	if titleErr == nil && len(a.titleAliases) > 0 {
		title = a.titleAliases.Map(title)
	}
	return title, subtitle, titleErr, subtitleErr
}

func (a *Accessor) exempt(title string) bool {
	for _, re := range a.opts.Exemptions {
		if re.MatchString(title) {
			return true
		}
	}
	return false
}

func (a *Accessor) split(title string) (string, string, bool) {
	for _, sp := range a.opts.Splitters {
		if sp == "" {
			continue
		}
		parts := strings.Split(title, sp)
		if len(parts) != 2 {
			continue
		}
		left, right := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
		if left == "" || right == "" {
			continue
		}
		return left, right, true
	}
	return "", "", false
}

// GetField returns the logical field name of rec. Title and SubTitle reflect
// splitting, Category is canonicalized through the category aliases, any other
// name is the raw field text. A missing field yields domain.ErrFieldNotFound.
func (a *Accessor) GetField(rec domain.RawRecording, name string) (string, error) {
	switch name {
	case domain.FieldTitle:
		title, _, err, _ := a.TitleAndSubtitle(rec)
		return title, err
	case domain.FieldSubTitle:
		_, sub, _, err := a.TitleAndSubtitle(rec)
		return sub, err
	case domain.FieldCategory:
		v, err := rec.Lookup(domain.FieldCategory)
		if err != nil {
			// A missing category is "" for aliasing, so a group may name it.
			if mapped := MapAlias("", a.opts.CategoryAliases); mapped != "" {
				return mapped, nil
			}
			return "", err
		}
		return MapAlias(v, a.opts.CategoryAliases), nil
	default:
		return rec.Lookup(name)
	}
}

// KeyValue returns the normalized value of key used for grouping and filter
// matching: missing values become "", text is NFC-normalized and the strip
// characters are trimmed from both ends.
func (a *Accessor) KeyValue(rec domain.RawRecording, key string) string {
	v, err := a.GetField(rec, key)
	if err != nil {
		v = ""
	}
	strip := a.opts.StripChars
	if strip == "" {
		strip = DefaultStripChars
	}
	return strings.Trim(norm.NFC.String(v), strip)
}

// Match reports whether rec satisfies every constraint in spec. A constraint
// holds when its value equals either the normalized KeyValue, which is what
// group actions carry, or the exact GetField value. An empty spec matches
// everything.
func (a *Accessor) Match(spec domain.FilterSpec, rec domain.RawRecording) bool {
	for _, f := range spec {
		if a.KeyValue(rec, f.Key) == f.Value {
			continue
		}
		if v, err := a.GetField(rec, f.Key); err == nil && v == f.Value {
			continue
		}
		return false
	}
	return true
}
