package i18n

import (
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var german = map[string]string{
	MsgMainMenu:        "MythTV-Aufnahmen",
	MsgGroupLabel:      "%s (%d)",
	MsgByKey:           "Nach %s",
	MsgByKeyTrailing:   "nach %s",
	MsgFilterClause:    "%s „%s“",
	MsgAllRecordings:   "Alle Aufnahmen",
	MsgByRecordingDate: "Nach Aufnahmedatum",
	MsgNoValue:         "(ohne)",
	MsgMore:            "Weitere…",

	MsgHeader:         "%s - %s",
	MsgHeaderStill:    "%s (läuft noch)",
	MsgStillRecording: "Aufnahme läuft noch.",
	MsgMissedBoth:     "WARNUNG: Der Aufnahme fehlen möglicherweise Anfang und Ende der Sendung (%s bzw. %s)",
	MsgMissedStart:    "WARNUNG: Der Aufnahme fehlt möglicherweise der Anfang der Sendung (%s)",
	MsgMissedEnd:      "WARNUNG: Der Aufnahme fehlt möglicherweise das Ende der Sendung (%s)",

	MsgBackendOK:          "Verbunden mit MythTV-Backend %s (Versionsprüfung bestanden).",
	MsgBackendUnreachable: "Kein kompatibles MythTV-Backend unter %s erreichbar. Bitte Server und Port prüfen.",

	FieldNameTitle:        "Titel",
	FieldNameSubtitle:     "Untertitel",
	FieldNameCategory:     "Kategorie",
	FieldNameRecGroup:     "Aufnahmegruppe",
	FieldNameStorageGroup: "Speichergruppe",
	FieldNameChannel:      "Sender",
	FieldNameChannelID:    "Sendernummer",
	FieldNameStartTime:    "Aufnahmedatum",
	FieldNameDescription:  "Beschreibung",
}

var supported = []language.Tag{language.English, language.German}

var matcher = language.NewMatcher(supported)

func init() {
	for key, msg := range german {
		if err := message.SetString(language.German, key, msg); err != nil {
			panic(fmt.Sprintf("i18n: register %q: %v", key, err))
		}
	}
}

// Localizer formats message keys for one locale.
type Localizer struct {
	tag     language.Tag
	printer *message.Printer
}

// New returns a Localizer for locale (a BCP 47 tag such as "en" or "de-DE").
// An empty locale selects English.
func New(locale string) (*Localizer, error) {
	if locale == "" {
		locale = "en"
	}
	requested, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("invalid locale %q: %w", locale, err)
	}
	_, idx, confidence := matcher.Match(requested)
	if confidence == language.No {
		return nil, fmt.Errorf("unsupported locale %q", locale)
	}
	tag := supported[idx]
	return &Localizer{tag: tag, printer: message.NewPrinter(tag)}, nil
}

// Supported reports whether locale resolves to a catalog.
func Supported(locale string) bool {
	_, err := New(locale)
	return err == nil
}

// Tag returns the resolved language.
func (l *Localizer) Tag() language.Tag {
	return l.tag
}

// Sprintf formats key with args in the localizer's language.
func (l *Localizer) Sprintf(key string, args ...any) string {
	return l.printer.Sprintf(key, args...)
}
