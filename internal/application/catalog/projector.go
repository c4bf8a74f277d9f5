package catalog

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/githubixx/mythrecordings-go/internal/domain"
	"github.com/githubixx/mythrecordings-go/internal/infrastructure/i18n"
	"github.com/githubixx/mythrecordings-go/internal/infrastructure/resources"
	"github.com/githubixx/mythrecordings-go/internal/ports"
)

// TimestampLayout is the backend timestamp format (always UTC).
const TimestampLayout = "2006-01-02T15:04:05Z"

const sortKeyLayout = "200601021504"

// ProjectorOptions holds the leaf heuristics.
type ProjectorOptions struct {
	// MaxHeaderLength bounds the combined "title - subtitle" header in runes.
	// 0 disables the bound.
	MaxHeaderLength int
	// StillRecordingWindow: a recording whose actual end lies less than this
	// before now is considered still recording.
	StillRecordingWindow time.Duration
	// ProcessingPadding is added to finished recordings to cover backend
	// post-processing.
	ProcessingPadding time.Duration
	// FallbackDuration is used when the duration cannot be computed.
	FallbackDuration time.Duration
}

// DefaultProjectorOptions returns the stock heuristics.
func DefaultProjectorOptions() ProjectorOptions {
	return ProjectorOptions{
		MaxHeaderLength:      80,
		StillRecordingWindow: 30 * time.Second,
		ProcessingPadding:    5 * time.Minute,
		FallbackDuration:     3 * time.Hour,
	}
}

// Projector maps raw recordings to leaf nodes.
type Projector struct {
	opts      ProjectorOptions
	locator   ports.Locator
	resources ports.ResourceResolver
	loc       ports.Localizer
	logger    *slog.Logger
}

// NewProjector creates a projector.
func NewProjector(opts ProjectorOptions, locator ports.Locator, res ports.ResourceResolver, loc ports.Localizer, logger *slog.Logger) *Projector {
	return &Projector{opts: opts, locator: locator, resources: res, loc: loc, logger: logger}
}

// schedule holds the four time bounds of a recording.
type schedule struct {
	scheduledStart, scheduledEnd time.Time
	actualStart, actualEnd       time.Time
}

// timing is the derived state of a recording relative to now.
type timing struct {
	duration       time.Duration
	stillRecording bool
	missedStart    time.Duration // > 0 when the recording started late
	missedEnd      time.Duration // > 0 when the recording stopped early
}

func parseSchedule(programStart, programEnd, recStart, recEnd string) (schedule, error) {
	var s schedule
	var errs []error
	parse := func(field, v string, dst *time.Time) {
		t, err := time.Parse(TimestampLayout, v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", field, err))
			return
		}
		*dst = t
	}
	parse(domain.FieldStartTime, programStart, &s.scheduledStart)
	parse(domain.FieldEndTime, programEnd, &s.scheduledEnd)
	parse(domain.FieldRecStartTs, recStart, &s.actualStart)
	parse(domain.FieldRecEndTs, recEnd, &s.actualEnd)
	return s, errors.Join(errs...)
}

// computeTiming derives duration and schedule deviations. ok is false when the
// computed duration is unusable.
func (p *Projector) computeTiming(s schedule, now time.Time) (timing, bool) {
	var t timing
	t.stillRecording = now.Sub(s.actualEnd) < p.opts.StillRecordingWindow
	if t.stillRecording {
		t.duration = s.actualEnd.Sub(s.actualStart)
	} else {
		t.duration = s.scheduledEnd.Sub(s.actualStart) + p.opts.ProcessingPadding
	}
	if d := s.actualStart.Sub(s.scheduledStart); d > 0 {
		t.missedStart = d
	}
	if d := s.scheduledEnd.Sub(s.actualEnd); d > 0 && !t.stillRecording {
		t.missedEnd = d
	}
	return t, t.duration > 0
}

func (p *Projector) warning(t timing) string {
	var parts []string
	if t.stillRecording {
		parts = append(parts, p.loc.Sprintf(i18n.MsgStillRecording))
	}
	switch {
	case t.missedStart > 0 && t.missedEnd > 0:
		parts = append(parts, p.loc.Sprintf(i18n.MsgMissedBoth, t.missedStart.String(), t.missedEnd.String()))
	case t.missedStart > 0:
		parts = append(parts, p.loc.Sprintf(i18n.MsgMissedStart, t.missedStart.String()))
	case t.missedEnd > 0:
		parts = append(parts, p.loc.Sprintf(i18n.MsgMissedEnd, t.missedEnd.String()))
	}
	return strings.Join(parts, " ")
}

// header builds the display title and the demoted tagline.
func (p *Projector) header(title, subtitle, airDate string, still bool) (string, string) {
	header, tagline := title, ""
	if subtitle != "" {
		combined := p.loc.Sprintf(i18n.MsgHeader, title, subtitle)
		if p.opts.MaxHeaderLength <= 0 || len([]rune(combined)) < p.opts.MaxHeaderLength {
			header = combined
		} else {
			tagline = subtitle
		}
	} else {
		tagline = airDate
	}
	header = truncate(header, p.opts.MaxHeaderLength)
	if still {
		header = p.loc.Sprintf(i18n.MsgHeaderStill, header)
	}
	return header, tagline
}

func truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max == 1 {
		return "…"
	}
	return string(r[:max-1]) + "…"
}

// Project maps rec to a leaf node as seen at now. It fails only when a
// mandatory field is missing; timing problems fall back to FallbackDuration.
func (p *Projector) Project(rec domain.RawRecording, acc *Accessor, now time.Time) (domain.LeafNode, error) {
	title, subtitle, err, _ := acc.TitleAndSubtitle(rec)
	if err != nil {
		return domain.LeafNode{}, &domain.RecordError{Title: recordLabel(rec), Field: domain.FieldTitle, Err: err}
	}
	raw := make(map[string]string, 5)
	for _, field := range []string{domain.FieldChanID, domain.FieldStartTime, domain.FieldEndTime, domain.FieldRecStartTs, domain.FieldRecEndTs} {
		v, err := rec.Lookup(field)
		if err != nil {
			return domain.LeafNode{}, &domain.RecordError{Title: title, Field: field, Err: err}
		}
		raw[field] = v
	}

	leaf := domain.LeafNode{
		ShowTitle: title,
		Subtitle:  subtitle,
		ChannelID: raw[domain.FieldChanID],
	}
	leaf.Channel, _ = rec.Lookup(domain.FieldChannelName)
	leaf.Category, _ = acc.GetField(rec, domain.FieldCategory)
	description, _ := rec.Lookup(domain.FieldDescription)
	description = strings.TrimSpace(description)

	var t timing
	sched, err := parseSchedule(raw[domain.FieldStartTime], raw[domain.FieldEndTime], raw[domain.FieldRecStartTs], raw[domain.FieldRecEndTs])
	if err != nil {
		p.logger.Warn("unparsable recording timestamps, using fallback duration",
			slog.String("title", title), slog.Any("error", err))
		t.duration = p.opts.FallbackDuration
	} else {
		var ok bool
		t, ok = p.computeTiming(sched, now)
		if !ok {
			p.logger.Warn("invalid recording duration, using fallback duration",
				slog.String("title", title), slog.Duration("computed", t.duration))
			t.duration = p.opts.FallbackDuration
		}
		leaf.ScheduledStart = sched.scheduledStart
		leaf.ScheduledEnd = sched.scheduledEnd
		leaf.ActualStart = sched.actualStart
		leaf.ActualEnd = sched.actualEnd
	}
	if !leaf.ScheduledStart.IsZero() {
		leaf.AirDate = leaf.ScheduledStart.Format("2006-01-02")
		leaf.SortKey, _ = strconv.ParseInt(leaf.ScheduledStart.Format(sortKeyLayout), 10, 64)
	}

	leaf.StillRecording = t.stillRecording
	leaf.DurationMs = t.duration.Milliseconds()
	leaf.Warning = p.warning(t)
	leaf.Title, leaf.Tagline = p.header(title, subtitle, leaf.AirDate, t.stillRecording)

	switch {
	case description != "" && leaf.Warning != "":
		leaf.Summary = description + "\n" + leaf.Warning
	case description != "":
		leaf.Summary = description
	default:
		leaf.Summary = leaf.Warning
	}

	ref := domain.RecordingRef{ChanID: leaf.ChannelID, StartTs: raw[domain.FieldRecStartTs]}
	ref.StorageGroup, _ = rec.Lookup(domain.FieldStorageGroup)
	ref.FileName, _ = rec.Lookup(domain.FieldFileName)
	leaf.PlaybackURL = p.locator.PlaybackURL(ref)

	if leaf.ChannelID != "" && leaf.ChannelID != "0" {
		leaf.Thumb = p.resources.Image(p.locator.PreviewURL(leaf.ChannelID, ref.StartTs), resources.ArtDefault)
	} else {
		leaf.Thumb = p.resources.Resource(resources.ArtDefault)
	}
	if inetref, err := rec.Lookup(domain.FieldInetref); err == nil && strings.TrimSpace(inetref) != "" {
		leaf.Background = p.resources.Image(p.locator.ArtworkURL(inetref, "fanart"), resources.BackgroundDefault)
	} else {
		leaf.Background = p.resources.Resource(resources.BackgroundDefault)
	}
	return leaf, nil
}
