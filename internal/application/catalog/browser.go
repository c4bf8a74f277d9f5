package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/githubixx/mythrecordings-go/internal/domain"
	"github.com/githubixx/mythrecordings-go/internal/infrastructure/i18n"
	"github.com/githubixx/mythrecordings-go/internal/infrastructure/metrics"
	"github.com/githubixx/mythrecordings-go/internal/infrastructure/resources"
	"github.com/githubixx/mythrecordings-go/internal/ports"
)

// RecordingProvider supplies the full, unfiltered recording list.
type RecordingProvider interface {
	GetAllRecordings(ctx context.Context, maxCount int) ([]domain.RawRecording, error)
}

// Options controls the shape of listings.
type Options struct {
	PageSize        int
	Paging          bool
	SeriesDetection bool
	CoalesceTitles  bool
	// MaxCount > 0 limits every listing to the first MaxCount upstream
	// recordings.
	MaxCount int
	// Menu lists the group plans offered at the top level.
	Menu []domain.GroupPlan
}

// DefaultMenu is the top-level menu used when none is configured.
func DefaultMenu() []domain.GroupPlan {
	return []domain.GroupPlan{
		{domain.FieldTitle},
		{domain.FieldCategory, domain.FieldTitle},
		{domain.FieldRecGroup, domain.FieldTitle},
		{domain.FieldChannelName, domain.FieldTitle},
	}
}

// readableKeys maps logical field names to their display message keys.
var readableKeys = map[string]string{
	domain.FieldTitle:        i18n.FieldNameTitle,
	domain.FieldSubTitle:     i18n.FieldNameSubtitle,
	domain.FieldCategory:     i18n.FieldNameCategory,
	domain.FieldRecGroup:     i18n.FieldNameRecGroup,
	domain.FieldStorageGroup: i18n.FieldNameStorageGroup,
	domain.FieldChannelName:  i18n.FieldNameChannel,
	domain.FieldChanID:       i18n.FieldNameChannelID,
	domain.FieldStartTime:    i18n.FieldNameStartTime,
	domain.FieldDescription:  i18n.FieldNameDescription,
}

var keyIcons = map[string]string{
	domain.FieldTitle:       resources.IconSeries,
	domain.FieldCategory:    resources.IconCategory,
	domain.FieldChannelName: resources.IconChannel,
	domain.FieldChanID:      resources.IconChannel,
	domain.FieldRecGroup:    resources.IconRecGroup,
	domain.FieldStartTime:   resources.IconDate,
}

// Browser turns the recording list into a navigable hierarchy.
type Browser struct {
	provider  RecordingProvider
	accessor  *Accessor
	projector *Projector
	resources ports.ResourceResolver
	locator   ports.Locator
	loc       ports.Localizer
	opts      Options
	logger    *slog.Logger
	now       func() time.Time
}

// NewBrowser creates a browser.
func NewBrowser(
	provider RecordingProvider,
	accessor *Accessor,
	projector *Projector,
	res ports.ResourceResolver,
	locator ports.Locator,
	loc ports.Localizer,
	opts Options,
	logger *slog.Logger,
) *Browser {
	if len(opts.Menu) == 0 {
		opts.Menu = DefaultMenu()
	}
	return &Browser{
		provider:  provider,
		accessor:  accessor,
		projector: projector,
		resources: res,
		locator:   locator,
		loc:       loc,
		opts:      opts,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// session is the state of one browse request: the accessor in effect (with
// any derived title aliases) and the diagnostics collected so far.
type session struct {
	acc         *Accessor
	now         time.Time
	diagnostics []domain.Diagnostic
}

func (b *Browser) skip(s *session, err error) {
	d := domain.DiagnosticFrom(err)
	s.diagnostics = append(s.diagnostics, d)
	metrics.IncRecordSkipped(d.Field)
	b.logger.Warn("skipping recording", slog.String("title", d.Title), slog.Any("error", err))
}

func (b *Browser) pageSize() int {
	if !b.opts.Paging {
		return 0
	}
	return b.opts.PageSize
}

// candidates fetches all recordings and keeps those that pass the exclusion
// rules, carry every mandatory field and match filter, in input order.
func (b *Browser) candidates(ctx context.Context, filter domain.FilterSpec) ([]domain.RawRecording, *session, error) {
	all, err := b.provider.GetAllRecordings(ctx, b.opts.MaxCount)
	if err != nil {
		return nil, nil, err
	}
	s := &session{acc: b.accessor, now: b.now()}

	valid := make([]domain.RawRecording, 0, len(all))
	for _, rec := range all {
		if !IsCandidate(rec) {
			continue
		}
		if err := checkMandatory(rec); err != nil {
			b.skip(s, err)
			continue
		}
		valid = append(valid, rec)
	}

	if b.opts.CoalesceTitles {
		titles := make([]string, 0, len(valid))
		for _, rec := range valid {
			if t, err := s.acc.GetField(rec, domain.FieldTitle); err == nil {
				titles = append(titles, t)
			}
		}
		if derived := DeriveAliases(titles); len(derived) > 0 {
			s.acc = s.acc.WithTitleAliases(derived)
		}
	}

	if len(filter) == 0 {
		return valid, s, nil
	}
	out := valid[:0:0]
	for _, rec := range valid {
		if s.acc.Match(filter, rec) {
			out = append(out, rec)
		}
	}
	return out, s, nil
}

// GetMythTVRecordings returns the candidates matching filter in upstream order,
// along with diagnostics for records that were skipped.
func (b *Browser) GetMythTVRecordings(ctx context.Context, filter domain.FilterSpec) ([]domain.RawRecording, []domain.Diagnostic, error) {
	recs, s, err := b.candidates(ctx, filter)
	if err != nil {
		return nil, nil, err
	}
	return recs, s.diagnostics, nil
}

// GroupRecordingsBy lists one level of the hierarchy: the candidates matching
// filter, partitioned by the head of plan. An empty plan lists leaves sorted by
// start time.
//
// Groups are paged in ordinal order of their key values and the nodes of one
// page are then sorted by display title, so ordering across pages follows key
// order while each page is sorted by title.
func (b *Browser) GroupRecordingsBy(ctx context.Context, plan domain.GroupPlan, filter domain.FilterSpec, offset int) (*domain.Listing, error) {
	if plan.Empty() {
		return b.ListRecordings(ctx, filter, domain.FieldStartTime, offset)
	}
	key, rest := plan.Head(), plan.Tail()

	recs, s, err := b.candidates(ctx, filter)
	if err != nil {
		return nil, err
	}

	groups := make(map[string][]domain.RawRecording)
	for _, rec := range recs {
		v := s.acc.KeyValue(rec, key)
		groups[v] = append(groups[v], rec)
	}
	keys := make([]string, 0, len(groups))
	for v := range groups {
		keys = append(keys, v)
	}
	sort.Strings(keys)

	page, more := Page(keys, b.pageSize(), offset)
	nodes := make([]domain.Node, 0, len(page)+1)
	for _, value := range page {
		members := groups[value]
		if key == domain.FieldTitle && len(members) == 1 {
			leaf, err := b.projector.Project(members[0], s.acc, s.now)
			if err != nil {
				b.skip(s, err)
				continue
			}
			nodes = append(nodes, leaf)
			continue
		}
		nodes = append(nodes, b.directory(key, value, members, rest, filter))
	}
	sort.SliceStable(nodes, func(i, j int) bool {
		return nodes[i].DisplayTitle() < nodes[j].DisplayTitle()
	})
	if more {
		nodes = append(nodes, domain.PageBreakNode{
			Title:  b.loc.Sprintf(i18n.MsgMore),
			Action: domain.BrowseAction{Plan: plan, Filter: filter, Offset: offset + len(page)},
		})
	}

	return &domain.Listing{
		Title:       b.groupTitle(filter, key),
		Nodes:       nodes,
		Diagnostics: s.diagnostics,
	}, nil
}

func (b *Browser) directory(key, value string, members []domain.RawRecording, rest domain.GroupPlan, filter domain.FilterSpec) domain.DirectoryNode {
	icon := iconFor(key)
	node := domain.DirectoryNode{
		Title:      b.loc.Sprintf(i18n.MsgGroupLabel, b.displayValue(value), len(members)),
		Count:      len(members),
		Icon:       b.resources.Resource(icon),
		Background: b.resources.Resource(resources.BackgroundDefault),
		Action:     domain.BrowseAction{Plan: rest, Filter: filter.With(key, value)},
	}
	if key == domain.FieldTitle && b.opts.SeriesDetection {
		if ref := seriesRef(members); ref != "" {
			node.SeriesRef = ref
			node.Icon = b.resources.Image(b.locator.ArtworkURL(ref, "coverart"), icon)
			node.Background = b.resources.Image(b.locator.ArtworkURL(ref, "fanart"), resources.BackgroundDefault)
		}
	}
	return node
}

// seriesRef returns the first non-empty Inetref among members.
func seriesRef(members []domain.RawRecording) string {
	for _, rec := range members {
		if v, err := rec.Lookup(domain.FieldInetref); err == nil {
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		}
	}
	return ""
}

func iconFor(key string) string {
	if icon, ok := keyIcons[key]; ok {
		return icon
	}
	return resources.IconDefault
}

// ListRecordings lists the candidates matching filter as leaves, ordered by
// sortKey. Start time sorts newest first; any other key sorts ascending by
// its value. Ties keep upstream order.
func (b *Browser) ListRecordings(ctx context.Context, filter domain.FilterSpec, sortKey string, offset int) (*domain.Listing, error) {
	if sortKey == "" {
		sortKey = domain.FieldStartTime
	}
	recs, s, err := b.candidates(ctx, filter)
	if err != nil {
		return nil, err
	}

	type keyed struct {
		rec domain.RawRecording
		v   string
	}
	items := make([]keyed, len(recs))
	for i, rec := range recs {
		v, _ := s.acc.GetField(rec, sortKey)
		items[i] = keyed{rec: rec, v: v}
	}
	descending := sortKey == domain.FieldStartTime
	sort.SliceStable(items, func(i, j int) bool {
		if descending {
			return items[i].v > items[j].v
		}
		return items[i].v < items[j].v
	})
	sorted := make([]domain.RawRecording, len(items))
	for i, it := range items {
		sorted[i] = it.rec
	}

	page, more := Page(sorted, b.pageSize(), offset)
	nodes := make([]domain.Node, 0, len(page)+1)
	for _, rec := range page {
		leaf, err := b.projector.Project(rec, s.acc, s.now)
		if err != nil {
			b.skip(s, err)
			continue
		}
		nodes = append(nodes, leaf)
	}
	if more {
		nodes = append(nodes, domain.PageBreakNode{
			Title:  b.loc.Sprintf(i18n.MsgMore),
			Action: domain.BrowseAction{Filter: filter, SortKey: sortKey, Offset: offset + len(page)},
		})
	}

	return &domain.Listing{
		Title:       b.listTitle(filter),
		Nodes:       nodes,
		Diagnostics: s.diagnostics,
	}, nil
}

// Browse runs the listing described by an action.
func (b *Browser) Browse(ctx context.Context, action domain.BrowseAction) (*domain.Listing, error) {
	if action.Offset < 0 {
		return nil, fmt.Errorf("%w: negative offset %d", domain.ErrInvalidInput, action.Offset)
	}
	if action.Plan.Empty() {
		metrics.IncBrowse("list")
		return b.ListRecordings(ctx, action.Filter, action.SortKey, action.Offset)
	}
	metrics.IncBrowse("group")
	return b.GroupRecordingsBy(ctx, action.Plan, action.Filter, action.Offset)
}

// Menu returns the top-level entries. It does not contact the backend.
func (b *Browser) Menu() *domain.Listing {
	metrics.IncBrowse("menu")
	nodes := make([]domain.Node, 0, len(b.opts.Menu)+1)
	for _, plan := range b.opts.Menu {
		if plan.Empty() {
			continue
		}
		nodes = append(nodes, domain.DirectoryNode{
			Title:      b.loc.Sprintf(i18n.MsgByKey, b.readable(plan.Head())),
			Icon:       b.resources.Resource(iconFor(plan.Head())),
			Background: b.resources.Resource(resources.BackgroundDefault),
			Action:     domain.BrowseAction{Plan: plan},
		})
	}
	nodes = append(nodes, domain.DirectoryNode{
		Title:      b.loc.Sprintf(i18n.MsgByRecordingDate),
		Icon:       b.resources.Resource(resources.IconDate),
		Background: b.resources.Resource(resources.BackgroundDefault),
		Action:     domain.BrowseAction{SortKey: domain.FieldStartTime},
	})
	return &domain.Listing{Title: b.loc.Sprintf(i18n.MsgMainMenu), Nodes: nodes}
}

func (b *Browser) readable(key string) string {
	if msg, ok := readableKeys[key]; ok {
		return b.loc.Sprintf(msg)
	}
	return key
}

func (b *Browser) displayValue(v string) string {
	if v == "" {
		return b.loc.Sprintf(i18n.MsgNoValue)
	}
	return v
}

func (b *Browser) filterClauses(filter domain.FilterSpec) []string {
	clauses := make([]string, 0, len(filter)+1)
	for _, f := range filter {
		clauses = append(clauses, b.loc.Sprintf(i18n.MsgFilterClause, b.readable(f.Key), b.displayValue(f.Value)))
	}
	return clauses
}

func (b *Browser) groupTitle(filter domain.FilterSpec, key string) string {
	if len(filter) == 0 {
		return b.loc.Sprintf(i18n.MsgByKey, b.readable(key))
	}
	clauses := append(b.filterClauses(filter), b.loc.Sprintf(i18n.MsgByKeyTrailing, b.readable(key)))
	return strings.Join(clauses, ", ")
}

func (b *Browser) listTitle(filter domain.FilterSpec) string {
	if len(filter) == 0 {
		return b.loc.Sprintf(i18n.MsgAllRecordings)
	}
	return strings.Join(b.filterClauses(filter), ", ")
}
