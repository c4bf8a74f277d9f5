package domain

import (
	"encoding/json"
	"time"
)

// NodeKind discriminates listing entries.
type NodeKind string

const (
	NodeDirectory NodeKind = "directory"
	NodeLeaf      NodeKind = "leaf"
	NodePageBreak NodeKind = "page_break"
)

// Node is one entry of a listing.
type Node interface {
	Kind() NodeKind
	DisplayTitle() string
}

// DirectoryNode opens the next level of the hierarchy.
type DirectoryNode struct {
	Title      string       `json:"title"`
	Count      int          `json:"count"`
	Icon       string       `json:"icon,omitempty"`
	Background string       `json:"background,omitempty"`
	SeriesRef  string       `json:"series_ref,omitempty"`
	Action     BrowseAction `json:"action"`
}

func (n DirectoryNode) Kind() NodeKind       { return NodeDirectory }
func (n DirectoryNode) DisplayTitle() string { return n.Title }

func (n DirectoryNode) MarshalJSON() ([]byte, error) {
	type plain DirectoryNode
	return json.Marshal(struct {
		Type NodeKind `json:"type"`
		plain
	}{NodeDirectory, plain(n)})
}

// LeafNode is one projected recording.
type LeafNode struct {
	Title          string    `json:"title"`
	ShowTitle      string    `json:"show_title"`
	Subtitle       string    `json:"subtitle,omitempty"`
	Tagline        string    `json:"tagline,omitempty"`
	Summary        string    `json:"summary,omitempty"`
	Warning        string    `json:"warning,omitempty"`
	Channel        string    `json:"channel,omitempty"`
	ChannelID      string    `json:"channel_id,omitempty"`
	Category       string    `json:"category,omitempty"`
	AirDate        string    `json:"air_date,omitempty"`
	ScheduledStart time.Time `json:"scheduled_start"`
	ScheduledEnd   time.Time `json:"scheduled_end"`
	ActualStart    time.Time `json:"actual_start"`
	ActualEnd      time.Time `json:"actual_end"`
	DurationMs     int64     `json:"duration_ms"`
	StillRecording bool      `json:"still_recording"`
	PlaybackURL    string    `json:"playback_url"`
	Thumb          string    `json:"thumb,omitempty"`
	Background     string    `json:"background,omitempty"`
	SortKey        int64     `json:"sort_key"`
}

func (n LeafNode) Kind() NodeKind       { return NodeLeaf }
func (n LeafNode) DisplayTitle() string { return n.Title }

func (n LeafNode) MarshalJSON() ([]byte, error) {
	type plain LeafNode
	return json.Marshal(struct {
		Type NodeKind `json:"type"`
		plain
	}{NodeLeaf, plain(n)})
}

// PageBreakNode continues a listing that was cut at the page size.
type PageBreakNode struct {
	Title  string       `json:"title"`
	Action BrowseAction `json:"action"`
}

func (n PageBreakNode) Kind() NodeKind       { return NodePageBreak }
func (n PageBreakNode) DisplayTitle() string { return n.Title }

func (n PageBreakNode) MarshalJSON() ([]byte, error) {
	type plain PageBreakNode
	return json.Marshal(struct {
		Type NodeKind `json:"type"`
		plain
	}{NodePageBreak, plain(n)})
}

// Listing is the result of one browse request.
type Listing struct {
	Title       string       `json:"title"`
	Nodes       []Node       `json:"nodes"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
}

// Continuation returns the trailing page break, if any.
func (l *Listing) Continuation() (PageBreakNode, bool) {
	if l == nil || len(l.Nodes) == 0 {
		return PageBreakNode{}, false
	}
	pb, ok := l.Nodes[len(l.Nodes)-1].(PageBreakNode)
	return pb, ok
}
