package catalog

import (
	"strings"

	"github.com/soundprediction/mangagraph/pkg/types"
)

// Store node labels.
const (
	LabelWork      = "Work"
	LabelAuthor    = "Author"
	LabelMagazine  = "Magazine"
	LabelPublisher = "Publisher"
)

// Result is the catalog view of a raw result set.
type Result struct {
	Works      []types.WorkRecord
	Enrichment types.MagazinePublishers
}

// mappedKeys are work properties consumed by WorkFromProperties and not
// carried as passthrough properties.
var mappedKeys = map[string]bool{
	"id": true, "title": true, "title_name": true, "english_name": true, "japanese_name": true,
	"volume": true, "total_volumes": true, "volumes": true,
	"first_published": true, "published_from": true, "published_date": true,
	"last_published": true, "published_to": true,
	"genre": true, "genres": true, "themes": true, "demographics": true,
	"series_id": true, "series_name": true, "members": true,
	"creators": true, "authors": true, "publishers": true, "magazines": true,
}

// NodeTypeOf classifies a store node by its labels. Work takes precedence
// over Author, Author over Magazine and Magazine over Publisher.
func NodeTypeOf(labels []string) (types.NodeType, bool) {
	has := func(want string) bool {
		for _, l := range labels {
			if strings.EqualFold(l, want) {
				return true
			}
		}
		return false
	}
	switch {
	case has(LabelWork):
		return types.NodeTypeWork, true
	case has(LabelAuthor):
		return types.NodeTypeAuthor, true
	case has(LabelMagazine):
		return types.NodeTypeMagazine, true
	case has(LabelPublisher):
		return types.NodeTypePublisher, true
	}
	return "", false
}

// LabelFor returns the display label of a node of type t.
func LabelFor(t types.NodeType, props map[string]any) string {
	switch t {
	case types.NodeTypeWork:
		if s := FirstString(props, "title_name", "english_name", "title", "japanese_name", "id"); s != "" {
			return s
		}
		return LabelWork
	case types.NodeTypeAuthor:
		return FirstString(props, "name", "english_name")
	case types.NodeTypeMagazine:
		return FirstString(props, "name", "title")
	case types.NodeTypePublisher:
		return FirstString(props, "name")
	}
	return ""
}

// WorkFromProperties converts the properties of a work node to a record.
// The record id is the "id" property, falling back to elementID.
func WorkFromProperties(elementID string, props map[string]any, score float64) types.WorkRecord {
	w := types.WorkRecord{
		ID:             FirstString(props, "id"),
		Title:          LabelFor(types.NodeTypeWork, props),
		VolumeLabel:    FirstString(props, "volume"),
		FirstPublished: FirstString(props, "first_published", "published_from", "published_date"),
		LastPublished:  FirstString(props, "last_published", "published_to"),
		SeriesID:       FirstString(props, "series_id"),
		SeriesName:     FirstString(props, "series_name"),
		Themes:         StringList(props["themes"]),
		Demographics:   StringList(props["demographics"]),
		Genres:         StringList(props["genres"]),
		Creators:       StringList(firstPresent(props, "creators", "authors")),
		Publishers:     StringList(props["publishers"]),
		Magazines:      StringList(props["magazines"]),
		RelevanceScore: score,
	}
	if w.ID == "" {
		w.ID = elementID
	}
	switch g := props["genre"].(type) {
	case []any, []string:
		w.Genres = appendUnique(w.Genres, StringList(g)...)
	default:
		w.Genre = String(g)
	}
	for _, key := range []string{"total_volumes", "volumes"} {
		if n, ok := Int(props[key]); ok && n > 0 {
			w.TotalVolumes = n
			break
		}
	}
	if n, ok := Int(props["members"]); ok {
		w.Members = int64(n)
	}
	for k, v := range props {
		if mappedKeys[k] || strings.HasPrefix(k, "embedding") || !printable(v) {
			continue
		}
		if w.Properties == nil {
			w.Properties = make(map[string]any)
		}
		w.Properties[k] = v
	}
	return w
}

func firstPresent(props map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := props[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

type classified struct {
	node  types.RawNode
	kind  types.NodeType
	label string
}

// FromResultSet converts rs to work records. Work nodes keep their result
// order; relationships, in either orientation, attach creators, magazines
// and publishers to them. Publishers of a work's magazines are recorded as
// enrichment and added to the work's publishers.
func FromResultSet(rs *types.RawResultSet) Result {
	out := Result{Enrichment: types.MagazinePublishers{}}
	if rs == nil {
		return out
	}

	nodes := make(map[string]classified)
	var workOrder []string
	for _, list := range [][]types.RawNode{rs.Works, rs.Neighbors} {
		for _, n := range list {
			if _, dup := nodes[n.ID]; dup || n.ID == "" {
				continue
			}
			kind, ok := NodeTypeOf(n.Labels)
			if !ok {
				continue
			}
			nodes[n.ID] = classified{node: n, kind: kind, label: LabelFor(kind, n.Properties)}
			if kind == types.NodeTypeWork {
				workOrder = append(workOrder, n.ID)
			}
		}
	}

	works := make(map[string]*types.WorkRecord, len(workOrder))
	records := make([]types.WorkRecord, len(workOrder))
	for i, id := range workOrder {
		n := nodes[id].node
		records[i] = WorkFromProperties(n.ID, n.Properties, n.Score)
		records[i].Source = rs.Source
		works[id] = &records[i]
	}

	// Magazine to publisher pairs first, so work publishers can be
	// completed in one pass below.
	for _, e := range rs.Relationships {
		if !strings.EqualFold(e.Type, types.RelPublishedBy) {
			continue
		}
		mag, pub, ok := pair(nodes, e, types.NodeTypeMagazine, types.NodeTypePublisher)
		if ok {
			out.Enrichment.Add(mag.label, pub.label)
		}
	}

	for _, e := range rs.Relationships {
		switch strings.ToUpper(e.Type) {
		case types.RelCreatedBy:
			if w, a, ok := pair(nodes, e, types.NodeTypeWork, types.NodeTypeAuthor); ok {
				works[w.node.ID].Creators = appendUnique(works[w.node.ID].Creators, a.label)
			}
		case types.RelPublishedIn:
			if w, m, ok := pair(nodes, e, types.NodeTypeWork, types.NodeTypeMagazine); ok {
				works[w.node.ID].Magazines = appendUnique(works[w.node.ID].Magazines, m.label)
			}
		case types.RelPublishedBy:
			if w, p, ok := pair(nodes, e, types.NodeTypeWork, types.NodeTypePublisher); ok {
				works[w.node.ID].Publishers = appendUnique(works[w.node.ID].Publishers, p.label)
			}
		}
	}

	for i := range records {
		for _, m := range records[i].Magazines {
			records[i].Publishers = appendUnique(records[i].Publishers, out.Enrichment[m]...)
		}
	}
	out.Works = records
	return out
}

// pair resolves the endpoints of e as one node of type a and one of type b,
// in whichever direction the edge points.
func pair(nodes map[string]classified, e types.RawEdge, a, b types.NodeType) (classified, classified, bool) {
	src, okSrc := nodes[e.Source]
	dst, okDst := nodes[e.Target]
	if !okSrc || !okDst {
		return classified{}, classified{}, false
	}
	switch {
	case src.kind == a && dst.kind == b:
		return src, dst, src.label != "" && dst.label != ""
	case src.kind == b && dst.kind == a:
		return dst, src, src.label != "" && dst.label != ""
	}
	return classified{}, classified{}, false
}
