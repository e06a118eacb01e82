package driver

import (
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/db"

	"github.com/soundprediction/mangagraph/pkg/catalog"
	"github.com/soundprediction/mangagraph/pkg/types"
)

// resultSetFromRecord reads the work_nodes, neighbor_nodes and
// relationships columns of a neighbourhood query.
func resultSetFromRecord(record *db.Record) (*types.RawResultSet, error) {
	rs := &types.RawResultSet{}
	if record == nil {
		return rs, nil
	}
	var err error
	if rs.Works, err = rawNodesColumn(record, "work_nodes"); err != nil {
		return nil, err
	}
	if rs.Neighbors, err = rawNodesColumn(record, "neighbor_nodes"); err != nil {
		return nil, err
	}
	v, err := MustGet(record, "relationships")
	if err != nil {
		return nil, err
	}
	items, err := MustAnySlice(v, "relationships")
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		m, err := MustMap(item, "relationships")
		if err != nil {
			return nil, err
		}
		e := types.RawEdge{
			ID:     stringOf(m["id"]),
			Source: stringOf(m["source"]),
			Target: stringOf(m["target"]),
			Type:   stringOf(m["type"]),
		}
		if props, ok := AsMap(m["properties"]); ok && len(props) > 0 {
			e.Properties, _ = AsMap(PlainValue(props))
		}
		rs.Relationships = append(rs.Relationships, e)
	}
	return rs, nil
}

func rawNodesColumn(record *db.Record, key string) ([]types.RawNode, error) {
	v, err := MustGet(record, key)
	if err != nil {
		return nil, err
	}
	items, err := MustAnySlice(v, key)
	if err != nil {
		return nil, err
	}
	nodes := make([]types.RawNode, 0, len(items))
	for _, item := range items {
		m, err := MustMap(item, key)
		if err != nil {
			return nil, err
		}
		n := types.RawNode{ID: stringOf(m["id"])}
		n.Labels, _ = AsStringSlice(m["labels"])
		if props, ok := AsMap(m["properties"]); ok {
			n.Properties, _ = AsMap(PlainValue(props))
		}
		n.Score, _ = AsFloat64(m["score"])
		nodes = append(nodes, n)
	}
	return nodes, nil
}

// candidateFromRecord reads one row of a related query.
func candidateFromRecord(record *db.Record) (types.RelatedCandidate, error) {
	var c types.RelatedCandidate
	id, err := MustGet(record, "id")
	if err != nil {
		return c, err
	}
	propsValue, err := MustGet(record, "properties")
	if err != nil {
		return c, err
	}
	props, err := MustMap(PlainValue(propsValue), "properties")
	if err != nil {
		return c, err
	}
	c.Work = catalog.WorkFromProperties(stringOf(id), props, 0)
	if v, ok := record.Get("creators"); ok {
		list, _ := AsStringSlice(v)
		c.Work.Creators = mergeNames(c.Work.Creators, list)
	}
	if v, ok := record.Get("magazines"); ok {
		list, _ := AsStringSlice(v)
		c.Work.Magazines = mergeNames(c.Work.Magazines, list)
	}
	if v, ok := record.Get("publishers"); ok {
		list, _ := AsStringSlice(v)
		c.Work.Publishers = mergeNames(c.Work.Publishers, list)
	}
	if v, ok := record.Get("magazine_name"); ok {
		c.Magazine = stringOf(v)
	}
	if v, ok := record.Get("publisher_name"); ok {
		c.Publisher = stringOf(v)
	}
	return c, nil
}

func stringOf(v any) string {
	s, _ := AsString(v)
	return s
}

// mergeNames appends the names in add missing from list.
func mergeNames(list, add []string) []string {
	seen := make(map[string]bool, len(list)+len(add))
	for _, s := range list {
		seen[s] = true
	}
	for _, s := range add {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		list = append(list, s)
	}
	return list
}
