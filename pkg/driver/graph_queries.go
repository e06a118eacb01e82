package driver

import (
	"fmt"
	"strings"

	"github.com/soundprediction/mangagraph/pkg/types"
)

// luceneReplacer escapes the characters of the Lucene query syntax.
var luceneReplacer = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	`+`, `\+`,
	`-`, `\-`,
	`!`, `\!`,
	`(`, `\(`,
	`)`, `\)`,
	`{`, `\{`,
	`}`, `\}`,
	`[`, `\[`,
	`]`, `\]`,
	`^`, `\^`,
	`~`, `\~`,
	`*`, `\*`,
	`?`, `\?`,
	`:`, `\:`,
	`|`, `\|`,
	`&`, `\&`,
	`/`, `\/`,
)

// EscapeQueryString escapes special characters in fulltext queries.
func EscapeQueryString(query string) string {
	return luceneReplacer.Replace(query)
}

// BuildLuceneQuery returns the fuzzy fulltext query for text: escaped, with
// an edit distance of one. Empty text matches everything.
func BuildLuceneQuery(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return "*"
	}
	return EscapeQueryString(text) + "~1"
}

// adultFilter is a predicate excluding works tagged AdultTag unless
// $includeAdult is true.
func adultFilter(v string) string {
	return fmt.Sprintf(`($includeAdult OR NONE(t IN coalesce(%[1]s.genres, []) + coalesce(%[1]s.genre, []) + coalesce(%[1]s.themes, []) + coalesce(%[1]s.demographics, []) WHERE toLower(toString(t)) = $adultTag))`, v)
}

// titleMatch is the case-insensitive substring predicate on the title
// fields of language.
func titleMatch(v string, language types.Language) string {
	var clauses []string
	if language == types.LanguageJapanese {
		for _, f := range language.TitleFields() {
			clauses = append(clauses, fmt.Sprintf("toLower(toString(coalesce(%s.%s, ''))) CONTAINS toLower($searchTerm)", v, f))
		}
	} else {
		clauses = []string{
			fmt.Sprintf("toLower(toString(coalesce(%[1]s.title_name, %[1]s.title, ''))) CONTAINS toLower($searchTerm)", v),
			fmt.Sprintf("toLower(toString(coalesce(%s.english_name, ''))) CONTAINS toLower($searchTerm)", v),
		}
	}
	return "(" + strings.Join(clauses, " OR ") + ")"
}

// languageFilter requires a Japanese name for Japanese fulltext queries.
const languageFilter = `($language <> 'japanese' OR coalesce(w.japanese_name, '') <> '')`

// neighbourhoodReturn expands the ordered works in w (and score) to their
// direct neighbours and returns the result set columns.
const neighbourhoodReturn = `
OPTIONAL MATCH (w)-[r]-(n)
RETURN collect(DISTINCT {id: elementId(w), labels: labels(w), properties: properties(w), score: score}) AS work_nodes,
       collect(DISTINCT CASE WHEN n IS NULL THEN NULL ELSE {id: elementId(n), labels: labels(n), properties: properties(n)} END) AS neighbor_nodes,
       collect(DISTINCT CASE WHEN r IS NULL THEN NULL ELSE {id: elementId(r), source: elementId(startNode(r)), target: elementId(endNode(r)), type: type(r), properties: properties(r)} END) AS relationships`

// SimpleSearchQuery matches the title fields of language by substring,
// ordered by popularity and then id.
func SimpleSearchQuery(language types.Language) string {
	return `
MATCH (w:Work)
WHERE ($searchTerm IS NULL OR $searchTerm = '' OR ` + titleMatch("w", language) + `)
  AND ` + adultFilter("w") + `
WITH w, 0.0 AS score
ORDER BY coalesce(toInteger(w.members), 0) DESC, w.id ASC
LIMIT $limitCount` + neighbourhoodReturn
}

// FulltextSearchQuery matches the fulltext index, ordered by index score.
func FulltextSearchQuery() string {
	return `
CALL db.index.fulltext.queryNodes($indexName, $luceneQuery) YIELD node AS w, score
WHERE w:Work AND ` + languageFilter + ` AND ` + adultFilter("w") + `
WITH w, score
ORDER BY score DESC
LIMIT $limitCount` + neighbourhoodReturn
}

// FulltextCandidatesQuery returns the fulltext candidates of a ranked
// search with the title fields needed to rerank them.
func FulltextCandidatesQuery() string {
	return `
CALL db.index.fulltext.queryNodes($indexName, $luceneQuery) YIELD node AS w, score
WHERE w:Work AND ` + languageFilter + ` AND ` + adultFilter("w") + `
WITH w, score
ORDER BY score DESC
LIMIT $candidateLimit
RETURN elementId(w) AS id, score,
       CASE WHEN $language = 'japanese' THEN toString(coalesce(w.japanese_name, ''))
            ELSE toString(coalesce(w.title_name, w.title, w.english_name, '')) END AS title`
}

// NeighbourhoodByIDsQuery returns the result set for the works in $rows,
// each row carrying an element id and a score, in row order.
func NeighbourhoodByIDsQuery() string {
	return `
UNWIND range(0, size($rows) - 1) AS i
WITH i, $rows[i] AS row
MATCH (w) WHERE elementId(w) = row.id
WITH w, row.score AS score, i
ORDER BY i` + neighbourhoodReturn
}

// WorkSubgraphQuery returns one work, looked up by id or element id, and its
// neighbours.
func WorkSubgraphQuery() string {
	return `
MATCH (w:Work)
WHERE w.id = $workId OR elementId(w) = $workId
WITH w, 0.0 AS score
LIMIT 1` + neighbourhoodReturn
}

// VectorSimilarityQuery ranks works by cosine similarity of a vector
// property to $vector. The property name is passed as a parameter.
func VectorSimilarityQuery() string {
	return `
MATCH (w:Work)
WHERE w[$property] IS NOT NULL AND ` + adultFilter("w") + `
WITH w, vector.similarity.cosine(w[$property], $vector) AS score
WHERE score >= $threshold
WITH w, score
ORDER BY score DESC
LIMIT $limitCount` + neighbourhoodReturn
}

// candidateReturn collects the creators, magazines and publishers of w2
// and returns one related candidate per row. via and publisherName name
// the columns holding the venue the candidate was reached through.
func candidateReturn(via, publisherName, order string) string {
	return `
OPTIONAL MATCH (w2)-[:CREATED_BY]->(ca:Author)
WITH w2, ` + via + ` AS magazine_name, ` + publisherName + ` AS publisher_name, collect(DISTINCT coalesce(ca.name, ca.english_name)) AS creators
OPTIONAL MATCH (w2)-[:PUBLISHED_IN]->(cm:Magazine)
WITH w2, magazine_name, publisher_name, creators, collect(DISTINCT coalesce(cm.name, cm.title)) AS magazines
OPTIONAL MATCH (w2)-[:PUBLISHED_IN|PUBLISHED_BY]->()-[:PUBLISHED_BY*0..1]->(cp:Publisher)
WITH w2, magazine_name, publisher_name, creators, magazines, collect(DISTINCT cp.name) AS publishers
RETURN elementId(w2) AS id, properties(w2) AS properties, creators, magazines, publishers, magazine_name, publisher_name
ORDER BY ` + order + `
LIMIT $limit`
}

// anchorMatch matches the anchor work by id or element id.
const anchorMatch = `EXISTS { MATCH (anchor:Work) WHERE (anchor.id = $workId OR elementId(anchor) = $workId) AND %s }`

// RelatedByAuthorQuery finds works sharing a creator with the anchor,
// matched by creator name or through the anchor node.
func RelatedByAuthorQuery() string {
	return `
MATCH (a:Author)<-[:CREATED_BY]-(w2:Work)
WHERE (coalesce(a.name, a.english_name) IN $creators OR ` + fmt.Sprintf(anchorMatch, "(anchor)-[:CREATED_BY]->(a)") + `)
  AND NOT (w2.id = $workId OR elementId(w2) = $workId)
  AND ` + adultFilter("w2") + `
WITH DISTINCT w2` + candidateReturn("NULL", "NULL", "coalesce(w2.title_name, w2.title, '') ASC")
}

// RelatedByMagazineQuery finds works serialized in one of the anchor's
// magazines.
func RelatedByMagazineQuery() string {
	return `
MATCH (m:Magazine)<-[:PUBLISHED_IN]-(w2:Work)
WHERE (coalesce(m.name, m.title) IN $magazines OR ` + fmt.Sprintf(anchorMatch, "(anchor)-[:PUBLISHED_IN]->(m)") + `)
  AND NOT (w2.id = $workId OR elementId(w2) = $workId)
  AND ` + adultFilter("w2") + `
OPTIONAL MATCH (m)-[:PUBLISHED_BY]->(p:Publisher)
WITH w2, m, head(collect(DISTINCT p.name)) AS pub` + candidateReturn("coalesce(m.name, m.title)", "pub", "coalesce(toInteger(w2.members), 0) DESC, w2.id ASC")
}

// RelatedByPublisherQuery finds works of the anchor's publishers serialized
// outside the anchor's magazines within [$fromYear, $toYear].
func RelatedByPublisherQuery() string {
	return `
MATCH (p:Publisher)<-[:PUBLISHED_BY]-(m:Magazine)<-[:PUBLISHED_IN]-(w2:Work)
WHERE p.name IN $publishers
  AND NOT coalesce(m.name, m.title) IN $magazines
  AND NOT (w2.id = $workId OR elementId(w2) = $workId)
  AND ` + adultFilter("w2") + `
  AND ($toYear IS NULL OR coalesce(toInteger(substring(toString(coalesce(w2.first_published, w2.published_from, '')), 0, 4)), $toYear) <= $toYear)
  AND ($fromYear IS NULL OR coalesce(toInteger(substring(toString(coalesce(w2.last_published, w2.published_to, '')), 0, 4)), $fromYear) >= $fromYear)
WITH w2, head(collect(DISTINCT coalesce(m.name, m.title))) AS mag, head(collect(DISTINCT p.name)) AS pub` +
		candidateReturn("mag", "pub", "coalesce(toInteger(w2.members), 0) DESC, w2.id ASC")
}

// MagazinePublishersQuery returns the publishers of the named magazines.
func MagazinePublishersQuery() string {
	return `
MATCH (m:Magazine)-[:PUBLISHED_BY]->(p:Publisher)
WHERE coalesce(m.name, m.title) IN $magazines
RETURN coalesce(m.name, m.title) AS magazine, collect(DISTINCT p.name) AS publishers`
}

// StatsQueries maps every stat key to its count query.
var StatsQueries = map[string]string{
	StatWorkCount:        "MATCH (n:Work) RETURN count(n) AS count",
	StatAuthorCount:      "MATCH (n:Author) RETURN count(n) AS count",
	StatPublisherCount:   "MATCH (n:Publisher) RETURN count(n) AS count",
	StatMagazineCount:    "MATCH (n:Magazine) RETURN count(n) AS count",
	StatCreatedByCount:   "MATCH ()-[r:CREATED_BY]->() RETURN count(r) AS count",
	StatPublishedInCount: "MATCH ()-[r:PUBLISHED_IN]->() RETURN count(r) AS count",
	StatPublishedByCount: "MATCH ()-[r:PUBLISHED_BY]->() RETURN count(r) AS count",
}
