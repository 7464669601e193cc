// Package domain holds the data model shared across the extraction pipeline:
// articles, entity mentions, extraction results, facts, relationships, cost
// records and knowledge-base cache entries.
package domain

import "time"

// EntityType is one of the five recognized entity categories.
type EntityType string

const (
	EntityPerson       EntityType = "PERSON"
	EntityLocation     EntityType = "LOCATION"
	EntityOrganization EntityType = "ORGANIZATION"
	EntityEvent        EntityType = "EVENT"
	EntityOther        EntityType = "OTHER"
)

// ValidEntityTypes returns every recognized entity type.
func ValidEntityTypes() []EntityType {
	return []EntityType{EntityPerson, EntityLocation, EntityOrganization, EntityEvent, EntityOther}
}

// IsValidEntityType reports whether t is one of the recognized types.
func IsValidEntityType(t EntityType) bool {
	for _, v := range ValidEntityTypes() {
		if v == t {
			return true
		}
	}
	return false
}

// RelationshipType is the proximity class assigned to a co-occurring entity pair.
type RelationshipType string

const (
	RelationSameSentence     RelationshipType = "same-sentence"
	RelationAdjacentSentence RelationshipType = "adjacent-sentence"
	RelationNearProximity    RelationshipType = "near-proximity"
)

// ValidRelationshipTypes returns every recognized relationship class.
func ValidRelationshipTypes() []RelationshipType {
	return []RelationshipType{RelationSameSentence, RelationAdjacentSentence, RelationNearProximity}
}

// IsValidRelationshipType reports whether t is one of the recognized classes.
func IsValidRelationshipType(t RelationshipType) bool {
	for _, v := range ValidRelationshipTypes() {
		if v == t {
			return true
		}
	}
	return false
}

// Article is a single news article pending or having completed extraction.
type Article struct {
	ID          string    `json:"id"`
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	PublishedAt time.Time `json:"published_at"`
	Source      string    `json:"source"`
	Status      string    `json:"status"` // pending, completed, failed
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Chunk is a sentence-aligned slice of a cleaned article body.
type Chunk struct {
	Index     int    `json:"index"`
	Content   string `json:"content"`
	StartChar int    `json:"start_char"`
	EndChar   int    `json:"end_char"`
}

// EntityMention is one occurrence of a recognized entity, located in the
// article's original text after the Position Tracker runs.
type EntityMention struct {
	Surface          string     `json:"surface"`
	Normalized       string     `json:"normalized"`
	Type             EntityType `json:"type"`
	Confidence       float64    `json:"confidence"`
	Sources          []string   `json:"sources"`
	EventDescription string     `json:"event_description,omitempty"`
	SentenceIdx      int        `json:"sentence_idx"`
	ParagraphIdx     int        `json:"paragraph_idx"`
	CharStart        int        `json:"char_start"`
	CharEnd          int        `json:"char_end"`
	KBID             string     `json:"kb_id,omitempty"`
	KBLabel          string     `json:"kb_label,omitempty"`
	KBDescription    string     `json:"kb_description,omitempty"`
}

// Extraction is one extractor's raw output for an article, prior to validation.
type Extraction struct {
	Provider string          `json:"provider"`
	Model    string          `json:"model"`
	Summary  string          `json:"summary"`
	Entities []EntityMention `json:"entities"`
}

// ExtractionResult is the validated, merged output of the ensemble for one article.
type ExtractionResult struct {
	ArticleID       string          `json:"article_id"`
	Consensus       string          `json:"consensus_summary"`
	Entities        []EntityMention `json:"entities"`
	UsedArbitration bool            `json:"used_arbitration"`
	Degraded        bool            `json:"degraded"`
	CreatedAt       time.Time       `json:"created_at"`
}

// Fact ties a deduplicated entity to an article it was mentioned in.
type Fact struct {
	ID         string     `json:"id"`
	ArticleID  string     `json:"article_id"`
	Surface    string     `json:"surface"`
	Normalized string     `json:"normalized"`
	Type       EntityType `json:"type"`
	Confidence float64    `json:"confidence"`
	KBID       string     `json:"kb_id,omitempty"`
	KBLabel    string     `json:"kb_label,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// EntityRelationship is a weighted proximity edge between two normalized entities.
type EntityRelationship struct {
	ID         string           `json:"id"`
	ArticleID  string           `json:"article_id"`
	SubjectKey string           `json:"subject_key"`
	ObjectKey  string           `json:"object_key"`
	Type       RelationshipType `json:"type"`
	Weight     float64          `json:"weight"`
	NPMI       float64          `json:"npmi"`
	CreatedAt  time.Time        `json:"created_at"`
}

// CostRecord captures the priced cost of one extractor invocation.
type CostRecord struct {
	ID         string    `json:"id"`
	ArticleID  string    `json:"article_id"`
	Provider   string    `json:"provider"`
	Model      string    `json:"model"`
	InputToks  int64     `json:"input_tokens"`
	OutputToks int64     `json:"output_tokens"`
	CostUSD    float64   `json:"cost_usd"`
	CreatedAt  time.Time `json:"created_at"`
}

// KBCacheEntry is a cached knowledge-base lookup result, keyed by normalized
// surface form plus entity type.
type KBCacheEntry struct {
	Key         string    `json:"key"`
	KBID        string    `json:"kb_id"`
	Label       string    `json:"label"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// KBLink is the result of a successful knowledge-base enrichment lookup.
type KBLink struct {
	KBID        string            `json:"kb_id"`
	Label       string            `json:"label"`
	Description string            `json:"description"`
	Properties  map[string]string `json:"properties,omitempty"`
}
