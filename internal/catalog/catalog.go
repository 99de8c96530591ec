// Package catalog loads the static subject and topic reference data that
// roadmaps are built from.
package catalog

import (
	_ "embed"
	"sort"
	"strings"

	"coachapp/internal/models"
	contextutils "coachapp/internal/utils"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

//go:embed schema.json
var catalogSchema string

// Catalog is the parsed reference data
type Catalog struct {
	Subjects []SubjectEntry `yaml:"subjects"`
}

// SubjectEntry is a subject together with its topics
type SubjectEntry struct {
	ID                string               `yaml:"id"`
	Name              string               `yaml:"name"`
	ExamApplicability models.Applicability `yaml:"exam_applicability"`
	Description       string               `yaml:"description"`
	Topics            []TopicEntry         `yaml:"topics"`
}

// TopicEntry is one topic as written in the catalog file
type TopicEntry struct {
	ID             string   `yaml:"id"`
	Name           string   `yaml:"name"`
	Chapter        string   `yaml:"chapter"`
	Difficulty     int      `yaml:"difficulty"`
	Importance     int      `yaml:"importance"`
	EstimatedHours float64  `yaml:"estimated_hours"`
	Prerequisites  []string `yaml:"prerequisites"`
}

// Default parses the catalog compiled into the binary
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Parse validates raw YAML against the catalog schema and checks references
func Parse(data []byte) (*Catalog, error) {
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrCatalogInvalid, "failed to parse catalog yaml: %v", err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(catalogSchema),
		gojsonschema.NewGoLoader(doc),
	)
	if err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrCatalogInvalid, "schema validation failed: %v", err)
	}
	if !result.Valid() {
		var messages []string
		for _, e := range result.Errors() {
			messages = append(messages, e.String())
		}
		return nil, contextutils.WrapErrorf(contextutils.ErrCatalogInvalid, "catalog failed schema validation: %s", strings.Join(messages, "; "))
	}

	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrCatalogInvalid, "failed to decode catalog: %v", err)
	}
	if err := c.checkReferences(); err != nil {
		return nil, err
	}
	return &c, nil
}

// checkReferences enforces unique ids, subject-prefixed topic ids, and
// prerequisites that point at known topics.
func (c *Catalog) checkReferences() error {
	subjects := make(map[string]bool)
	topics := make(map[string]bool)
	for _, s := range c.Subjects {
		if subjects[s.ID] {
			return contextutils.WrapErrorf(contextutils.ErrCatalogInvalid, "duplicate subject id %s", s.ID)
		}
		subjects[s.ID] = true
		for _, t := range s.Topics {
			if topics[t.ID] {
				return contextutils.WrapErrorf(contextutils.ErrCatalogInvalid, "duplicate topic id %s", t.ID)
			}
			if !strings.HasPrefix(t.ID, s.ID+"_") {
				return contextutils.WrapErrorf(contextutils.ErrCatalogInvalid, "topic %s must be prefixed with subject id %s", t.ID, s.ID)
			}
			topics[t.ID] = true
		}
	}
	for _, s := range c.Subjects {
		for _, t := range s.Topics {
			for _, pre := range t.Prerequisites {
				if !topics[pre] {
					return contextutils.WrapErrorf(contextutils.ErrCatalogInvalid, "topic %s has unknown prerequisite %s", t.ID, pre)
				}
			}
		}
	}
	return nil
}

// AllSubjects returns every subject in file order
func (c *Catalog) AllSubjects() []models.Subject {
	out := make([]models.Subject, 0, len(c.Subjects))
	for _, s := range c.Subjects {
		out = append(out, s.model())
	}
	return out
}

// SubjectsFor returns the subjects studied for a track
func (c *Catalog) SubjectsFor(track models.ExamTrack) []models.Subject {
	var out []models.Subject
	for _, s := range c.Subjects {
		if s.ExamApplicability.AppliesTo(track) {
			out = append(out, s.model())
		}
	}
	return out
}

// AllTopics returns every topic sorted by id
func (c *Catalog) AllTopics() []models.Topic {
	var out []models.Topic
	for _, s := range c.Subjects {
		for _, t := range s.Topics {
			out = append(out, t.model(s.ID))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// TopicCount is the number of topics across all subjects
func (c *Catalog) TopicCount() int {
	n := 0
	for _, s := range c.Subjects {
		n += len(s.Topics)
	}
	return n
}

func (s SubjectEntry) model() models.Subject {
	return models.Subject{
		ID:                s.ID,
		Name:              s.Name,
		ExamApplicability: s.ExamApplicability,
		Description:       s.Description,
	}
}

func (t TopicEntry) model(subjectID string) models.Topic {
	prereqs := t.Prerequisites
	if prereqs == nil {
		prereqs = []string{}
	}
	return models.Topic{
		ID:             t.ID,
		SubjectID:      subjectID,
		Name:           t.Name,
		Chapter:        t.Chapter,
		Difficulty:     t.Difficulty,
		Importance:     t.Importance,
		EstimatedHours: t.EstimatedHours,
		Prerequisites:  prereqs,
	}
}
