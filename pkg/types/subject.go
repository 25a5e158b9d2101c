package types

import "fmt"

// Subject identifies a tagged entity: a type discriminator plus an id. It is
// a polymorphic foreign key; the subject row itself lives outside this
// module.
type Subject struct {
	Type string `json:"type"`
	ID   int64  `json:"id"`
}

func (s Subject) String() string {
	return fmt.Sprintf("%s#%d", s.Type, s.ID)
}

// Validate rejects subjects without a type or a positive id.
func (s Subject) Validate() error {
	if s.Type == "" {
		return Invalid("subject type", "must not be empty")
	}
	if s.ID <= 0 {
		return Invalidf("subject id", "must be positive, got %d", s.ID)
	}
	return nil
}

// Association links one subject to one category. There is no uniqueness on
// the (category, subject) pair.
type Association struct {
	CategoryID int64   `json:"category_id"`
	Subject    Subject `json:"subject"`
}

// SubjectKind maps a subject type discriminator to the table holding its
// rows.
type SubjectKind struct {
	Name  string `json:"name"`
	Table string `json:"table"`
}

// Entry is one row of an entries query: the subject's columns plus the
// category id that matched. A subject tagged with several matching
// categories appears once per association row.
type Entry struct {
	SubjectID  int64          `json:"subject_id"`
	CategoryID int64          `json:"category_id"`
	Columns    map[string]any `json:"columns"`
}
