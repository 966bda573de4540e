package schema

// EssayMetadataTable represents the 'essay.metadata' table
type EssayMetadataTable struct {
	Table       string
	EssayID     string
	University  string
	Faculty     string
	Subject     string
	Course      string
	PerformedBy string
	CheckedBy   string
	Group       string
	City        string
	Year        string
}

// EssayMetadata is the schema definition for essay.metadata
var EssayMetadata = EssayMetadataTable{
	Table:       "essay.metadata",
	EssayID:     "essay_id",
	University:  "university",
	Faculty:     "faculty",
	Subject:     "subject",
	Course:      "course",
	PerformedBy: "performed_by",
	CheckedBy:   "checked_by",
	Group:       "study_group",
	City:        "city",
	Year:        "year",
}

// Columns returns all standard column names
func (t EssayMetadataTable) Columns() []string {
	return []string{
		t.EssayID, t.University, t.Faculty, t.Subject, t.Course,
		t.PerformedBy, t.CheckedBy, t.Group, t.City, t.Year,
	}
}
