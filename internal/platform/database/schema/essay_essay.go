package schema

// EssayEssayTable represents the 'essay.essay' table
type EssayEssayTable struct {
	Table                  string
	ID                     string
	UserID                 string
	Topic                  string
	PageCount              string
	ChapterCount           string
	Language               string
	Status                 string
	TaskID                 string
	FailureReason          string
	Introduction           string
	Conclusion             string
	References             string
	IntroductionCharsCount string
	ConclusionCharsCount   string
	ReferencesCharsCount   string
	CreatedAt              string
	UpdatedAt              string
}

// EssayEssay is the schema definition for essay.essay
var EssayEssay = EssayEssayTable{
	Table:                  "essay.essay",
	ID:                     "id",
	UserID:                 "user_id",
	Topic:                  "topic",
	PageCount:              "page_count",
	ChapterCount:           "chapter_count",
	Language:               "language",
	Status:                 "status",
	TaskID:                 "task_id",
	FailureReason:          "failure_reason",
	Introduction:           "introduction",
	Conclusion:             "conclusion",
	References:             `"references"`,
	IntroductionCharsCount: "introduction_chars_count",
	ConclusionCharsCount:   "conclusion_chars_count",
	ReferencesCharsCount:   "references_chars_count",
	CreatedAt:              "created_at",
	UpdatedAt:              "updated_at",
}

// Columns returns all standard column names
func (t EssayEssayTable) Columns() []string {
	return []string{
		t.ID, t.UserID, t.Topic, t.PageCount, t.ChapterCount, t.Language, t.Status, t.TaskID,
		t.FailureReason, t.Introduction, t.Conclusion, t.References,
		t.IntroductionCharsCount, t.ConclusionCharsCount, t.ReferencesCharsCount,
		t.CreatedAt, t.UpdatedAt,
	}
}
