package schema

// EssayChapterTable represents the 'essay.chapter' table
type EssayChapterTable struct {
	Table     string
	ID        string
	EssayID   string
	Title     string
	Position  string
	Chars     string
	Content   string
	CreatedAt string
	UpdatedAt string
}

// EssayChapter is the schema definition for essay.chapter
var EssayChapter = EssayChapterTable{
	Table:     "essay.chapter",
	ID:        "id",
	EssayID:   "essay_id",
	Title:     "title",
	Position:  "position",
	Chars:     "chars",
	Content:   "content",
	CreatedAt: "created_at",
	UpdatedAt: "updated_at",
}

// Columns returns all standard column names
func (t EssayChapterTable) Columns() []string {
	return []string{
		t.ID, t.EssayID, t.Title, t.Position, t.Chars, t.Content, t.CreatedAt, t.UpdatedAt,
	}
}
