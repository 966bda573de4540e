package schema

// UserProfileTable represents the 'users.profile' table
type UserProfileTable struct {
	Table       string
	UserID      string
	Name        string
	Surname     string
	Patronymic  string
	PhoneNumber string
	University  string
	Faculty     string
	Course      string
	Group       string
	City        string
	CreatedAt   string
	UpdatedAt   string
}

// UserProfile is the schema definition for users.profile
var UserProfile = UserProfileTable{
	Table:       "users.profile",
	UserID:      "user_id",
	Name:        "name",
	Surname:     "surname",
	Patronymic:  "patronymic",
	PhoneNumber: "phone_number",
	University:  "university",
	Faculty:     "faculty",
	Course:      "course",
	Group:       "study_group",
	City:        "city",
	CreatedAt:   "created_at",
	UpdatedAt:   "updated_at",
}

// Columns returns all standard column names
func (t UserProfileTable) Columns() []string {
	return []string{
		t.UserID, t.Name, t.Surname, t.Patronymic, t.PhoneNumber, t.University,
		t.Faculty, t.Course, t.Group, t.City, t.CreatedAt, t.UpdatedAt,
	}
}
