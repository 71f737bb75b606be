package schema

// UserAccountTable represents the 'users.account' table
type UserAccountTable struct {
	Table        string
	ID           string
	TelegramID   string
	Username     string
	FirstName    string
	LastName     string
	LanguageCode string
	IsPremium    string
	CreatedAt    string
	LastLoginAt  string
}

// UserAccount is the schema definition for users.account
var UserAccount = UserAccountTable{
	Table:        "users.account",
	ID:           "id",
	TelegramID:   "telegramid",
	Username:     "username",
	FirstName:    "firstname",
	LastName:     "lastname",
	LanguageCode: "languagecode",
	IsPremium:    "ispremium",
	CreatedAt:    "createdat",
	LastLoginAt:  "lastloginat",
}

// Columns returns all standard column names
func (t UserAccountTable) Columns() []string {
	return []string{
		t.ID, t.TelegramID, t.Username, t.FirstName, t.LastName, t.LanguageCode, t.IsPremium, t.CreatedAt, t.LastLoginAt,
	}
}
