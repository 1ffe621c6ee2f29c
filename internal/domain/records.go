package domain

// ChatRecord is the persisted shape of a Chat in the chat store.
//
// Members and Messages are encoded text columns; the store knows nothing of
// their list semantics. Revision is bumped on every successful update and is
// used to detect concurrent read-modify-write cycles.
type ChatRecord struct {
	ID       int64  `gorm:"primaryKey;autoIncrement"`
	Members  string `gorm:"column:members;type:text;not null"`
	Messages string `gorm:"column:messages;type:text;not null;default:'[]'"`
	Revision int64  `gorm:"column:revision;not null;default:0"`
}

// TableName returns the database table name for ChatRecord.
func (ChatRecord) TableName() string { return "chats" }

// ClassRecord is the persisted shape of an AvailableClass in the gym store.
type ClassRecord struct {
	ID             int64  `gorm:"primaryKey;autoIncrement"`
	TutorID        int64  `gorm:"column:tutor_id;not null;index"`
	AppliedMembers string `gorm:"column:applied_members;type:text;not null;default:'[]'"`
	Title          string `gorm:"column:title;type:text;not null"`
	Description    string `gorm:"column:description;type:text"`
	StartDate      string `gorm:"column:start_date;type:text;not null"`
	Revision       int64  `gorm:"column:revision;not null;default:0"`
}

// TableName returns the database table name for ClassRecord.
func (ClassRecord) TableName() string { return "classes" }
