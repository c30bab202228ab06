package store

import "time"

// GORM models used for persistence.
type BookModel struct {
	ID          int64     `gorm:"primaryKey;autoIncrement"`
	Title       string    `gorm:"size:200;not null"`
	Author      string    `gorm:"size:100;not null"`
	Year        int       `gorm:"not null"`
	Category    string    `gorm:"size:50;not null;index"`
	IsAvailable bool      `gorm:"not null;index"`
	CreatedAt   time.Time `gorm:"not null"`
}

func (BookModel) TableName() string { return "books" }

type UserModel struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	Name      string    `gorm:"size:100;not null"`
	Email     string    `gorm:"size:100;uniqueIndex;not null"`
	Phone     string    `gorm:"size:20;not null"`
	CreatedAt time.Time `gorm:"not null"`
}

func (UserModel) TableName() string { return "users" }

type LoanModel struct {
	ID         int64     `gorm:"primaryKey;autoIncrement"`
	UserID     int64     `gorm:"not null;index"`
	User       UserModel `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;"`
	BookID     int64     `gorm:"not null;index"`
	Book       BookModel `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;"`
	LoanDate   time.Time `gorm:"not null;index"`
	DueDate    time.Time `gorm:"not null"`
	ReturnDate *time.Time
	IsReturned bool `gorm:"not null;index"`
}

func (LoanModel) TableName() string { return "loans" }

// TableNames lists the schema tables in dependency order (referenced first).
var TableNames = []string{"users", "books", "loans"}

// Models lists the schema models in dependency order.
func Models() []any {
	return []any{&UserModel{}, &BookModel{}, &LoanModel{}}
}
