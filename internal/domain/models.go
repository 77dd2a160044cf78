// Package domain defines the persistence models for accounts, books,
// conversations, lawyer directory records, and KYC submissions. These types
// are mapped with GORM and form the core data layer of the admin backend.
//
// Accounts, books, conversations, and turns live in the primary database.
// Lawyer and KYCSubmission rows live in a separate directory database owned
// by an external intake system; this service reads, updates, and deletes
// them but never creates them.
package domain

import (
	"time"
)

// Role values for conversation turns.
const (
	RoleUser = "user"
	RoleBot  = "bot"
)

// KYC submission statuses. Transitions are one-directional: a pending
// submission becomes accepted or rejected and never returns to pending.
const (
	KYCStatusPending  = "pending"
	KYCStatusAccepted = "accepted"
	KYCStatusRejected = "rejected"
)

// Account represents an application user.
//
// Username and email are stored lowercased so the unique indexes enforce
// case-insensitive uniqueness. PasswordHash is never serialized.
type Account struct {
	ID           string    `json:"id"            gorm:"type:char(36);primaryKey"`
	FullName     string    `json:"fullName"      gorm:"type:varchar(255);not null"`
	Username     string    `json:"username"      gorm:"type:varchar(64);not null;uniqueIndex:ux_accounts_username"`
	Email        string    `json:"email"         gorm:"type:varchar(255);not null;uniqueIndex:ux_accounts_email"`
	PasswordHash string    `json:"-"             gorm:"type:varchar(255);not null"`
	IsAdmin      bool      `json:"isAdmin"       gorm:"not null;default:false"`
	PhotoName    string    `json:"-"             gorm:"type:varchar(255)"`
	PhotoURL     string    `json:"photoUrl"      gorm:"type:varchar(512)"`
	Phone        string    `json:"phone"         gorm:"type:varchar(64)"`
	Address      string    `json:"address"       gorm:"type:varchar(512)"`
	CreatedAt    time.Time `json:"createdAt"`
}

// TableName returns the database table name for Account.
func (Account) TableName() string { return "accounts" }

// Book represents a catalog record with an attached PDF and optional poster.
// The *Name fields hold on-disk file names inside the upload directory; the
// *URL fields are the public links derived from the configured base URL.
type Book struct {
	ID          string    `json:"id"          gorm:"type:char(36);primaryKey"`
	Title       string    `json:"title"       gorm:"type:varchar(255);not null"`
	Author      string    `json:"author"      gorm:"type:varchar(255)"`
	Description string    `json:"description" gorm:"type:text"`
	PDFName     string    `json:"-"           gorm:"type:varchar(255)"`
	PDFURL      string    `json:"pdfUrl"      gorm:"type:varchar(512)"`
	PosterName  string    `json:"-"           gorm:"type:varchar(255)"`
	PosterURL   string    `json:"posterUrl"   gorm:"type:varchar(512)"`
	CreatedAt   time.Time `json:"createdAt"`
}

// TableName returns the database table name for Book.
func (Book) TableName() string { return "books" }

// Conversation represents a chat thread owned by an account. UpdatedAt is
// refreshed on every save so listings can order by recent activity.
type Conversation struct {
	ID        string    `json:"id"        gorm:"type:char(36);primaryKey"`
	AccountID string    `json:"accountId" gorm:"type:char(36);not null;index:idx_account_conversations"`
	Title     string    `json:"title"     gorm:"type:varchar(255);not null;default:'New chat'"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// Turns is the ordered message list; populated on single-conversation
	// reads, empty on listings.
	Turns []Turn `json:"turns" gorm:"foreignKey:ConversationID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Conversation.
func (Conversation) TableName() string { return "conversations" }

// Turn is a single utterance within a conversation, authored either by the
// "user" or the "bot". Turns are append-only; only their text is editable.
type Turn struct {
	ID             string    `json:"id"             gorm:"type:char(36);primaryKey"`
	ConversationID string    `json:"conversationId" gorm:"type:char(36);not null;index:idx_conversation_turns,priority:1"`
	Role           string    `json:"role"           gorm:"type:varchar(16);not null;check:role IN ('user','bot')"`
	Text           string    `json:"text"           gorm:"type:text;not null"`
	CreatedAt      time.Time `json:"createdAt"      gorm:"index:idx_conversation_turns,priority:2"`
}

// TableName returns the database table name for Turn.
func (Turn) TableName() string { return "turns" }

// Lawyer is an externally-sourced directory record. The schema mirrors what
// the intake system writes; fields this service never populates are plain
// optional columns. PasswordHash exists in the external data and must never
// be serialized.
type Lawyer struct {
	ID              string    `json:"id"              gorm:"type:char(36);primaryKey"`
	Name            string    `json:"name"            gorm:"type:varchar(255)"`
	Email           string    `json:"email"           gorm:"type:varchar(255);index"`
	PasswordHash    string    `json:"-"               gorm:"column:password;type:varchar(255)"`
	Phone           string    `json:"phone"           gorm:"type:varchar(64)"`
	Bio             string    `json:"bio"             gorm:"type:text"`
	PracticeAreas   []string  `json:"practiceAreas"   gorm:"serializer:json;type:text"`
	ExperienceYears int       `json:"experienceYears" gorm:"index"`
	OfficeAddress   string    `json:"officeAddress"   gorm:"type:varchar(512)"`
	Languages       []string  `json:"languages"       gorm:"serializer:json;type:text"`
	Role            string    `json:"role"            gorm:"type:varchar(64);index"`
	CreatedAt       time.Time `json:"createdAt"`
}

// TableName returns the database table name for Lawyer.
func (Lawyer) TableName() string { return "lawyers" }

// KYCDocument is an embedded reference to an uploaded verification document.
type KYCDocument struct {
	URL        string     `json:"url"`
	FileName   string     `json:"fileName"`
	UploadedAt *time.Time `json:"uploadedAt,omitempty"`
}

// KYCSubmission is a lawyer's identity/license verification request. Records
// are created by the external intake system; this service only lists them
// and applies accept/reject transitions.
type KYCSubmission struct {
	ID              string      `json:"id"              gorm:"type:char(36);primaryKey"`
	LawyerID        string      `json:"lawyerId"        gorm:"type:char(36);not null;index"`
	IDDocument      KYCDocument `json:"idDocument"      gorm:"embedded;embeddedPrefix:id_doc_"`
	LicenseDocument KYCDocument `json:"licenseDocument" gorm:"embedded;embeddedPrefix:license_doc_"`
	Status          string      `json:"status"          gorm:"type:varchar(16);not null;default:'pending';index;check:status IN ('pending','accepted','rejected')"`
	RejectionReason string      `json:"rejectionReason" gorm:"type:text"`
	SubmittedAt     time.Time   `json:"submittedAt"     gorm:"index"`
	CreatedAt       time.Time   `json:"createdAt"`
	UpdatedAt       time.Time   `json:"updatedAt"`
}

// TableName returns the database table name for KYCSubmission.
func (KYCSubmission) TableName() string { return "lawyer_kycs" }
