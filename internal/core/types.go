package core

import (
	"context"
	"time"
)

// Canonical field identifiers that CSV headers are resolved to.
const (
	FieldFullName     = "fullName"
	FieldEmail        = "email"
	FieldPassword     = "password"
	FieldPhone        = "phone"
	FieldRole         = "role"
	FieldAddress      = "address"
	FieldIsActive     = "isActive"
	FieldDepartmentID = "departmentId"
	FieldManagerID    = "managerId"
	FieldNotes        = "notes"
)

// RequiredFields must all be bound by the header row before any data row is processed.
var RequiredFields = []string{FieldFullName, FieldEmail, FieldPassword, FieldPhone, FieldRole}

// User is the persisted user entity. Email is unique within the store.
type User struct {
	ID           string    `json:"id"`
	FullName     string    `json:"fullName"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Phone        string    `json:"phone"`
	Role         Role      `json:"role"`
	Address      string    `json:"address,omitempty"`
	IsActive     bool      `json:"isActive"`
	DepartmentID string    `json:"departmentId,omitempty"`
	ManagerID    string    `json:"managerId,omitempty"`
	Notes        string    `json:"notes,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// UserFilter narrows a store query. Nil/false fields do not filter.
type UserFilter struct {
	Role       *Role
	ActiveOnly bool
}

// UserStore is the persistence capability the importer and exporter need.
// Find returns users sorted by full name ascending.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	Insert(ctx context.Context, u *User) error
	ReplaceByEmail(ctx context.Context, email string, u *User) error
	Find(ctx context.Context, filter UserFilter) ([]User, error)
}

// UserRepository adds the CRUD and counting operations used by UserService.
type UserRepository interface {
	UserStore
	GetByID(ctx context.Context, id string) (*User, error)
	Update(ctx context.Context, u *User) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int64, error)
	CountByRole(ctx context.Context) (map[Role]int64, error)
	Ping(ctx context.Context) error
}

// ImportRecord maps canonical field name to the raw cell value of one row.
type ImportRecord map[string]string

// ImportError describes one rejected row.
type ImportError struct {
	Row     int          `json:"row"`
	RawData ImportRecord `json:"data"`
	Message string       `json:"error"`
}

// ImportOutcome summarizes one import call.
// Total always equals Success + Updated + Failed. Pending is non-zero only
// when the import was interrupted and counts rows that were never attempted.
type ImportOutcome struct {
	Total   int           `json:"total"`
	Success int           `json:"success"`
	Updated int           `json:"updated"`
	Failed  int           `json:"failed"`
	Pending int           `json:"pending,omitempty"`
	Errors  []ImportError `json:"errors"`
}

func newImportOutcome() *ImportOutcome {
	return &ImportOutcome{Errors: []ImportError{}}
}

func (o *ImportOutcome) fail(row int, rec ImportRecord, msg string) {
	o.Failed++
	o.Errors = append(o.Errors, ImportError{Row: row, RawData: rec, Message: msg})
}

// ValidationReport is the dry-run result of checking a file without importing it.
type ValidationReport struct {
	Valid     bool          `json:"valid"`
	TotalRows int           `json:"totalRows"`
	ValidRows int           `json:"validRows"`
	Errors    []ImportError `json:"errors"`
}

// ExportResult is rendered CSV text plus the number of data rows it holds.
type ExportResult struct {
	Content string
	Rows    int
}

// ExportPreview is the head of an export for display before download.
type ExportPreview struct {
	Header      []string   `json:"header"`
	Preview     [][]string `json:"preview"`
	TotalRows   int        `json:"totalRows"`
	PreviewRows int        `json:"previewRows"`
	Filters     struct {
		Role       *Role `json:"role"`
		ActiveOnly bool  `json:"activeOnly"`
	} `json:"filters"`
}

// UserStats holds user counts for the export dashboard.
type UserStats struct {
	Total       int64          `json:"total"`
	ByRole      map[Role]int64 `json:"byRole"`
	GeneratedAt time.Time      `json:"exportDate"`
}
