package core

// validation.go converts one tokenized data row into a ValidatedUser.
//
// Every rule is evaluated so a rejected row reports all of its problems
// at once:
//  1. Required fields (full name, email, password, phone, role) are non-empty
//  2. A non-empty email has the shape local@domain.tld
//  3. A non-empty role is a known code or localized label
//
// Optional columns are mapped as-is; isActive goes through a tri-state
// word list so unknown words leave the store default in place.

import (
	"fmt"
	"regexp"
	"strings"
)

// emailPattern rejects Unicode space separators and the BOM as well as
// ASCII whitespace; Go's \s alone covers only the latter.
var emailPattern = regexp.MustCompile(`^[^\p{Z}\s\x{FEFF}@]+@[^\p{Z}\s\x{FEFF}@]+\.[^\p{Z}\s\x{FEFF}@]+$`)

var requiredMessages = []struct {
	field string
	msg   string
}{
	{FieldFullName, "full name is required"},
	{FieldEmail, "email is required"},
	{FieldPassword, "password is required"},
	{FieldPhone, "phone is required"},
	{FieldRole, "role is required"},
}

var (
	truthyWords = []string{"true", "1", "yes", "y", "có", "hoạt động", "active"}
	falsyWords  = []string{"false", "0", "no", "n", "không", "không hoạt động", "inactive"}
)

// ValidatedUser is a row that passed validation. Role holds the raw cell
// text until ToUser maps it.
type ValidatedUser struct {
	FullName     string
	Email        string
	Password     string
	Phone        string
	Role         string
	Address      string
	IsActive     *bool
	DepartmentID string
	ManagerID    string
	Notes        string
}

// ToUser builds the persisted form. An unset isActive becomes true.
func (v ValidatedUser) ToUser(passwordHash string) *User {
	active := true
	if v.IsActive != nil {
		active = *v.IsActive
	}
	return &User{
		FullName:     v.FullName,
		Email:        v.Email,
		PasswordHash: passwordHash,
		Phone:        v.Phone,
		Role:         MapRole(v.Role),
		Address:      v.Address,
		IsActive:     active,
		DepartmentID: v.DepartmentID,
		ManagerID:    v.ManagerID,
		Notes:        v.Notes,
	}
}

// RowError is a rejected row with all of its validation messages.
type RowError struct {
	Row      int
	Messages []string
}

func (e *RowError) Error() string {
	return fmt.Sprintf("Row %d: %s", e.Row, strings.Join(e.Messages, ", "))
}

// RowValidator validates data rows against a resolved header.
type RowValidator struct {
	headers HeaderMap
}

// NewRowValidator creates a validator for the given header map.
func NewRowValidator(headers HeaderMap) *RowValidator {
	return &RowValidator{headers: headers}
}

// Record extracts the canonical fields of row as raw strings.
func (v *RowValidator) Record(row []string) ImportRecord {
	rec := make(ImportRecord, len(v.headers))
	for field := range v.headers {
		rec[field] = v.headers.Value(row, field)
	}
	return rec
}

// Validate checks row (1-based rowNum, header is row 1) and returns either
// the mapped user or a *RowError listing every failed rule.
func (v *RowValidator) Validate(row []string, rowNum int) (ValidatedUser, *RowError) {
	get := func(field string) string { return v.headers.Value(row, field) }

	var msgs []string
	for _, rm := range requiredMessages {
		if get(rm.field) == "" {
			msgs = append(msgs, rm.msg)
		}
	}

	email := get(FieldEmail)
	if email != "" && !emailPattern.MatchString(email) {
		msgs = append(msgs, "email has an invalid format")
	}

	role := get(FieldRole)
	if role != "" && !IsValidRole(role) {
		msgs = append(msgs, fmt.Sprintf("role %q is invalid, valid roles: %s", role, strings.Join(RoleCodes(), ", ")))
	}

	if len(msgs) > 0 {
		return ValidatedUser{}, &RowError{Row: rowNum, Messages: msgs}
	}

	return ValidatedUser{
		FullName:     get(FieldFullName),
		Email:        email,
		Password:     get(FieldPassword),
		Phone:        get(FieldPhone),
		Role:         role,
		Address:      get(FieldAddress),
		IsActive:     ParseActive(get(FieldIsActive)),
		DepartmentID: get(FieldDepartmentID),
		ManagerID:    get(FieldManagerID),
		Notes:        get(FieldNotes),
	}, nil
}

// ParseActive maps a status word to true/false, or nil when the word is
// empty or not recognized.
func ParseActive(s string) *bool {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return nil
	}
	for _, w := range truthyWords {
		if s == w {
			t := true
			return &t
		}
	}
	for _, w := range falsyWords {
		if s == w {
			f := false
			return &f
		}
	}
	return nil
}
