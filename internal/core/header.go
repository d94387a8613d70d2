package core

import (
	"errors"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// ErrMissingColumns is matched by errors.Is for any *MissingColumnsError.
var ErrMissingColumns = errors.New("missing required columns")

// MissingColumnsError names every required field the header row did not bind.
type MissingColumnsError struct {
	Fields []string
}

func (e *MissingColumnsError) Error() string {
	return ErrMissingColumns.Error() + ": " + strings.Join(e.Fields, ", ")
}

func (e *MissingColumnsError) Is(target error) bool {
	return target == ErrMissingColumns
}

// HeaderMap binds canonical field names to zero-based column positions.
type HeaderMap map[string]int

// Value returns the trimmed cell for field, or "" when the field is unbound
// or the row is too short.
func (h HeaderMap) Value(row []string, field string) string {
	pos, ok := h[field]
	if !ok || pos >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[pos])
}

// FieldAliases lists the header spellings accepted for one canonical field.
type FieldAliases struct {
	Field   string
	Aliases []string
}

// AliasTable is consulted in order when resolving a header row.
type AliasTable []FieldAliases

// DefaultAliases returns the English and Vietnamese header spellings.
func DefaultAliases() AliasTable {
	return AliasTable{
		{FieldFullName, []string{"fullname", "full_name", "họ và tên", "tên", "name", "fullName"}},
		{FieldEmail, []string{"email", "e-mail", "email address"}},
		{FieldPassword, []string{"password", "mật khẩu", "pass"}},
		{FieldPhone, []string{"phone", "số điện thoại", "điện thoại", "sdt", "phone number"}},
		{FieldRole, []string{"role", "vai trò", "chức vụ", "position"}},
		{FieldAddress, []string{"address", "địa chỉ", "addr"}},
		{FieldIsActive, []string{"isactive", "is_active", "trạng thái", "active", "status"}},
		{FieldDepartmentID, []string{"departmentid", "department_id", "phòng ban", "department"}},
		{FieldManagerID, []string{"managerid", "manager_id", "quản lý", "manager"}},
		{FieldNotes, []string{"notes", "ghi chú", "note", "remark"}},
	}
}

// normalizeHeader lower-cases s, composes it to NFC and drops all whitespace.
func normalizeHeader(s string) string {
	s = norm.NFC.String(strings.ToLower(s))
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// ResolveHeaders binds each field in aliases to the first header cell that
// contains any of its aliases after normalization. Matching is substring
// containment, so a cell may bind more than one field.
func ResolveHeaders(headers []string, aliases AliasTable) (HeaderMap, error) {
	normalized := make([]string, len(headers))
	for i, h := range headers {
		normalized[i] = normalizeHeader(h)
	}

	hm := make(HeaderMap)
	for _, fa := range aliases {
		names := make([]string, len(fa.Aliases))
		for i, a := range fa.Aliases {
			names[i] = normalizeHeader(a)
		}
	headers:
		for i, h := range normalized {
			for _, name := range names {
				if name != "" && strings.Contains(h, name) {
					hm[fa.Field] = i
					break headers
				}
			}
		}
	}

	var missing []string
	for _, f := range RequiredFields {
		if _, ok := hm[f]; !ok {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingColumnsError{Fields: missing}
	}

	return hm, nil
}
