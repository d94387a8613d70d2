package core

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// PreviewRowLimit caps the number of data rows returned by Preview.
const PreviewRowLimit = 10

// exportDateLayout renders timestamps as DD/MM/YYYY HH:mm:ss.
const exportDateLayout = "02/01/2006 15:04:05"

// ExportColumns are the header labels of an export file, in order.
var ExportColumns = []string{
	"STT",
	"Họ và Tên",
	"Email",
	"Số Điện Thoại",
	"Vai Trò",
	"Địa Chỉ",
	"Trạng Thái",
	"Phòng Ban ID",
	"Manager ID",
	"Ghi Chú",
	"Ngày Tạo",
	"Ngày Cập Nhật",
}

const (
	labelActive   = "Hoạt động"
	labelInactive = "Không hoạt động"
)

// ExportFilter selects which users are exported. Both criteria apply together.
type ExportFilter = UserFilter

// Exporter renders users from a UserStore as CSV.
type Exporter struct {
	store    UserStore
	location *time.Location
}

// NewExporter creates an exporter that formats dates in loc.
// A nil loc uses time.Local.
func NewExporter(store UserStore, loc *time.Location) *Exporter {
	if loc == nil {
		loc = time.Local
	}
	return &Exporter{store: store, location: loc}
}

// records queries the store and converts each user to export fields.
func (e *Exporter) records(ctx context.Context, filter ExportFilter) ([][]string, error) {
	users, err := e.store.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}

	rows := make([][]string, len(users))
	for i, u := range users {
		rows[i] = e.exportRow(i+1, u)
	}
	return rows, nil
}

func (e *Exporter) exportRow(seq int, u User) []string {
	state := labelInactive
	if u.IsActive {
		state = labelActive
	}
	return []string{
		strconv.Itoa(seq),
		u.FullName,
		u.Email,
		u.Phone,
		u.Role.DisplayName(),
		u.Address,
		state,
		u.DepartmentID,
		u.ManagerID,
		u.Notes,
		e.formatTime(u.CreatedAt),
		e.formatTime(u.UpdatedAt),
	}
}

func (e *Exporter) formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(e.location).Format(exportDateLayout)
}

// render writes BOM, header and rows, each line terminated by '\n'.
func render(rows [][]string) string {
	var b strings.Builder
	b.WriteString(BOM)
	b.WriteString(JoinLine(ExportColumns))
	b.WriteByte('\n')
	for _, r := range rows {
		b.WriteString(JoinLine(r))
		b.WriteByte('\n')
	}
	return b.String()
}

// Export renders every user matching filter, sorted by full name.
func (e *Exporter) Export(ctx context.Context, filter ExportFilter) (*ExportResult, error) {
	rows, err := e.records(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &ExportResult{Content: render(rows), Rows: len(rows)}, nil
}

// Preview returns the export header and its first PreviewRowLimit rows.
// TotalRows counts every rendered data row, not only the previewed ones.
func (e *Exporter) Preview(ctx context.Context, filter ExportFilter) (*ExportPreview, error) {
	rows, err := e.records(ctx, filter)
	if err != nil {
		return nil, err
	}

	head := rows
	if len(head) > PreviewRowLimit {
		head = head[:PreviewRowLimit]
	}

	header := make([]string, len(ExportColumns))
	copy(header, ExportColumns)

	p := &ExportPreview{
		Header:      header,
		Preview:     head,
		TotalRows:   len(rows),
		PreviewRows: len(head),
	}
	p.Filters.Role = filter.Role
	p.Filters.ActiveOnly = filter.ActiveOnly
	return p, nil
}

const fileTimestampLayout = "20060102_150405"

// ExportFileName returns the attachment name for an export made at now.
func ExportFileName(filter ExportFilter, now time.Time) string {
	ts := now.Format(fileTimestampLayout)
	switch {
	case filter.Role != nil:
		return fmt.Sprintf("users_%s_%s.csv", filter.Role.Slug(), ts)
	case filter.ActiveOnly:
		return "users_active_" + ts + ".csv"
	default:
		return "users_all_" + ts + ".csv"
	}
}
