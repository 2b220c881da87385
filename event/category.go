// Package event builds the per-file event table: one column per tracked
// device event, outer-joined on the minute the event was logged.
package event

import "github.com/samber/lo"

// Source columns of the user event log.
const (
	SourceCode   = "Type(cod)"
	SourceText   = "Type"
	SourceSample = "Sample"
)

// Event columns used to find session boundaries.
const (
	ColumnPatientID = "PT_ID"
	ColumnStart     = "HD_start"
	ColumnEnd       = "HD_end"
)

// Marker replaces an empty sample so that value-less events such as
// "treatment started" still leave a non-null cell.
const Marker = "O"

// Category is one tracked event: rows whose code and text both match are
// projected into Column.
type Category struct {
	Code   string
	Text   string
	Column string
}

// Categories lists the tracked events in output column order. Codes repeat
// across categories; the text disambiguates them.
var Categories = []Category{
	{Code: "416", Text: "환자 인식 번호:", Column: ColumnPatientID},
	{Code: "550", Text: "요법 종류:", Column: "CRRT_type"},
	{Code: "17", Text: "혈액", Column: "BFR"},
	{Code: "22", Text: "사전 혈액 펌프", Column: "Pre"},
	{Code: "20", Text: "대체용액", Column: "Replace"},
	{Code: "21", Text: "투석액", Column: "Dialysate"},
	{Code: "24", Text: "환자 수분 제거", Column: "UF"},
	{Code: "16", Text: "치료가 시작되었습니다(실행 모드).", Column: ColumnStart},
	{Code: "20", Text: "재시작을 선택했습니다.", Column: "HD_restart"},
	{Code: "279", Text: "보고: 필터 응고가 진행중", Column: "Warning_coag"},
	{Code: "5", Text: "경고: 필터 응고됨", Column: "Filter_coag"},
	{Code: "19", Text: "중지를 선택했습니다.", Column: "HD_suspend"},
	{Code: "21", Text: "치료 종료를 선택했습니다.", Column: ColumnEnd},
}

// Columns returns the event value columns in output order.
func Columns() []string {
	return lo.Map(Categories, func(c Category, _ int) string { return c.Column })
}
