package echoapi

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/escuela/core/attendance"
)

func TestAttendanceAPI(t *testing.T) {
	w := setup(t)

	path := "/v1/attendance/" + w.c1.ID + "/2026-10-19"
	absent := marchallObj(t, attendance.SaveInput{Marks: []attendance.Mark{{StudentID: w.st1.ID, Status: "A", Note: "malade"}}})

	tests := []httpTest{
		{name: "auth required", path: path, wantCode: http.StatusUnauthorized},
		{name: "invalid date", path: "/v1/attendance/" + w.c1.ID + "/19-10-2026", token: w.token(t, w.teacher), wantCode: http.StatusBadRequest},
		{name: "other school", path: path, token: w.token(t, w.director2), wantCode: http.StatusNotFound},
		{
			name: "guardian cannot take attendance", method: http.MethodPut, path: path, token: w.token(t, w.guardian),
			body: absent, wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "student not enrolled", method: http.MethodPut, path: path, token: w.token(t, w.teacher),
			body:     marchallObj(t, attendance.SaveInput{Marks: []attendance.Mark{{StudentID: w.st2.ID, Status: "P"}}}),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "invalid status", method: http.MethodPut, path: path, token: w.token(t, w.teacher),
			body: []byte(`{"marks": [{"student_id": "` + w.st1.ID + `", "status": "X"}]}`), wantCode: http.StatusBadRequest,
		},
		{name: "no marks", method: http.MethodPut, path: path, token: w.token(t, w.teacher), body: []byte(`{"marks": []}`), wantCode: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, w.do(tt))
		})
	}

	t.Run("save & read", func(t *testing.T) {
		rec := w.do(httpTest{method: http.MethodPut, path: path, token: w.token(t, w.teacher), body: absent})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var roster attendance.Roster
		unmarchall(t, rec, &roster)
		assert.True(t, roster.CanEdit)
		assert.Equal(t, attendance.Summary{Absent: 1}, roster.Summary)
		require.Len(t, roster.Entries, 1)
		require.NotNil(t, roster.Entries[0].Record)
		assert.Equal(t, w.teacher.ID, roster.Entries[0].Record.TakenBy)

		rec = w.do(httpTest{path: path, token: w.token(t, w.guardian)})
		require.Equal(t, http.StatusOK, rec.Code)
		unmarchall(t, rec, &roster)
		assert.False(t, roster.CanEdit)
		assert.Equal(t, "2026-10-19", roster.Date)
		require.Len(t, roster.Entries, 1)
		assert.Equal(t, w.st1.ID, roster.Entries[0].Student.ID)
	})

	t.Run("clear", func(t *testing.T) {
		clear := marchallObj(t, attendance.SaveInput{Marks: []attendance.Mark{{StudentID: w.st1.ID}}})
		rec := w.do(httpTest{method: http.MethodPut, path: "/v1/attendance/" + w.c1.ID + "/2026-10-20", token: w.token(t, w.director), body: clear})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var roster attendance.Roster
		unmarchall(t, rec, &roster)
		assert.Equal(t, attendance.Summary{Unmarked: 1}, roster.Summary)
	})
}

func TestAttendanceAPI_reports(t *testing.T) {
	w := setup(t)

	for date, status := range map[string]string{"2026-10-19": "A", "2026-10-20": "R", "2026-11-02": "P"} {
		body := marchallObj(t, attendance.SaveInput{Marks: []attendance.Mark{{StudentID: w.st1.ID, Status: status}}})
		rec := w.do(httpTest{method: http.MethodPut, path: "/v1/attendance/" + w.c1.ID + "/" + date, token: w.token(t, w.teacher), body: body})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	t.Run("classroom", func(t *testing.T) {
		base := "/v1/reports/attendance/classrooms/" + w.c1.ID

		rec := w.do(httpTest{path: base + "?from=2026-10-01&to=2026-10-31", token: w.token(t, w.guardian)})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var report attendance.DailyReport
		unmarchall(t, rec, &report)
		assert.Equal(t, attendance.Summary{Absent: 1, Tardy: 1}, report.Total)
		require.Len(t, report.Days, 2)
		assert.Equal(t, "2026-10-19", report.Days[0].Date)

		tt := httpTest{path: base + "?from=2026-10-31&to=2026-10-01", token: w.token(t, w.teacher), wantCode: http.StatusBadRequest}
		checkCodeAndData(t, tt, w.do(tt))

		tt = httpTest{path: "/v1/reports/attendance/classrooms/" + w.c2.ID + "?from=2026-10-01&to=2026-10-31", token: w.token(t, w.teacher), wantCode: http.StatusNotFound}
		checkCodeAndData(t, tt, w.do(tt))
	})

	t.Run("student", func(t *testing.T) {
		rec := w.do(httpTest{path: "/v1/reports/attendance/students/" + w.st1.ID + "?month=2026-11", token: w.token(t, w.guardian)})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var report attendance.MonthlyReport
		unmarchall(t, rec, &report)
		assert.Equal(t, attendance.Summary{Present: 1}, report.Summary)
		assert.Len(t, report.Records, 1)

		tests := []httpTest{
			{name: "invalid month", path: "/v1/reports/attendance/students/" + w.st1.ID + "?month=11-2026", token: w.token(t, w.guardian), wantCode: http.StatusBadRequest},
			{name: "not a ward", path: "/v1/reports/attendance/students/" + w.st2.ID + "?month=2026-11", token: w.token(t, w.guardian), wantCode: http.StatusNotFound},
			{name: "other school", path: "/v1/reports/attendance/students/" + w.st1.ID + "?month=2026-11", token: w.token(t, w.director2), wantCode: http.StatusNotFound},
		}
		for _, tt := range tests {
			checkCodeAndData(t, tt, w.do(tt))
		}
	})
}
