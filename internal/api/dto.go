package api

import (
	"time"

	"github.com/edulytics/edulytics-client/internal/credential"
)

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is the backend's answer to a login attempt. The backend
// reports some failures over HTTP 200 with no access token, so callers
// must treat a missing AccessToken as a failed login regardless of
// status.
type LoginResponse struct {
	AccessToken string                 `json:"access_token"`
	User        credential.UserProfile `json:"user"`
	Detail      string                 `json:"detail"`
}

// FilterOption is one selectable value in a dashboard filter listing.
// Filter listings are the reference data the response cache exists for.
type FilterOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Course is a row in the paginated course listing.
type Course struct {
	ID         int64   `json:"id"`
	Code       string  `json:"code"`
	Title      string  `json:"title"`
	Campus     string  `json:"campus"`
	Department string  `json:"department"`
	Term       string  `json:"term"`
	Instructor string  `json:"instructor"`
	Enrollment int     `json:"enrollment"`
	PassRate   float64 `json:"pass_rate"`
}

// PaginatedCourseList is the standard paginated envelope for course
// queries.
type PaginatedCourseList struct {
	Count    int      `json:"count"`
	Page     int      `json:"page"`
	PageSize int      `json:"page_size"`
	Results  []Course `json:"results"`
}

// MetricPoint is one labelled value in a dashboard time series or
// breakdown.
type MetricPoint struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// DashboardSummary is the aggregate payload behind each role-specific
// dashboard view.
type DashboardSummary struct {
	GeneratedAt     time.Time     `json:"generated_at"`
	StudentCount    int           `json:"student_count"`
	CourseCount     int           `json:"course_count"`
	AverageGrade    float64       `json:"average_grade"`
	AttendanceRate  float64       `json:"attendance_rate"`
	EnrollmentTrend []MetricPoint `json:"enrollment_trend"`
	GradeBreakdown  []MetricPoint `json:"grade_breakdown"`
}

// Payload is a raw download: the bytes of a binary response plus the
// metadata a caller needs to save or display it.
type Payload struct {
	Data        []byte
	ContentType string
	Filename    string
}
