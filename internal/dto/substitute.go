package dto

// RankedSubstitute is a free, qualified lecturer ordered by suitability.
type RankedSubstitute struct {
	FacultyID       string  `json:"faculty_id"`
	Score           float64 `json:"score"`
	Workload        float64 `json:"workload"`
	DepartmentMatch bool    `json:"department_match"`
}

// RejectedSubstitute is a qualified lecturer who cannot take the session.
type RejectedSubstitute struct {
	FacultyID               string   `json:"faculty_id"`
	ViolatedHardConstraints []string `json:"violated_hard_constraints"`
}

// SubstituteResponse is the recommendation for one absence.
type SubstituteResponse struct {
	Success              bool                 `json:"success"`
	Outcome              string               `json:"outcome"`
	AbsenceID            string               `json:"absence_id"`
	RecommendedFacultyID *string              `json:"recommended_faculty_id"`
	Session              *ScheduledSession    `json:"session,omitempty"`
	RankedCandidates     []RankedSubstitute   `json:"ranked_candidates"`
	RejectedCandidates   []RejectedSubstitute `json:"rejected_candidates"`
}
