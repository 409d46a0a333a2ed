package http

import (
	"net/http"

	"github.com/learnflow/learnflow-backend/internal/application/command"
	"github.com/learnflow/learnflow-backend/internal/application/query"
)

// ══════════════════════════════════════════════════════════════════════════════
// EXERCISE & PROGRESS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleListExercises handles GET /api/v1/exercises
func (s *Server) handleListExercises(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.ListExercises.Handle(r.Context(), query.ListExercisesQuery{
		Topic:      getQueryParam(r, "topic", ""),
		Difficulty: getQueryParam(r, "difficulty", ""),
		Limit:      getQueryParamInt(r, "limit", 0),
		Offset:     getQueryParamInt(r, "offset", 0),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

type createExerciseRequest struct {
	Title          string                   `json:"title"`
	Description    string                   `json:"description,omitempty"`
	Difficulty     string                   `json:"difficulty,omitempty"`
	Topic          string                   `json:"topic,omitempty"`
	StarterCode    string                   `json:"starter_code,omitempty"`
	ExpectedOutput string                   `json:"expected_output,omitempty"`
	TestCases      []map[string]interface{} `json:"test_cases,omitempty"`
	Hints          []string                 `json:"hints,omitempty"`
	SolutionCode   string                   `json:"solution_code,omitempty"`
}

// handleCreateExercise handles POST /api/v1/exercises
func (s *Server) handleCreateExercise(w http.ResponseWriter, r *http.Request) {
	var req createExerciseRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	result, err := s.deps.CreateExercise.Handle(r.Context(), command.CreateExerciseCommand{
		Title:          req.Title,
		Description:    req.Description,
		Difficulty:     req.Difficulty,
		Topic:          req.Topic,
		StarterCode:    req.StarterCode,
		ExpectedOutput: req.ExpectedOutput,
		TestCases:      req.TestCases,
		Hints:          req.Hints,
		SolutionCode:   req.SolutionCode,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, result.Exercise)
}

// handleGetExercise handles GET /api/v1/exercises/{id}
func (s *Server) handleGetExercise(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.GetExercise.Handle(r.Context(), query.GetExerciseQuery{
		ExerciseID: r.PathValue("id"),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

type submitExerciseRequest struct {
	Code     string `json:"code"`
	Language string `json:"language,omitempty"`
}

// handleSubmitExercise handles POST /api/v1/exercises/{id}/submissions
func (s *Server) handleSubmitExercise(w http.ResponseWriter, r *http.Request) {
	var req submitExerciseRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	result, err := s.deps.SubmitExercise.Handle(r.Context(), command.SubmitExerciseCommand{
		StudentID:  studentFrom(r).ID,
		ExerciseID: r.PathValue("id"),
		Code:       req.Code,
		Language:   req.Language,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, result.Submission)
}

type scoreSubmissionRequest struct {
	Score    int    `json:"score"`
	Feedback string `json:"feedback,omitempty"`
}

type scoreSubmissionResponse struct {
	Submission interface{} `json:"submission"`
	Progress   interface{} `json:"progress"`
}

// handleScoreSubmission handles POST /api/v1/submissions/{id}/score
func (s *Server) handleScoreSubmission(w http.ResponseWriter, r *http.Request) {
	var req scoreSubmissionRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	result, err := s.deps.ScoreSubmission.Handle(r.Context(), command.ScoreSubmissionCommand{
		SubmissionID: r.PathValue("id"),
		Score:        req.Score,
		Feedback:     req.Feedback,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, scoreSubmissionResponse{
		Submission: result.Submission,
		Progress:   result.Progress,
	})
}

// handleListSubmissions handles GET /api/v1/submissions
func (s *Server) handleListSubmissions(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.ListSubmissions.Handle(r.Context(), query.ListSubmissionsQuery{
		StudentID:  studentFrom(r).ID,
		ExerciseID: getQueryParam(r, "exercise_id", ""),
		Limit:      getQueryParamInt(r, "limit", 0),
		Offset:     getQueryParamInt(r, "offset", 0),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleGetProgress handles GET /api/v1/progress
func (s *Server) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.GetProgress.Handle(r.Context(), query.GetProgressQuery{
		StudentID:  studentFrom(r).ID,
		ExerciseID: getQueryParam(r, "exercise_id", ""),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
