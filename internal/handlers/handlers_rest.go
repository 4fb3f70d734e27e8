package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"pairquiz-backend/api"
	"pairquiz-backend/internal/auth"
	errs "pairquiz-backend/internal/errors"
	"pairquiz-backend/internal/questions"
	"pairquiz-backend/internal/store"
)

type QuestionStore interface {
	QuestionsByStage(ctx context.Context, stage int) ([]api.Question, error)
}

type ResultStore interface {
	SaveResult(ctx context.Context, req api.SaveResultRequest) (api.Result, error)
	ResultsBySession(ctx context.Context, quizSessionID string) ([]api.Result, error)
}

// QuestionsHandler lists the active questions of the stage given by the
// stage query parameter.
func QuestionsHandler(qs QuestionStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		param := r.URL.Query().Get("stage")
		if param == "" {
			errs.WriteHTTPError(ctx, w, errs.MissingURLQueryError("stage"))
			return
		}
		stage, err := strconv.Atoi(param)
		if err != nil || stage < questions.MinStage || stage > questions.MaxStage {
			errs.WriteHTTPError(ctx, w, errs.InvalidBodyError(err, map[string]string{
				"stage": "must be an integer between 1 and 10",
			}))
			return
		}

		list, err := qs.QuestionsByStage(ctx, stage)
		if err != nil {
			errs.WriteHTTPError(ctx, w, errs.HTTPInternalServerError(err))
			return
		}

		writeJSON(ctx, w, http.StatusOK, api.QuestionsResponse{Stage: stage, Questions: list})
	}
}

// SaveResultHandler stores the answer sheet of one player. When tokens are
// enabled the sheet must belong to the token's user.
func SaveResultHandler(results ResultStore, tokens *auth.Tokens) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		req := api.SaveResultRequest{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			errs.WriteHTTPError(ctx, w, errs.InvalidBodyError(err, nil))
			return
		}

		if tokens.Enabled() {
			token, err := auth.FromHeader(r.Header.Get("Authorization"))
			if err != nil {
				errs.WriteHTTPError(ctx, w, errs.UnauthorizedError(err.Error()))
				return
			}
			userID, err := tokens.CheckToken(token)
			if err != nil {
				errs.WriteHTTPError(ctx, w, errs.InvalidTokenError(err))
				return
			}
			if req.UserID == "" {
				req.UserID = userID
			}
			if req.UserID != userID {
				errs.WriteHTTPError(ctx, w, errs.UnauthorizedError("result belongs to another user"))
				return
			}
		}

		if err := req.Validate(); err != nil {
			validationErr := api.ValidationError{}
			errors.As(err, &validationErr)
			errs.WriteHTTPError(ctx, w, errs.InvalidBodyError(err, validationErr.Fields))
			return
		}

		result, err := results.SaveResult(ctx, req)
		if errors.Is(err, store.ErrAlreadyExists) {
			errs.WriteHTTPError(ctx, w, errs.ResultExistsError(req.QuizSessionID, req.UserID))
			return
		}
		if err != nil {
			errs.WriteHTTPError(ctx, w, errs.HTTPInternalServerError(err))
			return
		}

		writeJSON(ctx, w, http.StatusCreated, api.SaveResultResponse{Result: result})
	}
}

// ResultsHandler scores the two answer sheets of a quiz session.
func ResultsHandler(results ResultStore, categories questions.Categories) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		quizSessionID := r.PathValue("quizSessionId")
		if quizSessionID == "" {
			errs.WriteHTTPError(ctx, w, errs.MissingURLQueryError("quizSessionId"))
			return
		}

		sheets, err := results.ResultsBySession(ctx, quizSessionID)
		if err != nil {
			errs.WriteHTTPError(ctx, w, errs.HTTPInternalServerError(err))
			return
		}
		if len(sheets) != 2 {
			errs.WriteHTTPError(ctx, w, errs.IncompleteResultsError(quizSessionID, len(sheets)))
			return
		}

		match := questions.Score(sheets[0].Answers, sheets[1].Answers, categories)

		res := api.CompatibilityResponse{
			QuizSessionID:  quizSessionID,
			Compatibility:  match.Compatibility,
			Shared:         match.Shared,
			TotalQuestions: match.Total,
		}
		for i, sheet := range sheets {
			res.Results = append(res.Results, api.UserScore{
				UserID:  sheet.UserID,
				Score:   match.Points[i],
				Answers: sheet.Answers,
			})
		}

		writeJSON(ctx, w, http.StatusOK, res)
	}
}

func writeJSON(ctx context.Context, w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.ErrorContext(ctx, "http response write", slog.Any("error", err))
	}
}
