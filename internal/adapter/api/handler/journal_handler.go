package handler

import (
	"github.com/labstack/echo/v4"

	"soulcircle/internal/usecase"
	"soulcircle/pkg/response"
)

type JournalHandler struct {
	feelNoteUseCase *usecase.FeelNoteUseCase
	moodUseCase     *usecase.MoodUseCase
}

func NewJournalHandler(feelNoteUseCase *usecase.FeelNoteUseCase, moodUseCase *usecase.MoodUseCase) *JournalHandler {
	return &JournalHandler{
		feelNoteUseCase: feelNoteUseCase,
		moodUseCase:     moodUseCase,
	}
}

func (h *JournalHandler) SaveNote(c echo.Context) error {
	var req usecase.SaveFeelNoteInput
	if err := bindAndValidate(c, &req); err != nil {
		return response.Error(c, err)
	}

	note, err := h.feelNoteUseCase.Save(c.Request().Context(), actor(c).ID, req)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Created(c, note)
}

func (h *JournalHandler) MyNotes(c echo.Context) error {
	limit := queryInt(c, "limit", 0)
	notes, err := h.feelNoteUseCase.ListMine(c.Request().Context(), actor(c).ID, limit)
	if err != nil {
		return response.Error(c, err)
	}
	return response.List(c, notes, len(notes), limit)
}

func (h *JournalHandler) Community(c echo.Context) error {
	limit := queryInt(c, "limit", 0)
	notes, err := h.feelNoteUseCase.Community(c.Request().Context(), limit)
	if err != nil {
		return response.Error(c, err)
	}
	return response.List(c, notes, len(notes), limit)
}

func (h *JournalHandler) LikeNote(c echo.Context) error {
	likes, err := h.feelNoteUseCase.Like(c.Request().Context(), c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, map[string]int{"likes": likes})
}

func (h *JournalHandler) NoteStats(c echo.Context) error {
	stats, err := h.feelNoteUseCase.Stats(c.Request().Context())
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, stats)
}

func (h *JournalHandler) SaveMood(c echo.Context) error {
	var req usecase.SaveMoodInput
	if err := bindAndValidate(c, &req); err != nil {
		return response.Error(c, err)
	}

	entry, err := h.moodUseCase.Save(c.Request().Context(), actor(c).ID, req)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Created(c, entry)
}

func (h *JournalHandler) Moods(c echo.Context) error {
	limit := queryInt(c, "limit", 0)
	entries, err := h.moodUseCase.List(c.Request().Context(), actor(c).ID, limit)
	if err != nil {
		return response.Error(c, err)
	}
	return response.List(c, entries, len(entries), limit)
}

// TodayMood returns null data when nothing was logged today.
func (h *JournalHandler) TodayMood(c echo.Context) error {
	entry, err := h.moodUseCase.Today(c.Request().Context(), actor(c).ID)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, entry)
}
