package router

import (
	"github.com/labstack/echo/v4"

	"soulcircle/internal/adapter/api/handler"
)

func SetupJournalRouter(v1 *echo.Group, journalHandler *handler.JournalHandler) {
	notes := v1.Group("/feelnotes")
	notes.POST("", journalHandler.SaveNote)
	notes.GET("", journalHandler.Community)
	notes.GET("/mine", journalHandler.MyNotes)
	notes.GET("/stats", journalHandler.NoteStats)
	notes.POST("/:id/like", journalHandler.LikeNote)

	moods := v1.Group("/moods")
	moods.POST("", journalHandler.SaveMood)
	moods.GET("", journalHandler.Moods)
	moods.GET("/today", journalHandler.TodayMood)
}
