package view

import (
	"fmt"
	"log/slog"

	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
)

const (
	flashSessionName = "flash-session"
	flashKeySuccess  = "success"
	flashKeyError    = "error"
)

// FlashMessage is one message shown once on the next full page.
type FlashMessage struct {
	Type string
	Text string
}

// FlashData holds the flashes read from the session.
type FlashData struct {
	Success  []string
	Error    []string
	Messages []FlashMessage
}

func setFlash(c echo.Context, key, message string) {
	sess, err := session.Get(flashSessionName, c)
	if err != nil {
		slog.Warn("Flash session unavailable", "error", err)
		return
	}
	sess.AddFlash(message, key)
	if err := sess.Save(c.Request(), c.Response()); err != nil {
		slog.Warn("Failed to save flash", "error", err)
	}
}

// SetFlashSuccess queues a success message for the next page.
func SetFlashSuccess(c echo.Context, message string) {
	setFlash(c, flashKeySuccess, message)
}

// SetFlashError queues an error message for the next page.
func SetFlashError(c echo.Context, message string) {
	setFlash(c, flashKeyError, message)
}

// GetFlashData reads and clears the queued flashes.
func GetFlashData(c echo.Context) FlashData {
	var data FlashData

	sess, err := session.Get(flashSessionName, c)
	if err != nil {
		return data
	}

	data.Success = flashStrings(sess.Flashes(flashKeySuccess))
	data.Error = flashStrings(sess.Flashes(flashKeyError))
	if len(data.Success) == 0 && len(data.Error) == 0 {
		return data
	}

	for _, text := range data.Success {
		data.Messages = append(data.Messages, FlashMessage{Type: flashKeySuccess, Text: text})
	}
	for _, text := range data.Error {
		data.Messages = append(data.Messages, FlashMessage{Type: flashKeyError, Text: text})
	}
	_ = sess.Save(c.Request(), c.Response())
	return data
}

func flashStrings(flashes []any) []string {
	out := make([]string, 0, len(flashes))
	for _, f := range flashes {
		out = append(out, fmt.Sprint(f))
	}
	return out
}
