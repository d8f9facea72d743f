// Package ui provides the main entry point for the UI.
package ui

import (
	"time"

	"github.com/palemoky/shswrite/internal/transport"
	"github.com/palemoky/shswrite/internal/ui/handler"
	"github.com/palemoky/shswrite/internal/ui/input"
	"github.com/palemoky/shswrite/internal/ui/model"
	"github.com/palemoky/shswrite/internal/ui/view"
)

// cursorInterval 光标上报的最小间隔
const cursorInterval = 50 * time.Millisecond

// NewOnlineModel creates a fully wired OnlineModel.
func NewOnlineModel(c *transport.Client, opts ...model.Option) *model.OnlineModel {
	m := model.NewOnlineModel(c, opts...)
	m.SetViewRenderer(view.CreateViewRenderer())
	m.SetKeyHandler(input.HandleKeyPress)
	m.SetMouseHandler(input.NewCursorTracker(cursorInterval).Handle)
	m.SetServerMessageHandler(handler.HandleServerMessage)
	return m
}
