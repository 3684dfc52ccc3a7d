package ui

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/theme"
	"go.uber.org/zap"

	"isovolume/pkg/scene"
)

// Loop runs the fyne event loop of a window
type Loop struct {
	Window fyne.Window
}

// Run shows the window and blocks until it is closed
func (l Loop) Run() {
	l.Window.ShowAndRun()
}

// Run opens a window titled title showing s and blocks until it is closed
func Run(s *scene.Scene, title string) error {
	a := app.NewWithID("isovolume")
	a.Settings().SetTheme(theme.DarkTheme())
	w := a.NewWindow(title)

	view := NewView(s.Interactor)
	w.SetContent(view)
	width, height := s.Interactor.Size()
	w.Resize(fyne.NewSize(float32(width), float32(height)))

	zap.L().Info("Opening window", zap.String("title", title), zap.Int("width", width), zap.Int("height", height))
	if err := s.Run(Loop{Window: w}); err != nil {
		return err
	}
	zap.L().Info("Window closed", zap.Int("frames", view.Frames()))
	return nil
}
