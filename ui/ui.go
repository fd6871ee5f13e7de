package ui

import (
	"context"
	"io"
	"strconv"
	"sync/atomic"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
)

// GearUI is a desktop dashboard for the shifter. It is an io.Writer for the encoded status messages from
// controller.Controller and writes firmware commands for its buttons
type GearUI struct {
	dashboard dashboard
	ready     atomic.Bool

	app       fyne.App
	gearText  *canvas.Text
	status    *canvas.Text
	logLabel  *widget.Label
	logScroll *container.Scroll
}

func NewGearUI() *GearUI {
	return &GearUI{}
}

// App returns the fyne App, creating it on first use so the ConfigWindow can share it
func (ui *GearUI) App() fyne.App {
	if ui.app == nil {
		ui.app = app.NewWithID("com.calvinmclean.gearshift")
	}
	return ui.app
}

// Write implements io.Writer
func (ui *GearUI) Write(p []byte) (int, error) {
	if ui.dashboard.write(p) > 0 && ui.ready.Load() {
		fyne.Do(ui.refresh)
	}
	return len(p), nil
}

func (ui *GearUI) refresh() {
	ui.gearText.Text = ui.dashboard.gearText()
	ui.gearText.Refresh()

	text, s := ui.dashboard.statusText()
	ui.status.Text = text
	ui.status.Color = s.color()
	ui.status.Refresh()

	ui.logLabel.SetText(ui.dashboard.logText())
	ui.logScroll.ScrollToBottom()
}

func (ui *GearUI) createLogAccordion() *widget.Accordion {
	ui.logLabel = widget.NewLabel("")
	ui.logScroll = container.NewVScroll(ui.logLabel)
	ui.logScroll.SetMinSize(fyne.NewSize(300, 100))

	return widget.NewAccordion(
		widget.NewAccordionItem("Logs", ui.logScroll),
	)
}

func createGearSelect(c *controllerWrapper, gears int) *fyne.Container {
	buttons := make([]fyne.CanvasObject, gears)
	for i := range gears {
		buttons[i] = widget.NewButton(strconv.Itoa(i+1), func() {
			c.GoToGear(i)
		})
	}
	return container.NewGridWithColumns(gears, buttons...)
}

// Show opens the dashboard window. Commands from its buttons are written to w. The App quits when the window
// is closed or ctx is done, so the caller should follow with App().Run()
func (ui *GearUI) Show(ctx context.Context, w io.Writer, gears int) {
	application := ui.App()
	window := application.NewWindow("Gear Shift")

	lastShiftTimer := newTimer()
	lastShiftTimer.Go(ctx)

	c := &controllerWrapper{
		writer:         w,
		lastShiftTimer: lastShiftTimer,
	}

	ui.gearText = canvas.NewText("-", theme.Color(theme.ColorNameForeground))
	ui.gearText.TextSize = 96
	ui.gearText.Alignment = fyne.TextAlignCenter

	ui.status = canvas.NewText(stateNone.String(), stateNone.color())

	contentContainer := container.NewVBox(
		container.NewHBox(
			container.NewPadded(ui.status),
			layout.NewSpacer(),
			container.NewPadded(lastShiftTimer.text),
		),
		ui.gearText,
		container.NewGridWithColumns(2,
			widget.NewButtonWithIcon("Down", theme.MoveDownIcon(), c.ShiftDown),
			widget.NewButtonWithIcon("Up", theme.MoveUpIcon(), c.ShiftUp),
		),
		createGearSelect(c, gears),
		container.NewGridWithColumns(2,
			widget.NewButton("Calibrate", c.Calibrate),
			widget.NewButton("Debug", c.Debug),
		),
		ui.createLogAccordion(),
	)

	go func() {
		<-ctx.Done()
		fyne.Do(func() {
			application.Quit()
		})
	}()

	// pick up anything written before the window existed
	ui.refresh()
	ui.ready.Store(true)

	window.SetContent(contentContainer)
	window.Resize(fyne.NewSize(300, 400))
	window.SetMaster()
	window.Show()
}
