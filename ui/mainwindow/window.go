// Package mainwindow provides the main application window.
package mainwindow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"bookfold/internal/app"
	"bookfold/internal/calibration"
	"bookfold/internal/ocr"
	"bookfold/internal/version"
	"bookfold/ui/canvas"
	"bookfold/ui/prefs"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
)

// MainWindow is the primary application window.
type MainWindow struct {
	fyne.Window
	app    fyne.App
	state  *app.State
	prefs  *prefs.Prefs
	logger *slog.Logger

	view      *canvas.CameraView
	statusBar *widget.Label

	cameraBtn    *widget.Button
	calibCheck   *widget.Check
	calibLabel   *widget.Label
	pageLabel    *widget.Label
	markLabel    *widget.Label
	instructions *widget.Entry

	heightEntry *widget.Entry
	widthEntry  *widget.Entry
	padTopEntry *widget.Entry
	padBotEntry *widget.Entry
}

// New creates a new main window.
func New(fyneApp fyne.App, state *app.State, p *prefs.Prefs, logger *slog.Logger) *MainWindow {
	win := fyneApp.NewWindow("Bookfold")
	fyneApp.Settings().SetTheme(&BookfoldTheme{})

	mw := &MainWindow{
		Window: win,
		app:    fyneApp,
		state:  state,
		prefs:  p,
		logger: logger,
	}

	mw.setupUI()
	mw.setupMenus()
	mw.setupEventHandlers()
	mw.setupShortcuts()
	mw.restoreSession()

	win.SetOnClosed(func() {
		state.Close()
		if err := p.Save(); err != nil {
			logger.Warn("failed to save preferences", "error", err)
		}
	})
	win.Resize(fyne.NewSize(1200, 800))
	return mw
}

// setupUI creates the main UI layout.
func (mw *MainWindow) setupUI() {
	mw.view = canvas.NewCameraView(mw.state)
	mw.statusBar = widget.NewLabel("Ready")
	mw.statusBar.Truncation = fyne.TextTruncateEllipsis

	viewArea := container.NewBorder(
		mw.createToolbar(), // top
		nil,                // bottom
		nil,                // left
		nil,                // right
		mw.view,            // center
	)

	split := container.NewHSplit(mw.createSidePanel(), viewArea)
	split.SetOffset(0.25)

	content := container.NewBorder(
		nil,                               // top
		container.NewPadded(mw.statusBar), // bottom
		nil,                               // left
		nil,                               // right
		split,                             // center
	)
	mw.SetContent(content)
}

// createToolbar creates the camera, calibration and zoom controls.
func (mw *MainWindow) createToolbar() fyne.CanvasObject {
	mw.cameraBtn = widget.NewButtonWithIcon("Start Camera", theme.MediaPlayIcon(), mw.onToggleCamera)
	mw.calibCheck = widget.NewCheck("Calibration mode", func(on bool) {
		mw.state.SetCalibrating(on)
	})
	calibrateBtn := widget.NewButton("Calibrate", func() { mw.state.Calibrate() })

	zoomOutBtn := widget.NewButtonWithIcon("", theme.ZoomOutIcon(), func() { mw.state.ZoomBy(-1) })
	zoomInBtn := widget.NewButtonWithIcon("", theme.ZoomInIcon(), func() { mw.state.ZoomBy(1) })
	resetBtn := widget.NewButtonWithIcon("", theme.ViewRestoreIcon(), mw.state.ResetView)

	return container.NewHBox(
		mw.cameraBtn,
		widget.NewSeparator(),
		mw.calibCheck,
		calibrateBtn,
		widget.NewSeparator(),
		widget.NewLabel("Zoom:"),
		zoomOutBtn,
		zoomInBtn,
		resetBtn,
	)
}

// createSidePanel holds the page setup, instructions and navigation.
func (mw *MainWindow) createSidePanel() fyne.CanvasObject {
	mw.heightEntry = widget.NewEntry()
	mw.widthEntry = widget.NewEntry()
	mw.padTopEntry = widget.NewEntry()
	mw.padBotEntry = widget.NewEntry()

	form := widget.NewForm(
		widget.NewFormItem("Height (cm)", mw.heightEntry),
		widget.NewFormItem("Width (cm)", mw.widthEntry),
		widget.NewFormItem("Padding top", mw.padTopEntry),
		widget.NewFormItem("Padding bottom", mw.padBotEntry),
	)
	form.SubmitText = "Apply"
	form.OnSubmit = mw.onApplyPage

	mw.calibLabel = widget.NewLabel("")
	mw.pageLabel = widget.NewLabel("")
	mw.markLabel = widget.NewLabel("")
	mw.markLabel.Wrapping = fyne.TextWrapWord

	mw.instructions = widget.NewMultiLineEntry()
	mw.instructions.SetPlaceHolder("1: 2.5, 4, 7.25\n2: 3, 6.5")
	mw.instructions.SetMinRowsVisible(8)
	applyInstr := widget.NewButton("Apply Instructions", func() {
		mw.applyEdited(mw.instructions.Text)
	})

	nav := container.NewGridWithColumns(2,
		widget.NewButtonWithIcon("Page", theme.NavigateBackIcon(), func() { mw.state.PrevPage() }),
		widget.NewButtonWithIcon("Page", theme.NavigateNextIcon(), func() { mw.state.NextPage() }),
		widget.NewButtonWithIcon("Mark", theme.MoveUpIcon(), mw.state.PrevMark),
		widget.NewButtonWithIcon("Mark", theme.MoveDownIcon(), mw.state.NextMark),
	)
	toggleAll := widget.NewButton("Show All / Single", mw.state.ToggleAllMarks)

	return container.NewVScroll(container.NewVBox(
		widget.NewLabelWithStyle("Page", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		form,
		mw.calibLabel,
		widget.NewSeparator(),
		widget.NewLabelWithStyle("Instructions", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		mw.instructions,
		applyInstr,
		widget.NewSeparator(),
		mw.pageLabel,
		nav,
		toggleAll,
		mw.markLabel,
	))
}

// setupMenus creates the application menus.
func (mw *MainWindow) setupMenus() {
	fileMenu := fyne.NewMenu("File",
		fyne.NewMenuItem("Open Instructions...", mw.onOpenInstructions),
		fyne.NewMenuItem("Read Instructions from Photo...", mw.onReadPhoto),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Quit", func() { mw.app.Quit() }),
	)

	viewMenu := fyne.NewMenu("View",
		fyne.NewMenuItem("Zoom In", func() { mw.state.ZoomBy(1) }),
		fyne.NewMenuItem("Zoom Out", func() { mw.state.ZoomBy(-1) }),
		fyne.NewMenuItem("Reset View", mw.state.ResetView),
	)

	cameraMenu := fyne.NewMenu("Camera",
		fyne.NewMenuItem("Start / Stop Camera", mw.onToggleCamera),
		fyne.NewMenuItem("Calibration Mode", func() { mw.calibCheck.SetChecked(!mw.calibCheck.Checked) }),
		fyne.NewMenuItem("Calibrate Now", func() { mw.state.Calibrate() }),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Read Instructions from Frame", mw.onReadFrame),
	)

	helpMenu := fyne.NewMenu("Help",
		fyne.NewMenuItem("About", mw.onAbout),
	)

	mw.SetMainMenu(fyne.NewMainMenu(fileMenu, viewMenu, cameraMenu, helpMenu))
}

// setupShortcuts binds navigation keys when no entry has focus.
func (mw *MainWindow) setupShortcuts() {
	mw.Canvas().SetOnTypedKey(func(ev *fyne.KeyEvent) {
		switch ev.Name {
		case fyne.KeyDown, fyne.KeyRight:
			mw.state.NextMark()
		case fyne.KeyUp, fyne.KeyLeft:
			mw.state.PrevMark()
		case fyne.KeySpace:
			mw.state.ToggleAllMarks()
		case fyne.KeyPageDown:
			mw.state.NextPage()
		case fyne.KeyPageUp:
			mw.state.PrevPage()
		case fyne.KeyReturn, fyne.KeyEnter:
			mw.state.Calibrate()
		}
	})
}

func (mw *MainWindow) setupEventHandlers() {
	mw.state.On(app.EventStatus, func(data interface{}) {
		if msg, ok := data.(string); ok {
			mw.statusBar.SetText(msg)
		}
	})

	redraw := func(interface{}) { mw.view.Refresh() }
	mw.state.On(app.EventFrame, redraw)
	mw.state.On(app.EventCornersDetected, redraw)
	mw.state.On(app.EventTransformChanged, redraw)

	mw.state.On(app.EventCameraChanged, func(data interface{}) {
		if on, ok := data.(bool); ok && on {
			mw.cameraBtn.SetText("Stop Camera")
			mw.cameraBtn.SetIcon(theme.MediaStopIcon())
		} else {
			mw.cameraBtn.SetText("Start Camera")
			mw.cameraBtn.SetIcon(theme.MediaPlayIcon())
		}
		mw.view.Refresh()
	})

	mw.state.On(app.EventCalibrationChanged, func(interface{}) {
		if mw.calibCheck.Checked != mw.state.Calibrating() {
			mw.calibCheck.SetChecked(mw.state.Calibrating())
		}
		mw.updateLabels()
		mw.view.Refresh()
	})

	mw.state.On(app.EventPageChanged, func(interface{}) {
		mw.updateLabels()
		mw.view.Refresh()
	})
	mw.state.On(app.EventMarksChanged, func(interface{}) {
		mw.updateLabels()
		mw.view.Refresh()
	})
}

func (mw *MainWindow) updateLabels() {
	if ppc := mw.state.PixelsPerCm(); ppc != nil {
		mw.calibLabel.SetText(fmt.Sprintf("Calibrated: %.2f px/cm", *ppc))
	} else if mw.state.CalibrationState() == calibration.StateDetecting {
		mw.calibLabel.SetText("Detecting page...")
	} else {
		mw.calibLabel.SetText("Not calibrated")
	}

	pg := mw.state.Page()
	ms := pg.Marks()
	if len(ms) == 0 {
		mw.pageLabel.SetText("No marks loaded")
	} else {
		mw.pageLabel.SetText(fmt.Sprintf("Page %d (%d marks)", pg.Current, len(ms)))
	}
	mw.markLabel.SetText(mw.state.Navigation().Describe(ms))
}

// restoreSession applies saved page settings and instructions.
func (mw *MainWindow) restoreSession() {
	cfg := mw.state.Config().Page
	pg := mw.prefs.Page(prefs.Page{
		HeightCm:        cfg.HeightCm,
		WidthCm:         cfg.WidthCm,
		PaddingTopCm:    cfg.PaddingTopCm,
		PaddingBottomCm: cfg.PaddingBottomCm,
	})
	mw.state.SetPageHeight(pg.HeightCm)
	mw.state.SetPageWidth(pg.WidthCm)
	mw.state.SetPadding(pg.PaddingTopCm, pg.PaddingBottomCm)
	mw.fillPageForm(pg)

	if path := mw.prefs.String(prefs.KeyInstructionsFile); path != "" {
		if err := mw.state.LoadInstructionsFile(path); err != nil {
			mw.logger.Warn("failed to restore instructions file", "path", path, "error", err)
		} else {
			mw.instructions.SetText(mw.state.Page().Instructions)
			mw.updateLabels()
			return
		}
	}
	if text := mw.prefs.String(prefs.KeyInstructionsText); text != "" {
		mw.instructions.SetText(text)
		mw.state.SetInstructions(text)
	}
	mw.updateLabels()
}

func (mw *MainWindow) fillPageForm(pg prefs.Page) {
	mw.heightEntry.SetText(formatCm(pg.HeightCm))
	mw.widthEntry.SetText(formatCm(pg.WidthCm))
	mw.padTopEntry.SetText(formatCm(pg.PaddingTopCm))
	mw.padBotEntry.SetText(formatCm(pg.PaddingBottomCm))
}

func (mw *MainWindow) onApplyPage() {
	pg, err := parsePage(mw.heightEntry.Text, mw.widthEntry.Text, mw.padTopEntry.Text, mw.padBotEntry.Text)
	if err != nil {
		mw.state.SetStatus("Page settings: " + err.Error())
		return
	}
	mw.state.SetPageHeight(pg.HeightCm)
	mw.state.SetPageWidth(pg.WidthCm)
	mw.state.SetPadding(pg.PaddingTopCm, pg.PaddingBottomCm)
	mw.prefs.SetPage(pg)
}

// parsePage reads the page form. Decimal commas are accepted.
func parsePage(height, width, top, bottom string) (prefs.Page, error) {
	var pg prefs.Page
	fields := []struct {
		name string
		text string
		dst  *float64
	}{
		{"height", height, &pg.HeightCm},
		{"width", width, &pg.WidthCm},
		{"top padding", top, &pg.PaddingTopCm},
		{"bottom padding", bottom, &pg.PaddingBottomCm},
	}
	for _, f := range fields {
		text := strings.ReplaceAll(strings.TrimSpace(f.text), ",", ".")
		if text == "" {
			text = "0"
		}
		v, err := strconv.ParseFloat(text, 64)
		if err != nil || v < 0 {
			return pg, fmt.Errorf("invalid %s %q", f.name, f.text)
		}
		*f.dst = v
	}
	return pg, nil
}

func formatCm(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func (mw *MainWindow) onToggleCamera() {
	if mw.state.CameraOn() {
		mw.state.StopCamera()
		return
	}
	mw.cameraBtn.Disable()
	go func() {
		defer mw.cameraBtn.Enable()
		if err := mw.state.StartCamera(context.Background()); err != nil {
			mw.logger.Warn("camera start failed", "error", err)
		}
	}()
}

func (mw *MainWindow) onOpenInstructions() {
	fd := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil || reader == nil {
			return
		}
		reader.Close()
		path := reader.URI().Path()
		mw.saveLastDir(path)
		if err := mw.OpenInstructions(path); err != nil {
			dialog.ShowError(err, mw.Window)
		}
	}, mw.Window)
	fd.SetFilter(storage.NewExtensionFileFilter([]string{".txt", ".csv"}))
	if loc := mw.getLastDir(); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

// OpenInstructions loads and watches an instructions file and remembers it
// for the next session.
func (mw *MainWindow) OpenInstructions(path string) error {
	if err := mw.state.LoadInstructionsFile(path); err != nil {
		return err
	}
	mw.instructions.SetText(mw.state.Page().Instructions)
	mw.prefs.SetString(prefs.KeyInstructionsFile, path)
	return nil
}

func (mw *MainWindow) onReadPhoto() {
	fd := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil || reader == nil {
			return
		}
		reader.Close()
		path := reader.URI().Path()
		mw.saveLastDir(path)
		mw.state.SetStatus("Reading instructions from " + filepath.Base(path) + "...")

		go func() {
			mw.applyRecognized(readPhoto(path))
		}()
	}, mw.Window)
	fd.SetFilter(storage.NewExtensionFileFilter([]string{".png", ".jpg", ".jpeg", ".tif", ".tiff"}))
	if loc := mw.getLastDir(); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

// onReadFrame runs OCR on the current camera frame.
func (mw *MainWindow) onReadFrame() {
	frame := mw.state.LatestFrame()
	if frame == nil {
		mw.state.SetStatus("No camera frame to read")
		return
	}
	mw.state.SetStatus("Reading instructions from camera...")
	go func() {
		engine, err := ocr.NewEngine()
		if err != nil {
			mw.applyRecognized("", err)
			return
		}
		defer engine.Close()
		mw.applyRecognized(engine.ReadImage(frame))
	}()
}

func (mw *MainWindow) applyRecognized(text string, err error) {
	if err == nil && strings.TrimSpace(text) == "" {
		err = errors.New("no text found")
	}
	if err != nil {
		mw.logger.Warn("ocr failed", "error", err)
		mw.state.SetStatus("Could not read instructions")
		return
	}
	mw.instructions.SetText(text)
	mw.applyEdited(text)
}

// applyEdited installs text that did not come from the watched file. The
// file is dropped from the session so it is not restored over the edit.
func (mw *MainWindow) applyEdited(text string) {
	mw.state.ApplyInstructions(text)
	mw.prefs.SetString(prefs.KeyInstructionsFile, "")
	mw.prefs.SetString(prefs.KeyInstructionsText, text)
}

func readPhoto(path string) (string, error) {
	engine, err := ocr.NewEngine()
	if err != nil {
		return "", err
	}
	defer engine.Close()
	return engine.ReadFile(path)
}

func (mw *MainWindow) onAbout() {
	dialog.ShowInformation("About Bookfold",
		"Bookfold "+version.String()+"\n\nFold mark overlay for book page art.\n"+
			"Arrows: marks  PgUp/PgDn: pages  Space: all/single  Enter: calibrate",
		mw.Window)
}

func (mw *MainWindow) getLastDir() fyne.ListableURI {
	path := mw.prefs.String(prefs.KeyLastDir)
	if path == "" {
		return nil
	}
	listable, err := storage.ListerForURI(storage.NewFileURI(path))
	if err != nil {
		return nil
	}
	return listable
}

func (mw *MainWindow) saveLastDir(filePath string) {
	mw.prefs.SetString(prefs.KeyLastDir, filepath.Dir(filePath))
}
