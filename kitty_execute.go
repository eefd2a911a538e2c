package termgrid

import "fmt"

// Response is the result of executing a Kitty command: the formatted
// wire reply. Whether the quiet level calls for sending it is the
// separate bool that ExecuteKitty returns alongside it.
type Response struct {
	Text string
}

// ExecuteKitty dispatches a fully-parsed Kitty graphics command
// against the terminal's image storage and cursor. It never panics or
// returns a Go error: every failure becomes an error Response (or no
// response at all, depending on the command's quiet level).
func (t *Terminal) ExecuteKitty(cmd *KittyCommand) (Response, bool) {
	switch cmd.Action {
	case ActionQuery:
		return t.kittyRespond(cmd, "OK", true)

	case ActionTransmit, ActionTransmitAndDisplay:
		return t.kittyTransmit(cmd)

	case ActionDisplay:
		return t.kittyDisplay(cmd)

	case ActionDelete:
		t.images.Execute(cmd, t.Active(), t.cursor.pin, t.Active().UntrackPin)
		return t.kittyRespond(cmd, "OK", true)

	default:
		return t.kittyRespond(cmd, FormatKittyError("INVAL", fmt.Sprintf("unsupported action %q", cmd.Action)), false)
	}
}

// kittyTransmit implements the chunked-load path: a command with m=1
// starts or continues accumulation in t.images.loading (only one load
// may be in flight at a time, matching the protocol); the final
// (non-More) chunk completes and stores it.
func (t *Terminal) kittyTransmit(cmd *KittyCommand) (Response, bool) {
	if t.images == nil {
		return t.kittyRespond(cmd, FormatKittyError("INVAL", "kitty graphics protocol disabled"), false)
	}

	loading := t.images.loading
	if loading == nil {
		l, err := NewLoadingImage(cmd)
		if err != nil {
			return t.kittyRespond(cmd, formatLoaderError(err), false)
		}
		loading = l
	} else if cmd.Medium == MediumDirect {
		// Continuation chunks only carry a payload; control keys besides
		// m and the medium are ignored past the first chunk. File and
		// shared-memory media already ingest their full payload on the
		// first chunk, so a continuation is a no-op for those.
		if err := loading.AddData(cmd.Payload); err != nil {
			t.images.loading = nil
			return t.kittyRespond(cmd, formatLoaderError(err), false)
		}
	}

	if cmd.More {
		t.images.loading = loading
		// Intermediate chunks never get a response, regardless of q.
		return Response{}, false
	}
	t.images.loading = nil

	img, err := loading.Complete()
	if err != nil {
		return t.kittyRespond(cmd, formatLoaderError(err), false)
	}
	if img.ID == 0 {
		img.ID = t.images.NextImplicitID()
		img.ImplicitID = true
	}
	cmd.ImageID = img.ID

	if err := t.images.AddImage(img); err != nil {
		return t.kittyRespond(cmd, FormatKittyError("NOMEM", err.Error()), false)
	}

	if cmd.Action == ActionTransmitAndDisplay {
		// A failed placement doesn't unwind the already-stored image;
		// the transmit half of this command still succeeded.
		t.kittyDisplay(cmd)
	}

	return t.kittyRespond(cmd, "OK", true)
}

// kittyDisplay places a previously transmitted image at the cursor.
func (t *Terminal) kittyDisplay(cmd *KittyCommand) (Response, bool) {
	img, ok := t.images.Image(cmd.ImageID)
	if !ok {
		return t.kittyRespond(cmd, FormatKittyError("NOENT", fmt.Sprintf("no image with id %d", cmd.ImageID)), false)
	}

	srcW, srcH := int(cmd.SrcW), int(cmd.SrcH)
	if srcW == 0 {
		srcW = img.Width
	}
	if srcH == 0 {
		srcH = img.Height
	}

	cols, rows := int(cmd.Cols), int(cmd.Rows)
	if cols == 0 || rows == 0 {
		cols, rows = t.placementGridSize(srcW, srcH)
	}

	cursorPin, ok := t.ActivePin(t.cursor.X, t.cursor.Y)
	if !ok {
		return t.kittyRespond(cmd, FormatKittyError("INVAL", "cursor is outside the active area"), false)
	}

	p := Placement{
		Location: PlacementLocation{Pin: t.Active().TrackPin(cursorPin)},
		SrcX:     int(cmd.SrcX), SrcY: int(cmd.SrcY), SrcW: srcW, SrcH: srcH,
		Cols: cols, Rows: rows,
		OffsetX: int(cmd.CellOffsetX), OffsetY: int(cmd.CellOffsetY),
		Z: cmd.ZIndex,
	}

	placementID := t.images.AddPlacement(cmd.ImageID, cmd.PlacementID, p)
	cmd.PlacementID = placementID

	if !cmd.NoMoveCursor {
		t.advanceCursorPastPlacement(rows)
	}

	return t.kittyRespond(cmd, "OK", true)
}

// placementGridSize computes the (cols, rows) a placement spans when
// the command didn't specify them directly: the ceiling of the source
// rectangle divided by the renderer's reported cell pixel size. Falls
// back to a single cell when no cell pixel size has been recorded
// yet, rather than producing a zero-sized placement.
func (t *Terminal) placementGridSize(srcW, srcH int) (cols, rows int) {
	if t.cellPxW <= 0 || t.cellPxH <= 0 {
		return 1, 1
	}
	cols = (srcW + t.cellPxW - 1) / t.cellPxW
	rows = (srcH + t.cellPxH - 1) / t.cellPxH
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}
	return cols, rows
}

// advanceCursorPastPlacement moves the cursor down by the placement's
// row span minus one, matching the reference core's "leave the
// cursor on the placement's last row" convention for non-animation
// displays.
func (t *Terminal) advanceCursorPastPlacement(rows int) {
	if rows <= 1 {
		return
	}
	for i := 1; i < rows; i++ {
		t.Index()
	}
}

// kittyRespond formats and conditionally suppresses a response based
// on cmd.Quiet: 0 always responds, 1 suppresses success-only
// responses, 2 suppresses all responses.
func (t *Terminal) kittyRespond(cmd *KittyCommand, message string, success bool) (Response, bool) {
	switch cmd.Quiet {
	case QuietFailures:
		return Response{}, false
	case QuietOK:
		if success {
			return Response{}, false
		}
	}
	return Response{Text: FormatKittyResponse(cmd.ImageID, cmd.ImageNumber, cmd.PlacementID, message)}, true
}

func formatLoaderError(err error) string {
	if le, ok := err.(*LoaderErr); ok {
		return FormatKittyError("INVAL", string(le.Kind)+": "+le.Reason)
	}
	return FormatKittyError("INVAL", err.Error())
}
