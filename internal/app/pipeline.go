package app

import (
	"image"

	"gocv.io/x/gocv"
)

// previewWidth bounds the width of preview frames; larger frames are scaled down.
const previewWidth = 480

// encodePreview stores frame as the latest JPEG preview.
func (a *App) encodePreview(frame *gocv.Mat) {
	if frame == nil || frame.Empty() {
		return
	}

	src := frame
	if frame.Cols() > previewWidth {
		scaled := gocv.NewMat()
		defer scaled.Close()
		height := frame.Rows() * previewWidth / frame.Cols()
		gocv.Resize(*frame, &scaled, image.Pt(previewWidth, height), 0, 0, gocv.InterpolationArea)
		src = &scaled
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *src)
	if err != nil {
		a.logger.Debug("encode preview", "err", err)
		return
	}
	defer buf.Close()

	jpeg := append([]byte(nil), buf.GetBytes()...)

	a.stateMu.Lock()
	a.preview = jpeg
	a.stateMu.Unlock()
}
