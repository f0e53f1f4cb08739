package placeholder

import (
	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/goregular"
	"image"
	"image/color"
	"sync"
	"time"
)

var (
	font     *truetype.Font
	fontErr  error
	fontOnce sync.Once
)

func loadFont() (*truetype.Font, error) {
	fontOnce.Do(func() {
		font, fontErr = truetype.Parse(goregular.TTF)
	})
	return font, fontErr
}

// CreatePlaceholder
// create a placeholder image when there is no frame to show
func CreatePlaceholder(
	width, height int,
	backgroundColor, color color.Color,
	text string,
	timestamp bool, // put current time in YYYY-MM-dd HH:mm:ss pattern at the right bottom corner
) (image.Image, error) {
	f, err := loadFont()
	if err != nil {
		return nil, err
	}

	dc := gg.NewContext(width, height)
	dc.SetColor(backgroundColor)
	dc.DrawRectangle(0, 0, float64(width), float64(height))
	dc.Fill()

	dc.SetFontFace(truetype.NewFace(f, &truetype.Options{Size: float64(height) / 9}))
	dc.SetColor(color)
	dc.DrawStringAnchored(text, float64(width/2), float64(height/2), 0.5, 0.5)

	if timestamp {
		nowStr := time.Now().Format(time.DateTime)
		dc.SetFontFace(truetype.NewFace(f, &truetype.Options{Size: float64(height) / 34}))
		dc.DrawStringAnchored(nowStr, float64(width-height/20), float64(height-height/20), 1, 0)
	}

	return dc.Image(), nil
}

// Watermark draws the "no frame yet" view shown before the first frame arrives.
func Watermark(width, height int, connected bool) (image.Image, error) {
	text := "Waiting for host"
	if connected {
		text = "No frame yet"
	}
	return CreatePlaceholder(
		width, height,
		color.RGBA{R: 0x08, G: 0x0d, B: 0x14, A: 0xff},
		color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0x80},
		text,
		false,
	)
}
