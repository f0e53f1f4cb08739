package factory

import (
	"fmt"
	"github.com/allape/rein/config"
	"github.com/allape/rein/kvm/capture"
	"github.com/allape/rein/kvm/capture/dummy"
	"github.com/allape/rein/kvm/capture/screenshot"
	"github.com/allape/rein/kvm/capture/shell"
)

func CaptureFromConfig(conf config.Config) (cd capture.Driver, err error) {
	cos := capture.Options{
		Width:     conf.Capture.Width,
		Height:    conf.Capture.Height,
		FrameRate: conf.Capture.FrameRate,
	}

	videoCodec, err := CodecFromConfig(conf)
	if err != nil {
		return nil, err
	}

	switch conf.Capture.Type {
	case config.CaptureScreenshot:
		l.Info().Println("capture driver is screenshot of display", conf.Capture.Display)
		cd = screenshot.NewDriver(&screenshot.Options{
			Options: cos,
			Display: conf.Capture.Display,
			Codec:   videoCodec,
		})
	case config.CaptureShell:
		if conf.Capture.Src.Empty() {
			return nil, fmt.Errorf("capture source is empty")
		}
		l.Info().Println("capture driver is shell:", conf.Capture.Src)
		cd = shell.NewDriver(conf.Capture.Src, &shell.Options{
			Options: cos,
		})
	case config.CaptureDummy:
		text := "rein"
		if !conf.Capture.Src.Empty() {
			text = conf.Capture.Src[0]
		}
		l.Warn().Println("capture driver is dummy, streaming placeholder frames")
		cd = dummy.NewDriver(text, &dummy.Options{
			Options: cos,
			Codec:   videoCodec,
		})
	default:
		return nil, fmt.Errorf("unknown capture driver: %s", conf.Capture.Type)
	}

	return cd, nil
}
