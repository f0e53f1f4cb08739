package main

import (
	"bytes"
	"github.com/allape/rein/combo"
	"github.com/allape/rein/config"
	"github.com/allape/rein/helper/placeholder"
	"github.com/allape/rein/kvm/codec"
	"github.com/allape/rein/mirror"
	"github.com/allape/rein/remote"
	"github.com/gin-gonic/gin"
	"net/http"
	"strconv"
)

const (
	WatermarkWidth  = 640
	WatermarkHeight = 360
	FrameQuality    = 80
)

// View serves the mirrored screen and the viewer state to a local browser.
type View struct {
	Client   *remote.Client
	Pipeline *mirror.Pipeline
	Canvas   *mirror.Canvas
	Machine  *combo.Machine
	Settings func() config.Settings
}

type Status struct {
	Status    string          `json:"status"`
	Connected bool            `json:"connected"`
	HasFrame  bool            `json:"hasFrame"`
	Mode      string          `json:"mode"`
	Combo     string          `json:"combo"`
	Stats     mirror.Stats    `json:"stats"`
	Settings  config.Settings `json:"settings"`
}

func (v *View) Status() Status {
	return Status{
		Status:    v.Client.Status().String(),
		Connected: v.Client.Connected(),
		HasFrame:  v.Pipeline.HasFrame(),
		Mode:      v.Machine.Mode().String(),
		Combo:     v.Machine.BufferText(),
		Stats:     v.Pipeline.Stats(),
		Settings:  v.Settings(),
	}
}

func (v *View) Routes(engine *gin.Engine) {
	engine.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, v.Status())
	})

	engine.GET("/frame.jpg", func(c *gin.Context) {
		maxWidth, _ := strconv.Atoi(c.Query("w"))

		buf := bytes.NewBuffer(nil)
		if v.Pipeline.HasFrame() {
			err := v.Canvas.EncodeJPEG(buf, maxWidth, FrameQuality)
			if err != nil {
				c.String(http.StatusInternalServerError, err.Error())
				return
			}
		} else {
			img, err := placeholder.Watermark(WatermarkWidth, WatermarkHeight, v.Client.Connected())
			if err != nil {
				c.String(http.StatusInternalServerError, err.Error())
				return
			}
			frame, err := (&codec.JPEGEncoder{Quality: FrameQuality}).Encode(img)
			if err != nil {
				c.String(http.StatusInternalServerError, err.Error())
				return
			}
			buf.Write(frame)
		}

		c.Header("Cache-Control", "no-store")
		c.Data(http.StatusOK, "image/jpeg", buf.Bytes())
	})
}
