package main

import (
	"context"
	"github.com/allape/rein/combo"
	"github.com/allape/rein/config"
	"github.com/allape/rein/logger"
	"github.com/allape/rein/mirror"
	"github.com/allape/rein/remote"
	"github.com/gin-gonic/gin"
	"os"
	"os/signal"
	"syscall"
)

var (
	log        = logger.New("[viewer]")
	verboseLog = logger.NewVerboseLogger("[viewer]")
)

func main() {
	conf, err := config.GetConfig()
	if err != nil {
		log.Fatalln("get config:", err)
	}

	watcher := config.NewWatcher(config.Path(os.Args), conf.Settings)
	watcher.OnChange(func(settings config.Settings) {
		log.Printf("settings reloaded: %+v", settings)
	})
	err = watcher.Open()
	if err != nil {
		log.Println("watch config, settings will not reload:", err)
	}
	defer func() {
		_ = watcher.Close()
	}()

	client := remote.New(conf.Viewer.Server)
	canvas := mirror.NewCanvas()
	pipeline := mirror.New(
		mirror.NewImageDecoder(),
		mirror.NewTimerScheduler(conf.Viewer.FrameRate),
		canvas,
		client,
	)

	client.OnFrame = func(frame []byte) {
		pipeline.OnRawFrame(frame)
	}
	client.OnStatus(func(status remote.Status) {
		switch status {
		case remote.Connected:
			pipeline.Start()
		case remote.Disconnected:
			pipeline.Stop()
		}
	})

	machine := combo.New(client)
	console := NewConsole(machine, client, watcher.Settings)

	if !logger.IsVerbose() {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.LoggerWithWriter(logger.VerboseWriter()), gin.Recovery())
	view := &View{
		Client:   client,
		Pipeline: pipeline,
		Canvas:   canvas,
		Machine:  machine,
		Settings: watcher.Settings,
	}
	view.Routes(engine)

	go func() {
		log.Fatalln(engine.Run(conf.Viewer.Addr))
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	err = client.Connect(ctx)
	if err != nil {
		log.Println("connect to", conf.Viewer.Server+":", err)
	}

	go func() {
		err := console.Run(ctx, os.Stdin)
		if err != nil {
			log.Println("console:", err)
		}
	}()

	log.Println("started, view at", conf.Viewer.Addr)

	select {
	case <-ctx.Done():
		log.Println("exiting")
	case <-client.Done():
		log.Println("disconnected from host, exiting")
	}

	pipeline.Stop()
	_ = client.Close()
}
