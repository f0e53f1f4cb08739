package main

import (
	"context"
	"github.com/allape/rein/config"
	"github.com/allape/rein/factory"
	"github.com/allape/rein/kvm"
	"github.com/allape/rein/kvm/keymouse/ydotool"
	"github.com/allape/rein/logger"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"net/http"
	"os/signal"
	"syscall"
	"time"
)

var log = logger.New("[main]")

type DriverStatus struct {
	Executable string     `json:"executable"`
	State      string     `json:"state"`
	Available  bool       `json:"available"`
	Path       string     `json:"path,omitempty"`
	Until      *time.Time `json:"until,omitempty"`
}

func driverStatus(resolver *ydotool.Resolver) DriverStatus {
	availability := resolver.Availability()
	status := DriverStatus{
		Executable: resolver.Executable(),
		State:      availability.State.String(),
		Available:  availability.State == ydotool.Available,
		Path:       availability.Path,
	}
	if availability.State == ydotool.Unavailable {
		status.Until = &availability.Until
	}
	return status
}

func Routes(ctx context.Context, engine *gin.Engine, conf config.Config, server *kvm.Server, resolver *ydotool.Resolver) {
	upgrader := websocket.Upgrader{}

	if conf.Websocket.Cors {
		engine.Use(cors.Default())
		upgrader.CheckOrigin = func(r *http.Request) bool {
			return true
		}
	}

	engine.GET(conf.Websocket.Path, func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Println("upgrade:", err)
			return
		}
		defer func() {
			_ = conn.Close()
		}()

		log.Println("viewer connected:", conn.RemoteAddr())
		err = server.HandleClient(ctx, Websocket2KVMClient(conn))
		if err != nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			log.Println("handle client:", err)
		}
		log.Println("viewer disconnected:", conn.RemoteAddr())
	})

	engine.GET("/driver", func(c *gin.Context) {
		c.JSON(http.StatusOK, driverStatus(resolver))
	})
}

func main() {
	conf, err := config.GetConfig()
	if err != nil {
		log.Fatalln("get config:", err)
	}

	captureDriver, err := factory.CaptureFromConfig(conf)
	if err != nil {
		log.Fatalln("capture from config:", err)
	}

	km, err := factory.KeyMouseFromConfig(conf)
	if err != nil {
		log.Fatalln("input driver from config:", err)
	}
	defer func() {
		_ = km.Close()
	}()

	server := kvm.New(captureDriver, km, kvm.Options{})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if !logger.IsVerbose() {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.LoggerWithWriter(logger.VerboseWriter()), gin.Recovery())
	Routes(ctx, engine, conf, server, factory.ResolverFromConfig(conf))

	go func() {
		log.Fatalln(engine.Run(conf.Websocket.Addr))
	}()

	log.Println("started at", conf.Websocket.Addr+conf.Websocket.Path)
	<-ctx.Done()
	log.Println("exiting")
}
