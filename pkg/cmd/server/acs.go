package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo"
	"github.com/labstack/echo/middleware"
	nats "github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/fitlab/doorman/config"
	"github.com/fitlab/doorman/pkg/acs"
	"github.com/fitlab/doorman/pkg/api"
	"github.com/fitlab/doorman/pkg/broker"
	"github.com/fitlab/doorman/pkg/broker/mqttio"
	"github.com/fitlab/doorman/pkg/storage"
	"github.com/fitlab/doorman/pkg/storage/memory"
	"github.com/fitlab/doorman/pkg/storage/postgres"
)

const sweepInterval = 30 * time.Second

type acsServer struct {
	c *config.Config

	quitCh      chan bool
	doneCh      chan bool
	sweepStopCh chan struct{}

	nc    *nats.Conn
	bk    broker.Interface
	db    *sqlx.DB
	errCh chan error
}

func init() {
	formatter := &logrus.TextFormatter{
		FullTimestamp: true,
	}
	logrus.SetFormatter(formatter)

	// Output to stdout instead of the default stderr
	log.SetOutput(os.Stdout)

	log.SetLevel(log.InfoLevel)
}

func newACSServer(c *config.Config) (*acsServer, error) {
	s := &acsServer{
		c:           c,
		quitCh:      make(chan bool),
		doneCh:      make(chan bool),
		sweepStopCh: make(chan struct{}),
		errCh:       make(chan error, 1),
	}

	nc, err := nats.Connect(c.NATSServerURL,
		nats.DrainTimeout(10*time.Second),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			log.Error("nats error: ", err)
			s.errCh <- err
		}),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn("nats disconnected: ", err)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			log.Info("nats reconnected")
		}))
	if err != nil {
		return nil, err
	}
	s.nc = nc

	return s, nil
}

func (s *acsServer) newStore() (storage.Interface, error) {
	if s.c.DatabaseURL == "" {
		log.Warn("No database configured, using in-memory storage")
		return memory.NewStore(), nil
	}

	db, err := sqlx.Open("postgres", s.c.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	s.db = db

	return postgres.NewStore(db), nil
}

func (s *acsServer) Serve() {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(logger())

	store, err := s.newStore()
	if err != nil {
		log.Error("failed to setup storage: ", err)
		os.Exit(1)
	}

	bk, err := mqttio.New(&mqttio.Config{
		Host:           s.c.MQTTHost,
		Port:           s.c.MQTTPort,
		Username:       s.c.MQTTUsername,
		Password:       s.c.MQTTPassword,
		ClientID:       s.c.MQTTClientID,
		CAFile:         s.c.MQTTCAFile,
		CertFile:       s.c.MQTTCertFile,
		KeyFile:        s.c.MQTTKeyFile,
		KeepAlive:      time.Duration(s.c.MQTTKeepAlive) * time.Second,
		QoS:            byte(s.c.MQTTQoS),
		ReconnectDelay: time.Duration(s.c.MQTTReconnectDelay) * time.Second,
	})
	if err != nil {
		log.Error("failed to connect to MQTT broker: ", err)
		os.Exit(1)
	}
	s.bk = bk

	ackTimeout := time.Duration(s.c.AckTimeout) * time.Second

	// Wire the command pipeline
	events := acs.NewEventPublisher(s.nc)
	dispatcher := acs.NewDispatcher(store, bk, ackTimeout)
	builder := acs.NewBuilder(store, dispatcher)
	tracker := acs.NewTracker(store, ackTimeout+5*time.Second, 250*time.Millisecond)
	tokenSync := acs.NewTokenSync(store, builder)
	resyncer := acs.NewResyncer(store, builder, dispatcher, tracker, events)

	scheduleResync := func(deviceID int32, requestedBy string) {
		go func() {
			if err := resyncer.Resync(deviceID, requestedBy); err != nil {
				log.WithFields(log.Fields{
					"device_id":    deviceID,
					"requested_by": requestedBy,
				}).Error("resync failed: ", err)
			}
		}()
	}

	// Subscribe for incoming device messages
	processor := acs.NewProcessor(store, events, scheduleResync)
	if err := bk.Subscribe(acs.Subscriptions, processor.Process); err != nil {
		log.Error("failed to subscribe to device topics: ", err)
		os.Exit(1)
	}

	// Start the offline sweeper
	sweeper := acs.NewSweeper(store, events,
		time.Duration(s.c.DeviceOfflineAfter)*time.Second, sweepInterval)
	go sweeper.Run(s.sweepStopCh)

	// Register API endpoints
	apiHandler := api.NewHandler(s.nc, store, tokenSync, scheduleResync)
	apiHandler.RegisterRoutes(e)

	go func() {
		log.WithFields(log.Fields{
			"host": s.c.BindHost,
			"port": s.c.BindPort,
		}).Info("Starting server")

		if err := e.Start(fmt.Sprintf("%s:%d", s.c.BindHost, s.c.BindPort)); err != nil {
			e.Logger.Info("Shutting down the server")
		}
	}()

	// Wait until receiving the quit signal
	<-s.quitCh
	log.Info("Shutdown signal received")

	close(s.sweepStopCh)

	// Create a 10 second timeout context
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Shutdown the echo web server
	if err := e.Shutdown(ctx); err != nil {
		e.Logger.Error(err)
	}

	if s.db != nil {
		s.db.Close()
	}

	// We've done!
	s.doneCh <- true
}

// Logger returns a middleware that logs HTTP requests.
func logger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			res := c.Response()
			start := time.Now()

			var err error
			if err = next(c); err != nil {
				c.Error(err)
			}
			stop := time.Now()

			id := req.Header.Get(echo.HeaderXRequestID)
			if id == "" {
				id = res.Header().Get(echo.HeaderXRequestID)
			}
			reqSizeStr := req.Header.Get(echo.HeaderContentLength)
			if reqSizeStr == "" {
				reqSizeStr = "0"
			}
			reqSize, err := strconv.ParseInt(reqSizeStr, 10, 0)
			if err != nil {
				reqSize = -1
			}
			errMsg := ""
			if err != nil {
				errMsg = err.Error()
			}

			log.WithFields(log.Fields{
				"timestamp":     stop.Format(time.RFC3339),
				"id":            id,
				"remote_ip":     c.RealIP(),
				"host":          req.Host,
				"method":        req.Method,
				"uri":           req.RequestURI,
				"protocol":      req.Proto,
				"user_agent":    req.UserAgent(),
				"status":        res.Status,
				"status_text":   http.StatusText(res.Status),
				"referer":       req.Referer(),
				"error":         errMsg,
				"bytes_in":      reqSize,
				"bytes_out":     res.Size,
				"latency":       stop.Sub(start).Nanoseconds(),
				"latency_human": stop.Sub(start).String(),
			}).Infof("%s %s %s %d %s", req.Method, req.RequestURI, req.Proto,
				res.Status, strconv.FormatInt(res.Size, 10))

			return err
		}
	}
}

func (s *acsServer) Shutdown() {
	if s.bk != nil {
		s.bk.Close()
	}
	if s.nc != nil {
		s.nc.Drain()
	}

	// Send the quit signal to the server.Serve() routine
	s.quitCh <- true

	// Wait up to 10 seconds
	select {
	case <-s.doneCh:
		log.Info("Shutdown server successful")
	case <-time.After(10 * time.Second):
		log.Error("Shutdown server failed")
	}
}

func RunServeACS(c *config.Config) func(cmd *cobra.Command, args []string) {
	return func(cmd *cobra.Command, args []string) {
		s, err := newACSServer(c)
		if err != nil {
			log.Error("failed to create new server instance: ", err)
			os.Exit(1)
		}

		go s.Serve()

		// Wait for interrupt signal to gracefully shutdown the server
		quitCh := make(chan os.Signal, 1)
		signal.Notify(quitCh, os.Interrupt)
		<-quitCh

		// Shutdown the server
		s.Shutdown()
	}
}
