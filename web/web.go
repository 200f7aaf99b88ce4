// Package web provides the blog's HTTP server: routing, sessions, static assets, the like
// event hub and background job scheduling.
package web

import (
	"context"
	"embed"
	"errors"
	"io"
	"io/fs"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/postscript-blog/postscript/config"
	"github.com/postscript-blog/postscript/logger"
	"github.com/postscript-blog/postscript/util/common"
	"github.com/postscript-blog/postscript/util/random"
	"github.com/postscript-blog/postscript/web/cache"
	"github.com/postscript-blog/postscript/web/controller"
	"github.com/postscript-blog/postscript/web/job"
	"github.com/postscript-blog/postscript/web/locale"
	"github.com/postscript-blog/postscript/web/middleware"
	"github.com/postscript-blog/postscript/web/service"
	"github.com/postscript-blog/postscript/web/session"
	"github.com/postscript-blog/postscript/web/websocket"

	"github.com/gin-contrib/gzip"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/handlers"
	"github.com/robfig/cron/v3"
)

//go:embed assets
var assetsFS embed.FS

//go:embed translation/*
var i18nFS embed.FS

var startTime = time.Now()

const maxMultipartMemory = 8 << 20

type wrapAssetsFS struct {
	embed.FS
}

func (f *wrapAssetsFS) Open(name string) (fs.File, error) {
	file, err := f.FS.Open("assets/" + name)
	if err != nil {
		return nil, err
	}
	return &wrapAssetsFile{File: file}, nil
}

type wrapAssetsFile struct {
	fs.File
}

func (f *wrapAssetsFile) Stat() (fs.FileInfo, error) {
	info, err := f.File.Stat()
	if err != nil {
		return nil, err
	}
	return &wrapAssetsFileInfo{FileInfo: info}, nil
}

// wrapAssetsFileInfo gives embedded files the process start time so browsers can cache them.
type wrapAssetsFileInfo struct {
	fs.FileInfo
}

func (f *wrapAssetsFileInfo) ModTime() time.Time {
	return startTime
}

// Server is the blog web server with its hub, services and scheduled jobs.
type Server struct {
	httpServer *http.Server
	listener   net.Listener
	accessLog  *os.File

	hub         *websocket.Hub
	likeEvents  *service.LikeEventService
	authService *service.AuthService

	cron *cron.Cron

	ctx    context.Context
	cancel context.CancelFunc
}

// NewServer creates a new web server instance with a cancellable context.
func NewServer() *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{ctx: ctx, cancel: cancel}
}

// initServices loads translations, starts the hub and builds the shared services.
// The database and cache must already be initialized.
func (s *Server) initServices() error {
	if err := locale.InitLocalizer(i18nFS); err != nil {
		return err
	}
	s.hub = websocket.NewHub()
	go s.hub.Run()
	s.likeEvents = service.NewLikeEventService(s.hub)
	if s.authService == nil {
		notifier := service.NewNotifier(config.GetSMTPConfig())
		s.authService = service.NewAuthService(notifier, config.GetBaseURL())
	}
	return nil
}

func (s *Server) sessionStore() (*cache.RedisStore, error) {
	secret := config.GetSessionSecret()
	if secret == "" {
		logger.Warning("POSTSCRIPT_SESSION_SECRET is not set, sessions will not survive a restart")
		var err error
		if secret, err = random.Token(32); err != nil {
			return nil, err
		}
	}
	if cache.IsEmbedded() {
		logger.Warning("sessions are kept in the embedded redis and are lost on restart, set POSTSCRIPT_REDIS_ADDR to keep them")
	}
	store := cache.NewRedisStore(cache.GetClient(), []byte(secret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   config.GetSessionMaxAge() * 60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return store, nil
}

// initRouter initializes Gin, registers middleware, static assets and controllers and
// returns the configured engine.
func (s *Server) initRouter() (*gin.Engine, error) {
	if config.IsDebug() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.DefaultWriter = io.Discard
		gin.DefaultErrorWriter = io.Discard
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.Default()
	engine.MaxMultipartMemory = maxMultipartMemory

	// the socket must stay uncompressed
	engine.Use(gzip.Gzip(
		gzip.DefaultCompression,
		gzip.WithExcludedPaths([]string{"/ws"}),
	))
	store, err := s.sessionStore()
	if err != nil {
		return nil, err
	}
	engine.Use(sessions.Sessions(session.CookieName, store))
	engine.Use(session.WithRenewer(store))
	engine.Use(locale.LocalizerMiddleware())
	engine.Use(middleware.LoadPrincipal())

	if config.IsDebug() {
		engine.StaticFS("/assets", http.FS(os.DirFS("web/assets")))
	} else {
		engine.StaticFS("/assets", http.FS(&wrapAssetsFS{FS: assetsFS}))
	}
	engine.Static(strings.TrimSuffix(service.UploadURLPrefix, "/"), config.GetUploadDir())

	g := engine.Group("/")
	controller.NewAuthController(g, s.authService)
	controller.NewPostController(g, s.likeEvents)
	controller.NewProfileController(g)
	controller.NewWebSocketController(g, s.hub)

	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "msg": "Not found."})
	})

	return engine, nil
}

// withAccessLog wraps h with a combined-format access log when one is configured.
func (s *Server) withAccessLog(h http.Handler) (http.Handler, error) {
	path := config.GetAccessLogPath()
	if path == "" {
		return h, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	s.accessLog = f
	return handlers.CombinedLoggingHandler(f, h), nil
}

// startTask schedules background jobs.
func (s *Server) startTask() {
	if _, err := s.cron.AddJob("@hourly", job.NewClearResetTokensJob(s.authService)); err != nil {
		logger.Warning("add clear reset tokens job:", err)
	}
	if _, err := s.cron.AddJob("@daily", job.NewCleanUploadsJob()); err != nil {
		logger.Warning("add clean uploads job:", err)
	}
}

// Start initializes and starts the web server.
func (s *Server) Start() (err error) {
	defer func() {
		if err != nil {
			_ = s.Stop()
		}
	}()

	if err = s.initServices(); err != nil {
		return err
	}
	s.cron = cron.New(cron.WithLocation(time.Local))
	s.cron.Start()

	engine, err := s.initRouter()
	if err != nil {
		return err
	}

	listenAddr := net.JoinHostPort(config.GetListen(), strconv.Itoa(config.GetPort()))
	listener, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return err
	}
	logger.Info("Web server running HTTP on", listener.Addr())

	handler, err := s.withAccessLog(engine)
	if err != nil {
		return err
	}

	s.listener = listener
	s.httpServer = &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			logger.Error("web server stopped:", err)
		}
	}()

	s.startTask()
	return nil
}

// Stop shuts down the web server, the cron scheduler and the hub.
func (s *Server) Stop() error {
	s.cancel()
	if s.cron != nil {
		s.cron.Stop()
	}
	var err1, err2 error
	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err1 = s.httpServer.Shutdown(ctx)
	}
	if s.listener != nil {
		err2 = s.listener.Close()
		if errors.Is(err2, net.ErrClosed) {
			err2 = nil
		}
	}
	if s.hub != nil {
		s.hub.Stop()
	}
	var err3 error
	if s.accessLog != nil {
		err3 = s.accessLog.Close()
		s.accessLog = nil
	}
	return common.Combine(err1, err2, err3)
}
