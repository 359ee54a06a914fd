package main

import (
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"git.fiblab.net/sim/pathtype/pathtype"
	easy "git.fiblab.net/utils/logrus-easy-formatter"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

var (
	// 配置信息
	mongoURI     = flag.String("mongo_uri", "", "mongo db uri")
	skimsPathStr = flag.String("skims", "", "skims file or database and collection [format: {fspath} or {db}.{col}]")
	configPath   = flag.String("config", "", "engine config yaml file (empty means defaults)")
	cacheDir     = flag.String("cache", "", "input cache dir path (empty means disable cache)")
	grpcEndpoint = flag.String("listen", "localhost:52103", "connect listening address")
	logLevel     = flag.String("log-level", "info", "log level [debug, info, warn, error, fatal, panic]")
	workers      = flag.Int("workers", runtime.NumCPU(), "max concurrent evaluations in one batch request")
	seed         = flag.Int64("seed", 0, "base seed for random path type selection")

	// 性能测试
	benchmark = flag.Bool("benchmark", false, "benchmark mode")
	pprofAddr = flag.String("pprof", "", "pprof listening address (empty means disable)")

	LOG_LEVELS = map[string]logrus.Level{
		"debug": logrus.DebugLevel,
		"info":  logrus.InfoLevel,
		"warn":  logrus.WarnLevel,
		"error": logrus.ErrorLevel,
		"fatal": logrus.FatalLevel,
		"panic": logrus.PanicLevel,
	}
)

func main() {
	logrus.SetFormatter(&easy.Formatter{
		TimestampFormat: "2006-01-02 15:04:05.0000",
		LogFormat:       "[%module%] [%time%] [%lvl%] %msg%\n",
	})
	flag.Parse()
	if level, ok := LOG_LEVELS[*logLevel]; ok {
		logrus.SetLevel(level)
	} else {
		logrus.Fatalf("invalid log level: %s", *logLevel)
	}

	cfg := pathtype.DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = pathtype.LoadConfig(*configPath); err != nil {
			log.Fatalf("invalid config %s: %v", *configPath, err)
		}
	}
	skimsPath, err := NewPath(*skimsPathStr)
	if err != nil {
		log.Fatalf("invalid skims path: %s", err)
	}
	store, err := LoadSkims(*mongoURI, skimsPath, *cacheDir, cfg.LengthUnitsPerDistanceUnit)
	if err != nil {
		log.Fatalf("failed to load skims: %v", err)
	}
	// 启动路径类型服务
	server, err := NewPathTypeServer(cfg, store, *workers, *seed)
	if err != nil {
		log.Fatalf("failed to create server: %v", err)
	}

	if *pprofAddr != "" {
		// 启动pprof
		startHTTPDebugger(*pprofAddr)
	}

	if *benchmark {
		// 性能测试
		runBenchmark(server)
		return
	}

	// 启动tcp监听和初始化connect服务端
	mux := http.NewServeMux()
	mux.Handle(NewPathTypeServiceHandler(server))

	// 使用HTTP/2 w.o. TLS
	s := &http.Server{
		Addr:    *grpcEndpoint,
		Handler: h2c.NewHandler(mux, &http2.Server{}),
	}

	// 优雅退出
	signalCh := make(chan os.Signal, 1)
	// 监听指定信号 ctrl+c kill
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-signalCh
		log.Info("stopping...")
		go func() {
			<-signalCh
			os.Exit(1) // 强制结束
		}()
		server.Close()
		s.Close()
	}()

	log.Infof("server listening at %v", s.Addr)
	if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("failed to serve: %v", err)
	}
	time.Sleep(1 * time.Second) // 延迟等待"优雅退出"
	log.Info("pathtype closes")
}
