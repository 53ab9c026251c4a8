package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/ashwinyue/docchat/internal/config"
	"github.com/ashwinyue/docchat/internal/database"
	"github.com/ashwinyue/docchat/internal/handler"
	"github.com/ashwinyue/docchat/internal/repository"
	"github.com/ashwinyue/docchat/internal/router"
	"github.com/ashwinyue/docchat/internal/service"
	"github.com/ashwinyue/docchat/internal/service/callback"
	"github.com/ashwinyue/docchat/internal/service/watcher"
	"github.com/ashwinyue/docchat/internal/vecstore"
)

func main() {
	// .env 缺失时忽略
	_ = godotenv.Load()

	// 加载配置
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	// 设置 Gin 模式
	gin.SetMode(cfg.Server.Mode)

	// Eino 执行日志
	callback.Register(cfg.App.Debug)

	// 初始化数据库
	db, err := database.New(cfg)
	if err != nil {
		log.Fatalf("Failed to init database: %v", err)
	}
	defer db.Close()

	log.Printf("Database connected: %s", cfg.Database.Path)

	// 初始化向量库
	store, err := vecstore.New(cfg.Vector.Dir)
	if err != nil {
		log.Fatalf("Failed to init vector store: %v", err)
	}
	defer store.Close()

	// 工作目录
	for _, dir := range []string{cfg.Ingest.UploadDir, cfg.Ingest.InboxDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatalf("Failed to create directory %s: %v", dir, err)
		}
	}

	// 初始化各层
	repos := repository.NewRepositories(db.DB)
	services, err := service.NewServices(repos, cfg, store)
	if err != nil {
		log.Fatalf("Failed to init services: %v", err)
	}
	handlers := handler.NewHandlers(services, db)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 收件目录监听, 启动时先补扫一遍存量文件
	if cfg.Ingest.WatchInbox {
		if n, err := services.Knowledge.IngestDir(ctx, cfg.Ingest.InboxDir); err != nil {
			log.Printf("Warning: inbox scan failed: %v", err)
		} else if n > 0 {
			log.Printf("Ingested %d document(s) from inbox", n)
		}

		w, err := watcher.New(cfg.Ingest.InboxDir, services.Knowledge)
		if err != nil {
			log.Fatalf("Failed to init inbox watcher: %v", err)
		}
		defer w.Close()

		go func() {
			if err := w.Start(ctx); err != nil {
				log.Printf("Warning: inbox watcher stopped: %v", err)
			}
		}()
	}

	// 初始化路由
	r := router.SetupRouter(handlers)

	// 创建 HTTP 服务器
	srv := &http.Server{
		Addr:         cfg.Server.GetAddr(),
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// 启动服务器
	go func() {
		log.Printf("Server starting on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	cancel()

	// 优雅关闭
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
