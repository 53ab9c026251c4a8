// dbcheck 检查数据库内容, 用于排查持久化问题
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/ashwinyue/docchat/internal/config"
	"github.com/ashwinyue/docchat/internal/database"
	"github.com/ashwinyue/docchat/internal/model"
	"github.com/ashwinyue/docchat/internal/repository"
	"github.com/ashwinyue/docchat/internal/vecstore"
)

func main() {
	configPath := flag.String("config", "./configs/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if _, err := os.Stat(cfg.Database.Path); os.IsNotExist(err) {
		fmt.Println("Database file does not exist.")
		return
	}

	db, err := database.New(cfg)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	repos := repository.NewRepositories(db.DB)

	sessions, err := repos.Chat.CountSessions()
	if err != nil {
		log.Fatalf("Error reading database: %v", err)
	}
	messages, err := repos.Chat.CountMessages()
	if err != nil {
		log.Fatalf("Error reading database: %v", err)
	}
	documents, err := repos.Knowledge.CountDocuments()
	if err != nil {
		log.Fatalf("Error reading database: %v", err)
	}

	fmt.Printf("Total sessions:  %d\n", sessions)
	fmt.Printf("Total messages:  %d\n", messages)
	fmt.Printf("Total documents: %d\n", documents)

	// 向量库可能尚未创建
	if store, err := vecstore.New(cfg.Vector.Dir); err == nil {
		defer store.Close()
		ctx := context.Background()
		if chunks, err := store.Count(ctx); err == nil {
			fmt.Printf("Total chunks:    %d\n", chunks)
		}
		if stats, err := store.Documents(ctx); err == nil && len(stats) > 0 {
			fmt.Println("Vector store documents:")
			for _, st := range stats {
				fmt.Printf("  %s: %d chunks\n", st.DocumentName, st.Chunks)
			}
		}
	}

	var recent []*model.ChatMessage
	if err := db.DB.Order("created_at DESC").Limit(5).Find(&recent).Error; err != nil {
		log.Fatalf("Error reading database: %v", err)
	}

	fmt.Println("Last 5 messages:")
	for _, msg := range recent {
		content := msg.Content
		if r := []rune(content); len(r) > 80 {
			content = string(r[:80]) + "..."
		}
		fmt.Printf("  [%s] %s %s: %s\n",
			msg.CreatedAt.Format("2006-01-02 15:04:05"), msg.SessionID[:8], msg.Role, content)
	}
}
