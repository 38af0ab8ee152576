package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"anotador/config"
	"anotador/internal/annotation"
	"anotador/internal/chat"
	"anotador/internal/project"
	"anotador/internal/session"
	"anotador/internal/viewer"
	"anotador/middleware"
	"anotador/pkg/logger"
	"anotador/socket"
)

func main() {
	// 1. Logger first: everything below reports through it.
	logger.Init()
	defer logger.Sync()

	// 2. Configuration from .env / process environment.
	cfg := config.Load()

	cedula := strings.TrimSpace(os.Getenv("LOGIN_CEDULA"))
	password := os.Getenv("LOGIN_PASSWORD")
	projectID := strings.TrimSpace(os.Getenv("PROJECT_ID"))
	if cedula == "" || password == "" || projectID == "" {
		logger.Sugar.Fatal("LOGIN_CEDULA, LOGIN_PASSWORD and PROJECT_ID must be set")
	}

	ctx := context.Background()

	// 3. Authenticate against the project API.
	sess, err := session.NewClient(cfg.APIBaseURL, cfg.RequestTimeout).Login(ctx, cedula, password)
	if err != nil {
		logger.Sugar.Fatalf("Login failed: %v", err)
	}
	logger.Sugar.Infof("Logged in as %s (%s)", sess.User.Name, sess.User.Role)

	// 4. Resolve the project's current document version.
	projects := project.NewClient(cfg.APIBaseURL, cfg.RequestTimeout)
	projects.Authenticate(sess.Token)
	proj, err := projects.Get(ctx, projectID)
	if err != nil {
		logger.Sugar.Fatalf("Failed to load project %s: %v", projectID, err)
	}
	file, err := proj.CurrentFile()
	if err != nil {
		logger.Sugar.Fatalf("Project %s has no current file: %v", projectID, err)
	}

	// 5. Pick the document source strategy by file type.
	var src viewer.Source
	if strings.EqualFold(file.FileType, "pdf") || strings.HasSuffix(strings.ToLower(file.FileName), ".pdf") {
		src = viewer.NewPDFSource(projects, file.FilePath)
	} else {
		src = viewer.NewHTMLFlowSource(projects, proj.ID, nil)
	}

	// 6. Open the document session with its annotation overlay.
	annotations := annotation.NewClient(cfg.APIBaseURL, cfg.RequestTimeout)
	annotations.Authenticate(sess.Token)
	store := annotation.NewStore(annotations)
	author := annotation.Author{ID: sess.User.ID, Name: sess.User.Name, Role: sess.User.Role}
	shell := viewer.NewShell(file.FileID, src, store, author, viewer.Options{
		ZoomMin:  cfg.ZoomMin,
		ZoomMax:  cfg.ZoomMax,
		ZoomStep: cfg.ZoomStep,
	})
	if err := shell.Open(ctx); err != nil {
		logger.Sugar.Fatalf("Failed to open document %s: %v", file.FileName, err)
	}
	defer shell.Close()
	logger.Sugar.Infof("Viewing %s (%d pages, %d annotations)",
		file.FileName, shell.Session().TotalPages, len(shell.Annotations()))

	// 7. Realtime channel: annotation refreshes and chat notifications.
	wsURL := middleware.WSAuthURL(cfg.WSBaseURL+"/ws/"+sess.User.ID, sess.Token)
	notifier := socket.NewNotifier(wsURL, cfg.PingInterval, cfg.ReconnectDelay)
	notifier.OnStateChange(func(connected bool) {
		if connected {
			logger.Sugar.Info("Realtime channel connected")
		} else {
			logger.Sugar.Warn("Realtime channel lost, reconnecting")
		}
	})
	shell.BindNotifier(notifier)

	if peer := strings.TrimSpace(os.Getenv("CHAT_PEER_ID")); peer != "" {
		chatClient := chat.NewClient(cfg.APIBaseURL, cfg.RequestTimeout)
		chatClient.Authenticate(sess.Token)
		unread := chat.NewUnread(sess.User.ID, peer, func(total int) {
			logger.Sugar.Infof("Unread messages from %s: %d", peer, total)
		})
		if msgs, err := chatClient.Messages(ctx, sess.User.ID, peer); err != nil {
			logger.Sugar.Warnf("Failed to load chat history with %s: %v", peer, err)
		} else {
			unread.Seed(msgs)
		}
		unread.Bind(notifier)
	}

	notifier.Start()
	defer notifier.Close()

	// 8. Run until interrupted.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar.Info("Shutting down")
}
