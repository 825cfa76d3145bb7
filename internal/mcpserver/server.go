package mcpserver

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/mark3labs/mcp-go/server"

	"github.com/apresai/polycast/internal/config"
	"github.com/apresai/polycast/internal/pipeline"
	"github.com/apresai/polycast/internal/service"
	"github.com/apresai/polycast/internal/storage"
	"github.com/apresai/polycast/internal/store"
)

const (
	serverName    = "polycast"
	serverVersion = "1.0.0"
)

// Server is the MCP server for multi-language podcast audio.
type Server struct {
	cfg      config.Config
	mcp      *server.MCPServer
	tasks    *TaskManager
	closeTTS func() error
	log      *slog.Logger
}

// New loads secrets, creates AWS clients, and registers the tools. baseCtx
// is cancelled on SIGTERM and bounds every background task.
func New(baseCtx context.Context, cfg config.Config, logger *slog.Logger) (*Server, error) {
	awsCfg, err := cfg.AWSConfig(baseCtx)
	if err != nil {
		return nil, err
	}

	cfg.LoadSecrets(baseCtx, secretsmanager.NewFromConfig(awsCfg), logger)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.S3Bucket == "" {
		return nil, fmt.Errorf("S3_BUCKET environment variable is required")
	}

	p, closeTTS, err := pipeline.FromConfig(baseCtx, cfg, &awsCfg, nil, logger)
	if err != nil {
		return nil, err
	}

	podcasts := store.NewStore(dynamodb.NewFromConfig(awsCfg), cfg.TableName)
	audio := storage.NewStorage(s3.NewFromConfig(awsCfg), cfg.S3Bucket, cfg.CDNBaseURL)
	publisher := service.NewPublisher(p, audio, podcasts, logger)
	tasks := NewTaskManager(baseCtx, publisher, podcasts, cfg.TTSProvider, cfg.MaxTasks, logger)

	return &Server{
		cfg:      cfg,
		mcp:      newMCPServer(NewHandlers(tasks, podcasts, logger)),
		tasks:    tasks,
		closeTTS: closeTTS,
		log:      logger,
	}, nil
}

func newMCPServer(h *Handlers) *server.MCPServer {
	s := server.NewMCPServer(serverName, serverVersion, server.WithToolCapabilities(true))
	tools := ToolDefs()
	s.AddTool(tools[0], h.HandleGeneratePodcastAudio)
	s.AddTool(tools[1], h.HandleGetPodcast)
	s.AddTool(tools[2], h.HandleListPodcasts)
	return s
}

// Start runs the HTTP MCP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.log.Info("Starting MCP server", "addr", addr)

	httpServer := server.NewStreamableHTTPServer(s.mcp,
		server.WithStateLess(true),
	)
	return httpServer.Start(addr)
}

// Tasks exposes the task manager for graceful shutdown.
func (s *Server) Tasks() *TaskManager { return s.tasks }

// Close releases the TTS provider.
func (s *Server) Close() error { return s.closeTTS() }
