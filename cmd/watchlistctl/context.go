package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/JonMunkholm/watchlist/internal/application"
	"github.com/JonMunkholm/watchlist/internal/config"
	"github.com/JonMunkholm/watchlist/internal/core"
	"github.com/JonMunkholm/watchlist/internal/store"
)

// cliUserAgent is recorded in audit entries written by this tool.
const cliUserAgent = "watchlistctl"

type commandContext struct {
	owner    string
	memory   bool
	logLevel string

	// openApp builds the application; tests replace it.
	openApp func(ctx context.Context, memory bool) (*application.App, error)

	appOnce sync.Once
	app     *application.App
	appErr  error
}

func newCommandContext() *commandContext {
	return &commandContext{openApp: openApplication}
}

func openApplication(ctx context.Context, memory bool) (*application.App, error) {
	if memory {
		cfg, err := config.LoadOffline()
		if err != nil {
			return nil, err
		}
		return application.NewWithStore(cfg, store.NewMemory())
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return application.New(ctx, cfg)
}

func (c *commandContext) ensureApp(ctx context.Context) (*application.App, error) {
	c.appOnce.Do(func() {
		c.app, c.appErr = c.openApp(ctx, c.memory)
	})
	return c.app, c.appErr
}

// withService runs fn with the service and the resolved owner ID.
func (c *commandContext) withService(ctx context.Context, fn func(ctx context.Context, svc *core.Service, ownerID string) error) error {
	ownerID, err := c.ownerID()
	if err != nil {
		return err
	}
	app, err := c.ensureApp(ctx)
	if err != nil {
		return err
	}
	defer c.close()

	ctx = core.ContextWithRequestMeta(ctx, core.RequestMeta{UserAgent: cliUserAgent})
	return fn(ctx, app.Service, ownerID)
}

func (c *commandContext) close() {
	if c.app != nil {
		c.app.Close()
	}
}

func (c *commandContext) ownerID() (string, error) {
	owner := strings.TrimSpace(c.owner)
	if owner == "" {
		owner = strings.TrimSpace(os.Getenv("WATCHLIST_OWNER"))
	}
	if owner == "" {
		return "", errors.New("owner is required: pass --owner or set WATCHLIST_OWNER")
	}
	id, err := uuid.Parse(owner)
	if err != nil {
		return "", fmt.Errorf("owner %q: invalid uuid", owner)
	}
	return id.String(), nil
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return ""
}
