// Package cli implements the interactive field-client shell: enrollment,
// offline capture, and sync commands on top of the engine.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/dmitrijs2005/fieldsync/internal/client/client"
	"github.com/dmitrijs2005/fieldsync/internal/client/config"
	"github.com/dmitrijs2005/fieldsync/internal/client/services"
	"github.com/dmitrijs2005/fieldsync/internal/client/store"
	"github.com/dmitrijs2005/fieldsync/internal/cryptox"
	"github.com/dmitrijs2005/fieldsync/internal/logging"

	_ "modernc.org/sqlite"
)

type App struct {
	config   *config.Config
	log      logging.Logger
	crypto   *cryptox.Provider
	api      *client.HTTPClient
	store    *store.EncryptedStore
	engine   *services.Engine
	auth     *services.AuthService
	reader   *bufio.Reader
	userName string
}

func NewApp(cfg *config.Config, log logging.Logger) (*App, error) {
	ctx := context.Background()

	repos, err := client.InitDatabase(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("error initializing database: %w", err)
	}

	crypto := cryptox.NewProvider(cfg.KeyFile)
	api := client.NewHTTPClient(cfg.ServerBaseURL, cfg.HTTPTimeout, log)
	st := store.NewEncryptedStore(crypto, repos)

	return &App{
		config: cfg,
		log:    log,
		crypto: crypto,
		api:    api,
		store:  st,
		engine: services.NewEngine(st, api, log),
		auth:   services.NewAuthService(st, api, crypto, log),
		reader: bufio.NewReader(os.Stdin),
	}, nil
}

func (a *App) Run(ctx context.Context) {
	defer a.api.Close()

	go a.engine.StartOnlineWatcher(ctx, a.config.OnlineCheckInterval)
	go a.printEvents(ctx)

	a.Root(ctx)
}

func (a *App) isLoggedIn() bool {
	return a.crypto.Initialized()
}

// printEvents relays engine events to the terminal so the user sees sync
// progress and connectivity changes as they happen.
func (a *App) printEvents(ctx context.Context) {
	events, unsubscribe := a.engine.Subscribe()
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			switch ev.Type {
			case services.EventOnline:
				fmt.Println("* server reachable")
			case services.EventOffline:
				fmt.Println("* server unreachable, working offline")
			case services.EventSyncComplete:
				if ev.Summary != nil {
					fmt.Printf("* sync finished: %d total, %d synced, %d failed, %d conflicts\n",
						ev.Summary.Total, ev.Summary.Synced, ev.Summary.Failed, ev.Summary.Conflicts)
				}
			case services.EventConflictDetected:
				fmt.Printf("* conflict detected on %s (see 'conflicts')\n", ev.LocalID)
			}
		}
	}
}
