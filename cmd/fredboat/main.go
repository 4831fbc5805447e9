package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/froghopperjacob/FredBoat/internal/adapter/gamepresenter"
	"github.com/froghopperjacob/FredBoat/internal/akinator"
	"github.com/froghopperjacob/FredBoat/internal/chatio"
	"github.com/froghopperjacob/FredBoat/internal/command"
	appcfg "github.com/froghopperjacob/FredBoat/internal/config"
	"github.com/froghopperjacob/FredBoat/internal/game"
	"github.com/froghopperjacob/FredBoat/internal/mal"
	"github.com/froghopperjacob/FredBoat/internal/msgcat"
	"github.com/froghopperjacob/FredBoat/internal/obslog"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("log init error: %v", err)
	}
	logger := obslog.L()

	catalog, err := msgcat.New(strings.TrimSpace(os.Getenv("MESSAGES_DIR")))
	if err != nil {
		logger.Fatal("catalog init error", zap.Error(err))
	}

	client := chatio.NewClient(cfg.ChatBaseURL)
	ws := chatio.NewWebSocket(cfg.ChatWSURL, 5, time.Second)
	ws.OnStateChange(func(state chatio.WebSocketState) {
		logger.Info("ws_state", zap.String("state", state.String()))
	})
	egress := chatio.NewEgress(egressMode(), false, client, ws, logger)

	akClient := akinator.NewClient(cfg.AkinatorBaseURL,
		akinator.WithTimeouts(akinator.Timeouts{Turn: cfg.AkinatorTimeout}),
		akinator.WithLogger(logger))

	registry := game.NewRegistry()
	binder := newSessionBinder()
	presenter := gamepresenter.New(catalog, logger)
	formatter := gamepresenter.NewFormatter(prefixProvider{prefix: cfg.BotPrefix})

	var coordOpts []game.CoordinatorOption
	coordOpts = append(coordOpts, game.WithCoordinatorLogger(logger))

	var stats *game.StatsStore
	if cfg.RedisURL != "" {
		stats, err = game.NewStatsStoreFromURL(cfg.RedisURL)
		if err != nil {
			logger.Fatal("stats init error", zap.Error(err))
		}
		coordOpts = append(coordOpts, game.WithRecorder(stats))
	}
	var repo *game.Repository
	if cfg.DatabaseURL != "" {
		repo, err = game.NewRepository(cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("repository init error", zap.Error(err))
		}
		coordOpts = append(coordOpts, game.WithArchiver(repo))
	}

	coordinator := game.NewCoordinator(registry, akClient, egress, presenter, binder, coordOpts...)

	reaper := game.NewReaper(registry, binder, cfg.SessionIdleTimeout, cfg.ReaperInterval, logger)
	if stats != nil {
		reaper.SetRecorder(stats)
	}
	if repo != nil {
		reaper.SetArchiver(repo)
	}
	rootCtx, rootCancel := context.WithCancel(context.Background())
	go reaper.Run(rootCtx)

	malClient := mal.NewClient(cfg.MALUser, cfg.MALPassword, mal.WithLogger(logger))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	shutdown := func() { sigCh <- syscall.SIGTERM }

	cmdReg := command.NewRegistry(permissionResolver())
	registerCommands(cmdReg, cfg, registry, coordinator, stats, repo, malClient, catalog, formatter, shutdown)

	ws.OnMessage(func(msg *chatio.Message) {
		if msg == nil || msg.Msg == "" {
			return
		}
		if len(cfg.AllowedRooms) > 0 && !roomAllowed(cfg.AllowedRooms, msg.Room) {
			return
		}
		// Never block the WS read loop on command handling or a game turn.
		go handleMessage(cfg, cmdReg, catalog, egress, coordinator, binder, msg)
	})

	cctx, cancel := context.WithTimeout(rootCtx, 10*time.Second)
	if err := ws.Connect(cctx); err != nil {
		cancel()
		logger.Fatal("ws connect error", zap.Error(err))
	}
	cancel()
	logger.Info("bot_started", zap.String("prefix", cfg.BotPrefix))
	<-sigCh

	rootCancel()
	_ = ws.Close(context.Background())
	if stats != nil {
		_ = stats.Close()
	}
	if repo != nil {
		_ = repo.Close()
	}
}

// handleMessage routes one inbound chat event: prefixed text goes through the
// command registry, bare text goes to the user's live game session if any.
func handleMessage(cfg *appcfg.AppConfig, reg *command.Registry, catalog *msgcat.Catalog, egress chatio.Egress, coordinator *game.Coordinator, binder *sessionBinder, msg *chatio.Message) {
	ctx := context.Background()
	text := strings.TrimSpace(msg.Msg)
	userID := userIDFromMessage(msg)

	if !strings.HasPrefix(text, cfg.BotPrefix) {
		if userID != "" && binder.Bound(userID) {
			coordinator.HandleMessage(ctx, userID, msg.Room, text)
		}
		return
	}

	raw := strings.TrimSpace(strings.TrimPrefix(text, cfg.BotPrefix))
	if raw == "" {
		return
	}
	parts := strings.Fields(raw)
	trigger := strings.ToLower(parts[0])
	args := parts[1:]

	cc := &command.Context{
		Ctx:       ctx,
		ChannelID: msg.Room,
		UserID:    userID,
		UserName:  senderName(msg),
		Prefix:    cfg.BotPrefix,
		Args:      args,
		RawArgs:   strings.TrimSpace(strings.TrimPrefix(raw, parts[0])),
		Reply: func(out string) {
			_ = egress.SendText(ctx, msg.Room, out)
		},
	}

	found, allowed := reg.Dispatch(cc, trigger)
	if !found {
		cc.Reply(render(catalog, "help.unknown", map[string]any{"Prefix": cfg.BotPrefix}, "Unknown command."))
		return
	}
	if !allowed {
		cc.Reply(render(catalog, "help.no_permission", nil, "You do not have permission to use that command."))
	}
}

func registerCommands(reg *command.Registry, cfg *appcfg.AppConfig, registry *game.Registry, coordinator *game.Coordinator, stats *game.StatsStore, repo *game.Repository, malClient *mal.Client, catalog *msgcat.Catalog, formatter *gamepresenter.Formatter, shutdown func()) {
	reg.Register("aki", command.Func(func(cc *command.Context) {
		if cc.UserID == "" {
			return
		}
		if err := coordinator.Start(cc.Ctx, cc.UserID, cc.ChannelID, cc.UserName); err != nil {
			obslog.L().Warn("aki_start_failed", zap.String("user", cc.UserID), zap.Error(err))
		}
	}), command.PermissionEveryone, command.CategoryFun, "akinator")

	if stats != nil {
		reg.Register("akistats", command.Func(func(cc *command.Context) {
			ps, err := stats.Snapshot(cc.Ctx, cc.UserID)
			if err != nil {
				obslog.L().Warn("stats_lookup_failed", zap.String("user", cc.UserID), zap.Error(err))
				cc.Reply(render(catalog, "aki.service_error", nil, "Stats are unavailable right now."))
				return
			}
			cc.Reply(formatter.Stats(cc.UserName, gamepresenter.ToDTOStats(ps)))
		}), command.PermissionEveryone, command.CategoryFun)
	}

	if repo != nil {
		reg.Register("akihistory", command.Func(func(cc *command.Context) {
			limit := 10
			if len(cc.Args) >= 1 {
				if n, err := strconv.Atoi(cc.Args[0]); err == nil && n > 0 {
					limit = n
				}
			}
			games, err := repo.RecentGames(cc.Ctx, cc.UserID, limit)
			if err != nil {
				obslog.L().Warn("history_lookup_failed", zap.String("user", cc.UserID), zap.Error(err))
				cc.Reply(render(catalog, "aki.service_error", nil, "History is unavailable right now."))
				return
			}
			cc.Reply(formatter.History(cc.UserName, gamepresenter.ToDTOGames(games)))
		}), command.PermissionEveryone, command.CategoryFun, "akigames")
	}

	reg.Register("mal", malCommand(malClient, catalog), command.PermissionEveryone, command.CategoryUtil)

	// Static replies.
	reg.Register("lenny", command.NewTextCommand("( ͡° ͜ʖ ͡°)"), command.PermissionEveryone, command.CategoryMemes)
	reg.Register("shrug", command.NewTextCommand(`¯\_(ツ)_/¯`), command.PermissionEveryone, command.CategoryMemes)
	reg.Register("akinatorpic", command.NewRemoteFileCommand("https://fred.moe/aki.png"), command.PermissionEveryone, command.CategoryMemes, "akipic")

	// Maintenance set, hidden from regular users.
	reg.Register("sessions", command.Func(func(cc *command.Context) {
		cc.Reply(fmt.Sprintf("%d live game sessions.", registry.Len()))
	}), command.PermissionAdmin, command.CategoryMaintenance)
	reg.Register("shutdown", command.Func(func(cc *command.Context) {
		obslog.L().Info("shutdown_requested", zap.String("user", cc.UserID))
		cc.Reply("Shutting down.")
		shutdown()
	}), command.PermissionOwner, command.CategoryMaintenance, "exit")

	reg.Register("commands", command.Func(func(cc *command.Context) {
		cc.Reply(listCommands(reg, cfg, catalog, cc.UserID))
	}), command.PermissionEveryone, command.CategoryUtil, "comms")

	reg.Register("help", command.Func(func(cc *command.Context) {
		if len(cc.Args) >= 1 {
			if text, ok := reg.Help(cc.Args[0], cc.Prefix); ok {
				cc.Reply(text)
				return
			}
		}
		cc.Reply(listCommands(reg, cfg, catalog, cc.UserID))
	}), command.PermissionEveryone, command.CategoryUtil)
}

// listCommands hides every command above the invoker's level, so regular
// users never see the maintenance set.
func listCommands(reg *command.Registry, cfg *appcfg.AppConfig, catalog *msgcat.Catalog, userID string) string {
	level := reg.LevelFor(userID)
	sections := []struct {
		key      string
		category command.Category
	}{
		{"commands.fun", command.CategoryFun},
		{"commands.memes", command.CategoryMemes},
		{"commands.util", command.CategoryUtil},
		{"commands.maintenance", command.CategoryMaintenance},
	}
	var b strings.Builder
	for _, s := range sections {
		names := reg.Names(s.category, level)
		if len(names) == 0 {
			continue
		}
		b.WriteString(render(catalog, s.key, nil, ""))
		b.WriteString(strings.Join(names, ", "))
		b.WriteString("\n")
	}
	b.WriteString(render(catalog, "commands.footer", map[string]any{"Prefix": cfg.BotPrefix}, ""))
	return b.String()
}

func malCommand(client *mal.Client, catalog *msgcat.Catalog) command.Command {
	return command.Func(func(cc *command.Context) {
		term := strings.TrimSpace(cc.RawArgs)
		if term == "" {
			cc.Reply(render(catalog, "help.mal", map[string]any{"Prefix": cc.Prefix}, "Usage: mal <search-term>"))
			return
		}
		res, err := client.Lookup(cc.Ctx, term)
		if err != nil {
			cc.Reply(render(catalog, "mal.no_results", map[string]any{"Name": cc.UserName}, cc.UserName+": No results."))
			return
		}
		if res.Anime != nil {
			cc.Reply(renderAnime(catalog, cc.UserName, res.Anime))
			return
		}
		cc.Reply(renderUser(catalog, cc.UserName, res.User))
	})
}

// renderAnime builds the reply field by field, skipping whatever the API left
// blank, the way the original reveal message grows.
func renderAnime(catalog *msgcat.Catalog, userName string, a *mal.Anime) string {
	header := render(catalog, "mal.anime_reveal", map[string]any{"Name": userName}, userName+" has requested me to reveal an anime!")
	msg := render(catalog, "mal.anime", map[string]any{"Header": header, "Title": a.Title}, header+"\nTitle: "+a.Title)
	if a.English != "" {
		msg += render(catalog, "mal.english_title", map[string]any{"English": a.English}, "")
	}
	if a.Synonyms != "" {
		msg += render(catalog, "mal.synonyms", map[string]any{"Synonyms": a.Synonyms}, "")
	}
	if a.Episodes != "" {
		msg += render(catalog, "mal.episodes", map[string]any{"Episodes": a.Episodes}, "")
	}
	if a.Score != "" {
		msg += render(catalog, "mal.score", map[string]any{"Score": a.Score}, "")
	}
	if a.Type != "" {
		msg += render(catalog, "mal.type", map[string]any{"Type": a.Type}, "")
	}
	if a.Status != "" {
		msg += render(catalog, "mal.status", map[string]any{"Status": a.Status}, "")
	}
	if line := a.SynopsisLine(); line != "" {
		msg += render(catalog, "mal.synopsis", map[string]any{"Synopsis": line}, "")
	}
	if url := a.URL(); url != "" {
		msg += "\n" + url
	}
	return msg
}

func renderUser(catalog *msgcat.Catalog, userName string, u *mal.User) string {
	header := render(catalog, "mal.user_reveal", map[string]any{"Name": userName}, userName+" has requested me to reveal a user!")
	msg := render(catalog, "mal.user", map[string]any{"Header": header, "UserName": u.Name, "URL": u.URL}, header+"\nName: "+u.Name+"\n"+u.URL)
	if u.ImageURL != "" {
		msg += "\n" + u.ImageURL
	}
	return msg
}

func render(catalog *msgcat.Catalog, key string, data map[string]any, fallback string) string {
	out, err := catalog.Render(key, data)
	if err != nil {
		return fallback
	}
	return out
}

// sessionBinder tracks which users currently have a live game so bare (non
// prefixed) messages can be routed to the coordinator. Bound on session
// start, unbound on termination and on reaper eviction.
type sessionBinder struct {
	mu    sync.RWMutex
	users map[string]struct{}
}

func newSessionBinder() *sessionBinder {
	return &sessionBinder{users: make(map[string]struct{})}
}

func (b *sessionBinder) Bind(userID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.users[userID] = struct{}{}
	return nil
}

func (b *sessionBinder) Unbind(userID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.users, userID)
	return nil
}

func (b *sessionBinder) Bound(userID string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.users[userID]
	return ok
}

func permissionResolver() command.PermissionResolver {
	owner := strings.TrimSpace(os.Getenv("BOT_OWNER_ID"))
	admins := map[string]struct{}{}
	for _, a := range strings.Split(os.Getenv("BOT_ADMIN_IDS"), ",") {
		if s := strings.TrimSpace(a); s != "" {
			admins[s] = struct{}{}
		}
	}
	return func(userID string) command.PermissionLevel {
		if owner != "" && userID == owner {
			return command.PermissionOwner
		}
		if _, ok := admins[userID]; ok {
			return command.PermissionAdmin
		}
		return command.PermissionEveryone
	}
}

func egressMode() string {
	mode := strings.ToLower(strings.TrimSpace(os.Getenv("EGRESS_MODE")))
	switch mode {
	case "http", "ws", "auto":
		return mode
	default:
		return "auto"
	}
}

func roomAllowed(allowed []string, room string) bool {
	for _, r := range allowed {
		if r == room {
			return true
		}
	}
	return false
}

func userIDFromMessage(msg *chatio.Message) string {
	if msg.JSON != nil && msg.JSON.UserID != "" {
		return msg.JSON.UserID
	}
	if msg.Sender != nil {
		return strings.TrimSpace(*msg.Sender)
	}
	return ""
}

func senderName(msg *chatio.Message) string {
	if msg.Sender != nil && strings.TrimSpace(*msg.Sender) != "" {
		return strings.TrimSpace(*msg.Sender)
	}
	if msg.JSON != nil && strings.TrimSpace(msg.JSON.UserID) != "" {
		return strings.TrimSpace(msg.JSON.UserID)
	}
	return "player"
}

type prefixProvider struct{ prefix string }

func (p prefixProvider) Prefix() string { return p.prefix }
