package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/joho/godotenv"

	"github.com/jose-valero/dynvoice-bot/internal/adapters/botlist"
	discordrouter "github.com/jose-valero/dynvoice-bot/internal/adapters/discord"
	"github.com/jose-valero/dynvoice-bot/internal/adapters/httpapi"
	"github.com/jose-valero/dynvoice-bot/internal/app/service"
	"github.com/jose-valero/dynvoice-bot/internal/infra/config"
	"github.com/jose-valero/dynvoice-bot/internal/infra/storage"
	"github.com/jose-valero/dynvoice-bot/internal/telemetry"
)

func main() {
	_ = godotenv.Load()
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg := config.Load()
	telemetry.Init()
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	// Stores
	st, err := storage.Open(ctx, storage.Options{
		Driver:      cfg.Store.Driver,
		DataDir:     cfg.Store.DataDir,
		DatabaseURL: cfg.Store.DatabaseURL,
		SQLitePath:  cfg.Store.SQLitePath,
	})
	if err != nil {
		log.Fatalf("stores: %v", err)
	}
	defer st.Close()
	log.Printf("✅ stores listos (%s)", cfg.Store.Driver)

	// Discord session
	auth := strings.TrimSpace(cfg.BotToken)
	if !strings.HasPrefix(strings.ToLower(auth), "bot ") {
		auth = "Bot " + auth
	}
	s, err := discordgo.New(auth)
	if err != nil {
		log.Fatal(err)
	}
	s.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildVoiceStates |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildPresences |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsMessageContent
	// hace falta para tener BeforeUpdate en los mensajes editados
	s.State.MaxMessageCount = 100

	// Services
	tasks := service.NewTasks()
	reporter := service.NewReporter(s, cfg.OwnerID, logger)
	rooms := service.NewVoiceRoomsService(service.VoiceRoomsDeps{
		Stores:    st,
		State:     s.State,
		REST:      s,
		Tasks:     tasks,
		VoiceSpam: service.NewVoiceGuard(st.Blacklist),
	})

	// Router
	r := discordrouter.NewRouter(discordrouter.Deps{
		State:         s.State,
		REST:          s,
		Stores:        st,
		Rooms:         rooms,
		TextSpam:      service.NewTextGuard(st.Blacklist),
		Reporter:      reporter,
		DefaultPrefix: cfg.DefaultPrefix,
		OwnerID:       cfg.OwnerID,
	})
	r.Handlers(s)

	if err := s.Open(); err != nil {
		log.Fatal(err)
	}
	defer s.Close()
	log.Printf("✅ Conectado como %s (%s)", s.State.User.Username, s.State.User.ID)

	// HTTP: healthz + metrics
	web := httpapi.New(func() httpapi.Status {
		guilds, _ := guildStats(s.State)
		return httpapi.Status{
			Ready:           s.DataReady,
			Guilds:          guilds,
			ManagedChannels: st.Channels.Len(),
		}
	})
	go func() {
		if err := web.Start(ctx, cfg.HTTPAddr); err != nil {
			log.Printf("[http] %v", err)
		}
	}()

	// Stats para discordbotlist.com
	if cfg.BotListAPIKey != "" {
		bl := botlist.New(cfg.BotListAPIKey, cfg.ClientID, botlist.WithTimeout(15*time.Second))
		go bl.Run(ctx, cfg.BotListInterval, func() botlist.Stats {
			guilds, users := guildStats(s.State)
			return botlist.Stats{Guilds: guilds, Users: users}
		})
	}

	// Esperar señal
	<-ctx.Done()
	log.Println("apagando...")

	waitCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if !tasks.Wait(waitCtx) {
		log.Println("[task] quedaron tareas sin terminar")
	}
}

func guildStats(state *discordgo.State) (guilds, users int) {
	state.RLock()
	defer state.RUnlock()
	for _, g := range state.Guilds {
		guilds++
		users += g.MemberCount
	}
	return guilds, users
}
