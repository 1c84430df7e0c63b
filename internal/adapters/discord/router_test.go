package discord

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/jose-valero/dynvoice-bot/internal/app/service"
	"github.com/jose-valero/dynvoice-bot/internal/domain"
	"github.com/jose-valero/dynvoice-bot/internal/infra/storage"
	"github.com/jose-valero/dynvoice-bot/internal/testutil"
)

const (
	ownerUser  = "1" // dueño del guild en el fixture
	plainUser  = "2"
	textChanID = "30"
)

type routerHarness struct {
	fx   *testutil.Fixture
	st   *storage.Stores
	fake *testutil.FakeDiscord
	r    *Router
}

func newRouterHarness(t *testing.T) *routerHarness {
	t.Helper()
	st, err := storage.OpenStores(context.Background(), storage.NewMemoryBackend())
	if err != nil {
		t.Fatalf("open stores: %v", err)
	}
	fx := testutil.NewFixture()
	fx.Category("10", "Rooms")
	fx.Text(textChanID, "general", "10")
	fx.Member(ownerUser, "Owner")
	fx.Member(plainUser, "Plain")

	fake := testutil.NewFakeDiscord()
	rooms := service.NewVoiceRoomsService(service.VoiceRoomsDeps{Stores: st, State: fx.State, REST: fake})
	r := NewRouter(Deps{
		State:         fx.State,
		REST:          fake,
		Stores:        st,
		Rooms:         rooms,
		DefaultPrefix: "dv!",
	})
	return &routerHarness{fx: fx, st: st, fake: fake, r: r}
}

// say manda un mensaje al canal de texto como userID.
func (h *routerHarness) say(userID, content string) {
	h.r.HandleMessage(&discordgo.Message{
		ID:        "m-" + content,
		GuildID:   testutil.GuildID,
		ChannelID: textChanID,
		Content:   content,
		Author:    &discordgo.User{ID: userID},
	})
}

func (h *routerHarness) replies() []string {
	var out []string
	for _, s := range h.fake.Calls().Sent {
		if s.Embed != nil {
			out = append(out, "embed:"+s.Embed.Title)
			continue
		}
		out = append(out, s.Content)
	}
	return out
}

func (h *routerHarness) lastReply(t *testing.T) string {
	t.Helper()
	rs := h.replies()
	if len(rs) == 0 {
		t.Fatalf("no replies")
	}
	return rs[len(rs)-1]
}

func TestIgnoresNonCommands(t *testing.T) {
	t.Parallel()
	h := newRouterHarness(t)

	h.say(plainUser, "hello there")
	h.say(plainUser, "dv!doesnotexist")
	h.say(plainUser, "dv!")
	h.r.HandleMessage(&discordgo.Message{GuildID: testutil.GuildID, ChannelID: textChanID, Content: "dv!ping", Author: &discordgo.User{ID: "77", Bot: true}})
	h.r.HandleMessage(&discordgo.Message{ChannelID: "dm", Content: "dv!ping", Author: &discordgo.User{ID: plainUser}})

	if got := h.replies(); len(got) != 0 {
		t.Fatalf("unexpected replies: %v", got)
	}
}

func TestPrefixIsCaseInsensitive(t *testing.T) {
	t.Parallel()
	h := newRouterHarness(t)

	h.say(plainUser, "DV!PING")
	if got := h.lastReply(t); got != "🏓 Pong!" {
		t.Fatalf("reply = %q", got)
	}
}

func TestBlacklistedUserIsIgnored(t *testing.T) {
	t.Parallel()
	h := newRouterHarness(t)
	h.st.Blacklist.Append(plainUser)

	h.say(plainUser, "dv!ping")
	if got := h.replies(); len(got) != 0 {
		t.Fatalf("blacklisted user got replies: %v", got)
	}
}

func TestSkipsChannelsWhereBotCannotSend(t *testing.T) {
	t.Parallel()
	h := newRouterHarness(t)
	ch := h.fx.Text("31", "read-only", "10")
	h.fx.State.Lock()
	ch.PermissionOverwrites = []*discordgo.PermissionOverwrite{{
		ID: testutil.GuildID, Type: discordgo.PermissionOverwriteTypeRole, Deny: discordgo.PermissionSendMessages,
	}}
	h.fx.State.Unlock()

	h.r.HandleMessage(&discordgo.Message{GuildID: testutil.GuildID, ChannelID: "31", Content: "dv!ping", Author: &discordgo.User{ID: plainUser}})
	if got := h.replies(); len(got) != 0 {
		t.Fatalf("replied in a read-only channel: %v", got)
	}
}

func TestTextSpamGetsRetryNotice(t *testing.T) {
	t.Parallel()
	h := newRouterHarness(t)

	for i := 0; i < 9; i++ {
		h.say(plainUser, "dv!ping")
	}
	rs := h.replies()
	if len(rs) != 9 {
		t.Fatalf("replies = %d, want 9", len(rs))
	}
	for _, r := range rs[:8] {
		if r != "🏓 Pong!" {
			t.Fatalf("reply = %q", r)
		}
	}
	if !strings.HasPrefix(rs[8], "You are being rate limited. Try again in `") {
		t.Fatalf("9th reply = %q", rs[8])
	}
	if n, ok := h.r.spam.Violations(plainUser); !ok || n != 1 {
		t.Fatalf("violations = %d/%v", n, ok)
	}
}

func TestSettingsRequireManageChannels(t *testing.T) {
	t.Parallel()
	h := newRouterHarness(t)
	h.fx.Voice("20", "Join", "10")
	if err := h.st.SetVoiceConfig("20", domain.DefaultVoiceConfig()); err != nil {
		t.Fatal(err)
	}

	h.say(plainUser, "dv!limit <#20> 5")
	if got := h.lastReply(t); !strings.Contains(got, "Manage Channels") {
		t.Fatalf("reply = %q", got)
	}
	cfg, _, _ := h.st.VoiceConfig("20")
	if cfg.UserLimit != 0 {
		t.Fatalf("limit changed by unprivileged user: %+v", cfg)
	}
}

func TestCreateAndConfigureTrigger(t *testing.T) {
	t.Parallel()
	h := newRouterHarness(t)
	h.fx.Category("11", "Gaming Rooms")

	h.say(ownerUser, "dv!create @game with @user")
	created := h.fake.Calls().Created
	if len(created) != 1 {
		t.Fatalf("created = %d", len(created))
	}
	trig := created[0]
	if trig.Type != discordgo.ChannelTypeGuildVoice || trig.ParentID != "10" {
		t.Fatalf("trigger = %+v", trig)
	}
	if h.st.Channels.Contains(trig.ID) {
		t.Fatalf("trigger must not be a managed channel")
	}

	mention := "<#" + trig.ID + ">"
	h.say(ownerUser, "dv!limit "+mention+" 5")
	h.say(ownerUser, "dv!top "+trig.ID+" on")
	h.say(ownerUser, "dv!category "+mention+" gaming rooms")

	cfg, ok, err := h.st.VoiceConfig(trig.ID)
	if err != nil || !ok {
		t.Fatalf("config: ok=%v err=%v", ok, err)
	}
	want := domain.VoiceConfig{NameTemplate: "@game with @user", UserLimit: 5, MoveToTop: true, CategoryID: "11"}
	if cfg != want {
		t.Fatalf("config = %+v, want %+v", cfg, want)
	}

	h.say(ownerUser, "dv!limit "+mention+" 500")
	if got := h.lastReply(t); !strings.Contains(got, "between 0 and 99") {
		t.Fatalf("reply = %q", got)
	}

	h.say(ownerUser, "dv!category "+mention+" none")
	h.say(ownerUser, "dv!name "+mention+" @user's lair")
	cfg, _, _ = h.st.VoiceConfig(trig.ID)
	if cfg.CategoryID != "" || cfg.NameTemplate != "@user's lair" {
		t.Fatalf("config = %+v", cfg)
	}

	h.say(ownerUser, "dv!configs")
	if got := h.lastReply(t); got != "embed:Join-to-create channels" {
		t.Fatalf("configs reply = %q", got)
	}
}

func TestConfigCommandsRejectUnknownChannel(t *testing.T) {
	t.Parallel()
	h := newRouterHarness(t)
	h.fx.Voice("21", "Plain voice", "10")

	h.say(ownerUser, "dv!limit <#21> 3")
	if got := h.lastReply(t); got != "<#21> is not a join-to-create channel." {
		t.Fatalf("reply = %q", got)
	}
	h.say(ownerUser, "dv!limit nope 3")
	if got := h.lastReply(t); got != "Usage: `dv!limit <channel> <0-99>`" {
		t.Fatalf("reply = %q", got)
	}
}

func TestPrefixChange(t *testing.T) {
	t.Parallel()
	h := newRouterHarness(t)

	h.say(plainUser, "dv!prefix")
	if got := h.lastReply(t); got != "Current prefix is `dv!`." {
		t.Fatalf("reply = %q", got)
	}
	h.say(plainUser, "dv!prefix !")
	if h.st.Prefix(testutil.GuildID, "dv!") != "dv!" {
		t.Fatalf("unprivileged user changed the prefix")
	}

	h.say(ownerUser, "dv!prefix !")
	before := len(h.replies())
	h.say(plainUser, "dv!ping")
	if len(h.replies()) != before {
		t.Fatalf("old prefix still answers")
	}
	h.say(plainUser, "!ping")
	if got := h.lastReply(t); got != "🏓 Pong!" {
		t.Fatalf("reply = %q", got)
	}
}

func TestBadWordsCommand(t *testing.T) {
	t.Parallel()
	h := newRouterHarness(t)

	h.say(ownerUser, "dv!badwords add heck")
	h.say(ownerUser, "dv!badwords add darn")
	h.say(ownerUser, "dv!badwords add heck")
	if got := h.lastReply(t); got != "`heck` is already in the list." {
		t.Fatalf("reply = %q", got)
	}
	h.say(ownerUser, "dv!badwords remove heck")
	if got := h.st.BadWordsFor(testutil.GuildID); len(got) != 1 || got[0] != "darn" {
		t.Fatalf("bad words = %v", got)
	}
	h.say(ownerUser, "dv!badwords list")
	if got := h.lastReply(t); got != "Bad words: ||darn||" {
		t.Fatalf("reply = %q", got)
	}
}

func TestTextCategoryCommand(t *testing.T) {
	t.Parallel()
	h := newRouterHarness(t)

	h.say(ownerUser, "dv!textcategory add Squad Rooms")
	if !h.st.CategoryAllowed("squad rooms") {
		t.Fatalf("category not allowed: %v", h.st.CategoryChannels())
	}
	h.say(ownerUser, "dv!textcategory remove squad rooms")
	if h.st.CategoryAllowed("squad rooms") {
		t.Fatalf("category still allowed")
	}
	h.say(ownerUser, "dv!textcategory list")
	if got := h.lastReply(t); got != "No text categories configured." {
		t.Fatalf("reply = %q", got)
	}
}

func TestUnexpectedCommandErrorRepliesGeneric(t *testing.T) {
	t.Parallel()
	h := newRouterHarness(t)
	h.fake.Errs["GuildChannelCreateComplex"] = errors.New("discord down")

	h.say(ownerUser, "dv!create")
	if got := h.lastReply(t); !strings.HasPrefix(got, "❌ Something went wrong") {
		t.Fatalf("reply = %q", got)
	}
	if len(h.st.VoiceConfigIDs()) != 0 {
		t.Fatalf("config saved despite failure")
	}
}

func TestErrorReplySurvivesExpiredContext(t *testing.T) {
	t.Parallel()
	h := newRouterHarness(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()
	<-ctx.Done()

	slow := &Command{Name: "slow", Handler: func(ctx context.Context, _ *Call) error { return ctx.Err() }}
	h.r.invoke(ctx, slow, &Call{GuildID: testutil.GuildID, ChannelID: textChanID, AuthorID: plainUser, Prefix: "dv!", Name: "slow"})
	if got := h.lastReply(t); got != "❌ Something went wrong running that command." {
		t.Fatalf("reply = %q", got)
	}

	panics := &Command{Name: "boom", Handler: func(context.Context, *Call) error { panic("nil map") }}
	h.r.invoke(ctx, panics, &Call{GuildID: testutil.GuildID, ChannelID: textChanID, AuthorID: plainUser, Prefix: "dv!", Name: "boom"})
	if got := h.lastReply(t); !strings.HasSuffix(got, "The bot owner has been notified.") {
		t.Fatalf("reply = %q", got)
	}
}

func TestEditedMessages(t *testing.T) {
	t.Parallel()
	h := newRouterHarness(t)
	msg := func(content string) *discordgo.Message {
		return &discordgo.Message{
			ID:        "m-edit",
			GuildID:   testutil.GuildID,
			ChannelID: textChanID,
			Content:   content,
			Author:    &discordgo.User{ID: plainUser},
		}
	}

	// sin el mensaje viejo no se puede comparar
	h.r.onMessageUpdate(&discordgo.MessageUpdate{Message: msg("dv!ping")})
	// contenido igual (p.ej. se agregó un embed)
	h.r.onMessageUpdate(&discordgo.MessageUpdate{Message: msg("dv!ping"), BeforeUpdate: msg("dv!ping")})
	if got := h.replies(); len(got) != 0 {
		t.Fatalf("unchanged edits dispatched: %v", got)
	}

	h.r.onMessageUpdate(&discordgo.MessageUpdate{Message: msg("dv!ping"), BeforeUpdate: msg("dv!pnig")})
	if got := h.replies(); len(got) != 1 || got[0] != "🏓 Pong!" {
		t.Fatalf("replies = %v", got)
	}
}

func TestVoiceStateEventCreatesRoom(t *testing.T) {
	t.Parallel()
	h := newRouterHarness(t)
	h.fx.Voice("20", "Join", "10")
	if err := h.st.SetVoiceConfig("20", domain.VoiceConfig{NameTemplate: "@user's room"}); err != nil {
		t.Fatal(err)
	}

	h.fx.Connect(plainUser, "20")
	h.r.onVoiceState(&discordgo.VoiceStateUpdate{
		VoiceState: &discordgo.VoiceState{GuildID: testutil.GuildID, UserID: plainUser, ChannelID: "20"},
	})

	calls := h.fake.Calls()
	if len(calls.Created) == 0 || calls.Created[0].Name != "Plain's room" {
		t.Fatalf("created = %+v", calls.Created)
	}
	if len(calls.Moves) != 1 || calls.Moves[0].UserID != plainUser {
		t.Fatalf("moves = %+v", calls.Moves)
	}

	// mute/deafen sin cambio de canal: nada nuevo
	h.r.onVoiceState(&discordgo.VoiceStateUpdate{
		VoiceState:   &discordgo.VoiceState{GuildID: testutil.GuildID, UserID: plainUser, ChannelID: "20", SelfMute: true},
		BeforeUpdate: &discordgo.VoiceState{GuildID: testutil.GuildID, UserID: plainUser, ChannelID: "20"},
	})
	if n := len(h.fake.Calls().Created); n != len(calls.Created) {
		t.Fatalf("same-channel update created channels")
	}
}

func TestSplitCommand(t *testing.T) {
	t.Parallel()
	cases := []struct {
		in   string
		name string
		args []string
		ok   bool
	}{
		{"dv!ping", "ping", nil, true},
		{"Dv!Limit <#1>  4", "limit", []string{"<#1>", "4"}, true},
		{"dv! help", "help", nil, true},
		{"dv", "", nil, false},
		{"!ping", "", nil, false},
	}
	for _, tc := range cases {
		name, args, ok := splitCommand(tc.in, "dv!")
		if ok != tc.ok || name != tc.name || len(args) != len(tc.args) {
			t.Errorf("splitCommand(%q) = %q %v %v", tc.in, name, args, ok)
			continue
		}
		for i := range args {
			if args[i] != tc.args[i] {
				t.Errorf("splitCommand(%q) args = %v", tc.in, args)
			}
		}
	}
}
