// Package testutil trae fakes de Discord para los tests de service y del adapter.
package testutil

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/bwmarrin/discordgo"
)

// Move registra un GuildMemberMove.
type Move struct {
	GuildID, UserID, ChannelID string
}

// Edit registra un ChannelEdit.
type Edit struct {
	ChannelID string
	Data      discordgo.ChannelEdit
}

// Sent registra un mensaje o embed mandado.
type Sent struct {
	ChannelID string
	Content   string
	Embed     *discordgo.MessageEmbed
}

// Calls es lo que anotó el fake.
type Calls struct {
	Created []*discordgo.Channel
	Edits   []Edit
	Deleted []string
	Moves   []Move
	Sent    []Sent
	DMs     []string // user ids con DM abierto
}

// FakeDiscord implementa el subconjunto REST de la sesión y anota cada llamada.
// Errs permite forzar un error por método ("GuildChannelCreateComplex", "ChannelDelete", ...).
type FakeDiscord struct {
	mu     sync.Mutex
	nextID int
	calls  Calls

	Errs map[string]error
}

func NewFakeDiscord() *FakeDiscord {
	return &FakeDiscord{nextID: 9000, Errs: map[string]error{}}
}

func (f *FakeDiscord) fail(method string) error {
	return f.Errs[method]
}

// ctxErr aplica las opciones como lo haría la sesión y devuelve el error del
// context resultante (discordgo.WithContext vencido → context.DeadlineExceeded).
func ctxErr(opts []discordgo.RequestOption) error {
	req, err := http.NewRequest(http.MethodPost, "https://discord.invalid/api", nil)
	if err != nil {
		return err
	}
	cfg := &discordgo.RequestConfig{Request: req}
	for _, o := range opts {
		o(cfg)
	}
	return cfg.Request.Context().Err()
}

func (f *FakeDiscord) GuildChannelCreateComplex(guildID string, data discordgo.GuildChannelCreateData, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("GuildChannelCreateComplex"); err != nil {
		return nil, err
	}
	f.nextID++
	ch := &discordgo.Channel{
		ID:                   fmt.Sprintf("%d", f.nextID),
		GuildID:              guildID,
		Name:                 data.Name,
		Type:                 data.Type,
		ParentID:             data.ParentID,
		UserLimit:            data.UserLimit,
		PermissionOverwrites: data.PermissionOverwrites,
	}
	f.calls.Created = append(f.calls.Created, ch)
	return ch, nil
}

func (f *FakeDiscord) ChannelEdit(channelID string, data *discordgo.ChannelEdit, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("ChannelEdit"); err != nil {
		return nil, err
	}
	f.calls.Edits = append(f.calls.Edits, Edit{ChannelID: channelID, Data: *data})
	return &discordgo.Channel{ID: channelID}, nil
}

func (f *FakeDiscord) ChannelDelete(channelID string, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("ChannelDelete"); err != nil {
		return nil, err
	}
	f.calls.Deleted = append(f.calls.Deleted, channelID)
	return &discordgo.Channel{ID: channelID}, nil
}

func (f *FakeDiscord) GuildMemberMove(guildID, userID string, channelID *string, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("GuildMemberMove"); err != nil {
		return err
	}
	to := ""
	if channelID != nil {
		to = *channelID
	}
	f.calls.Moves = append(f.calls.Moves, Move{GuildID: guildID, UserID: userID, ChannelID: to})
	return nil
}

func (f *FakeDiscord) UserChannelCreate(recipientID string, opts ...discordgo.RequestOption) (*discordgo.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("UserChannelCreate"); err != nil {
		return nil, err
	}
	if err := ctxErr(opts); err != nil {
		return nil, err
	}
	f.calls.DMs = append(f.calls.DMs, recipientID)
	return &discordgo.Channel{ID: "dm-" + recipientID, Type: discordgo.ChannelTypeDM}, nil
}

func (f *FakeDiscord) ChannelMessageSend(channelID, content string, opts ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("ChannelMessageSend"); err != nil {
		return nil, err
	}
	if err := ctxErr(opts); err != nil {
		return nil, err
	}
	f.calls.Sent = append(f.calls.Sent, Sent{ChannelID: channelID, Content: content})
	return &discordgo.Message{ChannelID: channelID, Content: content}, nil
}

func (f *FakeDiscord) ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, opts ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("ChannelMessageSendEmbed"); err != nil {
		return nil, err
	}
	if err := ctxErr(opts); err != nil {
		return nil, err
	}
	f.calls.Sent = append(f.calls.Sent, Sent{ChannelID: channelID, Embed: embed})
	return &discordgo.Message{ChannelID: channelID}, nil
}

// Calls devuelve una copia de lo registrado.
func (f *FakeDiscord) Calls() Calls {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.calls
	return Calls{
		Created: append([]*discordgo.Channel(nil), c.Created...),
		Edits:   append([]Edit(nil), c.Edits...),
		Deleted: append([]string(nil), c.Deleted...),
		Moves:   append([]Move(nil), c.Moves...),
		Sent:    append([]Sent(nil), c.Sent...),
		DMs:     append([]string(nil), c.DMs...),
	}
}
