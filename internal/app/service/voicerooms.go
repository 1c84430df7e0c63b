package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"github.com/bwmarrin/discordgo"

	"github.com/jose-valero/dynvoice-bot/internal/infra/storage"
	"github.com/jose-valero/dynvoice-bot/internal/telemetry"
)

// VoiceRoomsDeps agrupa lo que necesita VoiceRoomsService.
type VoiceRoomsDeps struct {
	Stores    *storage.Stores
	State     *discordgo.State
	REST      Discord
	Tasks     *Tasks
	VoiceSpam *SpamGuard
}

// VoiceRoomsService crea y borra las salas dinámicas (voz + texto) según los eventos de voz.
// Los eventos de un mismo guild se procesan de a uno.
type VoiceRoomsService struct {
	st    *storage.Stores
	state *discordgo.State
	rest  Discord
	tasks *Tasks
	spam  *SpamGuard

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex

	launched   atomic.Bool
	reconciled sync.Map // guild id -> struct{}
}

func NewVoiceRoomsService(d VoiceRoomsDeps) *VoiceRoomsService {
	if d.Tasks == nil {
		d.Tasks = NewTasks()
	}
	if d.VoiceSpam == nil {
		d.VoiceSpam = NewVoiceGuard(d.Stores.Blacklist)
	}
	return &VoiceRoomsService{
		st:    d.Stores,
		state: d.State,
		rest:  d.REST,
		tasks: d.Tasks,
		spam:  d.VoiceSpam,
		locks: map[string]*sync.Mutex{},
	}
}

func (v *VoiceRoomsService) guildLock(guildID string) func() {
	v.locksMu.Lock()
	mu, ok := v.locks[guildID]
	if !ok {
		mu = &sync.Mutex{}
		v.locks[guildID] = mu
	}
	v.locksMu.Unlock()
	mu.Lock()
	return mu.Unlock
}

func (v *VoiceRoomsService) botID() string {
	if v.state.User == nil {
		return ""
	}
	return v.state.User.ID
}

// HandleVoiceUpdate traduce un cambio de canal en leave(before) + join(after).
func (v *VoiceRoomsService) HandleVoiceUpdate(ctx context.Context, guildID, userID, before, after string) error {
	if before == after {
		return nil
	}
	defer v.guildLock(guildID)()

	// un fallo del leave no frena el join del mismo evento
	var errs []error
	if before != "" {
		if err := v.onLeave(ctx, guildID, userID, before); err != nil {
			errs = append(errs, fmt.Errorf("leave %s: %w", before, err))
		}
	}
	if after != "" {
		if err := v.onJoin(ctx, guildID, userID, after); err != nil {
			errs = append(errs, fmt.Errorf("join %s: %w", after, err))
		}
	}
	return errors.Join(errs...)
}

// ---------- join ----------

func (v *VoiceRoomsService) onJoin(ctx context.Context, guildID, userID, channelID string) error {
	if v.st.Blacklist.Contains(userID) {
		return nil
	}
	trigger, err := v.state.Channel(channelID)
	if err != nil {
		return nil // canal fuera del state: nada que hacer
	}

	cfg, ok, err := v.st.VoiceConfig(channelID)
	if err != nil {
		return err
	}
	if !ok {
		return v.joinUnconfigured(ctx, guildID, userID, trigger)
	}

	botID := v.botID()
	if !has(guildPermissions(v.state, guildID, botID), discordgo.PermissionManageChannels|discordgo.PermissionVoiceMoveMembers) {
		return nil
	}

	verdict, err := v.spam.Hit(ctx, userID)
	if err != nil {
		return err
	}
	if !verdict.Allowed {
		if !verdict.Blacklisted {
			v.dm(ctx, userID, verdict.Notice())
		}
		return nil
	}

	name, position := RenderName(cfg.NameTemplate, NameContext{
		DisplayName: displayName(v.state, guildID, userID),
		Game:        playingGame(v.state, guildID, userID),
		Taken:       positions(v.st.PositionIndexes()),
		BadWords:    v.st.BadWordsFor(guildID),
	})
	parentID := v.resolveCategory(guildID, cfg.CategoryID, trigger)

	voice, err := v.rest.GuildChannelCreateComplex(guildID, discordgo.GuildChannelCreateData{
		Name:                 name,
		Type:                 discordgo.ChannelTypeGuildVoice,
		UserLimit:            cfg.UserLimit,
		ParentID:             parentID,
		PermissionOverwrites: roomOverwrites(botID, userID),
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("crear canal de voz: %w", err)
	}
	_ = v.state.ChannelAdd(voice)

	text, err := v.rest.GuildChannelCreateComplex(guildID, discordgo.GuildChannelCreateData{
		Name:                 TextName(name),
		Type:                 discordgo.ChannelTypeGuildText,
		ParentID:             parentID,
		PermissionOverwrites: textOverwrites(guildID, botID, voiceMembers(v.state, guildID, channelID)...),
	}, discordgo.WithContext(ctx))
	if err != nil {
		// la voz ya existe: la dejamos registrada para que el leave la limpie
		v.st.Channels.Append(voice.ID)
		if serr := v.saveChannels(ctx); serr != nil {
			log.Printf("[voice] guardar canales tras fallo: %v", serr)
		}
		return fmt.Errorf("crear canal de texto: %w", err)
	}
	_ = v.state.ChannelAdd(text)

	if cfg.MoveToTop {
		id := voice.ID
		v.tasks.Spawn("reposition "+id, func(ctx context.Context) error {
			top := 0
			_, err := v.rest.ChannelEdit(id, &discordgo.ChannelEdit{Position: &top}, discordgo.WithContext(ctx))
			return err
		})
	}

	if err := v.rest.GuildMemberMove(guildID, userID, &voice.ID, discordgo.WithContext(ctx)); err != nil {
		v.st.Channels.Append(voice.ID)
		v.st.Channels.Append(text.ID)
		if serr := v.saveChannels(ctx); serr != nil {
			log.Printf("[voice] guardar canales tras fallo: %v", serr)
		}
		return fmt.Errorf("mover %s: %w", userID, err)
	}

	v.st.Channels.Append(voice.ID)
	v.st.Channels.Append(text.ID)
	if position > 0 {
		if err := v.st.ChannelIndexes.Set(voice.ID, position); err != nil {
			return err
		}
		if err := v.st.ChannelIndexes.Save(ctx); err != nil {
			return fmt.Errorf("guardar posiciones: %w", err)
		}
	}
	if err := v.saveChannels(ctx); err != nil {
		return err
	}
	telemetry.RoomCreated()
	log.Printf("[voice] sala %q (%s) creada para %s en guild=%s", name, voice.ID, userID, guildID)
	return nil
}

// joinUnconfigured: canal sin config. Si hay un texto con el mismo nombre se le
// espejan los permisos; si no, y la categoría está habilitada, se crea uno.
func (v *VoiceRoomsService) joinUnconfigured(ctx context.Context, guildID, userID string, voice *discordgo.Channel) error {
	botPerms := channelPermissions(v.state, v.botID(), voice.ID)
	if !has(botPerms, discordgo.PermissionManageChannels|discordgo.PermissionManageRoles) {
		return nil
	}

	members := append(voiceMembers(v.state, guildID, voice.ID), userID)
	if texts := pairedTextChannels(v.state, voice); len(texts) > 0 {
		_, err := v.rest.ChannelEdit(texts[0].ID, &discordgo.ChannelEdit{
			PermissionOverwrites: textOverwrites(guildID, v.botID(), members...),
		}, discordgo.WithContext(ctx))
		return err
	}

	cat := categoryName(v.state, voice)
	if cat == "" || !v.st.CategoryAllowed(cat) {
		return nil
	}
	text, err := v.rest.GuildChannelCreateComplex(guildID, discordgo.GuildChannelCreateData{
		Name:                 TextName(voice.Name),
		Type:                 discordgo.ChannelTypeGuildText,
		ParentID:             voice.ParentID,
		PermissionOverwrites: textOverwrites(guildID, v.botID(), members...),
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("crear canal de texto: %w", err)
	}
	_ = v.state.ChannelAdd(text)
	v.st.Channels.Append(text.ID)
	log.Printf("[voice] texto %s creado para %s (categoría %q)", text.ID, voice.ID, cat)
	return v.saveChannels(ctx)
}

// resolveCategory: la categoría configurada si existe en el guild, si no la del trigger.
func (v *VoiceRoomsService) resolveCategory(guildID, categoryID string, trigger *discordgo.Channel) string {
	if categoryID == "" {
		return trigger.ParentID
	}
	cat, err := v.state.Channel(categoryID)
	if err != nil || cat == nil || cat.GuildID != guildID || cat.Type != discordgo.ChannelTypeGuildCategory {
		return trigger.ParentID
	}
	return cat.ID
}

// ---------- leave ----------

func (v *VoiceRoomsService) onLeave(ctx context.Context, guildID, userID, channelID string) error {
	if err := v.st.EnsureCategoryChannels(); err != nil {
		return err
	}

	voice, err := v.state.Channel(channelID)
	if err != nil {
		// ya no existe: sólo limpiamos el registro
		return v.forget(ctx, channelID)
	}
	empty := len(voiceMembers(v.state, guildID, channelID)) == 0
	// se calcula antes de borrar nada: después la voz ya no está en el state
	canManage := has(channelPermissions(v.state, v.botID(), voice.ID), discordgo.PermissionManageChannels)
	cat := categoryName(v.state, voice)

	var errs []error
	if v.st.Channels.Contains(channelID) {
		if empty {
			errs = append(errs, v.drain(ctx, voice, canManage))
		} else {
			errs = append(errs, v.mirror(ctx, voice))
		}
	}

	if cat != "" && v.st.CategoryAllowed(cat) {
		if empty {
			if canManage {
				_, err := v.deleteTexts(ctx, voice)
				errs = append(errs, err)
			}
		} else {
			errs = append(errs, v.mirror(ctx, voice))
		}
	}
	return errors.Join(errs...)
}

// drain borra la sala vacía y su texto, y la saca de los stores.
func (v *VoiceRoomsService) drain(ctx context.Context, voice *discordgo.Channel, canManage bool) error {
	if canManage {
		if _, err := v.rest.ChannelDelete(voice.ID, discordgo.WithContext(ctx)); err != nil && !IsNotFound(err) {
			return fmt.Errorf("borrar voz %s: %w", voice.ID, err)
		}
		_ = v.state.ChannelRemove(voice)
		telemetry.RoomDeleted()
	}

	v.st.Channels.Remove(voice.ID)
	if v.st.ChannelIndexes.Remove(voice.ID) {
		if err := v.st.ChannelIndexes.Save(ctx); err != nil {
			return fmt.Errorf("guardar posiciones: %w", err)
		}
	}
	if err := v.saveChannels(ctx); err != nil {
		return err
	}

	n, err := v.deleteTexts(ctx, voice)
	log.Printf("[voice] sala %s vacía: des-registrada (borrada=%v, textos=%d)", voice.ID, canManage, n)
	return err
}

// deleteTexts borra los textos pareados y los des-registra. Devuelve cuántos borró.
func (v *VoiceRoomsService) deleteTexts(ctx context.Context, voice *discordgo.Channel) (int, error) {
	botID := v.botID()
	var (
		n       int
		errs    []error
		touched bool
	)
	for _, t := range pairedTextChannels(v.state, voice) {
		if !has(channelPermissions(v.state, botID, t.ID), discordgo.PermissionManageChannels) {
			continue
		}
		if _, err := v.rest.ChannelDelete(t.ID, discordgo.WithContext(ctx)); err != nil && !IsNotFound(err) {
			errs = append(errs, fmt.Errorf("borrar texto %s: %w", t.ID, err))
			continue
		}
		_ = v.state.ChannelRemove(t)
		telemetry.TextChannelDeleted()
		n++
		if v.st.Channels.Remove(t.ID) {
			touched = true
		}
	}
	if touched {
		errs = append(errs, v.saveChannels(ctx))
	}
	return n, errors.Join(errs...)
}

// mirror copia la lista de miembros de la voz a los permisos del primer texto pareado.
func (v *VoiceRoomsService) mirror(ctx context.Context, voice *discordgo.Channel) error {
	texts := pairedTextChannels(v.state, voice)
	if len(texts) == 0 {
		return nil
	}
	if !has(channelPermissions(v.state, v.botID(), texts[0].ID), discordgo.PermissionManageRoles) {
		return nil
	}
	_, err := v.rest.ChannelEdit(texts[0].ID, &discordgo.ChannelEdit{
		PermissionOverwrites: textOverwrites(voice.GuildID, v.botID(), voiceMembers(v.state, voice.GuildID, voice.ID)...),
	}, discordgo.WithContext(ctx))
	if err != nil && !IsNotFound(err) {
		return fmt.Errorf("permisos de %s: %w", texts[0].ID, err)
	}
	return nil
}

// forget saca un id de los stores sin tocar Discord.
func (v *VoiceRoomsService) forget(ctx context.Context, channelID string) error {
	var errs []error
	if v.st.ChannelIndexes.Remove(channelID) {
		errs = append(errs, v.st.ChannelIndexes.Save(ctx))
	}
	if v.st.Channels.Remove(channelID) {
		errs = append(errs, v.saveChannels(ctx))
	}
	return errors.Join(errs...)
}

// ---------- channel delete ----------

// OnChannelDelete: si borraron a mano un trigger se va su config; si era una sala, se des-registra.
func (v *VoiceRoomsService) OnChannelDelete(ctx context.Context, guildID, channelID string) error {
	defer v.guildLock(guildID)()

	var errs []error
	if v.st.Configs.Remove(channelID) {
		log.Printf("[voice] trigger %s borrado: config eliminada", channelID)
		if err := v.st.Configs.Save(ctx); err != nil {
			errs = append(errs, fmt.Errorf("guardar configs: %w", err))
		}
	}
	errs = append(errs, v.forget(ctx, channelID))
	return errors.Join(errs...)
}

// ---------- startup ----------

// ReconcileGuild simula un leave del bot en cada canal de voz del guild para limpiar
// salas que quedaron vacías de la corrida anterior. Corre una sola vez por guild.
func (v *VoiceRoomsService) ReconcileGuild(ctx context.Context, guildID string) error {
	if _, done := v.reconciled.LoadOrStore(guildID, struct{}{}); done {
		return nil
	}
	defer v.guildLock(guildID)()

	voices := guildChannels(v.state, guildID, func(c *discordgo.Channel) bool {
		return c.Type == discordgo.ChannelTypeGuildVoice
	})
	botID := v.botID()
	var errs []error
	for _, c := range voices {
		if err := v.onLeave(ctx, guildID, botID, c.ID); err != nil {
			errs = append(errs, fmt.Errorf("reconcile %s: %w", c.ID, err))
		}
	}
	if len(voices) > 0 {
		log.Printf("[voice] guild %s reconciliado (%d canales de voz)", guildID, len(voices))
	}
	return errors.Join(errs...)
}

// Launch corre una vez por proceso: reconcilia los guilds disponibles y resetea posiciones.
// false si ya había corrido.
func (v *VoiceRoomsService) Launch(ctx context.Context) (bool, error) {
	if !v.launched.CompareAndSwap(false, true) {
		return false, nil
	}

	var ids []string
	v.state.RLock()
	for _, g := range v.state.Guilds {
		if g != nil && !g.Unavailable {
			ids = append(ids, g.ID)
		}
	}
	v.state.RUnlock()

	var errs []error
	for _, id := range ids {
		errs = append(errs, v.ReconcileGuild(ctx, id))
	}

	v.st.ChannelIndexes.Clear()
	if err := v.st.ChannelIndexes.Save(ctx); err != nil {
		errs = append(errs, fmt.Errorf("reset posiciones: %w", err))
	}
	telemetry.SetManagedChannels(v.st.Channels.Len())
	return true, errors.Join(errs...)
}

// ---------- helpers ----------

func (v *VoiceRoomsService) saveChannels(ctx context.Context) error {
	if err := v.st.Channels.Save(ctx); err != nil {
		return fmt.Errorf("guardar canales: %w", err)
	}
	telemetry.SetManagedChannels(v.st.Channels.Len())
	return nil
}

// dm manda un mensaje directo; los fallos (DMs cerrados) se ignoran.
func (v *VoiceRoomsService) dm(ctx context.Context, userID, msg string) {
	ch, err := v.rest.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return
	}
	_, _ = v.rest.ChannelMessageSend(ch.ID, msg, discordgo.WithContext(ctx))
}

func positions(m map[string]int) []int {
	out := make([]int, 0, len(m))
	for _, n := range m {
		out = append(out, n)
	}
	return out
}
