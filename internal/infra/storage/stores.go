package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/jose-valero/dynvoice-bot/internal/domain"
)

// Nombres de los documentos (y de los archivos data/<name>.json).
const (
	StorePrefixes       = "prefixes"
	StoreBadWords       = "bad_words"
	StoreConfigs        = "configs"
	StoreChannels       = "channels"
	StoreBlacklist      = "blacklist"
	StoreChannelIndexes = "channel_indexes"

	// clave especial dentro de configs: categorías con texto auto-creado
	CategoryChannelsKey = "category-channels"
)

// AllStores en el orden en que se cargan.
var AllStores = []string{
	StorePrefixes, StoreBadWords, StoreConfigs, StoreChannels, StoreBlacklist, StoreChannelIndexes,
}

// Stores agrupa todos los KV del bot; se construye una vez y se inyecta.
type Stores struct {
	Prefixes       *Dict // guild_id -> prefix
	BadWords       *Dict // guild_id -> []string
	Configs        *Dict // channel_id -> VoiceConfig, + "category-channels"
	Channels       *List // ids de canales creados por el bot
	Blacklist      *List // user ids
	ChannelIndexes *Dict // voice channel id -> posición

	backend Backend
}

// bulkLoader lo implementan los backends SQL: trae todos los documentos en una query.
type bulkLoader interface {
	LoadMany(ctx context.Context, names []string) (map[string][]byte, error)
}

// snapshot sirve los Load desde una carga en bloque; Save va directo al backend.
type snapshot struct {
	Backend
	docs map[string][]byte
}

func (s snapshot) Load(_ context.Context, name string) ([]byte, error) {
	body, ok := s.docs[name]
	if !ok {
		return nil, ErrNotFound
	}
	return body, nil
}

func OpenStores(ctx context.Context, backend Backend) (*Stores, error) {
	st := &Stores{backend: backend}
	b := backend
	if bl, ok := backend.(bulkLoader); ok {
		docs, err := bl.LoadMany(ctx, AllStores)
		if err != nil {
			return nil, err
		}
		b = snapshot{Backend: backend, docs: docs}
	}
	var err error
	if st.Prefixes, err = OpenDict(ctx, b, StorePrefixes); err != nil {
		return nil, err
	}
	if st.BadWords, err = OpenDict(ctx, b, StoreBadWords); err != nil {
		return nil, err
	}
	if st.Configs, err = OpenDict(ctx, b, StoreConfigs); err != nil {
		return nil, err
	}
	if st.Channels, err = OpenList(ctx, b, StoreChannels); err != nil {
		return nil, err
	}
	if st.Blacklist, err = OpenList(ctx, b, StoreBlacklist); err != nil {
		return nil, err
	}
	if st.ChannelIndexes, err = OpenDict(ctx, b, StoreChannelIndexes); err != nil {
		return nil, err
	}
	return st, nil
}

func (s *Stores) Close() error { return s.backend.Close() }

// Prefix devuelve el prefix del guild o def.
func (s *Stores) Prefix(guildID, def string) string {
	var p string
	if ok, err := s.Prefixes.Get(guildID, &p); !ok || err != nil || p == "" {
		return def
	}
	return p
}

// VoiceConfig lee y normaliza la config del trigger. ok=false si no hay.
func (s *Stores) VoiceConfig(channelID string) (domain.VoiceConfig, bool, error) {
	if channelID == CategoryChannelsKey {
		return domain.VoiceConfig{}, false, nil
	}
	var c domain.VoiceConfig
	ok, err := s.Configs.Get(channelID, &c)
	if !ok || err != nil {
		return domain.VoiceConfig{}, ok, err
	}
	return c.Normalize(), true, nil
}

func (s *Stores) SetVoiceConfig(channelID string, c domain.VoiceConfig) error {
	if channelID == CategoryChannelsKey {
		return fmt.Errorf("clave reservada: %s", channelID)
	}
	return s.Configs.Set(channelID, c.Normalize())
}

// VoiceConfigIDs lista los triggers configurados.
func (s *Stores) VoiceConfigIDs() []string {
	keys := s.Configs.Keys()
	out := keys[:0]
	for _, k := range keys {
		if k != CategoryChannelsKey {
			out = append(out, k)
		}
	}
	return out
}

// EnsureCategoryChannels crea la lista vacía si falta (sin guardar).
func (s *Stores) EnsureCategoryChannels() error {
	if s.Configs.Contains(CategoryChannelsKey) {
		return nil
	}
	return s.Configs.Set(CategoryChannelsKey, []string{})
}

// CategoryChannels devuelve la allow-list (nombres en minúscula).
func (s *Stores) CategoryChannels() []string {
	var names []string
	if ok, err := s.Configs.Get(CategoryChannelsKey, &names); !ok || err != nil {
		return nil
	}
	return names
}

func (s *Stores) CategoryAllowed(categoryName string) bool {
	want := strings.ToLower(categoryName)
	for _, n := range s.CategoryChannels() {
		if n == want {
			return true
		}
	}
	return false
}

func (s *Stores) SetCategoryChannels(names []string) error {
	out := make([]string, 0, len(names))
	for _, n := range names {
		out = append(out, strings.ToLower(strings.TrimSpace(n)))
	}
	return s.Configs.Set(CategoryChannelsKey, out)
}

// BadWordsFor devuelve las palabras prohibidas del guild, en orden.
func (s *Stores) BadWordsFor(guildID string) []string {
	var words []string
	if ok, err := s.BadWords.Get(guildID, &words); !ok || err != nil {
		return nil
	}
	return words
}

func (s *Stores) SetBadWords(guildID string, words []string) error {
	if words == nil {
		words = []string{}
	}
	return s.BadWords.Set(guildID, words)
}

// PositionIndexes devuelve voice id -> posición asignada.
func (s *Stores) PositionIndexes() map[string]int {
	out := map[string]int{}
	for _, k := range s.ChannelIndexes.Keys() {
		var n int
		if ok, err := s.ChannelIndexes.Get(k, &n); ok && err == nil {
			out[k] = n
		}
	}
	return out
}
