package service

import (
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Placeholders del template de nombre.
const (
	PlaceholderUser     = "@user"
	PlaceholderGame     = "@game"
	PlaceholderPosition = "@position"

	NoGame        = "no game"
	MaxNameLength = 100
	ellipsis      = "..."
)

// NameContext es lo que necesita RenderName para resolver un template.
type NameContext struct {
	DisplayName string
	Game        string // actividad "jugando"; vacío = sin juego
	Taken       []int  // posiciones ya asignadas
	BadWords    []string
}

// RenderName resuelve el template. position > 0 sólo si el template usó @position.
// Orden: user, game, position (+ espacios a guiones en todo el nombre), truncado, censura.
func RenderName(template string, nc NameContext) (name string, position int) {
	name = template
	if strings.Contains(name, PlaceholderUser) {
		name = strings.ReplaceAll(name, PlaceholderUser, nc.DisplayName)
	}
	if strings.Contains(name, PlaceholderGame) {
		game := nc.Game
		if game == "" {
			game = NoGame
		}
		name = strings.ReplaceAll(name, PlaceholderGame, game)
	}
	if strings.Contains(name, PlaceholderPosition) {
		position = NextPosition(nc.Taken)
		name = strings.ReplaceAll(name, PlaceholderPosition, strconv.Itoa(position))
		name = strings.ReplaceAll(name, " ", "-")
	}
	name = Truncate(name, MaxNameLength)
	return Redact(name, nc.BadWords), position
}

// NextPosition: menor entero positivo que no está en taken.
func NextPosition(taken []int) int {
	sorted := append([]int(nil), taken...)
	sort.Ints(sorted)
	next := 1
	for _, n := range sorted {
		if n < next {
			continue
		}
		if n > next {
			break
		}
		next++
	}
	return next
}

// Truncate corta a limit runas, terminando en "..." si hubo que cortar.
func Truncate(name string, limit int) string {
	if utf8.RuneCountInString(name) <= limit {
		return name
	}
	r := []rune(name)
	return string(r[:limit-len(ellipsis)]) + ellipsis
}

// Redact tapa cada palabra prohibida con tantos * como runas tenga (case-sensitive).
func Redact(name string, words []string) string {
	for _, w := range words {
		if w == "" || !strings.Contains(name, w) {
			continue
		}
		name = strings.ReplaceAll(name, w, strings.Repeat("*", utf8.RuneCountInString(w)))
	}
	return name
}

// TextName es el nombre del canal de texto que acompaña a un canal de voz.
func TextName(voiceName string) string {
	return strings.ReplaceAll(strings.ToLower(voiceName), " ", "-")
}
