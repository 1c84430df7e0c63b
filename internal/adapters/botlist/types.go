package botlist

// Stats es el body que espera POST /bots/{id}/stats.
type Stats struct {
	Guilds int `json:"guilds"`
	Users  int `json:"users"`
}
