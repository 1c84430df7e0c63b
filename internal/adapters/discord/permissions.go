package discord

import "github.com/bwmarrin/discordgo"

// canManageSettings: owner del guild, dueño del bot, Administrator o Manage Channels en el canal.
func (r *Router) canManageSettings(guildID, channelID, userID string) bool {
	if r.ownerID != "" && userID == r.ownerID {
		return true
	}
	if g, err := r.state.Guild(guildID); err == nil && g.OwnerID == userID {
		return true
	}
	// UserChannelPermissions ya devuelve PermissionAll para Administrator
	perms, err := r.state.UserChannelPermissions(userID, channelID)
	if err != nil {
		return false
	}
	return perms&discordgo.PermissionManageChannels != 0
}

// botCanSend: si el bot no puede escribir en el canal ignoramos el comando.
func (r *Router) botCanSend(channelID string) bool {
	if r.state.User == nil {
		return false
	}
	perms, err := r.state.UserChannelPermissions(r.state.User.ID, channelID)
	if err != nil {
		return false
	}
	return perms&discordgo.PermissionSendMessages != 0
}
