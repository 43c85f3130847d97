// multa/api/messages.go
package api

// Notification texts shown to club members after a mutation.
const (
	MsgTeamAdded         = "Team was successfully added!"
	MsgTeamNotAdded      = "Team was not successfully added!"
	MsgTeamUpdated       = "Team was successfully updated!"
	MsgTeamNotUpdated    = "Team was not successfully updated!"
	MsgTeamDeleted       = "Team successfully deleted!"
	MsgTeamNotDeleted    = "Team not successfully deleted!"
	MsgPlayerAdded       = "Player was successfully added!"
	MsgPlayerNotAdded    = "Player was not successfully added!"
	MsgPlayerUpdated     = "Player was successfully updated!"
	MsgPlayerNotUpdated  = "Player was not successfully updated!"
	MsgPlayerDeleted     = "Player successfully deleted!"
	MsgPlayerNotDeleted  = "Player not successfully deleted!"
	MsgMultaAdded        = "Multaaaaaa!"
	MsgMultaNotAdded     = "Oubocht! Multa nit notiert!"
	MsgMultaPaid         = "Die Kasse dankt!"
	MsgMultaNotPaid      = "Oubocht! Multa nit gazoult!"
	MsgSignedOut         = "Signed out"
	MsgReadFailed        = "Failed to load data"
	MsgSignInFailed      = "Sign in failed"
	MsgSignUpFailed      = "Sign up failed"
	MsgAuthRequired      = "Authentication required"
	MsgInvalidRequest    = "Invalid request body"
	MsgServiceNotHealthy = "Service not healthy"
)
