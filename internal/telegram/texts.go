package telegram

// UI texts in English
const (
	startText = "👋 I watch the Epic Games Store for the current free game.\n\n" +
		"/freegame — show the current free game\n" +
		"/subscribe — get a message whenever a new one appears\n" +
		"/unsubscribe — stop getting messages"
	noInfoText     = "No free game information available yet."
	currentGameFmt = "Current free game:\n%s\nFree until: %s"

	subscribedText      = "Subscribed ✅ You will be notified about new free games."
	unsubscribedText    = "Unsubscribed. You will no longer be notified."
	subscribeFailText   = "Could not subscribe right now. Please try again later."
	unsubscribeFailText = "Could not unsubscribe right now. Please try again later."

	inlineNoInfoTitle = "Free game"
	inlineDescription = "Current Epic Games Store free game"
)
