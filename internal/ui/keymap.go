package ui

// Key binding constants used in handleKey.
const (
	keyQuit      = "q"
	keyQuitUpper = "Q"
	keyCtrlC     = "ctrl+c"
	keySpace     = " "
	keyMute      = "m"
	keyMuteUpper = "M"
	keySummary   = "s"
	keyExport    = "e"
	keyTab       = "tab"
	keyUp        = "up"
	keyDown      = "down"
)
