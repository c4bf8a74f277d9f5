package i18n

// Message keys. Keys are the English format strings; other locales register
// translations for them in the catalog.
const (
	MsgMainMenu        = "MythTV recordings"
	MsgGroupLabel      = "%s (%d)"
	MsgByKey           = "By %s"
	MsgByKeyTrailing   = "by %s"
	MsgFilterClause    = "%s \"%s\""
	MsgAllRecordings   = "All recordings"
	MsgByRecordingDate = "By recording date"
	MsgNoValue         = "(none)"
	MsgMore            = "More…"

	MsgHeader          = "%s - %s"
	MsgHeaderStill     = "%s (still recording)"
	MsgStillRecording  = "Still recording."
	MsgMissedBoth      = "WARNING: Recording may have missed both start and end of program (by %s and %s, respectively)"
	MsgMissedStart     = "WARNING: Recording may have missed start of program by %s"
	MsgMissedEnd       = "WARNING: Recording may have missed end of program by %s"

	MsgBackendOK          = "Connected to MythTV backend at %s (version check passed)."
	MsgBackendUnreachable = "Could not reach a compatible MythTV backend at %s. Check the server and port settings."

	FieldNameTitle        = "Title"
	FieldNameSubtitle     = "Subtitle"
	FieldNameCategory     = "Category"
	FieldNameRecGroup     = "Recording group"
	FieldNameStorageGroup = "Storage group"
	FieldNameChannel      = "Channel"
	FieldNameChannelID    = "Channel number"
	FieldNameStartTime    = "Recording date"
	FieldNameDescription  = "Description"
)
