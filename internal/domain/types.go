package domain

// Speaker identifies which side of the conversation produced audio or text.
type Speaker string

const (
	SpeakerUser  Speaker = "user"
	SpeakerModel Speaker = "model"
)

// ConnState models the live session lifecycle.
type ConnState string

const (
	ConnStateIdle       ConnState = "idle"
	ConnStateConnecting ConnState = "connecting"
	ConnStateConnected  ConnState = "connected"
	ConnStateError      ConnState = "error"
)

// ErrorCode identifies non-fatal and fatal backend errors surfaced to the UI.
type ErrorCode string

const (
	ErrorCodeAuth     ErrorCode = "auth"
	ErrorCodeNetwork  ErrorCode = "network"
	ErrorCodeDevice   ErrorCode = "device"
	ErrorCodePlayback ErrorCode = "playback"
	ErrorCodeAnalysis ErrorCode = "analysis"
)

// TranscriptSegment is one entry of the session transcript. While IsPartial
// is true the entry is the speaker's live slot and is overwritten in place;
// once finalized it is immutable.
type TranscriptSegment struct {
	ID          string  `json:"id"`
	Speaker     Speaker `json:"speaker"`
	Text        string  `json:"text"`
	TimestampMs int64   `json:"timestampMs"`
	IsPartial   bool    `json:"isPartial"`
}

// AnalysisKind distinguishes the two periodic analysis tiers.
type AnalysisKind string

const (
	AnalysisKindCheckin   AnalysisKind = "checkin"
	AnalysisKindMilestone AnalysisKind = "milestone"
)

// AnalysisRecord is one completed periodic analysis. Immutable once appended.
type AnalysisRecord struct {
	ID          string       `json:"id"`
	TimestampMs int64        `json:"timestampMs"`
	Content     string       `json:"content"`
	TimeRange   string       `json:"timeRange"`
	Kind        AnalysisKind `json:"kind"`
}

// ServerEventKind tags inbound messages from the live session.
type ServerEventKind string

const (
	ServerEventPartialTranscript ServerEventKind = "partial_transcript"
	ServerEventFinalTranscript   ServerEventKind = "final_transcript"
	ServerEventAudioChunk        ServerEventKind = "audio_chunk"
	ServerEventTurnComplete      ServerEventKind = "turn_complete"
	ServerEventClosed            ServerEventKind = "closed"
	ServerEventError             ServerEventKind = "error"
)

// ServerEvent is one inbound message from the live session. Text carries an
// increment to be appended to the speaker's running transcription, never a
// full replacement.
type ServerEvent struct {
	Kind    ServerEventKind
	Speaker Speaker
	Text    string
	Audio   []byte
	Message string
}

// Status summarizes the current session for the presentation layer.
type Status struct {
	State      ConnState `json:"state"`
	InputLevel float64   `json:"inputLevel"`
	Muted      bool      `json:"muted"`
	Message    string    `json:"message,omitempty"`
}
