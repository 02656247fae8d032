package status

// Status represents transcription job status
type Status int

const (
	// Processing - job is created and sent to the transcriber
	Processing Status = iota + 1
	// Completed - final step, result text is saved
	Completed
	// Failed - final step, error message is saved
	Failed
	// NoSpeech - final step, transcriber found no text in audio
	NoSpeech
)

var (
	statusName = map[Status]string{Processing: "processing", Completed: "completed",
		Failed: "failed", NoSpeech: "no_speech"}
	nameStatus = map[string]Status{"processing": Processing, "completed": Completed,
		"failed": Failed, "no_speech": NoSpeech}
)

func (st Status) String() string {
	return statusName[st]
}

// From returns status obj from string
func From(st string) Status {
	return nameStatus[st]
}

// IsFinal reports if no more transitions are possible
func (st Status) IsFinal() bool {
	return st == Completed || st == Failed || st == NoSpeech
}

// CanMove checks job status transition
func CanMove(from, to Status) bool {
	return from == Processing && to.IsFinal()
}
