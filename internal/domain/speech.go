package domain

// Speech is synthesized audio, ready to be served
type Speech struct {
	// WAV encoded audio
	Audio []byte
	Voice string
}
