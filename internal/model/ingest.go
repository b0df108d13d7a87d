package model

// IngestEnvelope carries one raw payload with source metadata.
// It is the transport contract between listeners and decoders.
type IngestEnvelope struct {
	Source string
	Remote string
	Line   string
}
