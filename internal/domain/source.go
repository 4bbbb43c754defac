package domain

// Source identifies the stream source that produced an event.
type Source string

const (
	SourcePumpPortal Source = "pumpportal_ws"
	SourceReplay     Source = "replay"
)

// String returns the string representation of Source.
func (s Source) String() string {
	return string(s)
}

// IsValid checks if the source is a known value.
func (s Source) IsValid() bool {
	return s == SourcePumpPortal || s == SourceReplay
}
