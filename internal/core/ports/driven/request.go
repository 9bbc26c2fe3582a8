package driven

// Request is the read-only slice of the inbound request the schemes consume:
// a header lookup and a query/body parameter fallback. An empty string means
// the value is absent.
type Request interface {
	Header(name string) string
	Input(name string) string
}
